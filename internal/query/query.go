// Package query renders ordered URL query strings.
//
// net/url.Values sorts keys on Encode, which breaks upstream services that
// read positional directives (the HXL proxy numbers its filters and taggers
// but still expects them in order). Query keeps insertion order and escapes
// every key and value the same way each time.
package query

import (
	"net/url"
	"strings"
)

type Param struct {
	Key   string
	Value string
}

type Query struct {
	params []Param
	keep   string
}

func New(params ...Param) *Query {
	return &Query{params: append([]Param(nil), params...)}
}

// Add appends a parameter; repeated keys are kept.
func (q *Query) Add(key, value string) *Query {
	q.params = append(q.params, Param{Key: key, Value: value})
	return q
}

// Keep leaves the given characters unescaped in values.
func (q *Query) Keep(chars string) *Query {
	q.keep = chars
	return q
}

func (q *Query) Params() []Param {
	return append([]Param(nil), q.params...)
}

func (q *Query) Encode() string {
	var sb strings.Builder
	for i, p := range q.params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(q.escape(p.Value))
	}
	return sb.String()
}

// URL joins base and the encoded query.
func (q *Query) URL(base string) string {
	if len(q.params) == 0 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

func (q *Query) escape(v string) string {
	escaped := url.QueryEscape(v)
	for _, c := range q.keep {
		enc := url.QueryEscape(string(c))
		if enc != string(c) {
			escaped = strings.ReplaceAll(escaped, enc, string(c))
		}
	}
	return escaped
}
