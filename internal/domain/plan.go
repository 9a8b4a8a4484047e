package domain

import (
	"sort"
	"strings"
	"time"
)

// Plan is a response plan version that qualified for publication.
type Plan struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
	Type  string `json:"type"`
	ISO3  string `json:"iso3,omitempty"`
}

// StartTime parses the date part of Start. Unparseable dates sort last.
func (p Plan) StartTime() time.Time {
	if len(p.Start) < 10 {
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, p.Start[:10])
	if err != nil {
		return time.Time{}
	}
	return t
}

// SortNewestFirst orders plans by start date descending, ties by code.
func SortNewestFirst(plans []Plan) []Plan {
	sorted := make([]Plan, len(plans))
	copy(sorted, plans)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i].StartTime(), sorted[j].StartTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return sorted[i].Code < sorted[j].Code
	})
	return sorted
}

// Snapshot is the output of a plan scan, keyed by uppercase ISO3.
type Snapshot struct {
	Countries map[string]string `json:"countries"`
	Plans     map[string][]Plan `json:"plans"`
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		Countries: make(map[string]string),
		Plans:     make(map[string][]Plan),
	}
}

// ISO3s returns the countries that have plans, sorted.
func (s *Snapshot) ISO3s() []string {
	codes := make([]string, 0, len(s.Plans))
	for iso3, plans := range s.Plans {
		if len(plans) > 0 {
			codes = append(codes, iso3)
		}
	}
	sort.Strings(codes)
	return codes
}

// CountryName falls back to the ISO3 code when the snapshot has no name.
func (s *Snapshot) CountryName(iso3 string) string {
	if name := strings.TrimSpace(s.Countries[iso3]); name != "" {
		return name
	}
	return iso3
}

// PlanCount returns the number of plans across all countries.
func (s *Snapshot) PlanCount() int {
	n := 0
	for _, plans := range s.Plans {
		n += len(plans)
	}
	return n
}
