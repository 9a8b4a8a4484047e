package dataset

import (
	"strings"

	"hrp_projects/internal/query"
)

// hxlDirectives tag the HPC.tools project columns and flatten the nested
// plan objects. The proxy applies them in the order given.
var hxlDirectives = []query.Param{
	{Key: "tagger-match-all", Value: "on"},
	{Key: "tagger-01-header", Value: "name"},
	{Key: "tagger-01-tag", Value: "#activity+name"},
	{Key: "tagger-02-header", Value: "versioncode"},
	{Key: "tagger-02-tag", Value: "#activity+code+v_hpc"},
	{Key: "tagger-03-header", Value: "currentrequestedfunds"},
	{Key: "tagger-03-tag", Value: "#value+requested+usd"},
	{Key: "tagger-05-header", Value: "objective"},
	{Key: "tagger-05-tag", Value: "#description+objective"},
	{Key: "tagger-06-header", Value: "partners"},
	{Key: "tagger-06-tag", Value: "#org+impl+name+list"},
	{Key: "tagger-07-header", Value: "startdate"},
	{Key: "tagger-07-tag", Value: "#date+start"},
	{Key: "tagger-08-header", Value: "enddate"},
	{Key: "tagger-08-tag", Value: "#date+end"},
	{Key: "tagger-09-header", Value: "governingEntities"},
	{Key: "tagger-09-tag", Value: "#sector+cluster+local+name"},
	{Key: "tagger-17-header", Value: "globalclusters"},
	{Key: "tagger-17-tag", Value: "#sector+cluster+global+name"},
	{Key: "tagger-18-header", Value: "organizations"},
	{Key: "tagger-18-tag", Value: "#org+prog+name"},
	{Key: "tagger-19-header", Value: "plans"},
	{Key: "tagger-19-tag", Value: "#response+plan+name"},
	{Key: "header-row", Value: "1"},
	{Key: "filter01", Value: "cut"},
	{Key: "cut-skip-untagged01", Value: "on"},
	{Key: "filter02", Value: "add"},
	{Key: "add-tag02", Value: "#response+plan+code"},
	{Key: "add-value02", Value: "{{#response+plan+name}}"},
	{Key: "add-header02", Value: "Response plan code"},
	{Key: "filter03", Value: "jsonpath"},
	{Key: "jsonpath-path03", Value: "$[0].name"},
	{Key: "jsonpath-patterns03", Value: "#*+name"},
	{Key: "filter04", Value: "jsonpath"},
	{Key: "jsonpath-path04", Value: "$[0].code"},
	{Key: "jsonpath-patterns04", Value: "#*+code"},
	{Key: "filter05", Value: "clean"},
	{Key: "clean-date-tags05", Value: "#date"},
	// Carried by every published resource URL; kept so they stay unchanged.
	{Key: "_gl", Value: "1*1pie5e1*_ga*MTI1MTE3OTIzNy4xNjk1OTA2MTk3*_ga_E60ZNX2F68*MTY5NjUxMTk5Mi43LjEuMTY5NjUxMjAwMC41Mi4wLjA."},
}

// HXLProxyURL wraps a JSON source URL in an HXL proxy CSV download.
func HXLProxyURL(proxyURL, filename, sourceURL string) string {
	q := query.New(query.Param{Key: "url", Value: sourceURL})
	for _, d := range hxlDirectives {
		q.Add(d.Key, d.Value)
	}
	// The proxy's published links leave jsonpath sigils unescaped.
	q.Keep("$*")
	return q.URL(strings.TrimRight(proxyURL, "/") + "/" + filename)
}
