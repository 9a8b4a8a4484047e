package dataset

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrp_projects/internal/config"
	"hrp_projects/internal/domain"
)

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(Config{
		CutoffYear:  2016,
		HPCBaseURL:  "https://api.hpc.tools",
		HXLProxyURL: "https://proxy.hxlstandard.org/data/download/",
		Metadata:    config.DefaultDataset(),
	})
	require.NoError(t, err)
	return b.WithClock(func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) })
}

func TestShortCountryName(t *testing.T) {
	assert.Equal(t, "Korea", ShortCountryName("Korea, Republic of"))
	assert.Equal(t, "Venezuela", ShortCountryName("Venezuela, Bolivarian Republic of"))
	assert.Equal(t, "Mali", ShortCountryName("Mali"))
}

func TestBuild_SinglePlan(t *testing.T) {
	plans := []domain.Plan{{Code: "HAB24", Name: "Abc 2024", Start: "2024-01-01", Type: "Humanitarian response plan", ISO3: "ABC"}}

	ds, err := newBuilder(t).Build("ABC", plans, "Abc, Republic of")

	require.NoError(t, err)
	assert.Equal(t, "hrp-projects-abc", ds.Name)
	assert.Equal(t, "Humanitarian Response Plan projects for Abc", ds.Title)
	assert.Contains(t, ds.Notes, "annual Abc Humanitarian Response Plans")
	assert.Contains(t, ds.Caveats, "might not apply to Abc.")
	assert.Equal(t, "[2016-01-01T00:00:00 TO 2026-10-19T23:59:59]", ds.DatasetDate)
	assert.Equal(t, "0", ds.DataUpdateFrequency)
	assert.Equal(t, "ocha-fts", ds.OwnerOrg)
	assert.Equal(t, "cc-by-igo", ds.LicenseID)
	assert.False(t, ds.Private)
	assert.True(t, ds.HasQuickcharts)
	assert.Equal(t, []domain.Group{{Name: "abc"}}, ds.Groups)
	require.Len(t, ds.Tags, 3)
	assert.Equal(t, "b891512e-9516-4bf5-962a-7a289772a2a1", ds.Tags[0].VocabularyID)

	require.Len(t, ds.Resources, 2)
	csv, js := ds.Resources[0], ds.Resources[1]

	assert.Equal(t, "hab24-abc-projects.csv", csv.Name)
	assert.Equal(t, "CSV", csv.Format)
	assert.Equal(t, "text/csv", csv.MimeType)
	assert.Equal(t, "Projects for Abc 2024 (Humanitarian response plan): simplified CSV data, with HXL hashtags.", csv.Description)

	assert.Equal(t, "hab24-abc-projects.json", js.Name)
	assert.Equal(t, "JSON", js.Format)
	assert.Equal(t, "api", js.URLType)
	assert.Equal(t,
		"https://api.hpc.tools/v2/public/project/search?planCodes=HAB24&excludeFields=location,governingEntities,targets&limit=100000",
		js.URL,
	)

	assert.True(t, strings.HasPrefix(csv.URL, "https://proxy.hxlstandard.org/data/download/hab24-abc-projects.csv?url="))
	parsed, err := url.Parse(csv.URL)
	require.NoError(t, err)
	assert.Equal(t, js.URL, parsed.Query().Get("url"))
	assert.Equal(t, "#activity+name", parsed.Query().Get("tagger-01-tag"))
}

func TestBuild_ResourcePairingNewestFirst(t *testing.T) {
	plans := []domain.Plan{
		{Code: "HABC22", Name: "Abc 2022", Start: "2022-01-01"},
		{Code: "HABC24", Name: "Abc 2024", Start: "2024-01-01"},
		{Code: "FABC23", Name: "Abc flash", Start: "2023-03-01"},
	}

	ds, err := newBuilder(t).Build("abc", plans, "Abc")

	require.NoError(t, err)
	require.Len(t, ds.Resources, 2*len(plans))

	wantCodes := []string{"habc24", "fabc23", "habc22"}
	for i, code := range wantCodes {
		assert.Equal(t, code+"-abc-projects.csv", ds.Resources[2*i].Name)
		assert.Equal(t, "CSV", ds.Resources[2*i].Format)
		assert.Equal(t, code+"-abc-projects.json", ds.Resources[2*i+1].Name)
		assert.Equal(t, "JSON", ds.Resources[2*i+1].Format)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	plans := []domain.Plan{
		{Code: "A", Start: "2024-01-01"},
		{Code: "B", Start: "2024-01-01"},
	}
	b := newBuilder(t)

	first, err := b.Build("ABC", plans, "Abc")
	require.NoError(t, err)
	second, err := b.Build("ABC", []domain.Plan{plans[1], plans[0]}, "Abc")
	require.NoError(t, err)

	assert.Equal(t, first.ResourceURLs(), second.ResourceURLs())
	assert.Equal(t, first.Resources, second.Resources)
}

func TestBuild_PresetOverridesMetadata(t *testing.T) {
	meta := config.DefaultDataset()
	meta.Subnational = "1"
	meta.Tags = []string{"hxl"}
	meta.TitleTemplate = "HRP projects: {{.Country}}"

	b, err := NewBuilder(Config{CutoffYear: 2020, HPCBaseURL: "https://api.hpc.tools", HXLProxyURL: "https://proxy", Metadata: meta})
	require.NoError(t, err)

	ds, err := b.Build("ABC", nil, "Abc")
	require.NoError(t, err)

	assert.Equal(t, "1", ds.Subnational)
	assert.Equal(t, "HRP projects: Abc", ds.Title)
	assert.Equal(t, []domain.Tag{{Name: "hxl", VocabularyID: meta.TagVocabularyID}}, ds.Tags)
	assert.Empty(t, ds.Resources)
}

func TestNewBuilder_BadTemplate(t *testing.T) {
	meta := config.DefaultDataset()
	meta.NotesTemplate = "{{.Country"

	_, err := NewBuilder(Config{Metadata: meta})

	assert.ErrorContains(t, err, "notes template")
}

func TestHXLProxyURL_EncodesDirectives(t *testing.T) {
	got := HXLProxyURL("https://proxy.example.org/data/download", "x.csv", "https://api.example.org/s?a=1,2")

	assert.True(t, strings.HasPrefix(got, "https://proxy.example.org/data/download/x.csv?url=https%3A%2F%2Fapi.example.org%2Fs%3Fa%3D1%2C2&tagger-match-all=on&"))
	assert.Contains(t, got, "add-header02=Response+plan+code")
	assert.Contains(t, got, "add-value02=%7B%7B%23response%2Bplan%2Bname%7D%7D")
	assert.Contains(t, got, "&filter05=clean&clean-date-tags05=%23date&_gl=")
}

func TestHXLProxyURL_MatchesPublishedURL(t *testing.T) {
	jsonURL := "https://api.hpc.tools/v2/public/project/search?planCodes=HAB24&excludeFields=location,governingEntities,targets&limit=100000"

	got := HXLProxyURL("https://proxy.hxlstandard.org/data/download/", "hab24-abc-projects.csv", jsonURL)

	want := "https://proxy.hxlstandard.org/data/download/hab24-abc-projects.csv" +
		"?url=https%3A%2F%2Fapi.hpc.tools%2Fv2%2Fpublic%2Fproject%2Fsearch%3FplanCodes%3DHAB24%26excludeFields%3Dlocation%2CgoverningEntities%2Ctargets%26limit%3D100000" +
		"&tagger-match-all=on&tagger-01-header=name&tagger-01-tag=%23activity%2Bname&tagger-02-header=versioncode&tagger-02-tag=%23activity%2Bcode%2Bv_hpc" +
		"&tagger-03-header=currentrequestedfunds&tagger-03-tag=%23value%2Brequested%2Busd&tagger-05-header=objective&tagger-05-tag=%23description%2Bobjective" +
		"&tagger-06-header=partners&tagger-06-tag=%23org%2Bimpl%2Bname%2Blist&tagger-07-header=startdate&tagger-07-tag=%23date%2Bstart" +
		"&tagger-08-header=enddate&tagger-08-tag=%23date%2Bend&tagger-09-header=governingEntities&tagger-09-tag=%23sector%2Bcluster%2Blocal%2Bname" +
		"&tagger-17-header=globalclusters&tagger-17-tag=%23sector%2Bcluster%2Bglobal%2Bname&tagger-18-header=organizations&tagger-18-tag=%23org%2Bprog%2Bname" +
		"&tagger-19-header=plans&tagger-19-tag=%23response%2Bplan%2Bname&header-row=1&filter01=cut&cut-skip-untagged01=on" +
		"&filter02=add&add-tag02=%23response%2Bplan%2Bcode&add-value02=%7B%7B%23response%2Bplan%2Bname%7D%7D&add-header02=Response+plan+code" +
		"&filter03=jsonpath&jsonpath-path03=$%5B0%5D.name&jsonpath-patterns03=%23*%2Bname" +
		"&filter04=jsonpath&jsonpath-path04=$%5B0%5D.code&jsonpath-patterns04=%23*%2Bcode" +
		"&filter05=clean&clean-date-tags05=%23date" +
		"&_gl=1*1pie5e1*_ga*MTI1MTE3OTIzNy4xNjk1OTA2MTk3*_ga_E60ZNX2F68*MTY5NjUxMTk5Mi43LjEuMTY5NjUxMjAwMC41Mi4wLjA."
	assert.Equal(t, want, got)
}
