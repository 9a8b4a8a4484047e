// Package dataset builds the portal dataset record for a country's plans.
package dataset

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"hrp_projects/internal/config"
	"hrp_projects/internal/domain"
	"hrp_projects/internal/source/hpc"
)

type Config struct {
	CutoffYear  int
	HPCBaseURL  string
	HXLProxyURL string
	Metadata    config.DatasetConfig
}

type Builder struct {
	cfg     Config
	title   *template.Template
	notes   *template.Template
	caveats *template.Template
	now     func() time.Time
}

func NewBuilder(cfg Config) (*Builder, error) {
	b := &Builder{cfg: cfg, now: time.Now}

	var err error
	if b.title, err = template.New("title").Parse(cfg.Metadata.TitleTemplate); err != nil {
		return nil, fmt.Errorf("parse title template: %w", err)
	}
	if b.notes, err = template.New("notes").Parse(cfg.Metadata.NotesTemplate); err != nil {
		return nil, fmt.Errorf("parse notes template: %w", err)
	}
	if b.caveats, err = template.New("caveats").Parse(cfg.Metadata.CaveatsTemplate); err != nil {
		return nil, fmt.Errorf("parse caveats template: %w", err)
	}

	return b, nil
}

// WithClock replaces the clock used for dataset_date.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// ShortCountryName drops any qualifier after the first comma.
func ShortCountryName(name string) string {
	if i := strings.Index(name, ", "); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// DatasetDate covers the cutoff year up to the end of today.
func (b *Builder) DatasetDate() string {
	return fmt.Sprintf("[%d-01-01T00:00:00 TO %sT23:59:59]", b.cfg.CutoffYear, b.now().UTC().Format(time.DateOnly))
}

// Build returns the complete dataset for one country. Plans are listed
// newest first, each as a CSV resource followed by a JSON resource.
func (b *Builder) Build(iso3 string, plans []domain.Plan, countryName string) (domain.Dataset, error) {
	meta := b.cfg.Metadata
	lowerISO3 := strings.ToLower(iso3)
	vars := struct{ Country string }{Country: ShortCountryName(countryName)}

	title, err := render(b.title, vars)
	if err != nil {
		return domain.Dataset{}, err
	}
	notes, err := render(b.notes, vars)
	if err != nil {
		return domain.Dataset{}, err
	}
	caveats, err := render(b.caveats, vars)
	if err != nil {
		return domain.Dataset{}, err
	}

	ds := domain.Dataset{
		Name:                domain.DatasetID(iso3),
		Title:               title,
		Notes:               notes,
		OwnerOrg:            meta.OwnerOrg,
		Maintainer:          meta.Maintainer,
		LicenseID:           meta.LicenseID,
		LicenseTitle:        meta.LicenseTitle,
		Private:             false,
		DatasetDate:         b.DatasetDate(),
		DataUpdateFrequency: meta.UpdateFrequency,
		Caveats:             caveats,
		Subnational:         meta.Subnational,
		Methodology:         meta.Methodology,
		DatasetSource:       meta.Source,
		DatasetPreview:      meta.Preview,
		HasQuickcharts:      true,
		Groups:              []domain.Group{{Name: lowerISO3}},
		Resources:           make([]domain.Resource, 0, 2*len(plans)),
	}
	for _, tag := range meta.Tags {
		ds.Tags = append(ds.Tags, domain.Tag{Name: tag, VocabularyID: meta.TagVocabularyID})
	}

	for _, plan := range domain.SortNewestFirst(plans) {
		ds.Resources = append(ds.Resources, b.planResources(plan, lowerISO3)...)
	}

	return ds, nil
}

func (b *Builder) planResources(plan domain.Plan, lowerISO3 string) []domain.Resource {
	base := fmt.Sprintf("%s-%s-projects", strings.ToLower(plan.Code), lowerISO3)
	jsonURL := hpc.ProjectSearchURL(b.cfg.HPCBaseURL, plan.Code)

	return []domain.Resource{
		{
			Name:         base + ".csv",
			Description:  fmt.Sprintf("Projects for %s (%s): simplified CSV data, with HXL hashtags.", plan.Name, plan.Type),
			Format:       "CSV",
			MimeType:     "text/csv",
			ResourceType: "api",
			URL:          HXLProxyURL(b.cfg.HXLProxyURL, base+".csv", jsonURL),
			URLType:      "api",
		},
		{
			Name:         base + ".json",
			Description:  fmt.Sprintf("Projects for %s (%s): original JSON, from HPC.tools", plan.Name, plan.Type),
			Format:       "JSON",
			MimeType:     "application/json",
			ResourceType: "api",
			URL:          jsonURL,
			URLType:      "api",
		},
	}
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}
