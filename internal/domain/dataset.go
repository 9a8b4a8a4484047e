package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrNoResources = errors.New("dataset has no resources")
)

const datasetIDPrefix = "hrp-projects-"

// DatasetID is the portal name of the dataset for a country.
func DatasetID(iso3 string) string {
	return datasetIDPrefix + strings.ToLower(strings.TrimSpace(iso3))
}

// Dataset is a portal package, either built locally or read from the portal.
type Dataset struct {
	ID                  string        `json:"id,omitempty"`
	Name                string        `json:"name"`
	Title               string        `json:"title"`
	Notes               string        `json:"notes"`
	OwnerOrg            string        `json:"owner_org"`
	Maintainer          string        `json:"maintainer"`
	LicenseID           string        `json:"license_id"`
	LicenseTitle        string        `json:"license_title"`
	Private             bool          `json:"private"`
	DatasetDate         string        `json:"dataset_date"`
	DataUpdateFrequency string        `json:"data_update_frequency"`
	Caveats             string        `json:"caveats"`
	Subnational         string        `json:"subnational"`
	Methodology         string        `json:"methodology"`
	DatasetSource       string        `json:"dataset_source"`
	DatasetPreview      string        `json:"dataset_preview"`
	HasQuickcharts      bool          `json:"has_quickcharts"`
	Tags                []Tag         `json:"tags"`
	Groups              []Group       `json:"groups"`
	Resources           []Resource    `json:"resources"`
	Organization        *Organization `json:"organization,omitempty"`

	// Extras holds portal fields not modelled above so updates round-trip them.
	Extras map[string]json.RawMessage `json:"-"`
}

type Tag struct {
	Name         string `json:"name"`
	VocabularyID string `json:"vocabulary_id,omitempty"`
}

type Group struct {
	Name string `json:"name"`
}

type Organization struct {
	Name string `json:"name"`
}

type Resource struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Format       string `json:"format"`
	MimeType     string `json:"mimetype"`
	ResourceType string `json:"resource_type"`
	URL          string `json:"url"`
	URLType      string `json:"url_type"`
}

// ResourceView is a portal-side preview attached to a resource.
type ResourceView struct {
	ID               string `json:"id,omitempty"`
	ResourceID       string `json:"resource_id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	ViewType         string `json:"view_type"`
	HXLPreviewConfig string `json:"hxl_preview_config"`
}

// ResourceURLs returns the set of resource URLs of the dataset.
func (d *Dataset) ResourceURLs() map[string]struct{} {
	urls := make(map[string]struct{}, len(d.Resources))
	for _, r := range d.Resources {
		urls[r.URL] = struct{}{}
	}
	return urls
}

// OrganizationName prefers the expanded organization over owner_org.
func (d *Dataset) OrganizationName() string {
	if d.Organization != nil && d.Organization.Name != "" {
		return d.Organization.Name
	}
	return d.OwnerOrg
}

type datasetAlias Dataset

func (d Dataset) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(datasetAlias(d))
	if err != nil {
		return nil, err
	}
	if len(d.Extras) == 0 {
		return known, nil
	}

	merged := make(map[string]json.RawMessage, len(d.Extras)+24)
	for k, v := range d.Extras {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func (d *Dataset) UnmarshalJSON(data []byte) error {
	var alias datasetAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return fmt.Errorf("decode dataset: %w", err)
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return fmt.Errorf("decode dataset fields: %w", err)
	}
	for _, k := range knownDatasetFields {
		delete(all, k)
	}

	*d = Dataset(alias)
	if len(all) > 0 {
		d.Extras = all
	}
	return nil
}

var knownDatasetFields = []string{
	"id", "name", "title", "notes", "owner_org", "maintainer", "license_id",
	"license_title", "private", "dataset_date", "data_update_frequency",
	"caveats", "subnational", "methodology", "dataset_source",
	"dataset_preview", "has_quickcharts", "tags", "groups", "resources",
	"organization",
}

// PackageQuery selects portal packages; Query is free text, FilterQuery a
// Solr filter such as "organization:ocha-fts".
type PackageQuery struct {
	Query       string
	FilterQuery string
}
