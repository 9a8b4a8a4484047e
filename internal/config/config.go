package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel   string                   `yaml:"log_level"`
	UserAgent  string                   `yaml:"user_agent"`
	CutoffYear int                      `yaml:"cutoff_year"`
	HPC        HPCConfig                `yaml:"hpc"`
	HXLProxy   HXLProxyConfig           `yaml:"hxl_proxy"`
	CKAN       CKANConfig               `yaml:"ckan"`
	Dataset    DatasetConfig            `yaml:"dataset"`
	Presets    map[string]DatasetConfig `yaml:"presets"`
	Charts     ChartsConfig             `yaml:"charts"`
	Sync       SyncConfig               `yaml:"sync"`
	Database   DatabaseConfig           `yaml:"database"`
	RabbitMQ   RabbitMQConfig           `yaml:"rabbitmq"`
	Metrics    MetricsConfig            `yaml:"metrics"`
}

type HPCConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	Retry             RetryConfig   `yaml:"retry"`
	CheckConcurrency  int           `yaml:"check_concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

type HXLProxyConfig struct {
	URL string `yaml:"url"`
}

type CKANConfig struct {
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"api_key"`
	Organization string        `yaml:"organization"`
	Query        string        `yaml:"query"`
	TitleQuery   string        `yaml:"title_query"`
	PageSize     int           `yaml:"page_size"`
	Timeout      time.Duration `yaml:"timeout"`
	Retry        RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// DatasetConfig is the fixed metadata stamped on every generated dataset.
// Presets override it field by field.
type DatasetConfig struct {
	OwnerOrg        string   `yaml:"owner_org"`
	Maintainer      string   `yaml:"maintainer"`
	LicenseID       string   `yaml:"license_id"`
	LicenseTitle    string   `yaml:"license_title"`
	Methodology     string   `yaml:"methodology"`
	Source          string   `yaml:"source"`
	Preview         string   `yaml:"preview"`
	UpdateFrequency string   `yaml:"update_frequency"`
	Subnational     string   `yaml:"subnational"`
	TagVocabularyID string   `yaml:"tag_vocabulary_id"`
	Tags            []string `yaml:"tags"`
	TitleTemplate   string   `yaml:"title_template"`
	NotesTemplate   string   `yaml:"notes_template"`
	CaveatsTemplate string   `yaml:"caveats_template"`
}

type ChartsConfig struct {
	ViewType string `yaml:"view_type"`
	Title    string `yaml:"title"`
	Config   string `yaml:"config"`
}

type SyncConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Enabled reports whether the run ledger should be written.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse expands ${ENV} references and decodes YAML config.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Preset returns the dataset config with the named preset applied.
func (c *Config) Preset(name string) (DatasetConfig, error) {
	if name == "" {
		return c.Dataset, nil
	}
	p, ok := c.Presets[name]
	if !ok {
		return DatasetConfig{}, fmt.Errorf("unknown preset %q", name)
	}
	return overlay(c.Dataset, p), nil
}

// ValidatePortal checks the keys needed to talk to the portal.
func (c *Config) ValidatePortal() error {
	var missing []string
	if c.CKAN.URL == "" {
		missing = append(missing, "ckan.url")
	}
	if c.CKAN.APIKey == "" {
		missing = append(missing, "ckan.api_key")
	}
	if c.CKAN.Organization == "" {
		missing = append(missing, "ckan.organization")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required config keys are not set: %v", missing)
	}
	return nil
}

// ValidateCharts checks the chart preview payload.
func (c *Config) ValidateCharts() error {
	if c.Charts.Config == "" {
		return fmt.Errorf("required config keys are not set: [charts.config]")
	}
	if !json.Valid([]byte(c.Charts.Config)) {
		return fmt.Errorf("charts.config is not valid JSON")
	}
	return nil
}

// ValidateScan checks the keys needed to scan plans.
func (c *Config) ValidateScan() error {
	if c.HPC.BaseURL == "" {
		return fmt.Errorf("required config keys are not set: [hpc.base_url]")
	}
	if c.CutoffYear < 1900 || c.CutoffYear > 9999 {
		return fmt.Errorf("cutoff_year out of range: %d", c.CutoffYear)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.UserAgent == "" {
		c.UserAgent = "hrp-projects/1.0"
	}
	if c.CutoffYear == 0 {
		c.CutoffYear = 2016
	}
	if c.HPC.BaseURL == "" {
		c.HPC.BaseURL = "https://api.hpc.tools"
	}
	if c.HPC.Timeout == 0 {
		c.HPC.Timeout = 60 * time.Second
	}
	if c.HPC.CheckConcurrency == 0 {
		c.HPC.CheckConcurrency = 4
	}
	if c.HPC.RequestsPerSecond == 0 {
		c.HPC.RequestsPerSecond = 5
	}
	c.HPC.Retry.setDefaults()
	if c.HXLProxy.URL == "" {
		c.HXLProxy.URL = "https://proxy.hxlstandard.org/data/download"
	}
	if c.CKAN.Organization == "" {
		c.CKAN.Organization = "ocha-fts"
	}
	if c.CKAN.Query == "" {
		c.CKAN.Query = "humanitarian response plan"
	}
	if c.CKAN.TitleQuery == "" {
		c.CKAN.TitleQuery = `"humanitarian response plan projects for"`
	}
	if c.CKAN.PageSize == 0 {
		c.CKAN.PageSize = 100
	}
	if c.CKAN.Timeout == 0 {
		c.CKAN.Timeout = 60 * time.Second
	}
	c.CKAN.Retry.setDefaults()
	c.Dataset = overlay(DefaultDataset(), c.Dataset)
	if c.Charts.ViewType == "" {
		c.Charts.ViewType = "hdx_hxl_preview"
	}
	if c.Charts.Title == "" {
		c.Charts.Title = "Quick Charts"
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 24 * time.Hour
	}
	if c.Sync.RunTimeout == 0 {
		c.Sync.RunTimeout = 2 * time.Hour
	}
	if c.Database.Enabled() {
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	}
	if c.RabbitMQ.Enabled() {
		if c.RabbitMQ.Exchange == "" {
			c.RabbitMQ.Exchange = "hrp_projects"
		}
		if c.RabbitMQ.RoutingKey == "" {
			c.RabbitMQ.RoutingKey = "datasets"
		}
		if c.RabbitMQ.QueueName == "" {
			c.RabbitMQ.QueueName = "hrp_dataset_events"
		}
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "hrp_projects"
	}
}

func (r *RetryConfig) setDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.InitialBackoff == 0 {
		r.InitialBackoff = 1 * time.Second
	}
	if r.MaxBackoff == 0 {
		r.MaxBackoff = 30 * time.Second
	}
}

// DefaultDataset is the HDX metadata used for HRP project datasets.
func DefaultDataset() DatasetConfig {
	return DatasetConfig{
		OwnerOrg:        "ocha-fts",
		Maintainer:      "7ae95211-71dd-484e-8538-2c625315eb56",
		LicenseID:       "cc-by-igo",
		LicenseTitle:    "Creative Commons Attribution for Intergovernmental Organisations",
		Methodology:     "Registry",
		Source:          "HPC Tools",
		Preview:         "first_resource",
		UpdateFrequency: "0",
		Subnational:     "0",
		TagVocabularyID: "b891512e-9516-4bf5-962a-7a289772a2a1",
		Tags: []string{
			"humanitarian response plan-hrp",
			"hxl",
			"who is doing what and where-3w-4w-5w",
		},
		TitleTemplate: "Humanitarian Response Plan projects for {{.Country}}",
		NotesTemplate: "Projects proposed, in progress, or completed as part of the annual {{.Country}} " +
			"Humanitarian Response Plans (HRPs) or other Humanitarian Programme Cycle plans. " +
			"The original data is available on https://hpc.tools\r\n\r\n" +
			"**Important:** some projects in {{.Country}} might be missing, and others might not apply " +
			"specifically to {{.Country}}. See _Caveats_ under the _Metadata_ tab.",
		CaveatsTemplate: "1. Includes only projects registered as part of the Humanitarian Programme Cycle.\r\n" +
			"2. Some projects are excluded for protection or personal-privacy reasons.\r\n" +
			"3. For multi-country response plans, _all_ projects are included, and some might not apply to {{.Country}}.",
	}
}

func overlay(base, over DatasetConfig) DatasetConfig {
	out := base
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&out.OwnerOrg, over.OwnerOrg)
	set(&out.Maintainer, over.Maintainer)
	set(&out.LicenseID, over.LicenseID)
	set(&out.LicenseTitle, over.LicenseTitle)
	set(&out.Methodology, over.Methodology)
	set(&out.Source, over.Source)
	set(&out.Preview, over.Preview)
	set(&out.UpdateFrequency, over.UpdateFrequency)
	set(&out.Subnational, over.Subnational)
	set(&out.TagVocabularyID, over.TagVocabularyID)
	set(&out.TitleTemplate, over.TitleTemplate)
	set(&out.NotesTemplate, over.NotesTemplate)
	set(&out.CaveatsTemplate, over.CaveatsTemplate)
	if len(over.Tags) > 0 {
		out.Tags = append([]string(nil), over.Tags...)
	}
	return out
}
