// Package config defines the collector's configuration model.
//
// A config file is JSON or YAML (selected by extension) and mirrors the
// Config struct below. Environment variables override a few deployment
// specific values so that one file can serve several environments:
//
//	CROSSREF_DSN     storage.dsn
//	MAILTO           fetch.mailto
//	METRICS_BACKEND  metrics.backend
//	PUSHGATEWAY_URL  metrics.pushgateway_url
//
// Example (YAML):
//
//	job: crossref
//	storage:
//	  kind: clickhouse
//	  dsn: clickhouse://localhost:9000/default
//	  database: crossref
//	fetch:
//	  mailto: me@example.org
//	  workers: 4
//	  rate_per_second: 5
//	  timeout: 30s
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration object.
type Config struct {
	// Job labels metrics and log lines for this run.
	Job        string     `json:"job" yaml:"job"`
	Storage    Storage    `json:"storage" yaml:"storage"`
	Quarantine Quarantine `json:"quarantine" yaml:"quarantine"`
	Fetch      Fetch      `json:"fetch" yaml:"fetch"`
	Runtime    Runtime    `json:"runtime" yaml:"runtime"`
	Metrics    Metrics    `json:"metrics" yaml:"metrics"`
}

// Storage selects the store backend.
type Storage struct {
	// Kind is one of clickhouse, duckdb, sqlite, postgres, mssql.
	Kind string `json:"kind" yaml:"kind"`
	// DSN is passed to the backend driver.
	DSN string `json:"dsn" yaml:"dsn"`
	// Database is the namespace tables are created in.
	Database string `json:"database" yaml:"database"`
}

// Quarantine configures where rejected data is written.
type Quarantine struct {
	Dir string `json:"dir" yaml:"dir"`
}

// Fetch configures the Crossref API client.
type Fetch struct {
	BaseURL       string   `json:"base_url" yaml:"base_url"`
	Mailto        string   `json:"mailto" yaml:"mailto"`
	Workers       int      `json:"workers" yaml:"workers"`
	RatePerSecond float64  `json:"rate_per_second" yaml:"rate_per_second"`
	Timeout       Duration `json:"timeout" yaml:"timeout"`
	MaxRetries    int      `json:"max_retries" yaml:"max_retries"`
}

// Runtime controls batching.
type Runtime struct {
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// Metrics selects the metrics backend: "", "none", "pushgateway" or "datadog".
type Metrics struct {
	Backend        string `json:"backend" yaml:"backend"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" yaml:"datadog_addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Job: "crossref",
		Storage: Storage{
			Kind:     "clickhouse",
			DSN:      "clickhouse://localhost:9000/default",
			Database: "crossref",
		},
		Quarantine: Quarantine{Dir: "logs"},
		Fetch: Fetch{
			BaseURL:       "https://api.crossref.org",
			Workers:       4,
			RatePerSecond: 5,
			Timeout:       Duration(30 * time.Second),
			MaxRetries:    3,
		},
		Runtime: Runtime{BatchSize: 1000},
	}
}

// Load reads path over Default() and applies environment overrides. An
// empty path yields the defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Decode(b, filepath.Ext(path), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// Decode unmarshals b into cfg. ext selects the format: .yaml/.yml for YAML,
// anything else for JSON. Unknown keys are rejected.
func Decode(b []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("decode yaml: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from the environment. getenv is os.Getenv in
// production.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("CROSSREF_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := getenv("MAILTO"); v != "" {
		c.Fetch.Mailto = v
	}
	if v := getenv("METRICS_BACKEND"); v != "" {
		c.Metrics.Backend = v
	}
	if v := getenv("PUSHGATEWAY_URL"); v != "" {
		c.Metrics.PushgatewayURL = v
	}
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	return d.parse(s)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.parse(n.Value)
}

func (d *Duration) parse(s string) error {
	if strings.TrimSpace(s) == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
