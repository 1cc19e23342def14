package config

import (
	"fmt"
	"net/url"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding. Path is a dotted path into the
// config, e.g. "storage.kind".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate lints cfg without mutating it.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics will be labeled with the default job",
		})
	}
	issues = append(issues, validateStorage(c.Storage)...)
	issues = append(issues, validateQuarantine(c.Quarantine)...)
	issues = append(issues, validateFetch(c.Fetch)...)
	issues = append(issues, validateRuntime(c.Runtime)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	known := map[string]struct{}{
		"clickhouse": {},
		"duckdb":     {},
		"sqlite":     {},
		"postgres":   {},
		"mssql":      {},
	}
	kind := strings.ToLower(strings.TrimSpace(s.Kind))
	if kind == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
	} else if _, ok := known[kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q", s.Kind),
		})
	}

	// DuckDB accepts an empty DSN (in-memory), nothing else does.
	if strings.TrimSpace(s.DSN) == "" && kind != "duckdb" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn must not be empty",
		})
	}

	if kind == "clickhouse" && s.DSN != "" && !strings.HasPrefix(s.DSN, "clickhouse://") {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "clickhouse DSN must be a clickhouse:// URL",
		})
	}
	if kind == "mssql" && s.DSN != "" && !strings.HasPrefix(s.DSN, "sqlserver://") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.dsn",
			Message:  "mssql DSN is usually a sqlserver:// URL",
		})
	}
	if kind == "sqlite" && s.Database != "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.database",
			Message:  "sqlite has no namespaces; storage.database is ignored",
		})
	}
	return issues
}

func validateQuarantine(q Quarantine) []Issue {
	if strings.TrimSpace(q.Dir) == "" {
		return []Issue{{
			Severity: SeverityError,
			Path:     "quarantine.dir",
			Message:  "quarantine.dir must not be empty; failed batches are written there",
		}}
	}
	return nil
}

func validateFetch(f Fetch) []Issue {
	var issues []Issue

	if u, err := url.Parse(f.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "fetch.base_url",
			Message:  fmt.Sprintf("fetch.base_url %q is not an absolute URL", f.BaseURL),
		})
	}
	if strings.TrimSpace(f.Mailto) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "fetch.mailto",
			Message:  "no mailto; requests will not use the Crossref polite pool",
		})
	} else if !strings.Contains(f.Mailto, "@") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "fetch.mailto",
			Message:  fmt.Sprintf("mailto %q does not look like an email address", f.Mailto),
		})
	}
	if f.Workers <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "fetch.workers",
			Message:  "fetch.workers must be > 0",
		})
	}
	if f.RatePerSecond < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "fetch.rate_per_second",
			Message:  "fetch.rate_per_second must be >= 0 (0 disables limiting)",
		})
	} else if f.RatePerSecond == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "fetch.rate_per_second",
			Message:  "rate limiting disabled",
		})
	}
	if f.Timeout < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "fetch.timeout",
			Message:  "fetch.timeout must not be negative",
		})
	}
	if f.MaxRetries < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "fetch.max_retries",
			Message:  "fetch.max_retries must be >= 0",
		})
	}
	return issues
}

func validateRuntime(r Runtime) []Issue {
	if r.BatchSize <= 0 {
		return []Issue{{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "runtime.batch_size must be > 0",
		}}
	}
	return nil
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch strings.ToLower(m.Backend) {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires datadog_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics disabled", m.Backend),
		})
	}
	return issues
}
