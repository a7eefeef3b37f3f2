package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block the run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into the
// config (e.g. "mirror.sqlite.table").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is a SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks of c. It does not touch the filesystem;
// missing input files are reported by the run itself.
func Validate(c Config) []Issue {
	var issues []Issue
	errf := func(path, format string, a ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, a...)})
	}
	warnf := func(path, format string, a ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, a...)})
	}
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	if blank(c.Job) {
		errf("job", "job must not be empty; it labels metrics for the run")
	}

	if blank(c.Input.DataDir) {
		errf("input.data_dir", "data_dir must not be empty")
	}
	if blank(c.Input.PrimaryFile) {
		errf("input.primary_file", "primary_file must not be empty")
	}
	if blank(c.Input.WeightsFile) {
		errf("input.weights_file", "weights_file must not be empty")
	}
	if blank(c.Input.AdhocSuffix) {
		errf("input.adhoc_suffix", "adhoc_suffix must not be empty; it would match every file in data_dir")
	} else {
		for _, f := range []string{c.Input.PrimaryFile, c.Input.WeightsFile} {
			if strings.HasSuffix(f, c.Input.AdhocSuffix) {
				errf("input.adhoc_suffix", "adhoc_suffix %q also matches %q", c.Input.AdhocSuffix, f)
			}
		}
	}

	if blank(c.Output.Suffix) {
		errf("output.suffix", "suffix must not be empty")
	}
	if blank(c.Output.TimestampLayout) {
		errf("output.timestamp_layout", "timestamp_layout must not be empty")
	}

	if blank(c.Merge.WeightColumn) {
		errf("merge.weight_column", "weight_column must not be empty")
	} else if c.Merge.WeightColumn != strings.ToLower(c.Merge.WeightColumn) {
		errf("merge.weight_column", "weight_column %q must be lowercase; headers are lowercased on read", c.Merge.WeightColumn)
	}
	for i, e := range c.Merge.Excluded {
		if e == c.Merge.WeightColumn {
			errf(fmt.Sprintf("merge.excluded[%d]", i), "the weight column cannot be excluded")
		}
	}
	if c.Merge.ProgressEvery < 0 {
		errf("merge.progress_every", "progress_every must be >= 0")
	}

	issues = append(issues, validateDB("mirror.sqlite", c.Mirror.SQLite)...)
	issues = append(issues, validateDB("mirror.postgres", c.Mirror.Postgres)...)

	switch strings.ToLower(c.Metrics.Backend) {
	case "", "none":
	case "pushgateway":
		if blank(c.Metrics.PushgatewayURL) {
			errf("metrics.pushgateway_url", "pushgateway_url is required for the pushgateway backend")
		}
	case "datadog":
		if blank(c.Metrics.DatadogAddr) {
			errf("metrics.datadog_addr", "datadog_addr is required for the datadog backend")
		}
	default:
		warnf("metrics.backend", "unknown backend %q; metrics will be disabled", c.Metrics.Backend)
	}

	switch strings.ToLower(c.Log.Mode) {
	case "", "dev", "development", "prod", "production":
	default:
		warnf("log.mode", "unknown mode %q; using dev", c.Log.Mode)
	}

	return issues
}

func validateDB(path string, d DBConfig) []Issue {
	if !d.Enabled() {
		return nil
	}
	var issues []Issue
	if strings.TrimSpace(d.Table) == "" {
		issues = append(issues, Issue{SeverityError, path + ".table", "table is required when dsn is set"})
	}
	if d.BatchSize < 0 {
		issues = append(issues, Issue{SeverityError, path + ".batch_size", "batch_size must be >= 0"})
	}
	return issues
}
