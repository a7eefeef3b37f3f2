// Package config defines the configuration model of a merge run.
//
// A run works with no configuration at all: Default returns the layout the
// survey team uses (a ../data directory holding the dated full export, its
// weights and the ad-hoc extracts). A JSON or YAML file can override any part
// of it, then ONM_* environment variables, then CLI flags.
//
// Example (JSON, trimmed):
//
//	{
//	  "job":    "onm_combine",
//	  "input":  { "data_dir": "../data", "primary_file": "2022-05-22_full-data.csv" },
//	  "output": { "dir": ".", "suffix": "onm-combined.csv" },
//	  "mirror": { "sqlite": { "dsn": "onm.db", "table": "onm_combined" } }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level object decoded from a config file.
type Config struct {
	// Job names the run for metrics grouping.
	Job string `json:"job" yaml:"job"`

	Input   Input   `json:"input" yaml:"input"`
	Output  Output  `json:"output" yaml:"output"`
	Merge   Merge   `json:"merge" yaml:"merge"`
	Mirror  Mirror  `json:"mirror" yaml:"mirror"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
	Log     Log     `json:"log" yaml:"log"`
}

// Input locates the source files.
type Input struct {
	DataDir     string `json:"data_dir" yaml:"data_dir"`
	PrimaryFile string `json:"primary_file" yaml:"primary_file"`
	WeightsFile string `json:"weights_file" yaml:"weights_file"`
	// AdhocSuffix selects ad-hoc extracts in DataDir by file name suffix.
	AdhocSuffix string `json:"adhoc_suffix" yaml:"adhoc_suffix"`
}

// Output controls the merged file name: <Dir>/<now formatted with
// TimestampLayout>_<Suffix>.
type Output struct {
	Dir             string `json:"dir" yaml:"dir"`
	Suffix          string `json:"suffix" yaml:"suffix"`
	TimestampLayout string `json:"timestamp_layout" yaml:"timestamp_layout"`
}

// Merge holds the schema and progress settings of the merge engine.
type Merge struct {
	WeightColumn string   `json:"weight_column" yaml:"weight_column"`
	Excluded     []string `json:"excluded" yaml:"excluded"`
	// ProgressEvery logs a debug progress line every N rows; 0 disables it.
	ProgressEvery int `json:"progress_every" yaml:"progress_every"`
}

// Mirror lists optional database copies of the merged output.
type Mirror struct {
	SQLite   DBConfig `json:"sqlite" yaml:"sqlite"`
	Postgres DBConfig `json:"postgres" yaml:"postgres"`
}

// DBConfig configures one database mirror. An empty DSN disables it.
type DBConfig struct {
	DSN       string `json:"dsn" yaml:"dsn"`
	Table     string `json:"table" yaml:"table"`
	BatchSize int    `json:"batch_size" yaml:"batch_size"`
}

// Enabled reports whether the mirror is configured.
func (d DBConfig) Enabled() bool { return strings.TrimSpace(d.DSN) != "" }

// Metrics selects the metrics backend: "none", "pushgateway" or "datadog".
type Metrics struct {
	Backend          string `json:"backend" yaml:"backend"`
	PushgatewayURL   string `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr      string `json:"datadog_addr" yaml:"datadog_addr"`
	DatadogNamespace string `json:"datadog_namespace" yaml:"datadog_namespace"`
}

// Log configures the zap logger.
type Log struct {
	Mode    string `json:"mode" yaml:"mode"` // dev | prod
	Verbose bool   `json:"verbose" yaml:"verbose"`
}

// Default returns the configuration of a plain `onmcombine` invocation.
func Default() Config {
	return Config{
		Job: "onm_combine",
		Input: Input{
			DataDir:     "../data",
			PrimaryFile: "2022-05-22_full-data.csv",
			WeightsFile: "2022-05-22_full-data_weights.csv",
			AdhocSuffix: "onm-adhoc.csv",
		},
		Output: Output{
			Dir:             ".",
			Suffix:          "onm-combined.csv",
			TimestampLayout: "2006-01-02T150405",
		},
		Merge: Merge{
			WeightColumn:  "weight_daily_national_13plus",
			Excluded:      []string{"q73", "q74"},
			ProgressEvery: 100000,
		},
		Mirror: Mirror{
			SQLite:   DBConfig{Table: "onm_combined"},
			Postgres: DBConfig{Table: "public.onm_combined", BatchSize: 5000},
		},
		Metrics: Metrics{
			Backend:        "none",
			PushgatewayURL: "http://localhost:9091",
			DatadogAddr:    "127.0.0.1:8125",
		},
		Log: Log{Mode: "dev"},
	}
}

// Load decodes path over Default. The format follows the extension: .yaml and
// .yml are YAML, anything else is JSON. Keys absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	default:
		err = json.Unmarshal(b, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from environment variables, looked up through
// lookup (os.LookupEnv in production). Unset variables leave values alone.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("ONM_JOB", &c.Job)
	set("ONM_DATA_DIR", &c.Input.DataDir)
	set("ONM_PRIMARY_FILE", &c.Input.PrimaryFile)
	set("ONM_WEIGHTS_FILE", &c.Input.WeightsFile)
	set("ONM_ADHOC_SUFFIX", &c.Input.AdhocSuffix)
	set("ONM_OUT_DIR", &c.Output.Dir)
	set("ONM_SQLITE_DSN", &c.Mirror.SQLite.DSN)
	set("ONM_POSTGRES_DSN", &c.Mirror.Postgres.DSN)
	set("ONM_LOG_MODE", &c.Log.Mode)
	set("METRICS_BACKEND", &c.Metrics.Backend)
	set("PUSHGATEWAY_URL", &c.Metrics.PushgatewayURL)
	set("DD_DOGSTATSD_URL", &c.Metrics.DatadogAddr)
}

// PrimaryPath returns the primary data file path.
func (c Config) PrimaryPath() string {
	return filepath.Join(c.Input.DataDir, c.Input.PrimaryFile)
}

// WeightsPath returns the weights file path.
func (c Config) WeightsPath() string {
	return filepath.Join(c.Input.DataDir, c.Input.WeightsFile)
}

// OutputPath returns the merged file path for a run started at now.
func (c Config) OutputPath(now time.Time) string {
	return filepath.Join(c.Output.Dir, now.Format(c.Output.TimestampLayout)+"_"+c.Output.Suffix)
}
