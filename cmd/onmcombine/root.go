package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"onmcombine/internal/config"
)

// flags mirrors the CLI surface. Only flags the user actually set override
// the file/env configuration.
type flags struct {
	configPath string
	validate   bool

	dataDir, primary, weights, adhocSuffix, outDir string

	sqliteDSN, postgresDSN, table string

	metricsBackend, pushgatewayURL, datadogAddr string

	logMode string
	verbose bool
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "onmcombine",
		Short: "Merge the ONM full export, weights and ad-hoc extracts into one CSV",
		Long: `onmcombine pairs every row of the full survey export with the row at the
same position in the weights file, then appends every *onm-adhoc.csv extract
(in file name order) after applying the test-type and symptom consistency
fixes. Columns are the union of all headers, lowercased; missing cells are NA.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}

			issues := config.Validate(cfg)
			for _, iss := range issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid")
			}
			if f.validate {
				fmt.Fprintln(cmd.ErrOrStderr(), "configuration is valid")
				return nil
			}

			path, err := run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, path)
			return nil
		},
	}
	cmd.SetOut(stdout)

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "config file (.json, .yaml or .yml)")
	fl.BoolVar(&f.validate, "validate", false, "validate the configuration and exit")

	fl.StringVar(&f.dataDir, "data-dir", "", "directory holding the input files")
	fl.StringVar(&f.primary, "primary", "", "primary data file name inside --data-dir")
	fl.StringVar(&f.weights, "weights", "", "weights file name inside --data-dir")
	fl.StringVar(&f.adhocSuffix, "adhoc-suffix", "", "file name suffix selecting ad-hoc extracts")
	fl.StringVar(&f.outDir, "out-dir", "", "directory for the merged CSV")

	fl.StringVar(&f.sqliteDSN, "sqlite-dsn", "", "also load the output into this SQLite database")
	fl.StringVar(&f.postgresDSN, "postgres-dsn", "", "also load the output into this Postgres database")
	fl.StringVar(&f.table, "table", "", "table name for the database mirrors")

	fl.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway, datadog")
	fl.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL")
	fl.StringVar(&f.datadogAddr, "datadog-addr", "", "DogStatsD address")

	fl.StringVar(&f.logMode, "log-mode", "", "log format: dev or prod")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logs (progress lines)")

	return cmd
}

// resolveConfig layers defaults, the config file, the environment and the
// flags, in that order.
func resolveConfig(cmd *cobra.Command, f flags) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)

	changed := cmd.Flags().Changed
	override := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}
	override("data-dir", &cfg.Input.DataDir, f.dataDir)
	override("primary", &cfg.Input.PrimaryFile, f.primary)
	override("weights", &cfg.Input.WeightsFile, f.weights)
	override("adhoc-suffix", &cfg.Input.AdhocSuffix, f.adhocSuffix)
	override("out-dir", &cfg.Output.Dir, f.outDir)
	override("sqlite-dsn", &cfg.Mirror.SQLite.DSN, f.sqliteDSN)
	override("postgres-dsn", &cfg.Mirror.Postgres.DSN, f.postgresDSN)
	override("table", &cfg.Mirror.SQLite.Table, f.table)
	override("table", &cfg.Mirror.Postgres.Table, f.table)
	override("metrics-backend", &cfg.Metrics.Backend, f.metricsBackend)
	override("pushgateway-url", &cfg.Metrics.PushgatewayURL, f.pushgatewayURL)
	override("datadog-addr", &cfg.Metrics.DatadogAddr, f.datadogAddr)
	override("log-mode", &cfg.Log.Mode, f.logMode)
	if changed("verbose") {
		cfg.Log.Verbose = f.verbose
	}
	return cfg, nil
}
