package main

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"onmcombine/internal/config"
	"onmcombine/internal/datasource/file"
	"onmcombine/internal/logging"
	"onmcombine/internal/merge"
	"onmcombine/internal/metrics"
	"onmcombine/internal/metrics/datadog"
	"onmcombine/internal/metrics/prompush"
	"onmcombine/internal/sink"
	"onmcombine/internal/sink/postgres"
	"onmcombine/internal/sink/sqlite"
)

// Function variables used as test seams.
var (
	nowFn = time.Now

	openSQLiteFn = func(ctx context.Context, c config.DBConfig) (sink.Sink, error) {
		return sqlite.Open(ctx, sqlite.Config{DSN: c.DSN, Table: c.Table})
	}
	openPostgresFn = func(ctx context.Context, c config.DBConfig) (sink.Sink, error) {
		return postgres.Open(ctx, postgres.Config{DSN: c.DSN, Table: c.Table, BatchSize: c.BatchSize})
	}
)

// run executes one merge described by cfg and returns the output path.
func run(ctx context.Context, cfg config.Config) (string, error) {
	log, err := logging.New(cfg.Log.Mode, cfg.Log.Verbose)
	if err != nil {
		return "", err
	}
	defer func() { _ = log.Sync() }()

	flush := initMetrics(cfg, log)
	defer flush()

	adhoc, err := file.Discover(cfg.Input.DataDir, cfg.Input.AdhocSuffix)
	if err != nil {
		return "", err
	}
	log.Info("inputs",
		zap.String("primary", cfg.PrimaryPath()),
		zap.String("weights", cfg.WeightsPath()),
		zap.Strings("adhoc", adhoc),
	)

	outPath := cfg.OutputPath(nowFn())
	var csvOut *sink.CSV
	open := func(ctx context.Context) (sink.Sink, error) {
		c, err := sink.NewCSV(outPath)
		if err != nil {
			return nil, err
		}
		csvOut = c
		var tee sink.Tee

		mirrors := []struct {
			cfg  config.DBConfig
			open func(context.Context, config.DBConfig) (sink.Sink, error)
		}{
			{cfg.Mirror.SQLite, openSQLiteFn},
			{cfg.Mirror.Postgres, openPostgresFn},
		}
		for _, m := range mirrors {
			if !m.cfg.Enabled() {
				continue
			}
			s, err := m.open(ctx, m.cfg)
			if err != nil {
				_ = append(tee, c).Abort()
				return nil, err
			}
			tee = append(tee, s)
		}
		// The CSV commits last: once it is at its final path, every mirror
		// has committed too.
		return append(tee, c), nil
	}

	eng := merge.New(merge.Options{
		Job:           cfg.Job,
		WeightColumn:  cfg.Merge.WeightColumn,
		Excluded:      cfg.Merge.Excluded,
		ProgressEvery: cfg.Merge.ProgressEvery,
	}, log)

	sum, err := eng.Run(ctx, merge.Inputs{
		Primary: cfg.PrimaryPath(),
		Weights: cfg.WeightsPath(),
		Adhoc:   adhoc,
	}, open)
	if err != nil {
		log.Error("merge failed", zap.Error(err))
		return "", err
	}

	log.Info("done",
		zap.String("output", outPath),
		zap.Int("fields", len(sum.Fields)),
		zap.Int64("primary_rows", sum.PrimaryRows),
		zap.Int64("adhoc_rows", sum.AdhocRows),
		zap.Int("adhoc_files", sum.AdhocFiles),
		zap.Int64("rows", csvOut.Rows()),
		zap.String("xxh3", csvOut.DigestHex()),
	)
	return outPath, nil
}

// initMetrics installs the configured backend and returns its flush func.
// A backend that fails to initialize leaves metrics disabled.
func initMetrics(cfg config.Config, log *zap.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch name := strings.ToLower(cfg.Metrics.Backend); name {
	case "", "none":
		log.Debug("metrics disabled")
		return func() {}
	case "pushgateway":
		b, err = prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.Metrics.DatadogAddr,
			Namespace:  cfg.Metrics.DatadogNamespace,
			GlobalTags: []string{"job:" + cfg.Job},
		})
	default:
		log.Warn("unknown metrics backend; metrics disabled", zap.String("backend", name))
		return func() {}
	}
	if err != nil {
		log.Warn("metrics backend init failed; metrics disabled", zap.Error(err))
		return func() {}
	}

	metrics.SetBackend(b)
	log.Info("metrics enabled", zap.String("backend", cfg.Metrics.Backend))
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush", zap.Error(err))
		}
	}
}
