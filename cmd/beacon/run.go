// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/beaconkit/beacon/pkg/config"
	"github.com/beaconkit/beacon/pkg/pipeline"
	"github.com/beaconkit/beacon/pkg/telemetry"
)

// runRun starts telemetry and, when enabled, the log pipeline, then
// blocks until the context is cancelled by a signal.
func runRun(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	ensureNoArgs(args)

	if err := cfg.Validate(); err != nil {
		NewConfigError(err, configPath(global.ConfigArgs)).PrintError(global.JSON)
		os.Exit(1)
	}

	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	reloadable := config.NewReloadableConfig(cfg)
	if path := configPath(global.ConfigArgs); path != "" {
		watcher, err := watchConfig(ctx, path, logger, reloadable)
		if err != nil {
			logger.Warn("config watch unavailable", "path", path, "error", err)
		} else {
			logger.Info("watching config", "path", path)
			defer watcher.Stop()
		}
	}

	shutdown, err := telemetry.Init(ctx, global.Service, version, cfg)
	if err != nil {
		PrintSimpleError(err, global.JSON)
		os.Exit(1)
	}

	logger.Info("beacon started",
		"service", global.Service,
		"metrics_enabled", cfg.Metrics.Enabled,
		"tracing_enabled", cfg.Tracing.Enabled,
		"pipeline_enabled", cfg.Pipeline.Enabled)

	var pipe *pipeline.Pipeline
	if cfg.Pipeline.Enabled {
		metrics, merr := telemetry.NewPipelineMetrics(ctx)
		if merr != nil {
			logger.Warn("pipeline metrics unavailable", "error", merr)
		}
		pipe, err = pipeline.New(cfg.Pipeline,
			pipeline.WithMetrics(metrics),
			pipeline.WithLogger(logger))
		if err != nil {
			PrintSimpleError(err, global.JSON)
			os.Exit(1)
		}
		if err := pipe.Run(ctx); err != nil {
			PrintSimpleError(err, global.JSON)
			os.Exit(1)
		}
	}

	<-ctx.Done()
	logger.Info("beacon shutting down")

	if pipe != nil {
		<-pipe.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown failed", "error", err)
		os.Exit(1)
	}
}

// watchConfig follows the config file and applies validated reloads to
// the shared snapshot. Log settings take effect immediately; exporter
// and pipeline changes need a restart and are only recorded.
func watchConfig(ctx context.Context, path string, logger *slog.Logger, reloadable *config.ReloadableConfig) (*config.Watcher, error) {
	watcher, _, err := config.WatchConfig(ctx, path, config.WithWatchLogger(logger))
	if err != nil {
		return nil, err
	}

	watcher.OnChange(func(next *config.Config) {
		prev := reloadable.Log()
		reloadable.Update(next)
		if next.Log != prev {
			slog.SetDefault(telemetry.ConfigureSlog(os.Stderr, next.Log.Level, next.Log.Format))
			logger.Info("log settings reloaded", "level", next.Log.Level, "format", next.Log.Format)
		}
	})
	return watcher, nil
}
