// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/hdmerge/internal/api"
	"github.com/ManuGH/hdmerge/internal/config"
	"github.com/ManuGH/hdmerge/internal/daemon"
	"github.com/ManuGH/hdmerge/internal/health"
	hmlog "github.com/ManuGH/hdmerge/internal/log"
	"github.com/ManuGH/hdmerge/internal/telemetry"
	"github.com/ManuGH/hdmerge/internal/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		healthcheckMain(os.Args[2:])
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until the config is loaded.
	hmlog.Configure(hmlog.Config{
		Level:   "info",
		Service: serviceName,
		Version: version.Version,
	})
	logger := hmlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.EnvPrefix + "CONFIG"))
	}

	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(hmlog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	hmlog.Configure(hmlog.Config{
		Level:   cfg.LogLevel,
		Service: serviceName,
		Version: cfg.Version,
	})
	logger = hmlog.WithComponent("daemon")

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str(hmlog.FieldEvent, "config.loaded").
		Str("source", source).
		Str("path", path).
		Msg("configuration loaded")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str(hmlog.FieldEvent, "startup.check_failed").
			Msg("startup checks failed, verify configuration and installed binaries")
	}

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str(hmlog.FieldEvent, "daemon.failed").
			Msg("daemon failed")
	}
	logger.Info().Msg("server exiting")
}

func run(ctx context.Context, cfg config.AppConfig) error {
	logger := hmlog.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	p, err := buildPipeline(ctx, cfg)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return err
	}

	srv := api.New(apiConfig(cfg), p.adapter, newHealthManager(cfg, p))

	mgr, err := daemon.NewManager(daemon.ServerConfigFrom(cfg), daemon.Deps{
		Logger:  logger,
		Handler: srv.Handler(),
	})
	if err != nil {
		_ = p.cache.Close()
		_ = tp.Shutdown(context.Background())
		return err
	}
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("cache", func(context.Context) error { return p.cache.Close() })

	logger.Info().
		Str(hmlog.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("addr", cfg.ListenAddr).
		Str("ffmpeg", cfg.FFmpeg.Bin).
		Str("extractor", cfg.Extractor.Bin).
		Int("max_sessions", cfg.FFmpeg.MaxSessions).
		Str("cache", cfg.Cache.Backend).
		Bool("tracing", cfg.Telemetry.Enabled).
		Msg("starting hdmerge")

	app := daemon.NewApp(logger, mgr)
	app.Go("cache-stats", cacheStatsTask(p.cache))
	return app.Run(ctx)
}
