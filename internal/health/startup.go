// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ManuGH/hdmerge/internal/config"
	"github.com/ManuGH/hdmerge/internal/log"
)

// PerformStartupChecks validates the environment before the server starts:
// the listen address, the TLS pair and the external binaries.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	return performStartupChecks(cfg, exec.LookPath)
}

func performStartupChecks(cfg config.AppConfig, lookPath func(string) (string, error)) error {
	logger := log.WithComponent("startup-check")

	if err := checkListenAddr(logger, cfg.ListenAddr); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if cfg.TLSCert != "" || cfg.TLSKey != "" {
		if cfg.TLSCert == "" || cfg.TLSKey == "" {
			return fmt.Errorf("TLS configuration requires BOTH Cert and Key to be set")
		}
		if err := checkFileReadable(cfg.TLSCert); err != nil {
			return fmt.Errorf("TLS Cert error: %w", err)
		}
		if err := checkFileReadable(cfg.TLSKey); err != nil {
			return fmt.Errorf("TLS Key error: %w", err)
		}
		logger.Info().Msg("TLS configuration is valid")
	}

	for _, bin := range []struct{ name, path string }{
		{"ffmpeg", cfg.FFmpeg.Bin},
		{"yt-dlp", cfg.Extractor.Bin},
	} {
		resolved, err := lookPath(bin.path)
		if err != nil {
			return fmt.Errorf("%s binary not found (%s): %w", bin.name, bin.path, err)
		}
		logger.Info().Str(bin.name, resolved).Msg("external binary available")
	}

	if cfg.Cache.Backend == config.CacheBackendMemory && cfg.Cache.TTL > 0 {
		logger.Info().Msg("catalog cache is in-memory; entries are lost on restart")
	}
	return nil
}

func checkListenAddr(logger zerolog.Logger, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	logger.Info().Str("addr", addr).Msg("listen address is valid")
	return nil
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return err
	}
	return f.Close()
}
