// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/hdmerge/internal/config"
)

func foundAll(bin string) (string, error) { return "/usr/bin/" + bin, nil }

func TestStartupChecks(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	require.NoError(t, os.WriteFile(cert, []byte("x"), 0600))

	tests := []struct {
		name    string
		mutate  func(*config.AppConfig)
		look    func(string) (string, error)
		wantErr string
	}{
		{name: "defaults", mutate: func(*config.AppConfig) {}, look: foundAll},
		{
			name:    "bad listen addr",
			mutate:  func(c *config.AppConfig) { c.ListenAddr = "8080" },
			look:    foundAll,
			wantErr: "invalid listen address",
		},
		{
			name:    "bad port",
			mutate:  func(c *config.AppConfig) { c.ListenAddr = ":99999" },
			look:    foundAll,
			wantErr: "invalid listen port",
		},
		{
			name:    "tls half configured",
			mutate:  func(c *config.AppConfig) { c.TLSCert = cert },
			look:    foundAll,
			wantErr: "BOTH Cert and Key",
		},
		{
			name: "tls key missing",
			mutate: func(c *config.AppConfig) {
				c.TLSCert = cert
				c.TLSKey = filepath.Join(dir, "missing.pem")
			},
			look:    foundAll,
			wantErr: "TLS Key error",
		},
		{
			name:   "ffmpeg missing",
			mutate: func(*config.AppConfig) {},
			look: func(bin string) (string, error) {
				if bin == "ffmpeg" {
					return "", exec.ErrNotFound
				}
				return foundAll(bin)
			},
			wantErr: "ffmpeg binary not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			tt.mutate(&cfg)
			err := performStartupChecks(cfg, tt.look)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
