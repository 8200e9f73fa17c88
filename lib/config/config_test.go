// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "comnsense.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Upstream.Address != "127.0.0.1:8888" {
		t.Errorf("expected upstream.address=127.0.0.1:8888, got %s", cfg.Upstream.Address)
	}
	if cfg.Upstream.PollInterval != 500*time.Millisecond {
		t.Errorf("expected upstream.poll_interval=500ms, got %s", cfg.Upstream.PollInterval)
	}
	if cfg.Upstream.ReconnectInterval != 5*time.Second {
		t.Errorf("expected upstream.reconnect_interval=5s, got %s", cfg.Upstream.ReconnectInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_RequiresComnsenseConfig(t *testing.T) {
	t.Setenv("COMNSENSE_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when COMNSENSE_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "COMNSENSE_CONFIG environment variable not set") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestLoad_WithComnsenseConfig(t *testing.T) {
	path := writeConfig(t, `
environment: staging
upstream:
  address: agent.internal:9000
  poll_interval: 250ms
documents:
  - /data/budget.xlsx
`)
	t.Setenv("COMNSENSE_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Upstream.Address != "agent.internal:9000" {
		t.Errorf("expected upstream.address from file, got %s", cfg.Upstream.Address)
	}
	if cfg.Upstream.PollInterval != 250*time.Millisecond {
		t.Errorf("expected poll_interval=250ms, got %s", cfg.Upstream.PollInterval)
	}
	if cfg.Upstream.DialTimeout != 5*time.Second {
		t.Errorf("unset dial_timeout should keep default, got %s", cfg.Upstream.DialTimeout)
	}
	if len(cfg.Documents) != 1 || cfg.Documents[0] != "/data/budget.xlsx" {
		t.Errorf("documents = %v", cfg.Documents)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := writeConfig(t, "upstream: [unterminated\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Run("development section", func(t *testing.T) {
		path := writeConfig(t, `
environment: development
hub:
  buffer: 8
development:
  hub:
    buffer: 2
  log:
    level: debug
`)
		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile: %v", err)
		}
		if cfg.Hub.Buffer != 2 {
			t.Errorf("hub.buffer = %d, want 2", cfg.Hub.Buffer)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("log.level = %s, want debug", cfg.Log.Level)
		}
	})

	t.Run("production default", func(t *testing.T) {
		path := writeConfig(t, "environment: production\n")
		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile: %v", err)
		}
		if cfg.Log.Format != "json" {
			t.Errorf("production log.format = %s, want json", cfg.Log.Format)
		}
	})

	t.Run("inactive section ignored", func(t *testing.T) {
		path := writeConfig(t, `
environment: development
production:
  upstream:
    address: prod:1
`)
		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile: %v", err)
		}
		if cfg.Upstream.Address != "127.0.0.1:8888" {
			t.Errorf("upstream.address = %s, want default", cfg.Upstream.Address)
		}
	})
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("COMNSENSE_TEST_DATA", "/srv/sheets")
	path := writeConfig(t, `
paths:
  root: /var/lib/comnsense
documents:
  - ${COMNSENSE_TEST_DATA}/a.xlsx
  - ${COMNSENSE_TEST_UNSET:-/tmp}/b.xlsx
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Paths.IdentityStore != "/var/lib/comnsense/identities.cbor" {
		t.Errorf("identity_store = %s", cfg.Paths.IdentityStore)
	}
	want := []string{"/srv/sheets/a.xlsx", "/tmp/b.xlsx"}
	for i := range want {
		if cfg.Documents[i] != want[i] {
			t.Errorf("documents[%d] = %s, want %s", i, cfg.Documents[i], want[i])
		}
	}
}

func TestExpandVars(t *testing.T) {
	vars := map[string]string{"COMNSENSE_ROOT": "/root"}
	tests := []struct {
		input string
		want  string
	}{
		{"${COMNSENSE_ROOT}/x", "/root/x"},
		{"${NOPE_NOT_SET:-fallback}", "fallback"},
		{"${NOPE_NOT_SET}", ""},
		{"plain", "plain"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad environment", func(c *Config) { c.Environment = "qa" }, "invalid environment"},
		{"bad address", func(c *Config) { c.Upstream.Address = "no-port" }, "upstream.address"},
		{"zero interval", func(c *Config) { c.Upstream.PollInterval = 0 }, "poll_interval"},
		{"zero reconnect", func(c *Config) { c.Upstream.ReconnectInterval = 0 }, "reconnect_interval"},
		{"zero buffer", func(c *Config) { c.Hub.Buffer = 0 }, "hub.buffer"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad metrics", func(c *Config) { c.Metrics.Listen = "9090" }, "metrics.listen"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error %q does not mention %q", err, test.wantErr)
			}
		})
	}
}

func TestEnsurePaths(t *testing.T) {
	root := filepath.Join(t.TempDir(), "state")
	cfg := Default()
	cfg.Paths.Root = root
	cfg.Paths.IdentityStore = filepath.Join(root, "ids", "identities.cbor")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths: %v", err)
	}
	if info, err := os.Stat(filepath.Join(root, "ids")); err != nil || !info.IsDir() {
		t.Errorf("identity store directory not created: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buffer)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "document", "d-1")

	output := buffer.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("info record written at warn level: %s", output)
	}
	if !strings.Contains(output, `"document":"d-1"`) {
		t.Errorf("json record missing attribute: %s", output)
	}
}
