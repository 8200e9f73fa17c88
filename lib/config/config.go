// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the configuration of the document host.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Paths configures file locations.
	Paths PathsConfig `yaml:"paths"`

	// Upstream configures the connection every router opens to the
	// remote agent.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Hub configures the in-process broadcast channel.
	Hub HubConfig `yaml:"hub"`

	// Log configures the slog handler of the binary.
	Log LogConfig `yaml:"log"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Documents lists .xlsx files opened at startup.
	Documents []string `yaml:"documents"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths    *PathsConfig    `yaml:"paths,omitempty"`
	Upstream *UpstreamConfig `yaml:"upstream,omitempty"`
	Hub      *HubConfig      `yaml:"hub,omitempty"`
	Log      *LogConfig      `yaml:"log,omitempty"`
	Metrics  *MetricsConfig  `yaml:"metrics,omitempty"`
}

// PathsConfig configures file locations.
type PathsConfig struct {
	// Root is the base directory for comnsense state.
	Root string `yaml:"root"`

	// IdentityStore is the file that remembers the id minted for each
	// document path.
	// Default: ${COMNSENSE_ROOT}/identities.cbor
	IdentityStore string `yaml:"identity_store"`
}

// UpstreamConfig configures the agent connection.
type UpstreamConfig struct {
	// Address is the host:port of the agent endpoint.
	// Default: 127.0.0.1:8888
	Address string `yaml:"address"`

	// PollInterval bounds how long a router waits before re-checking
	// cancellation.
	// Default: 500ms
	PollInterval time.Duration `yaml:"poll_interval"`

	// DialTimeout bounds connection setup, handshake included.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// ReconnectInterval is how often the host restarts routers whose
	// upstream connection failed or could never be opened.
	// Default: 5s
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// HubConfig configures the broadcast channel.
type HubConfig struct {
	// Buffer is the per-subscriber queue depth. A subscriber whose
	// queue is full loses messages.
	// Default: 64
	Buffer int `yaml:"buffer"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address of the /metrics HTTP listener. Empty
	// disables the endpoint.
	Listen string `yaml:"listen"`
}

// Default returns the default configuration, used as the base that
// the config file is merged into.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "comnsense")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:          defaultRoot,
			IdentityStore: "${COMNSENSE_ROOT}/identities.cbor",
		},
		Upstream: UpstreamConfig{
			Address:           "127.0.0.1:8888",
			PollInterval:      500 * time.Millisecond,
			DialTimeout:       5 * time.Second,
			ReconnectInterval: 5 * time.Second,
		},
		Hub: HubConfig{
			Buffer: 64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the COMNSENSE_CONFIG environment
// variable. It fails when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv("COMNSENSE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("COMNSENSE_CONFIG environment variable not set; " +
			"set it to the path of your comnsense.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Log: &LogConfig{Format: "json"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.IdentityStore != "" {
			c.Paths.IdentityStore = overrides.Paths.IdentityStore
		}
	}

	if overrides.Upstream != nil {
		if overrides.Upstream.Address != "" {
			c.Upstream.Address = overrides.Upstream.Address
		}
		if overrides.Upstream.PollInterval != 0 {
			c.Upstream.PollInterval = overrides.Upstream.PollInterval
		}
		if overrides.Upstream.DialTimeout != 0 {
			c.Upstream.DialTimeout = overrides.Upstream.DialTimeout
		}
		if overrides.Upstream.ReconnectInterval != 0 {
			c.Upstream.ReconnectInterval = overrides.Upstream.ReconnectInterval
		}
	}

	if overrides.Hub != nil && overrides.Hub.Buffer != 0 {
		c.Hub.Buffer = overrides.Hub.Buffer
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}

	if overrides.Metrics != nil && overrides.Metrics.Listen != "" {
		c.Metrics.Listen = overrides.Metrics.Listen
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"COMNSENSE_ROOT": c.Paths.Root,
		"HOME":           os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["COMNSENSE_ROOT"] = c.Paths.Root

	c.Paths.IdentityStore = expandVars(c.Paths.IdentityStore, vars)
	for i, document := range c.Documents {
		c.Documents[i] = expandVars(document, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. Provided
// vars take precedence over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Paths.Root == "" {
		errs = append(errs, errors.New("paths.root is required"))
	}
	if c.Paths.IdentityStore == "" {
		errs = append(errs, errors.New("paths.identity_store is required"))
	}
	if _, _, err := net.SplitHostPort(c.Upstream.Address); err != nil {
		errs = append(errs, fmt.Errorf("upstream.address: %w", err))
	}
	if c.Upstream.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("upstream.poll_interval must be positive, got %s", c.Upstream.PollInterval))
	}
	if c.Upstream.DialTimeout <= 0 {
		errs = append(errs, fmt.Errorf("upstream.dial_timeout must be positive, got %s", c.Upstream.DialTimeout))
	}
	if c.Upstream.ReconnectInterval <= 0 {
		errs = append(errs, fmt.Errorf("upstream.reconnect_interval must be positive, got %s", c.Upstream.ReconnectInterval))
	}
	if c.Hub.Buffer <= 0 {
		errs = append(errs, fmt.Errorf("hub.buffer must be positive, got %d", c.Hub.Buffer))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			errs = append(errs, fmt.Errorf("metrics.listen: %w", err))
		}
	}

	return errors.Join(errs...)
}

// EnsurePaths creates the directories the configuration refers to.
func (c *Config) EnsurePaths() error {
	for _, dir := range []string{c.Paths.Root, filepath.Dir(c.Paths.IdentityStore)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(l.Level))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger builds the logger the configuration describes.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}
	switch l.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, options)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, options)), nil
	default:
		return nil, fmt.Errorf("log.format must be text or json, got %q", l.Format)
	}
}
