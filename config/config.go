// Package config loads devdefend.yaml configuration files and applies
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/devdefend/remediation"
)

// Defaults.
const (
	DefaultModel              = "gpt-4o-mini"
	DefaultRemediationTimeout = 20 * time.Second
	DefaultMaxInputSizeBytes  = 2_000_000
	DefaultFailOnSeverity     = 3
	DefaultConcurrency        = 4
	DefaultListenAddr         = ":8080"
	DefaultGRPCPort           = 50051
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
)

// DefaultAllowedLanguages is the language allowlist used when none is configured.
var DefaultAllowedLanguages = []string{"python", "javascript", "java", "go", "csharp", "ruby", "php"}

// Config represents a devdefend.yaml configuration file.
// Zero values select defaults; use the getters rather than the fields.
type Config struct {
	// Remediation
	RemediationEnabled        *bool  `yaml:"remediation_enabled,omitempty"`
	ExternalBackendCredential string `yaml:"external_backend_credential,omitempty"`
	BackendURL                string `yaml:"backend_url,omitempty"`
	Model                     string `yaml:"model,omitempty"`

	// RemediationTimeout bounds each backend call.
	// Format: Go duration string (e.g., "20s")
	// Default: 20s
	RemediationTimeout string `yaml:"remediation_timeout,omitempty"`

	// Input validation
	MaxInputSizeBytes int      `yaml:"max_input_size_bytes,omitempty"`
	AllowedLanguages  []string `yaml:"allowed_languages,omitempty"`

	// Detection and gating
	CatalogPath    string `yaml:"catalog_path,omitempty"`
	FailOnSeverity int    `yaml:"fail_on_severity,omitempty"`
	GatePolicy     string `yaml:"gate_policy,omitempty"` // CEL expression, see gate.CompilePolicy

	// Concurrency bounds parallel remediation calls and parallel files.
	// Default: 4
	Concurrency int `yaml:"concurrency,omitempty"`

	// Serving
	RedisURL   string `yaml:"redis_url,omitempty"`
	ListenAddr string `yaml:"listen_addr,omitempty"`
	GRPCPort   int    `yaml:"grpc_port,omitempty"`

	// Logging
	LogLevel  string `yaml:"log_level,omitempty"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format,omitempty"` // json or text
}

// IsRemediationEnabled reports whether remediation is switched on. Default: true.
func (c *Config) IsRemediationEnabled() bool {
	if c == nil || c.RemediationEnabled == nil {
		return true
	}
	return *c.RemediationEnabled
}

// GetRemediationTimeout parses the remediation timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (c *Config) GetRemediationTimeout() time.Duration {
	if c == nil || c.RemediationTimeout == "" {
		return DefaultRemediationTimeout
	}
	d, err := time.ParseDuration(c.RemediationTimeout)
	if err != nil || d <= 0 {
		return DefaultRemediationTimeout
	}
	return d
}

// GetModel returns the configured model or the default value.
func (c *Config) GetModel() string {
	if c == nil || c.Model == "" {
		return DefaultModel
	}
	return c.Model
}

// GetMaxInputSizeBytes returns the configured input size limit or the default value.
func (c *Config) GetMaxInputSizeBytes() int {
	if c == nil || c.MaxInputSizeBytes <= 0 {
		return DefaultMaxInputSizeBytes
	}
	return c.MaxInputSizeBytes
}

// GetAllowedLanguages returns the configured allowlist or the default one.
func (c *Config) GetAllowedLanguages() []string {
	if c == nil || len(c.AllowedLanguages) == 0 {
		return append([]string(nil), DefaultAllowedLanguages...)
	}
	return append([]string(nil), c.AllowedLanguages...)
}

// LanguageAllowed reports whether language is on the allowlist (case-insensitive).
func (c *Config) LanguageAllowed(language string) bool {
	for _, l := range c.GetAllowedLanguages() {
		if strings.EqualFold(l, language) {
			return true
		}
	}
	return false
}

// GetFailOnSeverity returns the gate threshold or the default value.
func (c *Config) GetFailOnSeverity() int {
	if c == nil || c.FailOnSeverity <= 0 {
		return DefaultFailOnSeverity
	}
	return c.FailOnSeverity
}

// GetConcurrency returns the configured concurrency or the default value.
func (c *Config) GetConcurrency() int {
	if c == nil || c.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return c.Concurrency
}

// GetListenAddr returns the HTTP listen address or the default value.
func (c *Config) GetListenAddr() string {
	if c == nil || c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return c.ListenAddr
}

// GetGRPCPort returns the gRPC health port or the default value.
func (c *Config) GetGRPCPort() int {
	if c == nil || c.GRPCPort <= 0 {
		return DefaultGRPCPort
	}
	return c.GRPCPort
}

// RemediationSettings converts the configuration into advisor settings.
func (c *Config) RemediationSettings() remediation.Settings {
	s := remediation.Settings{
		Enabled: c.IsRemediationEnabled(),
		Model:   c.GetModel(),
		Timeout: c.GetRemediationTimeout(),
	}
	if c != nil {
		s.Credential = c.ExternalBackendCredential
		s.BaseURL = c.BackendURL
	}
	return s
}

// Validate rejects values the getters would otherwise silently replace.
func (c *Config) Validate() error {
	var errs []error

	if c.RemediationTimeout != "" {
		if d, err := time.ParseDuration(c.RemediationTimeout); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("remediation_timeout: invalid duration %q", c.RemediationTimeout))
		}
	}
	if c.MaxInputSizeBytes < 0 {
		errs = append(errs, fmt.Errorf("max_input_size_bytes: must not be negative, got %d", c.MaxInputSizeBytes))
	}
	for _, l := range c.AllowedLanguages {
		if strings.TrimSpace(l) == "" {
			errs = append(errs, errors.New("allowed_languages: empty language name"))
			break
		}
	}
	if c.FailOnSeverity < 0 || c.FailOnSeverity > 5 {
		errs = append(errs, fmt.Errorf("fail_on_severity: must be between 1 and 5, got %d", c.FailOnSeverity))
	}
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency: must not be negative, got %d", c.Concurrency))
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("grpc_port: out of range: %d", c.GRPCPort))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log_format: must be json or text, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// Logger builds a slog.Logger writing to w according to LogLevel and LogFormat.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", DefaultLogLevel:
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level: unknown level %q", s)
	}
}

// Parse parses YAML configuration data.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// Load reads and parses a devdefend.yaml file from the given path.
// If the path is a directory, it looks for devdefend.yaml or devdefend.yml in that directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		configPath = ""
		for _, name := range []string{"devdefend.yaml", "devdefend.yml"} {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("no devdefend.yaml or devdefend.yml found in %s", path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Resolve loads the file at path (an empty path means no file), applies the
// process environment and validates the result.
func Resolve(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
