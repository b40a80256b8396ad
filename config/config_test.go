package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	var cfg *Config

	assert.True(t, cfg.IsRemediationEnabled())
	assert.Equal(t, DefaultRemediationTimeout, cfg.GetRemediationTimeout())
	assert.Equal(t, "gpt-4o-mini", cfg.GetModel())
	assert.Equal(t, 2_000_000, cfg.GetMaxInputSizeBytes())
	assert.Equal(t, DefaultAllowedLanguages, cfg.GetAllowedLanguages())
	assert.Equal(t, 3, cfg.GetFailOnSeverity())
	assert.Equal(t, 4, cfg.GetConcurrency())
	assert.Equal(t, ":8080", cfg.GetListenAddr())
	assert.Equal(t, 50051, cfg.GetGRPCPort())
	assert.True(t, cfg.LanguageAllowed("Python"))
	assert.False(t, cfg.LanguageAllowed("cobol"))

	s := cfg.RemediationSettings()
	assert.True(t, s.Enabled)
	assert.Empty(t, s.Credential)
	assert.Equal(t, 20*time.Second, s.Timeout)
}

func TestGetAllowedLanguages_ReturnsCopy(t *testing.T) {
	cfg := &Config{}
	langs := cfg.GetAllowedLanguages()
	langs[0] = "mutated"
	assert.Equal(t, "python", DefaultAllowedLanguages[0])
}

func TestParse(t *testing.T) {
	data := []byte(`
remediation_enabled: false
external_backend_credential: sk-test
backend_url: https://llm.internal/v1
model: gpt-4o
remediation_timeout: 5s
max_input_size_bytes: 1024
allowed_languages: [python, go]
catalog_path: rules.yaml
fail_on_severity: 4
gate_policy: "max_severity >= threshold"
concurrency: 8
redis_url: redis://localhost:6379/1
listen_addr: ":9090"
grpc_port: 6000
log_level: debug
log_format: text
`)

	cfg, err := Parse(data)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.False(t, cfg.IsRemediationEnabled())
	assert.Equal(t, 5*time.Second, cfg.GetRemediationTimeout())
	assert.Equal(t, "gpt-4o", cfg.GetModel())
	assert.Equal(t, 1024, cfg.GetMaxInputSizeBytes())
	assert.Equal(t, []string{"python", "go"}, cfg.GetAllowedLanguages())
	assert.False(t, cfg.LanguageAllowed("java"))
	assert.Equal(t, "rules.yaml", cfg.CatalogPath)
	assert.Equal(t, 4, cfg.GetFailOnSeverity())
	assert.Equal(t, 8, cfg.GetConcurrency())
	assert.Equal(t, ":9090", cfg.GetListenAddr())
	assert.Equal(t, 6000, cfg.GetGRPCPort())

	s := cfg.RemediationSettings()
	assert.False(t, s.Enabled)
	assert.Equal(t, "sk-test", s.Credential)
	assert.Equal(t, "https://llm.internal/v1", s.BaseURL)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("concurrency: [1, 2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestGetRemediationTimeout_Invalid(t *testing.T) {
	cfg := &Config{RemediationTimeout: "soon"}
	assert.Equal(t, DefaultRemediationTimeout, cfg.GetRemediationTimeout())
	assert.Error(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"zero value", Config{}, ""},
		{"negative timeout", Config{RemediationTimeout: "-1s"}, "remediation_timeout"},
		{"negative size", Config{MaxInputSizeBytes: -1}, "max_input_size_bytes"},
		{"blank language", Config{AllowedLanguages: []string{"go", " "}}, "allowed_languages"},
		{"severity too high", Config{FailOnSeverity: 6}, "fail_on_severity"},
		{"negative concurrency", Config{Concurrency: -2}, "concurrency"},
		{"port out of range", Config{GRPCPort: 70000}, "grpc_port"},
		{"unknown level", Config{LogLevel: "loud"}, "log_level"},
		{"unknown format", Config{LogFormat: "xml"}, "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := &Config{Model: "from-file", Concurrency: 2}

	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvRemediationEnabled: "false",
		EnvModel:              "from-env",
		EnvAllowedLanguages:   "Python, Go,,",
		EnvConcurrency:        "6",
		EnvRemediationTimeout: "3s",
		EnvLogFormat:          "text",
	}))
	require.NoError(t, err)

	assert.False(t, cfg.IsRemediationEnabled())
	assert.Equal(t, "from-env", cfg.GetModel())
	assert.Equal(t, []string{"python", "go"}, cfg.AllowedLanguages)
	assert.Equal(t, 6, cfg.GetConcurrency())
	assert.Equal(t, 3*time.Second, cfg.GetRemediationTimeout())
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestApplyEnv_Credential(t *testing.T) {
	t.Run("dedicated variable wins", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{
			EnvBackendCredential: "dd-key",
			EnvOpenAIKey:         "openai-key",
		})))
		assert.Equal(t, "dd-key", cfg.ExternalBackendCredential)
	})

	t.Run("falls back to OPENAI_API_KEY", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{EnvOpenAIKey: "openai-key"})))
		assert.Equal(t, "openai-key", cfg.ExternalBackendCredential)
	})

	t.Run("file value kept over fallback", func(t *testing.T) {
		cfg := &Config{ExternalBackendCredential: "file-key"}
		require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{EnvOpenAIKey: "openai-key"})))
		assert.Equal(t, "file-key", cfg.ExternalBackendCredential)
	})
}

func TestApplyEnv_Invalid(t *testing.T) {
	cfg := &Config{}
	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvRemediationEnabled: "maybe",
		EnvGRPCPort:           "http",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvRemediationEnabled)
	assert.Contains(t, err.Error(), EnvGRPCPort)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devdefend.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: gpt-4o\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model)

	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model)

	_, err = Load(t.TempDir())
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvModel, "env-model")
	t.Setenv(EnvFailOnSeverity, "4")

	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.GetModel())
	assert.Equal(t, 4, cfg.GetFailOnSeverity())

	t.Setenv(EnvLogFormat, "xml")
	_, err = Resolve("")
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{LogLevel: "warn", LogFormat: "json"}
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)

	buf.Reset()
	(&Config{LogFormat: "text"}).Logger(&buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
