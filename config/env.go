package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvRemediationEnabled = "DEVDEFEND_REMEDIATION_ENABLED"
	EnvBackendCredential  = "DEVDEFEND_BACKEND_CREDENTIAL"
	EnvOpenAIKey          = "OPENAI_API_KEY"
	EnvBackendURL         = "DEVDEFEND_BACKEND_URL"
	EnvModel              = "DEVDEFEND_MODEL"
	EnvRemediationTimeout = "DEVDEFEND_REMEDIATION_TIMEOUT"
	EnvMaxInputSizeBytes  = "DEVDEFEND_MAX_INPUT_SIZE_BYTES"
	EnvAllowedLanguages   = "DEVDEFEND_ALLOWED_LANGUAGES"
	EnvCatalogPath        = "DEVDEFEND_CATALOG_PATH"
	EnvFailOnSeverity     = "DEVDEFEND_FAIL_ON_SEVERITY"
	EnvGatePolicy         = "DEVDEFEND_GATE_POLICY"
	EnvConcurrency        = "DEVDEFEND_CONCURRENCY"
	EnvRedisURL           = "DEVDEFEND_REDIS_URL"
	EnvListenAddr         = "DEVDEFEND_LISTEN_ADDR"
	EnvGRPCPort           = "DEVDEFEND_GRPC_PORT"
	EnvLogLevel           = "DEVDEFEND_LOG_LEVEL"
	EnvLogFormat          = "DEVDEFEND_LOG_FORMAT"
)

// ApplyEnv overrides fields from environment variables read through lookup
// (normally os.LookupEnv). Set variables win over file values. The backend
// credential falls back to OPENAI_API_KEY when neither the file nor
// DEVDEFEND_BACKEND_CREDENTIAL provides one.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, v))
			return
		}
		*dst = n
	}

	if v, ok := lookup(EnvRemediationEnabled); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid boolean %q", EnvRemediationEnabled, v))
		} else {
			c.RemediationEnabled = &b
		}
	}

	str(EnvBackendCredential, &c.ExternalBackendCredential)
	if c.ExternalBackendCredential == "" {
		str(EnvOpenAIKey, &c.ExternalBackendCredential)
	}
	str(EnvBackendURL, &c.BackendURL)
	str(EnvModel, &c.Model)
	str(EnvRemediationTimeout, &c.RemediationTimeout)
	num(EnvMaxInputSizeBytes, &c.MaxInputSizeBytes)

	if v, ok := lookup(EnvAllowedLanguages); ok && v != "" {
		var langs []string
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				langs = append(langs, strings.ToLower(l))
			}
		}
		c.AllowedLanguages = langs
	}

	str(EnvCatalogPath, &c.CatalogPath)
	num(EnvFailOnSeverity, &c.FailOnSeverity)
	str(EnvGatePolicy, &c.GatePolicy)
	num(EnvConcurrency, &c.Concurrency)
	str(EnvRedisURL, &c.RedisURL)
	str(EnvListenAddr, &c.ListenAddr)
	num(EnvGRPCPort, &c.GRPCPort)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvLogFormat, &c.LogFormat)

	return errors.Join(errs...)
}
