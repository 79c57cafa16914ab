package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the BULKQ_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := env("INSTANCE_URL"); v != "" {
		cfg.InstanceURL = v
	}
	if v := env("API_VERSION"); v != "" {
		cfg.APIVersion = v
	}
	if v := env("ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := env("ENCODING"); v != "" {
		cfg.Encoding = strings.ToLower(v)
	}
	if v := env("HEADERS"); v != "" {
		cfg.Headers = append(cfg.Headers, splitList(v)...)
	}
	if v := envInt("TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}
	if envBool("NO_COMPRESSION") {
		cfg.Compression = false
	}

	// Credentials
	if v := env("TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := env("TOKEN_ENV"); v != "" {
		cfg.TokenEnv = v
	}

	// TLS
	if v := env("CA_FILE"); v != "" {
		cfg.CAFile = v
	}
	if v := env("CERT_FILE"); v != "" {
		cfg.CertFile = v
	}
	if v := env("KEY_FILE"); v != "" {
		cfg.KeyFile = v
	}
	if v := env("SERVER_NAME"); v != "" {
		cfg.ServerName = v
	}
	if envBool("INSECURE") {
		cfg.Insecure = true
	}

	// SSH tunnel
	if v := env("TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := env("SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := env("KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Polling
	if v := envInt("POLL_INTERVAL"); v > 0 {
		cfg.PollInterval = secondsDuration(v)
	}
	if v := envInt("MAX_POLL_INTERVAL"); v > 0 {
		cfg.MaxPollInterval = secondsDuration(v)
	}
	if v := envInt("MAX_POLLS"); v > 0 {
		cfg.MaxPolls = v
	}

	// Output
	if v := env("TRACE_FILE"); v != "" {
		cfg.TraceFile = v
	}
	if v, err := strconv.Atoi(env("VERBOSE")); err == nil && v >= 0 {
		cfg.Verbose = v
	}
	if envBool("STATS") {
		cfg.Stats = true
	}
}

// ConfigFileFromEnv returns BULKQ_CONFIG, the config file used when
// --config is not given.
func ConfigFileFromEnv() string { return env("CONFIG") }

// ── helpers ──────────────────────────────────────────────────────────

func env(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func envInt(key string) int {
	v := env(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(env(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}

// splitList splits a ";"-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
