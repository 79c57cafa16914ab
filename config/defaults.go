package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config files, and environment variable loading.

const (
	// DefaultAPIVersion is the REST API version used to build the
	// jobs endpoint from an instance URL.
	DefaultAPIVersion = "60.0"

	// DefaultEncoding is the request encoding.
	DefaultEncoding = "json"

	// DefaultTimeout bounds dialing, the TLS handshake and waiting for
	// response headers.  Reading a result body is not bounded.
	DefaultTimeout = 30 * time.Second

	// DefaultPollInterval is the pause after the first status check.
	DefaultPollInterval = 2 * time.Second

	// DefaultMaxPollInterval caps the pause between status checks.
	DefaultMaxPollInterval = 30 * time.Second

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout is the SSH gateway connection timeout.
	DefaultConnTimeout = 30 * time.Second

	// EnvPrefix prefixes every environment variable bulkq reads.
	EnvPrefix = "BULKQ_"
)

// Defaults returns a Config with every default applied.
func Defaults() *Config {
	return &Config{
		APIVersion:      DefaultAPIVersion,
		Encoding:        DefaultEncoding,
		Timeout:         DefaultTimeout,
		Compression:     true,
		PollInterval:    DefaultPollInterval,
		MaxPollInterval: DefaultMaxPollInterval,
		Verbose:         1,
	}
}
