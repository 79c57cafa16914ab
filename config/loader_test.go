package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BULKQ_INSTANCE_URL", "https://acme.example.com")
	t.Setenv("BULKQ_API_VERSION", "59.0")
	t.Setenv("BULKQ_ENCODING", "XML")
	t.Setenv("BULKQ_HEADERS", "A: 1; ;B=2")
	t.Setenv("BULKQ_TIMEOUT", "45")
	t.Setenv("BULKQ_NO_COMPRESSION", "yes")
	t.Setenv("BULKQ_TOKEN", "tok")
	t.Setenv("BULKQ_TOKEN_ENV", "SF_TOKEN")
	t.Setenv("BULKQ_CA_FILE", "/etc/ca.pem")
	t.Setenv("BULKQ_INSECURE", "1")
	t.Setenv("BULKQ_TUNNEL", "ops@bastion")
	t.Setenv("BULKQ_SSH_KEY", "/keys/id")
	t.Setenv("BULKQ_SSH_AGENT", "true")
	t.Setenv("BULKQ_STRICT_HOSTKEY", "TRUE")
	t.Setenv("BULKQ_POLL_INTERVAL", "5")
	t.Setenv("BULKQ_MAX_POLL_INTERVAL", "60")
	t.Setenv("BULKQ_MAX_POLLS", "12")
	t.Setenv("BULKQ_TRACE_FILE", "-")
	t.Setenv("BULKQ_VERBOSE", "3")
	t.Setenv("BULKQ_STATS", "1")

	cfg := Defaults()
	LoadFromEnv(cfg)

	assert.Equal(t, "https://acme.example.com", cfg.InstanceURL)
	assert.Equal(t, "59.0", cfg.APIVersion)
	assert.Equal(t, "xml", cfg.Encoding)
	assert.Equal(t, []string{"A: 1", "B=2"}, cfg.Headers)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.False(t, cfg.Compression)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, "SF_TOKEN", cfg.TokenEnv)
	assert.Equal(t, "/etc/ca.pem", cfg.CAFile)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, "ops@bastion", cfg.TunnelSpec)
	assert.Equal(t, "/keys/id", cfg.SSHKeyPath)
	assert.True(t, cfg.UseSSHAgent)
	assert.True(t, cfg.StrictHostKey)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, time.Minute, cfg.MaxPollInterval)
	assert.Equal(t, 12, cfg.MaxPolls)
	assert.Equal(t, "-", cfg.TraceFile)
	assert.Equal(t, 3, cfg.Verbose)
	assert.True(t, cfg.Stats)
}

func TestLoadFromEnvLeavesUnsetValues(t *testing.T) {
	t.Setenv("BULKQ_TIMEOUT", "not-a-number")
	t.Setenv("BULKQ_VERBOSE", "")

	cfg := Defaults()
	LoadFromEnv(cfg)

	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, 1, cfg.Verbose)
	assert.True(t, cfg.Compression)
	assert.Empty(t, cfg.Headers)
}

func TestLoadFromEnvVerboseZero(t *testing.T) {
	t.Setenv("BULKQ_VERBOSE", "0")

	cfg := Defaults()
	LoadFromEnv(cfg)

	assert.Equal(t, 0, cfg.Verbose)
}

func TestEnvBool(t *testing.T) {
	for v, want := range map[string]bool{
		"1": true, "true": true, "YES": true,
		"0": false, "no": false, "": false, "on": false,
	} {
		t.Setenv("BULKQ_FLAG", v)
		assert.Equal(t, want, envBool("FLAG"), "value %q", v)
	}
}

func TestConfigFileFromEnv(t *testing.T) {
	t.Setenv("BULKQ_CONFIG", "/etc/bulkq.toml")
	assert.Equal(t, "/etc/bulkq.toml", ConfigFileFromEnv())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, splitList(" a ;; b c ;"))
	assert.Nil(t, splitList(" ; "))
}
