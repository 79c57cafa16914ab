package config

import (
	"testing"

	bqerr "bulkq/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Defaults()
	cfg.InstanceURL = "https://acme.example.com"
	cfg.Token = "tok"
	cfg.Command = CmdStatus
	cfg.Args = []string{"750R0000000zlh9IAA"}
	return cfg
}

func TestValidateAcceptsEachCommand(t *testing.T) {
	for _, args := range []struct {
		cmd  string
		args []string
	}{
		{CmdCreate, []string{"SELECT Id FROM Account"}},
		{CmdRun, []string{"SELECT", "Id", "FROM", "Account"}},
		{CmdStatus, []string{"750"}},
		{CmdResults, []string{"750"}},
		{CmdResults, []string{"750", "MjAwMDAw"}},
		{CmdAbort, []string{"750"}},
		{CmdDelete, []string{"750"}},
	} {
		cfg := validConfig()
		cfg.Command, cfg.Args = args.cmd, args.args
		assert.NoError(t, cfg.Validate(), "%s %v", args.cmd, args.args)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
		wantHint  bool
	}{
		{"no command", func(c *Config) { c.Command = "" }, "command", true},
		{"unknown command", func(c *Config) { c.Command = "ingest" }, "command", true},
		{"create without query", func(c *Config) { c.Command, c.Args = CmdCreate, nil }, "query", true},
		{"bad operation", func(c *Config) {
			c.Command, c.Args, c.Operation = CmdRun, []string{"SELECT Id FROM A"}, "upsert"
		}, "operation", false},
		{"status without id", func(c *Config) { c.Args = nil }, "job-id", false},
		{"abort with two ids", func(c *Config) { c.Command, c.Args = CmdAbort, []string{"a", "b"} }, "job-id", false},
		{"results with three args", func(c *Config) { c.Command, c.Args = CmdResults, []string{"a", "b", "c"} }, "job-id", true},
		{"no endpoint", func(c *Config) { c.InstanceURL = "" }, "endpoint", true},
		{"bad endpoint scheme", func(c *Config) { c.Endpoint = "ftp://host/jobs" }, "endpoint", true},
		{"bad encoding", func(c *Config) { c.Encoding = "csv" }, "encoding", false},
		{"bad header", func(c *Config) { c.Headers = []string{"oops"} }, "header", false},
		{"no token", func(c *Config) { c.Token = "" }, "token", true},
		{"cert without key", func(c *Config) { c.CertFile = "c.pem" }, "cert", false},
		{"negative timeout", func(c *Config) { c.Timeout = -1 }, "timeout", false},
		{"negative polls", func(c *Config) { c.MaxPolls = -1 }, "poll-interval", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var ce *bqerr.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantField, ce.Field)
			if tt.wantHint {
				assert.Contains(t, err.Error(), "hint:")
			}
		})
	}
}

func TestValidateTokenSources(t *testing.T) {
	cfg := validConfig()
	cfg.Token = ""

	cfg.TokenPrompt = true
	assert.NoError(t, cfg.Validate())

	cfg.TokenPrompt = false
	cfg.DryRun = true
	assert.NoError(t, cfg.Validate())

	cfg.DryRun = false
	cfg.TokenEnv = "BULKQ_TEST_UNSET_TOKEN"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BULKQ_TEST_UNSET_TOKEN is empty")

	t.Setenv("BULKQ_TEST_UNSET_TOKEN", "x")
	assert.NoError(t, cfg.Validate())
}

func TestValidateEncodingCaseInsensitive(t *testing.T) {
	cfg := validConfig()
	cfg.Encoding = "xml"
	assert.NoError(t, cfg.Validate())
	cfg.Encoding = ""
	assert.NoError(t, cfg.Validate())
}
