package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleTOML = `
instance_url = "https://acme.example.com"
api_version = "59.0"
encoding = "XML"
timeout = "10s"
compression = false
token_env = "SF_TOKEN"

[headers]
"Sforce-Call-Options" = "client=bulkq"

[tls]
ca_file = "/etc/ca.pem"
server_name = "acme.internal"

[tunnel]
spec = "ops@bastion:2222"
agent = true

[poll]
interval = "500ms"
max_interval = "5s"
max_polls = 20

[output]
trace_file = "trace.log"
verbose = 2
stats = true
`

const sampleYAML = `
instance_url: https://acme.example.com
api_version: "59.0"
encoding: xml
timeout: 10s
compression: false
token_env: SF_TOKEN
headers:
  Sforce-Call-Options: client=bulkq
tls:
  ca_file: /etc/ca.pem
  server_name: acme.internal
tunnel:
  spec: ops@bastion:2222
  agent: true
poll:
  interval: 500ms
  max_interval: 5s
  max_polls: 20
output:
  trace_file: trace.log
  verbose: 2
  stats: true
`

func assertSample(t *testing.T, cfg *Config) {
	t.Helper()
	assert.Equal(t, "https://acme.example.com", cfg.InstanceURL)
	assert.Equal(t, "59.0", cfg.APIVersion)
	assert.Equal(t, "xml", cfg.Encoding)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.False(t, cfg.Compression)
	assert.Equal(t, "SF_TOKEN", cfg.TokenEnv)
	assert.Equal(t, []string{"Sforce-Call-Options: client=bulkq"}, cfg.Headers)
	assert.Equal(t, "/etc/ca.pem", cfg.CAFile)
	assert.Equal(t, "acme.internal", cfg.ServerName)
	assert.Equal(t, "ops@bastion:2222", cfg.TunnelSpec)
	assert.True(t, cfg.UseSSHAgent)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.MaxPollInterval)
	assert.Equal(t, 20, cfg.MaxPolls)
	assert.Equal(t, "trace.log", cfg.TraceFile)
	assert.Equal(t, 2, cfg.Verbose)
	assert.True(t, cfg.Stats)
}

func TestLoadFileTOML(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, LoadFile(writeFile(t, "bulkq.toml", sampleTOML), cfg))
	assertSample(t, cfg)
}

func TestLoadFileYAML(t *testing.T) {
	for _, name := range []string{"bulkq.yaml", "bulkq.yml"} {
		cfg := Defaults()
		require.NoError(t, LoadFile(writeFile(t, name, sampleYAML), cfg), name)
		assertSample(t, cfg)
	}
}

func TestLoadFileKeepsUnsetValues(t *testing.T) {
	cfg := Defaults()
	cfg.Token = "from-flag"
	require.NoError(t, LoadFile(writeFile(t, "c.toml", `api_version = "61.0"`), cfg))

	assert.Equal(t, "61.0", cfg.APIVersion)
	assert.Equal(t, "from-flag", cfg.Token)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.True(t, cfg.Compression)
}

func TestLoadFileEmptyYAML(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, LoadFile(writeFile(t, "empty.yaml", ""), cfg))
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unknown toml key", "c.toml", "instance = \"x\"\n", "unknown key"},
		{"unknown nested toml key", "c.toml", "[poll]\nevery = \"1s\"\n", "unknown key"},
		{"unknown yaml key", "c.yaml", "instance: x\n", "not found"},
		{"bad duration", "c.toml", "timeout = \"soon\"\n", "parse timeout"},
		{"bad poll duration", "c.yaml", "poll:\n  interval: often\n", "parse poll.interval"},
		{"malformed toml", "c.toml", "timeout = \n", "load config"},
		{"unsupported extension", "c.json", "{}", "unsupported format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LoadFile(writeFile(t, tt.file, tt.content), Defaults())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"), Defaults())
	assert.Error(t, err)
}
