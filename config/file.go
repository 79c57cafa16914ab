package config

// file.go - configuration loading from a TOML or YAML file.  Only keys
// present in the file override the current value; unknown keys are an
// error so typos surface instead of being silently ignored.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	InstanceURL *string           `toml:"instance_url" yaml:"instance_url"`
	APIVersion  *string           `toml:"api_version" yaml:"api_version"`
	Endpoint    *string           `toml:"endpoint" yaml:"endpoint"`
	Encoding    *string           `toml:"encoding" yaml:"encoding"`
	Timeout     *string           `toml:"timeout" yaml:"timeout"`
	Compression *bool             `toml:"compression" yaml:"compression"`
	TokenEnv    *string           `toml:"token_env" yaml:"token_env"`
	Headers     map[string]string `toml:"headers" yaml:"headers"`

	TLS    fileTLS    `toml:"tls" yaml:"tls"`
	Tunnel fileTunnel `toml:"tunnel" yaml:"tunnel"`
	Poll   filePoll   `toml:"poll" yaml:"poll"`
	Output fileOutput `toml:"output" yaml:"output"`
}

type fileTLS struct {
	CAFile     *string `toml:"ca_file" yaml:"ca_file"`
	CertFile   *string `toml:"cert_file" yaml:"cert_file"`
	KeyFile    *string `toml:"key_file" yaml:"key_file"`
	ServerName *string `toml:"server_name" yaml:"server_name"`
	Insecure   *bool   `toml:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type fileTunnel struct {
	Spec          *string `toml:"spec" yaml:"spec"`
	Key           *string `toml:"key" yaml:"key"`
	Agent         *bool   `toml:"agent" yaml:"agent"`
	Password      *bool   `toml:"password" yaml:"password"`
	StrictHostKey *bool   `toml:"strict_host_key" yaml:"strict_host_key"`
	KnownHosts    *string `toml:"known_hosts" yaml:"known_hosts"`
}

type filePoll struct {
	Interval    *string `toml:"interval" yaml:"interval"`
	MaxInterval *string `toml:"max_interval" yaml:"max_interval"`
	MaxPolls    *int    `toml:"max_polls" yaml:"max_polls"`
}

type fileOutput struct {
	TraceFile *string `toml:"trace_file" yaml:"trace_file"`
	Verbose   *int    `toml:"verbose" yaml:"verbose"`
	Stats     *bool   `toml:"stats" yaml:"stats"`
}

// LoadFile overlays the settings in path onto cfg.  The format follows
// the extension: .toml, or .yaml / .yml.
func LoadFile(path string, cfg *Config) error {
	var raw fileConfig

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("load config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("load config %s: unsupported format (want .toml, .yaml or .yml)", path)
	}

	if err := raw.apply(cfg); err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	return nil
}

func (f *fileConfig) apply(cfg *Config) error {
	setString(&cfg.InstanceURL, f.InstanceURL)
	setString(&cfg.APIVersion, f.APIVersion)
	setString(&cfg.Endpoint, f.Endpoint)
	if f.Encoding != nil {
		cfg.Encoding = strings.ToLower(strings.TrimSpace(*f.Encoding))
	}
	if err := setDuration(&cfg.Timeout, f.Timeout, "timeout"); err != nil {
		return err
	}
	setBool(&cfg.Compression, f.Compression)
	setString(&cfg.TokenEnv, f.TokenEnv)
	if len(f.Headers) > 0 {
		cfg.Headers = append(cfg.Headers, headerSpecs(f.Headers)...)
	}

	setString(&cfg.CAFile, f.TLS.CAFile)
	setString(&cfg.CertFile, f.TLS.CertFile)
	setString(&cfg.KeyFile, f.TLS.KeyFile)
	setString(&cfg.ServerName, f.TLS.ServerName)
	setBool(&cfg.Insecure, f.TLS.Insecure)

	setString(&cfg.TunnelSpec, f.Tunnel.Spec)
	setString(&cfg.SSHKeyPath, f.Tunnel.Key)
	setBool(&cfg.UseSSHAgent, f.Tunnel.Agent)
	setBool(&cfg.SSHPassword, f.Tunnel.Password)
	setBool(&cfg.StrictHostKey, f.Tunnel.StrictHostKey)
	setString(&cfg.KnownHostsPath, f.Tunnel.KnownHosts)

	if err := setDuration(&cfg.PollInterval, f.Poll.Interval, "poll.interval"); err != nil {
		return err
	}
	if err := setDuration(&cfg.MaxPollInterval, f.Poll.MaxInterval, "poll.max_interval"); err != nil {
		return err
	}
	if f.Poll.MaxPolls != nil {
		cfg.MaxPolls = *f.Poll.MaxPolls
	}

	setString(&cfg.TraceFile, f.Output.TraceFile)
	if f.Output.Verbose != nil {
		cfg.Verbose = *f.Output.Verbose
	}
	setBool(&cfg.Stats, f.Output.Stats)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, key string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*v))
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = d
	return nil
}
