package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"bulkq/config"
	"bulkq/internal/codec"
	"bulkq/internal/metrics"
	"bulkq/internal/retry"
	"bulkq/internal/session"
	"bulkq/internal/tap"
	"bulkq/internal/transport"
	"bulkq/tunnel"
	"bulkq/util"
)

// tokenPrompt is shown when the bearer token is read from the terminal.
const tokenPrompt = "Bearer token: "

// Build constructs the Mode for cfg.Command.  m may be nil.  The
// returned Mode owns the transport and files opened here and releases
// them when it runs; a Mode that is never run must not be built.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	enc, err := codec.ByName(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	job, err := buildJob(cfg, enc, logger, m)
	if err != nil {
		return nil, err
	}

	switch cfg.Command {
	case config.CmdCreate:
		return &CreateMode{Job: job, Spec: jobSpec(cfg)}, nil
	case config.CmdStatus:
		return &StatusMode{Job: job, JobID: cfg.JobID(), Encoding: enc}, nil
	case config.CmdResults:
		return &ResultsMode{Job: job, JobID: cfg.JobID(), Locator: cfg.Locator(), All: cfg.AllPages}, nil
	case config.CmdRun:
		return &RunMode{
			Job:            job,
			Spec:           jobSpec(cfg),
			StatusEncoding: enc,
			Poller:         buildPoller(cfg),
			Retry:          retry.DefaultBackoff(),
			DeleteAfter:    cfg.DeleteAfter,
		}, nil
	case config.CmdAbort:
		return &AbortMode{Job: job, JobID: cfg.JobID()}, nil
	case config.CmdDelete:
		return &DeleteMode{Job: job, JobID: cfg.JobID()}, nil
	default:
		job.Close()
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
}

// Plan describes what Build would do for cfg without touching the
// network or the filesystem.  It backs --dry-run.
func Plan(cfg *config.Config) string {
	var b strings.Builder
	endpoint, endpointErr := cfg.ResolveEndpoint()
	if endpointErr != nil {
		endpoint = "<invalid: " + endpointErr.Error() + ">"
	}
	fmt.Fprintf(&b, "command:   %s %s\n", cfg.Command, strings.Join(cfg.Args, " "))
	fmt.Fprintf(&b, "endpoint:  %s\n", endpoint)
	fmt.Fprintf(&b, "encoding:  %s\n", encodingName(cfg.Encoding))
	if cfg.TunnelEnabled {
		fmt.Fprintf(&b, "tunnel:    %s@%s", cfg.TunnelUser, util.FormatAddr(cfg.TunnelHost, cfg.TunnelPort))
		if endpointErr == nil {
			if target, err := util.HostPort(endpoint); err == nil {
				fmt.Fprintf(&b, " -> %s", target)
			}
		}
		b.WriteString("\n")
	}
	if opts := tlsOptions(cfg); opts.Configured() {
		fmt.Fprintf(&b, "tls:       ca=%q cert=%q server-name=%q insecure=%t\n",
			opts.CAFile, opts.CertFile, opts.ServerName, opts.InsecureSkipVerify)
	}
	for _, h := range cfg.Headers {
		fmt.Fprintf(&b, "header:    %s\n", h)
	}
	if cfg.Command == config.CmdRun {
		fmt.Fprintf(&b, "polling:   every %s up to %s", cfg.PollInterval, cfg.MaxPollInterval)
		if cfg.MaxPolls > 0 {
			fmt.Fprintf(&b, ", at most %d polls", cfg.MaxPolls)
		}
		b.WriteString("\n")
	}
	if cfg.TraceFile != "" {
		fmt.Fprintf(&b, "trace:     %s\n", cfg.TraceFile)
	}
	return b.String()
}

// ── Job wiring ───────────────────────────────────────────────────────

func buildJob(cfg *config.Config, enc codec.Encoding, logger *util.Logger, m *metrics.Collector) (*Job, error) {
	job := &Job{Logger: logger}
	built := false
	defer func() {
		if !built {
			job.Close()
		}
	}()

	endpoint, err := cfg.ResolveEndpoint()
	if err != nil {
		return nil, err
	}
	headers, err := cfg.ParsedHeaders()
	if err != nil {
		return nil, err
	}
	tlsCfg, err := transport.BuildTLSConfig(tlsOptions(cfg))
	if err != nil {
		return nil, err
	}

	t, err := buildTap(cfg, job, logger)
	if err != nil {
		return nil, err
	}

	adapter := transport.NewAdapter(transport.Options{
		Dialer:      buildDialer(cfg, logger, m),
		TLS:         tlsCfg,
		Timeout:     cfg.Timeout,
		Compression: cfg.Compression,
		Tap:         t,
		Logger:      logger,
		Metrics:     m,
	})
	job.onClose(adapter)

	sess, err := session.New(session.Config{
		Endpoint:    endpoint,
		Sender:      adapter,
		Credentials: buildCredentials(cfg),
		Encoding:    enc,
		Logger:      logger,
		Metrics:     m,
	})
	if err != nil {
		return nil, err
	}
	for _, h := range headers {
		sess.RegisterHeader(h.Name, h.Value)
	}
	job.Session = sess

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	if out != os.Stdout {
		job.onClose(out)
	}
	job.Out = out

	logger.Debug("endpoint %s, encoding %s", endpoint, enc.Name())
	built = true
	return job, nil
}

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger, m *metrics.Collector) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(tunnel.Config{
			User:           cfg.TunnelUser,
			Host:           cfg.TunnelHost,
			Port:           cfg.TunnelPort,
			KeyFile:        cfg.SSHKeyPath,
			PasswordPrompt: cfg.SSHPassword,
			Agent:          cfg.UseSSHAgent,
			StrictHostKey:  cfg.StrictHostKey,
			KnownHosts:     cfg.KnownHostsPath,
			Timeout:        config.DefaultConnTimeout,
		}, logger, m)
	}
	return &transport.TCPDialer{Timeout: cfg.Timeout}
}

func tlsOptions(cfg *config.Config) transport.TLSOptions {
	return transport.TLSOptions{
		CAFile:             cfg.CAFile,
		CertFile:           cfg.CertFile,
		KeyFile:            cfg.KeyFile,
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.Insecure,
	}
}

// buildTap returns the diagnostic tap, or nil when no trace is wanted.
// At debug verbosity every exchange is also summarised in the log.
func buildTap(cfg *config.Config, job *Job, logger *util.Logger) (*tap.Tap, error) {
	if cfg.TraceFile == "" {
		return nil, nil
	}
	t := &tap.Tap{Logger: logger}
	if cfg.TraceFile == "-" {
		t.Trace = os.Stderr
	} else {
		f, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		job.onClose(f)
		t.Trace = f
	}
	if logger.Level() >= util.LogDebug {
		t.Add(tap.LogObserver{Logger: logger})
	}
	return t, nil
}

// buildCredentials resolves the bearer token.  With --token-prompt and
// no token configured, the terminal is asked the first time a request
// needs it.
func buildCredentials(cfg *config.Config) session.CredentialProvider {
	if tok := cfg.ResolveToken(); tok != "" || !cfg.TokenPrompt {
		return session.StaticToken(tok)
	}
	return session.TokenFunc(func(context.Context) (string, error) {
		secret, err := util.ReadSecret(tokenPrompt)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	})
}

func buildPoller(cfg *config.Config) *retry.Poller {
	p := retry.DefaultPoller()
	if cfg.PollInterval > 0 {
		p.Interval = cfg.PollInterval
	}
	if cfg.MaxPollInterval > 0 {
		p.MaxInterval = cfg.MaxPollInterval
	}
	p.MaxPolls = cfg.MaxPolls
	return p
}

func jobSpec(cfg *config.Config) codec.JobSpec {
	return codec.JobSpec{
		Object:          cfg.Object,
		Query:           cfg.Query(),
		Operation:       cfg.Operation,
		ColumnDelimiter: cfg.ColumnDelimiter,
		LineEnding:      cfg.LineEnding,
	}
}

// openOutput opens the result destination; "" and "-" mean stdout.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return os.Stdout, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return f, nil
}

func encodingName(name string) string {
	if enc, err := codec.ByName(name); err == nil {
		return enc.Name()
	}
	return name
}
