// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"bulkq/config"
	"bulkq/internal/codec"
	"bulkq/internal/core"
	"bulkq/internal/metrics"
	"bulkq/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X bulkq/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Output streams, replaced in tests.
var (
	stdout io.Writer = os.Stdout //nolint:gochecknoglobals
	stderr io.Writer = os.Stderr //nolint:gochecknoglobals
)

// Execute parses args and runs the requested bulkq command.
//
// Settings are layered: defaults, then the config file (--config or
// BULKQ_CONFIG), then BULKQ_* environment variables, then flags.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Defaults()

	// ── config file and environment ──────────────────────────────
	cfg.ConfigFile = configFlag(args)
	if cfg.ConfigFile == "" {
		cfg.ConfigFile = config.ConfigFileFromEnv()
	}
	if cfg.ConfigFile != "" {
		if err := config.LoadFile(cfg.ConfigFile, cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("bulkq", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "TOML or YAML config file")

	// ── endpoint ─────────────────────────────────────────────────
	fs.StringVarP(&cfg.InstanceURL, "instance", "i", cfg.InstanceURL, "Instance URL, e.g. https://acme.my.example.com")
	fs.StringVar(&cfg.APIVersion, "api-version", cfg.APIVersion, "REST API version")
	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "Full jobs endpoint (overrides --instance)")
	fs.StringVarP(&cfg.Encoding, "encoding", "e", cfg.Encoding, "Request encoding: json or xml")
	var headers []string
	fs.StringArrayVarP(&headers, "header", "H", nil, `Extra request header "Name: value" (repeatable)`)
	fs.DurationVarP(&cfg.Timeout, "timeout", "w", cfg.Timeout, "Connect and response-header timeout")
	var noCompression bool
	fs.BoolVar(&noCompression, "no-compression", !cfg.Compression, "Do not ask for gzip responses")

	// ── credentials ──────────────────────────────────────────────
	fs.StringVar(&cfg.Token, "token", cfg.Token, "Bearer token (prefer BULKQ_TOKEN or --token-env)")
	fs.StringVar(&cfg.TokenEnv, "token-env", cfg.TokenEnv, "Environment variable holding the bearer token")
	fs.BoolVar(&cfg.TokenPrompt, "token-prompt", cfg.TokenPrompt, "Prompt for the bearer token")

	// ── TLS ──────────────────────────────────────────────────────
	fs.StringVar(&cfg.CAFile, "ca-file", cfg.CAFile, "Extra PEM CA bundle")
	fs.StringVar(&cfg.CertFile, "cert", cfg.CertFile, "Client certificate (mutual TLS)")
	fs.StringVar(&cfg.KeyFile, "key", cfg.KeyFile, "Client certificate key")
	fs.StringVar(&cfg.ServerName, "server-name", cfg.ServerName, "TLS server name override")
	fs.BoolVarP(&cfg.Insecure, "insecure", "k", cfg.Insecure, "Skip TLS certificate verification")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach the endpoint through SSH gateway [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── job ──────────────────────────────────────────────────────
	fs.StringVar(&cfg.Object, "object", cfg.Object, "Object the query reads (informational)")
	fs.StringVar(&cfg.Operation, "operation", cfg.Operation, "query or queryAll")
	var allRecords bool
	fs.BoolVar(&allRecords, "all-records", false, "Shorthand for --operation queryAll")
	fs.StringVar(&cfg.ColumnDelimiter, "delimiter", cfg.ColumnDelimiter, "Column delimiter, e.g. COMMA, TAB, PIPE")
	fs.StringVar(&cfg.LineEnding, "line-ending", cfg.LineEnding, "LF or CRLF")
	fs.BoolVarP(&cfg.AllPages, "all", "a", cfg.AllPages, "results: follow locators to the last page")
	fs.BoolVar(&cfg.DeleteAfter, "delete", cfg.DeleteAfter, "run: delete the job after reading results")

	// ── polling ──────────────────────────────────────────────────
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "run: first pause between status checks")
	fs.DurationVar(&cfg.MaxPollInterval, "max-poll-interval", cfg.MaxPollInterval, "run: longest pause between status checks")
	fs.IntVar(&cfg.MaxPolls, "max-polls", cfg.MaxPolls, "run: give up after this many status checks (0 = no limit)")

	// ── output ───────────────────────────────────────────────────
	fs.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Write output to file instead of stdout")
	fs.StringVar(&cfg.TraceFile, "trace", cfg.TraceFile, `Append raw exchanges to file ("-" for stderr)`)
	var verbosity int
	fs.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (repeatable)")
	var quiet bool
	fs.BoolVarP(&quiet, "quiet", "q", false, "Only print errors")
	fs.BoolVar(&cfg.Stats, "stats", cfg.Stats, "Print request metrics as JSON on exit")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate and print the plan without sending anything")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "bulkq %s\n", version)
		return nil
	}

	cfg.Headers = append(cfg.Headers, headers...)
	if fs.Changed("no-compression") {
		cfg.Compression = !noCompression
	}
	if allRecords {
		cfg.Operation = codec.OperationQueryAll
	}
	// -v raises the level set by defaults, file or environment.
	cfg.Verbose += verbosity
	if quiet {
		cfg.Verbose = 0
	}

	// ── positional arguments ─────────────────────────────────────
	if rest := fs.Args(); len(rest) > 0 {
		cfg.Command = strings.ToLower(rest[0])
		cfg.Args = rest[1:]
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.DryRun {
		fmt.Fprint(stdout, core.Plan(cfg))
		return nil
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(stderr)

	m := metrics.New()
	mode, err := core.Build(cfg, logger, m)
	if err != nil {
		return err
	}
	err = mode.Run(ctx)

	if cfg.Stats {
		fmt.Fprintln(stderr, m.JSON())
	}
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

// configFlag finds --config ahead of full parsing, so the file can
// seed the flag defaults.
func configFlag(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stderr, `bulkq - asynchronous bulk query client v%s

Runs SOQL queries as server-side bulk jobs and streams the CSV results.

Usage:
  bulkq [options] create  <query>              Create a query job
  bulkq [options] status  <job-id>             Show a job's status
  bulkq [options] results <job-id> [locator]   Fetch result pages
  bulkq [options] run     <query>              Create, wait and stream all results
  bulkq [options] abort   <job-id>             Abort a job
  bulkq [options] delete  <job-id>             Delete a job

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(stderr, `
Environment:
  BULKQ_TOKEN, BULKQ_INSTANCE_URL, BULKQ_CONFIG and other BULKQ_* variables
  mirror the flags above.

Examples:
  bulkq -i https://acme.my.example.com run "SELECT Id, Name FROM Account" > accounts.csv
  bulkq create --all-records "SELECT Id FROM Contact"
  bulkq status 750R0000000zlh9IAA
  bulkq results -a 750R0000000zlh9IAA -o contacts.csv
  bulkq -T ops@bastion --trace - status 750R0000000zlh9IAA
`)
}
