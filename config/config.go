// Package config defines the runtime configuration for bulkq and the
// helpers that parse tunnel and header specifications.
package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"bulkq/internal/codec"
	bqerr "bulkq/internal/errors"
	"bulkq/util"
)

// Sub-commands.
const (
	CmdCreate  = "create"
	CmdStatus  = "status"
	CmdResults = "results"
	CmdRun     = "run"
	CmdAbort   = "abort"
	CmdDelete  = "delete"
)

// Commands lists every sub-command in help order.
var Commands = []string{CmdCreate, CmdStatus, CmdResults, CmdRun, CmdAbort, CmdDelete}

// Config holds every tuneable for a single bulkq invocation.
type Config struct {
	// ── Endpoint ─────────────────────────────────────────────────────
	InstanceURL string // e.g. https://acme.my.example.com
	APIVersion  string // e.g. 60.0
	Endpoint    string // full jobs endpoint; overrides InstanceURL + APIVersion
	Encoding    string // request encoding: json or xml
	Headers     []string
	Timeout     time.Duration
	Compression bool

	// ── Credentials ──────────────────────────────────────────────────
	Token       string
	TokenEnv    string // name of an env var holding the token
	TokenPrompt bool

	// ── TLS ──────────────────────────────────────────────────────────
	CAFile     string
	CertFile   string
	KeyFile    string
	ServerName string
	Insecure   bool

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Job ──────────────────────────────────────────────────────────
	Command         string
	Args            []string
	Object          string
	Operation       string
	ColumnDelimiter string
	LineEnding      string
	AllPages        bool // results: follow locators to the last page
	DeleteAfter     bool // run: delete the job once results are read

	// ── Polling ──────────────────────────────────────────────────────
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	MaxPolls        int

	// ── Output ───────────────────────────────────────────────────────
	Output     string // result file; "" or "-" means stdout
	TraceFile  string // raw exchange trace; "-" means stderr
	ConfigFile string
	Verbose    int
	Stats      bool
	DryRun     bool
}

// ── Derived values ───────────────────────────────────────────────────

// ResolveEndpoint returns the jobs endpoint: Endpoint when set,
// otherwise one built from InstanceURL and APIVersion.
func (c *Config) ResolveEndpoint() (string, error) {
	if c.Endpoint != "" {
		return util.NormalizeEndpoint(c.Endpoint)
	}
	return util.RESTEndpoint(c.InstanceURL, c.APIVersion)
}

// ResolveToken returns the bearer token from Token or the TokenEnv
// variable.  An empty result means the token must be prompted for.
func (c *Config) ResolveToken() string {
	if c.Token != "" {
		return c.Token
	}
	if c.TokenEnv != "" {
		return os.Getenv(c.TokenEnv)
	}
	return ""
}

// Query joins the positional arguments of create and run.
func (c *Config) Query() string {
	return strings.TrimSpace(strings.Join(c.Args, " "))
}

// JobID is the first positional argument of the job commands.
func (c *Config) JobID() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

// Locator is the optional second argument of results.
func (c *Config) Locator() string {
	if len(c.Args) < 2 {
		return ""
	}
	return c.Args[1]
}

// Header is one parsed extra request header.
type Header struct {
	Name  string
	Value string
}

// ParsedHeaders parses every Headers entry.
func (c *Config) ParsedHeaders() ([]Header, error) {
	out := make([]Header, 0, len(c.Headers))
	for _, spec := range c.Headers {
		name, value, err := ParseHeaderSpec(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, Header{Name: name, Value: value})
	}
	return out, nil
}

// ── Header-spec parser ───────────────────────────────────────────────

// ParseHeaderSpec splits "Name: value" or "Name=value".
func ParseHeaderSpec(spec string) (name, value string, err error) {
	i := strings.IndexAny(spec, ":=")
	if i <= 0 {
		return "", "", fmt.Errorf("invalid header %q - expected Name: value", spec)
	}
	name = strings.TrimSpace(spec[:i])
	value = strings.TrimSpace(spec[i+1:])
	if name == "" || strings.ContainsAny(name, " \t\r\n") {
		return "", "", fmt.Errorf("invalid header name %q", name)
	}
	return name, value, nil
}

// headerSpecs renders a name → value map as sorted "Name: value" specs.
func headerSpecs(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n+": "+m[n])
	}
	return out
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q - expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec into the tunnel fields.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &bqerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: err.Error()}
	}
	if user == "" {
		user = os.Getenv("USER")
	}
	c.TunnelEnabled = true
	c.TunnelUser, c.TunnelHost, c.TunnelPort = user, host, port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Errors are *errors.ConfigError with a hint where one helps.
func (c *Config) Validate() error {
	if c.Command == "" {
		return &bqerr.ConfigError{
			Field:   "command",
			Message: "a command is required",
			Hint:    "one of " + strings.Join(Commands, ", "),
		}
	}

	switch c.Command {
	case CmdCreate, CmdRun:
		if c.Query() == "" {
			return &bqerr.ConfigError{
				Field:   "query",
				Message: c.Command + " needs a query",
				Hint:    `bulkq ` + c.Command + ` "SELECT Id FROM Account"`,
			}
		}
		if op := c.Operation; op != "" && op != codec.OperationQuery && op != codec.OperationQueryAll {
			return &bqerr.ConfigError{Field: "operation", Value: op, Message: "must be query or queryAll"}
		}
	case CmdStatus, CmdAbort, CmdDelete:
		if len(c.Args) != 1 {
			return &bqerr.ConfigError{Field: "job-id", Message: c.Command + " takes exactly one job id"}
		}
	case CmdResults:
		if len(c.Args) < 1 || len(c.Args) > 2 {
			return &bqerr.ConfigError{
				Field:   "job-id",
				Message: "results takes a job id and an optional locator",
				Hint:    "bulkq results 750R0000000zlh9IAA [locator]",
			}
		}
	default:
		return &bqerr.ConfigError{
			Field:   "command",
			Value:   c.Command,
			Message: "unknown command",
			Hint:    "one of " + strings.Join(Commands, ", "),
		}
	}

	if _, err := c.ResolveEndpoint(); err != nil {
		return &bqerr.ConfigError{
			Field:   "endpoint",
			Value:   c.endpointValue(),
			Message: err.Error(),
			Hint:    "set --instance (and --api-version) or --endpoint",
		}
	}

	if _, err := codec.ByName(c.Encoding); err != nil {
		return &bqerr.ConfigError{Field: "encoding", Value: c.Encoding, Message: "must be json or xml"}
	}

	if _, err := c.ParsedHeaders(); err != nil {
		return &bqerr.ConfigError{Field: "header", Message: err.Error()}
	}

	if !c.DryRun && !c.TokenPrompt && c.ResolveToken() == "" {
		hint := "set BULKQ_TOKEN, --token-env, or use --token-prompt"
		if c.TokenEnv != "" {
			hint = c.TokenEnv + " is empty"
		}
		return &bqerr.ConfigError{Field: "token", Message: "a bearer token is required", Hint: hint}
	}

	if (c.CertFile == "") != (c.KeyFile == "") {
		return &bqerr.ConfigError{Field: "cert", Message: "--cert and --key must be given together"}
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return &bqerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: "tunnel host is required"}
	}

	if c.Timeout < 0 {
		return &bqerr.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must not be negative"}
	}
	if c.PollInterval < 0 || c.MaxPollInterval < 0 || c.MaxPolls < 0 {
		return &bqerr.ConfigError{Field: "poll-interval", Message: "polling settings must not be negative"}
	}

	return nil
}

func (c *Config) endpointValue() interface{} {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.InstanceURL != "" {
		return c.InstanceURL
	}
	return nil
}
