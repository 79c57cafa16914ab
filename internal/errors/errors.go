// Package errors provides the error taxonomy of the bulk job client.
//
// Every public session operation returns either a complete result or
// exactly one of the types below, so callers can tell a caller mistake
// (UnsupportedError), an I/O failure (TransportError), a server-reported
// failure (ProtocolError) and an unreadable response (ResponseParseError)
// apart without string matching.
package errors

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrUnsupportedOperation   = errors.New("unsupported operation")
	ErrMissingJobID           = errors.New("job id is required")
	ErrFeatureNotEnabled      = errors.New("feature not enabled")
	ErrUnknownRemote          = errors.New("unknown remote error")
	ErrNotConnected           = errors.New("not connected")
)

// aggregateRelationships is the message fragment the server uses when a
// query asks for a construct bulk queries cannot serve.
const aggregateRelationships = "Aggregate Relationships not supported in Bulk Query"

// ── Caller errors ────────────────────────────────────────────────────

// UnsupportedError rejects a job description before anything is sent.
type UnsupportedError struct {
	Field string // "content type" or "operation"
	Value string
	Err   error // ErrUnsupportedContentType or ErrUnsupportedOperation
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%v: %s %q", e.Err, e.Field, e.Value)
}

func (e *UnsupportedError) Unwrap() error { return e.Err }

// UnsupportedContentType builds the error returned for any result
// encoding other than CSV.
func UnsupportedContentType(value string) *UnsupportedError {
	return &UnsupportedError{Field: "content type", Value: value, Err: ErrUnsupportedContentType}
}

// UnsupportedOperation builds the error returned for non-query jobs.
func UnsupportedOperation(value string) *UnsupportedError {
	return &UnsupportedError{Field: "operation", Value: value, Err: ErrUnsupportedOperation}
}

// ── Transport errors ─────────────────────────────────────────────────

// TransportError represents an I/O-level failure: refused connection,
// TLS handshake, timeout, malformed URL or a broken response stream.
type TransportError struct {
	Op        string // "build", "get", "post", "read", "gunzip"
	URL       string
	Err       error
	Retryable bool
}

func (e *TransportError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *TransportError) Unwrap() error { return e.Err }

// WrapTransport creates a TransportError, detecting retryability from
// the underlying error.
func WrapTransport(op, url string, err error) *TransportError {
	return &TransportError{
		Op:        op,
		URL:       url,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// SSHError represents an SSH gateway failure with host context.
type SSHError struct {
	Op   string // "auth", "hostkey", "handshake", "dial"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Remote errors ────────────────────────────────────────────────────

// ProtocolKind classifies a server-reported error.
type ProtocolKind int

const (
	// UnknownRemote is any server-reported error without special meaning.
	UnknownRemote ProtocolKind = iota
	// FeatureNotEnabled means the server rejected the requested construct.
	FeatureNotEnabled
)

func (k ProtocolKind) String() string {
	switch k {
	case FeatureNotEnabled:
		return "feature not enabled"
	default:
		return "unknown"
	}
}

// ProtocolError is the first error the server reported for a call.
type ProtocolError struct {
	Kind    ProtocolKind
	Code    string
	Message string
	Status  int
}

// Description is the human-readable text for the error: the message
// alone for FeatureNotEnabled, code and message run together otherwise.
func (e *ProtocolError) Description() string {
	if e.Kind == FeatureNotEnabled {
		return e.Message
	}
	return e.Code + e.Message
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("remote error (%s, HTTP %d): %s", e.Kind, e.Status, e.Description())
}

// Is lets errors.Is match ErrFeatureNotEnabled and ErrUnknownRemote.
func (e *ProtocolError) Is(target error) bool {
	switch target {
	case ErrFeatureNotEnabled:
		return e.Kind == FeatureNotEnabled
	case ErrUnknownRemote:
		return e.Kind == UnknownRemote
	}
	return false
}

// Classify turns the first decoded remote error into a ProtocolError.
func Classify(status int, code, message string) *ProtocolError {
	kind := UnknownRemote
	if strings.Contains(message, aggregateRelationships) {
		kind = FeatureNotEnabled
	}
	return &ProtocolError{Kind: kind, Code: code, Message: message, Status: status}
}

// ResponseParseError means a body was present but could not be decoded,
// so the client cannot even say what the server meant.
type ResponseParseError struct {
	What   string // "error body", "job info", "Sforce-NumberOfRecords header"
	Status int
	Err    error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("could not parse %s (HTTP %d): %v", e.What, e.Status, e.Err)
}

func (e *ResponseParseError) Unwrap() error { return e.Err }

// CredentialError wraps a failure of the credential provider.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string { return "credentials: " + e.Err.Error() }

func (e *CredentialError) Unwrap() error { return e.Err }

// ── Configuration ────────────────────────────────────────────────────

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // flag name without dashes
	Value   interface{} // the invalid value (nil if missing)
	Message string
	Hint    string // optional
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.  Only transport
// failures ever are; the client itself never retries.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}

// IsRemote reports whether err was reported by the server.
func IsRemote(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

type timeout interface{ Timeout() bool }

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() || opErr.Timeout() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	var t timeout
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
