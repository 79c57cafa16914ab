package errors

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  TransportError
		want string
	}{
		{
			name: "retryable",
			err:  TransportError{Op: "get", URL: "https://x/query/1", Err: io.EOF, Retryable: true},
			want: "get https://x/query/1: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  TransportError{Op: "post", URL: "https://x/query/", Err: fmt.Errorf("connection refused")},
			want: "post https://x/query/: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	err := WrapTransport("get", "x", io.EOF)
	assert.True(t, Is(err, io.EOF))
}

func TestUnsupported(t *testing.T) {
	err := UnsupportedContentType("JSON")
	assert.True(t, Is(err, ErrUnsupportedContentType))
	assert.False(t, Is(err, ErrUnsupportedOperation))
	assert.Equal(t, `unsupported content type: content type "JSON"`, err.Error())

	op := UnsupportedOperation("insert")
	assert.True(t, Is(op, ErrUnsupportedOperation))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		wantKind ProtocolKind
		wantDesc string
	}{
		{
			name:     "aggregate relationships",
			code:     "INVALID",
			message:  "Aggregate Relationships not supported in Bulk Query",
			wantKind: FeatureNotEnabled,
			wantDesc: "Aggregate Relationships not supported in Bulk Query",
		},
		{
			name:     "substring match",
			code:     "API_ERROR",
			message:  "query failed: Aggregate Relationships not supported in Bulk Query (Account.Contacts)",
			wantKind: FeatureNotEnabled,
			wantDesc: "query failed: Aggregate Relationships not supported in Bulk Query (Account.Contacts)",
		},
		{
			name:     "other",
			code:     "INVALIDJOB",
			message:  "Invalid job id",
			wantKind: UnknownRemote,
			wantDesc: "INVALIDJOBInvalid job id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(400, tt.code, tt.message)
			assert.Equal(t, tt.wantKind, err.Kind)
			assert.Equal(t, tt.wantDesc, err.Description())
			assert.Equal(t, 400, err.Status)
		})
	}
}

func TestProtocolError_Is(t *testing.T) {
	fne := Classify(400, "X", "Aggregate Relationships not supported in Bulk Query")
	assert.True(t, Is(fne, ErrFeatureNotEnabled))
	assert.False(t, Is(fne, ErrUnknownRemote))

	unk := Classify(500, "X", "boom")
	assert.True(t, Is(unk, ErrUnknownRemote))
	assert.False(t, Is(unk, ErrFeatureNotEnabled))
	assert.Equal(t, "remote error (unknown, HTTP 500): Xboom", unk.Error())
}

func TestResponseParseError(t *testing.T) {
	inner := fmt.Errorf("invalid character 'h'")
	err := &ResponseParseError{What: "error body", Status: 400, Err: inner}
	assert.True(t, Is(err, inner))
	assert.Contains(t, err.Error(), "could not parse error body")
	assert.False(t, IsRemote(err))
}

func TestSSHError(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := WrapSSH("handshake", "bastion.example.com", 22, inner)
	assert.Equal(t, "ssh handshake bastion.example.com:22: connection refused", err.Error())
	assert.True(t, Is(err, inner))
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "encoding",
				Value:   "yaml",
				Message: "must be json or xml",
				Hint:    "drop --encoding to use json",
			},
			want: "config: --encoding=yaml: must be json or xml\n  hint: drop --encoding to use json",
		},
		{
			name: "missing value no hint",
			err:  ConfigError{Field: "endpoint", Message: "required"},
			want: "config: --endpoint: required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable transport", &TransportError{Op: "get", URL: "x", Err: io.EOF, Retryable: true}, true},
		{"non-retryable transport", &TransportError{Op: "get", URL: "x", Err: io.EOF}, false},
		{"protocol", Classify(503, "X", "busy"), false},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestClassifyRetryable(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{IsTemporary: true}}
	assert.True(t, classifyRetryable(opErr))

	urlErr := &url.Error{Op: "Get", URL: "x", Err: context.DeadlineExceeded}
	assert.True(t, classifyRetryable(urlErr))

	assert.False(t, classifyRetryable(fmt.Errorf("plain")))
}

func TestSentinels(t *testing.T) {
	sentinels := []error{
		ErrUnsupportedContentType, ErrUnsupportedOperation, ErrMissingJobID,
		ErrFeatureNotEnabled, ErrUnknownRemote, ErrNotConnected,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				require.False(t, Is(a, b), "sentinel %d and %d should not match", i, j)
			}
		}
	}
}
