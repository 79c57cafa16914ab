package session

import (
	"context"
	"errors"
	"strings"

	bqerr "bulkq/internal/errors"
)

// CredentialProvider supplies the bearer token of an already
// authenticated session.  Acquiring or refreshing tokens is the
// provider's business.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token.
type StaticToken string

// Token returns the token itself.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// TokenFunc adapts a function to CredentialProvider.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

var errEmptyToken = errors.New("empty bearer token")

// bearer asks p for a token and formats the Authorization value.
func bearer(ctx context.Context, p CredentialProvider) (string, error) {
	tok, err := p.Token(ctx)
	if err != nil {
		return "", &bqerr.CredentialError{Err: err}
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", &bqerr.CredentialError{Err: errEmptyToken}
	}
	return "Bearer " + tok, nil
}
