package session

import (
	"context"
	"net/http"
)

// State is the per-job request context: the authorization value, any
// extra headers and what the last result page said about the next one.
//
// A State is not safe for concurrent use.  Use one per logical job or
// serialise calls that share it.
type State struct {
	auth        string
	headers     http.Header
	locator     string
	recordCount int
}

// NewState returns an empty State.  The authorization value is derived
// from the client's credentials on the first call that needs it.
func NewState() *State {
	return &State{headers: make(http.Header)}
}

// RegisterHeader adds an extra header to every later request.  Names
// are canonicalised and the last value registered for a name wins.
// Authorization and Content-Type are always set by the client and
// cannot be overridden this way.
func (s *State) RegisterHeader(name, value string) {
	if s.headers == nil {
		s.headers = make(http.Header)
	}
	s.headers.Set(name, value)
}

// LastLocator is the locator of the page after the last one fetched,
// or "" if that page was the last.
func (s *State) LastLocator() string { return s.locator }

// LastRecordCount is the record count of the last page fetched.
func (s *State) LastRecordCount() int { return s.recordCount }

// authorize derives the Authorization value once.
func (s *State) authorize(ctx context.Context, p CredentialProvider) error {
	if s.auth != "" {
		return nil
	}
	v, err := bearer(ctx, p)
	if err != nil {
		return err
	}
	s.auth = v
	return nil
}

// header builds the outbound header set: extras first, then the
// controlled headers on top.
func (s *State) header(contentType string) http.Header {
	h := make(http.Header, len(s.headers)+2)
	for name, values := range s.headers {
		h[name] = append([]string(nil), values...)
	}
	h.Set("Content-Type", contentType)
	h.Set("Authorization", s.auth)
	return h
}

// advance records the headers of a fully accepted result page.
func (s *State) advance(locator string, count int) {
	s.locator = locator
	s.recordCount = count
}
