// Package session is the asynchronous bulk-query job client.
//
// A Client performs the operations: create a job, read its status,
// fetch result pages, abort and delete.  It keeps no per-job data;
// that lives in a State the caller passes to every call, holding the
// authorization value, extra headers and the locator and record count
// of the last page.  Session bundles one Client with one State for
// callers that work on a single job at a time.
//
// Every operation performs at most one HTTP round trip, starts no
// goroutines and never retries.  It returns either a complete result or
// exactly one error from bulkq/internal/errors: UnsupportedError,
// TransportError, ProtocolError, ResponseParseError or CredentialError.
package session

import (
	"context"

	"bulkq/internal/codec"
)

// Session is a Client bound to a single State.  Like State it is not
// safe for concurrent use.
type Session struct {
	client *Client
	state  *State
}

// New builds a Session from cfg.
func New(cfg Config) (*Session, error) {
	c, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Session{client: c, state: NewState()}, nil
}

// Client returns the underlying Client.
func (s *Session) Client() *Client { return s.client }

// State returns the session's State.
func (s *Session) State() *State { return s.state }

// CreateJob submits a CSV query job.
func (s *Session) CreateJob(ctx context.Context, spec codec.JobSpec) (codec.JobInfo, error) {
	return s.client.CreateJob(ctx, s.state, spec)
}

// GetJobStatus fetches a job's status, decoding with enc (nil = JSON).
func (s *Session) GetJobStatus(ctx context.Context, jobID string, enc codec.Encoding) (codec.JobInfo, error) {
	return s.client.GetJobStatus(ctx, s.state, jobID, enc)
}

// GetResultPage fetches one page of results.
func (s *Session) GetResultPage(ctx context.Context, jobID, locator string) (*ResultPage, error) {
	return s.client.GetResultPage(ctx, s.state, jobID, locator)
}

// ForEachPage walks every result page of a job.
func (s *Session) ForEachPage(ctx context.Context, jobID string, fn func(*ResultPage) error) error {
	return s.client.ForEachPage(ctx, s.state, jobID, fn)
}

// AbortJob aborts a job.
func (s *Session) AbortJob(ctx context.Context, jobID string) (codec.JobInfo, error) {
	return s.client.AbortJob(ctx, s.state, jobID)
}

// DeleteJob deletes a job.
func (s *Session) DeleteJob(ctx context.Context, jobID string) error {
	return s.client.DeleteJob(ctx, s.state, jobID)
}

// RegisterHeader adds an extra header to every later request.
func (s *Session) RegisterHeader(name, value string) { s.state.RegisterHeader(name, value) }

// LastLocator is the locator following the last page fetched.
func (s *Session) LastLocator() string { return s.state.LastLocator() }

// LastRecordCount is the record count of the last page fetched.
func (s *Session) LastRecordCount() int { return s.state.LastRecordCount() }
