package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"bulkq/internal/codec"
	bqerr "bulkq/internal/errors"
	"bulkq/internal/metrics"
	"bulkq/internal/transport"
	"bulkq/util"
)

// Response headers of a result page.
const (
	HeaderLocator       = "Sforce-Locator"
	HeaderRecordCount   = "Sforce-NumberOfRecords"
	locatorEndOfResults = "null"
)

// Sender performs one HTTP round trip.  *transport.Adapter is the
// production implementation.
type Sender interface {
	Send(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Config configures a Client.
type Config struct {
	Endpoint    string // e.g. https://host/services/data/v60.0/jobs
	Sender      Sender
	Credentials CredentialProvider
	Encoding    codec.Encoding // request encoding for CreateJob; nil means JSON
	Logger      *util.Logger
	Metrics     *metrics.Collector
}

// Client issues job operations.  It holds no per-job state: every
// operation takes the *State it reads and updates.  A Client is safe
// for concurrent use as long as each goroutine brings its own State.
type Client struct {
	endpoint string
	sender   Sender
	creds    CredentialProvider
	enc      codec.Encoding
	logger   *util.Logger
	metrics  *metrics.Collector
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	endpoint, err := util.NormalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	if cfg.Sender == nil {
		return nil, fmt.Errorf("session: sender is required")
	}
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("session: credential provider is required")
	}
	enc := cfg.Encoding
	if enc == nil {
		enc = codec.JSON
	}
	return &Client{
		endpoint: endpoint,
		sender:   cfg.Sender,
		creds:    cfg.Credentials,
		enc:      enc,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}, nil
}

// Endpoint returns the normalised jobs endpoint.
func (c *Client) Endpoint() string { return c.endpoint }

// ── Operations ───────────────────────────────────────────────────────

// CreateJob submits a CSV query job.  Anything else is rejected before
// a request is built.
func (c *Client) CreateJob(ctx context.Context, st *State, spec codec.JobSpec) (codec.JobInfo, error) {
	spec = spec.WithDefaults()
	if !strings.EqualFold(spec.ContentType, codec.JobContentCSV) {
		return codec.JobInfo{}, bqerr.UnsupportedContentType(spec.ContentType)
	}
	spec.ContentType = codec.JobContentCSV
	if spec.Operation != codec.OperationQuery && spec.Operation != codec.OperationQueryAll {
		return codec.JobInfo{}, bqerr.UnsupportedOperation(spec.Operation)
	}

	body, err := c.enc.EncodeJob(spec)
	if err != nil {
		return codec.JobInfo{}, fmt.Errorf("encode job: %w", err)
	}

	resp, err := c.do(ctx, st, http.MethodPost, c.queryURL(), c.enc.ContentType(), body)
	if err != nil {
		return codec.JobInfo{}, err
	}
	info, err := c.jobInfo(resp, c.enc)
	if err != nil {
		return codec.JobInfo{}, err
	}

	c.metrics.JobCreated()
	c.logger.Verbose("job %s created (%s, state %s)", info.ID, info.Operation, info.State)
	return info, nil
}

// GetJobStatus fetches the current JobInfo of a job.  The response is
// decoded with enc (nil means JSON) regardless of its Content-Type.
func (c *Client) GetJobStatus(ctx context.Context, st *State, jobID string, enc codec.Encoding) (codec.JobInfo, error) {
	if strings.TrimSpace(jobID) == "" {
		return codec.JobInfo{}, bqerr.ErrMissingJobID
	}
	if enc == nil {
		enc = codec.JSON
	}

	resp, err := c.do(ctx, st, http.MethodGet, c.jobURL(jobID), enc.ContentType(), nil)
	if err != nil {
		return codec.JobInfo{}, err
	}
	info, err := c.jobInfo(resp, enc)
	if err != nil {
		return codec.JobInfo{}, err
	}

	c.metrics.StatusPolled()
	c.logger.Debug("job %s is %s (%d records processed)", info.ID, info.State, info.NumberRecordsProcessed)
	return info, nil
}

// AbortJob asks the server to abort a job and returns its new JobInfo.
func (c *Client) AbortJob(ctx context.Context, st *State, jobID string) (codec.JobInfo, error) {
	if strings.TrimSpace(jobID) == "" {
		return codec.JobInfo{}, bqerr.ErrMissingJobID
	}
	body, err := c.enc.EncodeState(codec.StateAborted)
	if err != nil {
		return codec.JobInfo{}, fmt.Errorf("encode state: %w", err)
	}

	resp, err := c.do(ctx, st, http.MethodPatch, c.jobURL(jobID), c.enc.ContentType(), body)
	if err != nil {
		return codec.JobInfo{}, err
	}
	info, err := c.jobInfo(resp, c.enc)
	if err != nil {
		return codec.JobInfo{}, err
	}
	c.logger.Verbose("job %s aborted", jobID)
	return info, nil
}

// DeleteJob removes a job and its results from the server.
func (c *Client) DeleteJob(ctx context.Context, st *State, jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return bqerr.ErrMissingJobID
	}
	resp, err := c.do(ctx, st, http.MethodDelete, c.jobURL(jobID), c.enc.ContentType(), nil)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return c.failure(resp)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()
	c.logger.Verbose("job %s deleted", jobID)
	return nil
}

// ── Plumbing ─────────────────────────────────────────────────────────

func (c *Client) queryURL() string { return c.endpoint + "/query/" }

func (c *Client) jobURL(jobID string) string {
	return c.endpoint + "/query/" + url.PathEscape(jobID)
}

func (c *Client) resultsURL(jobID, locator string) string {
	u := c.jobURL(jobID) + "/results"
	if hasLocator(locator) {
		u += "?locator=" + url.QueryEscape(locator)
	}
	return u
}

// do authorises st if needed and sends one request.
func (c *Client) do(ctx context.Context, st *State, method, target, contentType string, body []byte) (*transport.Response, error) {
	if err := st.authorize(ctx, c.creds); err != nil {
		return nil, err
	}
	return c.sender.Send(ctx, transport.Request{
		Method: method,
		URL:    target,
		Header: st.header(contentType),
		Body:   body,
	})
}

// jobInfo turns a job document response into a JobInfo or an error.
// It always closes the body.
func (c *Client) jobInfo(resp *transport.Response, enc codec.Encoding) (codec.JobInfo, error) {
	if !resp.Success() {
		return codec.JobInfo{}, c.failure(resp)
	}
	defer resp.Body.Close()

	info, err := enc.DecodeJobInfo(resp.Body)
	if err != nil {
		return codec.JobInfo{}, &bqerr.ResponseParseError{What: "job info", Status: resp.Status, Err: err}
	}
	if info.ID == "" {
		return codec.JobInfo{}, &bqerr.ResponseParseError{What: "job info", Status: resp.Status, Err: bqerr.ErrMissingJobID}
	}
	return info, nil
}

// failure translates a non-2xx response into the first error the
// server reported.  The error body is decoded according to its own
// Content-Type.  It always closes the body.
func (c *Client) failure(resp *transport.Response) error {
	defer resp.Body.Close()

	enc := codec.ForContentType(resp.Header.Get("Content-Type"))
	errs, err := enc.DecodeErrors(resp.Body)
	if err != nil {
		perr := &bqerr.ResponseParseError{What: "error body", Status: resp.Status, Err: err}
		c.metrics.RecordError(perr.Error())
		return perr
	}

	first := errs[0]
	perr := bqerr.Classify(resp.Status, first.Code, first.Message)
	c.metrics.RecordError(perr.Error())
	c.logger.Zerolog().Debug().
		Str("req_id", resp.RequestID).
		Int("status", resp.Status).
		Str("code", first.Code).
		Str("kind", perr.Kind.String()).
		Int("errors", len(errs)).
		Msg("remote.error")
	return perr
}
