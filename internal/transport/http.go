package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	bqerr "bulkq/internal/errors"
	"bulkq/internal/metrics"
	"bulkq/internal/tap"
	"bulkq/util"
)

// Request is one outbound HTTP call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the status, headers and (decoded) body of a call.  The
// caller owns Body and must close it.
type Response struct {
	Status    int
	Header    http.Header
	Body      io.ReadCloser
	RequestID string
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

// Options configures an Adapter.  The zero value is a direct TCP
// connection with platform TLS defaults, no compression and no tap.
type Options struct {
	Dialer      Dialer
	TLS         *tls.Config
	Timeout     time.Duration // dial, TLS handshake and response-header timeout
	Compression bool          // ask for gzip bodies
	Tap         *tap.Tap
	Logger      *util.Logger
	Metrics     *metrics.Collector
}

// Adapter sends requests over HTTP.
type Adapter struct {
	client *http.Client
	opts   Options
}

// NewAdapter builds an Adapter.  The TLS config, when non-nil, is
// installed on the transport before anything is sent.
func NewAdapter(opts Options) *Adapter {
	if opts.Dialer == nil {
		opts.Dialer = &TCPDialer{Timeout: opts.Timeout}
	}
	rt := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return opts.Dialer.Dial(ctx, network, addr)
		},
		TLSClientConfig:       opts.TLS,
		TLSHandshakeTimeout:   opts.Timeout,
		ResponseHeaderTimeout: opts.Timeout,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
		// Content-Encoding must stay visible so gzip is decoded here.
		DisableCompression: true,
	}
	return &Adapter{client: &http.Client{Transport: rt}, opts: opts}
}

// Close releases idle connections and the dialer.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return a.opts.Dialer.Close()
}

// Send performs one round trip.  Non-2xx responses are returned with
// their body; only I/O failures yield a *errors.TransportError.
func (a *Adapter) Send(ctx context.Context, req Request) (*Response, error) {
	op := strings.ToLower(req.Method)
	reqID := uuid.NewString()
	log := a.opts.Logger.Zerolog()

	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, a.fail(bqerr.WrapTransport("build", req.URL, err))
	}
	for name, values := range req.Header {
		hreq.Header[name] = append([]string(nil), values...)
	}
	if a.opts.Compression && hreq.Header.Get("Accept-Encoding") == "" {
		hreq.Header.Set("Accept-Encoding", "gzip")
	}

	log.Debug().
		Str("req_id", reqID).
		Str("method", req.Method).
		Str("url", req.URL).
		Int("bytes", len(req.Body)).
		Msg("http.request")
	a.opts.Metrics.RequestSent(int64(len(req.Body)))

	start := time.Now()
	hresp, err := a.client.Do(hreq)
	if err != nil {
		return nil, a.fail(bqerr.WrapTransport(op, req.URL, err))
	}
	a.opts.Metrics.ResponseReceived(hresp.StatusCode)

	log.Debug().
		Str("req_id", reqID).
		Int("status", hresp.StatusCode).
		Str("content_type", hresp.Header.Get("Content-Type")).
		Str("content_encoding", hresp.Header.Get("Content-Encoding")).
		Dur("elapsed", time.Since(start)).
		Msg("http.response")

	respBody := io.ReadCloser(&countingBody{rc: hresp.Body, metrics: a.opts.Metrics})
	if strings.EqualFold(strings.TrimSpace(hresp.Header.Get("Content-Encoding")), "gzip") {
		respBody, err = gunzip(respBody)
		if err != nil {
			return nil, a.fail(bqerr.WrapTransport("gunzip", req.URL, err))
		}
	}

	respBody, err = a.opts.Tap.Capture(tap.Exchange{
		URL:            req.URL,
		RequestHeader:  hreq.Header,
		RequestBody:    req.Body,
		ResponseHeader: hresp.Header,
	}, respBody)
	if err != nil {
		return nil, a.fail(bqerr.WrapTransport("read", req.URL, err))
	}

	return &Response{
		Status:    hresp.StatusCode,
		Header:    hresp.Header,
		Body:      respBody,
		RequestID: reqID,
	}, nil
}

func (a *Adapter) fail(err *bqerr.TransportError) error {
	a.opts.Metrics.RecordError(err.Error())
	a.opts.Logger.Verbose("%v", err)
	return err
}

// ── body wrappers ────────────────────────────────────────────────────

// gunzip wraps body in a gzip reader.  An empty body stays empty.  body
// is closed on error.
func gunzip(body io.ReadCloser) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(body)
	if errors.Is(err, io.EOF) {
		return body, nil
	}
	if err != nil {
		body.Close()
		return nil, err
	}
	return &gzipBody{zr: zr, raw: body}, nil
}

type gzipBody struct {
	zr  *gzip.Reader
	raw io.ReadCloser
}

func (g *gzipBody) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipBody) Close() error {
	zerr := g.zr.Close()
	if err := g.raw.Close(); err != nil {
		return err
	}
	return zerr
}

// countingBody reports wire bytes to the metrics collector.
type countingBody struct {
	rc      io.ReadCloser
	metrics *metrics.Collector
}

func (c *countingBody) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	c.metrics.BytesReceived(int64(n))
	return n, err
}

func (c *countingBody) Close() error { return c.rc.Close() }
