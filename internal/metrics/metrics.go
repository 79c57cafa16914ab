// Package metrics provides lightweight, lock-free counters for tracking
// the runtime statistics of a bulkq invocation.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks HTTP, job and page statistics.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	requestsTotal  atomic.Int64
	responses2xx   atomic.Int64
	responses4xx   atomic.Int64
	responses5xx   atomic.Int64
	bytesIn        atomic.Int64
	bytesOut       atomic.Int64
	jobsCreated    atomic.Int64
	statusPolls    atomic.Int64
	pagesFetched   atomic.Int64
	recordsFetched atomic.Int64
	tunnelConnects atomic.Int64
	errorsTotal    atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── HTTP metrics ─────────────────────────────────────────────────────

// RequestSent records one outbound request with an n-byte body.
func (c *Collector) RequestSent(n int64) {
	if c == nil {
		return
	}
	c.requestsTotal.Add(1)
	c.bytesOut.Add(n)
}

// ResponseReceived records the status class of a response.
func (c *Collector) ResponseReceived(status int) {
	if c == nil {
		return
	}
	switch {
	case status >= 500:
		c.responses5xx.Add(1)
	case status >= 400:
		c.responses4xx.Add(1)
	case status >= 200 && status < 300:
		c.responses2xx.Add(1)
	}
}

// BytesReceived records n bytes read from the wire (before gzip
// decoding).
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// TotalRequests returns the lifetime request count.
func (c *Collector) TotalRequests() int64 {
	if c == nil {
		return 0
	}
	return c.requestsTotal.Load()
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Job metrics ──────────────────────────────────────────────────────

// JobCreated records a successful job creation.
func (c *Collector) JobCreated() {
	if c == nil {
		return
	}
	c.jobsCreated.Add(1)
}

// StatusPolled records one job status lookup.
func (c *Collector) StatusPolled() {
	if c == nil {
		return
	}
	c.statusPolls.Add(1)
}

// PageFetched records a result page carrying records rows.
func (c *Collector) PageFetched(records int64) {
	if c == nil {
		return
	}
	c.pagesFetched.Add(1)
	c.recordsFetched.Add(records)
}

// Pages returns the number of result pages fetched.
func (c *Collector) Pages() int64 {
	if c == nil {
		return 0
	}
	return c.pagesFetched.Load()
}

// Records returns the number of records announced by fetched pages.
func (c *Collector) Records() int64 {
	if c == nil {
		return 0
	}
	return c.recordsFetched.Load()
}

// ── Tunnel metrics ───────────────────────────────────────────────────

// TunnelConnected records an SSH gateway connection.
func (c *Collector) TunnelConnected() {
	if c == nil {
		return
	}
	c.tunnelConnects.Add(1)
}

// TunnelConnects returns the number of SSH gateway connections.
func (c *Collector) TunnelConnects() int64 {
	if c == nil {
		return 0
	}
	return c.tunnelConnects.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	Requests         int64  `json:"requests"`
	Responses2xx     int64  `json:"responses_2xx"`
	Responses4xx     int64  `json:"responses_4xx"`
	Responses5xx     int64  `json:"responses_5xx"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	JobsCreated      int64  `json:"jobs_created"`
	StatusPolls      int64  `json:"status_polls"`
	Pages            int64  `json:"pages"`
	Records          int64  `json:"records"`
	TunnelConnects   int64  `json:"tunnel_connects,omitempty"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:         time.Since(c.startTime).Truncate(time.Millisecond).String(),
		Requests:       c.requestsTotal.Load(),
		Responses2xx:   c.responses2xx.Load(),
		Responses4xx:   c.responses4xx.Load(),
		Responses5xx:   c.responses5xx.Load(),
		BytesIn:        c.bytesIn.Load(),
		BytesOut:       c.bytesOut.Load(),
		JobsCreated:    c.jobsCreated.Load(),
		StatusPolls:    c.statusPolls.Load(),
		Pages:          c.pagesFetched.Load(),
		Records:        c.recordsFetched.Load(),
		TunnelConnects: c.tunnelConnects.Load(),
		ErrorsTotal:    c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
