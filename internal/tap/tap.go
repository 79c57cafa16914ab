// Package tap lets diagnostics see the raw bytes of every exchange
// without disturbing the data path.
//
// A Tap with neither a trace sink nor observers is inactive and costs
// nothing: response bodies stay streamed.  An active Tap materialises
// each response body once, hands the bytes to the trace sink and every
// observer, and gives the caller a fresh reader over the same bytes.
// Enabling tracing therefore buffers each response page in memory.
package tap

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"bulkq/util"
)

// Observer receives the raw request and response of each exchange.
// Each method is called exactly once per tapped call.  A panicking
// observer does not affect the call.
type Observer interface {
	HandleRequest(url string, header http.Header, body []byte)
	HandleResponse(url string, header http.Header, body []byte)
}

// Funcs adapts plain functions to Observer.  Nil fields are skipped.
type Funcs struct {
	Request  func(url string, header http.Header, body []byte)
	Response func(url string, header http.Header, body []byte)
}

func (f Funcs) HandleRequest(url string, header http.Header, body []byte) {
	if f.Request != nil {
		f.Request(url, header, body)
	}
}

func (f Funcs) HandleResponse(url string, header http.Header, body []byte) {
	if f.Response != nil {
		f.Response(url, header, body)
	}
}

// Exchange describes the request side of a tapped call and the response
// headers that came back.
type Exchange struct {
	URL            string
	RequestHeader  http.Header
	RequestBody    []byte
	ResponseHeader http.Header
}

// Tap fans raw exchanges out to a trace sink and observers.
type Tap struct {
	Trace     io.Writer
	Observers []Observer
	Logger    *util.Logger
}

// Active reports whether the tap needs the response bytes.
func (t *Tap) Active() bool {
	return t != nil && (t.Trace != nil || len(t.Observers) > 0)
}

// Add registers an observer.
func (t *Tap) Add(o Observer) {
	if o != nil {
		t.Observers = append(t.Observers, o)
	}
}

// Capture reads body to the end, distributes the bytes and returns a
// reader over the same bytes.  body is always closed.  An inactive tap
// returns body untouched.  The only error is a failure to read body.
func (t *Tap) Capture(x Exchange, body io.ReadCloser) (io.ReadCloser, error) {
	if !t.Active() {
		return body, nil
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return nil, err
	}

	for _, o := range t.Observers {
		t.notify(o, x, data)
	}
	if t.Trace != nil {
		t.trace(x, data)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (t *Tap) notify(o Observer, x Exchange, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.Logger.Debug("observer panicked: %v", r)
		}
	}()
	o.HandleRequest(x.URL, x.RequestHeader, x.RequestBody)
	o.HandleResponse(x.URL, x.ResponseHeader, data)
}

func (t *Tap) trace(x Exchange, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.Logger.Debug("trace writer panicked: %v", r)
		}
	}()
	if err := t.writeTrace(x, data); err != nil {
		t.Logger.Debug("trace write failed: %v", err)
	}
}

// writeTrace emits the URL, one "Name: values" line per response header
// (values run together, names sorted) and the raw body.
func (t *Tap) writeTrace(x Exchange, data []byte) error {
	var buf bytes.Buffer
	buf.WriteString(x.URL)
	buf.WriteByte('\n')

	names := make([]string, 0, len(x.ResponseHeader))
	for name := range x.ResponseHeader {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&buf, "%s: %s\n", name, strings.Join(x.ResponseHeader[name], ""))
	}

	buf.Write(data)
	buf.WriteByte('\n')
	_, err := t.Trace.Write(buf.Bytes())
	return err
}
