// Package codec converts job descriptions, job status documents and
// error bodies to and from their wire form.
//
// Each wire format is one Encoding strategy.  A call picks its strategy
// once (from configuration or from a response's Content-Type) and every
// encode/decode step of that call goes through it, so adding a format
// means adding one implementation rather than another branch in the
// session code.
package codec

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// HTTP media types.
const (
	ContentTypeXML  = "application/xml"
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

// Namespace is the XML namespace of job documents.
const Namespace = "http://www.force.com/2009/06/asyncapi/dataload"

// ErrEmptyErrorList is returned when an error body decodes to no errors.
var ErrEmptyErrorList = errors.New("error body contains no errors")

// Encoding is one wire representation of the job protocol.
type Encoding interface {
	// Name is the configuration name: "json" or "xml".
	Name() string

	// ContentType is the media type sent with requests.
	ContentType() string

	// EncodeJob renders a job-creation request body.
	EncodeJob(spec JobSpec) ([]byte, error)

	// EncodeState renders a job state-change request body.
	EncodeState(state JobState) ([]byte, error)

	// DecodeJobInfo reads a job-creation or job-status response.
	DecodeJobInfo(r io.Reader) (JobInfo, error)

	// DecodeErrors reads an error body.  The result is never empty
	// when err is nil.
	DecodeErrors(r io.Reader) ([]RemoteError, error)
}

// Shared strategy instances.  Both are stateless.
var (
	JSON Encoding = jsonEncoding{}
	XML  Encoding = xmlEncoding{}
)

// ByName returns the strategy for a configuration name.
func ByName(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON, nil
	case "xml":
		return XML, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q (want json or xml)", name)
	}
}

// ForContentType picks the strategy for decoding a response body from
// its Content-Type header.  Anything that is not XML is read as JSON.
func ForContentType(header string) Encoding {
	if strings.Contains(strings.ToLower(header), ContentTypeXML) {
		return XML
	}
	return JSON
}
