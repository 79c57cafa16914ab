package codec

import (
	"strings"
	"time"
)

// Job result encodings.  Only CSV query jobs are accepted today.
const (
	JobContentCSV = "CSV"
)

// Job operations a query job may request.
const (
	OperationQuery    = "query"
	OperationQueryAll = "queryAll"
)

// JobSpec is the caller's description of a job to create.
type JobSpec struct {
	Object          string
	Query           string
	Operation       string // defaults to "query"
	ContentType     string // result encoding, defaults to CSV
	ColumnDelimiter string // optional, e.g. "COMMA", "TAB"
	LineEnding      string // optional, "LF" or "CRLF"
}

// WithDefaults fills in the operation and content type.
func (s JobSpec) WithDefaults() JobSpec {
	if strings.TrimSpace(s.Operation) == "" {
		s.Operation = OperationQuery
	}
	if strings.TrimSpace(s.ContentType) == "" {
		s.ContentType = JobContentCSV
	}
	return s
}

// JobState is the server-owned job status.  The client round-trips it
// without validating transitions.
type JobState string

const (
	StateOpen           JobState = "Open"
	StateUploadComplete JobState = "UploadComplete"
	StateInProgress     JobState = "InProgress"
	StateJobComplete    JobState = "JobComplete"
	StateFailed         JobState = "Failed"
	StateAborted        JobState = "Aborted"
)

// Terminal reports whether the job will not change state again.  Only
// pollers use it.
func (s JobState) Terminal() bool {
	switch s {
	case StateJobComplete, StateFailed, StateAborted:
		return true
	}
	return false
}

// JobInfo is a decoded job-creation or job-status document.
type JobInfo struct {
	ID                     string    `json:"id" xml:"id"`
	Operation              string    `json:"operation" xml:"operation"`
	Object                 string    `json:"object" xml:"object"`
	CreatedByID            string    `json:"createdById,omitempty" xml:"createdById,omitempty"`
	CreatedDate            Timestamp `json:"createdDate" xml:"createdDate,omitempty"`
	SystemModstamp         Timestamp `json:"systemModstamp" xml:"systemModstamp,omitempty"`
	State                  JobState  `json:"state" xml:"state"`
	ConcurrencyMode        string    `json:"concurrencyMode,omitempty" xml:"concurrencyMode,omitempty"`
	ContentType            string    `json:"contentType,omitempty" xml:"contentType,omitempty"`
	APIVersion             float64   `json:"apiVersion,omitempty" xml:"apiVersion,omitempty"`
	LineEnding             string    `json:"lineEnding,omitempty" xml:"lineEnding,omitempty"`
	ColumnDelimiter        string    `json:"columnDelimiter,omitempty" xml:"columnDelimiter,omitempty"`
	NumberRecordsProcessed int64     `json:"numberRecordsProcessed,omitempty" xml:"numberRecordsProcessed,omitempty"`
	Retries                int       `json:"retries,omitempty" xml:"retries,omitempty"`
	TotalProcessingTime    int64     `json:"totalProcessingTime,omitempty" xml:"totalProcessingTime,omitempty"`
	ErrorMessage           string    `json:"errorMessage,omitempty" xml:"errorMessage,omitempty"`
}

// RemoteError is one entry of a server error body.
type RemoteError struct {
	Code    string `json:"errorCode" xml:"exceptionCode"`
	Message string `json:"message" xml:"exceptionMessage"`
}

// ── Timestamps ───────────────────────────────────────────────────────

// gmt is the fixed zone every decoded timestamp is expressed in, so
// decoded values do not depend on the host's local zone.
var gmt = time.FixedZone("GMT", 0)

// wireLayout is the server's timestamp format.
const wireLayout = "2006-01-02T15:04:05.000-0700"

var timeLayouts = []string{
	wireLayout,
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
}

// Timestamp is a server date-time normalised to GMT.  It implements
// encoding.TextMarshaler so JSON and XML share the same rules.  The
// time is a named field: embedding would promote time.Time's own JSON
// methods over the text ones.
type Timestamp struct {
	Time time.Time
}

// IsZero reports whether the timestamp was absent.
func (t Timestamp) IsZero() bool { return t.Time.IsZero() }

// ParseTimestamp parses any accepted server layout and returns the
// instant in GMT.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Timestamp{Time: t.In(gmt)}, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return Timestamp{}, firstErr
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Timestamp) UnmarshalText(b []byte) error {
	ts, err := ParseTimestamp(string(b))
	if err != nil {
		return err
	}
	*t = ts
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (t Timestamp) MarshalText() ([]byte, error) {
	if t.IsZero() {
		return []byte{}, nil
	}
	return []byte(t.Time.In(gmt).Format(wireLayout)), nil
}
