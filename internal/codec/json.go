package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type jsonEncoding struct{}

func (jsonEncoding) Name() string        { return "json" }
func (jsonEncoding) ContentType() string { return ContentTypeJSON }

// jobRequest is the JSON job-creation body:
//
//	{"operation": "query", "query": "SELECT Id FROM Account"}
type jobRequest struct {
	Operation       string `json:"operation"`
	Query           string `json:"query"`
	ColumnDelimiter string `json:"columnDelimiter,omitempty"`
	LineEnding      string `json:"lineEnding,omitempty"`
}

func (jsonEncoding) EncodeJob(spec JobSpec) ([]byte, error) {
	spec = spec.WithDefaults()
	return marshalJSON(jobRequest{
		Operation:       spec.Operation,
		Query:           spec.Query,
		ColumnDelimiter: spec.ColumnDelimiter,
		LineEnding:      spec.LineEnding,
	})
}

func (jsonEncoding) EncodeState(state JobState) ([]byte, error) {
	return marshalJSON(struct {
		State JobState `json:"state"`
	}{state})
}

func (jsonEncoding) DecodeJobInfo(r io.Reader) (JobInfo, error) {
	var info JobInfo
	if err := json.NewDecoder(r).Decode(&info); err != nil {
		return JobInfo{}, fmt.Errorf("decode json job info: %w", err)
	}
	return info, nil
}

func (jsonEncoding) DecodeErrors(r io.Reader) ([]RemoteError, error) {
	var errs list[RemoteError]
	if err := json.NewDecoder(r).Decode(&errs); err != nil {
		return nil, fmt.Errorf("decode json error list: %w", err)
	}
	if len(errs) == 0 {
		return nil, ErrEmptyErrorList
	}
	return errs, nil
}

// marshalJSON encodes without HTML escaping; queries routinely contain
// '<' and '>'.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// list decodes either a JSON array or a single object into a slice.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var one T
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = list[T]{one}
		return nil
	}
	var many []T
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}
