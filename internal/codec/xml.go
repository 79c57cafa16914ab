package codec

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

type xmlEncoding struct{}

func (xmlEncoding) Name() string        { return "xml" }
func (xmlEncoding) ContentType() string { return ContentTypeXML }

// xmlJobRequest is the XML job-creation body:
//
//	<jobInfo xmlns="http://www.force.com/2009/06/asyncapi/dataload">
//	  <operation>query</operation>
//	  <object>Account</object>
//	  <query>SELECT Id FROM Account</query>
//	  <contentType>CSV</contentType>
//	</jobInfo>
type xmlJobRequest struct {
	XMLName         xml.Name `xml:"jobInfo"`
	Xmlns           string   `xml:"xmlns,attr"`
	Operation       string   `xml:"operation"`
	Object          string   `xml:"object,omitempty"`
	Query           string   `xml:"query"`
	ContentType     string   `xml:"contentType"`
	ColumnDelimiter string   `xml:"columnDelimiter,omitempty"`
	LineEnding      string   `xml:"lineEnding,omitempty"`
}

type xmlStateRequest struct {
	XMLName xml.Name `xml:"jobInfo"`
	Xmlns   string   `xml:"xmlns,attr"`
	State   JobState `xml:"state"`
}

type xmlJobInfo struct {
	XMLName xml.Name `xml:"jobInfo"`
	JobInfo
}

type xmlError struct {
	XMLName xml.Name `xml:"error"`
	RemoteError
}

type xmlErrorList struct {
	Errors []RemoteError `xml:"error"`
}

func (xmlEncoding) EncodeJob(spec JobSpec) ([]byte, error) {
	spec = spec.WithDefaults()
	return marshalXML(xmlJobRequest{
		Xmlns:           Namespace,
		Operation:       spec.Operation,
		Object:          spec.Object,
		Query:           spec.Query,
		ContentType:     spec.ContentType,
		ColumnDelimiter: spec.ColumnDelimiter,
		LineEnding:      spec.LineEnding,
	})
}

func (xmlEncoding) EncodeState(state JobState) ([]byte, error) {
	return marshalXML(xmlStateRequest{Xmlns: Namespace, State: state})
}

func (xmlEncoding) DecodeJobInfo(r io.Reader) (JobInfo, error) {
	var doc xmlJobInfo
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return JobInfo{}, fmt.Errorf("decode xml job info: %w", err)
	}
	return doc.JobInfo, nil
}

// DecodeErrors accepts a single <error> root or a wrapper element
// holding any number of <error> children.
func (xmlEncoding) DecodeErrors(r io.Reader) ([]RemoteError, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read xml error body: %w", err)
	}
	root, err := rootElement(data)
	if err != nil {
		return nil, fmt.Errorf("decode xml error body: %w", err)
	}

	var errs []RemoteError
	if root == "error" {
		var one xmlError
		if err := xml.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("decode xml error body: %w", err)
		}
		errs = []RemoteError{one.RemoteError}
	} else {
		var many xmlErrorList
		if err := xml.Unmarshal(data, &many); err != nil {
			return nil, fmt.Errorf("decode xml error list: %w", err)
		}
		errs = many.Errors
	}
	if len(errs) == 0 {
		return nil, ErrEmptyErrorList
	}
	return errs, nil
}

// rootElement returns the local name of the document's first element.
func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

func marshalXML(v any) ([]byte, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
