package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"bulkq/internal/codec"
	bqerr "bulkq/internal/errors"
)

// ResultPage is one page of CSV results.  The caller must close Body.
type ResultPage struct {
	Body        io.ReadCloser
	Locator     string // "" when this is the last page
	RecordCount int
}

// HasMore reports whether another page follows.
func (p *ResultPage) HasMore() bool { return p.Locator != "" }

// GetResultPage fetches the page of results at locator ("" or "null"
// for the first page).  On success st records the next locator and this
// page's record count; on any error st is left as it was.
//
// The body is streamed unless a diagnostic tap is active on the sender.
func (c *Client) GetResultPage(ctx context.Context, st *State, jobID, locator string) (*ResultPage, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, bqerr.ErrMissingJobID
	}

	resp, err := c.do(ctx, st, http.MethodGet, c.resultsURL(jobID, locator), codec.ContentTypeCSV, nil)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, c.failure(resp)
	}

	count, err := parseRecordCount(resp.Header.Get(HeaderRecordCount))
	if err != nil {
		resp.Body.Close()
		perr := &bqerr.ResponseParseError{What: HeaderRecordCount + " header", Status: resp.Status, Err: err}
		c.metrics.RecordError(perr.Error())
		return nil, perr
	}
	next := normalizeLocator(resp.Header.Get(HeaderLocator))

	st.advance(next, count)
	c.metrics.PageFetched(int64(count))
	c.logger.Debug("job %s: page with %d records, next locator %q", jobID, count, next)

	return &ResultPage{Body: resp.Body, Locator: next, RecordCount: count}, nil
}

// ForEachPage walks every result page of a job starting at the first,
// calling fn for each.  fn must not retain page.Body; it is closed when
// fn returns.  Walking stops at the first error.
func (c *Client) ForEachPage(ctx context.Context, st *State, jobID string, fn func(page *ResultPage) error) error {
	locator := ""
	for {
		page, err := c.GetResultPage(ctx, st, jobID, locator)
		if err != nil {
			return err
		}
		err = fn(page)
		page.Body.Close()
		if err != nil {
			return err
		}
		if !page.HasMore() {
			return nil
		}
		locator = page.Locator
	}
}

// hasLocator reports whether locator points past the first page.
func hasLocator(locator string) bool {
	return normalizeLocator(locator) != ""
}

// normalizeLocator maps an absent or literal "null" locator to "".
func normalizeLocator(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, locatorEndOfResults) {
		return ""
	}
	return v
}

func parseRecordCount(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("header is missing")
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative record count %d", n)
	}
	return n, nil
}
