package core

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"bulkq/internal/session"
	"bulkq/util"
)

// ResultsMode writes result pages of a job to Out.  Without All it
// writes the single page at Locator and reports the next locator.
type ResultsMode struct {
	*Job
	JobID   string
	Locator string
	All     bool
}

func (m *ResultsMode) Run(ctx context.Context) error {
	defer m.Close()

	w := &pageWriter{out: m.out()}
	locator := m.Locator
	for {
		page, err := m.Session.GetResultPage(ctx, m.JobID, locator)
		if err != nil {
			return fmt.Errorf("results of job %s: %w", m.JobID, err)
		}
		err = w.write(ctx, page)
		page.Body.Close()
		if err != nil {
			return err
		}

		if !page.HasMore() {
			m.Logger.Verbose("%d records in %d pages", w.records, w.pages)
			return nil
		}
		if !m.All {
			m.Logger.Info("more results: bulkq results %s %s", m.JobID, page.Locator)
			return nil
		}
		locator = page.Locator
	}
}

// pageWriter concatenates CSV pages.  Every page repeats the header
// row; only the first one is written.
type pageWriter struct {
	out     io.Writer
	pages   int
	records int
}

func (w *pageWriter) write(ctx context.Context, page *session.ResultPage) error {
	var body io.Reader = page.Body
	if w.pages > 0 {
		br := bufio.NewReader(page.Body)
		if _, err := br.ReadString('\n'); err != nil && err != io.EOF {
			return fmt.Errorf("read page %d: %w", w.pages+1, err)
		}
		body = br
	}
	if _, err := util.CopyStream(ctx, w.out, body); err != nil {
		return fmt.Errorf("write page %d: %w", w.pages+1, err)
	}
	w.pages++
	w.records += page.RecordCount
	return nil
}
