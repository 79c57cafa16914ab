// Package core is the orchestration layer.  It composes the session
// client, transport and polling into complete commands and provides a
// builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  session  →  core  →  cmd (CLI)
//
// The builder in this package is the single dispatch point between the
// parsed configuration and the job operations.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	bqerr "bulkq/internal/errors"
	"bulkq/internal/session"
	"bulkq/util"
)

// Mode represents one bulkq command (create, status, results, run,
// abort or delete).  Each mode owns its Job and releases it when Run
// returns.
type Mode interface {
	Run(ctx context.Context) error
}

// Job is the wiring every mode shares: a session bound to the jobs
// endpoint and the writer output goes to.
type Job struct {
	Session *session.Session
	Logger  *util.Logger

	// Out defaults to os.Stdout when nil.  Override in tests for
	// deterministic output.
	Out io.Writer

	closers []io.Closer
}

func (j *Job) out() io.Writer {
	if j.Out != nil {
		return j.Out
	}
	return os.Stdout
}

// Close releases the transport and any files opened for the job, most
// recently opened first.
func (j *Job) Close() error {
	var errs []error
	for i := len(j.closers) - 1; i >= 0; i-- {
		if err := j.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	j.closers = nil
	return bqerr.Join(errs...)
}

func (j *Job) onClose(c io.Closer) {
	j.closers = append(j.closers, c)
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
