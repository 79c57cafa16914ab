package core

import (
	"context"
	"fmt"
	"time"

	"bulkq/internal/codec"
	bqerr "bulkq/internal/errors"
	"bulkq/internal/retry"
	"bulkq/internal/session"
)

// abandonTimeout bounds the abort sent when a run is cancelled.
const abandonTimeout = 10 * time.Second

// JobFailedError reports a job that finished without results.
type JobFailedError struct {
	ID      string
	State   codec.JobState
	Message string
}

func (e *JobFailedError) Error() string {
	msg := fmt.Sprintf("job %s ended %s", e.ID, e.State)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// RunMode creates a job, polls it to a terminal state and streams every
// result page to Out.  If ctx is cancelled while the job is still
// running, the job is aborted.
type RunMode struct {
	*Job
	Spec           codec.JobSpec
	StatusEncoding codec.Encoding // nil means JSON

	// Poller paces status checks; Retry re-issues a status call that
	// failed with a retryable error.  Nil means the defaults.
	Poller *retry.Poller
	Retry  *retry.Backoff

	DeleteAfter bool
}

func (m *RunMode) Run(ctx context.Context) error {
	defer m.Close()

	created, err := m.Session.CreateJob(ctx, m.Spec)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	m.Logger.Info("job %s created, waiting for completion", created.ID)

	final, err := m.wait(ctx, created.ID)
	if err != nil {
		if ctx.Err() != nil {
			m.abandon(created.ID)
		}
		return fmt.Errorf("wait for job %s: %w", created.ID, err)
	}
	if final.State != codec.StateJobComplete {
		return &JobFailedError{ID: final.ID, State: final.State, Message: final.ErrorMessage}
	}
	m.Logger.Verbose("job %s complete: %d records processed", final.ID, final.NumberRecordsProcessed)

	w := &pageWriter{out: m.out()}
	err = m.Session.ForEachPage(ctx, created.ID, func(page *session.ResultPage) error {
		return w.write(ctx, page)
	})
	if err != nil {
		return fmt.Errorf("results of job %s: %w", created.ID, err)
	}
	m.Logger.Info("job %s: %d records in %d pages", created.ID, w.records, w.pages)

	if m.DeleteAfter {
		if err := m.Session.DeleteJob(ctx, created.ID); err != nil {
			return fmt.Errorf("delete job %s: %w", created.ID, err)
		}
		m.Logger.Verbose("job %s deleted", created.ID)
	}
	return nil
}

// wait polls the job until it reaches a terminal state.
func (m *RunMode) wait(ctx context.Context, jobID string) (codec.JobInfo, error) {
	poller := m.Poller
	if poller == nil {
		poller = retry.DefaultPoller()
	}
	backoff := m.Retry
	if backoff == nil {
		backoff = retry.DefaultBackoff()
	}

	var info codec.JobInfo
	err := poller.Until(ctx, func(poll int) (bool, error) {
		err := backoff.Do(ctx, func(attempt int) error {
			got, err := m.Session.GetJobStatus(ctx, jobID, m.StatusEncoding)
			if err != nil {
				if !bqerr.IsRetryable(err) {
					return retry.Permanent(err)
				}
				m.Logger.Warn("status attempt %d for job %s: %v", attempt, jobID, err)
				return err
			}
			info = got
			return nil
		})
		if err != nil {
			return false, err
		}
		m.Logger.Verbose("poll %d: job %s is %s (%d records processed)",
			poll, jobID, info.State, info.NumberRecordsProcessed)
		return info.State.Terminal(), nil
	})
	return info, err
}

// abandon aborts a job the caller stopped waiting for.  It runs on its
// own deadline because ctx is already done.
func (m *RunMode) abandon(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), abandonTimeout)
	defer cancel()

	if _, err := m.Session.AbortJob(ctx, jobID); err != nil {
		m.Logger.Warn("could not abort job %s: %v", jobID, err)
		return
	}
	m.Logger.Warn("job %s aborted", jobID)
}
