package core

import (
	"context"
	"fmt"

	"bulkq/internal/codec"
)

// CreateMode submits a query job and prints the JobInfo the server
// returned.
type CreateMode struct {
	*Job
	Spec codec.JobSpec
}

func (m *CreateMode) Run(ctx context.Context) error {
	defer m.Close()

	info, err := m.Session.CreateJob(ctx, m.Spec)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	m.Logger.Info("job %s created", info.ID)
	return printJSON(m.out(), info)
}

// StatusMode prints the current JobInfo of a job.
type StatusMode struct {
	*Job
	JobID    string
	Encoding codec.Encoding // nil means JSON
}

func (m *StatusMode) Run(ctx context.Context) error {
	defer m.Close()

	info, err := m.Session.GetJobStatus(ctx, m.JobID, m.Encoding)
	if err != nil {
		return fmt.Errorf("status of job %s: %w", m.JobID, err)
	}
	return printJSON(m.out(), info)
}

// AbortMode aborts a job and prints its new JobInfo.
type AbortMode struct {
	*Job
	JobID string
}

func (m *AbortMode) Run(ctx context.Context) error {
	defer m.Close()

	info, err := m.Session.AbortJob(ctx, m.JobID)
	if err != nil {
		return fmt.Errorf("abort job %s: %w", m.JobID, err)
	}
	m.Logger.Info("job %s is %s", info.ID, info.State)
	return printJSON(m.out(), info)
}

// DeleteMode deletes a job.
type DeleteMode struct {
	*Job
	JobID string
}

func (m *DeleteMode) Run(ctx context.Context) error {
	defer m.Close()

	if err := m.Session.DeleteJob(ctx, m.JobID); err != nil {
		return fmt.Errorf("delete job %s: %w", m.JobID, err)
	}
	m.Logger.Info("job %s deleted", m.JobID)
	return nil
}
