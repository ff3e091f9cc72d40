package main

import (
	"context"
	"time"

	"github.com/curricle-systems/core/pkg/admin"
	"github.com/curricle-systems/core/pkg/database"
)

// adminJobStoreAdapter bridges pkg/database's concrete IngestionJob/JobStatus
// types onto pkg/admin's storage-agnostic JobStore seam, the same role
// cmd-level wiring already plays between pkg/database.SQLVault and
// pkg/orchestrator.Vault.
type adminJobStoreAdapter struct {
	store *database.SQLIngestionJobStore
}

func newAdminJobStoreAdapter(store *database.SQLIngestionJobStore) *adminJobStoreAdapter {
	return &adminJobStoreAdapter{store: store}
}

func (a *adminJobStoreAdapter) ListPending(ctx context.Context) ([]admin.PendingJob, error) {
	jobs, err := a.store.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]admin.PendingJob, len(jobs))
	for i, j := range jobs {
		out[i] = toPendingJob(j)
	}
	return out, nil
}

func (a *adminJobStoreAdapter) Get(ctx context.Context, jobID string) (admin.PendingJob, error) {
	j, err := a.store.Get(ctx, jobID)
	if err != nil {
		return admin.PendingJob{}, err
	}
	return toPendingJob(j), nil
}

func (a *adminJobStoreAdapter) Decide(ctx context.Context, jobID string, status admin.JobStatus, decidedBy string, decidedAt time.Time) error {
	return a.store.Decide(ctx, jobID, database.JobStatus(status), decidedBy, decidedAt)
}

func toPendingJob(j database.IngestionJob) admin.PendingJob {
	return admin.PendingJob{
		JobID:          j.JobID,
		CurriculumID:   j.CurriculumID,
		SourceURL:      j.SourceURL,
		RequestedBy:    j.RequestedBy,
		DecisionReason: j.DecisionReason,
		Status:         admin.JobStatus(j.Status),
		CreatedAt:      j.CreatedAt,
		DecidedAt:      j.DecidedAt,
		DecidedBy:      j.DecidedBy,
	}
}

// jobRecorderAdapter implements pkg/orchestrator.JobRecorder on top of the
// same ingestion-jobs store, so the graph's human_alert terminal state
// enqueues a row admin.list_pending_jobs will surface.
type jobRecorderAdapter struct {
	store *database.SQLIngestionJobStore
}

func newJobRecorderAdapter(store *database.SQLIngestionJobStore) *jobRecorderAdapter {
	return &jobRecorderAdapter{store: store}
}

func (j *jobRecorderAdapter) RecordPendingJob(ctx context.Context, requestID, curriculumID, sourceURL, errorCode, reason string) error {
	if sourceURL == "" {
		sourceURL = "unknown"
	}
	return j.store.Create(ctx, database.IngestionJob{
		JobID:          requestID,
		CurriculumID:   curriculumID,
		SourceURL:      sourceURL,
		RequestedBy:    "orchestrator",
		DecisionReason: errorCode + ": " + reason,
		Status:         database.JobStatusPending,
		CreatedAt:      time.Now().UTC(),
	})
}
