package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a row in ingestion_jobs: queued after
// a cold-start sub-path reaches a conflicted/low-confidence verdict
// (requires_human_alert), then resolved by an operator through
// pkg/admin's approve/reject RPCs.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusApproved JobStatus = "approved"
	JobStatusRejected JobStatus = "rejected"
)

// IngestionJob is one row of the ingestion_jobs table: spec §6's
// "store.ingestion_job.*" and app_additions/admin_pending_ui.py's job shape
// (job_id, source_url, requested_by, decision_reason, status).
type IngestionJob struct {
	JobID          string
	CurriculumID   string
	SourceURL      string
	RequestedBy    string
	DecisionReason string
	Status         JobStatus
	CreatedAt      time.Time
	DecidedAt      *time.Time
	DecidedBy      string
}

// SQLIngestionJobStore implements pkg/admin.JobStore over database/sql,
// sharing the sqlite/postgres dialect split with SQLVault.
type SQLIngestionJobStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLIngestionJobStore wraps an already-open, already-migrated
// connection. Callers own the connection's lifecycle.
func NewSQLIngestionJobStore(db *sql.DB, dialect Dialect) *SQLIngestionJobStore {
	return &SQLIngestionJobStore{db: db, dialect: dialect}
}

// Create enqueues a new pending review job, grounded on the orchestration
// graph's human_alert terminal state (spec §4.4): every conflicted
// Gatekeeper verdict or low-confidence Architect verdict lands one row
// here for the admin review loop to pick up.
func (s *SQLIngestionJobStore) Create(ctx context.Context, job IngestionJob) error {
	query := fmt.Sprintf(
		`INSERT INTO ingestion_jobs (job_id, curriculum_id, source_url, requested_by, decision_reason, status, created_at) VALUES (%s, %s, %s, %s, %s, %s, %s)`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
		s.dialect.Placeholder(4), s.dialect.Placeholder(5), s.dialect.Placeholder(6), s.dialect.Placeholder(7),
	)
	_, err := s.db.ExecContext(ctx, query, job.JobID, nullIfEmpty(job.CurriculumID), job.SourceURL, job.RequestedBy, job.DecisionReason, string(JobStatusPending), job.CreatedAt)
	if err != nil {
		return fmt.Errorf("database: create ingestion job: %w", err)
	}
	return nil
}

// ListPending returns every job still awaiting an operator decision,
// oldest first, matching the shape
// app_additions/admin_pending_ui.py's render_admin_dashboard iterates over.
func (s *SQLIngestionJobStore) ListPending(ctx context.Context) ([]IngestionJob, error) {
	query := fmt.Sprintf(`SELECT job_id, curriculum_id, source_url, requested_by, decision_reason, status, created_at, decided_at, decided_by FROM ingestion_jobs WHERE status = %s ORDER BY created_at ASC`, s.dialect.Placeholder(1))
	rows, err := s.db.QueryContext(ctx, query, string(JobStatusPending))
	if err != nil {
		return nil, fmt.Errorf("database: list pending ingestion jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []IngestionJob
	for rows.Next() {
		job, err := scanIngestionJob(rows)
		if err != nil {
			return nil, fmt.Errorf("database: scan ingestion job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Get fetches a single job by id, returning sql.ErrNoRows if absent.
func (s *SQLIngestionJobStore) Get(ctx context.Context, jobID string) (IngestionJob, error) {
	query := fmt.Sprintf(`SELECT job_id, curriculum_id, source_url, requested_by, decision_reason, status, created_at, decided_at, decided_by FROM ingestion_jobs WHERE job_id = %s`, s.dialect.Placeholder(1))
	row := s.db.QueryRowContext(ctx, query, jobID)
	return scanIngestionJob(row)
}

// Decide transitions a pending job to approved/rejected, recording who
// decided it and when. It is a conditional UPDATE (status = 'pending' in
// the WHERE clause) so a racing double-decision affects zero rows rather
// than silently overwriting an earlier decision.
func (s *SQLIngestionJobStore) Decide(ctx context.Context, jobID string, status JobStatus, decidedBy string, decidedAt time.Time) error {
	query := fmt.Sprintf(
		`UPDATE ingestion_jobs SET status = %s, decided_at = %s, decided_by = %s WHERE job_id = %s AND status = %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4), s.dialect.Placeholder(5),
	)
	res, err := s.db.ExecContext(ctx, query, string(status), decidedAt, decidedBy, jobID, string(JobStatusPending))
	if err != nil {
		return fmt.Errorf("database: decide ingestion job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("database: decide ingestion job: %w", err)
	}
	if n == 0 {
		return ErrJobNotPending
	}
	return nil
}

// ErrJobNotPending is returned by Decide when the job has already been
// decided (or never existed), preventing a second admin.approve/reject
// call from relitigating a closed job.
var ErrJobNotPending = fmt.Errorf("ingestion job is not pending")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngestionJob(row rowScanner) (IngestionJob, error) {
	var job IngestionJob
	var curriculumID, decidedBy sql.NullString
	var decidedAt sql.NullTime
	var status string
	if err := row.Scan(&job.JobID, &curriculumID, &job.SourceURL, &job.RequestedBy, &job.DecisionReason, &status, &job.CreatedAt, &decidedAt, &decidedBy); err != nil {
		return IngestionJob{}, err
	}
	job.CurriculumID = curriculumID.String
	job.Status = JobStatus(status)
	job.DecidedBy = decidedBy.String
	if decidedAt.Valid {
		t := decidedAt.Time
		job.DecidedAt = &t
	}
	return job, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
