// Package admin implements the ingestion review loop's inbound RPCs (spec
// §6): admin.list_pending_jobs, admin.approve, admin.reject. It is the
// operator-facing counterpart to the orchestration graph's human_alert
// terminal state — every job here originates from a Gatekeeper conflict, a
// low-confidence Architect extraction, or any other route to human_alert
// (spec §4.4), and is grounded on
// app_additions/admin_pending_ui.py's job shape and action set.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/curricle-systems/core/pkg/escalation/ceremony"
	"github.com/curricle-systems/core/pkg/store"
)

// ErrJobNotFound is returned when an operator acts on an id the store has
// no record of.
var ErrJobNotFound = errors.New("admin: job not found")

// ErrHoldNotElapsed is returned when an operator attempts to decide a job
// before the ceremony's minimum hold time has passed since it was queued,
// a defense against reflexively rubber-stamping a review queue.
var ErrHoldNotElapsed = errors.New("admin: ceremony hold time not yet elapsed")

// JobStatus mirrors pkg/database.JobStatus without this package depending
// on the concrete sqlite/postgres store.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusApproved JobStatus = "approved"
	JobStatusRejected JobStatus = "rejected"
)

// PendingJob is the operator-facing view of an ingestion_jobs row —
// field-for-field what app_additions/admin_pending_ui.py renders per
// expander (job_id, source_url, requested_by, decision_reason).
type PendingJob struct {
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

// JobStore is the persistence seam this package depends on; pkg/database's
// SQLIngestionJobStore is the concrete implementation.
type JobStore interface {
	ListPending(ctx context.Context) ([]PendingJob, error)
	Get(ctx context.Context, jobID string) (PendingJob, error)
	Decide(ctx context.Context, jobID string, status JobStatus, decidedBy string, decidedAt time.Time) error
}

// Service implements the three admin RPCs spec §6 names.
type Service struct {
	jobs   JobStore
	audit  *store.AuditStore
	policy ceremony.CeremonyPolicy
	now    func() time.Time
}

// NewService wires a JobStore and an audit log (pkg/store.AuditStore,
// adapted into the admin decision log per DESIGN.md) into a Service.
// audit may be nil to skip decision logging (e.g. in tests that only
// exercise queue semantics).
func NewService(jobs JobStore, audit *store.AuditStore) *Service {
	return &Service{
		jobs:   jobs,
		audit:  audit,
		policy: ceremony.DefaultPolicy(),
		now:    time.Now,
	}
}

// WithPolicy overrides the ceremony policy (e.g. ceremony.StrictPolicy()
// for higher-risk deployments).
func (s *Service) WithPolicy(p ceremony.CeremonyPolicy) *Service {
	s.policy = p
	return s
}

// WithClock overrides the time source, for deterministic tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListPendingJobs implements admin.list_pending_jobs().
func (s *Service) ListPendingJobs(ctx context.Context) ([]PendingJob, error) {
	return s.jobs.ListPending(ctx)
}

// Approve implements admin.approve(job_id). It enforces the ceremony's
// minimum hold time (measured from job creation, since the RPC surface
// spec §6 defines carries no separate timelock-request payload) before
// accepting the decision, then appends an immutable audit entry.
func (s *Service) Approve(ctx context.Context, jobID, operatorID string) error {
	return s.decide(ctx, jobID, JobStatusApproved, operatorID, "admin.approve")
}

// Reject implements admin.reject(job_id).
func (s *Service) Reject(ctx context.Context, jobID, operatorID string) error {
	return s.decide(ctx, jobID, JobStatusRejected, operatorID, "admin.reject")
}

func (s *Service) decide(ctx context.Context, jobID string, status JobStatus, operatorID, action string) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJobNotFound, err)
	}
	if job.Status != JobStatusPending {
		return fmt.Errorf("admin: job %q already decided (%s)", jobID, job.Status)
	}

	now := s.now()
	if held := now.Sub(job.CreatedAt).Milliseconds(); held < s.policy.MinHoldMs {
		return ErrHoldNotElapsed
	}

	if err := s.jobs.Decide(ctx, jobID, status, operatorID, now); err != nil {
		return fmt.Errorf("admin: decide job %q: %w", jobID, err)
	}

	if s.audit != nil {
		_, _ = s.audit.Append(store.EntryTypeAdmission, jobID, action, map[string]string{
			"operator_id": operatorID,
			"source_url":  job.SourceURL,
			"status":      string(status),
		}, nil)
	}
	return nil
}
