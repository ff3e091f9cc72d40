package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/curricle-systems/core/pkg/api"
	"github.com/curricle-systems/core/pkg/auth"
)

// Handlers exposes the three admin RPCs over HTTP, matching the routes
// app_additions/admin_pending_ui.py calls: GET /api/admin/pending_jobs,
// POST /api/admin/approve, POST /api/admin/reject. Mounting behind
// pkg/auth.NewMiddleware is the caller's responsibility; Approve and Reject
// require an admin-rolled principal already be present in context, while
// ListPendingJobs performs no principal check of its own.
type Handlers struct {
	svc *Service
}

// NewHandlers wraps a Service for HTTP mounting.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

type pendingJobsResponse struct {
	Jobs []PendingJob `json:"jobs"`
}

// ListPendingJobs serves GET /api/admin/pending_jobs.
func (h *Handlers) ListPendingJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteMethodNotAllowed(w)
		return
	}
	jobs, err := h.svc.ListPendingJobs(r.Context())
	if err != nil {
		api.WriteInternal(w, err)
		return
	}
	if jobs == nil {
		jobs = []PendingJob{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pendingJobsResponse{Jobs: jobs})
}

type decisionRequest struct {
	JobID string `json:"job_id"`
}

type decisionFunc func(ctx context.Context, jobID, operatorID string) error

// Approve serves POST /api/admin/approve.
func (h *Handlers) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.Approve)
}

// Reject serves POST /api/admin/reject.
func (h *Handlers) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.Reject)
}

// decide handles the shared approve/reject request shape: requires an
// admin-rolled principal, decodes {job_id}, and maps service errors onto
// the RFC 7807 responses spec §7's "user-visible behavior" calls for.
func (h *Handlers) decide(w http.ResponseWriter, r *http.Request, action decisionFunc) {
	if r.Method != http.MethodPost {
		api.WriteMethodNotAllowed(w)
		return
	}

	principal, err := auth.GetPrincipal(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, "operator identity required")
		return
	}
	if !principal.HasPermission("admin.ingestion_review") && !hasRole(principal, "admin") {
		api.WriteForbidden(w, "admin role required")
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
		api.WriteBadRequest(w, "job_id is required")
		return
	}

	if err := action(r.Context(), req.JobID, principal.GetID()); err != nil {
		switch {
		case errors.Is(err, ErrJobNotFound):
			api.WriteNotFound(w, err.Error())
		case errors.Is(err, ErrHoldNotElapsed):
			api.WriteConflict(w, err.Error())
		default:
			api.WriteBadRequest(w, err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"job_id": req.JobID, "status": "ok"})
}

func hasRole(p auth.Principal, role string) bool {
	for _, r := range p.GetRoles() {
		if r == role {
			return true
		}
	}
	return false
}
