package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/curricle-systems/core/pkg/auth"
	"github.com/curricle-systems/core/pkg/store"
)

func withAdminPrincipal(r *http.Request) *http.Request {
	p := &auth.BasePrincipal{ID: "operator-1", TenantID: "t1", Roles: []string{"admin"}}
	return r.WithContext(auth.WithPrincipal(r.Context(), p))
}

func TestHandlers_ListPendingJobs(t *testing.T) {
	jobs := newFakeJobStore(PendingJob{
		JobID: "job-1", SourceURL: "https://moe.gov.ng/bio.pdf", Status: JobStatusPending, CreatedAt: time.Now().UTC(),
	})
	h := NewHandlers(NewService(jobs, store.NewAuditStore()))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/pending_jobs", nil)
	w := httptest.NewRecorder()
	h.ListPendingJobs(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body pendingJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Jobs, 1)
}

func TestHandlers_Approve_RequiresPrincipal(t *testing.T) {
	h := NewHandlers(NewService(newFakeJobStore(), nil))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/approve", bytes.NewBufferString(`{"job_id":"job-1"}`))
	w := httptest.NewRecorder()
	h.Approve(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlers_Approve_RejectsNonAdminRole(t *testing.T) {
	h := NewHandlers(NewService(newFakeJobStore(), nil))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/approve", bytes.NewBufferString(`{"job_id":"job-1"}`))
	p := &auth.BasePrincipal{ID: "viewer-1", TenantID: "t1", Roles: []string{"viewer"}}
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	w := httptest.NewRecorder()
	h.Approve(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlers_Approve_Success(t *testing.T) {
	created := time.Now().UTC().Add(-time.Hour)
	jobs := newFakeJobStore(PendingJob{JobID: "job-1", Status: JobStatusPending, CreatedAt: created})
	h := NewHandlers(NewService(jobs, store.NewAuditStore()))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/approve", bytes.NewBufferString(`{"job_id":"job-1"}`))
	req = withAdminPrincipal(req)
	w := httptest.NewRecorder()
	h.Approve(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	j, err := jobs.Get(req.Context(), "job-1")
	require.NoError(t, err)
	require.Equal(t, JobStatusApproved, j.Status)
}

func TestHandlers_Approve_HoldNotElapsedReturnsConflict(t *testing.T) {
	jobs := newFakeJobStore(PendingJob{JobID: "job-1", Status: JobStatusPending, CreatedAt: time.Now().UTC()})
	h := NewHandlers(NewService(jobs, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/approve", bytes.NewBufferString(`{"job_id":"job-1"}`))
	req = withAdminPrincipal(req)
	w := httptest.NewRecorder()
	h.Approve(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestHandlers_Reject_MissingJobID(t *testing.T) {
	h := NewHandlers(NewService(newFakeJobStore(), nil))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/reject", bytes.NewBufferString(`{}`))
	req = withAdminPrincipal(req)
	w := httptest.NewRecorder()
	h.Reject(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_WrongMethod(t *testing.T) {
	h := NewHandlers(NewService(newFakeJobStore(), nil))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/pending_jobs", nil)
	w := httptest.NewRecorder()
	h.ListPendingJobs(w, req)

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
