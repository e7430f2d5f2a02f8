package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campusflow/server/internal/api/middleware"
	"github.com/campusflow/server/internal/audit"
	"github.com/campusflow/server/internal/auth"
	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngineStore backs a real engine with in-memory state, just
// enough for decision handling over HTTP.
type fakeEngineStore struct {
	approvals map[string]*approvals.Approval
	events    map[string]*approvals.Event
}

func newFakeEngineStore() *fakeEngineStore {
	return &fakeEngineStore{
		approvals: make(map[string]*approvals.Approval),
		events:    make(map[string]*approvals.Event),
	}
}

func (s *fakeEngineStore) InTx(ctx context.Context, fn func(ctx context.Context, tx approvals.Tx) error) error {
	return fn(ctx, s)
}

func (s *fakeEngineStore) GetApproval(ctx context.Context, id string) (*approvals.Approval, error) {
	if a, ok := s.approvals[id]; ok {
		clone := *a
		return &clone, nil
	}
	return nil, approvals.ErrNotFound
}

func (s *fakeEngineStore) ListPendingForApprover(ctx context.Context, approverID string) ([]approvals.Approval, error) {
	var pending []approvals.Approval
	for _, a := range s.approvals {
		if a.ApproverID == approverID && a.Status == approvals.ApprovalPending {
			pending = append(pending, *a)
		}
	}
	return pending, nil
}

func (s *fakeEngineStore) FindPendingApproval(ctx context.Context, eventID, approverID string) (*approvals.Approval, error) {
	for _, a := range s.approvals {
		if a.EventID == eventID && a.ApproverID == approverID && a.Status == approvals.ApprovalPending {
			clone := *a
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *fakeEngineStore) CreateApproval(ctx context.Context, params approvals.ApprovalCreateParams) (*approvals.Approval, error) {
	created := &approvals.Approval{
		ID:         "approval-created",
		EventID:    params.EventID,
		ApproverID: params.ApproverID,
		Role:       params.Role,
		Status:     approvals.ApprovalPending,
	}
	s.approvals[created.ID] = created
	clone := *created
	return &clone, nil
}

func (s *fakeEngineStore) RecordDecision(ctx context.Context, id string, status approvals.ApprovalStatus, comments string, signedAt time.Time) (*approvals.Approval, error) {
	approval, ok := s.approvals[id]
	if !ok {
		return nil, approvals.ErrNotFound
	}
	if approval.Status != approvals.ApprovalPending {
		return nil, approvals.ErrAlreadyDecided
	}
	approval.Status = status
	approval.Comments = comments
	approval.SignedAt = &signedAt
	clone := *approval
	return &clone, nil
}

func (s *fakeEngineStore) CountApprovals(ctx context.Context, eventID string, role approvals.Role, status approvals.ApprovalStatus) (int, error) {
	return 0, nil
}

func (s *fakeEngineStore) GetEventForUpdate(ctx context.Context, eventID string) (*approvals.Event, error) {
	if e, ok := s.events[eventID]; ok {
		clone := *e
		return &clone, nil
	}
	return nil, approvals.ErrEventNotFound
}

func (s *fakeEngineStore) UpdateEventStatus(ctx context.Context, eventID string, status approvals.EventStatus) error {
	if e, ok := s.events[eventID]; ok {
		e.Status = status
	}
	return nil
}

func (s *fakeEngineStore) FindActiveUsers(ctx context.Context, institutionID string, role approvals.Role, departmentID *string) ([]approvals.User, error) {
	return nil, nil
}

func (s *fakeEngineStore) CountActiveUsers(ctx context.Context, institutionID string, role approvals.Role, departmentID *string) (int, error) {
	return 0, nil
}

func (s *fakeEngineStore) ApprovalConfigRaw(ctx context.Context, institutionID string) ([]byte, error) {
	return nil, nil
}

func (s *fakeEngineStore) Append(ctx context.Context, entry audit.Entry) error {
	return nil
}

var _ approvals.Store = (*fakeEngineStore)(nil)
var _ approvals.Tx = (*fakeEngineStore)(nil)

func testJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("handler-test-secret", time.Hour, "campusflow-test")
}

func bearerFor(t *testing.T, manager *auth.JWTManager, userID, role string) string {
	t.Helper()
	token, err := manager.Generate(userID, role, "inst-1", "dept-1")
	require.NoError(t, err)
	return "Bearer " + token
}

// approvalMux routes the decision and listing endpoints behind real
// JWT authentication, mirroring the production wiring.
func approvalMux(store *fakeEngineStore, manager *auth.JWTManager) http.Handler {
	engine := approvals.NewEngine(store, nil, zerolog.Nop())
	handler := NewApprovalsHandler(engine, "test")
	authn := middleware.Authenticate(manager, "test")

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/approvals/{id}/approve", authn(http.HandlerFunc(handler.Approve)))
	mux.Handle("POST /api/v1/approvals/{id}/reject", authn(http.HandlerFunc(handler.Reject)))
	mux.Handle("GET /api/v1/approvals/mine", authn(http.HandlerFunc(handler.Mine)))
	return mux
}

func seedApproval(store *fakeEngineStore, id, approverID string, status approvals.ApprovalStatus) {
	store.approvals[id] = &approvals.Approval{
		ID:         id,
		EventID:    "event-1",
		ApproverID: approverID,
		Role:       approvals.RoleHOD,
		Status:     status,
	}
	store.events["event-1"] = &approvals.Event{
		ID:            "event-1",
		Title:         "Tech Symposium",
		Status:        approvals.StatusSubmitted,
		OrganizerID:   "organizer-1",
		InstitutionID: "inst-1",
		DepartmentID:  "dept-1",
	}
}

func TestApprove_RequiresToken(t *testing.T) {
	mux := approvalMux(newFakeEngineStore(), testJWTManager())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/approval-1/approve", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestApprove_OnlyAssignedApprover(t *testing.T) {
	store := newFakeEngineStore()
	seedApproval(store, "approval-1", "hod-1", approvals.ApprovalPending)
	manager := testJWTManager()
	mux := approvalMux(store, manager)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/approval-1/approve", nil)
	req.Header.Set("Authorization", bearerFor(t, manager, "intruder", "HOD"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, approvals.ApprovalPending, store.approvals["approval-1"].Status)
}

func TestApprove_UnknownApproval(t *testing.T) {
	manager := testJWTManager()
	mux := approvalMux(newFakeEngineStore(), manager)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/missing/approve", nil)
	req.Header.Set("Authorization", bearerFor(t, manager, "hod-1", "HOD"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApprove_RecordsDecision(t *testing.T) {
	store := newFakeEngineStore()
	seedApproval(store, "approval-1", "hod-1", approvals.ApprovalPending)
	manager := testJWTManager()
	mux := approvalMux(store, manager)

	body := strings.NewReader(`{"comments":"approved after review"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/approval-1/approve", body)
	req.Header.Set("Authorization", bearerFor(t, manager, "hod-1", "HOD"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, approvals.ApprovalApproved, store.approvals["approval-1"].Status)
	assert.Equal(t, "approved after review", store.approvals["approval-1"].Comments)
	assert.Equal(t, approvals.StatusHODApproved, store.events["event-1"].Status)
	assert.Contains(t, w.Body.String(), `"status":"APPROVED"`)
}

func TestReject_RecordsDecision(t *testing.T) {
	store := newFakeEngineStore()
	seedApproval(store, "approval-1", "hod-1", approvals.ApprovalPending)
	manager := testJWTManager()
	mux := approvalMux(store, manager)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/approval-1/reject", strings.NewReader(`{"comments":"no budget"}`))
	req.Header.Set("Authorization", bearerFor(t, manager, "hod-1", "HOD"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, approvals.ApprovalRejected, store.approvals["approval-1"].Status)
	assert.Equal(t, approvals.StatusRejected, store.events["event-1"].Status)
}

func TestApprove_AlreadyDecidedConflicts(t *testing.T) {
	store := newFakeEngineStore()
	seedApproval(store, "approval-1", "hod-1", approvals.ApprovalApproved)
	manager := testJWTManager()
	mux := approvalMux(store, manager)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/approval-1/approve", nil)
	req.Header.Set("Authorization", bearerFor(t, manager, "hod-1", "HOD"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMine_ListsOnlyCallersPending(t *testing.T) {
	store := newFakeEngineStore()
	seedApproval(store, "approval-1", "hod-1", approvals.ApprovalPending)
	store.approvals["approval-2"] = &approvals.Approval{
		ID: "approval-2", EventID: "event-1", ApproverID: "hod-2",
		Role: approvals.RoleHOD, Status: approvals.ApprovalPending,
	}
	store.approvals["approval-3"] = &approvals.Approval{
		ID: "approval-3", EventID: "event-1", ApproverID: "hod-1",
		Role: approvals.RoleHOD, Status: approvals.ApprovalApproved,
	}
	manager := testJWTManager()
	mux := approvalMux(store, manager)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/approvals/mine", nil)
	req.Header.Set("Authorization", bearerFor(t, manager, "hod-1", "HOD"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "approval-1")
	assert.NotContains(t, w.Body.String(), "approval-2")
	assert.NotContains(t, w.Body.String(), "approval-3")
}
