package events

import (
	"context"
	"testing"
	"time"

	"github.com/campusflow/server/internal/audit"
	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	created     []CreateParams
	events      map[string]*Event
	listResult  ListResult
	listFilters Filters
	listPaging  Pagination
	report      []Event
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{events: make(map[string]*Event)}
}

func (r *fakeRepo) Create(ctx context.Context, params CreateParams) (*Event, error) {
	r.created = append(r.created, params)
	event := &Event{
		ID:            "event-1",
		Title:         params.Title,
		Description:   params.Description,
		Location:      params.Location,
		StartDate:     params.StartDate,
		EndDate:       params.EndDate,
		Status:        approvals.StatusSubmitted,
		OrganizerID:   params.OrganizerID,
		InstitutionID: params.InstitutionID,
		DepartmentID:  params.DepartmentID,
	}
	r.events[event.ID] = event
	return event, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*Event, error) {
	if event, ok := r.events[id]; ok {
		return event, nil
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) List(ctx context.Context, filters Filters, pagination Pagination) (ListResult, error) {
	r.listFilters = filters
	r.listPaging = pagination
	return r.listResult, nil
}

func (r *fakeRepo) Update(ctx context.Context, id string, params UpdateParams) (*Event, error) {
	event, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	if params.Title != nil {
		event.Title = *params.Title
	}
	if params.Description != nil {
		event.Description = *params.Description
	}
	return event, nil
}

func (r *fakeRepo) SoftDelete(ctx context.Context, id string) error {
	if _, ok := r.events[id]; !ok {
		return ErrNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *fakeRepo) Report(ctx context.Context, filters Filters) ([]Event, error) {
	return r.report, nil
}

type fakeDirectory struct {
	hods []approvals.User
}

func (d *fakeDirectory) FindActiveUsers(ctx context.Context, institutionID string, role approvals.Role, departmentID *string) ([]approvals.User, error) {
	if role == approvals.RoleHOD {
		return d.hods, nil
	}
	return nil, nil
}

// fakeApprovalStore records the approval requests the engine opens at
// submission.
type fakeApprovalStore struct {
	created []approvals.ApprovalCreateParams
}

func (s *fakeApprovalStore) InTx(ctx context.Context, fn func(ctx context.Context, tx approvals.Tx) error) error {
	return fn(ctx, s)
}

func (s *fakeApprovalStore) GetApproval(ctx context.Context, id string) (*approvals.Approval, error) {
	return nil, approvals.ErrNotFound
}

func (s *fakeApprovalStore) ListPendingForApprover(ctx context.Context, approverID string) ([]approvals.Approval, error) {
	return nil, nil
}

func (s *fakeApprovalStore) FindPendingApproval(ctx context.Context, eventID, approverID string) (*approvals.Approval, error) {
	return nil, nil
}

func (s *fakeApprovalStore) CreateApproval(ctx context.Context, params approvals.ApprovalCreateParams) (*approvals.Approval, error) {
	s.created = append(s.created, params)
	return &approvals.Approval{
		ID:         "approval-1",
		EventID:    params.EventID,
		ApproverID: params.ApproverID,
		Role:       params.Role,
		Status:     approvals.ApprovalPending,
	}, nil
}

func (s *fakeApprovalStore) RecordDecision(ctx context.Context, id string, status approvals.ApprovalStatus, comments string, signedAt time.Time) (*approvals.Approval, error) {
	return nil, approvals.ErrNotFound
}

func (s *fakeApprovalStore) CountApprovals(ctx context.Context, eventID string, role approvals.Role, status approvals.ApprovalStatus) (int, error) {
	return 0, nil
}

func (s *fakeApprovalStore) GetEventForUpdate(ctx context.Context, eventID string) (*approvals.Event, error) {
	return nil, approvals.ErrEventNotFound
}

func (s *fakeApprovalStore) UpdateEventStatus(ctx context.Context, eventID string, status approvals.EventStatus) error {
	return nil
}

func (s *fakeApprovalStore) FindActiveUsers(ctx context.Context, institutionID string, role approvals.Role, departmentID *string) ([]approvals.User, error) {
	return nil, nil
}

func (s *fakeApprovalStore) CountActiveUsers(ctx context.Context, institutionID string, role approvals.Role, departmentID *string) (int, error) {
	return 0, nil
}

func (s *fakeApprovalStore) ApprovalConfigRaw(ctx context.Context, institutionID string) ([]byte, error) {
	return nil, nil
}

func (s *fakeApprovalStore) Append(ctx context.Context, entry audit.Entry) error {
	return nil
}

func newTestService(repo *fakeRepo, directory *fakeDirectory) (*Service, *fakeApprovalStore) {
	store := &fakeApprovalStore{}
	engine := approvals.NewEngine(store, nil, zerolog.Nop())
	return NewService(repo, engine, directory, zerolog.Nop()), store
}

func validParams() CreateParams {
	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	return CreateParams{
		Title:         "Research Colloquium",
		Description:   "Annual research presentations.",
		Location:      "Main Auditorium",
		StartDate:     start,
		EndDate:       start.Add(8 * time.Hour),
		OrganizerID:   "organizer-1",
		InstitutionID: "inst-1",
		DepartmentID:  "dept-1",
	}
}

func TestSubmit_OpensFirstStageApproval(t *testing.T) {
	repo := newFakeRepo()
	directory := &fakeDirectory{hods: []approvals.User{{ID: "hod-1"}}}
	service, store := newTestService(repo, directory)

	event, err := service.Submit(context.Background(), validParams())
	require.NoError(t, err)
	assert.Equal(t, approvals.StatusSubmitted, event.Status)

	require.Len(t, store.created, 1)
	assert.Equal(t, event.ID, store.created[0].EventID)
	assert.Equal(t, "hod-1", store.created[0].ApproverID)
	assert.Equal(t, approvals.RoleHOD, store.created[0].Role)
}

func TestSubmit_NoActiveHODStallsWithoutError(t *testing.T) {
	repo := newFakeRepo()
	service, store := newTestService(repo, &fakeDirectory{})

	event, err := service.Submit(context.Background(), validParams())
	require.NoError(t, err)
	assert.NotNil(t, event)
	assert.Empty(t, store.created)
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*CreateParams)
		wantField string
	}{
		{"empty title", func(p *CreateParams) { p.Title = "" }, "title"},
		{"whitespace title", func(p *CreateParams) { p.Title = "   " }, "title"},
		{"tag-only title", func(p *CreateParams) { p.Title = "<script>x()</script>" }, "title"},
		{"missing organizer", func(p *CreateParams) { p.OrganizerID = "" }, "organizerId"},
		{"missing institution", func(p *CreateParams) { p.InstitutionID = "" }, "institutionId"},
		{"missing department", func(p *CreateParams) { p.DepartmentID = "" }, "departmentId"},
		{"missing dates", func(p *CreateParams) { p.StartDate, p.EndDate = time.Time{}, time.Time{} }, "startDate"},
		{"end before start", func(p *CreateParams) { p.EndDate = p.StartDate.Add(-time.Hour) }, "endDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			service, _ := newTestService(repo, &fakeDirectory{})

			params := validParams()
			tt.mutate(&params)

			_, err := service.Submit(context.Background(), params)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Empty(t, repo.created)
		})
	}
}

func TestSubmit_SanitizesInput(t *testing.T) {
	repo := newFakeRepo()
	directory := &fakeDirectory{hods: []approvals.User{{ID: "hod-1"}}}
	service, _ := newTestService(repo, directory)

	params := validParams()
	params.Title = "Open Day <b>2026</b>"
	params.Description = `<p>Welcome</p><script>steal()</script>`

	event, err := service.Submit(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "Open Day 2026", event.Title)
	assert.NotContains(t, event.Description, "<script>")
	assert.Contains(t, event.Description, "<p>Welcome</p>")
}

func TestList_ClampsPagination(t *testing.T) {
	repo := newFakeRepo()
	service, _ := newTestService(repo, &fakeDirectory{})

	_, err := service.List(context.Background(), Filters{}, Pagination{Page: -3, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listPaging.Page)
	assert.Equal(t, 10, repo.listPaging.Limit)
}

func TestUpdate_RejectsEmptyTitle(t *testing.T) {
	repo := newFakeRepo()
	service, _ := newTestService(repo, &fakeDirectory{})

	empty := "  "
	_, err := service.Update(context.Background(), "event-1", UpdateParams{Title: &empty})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
}

func TestUpdate_RejectsReversedDates(t *testing.T) {
	repo := newFakeRepo()
	service, _ := newTestService(repo, &fakeDirectory{})

	start := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := service.Update(context.Background(), "event-1", UpdateParams{StartDate: &start, EndDate: &end})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "endDate", verr.Field)
}

func TestReport_CountsByStatus(t *testing.T) {
	repo := newFakeRepo()
	repo.report = []Event{
		{ID: "a", Status: approvals.StatusApproved},
		{ID: "b", Status: approvals.StatusApproved},
		{ID: "c", Status: approvals.StatusRejected},
		{ID: "d", Status: approvals.StatusSubmitted},
	}
	service, _ := newTestService(repo, &fakeDirectory{})

	result, err := service.Report(context.Background(), Filters{})
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalEvents)
	assert.Equal(t, 2, result.StatusCounts[approvals.StatusApproved])
	assert.Equal(t, 1, result.StatusCounts[approvals.StatusRejected])
	assert.Equal(t, 1, result.StatusCounts[approvals.StatusSubmitted])
}

func TestPages(t *testing.T) {
	assert.Equal(t, 0, ListResult{Total: 10, Limit: 0}.Pages())
	assert.Equal(t, 1, ListResult{Total: 10, Limit: 10}.Pages())
	assert.Equal(t, 2, ListResult{Total: 11, Limit: 10}.Pages())
	assert.Equal(t, 0, ListResult{Total: 0, Limit: 10}.Pages())
}
