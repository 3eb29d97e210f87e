package leaverequests

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/pkg/config"
	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
	"github.com/plotvista/plotvista-backend/pkg/outbox"
	"github.com/plotvista/plotvista-backend/pkg/retry"
)

type stubLeaveRepo struct {
	rows map[uuid.UUID]*models.LeaveRequest
}

func newStubLeaveRepo() *stubLeaveRepo {
	return &stubLeaveRepo{rows: map[uuid.UUID]*models.LeaveRequest{}}
}

func (s *stubLeaveRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubLeaveRepo) Create(ctx context.Context, lr *models.LeaveRequest) error {
	clone := *lr
	clone.CreatedAt = time.Now().UTC()
	clone.UpdatedAt = clone.CreatedAt
	s.rows[lr.ID] = &clone
	return nil
}

func (s *stubLeaveRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.LeaveRequest, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *row
	return &clone, nil
}

func (s *stubLeaveRepo) List(ctx context.Context, filter ListFilter) ([]models.LeaveRequest, error) {
	var out []models.LeaveRequest
	for _, row := range s.rows {
		if filter.ManagerID != nil && row.ManagerID != *filter.ManagerID {
			continue
		}
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (s *stubLeaveRepo) HasOverlap(ctx context.Context, managerID uuid.UUID, start, end time.Time) (bool, error) {
	for _, row := range s.rows {
		if row.ManagerID != managerID || row.Status == enums.LeaveRequestRejected {
			continue
		}
		if !row.StartDate.After(end) && !row.EndDate.Before(start) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubLeaveRepo) MarkDecided(ctx context.Context, id uuid.UUID, status enums.LeaveRequestStatus, decidedBy uuid.UUID, reason *string, now time.Time) (bool, error) {
	row, ok := s.rows[id]
	if !ok || row.Status != enums.LeaveRequestPending {
		return false, nil
	}
	row.Status = status
	row.DecidedByID = &decidedBy
	row.DecisionReason = reason
	row.UpdatedAt = now
	return true, nil
}

type stubUsers struct {
	byID map[uuid.UUID]*models.User
}

func (s *stubUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type recordingOutboxRepo struct {
	events []*models.OutboxEvent
}

func (r *recordingOutboxRepo) Insert(ctx context.Context, tx *gorm.DB, event *models.OutboxEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingOutboxRepo) FetchUnpublished(ctx context.Context, limit int, maxAttempts int) ([]models.OutboxEvent, error) {
	return nil, nil
}

func (r *recordingOutboxRepo) MarkPublished(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

func (r *recordingOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	return nil
}

type leaveFixture struct {
	svc       Service
	repo      *stubLeaveRepo
	outboxLog *recordingOutboxRepo
	manager   *models.User
	admin     *models.User
}

func newLeaveFixture(t *testing.T) *leaveFixture {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "leaverequests-test", Output: io.Discard})
	leaveRepo := newStubLeaveRepo()
	outboxRepo := &recordingOutboxRepo{}
	manager := &models.User{ID: uuid.New(), Name: "m1", Email: "m1@example.com", Role: enums.RoleManager}
	admin := &models.User{ID: uuid.New(), Name: "a1", Email: "a1@example.com", Role: enums.RoleAdmin}

	svc, err := NewService(Deps{
		Repo:   leaveRepo,
		Users:  &stubUsers{byID: map[uuid.UUID]*models.User{manager.ID: manager, admin.ID: admin}},
		Outbox: outbox.NewService(outboxRepo, logg),
		Tx:     stubTxRunner{},
		Retry:  retry.NewPolicy(config.RetryConfig{}, logg),
		Logger: logg,
	})
	require.NoError(t, err)

	return &leaveFixture{svc: svc, repo: leaveRepo, outboxLog: outboxRepo, manager: manager, admin: admin}
}

func validLeave() SubmitDTO {
	start := time.Now().UTC().Add(7 * 24 * time.Hour)
	return SubmitDTO{
		StartDate: start.Format(dateLayout),
		EndDate:   start.Add(48 * time.Hour).Format(dateLayout),
		Reason:    "family event",
	}
}

func code(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	return typed.Code()
}

func TestLeaveSubmitCreatesPending(t *testing.T) {
	f := newLeaveFixture(t)

	created, err := f.svc.Submit(context.Background(), Actor{UserID: f.manager.ID, Role: enums.RoleManager}, validLeave())
	require.NoError(t, err)

	assert.Equal(t, enums.LeaveRequestPending, created.Status)
	assert.Equal(t, f.manager.ID, created.ManagerID)
	assert.Nil(t, created.DecisionReason)
	assert.Nil(t, created.DecidedByID)

	require.Len(t, f.outboxLog.events, 1)
	assert.Equal(t, enums.EventLeaveRequestSubmitted, f.outboxLog.events[0].EventType)
}

func TestLeaveSubmitValidation(t *testing.T) {
	f := newLeaveFixture(t)
	ctx := context.Background()
	actor := Actor{UserID: f.manager.ID, Role: enums.RoleManager}

	noReason := validLeave()
	noReason.Reason = " "
	_, err := f.svc.Submit(ctx, actor, noReason)
	assert.Equal(t, pkgerrors.CodeValidation, code(t, err))

	inverted := validLeave()
	inverted.EndDate = "2026-01-01"
	_, err = f.svc.Submit(ctx, actor, inverted)
	assert.Equal(t, pkgerrors.CodeValidation, code(t, err))

	past := validLeave()
	past.StartDate = "2020-01-01"
	past.EndDate = "2020-01-02"
	_, err = f.svc.Submit(ctx, actor, past)
	assert.Equal(t, pkgerrors.CodeValidation, code(t, err))

	_, err = f.svc.Submit(ctx, Actor{UserID: f.admin.ID, Role: enums.RoleAdmin}, validLeave())
	assert.Equal(t, pkgerrors.CodeForbidden, code(t, err))

	assert.Empty(t, f.repo.rows)
}

func TestLeaveSubmitRejectsOverlap(t *testing.T) {
	f := newLeaveFixture(t)
	ctx := context.Background()
	actor := Actor{UserID: f.manager.ID, Role: enums.RoleManager}

	_, err := f.svc.Submit(ctx, actor, validLeave())
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, actor, validLeave())
	assert.Equal(t, pkgerrors.CodeConflict, code(t, err))
}

func TestLeaveApproveOnlyAdmin(t *testing.T) {
	f := newLeaveFixture(t)
	ctx := context.Background()

	created, err := f.svc.Submit(ctx, Actor{UserID: f.manager.ID, Role: enums.RoleManager}, validLeave())
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, created.ID, Actor{UserID: f.manager.ID, Role: enums.RoleManager})
	assert.Equal(t, pkgerrors.CodeForbidden, code(t, err))

	approved, err := f.svc.Approve(ctx, created.ID, Actor{UserID: f.admin.ID, Role: enums.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, enums.LeaveRequestApproved, approved.Status)
	require.NotNil(t, approved.DecidedByID)
	assert.Equal(t, f.admin.ID, *approved.DecidedByID)

	require.Len(t, f.outboxLog.events, 2)
	assert.Equal(t, enums.EventLeaveRequestDecided, f.outboxLog.events[1].EventType)
}

func TestLeaveRejectRequiresReason(t *testing.T) {
	f := newLeaveFixture(t)
	ctx := context.Background()

	created, err := f.svc.Submit(ctx, Actor{UserID: f.manager.ID, Role: enums.RoleManager}, validLeave())
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, created.ID, Actor{UserID: f.admin.ID, Role: enums.RoleAdmin}, "")
	assert.Equal(t, pkgerrors.CodeValidation, code(t, err))

	rejected, err := f.svc.Reject(ctx, created.ID, Actor{UserID: f.admin.ID, Role: enums.RoleAdmin}, "coverage gap")
	require.NoError(t, err)
	assert.Equal(t, enums.LeaveRequestRejected, rejected.Status)
	require.NotNil(t, rejected.DecisionReason)
	assert.Equal(t, "coverage gap", *rejected.DecisionReason)
}

func TestLeaveDecisionIsSingleShot(t *testing.T) {
	f := newLeaveFixture(t)
	ctx := context.Background()

	created, err := f.svc.Submit(ctx, Actor{UserID: f.manager.ID, Role: enums.RoleManager}, validLeave())
	require.NoError(t, err)

	admin := Actor{UserID: f.admin.ID, Role: enums.RoleAdmin}
	_, err = f.svc.Approve(ctx, created.ID, admin)
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, created.ID, admin, "changed my mind")
	assert.Equal(t, pkgerrors.CodeStateConflict, code(t, err))
}

func TestLeaveGetScopedToOwner(t *testing.T) {
	f := newLeaveFixture(t)
	ctx := context.Background()

	created, err := f.svc.Submit(ctx, Actor{UserID: f.manager.ID, Role: enums.RoleManager}, validLeave())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, created.ID, Actor{UserID: uuid.New(), Role: enums.RoleManager})
	assert.Equal(t, pkgerrors.CodeForbidden, code(t, err))

	got, err := f.svc.Get(ctx, created.ID, Actor{UserID: f.admin.ID, Role: enums.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestLeaveListScoping(t *testing.T) {
	f := newLeaveFixture(t)
	ctx := context.Background()

	created, err := f.svc.Submit(ctx, Actor{UserID: f.manager.ID, Role: enums.RoleManager}, validLeave())
	require.NoError(t, err)

	own, err := f.svc.List(ctx, ListParams{Viewer: Actor{UserID: f.manager.ID, Role: enums.RoleManager}})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, created.ID, own[0].ID)

	other, err := f.svc.List(ctx, ListParams{Viewer: Actor{UserID: uuid.New(), Role: enums.RoleManager}})
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = f.svc.List(ctx, ListParams{Viewer: Actor{UserID: f.admin.ID, Role: enums.RoleAdmin}, Status: "bogus"})
	assert.Equal(t, pkgerrors.CodeValidation, code(t, err))

	all, err := f.svc.List(ctx, ListParams{
		Viewer: Actor{UserID: f.admin.ID, Role: enums.RoleAdmin},
		Status: string(enums.LeaveRequestPending),
	})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
