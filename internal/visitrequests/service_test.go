package visitrequests

import (
	"context"
	"io"
	"sort"
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

type stubVisitRepo struct {
	rows map[uuid.UUID]*models.VisitRequest
}

func newStubVisitRepo() *stubVisitRepo {
	return &stubVisitRepo{rows: map[uuid.UUID]*models.VisitRequest{}}
}

func (s *stubVisitRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubVisitRepo) Create(ctx context.Context, vr *models.VisitRequest) error {
	clone := *vr
	clone.CreatedAt = time.Now().UTC()
	clone.UpdatedAt = clone.CreatedAt
	s.rows[vr.ID] = &clone
	vr.CreatedAt = clone.CreatedAt
	vr.UpdatedAt = clone.UpdatedAt
	return nil
}

func (s *stubVisitRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.VisitRequest, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *row
	return &clone, nil
}

func (s *stubVisitRepo) List(ctx context.Context, filter ListFilter) ([]models.VisitRequest, error) {
	var out []models.VisitRequest
	for _, row := range s.rows {
		switch {
		case filter.AssignedManagerID != nil:
			if row.AssignedManagerID == nil || *row.AssignedManagerID != *filter.AssignedManagerID {
				continue
			}
		case filter.UserID != nil && filter.Email != "":
			matchUser := row.UserID != nil && *row.UserID == *filter.UserID
			if !matchUser && row.Email != filter.Email {
				continue
			}
		case filter.UserID != nil:
			if row.UserID == nil || *row.UserID != *filter.UserID {
				continue
			}
		case filter.Email != "":
			if row.Email != filter.Email {
				continue
			}
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *stubVisitRepo) HasOpenBooking(ctx context.Context, plotID uuid.UUID, userID *uuid.UUID, email string) (bool, error) {
	for _, row := range s.rows {
		if row.PlotID != plotID || !row.Status.IsOpen() {
			continue
		}
		if userID != nil && row.UserID != nil && *row.UserID == *userID {
			return true, nil
		}
		if row.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubVisitRepo) MarkAssigned(ctx context.Context, id, managerID uuid.UUID, now time.Time) (bool, error) {
	row, ok := s.rows[id]
	if !ok || row.Status != enums.VisitRequestPending {
		return false, nil
	}
	row.Status = enums.VisitRequestAssigned
	row.AssignedManagerID = &managerID
	row.UpdatedAt = now
	return true, nil
}

func (s *stubVisitRepo) MarkApproved(ctx context.Context, id, managerID uuid.UUID, qrCode string, expiresAt, now time.Time) (bool, error) {
	row, ok := s.rows[id]
	if !ok || row.Status != enums.VisitRequestAssigned || row.AssignedManagerID == nil || *row.AssignedManagerID != managerID {
		return false, nil
	}
	row.Status = enums.VisitRequestApproved
	row.QRCode = &qrCode
	row.ExpiresAt = &expiresAt
	row.UpdatedAt = now
	return true, nil
}

func (s *stubVisitRepo) MarkRejected(ctx context.Context, id, managerID uuid.UUID, reason string, now time.Time) (bool, error) {
	row, ok := s.rows[id]
	if !ok || row.Status != enums.VisitRequestAssigned || row.AssignedManagerID == nil || *row.AssignedManagerID != managerID {
		return false, nil
	}
	row.Status = enums.VisitRequestRejected
	row.RejectionReason = &reason
	row.QRCode = nil
	row.ExpiresAt = nil
	row.UpdatedAt = now
	return true, nil
}

type stubUserStore struct {
	byID      map[uuid.UUID]*models.User
	bySubject map[string]*models.User
	byEmail   map[string]*models.User
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{
		byID:      map[uuid.UUID]*models.User{},
		bySubject: map[string]*models.User{},
		byEmail:   map[string]*models.User{},
	}
}

func (s *stubUserStore) add(user *models.User) *models.User {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.byID[user.ID] = user
	if user.SubjectID != nil {
		s.bySubject[*user.SubjectID] = user
	}
	s.byEmail[user.Email] = user
	return user
}

func (s *stubUserStore) Create(ctx context.Context, user *models.User) error {
	s.add(user)
	return nil
}

func (s *stubUserStore) UpsertBySubjectID(ctx context.Context, user *models.User) error {
	if existing, ok := s.bySubject[*user.SubjectID]; ok {
		existing.Name = user.Name
		existing.Email = user.Email
		existing.Phone = user.Phone
		return nil
	}
	s.add(user)
	return nil
}

func (s *stubUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserStore) FindBySubjectID(ctx context.Context, subjectID string) (*models.User, error) {
	if user, ok := s.bySubject[subjectID]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubPlotReader struct {
	plots map[uuid.UUID]*models.Plot
}

func (s *stubPlotReader) FindByID(ctx context.Context, id uuid.UUID) (*models.Plot, error) {
	if plot, ok := s.plots[id]; ok {
		return plot, nil
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

type stubEncoder struct{}

func (stubEncoder) Encode(payload string) (string, error) {
	return "data:image/png;base64,dGVzdA==", nil
}

type engineFixture struct {
	svc       Service
	repo      *stubVisitRepo
	users     *stubUserStore
	plots     *stubPlotReader
	outboxLog *recordingOutboxRepo
	plot      *models.Plot
}

const validityWindow = 24 * time.Hour

func newFixture(t *testing.T) *engineFixture {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "visitrequests-test", Output: io.Discard})
	visitRepo := newStubVisitRepo()
	userStore := newStubUserStore()
	outboxRepo := &recordingOutboxRepo{}
	plot := &models.Plot{ID: uuid.New(), Title: "Sunrise Plot 12", Location: "Sector 9", Status: enums.PlotStatusAvailable}
	plotReader := &stubPlotReader{plots: map[uuid.UUID]*models.Plot{plot.ID: plot}}

	svc, err := NewService(Deps{
		Repo:    visitRepo,
		Users:   userStore,
		Plots:   plotReader,
		Outbox:  outbox.NewService(outboxRepo, logg),
		Encoder: stubEncoder{},
		Tx:      stubTxRunner{},
		Retry:   retry.NewPolicy(config.RetryConfig{}, logg),
		Visit:   config.VisitConfig{QRValidityWindow: validityWindow, DuplicateCheck: true},
		Logger:  logg,
	})
	require.NoError(t, err)

	return &engineFixture{
		svc:       svc,
		repo:      visitRepo,
		users:     userStore,
		plots:     plotReader,
		outboxLog: outboxRepo,
		plot:      plot,
	}
}

func validSubmission(f *engineFixture) SubmitDTO {
	return SubmitDTO{
		Name:   "Asha",
		Email:  "asha@example.com",
		Phone:  "9876543210",
		Date:   time.Now().UTC().Add(48 * time.Hour).Format(dateLayout),
		Time:   "10:00",
		PlotID: f.plot.ID.String(),
	}
}

func (f *engineFixture) addManager(t *testing.T, name string) *models.User {
	t.Helper()
	return f.users.add(&models.User{Name: name, Email: name + "@example.com", Role: enums.RoleManager})
}

func (f *engineFixture) submitted(t *testing.T) *VisitRequestDTO {
	t.Helper()
	created, err := f.svc.Submit(context.Background(), validSubmission(f))
	require.NoError(t, err)
	return created
}

func (f *engineFixture) assigned(t *testing.T) (*VisitRequestDTO, *models.User) {
	t.Helper()
	created := f.submitted(t)
	manager := f.addManager(t, "m1")
	updated, err := f.svc.Assign(context.Background(), created.ID, manager.ID)
	require.NoError(t, err)
	return updated, manager
}

func code(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	return typed.Code()
}

func TestSubmitCreatesPendingRequest(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Submit(context.Background(), validSubmission(f))
	require.NoError(t, err)

	assert.Equal(t, enums.VisitRequestPending, created.Status)
	assert.Nil(t, created.QRCode)
	assert.Nil(t, created.ExpiresAt)
	assert.Nil(t, created.RejectionReason)
	assert.Nil(t, created.AssignedManagerID)

	require.Len(t, f.outboxLog.events, 1)
	assert.Equal(t, enums.EventVisitRequestSubmitted, f.outboxLog.events[0].EventType)
}

func TestSubmitValidationOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := validSubmission(f)
	missing.Phone = " "
	err := func() error { _, e := f.svc.Submit(ctx, missing); return e }()
	assert.Equal(t, pkgerrors.CodeValidation, code(t, err))

	badEmail := validSubmission(f)
	badEmail.Email = "not-an-email"
	_, err = f.svc.Submit(ctx, badEmail)
	assert.Equal(t, pkgerrors.CodeValidation, code(t, err))

	badPhone := validSubmission(f)
	badPhone.Phone = "12"
	_, err = f.svc.Submit(ctx, badPhone)
	assert.Equal(t, pkgerrors.CodeValidation, code(t, err))

	pastDate := validSubmission(f)
	pastDate.Date = "2020-01-01"
	_, err = f.svc.Submit(ctx, pastDate)
	assert.Equal(t, pkgerrors.CodeValidation, code(t, err))

	assert.Empty(t, f.repo.rows)
}

func TestSubmitUnknownPlot(t *testing.T) {
	f := newFixture(t)

	input := validSubmission(f)
	input.PlotID = uuid.NewString()
	_, err := f.svc.Submit(context.Background(), input)
	assert.Equal(t, pkgerrors.CodeNotFound, code(t, err))
}

func TestSubmitPlotNotAvailable(t *testing.T) {
	f := newFixture(t)
	f.plot.Status = enums.PlotStatusSold

	_, err := f.svc.Submit(context.Background(), validSubmission(f))
	assert.Equal(t, pkgerrors.CodePlotUnavailable, code(t, err))
}

func TestSubmitDuplicateOpenBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.submitted(t)

	_, err := f.svc.Submit(ctx, validSubmission(f))
	assert.Equal(t, pkgerrors.CodeConflict, code(t, err))
}

func TestSubmitAllowedAfterRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assignedDTO, manager := f.assigned(t)
	_, err := f.svc.Reject(ctx, assignedDTO.ID, Actor{UserID: manager.ID, Role: enums.RoleManager}, "schedule conflict")
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, validSubmission(f))
	require.NoError(t, err)
}

func TestSubmitUpsertsGuestIdentity(t *testing.T) {
	f := newFixture(t)

	input := validSubmission(f)
	input.SubjectID = "sub_guest_1"
	created, err := f.svc.Submit(context.Background(), input)
	require.NoError(t, err)

	require.NotNil(t, created.UserID)
	linked, err := f.users.FindBySubjectID(context.Background(), "sub_guest_1")
	require.NoError(t, err)
	assert.Equal(t, *created.UserID, linked.ID)
	assert.Equal(t, enums.RoleGuest, linked.Role)
}

func TestSubmitLinksGuestHistoryByEmail(t *testing.T) {
	f := newFixture(t)

	existing := f.users.add(&models.User{Name: "Asha", Email: "asha@example.com", Role: enums.RoleClient})

	created, err := f.svc.Submit(context.Background(), validSubmission(f))
	require.NoError(t, err)
	require.NotNil(t, created.UserID)
	assert.Equal(t, existing.ID, *created.UserID)
}

func TestAssignRequiresManagerRole(t *testing.T) {
	f := newFixture(t)

	created := f.submitted(t)
	client := f.users.add(&models.User{Name: "c1", Email: "c1@example.com", Role: enums.RoleClient})

	_, err := f.svc.Assign(context.Background(), created.ID, client.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, code(t, err))

	_, err = f.svc.Assign(context.Background(), created.ID, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, code(t, err))
}

func TestAssignMovesPendingToAssigned(t *testing.T) {
	f := newFixture(t)

	updated, manager := f.assigned(t)
	assert.Equal(t, enums.VisitRequestAssigned, updated.Status)
	require.NotNil(t, updated.AssignedManagerID)
	assert.Equal(t, manager.ID, *updated.AssignedManagerID)

	require.Len(t, f.outboxLog.events, 2)
	assert.Equal(t, enums.EventVisitRequestAssigned, f.outboxLog.events[1].EventType)
}

func TestAssignFromAssignedIsStateConflict(t *testing.T) {
	f := newFixture(t)

	updated, _ := f.assigned(t)
	other := f.addManager(t, "m2")

	_, err := f.svc.Assign(context.Background(), updated.ID, other.ID)
	assert.Equal(t, pkgerrors.CodeStateConflict, code(t, err))
}

func TestAcceptIssuesQRWithValidityWindow(t *testing.T) {
	f := newFixture(t)

	assignedDTO, manager := f.assigned(t)
	before := time.Now().UTC()

	approved, err := f.svc.Accept(context.Background(), assignedDTO.ID, Actor{UserID: manager.ID, Role: enums.RoleManager})
	require.NoError(t, err)

	assert.Equal(t, enums.VisitRequestApproved, approved.Status)
	require.NotNil(t, approved.QRCode)
	require.NotNil(t, approved.ExpiresAt)
	assert.True(t, approved.ExpiresAt.After(before.Add(validityWindow-time.Minute)))
	assert.True(t, approved.ExpiresAt.Before(before.Add(validityWindow+time.Minute)))

	require.Len(t, f.outboxLog.events, 3)
	assert.Equal(t, enums.EventVisitRequestApproved, f.outboxLog.events[2].EventType)
}

func TestAcceptFromPendingIsStateConflict(t *testing.T) {
	f := newFixture(t)

	created := f.submitted(t)
	manager := f.addManager(t, "m1")

	before, err := f.repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)

	_, err = f.svc.Accept(context.Background(), created.ID, Actor{UserID: manager.ID, Role: enums.RoleManager})
	assert.Equal(t, pkgerrors.CodeStateConflict, code(t, err))

	after, findErr := f.repo.FindByID(context.Background(), created.ID)
	require.NoError(t, findErr)
	assert.Equal(t, *before, *after)
}

func TestDecisionByDifferentManagerIsForbidden(t *testing.T) {
	f := newFixture(t)

	assignedDTO, _ := f.assigned(t)
	other := f.addManager(t, "m2")

	_, err := f.svc.Accept(context.Background(), assignedDTO.ID, Actor{UserID: other.ID, Role: enums.RoleManager})
	assert.Equal(t, pkgerrors.CodeForbidden, code(t, err))

	_, err = f.svc.Reject(context.Background(), assignedDTO.ID, Actor{UserID: other.ID, Role: enums.RoleManager}, "not mine")
	assert.Equal(t, pkgerrors.CodeForbidden, code(t, err))

	current, err := f.repo.FindByID(context.Background(), assignedDTO.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.VisitRequestAssigned, current.Status)
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)

	assignedDTO, manager := f.assigned(t)

	_, err := f.svc.Reject(context.Background(), assignedDTO.ID, Actor{UserID: manager.ID, Role: enums.RoleManager}, "  ")
	assert.Equal(t, pkgerrors.CodeValidation, code(t, err))

	current, findErr := f.repo.FindByID(context.Background(), assignedDTO.ID)
	require.NoError(t, findErr)
	assert.Equal(t, enums.VisitRequestAssigned, current.Status)
}

func TestRejectStoresReasonAndClearsQR(t *testing.T) {
	f := newFixture(t)

	assignedDTO, manager := f.assigned(t)

	rejected, err := f.svc.Reject(context.Background(), assignedDTO.ID, Actor{UserID: manager.ID, Role: enums.RoleManager}, "schedule conflict")
	require.NoError(t, err)

	assert.Equal(t, enums.VisitRequestRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "schedule conflict", *rejected.RejectionReason)
	assert.Nil(t, rejected.QRCode)
	assert.Nil(t, rejected.ExpiresAt)

	require.Len(t, f.outboxLog.events, 3)
	assert.Equal(t, enums.EventVisitRequestRejected, f.outboxLog.events[2].EventType)
}

func TestRejectApprovedIsStateConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assignedDTO, manager := f.assigned(t)
	actor := Actor{UserID: manager.ID, Role: enums.RoleManager}

	_, err := f.svc.Accept(ctx, assignedDTO.ID, actor)
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, assignedDTO.ID, actor, "too late")
	assert.Equal(t, pkgerrors.CodeStateConflict, code(t, err))
}

func TestListManagerQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assignedDTO, manager := f.assigned(t)

	// one unassigned request from another visitor
	other := validSubmission(f)
	other.Email = "ravi@example.com"
	_, err := f.svc.Submit(ctx, other)
	require.NoError(t, err)

	queue, err := f.svc.List(ctx, ListParams{
		Viewer:       Actor{UserID: manager.ID, Role: enums.RoleManager},
		ManagerQueue: true,
	})
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, assignedDTO.ID, queue[0].ID)
}

func TestListOwnMatchesByEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.submitted(t)

	viewer := f.users.add(&models.User{Name: "Asha", Email: "asha@example.com", Role: enums.RoleClient})
	own, err := f.svc.List(ctx, ListParams{
		Viewer:      Actor{UserID: viewer.ID, Role: enums.RoleClient},
		ViewerEmail: "asha@example.com",
	})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Nil(t, own[0].QRCode)
}

func TestListAdminSeesAllOrdered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.submitted(t)
	second := validSubmission(f)
	second.Email = "ravi@example.com"
	_, err := f.svc.Submit(ctx, second)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, ListParams{Viewer: Actor{UserID: uuid.New(), Role: enums.RoleAdmin}})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, !all[0].CreatedAt.Before(all[1].CreatedAt))
}

func TestQRPayloadShape(t *testing.T) {
	vr := &models.VisitRequest{ID: uuid.New(), PlotID: uuid.New(), Name: "Asha"}
	expires := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	payload := qrPayload(vr, expires)
	assert.Contains(t, payload, "visit://request/"+vr.ID.String())
	assert.Contains(t, payload, "plot="+vr.PlotID.String())
	assert.Contains(t, payload, "visitor=Asha")
	assert.Contains(t, payload, "expires=2026-03-01T10%3A00%3A00Z")
}
