package visitrequests

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/pkg/config"
	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
	"github.com/plotvista/plotvista-backend/pkg/metrics"
	"github.com/plotvista/plotvista-backend/pkg/outbox"
	"github.com/plotvista/plotvista-backend/pkg/qr"
	"github.com/plotvista/plotvista-backend/pkg/retry"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^[0-9+\-() ]{7,20}$`)
)

const dateLayout = "2006-01-02"

// txRunner abstracts the transactional boundary so service tests can run
// against stub repositories.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// plotReader is the slice of the plots repository the engine consumes.
type plotReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plot, error)
}

// userStore is the slice of the users repository the engine consumes for
// guest identity reconciliation and manager validation.
type userStore interface {
	Create(ctx context.Context, user *models.User) error
	UpsertBySubjectID(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindBySubjectID(ctx context.Context, subjectID string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service governs the booking lifecycle: PENDING -> ASSIGNED -> APPROVED or
// REJECTED. Every transition is one transaction containing the conditional
// state update and the outbox event.
type Service interface {
	Submit(ctx context.Context, input SubmitDTO) (*VisitRequestDTO, error)
	Assign(ctx context.Context, requestID, managerID uuid.UUID) (*VisitRequestDTO, error)
	Accept(ctx context.Context, requestID uuid.UUID, actor Actor) (*VisitRequestDTO, error)
	Reject(ctx context.Context, requestID uuid.UUID, actor Actor, reason string) (*VisitRequestDTO, error)
	Get(ctx context.Context, requestID uuid.UUID, viewer Actor, viewerEmail string) (*VisitRequestDTO, error)
	List(ctx context.Context, params ListParams) ([]VisitRequestDTO, error)
}

// Deps carries the service's collaborators.
type Deps struct {
	Repo      Repository
	Users     userStore
	Plots     plotReader
	Outbox    *outbox.Service
	Encoder   qr.Encoder
	Tx        txRunner
	Retry     retry.Policy
	Visit     config.VisitConfig
	Logger    *logger.Logger
	Lifecycle *metrics.LifecycleMetrics
}

type service struct {
	deps Deps
}

// NewService wires the lifecycle engine.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "visit requests repository required")
	}
	if deps.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users store required")
	}
	if deps.Plots == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plots reader required")
	}
	if deps.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	if deps.Encoder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "qr encoder required")
	}
	if deps.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if deps.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if deps.Visit.QRValidityWindow <= 0 {
		deps.Visit.QRValidityWindow = 24 * time.Hour
	}
	return &service{deps: deps}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitDTO) (*VisitRequestDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)
	input.Date = strings.TrimSpace(input.Date)
	input.Time = strings.TrimSpace(input.Time)
	input.PlotID = strings.TrimSpace(input.PlotID)

	if field := firstMissing(input); field != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is required", field)).
			WithDetails(map[string]string{"field": field})
	}
	if !emailRe.MatchString(input.Email) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email format is invalid").
			WithDetails(map[string]string{"field": "email"})
	}
	if !phoneRe.MatchString(input.Phone) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone format is invalid").
			WithDetails(map[string]string{"field": "phone"})
	}
	visitDate, err := time.Parse(dateLayout, input.Date)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD").
			WithDetails(map[string]string{"field": "date"})
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if visitDate.Before(today) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date cannot be in the past").
			WithDetails(map[string]string{"field": "date"})
	}
	plotID, err := uuid.Parse(input.PlotID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plot id is invalid").
			WithDetails(map[string]string{"field": "plot_id"})
	}

	var plot *models.Plot
	err = s.deps.Retry.Do(ctx, "find plot", func(ctx context.Context) error {
		var opErr error
		plot, opErr = s.deps.Plots.FindByID(ctx, plotID)
		return opErr
	})
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plot not found")
		}
		return nil, s.storeError(err, "load plot")
	}
	if plot.Status != enums.PlotStatusAvailable {
		return nil, pkgerrors.New(pkgerrors.CodePlotUnavailable, "plot is not open for booking").
			WithDetails(map[string]string{"status": string(plot.Status)})
	}

	linkedUserID, err := s.resolveSubmitter(ctx, input)
	if err != nil {
		return nil, err
	}

	if s.deps.Visit.DuplicateCheck {
		var open bool
		err = s.deps.Retry.Do(ctx, "duplicate booking check", func(ctx context.Context) error {
			var opErr error
			open, opErr = s.deps.Repo.HasOpenBooking(ctx, plotID, linkedUserID, input.Email)
			return opErr
		})
		if err != nil {
			return nil, s.storeError(err, "duplicate booking check")
		}
		if open {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an open booking already exists for this plot and visitor")
		}
	}

	vr := &models.VisitRequest{
		ID:     uuid.New(),
		Name:   input.Name,
		Email:  input.Email,
		Phone:  input.Phone,
		Date:   visitDate,
		Time:   input.Time,
		PlotID: plotID,
		UserID: linkedUserID,
		Status: enums.VisitRequestPending,
	}

	err = s.deps.Retry.Do(ctx, "create visit request", func(ctx context.Context) error {
		return s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.deps.Repo.WithTx(tx).Create(ctx, vr); err != nil {
				return err
			}
			return s.deps.Outbox.Emit(ctx, tx, outbox.Envelope{
				EventType:     enums.EventVisitRequestSubmitted,
				AggregateType: enums.AggregateVisitRequest,
				AggregateID:   vr.ID,
				Payload:       s.eventPayload(vr, plot.Title),
			})
		})
	})
	if err != nil {
		return nil, s.storeError(err, "create visit request")
	}

	s.deps.Lifecycle.IncTransition(string(enums.VisitRequestPending))
	s.logTransition(ctx, vr, "visit request submitted")
	vr.Plot = plot
	return fromModel(vr), nil
}

func (s *service) Assign(ctx context.Context, requestID, managerID uuid.UUID) (*VisitRequestDTO, error) {
	if requestID == uuid.Nil || managerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id and manager id required")
	}

	manager, err := s.deps.Users.FindByID(ctx, managerID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "manager not found")
		}
		return nil, s.storeError(err, "load manager")
	}
	if manager.Role != enums.RoleManager {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "assignee is not a manager")
	}

	return s.transition(ctx, requestID, enums.VisitRequestAssigned, func(ctx context.Context, tx *gorm.DB, vr *models.VisitRequest, now time.Time) (bool, error) {
		moved, err := s.deps.Repo.WithTx(tx).MarkAssigned(ctx, requestID, managerID, now)
		if err != nil || !moved {
			return moved, err
		}
		vr.Status = enums.VisitRequestAssigned
		vr.AssignedManagerID = &managerID
		vr.UpdatedAt = now
		return true, s.deps.Outbox.Emit(ctx, tx, outbox.Envelope{
			EventType:     enums.EventVisitRequestAssigned,
			AggregateType: enums.AggregateVisitRequest,
			AggregateID:   vr.ID,
			Payload:       s.eventPayload(vr, plotTitle(vr)),
		})
	})
}

func (s *service) Accept(ctx context.Context, requestID uuid.UUID, actor Actor) (*VisitRequestDTO, error) {
	if requestID == uuid.Nil || actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id and actor required")
	}

	return s.transition(ctx, requestID, enums.VisitRequestApproved, func(ctx context.Context, tx *gorm.DB, vr *models.VisitRequest, now time.Time) (bool, error) {
		if err := s.authorizeDecision(vr, actor); err != nil {
			return false, err
		}

		expiresAt := now.Add(s.deps.Visit.QRValidityWindow)
		payload := qrPayload(vr, expiresAt)
		encoded, err := s.deps.Encoder.Encode(payload)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode qr token")
		}

		moved, err := s.deps.Repo.WithTx(tx).MarkApproved(ctx, requestID, actor.UserID, encoded, expiresAt, now)
		if err != nil || !moved {
			return moved, err
		}
		vr.Status = enums.VisitRequestApproved
		vr.QRCode = &encoded
		vr.ExpiresAt = &expiresAt
		vr.UpdatedAt = now
		return true, s.deps.Outbox.Emit(ctx, tx, outbox.Envelope{
			EventType:     enums.EventVisitRequestApproved,
			AggregateType: enums.AggregateVisitRequest,
			AggregateID:   vr.ID,
			Payload:       s.eventPayload(vr, plotTitle(vr)),
		})
	})
}

func (s *service) Reject(ctx context.Context, requestID uuid.UUID, actor Actor, reason string) (*VisitRequestDTO, error) {
	if requestID == uuid.Nil || actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id and actor required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required").
			WithDetails(map[string]string{"field": "reason"})
	}

	return s.transition(ctx, requestID, enums.VisitRequestRejected, func(ctx context.Context, tx *gorm.DB, vr *models.VisitRequest, now time.Time) (bool, error) {
		if err := s.authorizeDecision(vr, actor); err != nil {
			return false, err
		}

		moved, err := s.deps.Repo.WithTx(tx).MarkRejected(ctx, requestID, actor.UserID, reason, now)
		if err != nil || !moved {
			return moved, err
		}
		vr.Status = enums.VisitRequestRejected
		vr.RejectionReason = &reason
		vr.QRCode = nil
		vr.ExpiresAt = nil
		vr.UpdatedAt = now
		return true, s.deps.Outbox.Emit(ctx, tx, outbox.Envelope{
			EventType:     enums.EventVisitRequestRejected,
			AggregateType: enums.AggregateVisitRequest,
			AggregateID:   vr.ID,
			Payload:       s.eventPayload(vr, plotTitle(vr)),
		})
	})
}

func (s *service) Get(ctx context.Context, requestID uuid.UUID, viewer Actor, viewerEmail string) (*VisitRequestDTO, error) {
	vr, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !s.canView(vr, viewer, viewerEmail) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this request")
	}
	return fromModel(vr), nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]VisitRequestDTO, error) {
	filter := ListFilter{}
	switch {
	case params.Viewer.Role == enums.RoleAdmin && !params.ManagerQueue:
		// admin sees everything
	case params.ManagerQueue:
		if params.Viewer.Role != enums.RoleManager && params.Viewer.Role != enums.RoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "manager queue requires the manager role")
		}
		id := params.Viewer.UserID
		filter.AssignedManagerID = &id
	default:
		if params.Viewer.UserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "viewer identity required")
		}
		id := params.Viewer.UserID
		filter.UserID = &id
		filter.Email = strings.ToLower(strings.TrimSpace(params.ViewerEmail))
	}

	var rows []models.VisitRequest
	err := s.deps.Retry.Do(ctx, "list visit requests", func(ctx context.Context) error {
		var opErr error
		rows, opErr = s.deps.Repo.List(ctx, filter)
		return opErr
	})
	if err != nil {
		return nil, s.storeError(err, "list visit requests")
	}
	return fromModels(rows), nil
}

// transition wraps one conditional state update in a transaction, classifying
// a zero-row update by re-reading the row afterwards.
func (s *service) transition(
	ctx context.Context,
	requestID uuid.UUID,
	target enums.VisitRequestStatus,
	mutate func(ctx context.Context, tx *gorm.DB, vr *models.VisitRequest, now time.Time) (bool, error),
) (*VisitRequestDTO, error) {
	vr, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var moved bool
	err = s.deps.Retry.Do(ctx, "transition visit request", func(ctx context.Context) error {
		return s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
			var opErr error
			moved, opErr = mutate(ctx, tx, vr, now)
			return opErr
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, s.storeError(err, "transition visit request")
	}

	if !moved {
		s.deps.Lifecycle.IncConflict(string(target))
		return nil, s.classifyLostUpdate(ctx, requestID, target)
	}

	s.deps.Lifecycle.IncTransition(string(target))
	s.logTransition(ctx, vr, "visit request "+strings.ToLower(string(target)))
	return fromModel(vr), nil
}

// classifyLostUpdate distinguishes a wrong-state attempt from a lost race
// after a conditional update touched zero rows.
func (s *service) classifyLostUpdate(ctx context.Context, requestID uuid.UUID, target enums.VisitRequestStatus) error {
	current, err := s.load(ctx, requestID)
	if err != nil {
		return err
	}

	expected := map[enums.VisitRequestStatus]enums.VisitRequestStatus{
		enums.VisitRequestAssigned: enums.VisitRequestPending,
		enums.VisitRequestApproved: enums.VisitRequestAssigned,
		enums.VisitRequestRejected: enums.VisitRequestAssigned,
	}[target]

	if current.Status != expected {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed from current state").
			WithDetails(map[string]string{
				"current": string(current.Status),
				"target":  string(target),
			})
	}
	// State still matches the precondition, so the row moved under us on a
	// predicate we cannot see (e.g. another assignment writing first).
	return pkgerrors.New(pkgerrors.CodeConflict, "request was modified concurrently")
}

func (s *service) authorizeDecision(vr *models.VisitRequest, actor Actor) error {
	if vr.Status == enums.VisitRequestAssigned &&
		vr.AssignedManagerID != nil &&
		*vr.AssignedManagerID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "request is assigned to a different manager")
	}
	return nil
}

func (s *service) load(ctx context.Context, requestID uuid.UUID) (*models.VisitRequest, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	var vr *models.VisitRequest
	err := s.deps.Retry.Do(ctx, "load visit request", func(ctx context.Context) error {
		var opErr error
		vr, opErr = s.deps.Repo.FindByID(ctx, requestID)
		return opErr
	})
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "visit request not found")
		}
		return nil, s.storeError(err, "load visit request")
	}
	return vr, nil
}

// resolveSubmitter links the booking to a user row when one is resolvable:
// the caller's resolved user, a mirrored subject, or an email match against
// prior guest history. Unmirrored subjects are upserted as GUEST.
func (s *service) resolveSubmitter(ctx context.Context, input SubmitDTO) (*uuid.UUID, error) {
	if input.UserID != nil && *input.UserID != uuid.Nil {
		return input.UserID, nil
	}

	if subjectID := strings.TrimSpace(input.SubjectID); subjectID != "" {
		user := &models.User{
			SubjectID: &subjectID,
			Name:      input.Name,
			Email:     input.Email,
			Phone:     &input.Phone,
			Role:      enums.RoleGuest,
		}
		err := s.deps.Retry.Do(ctx, "upsert guest identity", func(ctx context.Context) error {
			return s.deps.Users.UpsertBySubjectID(ctx, user)
		})
		if err != nil {
			return nil, s.storeError(err, "upsert guest identity")
		}
		stored, err := s.deps.Users.FindBySubjectID(ctx, subjectID)
		if err != nil {
			return nil, s.storeError(err, "load guest identity")
		}
		return &stored.ID, nil
	}

	// Email matching is a heuristic: it links guest history across
	// submissions but can mislink shared or mistyped addresses.
	existing, err := s.deps.Users.FindByEmail(ctx, input.Email)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, s.storeError(err, "match submitter email")
	}
	return &existing.ID, nil
}

func (s *service) eventPayload(vr *models.VisitRequest, plotTitle string) outbox.VisitRequestEventData {
	data := outbox.VisitRequestEventData{
		VisitRequestID: vr.ID.String(),
		PlotID:         vr.PlotID.String(),
		PlotTitle:      plotTitle,
		VisitorName:    vr.Name,
		VisitorEmail:   vr.Email,
		RequestedDate:  vr.Date.Format(dateLayout),
	}
	if vr.UserID != nil {
		id := vr.UserID.String()
		data.RequesterID = &id
	}
	if vr.AssignedManagerID != nil {
		id := vr.AssignedManagerID.String()
		data.AssignedManagerID = &id
	}
	data.RejectionReason = vr.RejectionReason
	return data
}

func (s *service) storeError(err error, label string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, label)
}

func (s *service) canView(vr *models.VisitRequest, viewer Actor, viewerEmail string) bool {
	switch viewer.Role {
	case enums.RoleAdmin:
		return true
	case enums.RoleManager:
		return vr.AssignedManagerID != nil && *vr.AssignedManagerID == viewer.UserID
	default:
		if vr.UserID != nil && *vr.UserID == viewer.UserID {
			return true
		}
		email := strings.ToLower(strings.TrimSpace(viewerEmail))
		return email != "" && email == vr.Email
	}
}

func (s *service) logTransition(ctx context.Context, vr *models.VisitRequest, msg string) {
	ctx = s.deps.Logger.WithVisitRequestID(ctx, vr.ID.String())
	ctx = s.deps.Logger.WithPlotID(ctx, vr.PlotID.String())
	s.deps.Logger.Info(s.deps.Logger.WithField(ctx, "status", string(vr.Status)), msg)
}

func qrPayload(vr *models.VisitRequest, expiresAt time.Time) string {
	query := url.Values{}
	query.Set("plot", vr.PlotID.String())
	query.Set("visitor", vr.Name)
	query.Set("expires", expiresAt.UTC().Format(time.RFC3339))
	return fmt.Sprintf("visit://request/%s?%s", vr.ID, query.Encode())
}

func plotTitle(vr *models.VisitRequest) string {
	if vr.Plot != nil {
		return vr.Plot.Title
	}
	return ""
}

func firstMissing(input SubmitDTO) string {
	checks := []struct {
		field string
		value string
	}{
		{"name", input.Name},
		{"email", input.Email},
		{"phone", input.Phone},
		{"date", input.Date},
		{"time", input.Time},
		{"plot_id", input.PlotID},
	}
	for _, check := range checks {
		if check.value == "" {
			return check.field
		}
	}
	return ""
}
