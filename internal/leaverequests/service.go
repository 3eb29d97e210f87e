package leaverequests

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
	"github.com/plotvista/plotvista-backend/pkg/outbox"
	"github.com/plotvista/plotvista-backend/pkg/retry"
)

const dateLayout = "2006-01-02"

// SubmitDTO carries a manager's leave submission.
type SubmitDTO struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// Actor identifies the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// ListParams scopes a listing to the viewer.
type ListParams struct {
	Viewer Actor
	Status string
}

// LeaveRequestDTO is the transport shape for a leave request.
type LeaveRequestDTO struct {
	ID             uuid.UUID                `json:"id"`
	ManagerID      uuid.UUID                `json:"manager_id"`
	ManagerName    string                   `json:"manager_name,omitempty"`
	StartDate      time.Time                `json:"start_date"`
	EndDate        time.Time                `json:"end_date"`
	Reason         string                   `json:"reason"`
	Status         enums.LeaveRequestStatus `json:"status"`
	DecisionReason *string                  `json:"decision_reason,omitempty"`
	DecidedByID    *uuid.UUID               `json:"decided_by_id,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

func fromModel(lr *models.LeaveRequest) *LeaveRequestDTO {
	if lr == nil {
		return nil
	}
	dto := &LeaveRequestDTO{
		ID:             lr.ID,
		ManagerID:      lr.ManagerID,
		StartDate:      lr.StartDate,
		EndDate:        lr.EndDate,
		Reason:         lr.Reason,
		Status:         lr.Status,
		DecisionReason: lr.DecisionReason,
		DecidedByID:    lr.DecidedByID,
		CreatedAt:      lr.CreatedAt,
		UpdatedAt:      lr.UpdatedAt,
	}
	if lr.Manager != nil {
		dto.ManagerName = lr.Manager.Name
	}
	return dto
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the leave request lifecycle: managers submit, admins decide.
type Service interface {
	Submit(ctx context.Context, actor Actor, input SubmitDTO) (*LeaveRequestDTO, error)
	Approve(ctx context.Context, requestID uuid.UUID, actor Actor) (*LeaveRequestDTO, error)
	Reject(ctx context.Context, requestID uuid.UUID, actor Actor, reason string) (*LeaveRequestDTO, error)
	Get(ctx context.Context, requestID uuid.UUID, viewer Actor) (*LeaveRequestDTO, error)
	List(ctx context.Context, params ListParams) ([]LeaveRequestDTO, error)
}

// Deps wires the collaborators a leave request service needs.
type Deps struct {
	Repo   Repository
	Users  userReader
	Outbox *outbox.Service
	Tx     txRunner
	Retry  retry.Policy
	Logger *logger.Logger
}

type service struct {
	deps Deps
}

// NewService validates dependencies and builds the leave request service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "leave request repository is required")
	case deps.Users == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user store is required")
	case deps.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox service is required")
	case deps.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	case deps.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{deps: deps}, nil
}

func (s *service) Submit(ctx context.Context, actor Actor, input SubmitDTO) (*LeaveRequestDTO, error) {
	if actor.Role != enums.RoleManager {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only managers submit leave requests")
	}

	input.Reason = strings.TrimSpace(input.Reason)
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required").
			WithDetails(map[string]string{"field": "reason"})
	}
	start, err := time.Parse(dateLayout, strings.TrimSpace(input.StartDate))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start_date must be YYYY-MM-DD").
			WithDetails(map[string]string{"field": "start_date"})
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(input.EndDate))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date must be YYYY-MM-DD").
			WithDetails(map[string]string{"field": "end_date"})
	}
	if end.Before(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date cannot precede start_date").
			WithDetails(map[string]string{"field": "end_date"})
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if start.Before(today) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start_date cannot be in the past").
			WithDetails(map[string]string{"field": "start_date"})
	}

	manager, err := s.deps.Users.FindByID(ctx, actor.UserID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown manager identity")
		}
		return nil, s.storeError(err, "load manager")
	}
	if manager.Role != enums.RoleManager {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only managers submit leave requests")
	}

	var overlap bool
	err = s.deps.Retry.Do(ctx, "leave overlap check", func(ctx context.Context) error {
		var opErr error
		overlap, opErr = s.deps.Repo.HasOverlap(ctx, actor.UserID, start, end)
		return opErr
	})
	if err != nil {
		return nil, s.storeError(err, "leave overlap check")
	}
	if overlap {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an open leave request already covers this range")
	}

	lr := &models.LeaveRequest{
		ID:        uuid.New(),
		ManagerID: actor.UserID,
		StartDate: start,
		EndDate:   end,
		Reason:    input.Reason,
		Status:    enums.LeaveRequestPending,
	}

	err = s.deps.Retry.Do(ctx, "create leave request", func(ctx context.Context) error {
		return s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.deps.Repo.WithTx(tx).Create(ctx, lr); err != nil {
				return err
			}
			return s.deps.Outbox.Emit(ctx, tx, outbox.Envelope{
				EventType:     enums.EventLeaveRequestSubmitted,
				AggregateType: enums.AggregateLeaveRequest,
				AggregateID:   lr.ID,
				Payload:       eventPayload(lr),
			})
		})
	})
	if err != nil {
		return nil, s.storeError(err, "create leave request")
	}

	s.deps.Logger.Info(
		s.deps.Logger.WithFields(ctx, map[string]any{
			"leave_request_id": lr.ID.String(),
			"manager_id":       lr.ManagerID.String(),
		}),
		"leave request submitted",
	)
	lr.Manager = manager
	return fromModel(lr), nil
}

func (s *service) Approve(ctx context.Context, requestID uuid.UUID, actor Actor) (*LeaveRequestDTO, error) {
	return s.decide(ctx, requestID, actor, enums.LeaveRequestApproved, nil)
}

func (s *service) Reject(ctx context.Context, requestID uuid.UUID, actor Actor, reason string) (*LeaveRequestDTO, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a rejection reason is required").
			WithDetails(map[string]string{"field": "reason"})
	}
	return s.decide(ctx, requestID, actor, enums.LeaveRequestRejected, &reason)
}

func (s *service) decide(ctx context.Context, requestID uuid.UUID, actor Actor, target enums.LeaveRequestStatus, reason *string) (*LeaveRequestDTO, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins decide leave requests")
	}

	lr, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var moved bool
	err = s.deps.Retry.Do(ctx, "decide leave request", func(ctx context.Context) error {
		return s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
			var opErr error
			moved, opErr = s.deps.Repo.WithTx(tx).MarkDecided(ctx, requestID, target, actor.UserID, reason, now)
			if opErr != nil || !moved {
				return opErr
			}
			lr.Status = target
			lr.DecisionReason = reason
			lr.DecidedByID = &actor.UserID
			lr.UpdatedAt = now
			return s.deps.Outbox.Emit(ctx, tx, outbox.Envelope{
				EventType:     enums.EventLeaveRequestDecided,
				AggregateType: enums.AggregateLeaveRequest,
				AggregateID:   lr.ID,
				Payload:       eventPayload(lr),
			})
		})
	})
	if err != nil {
		return nil, s.storeError(err, "decide leave request")
	}
	if !moved {
		current, loadErr := s.load(ctx, requestID)
		if loadErr != nil {
			return nil, loadErr
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("leave request is %s, not PENDING", current.Status)).
			WithDetails(map[string]string{"current": string(current.Status), "target": string(target)})
	}

	s.deps.Logger.Info(
		s.deps.Logger.WithFields(ctx, map[string]any{
			"leave_request_id": lr.ID.String(),
			"status":           string(target),
			"decided_by":       actor.UserID.String(),
		}),
		"leave request decided",
	)
	return fromModel(lr), nil
}

func (s *service) Get(ctx context.Context, requestID uuid.UUID, viewer Actor) (*LeaveRequestDTO, error) {
	lr, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if viewer.Role != enums.RoleAdmin && lr.ManagerID != viewer.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "leave request belongs to a different manager")
	}
	return fromModel(lr), nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]LeaveRequestDTO, error) {
	filter := ListFilter{}
	if params.Status != "" {
		status, err := enums.ParseLeaveRequestStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown leave request status").
				WithDetails(map[string]string{"status": params.Status})
		}
		filter.Status = &status
	}
	if params.Viewer.Role != enums.RoleAdmin {
		managerID := params.Viewer.UserID
		filter.ManagerID = &managerID
	}

	var rows []models.LeaveRequest
	err := s.deps.Retry.Do(ctx, "list leave requests", func(ctx context.Context) error {
		var opErr error
		rows, opErr = s.deps.Repo.List(ctx, filter)
		return opErr
	})
	if err != nil {
		return nil, s.storeError(err, "list leave requests")
	}

	out := make([]LeaveRequestDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *fromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) load(ctx context.Context, requestID uuid.UUID) (*models.LeaveRequest, error) {
	var lr *models.LeaveRequest
	err := s.deps.Retry.Do(ctx, "find leave request", func(ctx context.Context) error {
		var opErr error
		lr, opErr = s.deps.Repo.FindByID(ctx, requestID)
		return opErr
	})
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "leave request not found")
		}
		return nil, s.storeError(err, "load leave request")
	}
	return lr, nil
}

func (s *service) storeError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to "+action)
}

func eventPayload(lr *models.LeaveRequest) outbox.LeaveRequestEventData {
	payload := outbox.LeaveRequestEventData{
		LeaveRequestID: lr.ID.String(),
		ManagerID:      lr.ManagerID.String(),
		StartDate:      lr.StartDate.Format(dateLayout),
		EndDate:        lr.EndDate.Format(dateLayout),
		Status:         string(lr.Status),
		DecisionReason: lr.DecisionReason,
	}
	if lr.DecidedByID != nil {
		decidedBy := lr.DecidedByID.String()
		payload.DecidedByID = &decidedBy
	}
	return payload
}
