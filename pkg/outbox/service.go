package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
)

// Envelope describes one lifecycle event before it is persisted.
type Envelope struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Payload       any
}

// Service emits lifecycle events inside the caller's transaction so the
// state change and the event row commit atomically.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the outbox emitter.
func NewService(repo Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit validates and inserts the event row using the given transaction.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, envelope Envelope) error {
	if !envelope.EventType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("invalid outbox event type %q", envelope.EventType))
	}
	if !envelope.AggregateType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("invalid outbox aggregate type %q", envelope.AggregateType))
	}
	if envelope.AggregateID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "outbox aggregate id is required")
	}

	raw, err := json.Marshal(envelope.Payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal outbox payload")
	}

	event := &models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     envelope.EventType,
		AggregateType: envelope.AggregateType,
		AggregateID:   envelope.AggregateID,
		Payload:       raw,
	}
	if err := s.repo.Insert(ctx, tx, event); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_type":   string(envelope.EventType),
		"aggregate_id": envelope.AggregateID.String(),
	}), "outbox event emitted")
	return nil
}
