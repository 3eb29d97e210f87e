package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/google/uuid"
	"github.com/plotvista/plotvista-backend/pkg/config"
	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/logger"
	"github.com/plotvista/plotvista-backend/pkg/metrics"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublished(ctx context.Context, limit int, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error
}

type eventHandler interface {
	Handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error
}

// ServiceParams wires the drain loop dependencies.
type ServiceParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        dbClient
	Repo      outboxRepository
	Handler   eventHandler
	Lifecycle *metrics.LifecycleMetrics
}

// Service drains the outbox into notification rows. Each event is handled and
// marked published in one transaction so delivery is at-least-once per row.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	handler      eventHandler
	lifecycle    *metrics.LifecycleMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

// NewService validates dependencies and builds the drain service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repo == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Handler == nil {
		return nil, errors.New("event handler is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repo,
		handler:      params.Handler,
		lifecycle:    params.Lifecycle,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

// Run polls until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox drain context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox drain batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()

	events, err := s.repo.FetchUnpublished(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		return false, fmt.Errorf("fetch unpublished: %w", err)
	}
	if len(events) == 0 {
		return false, nil
	}

	for _, event := range events {
		fields := map[string]any{
			"event_id":       event.ID.String(),
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"attempt_count":  event.AttemptCount,
		}

		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.handler.Handle(ctx, tx, event); err != nil {
				return err
			}
			return s.repo.MarkPublished(ctx, tx, event.ID)
		})
		if err != nil {
			s.lifecycle.IncPublishFailed()
			logCtx := s.logg.WithFields(ctx, fields)
			s.logg.Error(logCtx, "outbox event delivery failed", err)

			if event.AttemptCount+1 >= s.maxAttempts {
				s.logg.Warn(logCtx, "outbox event reached max attempts, parking")
			}
			if markErr := s.repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
				return true, fmt.Errorf("mark failed %s: %w", event.ID, markErr)
			}
			continue
		}

		s.lifecycle.IncPublished()
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event delivered")
	}

	s.lifecycle.ObserveDrain(time.Since(started))
	return true, nil
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		return base
	}
	next := current * 2
	if next > ceiling {
		return ceiling
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
