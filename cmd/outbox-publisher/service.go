package main

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/db/models"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
)

const (
	defaultBatchSize    = 50
	defaultPollInterval = 500 * time.Millisecond
	maxAttempts         = 10
)

type outboxRepository interface {
	FetchUnpublished(limit int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

type eventBroker interface {
	Publish(ctx context.Context, channel string, payload any) error
	EventChannel(eventType string) string
}

type ServiceParams struct {
	Logger       *logger.Logger
	Repository   outboxRepository
	Broker       eventBroker
	BatchSize    int
	PollInterval time.Duration
}

// Service drains the outbox table and fans events out on pub/sub channels,
// one channel per event type.
type Service struct {
	logg         *logger.Logger
	repo         outboxRepository
	broker       eventBroker
	batchSize    int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Broker == nil {
		return nil, errors.New("event broker is required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	pollInterval := params.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Service{
		logg:         params.Logger,
		repo:         params.Repository,
		broker:       params.Broker,
		batchSize:    batchSize,
		pollInterval: pollInterval,
	}, nil
}

// Run polls until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if err := s.drainOnce(ctx); err != nil {
			s.logg.Error(ctx, "outbox drain failed", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) drainOnce(ctx context.Context) error {
	events, err := s.repo.FetchUnpublished(s.batchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if event.AttemptCount >= maxAttempts {
			// Stuck rows need manual replay; keep skipping them so one
			// poison event cannot block the queue.
			continue
		}

		eventCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id":     event.ID.String(),
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID.String(),
		})

		channel := s.broker.EventChannel(string(event.EventType))
		if err := s.broker.Publish(ctx, channel, string(event.Payload)); err != nil {
			s.logg.Error(eventCtx, "publish outbox event", err)
			if markErr := s.repo.MarkFailed(event.ID, err); markErr != nil {
				s.logg.Error(eventCtx, "mark outbox event failed", markErr)
			}
			continue
		}

		if err := s.repo.MarkPublished(event.ID); err != nil {
			// The publish went out; the row will be retried and consumers
			// must dedupe on event id.
			s.logg.Error(eventCtx, "mark outbox event published", err)
			continue
		}
		s.logg.Info(eventCtx, "outbox event published")
	}
	return nil
}
