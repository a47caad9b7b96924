package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/db/models"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
)

type stubRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (s *stubRepo) FetchUnpublished(limit int) ([]models.OutboxEvent, error) {
	if limit < len(s.events) {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s *stubRepo) MarkPublished(id uuid.UUID) error {
	s.published = append(s.published, id)
	return nil
}

func (s *stubRepo) MarkFailed(id uuid.UUID, err error) error {
	s.failed = append(s.failed, id)
	return nil
}

type stubBroker struct {
	messages map[string][]string
	err      error
}

func (s *stubBroker) Publish(ctx context.Context, channel string, payload any) error {
	if s.err != nil {
		return s.err
	}
	if s.messages == nil {
		s.messages = make(map[string][]string)
	}
	s.messages[channel] = append(s.messages[channel], payload.(string))
	return nil
}

func (s *stubBroker) EventChannel(eventType string) string {
	return "tts:events:" + eventType
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
}

func newTestService(t *testing.T, repo outboxRepository, broker eventBroker) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Logger: testLogger(), Repository: repo, Broker: broker})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func outboxRow(eventType enums.OutboxEventType, payload string) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(payload),
	}
}

func TestDrainPublishesAndMarks(t *testing.T) {
	created := outboxRow(enums.EventOrderCreated, `{"orderNumber":"TTS-20260830-0042"}`)
	paid := outboxRow(enums.EventOrderPaid, `{"transactionId":"NLJ7RT61SV"}`)
	repo := &stubRepo{events: []models.OutboxEvent{created, paid}}
	broker := &stubBroker{}

	svc := newTestService(t, repo, broker)
	if err := svc.drainOnce(context.Background()); err != nil {
		t.Fatalf("drainOnce: %v", err)
	}

	if len(repo.published) != 2 {
		t.Fatalf("expected 2 published, got %d", len(repo.published))
	}
	if got := broker.messages["tts:events:order_created"]; len(got) != 1 || got[0] != `{"orderNumber":"TTS-20260830-0042"}` {
		t.Fatalf("unexpected order_created messages %v", got)
	}
	if got := broker.messages["tts:events:order_paid"]; len(got) != 1 {
		t.Fatalf("expected paid event on its own channel, got %v", got)
	}
}

func TestDrainMarksFailedOnPublishError(t *testing.T) {
	row := outboxRow(enums.EventOrderCreated, `{}`)
	repo := &stubRepo{events: []models.OutboxEvent{row}}
	broker := &stubBroker{err: errors.New("connection reset")}

	svc := newTestService(t, repo, broker)
	if err := svc.drainOnce(context.Background()); err != nil {
		t.Fatalf("drainOnce: %v", err)
	}

	if len(repo.published) != 0 {
		t.Fatalf("expected nothing published, got %d", len(repo.published))
	}
	if len(repo.failed) != 1 || repo.failed[0] != row.ID {
		t.Fatalf("expected event marked failed, got %v", repo.failed)
	}
}

func TestDrainSkipsExhaustedEvents(t *testing.T) {
	poison := outboxRow(enums.EventOrderCreated, `{}`)
	poison.AttemptCount = maxAttempts
	fresh := outboxRow(enums.EventOrderPaid, `{}`)
	repo := &stubRepo{events: []models.OutboxEvent{poison, fresh}}
	broker := &stubBroker{}

	svc := newTestService(t, repo, broker)
	if err := svc.drainOnce(context.Background()); err != nil {
		t.Fatalf("drainOnce: %v", err)
	}

	if len(repo.published) != 1 || repo.published[0] != fresh.ID {
		t.Fatalf("expected only the fresh event published, got %v", repo.published)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo, &stubBroker{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
