package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EntityBuilding     = "building"
	EntityActivity     = "activity"
	EntityOrganization = "organization"
	EntityDirectory    = "directory"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionReset   = "reset"
)

// Event announces a committed change to the directory.
type Event struct {
	ID         string    `json:"event_id"`
	Entity     string    `json:"entity"`
	Action     string    `json:"action"`
	EntityID   int64     `json:"entity_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New stamps an event with a fresh id and the current time.
func New(entity, action string, entityID int64) Event {
	return Event{
		ID:         uuid.New().String(),
		Entity:     entity,
		Action:     action,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers change events. Delivery is best effort: callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// rawPublisher is the part of common/mqtt.Client the publisher needs.
type rawPublisher interface {
	Publish(ctx context.Context, topic string, retained bool, payload []byte) error
}

// DefaultPublishTimeout bounds how long a mutation waits for the broker.
const DefaultPublishTimeout = 5 * time.Second

// MQTTPublisher sends events as JSON to <prefix>/<entity>/<action>.
type MQTTPublisher struct {
	client  rawPublisher
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewMQTTPublisher(client rawPublisher, prefix string, logger *zap.Logger) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix, timeout: DefaultPublishTimeout, logger: logger}
}

// Topic returns the topic an event is published on.
func (p *MQTTPublisher) Topic(e Event) string {
	return fmt.Sprintf("%s/%s/%s", p.prefix, e.Entity, e.Action)
}

// Publish returns once the broker acks, ctx ends or the publish timeout passes.
// A send still in flight at that point completes in the background.
func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	topic := p.Topic(e)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.client.Publish(ctx, topic, false, payload) }()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return fmt.Errorf("failed to publish to topic %s: %w", topic, ctx.Err())
	}

	p.logger.Debug("Published directory event",
		zap.String("topic", topic),
		zap.String("event_id", e.ID),
		zap.Int64("entity_id", e.EntityID),
	)
	return nil
}
