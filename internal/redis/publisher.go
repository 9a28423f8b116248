package redisclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/appointment"
)

// EventChannel is where appointment domain events are published for the
// external notification subsystem.
const EventChannel = "appointments.events"

type eventPublisher struct {
	client *redis.Client
}

// NewEventPublisher publishes domain events over Redis pub/sub.
func NewEventPublisher(client *redis.Client) appointment.Publisher {
	return &eventPublisher{client: client}
}

func (p *eventPublisher) Publish(ctx context.Context, ev appointment.DomainEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal domain event: %w", err)
	}
	if err := p.client.Publish(ctx, EventChannel, data).Err(); err != nil {
		return fmt.Errorf("publish domain event %s: %w", ev.Name, err)
	}
	return nil
}
