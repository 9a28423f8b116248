package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Domain event names consumed by the notification/messaging subsystem.
const (
	DomainAppointmentCreated       = "AppointmentCreated"
	DomainAppointmentCancelled     = "AppointmentCancelled"
	DomainAppointmentRescheduled   = "AppointmentRescheduled"
	DomainAppointmentStatusChanged = "AppointmentStatusChanged"
)

// DomainEvent is published once per successful booking or transition.
// Delivery beyond publication is the subscriber's problem.
type DomainEvent struct {
	Name          string            `json:"name"`
	AppointmentID uuid.UUID         `json:"appointment_id"`
	ActorID       uuid.UUID         `json:"actor_id"`
	OccurredAt    time.Time         `json:"occurred_at"`
	Fields        map[string]string `json:"fields,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, ev DomainEvent) error
}

// NopPublisher discards events, for tests and tooling.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, DomainEvent) error { return nil }
