package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusRescheduled Status = "rescheduled"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusNoShow      Status = "no_show"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether no further lifecycle transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is a booked telemedicine consultation. The access code is
// assigned once at booking and never changes; started_at/ended_at are set
// only by their transitions.
type Appointment struct {
	ID                uuid.UUID
	DoctorID          uuid.UUID
	PatientID         uuid.UUID
	ScheduledAt       time.Time
	AccessCode        string
	StartedAt         *time.Time
	EndedAt           *time.Time
	Status            Status
	Notes             string
	Metadata          map[string]string
	VideoRecordingRef *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// Duration is the consultation length in whole minutes, nil until the call
// has both started and ended. An ended_at earlier than started_at would be
// corrupt data; it yields nil rather than a negative duration.
func (a *Appointment) Duration() *int {
	if a.StartedAt == nil || a.EndedAt == nil {
		return nil
	}
	if a.EndedAt.Before(*a.StartedAt) {
		return nil
	}
	mins := int(a.EndedAt.Sub(*a.StartedAt) / time.Minute)
	return &mins
}

// DefaultFormattedDuration is the display fallback when no real duration
// exists yet. Display only, never an input to scheduling math.
const DefaultFormattedDuration = "45min"

func (a *Appointment) FormattedDuration() string {
	d := a.Duration()
	if d == nil {
		return DefaultFormattedDuration
	}
	if *d >= 60 {
		return fmt.Sprintf("%dh %dmin", *d/60, *d%60)
	}
	return fmt.Sprintf("%dmin", *d)
}

type EventType string

const (
	EventCreated     EventType = "CREATED"
	EventStarted     EventType = "STARTED"
	EventEnded       EventType = "ENDED"
	EventCancelled   EventType = "CANCELLED"
	EventRescheduled EventType = "RESCHEDULED"
	EventNoShow      EventType = "NO_SHOW"
	EventUpdated     EventType = "UPDATED"
	EventDeleted     EventType = "DELETED"
)

// Event is one append-only audit record. Rows are inserted in the same
// transaction as the state change they describe and never touched again.
type Event struct {
	ID            int64
	AppointmentID uuid.UUID
	UserID        uuid.UUID
	Type          EventType
	Payload       []byte
	CreatedAt     time.Time
}

// Detail is an appointment hydrated with its participants.
type Detail struct {
	Appointment
	Doctor  *Doctor
	Patient *Patient
}
