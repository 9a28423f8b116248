package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrConcurrencyConflict means the appointment changed between the guard
	// evaluation and the write; the caller should retry from scratch.
	ErrConcurrencyConflict = errors.New("appointment was modified concurrently")
)

// StatusUpdate is one compare-and-swap lifecycle write. From and
// ObservedScheduledAt are the status and scheduled time the guard was
// evaluated against; the row must still hold both for the update to apply.
// Status alone is not enough: a reschedule of an already-rescheduled
// appointment leaves the status unchanged, so only the scheduled time
// betrays a concurrent writer. Optional fields are written only when
// non-nil.
type StatusUpdate struct {
	ID                  uuid.UUID
	From                Status
	ObservedScheduledAt time.Time
	To                  Status
	StartedAt           *time.Time
	EndedAt             *time.Time
	ScheduledAt         *time.Time
	Notes               *string
}

// Update carries caller-editable fields outside the lifecycle.
type Update struct {
	ID                uuid.UUID
	Notes             *string
	Metadata          map[string]string
	VideoRecordingRef *string
}

// Repository contains all DB interactions needed by the service. Composite
// *WithEvent methods execute the row write and the event-log insert in a
// single transaction; neither ever applies without the other.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)

	// Booking-time conflict and access-code checks
	AccessCodeExists(ctx context.Context, code string) (bool, error)
	FindOverlapping(ctx context.Context, doctorID uuid.UUID, start time.Time, length time.Duration, excludeID *uuid.UUID) ([]Appointment, error)

	// No-show sweep
	FindNoShowCandidates(ctx context.Context, scheduledBefore time.Time) ([]Appointment, error)

	// Atomic writes
	CreateWithEvent(ctx context.Context, a *Appointment, ev Event) error
	UpdateStatusWithEvent(ctx context.Context, upd StatusUpdate, ev Event) (*Appointment, error)
	UpdateWithEvent(ctx context.Context, upd Update, ev Event) (*Appointment, error)
	SoftDeleteWithEvent(ctx context.Context, id uuid.UUID, ev Event) error

	ListEvents(ctx context.Context, appointmentID uuid.UUID) ([]Event, error)
}
