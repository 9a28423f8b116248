package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/availability"
)

var (
	ErrSlotNotBookable = errors.New("requested time is not bookable")
	ErrLockNotAcquired = errors.New("slot is currently being booked, please retry")
)

// Locker serializes booking attempts per doctor and time bucket.
// Implementations return ErrLockNotAcquired on contention.
type Locker interface {
	WithBookingLock(ctx context.Context, doctorID uuid.UUID, slot time.Time, fn func(ctx context.Context) error) error
}

// AvailabilityChecker is the slice of the availability resolver the booking
// path needs.
type AvailabilityChecker interface {
	WindowsForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]availability.Window, error)
}

// SystemActorID identifies transitions applied by background jobs rather
// than a doctor or patient, e.g. the no-show sweep.
var SystemActorID = uuid.Nil

type Service struct {
	repo       Repository
	windows    AvailabilityChecker
	locker     Locker
	publisher  Publisher
	codes      *CodeGenerator
	policy     Policy
	apptLength time.Duration
	now        func() time.Time
}

func NewService(repo Repository, windows AvailabilityChecker, locker Locker, pub Publisher, policy Policy, apptLength time.Duration) *Service {
	return &Service{
		repo:       repo,
		windows:    windows,
		locker:     locker,
		publisher:  pub,
		codes:      NewCodeGenerator(repo),
		policy:     policy,
		apptLength: apptLength,
		now:        time.Now,
	}
}

// Book reserves a consultation at scheduledAt. The feasibility check runs
// twice: once up front to reject hopeless requests cheaply, and again inside
// the booking lock so two concurrent requests cannot both pass it.
func (s *Service) Book(ctx context.Context, doctorID, patientID uuid.UUID, scheduledAt time.Time) (*Appointment, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}

	scheduledAt = normalizeSlot(scheduledAt)
	if err := s.checkBookable(ctx, doctorID, scheduledAt, nil); err != nil {
		return nil, err
	}

	var created *Appointment

	err := s.locker.WithBookingLock(ctx, doctorID, scheduledAt, func(lockCtx context.Context) error {
		// Re-check inside the critical section
		if err := s.checkBookable(lockCtx, doctorID, scheduledAt, nil); err != nil {
			return err
		}

		code, err := s.codes.Generate(lockCtx)
		if err != nil {
			return err
		}

		appt := &Appointment{
			ID:          uuid.New(),
			DoctorID:    doctorID,
			PatientID:   patientID,
			ScheduledAt: scheduledAt,
			AccessCode:  code,
			Status:      StatusScheduled,
			Metadata:    map[string]string{},
		}

		ev := newEvent(appt.ID, patientID, EventCreated, map[string]string{
			"scheduled_at": scheduledAt.Format(time.RFC3339),
			"access_code":  code,
		})
		if err := s.repo.CreateWithEvent(lockCtx, appt, ev); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, DomainEvent{
		Name:          DomainAppointmentCreated,
		AppointmentID: created.ID,
		ActorID:       patientID,
		OccurredAt:    created.CreatedAt,
		Fields:        map[string]string{"scheduled_at": created.ScheduledAt.Format(time.RFC3339)},
	})

	log.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", doctorID.String()).
		Str("patient_id", patientID.String()).
		Time("scheduled_at", created.ScheduledAt).
		Msg("appointment booked")
	return created, nil
}

// checkBookable verifies the requested time lies inside a resolved
// availability window and collides with no live appointment. Blocked dates
// resolve to an empty window set, so they fail the window check.
func (s *Service) checkBookable(ctx context.Context, doctorID uuid.UUID, at time.Time, excludeID *uuid.UUID) error {
	windows, err := s.windows.WindowsForDate(ctx, doctorID, at)
	if err != nil {
		return fmt.Errorf("resolve availability: %w", err)
	}

	start := availability.TimeOfDay(at.Hour()*60 + at.Minute())
	inWindow := false
	for _, w := range windows {
		if w.Contains(start, s.apptLength) {
			inWindow = true
			break
		}
	}
	if !inWindow {
		return fmt.Errorf("%w: outside the doctor's availability", ErrSlotNotBookable)
	}

	conflicts, err := s.repo.FindOverlapping(ctx, doctorID, at, s.apptLength, excludeID)
	if err != nil {
		return fmt.Errorf("check conflicts: %w", err)
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%w: conflicts with an existing appointment", ErrSlotNotBookable)
	}
	return nil
}

// Start moves a scheduled or rescheduled appointment into the call.
func (s *Service) Start(ctx context.Context, id, actorID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, err := Plan(appt, TransitionStart, now, s.policy)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatusWithEvent(ctx, StatusUpdate{
		ID:                  appt.ID,
		From:                appt.Status,
		ObservedScheduledAt: appt.ScheduledAt,
		To:                  next,
		StartedAt:           &now,
	}, newEvent(appt.ID, actorID, EventStarted, map[string]string{
		"started_at": now.Format(time.RFC3339),
	}))
	if err != nil {
		return nil, err
	}

	s.publishStatusChange(ctx, updated, actorID, appt.Status)
	return updated, nil
}

// End completes an in-progress call.
func (s *Service) End(ctx context.Context, id, actorID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, err := Plan(appt, TransitionEnd, now, s.policy)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatusWithEvent(ctx, StatusUpdate{
		ID:                  appt.ID,
		From:                appt.Status,
		ObservedScheduledAt: appt.ScheduledAt,
		To:                  next,
		EndedAt:             &now,
	}, newEvent(appt.ID, actorID, EventEnded, map[string]string{
		"ended_at": now.Format(time.RFC3339),
	}))
	if err != nil {
		return nil, err
	}

	s.publishStatusChange(ctx, updated, actorID, appt.Status)
	return updated, nil
}

// Cancel cancels an upcoming appointment; reason, when given, is kept in
// the notes for the audit trail.
func (s *Service) Cancel(ctx context.Context, id, actorID uuid.UUID, reason string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, err := Plan(appt, TransitionCancel, now, s.policy)
	if err != nil {
		return nil, err
	}

	upd := StatusUpdate{ID: appt.ID, From: appt.Status, ObservedScheduledAt: appt.ScheduledAt, To: next}
	payload := map[string]string{}
	if reason != "" {
		notes := appt.Notes
		if notes != "" {
			notes += "\n"
		}
		notes += "Cancelled: " + reason
		upd.Notes = &notes
		payload["reason"] = reason
	}

	updated, err := s.repo.UpdateStatusWithEvent(ctx, upd, newEvent(appt.ID, actorID, EventCancelled, payload))
	if err != nil {
		return nil, err
	}

	s.publish(ctx, DomainEvent{
		Name:          DomainAppointmentCancelled,
		AppointmentID: updated.ID,
		ActorID:       actorID,
		OccurredAt:    now,
		Fields:        payload,
	})
	return updated, nil
}

// Reschedule moves an upcoming appointment to a new bookable time. The
// cutoff guard runs first, then the new slot is vetted the same way a fresh
// booking would be, excluding this appointment from the conflict check.
func (s *Service) Reschedule(ctx context.Context, id, actorID uuid.UUID, newTime time.Time) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, err := Plan(appt, TransitionReschedule, now, s.policy)
	if err != nil {
		return nil, err
	}

	newTime = normalizeSlot(newTime)

	var updated *Appointment
	err = s.locker.WithBookingLock(ctx, appt.DoctorID, newTime, func(lockCtx context.Context) error {
		if err := s.checkBookable(lockCtx, appt.DoctorID, newTime, &appt.ID); err != nil {
			return err
		}

		updated, err = s.repo.UpdateStatusWithEvent(lockCtx, StatusUpdate{
			ID:                  appt.ID,
			From:                appt.Status,
			ObservedScheduledAt: appt.ScheduledAt,
			To:                  next,
			ScheduledAt:         &newTime,
		}, newEvent(appt.ID, actorID, EventRescheduled, map[string]string{
			"old_scheduled_at": appt.ScheduledAt.Format(time.RFC3339),
			"new_scheduled_at": newTime.Format(time.RFC3339),
		}))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, DomainEvent{
		Name:          DomainAppointmentRescheduled,
		AppointmentID: updated.ID,
		ActorID:       actorID,
		OccurredAt:    now,
		Fields: map[string]string{
			"old_scheduled_at": appt.ScheduledAt.Format(time.RFC3339),
			"new_scheduled_at": newTime.Format(time.RFC3339),
		},
	})
	return updated, nil
}

// MarkNoShow records that the patient never joined. Invoked by callers
// (typically the sweep worker), never self-triggered.
func (s *Service) MarkNoShow(ctx context.Context, id, actorID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, err := Plan(appt, TransitionNoShow, now, s.policy)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatusWithEvent(ctx, StatusUpdate{
		ID:                  appt.ID,
		From:                appt.Status,
		ObservedScheduledAt: appt.ScheduledAt,
		To:                  next,
	}, newEvent(appt.ID, actorID, EventNoShow, map[string]string{
		"scheduled_at": appt.ScheduledAt.Format(time.RFC3339),
	}))
	if err != nil {
		return nil, err
	}

	s.publishStatusChange(ctx, updated, actorID, appt.Status)
	return updated, nil
}

// SweepNoShows marks every appointment past its grace period as a no-show.
// Intended to be called periodically by the worker; returns how many
// appointments were transitioned.
func (s *Service) SweepNoShows(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.policy.Grace)
	candidates, err := s.repo.FindNoShowCandidates(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find no-show candidates: %w", err)
	}

	marked := 0
	for _, appt := range candidates {
		_, err := s.MarkNoShow(ctx, appt.ID, SystemActorID)
		switch {
		case err == nil:
			marked++
		case errors.Is(err, ErrTransitionNotAllowed),
			errors.Is(err, ErrConcurrencyConflict),
			errors.Is(err, ErrAppointmentNotFound):
			// Someone got to it first; nothing to do.
		default:
			log.Error().Err(err).
				Str("appointment_id", appt.ID.String()).
				Msg("no-show sweep failed for appointment")
		}
	}
	return marked, nil
}

// UpdateDetails edits notes, metadata or the recording reference. Lifecycle
// fields are out of reach here; those change only through transitions.
func (s *Service) UpdateDetails(ctx context.Context, actorID uuid.UUID, upd Update) (*Appointment, error) {
	updated, err := s.repo.UpdateWithEvent(ctx, upd, newEvent(upd.ID, actorID, EventUpdated, map[string]string{}))
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes an appointment. Administrative only.
func (s *Service) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	return s.repo.SoftDeleteWithEvent(ctx, id, newEvent(id, actorID, EventDeleted, map[string]string{}))
}

// Read side

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return s.repo.GetAppointmentDetail(ctx, id)
}

func (s *Service) History(ctx context.Context, id uuid.UUID) ([]Event, error) {
	if _, err := s.repo.GetAppointmentByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, id)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Helpers

// normalizeSlot pins a requested slot to UTC at minute precision. Windows
// are minute-granular, so the window check and the overlap query must both
// see the same minute-aligned instant.
func normalizeSlot(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

func newEvent(appointmentID, actorID uuid.UUID, t EventType, payload map[string]string) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", string(t)).Msg("failed to marshal event payload")
		data = nil
	}
	return Event{
		AppointmentID: appointmentID,
		UserID:        actorID,
		Type:          t,
		Payload:       data,
		CreatedAt:     time.Now(),
	}
}

func (s *Service) publishStatusChange(ctx context.Context, appt *Appointment, actorID uuid.UUID, from Status) {
	s.publish(ctx, DomainEvent{
		Name:          DomainAppointmentStatusChanged,
		AppointmentID: appt.ID,
		ActorID:       actorID,
		OccurredAt:    s.now(),
		Fields: map[string]string{
			"from": string(from),
			"to":   string(appt.Status),
		},
	})
}

func (s *Service) publish(ctx context.Context, ev DomainEvent) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).
			Str("event", ev.Name).
			Str("appointment_id", ev.AppointmentID.String()).
			Msg("domain event publish failed")
	}
}
