package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, doctor_id, patient_id, scheduled_at, access_code, started_at, ended_at,
	status, notes, metadata, video_recording_ref, created_at, updated_at, deleted_at
`

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var specialty *string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&specialty,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Specialty = specialty
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var metadata []byte

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.ScheduledAt,
		&a.AccessCode,
		&a.StartedAt,
		&a.EndedAt,
		&a.Status,
		&a.Notes,
		&metadata,
		&a.VideoRecordingRef,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return nil, fmt.Errorf("decode appointment metadata: %w", err)
		}
	}
	return &a, nil
}

func scanEvent(row pgx.Row) (*Event, error) {
	var ev Event

	err := row.Scan(
		&ev.ID,
		&ev.AppointmentID,
		&ev.UserID,
		&ev.Type,
		&ev.Payload,
		&ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func encodeMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		m = map[string]string{}
	}
	return json.Marshal(m)
}

func insertEventTx(ctx context.Context, tx pgx.Tx, ev Event) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO appointment_events (appointment_id, user_id, event, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.AppointmentID, ev.UserID, ev.Type, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert appointment event: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	appt, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	doctor, err := r.GetDoctorByID(ctx, appt.DoctorID)
	if err != nil && !errors.Is(err, ErrDoctorNotFound) {
		return nil, err
	}
	patient, err := r.GetPatientByID(ctx, appt.PatientID)
	if err != nil && !errors.Is(err, ErrPatientNotFound) {
		return nil, err
	}

	return &Detail{
		Appointment: *appt,
		Doctor:      doctor,
		Patient:     patient,
	}, nil
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.list(ctx, "doctor_id", doctorID, limit, offset)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.list(ctx, "patient_id", patientID, limit, offset)
}

func (r *PgRepository) list(ctx context.Context, column string, id uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+column+` = $1 AND deleted_at IS NULL
		ORDER BY scheduled_at DESC
		LIMIT $2 OFFSET $3
	`, id, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) AccessCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointments WHERE access_code = $1)
	`, code).Scan(&exists)
	return exists, err
}

// liveStatuses are the statuses that still hold their slot, derived from
// Terminal so a new terminal status cannot silently keep blocking bookings.
func liveStatuses() []string {
	all := []Status{StatusScheduled, StatusRescheduled, StatusInProgress, StatusCompleted, StatusNoShow, StatusCancelled}
	var live []string
	for _, s := range all {
		if !s.Terminal() {
			live = append(live, string(s))
		}
	}
	return live
}

// FindOverlapping returns non-terminal appointments for the doctor whose
// [scheduled_at, scheduled_at+length) window overlaps the one starting at
// start. All rows share the configured appointment length.
func (r *PgRepository) FindOverlapping(ctx context.Context, doctorID uuid.UUID, start time.Time, length time.Duration, excludeID *uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND status = ANY($2)
		  AND deleted_at IS NULL
		  AND scheduled_at < $3
		  AND scheduled_at + $5::interval > $4
		  AND ($6::uuid IS NULL OR id <> $6)
	`, doctorID, liveStatuses(), start.Add(length), start, length.String(), excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *PgRepository) FindNoShowCandidates(ctx context.Context, scheduledBefore time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status IN ('scheduled', 'rescheduled')
		  AND deleted_at IS NULL
		  AND scheduled_at <= $1
	`, scheduledBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *PgRepository) CreateWithEvent(ctx context.Context, a *Appointment, ev Event) error {
	metadata, err := encodeMetadata(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode appointment metadata: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, doctor_id, patient_id, scheduled_at, access_code, status, notes, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at
	`, a.ID, a.DoctorID, a.PatientID, a.ScheduledAt, a.AccessCode, a.Status, a.Notes, metadata)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	if err := insertEventTx(ctx, tx, ev); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateStatusWithEvent applies a compare-and-swap status write plus its
// event insert in one transaction. The predicate matches both the observed
// status and the observed scheduled time; a zero-row update means the row
// changed since the guard ran, which surfaces as ErrConcurrencyConflict
// (ErrAppointmentNotFound when the row is gone).
func (r *PgRepository) UpdateStatusWithEvent(ctx context.Context, upd StatusUpdate, ev Event) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status       = $4,
		    started_at   = COALESCE($5, started_at),
		    ended_at     = COALESCE($6, ended_at),
		    scheduled_at = COALESCE($7, scheduled_at),
		    notes        = COALESCE($8, notes),
		    updated_at   = now()
		WHERE id = $1
		  AND status = $2
		  AND scheduled_at = $3
		  AND deleted_at IS NULL
		RETURNING `+appointmentColumns+`
	`, upd.ID, upd.From, upd.ObservedScheduledAt, upd.To, upd.StartedAt, upd.EndedAt, upd.ScheduledAt, upd.Notes)

	updated, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, r.classifyStaleUpdate(ctx, upd.ID)
		}
		return nil, err
	}

	if err := insertEventTx(ctx, tx, ev); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) classifyStaleUpdate(ctx context.Context, id uuid.UUID) error {
	if _, err := r.GetAppointmentByID(ctx, id); err != nil {
		return err
	}
	return ErrConcurrencyConflict
}

func (r *PgRepository) UpdateWithEvent(ctx context.Context, upd Update, ev Event) (*Appointment, error) {
	var metadata []byte
	if upd.Metadata != nil {
		var err error
		if metadata, err = encodeMetadata(upd.Metadata); err != nil {
			return nil, fmt.Errorf("encode appointment metadata: %w", err)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET notes               = COALESCE($2, notes),
		    metadata            = COALESCE($3, metadata),
		    video_recording_ref = COALESCE($4, video_recording_ref),
		    updated_at          = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+appointmentColumns+`
	`, upd.ID, upd.Notes, metadata, upd.VideoRecordingRef)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if err := insertEventTx(ctx, tx, ev); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) SoftDeleteWithEvent(ctx context.Context, id uuid.UUID, ev Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET deleted_at = now(),
		    updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}

	if err := insertEventTx(ctx, tx, ev); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) ListEvents(ctx context.Context, appointmentID uuid.UUID) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, user_id, event, payload, created_at
		FROM appointment_events
		WHERE appointment_id = $1
		ORDER BY id
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ev)
	}
	return result, rows.Err()
}
