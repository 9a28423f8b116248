package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanRule(row pgx.Row) (*Rule, error) {
	var r Rule
	var locationID *uuid.UUID
	var dayOfWeek *int
	var start, end string

	err := row.Scan(
		&r.ID,
		&r.DoctorID,
		&locationID,
		&r.Kind,
		&dayOfWeek,
		&r.SpecificDate,
		&start,
		&end,
		&r.IsActive,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}

	r.LocationID = locationID
	if dayOfWeek != nil {
		d := time.Weekday(*dayOfWeek)
		r.DayOfWeek = &d
	}
	if r.StartTime, err = ParseTimeOfDay(start); err != nil {
		return nil, err
	}
	if r.EndTime, err = ParseTimeOfDay(end); err != nil {
		return nil, err
	}
	// A row failing the discriminant invariant is corrupt data, not caller
	// input, so it must not surface as ErrValidation.
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("corrupt availability rule %s: %v", r.ID, err)
	}
	return &r, nil
}

func scanBlockedDate(row pgx.Row) (*BlockedDate, error) {
	var b BlockedDate
	var reason *string

	err := row.Scan(
		&b.ID,
		&b.DoctorID,
		&b.Date,
		&reason,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockedDateNotFound
		}
		return nil, err
	}

	b.Reason = reason
	return &b, nil
}

func ruleDayOfWeek(r *Rule) *int {
	if r.DayOfWeek == nil {
		return nil
	}
	d := int(*r.DayOfWeek)
	return &d
}

// Interface methods

func (repo *PgRepository) CreateRule(ctx context.Context, r *Rule) error {
	_, err := repo.pool.Exec(ctx, `
		INSERT INTO availability_rules
			(id, doctor_id, location_id, kind, day_of_week, specific_date, start_time, end_time, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	`, r.ID, r.DoctorID, r.LocationID, r.Kind, ruleDayOfWeek(r), r.SpecificDate, r.StartTime.String(), r.EndTime.String(), r.IsActive)
	if err != nil {
		return fmt.Errorf("insert availability rule: %w", err)
	}
	return nil
}

func (repo *PgRepository) GetRuleByID(ctx context.Context, id uuid.UUID) (*Rule, error) {
	row := repo.pool.QueryRow(ctx, `
		SELECT id, doctor_id, location_id, kind, day_of_week, specific_date,
		       to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
		       is_active, created_at, updated_at, deleted_at
		FROM availability_rules
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanRule(row)
}

func (repo *PgRepository) ListRules(ctx context.Context, doctorID uuid.UUID) ([]Rule, error) {
	return repo.listRules(ctx, doctorID, false)
}

func (repo *PgRepository) ListActiveRules(ctx context.Context, doctorID uuid.UUID) ([]Rule, error) {
	return repo.listRules(ctx, doctorID, true)
}

func (repo *PgRepository) listRules(ctx context.Context, doctorID uuid.UUID, activeOnly bool) ([]Rule, error) {
	q := `
		SELECT id, doctor_id, location_id, kind, day_of_week, specific_date,
		       to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
		       is_active, created_at, updated_at, deleted_at
		FROM availability_rules
		WHERE doctor_id = $1 AND deleted_at IS NULL
	`
	if activeOnly {
		q += ` AND is_active = true`
	}
	q += ` ORDER BY kind, day_of_week, specific_date, start_time`

	rows, err := repo.pool.Query(ctx, q, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

func (repo *PgRepository) SetRuleActive(ctx context.Context, id uuid.UUID, active bool) (*Rule, error) {
	row := repo.pool.QueryRow(ctx, `
		UPDATE availability_rules
		SET is_active = $2,
		    updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, doctor_id, location_id, kind, day_of_week, specific_date,
		          to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
		          is_active, created_at, updated_at, deleted_at
	`, id, active)
	return scanRule(row)
}

func (repo *PgRepository) SoftDeleteRule(ctx context.Context, id uuid.UUID) error {
	tag, err := repo.pool.Exec(ctx, `
		UPDATE availability_rules
		SET deleted_at = now(),
		    updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete availability rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (repo *PgRepository) CreateBlockedDate(ctx context.Context, b *BlockedDate) error {
	// Partial unique index on (doctor_id, blocked_date) WHERE deleted_at IS NULL
	// backs the one-block-per-day invariant.
	_, err := repo.pool.Exec(ctx, `
		INSERT INTO blocked_dates (id, doctor_id, blocked_date, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`, b.ID, b.DoctorID, b.Date, b.Reason)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDateAlreadyBlocked
		}
		return fmt.Errorf("insert blocked date: %w", err)
	}
	return nil
}

func (repo *PgRepository) GetBlockedDateByID(ctx context.Context, id uuid.UUID) (*BlockedDate, error) {
	row := repo.pool.QueryRow(ctx, `
		SELECT id, doctor_id, blocked_date, reason, created_at, updated_at, deleted_at
		FROM blocked_dates
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanBlockedDate(row)
}

func (repo *PgRepository) ListBlockedDates(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]BlockedDate, error) {
	rows, err := repo.pool.Query(ctx, `
		SELECT id, doctor_id, blocked_date, reason, created_at, updated_at, deleted_at
		FROM blocked_dates
		WHERE doctor_id = $1
		  AND blocked_date BETWEEN $2 AND $3
		  AND deleted_at IS NULL
		ORDER BY blocked_date
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BlockedDate
	for rows.Next() {
		b, err := scanBlockedDate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

func (repo *PgRepository) SoftDeleteBlockedDate(ctx context.Context, id uuid.UUID) error {
	tag, err := repo.pool.Exec(ctx, `
		UPDATE blocked_dates
		SET deleted_at = now(),
		    updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete blocked date: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockedDateNotFound
	}
	return nil
}
