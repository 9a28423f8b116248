package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrValidation = errors.New("validation failed")

type RuleKind string

const (
	KindRecurring RuleKind = "recurring"
	KindSpecific  RuleKind = "specific"
)

// TimeOfDay is a local time of day stored as minutes since midnight.
// Rules keep their hours as times of day so a recurring rule means the
// same wall-clock hours on every matching date.
type TimeOfDay int

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS"; seconds are dropped.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		t, err = time.Parse("15:04", s)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: time of day %q must be HH:MM", ErrValidation, s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// At anchors the time of day on a calendar date, in that date's location.
func (t TimeOfDay) At(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(t)/60, int(t)%60, 0, 0, date.Location())
}

// Rule is a doctor's availability declaration: either a recurring weekly
// pattern (Kind=recurring, DayOfWeek set) or a one-off window on a single
// date (Kind=specific, SpecificDate set). Exactly one discriminant field is
// populated, enforced by the constructors.
type Rule struct {
	ID           uuid.UUID
	DoctorID     uuid.UUID
	LocationID   *uuid.UUID
	Kind         RuleKind
	DayOfWeek    *time.Weekday
	SpecificDate *time.Time
	StartTime    TimeOfDay
	EndTime      TimeOfDay
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

func NewRecurringRule(doctorID uuid.UUID, locationID *uuid.UUID, day time.Weekday, start, end string) (*Rule, error) {
	if day < time.Sunday || day > time.Saturday {
		return nil, fmt.Errorf("%w: day_of_week %d out of range", ErrValidation, day)
	}
	r := &Rule{
		ID:         uuid.New(),
		DoctorID:   doctorID,
		LocationID: locationID,
		Kind:       KindRecurring,
		DayOfWeek:  &day,
		IsActive:   true,
	}
	if err := r.setTimes(start, end); err != nil {
		return nil, err
	}
	return r, nil
}

func NewSpecificRule(doctorID uuid.UUID, locationID *uuid.UUID, date time.Time, start, end string) (*Rule, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: specific_date is required", ErrValidation)
	}
	d := DateOf(date)
	r := &Rule{
		ID:           uuid.New(),
		DoctorID:     doctorID,
		LocationID:   locationID,
		Kind:         KindSpecific,
		SpecificDate: &d,
		IsActive:     true,
	}
	if err := r.setTimes(start, end); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rule) setTimes(start, end string) error {
	st, err := ParseTimeOfDay(start)
	if err != nil {
		return err
	}
	et, err := ParseTimeOfDay(end)
	if err != nil {
		return err
	}
	if et <= st {
		return fmt.Errorf("%w: end_time %s must be after start_time %s", ErrValidation, et, st)
	}
	r.StartTime = st
	r.EndTime = et
	return nil
}

// Validate re-checks the discriminant invariant, used when hydrating rows.
func (r *Rule) Validate() error {
	switch r.Kind {
	case KindRecurring:
		if r.DayOfWeek == nil {
			return fmt.Errorf("%w: recurring rule without day_of_week", ErrValidation)
		}
		if r.SpecificDate != nil {
			return fmt.Errorf("%w: recurring rule with specific_date", ErrValidation)
		}
	case KindSpecific:
		if r.SpecificDate == nil {
			return fmt.Errorf("%w: specific rule without specific_date", ErrValidation)
		}
		if r.DayOfWeek != nil {
			return fmt.Errorf("%w: specific rule with day_of_week", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown rule kind %q", ErrValidation, r.Kind)
	}
	if r.EndTime <= r.StartTime {
		return fmt.Errorf("%w: end_time %s must be after start_time %s", ErrValidation, r.EndTime, r.StartTime)
	}
	return nil
}

// Matches reports whether the rule applies to the given calendar date.
// Inactive and soft-deleted rules never match.
func (r *Rule) Matches(date time.Time) bool {
	if !r.IsActive || r.DeletedAt != nil {
		return false
	}
	switch r.Kind {
	case KindRecurring:
		return r.DayOfWeek != nil && *r.DayOfWeek == date.Weekday()
	case KindSpecific:
		return r.SpecificDate != nil && SameDate(*r.SpecificDate, date)
	}
	return false
}

// BlockedDate makes a doctor fully unavailable on one calendar date,
// regardless of rules. At most one non-deleted block per (doctor, date).
type BlockedDate struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time
	Reason    *string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

func NewBlockedDate(doctorID uuid.UUID, date time.Time, reason *string) (*BlockedDate, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: blocked_date is required", ErrValidation)
	}
	return &BlockedDate{
		ID:       uuid.New(),
		DoctorID: doctorID,
		Date:     DateOf(date),
		Reason:   reason,
	}, nil
}

// DateOf truncates a timestamp to its calendar date at midnight UTC.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func SameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
