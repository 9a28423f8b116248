package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service is the doctor-facing entry point for schedule management and the
// calendar query consumed by the booking UI.
type Service struct {
	repo     Repository
	resolver *Resolver
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		resolver: NewResolver(repo),
	}
}

func (s *Service) Resolver() *Resolver {
	return s.resolver
}

func (s *Service) CreateRecurringRule(ctx context.Context, doctorID uuid.UUID, locationID *uuid.UUID, day time.Weekday, start, end string) (*Rule, error) {
	r, err := NewRecurringRule(doctorID, locationID, day, start, end)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRule(ctx, r); err != nil {
		return nil, fmt.Errorf("create recurring rule: %w", err)
	}

	log.Info().
		Str("rule_id", r.ID.String()).
		Str("doctor_id", doctorID.String()).
		Stringer("day_of_week", day).
		Msg("recurring availability rule created")
	return r, nil
}

func (s *Service) CreateSpecificRule(ctx context.Context, doctorID uuid.UUID, locationID *uuid.UUID, date time.Time, start, end string) (*Rule, error) {
	r, err := NewSpecificRule(doctorID, locationID, date, start, end)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRule(ctx, r); err != nil {
		return nil, fmt.Errorf("create specific rule: %w", err)
	}

	log.Info().
		Str("rule_id", r.ID.String()).
		Str("doctor_id", doctorID.String()).
		Str("date", DateOf(date).Format("2006-01-02")).
		Msg("specific availability rule created")
	return r, nil
}

// DeactivateRule keeps the row for audit but stops it matching any date.
// Doctors editing published hours should deactivate the old rule and create
// a new one rather than edit times in place.
func (s *Service) DeactivateRule(ctx context.Context, id uuid.UUID) (*Rule, error) {
	return s.repo.SetRuleActive(ctx, id, false)
}

func (s *Service) ActivateRule(ctx context.Context, id uuid.UUID) (*Rule, error) {
	return s.repo.SetRuleActive(ctx, id, true)
}

func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDeleteRule(ctx, id)
}

func (s *Service) GetRule(ctx context.Context, id uuid.UUID) (*Rule, error) {
	return s.repo.GetRuleByID(ctx, id)
}

func (s *Service) ListRules(ctx context.Context, doctorID uuid.UUID) ([]Rule, error) {
	return s.repo.ListRules(ctx, doctorID)
}

func (s *Service) BlockDate(ctx context.Context, doctorID uuid.UUID, date time.Time, reason *string) (*BlockedDate, error) {
	b, err := NewBlockedDate(doctorID, date, reason)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateBlockedDate(ctx, b); err != nil {
		return nil, err
	}

	log.Info().
		Str("doctor_id", doctorID.String()).
		Str("date", b.Date.Format("2006-01-02")).
		Msg("date blocked")
	return b, nil
}

func (s *Service) UnblockDate(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDeleteBlockedDate(ctx, id)
}

func (s *Service) ListBlockedDates(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]BlockedDate, error) {
	return s.repo.ListBlockedDates(ctx, doctorID, DateOf(from), DateOf(to))
}

// Calendar returns the resolved per-date windows for the booking UI.
func (s *Service) Calendar(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]DaySchedule, error) {
	return s.resolver.Resolve(ctx, doctorID, from, to)
}
