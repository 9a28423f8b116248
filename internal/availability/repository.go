package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRuleNotFound        = errors.New("availability rule not found")
	ErrBlockedDateNotFound = errors.New("blocked date not found")
	ErrDateAlreadyBlocked  = errors.New("date is already blocked for this doctor")
)

// Repository contains all DB interactions needed by the resolver and service.
// Soft-deleted rows are excluded from every read.
type Repository interface {
	CreateRule(ctx context.Context, r *Rule) error
	GetRuleByID(ctx context.Context, id uuid.UUID) (*Rule, error)
	ListRules(ctx context.Context, doctorID uuid.UUID) ([]Rule, error)
	ListActiveRules(ctx context.Context, doctorID uuid.UUID) ([]Rule, error)
	SetRuleActive(ctx context.Context, id uuid.UUID, active bool) (*Rule, error)
	SoftDeleteRule(ctx context.Context, id uuid.UUID) error

	CreateBlockedDate(ctx context.Context, b *BlockedDate) error
	GetBlockedDateByID(ctx context.Context, id uuid.UUID) (*BlockedDate, error)
	ListBlockedDates(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]BlockedDate, error)
	SoftDeleteBlockedDate(ctx context.Context, id uuid.UUID) error
}
