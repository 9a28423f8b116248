package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRuleLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo())
	doctorID := uuid.New()

	r, err := svc.CreateRecurringRule(ctx, doctorID, nil, time.Wednesday, "08:00", "12:00")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.IsActive)

	deactivated, err := svc.DeactivateRule(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	// Inactive rules stop producing windows but remain listed.
	wednesday := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)
	days, err := svc.Calendar(ctx, doctorID, wednesday, wednesday)
	require.NoError(t, err)
	assert.Empty(t, days[0].Windows)

	rules, err := svc.ListRules(ctx, doctorID)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	reactivated, err := svc.ActivateRule(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, reactivated.IsActive)

	require.NoError(t, svc.DeleteRule(ctx, r.ID))
	_, err = svc.GetRule(ctx, r.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestServiceCreateRuleRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo())

	_, err := svc.CreateRecurringRule(ctx, uuid.New(), nil, time.Monday, "12:00", "09:00")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateSpecificRule(ctx, uuid.New(), nil, time.Time{}, "09:00", "12:00")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestServiceBlockDateTwice(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo())
	doctorID := uuid.New()
	date := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)

	reason := "conference"
	b, err := svc.BlockDate(ctx, doctorID, date, &reason)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), b.Date)

	// Same calendar date, different clock time: still a duplicate.
	_, err = svc.BlockDate(ctx, doctorID, date.Add(4*time.Hour), nil)
	assert.ErrorIs(t, err, ErrDateAlreadyBlocked)

	require.NoError(t, svc.UnblockDate(ctx, b.ID))

	_, err = svc.BlockDate(ctx, doctorID, date, nil)
	assert.NoError(t, err, "unblocked date can be blocked again")
}

func TestServiceListBlockedDatesRange(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo())
	doctorID := uuid.New()

	for _, day := range []int{10, 12, 20} {
		_, err := svc.BlockDate(ctx, doctorID, time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC), nil)
		require.NoError(t, err)
	}

	got, err := svc.ListBlockedDates(ctx, doctorID,
		time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
