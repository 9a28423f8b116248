package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory Repository used by resolver and service tests.
type memRepo struct {
	rules   map[uuid.UUID]*Rule
	blocked map[uuid.UUID]*BlockedDate
}

func newMemRepo() *memRepo {
	return &memRepo{
		rules:   make(map[uuid.UUID]*Rule),
		blocked: make(map[uuid.UUID]*BlockedDate),
	}
}

func (m *memRepo) CreateRule(_ context.Context, r *Rule) error {
	cp := *r
	m.rules[r.ID] = &cp
	return nil
}

func (m *memRepo) GetRuleByID(_ context.Context, id uuid.UUID) (*Rule, error) {
	r, ok := m.rules[id]
	if !ok || r.DeletedAt != nil {
		return nil, ErrRuleNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) ListRules(_ context.Context, doctorID uuid.UUID) ([]Rule, error) {
	return m.listRules(doctorID, false), nil
}

func (m *memRepo) ListActiveRules(_ context.Context, doctorID uuid.UUID) ([]Rule, error) {
	return m.listRules(doctorID, true), nil
}

func (m *memRepo) listRules(doctorID uuid.UUID, activeOnly bool) []Rule {
	var out []Rule
	for _, r := range m.rules {
		if r.DoctorID != doctorID || r.DeletedAt != nil {
			continue
		}
		if activeOnly && !r.IsActive {
			continue
		}
		out = append(out, *r)
	}
	return out
}

func (m *memRepo) SetRuleActive(_ context.Context, id uuid.UUID, active bool) (*Rule, error) {
	r, ok := m.rules[id]
	if !ok || r.DeletedAt != nil {
		return nil, ErrRuleNotFound
	}
	r.IsActive = active
	cp := *r
	return &cp, nil
}

func (m *memRepo) SoftDeleteRule(_ context.Context, id uuid.UUID) error {
	r, ok := m.rules[id]
	if !ok || r.DeletedAt != nil {
		return ErrRuleNotFound
	}
	now := time.Now()
	r.DeletedAt = &now
	return nil
}

func (m *memRepo) CreateBlockedDate(_ context.Context, b *BlockedDate) error {
	for _, existing := range m.blocked {
		if existing.DoctorID == b.DoctorID && existing.DeletedAt == nil && SameDate(existing.Date, b.Date) {
			return ErrDateAlreadyBlocked
		}
	}
	cp := *b
	m.blocked[b.ID] = &cp
	return nil
}

func (m *memRepo) GetBlockedDateByID(_ context.Context, id uuid.UUID) (*BlockedDate, error) {
	b, ok := m.blocked[id]
	if !ok || b.DeletedAt != nil {
		return nil, ErrBlockedDateNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memRepo) ListBlockedDates(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]BlockedDate, error) {
	var out []BlockedDate
	for _, b := range m.blocked {
		if b.DoctorID != doctorID || b.DeletedAt != nil {
			continue
		}
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (m *memRepo) SoftDeleteBlockedDate(_ context.Context, id uuid.UUID) error {
	b, ok := m.blocked[id]
	if !ok || b.DeletedAt != nil {
		return ErrBlockedDateNotFound
	}
	now := time.Now()
	b.DeletedAt = &now
	return nil
}

func TestMergeWindows(t *testing.T) {
	w := func(start, end string) Window {
		s, err := ParseTimeOfDay(start)
		require.NoError(t, err)
		e, err := ParseTimeOfDay(end)
		require.NoError(t, err)
		return Window{Start: s, End: e}
	}

	tests := []struct {
		name string
		in   []Window
		want []Window
	}{
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
		{
			name: "single",
			in:   []Window{w("09:00", "12:00")},
			want: []Window{w("09:00", "12:00")},
		},
		{
			name: "disjoint stay apart",
			in:   []Window{w("14:00", "15:00"), w("09:00", "12:00")},
			want: []Window{w("09:00", "12:00"), w("14:00", "15:00")},
		},
		{
			name: "overlapping merge",
			in:   []Window{w("09:00", "12:00"), w("11:00", "13:00")},
			want: []Window{w("09:00", "13:00")},
		},
		{
			name: "adjacent merge",
			in:   []Window{w("09:00", "12:00"), w("12:00", "14:00")},
			want: []Window{w("09:00", "14:00")},
		},
		{
			name: "contained is absorbed",
			in:   []Window{w("09:00", "17:00"), w("10:00", "11:00")},
			want: []Window{w("09:00", "17:00")},
		},
		{
			name: "chain of three",
			in:   []Window{w("13:00", "15:00"), w("09:00", "11:00"), w("10:30", "13:30")},
			want: []Window{w("09:00", "15:00")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeWindows(tt.in)
			assert.Equal(t, tt.want, got)

			// Post-merge disjointness invariant
			for i := 1; i < len(got); i++ {
				assert.Greater(t, got[i].Start, got[i-1].End, "windows must be disjoint and ordered")
			}
		})
	}
}

func TestResolveRecurringPlusSpecific(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	doctorID := uuid.New()
	monday := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	recurring, err := NewRecurringRule(doctorID, nil, time.Monday, "09:00", "12:00")
	require.NoError(t, err)
	require.NoError(t, repo.CreateRule(ctx, recurring))

	specific, err := NewSpecificRule(doctorID, nil, monday, "14:00", "15:00")
	require.NoError(t, err)
	require.NoError(t, repo.CreateRule(ctx, specific))

	days, err := NewResolver(repo).Resolve(ctx, doctorID, monday, monday)
	require.NoError(t, err)
	require.Len(t, days, 1)

	require.Len(t, days[0].Windows, 2)
	assert.Equal(t, "09:00", days[0].Windows[0].Start.String())
	assert.Equal(t, "12:00", days[0].Windows[0].End.String())
	assert.Equal(t, "14:00", days[0].Windows[1].Start.String())
	assert.Equal(t, "15:00", days[0].Windows[1].End.String())
}

func TestResolveBlockedDateWinsOverRules(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	doctorID := uuid.New()
	monday := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	rule, err := NewRecurringRule(doctorID, nil, time.Monday, "09:00", "12:00")
	require.NoError(t, err)
	require.NoError(t, repo.CreateRule(ctx, rule))

	block, err := NewBlockedDate(doctorID, monday, nil)
	require.NoError(t, err)
	require.NoError(t, repo.CreateBlockedDate(ctx, block))

	days, err := NewResolver(repo).Resolve(ctx, doctorID, monday, monday.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, days, 8)

	assert.Empty(t, days[0].Windows, "blocked date has no windows")
	assert.Len(t, days[7].Windows, 1, "following Monday is unaffected")
}

func TestResolveNoMatchingRulesIsNotAnError(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	doctorID := uuid.New()
	sunday := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)

	rule, err := NewRecurringRule(doctorID, nil, time.Monday, "09:00", "12:00")
	require.NoError(t, err)
	require.NoError(t, repo.CreateRule(ctx, rule))

	days, err := NewResolver(repo).Resolve(ctx, doctorID, sunday, sunday)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Empty(t, days[0].Windows)
}

func TestResolveMergesOverlappingRules(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	doctorID := uuid.New()
	monday := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	for _, hours := range [][2]string{{"09:00", "12:00"}, {"11:00", "14:00"}, {"13:30", "16:00"}} {
		r, err := NewRecurringRule(doctorID, nil, time.Monday, hours[0], hours[1])
		require.NoError(t, err)
		require.NoError(t, repo.CreateRule(ctx, r))
	}

	days, err := NewResolver(repo).Resolve(ctx, doctorID, monday, monday)
	require.NoError(t, err)
	require.Len(t, days[0].Windows, 1)
	assert.Equal(t, "09:00", days[0].Windows[0].Start.String())
	assert.Equal(t, "16:00", days[0].Windows[0].End.String())
}

func TestResolveInvertedRange(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	_, err := NewResolver(repo).Resolve(ctx, uuid.New(), day, day.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWindowContains(t *testing.T) {
	start, err := ParseTimeOfDay("09:00")
	require.NoError(t, err)
	end, err := ParseTimeOfDay("12:00")
	require.NoError(t, err)
	w := Window{Start: start, End: end}

	at := func(s string) TimeOfDay {
		v, err := ParseTimeOfDay(s)
		require.NoError(t, err)
		return v
	}

	assert.True(t, w.Contains(at("09:00"), 45*time.Minute))
	assert.True(t, w.Contains(at("11:15"), 45*time.Minute), "ends exactly at the window edge")
	assert.False(t, w.Contains(at("11:16"), 45*time.Minute), "would run past the window")
	assert.False(t, w.Contains(at("08:59"), 45*time.Minute))
	assert.False(t, w.Contains(at("12:00"), 45*time.Minute), "end is exclusive")
}
