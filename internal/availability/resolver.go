package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Window is a half-open bookable interval [Start, End) on a single date.
type Window struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether an appointment of the given length starting at
// the given time of day fits entirely inside the window.
func (w Window) Contains(start TimeOfDay, length time.Duration) bool {
	end := start + TimeOfDay(length/time.Minute)
	return start >= w.Start && end <= w.End
}

// DaySchedule is the resolved set of disjoint windows for one date,
// in chronological order. An empty Windows slice means the doctor is
// unavailable that day.
type DaySchedule struct {
	Date    time.Time `json:"date"`
	Windows []Window  `json:"windows"`
}

// Resolver turns a doctor's rules and blocked dates into concrete bookable
// windows per calendar date.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve computes one DaySchedule per date in [from, to], inclusive.
// Blocked dates yield an empty window set, as do dates with no matching
// rule; neither is an error.
func (rs *Resolver) Resolve(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]DaySchedule, error) {
	from, to = DateOf(from), DateOf(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: date range end before start", ErrValidation)
	}

	rules, err := rs.repo.ListActiveRules(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	blocked, err := rs.repo.ListBlockedDates(ctx, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list blocked dates: %w", err)
	}

	blockedSet := make(map[time.Time]bool, len(blocked))
	for _, b := range blocked {
		blockedSet[DateOf(b.Date)] = true
	}

	var out []DaySchedule
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := DaySchedule{Date: d}
		if !blockedSet[d] {
			var windows []Window
			for _, r := range rules {
				if r.Matches(d) {
					windows = append(windows, Window{Start: r.StartTime, End: r.EndTime})
				}
			}
			day.Windows = MergeWindows(windows)
		}
		out = append(out, day)
	}
	return out, nil
}

// WindowsForDate resolves a single date.
func (rs *Resolver) WindowsForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Window, error) {
	days, err := rs.Resolve(ctx, doctorID, date, date)
	if err != nil {
		return nil, err
	}
	return days[0].Windows, nil
}

// MergeWindows collapses overlapping or adjacent windows into the minimal
// disjoint set, ordered by start time. Sort-then-sweep: a window whose start
// is <= the current end extends the current window.
func MergeWindows(windows []Window) []Window {
	if len(windows) <= 1 {
		return windows
	}

	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := []Window{sorted[0]}
	for _, w := range sorted[1:] {
		cur := &merged[len(merged)-1]
		if w.Start <= cur.End {
			if w.End > cur.End {
				cur.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}
