package appointment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = Policy{
	Lead:         10 * time.Minute,
	Grace:        15 * time.Minute,
	CancelCutoff: 24 * time.Hour,
}

func appt(status Status, scheduledAt time.Time) *Appointment {
	return &Appointment{
		ID:          uuid.New(),
		DoctorID:    uuid.New(),
		PatientID:   uuid.New(),
		ScheduledAt: scheduledAt,
		Status:      status,
	}
}

func TestPlanStart(t *testing.T) {
	scheduled := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  Status
		now     time.Time
		want    Status
		wantErr bool
	}{
		{"at scheduled time", StatusScheduled, scheduled, StatusInProgress, false},
		{"exactly at lead boundary", StatusScheduled, scheduled.Add(-10 * time.Minute), StatusInProgress, false},
		{"one second too early", StatusScheduled, scheduled.Add(-10*time.Minute - time.Second), "", true},
		{"five minutes early with ten minute lead", StatusScheduled, scheduled.Add(-5 * time.Minute), StatusInProgress, false},
		{"from rescheduled", StatusRescheduled, scheduled, StatusInProgress, false},
		{"already in progress", StatusInProgress, scheduled, "", true},
		{"completed", StatusCompleted, scheduled, "", true},
		{"cancelled", StatusCancelled, scheduled, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Plan(appt(tt.status, scheduled), TransitionStart, tt.now, testPolicy)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTransitionNotAllowed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanStartTightLead(t *testing.T) {
	scheduled := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	now := scheduled.Add(-5 * time.Minute)

	p := testPolicy
	p.Lead = 2 * time.Minute
	_, err := Plan(appt(StatusScheduled, scheduled), TransitionStart, now, p)
	assert.ErrorIs(t, err, ErrTransitionNotAllowed, "five minutes out exceeds a two minute lead")
}

func TestPlanEnd(t *testing.T) {
	scheduled := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

	got, err := Plan(appt(StatusInProgress, scheduled), TransitionEnd, scheduled.Add(30*time.Minute), testPolicy)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got)

	for _, st := range []Status{StatusScheduled, StatusRescheduled, StatusCompleted, StatusNoShow, StatusCancelled} {
		_, err := Plan(appt(st, scheduled), TransitionEnd, scheduled, testPolicy)
		assert.ErrorIs(t, err, ErrTransitionNotAllowed, "end from %s", st)
	}
}

func TestPlanCancel(t *testing.T) {
	scheduled := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  Status
		now     time.Time
		wantErr bool
	}{
		{"well before cutoff", StatusScheduled, scheduled.Add(-48 * time.Hour), false},
		{"exactly at cutoff", StatusScheduled, scheduled.Add(-24 * time.Hour), false},
		{"one second past cutoff", StatusScheduled, scheduled.Add(-24*time.Hour + time.Second), true},
		{"from rescheduled", StatusRescheduled, scheduled.Add(-48 * time.Hour), false},
		{"already cancelled", StatusCancelled, scheduled.Add(-48 * time.Hour), true},
		{"in progress", StatusInProgress, scheduled.Add(-48 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Plan(appt(tt.status, scheduled), TransitionCancel, tt.now, testPolicy)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTransitionNotAllowed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, got)
		})
	}
}

func TestPlanReschedule(t *testing.T) {
	scheduled := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

	got, err := Plan(appt(StatusScheduled, scheduled), TransitionReschedule, scheduled.Add(-25*time.Hour), testPolicy)
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, got)

	// Rescheduling again is allowed while the cutoff holds.
	got, err = Plan(appt(StatusRescheduled, scheduled), TransitionReschedule, scheduled.Add(-25*time.Hour), testPolicy)
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, got)

	_, err = Plan(appt(StatusScheduled, scheduled), TransitionReschedule, scheduled.Add(-23*time.Hour), testPolicy)
	assert.ErrorIs(t, err, ErrTransitionNotAllowed, "inside the cutoff")

	_, err = Plan(appt(StatusCompleted, scheduled), TransitionReschedule, scheduled.Add(-48*time.Hour), testPolicy)
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
}

func TestPlanNoShow(t *testing.T) {
	scheduled := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  Status
		now     time.Time
		wantErr bool
	}{
		{"exactly at grace boundary", StatusScheduled, scheduled.Add(15 * time.Minute), false},
		{"well past grace", StatusRescheduled, scheduled.Add(2 * time.Hour), false},
		{"one second inside grace", StatusScheduled, scheduled.Add(15*time.Minute - time.Second), true},
		{"before scheduled time", StatusScheduled, scheduled.Add(-time.Hour), true},
		{"in progress", StatusInProgress, scheduled.Add(time.Hour), true},
		{"completed", StatusCompleted, scheduled.Add(time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Plan(appt(tt.status, scheduled), TransitionNoShow, tt.now, testPolicy)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTransitionNotAllowed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusNoShow, got)
		})
	}
}

func TestPlanUnknownTransition(t *testing.T) {
	scheduled := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	_, err := Plan(appt(StatusScheduled, scheduled), Transition("pause"), scheduled, testPolicy)
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
}

func TestPlanNeverMutates(t *testing.T) {
	scheduled := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	a := appt(StatusScheduled, scheduled)

	_, err := Plan(a, TransitionStart, scheduled, testPolicy)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, a.Status)
	assert.Nil(t, a.StartedAt)
}
