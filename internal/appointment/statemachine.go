package appointment

import (
	"errors"
	"fmt"
	"time"
)

// ErrTransitionNotAllowed covers both wrong-state and failed time-guard
// attempts. Callers distinguish the two only by message.
var ErrTransitionNotAllowed = errors.New("transition not allowed")

type Transition string

const (
	TransitionStart      Transition = "start"
	TransitionEnd        Transition = "end"
	TransitionCancel     Transition = "cancel"
	TransitionReschedule Transition = "reschedule"
	TransitionNoShow     Transition = "no_show"
)

// Policy holds the configurable time windows the lifecycle guards evaluate.
type Policy struct {
	Lead         time.Duration // start allowed from scheduled_at - Lead
	Grace        time.Duration // no-show allowed from scheduled_at + Grace
	CancelCutoff time.Duration // cancel/reschedule allowed until scheduled_at - CancelCutoff
}

// Plan validates a lifecycle transition against the appointment's current
// state and the time policy, and returns the status it would move to.
// It never mutates the appointment; time is passed in explicitly so guards
// are deterministic under test. All boundaries are inclusive: start at
// exactly scheduled_at-Lead, cancel at exactly scheduled_at-CancelCutoff
// and no-show at exactly scheduled_at+Grace all succeed.
func Plan(a *Appointment, tr Transition, now time.Time, p Policy) (Status, error) {
	switch tr {
	case TransitionStart:
		if a.Status != StatusScheduled && a.Status != StatusRescheduled {
			return "", stateError(tr, a.Status)
		}
		if now.Before(a.ScheduledAt.Add(-p.Lead)) {
			return "", fmt.Errorf("%w: call may start no earlier than %s before the scheduled time", ErrTransitionNotAllowed, p.Lead)
		}
		return StatusInProgress, nil

	case TransitionEnd:
		if a.Status != StatusInProgress {
			return "", stateError(tr, a.Status)
		}
		return StatusCompleted, nil

	case TransitionCancel:
		if a.Status != StatusScheduled && a.Status != StatusRescheduled {
			return "", stateError(tr, a.Status)
		}
		if now.After(a.ScheduledAt.Add(-p.CancelCutoff)) {
			return "", fmt.Errorf("%w: cancellation requires at least %s notice", ErrTransitionNotAllowed, p.CancelCutoff)
		}
		return StatusCancelled, nil

	case TransitionReschedule:
		if a.Status != StatusScheduled && a.Status != StatusRescheduled {
			return "", stateError(tr, a.Status)
		}
		if now.After(a.ScheduledAt.Add(-p.CancelCutoff)) {
			return "", fmt.Errorf("%w: rescheduling requires at least %s notice", ErrTransitionNotAllowed, p.CancelCutoff)
		}
		return StatusRescheduled, nil

	case TransitionNoShow:
		if a.Status != StatusScheduled && a.Status != StatusRescheduled {
			return "", stateError(tr, a.Status)
		}
		if now.Before(a.ScheduledAt.Add(p.Grace)) {
			return "", fmt.Errorf("%w: no-show applies only %s after the scheduled time", ErrTransitionNotAllowed, p.Grace)
		}
		return StatusNoShow, nil
	}

	return "", fmt.Errorf("%w: unknown transition %q", ErrTransitionNotAllowed, tr)
}

func stateError(tr Transition, s Status) error {
	return fmt.Errorf("%w: cannot %s an appointment in status %q", ErrTransitionNotAllowed, tr, s)
}
