package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/appointment"
	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/availability"
)

// Requests

type BookAppointmentRequest struct {
	DoctorID    string    `json:"doctor_id" validate:"required,uuid"`
	PatientID   string    `json:"patient_id" validate:"required,uuid"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

type TransitionRequest struct {
	ActorID string `json:"actor_id" validate:"required,uuid"`
}

type CancelRequest struct {
	ActorID string `json:"actor_id" validate:"required,uuid"`
	Reason  string `json:"reason"`
}

type RescheduleRequest struct {
	ActorID     string    `json:"actor_id" validate:"required,uuid"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

type UpdateAppointmentRequest struct {
	ActorID           string            `json:"actor_id" validate:"required,uuid"`
	Notes             *string           `json:"notes"`
	Metadata          map[string]string `json:"metadata"`
	VideoRecordingRef *string           `json:"video_recording_ref"`
}

type CreateRuleRequest struct {
	DoctorID     string  `json:"doctor_id" validate:"required,uuid"`
	LocationID   *string `json:"location_id" validate:"omitempty,uuid"`
	Kind         string  `json:"kind" validate:"required,oneof=recurring specific"`
	DayOfWeek    *int    `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	SpecificDate *string `json:"specific_date" validate:"omitempty,datetime=2006-01-02"`
	StartTime    string  `json:"start_time" validate:"required"`
	EndTime      string  `json:"end_time" validate:"required"`
}

type BlockDateRequest struct {
	DoctorID string  `json:"doctor_id" validate:"required,uuid"`
	Date     string  `json:"date" validate:"required,datetime=2006-01-02"`
	Reason   *string `json:"reason"`
}

// Responses

type AppointmentResponse struct {
	ID                uuid.UUID         `json:"id"`
	DoctorID          uuid.UUID         `json:"doctor_id"`
	PatientID         uuid.UUID         `json:"patient_id"`
	ScheduledAt       time.Time         `json:"scheduled_at"`
	AccessCode        string            `json:"access_code"`
	Status            string            `json:"status"`
	StartedAt         *time.Time        `json:"started_at,omitempty"`
	EndedAt           *time.Time        `json:"ended_at,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	VideoRecordingRef *string           `json:"video_recording_ref,omitempty"`
	DurationMinutes   *int              `json:"duration_minutes,omitempty"`
	FormattedDuration string            `json:"formatted_duration"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                a.ID,
		DoctorID:          a.DoctorID,
		PatientID:         a.PatientID,
		ScheduledAt:       a.ScheduledAt,
		AccessCode:        a.AccessCode,
		Status:            string(a.Status),
		StartedAt:         a.StartedAt,
		EndedAt:           a.EndedAt,
		Notes:             a.Notes,
		Metadata:          a.Metadata,
		VideoRecordingRef: a.VideoRecordingRef,
		DurationMinutes:   a.Duration(),
		FormattedDuration: a.FormattedDuration(),
	}
}

type EventResponse struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Event     string    `json:"event"`
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type RuleResponse struct {
	ID           uuid.UUID  `json:"id"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	LocationID   *uuid.UUID `json:"location_id,omitempty"`
	Kind         string     `json:"kind"`
	DayOfWeek    *int       `json:"day_of_week,omitempty"`
	SpecificDate *string    `json:"specific_date,omitempty"`
	StartTime    string     `json:"start_time"`
	EndTime      string     `json:"end_time"`
	IsActive     bool       `json:"is_active"`
}

func toRuleResponse(r *availability.Rule) RuleResponse {
	resp := RuleResponse{
		ID:         r.ID,
		DoctorID:   r.DoctorID,
		LocationID: r.LocationID,
		Kind:       string(r.Kind),
		StartTime:  r.StartTime.String(),
		EndTime:    r.EndTime.String(),
		IsActive:   r.IsActive,
	}
	if r.DayOfWeek != nil {
		d := int(*r.DayOfWeek)
		resp.DayOfWeek = &d
	}
	if r.SpecificDate != nil {
		s := r.SpecificDate.Format("2006-01-02")
		resp.SpecificDate = &s
	}
	return resp
}

type BlockedDateResponse struct {
	ID       uuid.UUID `json:"id"`
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Reason   *string   `json:"reason,omitempty"`
}

func toBlockedDateResponse(b *availability.BlockedDate) BlockedDateResponse {
	return BlockedDateResponse{
		ID:       b.ID,
		DoctorID: b.DoctorID,
		Date:     b.Date.Format("2006-01-02"),
		Reason:   b.Reason,
	}
}

type WindowResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type DayScheduleResponse struct {
	Date    string           `json:"date"`
	Windows []WindowResponse `json:"windows"`
}

func toCalendarResponse(days []availability.DaySchedule) []DayScheduleResponse {
	out := make([]DayScheduleResponse, 0, len(days))
	for _, d := range days {
		day := DayScheduleResponse{
			Date:    d.Date.Format("2006-01-02"),
			Windows: make([]WindowResponse, 0, len(d.Windows)),
		}
		for _, w := range d.Windows {
			day.Windows = append(day.Windows, WindowResponse{Start: w.Start.String(), End: w.End.String()})
		}
		out = append(out, day)
	}
	return out
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
