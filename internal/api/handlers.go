package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/appointment"
	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/availability"
)

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		doctorID, _ := uuid.Parse(req.DoctorID)
		patientID, _ := uuid.Parse(req.PatientID)

		appt, err := svc.Book(r.Context(), doctorID, patientID, req.ScheduledAt)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(&detail.Appointment))
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		var (
			appts []appointment.Appointment
			err   error
		)
		switch {
		case r.URL.Query().Get("doctor_id") != "":
			doctorID, perr := uuid.Parse(r.URL.Query().Get("doctor_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			appts, err = svc.ListByDoctor(r.Context(), doctorID, limit, offset)
		case r.URL.Query().Get("patient_id") != "":
			patientID, perr := uuid.Parse(r.URL.Query().Get("patient_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			appts, err = svc.ListByPatient(r.Context(), patientID, limit, offset)
		default:
			writeError(w, http.StatusBadRequest, "missing_filter", "doctor_id or patient_id query parameter is required")
			return
		}
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			out = append(out, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func listAppointmentEventsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		events, err := svc.History(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		out := make([]EventResponse, 0, len(events))
		for _, ev := range events {
			out = append(out, EventResponse{
				ID:        ev.ID,
				UserID:    ev.UserID,
				Event:     string(ev.Type),
				Payload:   rawPayload(ev.Payload),
				CreatedAt: ev.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func startAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, id, actorID uuid.UUID) (*appointment.Appointment, error) {
		return svc.Start(r.Context(), id, actorID)
	})
}

func endAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, id, actorID uuid.UUID) (*appointment.Appointment, error) {
		return svc.End(r.Context(), id, actorID)
	})
}

func noShowAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, id, actorID uuid.UUID) (*appointment.Appointment, error) {
		return svc.MarkNoShow(r.Context(), id, actorID)
	})
}

// transitionHandler is the shared shape of start/end/no-show: an ID in the
// URL, an actor in the body, an appointment or a business rejection out.
func transitionHandler(apply func(r *http.Request, id, actorID uuid.UUID) (*appointment.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req TransitionRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		actorID, _ := uuid.Parse(req.ActorID)

		appt, err := apply(r, id, actorID)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req CancelRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		actorID, _ := uuid.Parse(req.ActorID)

		appt, err := svc.Cancel(r.Context(), id, actorID, req.Reason)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req RescheduleRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		actorID, _ := uuid.Parse(req.ActorID)

		appt, err := svc.Reschedule(r.Context(), id, actorID, req.ScheduledAt)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req UpdateAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		actorID, _ := uuid.Parse(req.ActorID)

		appt, err := svc.UpdateDetails(r.Context(), actorID, appointment.Update{
			ID:                id,
			Notes:             req.Notes,
			Metadata:          req.Metadata,
			VideoRecordingRef: req.VideoRecordingRef,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req TransitionRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		actorID, _ := uuid.Parse(req.ActorID)

		if err := svc.Delete(r.Context(), id, actorID); err != nil {
			handleAppointmentError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func rawPayload(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return jsonRaw(data)
}

type jsonRaw []byte

func (r jsonRaw) MarshalJSON() ([]byte, error) { return r, nil }

func handleAppointmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrSlotNotBookable):
		writeError(w, http.StatusConflict, "slot_not_bookable", err.Error())
	case errors.Is(err, appointment.ErrTransitionNotAllowed):
		writeError(w, http.StatusConflict, "transition_not_allowed", err.Error())
	case errors.Is(err, appointment.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, "concurrency_conflict", err.Error())
	case errors.Is(err, appointment.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, availability.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
