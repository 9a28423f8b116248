package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/availability"
)

func createRuleHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRuleRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		doctorID, _ := uuid.Parse(req.DoctorID)
		var locationID *uuid.UUID
		if req.LocationID != nil {
			loc, _ := uuid.Parse(*req.LocationID)
			locationID = &loc
		}

		var (
			rule *availability.Rule
			err  error
		)
		switch availability.RuleKind(req.Kind) {
		case availability.KindRecurring:
			if req.DayOfWeek == nil {
				writeError(w, http.StatusUnprocessableEntity, "validation_failed", "day_of_week is required for recurring rules")
				return
			}
			rule, err = svc.CreateRecurringRule(r.Context(), doctorID, locationID, time.Weekday(*req.DayOfWeek), req.StartTime, req.EndTime)
		case availability.KindSpecific:
			if req.SpecificDate == nil {
				writeError(w, http.StatusUnprocessableEntity, "validation_failed", "specific_date is required for specific rules")
				return
			}
			date, perr := time.Parse("2006-01-02", *req.SpecificDate)
			if perr != nil {
				writeError(w, http.StatusUnprocessableEntity, "validation_failed", "specific_date must be YYYY-MM-DD")
				return
			}
			rule, err = svc.CreateSpecificRule(r.Context(), doctorID, locationID, date, req.StartTime, req.EndTime)
		}
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toRuleResponse(rule))
	}
}

func listRulesHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		rules, err := svc.ListRules(r.Context(), doctorID)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		out := make([]RuleResponse, 0, len(rules))
		for i := range rules {
			out = append(out, toRuleResponse(&rules[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func setRuleActiveHandler(svc *availability.Service, active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var (
			rule *availability.Rule
			err  error
		)
		if active {
			rule, err = svc.ActivateRule(r.Context(), id)
		} else {
			rule, err = svc.DeactivateRule(r.Context(), id)
		}
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRuleResponse(rule))
	}
}

func deleteRuleHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		if err := svc.DeleteRule(r.Context(), id); err != nil {
			handleAvailabilityError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func blockDateHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BlockDateRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		doctorID, _ := uuid.Parse(req.DoctorID)
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "validation_failed", "date must be YYYY-MM-DD")
			return
		}

		blocked, err := svc.BlockDate(r.Context(), doctorID, date, req.Reason)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toBlockedDateResponse(blocked))
	}
}

func listBlockedDatesHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		from, to, ok := parseDateRange(w, r)
		if !ok {
			return
		}

		blocked, err := svc.ListBlockedDates(r.Context(), doctorID, from, to)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		out := make([]BlockedDateResponse, 0, len(blocked))
		for i := range blocked {
			out = append(out, toBlockedDateResponse(&blocked[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func unblockDateHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		if err := svc.UnblockDate(r.Context(), id); err != nil {
			handleAvailabilityError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func calendarHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		from, to, ok := parseDateRange(w, r)
		if !ok {
			return
		}

		days, err := svc.Calendar(r.Context(), doctorID, from, to)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCalendarResponse(days))
	}
}

func parseDateRange(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	var err error
	if from, err = time.Parse("2006-01-02", r.URL.Query().Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
		return
	}
	if to, err = time.Parse("2006-01-02", r.URL.Query().Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
		return
	}
	return from, to, true
}

func handleAvailabilityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, availability.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, availability.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, "rule_not_found", err.Error())
	case errors.Is(err, availability.ErrBlockedDateNotFound):
		writeError(w, http.StatusNotFound, "blocked_date_not_found", err.Error())
	case errors.Is(err, availability.ErrDateAlreadyBlocked):
		writeError(w, http.StatusConflict, "date_already_blocked", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
