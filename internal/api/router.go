package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/appointment"
	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/availability"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Availability *availability.Service
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability management (doctor-facing)
	r.Route("/availability", func(r chi.Router) {
		r.Post("/rules", createRuleHandler(cfg.Availability))
		r.Get("/rules", listRulesHandler(cfg.Availability))
		r.Post("/rules/{id}/activate", setRuleActiveHandler(cfg.Availability, true))
		r.Post("/rules/{id}/deactivate", setRuleActiveHandler(cfg.Availability, false))
		r.Delete("/rules/{id}", deleteRuleHandler(cfg.Availability))

		r.Post("/blocked-dates", blockDateHandler(cfg.Availability))
		r.Get("/blocked-dates", listBlockedDatesHandler(cfg.Availability))
		r.Delete("/blocked-dates/{id}", unblockDateHandler(cfg.Availability))
	})

	// Calendar query (booking UI)
	r.Get("/doctors/{id}/calendar", calendarHandler(cfg.Availability))

	// Appointment lifecycle
	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", bookAppointmentHandler(cfg.Appointments))
		r.Get("/", listAppointmentsHandler(cfg.Appointments))
		r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
		r.Get("/{id}/events", listAppointmentEventsHandler(cfg.Appointments))
		r.Patch("/{id}", updateAppointmentHandler(cfg.Appointments))
		r.Delete("/{id}", deleteAppointmentHandler(cfg.Appointments))

		r.Post("/{id}/start", startAppointmentHandler(cfg.Appointments))
		r.Post("/{id}/end", endAppointmentHandler(cfg.Appointments))
		r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
		r.Post("/{id}/reschedule", rescheduleAppointmentHandler(cfg.Appointments))
		r.Post("/{id}/no-show", noShowAppointmentHandler(cfg.Appointments))
	})

	return r
}
