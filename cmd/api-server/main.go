package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/api"
	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/appointment"
	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/availability"
	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/config"
	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/db"
	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/logging"
	redisclient "github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/redis"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	logging.Init("api-server", cfg.Env)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	availRepo := availability.NewPgRepository(pgPool)
	availSvc := availability.NewService(availRepo)

	apptRepo := appointment.NewPgRepository(pgPool)
	apptSvc := appointment.NewService(
		apptRepo,
		availSvc.Resolver(),
		redisclient.NewRedisBookingLocker(rdb, cfg.BookingLockTTL),
		redisclient.NewEventPublisher(rdb),
		appointment.Policy{
			Lead:         cfg.LeadMinutes,
			Grace:        cfg.GraceMinutes,
			CancelCutoff: cfg.CancelBeforeHours,
		},
		cfg.AppointmentMinutes,
	)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Appointments: apptSvc,
			Availability: availSvc,
			PgPool:       pgPool,
			Redis:        rdb,
			Env:          cfg.Env,
			Version:      version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
