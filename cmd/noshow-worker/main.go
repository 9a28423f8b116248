package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/appointment"
	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/availability"
	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/config"
	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/db"
	"github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/logging"
	redisclient "github.com/Audri-Rian/TelemedicinaParaTodos-sub001/internal/redis"
)

// The no-show sweep runs outside the state machine: appointments never mark
// themselves, this worker periodically invokes the transition on their
// behalf once the grace period has passed.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	logging.Init("noshow-worker", cfg.Env)
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("no-show worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

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
	apptRepo := appointment.NewPgRepository(pgPool)
	svc := appointment.NewService(
		apptRepo,
		availability.NewResolver(availRepo),
		redisclient.NewRedisBookingLocker(rdb, cfg.BookingLockTTL),
		redisclient.NewEventPublisher(rdb),
		appointment.Policy{
			Lead:         cfg.LeadMinutes,
			Grace:        cfg.GraceMinutes,
			CancelCutoff: cfg.CancelBeforeHours,
		},
		cfg.AppointmentMinutes,
	)

	// Run once at startup
	runOnce(rootCtx, svc)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping no-show worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	marked, err := svc.SweepNoShows(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("no-show sweep error")
		return
	}
	log.Info().Int("marked", marked).Dur("took", time.Since(start)).Msg("no-show sweep complete")
}
