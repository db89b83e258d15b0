package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/assessment-api/internal/config"
	"github.com/jwalitptl/assessment-api/internal/handler"
	assessmentHandler "github.com/jwalitptl/assessment-api/internal/handler/assessment"
	authHandler "github.com/jwalitptl/assessment-api/internal/handler/auth"
	patientHandler "github.com/jwalitptl/assessment-api/internal/handler/patient"
	"github.com/jwalitptl/assessment-api/internal/middleware"
	"github.com/jwalitptl/assessment-api/internal/repository/postgres"
	"github.com/jwalitptl/assessment-api/internal/router"
	assessmentService "github.com/jwalitptl/assessment-api/internal/service/assessment"
	authService "github.com/jwalitptl/assessment-api/internal/service/auth"
	patientService "github.com/jwalitptl/assessment-api/internal/service/patient"
	"github.com/jwalitptl/assessment-api/pkg/auth"
	"github.com/jwalitptl/assessment-api/pkg/logger"
	"github.com/jwalitptl/assessment-api/pkg/messaging/redis"
	"github.com/jwalitptl/assessment-api/pkg/metrics"
	"github.com/jwalitptl/assessment-api/pkg/security"
	"github.com/jwalitptl/assessment-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	clinicianRepo := postgres.NewClinicianRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	assessmentRepo := postgres.NewAssessmentRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiryHours) * time.Hour,
	})
	hasher := security.NewBcryptHasher(12)
	authSvc := authService.NewService(clinicianRepo, jwtSvc, hasher)
	patientSvc := patientService.NewService(patientRepo, outboxRepo)
	assessmentSvc := assessmentService.NewService(assessmentRepo, patientRepo, outboxRepo)

	// Metrics
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics("assessment_api")
	if err := m.Register(registry); err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	// Handlers
	h := handler.NewHandler(db, registry)
	authH := authHandler.NewHandler(authSvc)
	patientH := patientHandler.NewHandler(patientSvc)
	assessmentH := assessmentHandler.NewHandler(assessmentSvc)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}

	r := router.NewRouter(
		router.Config{
			RateLimit:   rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:   cfg.RateLimit.Burst,
			CORSConfig:  corsConfig,
			ReleaseMode: true,
		},
		authMiddleware,
		authH,
		patientH,
		assessmentH,
		h,
		m,
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	// Outbox processor publishes record events to redis. The API keeps
	// serving if redis is unavailable; events stay pending.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, outbox processing disabled")
	} else {
		processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
			BatchSize:    cfg.Outbox.BatchSize,
			PollInterval: cfg.Outbox.PollInterval,
		}, logger.NewLogger(nil), m)
		go processor.Start(ctx)
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
