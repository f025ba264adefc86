package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/civiclink/backend/internal/app"
	"github.com/civiclink/backend/internal/config"
	"github.com/civiclink/backend/internal/db"
	httpapi "github.com/civiclink/backend/internal/http"
	"github.com/civiclink/backend/internal/http/handlers"
	"github.com/civiclink/backend/internal/metrics"
	"github.com/civiclink/backend/internal/progress"
	"github.com/civiclink/backend/internal/scheduler"
	"github.com/civiclink/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := app.Logger(cfg, "civiclink-backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate db")
		}
	}
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	completer := app.Completer(cfg, logger)
	hub := progress.NewHub()
	go hub.Run(ctx, time.Minute)

	engine := service.NewEngine(store, completer, cfg.Policy(), hub, m, logger)
	sender := app.Sender(cfg, logger)

	processing := &service.ProcessingService{
		Reports:  store,
		Router:   engine,
		Mailer:   sender,
		Progress: hub,
		Metrics:  m,
		Logger:   logger,
	}
	followups := &service.FollowupService{
		Reports: store,
		Router:  engine,
		Mailer:  sender,
		Runs:    store,
		Delay:   cfg.FollowupDelay,
		Metrics: m,
		Logger:  logger,
	}

	if cfg.FollowupSchedule != "" {
		sched := scheduler.New(logger)
		if err := sched.Add("followups", cfg.FollowupSchedule, func(ctx context.Context) error {
			_, err := followups.Run(ctx)
			return err
		}); err != nil {
			logger.Fatal().Err(err).Msg("invalid follow-up schedule")
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
		logger.Info().Str("schedule", cfg.FollowupSchedule).Msg("follow-up scheduler started")
	}

	h := &handlers.Handler{
		Store:          store,
		Processor:      processing,
		Router:         engine,
		Followups:      followups,
		Progress:       hub,
		Completer:      completer,
		Metrics:        m,
		Validator:      validator.New(),
		Logger:         logger,
		AIProvider:     cfg.AIProvider,
		UploadDir:      cfg.UploadDir,
		PublicBaseURL:  cfg.PublicBaseURL,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}
	router := httpapi.Router(cfg, h, reg, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
