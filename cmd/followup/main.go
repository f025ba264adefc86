package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/civiclink/backend/internal/app"
	"github.com/civiclink/backend/internal/config"
	"github.com/civiclink/backend/internal/db"
	"github.com/civiclink/backend/internal/scheduler"
	"github.com/civiclink/backend/internal/service"
)

func main() {
	schedule := flag.String("schedule", "", "cron expression; empty runs once and exits")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := app.Logger(cfg, "civiclink-followup")
	if *schedule == "" {
		*schedule = cfg.FollowupSchedule
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	engine := service.NewEngine(store, nil, cfg.Policy(), nil, nil, logger)
	followups := &service.FollowupService{
		Reports: store,
		Router:  engine,
		Mailer:  app.Sender(cfg, logger),
		Runs:    store,
		Delay:   cfg.FollowupDelay,
		Logger:  logger,
	}

	if *schedule == "" {
		sum, err := followups.Run(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("follow-up run failed")
		}
		logger.Info().
			Int("candidates", sum.Candidates).
			Int("sent", sum.Sent).
			Int("no_match", sum.NoMatch).
			Int("failed", sum.Failed).
			Msg("follow-up run finished")
		return
	}

	sched := scheduler.New(logger)
	if err := sched.Add("followups", *schedule, func(ctx context.Context) error {
		_, err := followups.Run(ctx)
		return err
	}); err != nil {
		logger.Fatal().Err(err).Msg("invalid schedule")
	}
	if next, err := scheduler.Next(*schedule, time.Now()); err == nil {
		logger.Info().Str("schedule", *schedule).Time("next_run", next).Msg("follow-up scheduler started")
	}
	sched.Start()

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sched.Stop(stopCtx)
	logger.Info().Msg("follow-up scheduler stopped")
}
