package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/civiclink/backend/internal/mailer"
	"github.com/civiclink/backend/internal/metrics"
)

const DefaultFollowupDelay = 5 * 24 * time.Hour

type FollowupSummary struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Candidates int               `json:"candidates"`
	Sent       int               `json:"sent"`
	NoMatch    int               `json:"no_match"`
	Failed     int               `json:"failed"`
	Errors     map[string]string `json:"errors,omitempty"`
}

const RunKindFollowup = "followup"

// RunRecorder keeps an audit row per batch execution.
type RunRecorder interface {
	CreateRun(ctx context.Context, kind string) (string, error)
	FinishRun(ctx context.Context, runID string, status string, summary []byte) error
}

// FollowupService reminds departments about complaints with no status change
// since they were filed. It re-matches departments deterministically.
type FollowupService struct {
	Reports ReportStore
	Router  *Engine
	Mailer  mailer.Sender
	Runs    RunRecorder
	Delay   time.Duration
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Run processes every eligible report once. Per-report failures are recorded in
// the summary and do not stop the batch; only failing to list candidates is an error.
func (s *FollowupService) Run(ctx context.Context) (FollowupSummary, error) {
	if s.Runs == nil {
		return s.run(ctx)
	}
	runID, err := s.Runs.CreateRun(ctx, RunKindFollowup)
	if err != nil {
		s.Logger.Error().Err(err).Msg("failed to create run")
		return s.run(ctx)
	}
	sum, err := s.run(ctx)
	status := "SUCCESS"
	if err != nil {
		status = "FAILED"
	}
	b, _ := json.Marshal(sum)
	if finishErr := s.Runs.FinishRun(ctx, runID, status, b); finishErr != nil {
		s.Logger.Error().Err(finishErr).Msg("failed to finish run")
	}
	return sum, err
}

func (s *FollowupService) run(ctx context.Context) (FollowupSummary, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	delay := s.Delay
	if delay <= 0 {
		delay = DefaultFollowupDelay
	}

	sum := FollowupSummary{StartedAt: now().UTC(), Errors: map[string]string{}}
	reports, err := s.Reports.ReportsForFollowup(ctx, now().Add(-delay))
	if err != nil {
		return sum, err
	}
	sum.Candidates = len(reports)
	s.Logger.Info().Int("candidates", len(reports)).Msg("follow-up run started")

	for _, r := range reports {
		if err := ctx.Err(); err != nil {
			sum.FinishedAt = now().UTC()
			return sum, err
		}
		log := s.Logger.With().Str("report_id", r.ID).Logger()

		d, err := s.Router.Rematch(ctx, r)
		if err != nil {
			sum.NoMatch++
			sum.Errors[r.ID] = "Department not found for follow-up"
			s.Metrics.Followup("no_match")
			log.Warn().Err(err).Msg("follow-up skipped, no department")
			continue
		}

		email := mailer.ComposeFollowup(r, d.Department, delay)
		if _, err := s.Mailer.Send(ctx, email); err != nil {
			sum.Failed++
			sum.Errors[r.ID] = err.Error()
			s.Metrics.Email("followup", false)
			s.Metrics.Followup("failed")
			log.Error().Err(err).Msg("follow-up email failed")
			continue
		}
		s.Metrics.Email("followup", true)

		if err := s.Reports.MarkFollowupSent(ctx, r.ID); err != nil {
			sum.Failed++
			sum.Errors[r.ID] = err.Error()
			s.Metrics.Followup("failed")
			log.Error().Err(err).Msg("failed to mark follow-up sent")
			continue
		}
		sum.Sent++
		s.Metrics.Followup("sent")
		log.Info().Str("department", d.Department.DepartmentName).Msg("follow-up sent")
	}

	sum.FinishedAt = now().UTC()
	s.Logger.Info().
		Int("sent", sum.Sent).
		Int("no_match", sum.NoMatch).
		Int("failed", sum.Failed).
		Msg("follow-up run finished")
	return sum, nil
}
