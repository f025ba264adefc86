package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/civiclink/backend/internal/mailer"
	"github.com/civiclink/backend/internal/metrics"
	"github.com/civiclink/backend/internal/models"
	"github.com/civiclink/backend/internal/progress"
)

var ErrReportFinished = errors.New("report already reached a terminal status")

// ReportStore persists reports. Status changes are compare-and-set on the
// current status, so a report that already reached a terminal state is left alone.
type ReportStore interface {
	CreateReport(ctx context.Context, r models.Report) error
	GetReport(ctx context.Context, id string) (models.Report, error)
	ListUserReports(ctx context.Context, userID string) ([]models.Report, error)
	FileReport(ctx context.Context, id, department string, details models.ProcessingDetails) error
	FailReport(ctx context.Context, id, reason string, details *models.ProcessingDetails) error
	ReportsForFollowup(ctx context.Context, filedBefore time.Time) ([]models.Report, error)
	MarkFollowupSent(ctx context.Context, id string) error
}

// ProcessingService runs one report through routing and notification and records the outcome.
type ProcessingService struct {
	Reports  ReportStore
	Router   *Engine
	Mailer   mailer.Sender
	Progress *progress.Hub
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
	Now      func() time.Time
}

// ProcessReport drives r from Processing to Complaint Filed or Failed. The returned
// error is informational: the terminal status is already stored when it returns.
func (s *ProcessingService) ProcessReport(ctx context.Context, r models.Report) error {
	log := s.Logger.With().Str("report_id", r.ID).Logger()
	if r.Status != "" && r.Status != models.StatusProcessing {
		log.Debug().Str("status", r.Status).Msg("report already finished, skipping")
		return ErrReportFinished
	}
	steps := newStepRecorder(s.Progress, r.ID, s.now)

	steps.record(progress.Step("AI Analysis Starting", "Analyzing your report", "in_progress", 30))
	outcome, fr := s.Router.Route(ctx, r)
	if !outcome.OK() {
		reason := ErrNoDepartment.Error()
		if outcome.Err != nil && !errors.Is(outcome.Err, ErrNoDepartment) {
			reason = outcome.Err.Error()
		}
		log.Warn().Err(outcome.Err).Msg("no department found")
		details := s.details(nil, fr, models.EmailDetails{}, steps)
		return s.fail(ctx, r.ID, reason, &details, steps)
	}

	d := outcome.Decision
	log.Info().
		Str("department", d.Department.DepartmentName).
		Str("method", d.ProcessingMethod).
		Float64("confidence", d.Confidence).
		Msg("department selected")

	reasoning := ""
	if d.ProcessingMethod != models.MethodDeterministic {
		reasoning = d.Reasoning
	}
	email := mailer.Compose(r, d.Department, reasoning, s.now())
	steps.record(models.ProgressEvent{
		Type:     progress.EventStep,
		Step:     "Sending Email",
		Message:  "Sending complaint to " + d.Department.DepartmentName,
		Status:   "in_progress",
		Progress: 90,
		Data:     map[string]any{"department": d.Department.DepartmentName, "email": d.Department.ContactEmail},
	})

	messageID, err := s.Mailer.Send(ctx, email)
	s.Metrics.Email("complaint", err == nil)
	if err != nil {
		log.Error().Err(err).Msg("email send failed")
		steps.record(progress.Step("Email Send Failed", err.Error(), "error", 100))
		details := s.details(d, fr, models.EmailDetails{Sent: false, Timestamp: s.now().UTC()}, steps)
		return s.fail(ctx, r.ID, fmt.Sprintf("Failed to send email: %v", err), &details, steps)
	}

	steps.record(progress.Step("Processing Complete", "Complaint filed with "+d.Department.DepartmentName, "completed", 100))
	details := s.details(d, fr, models.EmailDetails{Sent: true, MessageID: messageID, Timestamp: s.now().UTC()}, steps)
	if err := s.Reports.FileReport(ctx, r.ID, d.Department.DepartmentName, details); err != nil {
		log.Error().Err(err).Msg("failed to record filed report")
		steps.finish(models.ProgressEvent{Type: progress.EventError, Message: "Failed to save report outcome", Progress: 100})
		return err
	}
	s.Metrics.ReportFinished(models.StatusComplaintFiled)
	steps.finish(models.ProgressEvent{
		Type:     progress.EventComplete,
		Message:  "Complaint filed with " + d.Department.DepartmentName,
		Status:   models.StatusComplaintFiled,
		Progress: 100,
		Data:     details.AIAnalysis,
	})
	return nil
}

func (s *ProcessingService) fail(ctx context.Context, id, reason string, details *models.ProcessingDetails, steps *stepRecorder) error {
	if err := s.Reports.FailReport(ctx, id, reason, details); err != nil {
		s.Logger.Error().Err(err).Str("report_id", id).Msg("failed to record failed report")
	}
	s.Metrics.ReportFinished(models.StatusFailed)
	steps.finish(models.ProgressEvent{Type: progress.EventError, Message: reason, Status: models.StatusFailed, Progress: 100})
	return errors.New(reason)
}

func (s *ProcessingService) details(d *models.RoutingDecision, fr FilterResult, email models.EmailDetails, steps *stepRecorder) models.ProcessingDetails {
	out := models.ProcessingDetails{
		EmailDetails:        email,
		ProcessingSteps:     steps.snapshot(),
		ProcessingTimestamp: s.now().UTC(),
	}
	if fr.Stats.Method != "" {
		stats := fr.Stats
		out.FilterStats = &stats
	}
	if d != nil {
		out.AIAnalysis = models.AIAnalysis{
			Reasoning:        d.Reasoning,
			Confidence:       d.Confidence,
			Keywords:         d.Keywords,
			Alternatives:     d.Alternatives,
			ProcessingMethod: d.ProcessingMethod,
		}
	}
	return out
}

func (s *ProcessingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// stepRecorder keeps the step trail for the audit record and mirrors it to live listeners.
type stepRecorder struct {
	hub      *progress.Hub
	reportID string
	now      func() time.Time
	steps    []models.ProgressEvent
}

func newStepRecorder(hub *progress.Hub, reportID string, now func() time.Time) *stepRecorder {
	return &stepRecorder{hub: hub, reportID: reportID, now: now}
}

func (r *stepRecorder) record(ev models.ProgressEvent) {
	ev.Timestamp = r.now().UTC()
	r.steps = append(r.steps, ev)
	if r.hub != nil {
		r.hub.Notify(r.reportID, ev)
	}
}

func (r *stepRecorder) finish(ev models.ProgressEvent) {
	ev.Timestamp = r.now().UTC()
	if r.hub != nil {
		r.hub.Notify(r.reportID, ev)
	}
}

// snapshot merges locally recorded steps with those the routing engine published to the hub.
func (r *stepRecorder) snapshot() []models.ProgressEvent {
	if r.hub != nil {
		if h := r.hub.History(r.reportID); len(h) > 0 {
			return h
		}
	}
	return append([]models.ProgressEvent(nil), r.steps...)
}
