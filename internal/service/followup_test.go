package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclink/backend/internal/models"
)

func TestFollowupRun(t *testing.T) {
	now := fixedNow
	old := now.Add(-6 * 24 * time.Hour)
	reports := newMemReports(
		models.Report{ID: "f1", Description: "pothole", Zone: "Mumbai Central", Status: models.StatusComplaintFiled, CreatedAt: old},
		models.Report{ID: "f2", Description: "Something strange is happening", Zone: "Atlantis", Status: models.StatusComplaintFiled, CreatedAt: old},
		models.Report{ID: "f3", Description: "pothole", Zone: "Mumbai Central", Status: models.StatusComplaintFiled, CreatedAt: now.Add(-time.Hour)},
		models.Report{ID: "f4", Description: "pothole", Zone: "Mumbai Central", Status: models.StatusFailed, CreatedAt: old},
	)
	sender := &recordingSender{}
	s := &FollowupService{
		Reports: reports,
		Router:  NewEngine(mumbaiRegistry(), nil, DefaultPolicy(), nil, nil, zerolog.Nop()),
		Mailer:  sender,
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return now },
	}

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Candidates)
	assert.Equal(t, 1, sum.Sent)
	assert.Equal(t, 1, sum.NoMatch)
	assert.Contains(t, sum.Errors, "f2")

	assert.Equal(t, models.StatusFollowupSent, reports.get("f1").Status)
	assert.Equal(t, models.StatusComplaintFiled, reports.get("f2").Status)
	assert.Equal(t, models.StatusComplaintFiled, reports.get("f3").Status)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Follow-up: Civic Issue Report - Mumbai Central - f1", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].TextBody, "filed 5 days ago")
}

func TestFollowupRunIsIdempotent(t *testing.T) {
	reports := newMemReports(models.Report{
		ID: "g1", Description: "pothole", Zone: "Mumbai Central",
		Status: models.StatusComplaintFiled, CreatedAt: fixedNow.Add(-10 * 24 * time.Hour),
	})
	sender := &recordingSender{}
	s := &FollowupService{
		Reports: reports,
		Router:  NewEngine(mumbaiRegistry(), nil, DefaultPolicy(), nil, nil, zerolog.Nop()),
		Mailer:  sender,
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return fixedNow },
	}

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Candidates)
	assert.Len(t, sender.sent, 1)
}

type memRuns struct {
	created  []string
	statuses map[string]string
}

func (m *memRuns) CreateRun(ctx context.Context, kind string) (string, error) {
	id := kind + "-1"
	m.created = append(m.created, id)
	return id, nil
}

func (m *memRuns) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	if m.statuses == nil {
		m.statuses = map[string]string{}
	}
	m.statuses[runID] = status
	return nil
}

func TestFollowupRunRecordsRun(t *testing.T) {
	runs := &memRuns{}
	s := &FollowupService{
		Reports: newMemReports(),
		Router:  NewEngine(mumbaiRegistry(), nil, DefaultPolicy(), nil, nil, zerolog.Nop()),
		Mailer:  &recordingSender{},
		Runs:    runs,
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return fixedNow },
	}

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"followup-1"}, runs.created)
	assert.Equal(t, "SUCCESS", runs.statuses["followup-1"])
}
