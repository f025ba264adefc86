package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/civiclink/backend/internal/mailer"
	"github.com/civiclink/backend/internal/models"
)

type memRegistry struct {
	mu    sync.Mutex
	depts []models.Department
	err   error
	// failFirst makes only the first ListDepartments call fail.
	failFirst bool
	calls     int
}

func (m *memRegistry) ListDepartments(ctx context.Context) ([]models.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failFirst && m.calls == 1 {
		return nil, errors.New("registry timeout")
	}
	if m.err != nil {
		return nil, m.err
	}
	return append([]models.Department(nil), m.depts...), nil
}

func (m *memRegistry) DepartmentsByIssueAndZone(ctx context.Context, issue, zone string) ([]models.Department, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Department
	for _, d := range m.depts {
		if hasIssue(d.HandlesIssues, issue) && strings.EqualFold(strings.TrimSpace(d.Jurisdiction), strings.TrimSpace(zone)) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memRegistry) DepartmentsByIssue(ctx context.Context, issue string) ([]models.Department, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Department
	for _, d := range m.depts {
		if hasIssue(d.HandlesIssues, issue) {
			out = append(out, d)
		}
	}
	return out, nil
}

type memReports struct {
	mu      sync.Mutex
	reports map[string]models.Report
}

func newMemReports(rs ...models.Report) *memReports {
	m := &memReports{reports: map[string]models.Report{}}
	for _, r := range rs {
		m.reports[r.ID] = r
	}
	return m
}

var errConflict = errors.New("status conflict")

func (m *memReports) CreateReport(ctx context.Context, r models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = r
	return nil
}

func (m *memReports) GetReport(ctx context.Context, id string) (models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return models.Report{}, errors.New("not found")
	}
	return r, nil
}

func (m *memReports) ListUserReports(ctx context.Context, userID string) ([]models.Report, error) {
	return nil, nil
}

func (m *memReports) transition(id, from, to string, fn func(*models.Report)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok || r.Status != from {
		return errConflict
	}
	r.Status = to
	fn(&r)
	m.reports[id] = r
	return nil
}

func (m *memReports) FileReport(ctx context.Context, id, department string, details models.ProcessingDetails) error {
	return m.transition(id, models.StatusProcessing, models.StatusComplaintFiled, func(r *models.Report) {
		r.Department = department
		r.EmailSent = details.EmailDetails.Sent
		r.ProcessingDetails = &details
	})
}

func (m *memReports) FailReport(ctx context.Context, id, reason string, details *models.ProcessingDetails) error {
	return m.transition(id, models.StatusProcessing, models.StatusFailed, func(r *models.Report) {
		r.Error = reason
		r.ProcessingDetails = details
	})
}

func (m *memReports) ReportsForFollowup(ctx context.Context, filedBefore time.Time) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Report
	for _, r := range m.reports {
		if r.Status == models.StatusComplaintFiled && !r.CreatedAt.After(filedBefore) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReports) MarkFollowupSent(ctx context.Context, id string) error {
	return m.transition(id, models.StatusComplaintFiled, models.StatusFollowupSent, func(*models.Report) {})
}

func (m *memReports) get(id string) models.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports[id]
}

type fixedCompleter struct {
	text  string
	err   error
	block bool
	calls int
}

func (f *fixedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Email
	err  error
}

func (r *recordingSender) Send(ctx context.Context, e mailer.Email) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.sent = append(r.sent, e)
	return "<test@civiclink.local>", nil
}

func department(name, jurisdiction string, priority int, handles ...string) models.Department {
	return models.Department{
		ID:             strings.ReplaceAll(strings.ToLower(name), " ", "-"),
		DepartmentName: name,
		ContactEmail:   strings.ReplaceAll(strings.ToLower(name), " ", ".") + "@example.org",
		Jurisdiction:   jurisdiction,
		HandlesIssues:  handles,
		Priority:       priority,
	}
}

type panickingCompleter struct{}

func (panickingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	panic("provider client bug")
}

// stubbornCompleter ignores ctx and returns only once release is closed.
type stubbornCompleter struct {
	release chan struct{}
}

func (s stubbornCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	<-s.release
	return `{"success":true,"confidence":0.9,"recommendedDepartment":{"departmentName":"Mumbai Roads"}}`, nil
}
