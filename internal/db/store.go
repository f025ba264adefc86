package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civiclink/backend/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrStatusConflict = errors.New("report status changed concurrently")
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const departmentColumns = `id, department_name, contact_email, jurisdiction, service_areas, primary_issues,
	secondary_issues, handles_issues, issue_keywords, priority, capacity, department_type, lat, lng,
	response_time, description, created_at, updated_at`

func scanDepartment(row pgx.Row) (models.Department, error) {
	var (
		d        models.Department
		lat, lng *float64
	)
	if err := row.Scan(&d.ID, &d.DepartmentName, &d.ContactEmail, &d.Jurisdiction, &d.ServiceAreas,
		&d.PrimaryIssues, &d.SecondaryIssues, &d.HandlesIssues, &d.IssueKeywords, &d.Priority,
		&d.Capacity, &d.DepartmentType, &lat, &lng, &d.ResponseTime, &d.Description,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		return models.Department{}, err
	}
	if lat != nil && lng != nil {
		d.Coordinates = &models.Coordinates{Lat: *lat, Lng: *lng}
	}
	return d, nil
}

func (s *Store) queryDepartments(ctx context.Context, query string, args ...any) ([]models.Department, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Department{}
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListDepartments returns the registry in insertion order.
func (s *Store) ListDepartments(ctx context.Context) ([]models.Department, error) {
	return s.queryDepartments(ctx, `SELECT `+departmentColumns+` FROM departments ORDER BY created_at ASC, id ASC`)
}

// DepartmentsByIssueAndZone matches the jurisdiction ignoring case and surrounding whitespace.
func (s *Store) DepartmentsByIssueAndZone(ctx context.Context, issue, zone string) ([]models.Department, error) {
	return s.queryDepartments(ctx, `SELECT `+departmentColumns+` FROM departments
		WHERE $1 = ANY(handles_issues) AND lower(btrim(jurisdiction)) = lower(btrim($2))
		ORDER BY created_at ASC, id ASC`, strings.ToLower(strings.TrimSpace(issue)), zone)
}

func (s *Store) DepartmentsByIssue(ctx context.Context, issue string) ([]models.Department, error) {
	return s.queryDepartments(ctx, `SELECT `+departmentColumns+` FROM departments
		WHERE $1 = ANY(handles_issues)
		ORDER BY created_at ASC, id ASC`, strings.ToLower(strings.TrimSpace(issue)))
}

func (s *Store) ListDepartmentsFiltered(ctx context.Context, jurisdiction, issue string) ([]models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments`
	var args []any
	var wheres []string
	if jurisdiction != "" {
		args = append(args, jurisdiction)
		wheres = append(wheres, fmt.Sprintf("lower(btrim(jurisdiction)) = lower(btrim($%d))", len(args)))
	}
	if issue != "" {
		args = append(args, strings.ToLower(strings.TrimSpace(issue)))
		wheres = append(wheres, fmt.Sprintf("$%d = ANY(handles_issues)", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	return s.queryDepartments(ctx, query, args...)
}

// UpsertDepartment inserts or replaces a department keyed by its name. Issue tags are
// stored lowercased so array membership lookups are case-insensitive.
func (s *Store) UpsertDepartment(ctx context.Context, d models.Department) (models.Department, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Priority == 0 {
		d.Priority = 2
	}
	if d.Capacity == "" {
		d.Capacity = "medium"
	}
	var lat, lng *float64
	if d.Coordinates != nil {
		lat, lng = &d.Coordinates.Lat, &d.Coordinates.Lng
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO departments (id, department_name, contact_email, jurisdiction, service_areas, primary_issues,
			secondary_issues, handles_issues, issue_keywords, priority, capacity, department_type, lat, lng,
			response_time, description)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (department_name) DO UPDATE SET
			contact_email = EXCLUDED.contact_email,
			jurisdiction = EXCLUDED.jurisdiction,
			service_areas = EXCLUDED.service_areas,
			primary_issues = EXCLUDED.primary_issues,
			secondary_issues = EXCLUDED.secondary_issues,
			handles_issues = EXCLUDED.handles_issues,
			issue_keywords = EXCLUDED.issue_keywords,
			priority = EXCLUDED.priority,
			capacity = EXCLUDED.capacity,
			department_type = EXCLUDED.department_type,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			response_time = EXCLUDED.response_time,
			description = EXCLUDED.description,
			updated_at = NOW()
		RETURNING `+departmentColumns,
		d.ID, strings.TrimSpace(d.DepartmentName), d.ContactEmail, strings.TrimSpace(d.Jurisdiction),
		nonNil(d.ServiceAreas), lowered(d.PrimaryIssues), lowered(d.SecondaryIssues), lowered(d.HandlesIssues),
		lowered(d.IssueKeywords), d.Priority, d.Capacity, d.DepartmentType, lat, lng, d.ResponseTime, d.Description)
	return scanDepartment(row)
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func lowered(v []string) []string {
	out := make([]string, 0, len(v))
	for _, s := range v {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

const reportColumns = `id, description, zone, state, image_url, user_id, user_email, status, department,
	email_sent, error, processing_details, created_at, updated_at`

func scanReport(row pgx.Row) (models.Report, error) {
	var (
		r       models.Report
		details []byte
	)
	if err := row.Scan(&r.ID, &r.Description, &r.Zone, &r.State, &r.ImageURL, &r.UserID, &r.UserEmail,
		&r.Status, &r.Department, &r.EmailSent, &r.Error, &details, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return models.Report{}, err
	}
	if len(details) > 0 {
		var pd models.ProcessingDetails
		if err := json.Unmarshal(details, &pd); err == nil {
			r.ProcessingDetails = &pd
		}
	}
	return r, nil
}

func (s *Store) CreateReport(ctx context.Context, r models.Report) error {
	if r.Status == "" {
		r.Status = models.StatusProcessing
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO reports (id, description, zone, state, image_url, user_id, user_email, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
	`, r.ID, r.Description, r.Zone, r.State, r.ImageURL, r.UserID, r.UserEmail, r.Status, r.CreatedAt)
	return err
}

func (s *Store) GetReport(ctx context.Context, id string) (models.Report, error) {
	r, err := scanReport(s.Pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Report{}, ErrNotFound
	}
	return r, err
}

func (s *Store) ListUserReports(ctx context.Context, userID string) ([]models.Report, error) {
	return s.queryReports(ctx, `SELECT `+reportColumns+` FROM reports WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

func (s *Store) queryReports(ctx context.Context, query string, args ...any) ([]models.Report, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FileReport moves a Processing report to Complaint Filed.
func (s *Store) FileReport(ctx context.Context, id, department string, details models.ProcessingDetails) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	return s.transition(ctx, id, `
		UPDATE reports SET status = $1, department = $2, email_sent = $3, error = '', processing_details = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6
	`, models.StatusComplaintFiled, department, details.EmailDetails.Sent, raw, id, models.StatusProcessing)
}

// FailReport moves a Processing report to Failed with a user-visible reason.
func (s *Store) FailReport(ctx context.Context, id, reason string, details *models.ProcessingDetails) error {
	var raw []byte
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return err
		}
		raw = b
	}
	return s.transition(ctx, id, `
		UPDATE reports SET status = $1, error = $2, email_sent = FALSE, processing_details = COALESCE($3, processing_details), updated_at = NOW()
		WHERE id = $4 AND status = $5
	`, models.StatusFailed, reason, raw, id, models.StatusProcessing)
}

// ReportsForFollowup returns filed complaints created at or before filedBefore, oldest first.
func (s *Store) ReportsForFollowup(ctx context.Context, filedBefore time.Time) ([]models.Report, error) {
	return s.queryReports(ctx, `SELECT `+reportColumns+` FROM reports
		WHERE status = $1 AND created_at <= $2 AND followup_sent_at IS NULL
		ORDER BY created_at ASC, id ASC`, models.StatusComplaintFiled, filedBefore)
}

func (s *Store) MarkFollowupSent(ctx context.Context, id string) error {
	return s.transition(ctx, id, `
		UPDATE reports SET status = $1, followup_sent_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, models.StatusFollowupSent, id, models.StatusComplaintFiled)
}

// transition runs a status-guarded UPDATE. When it matches no row, the existence
// check runs in the same transaction so the error reflects the row the UPDATE saw.
func (s *Store) transition(ctx context.Context, id, query string, args ...any) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reports WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStatusConflict
	})
}

func (s *Store) CreateRun(ctx context.Context, kind string) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `INSERT INTO runs (id, kind, status, started_at) VALUES ($1, $2, 'RUNNING', NOW())`, id, kind)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

func (s *Store) LatestRun(ctx context.Context, kind string) (models.Run, error) {
	var (
		r       models.Run
		summary []byte
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id, kind, started_at, finished_at, status, summary FROM runs
		WHERE kind = $1 ORDER BY started_at DESC LIMIT 1
	`, kind).Scan(&r.ID, &r.Kind, &r.StartedAt, &r.FinishedAt, &r.Status, &summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Run{}, ErrNotFound
	}
	r.Summary = summary
	return r, err
}
