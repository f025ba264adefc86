package models

import (
	"encoding/json"
	"time"
)

const (
	StatusProcessing     = "Processing"
	StatusComplaintFiled = "Complaint Filed"
	StatusFailed         = "Failed"
	StatusFollowupSent   = "Follow-up Sent"
)

const (
	MatchExact    = "exact"
	MatchRegional = "regional"
	MatchFallback = "fallback"
)

const (
	MethodAI             = "ai"
	MethodAIWithFallback = "ai_with_fallback"
	MethodDeterministic  = "deterministic"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Department struct {
	ID              string       `json:"id"`
	DepartmentName  string       `json:"department_name" validate:"required"`
	ContactEmail    string       `json:"contact_email" validate:"required,email"`
	Jurisdiction    string       `json:"jurisdiction" validate:"required"`
	ServiceAreas    []string     `json:"service_areas"`
	PrimaryIssues   []string     `json:"primary_issues"`
	SecondaryIssues []string     `json:"secondary_issues"`
	HandlesIssues   []string     `json:"handles_issues"`
	IssueKeywords   []string     `json:"issue_keywords"`
	Priority        int          `json:"priority" validate:"omitempty,min=1,max=3"`
	Capacity        string       `json:"capacity" validate:"omitempty,oneof=low medium high"`
	DepartmentType  string       `json:"department_type"`
	Coordinates     *Coordinates `json:"coordinates,omitempty"`
	ResponseTime    string       `json:"response_time"`
	Description     string       `json:"description"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type Report struct {
	ID                string             `json:"id"`
	Description       string             `json:"description"`
	Zone              string             `json:"zone"`
	State             string             `json:"state,omitempty"`
	ImageURL          string             `json:"image_url,omitempty"`
	UserID            string             `json:"user_id"`
	UserEmail         string             `json:"user_email"`
	Status            string             `json:"status"`
	Department        string             `json:"department,omitempty"`
	EmailSent         bool               `json:"email_sent"`
	Error             string             `json:"error,omitempty"`
	ProcessingDetails *ProcessingDetails `json:"processing_details,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// CandidateDepartment lives for one filtering pass only.
type CandidateDepartment struct {
	Department
	MatchType       string  `json:"match_type"`
	GeographicScore float64 `json:"geographic_score"`
	IssueScore      float64 `json:"issue_score"`
	TotalScore      float64 `json:"total_score"`
	FinalScore      float64 `json:"final_score"`
}

type Alternative struct {
	DepartmentName string  `json:"department_name"`
	Reasoning      string  `json:"reasoning,omitempty"`
	Score          float64 `json:"score,omitempty"`
}

type RoutingDecision struct {
	Department       Department    `json:"department"`
	Confidence       float64       `json:"confidence"`
	Reasoning        string        `json:"reasoning"`
	Keywords         []string      `json:"keywords"`
	Alternatives     []Alternative `json:"alternatives"`
	ProcessingMethod string        `json:"processing_method"`
	MatchType        string        `json:"match_type,omitempty"`
}

type FilterStats struct {
	TotalDepartments int    `json:"total_departments"`
	AfterGeographic  int    `json:"after_geographic"`
	AfterIssueType   int    `json:"after_issue_type"`
	SentToAI         int    `json:"sent_to_ai"`
	Method           string `json:"method"`
}

type AIAnalysis struct {
	Reasoning        string        `json:"reasoning"`
	Confidence       float64       `json:"confidence"`
	Keywords         []string      `json:"keywords"`
	Alternatives     []Alternative `json:"alternatives"`
	ProcessingMethod string        `json:"processing_method"`
}

type EmailDetails struct {
	Sent      bool      `json:"sent"`
	MessageID string    `json:"message_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ProgressEvent struct {
	Type      string    `json:"type"`
	Step      string    `json:"step,omitempty"`
	Message   string    `json:"message"`
	Status    string    `json:"status,omitempty"`
	Progress  int       `json:"progress"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ProcessingDetails struct {
	AIAnalysis          AIAnalysis      `json:"ai_analysis"`
	FilterStats         *FilterStats    `json:"filter_stats,omitempty"`
	EmailDetails        EmailDetails    `json:"email_details"`
	ProcessingSteps     []ProgressEvent `json:"processing_steps,omitempty"`
	ProcessingTimestamp time.Time       `json:"processing_timestamp"`
}

// Run records one execution of the follow-up batch.
type Run struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Status     string          `json:"status"`
	Summary    json.RawMessage `json:"summary,omitempty"`
}
