// Package mailer drafts department notifications and hands them to an email transport.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/civiclink/backend/internal/models"
)

type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05 MST"
)

// Compose renders the complaint email for department. It does no I/O; the only
// input that varies between calls is now.
func Compose(r models.Report, d models.Department, reasoning string, now time.Time) Email {
	data := complaintData{
		Department:  d.DepartmentName,
		Zone:        r.Zone,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		Date:        now.Format(dateLayout),
		Time:        now.Format(timeLayout),
		Reasoning:   strings.TrimSpace(reasoning),
	}
	return Email{
		To:       d.ContactEmail,
		Subject:  fmt.Sprintf("Civic Issue Report - %s - %s", r.Zone, data.Date),
		TextBody: complaintText(data),
		HTMLBody: render(complaintHTML, data),
	}
}

// ComposeFollowup renders the reminder sent when a filed complaint has gone quiet.
func ComposeFollowup(r models.Report, d models.Department, delay time.Duration) Email {
	days := int(delay.Hours() / 24)
	if days < 1 {
		days = 1
	}
	var b strings.Builder
	b.WriteString("Dear " + d.DepartmentName + ",\n\n")
	fmt.Fprintf(&b, "This is an automated follow-up regarding a civic issue report filed %d days ago.\n\n", days)
	fmt.Fprintf(&b, "Original Report ID: %s\n", r.ID)
	fmt.Fprintf(&b, "Issue Description: %s\n", r.Description)
	fmt.Fprintf(&b, "Location: %s\n", r.Zone)
	fmt.Fprintf(&b, "Date Filed: %s\n\n", r.CreatedAt.Format(dateLayout))
	b.WriteString("We have not received any updates on the status of this complaint. ")
	b.WriteString("Could you please provide an update on the actions taken or planned to address this issue?\n\n")
	b.WriteString("Thank you for your attention to this matter.\n\n")
	b.WriteString("Best regards,\nCivicLink AI System")

	return Email{
		To:       d.ContactEmail,
		Subject:  fmt.Sprintf("Follow-up: Civic Issue Report - %s - %s", r.Zone, r.ID),
		TextBody: b.String(),
	}
}

type complaintData struct {
	Department  string
	Zone        string
	Description string
	ImageURL    string
	Date        string
	Time        string
	Reasoning   string
}

func complaintText(d complaintData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", d.Department)
	fmt.Fprintf(&b, "I am writing to report a civic issue in %s that requires your attention.\n\n", d.Zone)
	fmt.Fprintf(&b, "Issue Description:\n%s\n\n", d.Description)
	fmt.Fprintf(&b, "Location: %s\n", d.Zone)
	if d.ImageURL != "" {
		fmt.Fprintf(&b, "\nImage Evidence: %s\n", d.ImageURL)
	}
	fmt.Fprintf(&b, "\nDate Reported: %s\nTime Reported: %s\n", d.Date, d.Time)
	if d.Reasoning != "" {
		fmt.Fprintf(&b, "\nAI Analysis: This issue was routed to your department because %s\n", d.Reasoning)
	}
	b.WriteString("\nThis report has been automatically generated through the CivicLink AI platform to ensure prompt and accurate routing of citizen complaints.\n\n")
	b.WriteString("Please investigate this matter and take appropriate action. A confirmation of receipt and any updates on the resolution status would be greatly appreciated.\n\n")
	b.WriteString("Thank you for your service to the community.\n\n")
	b.WriteString(signOff)
	return b.String()
}

const signOff = "Best regards,\nCivicLink AI System\nOn behalf of a concerned citizen"

var complaintHTML = template.Must(template.New("complaint").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Civic Issue Report</title></head>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <p>Dear {{.Department}},</p>
  <p>I am writing to report a civic issue in <strong>{{.Zone}}</strong> that requires your attention.</p>
  <h3 style="margin-bottom: 4px;">Issue Description</h3>
  <p style="white-space: pre-wrap;">{{.Description}}</p>
  <p>Location: {{.Zone}}</p>
  {{if .ImageURL}}<p>Image Evidence: <a href="{{.ImageURL}}">{{.ImageURL}}</a></p>{{end}}
  <p>Date Reported: {{.Date}}<br>Time Reported: {{.Time}}</p>
  {{if .Reasoning}}<p><em>AI Analysis: This issue was routed to your department because {{.Reasoning}}</em></p>{{end}}
  <p>Please investigate this matter and take appropriate action. A confirmation of receipt and any updates on the resolution status would be greatly appreciated.</p>
  <p>Best regards,<br>CivicLink AI System<br>On behalf of a concerned citizen</p>
</body>
</html>`))

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}
