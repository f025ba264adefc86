package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/civiclink/backend/internal/models"
)

const (
	departmentsHeader  = "AVAILABLE DEPARTMENTS:"
	instructionsHeader = "ANALYSIS INSTRUCTIONS:"
	descriptionLabel   = "Report Description: "
)

type promptDepartment struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Handles      []string `json:"handles"`
	Jurisdiction string   `json:"jurisdiction"`
	Description  string   `json:"description,omitempty"`
}

const routingInstructions = `ANALYSIS INSTRUCTIONS:
1. Analyze the citizen's report description and location.
2. Extract key issue keywords from the description.
3. Match the issue to the most appropriate department based on:
   - Issue type compatibility with the department's handles list
   - Geographic jurisdiction match with the reported zone
   - The department's specialized expertise

KEYWORD MAPPING GUIDE:
- Road issues (potholes, cracks, damage): "pothole"
- Street lighting: "streetlight"
- Waste management: "garbage"
- Water/drainage: "water"
- Traffic management: "traffic"
- Parks/recreation: "park"
- Noise complaints: "noise"
- Construction issues: "construction"

RESPONSE FORMAT - Return ONLY valid JSON:
{
  "success": true,
  "issueKeywords": ["keyword1", "keyword2"],
  "confidence": 0.95,
  "recommendedDepartment": {
    "departmentName": "Exact Department Name",
    "contactEmail": "department@example.com",
    "reasoning": "Brief explanation of selection logic"
  },
  "alternativeDepartments": [
    {"departmentName": "Alternative Department", "reasoning": "Why this could also handle the issue"}
  ]
}

If no suitable department is found:
{
  "success": false,
  "error": "No appropriate department found",
  "issueKeywords": ["extracted", "keywords"],
  "suggestions": "What additional information might help"
}

Department names must match the available departments exactly.`

// RoutingPrompt renders the report and the departments the model may choose from.
func RoutingPrompt(r models.Report, departments []models.Department, now time.Time) (string, error) {
	ctxDepts := make([]promptDepartment, 0, len(departments))
	for _, d := range departments {
		ctxDepts = append(ctxDepts, promptDepartment{
			Name:         d.DepartmentName,
			Email:        d.ContactEmail,
			Handles:      d.HandlesIssues,
			Jurisdiction: d.Jurisdiction,
			Description:  d.Description,
		})
	}
	b, err := json.MarshalIndent(ctxDepts, "", "  ")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("You are CivicLink AI, an expert system for analyzing civic issue reports and routing them to the appropriate municipal department.\n\n")
	sb.WriteString(departmentsHeader + "\n")
	sb.Write(b)
	sb.WriteString("\n\n")
	sb.WriteString(routingInstructions)
	sb.WriteString("\n\nCIVIC ISSUE ANALYSIS REQUEST:\n\n")
	fmt.Fprintf(&sb, "%s%q\n", descriptionLabel, r.Description)
	fmt.Fprintf(&sb, "Location/Zone: %q\n", r.Zone)
	if r.ImageURL != "" {
		fmt.Fprintf(&sb, "Image Evidence: %s\n", r.ImageURL)
	} else {
		sb.WriteString("No image provided\n")
	}
	fmt.Fprintf(&sb, "Report Time: %s\n\n", now.UTC().Format(time.RFC3339))
	sb.WriteString("Recommend the most appropriate municipal department for this issue, considering both the nature of the issue and the geographic jurisdiction.")
	return sb.String(), nil
}

// promptDepartments recovers the department context from a rendered routing prompt.
func promptDepartments(prompt string) []promptDepartment {
	start := strings.Index(prompt, departmentsHeader)
	end := strings.Index(prompt, instructionsHeader)
	if start < 0 || end < start {
		return nil
	}
	var out []promptDepartment
	if err := json.Unmarshal([]byte(strings.TrimSpace(prompt[start+len(departmentsHeader):end])), &out); err != nil {
		return nil
	}
	return out
}

// promptDescription recovers the quoted report description from a rendered routing prompt.
func promptDescription(prompt string) string {
	i := strings.Index(prompt, descriptionLabel)
	if i < 0 {
		return ""
	}
	line := prompt[i+len(descriptionLabel):]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	var s string
	if err := json.Unmarshal([]byte(line), &s); err != nil {
		return strings.Trim(line, `"`)
	}
	return s
}
