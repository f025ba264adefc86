package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/civiclink/backend/internal/keywords"
	"github.com/civiclink/backend/internal/utils"
)

// MockCompleter answers routing prompts deterministically without a model.
type MockCompleter struct {
	ModelVersion string
}

var mockExtractor = keywords.NewRouting()

func (m MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	depts := promptDepartments(prompt)
	if len(depts) == 0 {
		return fmt.Sprintf("CivicLink AI is operational (%s)", m.ModelVersion), nil
	}

	desc := promptDescription(prompt)
	kws := mockExtractor.Extract(desc)
	h := utils.Fingerprint(desc)

	idx := utils.StablePick(desc, len(depts))
	reason := "Closest match among available departments"
	if i, kw := firstHandling(depts, kws); i >= 0 {
		idx = i
		reason = fmt.Sprintf("Department handles %q issues in %s", kw, depts[i].Jurisdiction)
	}

	confidence := 0.75
	if h%5 == 0 {
		confidence = 0.62
	}
	ok := true
	resp := RoutingResponse{
		Success:       &ok,
		IssueKeywords: kws,
		Confidence:    confidence,
		RecommendedDepartment: &RecommendedDepartment{
			DepartmentName: depts[idx].Name,
			ContactEmail:   depts[idx].Email,
			Reasoning:      reason,
		},
	}
	for i, d := range depts {
		if i == idx || len(resp.AlternativeDepartments) == 2 {
			continue
		}
		resp.AlternativeDepartments = append(resp.AlternativeDepartments, AlternativeDepartment{
			DepartmentName: d.Name,
			Reasoning:      "Also operates in " + d.Jurisdiction,
		})
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return "```json\n" + string(b) + "\n```", nil
}

func firstHandling(depts []promptDepartment, kws []string) (int, string) {
	for _, kw := range kws {
		for i, d := range depts {
			for _, h := range d.Handles {
				if strings.EqualFold(h, kw) {
					return i, kw
				}
			}
		}
	}
	return -1, ""
}
