package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedResponse    = errors.New("ai response is not valid json")
	ErrUnsuccessfulResponse = errors.New("ai reported no suitable department")
)

type RecommendedDepartment struct {
	DepartmentName string `json:"departmentName"`
	ContactEmail   string `json:"contactEmail"`
	Reasoning      string `json:"reasoning"`
}

type AlternativeDepartment struct {
	DepartmentName string `json:"departmentName"`
	Reasoning      string `json:"reasoning"`
}

type RoutingResponse struct {
	Success                *bool                   `json:"success"`
	Error                  string                  `json:"error,omitempty"`
	IssueKeywords          []string                `json:"issueKeywords"`
	Confidence             float64                 `json:"confidence"`
	RecommendedDepartment  *RecommendedDepartment  `json:"recommendedDepartment,omitempty"`
	AlternativeDepartments []AlternativeDepartment `json:"alternativeDepartments,omitempty"`
	Suggestions            string                  `json:"suggestions,omitempty"`
}

// ParseRoutingResponse pulls the outermost JSON object out of free text and decodes it.
// A response that declares success=false or names no department is an error.
func ParseRoutingResponse(text string) (RoutingResponse, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return RoutingResponse{}, ErrMalformedResponse
	}

	var r RoutingResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &r); err != nil {
		return RoutingResponse{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if r.Success != nil && !*r.Success {
		if r.Error != "" {
			return r, fmt.Errorf("%w: %s", ErrUnsuccessfulResponse, r.Error)
		}
		return r, ErrUnsuccessfulResponse
	}
	if r.RecommendedDepartment == nil || strings.TrimSpace(r.RecommendedDepartment.DepartmentName) == "" {
		return r, fmt.Errorf("%w: no recommended department", ErrUnsuccessfulResponse)
	}

	kws := make([]string, 0, len(r.IssueKeywords))
	for _, k := range r.IssueKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kws = append(kws, k)
		}
	}
	r.IssueKeywords = kws
	r.Confidence = clamp01(r.Confidence)
	return r, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
