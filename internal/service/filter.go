package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/civiclink/backend/internal/geo"
	"github.com/civiclink/backend/internal/keywords"
	"github.com/civiclink/backend/internal/metrics"
	"github.com/civiclink/backend/internal/models"
)

const (
	FilterMethodSmart    = "smart_filtering"
	FilterMethodFallback = "fallback"
	// FilterMethodLegacy marks the full registry handed over with smart filtering switched off.
	FilterMethodLegacy = "all_departments"
)

const (
	defaultIssueScore = 0.5
	scoreEpsilon      = 1e-9
)

const (
	weightPrimary   = 1.0
	weightHandles   = 0.9
	weightSecondary = 0.7
	weightKeywords  = 0.6
	weightText      = 0.4
)

type FilterStage struct {
	Name        string   `json:"name"`
	Count       int      `json:"count"`
	Departments []string `json:"departments"`
}

type FilterResult struct {
	Departments     []models.CandidateDepartment `json:"departments"`
	TotalInDatabase int                          `json:"total_in_database"`
	Keywords        []string                     `json:"keywords"`
	Stats           models.FilterStats           `json:"stats"`
	Stages          []FilterStage                `json:"stages,omitempty"`
}

// DepartmentFilter narrows the registry to a bounded, ranked candidate list.
type DepartmentFilter struct {
	Registry Registry
	Matcher  geo.Matcher
	Keywords *keywords.Extractor
	Policy   Policy
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

func NewDepartmentFilter(reg Registry, policy Policy, m *metrics.Metrics, logger zerolog.Logger) *DepartmentFilter {
	return &DepartmentFilter{
		Registry: reg,
		Matcher:  geo.StringMatcher{},
		Keywords: keywords.NewFilter(),
		Policy:   policy.withDefaults(),
		Metrics:  m,
		Logger:   logger,
	}
}

// Select never returns an error. When a stage fails the whole registry comes back
// tagged as a fallback; only an empty or unreadable registry yields no candidates.
func (f *DepartmentFilter) Select(ctx context.Context, r models.Report) FilterResult {
	res, err := f.selectStaged(ctx, r)
	if err == nil {
		f.Metrics.Candidates(res.Stats.Method, len(res.Departments))
		return res
	}

	f.Logger.Warn().Err(err).Str("report_id", r.ID).Msg("smart filtering failed, using full registry")
	all, lerr := f.Registry.ListDepartments(ctx)
	if lerr != nil {
		f.Logger.Error().Err(lerr).Str("report_id", r.ID).Msg("department registry unavailable")
		f.Metrics.Candidates(FilterMethodFallback, 0)
		return FilterResult{Departments: []models.CandidateDepartment{}, Stats: models.FilterStats{Method: FilterMethodFallback}}
	}
	res = Unfiltered(all, FilterMethodFallback)
	f.Metrics.Candidates(FilterMethodFallback, len(res.Departments))
	return res
}

// Unfiltered wraps the whole registry as fallback candidates in registry order.
func Unfiltered(all []models.Department, method string) FilterResult {
	out := make([]models.CandidateDepartment, 0, len(all))
	for _, d := range all {
		out = append(out, models.CandidateDepartment{
			Department:      d,
			MatchType:       models.MatchFallback,
			GeographicScore: geo.FallbackScore,
			IssueScore:      defaultIssueScore,
			TotalScore:      0.6*geo.FallbackScore + 0.4*defaultIssueScore,
		})
	}
	return FilterResult{
		Departments:     out,
		TotalInDatabase: len(all),
		Keywords:        []string{},
		Stats: models.FilterStats{
			TotalDepartments: len(all),
			AfterGeographic:  len(all),
			AfterIssueType:   len(all),
			SentToAI:         len(all),
			Method:           method,
		},
	}
}

func (f *DepartmentFilter) selectStaged(ctx context.Context, r models.Report) (res FilterResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("filter panic: %v", p)
		}
	}()

	all, err := f.Registry.ListDepartments(ctx)
	if err != nil {
		return FilterResult{}, fmt.Errorf("load registry: %w", err)
	}
	res.Keywords = []string{}
	res.Departments = []models.CandidateDepartment{}
	res.Stats.Method = FilterMethodSmart
	if len(all) == 0 {
		return res, nil
	}
	res.TotalInDatabase = len(all)
	res.Stats.TotalDepartments = len(all)
	res.Stages = append(res.Stages, stage("registry", all))

	geoMatches := geo.Classify(f.Matcher, r.Zone, all, f.Policy.RegionalThreshold)
	res.Stats.AfterGeographic = len(geoMatches)
	res.Stages = append(res.Stages, candidateStage("geography", geoMatches))
	if len(geoMatches) == 0 {
		return FilterResult{}, errors.New("geography stage produced no survivors")
	}

	kws := f.Keywords.Extract(r.Description)
	res.Keywords = kws
	issueMatches := f.filterByIssue(kws, geoMatches)
	res.Stats.AfterIssueType = len(issueMatches)
	res.Stages = append(res.Stages, candidateStage("issue_type", issueMatches))

	ranked := rank(issueMatches)
	if len(ranked) > f.Policy.MaxCandidates {
		ranked = ranked[:f.Policy.MaxCandidates]
	}
	res.Departments = ranked
	res.Stats.SentToAI = len(ranked)
	res.Stages = append(res.Stages, candidateStage("ranking", ranked))

	f.Logger.Debug().
		Str("report_id", r.ID).
		Int("total", res.Stats.TotalDepartments).
		Int("after_geographic", res.Stats.AfterGeographic).
		Int("after_issue_type", res.Stats.AfterIssueType).
		Int("selected", res.Stats.SentToAI).
		Strs("keywords", kws).
		Msg("department filtering complete")
	return res, nil
}

func (f *DepartmentFilter) filterByIssue(kws []string, in []models.CandidateDepartment) []models.CandidateDepartment {
	scored := make([]models.CandidateDepartment, len(in))
	copy(scored, in)

	if len(kws) == 0 {
		for i := range scored {
			scored[i].IssueScore = defaultIssueScore
			scored[i].TotalScore = 0.6*scored[i].GeographicScore + 0.4*defaultIssueScore
		}
		return scored
	}

	relevant := make([]models.CandidateDepartment, 0, len(scored))
	for i := range scored {
		scored[i].IssueScore = IssueRelevance(kws, scored[i].Department)
		scored[i].TotalScore = 0.6*scored[i].GeographicScore + 0.4*scored[i].IssueScore
		if scored[i].TotalScore+scoreEpsilon >= f.Policy.RelevanceThreshold {
			relevant = append(relevant, scored[i])
		}
	}
	if len(relevant) > 0 {
		return relevant
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].TotalScore > scored[j].TotalScore
	})
	keep := len(scored) / 2
	if keep < f.Policy.RescueMinimum {
		keep = f.Policy.RescueMinimum
	}
	if keep > len(scored) {
		keep = len(scored)
	}
	return scored[:keep]
}

// IssueRelevance is the mean over keywords of the best field weight each keyword hits.
func IssueRelevance(kws []string, d models.Department) float64 {
	if len(kws) == 0 {
		return defaultIssueScore
	}
	text := []string{d.DepartmentName, d.Description}
	total := 0.0
	for _, kw := range kws {
		kw = strings.ToLower(strings.TrimSpace(kw))
		best := 0.0
		switch {
		case anyRelated(kw, d.PrimaryIssues):
			best = weightPrimary
		case anyRelated(kw, d.HandlesIssues):
			best = weightHandles
		case anyRelated(kw, d.SecondaryIssues):
			best = weightSecondary
		case anyRelated(kw, d.IssueKeywords):
			best = weightKeywords
		case anyRelated(kw, text):
			best = weightText
		}
		total += best
	}
	return total / float64(len(kws))
}

func anyRelated(kw string, values []string) bool {
	if kw == "" {
		return false
	}
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if strings.Contains(v, kw) || strings.Contains(kw, v) {
			return true
		}
	}
	return false
}

// PriorityScore maps priority 1/2/3 to 1.0/0.8/0.6; anything else scores as lowest.
func PriorityScore(priority int) float64 {
	switch priority {
	case 1:
		return 1.0
	case 2:
		return 0.8
	default:
		return 0.6
	}
}

// CompositeScore favours geographic accuracy once a jurisdiction matches exactly.
func CompositeScore(c models.CandidateDepartment) float64 {
	p := PriorityScore(c.Priority)
	if c.MatchType == models.MatchExact {
		return 0.6*c.GeographicScore + 0.3*c.IssueScore + 0.1*p + 0.2
	}
	return 0.4*c.GeographicScore + 0.4*c.IssueScore + 0.2*p
}

// rank puts every exact match ahead of every other candidate, each group by final score.
func rank(in []models.CandidateDepartment) []models.CandidateDepartment {
	exact := make([]models.CandidateDepartment, 0, len(in))
	other := make([]models.CandidateDepartment, 0, len(in))
	for _, c := range in {
		c.FinalScore = CompositeScore(c)
		if c.MatchType == models.MatchExact {
			exact = append(exact, c)
		} else {
			other = append(other, c)
		}
	}
	byScore := func(s []models.CandidateDepartment) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].FinalScore > s[j].FinalScore })
	}
	byScore(exact)
	byScore(other)
	return append(exact, other...)
}

func stage(name string, depts []models.Department) FilterStage {
	names := make([]string, 0, len(depts))
	for _, d := range depts {
		names = append(names, d.DepartmentName)
	}
	return FilterStage{Name: name, Count: len(depts), Departments: names}
}

func candidateStage(name string, cands []models.CandidateDepartment) FilterStage {
	names := make([]string, 0, len(cands))
	for _, c := range cands {
		names = append(names, c.DepartmentName)
	}
	return FilterStage{Name: name, Count: len(cands), Departments: names}
}
