package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/civiclink/backend/internal/ai"
	"github.com/civiclink/backend/internal/geo"
	"github.com/civiclink/backend/internal/keywords"
	"github.com/civiclink/backend/internal/metrics"
	"github.com/civiclink/backend/internal/models"
	"github.com/civiclink/backend/internal/progress"
)

var ErrNoDepartment = errors.New("No appropriate department found")

const deterministicReasoning = "Selected based on keyword matching and zone analysis"

// Outcome is the tagged result of a routing attempt: either a decision or the reason there is none.
type Outcome struct {
	Decision *models.RoutingDecision
	Err      error
	// AIError is set when the AI tier was attempted and abandoned.
	AIError error
}

func (o Outcome) OK() bool { return o.Err == nil && o.Decision != nil }

func (o Outcome) Method() string {
	if o.Decision == nil {
		return ""
	}
	return o.Decision.ProcessingMethod
}

// Engine resolves a report to exactly one department, falling back tier by tier:
// AI recommendation, reconciliation against the candidates, deterministic keyword lookup.
type Engine struct {
	Registry  Registry
	Filter    *DepartmentFilter
	Completer ai.Completer
	Keywords  *keywords.Extractor
	Matcher   geo.Matcher
	Policy    Policy
	Progress  progress.Sink
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
	Now       func() time.Time
}

func NewEngine(reg Registry, completer ai.Completer, policy Policy, sink progress.Sink, m *metrics.Metrics, logger zerolog.Logger) *Engine {
	policy = policy.withDefaults()
	return &Engine{
		Registry:  reg,
		Filter:    NewDepartmentFilter(reg, policy, m, logger),
		Completer: completer,
		Keywords:  keywords.NewRouting(),
		Matcher:   geo.StringMatcher{},
		Policy:    policy,
		Progress:  sink,
		Metrics:   m,
		Logger:    logger,
		Now:       time.Now,
	}
}

// Route picks the candidate set according to the smart-filtering switch and decides.
func (e *Engine) Route(ctx context.Context, r models.Report) (Outcome, FilterResult) {
	var fr FilterResult
	if e.Policy.UseSmartFiltering && e.Filter != nil {
		e.notify(r.ID, progress.Step("Smart Filtering", "Narrowing down relevant departments", "in_progress", 40))
		fr = e.Filter.Select(ctx, r)
		e.notify(r.ID, models.ProgressEvent{
			Type:     progress.EventStep,
			Step:     "Smart Filtering",
			Message:  fmt.Sprintf("Selected %d of %d departments", len(fr.Departments), fr.TotalInDatabase),
			Status:   "completed",
			Progress: 45,
			Data:     fr.Stats,
		})
	} else {
		all, err := e.Registry.ListDepartments(ctx)
		if err != nil {
			e.Logger.Warn().Err(err).Str("report_id", r.ID).Msg("registry unavailable for legacy routing")
			all = nil
		}
		fr = Unfiltered(all, FilterMethodLegacy)
		for i := range fr.Departments {
			if m := geo.Score(e.Matcher, r.Zone, fr.Departments[i].Department); m.Type != "" {
				fr.Departments[i].MatchType = m.Type
				fr.Departments[i].GeographicScore = m.Score
			}
		}
	}
	return e.Decide(ctx, r, fr.Departments), fr
}

// Decide never panics and never returns a bare error; failures are carried in the Outcome.
func (e *Engine) Decide(ctx context.Context, r models.Report, candidates []models.CandidateDepartment) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			e.Logger.Error().Interface("panic", p).Str("report_id", r.ID).Msg("routing panicked")
			e.Metrics.RoutingFailure("panic")
			out = Outcome{Err: fmt.Errorf("routing failed: %v", p)}
		}
	}()

	if e.aiEnabled() && len(candidates) > 0 {
		d, err := e.aiTier(ctx, r, candidates)
		if err == nil {
			e.Metrics.Decision(d.ProcessingMethod)
			return Outcome{Decision: d}
		}
		out.AIError = err
		e.Logger.Warn().Err(err).Str("report_id", r.ID).Msg("ai routing failed, using keyword matching")
		e.notify(r.ID, progress.Step("AI Analysis", "AI analysis unavailable, switching to keyword matching", "warning", 55))
	}

	d, err := e.deterministicTier(ctx, r)
	if err != nil {
		e.Metrics.RoutingFailure("no_department")
		out.Err = err
		return out
	}
	e.Metrics.Decision(d.ProcessingMethod)
	out.Decision = d
	return out
}

func (e *Engine) aiEnabled() bool {
	return e.Policy.UseAI && e.Completer != nil
}

// aiTier turns any panic in prompt building, completion or reconciliation into an
// error so the caller still reaches the deterministic tier.
func (e *Engine) aiTier(ctx context.Context, r models.Report, candidates []models.CandidateDepartment) (d *models.RoutingDecision, err error) {
	defer func() {
		if p := recover(); p != nil {
			d, err = nil, fmt.Errorf("ai tier panic: %v", p)
		}
	}()
	if len(candidates) > e.Policy.MaxCandidates {
		candidates = candidates[:e.Policy.MaxCandidates]
	}
	depts := make([]models.Department, 0, len(candidates))
	for _, c := range candidates {
		depts = append(depts, c.Department)
	}
	prompt, err := ai.RoutingPrompt(r, depts, e.now())
	if err != nil {
		return nil, err
	}

	e.notify(r.ID, progress.Step("AI Analysis", fmt.Sprintf("Analyzing issue against %d departments", len(depts)), "in_progress", 60))
	actx, cancel := context.WithTimeout(ctx, e.Policy.AITimeout)
	defer cancel()

	start := time.Now()
	text, err := e.complete(actx, prompt)
	if err != nil {
		e.Metrics.AIRequest("error", time.Since(start))
		return nil, err
	}
	resp, err := ai.ParseRoutingResponse(text)
	if err != nil {
		e.Metrics.AIRequest("invalid", time.Since(start))
		return nil, err
	}
	e.Metrics.AIRequest("ok", time.Since(start))

	d = e.reconcile(resp, candidates)
	e.notify(r.ID, models.ProgressEvent{
		Type:     progress.EventStep,
		Step:     "AI Reasoning",
		Message:  d.Reasoning,
		Status:   "completed",
		Progress: 75,
		Data:     map[string]any{"department": d.Department.DepartmentName, "confidence": d.Confidence},
	})
	return d, nil
}

type completion struct {
	text string
	err  error
}

// complete returns when ctx is done even if the Completer ignores it. The abandoned
// call finishes in the background and its result is dropped.
func (e *Engine) complete(ctx context.Context, prompt string) (string, error) {
	done := make(chan completion, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- completion{err: fmt.Errorf("completer panic: %v", p)}
			}
		}()
		text, err := e.Completer.Complete(ctx, prompt)
		done <- completion{text: text, err: err}
	}()
	select {
	case c := <-done:
		return c.text, c.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// reconcile maps the AI recommendation onto a real candidate. An exact name match is
// trusted as-is; anything else is substituted and its confidence discounted.
func (e *Engine) reconcile(resp ai.RoutingResponse, candidates []models.CandidateDepartment) *models.RoutingDecision {
	rec := resp.RecommendedDepartment
	name := strings.TrimSpace(rec.DepartmentName)
	alts := make([]models.Alternative, 0, len(resp.AlternativeDepartments))
	for _, a := range resp.AlternativeDepartments {
		alts = append(alts, models.Alternative{DepartmentName: a.DepartmentName, Reasoning: a.Reasoning})
	}
	kws := resp.IssueKeywords
	if kws == nil {
		kws = []string{}
	}

	for _, c := range candidates {
		if c.DepartmentName == name {
			reasoning := rec.Reasoning
			if strings.TrimSpace(reasoning) == "" {
				reasoning = "Recommended by AI analysis"
			}
			return &models.RoutingDecision{
				Department:       c.Department,
				Confidence:       resp.Confidence,
				Reasoning:        reasoning,
				Keywords:         kws,
				Alternatives:     alts,
				ProcessingMethod: models.MethodAI,
				MatchType:        c.MatchType,
			}
		}
	}

	chosen := candidates[0]
	if i := firstHandling(candidates, kws); i >= 0 {
		chosen = candidates[i]
	}
	return &models.RoutingDecision{
		Department: chosen.Department,
		Confidence: resp.Confidence * e.Policy.ReconciledConfidenceFactor,
		Reasoning: fmt.Sprintf("AI recommended %q but using %q as fallback. Original reasoning: %s",
			name, chosen.DepartmentName, rec.Reasoning),
		Keywords:         kws,
		Alternatives:     alts,
		ProcessingMethod: models.MethodAIWithFallback,
		MatchType:        chosen.MatchType,
	}
}

// firstHandling follows keyword order first, then candidate order.
func firstHandling(candidates []models.CandidateDepartment, kws []string) int {
	for _, kw := range kws {
		for i, c := range candidates {
			if hasIssue(c.HandlesIssues, kw) {
				return i
			}
		}
	}
	return -1
}

func hasIssue(issues []string, kw string) bool {
	for _, is := range issues {
		if strings.EqualFold(strings.TrimSpace(is), kw) {
			return true
		}
	}
	return false
}

func (e *Engine) deterministicTier(ctx context.Context, r models.Report) (*models.RoutingDecision, error) {
	kws := e.Keywords.Extract(r.Description)
	lookup := kws
	if len(lookup) == 0 && e.Policy.FallbackIssue != "" {
		lookup = []string{e.Policy.FallbackIssue}
	}
	e.notify(r.ID, models.ProgressEvent{
		Type:     progress.EventStep,
		Step:     "Keyword Analysis",
		Message:  fmt.Sprintf("Identified issue types: %s", strings.Join(lookup, ", ")),
		Status:   "completed",
		Progress: 65,
		Data:     lookup,
	})

	for _, kw := range lookup {
		depts, err := e.Registry.DepartmentsByIssueAndZone(ctx, kw, r.Zone)
		if err != nil {
			e.Logger.Warn().Err(err).Str("keyword", kw).Msg("zone lookup failed")
		}
		if len(depts) == 0 {
			depts, err = e.Registry.DepartmentsByIssue(ctx, kw)
			if err != nil {
				e.Logger.Warn().Err(err).Str("keyword", kw).Msg("issue lookup failed")
				continue
			}
		}
		if len(depts) == 0 {
			continue
		}

		chosen := depts[0]
		matchType := models.MatchFallback
		if m := geo.Score(e.Matcher, r.Zone, chosen); m.Type != "" {
			matchType = m.Type
		}
		alts := make([]models.Alternative, 0, 3)
		for _, d := range depts[1:] {
			if len(alts) == 3 {
				break
			}
			alts = append(alts, models.Alternative{DepartmentName: d.DepartmentName, Reasoning: "Also handles " + kw})
		}
		if kws == nil {
			kws = []string{}
		}
		e.notify(r.ID, progress.Step("Department Found", "Routing to "+chosen.DepartmentName, "completed", 80))
		return &models.RoutingDecision{
			Department:       chosen,
			Confidence:       e.Policy.DeterministicConfidence,
			Reasoning:        deterministicReasoning,
			Keywords:         kws,
			Alternatives:     alts,
			ProcessingMethod: models.MethodDeterministic,
			MatchType:        matchType,
		}, nil
	}

	e.notify(r.ID, progress.Step("Department Matching Failed", ErrNoDepartment.Error(), "error", 100))
	return nil, ErrNoDepartment
}

// Rematch runs only the deterministic tier. The follow-up job uses it so a stored
// report reaches the same department without calling the AI again.
func (e *Engine) Rematch(ctx context.Context, r models.Report) (*models.RoutingDecision, error) {
	return e.deterministicTier(ctx, models.Report{ID: "", Description: r.Description, Zone: r.Zone})
}

func (e *Engine) notify(reportID string, ev models.ProgressEvent) {
	progress.Notify(e.Progress, reportID, ev)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
