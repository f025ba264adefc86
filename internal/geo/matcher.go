package geo

import (
	"strings"

	"github.com/civiclink/backend/internal/models"
)

const (
	ExactScore    = 1.0
	RegionalScore = 0.8
	FallbackScore = 0.5
)

// DefaultRegionalThreshold is the exact-match count at or above which the regional tier is skipped.
const DefaultRegionalThreshold = 10

type Match struct {
	Type  string
	Score float64
}

// Matcher classifies how well a department's territory covers a report zone.
type Matcher interface {
	Exact(zone string, d models.Department) bool
	Regional(zone string, d models.Department) bool
}

// StringMatcher is the heuristic Matcher built on zone string decomposition.
type StringMatcher struct{}

func (StringMatcher) Exact(zone string, d models.Department) bool {
	z := Normalize(zone)
	j := Normalize(d.Jurisdiction)
	if z == "" || j == "" {
		return false
	}
	if z == j {
		return true
	}
	return SameCityAndQualifier(z, j)
}

func (StringMatcher) Regional(zone string, d models.Department) bool {
	z := Normalize(zone)
	if z == "" {
		return false
	}
	j := Normalize(d.Jurisdiction)
	city := City(z)
	// City folds aliases, so "bengaluru" and "bangalore" compare equal here.
	sameCity := city != "" && City(j) == city

	if sameCity && IsMetropolitan(z) {
		return true
	}

	for _, area := range d.ServiceAreas {
		a := Normalize(area)
		if a == "" {
			continue
		}
		if strings.Contains(a, z) || strings.Contains(z, a) {
			return true
		}
	}

	return sameCity
}

// Score evaluates a single department without registry-wide tiering.
func Score(m Matcher, zone string, d models.Department) Match {
	switch {
	case m.Exact(zone, d):
		return Match{Type: models.MatchExact, Score: ExactScore}
	case m.Regional(zone, d):
		return Match{Type: models.MatchRegional, Score: RegionalScore}
	default:
		return Match{}
	}
}

// Classify applies the geographic tiers across the whole registry.
// Exact matches come first, then regional matches when fewer than regionalThreshold
// exact matches exist. When both tiers are empty every department is returned as a
// fallback match, so a non-empty registry never yields an empty result.
func Classify(m Matcher, zone string, departments []models.Department, regionalThreshold int) []models.CandidateDepartment {
	if regionalThreshold <= 0 {
		regionalThreshold = DefaultRegionalThreshold
	}

	out := make([]models.CandidateDepartment, 0, len(departments))
	exact := make(map[int]bool)
	for i, d := range departments {
		if m.Exact(zone, d) {
			exact[i] = true
			out = append(out, candidate(d, models.MatchExact, ExactScore))
		}
	}

	if len(out) < regionalThreshold {
		for i, d := range departments {
			if exact[i] {
				continue
			}
			if m.Regional(zone, d) {
				out = append(out, candidate(d, models.MatchRegional, RegionalScore))
			}
		}
	}

	if len(out) == 0 {
		for _, d := range departments {
			out = append(out, candidate(d, models.MatchFallback, FallbackScore))
		}
	}
	return out
}

func candidate(d models.Department, matchType string, score float64) models.CandidateDepartment {
	return models.CandidateDepartment{
		Department:      d,
		MatchType:       matchType,
		GeographicScore: score,
	}
}
