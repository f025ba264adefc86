package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclink/backend/internal/models"
)

func dept(name, jurisdiction string, areas ...string) models.Department {
	return models.Department{ID: name, DepartmentName: name, Jurisdiction: jurisdiction, ServiceAreas: areas}
}

func TestCity(t *testing.T) {
	assert.Equal(t, "delhi", City("South Delhi"))
	assert.Equal(t, "bangalore", City("Bengaluru East"))
	assert.Equal(t, "bangalore", City("  BANGALORE urban "))
	assert.Equal(t, "", City("Springfield"))
}

func TestQualifier(t *testing.T) {
	assert.Equal(t, "central", Qualifier("Indore Centre"))
	assert.Equal(t, "central", Qualifier("center surat"))
	assert.Equal(t, "west", Qualifier("West Delhi"))
	assert.Equal(t, "", Qualifier("Northwest Pune"))
	assert.Equal(t, "", Qualifier("Delhi NCR"))
}

func TestExactOnNormalizedEquality(t *testing.T) {
	m := StringMatcher{}
	d := dept("PWD", "Springfield Ward 7")
	assert.True(t, m.Exact("  springfield   ward 7 ", d))
	got := Score(m, "Springfield Ward 7", d)
	assert.Equal(t, Match{Type: models.MatchExact, Score: 1.0}, got)
}

func TestExactOnCityAndQualifier(t *testing.T) {
	m := StringMatcher{}
	assert.True(t, m.Exact("Central Indore", dept("IMC", "Indore Centre")))
	assert.False(t, m.Exact("Central Indore", dept("IMC", "West Indore")))
	assert.False(t, m.Exact("Indore", dept("IMC", "Central Indore")))
}

func TestRegionalMetropolitanZone(t *testing.T) {
	m := StringMatcher{}
	assert.True(t, m.Regional("Delhi NCR", dept("MCD", "South Delhi")))
	assert.False(t, m.Regional("Delhi NCR", dept("BMC", "South Mumbai")))
}

func TestRegionalServiceArea(t *testing.T) {
	m := StringMatcher{}
	d := dept("MCD Central", "Central Delhi", "Connaught Place", "Karol Bagh")
	assert.True(t, m.Regional("connaught place", d))
	assert.True(t, m.Regional("Near Karol Bagh Market", d))
	assert.False(t, m.Regional("Saket", d))
}

func TestRegionalSameCity(t *testing.T) {
	m := StringMatcher{}
	assert.True(t, m.Regional("East Delhi", dept("DJB", "Delhi Citywide")))
	assert.True(t, m.Regional("East Delhi", dept("PWD", "West Delhi")))
	assert.False(t, m.Regional("East Delhi", dept("PWD", "West Pune")))
}

func TestUnresolvedZoneIsFallbackOnly(t *testing.T) {
	m := StringMatcher{}
	reg := []models.Department{dept("A", "South Delhi"), dept("B", "North Chennai")}
	out := Classify(m, "Gotham", reg, 0)
	require.Len(t, out, 2)
	for _, c := range out {
		assert.Equal(t, models.MatchFallback, c.MatchType)
		assert.Equal(t, 0.5, c.GeographicScore)
	}
}

func TestClassifyTiers(t *testing.T) {
	m := StringMatcher{}
	reg := []models.Department{
		dept("West PWD", "West Delhi"),
		dept("South PWD", "South Delhi"),
		dept("Mumbai BMC", "South Mumbai"),
	}
	out := Classify(m, "South Delhi", reg, DefaultRegionalThreshold)
	require.Len(t, out, 2)
	assert.Equal(t, "South PWD", out[0].DepartmentName)
	assert.Equal(t, models.MatchExact, out[0].MatchType)
	assert.Equal(t, "West PWD", out[1].DepartmentName)
	assert.Equal(t, models.MatchRegional, out[1].MatchType)
	assert.Equal(t, 0.8, out[1].GeographicScore)
}

func TestClassifySkipsRegionalAtThreshold(t *testing.T) {
	m := StringMatcher{}
	reg := []models.Department{
		dept("A", "South Delhi"),
		dept("B", "South Delhi"),
		dept("C", "West Delhi"),
	}
	out := Classify(m, "South Delhi", reg, 2)
	require.Len(t, out, 2)
	for _, c := range out {
		assert.Equal(t, models.MatchExact, c.MatchType)
	}
}

func TestClassifyEmptyRegistry(t *testing.T) {
	assert.Empty(t, Classify(StringMatcher{}, "South Delhi", nil, 0))
}

func TestCatalogue(t *testing.T) {
	zones, ok := ZonesFor("madhya pradesh")
	require.True(t, ok)
	assert.Contains(t, zones, "Central Indore")
	assert.True(t, KnownZone("Delhi", "delhi ncr"))
	assert.False(t, KnownZone("Delhi", "South Mumbai"))
	_, ok = ZonesFor("Atlantis")
	assert.False(t, ok)
	assert.Len(t, StateNames(), len(Catalogue))
}

func TestRegionalHonoursCityAlias(t *testing.T) {
	m := StringMatcher{}
	assert.True(t, m.Regional("Greater Bangalore", dept("BBMP", "Bengaluru Central")))
	assert.True(t, m.Regional("Bangalore North", dept("BBMP", "Bengaluru South")))
	assert.True(t, m.Exact("Bangalore Central", dept("BBMP", "Bengaluru Central")))
	assert.False(t, m.Regional("Greater Bangalore", dept("BMC", "South Mumbai")))
}
