// Package geo scores department jurisdictions against free-text report locations.
// Matching is string based; there is no geocoding or distance math here.
package geo

import (
	"strings"
	"unicode"
)

// knownCities is searched in order; the first city contained in a zone wins.
var knownCities = []string{
	"mumbai", "delhi", "bangalore", "bengaluru", "chennai", "kolkata",
	"hyderabad", "pune", "indore", "surat", "ahmedabad", "jaipur",
	"lucknow", "chandigarh", "kochi", "coimbatore", "nashik", "nagpur",
	"kanpur", "patna", "gurgaon", "noida", "bhopal",
}

var cityAliases = map[string]string{
	"bengaluru": "bangalore",
}

var qualifiers = []string{"north", "south", "east", "west", "central", "centre", "center"}

var metropolitanMarkers = []string{
	"ncr", "metropolitan", "metro", "region", "area", "greater",
	"all", "entire", "whole", "citywide", "urban", "district",
}

var citywideMarkers = []string{
	"all", "citywide", "metropolitan", "regional", "central", "head office", "main office",
}

// Normalize trims, lowercases and collapses inner whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// City returns the canonical known city contained in zone, or "" when none is recognized.
func City(zone string) string {
	z := Normalize(zone)
	for _, c := range knownCities {
		if strings.Contains(z, c) {
			if alias, ok := cityAliases[c]; ok {
				return alias
			}
			return c
		}
	}
	return ""
}

// Qualifier returns the directional qualifier of zone with centre/center folded to central.
// Qualifiers are matched as whole words so "northwest" does not read as "west".
func Qualifier(zone string) string {
	words := strings.FieldsFunc(Normalize(zone), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	for _, q := range qualifiers {
		if set[q] {
			if q == "centre" || q == "center" {
				return "central"
			}
			return q
		}
	}
	return ""
}

// IsMetropolitan reports whether zone names an area wider than a single district.
func IsMetropolitan(zone string) bool {
	return containsAny(Normalize(zone), metropolitanMarkers)
}

// IsCitywide reports whether a jurisdiction claims the whole city.
func IsCitywide(jurisdiction string) bool {
	return containsAny(Normalize(jurisdiction), citywideMarkers)
}

// SameCityAndQualifier reports whether both zones decompose to the same (city, qualifier) pair.
// Zones missing either part never match this way.
func SameCityAndQualifier(a, b string) bool {
	ca, cb := City(a), City(b)
	qa, qb := Qualifier(a), Qualifier(b)
	if ca == "" || cb == "" || qa == "" || qb == "" {
		return false
	}
	return ca == cb && qa == qb
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
