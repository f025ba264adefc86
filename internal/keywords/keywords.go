// Package keywords maps free-text complaint descriptions to canonical issue categories.
package keywords

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// minTextLength is the shortest trimmed input that is scanned at all.
const minTextLength = 3

// Category is one canonical issue tag and the substrings that trigger it.
type Category struct {
	Name     string
	Triggers []string
}

// Dictionary is an ordered list of categories. Extraction output follows this order.
type Dictionary []Category

// RoutingDictionary drives the deterministic department lookup and the AI prompt.
var RoutingDictionary = Dictionary{
	{Name: "pothole", Triggers: []string{"pothole", "pithole", "pot hole", "road damage", "crater", "hole in road", "road hole", "pit hole", "broken road", "damaged road"}},
	{Name: "streetlight", Triggers: []string{"streetlight", "street light", "lamp", "lighting", "dark", "light not working", "broken light"}},
	{Name: "garbage", Triggers: []string{"garbage", "trash", "waste", "rubbish", "litter", "dump", "refuse"}},
	{Name: "water", Triggers: []string{"water", "leak", "pipe", "drainage", "sewage", "flooding", "water supply"}},
	{Name: "traffic", Triggers: []string{"traffic", "signal", "sign", "congestion", "jam", "traffic light"}},
	{Name: "park", Triggers: []string{"park", "garden", "playground", "green space", "recreation"}},
	{Name: "noise", Triggers: []string{"noise", "loud", "disturbance", "sound", "pollution"}},
	{Name: "construction", Triggers: []string{"construction", "building", "illegal", "unauthorized", "permit"}},
}

// FilterDictionary is the wider vocabulary used when scoring department relevance.
var FilterDictionary = Dictionary{
	{Name: "road", Triggers: []string{"road", "street", "pothole", "traffic", "signal", "parking", "footpath"}},
	{Name: "traffic", Triggers: []string{"traffic", "signal", "jam", "light", "vehicle", "parking"}},
	{Name: "pothole", Triggers: []string{"pothole", "hole", "damage", "crater", "bump"}},
	{Name: "water", Triggers: []string{"water", "pipe", "leak", "supply", "pressure", "shortage"}},
	{Name: "drainage", Triggers: []string{"drainage", "drain", "flood", "waterlog", "overflow", "sewer"}},
	{Name: "sewer", Triggers: []string{"sewer", "sewage", "smell", "overflow", "blocked"}},
	{Name: "garbage", Triggers: []string{"garbage", "waste", "trash", "litter", "dump", "dirty"}},
	{Name: "clean", Triggers: []string{"clean", "sweep", "sanitation", "hygiene"}},
	{Name: "electricity", Triggers: []string{"electricity", "power", "light", "pole", "wire", "outage"}},
	{Name: "streetlight", Triggers: []string{"streetlight", "street light", "lamp", "lighting", "dark"}},
	{Name: "park", Triggers: []string{"park", "garden", "tree", "green", "playground"}},
	{Name: "environment", Triggers: []string{"pollution", "air", "noise", "smoke", "dust"}},
	{Name: "safety", Triggers: []string{"safety", "security", "crime", "police", "emergency"}},
	{Name: "fire", Triggers: []string{"fire", "burn", "smoke", "emergency"}},
}

// Heuristic adds Category when the description contains any word of Anchors
// (when Anchors is non-empty) together with any word of Qualifiers.
type Heuristic struct {
	Category   string
	Anchors    []string
	Qualifiers []string
}

// RoutingHeuristics catch phrasings the trigger lists miss, e.g. "the road is badly cracked".
var RoutingHeuristics = []Heuristic{
	{Category: "pothole", Anchors: []string{"road", "street"}, Qualifiers: []string{"broken", "damaged", "bad", "cracked", "hole"}},
	{Category: "streetlight", Qualifiers: []string{"light", "dark", "lighting"}},
}

// Extractor is safe for concurrent use; build it once and share it.
type Extractor struct {
	dict       Dictionary
	heuristics []Heuristic
	matcher    *ahocorasick.Matcher
	triggers   []string
	// trigger index -> category indexes
	owners [][]int
}

func New(dict Dictionary, heuristics ...Heuristic) *Extractor {
	e := &Extractor{dict: dict, heuristics: heuristics}
	seen := map[string]int{}
	for ci, cat := range dict {
		for _, t := range cat.Triggers {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			idx, ok := seen[t]
			if !ok {
				idx = len(e.triggers)
				seen[t] = idx
				e.triggers = append(e.triggers, t)
				e.owners = append(e.owners, nil)
			}
			e.owners[idx] = append(e.owners[idx], ci)
		}
	}
	if len(e.triggers) > 0 {
		e.matcher = ahocorasick.NewStringMatcher(e.triggers)
	}
	return e
}

// NewRouting returns the extractor used for department routing.
func NewRouting() *Extractor {
	return New(RoutingDictionary, RoutingHeuristics...)
}

// NewFilter returns the extractor used for relevance scoring.
func NewFilter() *Extractor {
	return New(FilterDictionary)
}

// Extract returns the categories present in description: trigger hits in dictionary
// order, then categories added by heuristics.
// Empty or very short input yields an empty, non-nil slice.
func (e *Extractor) Extract(description string) []string {
	text := strings.ToLower(strings.TrimSpace(description))
	if len([]rune(text)) < minTextLength || e.matcher == nil {
		return []string{}
	}

	found := make([]bool, len(e.dict))
	for _, hit := range e.matcher.MatchThreadSafe([]byte(text)) {
		if hit < 0 || hit >= len(e.owners) {
			continue
		}
		for _, ci := range e.owners[hit] {
			found[ci] = true
		}
	}

	out := make([]string, 0, len(e.dict))
	for ci, ok := range found {
		if ok {
			out = append(out, e.dict[ci].Name)
		}
	}

	// Heuristic categories follow the trigger hits, in heuristic order.
	if len(e.heuristics) > 0 {
		words := wordSet(text)
		for _, h := range e.heuristics {
			ci := e.index(h.Category)
			if ci < 0 || found[ci] {
				continue
			}
			if len(h.Anchors) > 0 && !containsAny(words, h.Anchors) {
				continue
			}
			if containsAny(words, h.Qualifiers) {
				found[ci] = true
				out = append(out, h.Category)
			}
		}
	}
	return out
}

// Categories lists the category names in dictionary order.
func (e *Extractor) Categories() []string {
	out := make([]string, 0, len(e.dict))
	for _, c := range e.dict {
		out = append(out, c.Name)
	}
	return out
}

func (e *Extractor) index(name string) int {
	for i, c := range e.dict {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func wordSet(text string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.Fields(text) {
		words[strings.Trim(w, ".,;:!?\"'()")] = true
	}
	return words
}

func containsAny(words map[string]bool, candidates []string) bool {
	for _, c := range candidates {
		if words[c] {
			return true
		}
	}
	return false
}
