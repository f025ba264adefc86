package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEmptyAndShortInput(t *testing.T) {
	e := NewRouting()
	for _, in := range []string{"", "  ", "ok", "\n\t"} {
		got := e.Extract(in)
		require.NotNil(t, got)
		assert.Empty(t, got, "input %q", in)
	}
}

func TestExtractFollowsDictionaryOrder(t *testing.T) {
	e := NewRouting()
	got := e.Extract("Garbage dumped next to a huge POTHOLE, and the water pipe is leaking")
	assert.Equal(t, []string{"pothole", "garbage", "water"}, got)
}

func TestExtractDeduplicatesCategories(t *testing.T) {
	e := NewRouting()
	got := e.Extract("trash, rubbish and litter everywhere, more trash")
	assert.Equal(t, []string{"garbage"}, got)
}

func TestExtractSharedTriggerMarksEveryOwner(t *testing.T) {
	e := NewFilter()
	got := e.Extract("smoke coming from the transformer")
	assert.Contains(t, got, "environment")
	assert.Contains(t, got, "fire")
}

func TestExtractRoadHeuristic(t *testing.T) {
	e := NewRouting()
	got := e.Extract("The road near the school is badly cracked and unsafe")
	assert.Contains(t, got, "pothole")
}

func TestExtractHeuristicNeedsAnchor(t *testing.T) {
	e := NewRouting()
	got := e.Extract("My phone screen is cracked after falling down")
	assert.NotContains(t, got, "pothole")
}

func TestExtractLightingHeuristic(t *testing.T) {
	e := NewRouting()
	got := e.Extract("The light outside block C has stopped working")
	assert.Equal(t, []string{"streetlight"}, got)
}

func TestExtractNoSignal(t *testing.T) {
	e := NewRouting()
	assert.Empty(t, e.Extract("Someone should look into this matter urgently please"))
}

func TestCategories(t *testing.T) {
	assert.Equal(t, "pothole", NewRouting().Categories()[0])
	assert.Len(t, NewFilter().Categories(), len(FilterDictionary))
}

func TestExtractorConcurrentUse(t *testing.T) {
	e := NewRouting()
	done := make(chan []string, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- e.Extract("overflowing garbage bin near the park") }()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, []string{"garbage", "park"}, <-done)
	}
}

func TestExtractHeuristicHitsFollowTriggerHits(t *testing.T) {
	e := NewRouting()
	assert.Equal(t, []string{"garbage", "pothole"}, e.Extract("garbage dumped on the badly cracked street"))
	// "broken road" is a pothole trigger, so dictionary order applies.
	assert.Equal(t, []string{"pothole", "garbage"}, e.Extract("garbage on the broken road"))
}
