package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclink/backend/internal/models"
)

func TestSubscribeReplaysHistory(t *testing.T) {
	h := NewHub()
	h.Notify("r1", Step("Report Created", "created", "completed", 20))

	replay, events, cancel := h.Subscribe("r1")
	defer cancel()
	require.Len(t, replay, 1)
	assert.Equal(t, "Report Created", replay[0].Step)
	assert.False(t, replay[0].Timestamp.IsZero())

	h.Notify("r1", Step("AI Analysis", "thinking", "in_progress", 60))
	ev := <-events
	assert.Equal(t, "AI Analysis", ev.Step)
}

func TestTerminalEventClosesSubscribers(t *testing.T) {
	h := NewHub()
	_, events, cancel := h.Subscribe("r1")
	defer cancel()

	h.Notify("r1", models.ProgressEvent{Type: EventComplete, Message: "done", Progress: 100})
	ev, ok := <-events
	require.True(t, ok)
	assert.Equal(t, EventComplete, ev.Type)
	_, ok = <-events
	assert.False(t, ok)

	h.Notify("r1", Step("late", "ignored", "", 0))
	assert.Len(t, h.History("r1"), 1)

	replay, late, _ := h.Subscribe("r1")
	assert.Len(t, replay, 1)
	_, ok = <-late
	assert.False(t, ok)
}

func TestNotifyNeverBlocksOnSlowSubscriber(t *testing.T) {
	h := NewHub(WithBufferSize(1))
	_, _, cancel := h.Subscribe("r1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Notify("r1", Step("s", "m", "", i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notify blocked on a full subscriber buffer")
	}
	assert.Len(t, h.History("r1"), 100)
}

func TestCancelIsIdempotent(t *testing.T) {
	h := NewHub()
	_, events, cancel := h.Subscribe("r1")
	cancel()
	cancel()
	_, ok := <-events
	assert.False(t, ok)
	assert.NotPanics(t, func() { h.Notify("r1", Step("s", "m", "", 1)) })
}

func TestSweepRemovesFinishedTopicsAfterRetention(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	h := NewHub(WithRetention(time.Minute), WithClock(clock))
	h.Notify("done", models.ProgressEvent{Type: EventError, Message: "failed"})
	h.Notify("running", Step("s", "m", "", 10))

	assert.Equal(t, 0, h.Sweep())

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	assert.Equal(t, 1, h.Sweep())
	assert.Equal(t, 1, h.Len())
	assert.Nil(t, h.History("done"))
}

func TestConcurrentReports(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, events, cancel := h.Subscribe(id)
			defer cancel()
			h.Notify(id, Step("s", "m", "", 50))
			h.Notify(id, models.ProgressEvent{Type: EventComplete})
			n := 0
			for range events {
				n++
			}
			assert.Equal(t, 2, n)
		}(string(rune('a' + i)))
	}
	wg.Wait()
}

func TestNotifyHelperToleratesNilSink(t *testing.T) {
	assert.NotPanics(t, func() { Notify(nil, "r1", Step("s", "m", "", 1)) })
}
