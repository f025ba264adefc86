// Package progress fans out per-report processing events to live listeners.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/civiclink/backend/internal/models"
)

const (
	EventStep     = "step"
	EventComplete = "complete"
	EventError    = "error"
)

const (
	DefaultBufferSize = 32
	DefaultRetention  = 5 * time.Minute
	DefaultMaxIdle    = time.Hour
)

// Sink receives progress events. Implementations must not block.
type Sink interface {
	Notify(reportID string, ev models.ProgressEvent)
}

// Hub keeps one topic per report. Topics never share locks, so concurrent
// reports do not contend beyond the map lookup.
type Hub struct {
	mu         sync.RWMutex
	topics     map[string]*topic
	bufferSize int
	retention  time.Duration
	maxIdle    time.Duration
	now        func() time.Time
}

type topic struct {
	mu         sync.Mutex
	history    []models.ProgressEvent
	subs       map[int]chan models.ProgressEvent
	nextID     int
	finished   bool
	lastActive time.Time
}

type Option func(*Hub)

func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithRetention sets how long a finished report's history stays available for late subscribers.
func WithRetention(d time.Duration) Option {
	return func(h *Hub) { h.retention = d }
}

func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		topics:     map[string]*topic{},
		bufferSize: DefaultBufferSize,
		retention:  DefaultRetention,
		maxIdle:    DefaultMaxIdle,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) topic(reportID string) *topic {
	h.mu.RLock()
	t, ok := h.topics[reportID]
	h.mu.RUnlock()
	if ok {
		return t
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok = h.topics[reportID]; ok {
		return t
	}
	t = &topic{subs: map[int]chan models.ProgressEvent{}, lastActive: h.now()}
	h.topics[reportID] = t
	return t
}

// Notify records ev and forwards it to every subscriber without blocking.
// A subscriber whose buffer is full misses the event. Complete and error events
// close the topic; anything published afterwards is ignored.
func (h *Hub) Notify(reportID string, ev models.ProgressEvent) {
	if reportID == "" {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = h.now().UTC()
	}
	t := h.topic(reportID)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return
	}
	t.history = append(t.history, ev)
	t.lastActive = h.now()
	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	if ev.Type == EventComplete || ev.Type == EventError {
		t.finished = true
		for id, ch := range t.subs {
			close(ch)
			delete(t.subs, id)
		}
	}
}

// Subscribe returns the events published so far and a channel for the rest.
// The channel is closed when the report finishes or cancel is called.
func (h *Hub) Subscribe(reportID string) (replay []models.ProgressEvent, events <-chan models.ProgressEvent, cancel func()) {
	t := h.topic(reportID)

	t.mu.Lock()
	defer t.mu.Unlock()
	replay = append([]models.ProgressEvent(nil), t.history...)
	ch := make(chan models.ProgressEvent, h.bufferSize)
	if t.finished {
		close(ch)
		return replay, ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch
	t.lastActive = h.now()

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if c, ok := t.subs[id]; ok {
				close(c)
				delete(t.subs, id)
			}
		})
	}
	return replay, ch, cancel
}

// History returns a copy of the events recorded for reportID.
func (h *Hub) History(reportID string) []models.ProgressEvent {
	h.mu.RLock()
	t, ok := h.topics[reportID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.ProgressEvent(nil), t.history...)
}

// Sweep drops finished topics past retention and topics idle longer than the
// idle limit. It returns the number of topics removed.
func (h *Hub) Sweep() int {
	now := h.now()
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for id, t := range h.topics {
		t.mu.Lock()
		idle := now.Sub(t.lastActive)
		expired := (t.finished && idle >= h.retention) || idle >= h.maxIdle
		if expired {
			for sid, ch := range t.subs {
				close(ch)
				delete(t.subs, sid)
			}
		}
		t.mu.Unlock()
		if expired {
			delete(h.topics, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics)
}

// Step is a convenience constructor for step events.
func Step(step, message, status string, pct int) models.ProgressEvent {
	return models.ProgressEvent{Type: EventStep, Step: step, Message: message, Status: status, Progress: pct}
}

// Notify sends ev to sink when one is configured.
func Notify(sink Sink, reportID string, ev models.ProgressEvent) {
	if sink == nil || reportID == "" {
		return
	}
	sink.Notify(reportID, ev)
}
