package ai

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("ai completer is not configured")

// Completer turns a prompt into free text. Output has no guaranteed structure.
// Implementations should return once ctx is done; callers stop waiting either way.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type HealthStatus struct {
	Status    string    `json:"status"`
	Provider  string    `json:"provider"`
	Response  string    `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const healthPrompt = `Respond with "CivicLink AI is operational" if you can process this message.`

// Health sends a trivial prompt and reports whether the provider answered.
func Health(ctx context.Context, c Completer, provider string) HealthStatus {
	st := HealthStatus{Provider: provider, Timestamp: time.Now().UTC()}
	if c == nil {
		st.Status = "unhealthy"
		st.Error = ErrNotConfigured.Error()
		return st
	}
	out, err := c.Complete(ctx, healthPrompt)
	if err != nil {
		st.Status = "unhealthy"
		st.Error = err.Error()
		return st
	}
	st.Status = "healthy"
	st.Response = strings.TrimSpace(out)
	return st
}
