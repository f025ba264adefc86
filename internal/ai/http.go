package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPCompleter calls an in-house completion sidecar: POST {base}/complete {"prompt"} -> {"text"}.
type HTTPCompleter struct {
	BaseURL string
	Client  *http.Client
}

type completeRequest struct {
	Prompt string `json:"prompt"`
}

type completeResponse struct {
	Text string `json:"text"`
}

func (h HTTPCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(h.BaseURL) == "" {
		return "", ErrNotConfigured
	}
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	b, err := json.Marshal(completeRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(h.BaseURL, "/")+"/complete", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"), nil)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ai service error: %s", resp.Status)
	}

	var r completeResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", err
	}
	return r.Text, nil
}
