package app

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/civiclink/backend/internal/ai"
	"github.com/civiclink/backend/internal/config"
	"github.com/civiclink/backend/internal/mailer"
)

func TestCompleterSelection(t *testing.T) {
	logger := zerolog.Nop()

	assert.IsType(t, ai.MockCompleter{}, Completer(config.Config{AIProvider: "mock"}, logger))
	assert.IsType(t, ai.MockCompleter{}, Completer(config.Config{AIProvider: ""}, logger))
	assert.IsType(t, ai.MockCompleter{}, Completer(config.Config{AIProvider: "anthropic"}, logger), "missing key falls back")

	assert.IsType(t, ai.OpenAICompleter{}, Completer(config.Config{AIProvider: "openai", AIAPIKey: "k"}, logger))
	assert.IsType(t, &ai.RateLimited{}, Completer(config.Config{AIProvider: "openai", AIAPIKey: "k", AIRPS: 2}, logger))
	assert.IsType(t, ai.HTTPCompleter{}, Completer(config.Config{AIProvider: "http", AIURL: "http://sidecar"}, logger))
	assert.IsType(t, &ai.AnthropicCompleter{}, Completer(config.Config{AIProvider: "anthropic", AIAPIKey: "k"}, logger))
}

func TestSenderSelection(t *testing.T) {
	logger := zerolog.Nop()
	assert.IsType(t, mailer.LogSender{}, Sender(config.Config{}, logger))
	assert.IsType(t, &mailer.SMTPSender{}, Sender(config.Config{SMTPHost: "smtp.example.org", SMTPPort: 587}, logger))
}

func TestLoggerLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, Logger(config.Config{LogLevel: "warn"}, "test").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, Logger(config.Config{LogLevel: "bogus"}, "test").GetLevel())
}
