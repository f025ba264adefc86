// Package app assembles the pieces shared by the server and the follow-up job.
package app

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/civiclink/backend/internal/ai"
	"github.com/civiclink/backend/internal/config"
	"github.com/civiclink/backend/internal/mailer"
)

const mockModelVersion = "mock-v1"

func Logger(cfg config.Config, service string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	l := log.Level(level)
	if cfg.Env == "dev" {
		l = l.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return l.With().Str("service", service).Logger()
}

// Completer picks the AI provider. Misconfigured real providers fall back to the
// mock so the pipeline still routes deterministically.
func Completer(cfg config.Config, logger zerolog.Logger) ai.Completer {
	var c ai.Completer
	switch cfg.AIProvider {
	case "openai":
		c = ai.OpenAICompleter{
			BaseURL:   cfg.AIURL,
			Model:     cfg.AIModel,
			APIKey:    cfg.AIAPIKey,
			MaxTokens: cfg.AIMaxTokens,
			Client:    &http.Client{Timeout: cfg.AITimeout},
		}
	case "anthropic":
		ac, err := ai.NewAnthropicCompleter(cfg.AIAPIKey, cfg.AIModel, cfg.AIMaxTokens, "")
		if err != nil {
			logger.Warn().Err(err).Msg("anthropic completer unavailable, using mock")
			return ai.MockCompleter{ModelVersion: mockModelVersion}
		}
		c = ac
	case "http":
		c = ai.HTTPCompleter{BaseURL: cfg.AIURL, Client: &http.Client{Timeout: cfg.AITimeout}}
	default:
		logger.Info().Msg("using mock AI completer")
		return ai.MockCompleter{ModelVersion: mockModelVersion}
	}
	logger.Info().Str("provider", cfg.AIProvider).Str("model", cfg.AIModel).Float64("rps", cfg.AIRPS).Msg("AI completer configured")
	if cfg.AIRPS > 0 {
		return ai.NewRateLimited(c, cfg.AIRPS, 1)
	}
	return c
}

// Sender delivers over SMTP when a host is configured and logs emails otherwise.
func Sender(cfg config.Config, logger zerolog.Logger) mailer.Sender {
	if cfg.SMTPHost == "" {
		logger.Warn().Msg("SMTP_HOST not set, emails are logged and not delivered")
		return mailer.LogSender{Logger: logger}
	}
	return mailer.NewSMTPSender(cfg.SMTP())
}
