package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/civiclink/backend/internal/mailer"
	"github.com/civiclink/backend/internal/service"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	AdminKey        string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB int64         `mapstructure:"MAX_UPLOAD_MB"`
	UploadDir       string        `mapstructure:"UPLOAD_DIR"`
	PublicBaseURL   string        `mapstructure:"PUBLIC_BASE_URL"`
	AutoMigrate     bool          `mapstructure:"AUTO_MIGRATE"`

	UseRealAI         bool          `mapstructure:"USE_REAL_AI"`
	UseSmartFiltering bool          `mapstructure:"USE_SMART_FILTERING"`
	AIProvider        string        `mapstructure:"AI_PROVIDER"`
	AIURL             string        `mapstructure:"AI_URL"`
	AIModel           string        `mapstructure:"AI_MODEL"`
	AIAPIKey          string        `mapstructure:"AI_API_KEY"`
	AITimeout         time.Duration `mapstructure:"AI_TIMEOUT"`
	AIRPS             float64       `mapstructure:"AI_RPS"`
	AIMaxTokens       int           `mapstructure:"AI_MAX_TOKENS"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	EmailFrom    string `mapstructure:"EMAIL_FROM"`

	FollowupDelay    time.Duration `mapstructure:"FOLLOWUP_DELAY"`
	FollowupSchedule string        `mapstructure:"FOLLOWUP_SCHEDULE"`

	MaxCandidates              int     `mapstructure:"MAX_CANDIDATES"`
	RelevanceThreshold         float64 `mapstructure:"RELEVANCE_THRESHOLD"`
	RegionalThreshold          int     `mapstructure:"REGIONAL_THRESHOLD"`
	ReconciledConfidenceFactor float64 `mapstructure:"RECONCILED_CONFIDENCE_FACTOR"`
	DeterministicConfidence    float64 `mapstructure:"DETERMINISTIC_CONFIDENCE"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 5)
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("AUTO_MIGRATE", true)

	v.SetDefault("USE_REAL_AI", false)
	v.SetDefault("USE_SMART_FILTERING", true)
	v.SetDefault("AI_PROVIDER", "mock")
	v.SetDefault("AI_URL", "https://api.openai.com/v1")
	v.SetDefault("AI_MODEL", "")
	v.SetDefault("AI_API_KEY", "")
	v.SetDefault("AI_TIMEOUT", "30s")
	v.SetDefault("AI_RPS", 2)
	v.SetDefault("AI_MAX_TOKENS", 1000)

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("EMAIL_FROM", "")

	v.SetDefault("FOLLOWUP_DELAY", "120h")
	v.SetDefault("FOLLOWUP_SCHEDULE", "")

	def := service.DefaultPolicy()
	v.SetDefault("MAX_CANDIDATES", def.MaxCandidates)
	v.SetDefault("RELEVANCE_THRESHOLD", def.RelevanceThreshold)
	v.SetDefault("REGIONAL_THRESHOLD", def.RegionalThreshold)
	v.SetDefault("RECONCILED_CONFIDENCE_FACTOR", def.ReconciledConfidenceFactor)
	v.SetDefault("DETERMINISTIC_CONFIDENCE", def.DeterministicConfidence)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.AIProvider = strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	return cfg, nil
}

// Policy is the routing configuration handed to the pipeline constructors.
func (c Config) Policy() service.Policy {
	p := service.DefaultPolicy()
	p.UseAI = c.UseRealAI
	p.UseSmartFiltering = c.UseSmartFiltering
	if c.AITimeout > 0 {
		p.AITimeout = c.AITimeout
	}
	if c.MaxCandidates > 0 {
		p.MaxCandidates = c.MaxCandidates
	}
	if c.RelevanceThreshold > 0 {
		p.RelevanceThreshold = c.RelevanceThreshold
	}
	if c.RegionalThreshold > 0 {
		p.RegionalThreshold = c.RegionalThreshold
	}
	if c.ReconciledConfidenceFactor > 0 {
		p.ReconciledConfidenceFactor = c.ReconciledConfidenceFactor
	}
	if c.DeterministicConfidence > 0 {
		p.DeterministicConfidence = c.DeterministicConfidence
	}
	return p
}

func (c Config) SMTP() mailer.SMTPConfig {
	return mailer.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.EmailFrom,
	}
}

func (c Config) MaxUploadBytes() int64 {
	if c.MaxUploadSizeMB <= 0 {
		return 5 << 20
	}
	return c.MaxUploadSizeMB << 20
}
