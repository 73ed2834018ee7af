package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	EmailAPIURL string `env:"EMAIL_API_URL,required=true"`
	EmailAPIKey string `env:"EMAIL_API_KEY,required=true"`
	EmailFrom   string `env:"EMAIL_FROM,default=noreply@notiq.local"`

	// Optional secondary delivery path; failover is skipped when empty.
	WebhookFallbackURL string `env:"WEBHOOK_FALLBACK_URL"`

	// OperatorEmail receives SLA-breach and degraded-mode alerts.
	OperatorEmail string `env:"OPERATOR_EMAIL,required=true"`

	PollIntervalSec int `env:"POLL_INTERVAL_SEC,default=5"`
	PollBatchSize   int `env:"POLL_BATCH_SIZE,default=10"`

	MonitorIntervalSec    int `env:"MONITOR_INTERVAL_SEC,default=60"`
	StrugglingAttemptsMin int `env:"STRUGGLING_ATTEMPTS_MIN,default=3"`
	DegradedThreshold     int `env:"DEGRADED_THRESHOLD,default=20"`

	SweepIntervalSec int `env:"SWEEP_INTERVAL_SEC,default=3600"`

	RateLimitPerSec int    `env:"RATE_LIMIT_PER_SEC,default=100"`
	APIPort         int    `env:"API_PORT,default=8080"`
	LogLevel        string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
