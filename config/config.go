package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/scoutlabs/mailscout/internal/domain"
)

type Config struct {
	Env  string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port string `env:"PORT" envDefault:"8080" validate:"required"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	RedisURL    string `env:"REDIS_URL"` // empty = usage ledger lives in postgres

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	// DNS / MX verification
	DNSServers       []string `env:"DNS_SERVERS" envSeparator:","` // empty = resolv.conf
	DNSTimeoutSec    int      `env:"DNS_TIMEOUT_SEC" envDefault:"4" validate:"min=1,max=30"`
	DNSQueriesPerSec float64  `env:"DNS_QUERIES_PER_SEC" envDefault:"50"`
	MXCacheTTLMin    int      `env:"MX_CACHE_TTL_MIN" envDefault:"60" validate:"min=1"`

	// Plan quotas (requests per rolling period; 0 = unlimited)
	QuotaFree       int `env:"QUOTA_FREE" envDefault:"10" validate:"min=0"`
	QuotaStarter    int `env:"QUOTA_STARTER" envDefault:"500" validate:"min=0"`
	QuotaPro        int `env:"QUOTA_PRO" envDefault:"5000" validate:"min=0"`
	QuotaEnterprise int `env:"QUOTA_ENTERPRISE" envDefault:"0" validate:"min=0"`

	UsagePeriodHours int `env:"USAGE_PERIOD_HOURS" envDefault:"24" validate:"min=1,max=168"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) Quotas() domain.Quotas {
	return domain.Quotas{
		domain.PlanFree:       c.QuotaFree,
		domain.PlanStarter:    c.QuotaStarter,
		domain.PlanPro:        c.QuotaPro,
		domain.PlanEnterprise: c.QuotaEnterprise,
	}
}

func (c *Config) DNSTimeout() time.Duration   { return time.Duration(c.DNSTimeoutSec) * time.Second }
func (c *Config) MXCacheTTL() time.Duration   { return time.Duration(c.MXCacheTTLMin) * time.Minute }
func (c *Config) UsagePeriod() time.Duration  { return time.Duration(c.UsagePeriodHours) * time.Hour }
