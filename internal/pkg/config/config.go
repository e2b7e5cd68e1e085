package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port         string `env:"PORT,           default=8080"`
	Env          string `env:"ENV,            default=development"`
	LogLevel     string `env:"LOG_LEVEL,      default=info"`
	AppPublicURL string `env:"APP_PUBLIC_URL, default=http://localhost:8080"`

	JWT   JWTConfig
	Mongo MongoConfig
	Redis RedisConfig
	SMTP  SMTPConfig
	Mail  MailConfig
	Rate  RateConfig
}

type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET, required"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL,    default=15m"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TTL,   default=168h"`
	ConfirmTTL time.Duration `env:"CONFIRM_TOKEN_TTL, default=24h"`
	ResetTTL   time.Duration `env:"RESET_TOKEN_TTL,   default=1h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=user_service"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// SMTPConfig leaves Host empty in development; mail is then only logged.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,     default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
}

type MailConfig struct {
	From        string `env:"MAIL_FROM,         default=no-reply@localhost"`
	Workers     int    `env:"MAIL_WORKERS,      default=4"`
	QueueSize   int    `env:"MAIL_QUEUE_SIZE,   default=256"`
	MaxAttempts int    `env:"MAIL_MAX_ATTEMPTS, default=5"`
}

type RateConfig struct {
	AuthLimit float64 `env:"AUTH_RATE_LIMIT, default=5"`
	AuthBurst int     `env:"AUTH_RATE_BURST, default=10"`
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory, when present, is loaded first and
// never overrides variables already set.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return process(ctx, envconfig.OsLookuper())
}

func process(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if len(cfg.JWT.Secret) < 16 {
		return nil, errors.New("config: JWT_SECRET must be at least 16 characters")
	}
	return &cfg, nil
}
