package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,       default=8080"`
	Env       string        `env:"ENV,        default=development"`
	LogLevel  string        `env:"LOG_LEVEL,  default=info"`
	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL,    default=168h"`
	ClientURL string        `env:"CLIENT_URL, default=http://localhost:5173"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Stripe   StripeConfig
	Usage    UsageConfig
	Postmark PostmarkConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=subscription_service"`
}

// RedisConfig configures the optional webhook event-id ledger.
type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED,  default=false"`
	Addr     string        `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,       default=0"`
	EventTTL time.Duration `env:"REDIS_EVENT_TTL, default=72h"`
}

type StripeConfig struct {
	SecretKey     string        `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET"`
	PriceID       string        `env:"STRIPE_PRICE_ID"`
	LookupTimeout time.Duration `env:"STRIPE_LOOKUP_TIMEOUT, default=5s"`
}

type UsageConfig struct {
	MonthlyLimit     int64 `env:"USAGE_MONTHLY_LIMIT,     default=8000"`
	DefaultIncrement int64 `env:"USAGE_DEFAULT_INCREMENT, default=1000"`
}

// PostmarkConfig is optional; without a server token reset links are logged.
type PostmarkConfig struct {
	ServerToken   string        `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken  string        `env:"POSTMARK_ACCOUNT_TOKEN"`
	From          string        `env:"MAIL_FROM, default=noreply@localhost"`
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL, default=1h"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := load(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	if c.Usage.MonthlyLimit <= 0 {
		errs = append(errs, errors.New("USAGE_MONTHLY_LIMIT must be positive"))
	}
	if c.Usage.DefaultIncrement <= 0 {
		errs = append(errs, errors.New("USAGE_DEFAULT_INCREMENT must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
