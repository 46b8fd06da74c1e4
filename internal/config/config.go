package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	SMTP          SMTPConfig          `mapstructure:"smtp"`
	Stripe        StripeConfig        `mapstructure:"stripe"`
	Google        GoogleConfig        `mapstructure:"google"`
	Outbox        OutboxConfig        `mapstructure:"outbox"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Log           LogConfig           `mapstructure:"log"`
	Booking       BookingConfig       `mapstructure:"booking"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name"`
	SSLMode       string `mapstructure:"sslmode"`
	MaxOpenConns  int    `mapstructure:"max_open_conns"`
	MaxIdleConns  int    `mapstructure:"max_idle_conns"`
	MigrationsDir string `mapstructure:"migrations_dir"`
	AutoMigrate   bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret        string        `mapstructure:"secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	Expiry        time.Duration `mapstructure:"expiry"`
	RefreshExpiry time.Duration `mapstructure:"refresh_expiry"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type StripeConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	WebhookSecret    string        `mapstructure:"webhook_secret"`
	WebhookTolerance time.Duration `mapstructure:"webhook_tolerance"`
	ProPriceID       string        `mapstructure:"pro_price_id"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type BookingConfig struct {
	// How far ahead customers may book.
	MaxAdvance time.Duration `mapstructure:"max_advance"`
	// Minimum notice before a slot start.
	MinNotice time.Duration `mapstructure:"min_notice"`
}

type NotificationConfig struct {
	ReminderLead time.Duration `mapstructure:"reminder_lead"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
}

// envOverrides are the secrets that must never live in the config file.
type envOverrides struct {
	DatabasePassword    string `envconfig:"DATABASE_PASSWORD"`
	JWTSecret           string `envconfig:"JWT_SECRET"`
	JWTRefreshSecret    string `envconfig:"JWT_REFRESH_SECRET"`
	SMTPPassword        string `envconfig:"SMTP_PASSWORD"`
	StripeAPIKey        string `envconfig:"STRIPE_API_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	GoogleClientSecret  string `envconfig:"GOOGLE_CLIENT_SECRET"`
	RedisURL            string `envconfig:"REDIS_URL"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")

	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to process env overrides: %w", err)
	}
	applyOverrides(&config, env)

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.request_timeout", "30s")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.migrations_dir", "migrations")
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.retry_backoff", "100ms")
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 2)
	viper.SetDefault("jwt.expiry", "1h")
	viper.SetDefault("jwt.refresh_expiry", "720h")
	viper.SetDefault("stripe.webhook_tolerance", "5m")
	viper.SetDefault("outbox.batch_size", 50)
	viper.SetDefault("outbox.poll_interval", "5s")
	viper.SetDefault("outbox.retry_attempts", 3)
	viper.SetDefault("outbox.retry_delay", "1s")
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_second", 50.0)
	viper.SetDefault("rate_limit.burst", 100)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("booking.max_advance", "2160h")
	viper.SetDefault("booking.min_notice", "0s")
	viper.SetDefault("notifications.reminder_lead", "24h")
	viper.SetDefault("notifications.scan_interval", "15m")
}

func applyOverrides(cfg *Config, env envOverrides) {
	if env.DatabasePassword != "" {
		cfg.Database.Password = env.DatabasePassword
	}
	if env.JWTSecret != "" {
		cfg.JWT.Secret = env.JWTSecret
	}
	if env.JWTRefreshSecret != "" {
		cfg.JWT.RefreshSecret = env.JWTRefreshSecret
	}
	if env.SMTPPassword != "" {
		cfg.SMTP.Password = env.SMTPPassword
	}
	if env.StripeAPIKey != "" {
		cfg.Stripe.APIKey = env.StripeAPIKey
	}
	if env.StripeWebhookSecret != "" {
		cfg.Stripe.WebhookSecret = env.StripeWebhookSecret
	}
	if env.GoogleClientSecret != "" {
		cfg.Google.ClientSecret = env.GoogleClientSecret
	}
	if env.RedisURL != "" {
		cfg.Redis.URL = env.RedisURL
	}
}
