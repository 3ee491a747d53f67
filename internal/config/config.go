package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration, read from the environment
type Config struct {
	Port     string
	BasePath string
	LogLevel string

	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Engine   EngineConfig
	Resource ResourceConfig
	Sentry   SentryConfig
}

// DatabaseConfig contains postgres connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Validate checks that the required connection settings are present
func (c DatabaseConfig) Validate() error {
	if c.Host == "" || c.Port == "" || c.User == "" || c.Password == "" || c.Name == "" {
		return fmt.Errorf("missing required database environment variables. Please check your .env file")
	}
	return nil
}

// RabbitMQConfig contains broker settings and the executor queue names
type RabbitMQConfig struct {
	Host         string
	Port         string
	User         string
	Pass         string
	MailingQueue string
	CallsQueue   string
}

// URL builds the AMQP connection URL
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Pass, c.Host, c.Port)
}

// EngineConfig tunes the lifecycle engine's background work
type EngineConfig struct {
	SweepInterval     time.Duration
	SweepConcurrency  int
	ExecutorTimeout   time.Duration
	ActivationTimeout time.Duration
	AuditTimeout      time.Duration
	AuditBuffer       int
	AuditWorkers      int
}

// ResourceConfig points at the segment, agent and survey services
type ResourceConfig struct {
	SegmentsURL string
	AgentsURL   string
	SurveysURL  string
	Timeout     time.Duration
}

// SentryConfig configures error reporting
type SentryConfig struct {
	DSN         string
	Environment string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("BASE_PATH", "/campaign-lifecycle-api")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("RABBITMQ_HOST", "localhost")
	v.SetDefault("RABBITMQ_PORT", "5672")
	v.SetDefault("RABBITMQ_USER", "guest")
	v.SetDefault("RABBITMQ_PASS", "guest")
	v.SetDefault("MAILING_QUEUE", "mailing_executor")
	v.SetDefault("CALLS_QUEUE", "calls_executor")

	v.SetDefault("SWEEP_INTERVAL", time.Minute)
	v.SetDefault("SWEEP_CONCURRENCY", 4)
	v.SetDefault("EXECUTOR_TIMEOUT", 5*time.Second)
	v.SetDefault("ACTIVATION_TIMEOUT", 30*time.Second)
	v.SetDefault("AUDIT_TIMEOUT", 5*time.Second)
	v.SetDefault("AUDIT_BUFFER", 1024)
	v.SetDefault("AUDIT_WORKERS", 4)

	v.SetDefault("RESOURCE_TIMEOUT", 3*time.Second)

	v.SetDefault("SENTRY_ENVIRONMENT", "development")
}

// Load reads the configuration from environment variables, applying defaults
func Load() *Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:     v.GetString("PORT"),
		BasePath: v.GetString("BASE_PATH"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:         v.GetString("RABBITMQ_HOST"),
			Port:         v.GetString("RABBITMQ_PORT"),
			User:         v.GetString("RABBITMQ_USER"),
			Pass:         v.GetString("RABBITMQ_PASS"),
			MailingQueue: v.GetString("MAILING_QUEUE"),
			CallsQueue:   v.GetString("CALLS_QUEUE"),
		},
		Engine: EngineConfig{
			SweepInterval:     positiveDuration(v.GetDuration("SWEEP_INTERVAL"), time.Minute),
			SweepConcurrency:  positiveInt(v.GetInt("SWEEP_CONCURRENCY"), 4),
			ExecutorTimeout:   positiveDuration(v.GetDuration("EXECUTOR_TIMEOUT"), 5*time.Second),
			ActivationTimeout: positiveDuration(v.GetDuration("ACTIVATION_TIMEOUT"), 30*time.Second),
			AuditTimeout:      positiveDuration(v.GetDuration("AUDIT_TIMEOUT"), 5*time.Second),
			AuditBuffer:       positiveInt(v.GetInt("AUDIT_BUFFER"), 1024),
			AuditWorkers:      positiveInt(v.GetInt("AUDIT_WORKERS"), 4),
		},
		Resource: ResourceConfig{
			SegmentsURL: v.GetString("SEGMENTS_API_URL"),
			AgentsURL:   v.GetString("AGENTS_API_URL"),
			SurveysURL:  v.GetString("SURVEYS_API_URL"),
			Timeout:     positiveDuration(v.GetDuration("RESOURCE_TIMEOUT"), 3*time.Second),
		},
		Sentry: SentryConfig{
			DSN:         v.GetString("SENTRY_DSN"),
			Environment: v.GetString("SENTRY_ENVIRONMENT"),
		},
	}
}

func positiveDuration(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func positiveInt(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}
