// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds the configuration values for the workers. Each worker reads only
// the fields it needs; unset optional values stay zero.
type Env struct {
	Region string `env:"AWS_REGION" envDefault:"us-east-1"`

	// DynamoDB tables
	StatusTable      string `env:"STATUS_TABLE"`
	ConnectionsTable string `env:"CONNECTIONS_TABLE"`

	// Postgres (reports, claims)
	DatabaseURL string `env:"DATABASE_URL"`

	// S3
	Bucket string `env:"S3_BUCKET"`

	// Queues
	EventQueueURL        string `env:"EVENT_QUEUE_URL"`
	NotificationQueueURL string `env:"NOTIFICATION_QUEUE_URL"`
	OrganizeQueueURL     string `env:"ORGANIZE_QUEUE_URL"`
	PackageQueueURL      string `env:"PACKAGE_QUEUE_URL"`
	NotifyQueueURL       string `env:"NOTIFY_QUEUE_URL"`

	// Websocket fan-out
	WebsocketEndpoint     string        `env:"WS_API_ENDPOINT"`
	TokenSecret           string        `env:"TOKEN_SECRET"`
	MaxConnectionsPerUser int           `env:"MAX_CONNECTIONS_PER_USER" envDefault:"5"`
	ConnectionTTL         time.Duration `env:"CONNECTION_TTL" envDefault:"2h"`

	// Retention and delivery
	StatusTTL     time.Duration `env:"STATUS_TTL" envDefault:"168h"`
	ReportURLTTL  time.Duration `env:"REPORT_URL_TTL" envDefault:"168h"`
	SenderAddress string        `env:"SENDER_ADDRESS"`

	// Stage 2 staging area; defaults to the platform scratch dir.
	WorkDir string `env:"WORK_DIR" envDefault:"/tmp"`
}

// MustLoad reads the environment and returns an Env struct, panicking on
// malformed values. A .env file is honored when present (local development).
func MustLoad() Env {
	_ = godotenv.Load()

	var e Env
	if err := env.Parse(&e); err != nil {
		panic(fmt.Errorf("config: %w", err))
	}
	return e
}

// MustHave panics unless every named value is non-empty. Workers call this at
// startup for the settings they cannot run without.
func MustHave(pairs map[string]string) {
	for name, v := range pairs {
		if v == "" {
			panic(fmt.Errorf("missing env %s", name))
		}
	}
}
