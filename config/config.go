package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config is the full runtime configuration, read once from the environment.
type Config struct {
	Env        string `env:"ENV, default=production"`
	ServerPort int    `env:"SERVER_PORT, default=8080"`
	LogLevel   string `env:"LOG_LEVEL, default=info"`
	LogPretty  bool   `env:"LOG_PRETTY, default=false"`

	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	MQ        MQConfig
	Storage   StorageConfig
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST, default=localhost"`
	Port     int    `env:"DB_PORT, default=5432"`
	User     string `env:"DB_USER, default=tenantdesk"`
	Password string `env:"DB_PASSWORD, default=password"`
	DBName   string `env:"DB_NAME, default=tenantdesk"`
	UseSSL   bool   `env:"DB_USE_SSL, default=false"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JWT_TTL, default=24h"`
}

type RateLimitConfig struct {
	PerMinute int `env:"RATE_LIMIT_PER_MINUTE, default=300"`
	Burst     int `env:"RATE_LIMIT_BURST, default=60"`
}

// RedisConfig enables idempotency keys when Addr is set.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	DB       int           `env:"REDIS_DB, default=0"`
	Password string        `env:"REDIS_PASSWORD"`
	KeyTTL   time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`
}

// MQConfig selects the domain event backend. An empty Backend disables publishing.
type MQConfig struct {
	Backend  string `env:"MQ_BACKEND"`
	Channel  string `env:"MQ_CHANNEL, default=tenantdesk.events"`
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string `env:"RABBITMQ_URL"`
	QueueDurable    bool   `env:"RABBITMQ_QUEUE_DURABLE, default=true"`
	QueueAutoDelete bool   `env:"RABBITMQ_QUEUE_AUTO_DELETE, default=false"`
	PrefetchCount   int    `env:"RABBITMQ_PREFETCH, default=10"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PUBSUB_PROJECT_ID"`
	CredentialsFile    string `env:"PUBSUB_CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"PUBSUB_SUBSCRIPTION_SUFFIX, default=-sub"`
}

// StorageConfig selects the export backend. An empty Backend disables exports.
type StorageConfig struct {
	Backend string `env:"STORAGE_BACKEND"`
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET, default=tenantdesk"`
	UseSSL    bool   `env:"MINIO_USE_SSL, default=false"`
}

type GCSConfig struct {
	Bucket          string `env:"GCS_BUCKET"`
	ProjectID       string `env:"GCS_PROJECT_ID"`
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
}

// LoadConfig reads the environment. In dev a local .env file is loaded first.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}
	return load(envconfig.OsLookuper())
}

func load(lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// URL returns the postgres connection URL used by both the pool and the migrator.
func (c DatabaseConfig) URL() string {
	sslmode := "disable"
	if c.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		User:   url.UserPassword(c.User, c.Password),
		Path:   c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}
