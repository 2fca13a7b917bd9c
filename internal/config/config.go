package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MigrationsPath  string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers            []string
	NotificationsTopic string
}

type SMTPConfig struct {
	Host     string
	Port     string
	From     string
	Password string
	// OperatorEmail receives a copy of every customer notification.
	OperatorEmail string
}

type Config struct {
	App struct {
		Port string
	}
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
}

// Load reads configuration from the environment, optionally preloading a
// .env file. Database credentials are required, the rest has defaults.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = getenv("APP_PORT", "8080")

	for _, v := range []struct {
		dst  *string
		name string
	}{
		{&cfg.Postgres.Host, "DB_HOST"},
		{&cfg.Postgres.Port, "DB_PORT"},
		{&cfg.Postgres.User, "DB_USER"},
		{&cfg.Postgres.Password, "DB_PASSWORD"},
		{&cfg.Postgres.DBName, "DB_NAME"},
	} {
		*v.dst = os.Getenv(v.name)
		if *v.dst == "" {
			return nil, fmt.Errorf("%s is required", v.name)
		}
	}
	cfg.Postgres.SSLMode = getenv("DB_SSLMODE", "disable")
	cfg.Postgres.MigrationsPath = getenv("DB_MIGRATIONS_PATH", "migrations")
	cfg.Postgres.MaxConns = 10
	cfg.Postgres.MinConns = 2
	cfg.Postgres.MaxConnLifetime = 30 * time.Minute

	cfg.Redis.Addr = getenv("REDIS_ADDR", "localhost:6379")

	cfg.Kafka.Brokers = splitCSV(getenv("KAFKA_BROKERS", "localhost:9092"))
	cfg.Kafka.NotificationsTopic = getenv("KAFKA_NOTIFICATIONS_TOPIC", "orders.notifications")

	cfg.SMTP.Host = getenv("SMTP_HOST", "localhost")
	cfg.SMTP.Port = getenv("SMTP_PORT", "25")
	cfg.SMTP.From = getenv("SMTP_FROM", "noreply@herbstore.local")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	cfg.SMTP.OperatorEmail = getenv("OPERATOR_EMAIL", "orders@herbstore.local")

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
