// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Models     ModelsConfig
	Population PopulationConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Storage    StorageConfig
	CORS       CORSConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// DatabaseConfig holds PostgreSQL settings. Persistence is off when Enabled is false.
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string
}

// ModelsConfig locates model artifacts and the optional remote inference server
type ModelsConfig struct {
	Source        string // "file" or "minio"
	Dir           string
	RemoteURL     string
	RemoteTimeout time.Duration
}

// PopulationConfig holds the incidence population table settings
type PopulationConfig struct {
	File   string
	Strict bool
}

// RedisConfig holds result cache settings. The cache is off when Addr is empty.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// KafkaConfig holds event publisher settings. Publishing is off when Brokers is empty.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// StorageConfig holds object storage settings for model artifacts
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Secure    bool
}

// CORSConfig holds cross-origin settings
type CORSConfig struct {
	AllowedOrigins []string
}

// LoadConfig reads configuration from environment variables, applying defaults where unset
func LoadConfig() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            p.getInt("SERVER_PORT", 8080),
			ReadTimeout:     p.getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    p.getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     p.getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: p.getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxUploadBytes:  int64(p.getInt("MAX_UPLOAD_BYTES", 10<<20)),
		},
		Database: DatabaseConfig{
			Enabled:         p.getBool("DB_ENABLED", true),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            p.getInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "dengue"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    p.getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    p.getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: p.getDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
		Models: ModelsConfig{
			Source:        strings.ToLower(getEnv("MODEL_SOURCE", "file")),
			Dir:           getEnv("MODEL_DIR", "models"),
			RemoteURL:     os.Getenv("MODEL_SERVER_URL"),
			RemoteTimeout: p.getDuration("MODEL_SERVER_TIMEOUT", 10*time.Second),
		},
		Population: PopulationConfig{
			File:   os.Getenv("POPULATION_FILE"),
			Strict: p.getBool("POPULATION_STRICT", false),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       p.getInt("REDIS_DB", 0),
			TTL:      p.getDuration("REDIS_TTL", 15*time.Minute),
			Prefix:   getEnv("REDIS_PREFIX", "predictions"),
		},
		Kafka: KafkaConfig{
			Brokers:      splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:        getEnv("KAFKA_TOPIC", "dengue-predictions"),
			BatchTimeout: p.getDuration("KAFKA_BATCH_TIMEOUT", 50*time.Millisecond),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "models"),
			Prefix:    os.Getenv("MINIO_PREFIX"),
			Secure:    p.getBool("MINIO_SECURE", false),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		},
	}

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return errors.New("database host is required")
		}
		if c.Database.Database == "" {
			return errors.New("database name is required")
		}
		if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
			return fmt.Errorf("DB_MAX_IDLE_CONNS (%d) exceeds DB_MAX_OPEN_CONNS (%d)",
				c.Database.MaxIdleConns, c.Database.MaxOpenConns)
		}
	}

	switch c.Models.Source {
	case "file":
		if c.Models.Dir == "" {
			return errors.New("MODEL_DIR is required for file model source")
		}
	case "minio":
		if c.Storage.Endpoint == "" || c.Storage.Bucket == "" {
			return errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required for minio model source")
		}
	default:
		return fmt.Errorf("invalid MODEL_SOURCE %q: expected file or minio", c.Models.Source)
	}
	if c.Models.RemoteURL != "" && c.Models.RemoteTimeout <= 0 {
		return errors.New("MODEL_SERVER_TIMEOUT must be positive")
	}

	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		return errors.New("REDIS_TTL must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// parser collects every malformed variable instead of stopping at the first
type parser struct {
	errs []error
}

func (p *parser) getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %q", key, v))
		return def
	}
	return n
}

func (p *parser) getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %q", key, v))
		return def
	}
	return b
}

func (p *parser) getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %q", key, v))
		return def
	}
	return d
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
