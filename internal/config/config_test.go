package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "dengue", cfg.Database.Database)
	assert.Equal(t, "file", cfg.Models.Source)
	assert.Equal(t, "models", cfg.Models.Dir)
	assert.Empty(t, cfg.Models.RemoteURL)
	assert.False(t, cfg.Population.Strict)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 15*time.Minute, cfg.Redis.TTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "dengue-predictions", cfg.Kafka.Topic)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}

func TestLoadConfig_CustomEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("MODEL_SOURCE", "minio")
	t.Setenv("MINIO_BUCKET", "artifacts")
	t.Setenv("MODEL_SERVER_URL", "http://models:8500")
	t.Setenv("MODEL_SERVER_TIMEOUT", "2s")
	t.Setenv("POPULATION_STRICT", "true")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_TTL", "1m")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "minio", cfg.Models.Source)
	assert.Equal(t, "artifacts", cfg.Storage.Bucket)
	assert.Equal(t, "http://models:8500", cfg.Models.RemoteURL)
	assert.Equal(t, 2*time.Second, cfg.Models.RemoteTimeout)
	assert.True(t, cfg.Population.Strict)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Redis.TTL)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadConfig_MalformedValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("REDIS_TTL", "soon")
	t.Setenv("POPULATION_STRICT", "maybe")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
	assert.Contains(t, err.Error(), "REDIS_TTL")
	assert.Contains(t, err.Error(), "POPULATION_STRICT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"idle over open", func(c *Config) { c.Database.MaxIdleConns = 50 }, "DB_MAX_IDLE_CONNS"},
		{"unknown model source", func(c *Config) { c.Models.Source = "s3" }, "invalid MODEL_SOURCE"},
		{"minio without bucket", func(c *Config) {
			c.Models.Source = "minio"
			c.Storage.Bucket = ""
		}, "MINIO_BUCKET"},
		{"kafka without topic", func(c *Config) {
			c.Kafka.Brokers = []string{"b:9092"}
			c.Kafka.Topic = ""
		}, "KAFKA_TOPIC"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_DisabledDatabaseSkipsChecks(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	cfg.Database.Enabled = false
	cfg.Database.Host = ""

	assert.NoError(t, cfg.Validate())
}
