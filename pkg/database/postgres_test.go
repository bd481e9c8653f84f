package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Host:     "db.internal",
		Port:     5433,
		User:     "dengue",
		Password: "secret",
		Database: "dengue_platform",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=dengue password=secret dbname=dengue_platform sslmode=disable",
		cfg.DSN())
}
