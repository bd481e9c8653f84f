// Package app builds the collaborators shared by the server and the batch CLI from
// loaded configuration.
package app

import (
	"context"
	"fmt"

	"dengue-platform/internal/config"
	"dengue-platform/internal/incidence"
	"dengue-platform/internal/inference"
	"dengue-platform/pkg/database"
	"dengue-platform/pkg/logging"
	"dengue-platform/pkg/storage"
)

// Version is reported in logs and the service label
const Version = "1.0.0"

// NewLogger creates a structured logger at the configured level
func NewLogger(service string, cfg *config.Config) *logging.StructuredLogger {
	return logging.NewStructuredLogger(service, Version, logging.ParseLevel(cfg.Logging.Level))
}

// DatabaseConfig maps configuration to the connection pool settings
func DatabaseConfig(cfg *config.Config) *database.Config {
	return &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}
}

// ArtifactSource returns the configured model artifact store
func ArtifactSource(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger) (inference.ArtifactSource, error) {
	switch cfg.Models.Source {
	case "minio":
		store, err := storage.NewMinioStore(ctx, storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Prefix:    cfg.Storage.Prefix,
			Secure:    cfg.Storage.Secure,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "file":
		return storage.NewFileStore(cfg.Models.Dir), nil
	default:
		return nil, fmt.Errorf("unsupported model source %q", cfg.Models.Source)
	}
}

// LoadRegistry loads every model type from the configured artifact store
func LoadRegistry(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger) (*inference.Registry, error) {
	source, err := ArtifactSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return inference.LoadRegistry(ctx, source, inference.RegistryOptions{
		RemoteURL:     cfg.Models.RemoteURL,
		RemoteTimeout: cfg.Models.RemoteTimeout,
	}, logger)
}

// NewCalculator loads the population table and builds the incidence calculator
func NewCalculator(cfg *config.Config) (*incidence.Calculator, error) {
	table, err := incidence.LoadTable(cfg.Population.File)
	if err != nil {
		return nil, err
	}
	return incidence.NewCalculator(table, cfg.Population.Strict), nil
}
