// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	StoreDriver     string        `env:"STORE_DRIVER" envDefault:"file"`
	DataDir         string        `env:"DATA_DIR" envDefault:"points"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	PointsDelta     int           `env:"POINTS_DELTA" envDefault:"50"`
	StrictParity    bool          `env:"STRICT_PARITY" envDefault:"true"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment  bool          `env:"LOG_DEVELOPMENT" envDefault:"false"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads the given .env files (none means ".env"), then the process
// environment. Missing files are fine; variables already set win.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.PointsDelta < 0 {
		return fmt.Errorf("%w: POINTS_DELTA must not be negative, got %d", ErrInvalid, c.PointsDelta)
	}
	switch c.StoreDriver {
	case DriverFile:
		if c.DataDir == "" {
			return fmt.Errorf("%w: DATA_DIR is required for the file store", ErrInvalid)
		}
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres store", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalid, c.StoreDriver)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: SHUTDOWN_TIMEOUT must be positive", ErrInvalid)
	}
	return nil
}
