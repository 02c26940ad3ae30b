// Package config loads runtime settings from the environment, with an
// optional .env file for development setups.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/RogerMarsh/chesscalc/internal/store"
)

// Config holds the settings every command reads at startup.
type Config struct {
	// Store selects the database backend.
	Store string `env:"CHESSCALC_STORE" envDefault:"badger"`
	// DataDir overrides the platform data directory.
	DataDir string `env:"CHESSCALC_DATA_DIR"`
	// Measure is the rating points equivalent of one win.
	Measure float64 `env:"CHESSCALC_MEASURE" envDefault:"50"`
	// Delta is the convergence threshold for the iteration.
	Delta float64 `env:"CHESSCALC_DELTA" envDefault:"1e-12"`
}

// Load reads a .env file if one is present in the working directory,
// then parses the environment. Environment variables win over .env
// entries.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Backend(); err != nil {
		return nil, err
	}
	if cfg.Measure <= 0 {
		return nil, fmt.Errorf("CHESSCALC_MEASURE must be positive, got %v", cfg.Measure)
	}
	if cfg.Delta <= 0 {
		return nil, fmt.Errorf("CHESSCALC_DELTA must be positive, got %v", cfg.Delta)
	}
	return cfg, nil
}

// Backend returns the store backend name, validated.
func (c *Config) Backend() (string, error) {
	switch c.Store {
	case store.BackendBadger, store.BackendSQLite:
		return c.Store, nil
	}
	return "", fmt.Errorf("unknown store backend %q", c.Store)
}

// OpenStore opens the configured backend in the configured data
// directory, or the platform default when DataDir is unset.
func (c *Config) OpenStore() (store.Store, error) {
	backend, err := c.Backend()
	if err != nil {
		return nil, err
	}
	dir := c.DataDir
	if dir == "" {
		dir, err = store.BackendDir(backend)
		if err != nil {
			return nil, err
		}
	}
	return store.Open(backend, dir)
}
