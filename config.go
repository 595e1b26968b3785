package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type appConfig struct {
	DB            DbConfig            `envPrefix:"DB_"`
	Server        ServerConf          `envPrefix:"SERVER_"`
	PostProcessor PostProcessorConfig `envPrefix:"PURGE_"`
	Tracing       TracingConfig       `envPrefix:"OTEL_"`
	Leveling      LevelingConfig      `envPrefix:"LEVELING_"`
}

// LevelingConfig shapes the default experience table
type LevelingConfig struct {
	BaseExperience int     `env:"BASE_EXPERIENCE" envDefault:"1000"`
	Growth         float64 `env:"GROWTH" envDefault:"1.26"`
}

// loadConfig reads SETTLE_ prefixed environment variables
func loadConfig() (appConfig, error) {
	var cfg appConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "SETTLE_"}); err != nil {
		return appConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PostProcessor.Interval <= 0 {
		return appConfig{}, fmt.Errorf("purge interval must be positive, got %v", cfg.PostProcessor.Interval)
	}
	if cfg.Leveling.BaseExperience <= 0 || cfg.Leveling.Growth < 1 {
		return appConfig{}, fmt.Errorf("invalid leveling config %+v", cfg.Leveling)
	}
	return cfg, nil
}
