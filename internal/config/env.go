package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds overrides read from the environment.
type EnvConfig struct {
	SaveDir  string `env:"MATHRALLY_SAVE_DIR"`
	DBPath   string `env:"MATHRALLY_DB_PATH"`
	LogLevel string `env:"MATHRALLY_LOG_LEVEL"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv reads EnvConfig.
func LoadEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := ParseEnv(&cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// Overlay copies non-empty environment values over the file config.
func (e EnvConfig) Overlay(cfg *FileConfig) {
	if e.SaveDir != "" {
		v := e.SaveDir
		cfg.Storage.SaveDir = &v
	}
	if e.DBPath != "" {
		v := e.DBPath
		cfg.Storage.DBPath = &v
	}
	if e.LogLevel != "" {
		v := e.LogLevel
		cfg.Log.Level = &v
	}
}
