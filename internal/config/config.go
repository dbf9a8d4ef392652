// Package config loads the coterm server configuration: a JSON file with
// defaults, overridable per deployment through COTERM_* environment
// variables (a .env file is honored when present, loaded by the caller).
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/caarlos0/env/v11"
)

// MaintenanceConfig configures the periodic discovery refresh broadcasts.
// Specs use cron syntax with a seconds field.
type MaintenanceConfig struct {
	Enabled              bool   `json:"enabled" env:"COTERM_MAINTENANCE_ENABLED"`
	ConnectionCountsSpec string `json:"connectionCountsSpec" env:"COTERM_MAINTENANCE_COUNTS_SPEC"`
	LobbyRefreshSpec     string `json:"lobbyRefreshSpec" env:"COTERM_MAINTENANCE_LOBBIES_SPEC"`
}

// ServerConfig is the root configuration.
type ServerConfig struct {
	Host          string `json:"host" env:"COTERM_HOST"`
	Port          int    `json:"port" env:"COTERM_PORT"`
	HostKeyPath   string `json:"hostKeyPath" env:"COTERM_HOST_KEY"`
	LobbyCapacity int    `json:"lobbyCapacity" env:"COTERM_LOBBY_CAPACITY"`
	EditorCommand string `json:"editorCommand" env:"COTERM_EDITOR"`
	LogFilePath   string `json:"logFilePath" env:"COTERM_LOG_FILE"`

	Maintenance MaintenanceConfig `json:"maintenance"`
}

// Default returns the built-in configuration.
func Default() ServerConfig {
	return ServerConfig{
		Host:          "0.0.0.0",
		Port:          2222,
		HostKeyPath:   "configs/ssh_host_key",
		LobbyCapacity: 4,
		EditorCommand: "helix",
		Maintenance: MaintenanceConfig{
			Enabled:              true,
			ConnectionCountsSpec: "0 * * * * *",
			LobbyRefreshSpec:     "30 * * * * *",
		},
	}
}

// Load builds the effective configuration: defaults, then the JSON file at
// path (a missing file is not an error), then environment overrides.
func Load(path string) (ServerConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.Printf("INFO: Config file %s not found. Using defaults.", path)
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		log.Printf("INFO: Loaded config from %s", path)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c ServerConfig) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.LobbyCapacity <= 0 {
		return fmt.Errorf("invalid lobby capacity %d", c.LobbyCapacity)
	}
	if c.EditorCommand == "" {
		return fmt.Errorf("editor command must not be empty")
	}
	return nil
}
