// Package config loads server and game settings from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Game   GameConfig   `yaml:"game"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	// StaticDir, when set, serves the client bundle from this directory.
	StaticDir string `yaml:"static_dir"`
}

type GameConfig struct {
	InitialTimeMs    int  `yaml:"initial_time_ms"`
	MinPlayers       int  `yaml:"min_players"`
	CountdownSeconds int  `yaml:"countdown_seconds"`
	TickIntervalMs   int  `yaml:"tick_interval_ms"`
	SettleDelayMs    int  `yaml:"settle_delay_ms"`
	CarryHolding     bool `yaml:"carry_holding"`
}

// Default returns the standard configuration: 10 minute budgets, 2 player
// minimum, 5 second countdown, 100ms decay tick, 2 second settle delay.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Game: GameConfig{
			InitialTimeMs:    10 * 60 * 1000,
			MinPlayers:       2,
			CountdownSeconds: 5,
			TickIntervalMs:   100,
			SettleDelayMs:    2000,
			CarryHolding:     true,
		},
	}
}

// Load reads the config file at path, if present, on top of the defaults and
// then applies environment overrides. A missing file is not an error; a
// malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus env only.
	case err != nil:
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.StaticDir = getEnv("STATIC_DIR", cfg.Server.StaticDir)
	cfg.Game.InitialTimeMs = getEnvAsInt("INITIAL_TIME_MS", cfg.Game.InitialTimeMs)
	cfg.Game.MinPlayers = getEnvAsInt("MIN_PLAYERS", cfg.Game.MinPlayers)
	cfg.Game.CountdownSeconds = getEnvAsInt("COUNTDOWN_SECONDS", cfg.Game.CountdownSeconds)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
