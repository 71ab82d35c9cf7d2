// Package config provides YAML-based configuration loading for
// stations, drones, and the missionctl CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure a missionctl
// deployment loads once at startup.
type Config struct {
	Environment string         `yaml:"environment" json:"environment"`
	Station     *StationConfig `yaml:"station" json:"station"`
	Drone       *DroneConfig   `yaml:"drone" json:"drone"`
	Channel     *ChannelConfig `yaml:"channel" json:"channel"`
	Auth        *AuthConfig    `yaml:"auth" json:"auth"`
	Audit       *AuditConfig   `yaml:"audit" json:"audit"`
	Logging     *LoggingConfig `yaml:"logging" json:"logging"`
	Metrics     *MetricsConfig `yaml:"metrics" json:"metrics"`
}

// StationConfig configures the station half of a transfer.
type StationConfig struct {
	SigningKeyPath  string        `yaml:"signing_key_path" json:"signing_key_path"`
	SessionTTL      time.Duration `yaml:"session_ttl" json:"session_ttl"`
	MissionValidity time.Duration `yaml:"mission_validity" json:"mission_validity"`
}

// DroneConfig configures the drone half of a transfer.
type DroneConfig struct {
	StationVerifyingKeyPath string        `yaml:"station_verifying_key_path" json:"station_verifying_key_path"`
	SessionTTL              time.Duration `yaml:"session_ttl" json:"session_ttl"`
}

// ChannelConfig configures the visual/acoustic coupling validator.
type ChannelConfig struct {
	CouplingWindow     time.Duration `yaml:"coupling_window" json:"coupling_window"`
	AcousticMinSpacing time.Duration `yaml:"acoustic_min_spacing" json:"acoustic_min_spacing"`
	BufferSize         int           `yaml:"buffer_size" json:"buffer_size"`
}

// AuthConfig configures the MFA gate: PIN rate limiting, scope grant
// TTL, and channel-witness freshness.
type AuthConfig struct {
	AttemptWindow   time.Duration `yaml:"attempt_window" json:"attempt_window"`
	MaxAttempts     int           `yaml:"max_attempts" json:"max_attempts"`
	PinValidity     time.Duration `yaml:"pin_validity" json:"pin_validity"`
	GrantTTL        time.Duration `yaml:"grant_ttl" json:"grant_ttl"`
	WitnessValidity time.Duration `yaml:"witness_validity" json:"witness_validity"`
}

// AuditConfig configures the signed audit log's retention policy.
type AuditConfig struct {
	MaxEntries       int           `yaml:"max_entries" json:"max_entries"`
	MaxAge           time.Duration `yaml:"max_age" json:"max_age"`
	PrioritizedKinds []string      `yaml:"prioritized_kinds" json:"prioritized_kinds"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, text
	Output string `yaml:"output" json:"output"` // stdout, stderr, file path
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile reads path and parses it as YAML, falling back to JSON
// if YAML parsing fails, then applies package defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("config: parse file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path, using JSON if path ends in ".json" and
// YAML otherwise.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

// setDefaults fills in zero-valued fields with this package's defaults,
// mirroring the bounds each domain package itself falls back to.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Station != nil {
		if cfg.Station.SessionTTL == 0 {
			cfg.Station.SessionTTL = 5 * time.Second
		}
		if cfg.Station.MissionValidity == 0 {
			cfg.Station.MissionValidity = 300 * time.Second
		}
	}

	if cfg.Drone != nil {
		if cfg.Drone.SessionTTL == 0 {
			cfg.Drone.SessionTTL = 5 * time.Second
		}
	}

	if cfg.Channel != nil {
		if cfg.Channel.CouplingWindow == 0 {
			cfg.Channel.CouplingWindow = 100 * time.Millisecond
		}
		if cfg.Channel.AcousticMinSpacing == 0 {
			cfg.Channel.AcousticMinSpacing = 20 * time.Millisecond
		}
		if cfg.Channel.BufferSize == 0 {
			cfg.Channel.BufferSize = 16
		}
	}

	if cfg.Auth != nil {
		if cfg.Auth.AttemptWindow == 0 {
			cfg.Auth.AttemptWindow = 60 * time.Second
		}
		if cfg.Auth.MaxAttempts == 0 {
			cfg.Auth.MaxAttempts = 5
		}
		if cfg.Auth.PinValidity == 0 {
			cfg.Auth.PinValidity = 120 * time.Second
		}
		if cfg.Auth.GrantTTL == 0 {
			cfg.Auth.GrantTTL = 300 * time.Second
		}
		if cfg.Auth.WitnessValidity == 0 {
			cfg.Auth.WitnessValidity = 300 * time.Second
		}
	}

	if cfg.Audit != nil {
		if cfg.Audit.MaxEntries == 0 {
			cfg.Audit.MaxEntries = 10000
		}
		if cfg.Audit.MaxAge == 0 {
			cfg.Audit.MaxAge = 24 * time.Hour
		}
	}

	if cfg.Logging != nil {
		if cfg.Logging.Level == "" {
			cfg.Logging.Level = "info"
		}
		if cfg.Logging.Format == "" {
			cfg.Logging.Format = "json"
		}
		if cfg.Logging.Output == "" {
			cfg.Logging.Output = "stdout"
		}
	}

	if cfg.Metrics != nil {
		if cfg.Metrics.Addr == "" {
			cfg.Metrics.Addr = ":9090"
		}
		if cfg.Metrics.Path == "" {
			cfg.Metrics.Path = "/metrics"
		}
	}
}
