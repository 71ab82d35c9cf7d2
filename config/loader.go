package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoaderOptions configures Load.
type LoaderOptions struct {
	// ConfigDir is the directory containing config files (default: ./config)
	ConfigDir string
	// Environment overrides automatic environment detection.
	Environment string
	// SkipEnvSubstitution disables ${VAR} substitution.
	SkipEnvSubstitution bool
}

// DefaultLoaderOptions returns the default loader options.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{ConfigDir: "config"}
}

// Load loads configuration with automatic environment detection: it
// tries <dir>/<env>.yaml, then <dir>/default.yaml, then <dir>/config.yaml,
// falling back to an all-defaults Config if none exist.
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	candidates := []string{
		filepath.Join(options.ConfigDir, fmt.Sprintf("%s.yaml", env)),
		filepath.Join(options.ConfigDir, "default.yaml"),
		filepath.Join(options.ConfigDir, "config.yaml"),
	}

	var cfg *Config
	for _, path := range candidates {
		loaded, err := loadConfigFile(path)
		if err == nil {
			cfg = loaded
			break
		}
	}
	if cfg == nil {
		cfg = &Config{Environment: env}
		setDefaults(cfg)
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}

	if !options.SkipEnvSubstitution {
		SubstituteEnvVarsInConfig(cfg)
	}
	applyEnvironmentOverrides(cfg)

	return cfg, nil
}

func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config: not found: %s", path)
	}
	return LoadFromFile(path)
}

// applyEnvironmentOverrides lets a handful of environment variables
// override config values read from file, taking highest priority.
func applyEnvironmentOverrides(cfg *Config) {
	if level := os.Getenv("DRONELINK_LOG_LEVEL"); level != "" && cfg.Logging != nil {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("DRONELINK_LOG_FORMAT"); format != "" && cfg.Logging != nil {
		cfg.Logging.Format = format
	}
	if addr := os.Getenv("DRONELINK_METRICS_ADDR"); addr != "" && cfg.Metrics != nil {
		cfg.Metrics.Addr = addr
	}
	switch os.Getenv("DRONELINK_METRICS_ENABLED") {
	case "true":
		if cfg.Metrics != nil {
			cfg.Metrics.Enabled = true
		}
	case "false":
		if cfg.Metrics != nil {
			cfg.Metrics.Enabled = false
		}
	}
}

// MustLoad loads configuration or panics on error.
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}
