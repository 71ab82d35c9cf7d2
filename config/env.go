package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR} or ${VAR:default}
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment
// variable values.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}

// SubstituteEnvVarsInConfig recursively substitutes environment
// variables in every string field of cfg that plausibly carries one.
func SubstituteEnvVarsInConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Station != nil {
		cfg.Station.SigningKeyPath = SubstituteEnvVars(cfg.Station.SigningKeyPath)
	}
	if cfg.Drone != nil {
		cfg.Drone.StationVerifyingKeyPath = SubstituteEnvVars(cfg.Drone.StationVerifyingKeyPath)
	}
	if cfg.Logging != nil {
		cfg.Logging.Level = SubstituteEnvVars(cfg.Logging.Level)
		cfg.Logging.Format = SubstituteEnvVars(cfg.Logging.Format)
		cfg.Logging.Output = SubstituteEnvVars(cfg.Logging.Output)
	}
	if cfg.Metrics != nil {
		cfg.Metrics.Addr = SubstituteEnvVars(cfg.Metrics.Addr)
		cfg.Metrics.Path = SubstituteEnvVars(cfg.Metrics.Path)
	}
}

// GetEnvironment returns the current environment from DRONELINK_ENV,
// falling back to ENVIRONMENT, defaulting to "development".
func GetEnvironment() string {
	env := os.Getenv("DRONELINK_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction reports whether the current environment is "production".
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsDevelopment reports whether the current environment is
// "development" or "local".
func IsDevelopment() bool {
	env := GetEnvironment()
	return env == "development" || env == "local"
}
