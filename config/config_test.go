package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileParsesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "station.yaml")

	content := `environment: staging
station:
  signing_key_path: /etc/dronelink/station.key
  session_ttl: 3s
  mission_validity: 20s
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := LoadFromFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "/etc/dronelink/station.key", cfg.Station.SigningKeyPath)
	assert.Equal(t, 3*time.Second, cfg.Station.SessionTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output) // defaulted
}

func TestSetDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{
		Station: &StationConfig{},
		Channel: &ChannelConfig{},
		Auth:    &AuthConfig{},
		Audit:   &AuditConfig{},
	}
	setDefaults(cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5*time.Second, cfg.Station.SessionTTL)
	assert.Equal(t, 100*time.Millisecond, cfg.Channel.CouplingWindow)
	assert.Equal(t, 5, cfg.Auth.MaxAttempts)
	assert.Equal(t, 10000, cfg.Audit.MaxEntries)
}

func TestSubstituteEnvVarsWithDefault(t *testing.T) {
	os.Unsetenv("DRONELINK_TEST_VAR")
	assert.Equal(t, "fallback", SubstituteEnvVars("${DRONELINK_TEST_VAR:fallback}"))

	os.Setenv("DRONELINK_TEST_VAR", "actual")
	defer os.Unsetenv("DRONELINK_TEST_VAR")
	assert.Equal(t, "actual", SubstituteEnvVars("${DRONELINK_TEST_VAR:fallback}"))
}

func TestLoadFallsBackToDefaultsWhenNoFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := Load(LoaderOptions{ConfigDir: tmpDir, Environment: "test"})
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Environment)
}

func TestEnvironmentOverrideTakesPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("logging:\n  level: info\n"), 0644))

	os.Setenv("DRONELINK_LOG_LEVEL", "debug")
	defer os.Unsetenv("DRONELINK_LOG_LEVEL")

	cfg, err := Load(LoaderOptions{ConfigDir: tmpDir, Environment: "test"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSaveToFileRoundTripsYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out.yaml")

	cfg := &Config{Environment: "production", Logging: &LoggingConfig{Level: "warn"}}
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "production", loaded.Environment)
	assert.Equal(t, "warn", loaded.Logging.Level)
}
