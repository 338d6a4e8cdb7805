package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_MatchesRetryPolicyDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 4, cfg.Retry.MaxRetries)
	require.Equal(t, 100*time.Millisecond, cfg.Retry.MinWait)
	require.False(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile_RoundTripsSavedConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "icesnap.yml")
	require.NoError(t, DefaultConfig().Save(path))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "icesnap", cfg.Engine.Name)
	require.Equal(t, "./icesnap-data", cfg.BaseDir)
}

func TestLoad_FallsBackToDefaultsWhenNoFileFound(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)
}

func TestLoad_ExplicitPathIsUsed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	custom := DefaultConfig()
	custom.BaseDir = "/var/lib/icesnap"
	require.NoError(t, custom.Save(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/icesnap", cfg.BaseDir)
}
