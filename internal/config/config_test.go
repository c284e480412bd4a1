package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "daily", cfg.Pipeline.Grouping)
	assert.Equal(t, []int{7, 30, 90}, cfg.Pipeline.WindowSizes)
	assert.Equal(t, 0.25, cfg.Pipeline.FuzzyThreshold)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown grouping", func(c *Config) { c.Pipeline.Grouping = "hourly" }},
		{"header score above one", func(c *Config) { c.Pipeline.MinHeaderScore = 1.5 }},
		{"fuzzy threshold at one", func(c *Config) { c.Pipeline.FuzzyThreshold = 1.0 }},
		{"window too small", func(c *Config) { c.Pipeline.WindowSizes = []int{1} }},
		{"min samples below two", func(c *Config) { c.Pipeline.MinSamples = 1 }},
		{"empty history file", func(c *Config) { c.Paths.HistoryFile = "" }},
		{"zero rps", func(c *Config) { c.RateLimit.RPS = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
  read_timeout: 5s
pipeline:
  grouping: weekly
  z_threshold: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := loadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "weekly", cfg.Pipeline.Grouping)
	assert.Equal(t, float64(3), cfg.Pipeline.ZThreshold)
	// untouched fields keep their defaults
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, []int{7, 30, 90}, cfg.Pipeline.WindowSizes)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := loadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

// chdir moves the working directory so Load picks up config.yaml from
// the test's directory, restoring the old directory on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_FileOverlay(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: 9090
pipeline:
  z_threshold: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	// file values survive env processing when no variables are set
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, float64(3), cfg.Pipeline.ZThreshold)
	// untouched fields keep their defaults
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "daily", cfg.Pipeline.Grouping)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	chdir(t, dir)
	t.Setenv("TYREPULSE_SERVER_PORT", "9191")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TYREPULSE_SERVER_PORT", "9191")
	t.Setenv("TYREPULSE_PIPELINE_GROUPING", "monthly")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "monthly", cfg.Pipeline.Grouping)
}

func TestLoad_RejectsInvalidEnv(t *testing.T) {
	t.Setenv("TYREPULSE_PIPELINE_GROUPING", "hourly")

	_, err := Load()
	assert.Error(t, err)
}
