package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/crafter-record/pkg/core"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, 100, cfg.Episodes)
		assert.Equal(t, 2000, cfg.MaxSteps)
		assert.True(t, cfg.Recorder.SaveStats)
		assert.False(t, cfg.Recorder.SaveVideo)
		assert.Equal(t, core.Size{Width: 512, Height: 512}, cfg.Recorder.VideoSize)
	})

	t.Run("yaml over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := `
episodes: 3
recorder:
  directory: out
  save_episode: true
  video_size:
    width: 64
    height: 48
environment:
  length: 50
logging:
  level: debug
`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Episodes)
		assert.Equal(t, 2000, cfg.MaxSteps)
		assert.Equal(t, "out", cfg.Recorder.Directory)
		assert.True(t, cfg.Recorder.SaveEpisode)
		assert.True(t, cfg.Recorder.SaveStats, "unset fields keep their defaults")
		assert.Equal(t, core.Size{Width: 64, Height: 48}, cfg.Recorder.VideoSize)
		assert.Equal(t, 50, cfg.Environment.Length)
		assert.Equal(t, 16, cfg.Environment.Area.Width)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("RECORD_DIR", "/tmp/elsewhere")
		t.Setenv("RECORD_EPISODES", "7")
		t.Setenv("RECORD_SEED", "99")

		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/elsewhere", cfg.Recorder.Directory)
		assert.Equal(t, 7, cfg.Episodes)
		assert.Equal(t, int64(99), cfg.Seed)
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Setenv("RECORD_MAX_STEPS", "many")
		_, err := LoadConfig("")
		assert.Error(t, err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RECORD_EPISODES=11\n"), 0o644))
	t.Setenv("RECORD_EPISODES", "")
	os.Unsetenv("RECORD_EPISODES")

	LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 11, cfg.Episodes)
}
