package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Version, cfg.Version)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Session, cfg.Session)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
version = 2

[session]
pen_size = 0.004
pen_color = "#ff0000"
recording_speed = 1.0
denoise = "aggressive"

[logging]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.004, cfg.Session.PenSize)
	assert.Equal(t, DenoiseAggressive, cfg.Session.Denoise)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultConfig().Export, cfg.Export)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
version: 2
session:
  pen_size: 0.012
  pen_color: "#00ff00"
  recording_speed: 0.125
  denoise: "off"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.012, cfg.Session.PenSize)
	assert.Equal(t, DenoiseOff, cfg.Session.Denoise)
}

func TestLoadMigratesV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
version = 1

[session]
pen_size = 0.002
pen_color = "#ffffff"
recording_speed = 0.3333
denoise = "on"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Version, cfg.Version)
	assert.Equal(t, DenoiseLight, cfg.Session.Denoise)
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 99\n"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCRIBL_LIBRARY_PATH", "/tmp/other.db")
	t.Setenv("SCRIBL_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "/tmp/other.db", cfg.Storage.LibraryPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSettingsClamped(t *testing.T) {
	s := Settings{PenSize: 99, RecordingSpeed: 7, Denoise: "bogus"}.Clamped()
	assert.Equal(t, MaxPenSize, s.PenSize)
	assert.Equal(t, SpeedNormal, s.RecordingSpeed)
	assert.Equal(t, DenoiseOff, s.Denoise)

	s = Settings{PenSize: 0, RecordingSpeed: -1, Denoise: DenoiseLight}.Clamped()
	assert.Equal(t, MinPenSize, s.PenSize)
	assert.Equal(t, SpeedPaused, s.RecordingSpeed)
}

func TestClampZoom(t *testing.T) {
	assert.Equal(t, MinZoom, ClampZoom(0))
	assert.Equal(t, MaxZoom, ClampZoom(100))
	assert.Equal(t, 2.5, ClampZoom(2.5))
	assert.Equal(t, MinZoom, ClampZoom(-5))
}

func TestZoomSteps(t *testing.T) {
	assert.Equal(t, MinZoom*ZoomStep, ZoomIn(MinZoom))
	assert.Equal(t, MinZoom, ZoomOut(MinZoom*ZoomStep))
	assert.Equal(t, MaxZoom, ZoomIn(MaxZoom))
	assert.Equal(t, MinZoom, ZoomOut(MinZoom))
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Session.Denoise = DenoiseAggressive
	clone.Logging.Level = "debug"
	assert.NotEqual(t, cfg.Session.Denoise, clone.Session.Denoise)
	assert.NotEqual(t, cfg.Logging.Level, clone.Logging.Level)
}
