// Package config handles configuration loading, validation, and management
// for scribl.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Version is the current configuration schema version.
const Version = 2

// Config holds the complete application configuration.
type Config struct {
	// Version is the configuration schema version for migrations.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Session holds the default per-document settings.
	Session Settings `toml:"session" json:"session" yaml:"session"`

	// Audio configuration for capture and playback.
	Audio AudioConfig `toml:"audio" json:"audio" yaml:"audio"`

	// Storage configuration for the document library.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Autosave configuration.
	Autosave AutosaveConfig `toml:"autosave" json:"autosave" yaml:"autosave"`

	// Watch configuration for the on-disk document watcher.
	Watch WatchConfig `toml:"watch" json:"watch" yaml:"watch"`

	// Export configuration for soundtrack export.
	Export ExportConfig `toml:"export" json:"export" yaml:"export"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// AudioConfig holds capture and playback configuration.
type AudioConfig struct {
	// InputDevice names the capture device to acquire, or "" for the
	// system default.
	InputDevice string `toml:"input_device" json:"input_device" yaml:"input_device"`

	// GateThreshold is the RMS level below which the denoise gate treats a
	// frame as noise, in [0, 1].
	GateThreshold float64 `toml:"gate_threshold" json:"gate_threshold" yaml:"gate_threshold"`
}

// StorageConfig holds document library persistence configuration.
type StorageConfig struct {
	// LibraryPath is the path to the sqlite library database.
	LibraryPath string `toml:"library_path" json:"library_path" yaml:"library_path"`

	// BusyTimeoutMs is the sqlite busy timeout in milliseconds.
	BusyTimeoutMs int `toml:"busy_timeout_ms" json:"busy_timeout_ms" yaml:"busy_timeout_ms"`
}

// AutosaveConfig holds autosave configuration.
type AutosaveConfig struct {
	// Enabled determines whether autosave runs.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// IntervalSec is the delay between autosaves of a dirty document.
	IntervalSec int `toml:"interval_sec" json:"interval_sec" yaml:"interval_sec"`

	// Keep is how many autosave generations to retain per document.
	Keep int `toml:"keep" json:"keep" yaml:"keep"`
}

// WatchConfig holds on-disk document watching configuration.
type WatchConfig struct {
	// Enabled determines whether the open document is watched for
	// external modification.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// DebounceMs is how long the file must be stable before an
	// external-change event is reported.
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
}

// ExportConfig holds soundtrack export configuration.
type ExportConfig struct {
	// OpusBitrate is the bitrate for Ogg/Opus export, in bits per second.
	OpusBitrate int `toml:"opus_bitrate" json:"opus_bitrate" yaml:"opus_bitrate"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr", or "file".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output is "file").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dir := ScriblDir()

	return &Config{
		Version: Version,
		Session: DefaultSettings(),
		Audio: AudioConfig{
			InputDevice:   "",
			GateThreshold: 0.02,
		},
		Storage: StorageConfig{
			LibraryPath:   filepath.Join(dir, "library.db"),
			BusyTimeoutMs: 5000,
		},
		Autosave: AutosaveConfig{
			Enabled:     true,
			IntervalSec: 60,
			Keep:        5,
		},
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMs: 1000,
		},
		Export: ExportConfig{
			OpusBitrate: 128000,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "stderr",
			FilePath: filepath.Join(dir, "scribl.log"),
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ScriblDir(), "config.toml")
}

// ScriblDir returns the base scribl data directory, honoring the
// SCRIBL_DATA_DIR environment override.
func ScriblDir() string {
	if envDir := os.Getenv("SCRIBL_DATA_DIR"); envDir != "" {
		return envDir
	}
	if cfgDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(cfgDir, "scribl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".scribl")
}

// Load reads configuration from the specified path. If the file doesn't
// exist, it returns the default configuration. TOML, JSON, and YAML formats
// are supported, chosen by file extension.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	}

	if err := cfg.migrate(); err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// ApplyEnvOverrides applies SCRIBL_* environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SCRIBL_LIBRARY_PATH"); v != "" {
		c.Storage.LibraryPath = v
	}
	if v := os.Getenv("SCRIBL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SCRIBL_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("SCRIBL_INPUT_DEVICE"); v != "" {
		c.Audio.InputDevice = v
	}
}

// EnsureDirectories creates the directories the application writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Storage.LibraryPath),
		filepath.Dir(c.Logging.FilePath),
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}
