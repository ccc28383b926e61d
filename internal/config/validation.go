package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("session: %w", err))
	}
	if c.Audio.GateThreshold < 0 || c.Audio.GateThreshold > 1 {
		errs = append(errs, fmt.Errorf("audio: gate threshold %v outside [0, 1]", c.Audio.GateThreshold))
	}
	if c.Storage.LibraryPath == "" {
		errs = append(errs, errors.New("storage: library path is empty"))
	}
	if c.Storage.BusyTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("storage: negative busy timeout %d", c.Storage.BusyTimeoutMs))
	}
	if c.Autosave.Enabled && c.Autosave.IntervalSec <= 0 {
		errs = append(errs, fmt.Errorf("autosave: interval %d must be positive", c.Autosave.IntervalSec))
	}
	if c.Autosave.Keep < 0 {
		errs = append(errs, fmt.Errorf("autosave: negative keep count %d", c.Autosave.Keep))
	}
	if c.Watch.Enabled && c.Watch.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("watch: negative debounce %d", c.Watch.DebounceMs))
	}
	if c.Export.OpusBitrate <= 0 {
		errs = append(errs, fmt.Errorf("export: opus bitrate %d must be positive", c.Export.OpusBitrate))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown format %q", c.Logging.Format))
	}
	switch c.Logging.Output {
	case "stdout", "stderr", "file":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown output %q", c.Logging.Output))
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		errs = append(errs, errors.New("logging: file output with empty file path"))
	}

	return errors.Join(errs...)
}
