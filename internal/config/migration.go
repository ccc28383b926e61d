package config

import "fmt"

// migrate upgrades an older configuration schema in place. Version 1 configs
// predate the denoise setting levels: they carried a boolean-like "off"/"on"
// denoise value, which maps to off/light.
func (c *Config) migrate() error {
	switch {
	case c.Version == Version:
		return nil
	case c.Version > Version:
		return fmt.Errorf("config version %d is newer than supported version %d", c.Version, Version)
	}

	if c.Version <= 1 {
		if c.Session.Denoise == "on" {
			c.Session.Denoise = DenoiseLight
		}
		if !c.Session.Denoise.Valid() {
			c.Session.Denoise = DenoiseOff
		}
	}

	c.Version = Version
	return nil
}
