package config

import (
	"fmt"

	"github.com/smazurov/videoloop/internal/logging"
)

// Reloadable is the part of the configuration that can change while the
// pipeline runs.
type Reloadable struct {
	Transform string
	Logging   logging.Config
}

// LoadReloadable reads the runtime-adjustable settings from the TOML file at
// path. Unset keys are left empty so callers can tell "unchanged" apart from
// a new value. Unlike LoadLoggingConfig a parse error is reported, so a
// half-written file never resets running settings.
func LoadReloadable(path string) (Reloadable, error) {
	raw, err := readTOML(path)
	if err != nil {
		return Reloadable{}, err
	}

	r := Reloadable{Logging: logging.Config{Modules: make(map[string]string)}}
	if v, ok := getNestedValue(raw, "stream.transform").(string); ok {
		r.Transform = v
	}

	section, _ := raw["logging"].(map[string]any)
	for key, value := range section {
		s, ok := value.(string)
		if !ok {
			return Reloadable{}, fmt.Errorf("logging.%s: expected string, got %T", key, value)
		}
		switch key {
		case "level":
			r.Logging.Level = s
		case "format":
			r.Logging.Format = s
		default:
			r.Logging.Modules[key] = s
		}
	}
	return r, nil
}

// LoadLoggingConfig loads logging configuration from a TOML config file.
// Returns default config if file doesn't exist or can't be parsed.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	if configPath == "" {
		return cfg
	}

	r, err := LoadReloadable(configPath)
	if err != nil {
		return cfg
	}
	if r.Logging.Level != "" {
		cfg.Level = r.Logging.Level
	}
	if r.Logging.Format != "" {
		cfg.Format = r.Logging.Format
	}
	for module, level := range r.Logging.Modules {
		cfg.Modules[module] = level
	}
	return cfg
}
