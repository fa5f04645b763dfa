package config

import (
	"fmt"
	"strings"
)

// Merger applies CLI flags and shortcut flags on top of the loaded config.
type Merger struct {
	config *Config
}

// NewMerger creates a new merger for applying CLI overrides.
func NewMerger(config *Config) *Merger {
	return &Merger{config: config}
}

// ApplyFlags applies CLI flag overrides. Shortcut keys map onto well-known
// config paths; any other key is treated as a dot-separated path
// (e.g. "optimizer.languageIn=ECMASCRIPT6").
func (m *Merger) ApplyFlags(flags map[string]interface{}) error {
	for key, value := range flags {
		switch key {
		case "debug":
			if v, ok := value.(bool); ok && v {
				if err := m.config.Set([]string{"build", "debug"}, true); err != nil {
					return err
				}
			}
		case "profiler":
			if v, ok := value.(bool); ok && v {
				if err := m.config.Set([]string{"build", "profiler"}, true); err != nil {
					return err
				}
			}
		case "sourcemap":
			if v, ok := value.(bool); ok && v {
				if err := m.config.Set([]string{"build", "sourceMap"}, true); err != nil {
					return err
				}
			}
		case "output":
			if v, ok := value.(string); ok && v != "" {
				if err := m.config.Set([]string{"output", "path"}, v); err != nil {
					return err
				}
			}
		case "level":
			if v, ok := value.(string); ok && v != "" {
				if err := m.config.Set([]string{"optimizer", "level"}, v); err != nil {
					return err
				}
			}
		case "engine":
			if v, ok := value.(string); ok && v != "" {
				if err := m.config.Set([]string{"optimizer", "engine"}, v); err != nil {
					return err
				}
			}
		case "defines":
			if v, ok := value.(string); ok && v != "" {
				if err := m.config.Set([]string{"build", "definesFile"}, v); err != nil {
					return err
				}
			}
		case "switches":
			if v, ok := value.([]string); ok && len(v) > 0 {
				// Nested-field helpers expect plain JSON values.
				generic := make([]interface{}, len(v))
				for i, x := range v {
					generic[i] = x
				}
				if err := m.config.Set([]string{"build", "switches"}, generic); err != nil {
					return err
				}
			}
		default:
			if err := m.setPath(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// setPath sets a value at a dot-separated key path.
func (m *Merger) setPath(path string, value interface{}) error {
	parts := strings.Split(path, ".")
	if len(parts) == 0 || parts[0] == "" {
		return fmt.Errorf("invalid path: %s", path)
	}

	return m.config.Set(parts, value)
}
