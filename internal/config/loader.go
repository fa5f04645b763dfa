package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// ConfigPath is the path to the main forge.yaml
	ConfigPath string
	// OverridesPath is the path to forge-overrides.yaml (optional)
	OverridesPath string
}

// Loader handles loading configuration from files.
type Loader struct {
	opts LoadOptions
}

// NewLoader creates a new configuration loader.
func NewLoader(opts LoadOptions) *Loader {
	return &Loader{opts: opts}
}

// Load reads and parses configuration from forge.yaml and optional overrides.
// Returns a map[string]interface{} representing the merged configuration.
func (l *Loader) Load() (map[string]interface{}, error) {
	config, err := l.loadFile(l.opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", l.opts.ConfigPath, err)
	}

	// Merge user overrides if the file exists.
	if l.opts.OverridesPath != "" {
		if _, err := os.Stat(l.opts.OverridesPath); err == nil {
			overrides, err := l.loadFile(l.opts.OverridesPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load overrides from %s: %w", l.opts.OverridesPath, err)
			}
			config = mergeConfigs(config, overrides)
		}
	}

	return config, nil
}

// loadFile reads and parses a YAML file into a map.
func (l *Loader) loadFile(path string) (map[string]interface{}, error) {
	if path == "" {
		return make(map[string]interface{}), nil
	}

	if !filepath.IsAbs(path) {
		var err error
		path, err = filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML from %s: %w", path, err)
	}

	return data, nil
}

// mergeConfigs recursively merges override config into base config.
// Mappings merge key by key; anything else in the override wins.
func mergeConfigs(base, overrides map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base))
	for k, v := range base {
		out[k] = v
	}

	for k, v := range overrides {
		if existing, ok := out[k]; ok {
			existingMap, okBase := existing.(map[string]interface{})
			overrideMap, okOver := v.(map[string]interface{})
			if okBase && okOver {
				out[k] = mergeConfigs(existingMap, overrideMap)
				continue
			}
		}
		out[k] = v
	}

	return out
}
