package config

import (
	"fmt"
	"strconv"

	"github.com/krateoplatformops/plumbing/maps"
	"gopkg.in/yaml.v3"
)

// Config represents the fully loaded forge configuration.
type Config struct {
	data map[string]interface{}
	doc  *Document
}

// NewConfig creates a new Config from loaded data and applies defaults.
func NewConfig(data map[string]interface{}) (*Config, error) {
	if data == nil {
		data = make(map[string]interface{})
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	doc.SetDefaults()

	return &Config{data: data, doc: doc}, nil
}

// Document returns the typed configuration document backing this Config.
func (c *Config) Document() *Document {
	return c.doc
}

// Raw returns the underlying configuration map.
func (c *Config) Raw() map[string]interface{} {
	return c.data
}

// GetString safely extracts a string value from a nested path.
func (c *Config) GetString(path []string, defaultVal string) string {
	val, ok := c.getAtPath(path)
	if !ok {
		return defaultVal
	}
	if sVal, ok := val.(string); ok {
		return sVal
	}
	return defaultVal
}

// GetBool safely extracts a boolean value from a nested path.
func (c *Config) GetBool(path []string, defaultVal bool) bool {
	val, ok := c.getAtPath(path)
	if !ok {
		return defaultVal
	}
	if bVal, ok := val.(bool); ok {
		return bVal
	}
	return defaultVal
}

// getAtPath navigates nested mappings following a path.
func (c *Config) getAtPath(path []string) (interface{}, bool) {
	if len(path) == 0 {
		return nil, false
	}

	parent := c.data
	if len(path) > 1 {
		res, ok, err := maps.NestedMap(c.data, path[:len(path)-1]...)
		if err != nil || !ok {
			return nil, false
		}
		parent = res
	}

	val, ok := parent[path[len(path)-1]]
	return val, ok
}

// Set stores a value at a nested path, creating intermediate mappings as
// needed, and re-decodes the typed document so both views stay in sync.
func (c *Config) Set(path []string, value interface{}) error {
	if len(path) == 0 {
		return fmt.Errorf("path cannot be empty")
	}

	if err := maps.SetNestedField(c.data, value, path...); err != nil {
		return err
	}

	doc, err := decodeDocument(c.data)
	if err != nil {
		return err
	}
	doc.SetDefaults()
	c.doc = doc

	return nil
}

// normalizeLevel rewrites a numeric optimizer.level (YAML `level: 0`) into
// its string shorthand, so the typed decode and the schema both see the same
// form the CLI accepts.
func normalizeLevel(data map[string]interface{}) {
	opt, ok := data["optimizer"].(map[string]interface{})
	if !ok {
		return
	}
	if n, ok := opt["level"].(int); ok {
		opt["level"] = strconv.Itoa(n)
	}
}

func decodeDocument(data map[string]interface{}) (*Document, error) {
	normalizeLevel(data)

	body, err := yaml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config data: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode config document: %w", err)
	}

	return &doc, nil
}
