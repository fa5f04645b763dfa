// Package jsonschema validates the decoded forge configuration against the
// embedded schema before any semantic checks run.
package jsonschema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed assets/*.json
var assets embed.FS

const schemaName = "forge.schema.json"

// ValidateConfig checks a loaded configuration map against the embedded
// forge.yaml schema.
func ValidateConfig(data map[string]any) error {
	raw, err := assets.ReadFile("assets/" + schemaName)
	if err != nil {
		return fmt.Errorf("embedded schema missing: %w", err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("embedded schema is not valid JSON: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaName, doc); err != nil {
		return fmt.Errorf("failed to register schema: %w", err)
	}
	sch, err := compiler.Compile(schemaName)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	// The validator expects plain JSON values; YAML decoding produces Go
	// ints and typed maps, so round-trip through JSON first.
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return err
	}

	if err := sch.Validate(instance); err != nil {
		return fmt.Errorf("configuration does not match schema: %w", err)
	}

	return nil
}
