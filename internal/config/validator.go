package config

import (
	"fmt"

	"github.com/meshforge/forgectl/internal/optimizer"
	"github.com/meshforge/forgectl/internal/util/jsonschema"
)

// Validator performs validation on the configuration.
type Validator struct {
	config *Config
}

// NewValidator creates a new configuration validator.
func NewValidator(config *Config) *Validator {
	return &Validator{config: config}
}

// Validate checks the configuration against the embedded schema and then
// applies the semantic rules the schema cannot express. Returns an error if
// validation fails, nil otherwise.
func (v *Validator) Validate() error {
	if err := jsonschema.ValidateConfig(v.config.Raw()); err != nil {
		return err
	}

	doc := v.config.Document()
	if err := v.validateEngine(&doc.Engine); err != nil {
		return err
	}
	if err := v.validateOutput(&doc.Output); err != nil {
		return err
	}
	if err := v.validateOptimizer(&doc.Optimizer); err != nil {
		return err
	}
	if err := v.validateShaders(&doc.Shaders); err != nil {
		return err
	}

	return nil
}

func (v *Validator) validateEngine(e *EngineConfig) error {
	if e.SourceRoot == "" {
		return fmt.Errorf("engine.sourceRoot is required")
	}
	if e.Manifest == "" {
		return fmt.Errorf("engine.manifest is required")
	}
	return nil
}

func (v *Validator) validateOutput(o *OutputConfig) error {
	if o.Path == "" {
		return fmt.Errorf("output.path is required")
	}
	return nil
}

func (v *Validator) validateOptimizer(o *OptimizerConfig) error {
	if _, err := optimizer.ParseLevel(o.Level); err != nil {
		return err
	}

	switch o.Engine {
	case "closure":
		if len(o.Command) == 0 {
			return fmt.Errorf("optimizer.command is required for the closure engine")
		}
	case "esbuild":
		// In-process; no command.
	default:
		return fmt.Errorf("unknown optimizer engine %q (expected: closure|esbuild)", o.Engine)
	}

	return nil
}

func (v *Validator) validateShaders(s *ShadersConfig) error {
	// Shader aggregation is optional, but when a directory is configured the
	// generated module needs somewhere to go.
	if s.Dir != "" && s.Out == "" {
		return fmt.Errorf("shaders.out is required when shaders.dir is set")
	}
	return nil
}
