package steps

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler executes one pipeline step type.
type Handler[T any] interface {
	Handle(ctx context.Context, id string, with json.RawMessage) (T, error)
}

// Decode unmarshals a step payload, naming the step on failure.
func Decode[T any](id string, with json.RawMessage, into *T) error {
	if len(with) == 0 {
		return fmt.Errorf("step %s has no configuration", id)
	}
	if err := json.Unmarshal(with, into); err != nil {
		return fmt.Errorf("step %s: invalid configuration: %w", id, err)
	}
	return nil
}

// Env keys shared between step handlers through the pipeline cache.
const (
	EnvStagedFiles = "staged.files"
	EnvVersion     = "build.version"
	EnvRevision    = "build.revision"
)
