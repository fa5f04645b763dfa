package chunks

import (
	"context"
	"encoding/json"

	"github.com/krateoplatformops/provider-runtime/pkg/logging"

	"github.com/meshforge/forgectl/internal/pipeline/steps"
	"github.com/meshforge/forgectl/internal/pipeline/types"
	"github.com/meshforge/forgectl/internal/shaders"
)

var _ steps.Handler[*steps.ShadersResult] = (*chunksStepHandler)(nil)

// ChunksHandler aggregates the shader asset directory into the generated
// chunk module before any source is staged, so the manifest can reference it.
func ChunksHandler(logr logging.Logger) steps.Handler[*steps.ShadersResult] {
	return &chunksStepHandler{logr: logr}
}

type chunksStepHandler struct {
	logr logging.Logger
}

func (r *chunksStepHandler) Handle(ctx context.Context, id string, with json.RawMessage) (*steps.ShadersResult, error) {
	var cfg types.ShadersWith
	if err := steps.Decode(id, with, &cfg); err != nil {
		return nil, err
	}

	count, err := shaders.Generate(cfg.Dir, cfg.Out)
	if err != nil {
		return nil, err
	}

	r.logr.Debug("shader chunks generated", "count", count, "out", cfg.Out)

	return &steps.ShadersResult{Chunks: count, Out: cfg.Out}, nil
}
