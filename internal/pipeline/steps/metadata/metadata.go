package metadata

import (
	"context"
	"encoding/json"

	"github.com/krateoplatformops/provider-runtime/pkg/logging"

	"github.com/meshforge/forgectl/internal/cache"
	"github.com/meshforge/forgectl/internal/pipeline/steps"
	"github.com/meshforge/forgectl/internal/pipeline/types"
	"github.com/meshforge/forgectl/internal/stamp"
)

var _ steps.Handler[*steps.StampResult] = (*stampStepHandler)(nil)

// StampHandler resolves build metadata and rewrites the artifact in place:
// banner injection plus placeholder substitution.
func StampHandler(env *cache.Cache[string, string], logr logging.Logger) steps.Handler[*steps.StampResult] {
	return &stampStepHandler{env: env, logr: logr}
}

type stampStepHandler struct {
	env  *cache.Cache[string, string]
	logr logging.Logger
}

func (r *stampStepHandler) Handle(ctx context.Context, id string, with json.RawMessage) (*steps.StampResult, error) {
	var cfg types.StampWith
	if err := steps.Decode(id, with, &cfg); err != nil {
		return nil, err
	}

	meta := stamp.Resolve(ctx, cfg.VersionFile, cfg.SourceRoot)
	r.env.Set(steps.EnvVersion, meta.Version)
	r.env.Set(steps.EnvRevision, meta.Revision)
	r.logr.Debug("build metadata resolved", "version", meta.Version, "revision", meta.Revision)

	err := stamp.Apply(cfg.Artifact, stamp.Options{
		EngineName: cfg.EngineName,
		Meta:       meta,
		Debug:      cfg.Debug,
		Profiler:   cfg.Profiler,
		Append:     cfg.Append,
	})
	if err != nil {
		return nil, err
	}

	return &steps.StampResult{Version: meta.Version, Revision: meta.Revision}, nil
}
