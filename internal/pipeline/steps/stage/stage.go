package stage

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/krateoplatformops/provider-runtime/pkg/logging"

	"github.com/meshforge/forgectl/internal/cache"
	"github.com/meshforge/forgectl/internal/manifest"
	"github.com/meshforge/forgectl/internal/pipeline/steps"
	"github.com/meshforge/forgectl/internal/pipeline/types"
	"github.com/meshforge/forgectl/internal/preprocess"
)

var _ steps.Handler[*steps.StageResult] = (*stageStepHandler)(nil)

// StageHandler loads the manifest and stages every entry through the
// conditional-compilation preprocessor. The staged path list is published to
// the pipeline env for the compile step.
func StageHandler(env *cache.Cache[string, string], logr logging.Logger) steps.Handler[*steps.StageResult] {
	return &stageStepHandler{env: env, logr: logr}
}

type stageStepHandler struct {
	env  *cache.Cache[string, string]
	logr logging.Logger
}

func (r *stageStepHandler) Handle(ctx context.Context, id string, with json.RawMessage) (*steps.StageResult, error) {
	var cfg types.StageWith
	if err := steps.Decode(id, with, &cfg); err != nil {
		return nil, err
	}

	entries, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return nil, err
	}
	// Manifest entries are relative to the source root unless absolute.
	for i, x := range entries {
		if !filepath.IsAbs(x) {
			entries[i] = filepath.Join(cfg.SourceRoot, x)
		}
	}
	r.logr.Debug("manifest loaded", "entries", len(entries))

	extra := map[string]bool{}
	if cfg.DefinesFile != "" {
		defines, err := preprocess.LoadDefines(cfg.DefinesFile)
		if err != nil {
			return nil, err
		}
		extra = defines
	}
	for _, x := range cfg.Switches {
		extra[x] = true
	}

	staged, err := preprocess.Run(ctx, entries, preprocess.Options{
		SourceRoot:  cfg.SourceRoot,
		StagingRoot: cfg.StagingRoot,
		Switches:    preprocess.BuildSwitches(cfg.Debug, cfg.Profiler, extra),
		SourceMap:   cfg.SourceMap,
		Workers:     cfg.Workers,
		Log:         r.logr,
	})
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(staged)
	if err != nil {
		return nil, err
	}
	r.env.Set(steps.EnvStagedFiles, string(encoded))

	return &steps.StageResult{Staged: staged}, nil
}
