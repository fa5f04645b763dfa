package compile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/krateoplatformops/provider-runtime/pkg/logging"

	"github.com/meshforge/forgectl/internal/cache"
	"github.com/meshforge/forgectl/internal/optimizer"
	"github.com/meshforge/forgectl/internal/optimizer/diag"
	"github.com/meshforge/forgectl/internal/pipeline/steps"
	"github.com/meshforge/forgectl/internal/pipeline/types"
)

var _ steps.Handler[*steps.CompileResult] = (*compileStepHandler)(nil)

// CompileHandler drives the optimizer engine exactly once over the staged
// input set published by the stage step.
func CompileHandler(engines map[string]optimizer.Engine, env *cache.Cache[string, string], logr logging.Logger) steps.Handler[*steps.CompileResult] {
	return &compileStepHandler{engines: engines, env: env, logr: logr}
}

type compileStepHandler struct {
	engines map[string]optimizer.Engine
	env     *cache.Cache[string, string]
	logr    logging.Logger
}

func (r *compileStepHandler) Handle(ctx context.Context, id string, with json.RawMessage) (*steps.CompileResult, error) {
	var cfg types.CompileWith
	if err := steps.Decode(id, with, &cfg); err != nil {
		return nil, err
	}

	engine, ok := r.engines[cfg.Engine]
	if !ok {
		return nil, fmt.Errorf("step %s: no optimizer engine registered for %q", id, cfg.Engine)
	}

	raw, ok := r.env.Get(steps.EnvStagedFiles)
	if !ok {
		return nil, fmt.Errorf("step %s: no staged file set; the stage step must run first", id)
	}
	var inputs []string
	if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
		return nil, fmt.Errorf("step %s: corrupt staged file set: %w", id, err)
	}

	level, err := optimizer.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0755); err != nil {
		return nil, fmt.Errorf("step %s: cannot create output directory: %w", id, err)
	}

	ocfg := optimizer.Config{
		Inputs:      inputs,
		Level:       level,
		LanguageIn:  cfg.LanguageIn,
		OutputPath:  cfg.OutputPath,
		WrapperFile: cfg.WrapperFile,
		ManageDeps:  cfg.ManageDeps,
		Suppress:    cfg.Suppress,
		ExternsFile: cfg.ExternsFile,
		Verbose:     cfg.Verbose,
		// The lowest level keeps the output readable.
		PrettyPrint: level == optimizer.LevelWhitespace,
	}

	mapFile := ""
	if cfg.SourceMap {
		mapFile = cfg.OutputPath + ".map"
		ocfg.SourceMap = &optimizer.SourceMap{
			Path:           mapFile,
			StagedPrefix:   cfg.StagingRoot,
			SourcePrefix:   cfg.SourceRoot,
			IncludeContent: true,
		}
	}

	r.logr.Debug("invoking optimizer",
		"engine", engine.Name(),
		"level", level.String(),
		"inputs", len(inputs),
		"digest", ocfg.InputsDigest(),
	)

	res, err := engine.Optimize(ctx, ocfg)

	// The full diagnostic set is persisted even when the run failed, so a
	// broken build leaves something to inspect.
	reportPath := diag.ReportPath(cfg.OutputPath)
	if werr := diag.WriteReport(reportPath, res.Diagnostics); werr != nil {
		r.logr.Info("could not write diagnostics report", "error", werr.Error())
	}

	if err != nil {
		return nil, err
	}

	warnings, ferr := diag.Filter(res.Diagnostics, cfg.DiagQuery)
	if ferr != nil {
		return nil, ferr
	}
	for _, w := range warnings {
		r.logr.Info("optimizer warning", "file", w.File, "line", w.Line, "text", w.Text)
	}
	if len(res.Diagnostics) > 0 {
		r.logr.Info("optimizer diagnostics recorded", "count", len(res.Diagnostics), "report", filepath.Base(reportPath))
	}

	return &steps.CompileResult{
		Engine:       engine.Name(),
		Artifact:     cfg.OutputPath,
		MapFile:      mapFile,
		Warnings:     len(warnings),
		InputsDigest: ocfg.InputsDigest(),
	}, nil
}
