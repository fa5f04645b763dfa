// Package engine turns a resolved configuration document into an executable
// pipeline spec.
package engine

import (
	"encoding/json"
	"fmt"

	"github.com/meshforge/forgectl/internal/config"
	"github.com/meshforge/forgectl/internal/pipeline/types"
)

// Executor builds PipelineSpec from configuration.
type Executor struct {
	workers int
}

// NewExecutor creates a new pipeline executor. A non-positive worker count
// lets the staging step pick its own parallelism.
func NewExecutor(workers int) *Executor {
	return &Executor{workers: workers}
}

// BuildPipelineSpec assembles the build steps in their fixed order:
// shader aggregation (when configured), staging, optimization, stamping.
func (e *Executor) BuildPipelineSpec(doc *config.Document) (*types.PipelineSpec, error) {
	spec := &types.PipelineSpec{
		Steps: make([]*types.Step, 0, 4),
	}

	if doc.Shaders.Dir != "" {
		step, err := e.buildShadersStep(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to build shaders step: %w", err)
		}
		spec.Steps = append(spec.Steps, step)
	}

	stage, err := e.buildStageStep(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build stage step: %w", err)
	}
	spec.Steps = append(spec.Steps, stage)

	compile, err := e.buildCompileStep(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build compile step: %w", err)
	}
	spec.Steps = append(spec.Steps, compile)

	stamp, err := e.buildStampStep(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build stamp step: %w", err)
	}
	spec.Steps = append(spec.Steps, stamp)

	return spec, nil
}

func (e *Executor) buildShadersStep(doc *config.Document) (*types.Step, error) {
	data, err := json.Marshal(types.ShadersWith{
		Dir: doc.Shaders.Dir,
		Out: doc.Shaders.Out,
	})
	if err != nil {
		return nil, err
	}

	return &types.Step{ID: "shaders", Type: types.TypeShaders, With: data}, nil
}

func (e *Executor) buildStageStep(doc *config.Document) (*types.Step, error) {
	data, err := json.Marshal(types.StageWith{
		Manifest:    doc.Engine.Manifest,
		SourceRoot:  doc.Engine.SourceRoot,
		StagingRoot: doc.Staging.Root,
		Debug:       doc.Build.Debug,
		Profiler:    doc.Build.Profiler,
		SourceMap:   doc.Build.SourceMap,
		Switches:    doc.Build.Switches,
		DefinesFile: doc.Build.DefinesFile,
		Workers:     e.workers,
	})
	if err != nil {
		return nil, err
	}

	return &types.Step{ID: "stage", Type: types.TypeStage, With: data}, nil
}

func (e *Executor) buildCompileStep(doc *config.Document) (*types.Step, error) {
	manageDeps := doc.Optimizer.ManageDeps == nil || *doc.Optimizer.ManageDeps

	data, err := json.Marshal(types.CompileWith{
		Engine:      doc.Optimizer.Engine,
		Level:       doc.Optimizer.Level,
		LanguageIn:  doc.Optimizer.LanguageIn,
		OutputPath:  doc.Output.Path,
		WrapperFile: doc.Output.Wrapper,
		ManageDeps:  manageDeps,
		Suppress:    doc.Optimizer.Suppress,
		ExternsFile: doc.Optimizer.Externs,
		Verbose:     doc.Optimizer.Verbose,
		SourceMap:   doc.Build.SourceMap,
		StagingRoot: doc.Staging.Root,
		SourceRoot:  doc.Engine.SourceRoot,
		DiagQuery:   doc.Diagnostics.Query,
	})
	if err != nil {
		return nil, err
	}

	return &types.Step{ID: "compile", Type: types.TypeCompile, With: data}, nil
}

func (e *Executor) buildStampStep(doc *config.Document) (*types.Step, error) {
	data, err := json.Marshal(types.StampWith{
		Artifact:    doc.Output.Path,
		EngineName:  doc.Engine.Name,
		VersionFile: doc.Engine.VersionFile,
		SourceRoot:  doc.Engine.SourceRoot,
		Debug:       doc.Build.Debug,
		Profiler:    doc.Build.Profiler,
		// Source-mapped builds keep line numbers intact, so the banner goes
		// at the end of the artifact.
		Append: doc.Build.SourceMap,
	})
	if err != nil {
		return nil, err
	}

	return &types.Step{ID: "stamp", Type: types.TypeStamp, With: data}, nil
}
