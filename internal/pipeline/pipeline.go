// Package pipeline executes the build as a strict sequence of fallible
// steps. Each step starts only after the previous one finished; the first
// failure short-circuits the remainder.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/krateoplatformops/provider-runtime/pkg/logging"

	"github.com/meshforge/forgectl/internal/cache"
	"github.com/meshforge/forgectl/internal/optimizer"
	"github.com/meshforge/forgectl/internal/pipeline/steps"
	"github.com/meshforge/forgectl/internal/pipeline/steps/chunks"
	"github.com/meshforge/forgectl/internal/pipeline/steps/compile"
	"github.com/meshforge/forgectl/internal/pipeline/steps/metadata"
	"github.com/meshforge/forgectl/internal/pipeline/steps/stage"
	"github.com/meshforge/forgectl/internal/pipeline/types"
)

type Opts struct {
	Engines map[string]optimizer.Engine
	Log     logging.Logger
}

func New(opts Opts) (*Pipeline, error) {
	if len(opts.Engines) == 0 {
		return nil, fmt.Errorf("at least one optimizer engine must be registered")
	}

	if opts.Log == nil {
		opts.Log = logging.NewNopLogger()
	}

	p := &Pipeline{
		logr: opts.Log,
		env:  cache.New[string, string](),
	}

	p.chunksHandler = chunks.ChunksHandler(opts.Log)
	p.stageHandler = stage.StageHandler(p.env, opts.Log)
	p.compileHandler = compile.CompileHandler(opts.Engines, p.env, opts.Log)
	p.stampHandler = metadata.StampHandler(p.env, opts.Log)

	return p, nil
}

type Pipeline struct {
	logr logging.Logger
	env  *cache.Cache[string, string]

	chunksHandler  steps.Handler[*steps.ShadersResult]
	stageHandler   steps.Handler[*steps.StageResult]
	compileHandler steps.Handler[*steps.CompileResult]
	stampHandler   steps.Handler[*steps.StampResult]
}

// Env exposes the shared step environment. This is primarily for testing.
func (p *Pipeline) Env() *cache.Cache[string, string] {
	return p.env
}

type StepResult[T any] struct {
	id     string
	digest string
	took   time.Duration
	err    error
	res    T
}

func (r *StepResult[T]) ID() string {
	return r.id
}

func (r *StepResult[T]) Digest() string {
	return r.digest
}

func (r *StepResult[T]) Took() time.Duration {
	return r.took
}

func (r *StepResult[T]) Err() error {
	return r.err
}

func (r *StepResult[T]) Result() T {
	return r.res
}

// Err returns the first step failure, qualified with the step id.
func Err[T any](results []StepResult[T]) error {
	for _, x := range results {
		if x.Err() != nil {
			return fmt.Errorf("%s: %w", x.ID(), x.Err())
		}
	}

	return nil
}

// Run executes the spec's steps strictly in order. Results are recorded
// positionally; the first error aborts the remainder.
func (p *Pipeline) Run(ctx context.Context, spec *types.PipelineSpec) (results []StepResult[any]) {
	results = make([]StepResult[any], len(spec.Steps))

	for i, x := range spec.Steps {
		p.logr.Debug(fmt.Sprintf("executing step with id: %s (%v)", x.ID, x.Type))

		results[i] = StepResult[any]{id: x.ID, digest: x.Digest()}
		started := time.Now()

		switch x.Type {
		case types.TypeShaders:
			result, err := p.chunksHandler.Handle(ctx, x.ID, x.With)
			results[i].res = result
			results[i].err = err

		case types.TypeStage:
			result, err := p.stageHandler.Handle(ctx, x.ID, x.With)
			results[i].res = result
			results[i].err = err

		case types.TypeCompile:
			result, err := p.compileHandler.Handle(ctx, x.ID, x.With)
			results[i].res = result
			results[i].err = err

		case types.TypeStamp:
			result, err := p.stampHandler.Handle(ctx, x.ID, x.With)
			results[i].res = result
			results[i].err = err

		default:
			results[i].err = fmt.Errorf("handler for step of type %q not found", x.Type)
		}

		results[i].took = time.Since(started)

		if results[i].err != nil {
			return
		}
	}

	return
}
