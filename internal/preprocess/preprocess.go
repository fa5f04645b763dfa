// Package preprocess applies conditional-compilation directives to every
// manifest entry and writes the transformed copies into the staging tree.
package preprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/krateoplatformops/provider-runtime/pkg/logging"
	"github.com/magiconair/properties"

	"github.com/meshforge/forgectl/internal/staging"
)

// Error reports a manifest entry that could not be read, evaluated, or
// written to the staging tree.
type Error struct {
	Path string
	Line int // 0 when the failure is not tied to a directive
	Err  error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("preprocess failed on %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("preprocess failed on %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures one staging run.
type Options struct {
	SourceRoot  string
	StagingRoot string
	Switches    Switches
	// SourceMap bypasses directive evaluation and copies sources verbatim:
	// conditional compilation and source maps are mutually exclusive because
	// region removal would invalidate the generated mappings.
	SourceMap bool
	// Workers bounds per-file fan-out; <=1 runs serially. The returned order
	// always equals manifest order regardless of completion order.
	Workers int
	Log     logging.Logger
}

// Run stages every manifest entry and returns the staged paths in manifest
// order. Any stale staging tree is cleared first. The first failing entry
// aborts the run.
func Run(ctx context.Context, entries []string, opts Options) ([]string, error) {
	if opts.Log == nil {
		opts.Log = logging.NewNopLogger()
	}

	if err := staging.Clear(opts.StagingRoot); err != nil {
		return nil, err
	}

	staged := make([]string, len(entries))
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, workers)

	for i, src := range entries {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, src string) {
			defer wg.Done()
			defer func() { <-sem }()

			dst, err := stageOne(src, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
				return
			}
			staged[idx] = dst
		}(i, src)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts.Log.Debug("staged manifest entries", "count", len(staged))
	return staged, nil
}

func stageOne(src string, opts Options) (string, error) {
	dst, err := staging.PathFor(opts.StagingRoot, opts.SourceRoot, src)
	if err != nil {
		return "", &Error{Path: src, Err: err}
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return "", &Error{Path: src, Err: err}
	}

	content := string(data)
	if !opts.SourceMap {
		evaluated, derr := evaluate(content, opts.Switches)
		if derr != nil {
			return "", &Error{Path: src, Line: derr.Line, Err: fmt.Errorf("%s", derr.Reason)}
		}
		content = evaluated
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", &Error{Path: src, Err: err}
	}
	if err := os.WriteFile(dst, []byte(content), 0644); err != nil {
		return "", &Error{Path: src, Err: err}
	}

	return dst, nil
}

// BuildSwitches derives the directive switch set from the build mode flags:
// DEBUG follows debug mode, PROFILER is on for profiler or debug builds.
// Extra names are merged on top.
func BuildSwitches(debug, profiler bool, extra map[string]bool) Switches {
	sw := Switches{
		"DEBUG":    debug,
		"PROFILER": profiler || debug,
	}
	for k, v := range extra {
		sw[k] = v
	}
	return sw
}

// LoadDefines reads extra directive switches from a Java-style properties
// file: every key under the "define." prefix with a boolean value becomes a
// switch (define.WEBGL2=true).
func LoadDefines(path string) (map[string]bool, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("failed to load defines from %s: %w", path, err)
	}

	out := map[string]bool{}
	for k, v := range p.FilterStripPrefix("define.").Map() {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("define %s in %s is not a boolean: %w", k, path, err)
		}
		out[k] = on
	}

	return out, nil
}
