// Package optimizer defines the contract between the build pipeline and the
// whole-program JavaScript optimizer that turns the staged file set into the
// final artifact. The optimizer itself is a black box: it receives a
// configuration, runs once, and reports an exit code plus diagnostics.
package optimizer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/twmb/murmur3"
)

// Level is the three-tier optimization scale.
type Level int

const (
	LevelWhitespace Level = iota
	LevelSimple
	LevelAdvanced
)

// ParseLevel accepts either the symbolic names or their numeric shorthands.
// Anything else is a fatal input error.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "whitespace", "0":
		return LevelWhitespace, nil
	case "simple", "1":
		return LevelSimple, nil
	case "advanced", "2":
		return LevelAdvanced, nil
	}
	return 0, fmt.Errorf("unknown optimization level %q (expected: whitespace|simple|advanced or 0|1|2)", s)
}

func (l Level) String() string {
	switch l {
	case LevelWhitespace:
		return "whitespace"
	case LevelSimple:
		return "simple"
	case LevelAdvanced:
		return "advanced"
	}
	return strconv.Itoa(int(l))
}

// SourceMap configures optional source-map emission.
type SourceMap struct {
	// Path of the map file, written beside the artifact.
	Path string
	// StagedPrefix and SourcePrefix define the location rewrite that maps
	// staged paths back to the true source root, so the map references
	// original files.
	StagedPrefix string
	SourcePrefix string
	// IncludeContent embeds the source text in the map.
	IncludeContent bool
}

// Config describes one optimizer invocation.
type Config struct {
	// Inputs is the staged file set, in manifest order. The optimizer's
	// determinism depends on this order.
	Inputs     []string
	Level      Level
	LanguageIn string
	OutputPath string
	// WrapperFile is the output-wrapping template; its placeholder marks
	// where the compiled output is spliced in.
	WrapperFile string
	// ManageDeps enables dependency-aware pruning in the optimizer.
	ManageDeps bool
	// Suppress lists diagnostic categories silenced for this build.
	Suppress []string
	// ExternsFile declares symbols defined outside the compiled set.
	ExternsFile string
	Verbose     bool
	// PrettyPrint requests human-readable formatting; the invoker turns it
	// on automatically at the lowest level.
	PrettyPrint bool
	SourceMap   *SourceMap
}

// InputsDigest is a short stable fingerprint of the ordered input list,
// reported in the build summary.
func (c Config) InputsDigest() string {
	hasher := murmur3.New64()
	for _, x := range c.Inputs {
		hasher.Write([]byte(x))
		hasher.Write([]byte{0})
	}
	return strconv.FormatUint(hasher.Sum64(), 16)
}

// Diagnostic is one structured optimizer message.
type Diagnostic struct {
	Severity string `json:"severity"` // "error" or "warning"
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Text     string `json:"text"`
}

// Result is what an engine reports back. On ExitCode 0 the artifact exists
// at Config.OutputPath.
type Result struct {
	ExitCode    int
	Stderr      string
	Diagnostics []Diagnostic
}

// ExitError is the fatal, non-retried failure of an optimizer run. The
// pipeline terminates with the same exit code; the optimizer's own errors are
// not interpretable by this layer.
type ExitError struct {
	Engine string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s optimizer failed with exit code %d", e.Engine, e.Code)
}

// Engine runs the external optimizer exactly once per build.
type Engine interface {
	Name() string
	Optimize(ctx context.Context, cfg Config) (Result, error)
}
