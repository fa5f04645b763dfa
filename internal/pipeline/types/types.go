package types

import (
	"encoding/json"
	"strconv"

	"github.com/twmb/murmur3"
)

type StepType string

const (
	TypeShaders StepType = "shaders"
	TypeStage   StepType = "stage"
	TypeCompile StepType = "compile"
	TypeStamp   StepType = "stamp"
)

// Step is one unit of the build pipeline. With carries the step's
// configuration payload; handlers decode it themselves.
type Step struct {
	ID   string          `json:"id"`
	Type StepType        `json:"type"`
	With json.RawMessage `json:"with,omitempty"`
}

// Digest is a short stable fingerprint of the step configuration, shown in
// the build summary so identical runs are recognizable.
func (s *Step) Digest() string {
	if len(s.With) == 0 {
		return ""
	}

	hasher := murmur3.New64()
	hasher.Write(s.With)

	return strconv.FormatUint(hasher.Sum64(), 16)
}

// PipelineSpec is the ordered step sequence of one build run.
type PipelineSpec struct {
	Steps []*Step `json:"steps,omitempty"`
}

// ShadersWith configures the shader aggregation step.
type ShadersWith struct {
	Dir string `json:"dir"`
	Out string `json:"out"`
}

// StageWith configures the manifest staging step.
type StageWith struct {
	Manifest    string   `json:"manifest"`
	SourceRoot  string   `json:"sourceRoot"`
	StagingRoot string   `json:"stagingRoot"`
	Debug       bool     `json:"debug,omitempty"`
	Profiler    bool     `json:"profiler,omitempty"`
	SourceMap   bool     `json:"sourceMap,omitempty"`
	Switches    []string `json:"switches,omitempty"`
	DefinesFile string   `json:"definesFile,omitempty"`
	Workers     int      `json:"workers,omitempty"`
}

// CompileWith configures the optimizer invocation step.
type CompileWith struct {
	Engine      string   `json:"engine"`
	Level       string   `json:"level"`
	LanguageIn  string   `json:"languageIn,omitempty"`
	OutputPath  string   `json:"outputPath"`
	WrapperFile string   `json:"wrapperFile,omitempty"`
	ManageDeps  bool     `json:"manageDeps,omitempty"`
	Suppress    []string `json:"suppress,omitempty"`
	ExternsFile string   `json:"externsFile,omitempty"`
	Verbose     bool     `json:"verbose,omitempty"`
	// SourceMap, when set, requests a map beside the artifact with staged
	// paths rewritten back under the source root.
	SourceMap   bool   `json:"sourceMap,omitempty"`
	StagingRoot string `json:"stagingRoot,omitempty"`
	SourceRoot  string `json:"sourceRoot,omitempty"`
	DiagQuery   string `json:"diagQuery,omitempty"`
}

// StampWith configures the artifact stamping step.
type StampWith struct {
	Artifact    string `json:"artifact"`
	EngineName  string `json:"engineName"`
	VersionFile string `json:"versionFile,omitempty"`
	SourceRoot  string `json:"sourceRoot,omitempty"`
	Debug       bool   `json:"debug,omitempty"`
	Profiler    bool   `json:"profiler,omitempty"`
	// Append moves the banner to the end for source-mapped builds.
	Append bool `json:"append,omitempty"`
}
