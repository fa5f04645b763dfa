package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meshforge/forgectl/internal/optimizer"
	"github.com/meshforge/forgectl/internal/pipeline/steps"
	"github.com/meshforge/forgectl/internal/pipeline/types"
)

// concatEngine stands in for a real optimizer: it concatenates the staged
// inputs into the output file and records how it was called.
type concatEngine struct {
	calls  int
	inputs []string
}

func (e *concatEngine) Name() string { return "concat" }

func (e *concatEngine) Optimize(_ context.Context, cfg optimizer.Config) (optimizer.Result, error) {
	e.calls++
	e.inputs = cfg.Inputs

	var sb strings.Builder
	for _, in := range cfg.Inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return optimizer.Result{ExitCode: 1}, err
		}
		sb.Write(data)
	}

	if err := os.WriteFile(cfg.OutputPath, []byte(sb.String()), 0644); err != nil {
		return optimizer.Result{ExitCode: 1}, err
	}

	return optimizer.Result{}, nil
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}

	return data
}

func TestPipelineRunAll(t *testing.T) {
	root := t.TempDir()
	srcRoot := filepath.Join(root, "src")
	if err := os.MkdirAll(filepath.Join(srcRoot, "shaders"), 0755); err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		"core.js": "var engine = { version: \"__CURRENT_SDK_VERSION__\" };\n",
		"math.js": "function add(a, b) { return a + b; }\n",
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(srcRoot, name), []byte(src), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(srcRoot, "shaders", "basic.vert"), []byte("void main() {}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	manifestPath := filepath.Join(root, "engine.txt")
	if err := os.WriteFile(manifestPath, []byte("core.js\nmath.js\n"), 0644); err != nil {
		t.Fatal(err)
	}

	versionPath := filepath.Join(root, "VERSION")
	if err := os.WriteFile(versionPath, []byte("2.1.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	stagingRoot := filepath.Join(root, ".staging")
	outPath := filepath.Join(root, "forge.min.js")

	engine := &concatEngine{}

	pip, err := New(Opts{Engines: map[string]optimizer.Engine{"concat": engine}})
	if err != nil {
		t.Fatal(err)
	}

	spec := &types.PipelineSpec{
		Steps: []*types.Step{
			{
				ID:   "shaders",
				Type: types.TypeShaders,
				With: mustMarshal(t, types.ShadersWith{
					Dir: filepath.Join(srcRoot, "shaders"),
					Out: filepath.Join(srcRoot, "shaderchunks.js"),
				}),
			},
			{
				ID:   "stage",
				Type: types.TypeStage,
				With: mustMarshal(t, types.StageWith{
					Manifest:    manifestPath,
					SourceRoot:  srcRoot,
					StagingRoot: stagingRoot,
				}),
			},
			{
				ID:   "compile",
				Type: types.TypeCompile,
				With: mustMarshal(t, types.CompileWith{
					Engine:     "concat",
					Level:      "advanced",
					OutputPath: outPath,
				}),
			},
			{
				ID:   "stamp",
				Type: types.TypeStamp,
				With: mustMarshal(t, types.StampWith{
					Artifact:    outPath,
					EngineName:  "MeshForge Engine",
					VersionFile: versionPath,
					SourceRoot:  srcRoot,
				}),
			},
		},
	}

	results := pip.Run(context.TODO(), spec)
	if err := Err(results); err != nil {
		t.Fatal(err)
	}
	if len(results) != len(spec.Steps) {
		t.Fatalf("expected %d results, got %d", len(spec.Steps), len(results))
	}
	for i, x := range spec.Steps {
		if results[i].ID() != x.ID {
			t.Fatalf("result %d: expected id %q, got %q", i, x.ID, results[i].ID())
		}
		if results[i].Digest() == "" {
			t.Fatalf("result %d: expected a digest", i)
		}
	}

	if engine.calls != 1 {
		t.Fatalf("expected one optimizer invocation, got %d", engine.calls)
	}
	if len(engine.inputs) != 2 {
		t.Fatalf("expected 2 staged inputs, got %d", len(engine.inputs))
	}
	for _, in := range engine.inputs {
		if !strings.HasPrefix(in, stagingRoot) {
			t.Fatalf("input %q not under staging root", in)
		}
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.HasPrefix(got, "// MeshForge Engine v2.1.0") {
		t.Fatalf("artifact missing banner:\n%s", got)
	}
	if strings.Contains(got, "__CURRENT_SDK_VERSION__") {
		t.Fatal("version placeholder not substituted")
	}
	if !strings.Contains(got, "\"2.1.0\"") {
		t.Fatal("resolved version not stamped into artifact")
	}

	res, ok := results[1].Result().(*steps.StageResult)
	if !ok {
		t.Fatalf("unexpected stage result type: %T", results[1].Result())
	}
	if len(res.Staged) != 2 {
		t.Fatalf("expected 2 staged entries, got %d", len(res.Staged))
	}
}

func TestPipelineAbortsOnFirstError(t *testing.T) {
	root := t.TempDir()
	srcRoot := filepath.Join(root, "src")
	if err := os.MkdirAll(srcRoot, 0755); err != nil {
		t.Fatal(err)
	}

	manifestPath := filepath.Join(root, "engine.txt")
	if err := os.WriteFile(manifestPath, []byte("missing.js\n"), 0644); err != nil {
		t.Fatal(err)
	}

	engine := &concatEngine{}

	pip, err := New(Opts{Engines: map[string]optimizer.Engine{"concat": engine}})
	if err != nil {
		t.Fatal(err)
	}

	spec := &types.PipelineSpec{
		Steps: []*types.Step{
			{
				ID:   "stage",
				Type: types.TypeStage,
				With: mustMarshal(t, types.StageWith{
					Manifest:    manifestPath,
					SourceRoot:  srcRoot,
					StagingRoot: filepath.Join(root, ".staging"),
				}),
			},
			{
				ID:   "compile",
				Type: types.TypeCompile,
				With: mustMarshal(t, types.CompileWith{
					Engine:     "concat",
					Level:      "simple",
					OutputPath: filepath.Join(root, "out.js"),
				}),
			},
		},
	}

	results := pip.Run(context.TODO(), spec)
	if results[0].Err() == nil {
		t.Fatal("expected the stage step to fail")
	}
	if results[1].Err() != nil || results[1].ID() != "" {
		t.Fatal("expected the compile step to be skipped")
	}
	if engine.calls != 0 {
		t.Fatalf("optimizer must not run after a staging failure, got %d calls", engine.calls)
	}

	err = Err(results)
	if err == nil || !strings.Contains(err.Error(), "stage:") {
		t.Fatalf("expected a qualified step error, got %v", err)
	}
}

func TestPipelineUnknownStepType(t *testing.T) {
	pip, err := New(Opts{Engines: map[string]optimizer.Engine{"concat": &concatEngine{}}})
	if err != nil {
		t.Fatal(err)
	}

	spec := &types.PipelineSpec{
		Steps: []*types.Step{
			{ID: "mystery", Type: types.StepType("transmogrify")},
		},
	}

	results := pip.Run(context.TODO(), spec)
	if results[0].Err() == nil {
		t.Fatal("expected an error for an unknown step type")
	}
}

func TestPipelineRequiresEngines(t *testing.T) {
	if _, err := New(Opts{}); err == nil {
		t.Fatal("expected an error when no engines are registered")
	}
}
