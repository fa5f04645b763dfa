package engine

import (
	"encoding/json"
	"testing"

	"github.com/meshforge/forgectl/internal/config"
	"github.com/meshforge/forgectl/internal/pipeline/types"
)

func testDocument() *config.Document {
	doc := &config.Document{
		Engine: config.EngineConfig{
			SourceRoot: "src",
			Manifest:   "src/engine.txt",
		},
		Output: config.OutputConfig{
			Path:    "build/output/forge.min.js",
			Wrapper: "build/wrapper.txt",
		},
	}
	doc.SetDefaults()
	return doc
}

func TestBuildPipelineSpecOrder(t *testing.T) {
	doc := testDocument()
	doc.Shaders.Dir = "src/shaders"
	doc.Shaders.Out = "src/graphics/shaderchunks.js"

	spec, err := NewExecutor(0).BuildPipelineSpec(doc)
	if err != nil {
		t.Fatal(err)
	}

	want := []types.StepType{
		types.TypeShaders,
		types.TypeStage,
		types.TypeCompile,
		types.TypeStamp,
	}
	if len(spec.Steps) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(spec.Steps))
	}
	for i, typ := range want {
		if spec.Steps[i].Type != typ {
			t.Fatalf("step %d: expected type %q, got %q", i, typ, spec.Steps[i].Type)
		}
	}
}

func TestBuildPipelineSpecSkipsShadersWhenUnconfigured(t *testing.T) {
	spec, err := NewExecutor(0).BuildPipelineSpec(testDocument())
	if err != nil {
		t.Fatal(err)
	}

	if len(spec.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(spec.Steps))
	}
	if spec.Steps[0].Type != types.TypeStage {
		t.Fatalf("expected the stage step first, got %q", spec.Steps[0].Type)
	}
}

func TestBuildPipelineSpecSourceMapWiring(t *testing.T) {
	doc := testDocument()
	doc.Build.SourceMap = true

	spec, err := NewExecutor(4).BuildPipelineSpec(doc)
	if err != nil {
		t.Fatal(err)
	}

	var stage types.StageWith
	if err := json.Unmarshal(spec.Steps[0].With, &stage); err != nil {
		t.Fatal(err)
	}
	if !stage.SourceMap {
		t.Fatal("staging must run in verbatim mode for source-mapped builds")
	}
	if stage.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", stage.Workers)
	}

	var compile types.CompileWith
	if err := json.Unmarshal(spec.Steps[1].With, &compile); err != nil {
		t.Fatal(err)
	}
	if !compile.SourceMap {
		t.Fatal("compile step must request a source map")
	}
	if compile.StagingRoot != doc.Staging.Root || compile.SourceRoot != doc.Engine.SourceRoot {
		t.Fatal("compile step missing path remapping roots")
	}

	var stamp types.StampWith
	if err := json.Unmarshal(spec.Steps[2].With, &stamp); err != nil {
		t.Fatal(err)
	}
	if !stamp.Append {
		t.Fatal("source-mapped builds must append the banner")
	}
}

func TestBuildPipelineSpecVerbose(t *testing.T) {
	doc := testDocument()
	doc.Optimizer.Verbose = true

	spec, err := NewExecutor(0).BuildPipelineSpec(doc)
	if err != nil {
		t.Fatal(err)
	}

	var compile types.CompileWith
	if err := json.Unmarshal(spec.Steps[1].With, &compile); err != nil {
		t.Fatal(err)
	}
	if !compile.Verbose {
		t.Fatal("optimizer.verbose not carried into the compile step")
	}
}

func TestBuildPipelineSpecDefaults(t *testing.T) {
	doc := testDocument()

	spec, err := NewExecutor(0).BuildPipelineSpec(doc)
	if err != nil {
		t.Fatal(err)
	}

	var compile types.CompileWith
	if err := json.Unmarshal(spec.Steps[1].With, &compile); err != nil {
		t.Fatal(err)
	}
	if compile.Engine != "closure" || compile.Level != "advanced" {
		t.Fatalf("unexpected optimizer defaults: %s/%s", compile.Engine, compile.Level)
	}
	if !compile.ManageDeps {
		t.Fatal("dependency management must default to on")
	}

	var stamp types.StampWith
	if err := json.Unmarshal(spec.Steps[2].With, &stamp); err != nil {
		t.Fatal(err)
	}
	if stamp.EngineName != "MeshForge Engine" || stamp.VersionFile != "VERSION" {
		t.Fatalf("unexpected stamp defaults: %s/%s", stamp.EngineName, stamp.VersionFile)
	}
}
