package build

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/meshforge/forgectl/internal/optimizer"
	"github.com/meshforge/forgectl/internal/pipeline"
	"github.com/meshforge/forgectl/internal/pipeline/types"
	"github.com/meshforge/forgectl/internal/subcommands"
)

type fakeRunner struct {
	calls int
	spec  *types.PipelineSpec
}

func (r *fakeRunner) Run(_ context.Context, spec *types.PipelineSpec) []pipeline.StepResult[any] {
	r.calls++
	r.spec = spec
	return nil
}

func writeProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)

	srcRoot := filepath.Join(dir, "src")
	if err := os.MkdirAll(srcRoot, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcRoot, "core.js"), []byte("var x = 1;\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcRoot, "engine.txt"), []byte("core.js\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := fmt.Sprintf(`
engine:
  sourceRoot: %s
  manifest: %s
output:
  path: %s
optimizer:
  engine: esbuild
staging:
  root: %s
`,
		srcRoot,
		filepath.Join(srcRoot, "engine.txt"),
		filepath.Join(dir, "forge.min.js"),
		filepath.Join(dir, ".staging"),
	)
	if err := os.WriteFile(filepath.Join(dir, "forge.yaml"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	return dir
}

func unmarshalWith(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}

func runBuild(t *testing.T, cmd *buildCmd, args ...string) subcommands.ExitStatus {
	t.Helper()

	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	cmd.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}

	return cmd.Execute(context.TODO(), fs)
}

func TestBuildRejectsBadLevelBeforeAnyWork(t *testing.T) {
	runner := &fakeRunner{}
	cmd := &buildCmd{
		pipelineFactory: func(pipeline.Opts) (pipelineRunner, error) { return runner, nil },
	}

	// No config file exists; a bad level must fail before it is even read.
	if got := runBuild(t, cmd, "-O", "5"); got != subcommands.ExitFailure {
		t.Fatalf("expected exit %d, got %d", subcommands.ExitFailure, got)
	}
	if runner.calls != 0 {
		t.Fatal("pipeline must not run with an invalid optimization level")
	}
}

func TestBuildRunsPipeline(t *testing.T) {
	writeProject(t)

	runner := &fakeRunner{}
	cmd := &buildCmd{
		pipelineFactory: func(pipeline.Opts) (pipelineRunner, error) { return runner, nil },
	}

	if got := runBuild(t, cmd); got != subcommands.ExitSuccess {
		t.Fatalf("expected exit %d, got %d", subcommands.ExitSuccess, got)
	}
	if runner.calls != 1 {
		t.Fatalf("expected one pipeline run, got %d", runner.calls)
	}
	// No shaders configured: stage, compile, stamp.
	if len(runner.spec.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(runner.spec.Steps))
	}
}

func TestBuildFlagOverrides(t *testing.T) {
	writeProject(t)

	runner := &fakeRunner{}
	cmd := &buildCmd{
		pipelineFactory: func(pipeline.Opts) (pipelineRunner, error) { return runner, nil },
	}

	got := runBuild(t, cmd, "-debug", "-O", "whitespace", "-D", "EXPERIMENTAL", "-D", "EXTRA")
	if got != subcommands.ExitSuccess {
		t.Fatalf("expected exit %d, got %d", subcommands.ExitSuccess, got)
	}

	var stage types.StageWith
	if err := unmarshalWith(runner.spec.Steps[0].With, &stage); err != nil {
		t.Fatal(err)
	}
	if !stage.Debug {
		t.Fatal("-debug flag not applied")
	}
	if len(stage.Switches) != 2 || stage.Switches[0] != "EXPERIMENTAL" {
		t.Fatalf("unexpected switches: %v", stage.Switches)
	}

	var compile types.CompileWith
	if err := unmarshalWith(runner.spec.Steps[1].With, &compile); err != nil {
		t.Fatal(err)
	}
	if compile.Level != "whitespace" {
		t.Fatalf("expected level whitespace, got %q", compile.Level)
	}
}

func TestBuildPropagatesOptimizerExitCode(t *testing.T) {
	dir := writeProject(t)

	stagingRoot := filepath.Join(dir, ".staging")
	if err := os.MkdirAll(stagingRoot, 0755); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{}
	cmd := &buildCmd{
		pipelineFactory: func(pipeline.Opts) (pipelineRunner, error) { return runner, nil },
		errEvaluator: func([]pipeline.StepResult[any]) error {
			return fmt.Errorf("compile: %w", &optimizer.ExitError{Engine: "closure", Code: 3})
		},
	}

	if got := runBuild(t, cmd); got != subcommands.ExitStatus(3) {
		t.Fatalf("expected the optimizer exit code 3, got %d", got)
	}

	// keepOnFailure defaults to true.
	if _, err := os.Stat(stagingRoot); err != nil {
		t.Fatal("staging tree must survive a failed build by default")
	}
}

func TestBuildRemovesStagingOnConfiguredFailure(t *testing.T) {
	dir := writeProject(t)

	cfgPath := filepath.Join(dir, "forge.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	data = append(data, []byte("  keepOnFailure: false\n")...)
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	stagingRoot := filepath.Join(dir, ".staging")
	if err := os.MkdirAll(stagingRoot, 0755); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{}
	cmd := &buildCmd{
		pipelineFactory: func(pipeline.Opts) (pipelineRunner, error) { return runner, nil },
		errEvaluator: func([]pipeline.StepResult[any]) error {
			return fmt.Errorf("stage: boom")
		},
	}

	if got := runBuild(t, cmd); got != subcommands.ExitFailure {
		t.Fatalf("expected exit %d, got %d", subcommands.ExitFailure, got)
	}
	if _, err := os.Stat(stagingRoot); !os.IsNotExist(err) {
		t.Fatal("staging tree must be removed when keepOnFailure is false")
	}
}
