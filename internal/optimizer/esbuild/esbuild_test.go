package esbuild

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meshforge/forgectl/internal/optimizer"
)

func writeInputs(t *testing.T, dir string, sources ...string) []string {
	t.Helper()

	inputs := make([]string, 0, len(sources))
	for i, src := range sources {
		path := filepath.Join(dir, "in"+string(rune('a'+i))+".js")
		if err := os.WriteFile(path, []byte(src), 0644); err != nil {
			t.Fatal(err)
		}
		inputs = append(inputs, path)
	}
	return inputs
}

func TestOptimizeMinifies(t *testing.T) {
	dir := t.TempDir()
	inputs := writeInputs(t, dir,
		"var  greeting   =  'hello';\n",
		"var  target  =  'world';\nconsole.log(greeting, target);\n",
	)
	out := filepath.Join(dir, "out.min.js")

	res, err := New().Optimize(context.TODO(), optimizer.Config{
		Inputs:     inputs,
		Level:      optimizer.LevelSimple,
		OutputPath: out,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("unexpected exit code %d", res.ExitCode)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if strings.Contains(got, "var  greeting") {
		t.Fatal("whitespace not minified")
	}
	if !strings.Contains(got, "hello") || !strings.Contains(got, "world") {
		t.Fatalf("inputs not concatenated:\n%s", got)
	}
}

func TestOptimizeAppliesWrapper(t *testing.T) {
	dir := t.TempDir()
	inputs := writeInputs(t, dir, "var x = 1;\n")

	wrapper := filepath.Join(dir, "wrapper.txt")
	if err := os.WriteFile(wrapper, []byte("(function(){\n%output%\n})();\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.js")

	_, err := New().Optimize(context.TODO(), optimizer.Config{
		Inputs:      inputs,
		Level:       optimizer.LevelWhitespace,
		OutputPath:  out,
		WrapperFile: wrapper,
		PrettyPrint: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.HasPrefix(got, "(function(){") {
		t.Fatalf("banner missing:\n%s", got)
	}
	if !strings.Contains(got, "})();") {
		t.Fatalf("footer missing:\n%s", got)
	}
}

func TestOptimizeReportsSyntaxErrors(t *testing.T) {
	dir := t.TempDir()
	inputs := writeInputs(t, dir, "function (broken {\n")
	out := filepath.Join(dir, "out.js")

	res, err := New().Optimize(context.TODO(), optimizer.Config{
		Inputs:     inputs,
		Level:      optimizer.LevelSimple,
		OutputPath: out,
	})
	if err == nil {
		t.Fatal("expected a failure for broken input")
	}

	var exit *optimizer.ExitError
	if !errors.As(err, &exit) || exit.Engine != "esbuild" {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", res.ExitCode)
	}
	if len(res.Diagnostics) == 0 {
		t.Fatal("expected diagnostics for broken input")
	}
	if res.Diagnostics[0].Severity != "error" {
		t.Fatalf("expected an error diagnostic, got %q", res.Diagnostics[0].Severity)
	}
}

func TestOptimizeEmitsSourceMap(t *testing.T) {
	dir := t.TempDir()
	inputs := writeInputs(t, dir, "var x = 1;\nconsole.log(x);\n")
	out := filepath.Join(dir, "out.js")

	_, err := New().Optimize(context.TODO(), optimizer.Config{
		Inputs:     inputs,
		Level:      optimizer.LevelWhitespace,
		OutputPath: out,
		SourceMap: &optimizer.SourceMap{
			Path:           out + ".map",
			IncludeContent: true,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "sourceMappingURL=out.js.map") {
		t.Fatal("artifact missing source map reference")
	}
	if _, err := os.Stat(out + ".map"); err != nil {
		t.Fatal("source map file not written")
	}
}

func TestConcatRequiresInputs(t *testing.T) {
	_, err := New().Optimize(context.TODO(), optimizer.Config{
		Inputs:     nil,
		OutputPath: "out.js",
	})
	if err == nil {
		t.Fatal("expected an error for an empty input set")
	}
}
