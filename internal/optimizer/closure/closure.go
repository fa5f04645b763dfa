// Package closure drives an external Closure-style batch compiler as the
// optimizer engine. The compiler is invoked once per build with a fully
// assembled argument list; its exit code and diagnostic stream are surfaced
// verbatim.
package closure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/meshforge/forgectl/internal/optimizer"
)

// Engine wraps the external compiler command, e.g.
// ["java", "-jar", "build/compiler.jar"].
type Engine struct {
	Command []string
}

func New(command []string) *Engine {
	return &Engine{Command: command}
}

func (e *Engine) Name() string { return "closure" }

func (e *Engine) Optimize(ctx context.Context, cfg optimizer.Config) (optimizer.Result, error) {
	if len(e.Command) == 0 {
		return optimizer.Result{}, errors.New("closure engine has no command configured")
	}

	wrapper := cfg.WrapperFile
	if cfg.SourceMap != nil {
		// The map reference must ride inside the wrapper so it lands after
		// the spliced output without shifting byte offsets. The compiler
		// itself never emits a sourceMappingURL comment, so a build with no
		// wrapper template still gets a synthesized one.
		tmp, err := sourceMapWrapper(wrapper, cfg.SourceMap.Path, cfg.OutputPath)
		if err != nil {
			return optimizer.Result{}, err
		}
		defer os.Remove(tmp)
		wrapper = tmp
	}

	args := buildArgs(cfg, wrapper)
	cmd := exec.CommandContext(ctx, e.Command[0], append(append([]string{}, e.Command[1:]...), args...)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := optimizer.Result{
		Stderr:      stderr.String(),
		Diagnostics: parseDiagnostics(stderr.String()),
	}

	if err != nil {
		var xerr *exec.ExitError
		if errors.As(err, &xerr) {
			res.ExitCode = xerr.ExitCode()
			return res, &optimizer.ExitError{Engine: e.Name(), Code: res.ExitCode, Stderr: res.Stderr}
		}
		return res, fmt.Errorf("failed to run %s: %w", e.Command[0], err)
	}

	return res, nil
}

// buildArgs assembles the complete compiler argument list for one invocation.
func buildArgs(cfg optimizer.Config, wrapperFile string) []string {
	args := []string{
		"--compilation_level", levelFlag(cfg.Level),
	}
	if cfg.LanguageIn != "" {
		args = append(args, "--language_in", cfg.LanguageIn)
	}
	for _, x := range cfg.Inputs {
		args = append(args, "--js", x)
	}
	args = append(args, "--js_output_file", cfg.OutputPath)
	if wrapperFile != "" {
		args = append(args, "--output_wrapper_file", wrapperFile)
	}
	if cfg.ManageDeps {
		args = append(args, "--manage_closure_dependencies")
	}
	for _, x := range cfg.Suppress {
		args = append(args, "--jscomp_off", x)
	}
	if cfg.ExternsFile != "" {
		args = append(args, "--externs", cfg.ExternsFile)
	}
	if cfg.Verbose {
		args = append(args, "--warning_level", "VERBOSE")
	}
	if cfg.PrettyPrint {
		args = append(args, "--formatting", "PRETTY_PRINT")
	}
	if sm := cfg.SourceMap; sm != nil {
		args = append(args, "--create_source_map", sm.Path)
		if sm.StagedPrefix != "" {
			args = append(args, "--source_map_location_mapping", sm.StagedPrefix+"|"+sm.SourcePrefix)
		}
		if sm.IncludeContent {
			args = append(args, "--source_map_include_content")
		}
	}
	return args
}

func levelFlag(l optimizer.Level) string {
	switch l {
	case optimizer.LevelWhitespace:
		return "WHITESPACE_ONLY"
	case optimizer.LevelSimple:
		return "SIMPLE_OPTIMIZATIONS"
	default:
		return "ADVANCED_OPTIMIZATIONS"
	}
}

// sourceMapWrapper writes a temporary copy of the wrapper template with a
// trailing sourceMappingURL comment referencing the map by file name. An
// empty wrapperFile falls back to a bare output marker so the comment still
// trails the artifact.
func sourceMapWrapper(wrapperFile, mapPath, outputPath string) (string, error) {
	body := "%output%"
	if wrapperFile != "" {
		data, err := os.ReadFile(wrapperFile)
		if err != nil {
			return "", fmt.Errorf("failed to read wrapper template %s: %w", wrapperFile, err)
		}
		body = strings.TrimRight(string(data), "\n")
	}

	content := body + "\n//# sourceMappingURL=" + filepath.Base(mapPath) + "\n"

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), "wrapper-*.js")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary wrapper: %w", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write temporary wrapper: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	return tmp.Name(), nil
}

var diagLine = regexp.MustCompile(`^(.+?):(\d+):\s*(ERROR|WARNING)\s*-\s*(.*)$`)

// parseDiagnostics extracts structured entries from the compiler's stderr.
// Lines that do not match the diagnostic shape are kept in Result.Stderr only.
func parseDiagnostics(stderr string) []optimizer.Diagnostic {
	var out []optimizer.Diagnostic
	for _, line := range strings.Split(stderr, "\n") {
		m := diagLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		lineNo, _ := strconv.Atoi(m[2])
		out = append(out, optimizer.Diagnostic{
			Severity: strings.ToLower(m[3]),
			File:     m[1],
			Line:     lineNo,
			Text:     m[4],
		})
	}
	return out
}
