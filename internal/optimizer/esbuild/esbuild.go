// Package esbuild provides an in-process optimizer engine for builds where
// shelling out to an external compiler is unwanted. The three optimization
// levels map onto esbuild's minify switches; the output wrapper becomes a
// banner/footer pair around the concatenated input set.
//
// Limitation: esbuild derives the map location itself (beside the output) and
// cannot rewrite staged path prefixes, so source-mapped builds reference the
// concatenated staged entry rather than the original tree.
package esbuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/meshforge/forgectl/internal/optimizer"
)

const outputMarker = "%output%"

type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Name() string { return "esbuild" }

func (e *Engine) Optimize(_ context.Context, cfg optimizer.Config) (optimizer.Result, error) {
	entry, err := concat(cfg.Inputs)
	if err != nil {
		return optimizer.Result{}, err
	}
	defer os.Remove(entry)

	banner, footer, err := splitWrapper(cfg.WrapperFile)
	if err != nil {
		return optimizer.Result{}, err
	}

	opts := api.BuildOptions{
		EntryPoints: []string{entry},
		Outfile:     cfg.OutputPath,
		Write:       true,
		Target:      target(cfg.LanguageIn),
		LogLevel:    api.LogLevelSilent,
	}
	if banner != "" {
		opts.Banner = map[string]string{"js": banner}
	}
	if footer != "" {
		opts.Footer = map[string]string{"js": footer}
	}

	switch cfg.Level {
	case optimizer.LevelWhitespace:
		opts.MinifyWhitespace = true
	case optimizer.LevelSimple:
		opts.MinifyWhitespace = true
		opts.MinifySyntax = true
	case optimizer.LevelAdvanced:
		opts.MinifyWhitespace = true
		opts.MinifySyntax = true
		opts.MinifyIdentifiers = true
	}
	if cfg.PrettyPrint {
		opts.MinifyWhitespace = false
	}
	if sm := cfg.SourceMap; sm != nil {
		opts.Sourcemap = api.SourceMapLinked
		if sm.IncludeContent {
			opts.SourcesContent = api.SourcesContentInclude
		}
	}

	result := api.Build(opts)

	res := optimizer.Result{
		Stderr:      strings.Join(api.FormatMessages(append(result.Errors, result.Warnings...), api.FormatMessagesOptions{}), ""),
		Diagnostics: append(toDiagnostics(result.Errors, "error"), toDiagnostics(result.Warnings, "warning")...),
	}

	if len(result.Errors) > 0 {
		res.ExitCode = 1
		return res, &optimizer.ExitError{Engine: e.Name(), Code: 1, Stderr: res.Stderr}
	}

	return res, nil
}

// concat joins the staged inputs in manifest order into a single entry file,
// written next to the first input so relative references keep working.
func concat(inputs []string) (string, error) {
	if len(inputs) == 0 {
		return "", fmt.Errorf("esbuild engine requires at least one input")
	}

	entry := filepath.Join(filepath.Dir(inputs[0]), "forge-entry.gen.js")
	out, err := os.Create(entry)
	if err != nil {
		return "", fmt.Errorf("failed to create entry file: %w", err)
	}
	defer out.Close()

	for _, x := range inputs {
		data, err := os.ReadFile(x)
		if err != nil {
			os.Remove(entry)
			return "", fmt.Errorf("failed to read staged input %s: %w", x, err)
		}
		if _, err := out.Write(data); err != nil {
			os.Remove(entry)
			return "", fmt.Errorf("failed to write entry file: %w", err)
		}
		if _, err := out.WriteString("\n"); err != nil {
			os.Remove(entry)
			return "", fmt.Errorf("failed to write entry file: %w", err)
		}
	}

	return entry, nil
}

// splitWrapper cuts the wrapper template at the output marker into a banner
// and a footer. An empty wrapper file path means no wrapping.
func splitWrapper(wrapperFile string) (banner, footer string, err error) {
	if wrapperFile == "" {
		return "", "", nil
	}

	data, err := os.ReadFile(wrapperFile)
	if err != nil {
		return "", "", fmt.Errorf("failed to read wrapper template %s: %w", wrapperFile, err)
	}

	before, after, found := strings.Cut(string(data), outputMarker)
	if !found {
		return "", "", fmt.Errorf("wrapper template %s has no %s marker", wrapperFile, outputMarker)
	}

	return strings.TrimSpace(before), strings.TrimSpace(after), nil
}

func target(languageIn string) api.Target {
	switch strings.ToUpper(languageIn) {
	case "ECMASCRIPT5", "ES5":
		return api.ES5
	case "ECMASCRIPT6", "ECMASCRIPT_2015", "ES2015":
		return api.ES2015
	case "ECMASCRIPT_2020", "ES2020":
		return api.ES2020
	}
	return api.DefaultTarget
}

func toDiagnostics(msgs []api.Message, severity string) []optimizer.Diagnostic {
	out := make([]optimizer.Diagnostic, 0, len(msgs))
	for _, m := range msgs {
		d := optimizer.Diagnostic{Severity: severity, Text: m.Text}
		if m.Location != nil {
			d.File = m.Location.File
			d.Line = m.Location.Line
		}
		out = append(out, d)
	}
	return out
}
