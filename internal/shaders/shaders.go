// Package shaders aggregates GLSL shader sources into one generated module
// of named string constants, so the engine can ship without loose shader
// asset files.
package shaders

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// IOError reports a shader directory or target file that could not be accessed.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("shader aggregation failed on %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Chunk is one shader source embedded as a string constant. Name is the file
// base name with the suffix replaced by a role tag: "VS" for vertex shaders,
// "PS" for fragment shaders.
type Chunk struct {
	Name   string
	Source string
}

const (
	vertexSuffix   = ".vert"
	fragmentSuffix = ".frag"
)

var lineBreaks = regexp.MustCompile(`(\r\n|\r|\n)+`)

// Discover lists dir and returns one Chunk per recognized shader file, sorted
// lexicographically by filename so the generated module is reproducible
// regardless of directory enumeration order. Files with other suffixes are
// ignored.
func Discover(dir string) ([]Chunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &IOError{Path: dir, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, x := range entries {
		if x.IsDir() {
			continue
		}
		switch filepath.Ext(x.Name()) {
		case vertexSuffix, fragmentSuffix:
			names = append(names, x.Name())
		}
	}
	sort.Strings(names)

	chunks := make([]Chunk, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, &IOError{Path: filepath.Join(dir, name), Err: err}
		}

		chunks = append(chunks, Chunk{
			Name:   chunkName(name),
			Source: collapse(string(data)),
		})
	}

	return chunks, nil
}

// Generate writes the aggregated chunk module for dir to out, overwriting any
// previous generation. Returns the number of chunks emitted.
func Generate(dir, out string) (int, error) {
	chunks, err := Discover(dir)
	if err != nil {
		return 0, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Autogenerated by forgectl, do not edit. Generated %s.\n", time.Now().Format(time.RFC3339))
	b.WriteString("var shaderChunks = {};\n")
	for _, x := range chunks {
		fmt.Fprintf(&b, "shaderChunks.%s = \"%s\";\n", x.Name, x.Source)
	}

	if err := os.WriteFile(out, []byte(b.String()), 0644); err != nil {
		return 0, &IOError{Path: out, Err: err}
	}

	return len(chunks), nil
}

// chunkName strips the role suffix and appends the two-letter role tag:
// foo.vert -> fooVS, foo.frag -> fooPS.
func chunkName(file string) string {
	base := strings.TrimSuffix(file, filepath.Ext(file))
	if strings.HasSuffix(file, vertexSuffix) {
		return base + "VS"
	}
	return base + "PS"
}

// collapse folds every line-break run into a single literal \n escape and
// escapes the characters that cannot appear raw inside a quoted JS string,
// so the whole shader fits on one generated line.
func collapse(src string) string {
	src = strings.ReplaceAll(src, `\`, `\\`)
	src = strings.ReplaceAll(src, `"`, `\"`)
	return lineBreaks.ReplaceAllString(src, `\n`)
}
