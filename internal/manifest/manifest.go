// Package manifest loads the ordered list of source files that feeds the
// build. The order in the manifest is the only dependency ordering the
// pipeline itself guarantees; everything downstream preserves it.
package manifest

import (
	"fmt"
	"os"
	"strings"
)

// ReadError reports a manifest file that could not be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read manifest %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Load reads a manifest file: one source path per line, UTF-8, line
// separators normalized, surrounding whitespace trimmed. Empty lines and
// lines starting with '#' are skipped. No deduplication and no existence
// checks; a missing referenced file surfaces later, when staging reads it.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var entries []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}

	return entries, nil
}
