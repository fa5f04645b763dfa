// Package stamp post-processes the produced artifact: it injects the
// copyright banner and resolves the version/revision placeholder tokens.
package stamp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Reserved placeholder tokens resolved anywhere in the artifact text. The
// version token doubles as its own sentinel: when the version lookup fails,
// substitution becomes a no-op instead of aborting the build.
const (
	VersionToken  = "__CURRENT_SDK_VERSION__"
	RevisionToken = "__REVISION__"

	revisionSentinel = "-"
)

// Error reports an artifact that could not be read or rewritten.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to stamp artifact %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Metadata is the resolved build identity applied to the artifact.
type Metadata struct {
	Version  string
	Revision string
}

// Resolve computes build metadata from two independent lookups. Both degrade
// to sentinel values on failure; neither aborts the build.
func Resolve(ctx context.Context, versionFile, sourceRoot string) Metadata {
	return Metadata{
		Version:  readVersion(versionFile),
		Revision: readRevision(ctx, sourceRoot),
	}
}

func readVersion(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return VersionToken
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return VersionToken
	}
	return v
}

func readRevision(ctx context.Context, sourceRoot string) string {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--short", "HEAD")
	cmd.Dir = sourceRoot
	out, err := cmd.Output()
	if err != nil {
		return revisionSentinel
	}
	rev := strings.TrimSpace(string(out))
	if rev == "" {
		return revisionSentinel
	}
	return rev
}

// Options configures one stamping pass.
type Options struct {
	EngineName string
	Meta       Metadata
	Debug      bool
	Profiler   bool
	// Append puts the banner after the artifact body instead of before it,
	// so source-map byte offsets stay valid.
	Append bool
	// Now supplies the banner year; zero means time.Now.
	Now time.Time
}

// Apply rewrites the artifact at path in place: banner injection plus token
// substitution. Running Apply again on an artifact whose tokens are already
// resolved leaves the substitution step a no-op.
func Apply(path string, opts Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Path: path, Err: err}
	}

	text := string(data)
	text = strings.ReplaceAll(text, VersionToken, opts.Meta.Version)
	text = strings.ReplaceAll(text, RevisionToken, opts.Meta.Revision)

	banner := Banner(opts)
	if opts.Append {
		text = text + banner
	} else {
		text = banner + text
	}

	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return &Error{Path: path, Err: err}
	}

	return nil
}

// Banner renders the copyright/version header for this build.
func Banner(opts Options) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	mode := "RELEASE"
	switch {
	case opts.Debug:
		mode = "DEBUG"
	case opts.Profiler:
		mode = "PROFILER"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// %s v%s revision %s (%s)\n", opts.EngineName, opts.Meta.Version, opts.Meta.Revision, mode)
	fmt.Fprintf(&b, "// Copyright 2011-%d %s Team; Licensed MIT\n", now.Year(), opts.EngineName)
	return b.String()
}
