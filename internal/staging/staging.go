// Package staging owns the temporary tree that holds preprocessed copies of
// the source files between preprocessing and optimization. One staging root
// belongs to exactly one build run; concurrent builds over the same root must
// be serialized by the caller.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
)

// Clear removes any stale staging tree from a previous run and recreates an
// empty root, so every build starts from a clean slate.
func Clear(root string) error {
	if err := Remove(root); err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("failed to create staging root %s: %w", root, err)
	}
	return nil
}

// Remove recursively deletes the staging tree. Removing a root that does not
// exist is not an error.
func Remove(root string) error {
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("failed to remove staging root %s: %w", root, err)
	}
	return nil
}

// PathFor maps a source file to its staged location: the path relative to
// sourceRoot joined under the staging root, so the staged tree mirrors the
// original layout and source-map back-references stay resolvable.
func PathFor(root, sourceRoot, src string) (string, error) {
	rel, err := filepath.Rel(sourceRoot, src)
	if err != nil {
		return "", fmt.Errorf("cannot relativize %s against %s: %w", src, sourceRoot, err)
	}
	return filepath.Join(root, rel), nil
}
