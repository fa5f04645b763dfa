// Package diag renders and persists optimizer diagnostics. Every run writes
// a JSON report beside the artifact; an optional jq expression narrows which
// entries get echoed back as build warnings.
package diag

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/itchyny/gojq"

	"github.com/meshforge/forgectl/internal/optimizer"
)

// ReportPath derives the sidecar report location for an artifact.
func ReportPath(outputPath string) string {
	return outputPath + ".diag.json"
}

// WriteReport stores all diagnostics of a run as a JSON array.
func WriteReport(path string, diags []optimizer.Diagnostic) error {
	if diags == nil {
		diags = []optimizer.Diagnostic{}
	}
	data, err := json.MarshalIndent(diags, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write diagnostics report %s: %w", path, err)
	}
	return nil
}

// Filter applies a jq expression to the diagnostics and returns the entries
// it selects. An empty expression keeps everything. The expression runs over
// the full array, e.g. `.[] | select(.severity == "error")`.
func Filter(diags []optimizer.Diagnostic, query string) ([]optimizer.Diagnostic, error) {
	if query == "" {
		return diags, nil
	}

	q, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("invalid diagnostics query %q: %w", query, err)
	}

	// gojq operates on generic JSON values.
	raw, err := json.Marshal(diags)
	if err != nil {
		return nil, err
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, err
	}

	var out []optimizer.Diagnostic
	iter := q.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("diagnostics query failed: %w", err)
		}

		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}

		var one optimizer.Diagnostic
		if err := json.Unmarshal(encoded, &one); err == nil && one.Text != "" {
			out = append(out, one)
			continue
		}

		var many []optimizer.Diagnostic
		if err := json.Unmarshal(encoded, &many); err == nil {
			out = append(out, many...)
		}
	}

	return out, nil
}
