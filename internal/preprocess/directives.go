package preprocess

import (
	"strings"
)

// Switches is the set of feature names visible to directive guards. A name
// that is absent evaluates false.
type Switches map[string]bool

// Directive grammar, one directive per line, nestable:
//
//	// #ifdef DEBUG
//	...kept only when DEBUG is on...
//	// #else
//	...kept only when DEBUG is off...
//	// #endif
//
// Guard lines themselves never survive into the output.
const (
	ifdefMarker = "// #ifdef"
	elseMarker  = "// #else"
	endifMarker = "// #endif"
)

// matchesMarker requires the marker to be followed by whitespace or end of
// line, so `// #ifdefDEBUG` or `// #elseif` never parse as directives.
func matchesMarker(line, marker string) bool {
	if !strings.HasPrefix(line, marker) {
		return false
	}
	rest := line[len(marker):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

type guardFrame struct {
	keep    bool // region currently being emitted
	taken   bool // the #ifdef branch was the kept one
	sawElse bool
}

// evaluate applies the directive grammar to src. Regions whose guard is off
// are dropped; regions whose guard is on are kept with the guard lines
// stripped. Line numbering in errors is 1-based.
func evaluate(src string, switches Switches) (string, *directiveError) {
	var (
		out   strings.Builder
		stack []guardFrame
	)

	lines := strings.Split(src, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case matchesMarker(trimmed, ifdefMarker):
			name := strings.TrimSpace(strings.TrimPrefix(trimmed, ifdefMarker))
			if name == "" {
				return "", &directiveError{Line: i + 1, Reason: "#ifdef without a switch name"}
			}
			parentKeep := len(stack) == 0 || stack[len(stack)-1].keep
			on := parentKeep && switches[name]
			stack = append(stack, guardFrame{keep: on, taken: on})

		case matchesMarker(trimmed, elseMarker):
			if len(stack) == 0 {
				return "", &directiveError{Line: i + 1, Reason: "#else without matching #ifdef"}
			}
			top := &stack[len(stack)-1]
			if top.sawElse {
				return "", &directiveError{Line: i + 1, Reason: "duplicate #else"}
			}
			top.sawElse = true
			parentKeep := len(stack) == 1 || stack[len(stack)-2].keep
			top.keep = parentKeep && !top.taken

		case matchesMarker(trimmed, endifMarker):
			if len(stack) == 0 {
				return "", &directiveError{Line: i + 1, Reason: "#endif without matching #ifdef"}
			}
			stack = stack[:len(stack)-1]

		default:
			if len(stack) == 0 || stack[len(stack)-1].keep {
				out.WriteString(line)
				if i < len(lines)-1 {
					out.WriteString("\n")
				}
			}
		}
	}

	if len(stack) != 0 {
		return "", &directiveError{Line: len(lines), Reason: "unclosed #ifdef at end of file"}
	}

	return out.String(), nil
}

type directiveError struct {
	Line   int
	Reason string
}
