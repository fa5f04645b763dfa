package flags

import (
	"flag"
	"strings"
)

// Slice defines a repeatable string flag on fs and returns a pointer to the
// collected values.
//
// This is useful for flags that can appear multiple times on the command line.
// The values will be appended in the order they appear.
//
// Example:
//
//	switches := flags.Slice(fs, "D", nil, "Repeatable directive switch")
//	fs.Parse(args)
//	fmt.Println("Switches:", *switches)
//
// Run with:
//
//	forgectl build -D DEBUG -D EXPERIMENTAL
//
// Output:
//
//	Switches: [DEBUG EXPERIMENTAL]
func Slice(fs *flag.FlagSet, name string, defaultValue []string, usage string) *StringSlice {
	s := StringSlice(defaultValue)
	fs.Var(&s, name, usage)
	return &s
}

// custom slice type that satisfies flag.Value
type StringSlice []string

func (s *StringSlice) String() string {
	return strings.Join(*s, ",")
}

func (s *StringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}
