package shaders

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/meshforge/forgectl/internal/config"
	"github.com/meshforge/forgectl/internal/shaders"
	"github.com/meshforge/forgectl/internal/subcommands"
)

func Command() subcommands.Command {
	return &shadersCmd{}
}

type shadersCmd struct {
	configFile string
	dir        string
	out        string
}

func (c *shadersCmd) Name() string     { return "shaders" }
func (c *shadersCmd) Synopsis() string { return "regenerate the shader chunks module" }

func (c *shadersCmd) Usage() string {
	wri := bytes.Buffer{}
	fmt.Fprintf(&wri, "%s. Collect .vert and .frag sources and write them as a single JavaScript module, without running the rest of the pipeline.\n\n", c.Synopsis())

	fmt.Fprint(&wri, "USAGE:\n\n")
	fmt.Fprint(&wri, "  forgectl shaders [FLAGS]\n\n")

	fmt.Fprint(&wri, "FLAGS:\n\n")
	fmt.Fprint(&wri, "  -c string\n")
	fmt.Fprint(&wri, "        path to build configuration file (default \"forge.yaml\")\n")
	fmt.Fprint(&wri, "  -dir string\n")
	fmt.Fprint(&wri, "        shader source directory (overrides shaders.dir)\n")
	fmt.Fprint(&wri, "  -out string\n")
	fmt.Fprint(&wri, "        generated module path (overrides shaders.out)\n\n")

	return wri.String()
}

func (c *shadersCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configFile, "c", "forge.yaml", "path to build configuration file")
	f.StringVar(&c.dir, "dir", "", "shader source directory")
	f.StringVar(&c.out, "out", "", "generated module path")
}

func (c *shadersCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	dir, out := c.dir, c.out
	if dir == "" || out == "" {
		data, err := config.NewLoader(config.LoadOptions{ConfigPath: c.configFile}).Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			return subcommands.ExitFailure
		}
		cfg, err := config.NewConfig(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			return subcommands.ExitFailure
		}
		doc := cfg.Document()
		if dir == "" {
			dir = doc.Shaders.Dir
		}
		if out == "" {
			out = doc.Shaders.Out
		}
	}
	if dir == "" || out == "" {
		fmt.Fprintln(os.Stderr, "✗ shader directory and output path are required (flags or shaders config)")
		return subcommands.ExitUsageError
	}

	count, err := shaders.Generate(dir, out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("✓ Wrote %d shader chunks to %s\n", count, out)
	return subcommands.ExitSuccess
}
