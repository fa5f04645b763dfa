package clean

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/meshforge/forgectl/internal/config"
	"github.com/meshforge/forgectl/internal/optimizer/diag"
	"github.com/meshforge/forgectl/internal/staging"
	"github.com/meshforge/forgectl/internal/subcommands"
)

func Command() subcommands.Command {
	return &cleanCmd{}
}

type cleanCmd struct {
	configFile string
}

func (c *cleanCmd) Name() string     { return "clean" }
func (c *cleanCmd) Synopsis() string { return "remove build outputs and the staging tree" }

func (c *cleanCmd) Usage() string {
	wri := bytes.Buffer{}
	fmt.Fprintf(&wri, "%s. Deletes the staging tree, the built artifact with its sidecar files (source map, diagnostics report) and the generated shader chunks module.\n\n", c.Synopsis())

	fmt.Fprint(&wri, "USAGE:\n\n")
	fmt.Fprint(&wri, "  forgectl clean [FLAGS]\n\n")

	fmt.Fprint(&wri, "FLAGS:\n\n")
	fmt.Fprint(&wri, "  -c string\n")
	fmt.Fprint(&wri, "        path to build configuration file (default \"forge.yaml\")\n\n")

	return wri.String()
}

func (c *cleanCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configFile, "c", "forge.yaml", "path to build configuration file")
}

func (c *cleanCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
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

	if err := staging.Remove(doc.Staging.Root); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return subcommands.ExitFailure
	}

	targets := []string{}
	if doc.Output.Path != "" {
		targets = append(targets,
			doc.Output.Path,
			doc.Output.Path+".map",
			diag.ReportPath(doc.Output.Path),
		)
	}
	if doc.Shaders.Out != "" {
		targets = append(targets, doc.Shaders.Out)
	}
	for _, path := range targets {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			return subcommands.ExitFailure
		}
	}

	fmt.Println("✓ Clean")
	return subcommands.ExitSuccess
}
