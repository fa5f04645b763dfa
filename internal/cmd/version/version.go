package version

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/meshforge/forgectl/internal/config"
	"github.com/meshforge/forgectl/internal/stamp"
	"github.com/meshforge/forgectl/internal/subcommands"
)

// Set at build time with -ldflags "-X ...version.build=<tag>".
var build = "dev"

func Command() subcommands.Command {
	return &versionCmd{}
}

type versionCmd struct {
	configFile string
}

func (c *versionCmd) Name() string     { return "version" }
func (c *versionCmd) Synopsis() string { return "print tool and engine version information" }

func (c *versionCmd) Usage() string {
	wri := bytes.Buffer{}
	fmt.Fprintf(&wri, "%s.\n\n", c.Synopsis())

	fmt.Fprint(&wri, "USAGE:\n\n")
	fmt.Fprint(&wri, "  forgectl version [FLAGS]\n\n")

	fmt.Fprint(&wri, "FLAGS:\n\n")
	fmt.Fprint(&wri, "  -c string\n")
	fmt.Fprint(&wri, "        path to build configuration file (default \"forge.yaml\")\n\n")

	return wri.String()
}

func (c *versionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configFile, "c", "forge.yaml", "path to build configuration file")
}

func (c *versionCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	fmt.Printf("forgectl %s\n", build)

	// Engine metadata is best effort: skip it when no config is around.
	data, err := config.NewLoader(config.LoadOptions{ConfigPath: c.configFile}).Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return subcommands.ExitSuccess
		}
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return subcommands.ExitFailure
	}
	cfg, err := config.NewConfig(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return subcommands.ExitFailure
	}
	doc := cfg.Document()

	meta := stamp.Resolve(ctx, doc.Engine.VersionFile, doc.Engine.SourceRoot)
	fmt.Printf("%s v%s revision %s\n", doc.Engine.Name, meta.Version, meta.Revision)

	return subcommands.ExitSuccess
}
