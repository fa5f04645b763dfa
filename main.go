package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/meshforge/forgectl/internal/cmd/build"
	"github.com/meshforge/forgectl/internal/cmd/clean"
	"github.com/meshforge/forgectl/internal/cmd/shaders"
	"github.com/meshforge/forgectl/internal/cmd/version"
	"github.com/meshforge/forgectl/internal/subcommands"
)

const (
	appName = "forgectl"
)

func main() {
	tool := subcommands.NewCommander(flag.CommandLine, appName)
	tool.Banner = func(w io.Writer) {
		fmt.Fprintf(w, "┌─┐┌─┐┬─┐┌─┐┌─┐\n")
		fmt.Fprintf(w, "├┤ │ │├┬┘│ ┬├┤ Mesh\n")
		fmt.Fprintf(w, "└  └─┘┴└─└─┘└─┘    Forge\n\n")
	}
	tool.Register(build.Command(), "")
	tool.Register(shaders.Command(), "")
	tool.Register(clean.Command(), "")
	tool.Register(version.Command(), "")

	flag.Parse()

	ctx := context.Background()
	os.Exit(int(tool.Execute(ctx)))
}
