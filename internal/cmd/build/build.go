package build

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aquasecurity/table"
	"github.com/go-logr/zapr"
	"github.com/krateoplatformops/provider-runtime/pkg/logging"
	"go.uber.org/zap"

	"github.com/meshforge/forgectl/internal/config"
	"github.com/meshforge/forgectl/internal/engine"
	"github.com/meshforge/forgectl/internal/optimizer"
	"github.com/meshforge/forgectl/internal/optimizer/closure"
	"github.com/meshforge/forgectl/internal/optimizer/esbuild"
	"github.com/meshforge/forgectl/internal/pipeline"
	"github.com/meshforge/forgectl/internal/pipeline/types"
	"github.com/meshforge/forgectl/internal/staging"
	"github.com/meshforge/forgectl/internal/subcommands"
	"github.com/meshforge/forgectl/internal/util/flags"
)

const (
	defaultConfigFile    = "forge.yaml"
	defaultOverridesFile = "forge-overrides.yaml"
)

type pipelineRunner interface {
	Run(context.Context, *types.PipelineSpec) []pipeline.StepResult[any]
}

type pipelineFactory func(pipeline.Opts) (pipelineRunner, error)

func Command() subcommands.Command {
	return &buildCmd{}
}

type buildCmd struct {
	configFile  string
	output      string
	level       string
	debug       bool
	profiler    bool
	sourceMap   bool
	engineName  string
	definesFile string
	switches    *flags.StringSlice
	workers     int
	verbose     bool

	pipelineFactory pipelineFactory
	errEvaluator    func([]pipeline.StepResult[any]) error
}

func (c *buildCmd) ensureDeps() {
	if c.pipelineFactory == nil {
		c.pipelineFactory = func(opts pipeline.Opts) (pipelineRunner, error) {
			return pipeline.New(opts)
		}
	}

	if c.errEvaluator == nil {
		c.errEvaluator = func(results []pipeline.StepResult[any]) error {
			return pipeline.Err(results)
		}
	}
}

func (c *buildCmd) Name() string     { return "build" }
func (c *buildCmd) Synopsis() string { return "run the full engine build pipeline" }

func (c *buildCmd) Usage() string {
	wri := bytes.Buffer{}
	fmt.Fprintf(&wri, "%s. Aggregate shaders, stage the manifest sources, run the optimizer and stamp the artifact.\n\n", c.Synopsis())

	fmt.Fprint(&wri, "USAGE:\n\n")
	fmt.Fprint(&wri, "  forgectl build [FLAGS]\n\n")

	fmt.Fprint(&wri, "FLAGS:\n\n")
	fmt.Fprint(&wri, "  -c string\n")
	fmt.Fprint(&wri, "        path to build configuration file (default \"forge.yaml\")\n")
	fmt.Fprint(&wri, "  -o string\n")
	fmt.Fprint(&wri, "        override the output artifact path\n")
	fmt.Fprint(&wri, "  -O string\n")
	fmt.Fprint(&wri, "        optimization level: whitespace, simple or advanced (0, 1, 2)\n")
	fmt.Fprint(&wri, "  -debug\n")
	fmt.Fprint(&wri, "        keep debug-guarded code in the build\n")
	fmt.Fprint(&wri, "  -profiler\n")
	fmt.Fprint(&wri, "        keep profiler-guarded code in the build\n")
	fmt.Fprint(&wri, "  -sourcemap\n")
	fmt.Fprint(&wri, "        emit a source map beside the artifact (stages sources verbatim)\n")
	fmt.Fprint(&wri, "  -engine string\n")
	fmt.Fprint(&wri, "        optimizer engine: closure or esbuild\n")
	fmt.Fprint(&wri, "  -D value\n")
	fmt.Fprint(&wri, "        enable an extra directive switch (repeatable)\n")
	fmt.Fprint(&wri, "  -defines string\n")
	fmt.Fprint(&wri, "        properties file contributing switches under the define. prefix\n")
	fmt.Fprint(&wri, "  -j int\n")
	fmt.Fprint(&wri, "        staging worker count (0 picks a sensible default)\n")
	fmt.Fprint(&wri, "  -v\n")
	fmt.Fprint(&wri, "        verbose step logging\n\n")

	fmt.Fprint(&wri, "CONVENTIONS:\n\n")
	fmt.Fprint(&wri, "  - Main config is read from forge.yaml (overridable with -c).\n")
	fmt.Fprint(&wri, "  - Overrides are loaded from forge-overrides.yaml when present.\n")
	fmt.Fprint(&wri, "  - Flags win over both config files.\n")
	fmt.Fprint(&wri, "  - A failed optimizer run leaves the staging tree behind for inspection\n")
	fmt.Fprint(&wri, "    unless staging.keepOnFailure is set to false.\n\n")

	fmt.Fprint(&wri, "EXAMPLES:\n\n")
	fmt.Fprint(&wri, "  # Release build with the configured defaults\n")
	fmt.Fprint(&wri, "  forgectl build\n\n")
	fmt.Fprint(&wri, "  # Readable debug build with an extra switch\n")
	fmt.Fprint(&wri, "  forgectl build -debug -O whitespace -D EXPERIMENTAL\n\n")

	return wri.String()
}

func (c *buildCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configFile, "c", defaultConfigFile, "path to build configuration file")
	f.StringVar(&c.output, "o", "", "override the output artifact path")
	f.StringVar(&c.level, "O", "", "optimization level (whitespace|simple|advanced or 0|1|2)")
	f.BoolVar(&c.debug, "debug", false, "keep debug-guarded code")
	f.BoolVar(&c.profiler, "profiler", false, "keep profiler-guarded code")
	f.BoolVar(&c.sourceMap, "sourcemap", false, "emit a source map beside the artifact")
	f.StringVar(&c.engineName, "engine", "", "optimizer engine (closure|esbuild)")
	f.StringVar(&c.definesFile, "defines", "", "properties file with extra directive switches")
	f.IntVar(&c.workers, "j", 0, "staging worker count")
	f.BoolVar(&c.verbose, "v", false, "verbose step logging")

	c.switches = flags.Slice(f, "D", nil, "enable an extra directive switch (repeatable)")
}

func (c *buildCmd) Execute(ctx context.Context, fs *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	c.ensureDeps()

	// Reject a bad level before any filesystem work happens.
	if c.level != "" {
		if _, err := optimizer.ParseLevel(c.level); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			return subcommands.ExitFailure
		}
	}

	doc, status := c.loadConfig(fs)
	if status != subcommands.ExitSuccess {
		return status
	}

	if doc.Build.SourceMap && (doc.Build.Debug || doc.Build.Profiler) {
		fmt.Println("⚠ source maps stage sources verbatim; -debug/-profiler directives are ignored")
	}

	log := logging.NewNopLogger()
	if c.verbose {
		zl, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ failed to set up logging: %v\n", err)
			return subcommands.ExitFailure
		}
		defer zl.Sync()
		log = logging.NewLogrLogger(zapr.NewLogger(zl).WithName("build"))
	}

	spec, err := engine.NewExecutor(c.workers).BuildPipelineSpec(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return subcommands.ExitFailure
	}

	pip, err := c.pipelineFactory(pipeline.Opts{
		Engines: map[string]optimizer.Engine{
			"closure": closure.New(doc.Optimizer.Command),
			"esbuild": esbuild.New(),
		},
		Log: log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("⚡ Building %s (%d steps)...\n", doc.Engine.Name, len(spec.Steps))
	started := time.Now()

	results := pip.Run(ctx, spec)

	if err := c.errEvaluator(results); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Build failed: %v\n", err)

		if doc.Staging.KeepOnFailure != nil && !*doc.Staging.KeepOnFailure {
			if rerr := staging.Remove(doc.Staging.Root); rerr != nil {
				fmt.Fprintf(os.Stderr, "⚠ could not remove staging tree: %v\n", rerr)
			}
		} else {
			fmt.Fprintf(os.Stderr, "ℹ staging tree kept at %s for inspection\n", doc.Staging.Root)
		}

		var exit *optimizer.ExitError
		if errors.As(err, &exit) {
			return subcommands.ExitStatus(exit.Code)
		}
		return subcommands.ExitFailure
	}

	if err := staging.Remove(doc.Staging.Root); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ could not remove staging tree: %v\n", err)
	}

	printSummary(results)
	fmt.Printf("✓ Built %s in %s\n", doc.Output.Path, time.Since(started).Round(time.Millisecond))

	return subcommands.ExitSuccess
}

// loadConfig loads forge.yaml plus overrides and layers the command line on
// top, flags winning. Only flags the user actually set are applied.
func (c *buildCmd) loadConfig(fs *flag.FlagSet) (*config.Document, subcommands.ExitStatus) {
	data, err := config.NewLoader(config.LoadOptions{
		ConfigPath:    c.configFile,
		OverridesPath: defaultOverridesFile,
	}).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return nil, subcommands.ExitFailure
	}

	cfg, err := config.NewConfig(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return nil, subcommands.ExitFailure
	}

	overrides := map[string]interface{}{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			overrides["output"] = c.output
		case "O":
			overrides["level"] = c.level
		case "debug":
			overrides["debug"] = c.debug
		case "profiler":
			overrides["profiler"] = c.profiler
		case "sourcemap":
			overrides["sourcemap"] = c.sourceMap
		case "engine":
			overrides["engine"] = c.engineName
		case "defines":
			overrides["defines"] = c.definesFile
		case "D":
			overrides["switches"] = []string(*c.switches)
		}
	})

	if len(overrides) > 0 {
		if err := config.NewMerger(cfg).ApplyFlags(overrides); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			return nil, subcommands.ExitFailure
		}
	}

	if err := config.NewValidator(cfg).Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return nil, subcommands.ExitFailure
	}

	return cfg.Document(), subcommands.ExitSuccess
}

func printSummary(results []pipeline.StepResult[any]) {
	tbl := table.New(os.Stdout)
	tbl.SetHeaders("Step", "Status", "Duration", "Digest")
	for _, x := range results {
		status := "ok"
		if x.Err() != nil {
			status = "failed"
		}
		tbl.AddRow(x.ID(), status, x.Took().Round(time.Millisecond).String(), x.Digest())
	}
	tbl.Render()
}
