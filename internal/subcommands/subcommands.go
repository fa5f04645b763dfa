package subcommands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
)

type ExitStatus int

const (
	ExitSuccess    ExitStatus = 0
	ExitFailure    ExitStatus = 1
	ExitUsageError ExitStatus = 2
)

// Command is implemented by every subcommand.
type Command interface {
	Name() string
	Synopsis() string
	Usage() string
	SetFlags(*flag.FlagSet)
	Execute(ctx context.Context, fs *flag.FlagSet, args ...any) ExitStatus
}

// Commander dispatches the first positional argument to a registered Command.
type Commander struct {
	// Banner, when set, is printed before the command listing.
	Banner func(w io.Writer)

	name     string
	topFlags *flag.FlagSet
	commands []*entry
	Error    io.Writer
}

type entry struct {
	cmd   Command
	group string
}

func NewCommander(topFlags *flag.FlagSet, name string) *Commander {
	cdr := &Commander{
		name:     name,
		topFlags: topFlags,
		Error:    os.Stderr,
	}
	topFlags.Usage = func() { cdr.explain(cdr.Error) }
	return cdr
}

func (cdr *Commander) Register(cmd Command, group string) {
	cdr.commands = append(cdr.commands, &entry{cmd: cmd, group: group})
}

func (cdr *Commander) Execute(ctx context.Context, args ...any) ExitStatus {
	if cdr.topFlags.NArg() < 1 {
		cdr.explain(cdr.Error)
		return ExitUsageError
	}

	name := cdr.topFlags.Arg(0)
	if name == "help" {
		return cdr.help(cdr.topFlags.Args()[1:])
	}

	for _, x := range cdr.commands {
		if x.cmd.Name() != name {
			continue
		}

		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		fs.Usage = func() { fmt.Fprint(cdr.Error, x.cmd.Usage()) }
		x.cmd.SetFlags(fs)
		if err := fs.Parse(cdr.topFlags.Args()[1:]); err != nil {
			return ExitUsageError
		}

		return x.cmd.Execute(ctx, fs, args...)
	}

	fmt.Fprintf(cdr.Error, "unknown command %q\n\n", name)
	cdr.explain(cdr.Error)
	return ExitUsageError
}

func (cdr *Commander) help(args []string) ExitStatus {
	if len(args) == 0 {
		cdr.explain(cdr.Error)
		return ExitSuccess
	}

	for _, x := range cdr.commands {
		if x.cmd.Name() == args[0] {
			fmt.Fprint(cdr.Error, x.cmd.Usage())
			return ExitSuccess
		}
	}

	fmt.Fprintf(cdr.Error, "unknown command %q\n", args[0])
	return ExitUsageError
}

func (cdr *Commander) explain(w io.Writer) {
	if cdr.Banner != nil {
		cdr.Banner(w)
	}

	fmt.Fprintf(w, "USAGE:\n\n  %s <command> [FLAGS]\n\nCOMMANDS:\n\n", cdr.name)

	sorted := make([]*entry, len(cdr.commands))
	copy(sorted, cdr.commands)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].cmd.Name() < sorted[j].cmd.Name()
	})

	for _, x := range sorted {
		fmt.Fprintf(w, "  %-10s %s\n", x.cmd.Name(), x.cmd.Synopsis())
	}

	fmt.Fprintf(w, "\nUse \"%s help <command>\" for details about a command.\n", cdr.name)
}
