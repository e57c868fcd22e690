package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one rpmq subcommand.
type Command struct {
	// Flags holds the command's own flags. Global flags are parsed by Run
	// before the command name and never reach it.
	Flags *flag.FlagSet

	// Usage starts with the command name, e.g. "query [flags] <key>...".
	Usage string

	// Short is the line shown in "rpmq --help". Long, if set, replaces it
	// in "rpmq <cmd> --help".
	Short string
	Long  string

	// Examples are full command lines shown in the command help.
	Examples []string

	// Exec runs the command. A returned error is printed as "error: ..."
	// and makes the exit code 1; warnings recorded on o do the same.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine returns the command's row in the command listing.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-26s %s", c.Usage, c.Short)
}

// PrintHelp writes "rpmq <cmd> --help" output to w.
func (c *Command) PrintHelp(w io.Writer) {
	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	fprintln(w, "Usage: rpmq [global flags]", c.Usage)
	fprintln(w)
	fprintln(w, desc)

	if c.Flags.HasFlags() {
		fprintln(w)
		fprintln(w, "Flags:")
		_, _ = io.WriteString(w, c.Flags.FlagUsages())
	}

	if len(c.Examples) > 0 {
		fprintln(w)
		fprintln(w, "Examples:")

		for _, ex := range c.Examples {
			fprintln(w, "  rpmq", ex)
		}
	}
}

// Run parses args and executes the command, returning the exit code.
// Flag errors print the command help to stderr; --help prints it to stdout.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(io.Discard)

	err := c.Flags.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		c.PrintHelp(o)

		return 0
	}

	if err != nil {
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o.errOut)

		return 1
	}

	err = c.Exec(ctx, o, c.Flags.Args())
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return o.Finish()
}

// findCommand returns the command called name, or nil.
func findCommand(commands []*Command, name string) *Command {
	for _, c := range commands {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// printUsage writes the top-level help. commands may be nil when flag
// parsing failed before the configuration was known.
func printUsage(w io.Writer, globals *flag.FlagSet, commands []*Command) {
	fprintln(w, "rpmq - query the installed package database")
	fprintln(w)
	fprintln(w, "Usage: rpmq [global flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Global flags:")
	_, _ = io.WriteString(w, globals.FlagUsages())

	if len(commands) == 0 {
		return
	}

	fprintln(w)
	fprintln(w, "Commands:")

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}

	fprintln(w)
	fprintln(w, `Run "rpmq <command> --help" for command flags and examples.`)
}
