package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/rpmkit/pkg/rpm"
)

// EvalCmd returns the eval command.
func EvalCmd(_ *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("eval", flag.ContinueOnError),
		Usage: "eval <expr>...",
		Short: "Expand macros",
		Long:  "Print the macro expansion of each expression on its own line, like rpm --eval.",
		Examples: []string{
			"eval %{_dbpath}",
			"-D '_vendor acme' eval 'built by %{_vendor}'",
			"eval '%{?_vendor:vendor set}'",
		},
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errors.New("at least one expression is required")
			}

			ctx := rpm.DefaultMacroContext()

			for _, expr := range args {
				out, err := ctx.Expand(expr)
				if err != nil {
					return err
				}

				o.Println(out)
			}

			return nil
		},
	}
}
