package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/rpmkit/pkg/rpm"
)

// ListCmd returns the list command.
func ListCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.Int("limit", 0, "Maximum packages to show (0 = all)")

	return &Command{
		Flags: fs,
		Usage: "list [flags]",
		Short: "List all installed packages",
		Long:  "List every installed package in database order.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			limit, _ := fs.GetInt("limit")

			return execList(ctx, o, cfg, limit)
		},
	}
}

func execList(ctx context.Context, o *IO, cfg *Config, limit int) error {
	if limit < 0 {
		return errors.New("--limit must be non-negative")
	}

	it, err := rpm.InstalledPackages()
	if err != nil {
		return err
	}

	var pkgs []rpm.Package

	for p := range it.All() {
		if err := ctx.Err(); err != nil {
			return err
		}

		pkgs = append(pkgs, p)

		if limit > 0 && len(pkgs) == limit {
			break
		}
	}

	if err := it.Err(); err != nil {
		return err
	}

	return printPackages(o, cfg.Format, pkgs)
}
