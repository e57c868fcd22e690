package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/calvinalkan/rpmkit/pkg/rpm"
)

// maxParallelQueries bounds how many keys are looked up at once.
const maxParallelQueries = 4

var errKeyRequired = errors.New("at least one key is required")

func fieldNames() string {
	var names []string
	for _, f := range rpm.SearchFields() {
		names = append(names, f.String())
	}

	return strings.Join(names, "|")
}

// QueryCmd returns the query command.
func QueryCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.StringP("field", "f", "name", "Field to match ("+fieldNames()+")")

	return &Command{
		Flags: fs,
		Usage: "query [flags] <key>...",
		Short: "Find installed packages by exact field value",
		Long: `Find installed packages whose field equals key exactly (no globbing,
no case folding). Several keys are looked up concurrently; results are
printed in key order. Keys that match nothing are reported as warnings.`,
		Examples: []string{
			"query bash",
			"query -f providename libc.so.6",
			"query -f instfilename /usr/bin/bash",
			"-o json query bash coreutils",
		},
		Exec: func(ctx context.Context, o *IO, args []string) error {
			field, _ := fs.GetString("field")

			return execQuery(ctx, o, cfg, field, args)
		},
	}
}

func execQuery(ctx context.Context, o *IO, cfg *Config, fieldName string, keys []string) error {
	if len(keys) == 0 {
		return errKeyRequired
	}

	field, err := rpm.ParseSearchField(fieldName)
	if err != nil {
		return err
	}

	results, err := findAll(ctx, field, keys)
	if err != nil {
		return err
	}

	var pkgs []rpm.Package

	for i, key := range keys {
		if len(results[i]) == 0 {
			o.Warn(fmt.Sprintf("no package matches %s=%q", field, key), "matching is exact")
		}

		pkgs = append(pkgs, results[i]...)
	}

	return printPackages(o, cfg.Format, pkgs)
}

// findAll runs one query per key and returns the results indexed like keys.
func findAll(ctx context.Context, field rpm.SearchField, keys []string) ([][]rpm.Package, error) {
	results := make([][]rpm.Package, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelQueries)

	for i, key := range keys {
		g.Go(func() error {
			it, err := rpm.Find(field, key)
			if err != nil {
				return err
			}
			defer it.Close()

			for it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}

				results[i] = append(results[i], it.Package())
			}

			return it.Err()
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return results, nil
}
