package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/rpmkit/internal/librpm"
	"github.com/calvinalkan/rpmkit/pkg/rpm"
)

// watchSettle coalesces the burst of events one database rewrite causes.
const watchSettle = 50 * time.Millisecond

// WatchCmd returns the watch command.
func WatchCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.StringP("field", "f", "name", "Field to match ("+fieldNames()+")")
	fs.Int("count", 0, "Exit after this many refreshes (0 = until interrupted)")

	return &Command{
		Flags: fs,
		Usage: "watch [flags] [key...]",
		Short: "Re-run a query whenever the database changes",
		Long: `Print the query result, then print it again every time the package
database is replaced. Without keys every installed package is listed.`,
		Examples: []string{
			"watch",
			"watch -f providename webserver",
			"watch --count 1 bash",
		},
		Exec: func(ctx context.Context, o *IO, args []string) error {
			field, _ := fs.GetString("field")
			count, _ := fs.GetInt("count")

			return execWatch(ctx, o, cfg, field, args, count)
		},
	}
}

func execWatch(ctx context.Context, o *IO, cfg *Config, fieldName string, keys []string, count int) error {
	if count < 0 {
		return errors.New("--count must be non-negative")
	}

	field, err := rpm.ParseSearchField(fieldName)
	if err != nil {
		return err
	}

	dir, err := dbPath(cfg)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer watcher.Close()

	err = watcher.Add(dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	refresh := func() error {
		pkgs, err := snapshot(ctx, field, keys)
		if err != nil {
			return err
		}

		o.Println("# " + time.Now().Format(time.RFC3339))

		return printPackages(o, cfg.Format, pkgs)
	}

	err = refresh()
	if err != nil {
		return err
	}

	var settle <-chan time.Time

	for refreshes := 0; count == 0 || refreshes < count; {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Base(ev.Name) == librpm.DBFileName && ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				settle = time.After(watchSettle)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			return fmt.Errorf("watch %s: %w", dir, err)
		case <-settle:
			settle = nil
			refreshes++

			err := refresh()
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// snapshot returns the packages matching any of keys, or all packages when
// keys is empty.
func snapshot(ctx context.Context, field rpm.SearchField, keys []string) ([]rpm.Package, error) {
	if len(keys) == 0 {
		it, err := rpm.InstalledPackages()
		if err != nil {
			return nil, err
		}

		return it.Collect()
	}

	results, err := findAll(ctx, field, keys)
	if err != nil {
		return nil, err
	}

	var pkgs []rpm.Package
	for _, r := range results {
		pkgs = append(pkgs, r...)
	}

	return pkgs, nil
}
