package cli

import (
	"context"
	"fmt"
	"path/filepath"

	flag "github.com/spf13/pflag"

	rpmfs "github.com/calvinalkan/rpmkit/internal/fs"
	"github.com/calvinalkan/rpmkit/pkg/rpm"
)

// ExportCmd returns the export command.
func ExportCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.String("out", "", "Write to `file` instead of stdout (replaced atomically)")

	return &Command{
		Flags: fs,
		Usage: "export [flags]",
		Short: "Export every installed package with all fields",
		Long: `Export every installed package in the configured format (json if the
format is text). With --out the file is replaced atomically, so readers
never see a partial export.`,
		Examples: []string{
			"export --out packages.json",
			"-o yaml export",
		},
		Exec: func(_ context.Context, o *IO, _ []string) error {
			out, _ := fs.GetString("out")

			return execExport(o, cfg, out)
		},
	}
}

func execExport(o *IO, cfg *Config, out string) error {
	format := cfg.Format
	if format == FormatText {
		format = FormatJSON
	}

	it, err := rpm.InstalledPackages()
	if err != nil {
		return err
	}

	pkgs, err := it.Collect()
	if err != nil {
		return err
	}

	data, err := encodePackages(format, pkgs)
	if err != nil {
		return err
	}

	if out == "" {
		_, err = o.Write(data)

		return err
	}

	if !filepath.IsAbs(out) {
		out = filepath.Join(cfg.EffectiveCwd, out)
	}

	err = rpmfs.NewReal().WriteFileAtomic(out, data)
	if err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	o.Printf("exported %d packages to %s\n", len(pkgs), out)

	return nil
}
