package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/rpmkit/internal/librpm"
)

// Manifest is the input format of initdb. JSON is accepted too, being a
// subset of YAML.
//
//	packages:
//	  - name: foo
//	    version: "1.0"
//	    release: "1"
//	    files: [/usr/bin/foo]
type Manifest struct {
	Packages []librpm.PackageSpec `yaml:"packages"`
}

// InitDBCmd returns the initdb command.
func InitDBCmd(cfg *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("initdb", flag.ContinueOnError),
		Usage: "initdb <manifest|->",
		Short: "Create a package database from a YAML manifest",
		Long: `Create (or replace) the package database in the configured dbpath from
a YAML manifest listing packages. Use - to read the manifest from stdin.
Running queries keep the old database until they finish.`,
		Examples: []string{
			"--dbpath ./db initdb packages.yaml",
			"export -o yaml | rpmq --dbpath ./copy initdb -",
		},
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("exactly one manifest is required")
			}

			return execInitDB(o, cfg, args[0])
		},
	}
}

func execInitDB(o *IO, cfg *Config, source string) error {
	data, err := readManifest(o, cfg, source)
	if err != nil {
		return err
	}

	var m Manifest

	err = yaml.Unmarshal(data, &m)
	if err != nil {
		return fmt.Errorf("parse manifest %s: %w", source, err)
	}

	dir, err := dbPath(cfg)
	if err != nil {
		return err
	}

	err = librpm.CreateDatabase(dir, m.Packages)
	if err != nil {
		return err
	}

	o.Printf("wrote %d packages to %s\n", len(m.Packages), filepath.Join(dir, librpm.DBFileName))

	return nil
}

func readManifest(o *IO, cfg *Config, source string) ([]byte, error) {
	if source == "-" {
		if o.in == nil {
			return nil, errors.New("no stdin to read the manifest from")
		}

		return io.ReadAll(o.in)
	}

	if !filepath.IsAbs(source) {
		source = filepath.Join(cfg.EffectiveCwd, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return data, nil
}
