package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/rpmkit/pkg/rpm"
)

// ShowRCCmd returns the showrc command.
func ShowRCCmd(cfg *Config) *Command {
	fs := flag.NewFlagSet("showrc", flag.ContinueOnError)
	fs.Bool("macros", true, "Include the macro table")

	return &Command{
		Flags: fs,
		Usage: "showrc [flags]",
		Short: "Show configuration, rpmrc values and macros",
		Long: `Show the effective rpmq configuration and which files it came from,
the rpmrc values the engine read and every macro with its level.`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			withMacros, _ := fs.GetBool("macros")

			return execShowRC(o, cfg, withMacros)
		},
	}
}

func execShowRC(o *IO, cfg *Config, withMacros bool) error {
	dir, err := dbPath(cfg)
	if err != nil {
		return err
	}

	o.Println("effective_cwd=" + cfg.EffectiveCwd)
	o.Println("dbpath=" + dir)
	o.Println("format=" + cfg.Format)

	if cfg.RCFile != "" {
		o.Println("rcfile=" + cfg.RCFile)
	}

	o.Println()
	o.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		o.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			o.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			o.Println("project_config=" + cfg.Sources.Project)
		}
	}

	vars := rpm.RCVars()
	if len(vars) > 0 {
		o.Println()
		o.Println("# rpmrc")

		for _, k := range slices.Sorted(maps.Keys(vars)) {
			o.Printf("%-20s: %s\n", k, vars[k])
		}
	}

	if !withMacros {
		return nil
	}

	o.Println()
	o.Println("# macros")

	for _, m := range rpm.DefaultMacroContext().Entries() {
		o.Println(fmt.Sprintf("%3d: %s\t%s", m.Level, m.Name, m.Body))
	}

	return nil
}
