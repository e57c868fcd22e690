package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/rpmkit/pkg/rpm"
)

// Run is the main entry point. Returns exit code.
//
// Every invocation in a process shares the engine's global state: the
// first one reads the rpmrc files, later ones only add definitions.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("rpmq", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(io.Discard)

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	dbPath := globals.String("dbpath", "", "Package database `dir` (defines _dbpath)")
	rcFile := globals.String("rcfile", "", "Colon separated rpmrc `files`")
	format := globals.StringP("format", "o", "", "Output format: text, json or yaml")
	defines := globals.StringArrayP("define", "D", nil, "Define macro, e.g. -D '_vendor acme'")
	verbose := globals.BoolP("verbose", "v", false, "Log engine activity to stderr")
	help := globals.BoolP("help", "h", false, "Show help")

	var rest []string
	if len(args) > 1 {
		err := globals.Parse(args[1:])
		if err != nil {
			fprintln(errOut, "error:", err)
			printUsage(errOut, globals, nil)

			return 1
		}

		rest = globals.Args()
	}

	cfg, err := LoadConfig(LoadConfigInput{
		WorkDirOverride: *workDir,
		ConfigPath:      *configPath,
		Overrides:       Config{DBPath: *dbPath, RCFile: *rcFile, Format: *format, Defines: *defines},
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	commands := allCommands(&cfg)

	if *help || len(rest) == 0 {
		printUsage(out, globals, commands)

		return 0
	}

	cmd := findCommand(commands, rest[0])
	if cmd == nil {
		fprintln(errOut, "error: unknown command:", rest[0])
		printUsage(errOut, globals, commands)

		return 1
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}

	rpm.SetLogger(slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level})))

	err = setupEngine(&cfg)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	return cmd.Run(ctx, NewIO(in, out, errOut), rest[1:])
}

func allCommands(cfg *Config) []*Command {
	return []*Command{
		QueryCmd(cfg),
		ListCmd(cfg),
		EvalCmd(cfg),
		ShowRCCmd(cfg),
		ShellCmd(cfg),
		WatchCmd(cfg),
		InitDBCmd(cfg),
		ExportCmd(cfg),
		MetricsCmd(),
	}
}

// setupEngine applies the configured macros and database path, then reads
// the rpmrc files. A process that already read them keeps its
// configuration; that is not an error.
func setupEngine(cfg *Config) error {
	for _, d := range cfg.Defines {
		err := rpm.Define(d, rpm.LevelCmdline)
		if err != nil {
			return fmt.Errorf("--define: %w", err)
		}
	}

	if cfg.DBPathAbs != "" {
		err := rpm.SetDBPath(cfg.DBPathAbs)
		if err != nil {
			return fmt.Errorf("--dbpath: %w", err)
		}
	}

	err := rpm.ReadFile(cfg.RCFile)
	if err != nil && !errors.Is(err, rpm.ErrAlreadyConfigured) {
		return err
	}

	return nil
}

// dbPath returns the database directory the engine will open.
func dbPath(cfg *Config) (string, error) {
	if cfg.DBPathAbs != "" {
		return cfg.DBPathAbs, nil
	}

	return rpm.DefaultMacroContext().Expand("%{_dbpath}")
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}
