package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/rpmkit/pkg/rpm"
)

// ShellCmd returns the interactive shell command.
func ShellCmd(cfg *Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Short: "Interactive query shell",
		Long: `Start an interactive shell. Macro definitions persist for the session.
Type 'help' for available commands. Reads commands from stdin line by line
when stdin is not a terminal.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return execShell(ctx, o, cfg)
		},
	}
}

// lineReader is the shell's input: liner on a terminal, a plain scanner
// otherwise.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

type scanReader struct {
	sc *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}

	if err := r.sc.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

func (*scanReader) AppendHistory(string) {}

func (*scanReader) Close() error { return nil }

var shellCommands = []string{"query", "list", "eval", "define", "showrc", "metrics", "help", "quit"}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".rpmq_history")
}

func newLineReader(in io.Reader) (lineReader, func()) {
	if in != os.Stdin || !liner.TerminalSupported() {
		if in == nil {
			in = strings.NewReader("")
		}

		return &scanReader{sc: bufio.NewScanner(in)}, func() {}
	}

	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(func(line string) []string {
		var out []string

		for _, c := range shellCommands {
			if strings.HasPrefix(c, line) {
				out = append(out, c)
			}
		}

		return out
	})

	path := historyFile()
	if f, err := os.Open(path); err == nil {
		_, _ = state.ReadHistory(f)
		_ = f.Close()
	}

	saveHistory := func() {
		if path == "" {
			return
		}

		if f, err := os.Create(path); err == nil {
			_, _ = state.WriteHistory(f)
			_ = f.Close()
		}
	}

	return state, saveHistory
}

func execShell(ctx context.Context, o *IO, cfg *Config) error {
	r, saveHistory := newLineReader(o.in)
	defer func() { _ = r.Close() }()
	defer saveHistory()

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := r.Prompt("rpmq> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r.AppendHistory(line)

		if line == "quit" || line == "exit" {
			return nil
		}

		// Each line gets its own IO so warnings are reported per command.
		lineIO := NewIO(nil, o.out, o.errOut)

		err = shellLine(ctx, lineIO, cfg, line)
		if err != nil {
			lineIO.ErrPrintln("error:", err)
		}

		lineIO.Finish()
	}
}

func shellLine(ctx context.Context, o *IO, cfg *Config, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "query":
		args := strings.Fields(rest)
		if len(args) < 2 {
			return errors.New("usage: query <field> <key>...")
		}

		return execQuery(ctx, o, cfg, args[0], args[1:])
	case "list":
		return execList(ctx, o, cfg, 0)
	case "eval":
		out, err := rpm.DefaultMacroContext().Expand(rest)
		if err != nil {
			return err
		}

		o.Println(out)

		return nil
	case "define":
		return rpm.Define(rest, rpm.LevelGlobal)
	case "showrc":
		return execShowRC(o, cfg, true)
	case "metrics":
		return writeMetrics(o)
	case "help":
		o.Println("Commands:")
		o.Println("  query <field> <key>...   Find packages (fields: " + fieldNames() + ")")
		o.Println("  list                     List all packages")
		o.Println("  eval <expr>              Expand macros")
		o.Println("  define <name> <body>     Define a macro at the global level")
		o.Println("  showrc                   Show configuration and macros")
		o.Println("  metrics                  Show engine metrics")
		o.Println("  quit                     Leave the shell")

		return nil
	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
}
