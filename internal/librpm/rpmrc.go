package librpm

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Default search lists, colon separated like the macrofiles rpmrc entry.
const (
	DefaultRCFiles    = "/usr/lib/rpm/rpmrc:/etc/rpmrc:~/.rpmrc"
	DefaultMacroFiles = "/usr/lib/rpm/macros:/usr/lib/rpm/macros.d/macros.*:/etc/rpm/macros.*:/etc/rpm/macros:~/.rpmmacros"
)

// maxIncludeDepth stops include: loops between rpmrc files.
const maxIncludeDepth = 8

// builtinMacros are defined at LevelDefault on every configuration read.
var builtinMacros = []Macro{
	{Name: "_usr", Body: "/usr"},
	{Name: "_var", Body: "/var"},
	{Name: "_prefix", Body: "%{_usr}"},
	{Name: "_sysconfdir", Body: "/etc"},
	{Name: "_localstatedir", Body: "%{_var}"},
	{Name: "_rpmconfigdir", Body: "%{_usr}/lib/rpm"},
	{Name: "_dbpath", Body: "%{_var}/lib/rpm"},
	{Name: "_rpmlock_path", Body: "%{_dbpath}/.rpm.lock"},
}

// readConfig loads builtin macros, the rpmrc files in list and then every
// macro file named by the rpmrc macrofiles entry. An empty list means the
// default search path, in which missing files are skipped.
func (l *Library) readConfig(list string) error {
	for _, m := range builtinMacros {
		_, err := l.macros.define(m.Name, m.Body, LevelDefault)
		if err != nil {
			return err
		}
	}

	optional := list == ""
	if optional {
		list = l.opts.RCFiles
	}

	for _, file := range splitPathList(list) {
		err := l.readRCFile(file, 0)
		if err == nil {
			continue
		}

		if optional && errors.Is(err, ErrNoConfigFile) {
			continue
		}

		return err
	}

	for _, pattern := range splitPathList(l.macroFiles) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("%w: macrofiles pattern %q: %w", ErrBadConfig, pattern, err)
		}

		for _, file := range matches {
			err := l.readMacroFile(file)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (l *Library) readRCFile(path string, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("%w: %s: include nesting too deep", ErrBadConfig, path)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNoConfigFile, path)
		}

		return fmt.Errorf("%w: %w", ErrBadConfig, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return fmt.Errorf("%w: %s:%d: missing ':' separator", ErrBadConfig, path, lineNo)
		}

		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "":
			return fmt.Errorf("%w: %s:%d: empty key", ErrBadConfig, path, lineNo)
		case "include":
			err := l.readRCFile(expandHome(value), depth+1)
			if err != nil {
				return err
			}
		case "macrofiles":
			l.macroFiles = value
		default:
			l.rcVars[key] = value
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBadConfig, path, err)
	}

	return nil
}

// readMacroFile loads "%name body" definitions. A trailing backslash
// continues the body on the next line. Lines that are not definitions are
// ignored, as are definitions the table rejects.
func (l *Library) readMacroFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadConfig, err)
	}

	lines := strings.Split(string(data), "\n")

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		for strings.HasSuffix(line, "\\") && i+1 < len(lines) {
			i++
			line = strings.TrimSuffix(line, "\\") + "\n" + lines[i]
		}

		name, body, ok := parseMacroLine(line)
		if !ok {
			continue
		}

		_, _ = l.macros.define(name, body, LevelMacroFiles)
	}

	return nil
}

func parseMacroLine(line string) (string, string, bool) {
	line = strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(line, "%") {
		return "", "", false
	}

	line = line[1:]

	n := 0
	for n < len(line) && isNameChar(line[n]) {
		n++
	}

	name, rest := line[:n], line[n:]

	// Parametric macros: the option string is not kept.
	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return "", "", false
		}

		rest = rest[end+1:]
	}

	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", "", false
	}

	return name, strings.TrimSpace(rest), true
}

func splitPathList(list string) []string {
	var out []string

	for p := range strings.SplitSeq(list, ":") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, expandHome(p))
		}
	}

	return out
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}

	return filepath.Join(home, p[2:])
}
