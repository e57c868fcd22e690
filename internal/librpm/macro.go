package librpm

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Macro levels. A definition's level says which scope it came from; see
// [Precedence] for how levels decide between competing definitions.
const (
	LevelDefault    = -15
	LevelMacroFiles = -13
	LevelRPMRC      = -11
	LevelCmdline    = -7
	LevelTarball    = -5
	LevelSpec       = -3
	LevelOldSpec    = -1
	LevelGlobal     = 0
)

// Precedence decides whether a new definition replaces an existing one.
type Precedence int

const (
	// HigherLevelWins lets a definition replace one at an equal or lower
	// level. Global (0) beats everything loaded from configuration files.
	HigherLevelWins Precedence = iota

	// LowerLevelWins lets a definition replace one at an equal or higher
	// level.
	LowerLevelWins
)

func (p Precedence) String() string {
	switch p {
	case HigherLevelWins:
		return "higher-level-wins"
	case LowerLevelWins:
		return "lower-level-wins"
	default:
		return fmt.Sprintf("Precedence(%d)", int(p))
	}
}

func (p Precedence) replaces(newLevel, oldLevel int) bool {
	if p == LowerLevelWins {
		return newLevel <= oldLevel
	}

	return newLevel >= oldLevel
}

// Macro is one winning definition in the macro table.
type Macro struct {
	Name  string
	Body  string
	Level int
}

type macroTable struct {
	entries    map[string]Macro
	precedence Precedence
}

func newMacroTable() macroTable {
	return macroTable{entries: make(map[string]Macro)}
}

// ValidMacroName reports whether name is a legal macro name: a letter or
// underscore followed by letters, digits or underscores, at least three
// characters long.
func ValidMacroName(name string) bool {
	if len(name) < 3 || !isNameStart(name[0]) {
		return false
	}

	for i := 1; i < len(name); i++ {
		if !isNameChar(name[i]) {
			return false
		}
	}

	return true
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// define stores name unless an existing entry outranks level. It reports
// whether the table changed.
func (t *macroTable) define(name, body string, level int) (bool, error) {
	if !ValidMacroName(name) {
		return false, &MacroError{Name: name, Err: fmt.Errorf("%w: illegal name", ErrBadMacro)}
	}

	if body == "" {
		return false, &MacroError{Name: name, Err: fmt.Errorf("%w: empty body", ErrBadMacro)}
	}

	if old, ok := t.entries[name]; ok && !t.precedence.replaces(level, old.Level) {
		return false, nil
	}

	t.entries[name] = Macro{Name: name, Body: body, Level: level}

	return true, nil
}

func (t *macroTable) sorted() []Macro {
	out := make([]Macro, 0, len(t.entries))
	for _, name := range slices.Sorted(maps.Keys(t.entries)) {
		out = append(out, t.entries[name])
	}

	return out
}

// Expansion limits. Depth matches rpm's own recursion limit.
const (
	MaxMacroDepth     = 64
	MaxMacroExpansion = 1 << 20
)

func (t *macroTable) expand(s string) (string, error) {
	var b strings.Builder

	err := t.expandInto(&b, s, nil)
	if err != nil {
		return "", err
	}

	return b.String(), nil
}

// expandInto writes the expansion of s to b. stack holds the names whose
// bodies are currently being expanded.
func (t *macroTable) expandInto(b *strings.Builder, s string, stack []string) error {
	for {
		i := strings.IndexByte(s, '%')
		if i < 0 || i == len(s)-1 {
			b.WriteString(s)
			return nil
		}

		b.WriteString(s[:i])
		s = s[i+1:]

		switch c := s[0]; {
		case c == '%':
			b.WriteByte('%')
			s = s[1:]
		case c == '{':
			end := matchingBrace(s)
			if end < 0 {
				return fmt.Errorf("%w: unterminated %%{ in %q", ErrBadMacro, s)
			}

			err := t.expandBraced(b, s[1:end], stack)
			if err != nil {
				return err
			}

			s = s[end+1:]
		case isNameStart(c):
			n := 1
			for n < len(s) && isNameChar(s[n]) {
				n++
			}

			name := s[:n]
			s = s[n:]

			// Short names are not macros (think printf verbs); keep them.
			if len(name) < 3 {
				b.WriteByte('%')
				b.WriteString(name)

				continue
			}

			err := t.expandName(b, name, stack)
			if err != nil {
				return err
			}
		default:
			// Shell, lua and expression forms are left untouched.
			b.WriteByte('%')
		}
	}
}

// expandBraced handles the inside of %{...}: plain names and the ?/!?
// conditional forms.
func (t *macroTable) expandBraced(b *strings.Builder, inner string, stack []string) error {
	var conditional, negate bool

	for len(inner) > 0 && (inner[0] == '?' || inner[0] == '!') {
		if inner[0] == '?' {
			conditional = true
		} else {
			negate = true
		}

		inner = inner[1:]
	}

	name, text, hasText := strings.Cut(inner, ":")

	if !conditional {
		if hasText || negate {
			// Builtins such as %{expand:...} are not supported.
			b.WriteString("%{" + inner + "}")

			return nil
		}

		return t.expandName(b, name, stack)
	}

	_, defined := t.entries[name]

	switch {
	case hasText && defined != negate:
		return t.expandInto(b, text, stack)
	case !hasText && defined && !negate:
		return t.expandName(b, name, stack)
	default:
		return nil
	}
}

func (t *macroTable) expandName(b *strings.Builder, name string, stack []string) error {
	m, ok := t.entries[name]
	if !ok {
		return &MacroError{Name: name, Err: ErrUndefinedMacro}
	}

	if slices.Contains(stack, name) {
		return &MacroError{Name: name, Err: fmt.Errorf("%w via %s", ErrMacroCycle, strings.Join(append(stack, name), " -> "))}
	}

	if len(stack) >= MaxMacroDepth {
		return &MacroError{Name: name, Err: fmt.Errorf("%w: more than %d levels", ErrMacroLimit, MaxMacroDepth)}
	}

	err := t.expandInto(b, m.Body, append(stack, name))
	if err != nil {
		return err
	}

	if b.Len() > MaxMacroExpansion {
		return &MacroError{Name: name, Err: fmt.Errorf("%w: more than %d bytes", ErrMacroLimit, MaxMacroExpansion)}
	}

	return nil
}

// matchingBrace returns the index of the brace closing s[0], or -1.
func matchingBrace(s string) int {
	depth := 0

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}
