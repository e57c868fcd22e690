package rpm

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/calvinalkan/rpmkit/internal/librpm"
)

// Macro levels, lowest first. Configuration files load at the negative
// levels; [SetDBPath] and most callers use LevelGlobal.
const (
	LevelDefault    = librpm.LevelDefault
	LevelMacroFiles = librpm.LevelMacroFiles
	LevelRPMRC      = librpm.LevelRPMRC
	LevelCmdline    = librpm.LevelCmdline
	LevelTarball    = librpm.LevelTarball
	LevelSpec       = librpm.LevelSpec
	LevelOldSpec    = librpm.LevelOldSpec
	LevelGlobal     = librpm.LevelGlobal
)

// Precedence decides which of two definitions of a name wins.
type Precedence = librpm.Precedence

const (
	// HigherLevelWins is the default: a definition replaces one at an equal
	// or lower level.
	HigherLevelWins = librpm.HigherLevelWins

	// LowerLevelWins makes a definition replace one at an equal or higher
	// level.
	LowerLevelWins = librpm.LowerLevelWins
)

// MacroEntry is the winning definition of one macro name.
type MacroEntry struct {
	Name  string
	Body  string
	Level int
}

// MacroContext is the engine's shared macro table. All contexts returned by
// [DefaultMacroContext] refer to the same table.
type MacroContext struct {
	state *globalState
}

// DefaultMacroContext returns the process-wide macro context.
func DefaultMacroContext() *MacroContext {
	return global().macros
}

// Define is shorthand for DefaultMacroContext().Define(spec, level).
func Define(spec string, level int) error {
	return DefaultMacroContext().Define(spec, level)
}

// SetDBPath points the engine at the package database in dir. It defines
// the _dbpath macro at LevelGlobal like any other definition.
func SetDBPath(dir string) error {
	return Define("_dbpath "+dir, LevelGlobal)
}

// SetMacroPrecedence changes which definition wins for later calls to
// Define. Existing entries are not re-evaluated.
func SetMacroPrecedence(p Precedence) {
	global().setPrecedence(p)
}

// Define adds a definition of the form "name body". The name ends at the
// first whitespace run; the rest of spec is the body.
//
// A definition that loses against an existing entry under the current
// [Precedence] is not an error; the table is left unchanged.
func (c *MacroContext) Define(spec string, level int) error {
	name, body, ok := splitMacroSpec(spec)
	if !ok || !librpm.ValidMacroName(name) {
		c.state.metrics.macroDefines.WithLabelValues("malformed").Inc()

		return &MacroError{Kind: ErrMalformedMacro, Name: spec}
	}

	c.state.mu.Lock()
	won, err := c.state.engine.DefineMacro(name, body, level)
	c.state.mu.Unlock()

	switch {
	case err != nil:
		c.state.metrics.macroDefines.WithLabelValues("malformed").Inc()

		return macroError(name, err)
	case !won:
		c.state.metrics.macroDefines.WithLabelValues("shadowed").Inc()
		logger().Debug("rpm: macro definition shadowed", slog.String("name", name), slog.Int("level", level))
	default:
		c.state.metrics.macroDefines.WithLabelValues("ok").Inc()
	}

	return nil
}

// Expand expands every macro reference in template.
func (c *MacroContext) Expand(template string) (string, error) {
	c.state.mu.Lock()
	out, err := c.state.engine.ExpandMacros(template)
	c.state.mu.Unlock()

	if err != nil {
		return "", macroError(template, err)
	}

	return out, nil
}

// Lookup returns the winning definition of name.
func (c *MacroContext) Lookup(name string) (MacroEntry, bool) {
	c.state.mu.Lock()
	m, ok := c.state.engine.Macro(name)
	c.state.mu.Unlock()

	return MacroEntry(m), ok
}

// Entries returns every definition sorted by name.
func (c *MacroContext) Entries() []MacroEntry {
	c.state.mu.Lock()
	ms := c.state.engine.Macros()
	c.state.mu.Unlock()

	out := make([]MacroEntry, len(ms))
	for i, m := range ms {
		out[i] = MacroEntry(m)
	}

	return out
}

func (s *globalState) setPrecedence(p Precedence) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.SetPrecedence(p)
}

// splitMacroSpec splits "name body" at the first whitespace run.
func splitMacroSpec(spec string) (string, string, bool) {
	i := strings.IndexFunc(spec, unicode.IsSpace)
	if i <= 0 {
		return "", "", false
	}

	body := strings.TrimLeftFunc(spec[i:], unicode.IsSpace)
	if body == "" {
		return "", "", false
	}

	return spec[:i], body, true
}
