// Package librpm is the package-database engine: configuration files, the
// macro table and read cursors over an sqlite package database.
//
// Like the C library it stands in for, a [Library] keeps mutable state that
// is shared by every caller and none of its entry points are reentrant.
// Calling ReadConfigFiles, DefineMacro, ExpandMacros, the macro listings or
// InitIterator while another of those calls is in flight panics, and so does
// reading the configuration a second time. Callers are expected to serialize
// access themselves; package rpm does.
//
// Cursors returned by InitIterator are independent of the library lock once
// open: Next and Free may run concurrently with library calls, but a single
// cursor must not be used from two goroutines at once.
package librpm

import (
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Options configure a [Library].
type Options struct {
	// RCFiles is the colon separated rpmrc search list used when
	// ReadConfigFiles is called without an explicit file.
	RCFiles string

	// MacroFiles is the macro file list used unless an rpmrc file sets
	// macrofiles. Entries may be glob patterns.
	MacroFiles string

	// LockTimeout bounds how long a cursor or writer waits for the database
	// lock file.
	LockTimeout time.Duration
}

// DefaultLockTimeout is used when Options.LockTimeout is zero.
const DefaultLockTimeout = 10 * time.Second

// DefaultOptions returns the search paths of a stock installation.
func DefaultOptions() Options {
	return Options{
		RCFiles:     DefaultRCFiles,
		MacroFiles:  DefaultMacroFiles,
		LockTimeout: DefaultLockTimeout,
	}
}

// Library is one instance of the engine's global state.
type Library struct {
	opts Options

	busy       atomic.Int32
	configured bool

	macros     macroTable
	macroFiles string
	rcVars     map[string]string

	dbs map[string]*sql.DB

	openCursors atomic.Int64
}

var defaultLibrary = sync.OnceValue(func() *Library {
	return New(DefaultOptions())
})

// Default returns the process-wide library.
func Default() *Library {
	return defaultLibrary()
}

// New returns an independent library. Production code uses [Default]; tests
// use New to get a fresh, unconfigured engine.
func New(opts Options) *Library {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}

	return &Library{
		opts:       opts,
		macros:     newMacroTable(),
		macroFiles: opts.MacroFiles,
		rcVars:     make(map[string]string),
		dbs:        make(map[string]*sql.DB),
	}
}

// enter marks the library busy for the duration of op. The returned func
// must be deferred.
func (l *Library) enter(op string) func() {
	if !l.busy.CompareAndSwap(0, 1) {
		panic("librpm: " + op + " entered while another library call is in flight")
	}

	return func() { l.busy.Store(0) }
}

// ReadConfigFiles initializes the library from a colon separated list of
// rpmrc files, or from the default search list when files is empty.
//
// It must be called at most once per library, whatever its outcome: the
// second call panics because crypto initialization cannot run twice.
func (l *Library) ReadConfigFiles(files string) error {
	defer l.enter("rpmReadConfigFiles")()

	if l.configured {
		panic("librpm: rpmReadConfigFiles: crypto already initialized")
	}

	l.configured = true

	return l.readConfig(files)
}

// DefineMacro adds name to the macro table at level. It reports whether the
// definition won against an existing one.
func (l *Library) DefineMacro(name, body string, level int) (bool, error) {
	defer l.enter("rpmDefineMacro")()

	return l.macros.define(name, body, level)
}

// ExpandMacros expands every macro reference in s.
func (l *Library) ExpandMacros(s string) (string, error) {
	defer l.enter("rpmExpandMacros")()

	return l.macros.expand(s)
}

// SetPrecedence changes the override rule used by later definitions.
func (l *Library) SetPrecedence(p Precedence) {
	defer l.enter("rpmSetMacroPrecedence")()

	l.macros.precedence = p
}

// Macro returns the winning definition of name.
func (l *Library) Macro(name string) (Macro, bool) {
	defer l.enter("rpmGetMacro")()

	m, ok := l.macros.entries[name]

	return m, ok
}

// Macros returns all definitions sorted by name.
func (l *Library) Macros() []Macro {
	defer l.enter("rpmDumpMacroTable")()

	return l.macros.sorted()
}

// RCVars returns a copy of the rpmrc variables that were read.
func (l *Library) RCVars() map[string]string {
	defer l.enter("rpmShowRC")()

	return maps.Clone(l.rcVars)
}

// OpenCursors returns the number of cursors that have not been freed.
func (l *Library) OpenCursors() int64 {
	return l.openCursors.Load()
}

// Close releases cached database handles. Cursors must be freed first.
func (l *Library) Close() error {
	defer l.enter("rpmFreeRpmrc")()

	var errs []error

	for path, db := range l.dbs {
		err := db.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}

		delete(l.dbs, path)
	}

	return errors.Join(errs...)
}
