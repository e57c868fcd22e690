package librpm

import "errors"

// Errors returned by the library. Callers match them with [errors.Is].
var (
	// ErrCorruptHeader indicates a header blob whose index or data store
	// does not line up.
	ErrCorruptHeader = errors.New("librpm: corrupt header")

	// ErrBadConfig indicates an rpmrc or macro file that could not be parsed.
	ErrBadConfig = errors.New("librpm: bad config")

	// ErrNoConfigFile indicates an explicitly named rpmrc file is missing.
	ErrNoConfigFile = errors.New("librpm: config file not found")

	// ErrBadMacro indicates a macro definition with an illegal name or an
	// empty body.
	ErrBadMacro = errors.New("librpm: bad macro definition")

	// ErrUndefinedMacro indicates an expansion referenced a macro that is
	// not defined.
	ErrUndefinedMacro = errors.New("librpm: undefined macro")

	// ErrMacroCycle indicates a macro expands (directly or indirectly) to
	// itself.
	ErrMacroCycle = errors.New("librpm: recursive macro expansion")

	// ErrMacroLimit indicates an expansion nested deeper than MaxMacroDepth
	// or produced more than MaxMacroExpansion bytes.
	ErrMacroLimit = errors.New("librpm: macro expansion limit exceeded")

	// ErrNoDatabase indicates no package database exists at the expanded
	// %_dbpath.
	ErrNoDatabase = errors.New("librpm: no package database")

	// ErrDatabase wraps sqlite and locking failures.
	ErrDatabase = errors.New("librpm: database error")

	// ErrCursorFreed indicates Next was called after Free.
	ErrCursorFreed = errors.New("librpm: cursor already freed")
)

// MacroError carries the macro name involved in an expansion or definition
// failure.
type MacroError struct {
	Name string
	Err  error
}

func (e *MacroError) Error() string {
	return e.Err.Error() + ": %" + e.Name
}

func (e *MacroError) Unwrap() error {
	return e.Err
}
