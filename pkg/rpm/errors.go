package rpm

import (
	"errors"
	"strconv"
	"strings"

	"github.com/calvinalkan/rpmkit/internal/librpm"
)

// Sentinel errors. Match them with [errors.Is]; the typed errors below
// carry them as their Kind.
var (
	// ErrAlreadyConfigured indicates [ReadFile] was already attempted in this
	// process. It is returned for every call after the first, whether or not
	// the first one succeeded.
	ErrAlreadyConfigured = errors.New("rpm: already configured")

	// ErrFileNotFound indicates the configuration file passed to [ReadFile]
	// does not exist. The engine was not touched.
	ErrFileNotFound = errors.New("rpm: config file not found")

	// ErrInvalidPath indicates a path that cannot be handed to the engine,
	// such as one containing a NUL byte.
	ErrInvalidPath = errors.New("rpm: invalid path")

	// ErrReadFailed indicates the engine failed to read its configuration.
	// The process stays configured; the read cannot be retried.
	ErrReadFailed = errors.New("rpm: reading config failed")

	// ErrMalformedMacro indicates a definition that does not split into a
	// legal name and a non-empty body.
	ErrMalformedMacro = errors.New("rpm: malformed macro")

	// ErrUndefinedMacro indicates an expansion referenced an undefined macro.
	ErrUndefinedMacro = errors.New("rpm: undefined macro")

	// ErrExpansionCycle indicates a macro refers back to itself.
	ErrExpansionCycle = errors.New("rpm: macro expansion cycle")

	// ErrExpansionLimit indicates an expansion nested too deeply or grew too
	// large, such as a chain of macros that each double the previous one.
	ErrExpansionLimit = errors.New("rpm: macro expansion limit exceeded")

	// ErrInvalidKey indicates a search key the engine cannot represent,
	// such as one containing a NUL byte.
	ErrInvalidKey = errors.New("rpm: invalid search key")

	// ErrQueryFailed indicates the engine failed to open or advance a
	// database cursor.
	ErrQueryFailed = errors.New("rpm: query failed")

	// ErrStaleRecord indicates a [Record] was used after its iterator moved
	// on or was closed.
	ErrStaleRecord = errors.New("rpm: stale record")
)

// ConfigError is returned by [ReadFile].
//
//	var cErr *rpm.ConfigError
//	if errors.As(err, &cErr) && cErr.HasPath {
//	    fmt.Println("bad config file", cErr.Path)
//	}
type ConfigError struct {
	// Kind is one of ErrAlreadyConfigured, ErrFileNotFound, ErrInvalidPath
	// or ErrReadFailed.
	Kind error

	// Path is the file that was passed to ReadFile, if any.
	Path    string
	HasPath bool

	// Err is the engine's error for ErrReadFailed.
	Err error
}

func (e *ConfigError) Error() string {
	var b strings.Builder

	b.WriteString(e.Kind.Error())

	if e.HasPath {
		b.WriteString(" (path=" + strconv.Quote(e.Path) + ")")
	}

	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}

	return b.String()
}

func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// MacroError is returned by macro definition and expansion.
type MacroError struct {
	// Kind is one of ErrMalformedMacro, ErrUndefinedMacro or
	// ErrExpansionCycle.
	Kind error

	// Name is the macro involved. For a malformed definition it is the
	// whole definition.
	Name string

	Err error
}

func (e *MacroError) Error() string {
	msg := e.Kind.Error() + ": " + strconv.Quote(e.Name)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *MacroError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// macroError translates an engine macro failure. Errors the engine does not
// classify are returned unchanged.
func macroError(name string, err error) error {
	var kind error

	switch {
	case errors.Is(err, librpm.ErrBadMacro):
		kind = ErrMalformedMacro
	case errors.Is(err, librpm.ErrUndefinedMacro):
		kind = ErrUndefinedMacro
	case errors.Is(err, librpm.ErrMacroCycle):
		kind = ErrExpansionCycle
	case errors.Is(err, librpm.ErrMacroLimit):
		kind = ErrExpansionLimit
	default:
		return err
	}

	var lErr *librpm.MacroError
	if errors.As(err, &lErr) {
		name = lErr.Name
	}

	return &MacroError{Kind: kind, Name: name, Err: err}
}

// QueryError is returned when a query cannot be opened or fails mid-way.
type QueryError struct {
	Field SearchField

	// Key is the search key; HasKey is false for [InstalledPackages].
	Key    string
	HasKey bool

	// Err wraps ErrInvalidKey or ErrQueryFailed.
	Err error
}

func (e *QueryError) Error() string {
	msg := e.Err.Error() + " (field=" + e.Field.String()
	if e.HasKey {
		msg += " key=" + strconv.Quote(e.Key)
	}

	return msg + ")"
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
