package rpm

import (
	"sync"

	"github.com/calvinalkan/rpmkit/internal/librpm"
)

// engine is the slice of the native library this package drives. None of
// its methods may be entered concurrently; globalState serializes them.
type engine interface {
	ReadConfigFiles(files string) error
	DefineMacro(name, body string, level int) (bool, error)
	ExpandMacros(s string) (string, error)
	SetPrecedence(p librpm.Precedence)
	Macro(name string) (librpm.Macro, bool)
	Macros() []librpm.Macro
	RCVars() map[string]string
	InitIterator(tag librpm.Tag, key []byte) (cursor, error)
}

// cursor is an open engine query. Next returns io.EOF when exhausted. The
// header it returns is only valid until the next call.
type cursor interface {
	Next() (*librpm.Header, error)
	Free() error
}

// nativeEngine adapts *librpm.Library to engine.
type nativeEngine struct {
	*librpm.Library
}

func (e nativeEngine) InitIterator(tag librpm.Tag, key []byte) (cursor, error) {
	c, err := e.Library.InitIterator(tag, key)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// globalState is the process-wide guard around the engine.
//
// mu serializes every call into engine except cursor pulls, which touch
// only their own cursor. configured flips to true before the first
// configuration read reaches the engine and never flips back.
type globalState struct {
	mu         sync.Mutex
	configured bool
	engine     engine

	macros  *MacroContext
	metrics *metrics
}

func newState(e engine) *globalState {
	s := &globalState{engine: e, metrics: newMetrics()}
	s.macros = &MacroContext{state: s}

	return s
}

var global = sync.OnceValue(func() *globalState {
	return newState(nativeEngine{librpm.Default()})
})
