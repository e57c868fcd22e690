package rpm

import (
	"errors"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/calvinalkan/rpmkit/internal/librpm"
	"github.com/calvinalkan/rpmkit/internal/testutil"
)

// newNativeState returns a private guard over a fresh engine whose %_dbpath
// points at a database holding specs. Host rpm configuration is never read.
func newNativeState(t *testing.T, specs ...librpm.PackageSpec) *globalState {
	t.Helper()

	lib := librpm.New(librpm.Options{RCFiles: filepath.Join(t.TempDir(), "no-rpmrc")})
	t.Cleanup(func() { _ = lib.Close() })

	s := newState(nativeEngine{lib})

	if len(specs) > 0 {
		dir := testutil.NewDB(t, specs...)

		err := s.macros.Define("_dbpath "+dir, LevelGlobal)
		if err != nil {
			t.Fatalf("define _dbpath: %v", err)
		}
	}

	return s
}

// countingEngine is an in-memory engine that records every call and every
// cursor it hands out.
type countingEngine struct {
	headers [][]byte

	readErr error
	freeErr error
	nextErr error

	reads   atomic.Int32
	opened  atomic.Int32
	inCall  atomic.Int32
	overlap atomic.Bool

	mu      sync.Mutex
	cursors []*countingCursor
	macros  map[string]librpm.Macro
}

func newCountingEngine(t *testing.T, specs ...librpm.PackageSpec) *countingEngine {
	t.Helper()

	e := &countingEngine{macros: make(map[string]librpm.Macro)}

	for _, spec := range specs {
		blob, err := spec.Encode()
		if err != nil {
			t.Fatalf("encode %s: %v", spec.Name, err)
		}

		e.headers = append(e.headers, blob)
	}

	return e
}

func (e *countingEngine) enter() func() {
	if e.inCall.Add(1) > 1 {
		e.overlap.Store(true)
	}

	return func() { e.inCall.Add(-1) }
}

func (e *countingEngine) ReadConfigFiles(string) error {
	defer e.enter()()

	e.reads.Add(1)

	return e.readErr
}

func (e *countingEngine) DefineMacro(name, body string, level int) (bool, error) {
	defer e.enter()()

	if !librpm.ValidMacroName(name) {
		return false, &librpm.MacroError{Name: name, Err: librpm.ErrBadMacro}
	}

	e.macros[name] = librpm.Macro{Name: name, Body: body, Level: level}

	return true, nil
}

func (e *countingEngine) ExpandMacros(s string) (string, error) {
	defer e.enter()()

	return s, nil
}

func (e *countingEngine) SetPrecedence(librpm.Precedence) {
	defer e.enter()()
}

func (e *countingEngine) Macro(name string) (librpm.Macro, bool) {
	defer e.enter()()

	m, ok := e.macros[name]

	return m, ok
}

func (e *countingEngine) Macros() []librpm.Macro {
	defer e.enter()()

	return nil
}

func (e *countingEngine) RCVars() map[string]string {
	defer e.enter()()

	return nil
}

func (e *countingEngine) InitIterator(tag librpm.Tag, key []byte) (cursor, error) {
	defer e.enter()()

	e.opened.Add(1)

	c := &countingCursor{engine: e, tag: tag, key: key, filter: key != nil}

	e.mu.Lock()
	e.cursors = append(e.cursors, c)
	e.mu.Unlock()

	return c, nil
}

func (e *countingEngine) freed() (total, double int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, c := range e.cursors {
		n := int(c.frees.Load())
		if n > 0 {
			total++
		}

		if n > 1 {
			double++
		}
	}

	return total, double
}

// countingCursor reuses one Header for every record, like the native one.
type countingCursor struct {
	engine *countingEngine
	tag    librpm.Tag
	key    []byte
	filter bool

	pos   int
	buf   []byte
	hdr   *librpm.Header
	frees atomic.Int32
}

func (c *countingCursor) Next() (*librpm.Header, error) {
	if c.frees.Load() > 0 {
		return nil, librpm.ErrCursorFreed
	}

	for c.pos < len(c.engine.headers) {
		if c.pos == 1 && c.engine.nextErr != nil {
			return nil, c.engine.nextErr
		}

		// Copy into a shared buffer and scribble over the previous record
		// so that anything still pointing into it would see garbage.
		for i := range c.buf {
			c.buf[i] = 0xff
		}

		c.buf = append(c.buf[:0], c.engine.headers[c.pos]...)
		c.pos++

		h, err := librpm.ParseHeader(c.buf)
		if err != nil {
			return nil, err
		}

		if c.filter && !h.Matches(c.tag, c.key) {
			continue
		}

		c.hdr = h

		return h, nil
	}

	return nil, io.EOF
}

func (c *countingCursor) Free() error {
	c.frees.Add(1)

	return c.engine.freeErr
}

var errFake = errors.New("fake engine failure")
