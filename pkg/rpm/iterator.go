package rpm

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/calvinalkan/rpmkit/internal/librpm"
)

// MatchIterator walks the records matching one query, once.
//
// Iteration is lazy: each call to Next pulls one record from the engine.
// After Next returns false it keeps returning false. A MatchIterator must
// not be used from two goroutines at once, but distinct iterators may be
// pulled concurrently.
type MatchIterator struct {
	handle  *cursorHandle
	cleanup runtime.Cleanup

	field SearchField
	key   *string

	hdr  *librpm.Header
	gen  uint64
	done bool
	err  error
}

// cursorHandle owns one engine cursor and frees it exactly once. It is
// kept apart from MatchIterator so that a cleanup attached to the iterator
// can reach it.
type cursorHandle struct {
	id       string
	cursor   cursor
	metrics  *metrics
	released atomic.Bool
}

func (h *cursorHandle) release(reason string) {
	if !h.released.CompareAndSwap(false, true) {
		return
	}

	h.metrics.cursorsReleased.Inc()
	h.metrics.cursorsOpen.Dec()

	err := h.cursor.Free()
	if err != nil {
		h.metrics.releaseFailures.Inc()
		logger().Warn("rpm: releasing cursor failed",
			slog.String("cursor", h.id), slog.String("reason", reason), slog.Any("error", err))

		return
	}

	logger().Debug("rpm: cursor released", slog.String("cursor", h.id), slog.String("reason", reason))
}

// openIterator opens a cursor over the records whose field equals *key, or
// over every record when key is nil. Cursor creation is serialized with
// every other engine call; pulls are not.
func (s *globalState) openIterator(field SearchField, key *string) (*MatchIterator, error) {
	queryErr := func(err error) error {
		qe := &QueryError{Field: field, Err: err}
		if key != nil {
			qe.Key, qe.HasKey = *key, true
		}

		return qe
	}

	if !field.valid() {
		return nil, queryErr(fmt.Errorf("%w: unknown field %d", ErrQueryFailed, int(field)))
	}

	var k []byte

	if key != nil {
		if strings.IndexByte(*key, 0) >= 0 {
			return nil, queryErr(fmt.Errorf("%w: key contains a NUL byte", ErrInvalidKey))
		}

		k = []byte(*key)
	}

	s.mu.Lock()
	c, err := s.engine.InitIterator(field.Tag(), k)
	s.mu.Unlock()

	if err != nil {
		return nil, queryErr(fmt.Errorf("%w: %w", ErrQueryFailed, err))
	}

	h := &cursorHandle{id: uuid.NewString(), cursor: c, metrics: s.metrics}
	s.metrics.cursorsOpened.Inc()
	s.metrics.cursorsOpen.Inc()

	it := &MatchIterator{handle: h, field: field, key: key}
	it.cleanup = runtime.AddCleanup(it, func(h *cursorHandle) { h.release("unreachable") }, h)

	logger().Debug("rpm: cursor opened", slog.String("cursor", h.id), slog.String("field", field.String()))

	return it, nil
}

// Next advances to the next record. It returns false when the query is
// exhausted or failed; check [MatchIterator.Err] to tell them apart.
func (it *MatchIterator) Next() bool {
	if it.done {
		return false
	}

	it.gen++

	hdr, err := it.handle.cursor.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			it.err = it.queryError(err)
			it.finish("error")
		} else {
			it.finish("exhausted")
		}

		return false
	}

	it.hdr = hdr

	return true
}

// Record returns a view of the current record. The view is valid until the
// next call to Next or Close.
func (it *MatchIterator) Record() Record {
	return Record{it: it, gen: it.gen}
}

// Err returns the error that ended iteration, if any.
func (it *MatchIterator) Err() error {
	return it.err
}

// Close releases the cursor. It is safe to call at any time and more than
// once; after Close, Next returns false.
func (it *MatchIterator) Close() {
	if it.done {
		return
	}

	it.gen++
	it.finish("closed")
}

func (it *MatchIterator) finish(reason string) {
	it.done = true
	it.hdr = nil
	it.cleanup.Stop()
	it.handle.release(reason)
}

func (it *MatchIterator) queryError(err error) error {
	qe := &QueryError{Field: it.field, Err: fmt.Errorf("%w: %w", ErrQueryFailed, err)}
	if it.key != nil {
		qe.Key, qe.HasKey = *it.key, true
	}

	return qe
}

// current returns the header behind a record of generation gen.
func (it *MatchIterator) current(gen uint64) (*librpm.Header, error) {
	if it.done || it.hdr == nil || gen != it.gen {
		return nil, ErrStaleRecord
	}

	return it.hdr, nil
}
