package rpm

import (
	"log/slog"
	"sync/atomic"
)

var currentLogger atomic.Pointer[slog.Logger]

// SetLogger sets the logger used for diagnostics, such as cursors that
// failed to release. A nil logger discards everything. Until SetLogger is
// called, [slog.Default] is used.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}

	currentLogger.Store(l)
}

func logger() *slog.Logger {
	if l := currentLogger.Load(); l != nil {
		return l
	}

	return slog.Default()
}
