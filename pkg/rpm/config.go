package rpm

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// ReadFile configures the engine from the rpmrc file at path, or from the
// engine's default search list when path is empty.
//
// Only the first call in a process reaches the engine. It is committed
// before the engine runs, so a failed read is final as well: every later
// call returns a [*ConfigError] with Kind [ErrAlreadyConfigured].
func ReadFile(path string) error {
	return global().readFile(path)
}

// Configured reports whether [ReadFile] has been attempted.
func Configured() bool {
	return global().isConfigured()
}

// RCVars returns the rpmrc variables the engine read, keyed by lowercase
// name.
func RCVars() map[string]string {
	return global().rcVars()
}

func (s *globalState) readFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hasPath := path != ""
	fail := func(kind error, result string, cause error) error {
		s.metrics.configReads.WithLabelValues(result).Inc()

		return &ConfigError{Kind: kind, Path: path, HasPath: hasPath, Err: cause}
	}

	if s.configured {
		return fail(ErrAlreadyConfigured, "already_configured", nil)
	}

	if hasPath {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return fail(ErrFileNotFound, "not_found", nil)
		}

		_, err = unix.BytePtrFromString(path)
		if err != nil {
			return fail(ErrInvalidPath, "invalid_path", nil)
		}
	}

	s.configured = true

	err := s.engine.ReadConfigFiles(path)
	if err != nil {
		logger().Warn("rpm: config read failed", slog.String("path", path), slog.Any("error", err))

		return fail(ErrReadFailed, "failed", err)
	}

	s.metrics.configReads.WithLabelValues("ok").Inc()
	logger().Debug("rpm: configured", slog.String("path", path))

	return nil
}

func (s *globalState) isConfigured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.configured
}

func (s *globalState) rcVars() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.engine.RCVars()
}
