package fs

import (
	"bytes"
	"os"

	"github.com/natefinch/atomic"
)

// Real implements [FS] on the host filesystem.
type Real struct{}

// NewReal returns the host filesystem.
func NewReal() *Real {
	return &Real{}
}

func (*Real) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(path, flag, perm) //nolint:gosec // lock paths come from configuration
}

func (*Real) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (*Real) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (*Real) WriteFileAtomic(path string, data []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}

func (*Real) ReplaceFile(src, dst string) error {
	return atomic.ReplaceFile(src, dst)
}
