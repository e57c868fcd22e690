// Package fs is the small slice of filesystem access the package database
// needs: opening lock files, atomic replacement of database and export
// files, and flock(2) based advisory locking.
//
// The [FS] interface exists so lock acquisition can be exercised against a
// filesystem that misbehaves in tests; production code uses [Real].
package fs

import (
	"os"
)

// File is an open file usable as a lock file.
type File interface {
	// Fd must return a real OS descriptor; it is passed to flock(2).
	Fd() uintptr

	// Stat must return [os.FileInfo] whose Sys() is a *syscall.Stat_t.
	Stat() (os.FileInfo, error)

	Close() error
}

// FS is the filesystem used by [Locker] and by database writers.
type FS interface {
	OpenFile(path string, flag int, perm os.FileMode) (File, error)
	Stat(path string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error

	// WriteFileAtomic replaces path with data so readers see either the old
	// or the new content, never a partial write.
	WriteFileAtomic(path string, data []byte) error

	// ReplaceFile atomically moves src over dst.
	ReplaceFile(src, dst string) error
}

var _ File = (*os.File)(nil)
