package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrWouldBlock is returned when a lock is held elsewhere and the caller
	// asked not to wait, or waited longer than its timeout.
	ErrWouldBlock = errors.New("lock would block")

	// ErrInvalidTimeout is returned for timeouts <= 0.
	ErrInvalidTimeout = errors.New("invalid lock timeout")

	// errReplaced means the lock file was swapped between open and flock.
	errReplaced = errors.New("lock file replaced")
)

const (
	lockFilePerm = 0o644
	lockDirPerm  = 0o755

	maxPollInterval = 25 * time.Millisecond
)

// Locker takes advisory flock(2) locks on lock files such as the package
// database's .rpm.lock.
//
// Readers take shared locks and writers exclusive ones. flock applies to the
// open file description, so two opens of the same path inside one process
// contend like two processes would.
//
// After flock succeeds the Locker checks that the descriptor still refers to
// the inode at path; if the file was replaced in between it retries.
type Locker struct {
	fs    FS
	flock func(fd int, how int) error
}

// NewLocker returns a Locker that opens lock files through fsys.
func NewLocker(fsys FS) *Locker {
	return &Locker{fs: fsys, flock: unix.Flock}
}

// Lock is a held lock. Close releases it.
type Lock struct {
	mu    sync.Mutex
	file  File
	flock func(fd int, how int) error
}

// Close unlocks and closes the lock file. It is idempotent.
func (lk *Lock) Close() error {
	lk.mu.Lock()
	defer lk.mu.Unlock()

	if lk.file == nil {
		return nil
	}

	unlockErr := flockNoEINTR(lk.flock, int(lk.file.Fd()), unix.LOCK_UN)
	closeErr := lk.file.Close()
	lk.file = nil

	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlock: %w", unlockErr)
	}

	return errors.Join(unlockErr, closeErr)
}

// Lock blocks until an exclusive lock on path is held.
func (l *Locker) Lock(path string) (*Lock, error) {
	return l.acquire(path, unix.LOCK_EX, -1)
}

// RLock blocks until a shared lock on path is held.
func (l *Locker) RLock(path string) (*Lock, error) {
	return l.acquire(path, unix.LOCK_SH, -1)
}

// TryLock takes an exclusive lock or fails with [ErrWouldBlock].
func (l *Locker) TryLock(path string) (*Lock, error) {
	return l.acquire(path, unix.LOCK_EX, 0)
}

// TryRLock takes a shared lock or fails with [ErrWouldBlock].
func (l *Locker) TryRLock(path string) (*Lock, error) {
	return l.acquire(path, unix.LOCK_SH, 0)
}

// LockWithTimeout polls for an exclusive lock until timeout elapses.
func (l *Locker) LockWithTimeout(path string, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeout, timeout)
	}

	return l.acquire(path, unix.LOCK_EX, timeout)
}

// RLockWithTimeout polls for a shared lock until timeout elapses.
func (l *Locker) RLockWithTimeout(path string, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeout, timeout)
	}

	return l.acquire(path, unix.LOCK_SH, timeout)
}

// acquire takes a lock of kind how. timeout < 0 blocks in the kernel,
// timeout == 0 tries once and timeout > 0 polls with backoff.
func (l *Locker) acquire(path string, how int, timeout time.Duration) (*Lock, error) {
	deadline := time.Now().Add(timeout)
	backoff := time.Millisecond

	flag := os.O_RDWR
	if how == unix.LOCK_SH {
		flag = os.O_RDONLY
	}

	for {
		file, err := l.open(path, flag)
		if err != nil {
			return nil, fmt.Errorf("open lock file: %w", err)
		}

		mode := how
		if timeout >= 0 {
			mode |= unix.LOCK_NB
		}

		err = l.lockFile(file, path, mode)
		if err == nil {
			return &Lock{file: file, flock: l.flock}, nil
		}

		_ = file.Close()

		replaced := errors.Is(err, errReplaced)
		if !replaced && !errors.Is(err, ErrWouldBlock) {
			return nil, err
		}

		reason := "held elsewhere"
		if replaced {
			reason = "lock file was replaced"
		}

		switch {
		case timeout < 0:
			continue
		case timeout == 0:
			return nil, fmt.Errorf("%w: %s", ErrWouldBlock, reason)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: timed out after %s (%s)", ErrWouldBlock, timeout, reason)
		}

		time.Sleep(min(backoff, remaining))

		backoff = min(backoff*2, maxPollInterval)
	}
}

func (l *Locker) lockFile(file File, path string, how int) error {
	fd := int(file.Fd())

	err := flockNoEINTR(l.flock, fd, how)
	if err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			return ErrWouldBlock
		}

		return fmt.Errorf("flock: %w", err)
	}

	same, err := l.sameInode(file, path)
	if err == nil && same {
		return nil
	}

	_ = flockNoEINTR(l.flock, fd, unix.LOCK_UN)

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat lock file: %w", err)
	}

	return errReplaced
}

func (l *Locker) open(path string, flag int) (File, error) {
	f, err := l.fs.OpenFile(path, flag|os.O_CREATE, lockFilePerm)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return f, err
	}

	err = l.fs.MkdirAll(filepath.Dir(path), lockDirPerm)
	if err != nil {
		return nil, err
	}

	return l.fs.OpenFile(path, flag|os.O_CREATE, lockFilePerm)
}

func (l *Locker) sameInode(file File, path string) (bool, error) {
	held, err := file.Stat()
	if err != nil {
		return false, err
	}

	current, err := l.fs.Stat(path)
	if err != nil {
		return false, err
	}

	a, okA := held.Sys().(*syscall.Stat_t)
	b, okB := current.Sys().(*syscall.Stat_t)

	if !okA || !okB {
		return false, fmt.Errorf("stat: unexpected Sys() type %T", held.Sys())
	}

	return a.Dev == b.Dev && a.Ino == b.Ino, nil
}

// flockNoEINTR retries flock when a signal interrupts it.
func flockNoEINTR(flock func(int, int) error, fd, how int) error {
	for {
		err := flock(fd, how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
