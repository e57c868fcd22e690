package librpm

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"golang.org/x/sys/unix"

	rpmfs "github.com/calvinalkan/rpmkit/internal/fs"
)

// DBFileName is the database file inside %_dbpath.
const DBFileName = "rpmdb.sqlite"

// LockFileName is the lock file inside %_dbpath, used when %_rpmlock_path
// is not defined.
const LockFileName = ".rpm.lock"

const schema = `
CREATE TABLE Packages (
	hnum INTEGER PRIMARY KEY AUTOINCREMENT,
	blob BLOB NOT NULL
);
CREATE TABLE "Index" (
	tag  INTEGER NOT NULL,
	key  BLOB NOT NULL,
	hnum INTEGER NOT NULL REFERENCES Packages(hnum) ON DELETE CASCADE
);
CREATE INDEX Index_tag_key ON "Index"(tag, key);
`

const (
	queryAll     = `SELECT hnum, blob FROM Packages ORDER BY hnum`
	queryIndexed = `SELECT hnum, blob FROM Packages
		WHERE hnum IN (SELECT hnum FROM "Index" WHERE tag = ? AND key = ?)
		ORDER BY hnum`
)

var locker = rpmfs.NewLocker(rpmfs.NewReal())

// Cursor iterates the headers matching one query.
//
// The *Header returned by Next is reused: it and every slice obtained from
// it are only valid until the following Next or Free.
type Cursor struct {
	lib  *Library
	rows *sql.Rows
	lock *rpmfs.Lock

	// filter is set for tags without an index; rows are then every header
	// and Next skips the ones that do not match.
	filter bool
	tag    Tag
	key    []byte

	raw   sql.RawBytes
	hdr   Header
	freed bool
}

// InitIterator opens a cursor over the headers whose tag value equals key.
// A nil key matches every header.
//
// The database lives in the directory named by %{_dbpath}, which is
// expanded when the cursor opens. The cursor holds a shared lock on the
// database lock file until it is freed.
func (l *Library) InitIterator(tag Tag, key []byte) (*Cursor, error) {
	defer l.enter("rpmdbInitIterator")()

	dir, err := l.macros.expand("%{_dbpath}")
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %%{_dbpath}: %w", ErrDatabase, err)
	}

	db, err := l.openDB(dir)
	if err != nil {
		return nil, err
	}

	lock, err := l.readLock(dir)
	if err != nil {
		return nil, err
	}

	c := &Cursor{lib: l, lock: lock, tag: tag}
	if key != nil {
		c.key = slices.Clone(key)
	}

	switch {
	case key == nil:
		c.rows, err = db.Query(queryAll)
	case tag.Indexed():
		c.rows, err = db.Query(queryIndexed, uint32(tag), c.key)
	default:
		c.filter = true
		c.rows, err = db.Query(queryAll)
	}

	if err != nil {
		if lock != nil {
			_ = lock.Close()
		}

		return nil, fmt.Errorf("%w: query %s: %w", ErrDatabase, tag, err)
	}

	l.openCursors.Add(1)

	return c, nil
}

// Next advances to the next matching header. It returns [io.EOF] when the
// query is exhausted.
func (c *Cursor) Next() (*Header, error) {
	if c.freed {
		return nil, ErrCursorFreed
	}

	for c.rows.Next() {
		var num int64

		err := c.rows.Scan(&num, &c.raw)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrDatabase, err)
		}

		err = c.hdr.reset(uint32(num), c.raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", num, err)
		}

		if c.filter && !c.hdr.Matches(c.tag, c.key) {
			continue
		}

		return &c.hdr, nil
	}

	err := c.rows.Err()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
	}

	return nil, io.EOF
}

// Free closes the query and drops the database lock. Calling Free again is
// a no-op.
func (c *Cursor) Free() error {
	if c.freed {
		return nil
	}

	c.freed = true
	c.hdr = Header{}
	c.raw = nil
	c.lib.openCursors.Add(-1)

	var lockErr error
	if c.lock != nil {
		lockErr = c.lock.Close()
	}

	return errors.Join(c.rows.Close(), lockErr)
}

// openDB returns the cached handle for the database in dir.
//
// Handles keep no idle connections, so every cursor opens the file afresh
// and a database replaced by CreateDatabase is seen by the next query.
func (l *Library) openDB(dir string) (*sql.DB, error) {
	file := filepath.Join(dir, DBFileName)

	if db, ok := l.dbs[file]; ok {
		return db, nil
	}

	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoDatabase, file)
		}

		return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
	}

	db, err := sql.Open("sqlite3", readOnlyDSN(file))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDatabase, file, err)
	}

	db.SetMaxIdleConns(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: open %s: %w", ErrDatabase, file, err)
	}

	l.dbs[file] = db

	return db, nil
}

// readLock takes the shared database lock. A lock file that cannot be
// created because dbpath is read-only is not an error: nobody can write
// the database either.
func (l *Library) readLock(dir string) (*rpmfs.Lock, error) {
	path := l.lockPath(dir)

	lock, err := locker.RLockWithTimeout(path, l.opts.LockTimeout)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) || errors.Is(err, unix.EROFS) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: lock %s: %w", ErrDatabase, path, err)
	}

	return lock, nil
}

func (l *Library) lockPath(dir string) string {
	path, err := l.macros.expand("%{?_rpmlock_path}")
	if err != nil || path == "" {
		return filepath.Join(dir, LockFileName)
	}

	return path
}

func readOnlyDSN(file string) string {
	u := url.URL{Scheme: "file", Path: file, RawQuery: "mode=ro&_busy_timeout=5000"}

	return u.String()
}
