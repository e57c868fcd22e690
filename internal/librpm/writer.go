package librpm

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	rpmfs "github.com/calvinalkan/rpmkit/internal/fs"
)

// CreateDatabase writes a package database holding specs into dbpath,
// replacing any database already there.
//
// The new database is built in a temporary file next to the old one and
// moved into place while the exclusive database lock is held. The lock
// waits for open cursors to be freed; the next cursor sees the new file.
func CreateDatabase(dbpath string, specs []PackageSpec) error {
	fsys := rpmfs.NewReal()

	if err := fsys.MkdirAll(dbpath, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrDatabase, dbpath, err)
	}

	blobs := make([][]byte, len(specs))
	for i, spec := range specs {
		blob, err := spec.Encode()
		if err != nil {
			return fmt.Errorf("package %q: %w", spec.Name, err)
		}

		blobs[i] = blob
	}

	lock, err := locker.LockWithTimeout(filepath.Join(dbpath, LockFileName), DefaultLockTimeout)
	if err != nil {
		return fmt.Errorf("%w: lock %s: %w", ErrDatabase, dbpath, err)
	}
	defer lock.Close()

	tmp, err := os.CreateTemp(dbpath, ".rpmdb-*.sqlite")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabase, err)
	}

	tmpPath := tmp.Name()
	_ = tmp.Close()

	defer os.Remove(tmpPath)

	err = writePackages(tmpPath, blobs)
	if err != nil {
		return err
	}

	err = fsys.ReplaceFile(tmpPath, filepath.Join(dbpath, DBFileName))
	if err != nil {
		return fmt.Errorf("%w: install database: %w", ErrDatabase, err)
	}

	return nil
}

func writePackages(path string, blobs [][]byte) (err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrDatabase, path, err)
	}

	defer func() {
		closeErr := db.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("%w: close: %w", ErrDatabase, closeErr)
		}
	}()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("%w: create schema: %w", ErrDatabase, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, blob := range blobs {
		res, err := tx.Exec(`INSERT INTO Packages (blob) VALUES (?)`, blob)
		if err != nil {
			return fmt.Errorf("%w: insert package: %w", ErrDatabase, err)
		}

		hnum, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: insert package: %w", ErrDatabase, err)
		}

		err = insertIndexKeys(tx, hnum, blob)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrDatabase, err)
	}

	return nil
}

// insertIndexKeys adds one "Index" row per distinct value of every indexed
// tag of the header.
func insertIndexKeys(tx *sql.Tx, hnum int64, blob []byte) error {
	h, err := ParseHeader(blob)
	if err != nil {
		return err
	}

	for tag := range indexedTags {
		var keys []string

		if name, ok := h.String(tag); ok {
			keys = []string{name}
		} else {
			keys = h.StringArray(tag)
		}

		seen := make(map[string]bool, len(keys))

		for _, key := range keys {
			if seen[key] {
				continue
			}

			seen[key] = true

			_, err := tx.Exec(`INSERT INTO "Index" (tag, key, hnum) VALUES (?, ?, ?)`, uint32(tag), []byte(key), hnum)
			if err != nil {
				return fmt.Errorf("%w: index %s: %w", ErrDatabase, tag, err)
			}
		}
	}

	return nil
}
