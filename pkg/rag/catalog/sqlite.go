package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// openDB opens a SQLite database with a busy timeout and WAL journaling.
// Writes are serialized through a single connection.
func openDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create database directory %q: %w", dir, err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		if isCantOpenError(err) {
			return nil, diagnoseOpenError(path, err)
		}
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Ping creates the file.
	if err := db.Ping(); err != nil {
		db.Close()
		if isCantOpenError(err) {
			return nil, diagnoseOpenError(path, err)
		}
		return nil, err
	}

	return db, nil
}

func isCantOpenError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CANTOPEN
	}
	return false
}

// diagnoseOpenError explains the usual reasons SQLite cannot create the
// catalog file.
func diagnoseOpenError(path string, originalErr error) error {
	dir := filepath.Dir(path)

	info, err := os.Stat(dir)
	switch {
	case err != nil && os.IsNotExist(err):
		return fmt.Errorf("cannot create catalog at %q: directory %q does not exist", path, dir)
	case err != nil:
		return fmt.Errorf("cannot create catalog at %q: %w", path, err)
	case !info.IsDir():
		return fmt.Errorf("cannot create catalog at %q: %q is not a directory", path, dir)
	}

	return fmt.Errorf("cannot create catalog at %q: permission denied or file cannot be created in %q (original error: %v)", path, dir, originalErr)
}
