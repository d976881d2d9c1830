// Package sqlite opens SQLite databases through whichever driver the
// build selected. The default build uses the pure-Go modernc.org/sqlite
// driver; building with -tags cgo_sqlite switches to mattn/go-sqlite3.
package sqlite

import (
	"database/sql"
	"fmt"
)

// Open opens (creating if needed) the database at path with sane
// defaults for concurrent use: WAL journaling, foreign keys on, and a
// busy timeout.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn(path, false))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return db, nil
}

// OpenReadOnly opens the database at path read-only. It fails if the
// file does not exist.
func OpenReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return db, nil
}

// MustOpen is Open for programs that cannot proceed without the
// database; it panics on error.
func MustOpen(path string) *sql.DB {
	db, err := Open(path)
	if err != nil {
		panic(err)
	}
	return db
}

// Info describes the compiled-in driver.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	CGO        bool   `json:"cgo"`
}

// GetInfo reports which driver this binary was built with.
func GetInfo() Info {
	return Info{DriverName: driverName, DriverType: driverType, CGO: isCGO}
}

// DriverName returns the database/sql driver name in use.
func DriverName() string { return driverName }

// IsCGO reports whether the CGO driver was compiled in.
func IsCGO() bool { return isCGO }
