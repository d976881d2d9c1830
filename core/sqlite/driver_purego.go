//go:build !cgo_sqlite

package sqlite

import (
	"net/url"

	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"
	driverType = "modernc.org/sqlite (pure Go)"
	isCGO      = false
)

func dsn(path string, readOnly bool) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	if readOnly {
		q.Set("mode", "ro")
	}
	return "file:" + path + "?" + q.Encode()
}
