// Package testutil holds helpers shared by the tests of scrapers and stores.
package testutil

import (
	"database/sql"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"

	_ "modernc.org/sqlite"
)

// EncodeGBK encodes s the way the upstream site serves its pages.
func EncodeGBK(t testing.TB, s string) string {
	t.Helper()
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(s)
	if err != nil {
		t.Fatal(err)
	}
	return encoded
}

// OpenDB opens the sqlite database at path, it is closed when the test ends.
func OpenDB(t testing.TB, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
