// Package testutil provides shared test helpers.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/corkboard/internal/workspace"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *workspace.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "corkboard-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := workspace.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
