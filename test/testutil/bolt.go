// Package testutil holds helpers shared by package and integration tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

// CreateTempBoltDB opens a bbolt database in a temporary directory.
// It returns the database, its path and a cleanup function closing it.
func CreateTempBoltDB(t *testing.T) (*bolt.DB, string, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "journal.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	require.NoError(t, err)

	return db, dbPath, func() { db.Close() }
}

// WriteScripts writes each name/content pair into a temporary directory and
// returns the directory.
func WriteScripts(t *testing.T, scripts map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range scripts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	return dir
}
