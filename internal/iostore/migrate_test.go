package iostore

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/stimstrain/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_NoneBackend(t *testing.T) {
	err := Migrate(schema.NoneBackend, "", -1, io.Discard)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "migrations are not supported for NoneBackend")
}

func TestMigrate_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_migration.db")
	var out strings.Builder

	require.NoError(t, Migrate(schema.SQLiteBackend, dbPath, -1, &out))
	assert.Contains(t, out.String(), "Successfully migrated")

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)

	// Run migration again (should be a no-op)
	out.Reset()
	require.NoError(t, Migrate(schema.SQLiteBackend, dbPath, -1, &out))
	assert.Contains(t, out.String(), "No migration needed")

	latest, err := LatestVersion(schema.SQLiteBackend)
	require.NoError(t, err)
	assert.Equal(t, uint(len(ledgerTables)), latest)

	status, err := GetMigrationStatus(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	assert.Equal(t, latest, status.Version)
	assert.False(t, status.Dirty)

	// Step down to version 2 and back up
	require.NoError(t, Migrate(schema.SQLiteBackend, dbPath, 2, io.Discard))
	status, err = GetMigrationStatus(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	assert.Equal(t, uint(2), status.Version)

	// Rollback to version 0
	require.NoError(t, Migrate(schema.SQLiteBackend, dbPath, 0, io.Discard))

	// Opening a store migrates back to the latest version
	store, err := NewLedgerStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	_ = store.Close()

	status, err = GetMigrationStatus(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	assert.Equal(t, latest, status.Version)
}

func TestLatestVersionPerBackend(t *testing.T) {
	for _, backend := range []schema.DatabaseBackend{schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend} {
		latest, err := LatestVersion(backend)
		require.NoError(t, err, backend)
		assert.Equal(t, uint(len(ledgerTables)), latest, backend)
	}
}
