package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_Memory(t *testing.T) {
	db, err := OpenSQLite(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	var version int
	require.NoError(t, db.Raw("PRAGMA user_version;").Scan(&version).Error)
	assert.Equal(t, 1, version)
}

func TestOpenSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maps.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE t (id INTEGER);").Error)
	require.NoError(t, Close(db))

	assert.FileExists(t, path)
}

func TestOpenPostgres_Unreachable(t *testing.T) {
	_, err := OpenPostgres("host=127.0.0.1 port=1 user=x password=x dbname=x sslmode=disable connect_timeout=1")
	assert.Error(t, err)
}
