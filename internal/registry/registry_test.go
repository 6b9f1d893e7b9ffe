package registry

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Init(db))
	return db
}

func TestUpsertAndLookup(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Upsert(db, Entry{Album: "Weedkiller", Artist: "Ashnikko", Source: "spotify"}))

	e, ok, err := Lookup(db, "Weedkiller")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ashnikko", e.Artist)
	assert.Equal(t, "spotify", e.Source)

	_, ok, err = Lookup(db, "Unknown Album")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsertNeverWipesRicherEntry(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Upsert(db, Entry{Album: "Weedkiller", Artist: "Ashnikko", Genre: "Pop"}))
	// a later, sparser result must not clear existing fields
	require.NoError(t, Upsert(db, Entry{Album: "Weedkiller", Artist: "", Genre: ""}))

	e, ok, err := Lookup(db, "Weedkiller")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ashnikko", e.Artist)
	assert.Equal(t, "Pop", e.Genre)
}

func TestNilHandleIsNoop(t *testing.T) {
	assert.NoError(t, Upsert(nil, Entry{Album: "X"}))
	_, ok, err := Lookup(nil, "X")
	assert.NoError(t, err)
	assert.False(t, ok)
}
