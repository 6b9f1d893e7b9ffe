// Package registry caches catalog lookups in SQLite so interrupted backfill
// runs resume instead of re-querying the remote API for every album.
package registry

import (
	"database/sql"
	_ "embed"
	"errors"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// Entry is one cached lookup keyed by normalized album name. Source records
// where the metadata came from ("export", "spotify").
type Entry struct {
	Album  string
	Artist string
	Genre  string
	Source string
}

// Open creates the database file (and parent directory) if needed and
// applies the schema.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, err
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Init runs the embedded schema and sets performance PRAGMAs.
func Init(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA cache_size=-2000;"); err != nil {
		return err
	}
	_, err := db.Exec(schema)
	return err
}

// Upsert inserts or updates a cached lookup. COALESCE keeps existing values
// so a sparser result from one source never wipes a richer one.
func Upsert(db *sql.DB, e Entry) error {
	if db == nil {
		return nil
	}

	query := `
	INSERT INTO catalog_registry (album, artist, genre, source, last_updated)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(album) DO UPDATE SET
		artist = COALESCE(NULLIF(excluded.artist, ''), catalog_registry.artist),
		genre  = COALESCE(NULLIF(excluded.genre, ''), catalog_registry.genre),
		source = COALESCE(NULLIF(excluded.source, ''), catalog_registry.source),
		last_updated = CURRENT_TIMESTAMP;`

	_, err := db.Exec(query, e.Album, e.Artist, e.Genre, e.Source)
	return err
}

// Lookup returns the cached entry for an album; ok is false on a miss.
func Lookup(db *sql.DB, album string) (Entry, bool, error) {
	if db == nil || album == "" {
		return Entry{}, false, nil
	}

	e := Entry{Album: album}
	err := db.QueryRow(
		"SELECT artist, genre, source FROM catalog_registry WHERE album = ?",
		album,
	).Scan(&e.Artist, &e.Genre, &e.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}
