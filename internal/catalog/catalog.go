// Package catalog maintains a SQLite index of downloaded image files so the
// load layer can answer "what do I have locally for this site and interval"
// without hitting the archive again.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	asilib "github.com/mshumko/aurora-asi-lib"
)

// Entry describes one downloaded minute file.
type Entry struct {
	Network   asilib.Network
	Location  string
	StartTime time.Time
	Path      string
	Frames    int
}

// Catalog wraps the SQLite database.
type Catalog struct {
	db *sql.DB
}

// Open creates or opens the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging catalog: %w", err)
	}

	// WAL allows the CLI and a long-running loader to share the catalog.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing catalog schema: %w", err)
	}
	return c, nil
}

func (c *Catalog) initSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS image_files (
			network    TEXT NOT NULL,
			location   TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			path       TEXT NOT NULL PRIMARY KEY,
			frames     INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_image_files_lookup
			ON image_files (network, location, start_time);
	`)
	return err
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Upsert records a downloaded file, replacing any previous entry for the
// same path.
func (c *Catalog) Upsert(e Entry) error {
	_, err := c.db.Exec(`
		INSERT INTO image_files (network, location, start_time, path, frames)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			network = excluded.network,
			location = excluded.location,
			start_time = excluded.start_time,
			frames = excluded.frames
	`, string(e.Network), e.Location, e.StartTime.UTC().Unix(), e.Path, e.Frames)
	if err != nil {
		return fmt.Errorf("upserting catalog entry: %w", err)
	}
	return nil
}

// SetFrames records the decoded frame count for a file already in the
// catalog. The count is only known once the file is first parsed.
func (c *Catalog) SetFrames(path string, frames int) error {
	_, err := c.db.Exec(`UPDATE image_files SET frames = ? WHERE path = ?`, frames, path)
	if err != nil {
		return fmt.Errorf("updating catalog frame count: %w", err)
	}
	return nil
}

// Range returns the entries for a site whose start times fall inside the
// range, ordered by start time.
func (c *Catalog) Range(network asilib.Network, location string, tr asilib.TimeRange) ([]Entry, error) {
	rows, err := c.db.Query(`
		SELECT network, location, start_time, path, frames
		FROM image_files
		WHERE network = ? AND location = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time
	`, string(network), location, tr.Start.UTC().Unix(), tr.End.UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var network string
		var unix int64
		if err := rows.Scan(&network, &e.Location, &unix, &e.Path, &e.Frames); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		e.Network = asilib.Network(network)
		e.StartTime = time.Unix(unix, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Remove drops the entry for path, if any. Used when a file on disk turns
// out to be unreadable.
func (c *Catalog) Remove(path string) error {
	if _, err := c.db.Exec(`DELETE FROM image_files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("removing catalog entry: %w", err)
	}
	return nil
}
