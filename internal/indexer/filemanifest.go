package indexer

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGO

	"github.com/codectx/ctxd/internal/model"
)

// manifestDBName is the indexer's own incremental-diff ledger. It is not
// one of the manifest-validated artifacts — losing it just
// forces the next incremental run to fall back to a full build.
const manifestDBName = "manifest.db"

func openManifestDB(contextDir string) (*sql.DB, error) {
	if err := os.MkdirAll(contextDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(contextDir, manifestDBName)
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open manifest db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS file_manifest (
		path TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		size INTEGER NOT NULL,
		mtime_unix INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS last_stats (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		stats_json TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init manifest schema: %w", err)
	}
	return db, nil
}

func loadFileManifest(contextDir string) (map[string]model.FileManifestEntry, error) {
	path := filepath.Join(contextDir, manifestDBName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := openManifestDB(contextDir)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT path, content_hash, size, mtime_unix FROM file_manifest`)
	if err != nil {
		return nil, fmt.Errorf("query file manifest: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.FileManifestEntry)
	for rows.Next() {
		var e model.FileManifestEntry
		var mtimeUnix int64
		if err := rows.Scan(&e.Path, &e.ContentHash, &e.Size, &mtimeUnix); err != nil {
			return nil, fmt.Errorf("scan file manifest row: %w", err)
		}
		e.ModTime = time.Unix(mtimeUnix, 0).UTC()
		out[e.Path] = e
	}
	return out, rows.Err()
}

func saveFileManifest(contextDir string, entries map[string]model.FileManifestEntry) error {
	db, err := openManifestDB(contextDir)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin manifest tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM file_manifest`); err != nil {
		return fmt.Errorf("clear file manifest: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO file_manifest(path, content_hash, size, mtime_unix) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare file manifest insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Path, e.ContentHash, e.Size, e.ModTime.Unix()); err != nil {
			return fmt.Errorf("insert file manifest row %s: %w", e.Path, err)
		}
	}

	return tx.Commit()
}

// loadLastStats and saveLastStats persist the most recent build's Stats in
// the last_stats table so a no-op incremental run can return them unchanged
// instead of resetting the counters to zero.

func loadLastStats(contextDir string) (model.Stats, bool) {
	path := filepath.Join(contextDir, manifestDBName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return model.Stats{}, false
	}

	db, err := openManifestDB(contextDir)
	if err != nil {
		return model.Stats{}, false
	}
	defer db.Close()

	var statsJSON string
	err = db.QueryRow(`SELECT stats_json FROM last_stats WHERE id = 1`).Scan(&statsJSON)
	if err != nil {
		return model.Stats{}, false
	}

	var stats model.Stats
	if err := json.Unmarshal([]byte(statsJSON), &stats); err != nil {
		return model.Stats{}, false
	}
	return stats, true
}

func saveLastStats(contextDir string, stats model.Stats) error {
	db, err := openManifestDB(contextDir)
	if err != nil {
		return err
	}
	defer db.Close()

	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal last stats: %w", err)
	}

	_, err = db.Exec(`INSERT INTO last_stats(id, stats_json) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET stats_json = excluded.stats_json`, string(data))
	if err != nil {
		return fmt.Errorf("upsert last stats: %w", err)
	}
	return nil
}
