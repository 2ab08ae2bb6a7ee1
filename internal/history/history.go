// Package history persists completed and failed downloads in a local
// SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// maxEntries caps the stored history; older rows are pruned on insert.
const maxEntries = 100

// Entry is one recorded download.
type Entry struct {
	ID        int64     `json:"id"`
	VideoID   string    `json:"video_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	FilePath  string    `json:"file_path"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	video_id   TEXT NOT NULL,
	url        TEXT NOT NULL UNIQUE,
	title      TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_downloads_created ON downloads(created_at);
`

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	// The store is used from one process; a single connection avoids
	// SQLITE_BUSY races between writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Add records a download. A repeat of the same URL replaces the earlier
// row so history stays deduplicated, and the table is pruned to its cap.
func (s *Store) Add(e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO downloads (video_id, url, title, file_path, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			video_id = excluded.video_id,
			title = excluded.title,
			file_path = excluded.file_path,
			status = excluded.status,
			created_at = excluded.created_at`,
		e.VideoID, e.URL, e.Title, e.FilePath, e.Status, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording download: %w", err)
	}
	return s.prune()
}

func (s *Store) prune() error {
	_, err := s.db.Exec(`
		DELETE FROM downloads WHERE id NOT IN (
			SELECT id FROM downloads ORDER BY created_at DESC, id DESC LIMIT ?
		)`, maxEntries)
	if err != nil {
		return fmt.Errorf("pruning history: %w", err)
	}
	return nil
}

// List returns entries newest first. A limit of 0 means all.
func (s *Store) List(limit int) ([]Entry, error) {
	if limit <= 0 || limit > maxEntries {
		limit = maxEntries
	}
	rows, err := s.db.Query(`
		SELECT id, video_id, url, title, file_path, status, created_at
		FROM downloads ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.VideoID, &e.URL, &e.Title, &e.FilePath, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Remove deletes one entry by id. It reports whether a row was deleted.
func (s *Store) Remove(id int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM downloads WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("removing history entry: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Clear wipes all history.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM downloads`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM downloads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting history: %w", err)
	}
	return n, nil
}
