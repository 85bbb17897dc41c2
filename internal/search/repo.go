package search

import (
	"encoding/json"
	"fmt"
	"time"
)

// Row is one indexed note.
type Row struct {
	Slug      string
	Title     string
	Path      string
	Heading   string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// Result is one search hit.
type Result struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Path    string `json:"path"`
	Snippet string `json:"snippet"`
}

// Upsert inserts or replaces a note and its full-text entry within a transaction.
func (db *DB) Upsert(r Row, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO notes (slug, title, path, heading, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title      = excluded.title,
			path       = excluded.path,
			heading    = excluded.heading,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, r.Slug, r.Title, r.Path, r.Heading, r.Checksum, string(tagsJSON), body, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("search: upsert note: %w", err)
	}

	if err := ftsUpsert(tx, r.Slug, r.Title, body, tags); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a note and its full-text entry.
func (db *DB) Delete(slug string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, slug); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("search: delete note: %w", err)
	}
	return tx.Commit()
}

// Checksum returns the stored checksum for a note, or "" if it is not indexed.
func (db *DB) Checksum(slug string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE slug = ?`, slug).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// Tags returns the stored tags of a note.
func (db *DB) Tags(slug string) ([]string, error) {
	var raw string
	if err := db.conn.QueryRow(`SELECT tags FROM notes WHERE slug = ?`, slug).Scan(&raw); err != nil {
		return nil, fmt.Errorf("search: tags: %w", err)
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("search: decode tags: %w", err)
	}
	return tags, nil
}

// AllChecksums returns slug → checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT slug, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("search: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var s, cs string
		if err := rows.Scan(&s, &cs); err != nil {
			return nil, err
		}
		out[s] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed notes.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("search: count: %w", err)
	}
	return n, nil
}
