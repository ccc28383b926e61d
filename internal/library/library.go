// Package library is the sqlite-backed index of documents the user has
// worked on: recently opened files plus the autosave chain for each. The
// documents themselves live on disk as save files; the library only holds
// metadata for pickers and autosave cleanup.
package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"scribl/internal/times"
)

// ErrNotFound is returned when a document path is not in the library.
var ErrNotFound = errors.New("library: document not found")

// Schema for the scribl document library.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    path          TEXT NOT NULL UNIQUE,
    last_opened   INTEGER NOT NULL,
    duration_us   INTEGER NOT NULL,
    stroke_count  INTEGER NOT NULL,
    snippet_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_opened ON documents(last_opened);

CREATE TABLE IF NOT EXISTS autosaves (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    path        TEXT NOT NULL UNIQUE,
    saved_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_autosaves_doc ON autosaves(document_id, saved_at);
`

// Document is one library entry.
type Document struct {
	ID           int64
	Path         string
	LastOpened   time.Time
	Duration     times.Time
	StrokeCount  int
	SnippetCount int
}

// Autosave is one recorded autosave file for a document.
type Autosave struct {
	ID         int64
	DocumentID int64
	Path       string
	SavedAt    time.Time
}

// Library is the sqlite-backed document index.
type Library struct {
	db *sql.DB
}

// Open opens or creates the library database at the given path and applies
// the schema. busyTimeoutMs bounds how long writers wait on a lock.
func Open(path string, busyTimeoutMs int) (*Library, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create library directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d", path, busyTimeoutMs)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply library schema: %w", err)
	}

	return &Library{db: db}, nil
}

// Close closes the database connection.
func (l *Library) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Touch records that a document was opened (or saved) now, inserting it on
// first sight and refreshing its metadata otherwise.
func (l *Library) Touch(path string, duration times.Time, strokes, snippets int) (int64, error) {
	now := time.Now().Unix()
	_, err := l.db.Exec(`
		INSERT INTO documents (path, last_opened, duration_us, stroke_count, snippet_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
		    last_opened = excluded.last_opened,
		    duration_us = excluded.duration_us,
		    stroke_count = excluded.stroke_count,
		    snippet_count = excluded.snippet_count`,
		path, now, duration.Micros(), strokes, snippets,
	)
	if err != nil {
		return 0, fmt.Errorf("touch document: %w", err)
	}

	var id int64
	if err := l.db.QueryRow(`SELECT id FROM documents WHERE path = ?`, path).Scan(&id); err != nil {
		return 0, fmt.Errorf("get document id: %w", err)
	}
	return id, nil
}

// Get looks up one document by path.
func (l *Library) Get(path string) (Document, error) {
	row := l.db.QueryRow(`
		SELECT id, path, last_opened, duration_us, stroke_count, snippet_count
		FROM documents WHERE path = ?`, path)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return d, err
}

// Recent returns up to limit documents, most recently opened first.
func (l *Library) Recent(limit int) ([]Document, error) {
	rows, err := l.db.Query(`
		SELECT id, path, last_opened, duration_us, stroke_count, snippet_count
		FROM documents ORDER BY last_opened DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Forget removes a document and its autosave records.
func (l *Library) Forget(path string) error {
	res, err := l.db.Exec(`DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("forget document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("forget document: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordAutosave registers a written autosave file for a document and
// returns the autosave paths that fall outside the keep window, oldest
// first, for the caller to delete from disk.
func (l *Library) RecordAutosave(documentID int64, path string, keep int) ([]string, error) {
	now := time.Now().Unix()
	if _, err := l.db.Exec(`
		INSERT INTO autosaves (document_id, path, saved_at) VALUES (?, ?, ?)`,
		documentID, path, now,
	); err != nil {
		return nil, fmt.Errorf("record autosave: %w", err)
	}
	if keep <= 0 {
		return nil, nil
	}

	rows, err := l.db.Query(`
		SELECT id, path FROM autosaves
		WHERE document_id = ?
		ORDER BY saved_at DESC, id DESC LIMIT -1 OFFSET ?`, documentID, keep)
	if err != nil {
		return nil, fmt.Errorf("list stale autosaves: %w", err)
	}
	defer rows.Close()

	var ids []int64
	var stale []string
	for rows.Next() {
		var id int64
		var p string
		if err := rows.Scan(&id, &p); err != nil {
			return nil, fmt.Errorf("scan autosave: %w", err)
		}
		ids = append(ids, id)
		stale = append(stale, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, err := l.db.Exec(`DELETE FROM autosaves WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("drop stale autosave: %w", err)
		}
	}
	return stale, nil
}

// Autosaves returns a document's recorded autosaves, newest first.
func (l *Library) Autosaves(documentID int64) ([]Autosave, error) {
	rows, err := l.db.Query(`
		SELECT id, document_id, path, saved_at FROM autosaves
		WHERE document_id = ? ORDER BY saved_at DESC, id DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list autosaves: %w", err)
	}
	defer rows.Close()

	var out []Autosave
	for rows.Next() {
		var a Autosave
		var savedAt int64
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.Path, &savedAt); err != nil {
			return nil, fmt.Errorf("scan autosave: %w", err)
		}
		a.SavedAt = time.Unix(savedAt, 0)
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var d Document
	var opened, duration int64
	if err := row.Scan(&d.ID, &d.Path, &opened, &duration, &d.StrokeCount, &d.SnippetCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("scan document: %w", err)
	}
	d.LastOpened = time.Unix(opened, 0)
	d.Duration = times.FromMicros(duration)
	return d, nil
}
