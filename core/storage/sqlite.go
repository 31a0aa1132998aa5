package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite-backed store, creating the database and its
// table when missing.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_documents (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			format     TEXT NOT NULL,
			data       BLOB NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_documents table: %w", err)
	}
	return nil
}

// Save inserts or replaces a document by id.
func (s *SQLite) Save(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return errors.New("storage: empty document id")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schema_documents (id, name, format, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			format = excluded.format,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Name, doc.Format, doc.Data, now, now,
	)
	if err != nil {
		return fmt.Errorf("save schema document %q: %w", doc.ID, err)
	}
	return nil
}

// Get retrieves a document by id.
func (s *SQLite) Get(ctx context.Context, id string) (Document, error) {
	var doc Document
	var created, updated string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, format, data, created_at, updated_at
		FROM schema_documents WHERE id = ?`,
		id,
	).Scan(&doc.ID, &doc.Name, &doc.Format, &doc.Data, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("load schema document %q: %w", id, err)
	}

	doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return doc, nil
}

// List returns every document ordered by name, then id.
func (s *SQLite) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, format, data, created_at, updated_at
		FROM schema_documents ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list schema documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var created, updated string
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Format, &doc.Data, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan schema document: %w", err)
		}
		doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes a document.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM schema_documents WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("delete schema document %q: %w", id, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ensure interface compliance.
var _ Store = (*SQLite)(nil)
