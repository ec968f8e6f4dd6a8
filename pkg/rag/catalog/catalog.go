// Package catalog records which documents have been learned. It is an
// audit trail next to the index store and lets a restarted process find
// the most recent document to restore.
package catalog

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/docker/docqa/pkg/model/provider/hashing"
)

// timeFormat has a fixed width so that learned_at sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Entry describes one learn.
type Entry struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Key         string    `json:"key"`
	Chunks      int       `json:"chunks"`
	ContentHash string    `json:"content_hash"`
	LearnedAt   time.Time `json:"learned_at"`
}

// Catalog is a SQLite backed list of learned documents.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog at path.
func Open(path string) (*Catalog, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create catalog schema: %w", err)
	}

	slog.Debug("[Catalog] Opened", "path", path)
	return c, nil
}

func (c *Catalog) createSchema() error {
	_, err := c.db.Exec(`
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		key TEXT NOT NULL,
		chunks INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		learned_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_learned_at ON documents(learned_at);
	`)
	return err
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// ContentHash fingerprints normalized document text.
func ContentHash(text string) string {
	return hex.EncodeToString(hashing.Fingerprint(text))
}

// Record stores an entry, filling in ID and LearnedAt when empty.
func (c *Catalog) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.LearnedAt.IsZero() {
		e.LearnedAt = time.Now().UTC()
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO documents (id, source, key, chunks, content_hash, learned_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, e.Key, e.Chunks, e.ContentHash, e.LearnedAt.UTC().Format(timeFormat))
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record document: %w", err)
	}
	return e, nil
}

// Latest returns the most recently learned document.
func (c *Catalog) Latest(ctx context.Context) (Entry, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, source, key, chunks, content_hash, learned_at FROM documents ORDER BY learned_at DESC, rowid DESC LIMIT 1`)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// List returns all entries, newest first.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, source, key, chunks, content_hash, learned_at FROM documents ORDER BY learned_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear removes every entry.
func (c *Catalog) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e         Entry
		learnedAt string
	)
	if err := s.Scan(&e.ID, &e.Source, &e.Key, &e.Chunks, &e.ContentHash, &learnedAt); err != nil {
		return Entry{}, err
	}

	t, err := time.Parse(timeFormat, learnedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid learned_at %q: %w", learnedAt, err)
	}
	e.LearnedAt = t
	return e, nil
}
