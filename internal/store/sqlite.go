package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS consoles (
	id           TEXT PRIMARY KEY,
	content      TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	updated_at   INTEGER NOT NULL
);
`

// SQLite stores console content in a local SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens or creates the database at path and ensures the schema.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Persist implements Store.
func (s *SQLite) Persist(ctx context.Context, id, content string) error {
	if err := checkID(id); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consoles (id, content, content_hash, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at`,
		id, content, formatHash(Hash(content)), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("persist %s: %w", id, err)
	}
	return nil
}

// Load implements Store.
func (s *SQLite) Load(ctx context.Context, id string) (string, bool, error) {
	rec, ok, err := s.Record(ctx, id)
	return rec.Content, ok, err
}

// Record implements Store.
func (s *SQLite) Record(ctx context.Context, id string) (Record, bool, error) {
	var (
		rec     = Record{ConsoleID: id}
		hash    string
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT content, content_hash, updated_at FROM consoles WHERE id = ?`, id,
	).Scan(&rec.Content, &hash, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("load %s: %w", id, err)
	}

	rec.Hash, err = parseHash(hash)
	if err != nil {
		return Record{}, false, fmt.Errorf("load %s: %w", id, err)
	}
	rec.UpdatedAt = time.UnixMilli(updated)
	return rec, true, nil
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM consoles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// IDs implements Store.
func (s *SQLite) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM consoles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list consoles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list consoles: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// The hash is stored as text since SQLite integers are signed.
func formatHash(h uint64) string {
	return strconv.FormatUint(h, 16)
}

func parseHash(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}
