// Package store keeps world snapshots in SQLite. A snapshot is the
// persisted state of every logic entity at one moment.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested snapshot doesn't exist.
var ErrNotFound = errors.New("snapshot not found")

// Record is one persisted entity.
type Record struct {
	Pos  int32
	Type string
	Team int
	Data []byte
}

// Snapshot describes a stored save.
type Snapshot struct {
	ID        string
	Label     string
	CreatedAt time.Time
	Entities  int
}

// Store handles SQLite storage for snapshots.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS saves (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entities (
	save_id TEXT NOT NULL REFERENCES saves(id) ON DELETE CASCADE,
	ord     INTEGER NOT NULL,
	pos     INTEGER NOT NULL,
	type    TEXT NOT NULL,
	team    INTEGER NOT NULL,
	data    BLOB NOT NULL,
	PRIMARY KEY (save_id, ord)
);
`

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores records as a new snapshot and returns its id.
func (s *Store) Save(ctx context.Context, label string, records []Record) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO saves (id, label, created_at) VALUES (?, ?, ?)",
		id, label, time.Now().UnixNano(),
	); err != nil {
		return "", fmt.Errorf("saving snapshot: %w", err)
	}
	for i, r := range records {
		if r.Data == nil {
			r.Data = []byte{}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO entities (save_id, ord, pos, type, team, data) VALUES (?, ?, ?, ?, ?, ?)",
			id, i, r.Pos, r.Type, r.Team, r.Data,
		); err != nil {
			return "", fmt.Errorf("saving entity %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing save: %w", err)
	}
	return id, nil
}

// Load returns the records of snapshot id in saved order.
func (s *Store) Load(ctx context.Context, id string) ([]Record, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM saves WHERE id = ?", id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT pos, type, team, data FROM entities WHERE save_id = ? ORDER BY ord", id)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Pos, &r.Type, &r.Team, &r.Data); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Latest returns the id of the most recent snapshot.
func (s *Store) Latest(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM saves ORDER BY created_at DESC, rowid DESC LIMIT 1").Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("querying latest snapshot: %w", err)
	}
	return id, nil
}

// List returns every snapshot, newest first.
func (s *Store) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.label, s.created_at, COUNT(e.ord)
		FROM saves s LEFT JOIN entities e ON e.save_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at DESC, s.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var created int64
		if err := rows.Scan(&snap.ID, &snap.Label, &created, &snap.Entities); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snap.CreatedAt = time.Unix(0, created)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Delete removes snapshot id and its entities.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM saves WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
