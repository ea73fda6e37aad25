// Package sqlite provides the durable SQLite-backed leaderboard table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"leaderbot/adapters/sqlite/migrations"
	"leaderbot/core"
)

// Store persists leaderboard rows in SQLite. It holds a single connection,
// which serializes every operation; WAL with synchronous=FULL makes each
// committed award durable.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(path)), 0o750); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Award(ctx context.Context, actor core.ActorID, delta int64) (core.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Entry{}, fmt.Errorf("begin award: %w", err)
	}
	defer tx.Rollback()

	var cur core.Entry
	err = tx.QueryRowContext(ctx,
		`SELECT points, wins FROM leaderboard WHERE actor_id = ?`, int64(actor),
	).Scan(&cur.Points, &cur.Wins)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, fmt.Errorf("read entry: %w", err)
	}

	next, err := cur.Apply(actor, delta)
	if err != nil {
		return core.Entry{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO leaderboard (actor_id, points, wins) VALUES (?, ?, ?)
		 ON CONFLICT(actor_id) DO UPDATE SET points = excluded.points, wins = excluded.wins`,
		int64(actor), next.Points, next.Wins,
	); err != nil {
		return core.Entry{}, fmt.Errorf("upsert entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Entry{}, fmt.Errorf("commit award: %w", err)
	}
	return next, nil
}

func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM leaderboard`); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	return nil
}

func (s *Store) Snapshot(ctx context.Context) ([]core.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT actor_id, points, wins FROM leaderboard ORDER BY actor_id`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		var (
			e  core.Entry
			id int64
		)
		if err := rows.Scan(&id, &e.Points, &e.Wins); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.ActorID = core.ActorID(id)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}
