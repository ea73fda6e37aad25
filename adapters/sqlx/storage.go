// Package sqlx stores the leaderboard in Postgres or MySQL through jmoiron/sqlx.
package sqlx

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	libsqlx "github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"leaderbot/core"
)

// Driver selects the SQL dialect.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config holds SQL connection configuration.
type Config struct {
	Driver          Driver        `json:"driver" yaml:"driver" env:"LEADERBOT_SQL_DRIVER"`
	DSN             string        `json:"dsn" yaml:"dsn" env:"LEADERBOT_SQL_DSN"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" env:"LEADERBOT_SQL_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" env:"LEADERBOT_SQL_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"LEADERBOT_SQL_CONN_MAX_LIFETIME"`
	ConnectTimeout  time.Duration `json:"connect_timeout" yaml:"connect_timeout" env:"LEADERBOT_SQL_CONNECT_TIMEOUT"`
	AutoMigrate     bool          `json:"auto_migrate" yaml:"auto_migrate" env:"LEADERBOT_SQL_AUTO_MIGRATE"`
}

// DefaultConfig returns sensible defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnectTimeout:  5 * time.Second,
		AutoMigrate:     true,
	}
}

// Validate checks the driver and DSN.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("unsupported sql driver %q", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("dsn cannot be empty")
	}
	return nil
}

const createTable = `CREATE TABLE IF NOT EXISTS leaderboard (
    actor_id BIGINT PRIMARY KEY,
    points   BIGINT NOT NULL,
    wins     BIGINT NOT NULL
)`

// Store implements engine.Storage on a SQL database. Award locks the actor's
// row for the length of its transaction, so awards to one actor serialize
// while awards to different actors proceed in parallel.
type Store struct {
	db     *libsqlx.DB
	driver Driver
}

// New opens a connection pool, verifies it and optionally creates the table.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := libsqlx.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	s := NewWithDB(db, cfg.Driver)
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewWithDB wraps an existing handle (useful for testing).
func NewWithDB(db *libsqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Migrate creates the leaderboard table if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create leaderboard table: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) ensureRowQuery() string {
	if s.driver == DriverMySQL {
		return `INSERT IGNORE INTO leaderboard (actor_id, points, wins) VALUES (?, 0, 0)`
	}
	return s.db.Rebind(`INSERT INTO leaderboard (actor_id, points, wins) VALUES (?, 0, 0) ON CONFLICT (actor_id) DO NOTHING`)
}

func (s *Store) Award(ctx context.Context, actor core.ActorID, delta int64) (core.Entry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.Entry{}, fmt.Errorf("begin award: %w", err)
	}
	defer tx.Rollback()

	// The zero row is rolled back with the transaction if the award fails.
	if _, err := tx.ExecContext(ctx, s.ensureRowQuery(), int64(actor)); err != nil {
		return core.Entry{}, fmt.Errorf("ensure entry: %w", err)
	}

	var cur core.Entry
	if err := tx.QueryRowxContext(ctx,
		s.db.Rebind(`SELECT points, wins FROM leaderboard WHERE actor_id = ? FOR UPDATE`), int64(actor),
	).Scan(&cur.Points, &cur.Wins); err != nil {
		return core.Entry{}, fmt.Errorf("lock entry: %w", err)
	}

	next, err := cur.Apply(actor, delta)
	if err != nil {
		return core.Entry{}, err
	}

	if _, err := tx.ExecContext(ctx,
		s.db.Rebind(`UPDATE leaderboard SET points = ?, wins = ? WHERE actor_id = ?`),
		next.Points, next.Wins, int64(actor),
	); err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
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
	var out []core.Entry
	if err := s.db.SelectContext(ctx, &out, `SELECT actor_id, points, wins FROM leaderboard ORDER BY actor_id`); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	return out, nil
}
