package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"leaderbot/core"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" yaml:"addr" env:"LEADERBOT_REDIS_ADDR"`
	Password     string        `json:"-" yaml:"-" env:"LEADERBOT_REDIS_PASSWORD"`
	DB           int           `json:"db" yaml:"db" env:"LEADERBOT_REDIS_DB"`
	KeyPrefix    string        `json:"key_prefix" yaml:"key_prefix" env:"LEADERBOT_REDIS_KEY_PREFIX"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size" env:"LEADERBOT_REDIS_POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns" env:"LEADERBOT_REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout" env:"LEADERBOT_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" env:"LEADERBOT_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" env:"LEADERBOT_REDIS_WRITE_TIMEOUT"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		KeyPrefix:    "leaderbot",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements engine.Storage on Redis.
// Data structure:
// - {prefix}:points -> hash of actor id -> points total
// - {prefix}:wins   -> hash of actor id -> wins count
//
// Awards run as WATCH/MULTI transactions over both hashes and retry when a
// concurrent writer wins the race.
type Store struct {
	client    *redis.Client
	pointsKey string
	winsKey   string
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newStore(client, config.KeyPrefix), nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return newStore(client, DefaultConfig().KeyPrefix)
}

func newStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultConfig().KeyPrefix
	}
	return &Store{client: client, pointsKey: prefix + ":points", winsKey: prefix + ":wins"}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Award(ctx context.Context, actor core.ActorID, delta int64) (core.Entry, error) {
	field := actor.String()
	for {
		var next core.Entry
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			cur := core.Entry{ActorID: actor}
			var err error
			if cur.Points, err = hgetInt(ctx, tx, s.pointsKey, field); err != nil {
				return err
			}
			if cur.Wins, err = hgetInt(ctx, tx, s.winsKey, field); err != nil {
				return err
			}
			if next, err = cur.Apply(actor, delta); err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.HSet(ctx, s.pointsKey, field, next.Points)
				p.HSet(ctx, s.winsKey, field, next.Wins)
				return nil
			})
			return err
		}, s.pointsKey, s.winsKey)

		switch {
		case err == nil:
			return next, nil
		case errors.Is(err, redis.TxFailedErr):
			if ctx.Err() != nil {
				return core.Entry{}, ctx.Err()
			}
			continue
		case errors.Is(err, core.ErrOverflow):
			return core.Entry{}, err
		default:
			return core.Entry{}, fmt.Errorf("failed to award: %w", err)
		}
	}
}

func (s *Store) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, s.pointsKey, s.winsKey).Err(); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	return nil
}

func (s *Store) Snapshot(ctx context.Context) ([]core.Entry, error) {
	var points, wins *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		points = p.HGetAll(ctx, s.pointsKey)
		wins = p.HGetAll(ctx, s.winsKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	out := make([]core.Entry, 0, len(points.Val()))
	for field, raw := range points.Val() {
		actor, err := core.ParseActorID(field)
		if err != nil {
			return nil, fmt.Errorf("corrupt actor field %q: %w", field, err)
		}
		p, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt points for %s: %w", field, err)
		}
		w, err := strconv.ParseInt(wins.Val()[field], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt wins for %s: %w", field, err)
		}
		out = append(out, core.Entry{ActorID: actor, Points: p, Wins: w})
	}
	slices.SortFunc(out, func(a, b core.Entry) int {
		switch {
		case a.ActorID < b.ActorID:
			return -1
		case a.ActorID > b.ActorID:
			return 1
		}
		return 0
	})
	return out, nil
}

func hgetInt(ctx context.Context, tx *redis.Tx, key, field string) (int64, error) {
	v, err := tx.HGet(ctx, key, field).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}
