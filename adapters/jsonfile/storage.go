package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"leaderbot/core"
)

// Store persists the entire table to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.RWMutex
	// in-memory cache for speed
	data map[core.ActorID]core.Entry
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[core.ActorID]core.Entry{}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw map[string]core.Entry
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	for k, v := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return fmt.Errorf("decode %s: bad actor id %q", s.path, k)
		}
		v.ActorID = core.ActorID(id)
		s.data[v.ActorID] = v
	}
	return nil
}

// persist writes the table to a temp file, syncs it, renames it over the
// previous file and syncs the directory, so a crash leaves either the old or
// the new table.
func (s *Store) persist(data map[core.ActorID]core.Entry) error {
	raw := make(map[string]core.Entry, len(data))
	for k, v := range data {
		raw[k.String()] = v
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	return syncDir(filepath.Dir(s.path))
}

// syncDir flushes a directory entry so a completed rename survives a crash.
var syncDir = func(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		return fmt.Errorf("sync %s: %w", dir, err)
	}
	return d.Close()
}

func (s *Store) Award(_ context.Context, actor core.ActorID, delta int64) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.data[actor]
	next, err := prev.Apply(actor, delta)
	if err != nil {
		return core.Entry{}, err
	}
	s.data[actor] = next
	if err := s.persist(s.data); err != nil {
		if existed {
			s.data[actor] = prev
		} else {
			delete(s.data, actor)
		}
		return core.Entry{}, fmt.Errorf("persist award: %w", err)
	}
	return next, nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	empty := map[core.ActorID]core.Entry{}
	if err := s.persist(empty); err != nil {
		return fmt.Errorf("persist reset: %w", err)
	}
	s.data = empty
	return nil
}

func (s *Store) Snapshot(_ context.Context) ([]core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Entry, 0, len(s.data))
	for _, e := range s.data {
		out = append(out, e)
	}
	return out, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }
