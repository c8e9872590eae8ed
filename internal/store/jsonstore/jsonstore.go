package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/idilsaglam/issuestash/internal/model"
)

// JSON-backed storage. Single file, human-readable, portable.
// One object keyed by item id; every Put rewrites the whole file.

// Store is a file-backed visibility map.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open prepares a store at path. The file is created lazily on first Put.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) GetMany(ctx context.Context, ids []string) (map[string]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Item, len(ids))
	for _, id := range ids {
		if it, ok := all[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, items ...model.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.ID == "" {
			return errors.New("put: item without id")
		}
		all[it.ID] = it
	}
	return s.save(all)
}

func (s *Store) Close() error { return nil }

func (s *Store) load() (map[string]model.Item, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]model.Item{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	items := map[string]model.Item{}
	if len(b) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return items, nil
}

func (s *Store) save(items map[string]model.Item) error {
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
