// Package store holds the persistent visibility map: item id -> item record.
package store

import (
	"context"
	"fmt"

	"github.com/idilsaglam/issuestash/internal/config"
	"github.com/idilsaglam/issuestash/internal/model"
	"github.com/idilsaglam/issuestash/internal/store/jsonstore"
	"github.com/idilsaglam/issuestash/internal/store/sqlitestore"
)

// Reader is all the popup ever needs from the store.
type Reader interface {
	// GetMany returns the records for the ids that exist. Missing ids are
	// simply absent from the map; that is not an error.
	GetMany(ctx context.Context, ids []string) (map[string]model.Item, error)
}

// Writer is owned by the page agent side.
type Writer interface {
	Put(ctx context.Context, items ...model.Item) error
}

// Store is a durable Reader and Writer.
type Store interface {
	Reader
	Writer
	Close() error
}

// Open returns the backend selected by cfg.Backend.
func Open(cfg config.StoreConfig) (Store, error) {
	path, err := config.ExpandPath(cfg.Path)
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "", config.BackendSQLite:
		s, err := sqlitestore.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case config.BackendJSON:
		s, err := jsonstore.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open json store: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
