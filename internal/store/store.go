// Package store persists console content.
//
// Three backends are provided: SQLite (the default, a single local file),
// Redis (shared between several server processes) and Memory (tests and
// throwaway sessions). All of them satisfy console.Persister and
// console.Loader.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/dshills/querystorm/internal/config"
)

// Errors returned by stores.
var (
	ErrClosed    = errors.New("store is closed")
	ErrInvalidID = errors.New("invalid console id")
)

// Record is the persisted state of one console.
type Record struct {
	ConsoleID string    `json:"console_id"`
	Content   string    `json:"content"`
	Hash      uint64    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists console content keyed by console id.
type Store interface {
	// Persist writes content for id, replacing any earlier content.
	Persist(ctx context.Context, id, content string) error

	// Load returns the persisted content for id. ok is false if nothing
	// has been persisted.
	Load(ctx context.Context, id string) (content string, ok bool, err error)

	// Record returns the full persisted record for id.
	Record(ctx context.Context, id string) (Record, bool, error)

	// Delete removes the content for id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// IDs returns the ids of all persisted consoles in ascending order.
	IDs(ctx context.Context) ([]string, error)

	// Close releases the backend.
	Close() error
}

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.BackendRedis:
		return OpenRedis(ctx, RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
	case config.BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Hash returns the content hash stored alongside each record.
func Hash(content string) uint64 {
	return xxh3.HashString(content)
}

func checkID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	return nil
}
