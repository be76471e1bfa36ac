// Package db persists contract records. Every Save is an atomic replace of the
// full record; backends are PostgreSQL, SQLite and an in-memory map.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/contract-auditor/internal/types"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when no contract has the requested ID.
var ErrNotFound = errors.New("contract not found")

// Store is the persistence collaborator used by the audit service.
type Store interface {
	// Load returns the full record, or ErrNotFound.
	Load(ctx context.Context, id string) (*types.Contract, error)
	// Save inserts or fully replaces the record with c.ID.
	Save(ctx context.Context, c *types.Contract) error
	// List returns matching records newest first, without document bytes or raw text.
	List(ctx context.Context, filter types.ContractFilter) ([]types.Contract, error)
	// Delete removes the record, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// PersistenceError wraps a storage failure.
type PersistenceError struct {
	Op    string
	ID    string
	Cause error
}

func (e *PersistenceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("db: %s %s: %v", e.Op, e.ID, e.Cause)
	}
	return fmt.Sprintf("db: %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// Open connects to the store named by url and applies its schema.
//
//	postgres://... or postgresql://...  PostgreSQL via pgx
//	sqlite://path/to/file.db or file:... SQLite
//	memory://                           in-process map
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgresStore(ctx, url)
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("sqlite url has no path: %q", url)
		}
		return NewSQLiteStore(ctx, path)
	case strings.HasPrefix(url, "file:"):
		return NewSQLiteStore(ctx, url)
	case url == "memory" || strings.HasPrefix(url, "memory://"):
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database url %q", redact(url))
	}
}

func schema(name string) string {
	data, err := migrations.ReadFile("migrations/" + name)
	if err != nil {
		panic(fmt.Sprintf("missing embedded migration %s: %v", name, err))
	}
	return string(data)
}

// redact drops credentials from a URL before it is shown in an error.
func redact(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}
