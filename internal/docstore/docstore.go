// Package docstore is a generic, logged document layer over Postgres.
// Each logical collection is a lazily created table of (id uuid, doc jsonb);
// filters are field-equality maps compiled to JSONB containment. Services
// talk to a Collection binding and never touch the driver directly.
package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/devstackhq/boilerplate/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Document is a single JSON document. The "id" field is assigned on insert
// when absent.
type Document map[string]any

// Filter matches documents whose fields equal every entry (JSONB containment).
// An empty filter matches everything.
type Filter map[string]any

// Projection is an include-list of top-level fields. Empty means all fields.
type Projection []string

type FindOptions struct {
	Sort string // document field to order by
	Desc bool
}

// Querier is the slice of pgxpool.Pool the store needs. Kept small so tests
// can fake it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	q    Querier
	log  *slog.Logger
	prom *observability.Prom

	mu      sync.Mutex
	ensured map[string]bool
}

// New builds a store. prom may be nil (tests).
func New(q Querier, log *slog.Logger, prom *observability.Prom) *Store {
	return &Store{
		q:       q,
		log:     log,
		prom:    prom,
		ensured: make(map[string]bool),
	}
}

// collection names end up in SQL, so they are restricted to identifiers
var collectionName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Collection returns the named-collection binding carrying all store
// operations. It panics on an invalid name: collection names are code, not
// user input.
func (s *Store) Collection(name string) *Collection {
	if !collectionName.MatchString(name) {
		panic(fmt.Sprintf("docstore: invalid collection name %q", name))
	}

	return &Collection{store: s, name: name}
}

type Collection struct {
	store *Store
	name  string
}

func (c *Collection) Name() string {
	return c.name
}

// ensure creates the backing table once per process.
func (s *Store) ensure(ctx context.Context, name string) error {
	s.mu.Lock()
	done := s.ensured[name]
	s.mu.Unlock()

	if done {
		return nil
	}

	_, err := s.q.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS `+name+` (id uuid PRIMARY KEY, doc jsonb NOT NULL)`)

	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ensured[name] = true
	s.mu.Unlock()

	return nil
}

// observe wraps an operation with metrics when a registry is wired.
func (s *Store) observe(op, collection string, fn func() error) error {
	if s.prom == nil {
		return fn()
	}

	return s.prom.ObserveStore(op, collection, fn)
}

func (c *Collection) logBefore(op string, args ...any) {
	kv := append([]any{"collection", c.name}, args...)
	c.store.log.Debug("docstore."+op, kv...)
}

func (c *Collection) logAfter(op string, args ...any) {
	kv := append([]any{"collection", c.name}, args...)
	c.store.log.Debug("docstore."+op+": done", kv...)
}

func (c *Collection) logError(op string, err error) {
	c.store.log.Error("docstore."+op+": failed", "collection", c.name, "err", err)
}

func (c *Collection) fail(op string, err error) (Result, error) {
	c.logError(op, err)
	return Result{}, fmt.Errorf("docstore: %s %s: %w", op, c.name, err)
}
