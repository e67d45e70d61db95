package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a named database does not exist, such as
// the target of SetAlias in the Memory catalog
var ErrNotFound = errors.New("not found")

// HeapSample is a point-in-time reading of server heap usage
type HeapSample struct {
	Used      int64
	Committed int64
	Available int64
}

// PagecacheSample is a point-in-time reading of server page cache usage
type PagecacheSample struct {
	Used int64
	Max  int64
}

// Probe is the result of a memory probe: a sample, or unavailable.
// Probes are best effort; an unavailable probe is not an error.
type Probe[T any] struct {
	Available bool
	Sample    T
}

// Available wraps a sample in an available probe result
func Available[T any](sample T) Probe[T] {
	return Probe[T]{Available: true, Sample: sample}
}

// Unavailable returns an unavailable probe result
func Unavailable[T any]() Probe[T] {
	return Probe[T]{}
}

// Catalog is the administrative surface of the graph database server:
// database and alias lifecycle plus read-only health probes. Implementations
// must make SetAlias, DropAlias, and DropDatabase idempotent.
type Catalog interface {
	// Ping runs a trivial round-trip against the server
	Ping(ctx context.Context) error

	// ListDatabases returns the names of all user databases
	ListDatabases(ctx context.Context) ([]string, error)

	// CountDatabases returns the number of user databases
	CountDatabases(ctx context.Context) (int, error)

	// ListAliases returns alias name -> target database for all aliases
	ListAliases(ctx context.Context) (map[string]string, error)

	// SetAlias creates or repoints an alias at the target database
	SetAlias(ctx context.Context, alias, target string) error

	// DropAlias removes an alias; dropping a missing alias is a no-op
	DropAlias(ctx context.Context, alias string) error

	// CreateDatabase creates a database if it does not already exist
	CreateDatabase(ctx context.Context, name string) error

	// DropDatabase removes a database; dropping a missing database is a no-op
	DropDatabase(ctx context.Context, name string) error

	// HeapUsage probes server heap utilization where the server exposes it
	HeapUsage(ctx context.Context) (Probe[HeapSample], error)

	// PagecacheUsage probes server page cache utilization where exposed
	PagecacheUsage(ctx context.Context) (Probe[PagecacheSample], error)

	// Close releases the underlying connection
	Close(ctx context.Context) error
}
