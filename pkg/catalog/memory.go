package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-memory Catalog used by the test suite. All operations
// are safe for concurrent use.
type Memory struct {
	mu        sync.Mutex
	databases map[string]bool
	aliases   map[string]string

	// PingErr, when set, is returned from Ping
	PingErr error

	// Heap and Pagecache are returned from the probe methods
	Heap      Probe[HeapSample]
	Pagecache Probe[PagecacheSample]

	// DropLog records every DropDatabase call in order
	DropLog []string
}

// NewMemory creates an empty in-memory catalog with probes unavailable
func NewMemory() *Memory {
	return &Memory{
		databases: make(map[string]bool),
		aliases:   make(map[string]string),
	}
}

// Ping returns PingErr
func (m *Memory) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingErr
}

// ListDatabases returns user database names in sorted order
func (m *Memory) ListDatabases(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.databases))
	for name := range m.databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CountDatabases returns the number of user databases
func (m *Memory) CountDatabases(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.databases), nil
}

// ListAliases returns a copy of the alias table
func (m *Memory) ListAliases(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	aliases := make(map[string]string, len(m.aliases))
	for name, target := range m.aliases {
		aliases[name] = target
	}
	return aliases, nil
}

// SetAlias creates or repoints an alias; the target database must exist
func (m *Memory) SetAlias(ctx context.Context, alias, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.databases[target] {
		return fmt.Errorf("set alias %s: target database %s: %w", alias, target, ErrNotFound)
	}
	m.aliases[alias] = target
	return nil
}

// DropAlias removes an alias; missing aliases are a no-op
func (m *Memory) DropAlias(ctx context.Context, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.aliases, alias)
	return nil
}

// CreateDatabase creates a database; existing databases are a no-op
func (m *Memory) CreateDatabase(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.databases[name] = true
	return nil
}

// DropDatabase removes a database; missing databases are a no-op
func (m *Memory) DropDatabase(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.databases, name)
	m.DropLog = append(m.DropLog, name)
	return nil
}

// HeapUsage returns the configured heap probe
func (m *Memory) HeapUsage(ctx context.Context) (Probe[HeapSample], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Heap, nil
}

// PagecacheUsage returns the configured pagecache probe
func (m *Memory) PagecacheUsage(ctx context.Context) (Probe[PagecacheSample], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Pagecache, nil
}

// Close is a no-op
func (m *Memory) Close(ctx context.Context) error {
	return nil
}

// HasDatabase reports whether a database exists
func (m *Memory) HasDatabase(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.databases[name]
}

// AliasTarget returns the target of an alias, or "" when unset
func (m *Memory) AliasTarget(alias string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aliases[alias]
}
