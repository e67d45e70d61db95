package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/veridianlabs/switchyard/pkg/log"
)

// systemDatabase hosts the server catalog
const systemDatabase = "system"

// Bolt implements Catalog against a Neo4j server over the Bolt protocol
type Bolt struct {
	driver neo4j.DriverWithContext
}

// Config holds Bolt connection parameters
type Config struct {
	URI      string
	User     string
	Password string
}

// NewBolt connects a catalog to the server at cfg.URI
func NewBolt(cfg Config) (*Bolt, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}
	return &Bolt{driver: driver}, nil
}

// Ping runs a trivial round-trip against the default database
func (b *Bolt) Ping(ctx context.Context) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx, "RETURN 1 AS health", nil)
	if err != nil {
		return fmt.Errorf("health query failed: %w", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return fmt.Errorf("health query returned no result: %w", err)
	}
	return nil
}

// ListDatabases returns the names of all user databases
func (b *Bolt) ListDatabases(ctx context.Context) ([]string, error) {
	session := b.systemSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		"SHOW DATABASES YIELD name WHERE name <> 'system' RETURN name ORDER BY name", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}

	var names []string
	for result.Next(ctx) {
		if name, ok := result.Record().Get("name"); ok {
			names = append(names, name.(string))
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	return names, nil
}

// CountDatabases returns the number of user databases
func (b *Bolt) CountDatabases(ctx context.Context) (int, error) {
	session := b.systemSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		"SHOW DATABASES YIELD name WHERE name <> 'system' RETURN count(*) AS db_count", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count databases: %w", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count databases: %w", err)
	}
	count, _ := record.Get("db_count")
	return int(count.(int64)), nil
}

// ListAliases returns alias name -> target database for all aliases
func (b *Bolt) ListAliases(ctx context.Context) (map[string]string, error) {
	session := b.systemSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, "SHOW ALIASES FOR DATABASE", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}

	aliases := make(map[string]string)
	for result.Next(ctx) {
		record := result.Record()
		name, okName := record.Get("name")
		target, okTarget := record.Get("database")
		if okName && okTarget {
			aliases[name.(string)] = target.(string)
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}
	return aliases, nil
}

// SetAlias creates or repoints an alias. Admin commands cannot be
// parameterized, so names are quoted with backticks the same way the
// server's own tooling quotes them.
func (b *Bolt) SetAlias(ctx context.Context, alias, target string) error {
	session := b.systemSession(ctx)
	defer session.Close(ctx)

	drop := fmt.Sprintf("DROP ALIAS %s IF EXISTS FOR DATABASE", quoteName(alias))
	if _, err := session.Run(ctx, drop, nil); err != nil {
		return fmt.Errorf("failed to drop existing alias %s: %w", alias, err)
	}

	create := fmt.Sprintf("CREATE ALIAS %s FOR DATABASE %s", quoteName(alias), quoteName(target))
	if _, err := session.Run(ctx, create, nil); err != nil {
		return fmt.Errorf("failed to create alias %s -> %s: %w", alias, target, err)
	}

	catalogLogger := log.WithComponent("catalog")
	catalogLogger.Info().
		Str("alias", alias).
		Str("target", target).
		Msg("Alias updated")
	return nil
}

// DropAlias removes an alias; dropping a missing alias is a no-op
func (b *Bolt) DropAlias(ctx context.Context, alias string) error {
	session := b.systemSession(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf("DROP ALIAS %s IF EXISTS FOR DATABASE", quoteName(alias))
	if _, err := session.Run(ctx, query, nil); err != nil {
		return fmt.Errorf("failed to drop alias %s: %w", alias, err)
	}
	return nil
}

// CreateDatabase creates a database if it does not already exist
func (b *Bolt) CreateDatabase(ctx context.Context, name string) error {
	session := b.systemSession(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf("CREATE DATABASE %s IF NOT EXISTS WAIT", quoteName(name))
	if _, err := session.Run(ctx, query, nil); err != nil {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return nil
}

// DropDatabase removes a database; dropping a missing database is a no-op
func (b *Bolt) DropDatabase(ctx context.Context, name string) error {
	session := b.systemSession(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf("DROP DATABASE %s IF EXISTS", quoteName(name))
	if _, err := session.Run(ctx, query, nil); err != nil {
		return fmt.Errorf("failed to drop database %s: %w", name, err)
	}
	return nil
}

// HeapUsage probes JVM heap utilization via JMX. The probe requires an
// edition that exposes dbms.queryJmx; anywhere it is missing the probe
// reports unavailable rather than failing.
func (b *Bolt) HeapUsage(ctx context.Context) (Probe[HeapSample], error) {
	session := b.systemSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		"CALL dbms.queryJmx('java.lang:type=Memory') YIELD attributes "+
			"WITH attributes['HeapMemoryUsage'] AS heap "+
			"RETURN heap.used AS used, heap.max AS max, heap.committed AS committed", nil)
	if err != nil {
		return Unavailable[HeapSample](), nil
	}
	record, err := result.Single(ctx)
	if err != nil {
		return Unavailable[HeapSample](), nil
	}

	used, okUsed := asInt64(record.AsMap()["used"])
	max, okMax := asInt64(record.AsMap()["max"])
	committed, _ := asInt64(record.AsMap()["committed"])
	if !okUsed || !okMax || max <= 0 || used > max {
		return Unavailable[HeapSample](), nil
	}
	return Available(HeapSample{Used: used, Committed: committed, Available: max - used}), nil
}

// PagecacheUsage probes page cache utilization via JMX. The metric layout
// varies across server versions; unknown layouts report unavailable.
func (b *Bolt) PagecacheUsage(ctx context.Context) (Probe[PagecacheSample], error) {
	session := b.systemSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		"CALL dbms.queryJmx('org.neo4j:instance=kernel#0,name=Page cache') YIELD attributes "+
			"RETURN attributes['BytesRead'].value AS used, attributes['MaxPages'].value AS max", nil)
	if err != nil {
		return Unavailable[PagecacheSample](), nil
	}
	record, err := result.Single(ctx)
	if err != nil {
		return Unavailable[PagecacheSample](), nil
	}

	used, okUsed := asInt64(record.AsMap()["used"])
	max, okMax := asInt64(record.AsMap()["max"])
	if !okUsed || !okMax || max <= 0 {
		return Unavailable[PagecacheSample](), nil
	}
	return Available(PagecacheSample{Used: used, Max: max}), nil
}

// Close releases the underlying driver
func (b *Bolt) Close(ctx context.Context) error {
	return b.driver.Close(ctx)
}

func (b *Bolt) systemSession(ctx context.Context) neo4j.SessionWithContext {
	return b.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: systemDatabase})
}

// quoteName wraps an identifier in backticks for admin commands, which do
// not accept parameters. Backticks inside the name are escaped by doubling.
func quoteName(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
