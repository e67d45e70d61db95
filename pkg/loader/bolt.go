package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/veridianlabs/switchyard/pkg/catalog"
	"github.com/veridianlabs/switchyard/pkg/log"
	"github.com/veridianlabs/switchyard/pkg/types"
)

// defaultBatchSize is the number of rows sent per UNWIND statement
const defaultBatchSize = 5000

// BoltLoader ingests columnar CSV snapshots over the Bolt protocol.
// Layout expected under dataPath:
//
//	nodes/{Label}/*.csv          one header row, must include an "id" column
//	relationships/{TYPE}/*.csv   must include "start_id" and "end_id" columns
type BoltLoader struct {
	driver    neo4j.DriverWithContext
	catalog   catalog.Catalog
	batchSize int
}

// Config holds Bolt loader connection parameters
type Config struct {
	URI       string
	User      string
	Password  string
	BatchSize int
}

// NewBolt creates a loader sharing the given catalog for database lifecycle
func NewBolt(cfg Config, cat catalog.Catalog) (*BoltLoader, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &BoltLoader{driver: driver, catalog: cat, batchSize: batchSize}, nil
}

// Load drops any partial prior state for the target database, recreates
// it, and feeds nodes then relationships.
func (l *BoltLoader) Load(ctx context.Context, tenant string, timestamp int64, dataPath string) error {
	dbName := types.DatabaseName(tenant, timestamp)
	logger := log.WithSnapshot(tenant, timestamp)

	// A failed earlier attempt may have left the database behind, possibly
	// with an alias already pointing at it. Clear both before recreating.
	aliases, err := l.catalog.ListAliases(ctx)
	if err != nil {
		return fmt.Errorf("failed to list aliases before load: %w", err)
	}
	for alias, target := range aliases {
		if target == dbName {
			logger.Info().Str("alias", alias).Msg("Dropping alias pointing at partial database")
			if err := l.catalog.DropAlias(ctx, alias); err != nil {
				return fmt.Errorf("failed to drop alias %s: %w", alias, err)
			}
		}
	}
	if err := l.catalog.DropDatabase(ctx, dbName); err != nil {
		return fmt.Errorf("failed to drop prior database: %w", err)
	}
	if err := l.catalog.CreateDatabase(ctx, dbName); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	nodeCount, err := l.loadNodes(ctx, dbName, filepath.Join(dataPath, "nodes"))
	if err != nil {
		return err
	}
	relCount, err := l.loadRelationships(ctx, dbName, filepath.Join(dataPath, "relationships"))
	if err != nil {
		return err
	}

	logger.Info().
		Str("database", dbName).
		Int64("nodes", nodeCount).
		Int64("relationships", relCount).
		Msg("Load complete")
	return nil
}

// Close releases the underlying driver
func (l *BoltLoader) Close(ctx context.Context) error {
	return l.driver.Close(ctx)
}

func (l *BoltLoader) loadNodes(ctx context.Context, dbName, nodesDir string) (int64, error) {
	labels, err := os.ReadDir(nodesDir)
	if err != nil {
		return 0, Permanent(fmt.Errorf("missing nodes directory: %w", err))
	}

	var total int64
	for _, labelEntry := range labels {
		if !labelEntry.IsDir() {
			continue
		}
		label := labelEntry.Name()
		query := fmt.Sprintf(
			"UNWIND $rows AS row CREATE (n:`%s`) SET n = row", label)

		n, err := l.feedDir(ctx, dbName, filepath.Join(nodesDir, label), query, func(header []string) error {
			if !contains(header, "id") {
				return fmt.Errorf("node file for label %s has no id column", label)
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (l *BoltLoader) loadRelationships(ctx context.Context, dbName, relsDir string) (int64, error) {
	relTypes, err := os.ReadDir(relsDir)
	if err != nil {
		return 0, Permanent(fmt.Errorf("missing relationships directory: %w", err))
	}

	var total int64
	for _, typeEntry := range relTypes {
		if !typeEntry.IsDir() {
			continue
		}
		relType := typeEntry.Name()
		query := fmt.Sprintf(
			"UNWIND $rows AS row "+
				"MATCH (a {id: row.start_id}), (b {id: row.end_id}) "+
				"CREATE (a)-[r:`%s`]->(b) "+
				"SET r = row", relType)

		n, err := l.feedDir(ctx, dbName, filepath.Join(relsDir, relType), query, func(header []string) error {
			if !contains(header, "start_id") || !contains(header, "end_id") {
				return fmt.Errorf("relationship file for type %s is missing start_id/end_id columns", relType)
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// feedDir streams every CSV file in dir through the query in batches
func (l *BoltLoader) feedDir(ctx context.Context, dbName, dir, query string, checkHeader func([]string) error) (int64, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, Permanent(fmt.Errorf("failed to read %s: %w", dir, err))
	}

	session := l.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: dbName})
	defer session.Close(ctx)

	var total int64
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".csv") {
			continue
		}
		n, err := l.feedFile(ctx, session, filepath.Join(dir, file.Name()), query, checkHeader)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (l *BoltLoader) feedFile(ctx context.Context, session neo4j.SessionWithContext, path, query string, checkHeader func([]string) error) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return 0, Permanent(fmt.Errorf("failed to read header of %s: %w", path, err))
	}
	if err := checkHeader(header); err != nil {
		return 0, Permanent(err)
	}

	var total int64
	batch := make([]map[string]any, 0, l.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := session.Run(ctx, query, map[string]any{"rows": batch})
		if err != nil {
			return fmt.Errorf("batch insert failed for %s: %w", path, err)
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, Permanent(fmt.Errorf("malformed row in %s: %w", path, err))
		}

		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		batch = append(batch, row)

		if len(batch) >= l.batchSize {
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := flush(); err != nil {
		return 0, err
	}
	return total, nil
}

func contains(header []string, col string) bool {
	for _, h := range header {
		if h == col {
			return true
		}
	}
	return false
}
