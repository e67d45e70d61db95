package history

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/veridianlabs/switchyard/pkg/types"
)

var bucketDeployments = []byte("deployments")

// Record is the durable trace of one task reaching a terminal state.
// History is informational: it feeds the history CLI command and is
// never consulted for admission, so a supervisor restart re-discovers
// snapshots and relies on idempotent effects instead.
type Record struct {
	Tenant     string          `json:"tenant"`
	Timestamp  int64           `json:"timestamp"`
	Database   string          `json:"database"`
	State      types.TaskState `json:"state"`
	RetryCount int             `json:"retry_count"`
	LastError  string          `json:"last_error,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Store is a bbolt-backed deployment history
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the history database at path
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDeployments)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records a terminal task outcome, keyed by (tenant, timestamp)
func (s *Store) Append(record Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeployments)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s/%020d", record.Tenant, record.Timestamp)
		return b.Put([]byte(key), data)
	})
}

// List returns all records grouped by tenant in ascending name order,
// newest first within each tenant. When tenant is non-empty only that
// tenant's records are returned.
func (s *Store) List(tenant string) ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeployments)
		return b.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("corrupt history record %s: %w", k, err)
			}
			if tenant != "" && record.Tenant != tenant {
				return nil
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Tenant != records[j].Tenant {
			return records[i].Tenant < records[j].Tenant
		}
		return records[i].Timestamp > records[j].Timestamp
	})
	return records, nil
}
