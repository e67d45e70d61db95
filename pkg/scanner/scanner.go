package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/veridianlabs/switchyard/pkg/log"
	"github.com/veridianlabs/switchyard/pkg/types"
)

// Scanner discovers structurally complete snapshots under a root directory.
// It is a pure function of the filesystem at call time; de-duplication
// belongs to the task queue.
type Scanner struct {
	root string
}

// New creates a scanner over the given snapshot root
func New(root string) *Scanner {
	return &Scanner{root: root}
}

// Scan walks {root}/{tenant}/{timestamp} and returns every complete
// snapshot. Within a tenant, snapshots are returned in ascending timestamp
// order so catch-up after a restart processes older snapshots first.
func (s *Scanner) Scan() ([]types.Snapshot, error) {
	tenants, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot root: %w", err)
	}

	var snapshots []types.Snapshot
	for _, tenantEntry := range tenants {
		if !tenantEntry.IsDir() {
			continue
		}
		tenant := tenantEntry.Name()
		tenantDir := filepath.Join(s.root, tenant)

		candidates, err := os.ReadDir(tenantDir)
		if err != nil {
			scannerLogger := log.WithComponent("scanner")
			scannerLogger.Warn().Err(err).Str("tenant", tenant).Msg("Failed to read tenant directory")
			continue
		}

		var found []types.Snapshot
		for _, entry := range candidates {
			if !entry.IsDir() {
				continue
			}

			// Non-integer directory names are not snapshots
			timestamp, err := strconv.ParseInt(entry.Name(), 10, 64)
			if err != nil {
				continue
			}

			path := filepath.Join(tenantDir, entry.Name())
			if !isComplete(path) {
				continue
			}

			found = append(found, types.Snapshot{
				Tenant:    tenant,
				Timestamp: timestamp,
				Path:      path,
			})
		}

		sort.Slice(found, func(i, j int) bool {
			return found[i].Timestamp < found[j].Timestamp
		})
		snapshots = append(snapshots, found...)
	}

	return snapshots, nil
}

// isComplete requires nodes/ and relationships/ to exist and be non-empty.
// A snapshot missing either is a write still in progress and is picked up
// on a later scan.
func isComplete(path string) bool {
	return hasEntries(filepath.Join(path, "nodes")) &&
		hasEntries(filepath.Join(path, "relationships"))
}

func hasEntries(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}
