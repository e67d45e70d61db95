package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridianlabs/switchyard/pkg/types"
)

// writeSnapshot creates a snapshot directory, optionally complete
func writeSnapshot(t *testing.T, root, tenant, timestamp string, nodes, relationships bool) {
	t.Helper()
	base := filepath.Join(root, tenant, timestamp)
	require.NoError(t, os.MkdirAll(base, 0o755))
	if nodes {
		dir := filepath.Join(base, "nodes", "Person")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "part-0.parquet"), []byte("x"), 0o644))
	}
	if relationships {
		dir := filepath.Join(base, "relationships", "KNOWS")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "part-0.parquet"), []byte("x"), 0o644))
	}
}

func TestScan_CompleteSnapshot(t *testing.T) {
	root := t.TempDir()
	writeSnapshot(t, root, "customer1", "100", true, true)

	snapshots, err := New(root).Scan()
	require.NoError(t, err)

	require.Len(t, snapshots, 1)
	assert.Equal(t, "customer1", snapshots[0].Tenant)
	assert.Equal(t, int64(100), snapshots[0].Timestamp)
	assert.Equal(t, filepath.Join(root, "customer1", "100"), snapshots[0].Path)
}

func TestScan_SkipsIncomplete(t *testing.T) {
	root := t.TempDir()
	writeSnapshot(t, root, "customer1", "100", true, false) // no relationships
	writeSnapshot(t, root, "customer1", "200", false, true) // no nodes
	writeSnapshot(t, root, "customer2", "300", false, false)

	// Empty subdirectories do not count as content
	base := filepath.Join(root, "customer3", "400")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "nodes"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "relationships"), 0o755))

	snapshots, err := New(root).Scan()
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestScan_SkipsNonIntegerNames(t *testing.T) {
	root := t.TempDir()
	writeSnapshot(t, root, "customer1", "latest", true, true)
	writeSnapshot(t, root, "customer1", "100", true, true)

	snapshots, err := New(root).Scan()
	require.NoError(t, err)

	require.Len(t, snapshots, 1)
	assert.Equal(t, int64(100), snapshots[0].Timestamp)
}

func TestScan_AscendingWithinTenant(t *testing.T) {
	root := t.TempDir()
	writeSnapshot(t, root, "customer1", "300", true, true)
	writeSnapshot(t, root, "customer1", "100", true, true)
	writeSnapshot(t, root, "customer1", "200", true, true)

	snapshots, err := New(root).Scan()
	require.NoError(t, err)

	timestamps := make([]int64, 0, len(snapshots))
	for _, s := range snapshots {
		timestamps = append(timestamps, s.Timestamp)
	}
	assert.Equal(t, []int64{100, 200, 300}, timestamps)
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing")).Scan()
	assert.Error(t, err)
}

func TestScan_BecomesCompleteBetweenScans(t *testing.T) {
	root := t.TempDir()
	writeSnapshot(t, root, "customer1", "100", true, false)

	s := New(root)
	snapshots, err := s.Scan()
	require.NoError(t, err)
	assert.Empty(t, snapshots)

	// Writer finishes the relationships half
	writeSnapshot(t, root, "customer1", "100", true, true)

	snapshots, err = s.Scan()
	require.NoError(t, err)
	assert.Equal(t, []types.Snapshot{{
		Tenant:    "customer1",
		Timestamp: 100,
		Path:      filepath.Join(root, "customer1", "100"),
	}}, snapshots)
}
