package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridianlabs/switchyard/pkg/types"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndList(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Append(Record{
		Tenant:     "t1",
		Timestamp:  100,
		Database:   "t1-100",
		State:      types.TaskStateCompleted,
		FinishedAt: time.Now(),
	}))
	require.NoError(t, store.Append(Record{
		Tenant:     "t1",
		Timestamp:  200,
		Database:   "t1-200",
		State:      types.TaskStateAbandoned,
		RetryCount: 3,
		LastError:  "connection reset",
		FinishedAt: time.Now(),
	}))
	require.NoError(t, store.Append(Record{
		Tenant:     "t2",
		Timestamp:  50,
		Database:   "t2-50",
		State:      types.TaskStateCompleted,
		FinishedAt: time.Now(),
	}))

	records, err := store.List("")
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first within a tenant
	assert.Equal(t, int64(200), records[0].Timestamp)
	assert.Equal(t, types.TaskStateAbandoned, records[0].State)
	assert.Equal(t, "connection reset", records[0].LastError)
	assert.Equal(t, int64(100), records[1].Timestamp)
}

func TestList_FilterByTenant(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Append(Record{Tenant: "t1", Timestamp: 100, State: types.TaskStateCompleted}))
	require.NoError(t, store.Append(Record{Tenant: "t2", Timestamp: 200, State: types.TaskStateCompleted}))

	records, err := store.List("t2")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "t2", records[0].Tenant)
}

func TestAppend_OverwritesSameKey(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Append(Record{Tenant: "t1", Timestamp: 100, State: types.TaskStateAbandoned}))
	require.NoError(t, store.Append(Record{Tenant: "t1", Timestamp: 100, State: types.TaskStateCompleted}))

	records, err := store.List("t1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, types.TaskStateCompleted, records[0].State)
}
