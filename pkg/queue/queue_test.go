package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridianlabs/switchyard/pkg/types"
)

func task(tenant string, timestamp int64) *types.Task {
	return &types.Task{
		Snapshot: types.Snapshot{Tenant: tenant, Timestamp: timestamp},
	}
}

func TestOffer_DeduplicatesByKey(t *testing.T) {
	q := New()

	assert.True(t, q.Offer(task("t1", 100)))
	assert.False(t, q.Offer(task("t1", 100)))
	assert.True(t, q.Offer(task("t1", 200)))
	assert.True(t, q.Offer(task("t2", 100)))

	assert.Equal(t, 3, q.Size())
}

// A dequeued task stays in the admission set; the scanner rediscovering
// it on the next sweep must not re-enqueue it.
func TestOffer_RejectedAfterTake(t *testing.T) {
	q := New()
	require.True(t, q.Offer(task("t1", 100)))

	got, ok := q.Take()
	require.True(t, ok)
	assert.Equal(t, "t1", got.Snapshot.Tenant)

	assert.False(t, q.Offer(task("t1", 100)))
	assert.True(t, q.Seen(types.SnapshotKey{Tenant: "t1", Timestamp: 100}))
}

func TestRequeue_BypassesAdmission(t *testing.T) {
	q := New()
	tk := task("t1", 100)
	require.True(t, q.Offer(tk))

	_, ok := q.Take()
	require.True(t, ok)

	assert.True(t, q.Requeue(tk))
	assert.Equal(t, 1, q.Size())

	got, ok := q.Take()
	require.True(t, ok)
	assert.Same(t, tk, got)
}

func TestTake_FIFO(t *testing.T) {
	q := New()
	require.True(t, q.Offer(task("t1", 100)))
	require.True(t, q.Offer(task("t1", 200)))

	first, _ := q.Take()
	second, _ := q.Take()
	assert.Equal(t, int64(100), first.Snapshot.Timestamp)
	assert.Equal(t, int64(200), second.Snapshot.Timestamp)
}

func TestTake_BlocksUntilOffer(t *testing.T) {
	q := New()
	done := make(chan *types.Task)

	go func() {
		got, ok := q.Take()
		require.True(t, ok)
		done <- got
	}()

	select {
	case <-done:
		t.Fatal("Take returned before any task was offered")
	case <-time.After(50 * time.Millisecond):
	}

	q.Offer(task("t1", 100))

	select {
	case got := <-done:
		assert.Equal(t, int64(100), got.Snapshot.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("Take did not wake after Offer")
	}
}

func TestClose_WakesBlockedWaiters(t *testing.T) {
	q := New()
	require.True(t, q.Offer(task("t1", 100)))

	waiters := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		go func() {
			// Drain the one buffered task, then block
			_, ok := q.Take()
			waiters <- ok
		}()
	}

	time.Sleep(50 * time.Millisecond)
	q.Close()

	results := []bool{<-waiters, <-waiters}
	assert.Contains(t, results, true)
	assert.Contains(t, results, false)
}

func TestClose_RejectsFurtherEntries(t *testing.T) {
	q := New()
	q.Close()

	assert.False(t, q.Offer(task("t1", 100)))
	assert.False(t, q.Requeue(task("t1", 100)))

	_, ok := q.Take()
	assert.False(t, ok)
}

func TestClose_DiscardsQueuedTasks(t *testing.T) {
	q := New()
	require.True(t, q.Offer(task("t1", 100)))
	q.Close()

	_, ok := q.Take()
	assert.False(t, ok)
}
