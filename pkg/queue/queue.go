package queue

import (
	"sync"

	"github.com/veridianlabs/switchyard/pkg/types"
)

// Queue is a FIFO of pending snapshot tasks with an admission filter.
// The admission set remembers every (tenant, timestamp) ever offered;
// a key is admitted exactly once per supervisor lifetime, regardless of
// how often the scanner rediscovers it. Retries re-enter through Requeue,
// which bypasses the filter: the filter encodes "first seen by scanner",
// not "present in queue".
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []*types.Task
	seen   map[types.SnapshotKey]bool
	closed bool
}

// New creates an empty open queue
func New() *Queue {
	q := &Queue{seen: make(map[types.SnapshotKey]bool)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Offer admits a task unless its (tenant, timestamp) has been seen before
// or the queue is closed. The admission check and the enqueue are atomic.
func (q *Queue) Offer(task *types.Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	key := task.Snapshot.Key()
	if q.seen[key] {
		return false
	}
	q.seen[key] = true
	q.tasks = append(q.tasks, task)
	q.cond.Signal()
	return true
}

// Requeue re-enters a task that is being retried. It bypasses the
// admission filter but is still rejected once the queue is closed, so
// retries scheduled during shutdown are discarded.
func (q *Queue) Requeue(task *types.Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, task)
	q.cond.Signal()
	return true
}

// Take blocks until a task is available or the queue is closed. The
// second return value is false once the queue is closed; tasks still
// buffered at close time are discarded, not delivered.
func (q *Queue) Take() (*types.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.tasks) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}

	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return task, true
}

// Close rejects further entries and wakes all blocked takers
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Size returns the number of buffered tasks
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Seen reports whether a key has ever been admitted
func (q *Queue) Seen(key types.SnapshotKey) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seen[key]
}
