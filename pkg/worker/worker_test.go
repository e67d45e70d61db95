package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridianlabs/switchyard/pkg/catalog"
	"github.com/veridianlabs/switchyard/pkg/health"
	"github.com/veridianlabs/switchyard/pkg/loader"
	"github.com/veridianlabs/switchyard/pkg/metrics"
	"github.com/veridianlabs/switchyard/pkg/queue"
	"github.com/veridianlabs/switchyard/pkg/types"
)

// scriptedLoader returns errors from its script in order, then succeeds.
// Successful loads create the database in the backing catalog, the way a
// real loader would.
type scriptedLoader struct {
	mu     sync.Mutex
	script []error
	calls  int
	cat    *catalog.Memory
}

func (l *scriptedLoader) Load(ctx context.Context, tenant string, timestamp int64, dataPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	var err error
	if len(l.script) > 0 {
		err = l.script[0]
		l.script = l.script[1:]
	}
	if err == nil {
		_ = l.cat.CreateDatabase(ctx, types.DatabaseName(tenant, timestamp))
	}
	return err
}

func (l *scriptedLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type fixture struct {
	cat    *catalog.Memory
	loader *scriptedLoader
	queue  *queue.Queue
	stats  *metrics.Stats
	worker *Worker
}

func newFixture(t *testing.T, cfg Config, healthCfg health.Config) *fixture {
	t.Helper()
	cat := catalog.NewMemory()
	ld := &scriptedLoader{cat: cat}
	q := queue.New()
	stats := metrics.NewStats()
	w := New(1, q, health.NewGate(cat, healthCfg), ld, cat, stats, nil, nil, cfg)
	t.Cleanup(w.Stop)
	return &fixture{cat: cat, loader: ld, queue: q, stats: stats, worker: w}
}

func defaultConfig() Config {
	return Config{
		MaxRetries:            3,
		RetryBackoffBase:      2,
		HealthCheckRetryDelay: 10 * time.Millisecond,
		RetentionKeep:         2,
	}
}

func task(tenant string, timestamp int64) *types.Task {
	return &types.Task{
		Snapshot: types.Snapshot{Tenant: tenant, Timestamp: timestamp, Path: "/data"},
	}
}

func TestProcess_InitialLoad(t *testing.T) {
	f := newFixture(t, defaultConfig(), health.DefaultConfig())

	outcome := f.worker.Process(context.Background(), task("t1", 100))

	assert.Equal(t, types.OutcomeCompleted, outcome.Kind)
	assert.True(t, f.cat.HasDatabase("t1-100"))
	assert.Equal(t, "t1-100", f.cat.AliasTarget("t1"))
	assert.Equal(t, 1, f.stats.Snapshot().Completed)
}

func TestProcess_CutoverToNewerSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig(), health.DefaultConfig())

	require.Equal(t, types.OutcomeCompleted, f.worker.Process(ctx, task("t1", 100)).Kind)
	require.Equal(t, types.OutcomeCompleted, f.worker.Process(ctx, task("t1", 200)).Kind)

	assert.Equal(t, "t1-200", f.cat.AliasTarget("t1"))
	assert.True(t, f.cat.HasDatabase("t1-100"))
	assert.True(t, f.cat.HasDatabase("t1-200"))
}

func TestProcess_RetentionDropsOldest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig(), health.DefaultConfig())

	for _, ts := range []int64{100, 200, 300} {
		require.Equal(t, types.OutcomeCompleted, f.worker.Process(ctx, task("t1", ts)).Kind)
	}

	assert.Equal(t, "t1-300", f.cat.AliasTarget("t1"))
	assert.False(t, f.cat.HasDatabase("t1-100"))
	assert.True(t, f.cat.HasDatabase("t1-200"))
	assert.True(t, f.cat.HasDatabase("t1-300"))
}

// Out-of-order completion: the slow older load finishes after the newer
// one. The alias must not move backward.
func TestProcess_LatestWinsOutOfOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig(), health.DefaultConfig())

	// Newer snapshot completes first
	require.Equal(t, types.OutcomeCompleted, f.worker.Process(ctx, task("t1", 500)).Kind)
	// Older snapshot completes second
	require.Equal(t, types.OutcomeCompleted, f.worker.Process(ctx, task("t1", 400)).Kind)

	assert.Equal(t, "t1-500", f.cat.AliasTarget("t1"))
}

func TestProcess_HealthVetoRequeues(t *testing.T) {
	ctx := context.Background()
	healthCfg := health.DefaultConfig()
	healthCfg.MaxDatabases = 1

	f := newFixture(t, defaultConfig(), healthCfg)
	require.NoError(t, f.cat.CreateDatabase(ctx, "blocker-1"))

	tk := task("t1", 100)
	outcome := f.worker.Process(ctx, tk)

	assert.Equal(t, types.OutcomeRetrying, outcome.Kind)
	assert.True(t, outcome.HealthVeto)
	assert.Contains(t, outcome.Reason, "too many databases")
	assert.Equal(t, 1, tk.RetryCount)
	assert.Equal(t, 0, f.loader.callCount(), "no load may be attempted under a veto")
	assert.Equal(t, 0, f.stats.Snapshot().Failed, "a veto is not a failure")

	// The veto requeued the task for a later attempt
	require.Eventually(t, func() bool { return f.queue.Size() == 1 }, time.Second, 5*time.Millisecond)

	// Operator drops the blocking database; the retry succeeds
	require.NoError(t, f.cat.DropDatabase(ctx, "blocker-1"))
	outcome = f.worker.Process(ctx, tk)
	assert.Equal(t, types.OutcomeCompleted, outcome.Kind)
}

func TestProcess_HealthVetoExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	healthCfg := health.DefaultConfig()
	healthCfg.MaxDatabases = 1

	cfg := defaultConfig()
	cfg.MaxRetries = 1

	f := newFixture(t, cfg, healthCfg)
	require.NoError(t, f.cat.CreateDatabase(ctx, "blocker-1"))

	tk := task("t1", 100)
	require.Equal(t, types.OutcomeRetrying, f.worker.Process(ctx, tk).Kind)

	outcome := f.worker.Process(ctx, tk)
	assert.Equal(t, types.OutcomeAbandoned, outcome.Kind)
	assert.Equal(t, 1, f.stats.Snapshot().Failed)
}

func TestProcess_TransientFailureThenSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig(), health.DefaultConfig())
	f.loader.script = []error{
		errors.New("connection reset"),
		errors.New("deadlock detected"),
	}

	tk := task("t1", 100)

	outcome := f.worker.Process(ctx, tk)
	assert.Equal(t, types.OutcomeRetrying, outcome.Kind)
	assert.Equal(t, 2*time.Second, outcome.Delay)
	assert.Equal(t, 1, tk.RetryCount)

	outcome = f.worker.Process(ctx, tk)
	assert.Equal(t, types.OutcomeRetrying, outcome.Kind)
	assert.Equal(t, 4*time.Second, outcome.Delay)
	assert.Equal(t, 2, tk.RetryCount)

	outcome = f.worker.Process(ctx, tk)
	assert.Equal(t, types.OutcomeCompleted, outcome.Kind)

	snapshot := f.stats.Snapshot()
	assert.Equal(t, 1, snapshot.Completed)
	assert.Equal(t, 2, snapshot.Retried)
	assert.Equal(t, 3, f.loader.callCount())
}

func TestProcess_RetriesExhaustedAbandons(t *testing.T) {
	ctx := context.Background()
	cfg := defaultConfig()
	cfg.MaxRetries = 2

	f := newFixture(t, cfg, health.DefaultConfig())
	f.loader.script = []error{
		errors.New("boom 1"),
		errors.New("boom 2"),
		errors.New("boom 3"),
	}

	tk := task("t1", 100)
	require.Equal(t, types.OutcomeRetrying, f.worker.Process(ctx, tk).Kind)
	require.Equal(t, types.OutcomeRetrying, f.worker.Process(ctx, tk).Kind)

	outcome := f.worker.Process(ctx, tk)
	assert.Equal(t, types.OutcomeAbandoned, outcome.Kind)
	assert.Equal(t, cfg.MaxRetries, tk.RetryCount)
	assert.Equal(t, "boom 3", tk.LastError)
	assert.Equal(t, 1, f.stats.Snapshot().Failed)
}

func TestProcess_ZeroRetriesAbandonsImmediately(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxRetries = 0

	f := newFixture(t, cfg, health.DefaultConfig())
	f.loader.script = []error{errors.New("transient blip")}

	outcome := f.worker.Process(context.Background(), task("t1", 100))
	assert.Equal(t, types.OutcomeAbandoned, outcome.Kind)
}

func TestProcess_PermanentFailureAbandonsImmediately(t *testing.T) {
	f := newFixture(t, defaultConfig(), health.DefaultConfig())
	f.loader.script = []error{loader.Permanent(errors.New("no id column"))}

	tk := task("t1", 100)
	outcome := f.worker.Process(context.Background(), tk)

	assert.Equal(t, types.OutcomeAbandoned, outcome.Kind)
	assert.Equal(t, 0, tk.RetryCount)
	assert.Equal(t, 1, f.loader.callCount())
}

func TestProcess_RequeueDeliversTask(t *testing.T) {
	f := newFixture(t, defaultConfig(), health.DefaultConfig())

	tk := task("t1", 100)
	f.worker.scheduleRequeue(tk, time.Millisecond)

	require.Eventually(t, func() bool { return f.queue.Size() == 1 }, time.Second, time.Millisecond)
	got, ok := f.queue.Take()
	require.True(t, ok)
	assert.Same(t, tk, got)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, Backoff(2, 1))
	assert.Equal(t, 4*time.Second, Backoff(2, 2))
	assert.Equal(t, 8*time.Second, Backoff(2, 3))
	assert.Equal(t, 3*time.Second, Backoff(3, 1))

	// Capped to keep pathological delays bounded
	assert.Equal(t, maxBackoff, Backoff(2, 20))
	assert.Equal(t, maxBackoff, Backoff(10, 40))
}

func TestRun_DrainsQueueAndStopsOnClose(t *testing.T) {
	f := newFixture(t, defaultConfig(), health.DefaultConfig())

	require.True(t, f.queue.Offer(task("t1", 100)))
	require.True(t, f.queue.Offer(task("t1", 200)))

	done := make(chan struct{})
	go func() {
		f.worker.Run()
		close(done)
	}()

	require.Eventually(t, func() bool {
		return f.stats.Snapshot().Completed == 2
	}, 2*time.Second, 5*time.Millisecond)

	f.queue.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after queue close")
	}

	assert.Equal(t, "t1-200", f.cat.AliasTarget("t1"))
}
