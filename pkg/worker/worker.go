package worker

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/veridianlabs/switchyard/pkg/alias"
	"github.com/veridianlabs/switchyard/pkg/catalog"
	"github.com/veridianlabs/switchyard/pkg/events"
	"github.com/veridianlabs/switchyard/pkg/health"
	"github.com/veridianlabs/switchyard/pkg/history"
	"github.com/veridianlabs/switchyard/pkg/loader"
	"github.com/veridianlabs/switchyard/pkg/log"
	"github.com/veridianlabs/switchyard/pkg/metrics"
	"github.com/veridianlabs/switchyard/pkg/queue"
	"github.com/veridianlabs/switchyard/pkg/types"
)

// maxBackoff bounds the exponential retry delay
const maxBackoff = 300 * time.Second

// Config tunes the retry engine and retention policy
type Config struct {
	MaxRetries            int
	RetryBackoffBase      float64
	HealthCheckRetryDelay time.Duration
	RetentionKeep         int
}

// Worker drives tasks through health gate, load, alias cutover, and
// retention GC. Multiple workers share one queue; each (tenant,
// timestamp) is a distinct admission key, so no two workers ever load
// the same snapshot.
type Worker struct {
	id      int
	queue   *queue.Queue
	gate    *health.Gate
	loader  loader.Loader
	catalog catalog.Catalog
	stats   *metrics.Stats
	broker  *events.Broker
	history *history.Store // nil disables history recording
	config  Config

	stopCh chan struct{}
}

// New creates a worker. broker and hist may be nil.
func New(id int, q *queue.Queue, gate *health.Gate, ld loader.Loader, cat catalog.Catalog,
	stats *metrics.Stats, broker *events.Broker, hist *history.Store, cfg Config) *Worker {
	return &Worker{
		id:      id,
		queue:   q,
		gate:    gate,
		loader:  ld,
		catalog: cat,
		stats:   stats,
		broker:  broker,
		history: hist,
		config:  cfg,
		stopCh:  make(chan struct{}),
	}
}

// Run processes tasks until the queue closes. It is meant to be called
// in its own goroutine; Stop interrupts backoff sleeps but never an
// in-flight load.
func (w *Worker) Run() {
	logger := log.WithWorker(w.id)
	logger.Info().Msg("Worker started")

	for {
		task, ok := w.queue.Take()
		if !ok {
			logger.Info().Msg("Worker stopped")
			return
		}

		w.stats.TaskStarted()
		outcome := w.Process(context.Background(), task)
		w.stats.TaskFinished()

		// A health veto means the server is under pressure; pause before
		// taking the next task so the pool backs off as a whole.
		if outcome.HealthVeto {
			w.sleep(w.config.HealthCheckRetryDelay)
		}
	}
}

// Stop interrupts backoff sleeps and pending requeues
func (w *Worker) Stop() {
	close(w.stopCh)
}

// Process drives a single attempt at a task and applies its outcome:
// terminal outcomes are recorded, retrying outcomes schedule a delayed
// requeue. Exported for tests that drive tasks without the Run loop.
func (w *Worker) Process(ctx context.Context, task *types.Task) types.Outcome {
	outcome := w.attempt(ctx, task)

	switch outcome.Kind {
	case types.OutcomeCompleted:
		w.stats.RecordCompletion()
		w.record(task, types.TaskStateCompleted)
		w.publish(events.EventLoadCompleted, task, "")
	case types.OutcomeAbandoned:
		w.stats.RecordFailure()
		w.record(task, types.TaskStateAbandoned)
		w.publish(events.EventLoadAbandoned, task, outcome.Reason)
	case types.OutcomeRetrying:
		w.stats.RecordRetry()
		if outcome.HealthVeto {
			w.publish(events.EventHealthVeto, task, outcome.Reason)
		} else {
			w.publish(events.EventLoadRetrying, task, outcome.Reason)
		}
		w.scheduleRequeue(task, outcome.Delay)
	}
	return outcome
}

// attempt runs one pass of the per-task flow and decides the outcome
func (w *Worker) attempt(ctx context.Context, task *types.Task) types.Outcome {
	snapshot := task.Snapshot
	logger := log.WithSnapshot(snapshot.Tenant, snapshot.Timestamp)
	logger.Info().
		Int("worker_id", w.id).
		Int("attempt", task.RetryCount+1).
		Msg("Processing snapshot")

	// Pre-flight: keep doomed loads off a struggling server
	result := w.gate.Check(ctx)
	if !result.Healthy {
		metrics.HealthVetoes.WithLabelValues(vetoReason(result.Reason)).Inc()
		if task.RetryCount >= w.config.MaxRetries {
			task.LastError = result.Reason
			logger.Error().Str("reason", result.Reason).Msg("Health gate veto with retries exhausted, abandoning")
			return types.Outcome{Kind: types.OutcomeAbandoned, Reason: result.Reason, HealthVeto: true}
		}
		task.RetryCount++
		task.LastError = result.Reason
		logger.Warn().
			Str("reason", result.Reason).
			Dur("delay", w.config.HealthCheckRetryDelay).
			Msg("Health gate veto, requeueing")
		return types.Outcome{
			Kind:       types.OutcomeRetrying,
			Delay:      w.config.HealthCheckRetryDelay,
			Reason:     result.Reason,
			HealthVeto: true,
		}
	}

	timer := metrics.NewTimer()
	err := w.loader.Load(ctx, snapshot.Tenant, snapshot.Timestamp, snapshot.Path)
	if err != nil {
		task.LastError = err.Error()

		if loader.IsPermanent(err) {
			logger.Error().Err(err).Msg("Permanent load failure, abandoning")
			return types.Outcome{Kind: types.OutcomeAbandoned, Reason: err.Error()}
		}
		if task.RetryCount >= w.config.MaxRetries {
			logger.Error().Err(err).Int("retries", task.RetryCount).Msg("Max retries exceeded, abandoning")
			return types.Outcome{Kind: types.OutcomeAbandoned, Reason: err.Error()}
		}

		delay := Backoff(w.config.RetryBackoffBase, task.RetryCount+1)
		task.RetryCount++
		logger.Warn().
			Err(err).
			Dur("delay", delay).
			Int("attempt", task.RetryCount).
			Msg("Transient load failure, retrying")
		return types.Outcome{Kind: types.OutcomeRetrying, Delay: delay, Reason: err.Error()}
	}
	timer.ObserveDuration(metrics.LoadDuration)
	logger.Info().Str("database", snapshot.DatabaseName()).Msg("Load succeeded")

	// Alias cutover and retention run best effort: the data is already in
	// place, so their failures are logged and counted but never re-run the
	// load. Alias convergence catches up on the tenant's next snapshot.
	w.switchAliasIfLatest(ctx, snapshot, logger)
	w.runRetention(ctx, snapshot.Tenant, logger)

	return types.Outcome{Kind: types.OutcomeCompleted}
}

// switchAliasIfLatest applies the latest-wins rule against live catalog
// state: a worker that loaded an older snapshot sees the newer database
// already present and declines to move the alias backward.
func (w *Worker) switchAliasIfLatest(ctx context.Context, snapshot types.Snapshot, logger zerolog.Logger) {
	databases, err := w.catalog.ListDatabases(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list databases for alias check")
		return
	}
	if !alias.IsLatest(snapshot.Tenant, snapshot.Timestamp, databases) {
		logger.Info().Msg("Newer deployment already present, leaving alias in place")
		return
	}

	dbName := snapshot.DatabaseName()
	if err := w.catalog.SetAlias(ctx, snapshot.Tenant, dbName); err != nil {
		logger.Error().Err(err).Str("database", dbName).Msg("Failed to switch alias")
		return
	}
	metrics.AliasSwitches.Inc()
	logger.Info().Str("database", dbName).Msg("Alias switched")
	if w.broker != nil {
		w.broker.Publish(&events.Event{
			Type:      events.EventAliasSwitched,
			Tenant:    snapshot.Tenant,
			Timestamp: snapshot.Timestamp,
			Message:   dbName,
		})
	}
}

// runRetention drops the tenant's databases beyond the keep newest,
// never the current alias target. Drops are idempotent; a failure here
// leaves excess databases for the next successful cycle to collect.
func (w *Worker) runRetention(ctx context.Context, tenant string, logger zerolog.Logger) {
	databases, err := w.catalog.ListDatabases(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list databases for retention")
		return
	}
	aliases, err := w.catalog.ListAliases(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list aliases for retention")
		return
	}

	victims := alias.RetentionVictims(tenant, databases, w.config.RetentionKeep, aliases[tenant])
	for _, victim := range victims {
		if err := w.catalog.DropDatabase(ctx, victim); err != nil {
			logger.Warn().Err(err).Str("database", victim).Msg("Failed to drop old database")
			continue
		}
		metrics.DatabasesDropped.Inc()
		logger.Info().Str("database", victim).Msg("Dropped old database")
		if w.broker != nil {
			w.broker.Publish(&events.Event{
				Type:    events.EventDatabaseDropped,
				Tenant:  tenant,
				Message: victim,
			})
		}
	}
}

func vetoReason(reason string) string {
	switch {
	case strings.HasPrefix(reason, "unreachable"):
		return "unreachable"
	case strings.HasPrefix(reason, "too many databases"):
		return "database_count"
	case strings.Contains(reason, "heap"):
		return "heap"
	case strings.Contains(reason, "pagecache"):
		return "pagecache"
	default:
		return "other"
	}
}

// Backoff returns the exponential retry delay for the given attempt,
// capped at maxBackoff: base, base^2, base^3, ...
func Backoff(base float64, attempt int) time.Duration {
	seconds := math.Pow(base, float64(attempt))
	delay := time.Duration(seconds * float64(time.Second))
	if delay > maxBackoff || delay < 0 {
		return maxBackoff
	}
	return delay
}

// scheduleRequeue re-enters the task after the delay. The sleep is
// interruptible: on shutdown the requeue is dropped and the snapshot is
// re-discovered on the next supervisor run.
func (w *Worker) scheduleRequeue(task *types.Task, delay time.Duration) {
	go func() {
		select {
		case <-time.After(delay):
			w.queue.Requeue(task)
		case <-w.stopCh:
		}
	}()
}

// sleep waits for the duration unless the worker is stopped first
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-w.stopCh:
	}
}

func (w *Worker) record(task *types.Task, state types.TaskState) {
	if w.history == nil {
		return
	}
	err := w.history.Append(history.Record{
		Tenant:     task.Snapshot.Tenant,
		Timestamp:  task.Snapshot.Timestamp,
		Database:   task.Snapshot.DatabaseName(),
		State:      state,
		RetryCount: task.RetryCount,
		LastError:  task.LastError,
		FinishedAt: time.Now(),
	})
	if err != nil {
		workerLogger := log.WithComponent("worker")
		workerLogger.Warn().Err(err).Msg("Failed to record deployment history")
	}
}

func (w *Worker) publish(eventType events.EventType, task *types.Task, message string) {
	if w.broker == nil {
		return
	}
	w.broker.Publish(&events.Event{
		Type:      eventType,
		Tenant:    task.Snapshot.Tenant,
		Timestamp: task.Snapshot.Timestamp,
		Message:   message,
	})
}
