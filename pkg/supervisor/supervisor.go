package supervisor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veridianlabs/switchyard/pkg/catalog"
	"github.com/veridianlabs/switchyard/pkg/config"
	"github.com/veridianlabs/switchyard/pkg/events"
	"github.com/veridianlabs/switchyard/pkg/health"
	"github.com/veridianlabs/switchyard/pkg/history"
	"github.com/veridianlabs/switchyard/pkg/loader"
	"github.com/veridianlabs/switchyard/pkg/log"
	"github.com/veridianlabs/switchyard/pkg/metrics"
	"github.com/veridianlabs/switchyard/pkg/queue"
	"github.com/veridianlabs/switchyard/pkg/scanner"
	"github.com/veridianlabs/switchyard/pkg/types"
	"github.com/veridianlabs/switchyard/pkg/worker"
)

// statusInterval is the status file publish period
const statusInterval = 5 * time.Second

// Supervisor owns the lifecycle of the deployment pipeline: the scanner
// loop, the worker pool, and the status publisher. Individual task errors
// never propagate here; only fatal startup conditions do.
type Supervisor struct {
	config  *config.Config
	catalog catalog.Catalog
	loader  loader.Loader
	queue   *queue.Queue
	gate    *health.Gate
	scanner *scanner.Scanner
	workers []*worker.Worker
	stats   *metrics.Stats
	broker  *events.Broker
	history *history.Store

	mu    sync.Mutex
	state types.SupervisorState

	stopCh    chan struct{}
	stopOnce  sync.Once
	workersWg sync.WaitGroup
	loopsWg   sync.WaitGroup
}

// New validates the environment and wires the pipeline. It fails fast on
// an unreachable server or a missing snapshot root, before any side effect.
func New(cfg *config.Config, cat catalog.Catalog, ld loader.Loader) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := cat.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to graph server: %w", err)
	}

	info, err := os.Stat(cfg.Dataset.BasePath)
	if err != nil {
		return nil, fmt.Errorf("snapshot root not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot root %s is not a directory", cfg.Dataset.BasePath)
	}

	s := &Supervisor{
		config:  cfg,
		catalog: cat,
		loader:  ld,
		queue:   queue.New(),
		scanner: scanner.New(cfg.Dataset.BasePath),
		stats:   metrics.NewStats(),
		broker:  events.NewBroker(),
		state:   types.SupervisorStateInit,
		stopCh:  make(chan struct{}),
	}

	s.gate = health.NewGate(cat, health.Config{
		MaxDatabases:              cfg.Supervisor.MaxDatabases,
		HeapThresholdPercent:      cfg.Supervisor.HeapThresholdPercent,
		PagecacheThresholdPercent: cfg.Supervisor.PagecacheThresholdPercent,
	})

	if cfg.History.Path != "" {
		hist, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		s.history = hist
	}

	workerCfg := worker.Config{
		MaxRetries:            cfg.Supervisor.MaxRetries,
		RetryBackoffBase:      cfg.Supervisor.RetryBackoffBase,
		HealthCheckRetryDelay: time.Duration(cfg.Supervisor.HealthCheckRetryDelay) * time.Second,
		RetentionKeep:         cfg.Supervisor.RetentionKeep,
	}
	for i := 0; i < cfg.Supervisor.Workers; i++ {
		s.workers = append(s.workers,
			worker.New(i+1, s.queue, s.gate, ld, cat, s.stats, s.broker, s.history, workerCfg))
	}

	return s, nil
}

// Start launches the scanner loop, the worker pool, and the status
// publisher, then returns. Use Stop for an orderly shutdown.
func (s *Supervisor) Start() {
	logger := log.WithComponent("supervisor")
	logger.Info().
		Str("data_path", s.config.Dataset.BasePath).
		Int("workers", s.config.Supervisor.Workers).
		Int("scan_interval", s.config.Supervisor.ScanIntervalSeconds).
		Msg("Supervisor starting")

	s.setState(types.SupervisorStateRunning)
	s.broker.Start()

	for _, w := range s.workers {
		s.workersWg.Add(1)
		go func(w *worker.Worker) {
			defer s.workersWg.Done()
			w.Run()
		}(w)
	}

	s.loopsWg.Add(2)
	go s.scanLoop()
	go s.statusLoop()

	logger.Info().Msg("Supervisor running")
}

// Stop performs the graceful shutdown sequence: stop admitting work,
// give in-flight loads up to shutdownTimeout to finish, then abandon
// what remains. Safe to call more than once.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(s.stop)
}

func (s *Supervisor) stop() {
	logger := log.WithComponent("supervisor")
	logger.Info().Msg("Supervisor stopping")

	s.setState(types.SupervisorStateStopping)
	s.writeStatus()

	// No new work: the scanner stops offering and queued tasks are
	// discarded. They are re-discovered on the next startup.
	s.queue.Close()
	close(s.stopCh)

	// Interrupt backoff sleeps and pending requeues; in-flight loads are
	// not cancellable and get the grace period below.
	for _, w := range s.workers {
		w.Stop()
	}

	timeout := time.Duration(s.config.Supervisor.ShutdownTimeoutSeconds) * time.Second
	done := make(chan struct{})
	go func() {
		s.workersWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("All workers finished")
	case <-time.After(timeout):
		logger.Warn().Dur("timeout", timeout).Msg("Shutdown timeout reached, abandoning remaining work")
	}

	s.loopsWg.Wait()
	s.broker.Stop()

	if s.history != nil {
		if err := s.history.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close history store")
		}
	}

	s.setState(types.SupervisorStateStopped)
	s.writeStatus()
	logger.Info().Msg("Supervisor stopped")
}

// State returns the current lifecycle state
func (s *Supervisor) State() types.SupervisorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Events returns the deployment event broker
func (s *Supervisor) Events() *events.Broker {
	return s.broker
}

func (s *Supervisor) setState(state types.SupervisorState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// scanLoop sweeps the snapshot root every scanInterval, offering each
// complete snapshot to the queue. The admission set suppresses
// re-offers, so rediscovery across sweeps is harmless.
func (s *Supervisor) scanLoop() {
	defer s.loopsWg.Done()
	logger := log.WithComponent("scanner")
	interval := time.Duration(s.config.Supervisor.ScanIntervalSeconds) * time.Second
	logger.Info().Dur("interval", interval).Str("root", s.config.Dataset.BasePath).Msg("Watching for snapshots")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.scan(logger)
	for {
		select {
		case <-ticker.C:
			s.scan(logger)
		case <-s.stopCh:
			return
		}
	}
}

func (s *Supervisor) scan(logger zerolog.Logger) {
	snapshots, err := s.scanner.Scan()
	if err != nil {
		logger.Error().Err(err).Msg("Snapshot scan failed")
		return
	}

	for _, snapshot := range snapshots {
		task := &types.Task{
			ID:        uuid.New().String(),
			Snapshot:  snapshot,
			CreatedAt: time.Now(),
		}
		if !s.queue.Offer(task) {
			continue
		}
		s.stats.RecordDiscovery()
		logger.Info().
			Str("tenant", snapshot.Tenant).
			Int64("timestamp", snapshot.Timestamp).
			Msg("Discovered new snapshot")
		s.broker.Publish(&events.Event{
			Type:      events.EventSnapshotDiscovered,
			Tenant:    snapshot.Tenant,
			Timestamp: snapshot.Timestamp,
		})
	}
}

// statusLoop rewrites the status file every statusInterval
func (s *Supervisor) statusLoop() {
	defer s.loopsWg.Done()

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	s.writeStatus()
	for {
		select {
		case <-ticker.C:
			s.writeStatus()
		case <-s.stopCh:
			return
		}
	}
}
