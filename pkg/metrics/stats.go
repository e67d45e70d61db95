package metrics

import (
	"sync"
	"time"
)

// Stats tracks supervisor counters. Every recorder also feeds the
// corresponding Prometheus collector, so the status file and /metrics
// never disagree.
type Stats struct {
	mu           sync.Mutex
	discovered   int
	completed    int
	failed       int
	retried      int
	inFlight     int
	startTime    time.Time
	lastActivity time.Time
}

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	Discovered    int
	Completed     int
	Failed        int
	Retried       int
	InFlight      int
	UptimeSeconds int
	SuccessRate   float64
	LastActivity  time.Time
}

// NewStats creates a stats collector with the clock started
func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

// RecordDiscovery counts a newly admitted snapshot
func (s *Stats) RecordDiscovery() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discovered++
	s.lastActivity = time.Now()
	TasksDiscovered.Inc()
}

// RecordCompletion counts a successful load
func (s *Stats) RecordCompletion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed++
	s.lastActivity = time.Now()
	TasksCompleted.Inc()
}

// RecordFailure counts an abandoned task
func (s *Stats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	s.lastActivity = time.Now()
	TasksFailed.Inc()
}

// RecordRetry counts a scheduled retry
func (s *Stats) RecordRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retried++
	TasksRetried.Inc()
}

// TaskStarted marks a task as in flight
func (s *Stats) TaskStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
}

// TaskFinished marks a task as no longer in flight
func (s *Stats) TaskFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
}

// Snapshot copies the counters under the lock
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	discovered := s.discovered
	if discovered == 0 {
		discovered = 1
	}
	return Snapshot{
		Discovered:    s.discovered,
		Completed:     s.completed,
		Failed:        s.failed,
		Retried:       s.retried,
		InFlight:      s.inFlight,
		UptimeSeconds: int(time.Since(s.startTime).Seconds()),
		SuccessRate:   float64(s.completed) / float64(discovered) * 100,
		LastActivity:  s.lastActivity,
	}
}
