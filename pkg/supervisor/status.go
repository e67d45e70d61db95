package supervisor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/veridianlabs/switchyard/pkg/log"
	"github.com/veridianlabs/switchyard/pkg/metrics"
)

// Status is the JSON document published to the status file
type Status struct {
	Status          string  `json:"status"`
	UptimeSeconds   int     `json:"uptime_seconds"`
	Workers         int     `json:"workers"`
	ScanInterval    int     `json:"scan_interval"`
	DataPath        string  `json:"data_path"`
	QueueSize       int     `json:"queue_size"`
	TasksDiscovered int     `json:"tasks_discovered"`
	TasksCompleted  int     `json:"tasks_completed"`
	TasksFailed     int     `json:"tasks_failed"`
	TasksRetried    int     `json:"tasks_retried"`
	SuccessRate     float64 `json:"success_rate"`
	LastActivity    string  `json:"last_activity"`
}

// CurrentStatus assembles a status document from live state
func (s *Supervisor) CurrentStatus() Status {
	snapshot := s.stats.Snapshot()
	queueSize := s.queue.Size()
	metrics.QueueSize.Set(float64(queueSize))

	lastActivity := ""
	if !snapshot.LastActivity.IsZero() {
		lastActivity = snapshot.LastActivity.Format(time.RFC3339)
	}

	return Status{
		Status:          string(s.State()),
		UptimeSeconds:   snapshot.UptimeSeconds,
		Workers:         s.config.Supervisor.Workers,
		ScanInterval:    s.config.Supervisor.ScanIntervalSeconds,
		DataPath:        s.config.Dataset.BasePath,
		QueueSize:       queueSize,
		TasksDiscovered: snapshot.Discovered,
		TasksCompleted:  snapshot.Completed,
		TasksFailed:     snapshot.Failed,
		TasksRetried:    snapshot.Retried,
		SuccessRate:     snapshot.SuccessRate,
		LastActivity:    lastActivity,
	}
}

// writeStatus publishes the status file atomically: write to a temp
// file in the same directory, then rename over the target. Failures are
// logged at low severity and never interrupt operation.
func (s *Supervisor) writeStatus() {
	status := s.CurrentStatus()
	if err := WriteStatusFile(s.config.Supervisor.StatusFile, status); err != nil {
		supervisorLogger := log.WithComponent("supervisor")
		supervisorLogger.Debug().Err(err).Msg("Could not write status file")
	}
}

// WriteStatusFile writes a status document atomically to path
func WriteStatusFile(path string, status Status) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".status-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp status file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write status: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadStatusFile loads a status document from path
func ReadStatusFile(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}
	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status file: %w", err)
	}
	return &status, nil
}
