package health

import (
	"context"
	"fmt"
	"time"

	"github.com/veridianlabs/switchyard/pkg/catalog"
	"github.com/veridianlabs/switchyard/pkg/log"
)

// Result represents the outcome of a pre-flight health check
type Result struct {
	Healthy   bool
	Reason    string
	CheckedAt time.Time
	Duration  time.Duration
}

// Config contains the gate thresholds
type Config struct {
	// MaxDatabases caps the number of user databases the server may hold
	// before new loads are vetoed
	MaxDatabases int

	// HeapThresholdPercent vetoes loads when heap utilization reaches it
	HeapThresholdPercent float64

	// PagecacheThresholdPercent vetoes loads when page cache utilization
	// reaches it
	PagecacheThresholdPercent float64
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxDatabases:              50,
		HeapThresholdPercent:      85,
		PagecacheThresholdPercent: 95,
	}
}

// Gate decides whether the server can safely accept a bulk load right now.
// The verdict is advisory: a healthy verdict does not guarantee the load
// succeeds, it only keeps obviously doomed loads off a struggling server.
type Gate struct {
	catalog catalog.Catalog
	config  Config
}

// NewGate creates a health gate over the given catalog
func NewGate(cat catalog.Catalog, cfg Config) *Gate {
	return &Gate{catalog: cat, config: cfg}
}

// Check runs the gate's probes in order, short-circuiting on the first
// failure. Probes are read-only. A memory probe that reports unavailable
// is inconclusive, not unhealthy.
func (g *Gate) Check(ctx context.Context) Result {
	start := time.Now()
	result := g.check(ctx)
	result.CheckedAt = start
	result.Duration = time.Since(start)

	logger := log.WithComponent("health")
	if result.Healthy {
		logger.Debug().Str("reason", result.Reason).Dur("duration", result.Duration).Msg("Health check passed")
	} else {
		logger.Warn().Str("reason", result.Reason).Msg("Health check failed")
	}
	return result
}

func (g *Gate) check(ctx context.Context) Result {
	// Connectivity comes first; a failed round-trip vetoes outright
	if err := g.catalog.Ping(ctx); err != nil {
		return Result{Reason: fmt.Sprintf("unreachable: %v", err)}
	}

	count, err := g.catalog.CountDatabases(ctx)
	if err != nil {
		return Result{Reason: fmt.Sprintf("database count query failed: %v", err)}
	}
	if count >= g.config.MaxDatabases {
		return Result{Reason: fmt.Sprintf("too many databases (%d >= %d)", count, g.config.MaxDatabases)}
	}

	inconclusive := ""

	heap, err := g.catalog.HeapUsage(ctx)
	if err != nil {
		return Result{Reason: fmt.Sprintf("heap probe failed: %v", err)}
	}
	if heap.Available {
		total := heap.Sample.Used + heap.Sample.Available
		if total > 0 {
			percent := float64(heap.Sample.Used) / float64(total) * 100
			if percent >= g.config.HeapThresholdPercent {
				return Result{Reason: fmt.Sprintf("heap usage %.1f%% (threshold %.0f%%)",
					percent, g.config.HeapThresholdPercent)}
			}
		}
	} else {
		inconclusive = " (heap probe unavailable)"
	}

	pagecache, err := g.catalog.PagecacheUsage(ctx)
	if err != nil {
		return Result{Reason: fmt.Sprintf("pagecache probe failed: %v", err)}
	}
	if pagecache.Available && pagecache.Sample.Max > 0 {
		percent := float64(pagecache.Sample.Used) / float64(pagecache.Sample.Max) * 100
		if percent >= g.config.PagecacheThresholdPercent {
			return Result{Healthy: false, Reason: fmt.Sprintf("pagecache usage %.1f%% (threshold %.0f%%)",
				percent, g.config.PagecacheThresholdPercent)}
		}
	}

	return Result{Healthy: true, Reason: "healthy" + inconclusive}
}
