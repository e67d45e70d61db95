package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veridianlabs/switchyard/pkg/catalog"
)

func TestGate_HealthyEmptyServer(t *testing.T) {
	cat := catalog.NewMemory()
	gate := NewGate(cat, DefaultConfig())

	result := gate.Check(context.Background())

	assert.True(t, result.Healthy)
	assert.Contains(t, result.Reason, "heap probe unavailable")
	assert.False(t, result.CheckedAt.IsZero())
}

func TestGate_Unreachable(t *testing.T) {
	cat := catalog.NewMemory()
	cat.PingErr = errors.New("connection refused")
	gate := NewGate(cat, DefaultConfig())

	result := gate.Check(context.Background())

	assert.False(t, result.Healthy)
	assert.Contains(t, result.Reason, "unreachable")
}

func TestGate_TooManyDatabases(t *testing.T) {
	ctx := context.Background()
	cat := catalog.NewMemory()
	_ = cat.CreateDatabase(ctx, "t1-100")
	_ = cat.CreateDatabase(ctx, "t1-200")

	cfg := DefaultConfig()
	cfg.MaxDatabases = 2
	gate := NewGate(cat, cfg)

	result := gate.Check(ctx)

	assert.False(t, result.Healthy)
	assert.Equal(t, "too many databases (2 >= 2)", result.Reason)
}

func TestGate_HeapPressure(t *testing.T) {
	cat := catalog.NewMemory()
	cat.Heap = catalog.Available(catalog.HeapSample{Used: 90, Available: 10})
	gate := NewGate(cat, DefaultConfig())

	result := gate.Check(context.Background())

	assert.False(t, result.Healthy)
	assert.Contains(t, result.Reason, "heap usage 90.0%")
}

func TestGate_HeapBelowThreshold(t *testing.T) {
	cat := catalog.NewMemory()
	cat.Heap = catalog.Available(catalog.HeapSample{Used: 40, Available: 60})
	gate := NewGate(cat, DefaultConfig())

	result := gate.Check(context.Background())

	assert.True(t, result.Healthy)
	assert.Equal(t, "healthy", result.Reason)
}

func TestGate_PagecachePressure(t *testing.T) {
	cat := catalog.NewMemory()
	cat.Pagecache = catalog.Available(catalog.PagecacheSample{Used: 99, Max: 100})
	gate := NewGate(cat, DefaultConfig())

	result := gate.Check(context.Background())

	assert.False(t, result.Healthy)
	assert.Contains(t, result.Reason, "pagecache usage 99.0%")
}

// A server without memory telemetry must still pass the gate, otherwise
// the supervisor would stall on editions that lack the JMX surface.
func TestGate_UnavailableProbesDoNotVeto(t *testing.T) {
	cat := catalog.NewMemory()
	cat.Heap = catalog.Unavailable[catalog.HeapSample]()
	cat.Pagecache = catalog.Unavailable[catalog.PagecacheSample]()
	gate := NewGate(cat, DefaultConfig())

	result := gate.Check(context.Background())

	assert.True(t, result.Healthy)
}
