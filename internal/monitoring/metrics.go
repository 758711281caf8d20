// Package monitoring records how long each pipeline step took, how many
// rows it produced and roughly how much memory it allocated.
package monitoring

import (
	"runtime"
	"sync"
	"time"
)

// OperationMetrics describes one recorded operation
type OperationMetrics struct {
	Name          string        `json:"name"`
	Operation     string        `json:"operation"`
	Duration      time.Duration `json:"duration"`
	RowsProcessed int64         `json:"rows_processed"`
	MemoryUsed    int64         `json:"memory_used"`
	Failed        bool          `json:"failed"`
}

// MetricsCollector collects OperationMetrics. It is safe for concurrent use.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics []OperationMetrics
	enabled bool
}

// NewMetricsCollector creates a collector; a disabled one only runs operations
func NewMetricsCollector(enabled bool) *MetricsCollector {
	return &MetricsCollector{enabled: enabled}
}

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// SetEnabled enables or disables metrics collection.
func (mc *MetricsCollector) SetEnabled(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enabled = enabled
}

// RecordOperation runs fn and records its duration, the row count it
// reports and the heap growth it caused. Failed operations are recorded too.
func (mc *MetricsCollector) RecordOperation(name, operation string, fn func() (int, error)) error {
	if !mc.IsEnabled() {
		_, err := fn()
		return err
	}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()

	rows, err := fn()

	duration := time.Since(start)
	runtime.ReadMemStats(&after)

	m := OperationMetrics{
		Name:          name,
		Operation:     operation,
		Duration:      duration,
		RowsProcessed: int64(rows),
		// TotalAlloc only grows, unlike Alloc which drops after a GC
		MemoryUsed: int64(after.TotalAlloc - before.TotalAlloc), //nolint:gosec // bounded by process memory
		Failed:     err != nil,
	}

	mc.mu.Lock()
	mc.metrics = append(mc.metrics, m)
	mc.mu.Unlock()
	return err
}

// GetMetrics returns a copy of all collected metrics in recording order.
func (mc *MetricsCollector) GetMetrics() []OperationMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]OperationMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// Clear removes all collected metrics.
func (mc *MetricsCollector) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics = mc.metrics[:0]
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalOperations int            `json:"total_operations"`
	TotalDuration   time.Duration  `json:"total_duration"`
	TotalMemory     int64          `json:"total_memory"`
	TotalRows       int64          `json:"total_rows"`
	OperationCounts map[string]int `json:"operation_counts"`
	AverageDuration time.Duration  `json:"average_duration"`
}

// GetSummary returns a summary of collected metrics.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{}
	}

	s := MetricsSummary{
		TotalOperations: len(mc.metrics),
		OperationCounts: make(map[string]int),
	}
	for _, m := range mc.metrics {
		s.TotalDuration += m.Duration
		s.TotalMemory += m.MemoryUsed
		s.TotalRows += m.RowsProcessed
		s.OperationCounts[m.Operation]++
	}
	s.AverageDuration = s.TotalDuration / time.Duration(len(mc.metrics))
	return s
}
