// pkg/engine/metrics.go
package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// RunMetrics accumulates counters across the queries one engine answers
// during its lifetime. It tracks process health only; no fetched data or
// computed results are retained, so it never feeds back into answers.
type RunMetrics struct {
	mu     sync.Mutex
	logger *zap.Logger

	StartTime        time.Time
	QueriesRun       int
	QueriesFailed    int
	RecordsFetched   int
	RecordsRepaired  int
	HeaderRowsFound  int
	CaveatsEmitted   int
	TotalFetchTime   time.Duration
	TotalComputeTime time.Duration
}

// NewRunMetrics creates a new RunMetrics instance
func NewRunMetrics(logger *zap.Logger) *RunMetrics {
	return &RunMetrics{
		logger:    logger,
		StartTime: time.Now(),
	}
}

// RecordQuery folds one completed query into the counters.
func (m *RunMetrics) RecordQuery(result *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.QueriesRun++
	m.CaveatsEmitted += len(result.Caveats)
	m.TotalFetchTime += result.Timing.Fetch
	m.TotalComputeTime += result.Timing.Pipeline

	for _, fs := range result.Provenance.FetchStats {
		m.RecordsFetched += fs.Items
	}
	for _, stats := range result.Provenance.FieldStats {
		m.RecordsRepaired += stats.RepairCount()
		m.HeaderRowsFound += stats.HeaderRowsDropped
	}
}

// RecordFailure counts a query that never produced a result.
func (m *RunMetrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueriesRun++
	m.QueriesFailed++
}

// LogSummary emits the accumulated counters. Called at shutdown.
func (m *RunMetrics) LogSummary() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.logger == nil {
		return
	}
	m.logger.Info("Engine run summary",
		zap.Duration("uptime", time.Since(m.StartTime)),
		zap.Int("queriesRun", m.QueriesRun),
		zap.Int("queriesFailed", m.QueriesFailed),
		zap.Int("recordsFetched", m.RecordsFetched),
		zap.Int("recordsRepaired", m.RecordsRepaired),
		zap.Int("headerRowsFound", m.HeaderRowsFound),
		zap.Int("caveatsEmitted", m.CaveatsEmitted),
		zap.Duration("totalFetchTime", m.TotalFetchTime),
		zap.Duration("totalComputeTime", m.TotalComputeTime))
}
