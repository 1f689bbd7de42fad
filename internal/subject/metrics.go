package subject

import (
	"sort"
	"sync"
	"time"
)

const durationWindowSize = 1000

// Metrics tracks build/validate counts, cache hit/miss, error counts by
// kind, and a rolling window of operation durations.
type Metrics struct {
	mu sync.Mutex

	buildCount      uint64
	validationCount uint64
	cacheHits       uint64
	cacheMisses     uint64
	errorsByKind    map[string]uint64

	durations []time.Duration // ring buffer, most recent last
}

// Snapshot is the point-in-time read of Metrics, safe to hand to callers.
type Snapshot struct {
	BuildCount       uint64
	ValidationCount  uint64
	CacheHits        uint64
	CacheMisses      uint64
	ErrorsByKind     map[string]uint64
	AverageDuration  time.Duration
	P95Duration      time.Duration
	SampleCount      int
}

func newMetrics() *Metrics {
	return &Metrics{errorsByKind: make(map[string]uint64)}
}

func (m *Metrics) recordBuild(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buildCount++
	m.pushDuration(d)
}

func (m *Metrics) recordValidation(d time.Duration, cacheHit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validationCount++
	if cacheHit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}
	m.pushDuration(d)
}

func (m *Metrics) recordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorsByKind[kind]++
}

// pushDuration must be called with mu held.
func (m *Metrics) pushDuration(d time.Duration) {
	m.durations = append(m.durations, d)
	if len(m.durations) > durationWindowSize {
		m.durations = m.durations[len(m.durations)-durationWindowSize:]
	}
}

func (m *Metrics) snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	errs := make(map[string]uint64, len(m.errorsByKind))
	for k, v := range m.errorsByKind {
		errs[k] = v
	}

	snap := Snapshot{
		BuildCount:      m.buildCount,
		ValidationCount: m.validationCount,
		CacheHits:       m.cacheHits,
		CacheMisses:     m.cacheMisses,
		ErrorsByKind:    errs,
		SampleCount:     len(m.durations),
	}

	if len(m.durations) == 0 {
		return snap
	}

	var total time.Duration
	sorted := make([]time.Duration, len(m.durations))
	copy(sorted, m.durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, d := range sorted {
		total += d
	}
	snap.AverageDuration = total / time.Duration(len(sorted))
	idx := int(float64(len(sorted))*0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	snap.P95Duration = sorted[idx]
	return snap
}
