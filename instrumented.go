package kvstore

import (
	"context"
	"sync/atomic"
	"time"
)

// Metrics holds counters for store operations.
// Uses atomic operations so the hot path never takes a lock.
type Metrics struct {
	GetCount  atomic.Uint64
	GetHits   atomic.Uint64
	GetErrors atomic.Uint64
	SetCount  atomic.Uint64
	Replaced  atomic.Uint64
	SetErrors atomic.Uint64

	// Cumulative latencies in nanoseconds
	GetLatencyNs atomic.Uint64
	SetLatencyNs atomic.Uint64
}

// InstrumentedStore wraps any Store with counters and timings.
type InstrumentedStore[K, V any] struct {
	store   Store[K, V]
	metrics *Metrics
}

var _ Store[string, int] = (*InstrumentedStore[string, int])(nil)

// Instrument wraps store with instrumentation.
func Instrument[K, V any](store Store[K, V]) *InstrumentedStore[K, V] {
	return &InstrumentedStore[K, V]{store: store, metrics: &Metrics{}}
}

func (s *InstrumentedStore[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	start := time.Now()
	v, ok, err := s.store.Get(ctx, key)
	s.metrics.GetLatencyNs.Add(uint64(time.Since(start).Nanoseconds()))

	s.metrics.GetCount.Add(1)
	switch {
	case err != nil:
		s.metrics.GetErrors.Add(1)
	case ok:
		s.metrics.GetHits.Add(1)
	}
	return v, ok, err
}

func (s *InstrumentedStore[K, V]) Set(ctx context.Context, key K, val V) (V, bool, error) {
	start := time.Now()
	prev, ok, err := s.store.Set(ctx, key, val)
	s.metrics.SetLatencyNs.Add(uint64(time.Since(start).Nanoseconds()))

	s.metrics.SetCount.Add(1)
	switch {
	case err != nil:
		s.metrics.SetErrors.Add(1)
	case ok:
		s.metrics.Replaced.Add(1)
	}
	return prev, ok, err
}

// Close closes the wrapped store if it is a Closer.
func (s *InstrumentedStore[K, V]) Close(ctx context.Context) error {
	return Close(ctx, s.store)
}

// Snapshot returns a point-in-time view of the counters.
func (s *InstrumentedStore[K, V]) Snapshot() MetricsSnapshot {
	getCount := s.metrics.GetCount.Load()
	setCount := s.metrics.SetCount.Load()
	return MetricsSnapshot{
		GetCount:      getCount,
		GetHits:       s.metrics.GetHits.Load(),
		GetErrors:     s.metrics.GetErrors.Load(),
		SetCount:      setCount,
		Replaced:      s.metrics.Replaced.Load(),
		SetErrors:     s.metrics.SetErrors.Load(),
		GetAvgLatency: avgLatency(s.metrics.GetLatencyNs.Load(), getCount),
		SetAvgLatency: avgLatency(s.metrics.SetLatencyNs.Load(), setCount),
	}
}

// Reset clears all counters.
func (s *InstrumentedStore[K, V]) Reset() {
	m := s.metrics
	for _, c := range []*atomic.Uint64{
		&m.GetCount, &m.GetHits, &m.GetErrors,
		&m.SetCount, &m.Replaced, &m.SetErrors,
		&m.GetLatencyNs, &m.SetLatencyNs,
	} {
		c.Store(0)
	}
}

func avgLatency(totalNs, count uint64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(totalNs / count)
}

// MetricsSnapshot is a point-in-time view of Metrics.
type MetricsSnapshot struct {
	GetCount      uint64
	GetHits       uint64
	GetErrors     uint64
	SetCount      uint64
	Replaced      uint64
	SetErrors     uint64
	GetAvgLatency time.Duration
	SetAvgLatency time.Duration
}
