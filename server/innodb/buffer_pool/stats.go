package buffer_pool

import (
	"sync/atomic"
	"time"
)

// Stats is a trimmed descendant of the teacher's BufferPoolStats: the
// prefetch/flush/dirty-page counters have no analog once write-back policy
// and prefetching are out of scope (spec.md's Non-goals), but the
// hit/miss/IO/eviction counters and the atomic-counter-plus-Reset shape
// carry over directly.
type Stats struct {
	CacheHits   int64
	CacheMisses int64

	Reads  int64
	Writes int64

	// Recycles counts Phase-2 bget claims (a cache miss that evicted an
	// unused buffer rather than finding an unused one instantly available
	// would also be possible to track, but spec.md's bget has no "instant"
	// path — every miss is a recycle).
	Recycles int64

	ReadLatencyTotalNs  int64
	WriteLatencyTotalNs int64

	LastResetTime time.Time
}

func NewStats() *Stats {
	return &Stats{LastResetTime: time.Now()}
}

func (s *Stats) RecordLookup(hit bool) {
	if hit {
		atomic.AddInt64(&s.CacheHits, 1)
	} else {
		atomic.AddInt64(&s.CacheMisses, 1)
	}
}

func (s *Stats) RecordRecycle() {
	atomic.AddInt64(&s.Recycles, 1)
}

func (s *Stats) RecordIO(isRead bool, latencyNs int64) {
	if isRead {
		atomic.AddInt64(&s.Reads, 1)
		atomic.AddInt64(&s.ReadLatencyTotalNs, latencyNs)
	} else {
		atomic.AddInt64(&s.Writes, 1)
		atomic.AddInt64(&s.WriteLatencyTotalNs, latencyNs)
	}
}

func (s *Stats) HitRatio() float64 {
	hits := atomic.LoadInt64(&s.CacheHits)
	misses := atomic.LoadInt64(&s.CacheMisses)
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func (s *Stats) Reset() {
	atomic.StoreInt64(&s.CacheHits, 0)
	atomic.StoreInt64(&s.CacheMisses, 0)
	atomic.StoreInt64(&s.Reads, 0)
	atomic.StoreInt64(&s.Writes, 0)
	atomic.StoreInt64(&s.Recycles, 0)
	atomic.StoreInt64(&s.ReadLatencyTotalNs, 0)
	atomic.StoreInt64(&s.WriteLatencyTotalNs, 0)
	s.LastResetTime = time.Now()
}
