package kalloc

import "go.uber.org/atomic"

// Stats are lock-free counters describing allocator activity. Grounded on
// server/innodb/buffer_pool/stats.go's atomic-counter pattern, but built on
// go.uber.org/atomic (an indirect dependency of the teacher's module graph)
// instead of sync/atomic, giving that dependency a direct call site.
type Stats struct {
	Allocs       atomic.Uint64 // successful local-pool allocations
	Steals       atomic.Uint64 // allocations satisfied by stealing
	FailedAllocs atomic.Uint64 // Alloc calls that returned ErrOutOfMemory
	Frees        atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats, safe to log or assert on in
// tests without racing further updates.
type Snapshot struct {
	Allocs       uint64
	Steals       uint64
	FailedAllocs uint64
	Frees        uint64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Allocs:       s.Allocs.Load(),
		Steals:       s.Steals.Load(),
		FailedAllocs: s.FailedAllocs.Load(),
		Frees:        s.Frees.Load(),
	}
}
