package buffer_pool

import "github.com/mpkernel/corecache/server/innodb/latch"

// NumBucketsDefault is spec.md's 13: a prime chosen to spread block numbers
// across the cache's hash buckets.
const NumBucketsDefault = 13

// bucket is spec.md §3's Bucket: a spin-lock guarding a circular,
// intrusively-linked, MRU-ordered list of buffers. sentinel.next is the
// most-recently-released buffer; sentinel.prev is the least-recently-used
// one (the tail bget's Phase 2 scans from).
type bucket struct {
	lock     *latch.SpinLock
	sentinel *Buffer
}

func newBucket(name string) *bucket {
	s := &Buffer{}
	s.next = s
	s.prev = s
	return &bucket{lock: latch.NewSpinLock(name), sentinel: s}
}

// hash is spec.md §3's Hash: blockno mod the bucket count. Kept as a method
// on BufferCache (not a free function) so NumBuckets can be configured away
// from the spec's default of 13 for the contention experiments
// SPEC_FULL.md's domain-stack section describes.
func (c *BufferCache) hash(blockno uint32) int {
	return int(blockno % uint32(len(c.buckets)))
}

// pushFront links b at the head of the bucket's list (MRU position).
// Caller must hold the bucket's lock.
func (bk *bucket) pushFront(b *Buffer) {
	b.next = bk.sentinel.next
	b.prev = bk.sentinel
	bk.sentinel.next.prev = b
	bk.sentinel.next = b
}

// unlink removes b from whatever list it is currently linked into. Caller
// must hold the lock of that list's bucket.
func (bk *bucket) unlink(b *Buffer) {
	b.next.prev = b.prev
	b.prev.next = b.next
}
