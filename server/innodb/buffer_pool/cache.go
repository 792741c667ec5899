// Package buffer_pool implements the sharded, MRU-ordered disk-block cache
// described in spec.md §3/§4.2: a fixed array of buffer descriptors indexed
// across NumBuckets hash buckets, each an intrusive doubly-linked list
// guarded by its own spin-lock, with a per-buffer sleep-lock granting
// exclusive use of the block's data.
//
// Grounded directly on original_source/kernel/bio.c for the bget/bread/
// bwrite/brelse/bpin/bunpin algorithm (13 buckets, phase-1 cached lookup,
// phase-2 neighbor-bucket recycle with the lock-released-before-reacquired
// discipline, phase-3 panic on exhaustion), and on the teacher's
// buffer_pool package for the surrounding Go shape (Config-driven
// constructor, atomic Stats, sentinel-error style).
package buffer_pool

import (
	"context"

	"github.com/mpkernel/corecache/logger"
)

// BufferCache owns all buffer storage and the bucket index over it.
type BufferCache struct {
	cfg     Config
	buckets []bucket
	bufs    []*Buffer
	disk    DiskDriver

	Stats Stats
}

// New builds and initializes a BufferCache: NumBuckets bucket locks and
// sentinels, NumBuffers buffers each with its own sleep-lock, all threaded
// onto bucket 0 (spec.md §4.2.1 — "during initialization all buffers reside
// in bucket 0 and migrate on first use").
func New(cfg Config, disk DiskDriver) *BufferCache {
	if cfg.NumBuckets <= 0 {
		cfg.NumBuckets = NumBucketsDefault
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = BlockSize
	}

	c := &BufferCache{
		cfg:     cfg,
		buckets: make([]bucket, cfg.NumBuckets),
		bufs:    make([]*Buffer, cfg.NumBuffers),
		disk:    disk,
	}
	for i := range c.buckets {
		c.buckets[i] = *newBucket("bcache.bucket")
	}
	for i := range c.bufs {
		b := newBuffer(cfg.BlockSize)
		c.bufs[i] = b
		c.buckets[0].pushFront(b)
	}
	return c
}

// Bget returns a buffer whose sleep-lock the caller holds and whose
// identity is (dev, blockno), per spec.md §4.2.2.
func (c *BufferCache) Bget(ctx context.Context, dev uint32, blockno uint32) (*Buffer, error) {
	h := c.hash(blockno)

	// Phase 1 — cached lookup.
	home := &c.buckets[h]
	home.lock.Acquire()
	for b := home.sentinel.next; b != home.sentinel; b = b.next {
		if b.dev == dev && b.blockno == blockno {
			b.refcnt++
			home.lock.Release()
			c.Stats.RecordLookup(true)
			if err := b.sleeplock.Acquire(ctx); err != nil {
				return nil, err
			}
			return b, nil
		}
	}
	home.lock.Release()
	c.Stats.RecordLookup(false)

	// Phase 2 — recycle an unused buffer from a neighbor bucket. The
	// neighbor lock is always released before the home lock is acquired;
	// the two are never held concurrently (spec.md §4.2.2, "Lock
	// ordering").
	for n := (h + 1) % len(c.buckets); n != h; n = (n + 1) % len(c.buckets) {
		neighbor := &c.buckets[n]
		neighbor.lock.Acquire()

		for b := neighbor.sentinel.prev; b != neighbor.sentinel; b = b.prev {
			if b.refcnt != 0 {
				continue
			}

			b.dev = dev
			b.blockno = blockno
			b.valid = false
			b.refcnt = 1
			b.hasChecksum = false
			neighbor.unlink(b)
			neighbor.lock.Release()

			home.lock.Acquire()
			home.pushFront(b)
			home.lock.Release()

			c.Stats.RecordRecycle()

			if err := b.sleeplock.Acquire(ctx); err != nil {
				return nil, err
			}
			return b, nil
		}

		neighbor.lock.Release()
	}

	// Phase 3 — exhaustion is a hard resource-exhaustion failure (spec.md
	// §7 category 3): the kernel has no mechanism to wait for a buffer to
	// free up, so this is a fatal abort, not an error return.
	logger.Panicf("buffer_pool.Bget(dev=%d, blockno=%d): %v", dev, blockno, errNoBuffers)
	panic("unreachable")
}

// Bread returns a locked buffer with the contents of the indicated block,
// issuing a disk read the first time a given buffer identity is seen.
func (c *BufferCache) Bread(ctx context.Context, dev uint32, blockno uint32) (*Buffer, error) {
	b, err := c.Bget(ctx, dev, blockno)
	if err != nil {
		return nil, err
	}
	if !b.valid {
		if err := c.disk.ReadWrite(dev, blockno, b.data, false); err != nil {
			b.sleeplock.Release()
			return nil, newCacheError("Bread", dev, blockno, err)
		}
		b.valid = true
		c.Stats.RecordIO(true, 0)

		if c.cfg.VerifyChecksums && b.hasChecksum {
			if checksumOf(b.data) != b.checksum {
				b.sleeplock.Release()
				return nil, newCacheError("Bread", dev, blockno, ErrPageCorrupted)
			}
		}
	}
	return b, nil
}

// Bwrite writes b's contents to disk. The caller must hold b's sleep-lock.
func (c *BufferCache) Bwrite(b *Buffer) error {
	if !b.sleeplock.Holding() {
		logger.Panicf("buffer_pool.Bwrite: %v", errNotHeld)
	}
	if err := c.disk.ReadWrite(b.dev, b.blockno, b.data, true); err != nil {
		return newCacheError("Bwrite", b.dev, b.blockno, err)
	}
	c.Stats.RecordIO(false, 0)

	if c.cfg.VerifyChecksums {
		b.checksum = checksumOf(b.data)
		b.hasChecksum = true
	}
	return nil
}

// Brelse releases a locked buffer. On the 1->0 refcnt transition the buffer
// is moved to the head (MRU position) of its bucket (spec.md §4.2.5).
func (c *BufferCache) Brelse(b *Buffer) {
	if !b.sleeplock.Holding() {
		logger.Panicf("buffer_pool.Brelse: %v", errNotHeld)
	}
	b.sleeplock.Release()

	h := c.hash(b.blockno)
	bk := &c.buckets[h]
	bk.lock.Acquire()
	defer bk.lock.Release()

	b.refcnt--
	if b.refcnt == 0 {
		bk.unlink(b)
		bk.pushFront(b)
	}
}

// Bpin increments a buffer's reference count without acquiring its
// sleep-lock, preventing recycling across a sleep-lock release for clients
// that hold long-lived references without holding exclusive access (spec.md
// §4.2.6, e.g. a write-ahead log).
func (c *BufferCache) Bpin(b *Buffer) {
	bk := &c.buckets[c.hash(b.blockno)]
	bk.lock.Acquire()
	b.refcnt++
	bk.lock.Release()
}

// Bunpin is the inverse of Bpin.
func (c *BufferCache) Bunpin(b *Buffer) {
	bk := &c.buckets[c.hash(b.blockno)]
	bk.lock.Acquire()
	b.refcnt--
	bk.lock.Release()
}
