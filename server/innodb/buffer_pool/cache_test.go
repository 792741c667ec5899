package buffer_pool

import (
	"context"
	"sync"
	"testing"

	"github.com/smartystreets/assertions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallCache() *BufferCache {
	cfg := Config{NumBuffers: 30, NumBuckets: NumBucketsDefault, BlockSize: 64}
	return New(cfg, NewMemDisk())
}

// TestColdRead matches spec.md §8 scenario 1: bread(1,5) returns a buffer
// freshly recycled from bucket 0 (where Init placed everything), now linked
// into bucket 5%13=5, valid and with refcnt 1.
func TestColdRead(t *testing.T) {
	c := smallCache()
	b, err := c.Bread(context.Background(), 1, 5)
	require.NoError(t, err)
	defer c.Brelse(b)

	assert.True(t, b.Valid())
	assert.Equal(t, uint32(1), b.RefCount())
	assert.Equal(t, 5, c.hash(b.BlockNo()))
}

// TestWarmRead matches spec.md §8 scenario 2: bread;brelse;bread returns
// the same descriptor, with no second disk read.
func TestWarmRead(t *testing.T) {
	c := smallCache()
	ctx := context.Background()

	b1, err := c.Bread(ctx, 1, 5)
	require.NoError(t, err)
	c.Brelse(b1)

	readsBefore := c.Stats.Reads

	b2, err := c.Bread(ctx, 1, 5)
	require.NoError(t, err)
	defer c.Brelse(b2)

	assert.Same(t, b1, b2)
	assert.Equal(t, readsBefore, c.Stats.Reads, "warm read must not touch disk")
}

// TestConcurrentDistinctBlocks matches spec.md §8 scenario 3: two
// concurrent bread calls for distinct blocks both complete without
// deadlock, landing in their respective hash buckets.
func TestConcurrentDistinctBlocks(t *testing.T) {
	c := smallCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	var b5, b6 *Buffer
	var err5, err6 error

	wg.Add(2)
	go func() {
		defer wg.Done()
		b5, err5 = c.Bread(ctx, 1, 5)
	}()
	go func() {
		defer wg.Done()
		b6, err6 = c.Bread(ctx, 1, 6)
	}()
	wg.Wait()

	require.NoError(t, err5)
	require.NoError(t, err6)
	defer c.Brelse(b5)
	defer c.Brelse(b6)

	assert.Equal(t, 5, c.hash(b5.BlockNo()))
	assert.Equal(t, 6, c.hash(b6.BlockNo()))
}

// TestMRUOrdering matches spec.md §8 scenario 4: bread(1,5);brelse;
// bread(1,18) (also hashes to 5);brelse leaves bucket 5's head-to-tail
// order as [18, 5].
func TestMRUOrdering(t *testing.T) {
	c := smallCache()
	ctx := context.Background()

	b5, err := c.Bread(ctx, 1, 5)
	require.NoError(t, err)
	c.Brelse(b5)

	b18, err := c.Bread(ctx, 1, 18)
	require.NoError(t, err)
	c.Brelse(b18)

	require.Equal(t, 5, c.hash(18))

	bk := &c.buckets[5]
	bk.lock.Acquire()
	head := bk.sentinel.next
	second := head.next
	bk.lock.Release()

	ok, msg := assertions.So(head.BlockNo(), assertions.ShouldEqual, uint32(18))
	if !ok {
		t.Fatal(msg)
	}
	assert.Equal(t, uint32(5), second.BlockNo())
}

// TestExhaustion matches spec.md §8 scenario 6: acquiring all NBUF buffers
// without releasing them makes the next Bget abort fatally.
func TestExhaustion(t *testing.T) {
	cfg := Config{NumBuffers: 4, NumBuckets: NumBucketsDefault, BlockSize: 64}
	c := New(cfg, NewMemDisk())
	ctx := context.Background()

	// Block numbers start at 1, not 0: hash(0) is bucket 0 itself, and
	// Phase 2 never scans the home bucket (spec.md §4.2.2), so a block
	// whose home bucket holds the only free buffers could never claim
	// one — a property of the hashing, not of exhaustion.
	for i := uint32(1); i <= 4; i++ {
		_, err := c.Bget(ctx, 1, i)
		require.NoError(t, err)
	}

	assert.Panics(t, func() {
		_, _ = c.Bget(ctx, 1, 999)
	})
}

// TestBwriteRequiresSleeplock matches spec.md §4.2.4/§7 category 1: Bwrite
// without holding the sleep-lock is a fatal abort, not an error return.
func TestBwriteRequiresSleeplock(t *testing.T) {
	c := smallCache()
	b, err := c.Bread(context.Background(), 1, 5)
	require.NoError(t, err)
	c.Brelse(b)

	assert.Panics(t, func() { _ = c.Bwrite(b) })
}

// TestBrelseRequiresSleeplock matches spec.md §4.2.5/§7 category 1.
func TestBrelseRequiresSleeplock(t *testing.T) {
	c := smallCache()
	b, err := c.Bread(context.Background(), 1, 5)
	require.NoError(t, err)
	c.Brelse(b)

	assert.Panics(t, func() { c.Brelse(b) })
}

// TestBreadAfterBwriteRoundTrips is the round-trip law from spec.md §8: the
// data read by bread after a bwrite of x equals x.
func TestBreadAfterBwriteRoundTrips(t *testing.T) {
	c := smallCache()
	ctx := context.Background()

	b, err := c.Bread(ctx, 1, 5)
	require.NoError(t, err)
	copy(b.Data(), []byte("hello, block"))
	require.NoError(t, c.Bwrite(b))
	c.Brelse(b)

	b2, err := c.Bread(ctx, 1, 5)
	require.NoError(t, err)
	defer c.Brelse(b2)

	assert.Equal(t, "hello, block", string(b2.Data()[:len("hello, block")]))
}

// TestBpinPreventsRecyclingAcrossRelease matches spec.md §4.2.6: a pinned
// buffer is not eligible for Phase-2 recycling even though no one holds its
// sleep-lock.
func TestBpinPreventsRecyclingAcrossRelease(t *testing.T) {
	cfg := Config{NumBuffers: 1, NumBuckets: NumBucketsDefault, BlockSize: 64}
	c := New(cfg, NewMemDisk())
	ctx := context.Background()

	b, err := c.Bread(ctx, 1, 5)
	require.NoError(t, err)
	c.Bpin(b)
	c.Brelse(b) // refcnt 2 -> 1; still pinned, no MRU move attempted at 0

	assert.Panics(t, func() {
		_, _ = c.Bget(ctx, 1, 6)
	}, "the single buffer is pinned, so bget must find nothing to recycle")

	c.Bunpin(b)
}

// TestDuplicateCacheEntryRace documents the known, tolerated race from
// spec.md §9: two concurrent Bget calls for the same uncached (dev,
// blockno) may both recycle different buffers. This test does not assert
// the race's absence (the policy decision in SPEC_FULL.md is to preserve
// it, matching original_source/kernel/bio.c); it only documents that both
// calls succeed without deadlock.
func TestDuplicateCacheEntryRace(t *testing.T) {
	c := smallCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	var b1, b2 *Buffer
	var err1, err2 error

	wg.Add(2)
	go func() {
		defer wg.Done()
		b1, err1 = c.Bget(ctx, 9, 100)
		if err1 == nil {
			c.Brelse(b1)
		}
	}()
	go func() {
		defer wg.Done()
		b2, err2 = c.Bget(ctx, 9, 100)
		if err2 == nil {
			c.Brelse(b2)
		}
	}()
	wg.Wait()

	// b1 and b2 may or may not be the same descriptor depending on
	// scheduling; both are valid outcomes under the documented race. Each
	// goroutine releases its buffer before returning because a call that
	// finds the other's buffer in Phase 1 waits on its sleep-lock.
	require.NoError(t, err1)
	require.NoError(t, err2)
}
