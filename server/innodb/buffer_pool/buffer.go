package buffer_pool

import "github.com/mpkernel/corecache/server/innodb/latch"

// BlockSize is the size in bytes of one cached disk block. Grounded on the
// teacher's BufferPage/BufferBlock split (server/innodb/buffer_pool's
// original buffer_page.go/buffer_block.go); collapsed into a single type
// here because spec.md §3 describes one descriptor, not two cooperating
// ones, per block.
const BlockSize = 4096

// Buffer is spec.md §3's Buffer: the descriptor for one cached disk block.
//
// Field-level locking discipline (spec.md §3, last bullet):
//   - prev/next/dev/blockno/valid/refcnt: guarded by the spin-lock of
//     whichever bucket the buffer is currently linked into.
//   - data: guarded by sleeplock, held across bread...brelse.
type Buffer struct {
	dev     uint32
	blockno uint32

	valid  bool
	refcnt uint32

	data []byte

	sleeplock *latch.SleepLock

	// checksum is an enrichment beyond spec.md: when Config.VerifyChecksums
	// is set, bwrite records a checksum of data here and bread compares
	// against it after a disk read into this buffer, surfacing
	// ErrPageCorrupted on mismatch. The checksum belongs to the descriptor,
	// not the block: bget clears it when it recycles the buffer, and a
	// cache hit does no disk read, so a block is not verified once its
	// buffer has been marked valid or recycled.
	checksum    uint64
	hasChecksum bool

	// prev/next link this buffer into exactly one bucket's circular list
	// at all times, per spec.md §3's first invariant.
	prev, next *Buffer
}

func newBuffer(blockSize int) *Buffer {
	return &Buffer{
		data:      make([]byte, blockSize),
		sleeplock: latch.NewSleepLock("buffer"),
	}
}

// Dev returns the buffer's device identity. Only meaningful while refcnt>0
// or while cached under a valid identity.
func (b *Buffer) Dev() uint32 { return b.dev }

// BlockNo returns the buffer's block-number identity.
func (b *Buffer) BlockNo() uint32 { return b.blockno }

// Valid reports whether the in-memory data reflects disk contents.
func (b *Buffer) Valid() bool { return b.valid }

// Data returns the block's data slice. The caller must hold b's sleep-lock
// (acquired implicitly by Bread/Bget) before reading or writing it.
func (b *Buffer) Data() []byte { return b.data }

// RefCount returns the buffer's current reference count. Exposed for tests
// asserting on spec.md §8's invariants; not required by the algorithm
// itself.
func (b *Buffer) RefCount() uint32 { return b.refcnt }
