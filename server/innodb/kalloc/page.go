package kalloc

// PGSIZE is the default page size in bytes, matching the kernel constant of
// the same name (spec.md §6, Constants).
const PGSIZE = 4096

// Poison bytes written by Alloc/Free to aid detection of dangling reads and
// use-after-free. These specific values (0x05, 0x01) are pinned by
// original_source/kernel/kalloc.c's two memset calls, which spec.md leaves
// underspecified ("a known byte pattern" / "a distinct poison byte").
const (
	allocPoison byte = 0x05
	freePoison  byte = 0x01
)

// noPage is the sentinel address meaning "free list is empty". Real page
// addresses are always PGSIZE-aligned and >= rangeStart, so the all-ones
// value can never collide with one.
const noPage = ^uintptr(0)

// pgroundup rounds addr up to the next page boundary.
func pgroundup(addr uintptr, pgsize uintptr) uintptr {
	return (addr + pgsize - 1) &^ (pgsize - 1)
}

// pgrounddown rounds addr down to a page boundary.
func pgrounddown(addr uintptr, pgsize uintptr) uintptr {
	return addr &^ (pgsize - 1)
}

// Page is a handle to one managed physical page. It carries no data of its
// own; Bytes() returns a view into the allocator's backing arena so callers
// can read/write the page contents.
type Page struct {
	addr uintptr
	a    *PageAllocator
}

// Addr returns the page's address within the managed range.
func (p *Page) Addr() uintptr { return p.addr }

// Bytes returns the PGSIZE-byte contents of the page.
func (p *Page) Bytes() []byte {
	return p.a.arenaSlice(p.addr)
}
