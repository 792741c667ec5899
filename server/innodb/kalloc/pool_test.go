package kalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpkernel/corecache/server/innodb/cpuset"
)

func testConfig(numCPU int, numPages int) Config {
	return Config{
		PageSize:   PGSIZE,
		NumCPU:     numCPU,
		RangeStart: 0,
		RangeSize:  uint64(numPages * PGSIZE),
		Poison:     true,
	}
}

func TestAllocFreeRoundTrip(t *testing.T) {
	a := New(testConfig(2, 4), cpuset.NewRoundRobin(2))
	a.Init()

	page, err := a.Alloc()
	require.NoError(t, err)
	require.NotNil(t, page)

	for _, b := range page.Bytes() {
		assert.Equal(t, allocPoison, b)
	}

	a.Free(page)
	for _, b := range page.Bytes() {
		assert.Equal(t, freePoison, b)
	}

	// RoundRobin's first CPUID() is 1 and Init put every page on pool 0, so
	// the one allocation above was satisfied by stealing.
	assert.Equal(t, uint64(1), a.Stats.Steals.Load())
	assert.Equal(t, uint64(1), a.Stats.Frees.Load())
}

// TestExhaustion: with no pages left anywhere, Alloc returns ErrOutOfMemory
// rather than panicking (spec.md §7 category 2, a "soft" failure).
func TestExhaustion(t *testing.T) {
	a := New(testConfig(1, 1), cpuset.NewRoundRobin(1))
	a.Init()

	page, err := a.Alloc()
	require.NoError(t, err)
	require.NotNil(t, page)

	_, err = a.Alloc()
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, uint64(1), a.Stats.FailedAllocs.Load())
}

// fixedCPU is a Provider that always reports the same CPU id, used to make
// the steal scenario below deterministic.
type fixedCPU struct {
	id int
	n  int
}

func (f fixedCPU) PushOff()    {}
func (f fixedCPU) PopOff()     {}
func (f fixedCPU) CPUID() int  { return f.id }
func (f fixedCPU) NumCPU() int { return f.n }

// TestPageSteal matches spec.md §8 scenario 5: with all pages on CPU 0 after
// Init, CPU 1's first Alloc must succeed by stealing from CPU 0.
func TestPageSteal(t *testing.T) {
	a := New(testConfig(2, 4), fixedCPU{id: 0, n: 2})
	a.Init() // everything lands on pool 0

	a.cpus = fixedCPU{id: 1, n: 2}

	page, err := a.Alloc()
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, uint64(1), a.Stats.Steals.Load())
}

func TestFreeRejectsMisalignedAddress(t *testing.T) {
	a := New(testConfig(1, 4), cpuset.NewRoundRobin(1))
	a.Init()

	bad := &Page{addr: a.rangeStart + 1, a: a}
	assert.Panics(t, func() { a.Free(bad) })
}

func TestFreeRejectsOutOfRangeAddress(t *testing.T) {
	a := New(testConfig(1, 4), cpuset.NewRoundRobin(1))
	a.Init()

	bad := &Page{addr: a.rangeEnd + PGSIZE, a: a}
	assert.Panics(t, func() { a.Free(bad) })
}

func TestFreeRejectsNil(t *testing.T) {
	a := New(testConfig(1, 4), cpuset.NewRoundRobin(1))
	a.Init()
	assert.Panics(t, func() { a.Free(nil) })
}

// TestInvariantTotalPagesConserved matches spec.md §8 invariant 3: the
// total count of free pages plus allocated pages equals the initial count.
func TestInvariantTotalPagesConserved(t *testing.T) {
	const numPages = 8
	a := New(testConfig(2, numPages), cpuset.NewRoundRobin(2))
	a.Init()

	var held []*Page
	for {
		p, err := a.Alloc()
		if err != nil {
			break
		}
		held = append(held, p)
	}
	assert.Len(t, held, numPages)

	for _, p := range held {
		a.Free(p)
	}

	count := 0
	for {
		p, err := a.Alloc()
		if err != nil {
			break
		}
		count++
		_ = p
	}
	assert.Equal(t, numPages, count)
}
