package kalloc

import (
	jujuerrors "github.com/juju/errors"
	"github.com/pkg/errors"
)

// ErrOutOfMemory is returned by Alloc (never panics: resource exhaustion of
// the page pool is a "soft" failure per spec.md §7 category 2).
var ErrOutOfMemory = errors.New("kalloc: no free page on any cpu")

// errMisalignedFree, errOutOfRangeFree and errNilFree are the three
// programmer-invariant violations Free() checks for (spec.md §7 category
// 1). They are never returned to a caller — Free wraps them with
// juju/errors.Annotate for context and hands the result to logger.Panicf,
// since the kernel has no recovery path for a corrupt free.
var (
	errMisalignedFree = errors.New("page address is not page-aligned")
	errOutOfRangeFree = errors.New("page address is outside the managed range")
	errNilFree        = errors.New("free of a nil page")
)

// annotateFreeError adds the failing address to the underlying sentinel,
// mirroring the teacher's buffer_pool error-wrapping style but via
// juju/errors.Annotatef instead of the teacher's custom BufferPoolError.
func annotateFreeError(err error, addr uintptr) error {
	return jujuerrors.Annotatef(err, "kalloc.Free(0x%x)", addr)
}
