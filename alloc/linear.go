package alloc

import (
	"github.com/localphysics/localsim/assert"
	"github.com/localphysics/localsim/internal"
)

// LinearBlockAllocator is a bump allocator over a chain of fixed-size blocks.
// It supports only aligned allocation and a wholesale Reset; individual
// allocations are never freed. Every pointer obtained from it is invalidated
// by the next Reset, so callers must not retain scratch memory across steps.
type LinearBlockAllocator struct {
	blocks    [][]byte
	cur       int
	off       int
	maxBlocks int
}

// NewLinearBlockAllocator returns an allocator that will grow up to maxBlocks
// blocks of internal.BlockSize bytes each. Exceeding that budget is fatal.
func NewLinearBlockAllocator(maxBlocks int) *LinearBlockAllocator {
	assert.IsTrue(maxBlocks > 0, "linear allocator needs at least one block")
	a := &LinearBlockAllocator{maxBlocks: maxBlocks}
	a.blocks = append(a.blocks, internal.BlockPool.Get().([]byte))
	return a
}

// Alloc returns n bytes aligned to align, which must be a power of two.
func (a *LinearBlockAllocator) Alloc(n, align int) []byte {
	assert.IsTrue(n >= 0 && n <= internal.BlockSize, "scratch allocation of %d bytes exceeds block size %d", n, internal.BlockSize)
	assert.IsTrue(align > 0 && align&(align-1) == 0, "alignment %d is not a power of two", align)

	off := (a.off + align - 1) &^ (align - 1)
	if off+n > internal.BlockSize {
		a.cur++
		if a.cur == len(a.blocks) {
			assert.IsTrue(len(a.blocks) < a.maxBlocks, "scratch workspace exhausted (%d blocks)", a.maxBlocks)
			a.blocks = append(a.blocks, internal.BlockPool.Get().([]byte))
		}
		off = 0
	}
	a.off = off + n
	return a.blocks[a.cur][off : off+n : off+n]
}

// Reset marks every block empty without returning it to the pool. Previously
// allocated memory is reused verbatim by later allocations.
func (a *LinearBlockAllocator) Reset() {
	a.cur = 0
	a.off = 0
}

// Release hands all blocks back to the shared pool. The allocator must not
// be used afterwards; this is part of scene teardown.
func (a *LinearBlockAllocator) Release() {
	for _, b := range a.blocks {
		internal.BlockPool.Put(b)
	}
	a.blocks = nil
	a.cur = 0
	a.off = 0
}

// Used reports the number of bytes consumed since the last Reset, counting
// alignment padding and any partially used blocks.
func (a *LinearBlockAllocator) Used() int {
	return a.cur*internal.BlockSize + a.off
}
