package internal

import "sync"

// BlockSize is the size of one scratch block handed out by BlockPool. A
// single allocation may never exceed it.
const BlockSize = 64 * 1024

// BlockPool recycles the fixed-size byte blocks backing the per-step scratch
// allocators, so repeated Simulate calls stop allocating once the working
// set is warm.
var BlockPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, BlockSize)
	},
}
