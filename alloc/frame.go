package alloc

import "github.com/localphysics/localsim/collision"

// slabSize is the number of elements carried by one arena slab.
const slabSize = 256

// arena hands out capacity from reusable typed slabs. Like the linear
// allocator it only supports Reset, never individual frees, and everything
// it returns is invalidated by the next Reset.
type arena[T any] struct {
	slabs [][]T
	cur   int
	used  int
}

// acquire returns a zeroed slice of length n backed by arena memory. Requests
// larger than a slab get a dedicated slab of exactly that size.
func (a *arena[T]) acquire(n int) []T {
	if n > slabSize {
		s := make([]T, n)
		// Dedicated slabs are inserted before the cursor so regular slab
		// accounting keeps working.
		a.slabs = append(a.slabs, nil)
		copy(a.slabs[a.cur+1:], a.slabs[a.cur:])
		a.slabs[a.cur] = s
		a.cur++
		return s
	}
	if a.cur >= len(a.slabs) {
		a.slabs = append(a.slabs, make([]T, slabSize))
	}
	if a.used+n > slabSize {
		a.cur++
		a.used = 0
		if a.cur == len(a.slabs) {
			a.slabs = append(a.slabs, make([]T, slabSize))
		}
	}
	out := a.slabs[a.cur][a.used : a.used+n : a.used+n]
	a.used += n
	var zero T
	for i := range out {
		out[i] = zero
	}
	return out
}

func (a *arena[T]) reset() {
	a.cur = 0
	a.used = 0
}

// CacheAllocator satisfies the contact generator's scratch contract: it owns
// the per-step contact point storage and is reset at the top of every step.
type CacheAllocator struct {
	points arena[collision.ContactPoint]
}

// AcquireContacts returns scratch storage for n contact points.
func (c *CacheAllocator) AcquireContacts(n int) []collision.ContactPoint {
	return c.points.acquire(n)
}

// Reset invalidates all contact point storage handed out this step.
func (c *CacheAllocator) Reset() {
	c.points.reset()
}

// ConstraintAllocator satisfies the constraint solver's scratch contract: it
// owns the per-step constraint descriptor and batch header storage.
type ConstraintAllocator struct {
	descs   arena[collision.ConstraintDesc]
	headers arena[collision.BatchHeader]
}

// AcquireDescs returns scratch storage for n constraint descriptors.
func (c *ConstraintAllocator) AcquireDescs(n int) []collision.ConstraintDesc {
	return c.descs.acquire(n)
}

// AcquireHeaders returns scratch storage for n batch headers.
func (c *ConstraintAllocator) AcquireHeaders(n int) []collision.BatchHeader {
	return c.headers.acquire(n)
}

// Reset invalidates all descriptor storage handed out this step.
func (c *ConstraintAllocator) Reset() {
	c.descs.reset()
	c.headers.reset()
}
