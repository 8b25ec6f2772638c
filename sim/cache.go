package sim

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// maxManifoldPoints is the number of contact points per pair whose impulses
// survive into the next step for warm starting.
const maxManifoldPoints = 4

// persistentPair is the cross-frame state kept per pair-iteration slot: the
// impulses accumulated last step, valid only while steps are consecutive and
// topology is unchanged.
type persistentPair struct {
	simCount       uint32
	count          int32
	normalImpulse  [maxManifoldPoints]float32
	tangentImpulse [maxManifoldPoints][2]float32
}

// pairSlotCount returns how many pair-iteration slots the current topology
// produces: one per (dynamic shape, other shape) candidate in enumeration
// order.
func (s *Scene) pairSlotCount() int {
	slots := 0
	for a := 0; a < s.numSimulated; a++ {
		na := s.actors[a].numShapes
		for b := a + 1; b < len(s.actors); b++ {
			slots += na * s.actors[b].numShapes
		}
	}
	return slots
}

// topologyFingerprint hashes the identity and ordering of every actor and
// joint. Any insertion, removal or swap changes it, so a stale iteration
// cache can never be honored even if a dirty-flag update was missed.
func (s *Scene) topologyFingerprint() uint64 {
	n := 8 * (len(s.actorHandles) + len(s.jointHandles) + 2)
	buf := s.workspace.Alloc(n, 8)

	off := 0
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[off:], v)
		off += 8
	}
	put(uint64(s.numSimulated)<<32 | uint64(s.numKinematic))
	put(uint64(len(s.joints)))
	for _, h := range s.actorHandles {
		put(h.id)
	}
	for _, h := range s.jointHandles {
		put(h.id)
	}
	return xxh3.Hash(buf)
}

// prepareIterationCache rebuilds the skip cache and persistent pair data
// when topology changed since the cache was built. Full invalidation is the
// only eviction policy.
func (s *Scene) prepareIterationCache() {
	fp := s.topologyFingerprint()
	if !s.recreateIterationCache && fp == s.topologyHash {
		return
	}

	slots := s.pairSlotCount()
	if cap(s.skipCollisionCache) < slots {
		s.skipCollisionCache = make([]uint32, slots)
		s.pairData = make([]persistentPair, slots)
	}
	s.skipCollisionCache = s.skipCollisionCache[:slots]
	s.pairData = s.pairData[:slots]
	for i := range s.skipCollisionCache {
		s.skipCollisionCache[i] = 0
		s.pairData[i] = persistentPair{}
	}

	s.topologyHash = fp
	s.recreateIterationCache = false
	s.log.Debug("iteration cache rebuilt", "slots", slots, "step", s.simCount)
}

// recordSkip remembers that the slot produced no contacts this step. Only
// recorded when neither side can move between steps on its own, so honoring
// the memo later cannot miss a new contact.
func (s *Scene) recordSkip(slot, actorA, actorB int) {
	if s.actorCanDrift(actorA) || s.actorCanDrift(actorB) {
		return
	}
	s.skipCollisionCache[slot] = s.simCount
}

// actorCanDrift reports whether the actor's pose may change without a
// cache-invalidating mutation: active dynamics integrate, kinematics follow
// caller velocities. Dormant dynamics and statics only move via
// SetWorldTransform, which dirties the cache.
func (s *Scene) actorCanDrift(idx int) bool {
	if idx < s.numActiveSimulated {
		return true
	}
	return s.actors[idx].category == CategoryKinematic
}
