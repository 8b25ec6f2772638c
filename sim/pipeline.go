package sim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/localphysics/localsim/assert"
	"github.com/localphysics/localsim/collision"
)

// contactPair records the contacts generated between two actors this step.
// Rebuilt every step; the points slice is scratch owned by the cache
// allocator.
type contactPair struct {
	actorA int
	actorB int
	slot   int
	points []collision.ContactPoint
}

// Simulate advances the scene by deltaTime under the given gravity. It runs
// the five pipeline stages in order, sharing scratch buffers that are reset
// here and invalid once the call returns. Simulate is not reentrant and must
// not run concurrently with any mutation of the same scene.
func (s *Scene) Simulate(deltaTime float32, gravity mgl32.Vec3) {
	assert.IsTrue(!s.terminated, "scene used after Terminate")
	assert.IsTrue(deltaTime >= 0, "negative step time %v", deltaTime)

	s.workspace.Reset()
	s.cacheAlloc.Reset()
	s.constraintAlloc.Reset()
	s.simCount++

	s.constructSolverBodies(deltaTime, gravity)
	s.generateContacts()
	descs, batches := s.batchConstraints()
	s.prepareConstraints(descs, deltaTime)
	s.solveAndIntegrate(descs, batches, deltaTime)

	s.log.Debug("step complete",
		"step", s.simCount,
		"pairs", len(s.contactPairs),
		"constraints", len(descs),
		"batches", len(batches),
		"scratch", s.workspace.Used(),
	)
}

// constructSolverBodies derives solver-ready state for every simulated and
// kinematic body. Active dynamics pick up gravity and the queued
// accelerations, which are consumed here; kinematics become fixed,
// non-integrated bodies; statics never enter the solver arrays.
func (s *Scene) constructSolverBodies(dt float32, gravity mgl32.Vec3) {
	n := s.numSimulated + s.numKinematic
	if cap(s.solverBodies) < n {
		s.solverBodies = make([]collision.SolverBody, n)
	}
	s.solverBodies = s.solverBodies[:n]

	for i := 0; i < s.numSimulated; i++ {
		b := &s.bodies[i]
		sb := collision.SolverBody{
			Pose:            b.pose,
			LinVel:          b.linVel,
			AngVel:          b.angVel,
			InvMass:         b.invMass,
			InvInertiaLocal: b.invInertia,
		}
		if i < s.numActiveSimulated {
			sb.LinVel = sb.LinVel.Add(gravity.Add(s.pendingAccel[i]).Mul(dt))
			s.pendingAccel[i] = mgl32.Vec3{}
		}
		s.solverBodies[i] = sb
	}
	for k := 0; k < s.numKinematic; k++ {
		i := s.numSimulated + k
		b := &s.bodies[i]
		s.solverBodies[i] = collision.SolverBody{
			Pose:      b.pose,
			LinVel:    b.linVel,
			AngVel:    b.angVel,
			Kinematic: true,
		}
	}
}

// generateContacts enumerates candidate shape pairs in deterministic order
// and invokes the contact generator for every unfiltered, non-skipped pair
// whose bounds overlap. Pairs in the filter tables are skipped
// unconditionally; iteration-cache skips are an optimization only.
func (s *Scene) generateContacts() {
	s.prepareIterationCache()
	s.contactPairs = s.contactPairs[:0]

	slot := 0
	for a := 0; a < s.numSimulated; a++ {
		infoA := &s.actors[a]
		poseA := s.bodies[a].pose
		for b := a + 1; b < len(s.actors); b++ {
			infoB := &s.actors[b]
			poseB := s.bodies[b].pose
			filtered := s.collisionFiltered(a, b)

			for sa := infoA.firstShape; sa < infoA.firstShape+infoA.numShapes; sa++ {
				for sb := infoB.firstShape; sb < infoB.firstShape+infoB.numShapes; sb++ {
					cur := slot
					slot++
					if filtered {
						s.skipCollisionCache[cur] = s.simCount
						continue
					}
					if s.skipCollisionCache[cur] != 0 {
						continue
					}
					if !s.shapes.worldBounds(sa, poseA).IntersectsWith(s.shapes.worldBounds(sb, poseB)) {
						s.recordSkip(cur, a, b)
						continue
					}

					pts := s.gen.Generate(
						s.shapes.geometries[sa], poseA.Mul(s.shapes.localTMs[sa]),
						s.shapes.geometries[sb], poseB.Mul(s.shapes.localTMs[sb]),
						s.shapes.materials[sa], s.shapes.materials[sb],
						s.scratchPoints[:0],
					)
					if len(pts) == 0 {
						s.recordSkip(cur, a, b)
						continue
					}

					s.scratchPoints = pts[:0]
					buf := s.cacheAlloc.AcquireContacts(len(pts))
					copy(buf, pts)
					s.contactPairs = append(s.contactPairs, contactPair{
						actorA: a,
						actorB: b,
						slot:   cur,
						points: buf,
					})
				}
			}
		}
	}
	assert.IsTrue(slot == len(s.skipCollisionCache), "pair slot drift: %d != %d", slot, len(s.skipCollisionCache))
}

// batchConstraints merges contact and joint constraints into one ordered
// descriptor list grouped into batches in which no two constraints share a
// dynamic body. Enumeration order is deterministic, so batch order is stable
// across frames unless topology changed.
func (s *Scene) batchConstraints() ([]collision.ConstraintDesc, []collision.BatchHeader) {
	if s.dirtyJointData {
		// Processing order changed; stale joint impulses must not warm
		// start the new ordering.
		for i := range s.joints {
			s.joints[i].warmImpulse = mgl32.Vec3{}
		}
		s.dirtyJointData = false
	}

	total := len(s.joints)
	for _, p := range s.contactPairs {
		total += len(p.points)
	}
	if total == 0 {
		return nil, nil
	}

	pending := make([]collision.ConstraintDesc, 0, total)
	for _, p := range s.contactPairs {
		bodyB := int32(p.actorB)
		if s.actors[p.actorB].category == CategoryStatic {
			bodyB = collision.WorldBody
		}
		for k, pt := range p.points {
			warm := s.warmStartContact(p.slot, k)
			ref := int32(-1)
			if k < maxManifoldPoints {
				ref = int32(p.slot*maxManifoldPoints + k)
			}
			pending = append(pending, collision.ConstraintDesc{
				Kind:           collision.ConstraintContact,
				Ref:            ref,
				BodyA:          int32(p.actorA),
				BodyB:          bodyB,
				Point:          pt.Position,
				Normal:         pt.Normal,
				Depth:          pt.Depth,
				Friction:       pt.Material.Friction,
				Restitution:    pt.Material.Restitution,
				NormalImpulse:  warm.normal,
				TangentImpulse: warm.tangent,
			})
		}
	}
	for i := range s.joints {
		d := s.jointDesc(&s.joints[i])
		d.Ref = int32(i)
		pending = append(pending, d)
	}

	// Greedy rounds: each pass takes, in order, every constraint whose
	// dynamic bodies are untouched so far this batch.
	descs := s.constraintAlloc.AcquireDescs(total)
	used := s.workspace.Alloc(len(s.solverBodies), 1)
	var headers []collision.BatchHeader

	taken := 0
	done := make([]bool, len(pending))
	for taken < total {
		for i := range used {
			used[i] = 0
		}
		start := taken
		for i := range pending {
			if done[i] {
				continue
			}
			d := &pending[i]
			if s.batchConflict(used, d.BodyA) || s.batchConflict(used, d.BodyB) {
				continue
			}
			s.batchMark(used, d.BodyA)
			s.batchMark(used, d.BodyB)
			descs[taken] = *d
			done[i] = true
			taken++
		}
		assert.IsTrue(taken > start, "constraint batching made no progress")
		headers = append(headers, collision.BatchHeader{
			Start: int32(start),
			Count: int32(taken - start),
		})
	}

	hdrs := s.constraintAlloc.AcquireHeaders(len(headers))
	copy(hdrs, headers)
	return descs, hdrs
}

// batchConflict reports whether the body already participates in the batch
// under construction. Only dynamic bodies conflict: the solver never writes
// kinematic or world bodies.
func (s *Scene) batchConflict(used []byte, body int32) bool {
	return body != collision.WorldBody && int(body) < s.numSimulated && used[body] != 0
}

func (s *Scene) batchMark(used []byte, body int32) {
	if body != collision.WorldBody && int(body) < s.numSimulated {
		used[body] = 1
	}
}

// jointDesc assembles the solver descriptor for one joint. A nil or static
// side becomes the world body with a world-space anchor.
func (s *Scene) jointDesc(j *jointInfo) collision.ConstraintDesc {
	d := collision.ConstraintDesc{
		Kind:         collision.ConstraintJoint,
		BodyA:        collision.WorldBody,
		BodyB:        collision.WorldBody,
		AnchorA:      j.cfg.LocalAnchorA,
		AnchorB:      j.cfg.LocalAnchorB,
		LinearLimit:  j.cfg.LinearLimit,
		JointImpulse: j.warmImpulse,
	}
	d.BodyA, d.AnchorA = s.jointSide(j.actorA, j.cfg.LocalAnchorA)
	d.BodyB, d.AnchorB = s.jointSide(j.actorB, j.cfg.LocalAnchorB)
	return d
}

func (s *Scene) jointSide(h *ActorHandle, localAnchor mgl32.Vec3) (int32, mgl32.Vec3) {
	if h == nil {
		return collision.WorldBody, localAnchor
	}
	assert.IsTrue(h.Valid(), "joint references a removed actor")
	idx := h.index
	if s.actors[idx].category == CategoryStatic {
		return collision.WorldBody, s.bodies[idx].pose.TransformPoint(localAnchor)
	}
	return int32(idx), localAnchor
}

type contactWarmStart struct {
	normal  float32
	tangent [2]float32
}

// warmStartContact returns the impulses accumulated for this pair slot's
// k-th point last step, if the data is from the immediately preceding step.
func (s *Scene) warmStartContact(slot, k int) contactWarmStart {
	pd := &s.pairData[slot]
	if pd.simCount+1 != s.simCount || k >= int(pd.count) || k >= maxManifoldPoints {
		return contactWarmStart{}
	}
	return contactWarmStart{
		normal:  pd.normalImpulse[k],
		tangent: pd.tangentImpulse[k],
	}
}

// prepareConstraints converts descriptors plus the step time into the
// solver's immediate inputs.
func (s *Scene) prepareConstraints(descs []collision.ConstraintDesc, dt float32) {
	if len(descs) == 0 {
		return
	}
	s.solver.Prepare(s.solverBodies, descs, dt)
}

// solveAndIntegrate runs the solver passes, then writes velocities back for
// every simulated body and integrates poses for the active prefix. It also
// persists accumulated impulses for next step's warm starting.
func (s *Scene) solveAndIntegrate(descs []collision.ConstraintDesc, batches []collision.BatchHeader, dt float32) {
	if len(descs) > 0 {
		s.solver.Solve(s.solverBodies, batches, descs, s.numVelocityIters, s.numPositionIters, dt)
	}

	for _, p := range s.contactPairs {
		pd := &s.pairData[p.slot]
		pd.simCount = s.simCount
		pd.count = int32(len(p.points))
		if pd.count > maxManifoldPoints {
			pd.count = maxManifoldPoints
		}
	}
	s.storeWarmImpulses(descs)

	for i := 0; i < s.numSimulated; i++ {
		sb := &s.solverBodies[i]
		b := &s.bodies[i]
		b.linVel = sb.LinVel
		b.angVel = sb.AngVel
		if i < s.numActiveSimulated && dt > 0 {
			b.pose = sb.Pose.Integrate(sb.LinVel, sb.AngVel, dt)
		}
	}
}

// storeWarmImpulses copies the impulses accumulated by the solver back into
// the persistent pair data and joint records, keyed by each descriptor's
// assembly tag.
func (s *Scene) storeWarmImpulses(descs []collision.ConstraintDesc) {
	for i := range descs {
		d := &descs[i]
		switch d.Kind {
		case collision.ConstraintContact:
			if d.Ref < 0 {
				continue
			}
			slot, k := int(d.Ref)/maxManifoldPoints, int(d.Ref)%maxManifoldPoints
			pd := &s.pairData[slot]
			pd.normalImpulse[k] = d.NormalImpulse
			pd.tangentImpulse[k] = d.TangentImpulse
		case collision.ConstraintJoint:
			s.joints[d.Ref].warmImpulse = d.JointImpulse
		}
	}
}
