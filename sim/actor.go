package sim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/localphysics/localsim/assert"
	"github.com/localphysics/localsim/collision"
	"github.com/localphysics/localsim/lmath"
)

// Category is an actor's simulation category. The actor arrays are kept
// partitioned as [dynamic | kinematic | static] so the simulated prefix can
// be iterated without branching.
type Category uint8

const (
	// CategoryDynamic actors collide, move and respond to forces.
	CategoryDynamic Category = iota
	// CategoryKinematic actors collide and may be moved by the caller, but
	// never respond to dynamics.
	CategoryKinematic
	// CategoryStatic actors collide and never move.
	CategoryStatic
)

// BodyProps are the mass properties of a dynamic actor, supplied by the
// caller; the scene never derives them from geometry.
type BodyProps struct {
	Mass float32
	// InvInertia is the diagonal of the inverse inertia tensor in the
	// actor's local frame.
	InvInertia mgl32.Vec3
}

// ShapeDef describes one collision shape attached to an actor at creation.
type ShapeDef struct {
	Geometry collision.Geometry
	LocalTM  lmath.Transform
	Material collision.Material
}

type actorInfo struct {
	category   Category
	firstShape int
	numShapes  int
}

// rigidBody is the loose per-actor state, stored parallel to actorInfo.
type rigidBody struct {
	pose       lmath.Transform
	linVel     mgl32.Vec3
	angVel     mgl32.Vec3
	invMass    float32
	invInertia mgl32.Vec3
}

// CreateDynamicActor adds a dynamic body to the simulation and returns its
// handle. Creating a dynamic body resets the active-body count to cover all
// simulated bodies.
func (s *Scene) CreateDynamicActor(shapes []ShapeDef, pose lmath.Transform, props BodyProps) *ActorHandle {
	assert.IsTrue(props.Mass > 0, "dynamic actor requires positive mass, got %v", props.Mass)
	h := s.createActor(CategoryDynamic, shapes, pose)
	b := &s.bodies[h.index]
	b.invMass = 1 / props.Mass
	b.invInertia = props.InvInertia
	return h
}

// CreateKinematicActor adds a kinematic body to the simulation and returns
// its handle.
func (s *Scene) CreateKinematicActor(shapes []ShapeDef, pose lmath.Transform) *ActorHandle {
	return s.createActor(CategoryKinematic, shapes, pose)
}

// CreateStaticActor adds a static body to the simulation and returns its
// handle.
func (s *Scene) CreateStaticActor(shapes []ShapeDef, pose lmath.Transform) *ActorHandle {
	return s.createActor(CategoryStatic, shapes, pose)
}

func (s *Scene) createActor(cat Category, shapes []ShapeDef, pose lmath.Transform) *ActorHandle {
	assert.IsTrue(!s.terminated, "scene used after Terminate")

	idx := len(s.actors)
	s.actors = append(s.actors, actorInfo{
		category:   cat,
		firstShape: s.shapes.len(),
		numShapes:  len(shapes),
	})
	s.bodies = append(s.bodies, rigidBody{pose: pose})
	s.pendingAccel = append(s.pendingAccel, mgl32.Vec3{})

	s.handleID++
	h := &ActorHandle{scene: s, id: s.handleID, index: idx}
	s.actorHandles = append(s.actorHandles, h)

	s.shapes.appendShapes(idx, shapes)

	// The new slot sits past the statics; swap it back to its partition
	// boundary.
	firstStatic := s.numSimulated + s.numKinematic
	switch cat {
	case CategoryDynamic:
		s.swapActorData(idx, firstStatic)
		s.swapActorData(firstStatic, s.numSimulated)
		s.numSimulated++
		s.numActiveSimulated = s.numSimulated
	case CategoryKinematic:
		s.swapActorData(idx, firstStatic)
		s.numKinematic++
	case CategoryStatic:
	}

	s.shapes.resort(s.actors)
	s.recreateIterationCache = true
	s.validateArrays()
	return h
}

// RemoveActor swap-compacts the actor out of its partition and invalidates
// the handle. Joints referencing the actor must be removed first; the scene
// does not do it implicitly.
func (s *Scene) RemoveActor(h *ActorHandle) {
	assert.IsTrue(!s.terminated, "scene used after Terminate")
	assert.IsTrue(h.Valid() && h.scene == s, "stale actor handle passed to RemoveActor")

	idx := h.index
	last := len(s.actors) - 1
	firstStatic := s.numSimulated + s.numKinematic

	// Bubble the removed actor to the end of the array, keeping every
	// partition dense as it passes through.
	switch s.actors[idx].category {
	case CategoryDynamic:
		s.swapActorData(idx, s.numSimulated-1)
		s.numSimulated--
		s.swapActorData(s.numSimulated, s.numSimulated+s.numKinematic)
		s.swapActorData(s.numSimulated+s.numKinematic, last)
	case CategoryKinematic:
		s.swapActorData(idx, firstStatic-1)
		s.numKinematic--
		s.swapActorData(s.numSimulated+s.numKinematic, last)
	case CategoryStatic:
		s.swapActorData(idx, last)
	}
	if s.numActiveSimulated > s.numSimulated {
		s.numActiveSimulated = s.numSimulated
	}

	s.shapes.resort(s.actors)
	s.shapes.truncate(s.actors[last].numShapes)

	s.actors = s.actors[:last]
	s.bodies = s.bodies[:last]
	s.pendingAccel = s.pendingAccel[:last]
	s.actorHandles = s.actorHandles[:last]

	h.index = -1
	s.recreateIterationCache = true
	s.validateArrays()
}

// swapActorData moves all data associated with the two actor slots,
// including the handle back-links. Safe when i == j.
func (s *Scene) swapActorData(i, j int) {
	if i == j {
		return
	}
	s.actors[i], s.actors[j] = s.actors[j], s.actors[i]
	s.bodies[i], s.bodies[j] = s.bodies[j], s.bodies[i]
	s.pendingAccel[i], s.pendingAccel[j] = s.pendingAccel[j], s.pendingAccel[i]
	s.actorHandles[i], s.actorHandles[j] = s.actorHandles[j], s.actorHandles[i]
	s.actorHandles[i].index = i
	s.actorHandles[j].index = j
}

// validateArrays fires on any internal bookkeeping drift; all of these hold
// between any two mutation calls.
func (s *Scene) validateArrays() {
	n := len(s.actors)
	assert.IsTrue(len(s.bodies) == n, "bodies array out of sync: %d != %d", len(s.bodies), n)
	assert.IsTrue(len(s.pendingAccel) == n, "pending acceleration array out of sync: %d != %d", len(s.pendingAccel), n)
	assert.IsTrue(len(s.actorHandles) == n, "handle array out of sync: %d != %d", len(s.actorHandles), n)
	assert.IsTrue(s.numSimulated+s.numKinematic <= n, "partition sizes exceed actor count")
	assert.IsTrue(s.numActiveSimulated <= s.numSimulated, "active bodies exceed simulated bodies")
	for i, h := range s.actorHandles {
		assert.IsTrue(h.index == i, "handle back-link broken at slot %d", i)
		want := CategoryStatic
		if i < s.numSimulated {
			want = CategoryDynamic
		} else if i < s.numSimulated+s.numKinematic {
			want = CategoryKinematic
		}
		assert.IsTrue(s.actors[i].category == want, "actor %d outside its category partition", i)
	}
}
