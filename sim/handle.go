package sim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/localphysics/localsim/assert"
	"github.com/localphysics/localsim/lmath"
)

// ActorHandle is the only externally valid reference to an actor. The scene
// compacts its internal arrays on removal, so raw indices go stale; a handle
// is updated synchronously whenever its actor moves to a new slot. Exactly
// one handle exists per live actor. Using a handle after RemoveActor or
// Terminate is a programmer error.
type ActorHandle struct {
	scene *Scene
	id    uint64
	index int
}

// Valid reports whether the handle still refers to a live actor.
func (h *ActorHandle) Valid() bool {
	return h != nil && h.index >= 0
}

// Index returns the actor's current slot index. The index is only usable
// until the next actor creation or removal.
func (h *ActorHandle) Index() int {
	h.mustResolve()
	return h.index
}

// Category returns the actor's simulation category.
func (h *ActorHandle) Category() Category {
	h.mustResolve()
	return h.scene.actors[h.index].category
}

// WorldTransform returns the actor's current pose.
func (h *ActorHandle) WorldTransform() lmath.Transform {
	h.mustResolve()
	return h.scene.bodies[h.index].pose
}

// SetWorldTransform teleports the actor. Teleporting changes what the next
// step's pair enumeration can skip, so the iteration cache is invalidated.
func (h *ActorHandle) SetWorldTransform(tm lmath.Transform) {
	h.mustResolve()
	h.scene.bodies[h.index].pose = tm
	h.scene.recreateIterationCache = true
}

// LinearVelocity returns the actor's linear velocity. Zero for statics.
func (h *ActorHandle) LinearVelocity() mgl32.Vec3 {
	h.mustResolve()
	return h.scene.bodies[h.index].linVel
}

// SetLinearVelocity sets the actor's linear velocity. No-op for statics.
func (h *ActorHandle) SetLinearVelocity(v mgl32.Vec3) {
	h.mustResolve()
	if h.scene.actors[h.index].category == CategoryStatic {
		return
	}
	h.scene.bodies[h.index].linVel = v
}

// AngularVelocity returns the actor's angular velocity. Zero for statics.
func (h *ActorHandle) AngularVelocity() mgl32.Vec3 {
	h.mustResolve()
	return h.scene.bodies[h.index].angVel
}

// SetAngularVelocity sets the actor's angular velocity. No-op for statics.
func (h *ActorHandle) SetAngularVelocity(v mgl32.Vec3) {
	h.mustResolve()
	if h.scene.actors[h.index].category == CategoryStatic {
		return
	}
	h.scene.bodies[h.index].angVel = v
}

// AddForce queues a force on the actor, consumed by the next step's
// solver-body construction.
func (h *ActorHandle) AddForce(force mgl32.Vec3) {
	h.mustResolve()
	s := h.scene
	if !s.IsSimulated(h.index) {
		return
	}
	b := &s.bodies[h.index]
	s.pendingAccel[h.index] = s.pendingAccel[h.index].Add(force.Mul(b.invMass))
}

// AddRadialForce applies a radial force centred at origin to this actor.
// See Scene.AddRadialForce.
func (h *ActorHandle) AddRadialForce(origin mgl32.Vec3, strength, radius float32, falloff Falloff, forceType ForceType) {
	h.mustResolve()
	h.scene.AddRadialForce(h.index, origin, strength, radius, falloff, forceType)
}

func (h *ActorHandle) mustResolve() {
	assert.IsTrue(h != nil && h.index >= 0, "stale actor handle")
}

// JointHandle is the stable reference to a joint, with the same lifecycle
// rules as ActorHandle.
type JointHandle struct {
	scene *Scene
	id    uint64
	index int
}

// Valid reports whether the handle still refers to a live joint.
func (h *JointHandle) Valid() bool {
	return h != nil && h.index >= 0
}

// Actors returns the two actor handles the joint connects. Either may be
// nil, meaning the joint anchors to the world.
func (h *JointHandle) Actors() (*ActorHandle, *ActorHandle) {
	assert.IsTrue(h != nil && h.index >= 0, "stale joint handle")
	j := h.scene.joints[h.index]
	return j.actorA, j.actorB
}
