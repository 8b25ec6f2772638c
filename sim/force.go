package sim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/localphysics/localsim/assert"
	"github.com/localphysics/localsim/lmath"
)

// ForceType selects how a radial force's scaled magnitude is interpreted
// before it reaches the body.
type ForceType uint8

const (
	// AddForce divides by mass and is scaled by the step time.
	AddForce ForceType = iota
	// AddAcceleration is scaled by the step time; mass is ignored.
	AddAcceleration
	// AddImpulse divides by mass; time is ignored.
	AddImpulse
	// AddVelocity is applied to velocity directly; mass and time are
	// ignored.
	AddVelocity
)

// Falloff is the attenuation curve of a radial force.
type Falloff uint8

const (
	// FalloffConstant applies full strength anywhere inside the radius.
	FalloffConstant Falloff = iota
	// FalloffLinear fades strength linearly to zero at the radius.
	FalloffLinear
)

// AddRadialForce applies a force pointing away from origin to the actor at
// actorIndex. Outside radius the force is zero. Time-scaled variants are
// queued and consumed by the next step's solver-body construction; the
// others change velocity immediately. Non-simulated actors are unaffected.
func (s *Scene) AddRadialForce(actorIndex int, origin mgl32.Vec3, strength, radius float32, falloff Falloff, forceType ForceType) {
	assert.InBounds(actorIndex, len(s.actors), "actor")
	if !s.IsSimulated(actorIndex) {
		return
	}

	b := &s.bodies[actorIndex]
	delta := b.pose.Pos.Sub(origin)
	dist := delta.Len()
	if dist > radius {
		return
	}

	scale := strength
	if falloff == FalloffLinear && radius > 0 {
		scale *= 1 - dist/radius
	}
	// Coincident origin degenerates to the zero direction.
	value := lmath.SafeNormalize(delta).Mul(scale)

	switch forceType {
	case AddForce:
		s.pendingAccel[actorIndex] = s.pendingAccel[actorIndex].Add(value.Mul(b.invMass))
	case AddAcceleration:
		s.pendingAccel[actorIndex] = s.pendingAccel[actorIndex].Add(value)
	case AddImpulse:
		b.linVel = b.linVel.Add(value.Mul(b.invMass))
	case AddVelocity:
		b.linVel = b.linVel.Add(value)
	}
}
