package lmath

import (
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a rigid pose: a rotation followed by a translation.
type Transform struct {
	Pos mgl32.Vec3
	Rot mgl32.Quat
}

// TransformIdentity returns the identity pose.
func TransformIdentity() Transform {
	return Transform{Rot: mgl32.QuatIdent()}
}

// TransformAt returns a pose at pos with no rotation.
func TransformAt(pos mgl32.Vec3) Transform {
	return Transform{Pos: pos, Rot: mgl32.QuatIdent()}
}

// Mul composes two poses, applying o in t's frame.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		Pos: t.Pos.Add(t.Rot.Rotate(o.Pos)),
		Rot: t.Rot.Mul(o.Rot).Normalize(),
	}
}

// TransformPoint maps a point from t's local frame into world space.
func (t Transform) TransformPoint(p mgl32.Vec3) mgl32.Vec3 {
	return t.Pos.Add(t.Rot.Rotate(p))
}

// InvTransformPoint maps a world-space point into t's local frame.
func (t Transform) InvTransformPoint(p mgl32.Vec3) mgl32.Vec3 {
	return t.Rot.Inverse().Rotate(p.Sub(t.Pos))
}

// TransformDir rotates a direction into world space without translating it.
func (t Transform) TransformDir(d mgl32.Vec3) mgl32.Vec3 {
	return t.Rot.Rotate(d)
}

// Integrate advances the pose by the given linear and angular velocities over
// dt seconds. The angular update uses the standard quaternion derivative
// dq/dt = 0.5 * w * q.
func (t Transform) Integrate(linVel, angVel mgl32.Vec3, dt float32) Transform {
	out := Transform{Pos: t.Pos.Add(linVel.Mul(dt))}

	w := mgl32.Quat{W: 0, V: angVel}
	dq := w.Mul(t.Rot)
	out.Rot = mgl32.Quat{
		W: t.Rot.W + dq.W*0.5*dt,
		V: t.Rot.V.Add(dq.V.Mul(0.5 * dt)),
	}.Normalize()
	return out
}

// BoundsAround returns the world-space box enclosing a sphere of radius r
// centred at c.
func BoundsAround(c mgl32.Vec3, r float32) cube.BBox {
	return cube.Box(
		c.X()-r, c.Y()-r, c.Z()-r,
		c.X()+r, c.Y()+r, c.Z()+r,
	)
}

// SafeNormalize normalizes v, returning the zero vector for degenerate
// inputs instead of NaNs.
func SafeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l < 1e-8 {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / l)
}
