package collision

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/localphysics/localsim/lmath"
)

// BasicGenerator is the built-in narrow phase. It understands spheres,
// planes and boxes (boxes collide through their closest-point test against
// spheres and are otherwise treated as their bounding sphere). It exists so
// the scene is usable and testable without a native physics backend; callers
// with richer geometry plug in their own ContactGenerator.
type BasicGenerator struct{}

func (BasicGenerator) Generate(a Geometry, poseA lmath.Transform, b Geometry, poseB lmath.Transform, matA, matB Material, out []ContactPoint) []ContactPoint {
	mat := matA.Combine(matB)

	switch ga := a.(type) {
	case Sphere:
		switch gb := b.(type) {
		case Sphere:
			return sphereSphere(ga, poseA, gb, poseB, mat, out)
		case Plane:
			return spherePlane(ga, poseA, gb, poseB, mat, false, out)
		case Box:
			return sphereBox(ga, poseA, gb, poseB, mat, false, out)
		}
	case Plane:
		if gb, ok := b.(Sphere); ok {
			return spherePlane(gb, poseB, ga, poseA, mat, true, out)
		}
	case Box:
		switch gb := b.(type) {
		case Sphere:
			return sphereBox(gb, poseB, ga, poseA, mat, true, out)
		case Box:
			ba := Sphere{Radius: ga.BoundingRadius()}
			bb := Sphere{Radius: gb.BoundingRadius()}
			return sphereSphere(ba, poseA, bb, poseB, mat, out)
		}
	}
	return out
}

func sphereSphere(a Sphere, poseA lmath.Transform, b Sphere, poseB lmath.Transform, mat Material, out []ContactPoint) []ContactPoint {
	d := poseB.Pos.Sub(poseA.Pos)
	dist := d.Len()
	depth := a.Radius + b.Radius - dist
	if depth <= 0 {
		return out
	}

	normal := lmath.SafeNormalize(d)
	if normal == (mgl32.Vec3{}) {
		// Coincident centres: pick an arbitrary separation axis.
		normal = mgl32.Vec3{0, 1, 0}
	}
	return append(out, ContactPoint{
		Position: poseA.Pos.Add(normal.Mul(a.Radius - depth*0.5)),
		Normal:   normal,
		Depth:    depth,
		Material: mat,
	})
}

// spherePlane generates the sphere-vs-halfspace contact. flip is set when the
// caller's first shape was the plane, so the reported normal still points
// from shape A to shape B.
func spherePlane(s Sphere, poseS lmath.Transform, p Plane, poseP lmath.Transform, mat Material, flip bool, out []ContactPoint) []ContactPoint {
	n := lmath.SafeNormalize(poseP.TransformDir(p.Normal))
	planePoint := poseP.TransformPoint(p.Normal.Mul(p.D))
	dist := poseS.Pos.Sub(planePoint).Dot(n)
	depth := s.Radius - dist
	if depth <= 0 {
		return out
	}

	normal := n.Mul(-1) // sphere towards plane
	if flip {
		normal = n
	}
	return append(out, ContactPoint{
		Position: poseS.Pos.Sub(n.Mul(dist)),
		Normal:   normal,
		Depth:    depth,
		Material: mat,
	})
}

// sphereBox tests the sphere against the box's closest surface point.
func sphereBox(s Sphere, poseS lmath.Transform, b Box, poseB lmath.Transform, mat Material, flip bool, out []ContactPoint) []ContactPoint {
	local := poseB.InvTransformPoint(poseS.Pos)
	closest := mgl32.Vec3{
		mgl32.Clamp(local.X(), -b.HalfExtents.X(), b.HalfExtents.X()),
		mgl32.Clamp(local.Y(), -b.HalfExtents.Y(), b.HalfExtents.Y()),
		mgl32.Clamp(local.Z(), -b.HalfExtents.Z(), b.HalfExtents.Z()),
	}
	delta := local.Sub(closest)
	dist := delta.Len()
	if dist > s.Radius || dist < 1e-8 {
		// Deep containment (dist ~ 0) is left to the bounding-sphere
		// fallback rather than guessing a face normal.
		if dist >= 1e-8 {
			return out
		}
		return sphereSphere(s, poseS, Sphere{Radius: b.BoundingRadius()}, poseB, mat, out)
	}

	worldClosest := poseB.TransformPoint(closest)
	n := lmath.SafeNormalize(poseS.Pos.Sub(worldClosest)) // box towards sphere
	depth := s.Radius - dist

	normal := n.Mul(-1) // sphere towards box
	if flip {
		normal = n
	}
	return append(out, ContactPoint{
		Position: worldClosest,
		Normal:   normal,
		Depth:    depth,
		Material: mat,
	})
}
