package collision

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/localphysics/localsim/lmath"
)

func approx(t *testing.T, got, want float32, eps float32) {
	t.Helper()
	if math32.Abs(got-want) > eps {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func approxVec(t *testing.T, got, want mgl32.Vec3, eps float32) {
	t.Helper()
	d := got.Sub(want)
	if math32.Abs(d.X()) > eps || math32.Abs(d.Y()) > eps || math32.Abs(d.Z()) > eps {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSphereSphereOverlap(t *testing.T) {
	var g BasicGenerator
	pts := g.Generate(
		Sphere{Radius: 1}, lmath.TransformIdentity(),
		Sphere{Radius: 1}, lmath.TransformAt(mgl32.Vec3{1.5, 0, 0}),
		Material{}, Material{}, nil,
	)
	if len(pts) != 1 {
		t.Fatalf("got %d contacts, want 1", len(pts))
	}
	approxVec(t, pts[0].Normal, mgl32.Vec3{1, 0, 0}, 1e-6)
	approx(t, pts[0].Depth, 0.5, 1e-6)
	approxVec(t, pts[0].Position, mgl32.Vec3{0.75, 0, 0}, 1e-6)
}

func TestSphereSphereSeparated(t *testing.T) {
	var g BasicGenerator
	pts := g.Generate(
		Sphere{Radius: 1}, lmath.TransformIdentity(),
		Sphere{Radius: 1}, lmath.TransformAt(mgl32.Vec3{2.5, 0, 0}),
		Material{}, Material{}, nil,
	)
	if len(pts) != 0 {
		t.Fatalf("got %d contacts, want 0", len(pts))
	}
}

func TestSphereSphereCoincidentCentres(t *testing.T) {
	var g BasicGenerator
	pts := g.Generate(
		Sphere{Radius: 1}, lmath.TransformIdentity(),
		Sphere{Radius: 1}, lmath.TransformIdentity(),
		Material{}, Material{}, nil,
	)
	if len(pts) != 1 {
		t.Fatalf("got %d contacts, want 1", len(pts))
	}
	approxVec(t, pts[0].Normal, mgl32.Vec3{0, 1, 0}, 0)
	approx(t, pts[0].Depth, 2, 1e-6)
}

func TestSpherePlaneNormalOrientation(t *testing.T) {
	var g BasicGenerator
	plane := Plane{Normal: mgl32.Vec3{0, 1, 0}}

	// Sphere first: the normal points from the sphere into the plane.
	pts := g.Generate(
		Sphere{Radius: 1}, lmath.TransformAt(mgl32.Vec3{0, 0.5, 0}),
		plane, lmath.TransformIdentity(),
		Material{}, Material{}, nil,
	)
	if len(pts) != 1 {
		t.Fatalf("got %d contacts, want 1", len(pts))
	}
	approxVec(t, pts[0].Normal, mgl32.Vec3{0, -1, 0}, 1e-6)
	approx(t, pts[0].Depth, 0.5, 1e-6)
	approxVec(t, pts[0].Position, mgl32.Vec3{0, 0, 0}, 1e-6)

	// Plane first: the normal flips so it still points A to B.
	flipped := g.Generate(
		plane, lmath.TransformIdentity(),
		Sphere{Radius: 1}, lmath.TransformAt(mgl32.Vec3{0, 0.5, 0}),
		Material{}, Material{}, nil,
	)
	if len(flipped) != 1 {
		t.Fatalf("got %d contacts, want 1", len(flipped))
	}
	approxVec(t, flipped[0].Normal, mgl32.Vec3{0, 1, 0}, 1e-6)
	approx(t, flipped[0].Depth, 0.5, 1e-6)
}

func TestSphereBoxFaceContact(t *testing.T) {
	var g BasicGenerator
	pts := g.Generate(
		Sphere{Radius: 0.5}, lmath.TransformAt(mgl32.Vec3{1.3, 0, 0}),
		Box{HalfExtents: mgl32.Vec3{1, 1, 1}}, lmath.TransformIdentity(),
		Material{}, Material{}, nil,
	)
	if len(pts) != 1 {
		t.Fatalf("got %d contacts, want 1", len(pts))
	}
	approxVec(t, pts[0].Normal, mgl32.Vec3{-1, 0, 0}, 1e-6)
	approx(t, pts[0].Depth, 0.2, 1e-6)
	approxVec(t, pts[0].Position, mgl32.Vec3{1, 0, 0}, 1e-6)
}

func TestSphereBoxSeparated(t *testing.T) {
	var g BasicGenerator
	pts := g.Generate(
		Sphere{Radius: 0.5}, lmath.TransformAt(mgl32.Vec3{3, 0, 0}),
		Box{HalfExtents: mgl32.Vec3{1, 1, 1}}, lmath.TransformIdentity(),
		Material{}, Material{}, nil,
	)
	if len(pts) != 0 {
		t.Fatalf("got %d contacts, want 0", len(pts))
	}
}

func TestMaterialCombine(t *testing.T) {
	a := Material{Friction: 0.4, Restitution: 0.2}
	b := Material{Friction: 0.9, Restitution: 0.7}
	m := a.Combine(b)
	approx(t, m.Friction, math32.Sqrt(0.4*0.9), 1e-6)
	approx(t, m.Restitution, 0.7, 0)
}

func TestGenerateAppendsToScratch(t *testing.T) {
	var g BasicGenerator
	scratch := make([]ContactPoint, 0, 8)
	pts := g.Generate(
		Sphere{Radius: 1}, lmath.TransformIdentity(),
		Sphere{Radius: 1}, lmath.TransformAt(mgl32.Vec3{1, 0, 0}),
		Material{}, Material{}, scratch,
	)
	if len(pts) != 1 || cap(pts) != cap(scratch) {
		t.Fatalf("expected append into caller scratch, got len=%d cap=%d", len(pts), cap(pts))
	}
}
