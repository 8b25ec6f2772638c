package sim

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/localphysics/localsim/collision"
	"github.com/localphysics/localsim/lmath"
)

// countingGenerator wraps the built-in narrow phase and counts invocations.
type countingGenerator struct {
	calls int
	inner collision.BasicGenerator
}

func (g *countingGenerator) Generate(a collision.Geometry, poseA lmath.Transform, b collision.Geometry, poseB lmath.Transform, matA, matB collision.Material, out []collision.ContactPoint) []collision.ContactPoint {
	g.calls++
	return g.inner.Generate(a, poseA, b, poseB, matA, matB, out)
}

// emptyGenerator counts invocations and never produces contacts.
type emptyGenerator struct {
	calls int
}

func (g *emptyGenerator) Generate(a collision.Geometry, poseA lmath.Transform, b collision.Geometry, poseB lmath.Transform, matA, matB collision.Material, out []collision.ContactPoint) []collision.ContactPoint {
	g.calls++
	return out
}

func TestSimulateZeroDeltaTimeLeavesPosesUnchanged(t *testing.T) {
	s := NewScene(Options{})
	defer s.Terminate()

	start := lmath.TransformAt(mgl32.Vec3{0, 10, 0})
	h := s.CreateDynamicActor(sphereShape(0.5), start, dynamicProps())
	h.SetLinearVelocity(mgl32.Vec3{3, 0, 0})

	for i := 0; i < 5; i++ {
		s.Simulate(0, mgl32.Vec3{0, -9.81, 0})
	}
	if got := h.WorldTransform(); got != start {
		t.Fatalf("pose changed under dt=0: %+v", got)
	}
}

func TestStaticActorPoseNeverMutated(t *testing.T) {
	s := NewScene(Options{})
	defer s.Terminate()

	groundPose := lmath.TransformAt(mgl32.Vec3{0, -0.5, 0})
	ground := s.CreateStaticActor([]ShapeDef{{
		Geometry: collision.Plane{Normal: mgl32.Vec3{0, 1, 0}},
		LocalTM:  lmath.TransformIdentity(),
	}}, groundPose)

	// A dynamic sphere resting in penetration with the plane, plus forces.
	ball := s.CreateDynamicActor(sphereShape(0.5), lmath.TransformAt(mgl32.Vec3{0, -0.2, 0}), dynamicProps())
	for i := 0; i < 30; i++ {
		s.AddRadialForce(ball.Index(), mgl32.Vec3{0, -5, 0}, 100, 50, FalloffConstant, AddImpulse)
		s.Simulate(1.0/60, mgl32.Vec3{0, -9.81, 0})
	}

	if got := ground.WorldTransform(); got != groundPose {
		t.Fatalf("static pose mutated: %+v", got)
	}
}

func TestStaticSceneRoundTripBitIdentical(t *testing.T) {
	s := NewScene(Options{})
	defer s.Terminate()

	const n = 8
	poses := make([]lmath.Transform, n)
	handles := make([]*ActorHandle, n)
	for i := range handles {
		poses[i] = lmath.TransformAt(mgl32.Vec3{float32(i), float32(i) * 2, 0})
		handles[i] = s.CreateStaticActor(sphereShape(1), poses[i])
	}

	for k := 0; k < 16; k++ {
		s.Simulate(1.0/60, mgl32.Vec3{0, -9.81, 0})
	}
	for i, h := range handles {
		if got := h.WorldTransform(); got != poses[i] {
			t.Fatalf("static actor %d pose drifted: %+v", i, got)
		}
	}
}

func TestIgnoredPairGeneratesNoContacts(t *testing.T) {
	gen := &countingGenerator{}
	s := NewScene(Options{Generator: gen})
	defer s.Terminate()

	// Two overlapping spheres; the only candidate pair in the scene.
	a := s.CreateDynamicActor(sphereShape(1), lmath.TransformIdentity(), dynamicProps())
	b := s.CreateDynamicActor(sphereShape(1), lmath.TransformAt(mgl32.Vec3{0.5, 0, 0}), dynamicProps())
	s.SetIgnoreCollisionPairTable([]IgnorePair{{A: a, B: b}})

	for i := 0; i < 10; i++ {
		s.Simulate(1.0/60, mgl32.Vec3{})
	}
	if gen.calls != 0 {
		t.Fatalf("contact generation ran %d times for an ignored pair", gen.calls)
	}
}

func TestIgnoredActorGeneratesNoContacts(t *testing.T) {
	gen := &countingGenerator{}
	s := NewScene(Options{Generator: gen})
	defer s.Terminate()

	a := s.CreateDynamicActor(sphereShape(1), lmath.TransformIdentity(), dynamicProps())
	s.CreateDynamicActor(sphereShape(1), lmath.TransformAt(mgl32.Vec3{0.5, 0, 0}), dynamicProps())
	s.SetIgnoreCollisionActors([]*ActorHandle{a})

	for i := 0; i < 5; i++ {
		s.Simulate(1.0/60, mgl32.Vec3{})
	}
	if gen.calls != 0 {
		t.Fatalf("contact generation ran %d times for an ignored actor", gen.calls)
	}
}

func TestIterationCacheSkipAndInvalidation(t *testing.T) {
	gen := &emptyGenerator{}
	s := NewScene(Options{Generator: gen})
	defer s.Terminate()

	// Two overlapping dynamic spheres, made dormant so their pair becomes
	// skippable once contact generation comes back empty.
	s.CreateDynamicActor(sphereShape(1), lmath.TransformIdentity(), dynamicProps())
	s.CreateDynamicActor(sphereShape(1), lmath.TransformAt(mgl32.Vec3{0.5, 0, 0}), dynamicProps())
	s.SetNumActiveBodies(0)

	s.Simulate(1.0/60, mgl32.Vec3{})
	if gen.calls != 1 {
		t.Fatalf("first step: generator calls = %d, want 1", gen.calls)
	}

	// Second step honors the cached skip.
	s.Simulate(1.0/60, mgl32.Vec3{})
	if gen.calls != 1 {
		t.Fatalf("cached step: generator calls = %d, want 1", gen.calls)
	}

	// An unrelated structural mutation must invalidate the cached skip.
	s.CreateDynamicActor(sphereShape(1), lmath.TransformAt(mgl32.Vec3{100, 0, 0}), dynamicProps())
	s.Simulate(1.0/60, mgl32.Vec3{})
	if gen.calls != 2 {
		t.Fatalf("post-mutation step: generator calls = %d, want 2", gen.calls)
	}
}

func TestEveryStructuralMutationInvalidatesCachedSkips(t *testing.T) {
	gen := &emptyGenerator{}
	s := NewScene(Options{Generator: gen})
	defer s.Terminate()

	// One overlapping dormant pair plus an unrelated far-away actor. The
	// far actor is the target of the joint and removal mutations; none of
	// them touch the cached pair itself.
	s.CreateDynamicActor(sphereShape(1), lmath.TransformIdentity(), dynamicProps())
	s.CreateDynamicActor(sphereShape(1), lmath.TransformAt(mgl32.Vec3{0.5, 0, 0}), dynamicProps())
	far := s.CreateDynamicActor(sphereShape(1), lmath.TransformAt(mgl32.Vec3{100, 0, 0}), dynamicProps())
	s.SetNumActiveBodies(0)

	stepAndCount := func(want int, after string) {
		t.Helper()
		s.Simulate(1.0/60, mgl32.Vec3{})
		if gen.calls != want {
			t.Fatalf("%s: generator calls = %d, want %d", after, gen.calls, want)
		}
	}

	stepAndCount(1, "first step")
	stepAndCount(1, "cached step")

	j := s.CreateJoint(JointConfig{LocalAnchorA: mgl32.Vec3{100, 0, 0}}, nil, far)
	stepAndCount(2, "after joint creation")
	stepAndCount(2, "cached step after joint creation")

	s.RemoveJoint(j)
	stepAndCount(3, "after joint removal")
	stepAndCount(3, "cached step after joint removal")

	s.RemoveActor(far)
	stepAndCount(4, "after actor removal")
	stepAndCount(4, "cached step after actor removal")
}

func TestFilterTableChangeInvalidatesCache(t *testing.T) {
	gen := &emptyGenerator{}
	s := NewScene(Options{Generator: gen})
	defer s.Terminate()

	s.CreateDynamicActor(sphereShape(1), lmath.TransformIdentity(), dynamicProps())
	s.CreateDynamicActor(sphereShape(1), lmath.TransformAt(mgl32.Vec3{0.5, 0, 0}), dynamicProps())
	s.SetNumActiveBodies(0)

	s.Simulate(1.0/60, mgl32.Vec3{})
	s.Simulate(1.0/60, mgl32.Vec3{})
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls)
	}

	// Replacing the (empty) actor filter set still counts as a filter
	// mutation and rebuilds the cache.
	s.SetIgnoreCollisionActors(nil)
	s.Simulate(1.0/60, mgl32.Vec3{})
	if gen.calls != 2 {
		t.Fatalf("generator calls after filter change = %d, want 2", gen.calls)
	}
}

func TestJointKeepsBodyFromFreeFall(t *testing.T) {
	s := NewScene(Options{})
	defer s.Terminate()

	anchor := mgl32.Vec3{0, 5, 0}
	ball := s.CreateDynamicActor(sphereShape(0.2), lmath.TransformAt(mgl32.Vec3{0, 4.6, 0}), dynamicProps())
	s.CreateJoint(JointConfig{LocalAnchorA: anchor}, nil, ball)

	for i := 0; i < 120; i++ {
		s.Simulate(1.0/60, mgl32.Vec3{0, -9.81, 0})
	}

	// Two seconds of free fall would put the body around y = -15; the
	// joint must hold it near the anchor instead.
	y := ball.WorldTransform().Pos.Y()
	if y < 3 {
		t.Fatalf("jointed body fell to y=%v", y)
	}
}

func TestContactStopsFallingSphere(t *testing.T) {
	s := NewScene(Options{})
	defer s.Terminate()

	s.CreateStaticActor([]ShapeDef{{
		Geometry: collision.Plane{Normal: mgl32.Vec3{0, 1, 0}},
		LocalTM:  lmath.TransformIdentity(),
	}}, lmath.TransformIdentity())
	ball := s.CreateDynamicActor(sphereShape(0.5), lmath.TransformAt(mgl32.Vec3{0, 2, 0}), dynamicProps())

	for i := 0; i < 240; i++ {
		s.Simulate(1.0/60, mgl32.Vec3{0, -9.81, 0})
	}

	y := ball.WorldTransform().Pos.Y()
	if y < 0 || y > 1 {
		t.Fatalf("sphere should rest on the plane near y=0.5, got y=%v", y)
	}
}

func TestDormantBodiesAreNotIntegrated(t *testing.T) {
	s := NewScene(Options{})
	defer s.Terminate()

	active := s.CreateDynamicActor(sphereShape(0.5), lmath.TransformAt(mgl32.Vec3{0, 10, 0}), dynamicProps())
	dormant := s.CreateDynamicActor(sphereShape(0.5), lmath.TransformAt(mgl32.Vec3{50, 10, 0}), dynamicProps())
	s.SetNumActiveBodies(1)

	dormantStart := dormant.WorldTransform()
	for i := 0; i < 30; i++ {
		s.Simulate(1.0/60, mgl32.Vec3{0, -9.81, 0})
	}

	if active.WorldTransform().Pos.Y() >= 10 {
		t.Fatalf("active body did not fall")
	}
	if got := dormant.WorldTransform(); got != dormantStart {
		t.Fatalf("dormant body moved: %+v", got)
	}
	if !s.IsSimulated(dormant.Index()) {
		t.Fatalf("dormant body should still be simulated")
	}
}
