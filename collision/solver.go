package collision

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/localphysics/localsim/lmath"
)

// WorldBody is the solver body index standing in for the immovable world
// (static actors and null joint partners).
const WorldBody int32 = -1

// SolverBody is the solver-facing view of one actor for a single step.
// Static actors never appear in solver body arrays; kinematic actors appear
// with the Kinematic flag set, so constraints read their velocity but never
// write it, whatever mass properties they carry.
type SolverBody struct {
	Pose   lmath.Transform
	LinVel mgl32.Vec3
	AngVel mgl32.Vec3

	InvMass         float32
	InvInertiaLocal mgl32.Vec3 // diagonal, body frame
	InvInertiaWorld mgl32.Mat3 // derived by Prepare

	Kinematic bool
}

// effectiveInvMass is the inverse mass constraints respond with: zero for
// kinematic bodies regardless of InvMass.
func (b *SolverBody) effectiveInvMass() float32 {
	if b.Kinematic {
		return 0
	}
	return b.InvMass
}

// ConstraintKind discriminates descriptor payloads.
type ConstraintKind uint8

const (
	ConstraintContact ConstraintKind = iota
	ConstraintJoint
)

// ConstraintDesc is one prepared constraint handed to the solver. The scene
// fills the input fields and warm-start impulses; Prepare derives the rest.
type ConstraintDesc struct {
	Kind  ConstraintKind
	BodyA int32
	BodyB int32

	// Ref is an opaque caller tag that survives batching, letting the
	// assembler map solved descriptors back to its own records. Solvers
	// never touch it.
	Ref int32

	// Contact input.
	Point       mgl32.Vec3
	Normal      mgl32.Vec3 // from A to B
	Depth       float32
	Friction    float32
	Restitution float32

	// Joint input: local-space anchors (world-space when the body is
	// WorldBody) and the allowed anchor separation before the joint pulls.
	AnchorA     mgl32.Vec3
	AnchorB     mgl32.Vec3
	LinearLimit float32

	// Warm-start impulses, read by Prepare and updated by Solve.
	NormalImpulse  float32
	TangentImpulse [2]float32
	JointImpulse   mgl32.Vec3

	// Derived by Prepare.
	rA, rB       mgl32.Vec3
	posA0, posB0 mgl32.Vec3
	normalMass   float32
	tangent      [2]mgl32.Vec3
	tangentMass  [2]float32
	velocityBias float32
	jointMass    mgl32.Mat3
}

// BatchHeader addresses a run of descriptors in which no two constraints
// share a dynamic body, so a solver may process one batch's constraints
// concurrently.
type BatchHeader struct {
	Start int32
	Count int32
}

// ConstraintSolver is the constraint-math collaborator. Prepare converts
// assembled descriptors plus the step time into immediate solver inputs;
// Solve runs the velocity and position passes and leaves updated velocities
// and poses in the solver bodies.
type ConstraintSolver interface {
	Prepare(bodies []SolverBody, descs []ConstraintDesc, dt float32)
	Solve(bodies []SolverBody, batches []BatchHeader, descs []ConstraintDesc, velIters, posIters int, dt float32)
}

const (
	restitutionThreshold = 0.5  // m/s of approach speed before restitution kicks in
	penetrationSlop      = 1e-3 // tolerated overlap, metres
	positionBeta         = 0.2  // fraction of remaining error corrected per position pass
)

// ImpulseSolver is the built-in sequential impulse solver with accumulated,
// warm-started impulses and a translational position correction pass.
type ImpulseSolver struct{}

// NewImpulseSolver returns the default ConstraintSolver.
func NewImpulseSolver() *ImpulseSolver {
	return &ImpulseSolver{}
}

var worldSolverBody = SolverBody{Pose: lmath.TransformIdentity()}

func body(bodies []SolverBody, idx int32) *SolverBody {
	if idx == WorldBody {
		return &worldSolverBody
	}
	return &bodies[idx]
}

func (s *ImpulseSolver) Prepare(bodies []SolverBody, descs []ConstraintDesc, dt float32) {
	for i := range bodies {
		b := &bodies[i]
		rot := b.Pose.Rot.Mat4().Mat3()
		diag := mgl32.Diag3(b.InvInertiaLocal)
		b.InvInertiaWorld = rot.Mul3(diag).Mul3(rot.Transpose())
	}

	for i := range descs {
		d := &descs[i]
		a, b := body(bodies, d.BodyA), body(bodies, d.BodyB)
		d.posA0, d.posB0 = a.Pose.Pos, b.Pose.Pos

		switch d.Kind {
		case ConstraintContact:
			s.prepareContact(d, a, b)
		case ConstraintJoint:
			s.prepareJoint(d, a, b)
		}
	}
}

func (s *ImpulseSolver) prepareContact(d *ConstraintDesc, a, b *SolverBody) {
	d.rA = d.Point.Sub(a.Pose.Pos)
	d.rB = d.Point.Sub(b.Pose.Pos)

	d.normalMass = invEffectiveMass(a, b, d.rA, d.rB, d.Normal)
	d.tangent[0], d.tangent[1] = tangentBasis(d.Normal)
	d.tangentMass[0] = invEffectiveMass(a, b, d.rA, d.rB, d.tangent[0])
	d.tangentMass[1] = invEffectiveMass(a, b, d.rA, d.rB, d.tangent[1])

	// Restitution bias from the approach velocity at the point of contact.
	vn := relativeVelocity(a, b, d.rA, d.rB).Dot(d.Normal)
	d.velocityBias = 0
	if vn < -restitutionThreshold {
		d.velocityBias = -d.Restitution * vn
	}

	// Warm start.
	impulse := d.Normal.Mul(d.NormalImpulse).
		Add(d.tangent[0].Mul(d.TangentImpulse[0])).
		Add(d.tangent[1].Mul(d.TangentImpulse[1]))
	applyImpulse(a, b, d.rA, d.rB, impulse)
}

func (s *ImpulseSolver) prepareJoint(d *ConstraintDesc, a, b *SolverBody) {
	d.rA = anchorOffset(d.BodyA, a, d.AnchorA)
	d.rB = anchorOffset(d.BodyB, b, d.AnchorB)

	ma, mb := a.effectiveInvMass(), b.effectiveInvMass()
	if ma+mb == 0 {
		// Neither side can move; the joint is inert this step.
		d.jointMass = mgl32.Mat3{}
		return
	}
	k := mgl32.Diag3(mgl32.Vec3{ma + mb, ma + mb, ma + mb})
	k = k.Add(skewInertia(a, d.rA)).Add(skewInertia(b, d.rB))
	d.jointMass = k.Inv()

	applyImpulse(a, b, d.rA, d.rB, d.JointImpulse)
}

func (s *ImpulseSolver) Solve(bodies []SolverBody, batches []BatchHeader, descs []ConstraintDesc, velIters, posIters int, dt float32) {
	for iter := 0; iter < velIters; iter++ {
		for _, h := range batches {
			for i := h.Start; i < h.Start+h.Count; i++ {
				d := &descs[i]
				a, b := body(bodies, d.BodyA), body(bodies, d.BodyB)
				switch d.Kind {
				case ConstraintContact:
					s.solveContactVelocity(d, a, b)
				case ConstraintJoint:
					s.solveJointVelocity(d, a, b)
				}
			}
		}
	}

	for iter := 0; iter < posIters; iter++ {
		for _, h := range batches {
			for i := h.Start; i < h.Start+h.Count; i++ {
				d := &descs[i]
				a, b := body(bodies, d.BodyA), body(bodies, d.BodyB)
				switch d.Kind {
				case ConstraintContact:
					s.solveContactPosition(d, a, b)
				case ConstraintJoint:
					s.solveJointPosition(d, a, b)
				}
			}
		}
	}
}

func (s *ImpulseSolver) solveContactVelocity(d *ConstraintDesc, a, b *SolverBody) {
	// Friction first, clamped against the last accumulated normal impulse.
	for t := 0; t < 2; t++ {
		vt := relativeVelocity(a, b, d.rA, d.rB).Dot(d.tangent[t])
		lambda := -d.tangentMass[t] * vt
		maxFriction := d.Friction * d.NormalImpulse
		old := d.TangentImpulse[t]
		d.TangentImpulse[t] = mgl32.Clamp(old+lambda, -maxFriction, maxFriction)
		applyImpulse(a, b, d.rA, d.rB, d.tangent[t].Mul(d.TangentImpulse[t]-old))
	}

	vn := relativeVelocity(a, b, d.rA, d.rB).Dot(d.Normal)
	lambda := -d.normalMass * (vn - d.velocityBias)
	old := d.NormalImpulse
	d.NormalImpulse = math32.Max(old+lambda, 0)
	applyImpulse(a, b, d.rA, d.rB, d.Normal.Mul(d.NormalImpulse-old))
}

func (s *ImpulseSolver) solveJointVelocity(d *ConstraintDesc, a, b *SolverBody) {
	if d.LinearLimit > 0 {
		pa := jointWorldAnchor(d.BodyA, a, d.AnchorA)
		pb := jointWorldAnchor(d.BodyB, b, d.AnchorB)
		if pb.Sub(pa).Len() <= d.LinearLimit {
			return
		}
	}
	rel := relativeVelocity(a, b, d.rA, d.rB)
	impulse := d.jointMass.Mul3x1(rel.Mul(-1))
	d.JointImpulse = d.JointImpulse.Add(impulse)
	applyImpulse(a, b, d.rA, d.rB, impulse)
}

func (s *ImpulseSolver) solveContactPosition(d *ConstraintDesc, a, b *SolverBody) {
	moved := b.Pose.Pos.Sub(d.posB0).Sub(a.Pose.Pos.Sub(d.posA0))
	pen := d.Depth - moved.Dot(d.Normal)
	if pen <= penetrationSlop {
		return
	}
	corr := positionBeta * (pen - penetrationSlop)
	pushApart(a, b, d.Normal, corr)
}

func (s *ImpulseSolver) solveJointPosition(d *ConstraintDesc, a, b *SolverBody) {
	pa := jointWorldAnchor(d.BodyA, a, d.AnchorA)
	pb := jointWorldAnchor(d.BodyB, b, d.AnchorB)
	err := pb.Sub(pa)
	dist := err.Len()
	if dist <= d.LinearLimit {
		return
	}
	n := lmath.SafeNormalize(err)
	corr := positionBeta * (dist - d.LinearLimit)
	// Pull the anchors together: B moves against err, A along it.
	pushApart(a, b, n.Mul(-1), corr)
}

func jointWorldAnchor(idx int32, b *SolverBody, anchor mgl32.Vec3) mgl32.Vec3 {
	if idx == WorldBody {
		return anchor
	}
	return b.Pose.TransformPoint(anchor)
}

func anchorOffset(idx int32, b *SolverBody, anchor mgl32.Vec3) mgl32.Vec3 {
	if idx == WorldBody {
		return mgl32.Vec3{}
	}
	return b.Pose.TransformDir(anchor)
}

func relativeVelocity(a, b *SolverBody, rA, rB mgl32.Vec3) mgl32.Vec3 {
	vb := b.LinVel.Add(b.AngVel.Cross(rB))
	va := a.LinVel.Add(a.AngVel.Cross(rA))
	return vb.Sub(va)
}

func applyImpulse(a, b *SolverBody, rA, rB, impulse mgl32.Vec3) {
	if m := a.effectiveInvMass(); m > 0 {
		a.LinVel = a.LinVel.Sub(impulse.Mul(m))
		a.AngVel = a.AngVel.Sub(a.InvInertiaWorld.Mul3x1(rA.Cross(impulse)))
	}
	if m := b.effectiveInvMass(); m > 0 {
		b.LinVel = b.LinVel.Add(impulse.Mul(m))
		b.AngVel = b.AngVel.Add(b.InvInertiaWorld.Mul3x1(rB.Cross(impulse)))
	}
}

// pushApart translationally separates two bodies along n by corr metres,
// split by inverse mass.
func pushApart(a, b *SolverBody, n mgl32.Vec3, corr float32) {
	ma, mb := a.effectiveInvMass(), b.effectiveInvMass()
	total := ma + mb
	if total <= 0 {
		return
	}
	a.Pose.Pos = a.Pose.Pos.Sub(n.Mul(corr * ma / total))
	b.Pose.Pos = b.Pose.Pos.Add(n.Mul(corr * mb / total))
}

func invEffectiveMass(a, b *SolverBody, rA, rB, n mgl32.Vec3) float32 {
	k := a.effectiveInvMass() + b.effectiveInvMass()
	if !a.Kinematic {
		ra := rA.Cross(n)
		k += a.InvInertiaWorld.Mul3x1(ra).Dot(ra)
	}
	if !b.Kinematic {
		rb := rB.Cross(n)
		k += b.InvInertiaWorld.Mul3x1(rb).Dot(rb)
	}
	if k <= 0 {
		return 0
	}
	return 1 / k
}

// skewInertia returns S(r) * Iinv * S(r)^T for the angular term of a
// point-to-point effective mass matrix.
func skewInertia(b *SolverBody, r mgl32.Vec3) mgl32.Mat3 {
	if b.effectiveInvMass() == 0 {
		return mgl32.Mat3{}
	}
	s := skew(r)
	return s.Mul3(b.InvInertiaWorld).Mul3(s.Transpose())
}

func skew(v mgl32.Vec3) mgl32.Mat3 {
	return mgl32.Mat3FromCols(
		mgl32.Vec3{0, v.Z(), -v.Y()},
		mgl32.Vec3{-v.Z(), 0, v.X()},
		mgl32.Vec3{v.Y(), -v.X(), 0},
	)
}

func tangentBasis(n mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	var t1 mgl32.Vec3
	if math32.Abs(n.X()) >= 0.57735 {
		t1 = mgl32.Vec3{n.Y(), -n.X(), 0}
	} else {
		t1 = mgl32.Vec3{0, n.Z(), -n.Y()}
	}
	t1 = lmath.SafeNormalize(t1)
	return t1, n.Cross(t1)
}
