package sim

import (
	"io"
	"log/slog"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/localphysics/localsim/alloc"
	"github.com/localphysics/localsim/assert"
	"github.com/localphysics/localsim/collision"
)

// Options configure a scene at construction. Zero values select the built-in
// collaborators and the default solver iteration counts.
type Options struct {
	// Generator produces contact points between shape pairs. Defaults to
	// collision.BasicGenerator.
	Generator collision.ContactGenerator
	// Solver prepares and solves batched constraints. Defaults to
	// collision.ImpulseSolver.
	Solver collision.ConstraintSolver

	VelocityIterations int
	PositionIterations int

	// WorkspaceBlocks caps the per-step scratch workspace; exceeding it is
	// fatal. Defaults to 16 blocks.
	WorkspaceBlocks int

	// Log receives debug traces. Nil discards them.
	Log *slog.Logger
}

const (
	defaultVelocityIterations = 8
	defaultPositionIterations = 4
	defaultWorkspaceBlocks    = 16
)

// Scene owns all data associated with one simulation: a single world of
// actors and joints advanced synchronously by Simulate. A scene is not safe
// for concurrent use; callers must serialize Simulate against every mutation
// and against other Simulate calls.
type Scene struct {
	log    *slog.Logger
	gen    collision.ContactGenerator
	solver collision.ConstraintSolver

	// Entity store. Actors, bodies, pendingAccel and actorHandles are
	// parallel arrays partitioned [dynamic | kinematic | static].
	actors       []actorInfo
	bodies       []rigidBody
	pendingAccel []mgl32.Vec3
	actorHandles []*ActorHandle

	joints         []jointInfo
	jointHandles   []*JointHandle
	dirtyJointData bool

	shapes shapeSOA

	numSimulated       int
	numActiveSimulated int
	numKinematic       int

	numVelocityIters int
	numPositionIters int

	// simCount ticks once per Simulate; cross-frame caches key on it.
	simCount uint32

	// Per-step scratch. Everything below is reset at the top of Simulate
	// and must never be read across steps.
	workspace       *alloc.LinearBlockAllocator
	cacheAlloc      alloc.CacheAllocator
	constraintAlloc alloc.ConstraintAllocator
	solverBodies    []collision.SolverBody
	contactPairs    []contactPair
	scratchPoints   []collision.ContactPoint

	// Collision filtering. Mutated only by the setters, consulted only
	// during pair enumeration.
	ignorePairs  *orderedmap.OrderedMap[*ActorHandle, map[*ActorHandle]struct{}]
	ignoreActors map[*ActorHandle]struct{}

	// Iteration cache, valid only while topology is unchanged.
	recreateIterationCache bool
	skipCollisionCache     []uint32
	pairData               []persistentPair
	topologyHash           uint64

	handleID   uint64
	terminated bool
}

// NewScene returns an empty scene.
func NewScene(opts Options) *Scene {
	if opts.Generator == nil {
		opts.Generator = collision.BasicGenerator{}
	}
	if opts.Solver == nil {
		opts.Solver = collision.NewImpulseSolver()
	}
	if opts.VelocityIterations <= 0 {
		opts.VelocityIterations = defaultVelocityIterations
	}
	if opts.PositionIterations <= 0 {
		opts.PositionIterations = defaultPositionIterations
	}
	if opts.WorkspaceBlocks <= 0 {
		opts.WorkspaceBlocks = defaultWorkspaceBlocks
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Scene{
		log:                    opts.Log,
		gen:                    opts.Generator,
		solver:                 opts.Solver,
		numVelocityIters:       opts.VelocityIterations,
		numPositionIters:       opts.PositionIterations,
		workspace:              alloc.NewLinearBlockAllocator(opts.WorkspaceBlocks),
		ignorePairs:            orderedmap.NewOrderedMap[*ActorHandle, map[*ActorHandle]struct{}](),
		ignoreActors:           map[*ActorHandle]struct{}{},
		recreateIterationCache: true,
	}
}

// Terminate invalidates every live handle and releases the scratch
// workspace. The scene must not be used afterwards. There is no implicit
// cleanup; discarding a scene without Terminate leaks its workspace blocks
// from the shared pool.
func (s *Scene) Terminate() {
	if s.terminated {
		return
	}
	for _, h := range s.actorHandles {
		h.index = -1
	}
	for _, h := range s.jointHandles {
		h.index = -1
	}
	s.actors, s.bodies, s.pendingAccel, s.actorHandles = nil, nil, nil, nil
	s.joints, s.jointHandles = nil, nil
	s.shapes = shapeSOA{}
	s.workspace.Release()
	s.terminated = true
}

// NumActors returns the total actor count across all partitions.
func (s *Scene) NumActors() int { return len(s.actors) }

// NumSimulatedBodies returns the size of the dynamic partition.
func (s *Scene) NumSimulatedBodies() int { return s.numSimulated }

// NumActiveSimulatedBodies returns how many dynamic bodies receive forces
// and integration this step.
func (s *Scene) NumActiveSimulatedBodies() int { return s.numActiveSimulated }

// NumKinematicBodies returns the size of the kinematic partition.
func (s *Scene) NumKinematicBodies() int { return s.numKinematic }

// NumJoints returns the joint count.
func (s *Scene) NumJoints() int { return len(s.joints) }

// IsSimulated reports whether the actor at the given slot is in the dynamic
// partition.
func (s *Scene) IsSimulated(actorIndex int) bool {
	return actorIndex >= 0 && actorIndex < s.numSimulated
}

// SetNumActiveBodies limits force application and integration to the first n
// dynamic bodies; the rest stay simulated but dormant. The count is clamped
// to the dynamic partition and reset whenever a dynamic body is created.
// Changing activity invalidates the iteration cache.
func (s *Scene) SetNumActiveBodies(n int) {
	if n < 0 {
		n = 0
	}
	if n > s.numSimulated {
		n = s.numSimulated
	}
	if n != s.numActiveSimulated {
		s.numActiveSimulated = n
		s.recreateIterationCache = true
	}
}

// SetIterationCounts sets the solver's velocity and position pass counts for
// subsequent steps. Zero counts are accepted and simply degrade solving.
func (s *Scene) SetIterationCounts(velocity, position int) {
	assert.IsTrue(velocity >= 0 && position >= 0, "negative iteration counts")
	s.numVelocityIters = velocity
	s.numPositionIters = position
}
