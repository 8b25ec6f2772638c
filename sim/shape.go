package sim

import (
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/localphysics/localsim/collision"
	"github.com/localphysics/localsim/lmath"
)

// shapeSOA holds every shape in the scene as parallel arrays, grouped so
// that an actor's shapes are adjacent and groups appear in actor-index
// order. Actor swaps re-sort the arrays to restore that ordering.
type shapeSOA struct {
	localTMs      []lmath.Transform
	geometries    []collision.Geometry
	bounds        []float32
	boundsOffsets []mgl32.Vec3
	materials     []collision.Material
	owningActors  []int
}

func (so *shapeSOA) len() int {
	return len(so.geometries)
}

func (so *shapeSOA) appendShapes(owner int, shapes []ShapeDef) {
	for _, def := range shapes {
		so.localTMs = append(so.localTMs, def.LocalTM)
		so.geometries = append(so.geometries, def.Geometry)
		so.bounds = append(so.bounds, def.Geometry.BoundingRadius())
		so.boundsOffsets = append(so.boundsOffsets, def.Geometry.BoundsOffset())
		so.materials = append(so.materials, def.Material)
		so.owningActors = append(so.owningActors, owner)
	}
}

// resort rebuilds group ordering after actor slots moved. Each actorInfo
// still carries the group's pre-move location, so the permutation is read
// straight off the actor array and firstShape is rewritten as it goes.
func (so *shapeSOA) resort(actors []actorInfo) {
	n := so.len()
	tms := make([]lmath.Transform, 0, n)
	geoms := make([]collision.Geometry, 0, n)
	bounds := make([]float32, 0, n)
	offsets := make([]mgl32.Vec3, 0, n)
	mats := make([]collision.Material, 0, n)
	owners := make([]int, 0, n)

	for i := range actors {
		a := &actors[i]
		from, count := a.firstShape, a.numShapes
		a.firstShape = len(geoms)
		for k := from; k < from+count; k++ {
			tms = append(tms, so.localTMs[k])
			geoms = append(geoms, so.geometries[k])
			bounds = append(bounds, so.bounds[k])
			offsets = append(offsets, so.boundsOffsets[k])
			mats = append(mats, so.materials[k])
			owners = append(owners, i)
		}
	}

	so.localTMs = tms
	so.geometries = geoms
	so.bounds = bounds
	so.boundsOffsets = offsets
	so.materials = mats
	so.owningActors = owners
}

// truncate drops the trailing n shapes; used after the owning actor was
// compacted to the end of the actor array.
func (so *shapeSOA) truncate(n int) {
	keep := so.len() - n
	so.localTMs = so.localTMs[:keep]
	so.geometries = so.geometries[:keep]
	so.bounds = so.bounds[:keep]
	so.boundsOffsets = so.boundsOffsets[:keep]
	so.materials = so.materials[:keep]
	so.owningActors = so.owningActors[:keep]
}

// worldBounds returns the world-space box enclosing shape j given its
// owner's pose.
func (so *shapeSOA) worldBounds(j int, actorPose lmath.Transform) cube.BBox {
	pose := actorPose.Mul(so.localTMs[j])
	centre := pose.TransformPoint(so.boundsOffsets[j])
	return lmath.BoundsAround(centre, so.bounds[j])
}
