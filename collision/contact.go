package collision

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/localphysics/localsim/lmath"
)

// Material carries the surface response parameters of one shape.
type Material struct {
	Friction    float32
	Restitution float32
}

// Combine mixes two materials the way contact generation expects: geometric
// mean for friction, maximum for restitution.
func (m Material) Combine(o Material) Material {
	return Material{
		Friction:    math32.Sqrt(m.Friction * o.Friction),
		Restitution: math32.Max(m.Restitution, o.Restitution),
	}
}

// ContactPoint is one point of contact between two shapes. The normal points
// from the first shape towards the second and Depth is positive when the
// shapes overlap.
type ContactPoint struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Depth    float32
	Material Material
}

// ContactGenerator is the narrow-phase collaborator. Given two shapes and
// their world poses it appends the contact points between them to out and
// returns the extended slice. Implementations must not retain out across
// calls; its backing memory is per-step scratch.
type ContactGenerator interface {
	Generate(a Geometry, poseA lmath.Transform, b Geometry, poseB lmath.Transform, matA, matB Material, out []ContactPoint) []ContactPoint
}
