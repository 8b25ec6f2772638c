package collision

import "github.com/go-gl/mathgl/mgl32"

// UnboundedRadius is the bounding radius reported by shapes with no finite
// extent. It is large enough to overlap any realistic scene while staying far
// from float32 overflow in bounds arithmetic.
const UnboundedRadius float32 = 1e18

// Geometry describes one collision shape. The scene only consumes its
// conservative bounds; contact generators downcast to the concrete types
// they understand.
type Geometry interface {
	// BoundingRadius is the radius of a sphere, centred at the shape's local
	// origin plus BoundsOffset, that fully encloses the shape.
	BoundingRadius() float32
	// BoundsOffset is the local-space centre of the bounding sphere.
	BoundsOffset() mgl32.Vec3
}

// Sphere is a solid sphere centred on its local origin.
type Sphere struct {
	Radius float32
}

func (s Sphere) BoundingRadius() float32 { return s.Radius }
func (s Sphere) BoundsOffset() mgl32.Vec3 { return mgl32.Vec3{} }

// Box is a solid box centred on its local origin.
type Box struct {
	HalfExtents mgl32.Vec3
}

func (b Box) BoundingRadius() float32 { return b.HalfExtents.Len() }
func (b Box) BoundsOffset() mgl32.Vec3 { return mgl32.Vec3{} }

// Plane is an infinite half-space. Points p with Normal·p <= D (in the
// shape's local frame) are inside the solid region. It is only meaningful on
// static actors.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

func (p Plane) BoundingRadius() float32 { return UnboundedRadius }
func (p Plane) BoundsOffset() mgl32.Vec3 { return mgl32.Vec3{} }
