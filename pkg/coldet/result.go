package coldet

import (
	"github.com/Faultbox/coldet/pkg/math"
)

// Kind identifies which query produced a Result.
type Kind int

// Query kinds.
const (
	KindNone Kind = iota
	KindModels
	KindRay
	KindSphere
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindModels:
		return "models"
	case KindRay:
		return "ray"
	case KindSphere:
		return "sphere"
	default:
		return "none"
	}
}

// Result is the outcome of a single query.
//
// Triangle1/Index1 belong to the queried mesh and Point is in its local
// space. Triangle2/Index2 belong to the other mesh of a KindModels query, in
// that mesh's local space; for ray and sphere queries Index2 is -1.
type Result struct {
	Hit  bool
	Kind Kind

	Index1, Index2       int
	Triangle1, Triangle2 Triangle
	Point                math.Vec3

	// Distance is the ray parameter of the hit, measured from the segment start.
	Distance float32

	// Transform and OtherTransform are the mesh transforms the query ran with.
	Transform      math.Mat4
	OtherTransform math.Mat4
}

func missResult(kind Kind, transform math.Mat4) Result {
	return Result{
		Kind:           kind,
		Index1:         -1,
		Index2:         -1,
		Transform:      transform,
		OtherTransform: math.Identity(),
	}
}

// WorldPoint returns Point in world space.
func (r Result) WorldPoint() math.Vec3 {
	return r.Transform.TransformVec3(r.Point)
}

// WorldTriangles returns both triangles in world space. The second triangle
// is only meaningful for KindModels.
func (r Result) WorldTriangles() (Triangle, Triangle) {
	return r.Triangle1.Transform(r.Transform), r.Triangle2.Transform(r.OtherTransform)
}
