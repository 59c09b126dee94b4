package coldet

import (
	"github.com/Faultbox/coldet/pkg/math"
)

// containEps scales the edge tolerance of Triangle.Contains by the squared
// normal length, so points lying on an edge count as inside.
const containEps = 1e-6

// Triangle is three vertices in a mesh's local space.
type Triangle struct {
	V1, V2, V3 math.Vec3
}

// Normal returns the unnormalized face normal (V2-V1) x (V3-V1).
func (t Triangle) Normal() math.Vec3 {
	return t.V2.Sub(t.V1).Cross(t.V3.Sub(t.V1))
}

// Centroid returns the average of the three vertices.
func (t Triangle) Centroid() math.Vec3 {
	return t.V1.Add(t.V2).Add(t.V3).Scale(1.0 / 3.0)
}

// Vertex returns vertex i (0..2).
func (t Triangle) Vertex(i int) math.Vec3 {
	switch i {
	case 0:
		return t.V1
	case 1:
		return t.V2
	default:
		return t.V3
	}
}

// Transform returns the triangle with every vertex transformed by m.
func (t Triangle) Transform(m math.Mat4) Triangle {
	return Triangle{
		V1: m.TransformVec3(t.V1),
		V2: m.TransformVec3(t.V2),
		V3: m.TransformVec3(t.V3),
	}
}

// Bounds returns the axis-aligned box enclosing the triangle.
func (t Triangle) Bounds() AABB {
	return AABB{
		Min: t.V1.Min(t.V2).Min(t.V3),
		Max: t.V1.Max(t.V2).Max(t.V3),
	}
}

// Contains reports whether p, assumed to lie on the triangle's plane, is
// inside the triangle or on its boundary. Degenerate triangles contain nothing.
func (t Triangle) Contains(p math.Vec3) bool {
	n := t.Normal()
	nn := n.LengthSq()
	if nn == 0 {
		return false
	}
	tol := -containEps * nn

	if t.V2.Sub(t.V1).Cross(p.Sub(t.V1)).Dot(n) < tol {
		return false
	}
	if t.V3.Sub(t.V2).Cross(p.Sub(t.V2)).Dot(n) < tol {
		return false
	}
	if t.V1.Sub(t.V3).Cross(p.Sub(t.V3)).Dot(n) < tol {
		return false
	}
	return true
}

// Plane is the set of points x with Normal.Dot(x) == D. Normal is unit length
// unless the plane came from a degenerate triangle, in which case it is zero.
type Plane struct {
	Normal math.Vec3
	D      float32
}

// NewPlane builds the plane through three points, oriented by their winding.
func NewPlane(a, b, c math.Vec3) Plane {
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	return Plane{Normal: n, D: n.Dot(a)}
}

// Distance returns the signed distance of p from the plane.
func (p Plane) Distance(pt math.Vec3) float32 {
	return p.Normal.Dot(pt) - p.D
}

// BoxedTriangle is a mesh triangle with its precomputed bounding box and its
// index in the owning mesh.
type BoxedTriangle struct {
	Triangle
	Box   AABB
	Index int
}

func newBoxedTriangle(t Triangle, index int) BoxedTriangle {
	return BoxedTriangle{Triangle: t, Box: t.Bounds(), Index: index}
}
