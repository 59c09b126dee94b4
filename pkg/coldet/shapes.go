package coldet

import (
	gomath "math"

	"github.com/Faultbox/coldet/pkg/math"
)

// BoxTriangles returns the 12 outward-wound triangles of a box with the given
// extents, centered on the origin.
func BoxTriangles(size math.Vec3) []Triangle {
	h := size.Scale(0.5)
	v := [8]math.Vec3{
		{X: -h.X, Y: -h.Y, Z: -h.Z},
		{X: h.X, Y: -h.Y, Z: -h.Z},
		{X: h.X, Y: h.Y, Z: -h.Z},
		{X: -h.X, Y: h.Y, Z: -h.Z},
		{X: -h.X, Y: -h.Y, Z: h.Z},
		{X: h.X, Y: -h.Y, Z: h.Z},
		{X: h.X, Y: h.Y, Z: h.Z},
		{X: -h.X, Y: h.Y, Z: h.Z},
	}
	quads := [6][4]int{
		{0, 3, 2, 1}, // -Z
		{4, 5, 6, 7}, // +Z
		{0, 1, 5, 4}, // -Y
		{3, 7, 6, 2}, // +Y
		{0, 4, 7, 3}, // -X
		{1, 2, 6, 5}, // +X
	}
	tris := make([]Triangle, 0, 12)
	for _, q := range quads {
		tris = append(tris,
			Triangle{V1: v[q[0]], V2: v[q[1]], V3: v[q[2]]},
			Triangle{V1: v[q[0]], V2: v[q[2]], V3: v[q[3]]},
		)
	}
	return tris
}

// GridTriangles returns a flat square grid in the XY plane, centered on the
// origin, with cells x cells quads over a side of length extent.
func GridTriangles(cells int, extent float32) []Triangle {
	if cells < 1 {
		cells = 1
	}
	step := extent / float32(cells)
	half := extent / 2
	at := func(i, j int) math.Vec3 {
		return math.Vec3{X: float32(i)*step - half, Y: float32(j)*step - half}
	}
	tris := make([]Triangle, 0, 2*cells*cells)
	for j := 0; j < cells; j++ {
		for i := 0; i < cells; i++ {
			a, b, c, d := at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)
			tris = append(tris, Triangle{V1: a, V2: b, V3: c}, Triangle{V1: a, V2: c, V3: d})
		}
	}
	return tris
}

// SphereTriangles returns a latitude/longitude tessellated sphere centered on
// the origin. rings and segments are clamped to at least 2 and 3.
func SphereTriangles(radius float32, rings, segments int) []Triangle {
	rings = max(rings, 2)
	segments = max(segments, 3)
	at := func(ring, seg int) math.Vec3 {
		theta := gomath.Pi * float64(ring) / float64(rings)
		phi := 2 * gomath.Pi * float64(seg) / float64(segments)
		return math.Vec3{
			X: radius * float32(gomath.Sin(theta)*gomath.Cos(phi)),
			Y: radius * float32(gomath.Cos(theta)),
			Z: radius * float32(gomath.Sin(theta)*gomath.Sin(phi)),
		}
	}
	var tris []Triangle
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			a, b := at(r, s), at(r, s+1)
			c, d := at(r+1, s+1), at(r+1, s)
			if r != 0 {
				tris = append(tris, Triangle{V1: a, V2: b, V3: c})
			}
			if r != rings-1 {
				tris = append(tris, Triangle{V1: a, V2: c, V3: d})
			}
		}
	}
	return tris
}

// AddTriangles appends every triangle of tris.
func (m *Mesh) AddTriangles(tris []Triangle) error {
	for _, t := range tris {
		if err := m.AddTriangle(t.V1, t.V2, t.V3); err != nil {
			return err
		}
	}
	return nil
}
