package coldet

import (
	"github.com/Faultbox/coldet/pkg/math"
)

// planeEps is the distance below which a vertex is considered to lie on a plane.
const planeEps = 1e-5

// parallelEps bounds the denominator of coplanar edge-edge crossings.
const parallelEps = 1e-12

// IntersectTriangles reports whether t1 and t2 intersect and returns a point
// lying in both. Both triangles must be in the same coordinate space.
//
// The crossing points of t2's edges with t1's plane are tested for
// containment in t1, then the crossing points of t1's edges with t2's plane
// are tested against t2. For non-coplanar triangles one of these endpoints
// always lies in the overlap of the two intersection segments, so a miss on
// both sides means the triangles are disjoint.
//
// A zero-area triangle is tested as its edge segments against the other
// triangle. Two zero-area triangles never intersect.
func IntersectTriangles(t1, t2 Triangle) (math.Vec3, bool) {
	flat1 := t1.Normal().LengthSq() == 0
	flat2 := t2.Normal().LengthSq() == 0
	switch {
	case flat1 && flat2:
		return math.Vec3{}, false
	case flat1:
		return intersectDegenerate(t1, t2)
	case flat2:
		return intersectDegenerate(t2, t1)
	}

	p1 := NewPlane(t1.V1, t1.V2, t1.V3)
	d2 := classify(p1, t2)
	if sameSide(d2) {
		return math.Vec3{}, false
	}

	p2 := NewPlane(t2.V1, t2.V2, t2.V3)
	d1 := classify(p2, t1)
	if sameSide(d1) {
		return math.Vec3{}, false
	}

	if onPlane(d2) || onPlane(d1) {
		return intersectCoplanar(t1, t2)
	}

	var pts [3]math.Vec3
	n := planeCrossings(t2, d2, &pts)
	for i := 0; i < n; i++ {
		if t1.Contains(pts[i]) {
			return pts[i], true
		}
	}

	n = planeCrossings(t1, d1, &pts)
	for i := 0; i < n; i++ {
		if t2.Contains(pts[i]) {
			return pts[i], true
		}
	}

	return math.Vec3{}, false
}

// classify returns the signed distances of t's vertices from p, snapping
// values within planeEps to zero.
func classify(p Plane, t Triangle) [3]float32 {
	d := [3]float32{p.Distance(t.V1), p.Distance(t.V2), p.Distance(t.V3)}
	for i := range d {
		if d[i] > -planeEps && d[i] < planeEps {
			d[i] = 0
		}
	}
	return d
}

func sameSide(d [3]float32) bool {
	return (d[0] > 0 && d[1] > 0 && d[2] > 0) || (d[0] < 0 && d[1] < 0 && d[2] < 0)
}

func onPlane(d [3]float32) bool {
	return d[0] == 0 && d[1] == 0 && d[2] == 0
}

// planeCrossings writes the points where t meets the plane its distances d
// were measured against: vertices lying on it and strict edge crossings.
func planeCrossings(t Triangle, d [3]float32, out *[3]math.Vec3) int {
	n := 0
	for i := 0; i < 3; i++ {
		j := (i + 1) % 3
		vi := t.Vertex(i)
		if d[i] == 0 {
			out[n] = vi
			n++
			continue
		}
		if (d[i] > 0 && d[j] < 0) || (d[i] < 0 && d[j] > 0) {
			vj := t.Vertex(j)
			out[n] = vi.Add(vj.Sub(vi).Scale(d[i] / (d[i] - d[j])))
			n++
		}
	}
	return n
}

// intersectDegenerate tests the edges of the zero-area triangle flat against
// tri, which must have a non-zero normal.
func intersectDegenerate(flat, tri Triangle) (math.Vec3, bool) {
	for i := 0; i < 3; i++ {
		if p, ok := intersectSegmentTriangle(flat.Vertex(i), flat.Vertex((i+1)%3), tri); ok {
			return p, true
		}
	}
	return math.Vec3{}, false
}

// intersectSegmentTriangle returns a point of segment a-b lying in tri.
func intersectSegmentTriangle(a, b math.Vec3, tri Triangle) (math.Vec3, bool) {
	pl := NewPlane(tri.V1, tri.V2, tri.V3)
	da, db := pl.Distance(a), pl.Distance(b)
	if da > -planeEps && da < planeEps {
		da = 0
	}
	if db > -planeEps && db < planeEps {
		db = 0
	}

	switch {
	case da == 0 && db == 0:
		if tri.Contains(a) {
			return a, true
		}
		if tri.Contains(b) {
			return b, true
		}
		n := tri.Normal()
		for i := 0; i < 3; i++ {
			if p, ok := segmentCrossing(a, b, tri.Vertex(i), tri.Vertex((i+1)%3), n); ok {
				return p, true
			}
		}
		return math.Vec3{}, false
	case (da > 0 && db > 0) || (da < 0 && db < 0):
		return math.Vec3{}, false
	}

	p := a
	switch {
	case db == 0:
		p = b
	case da != 0:
		p = a.Add(b.Sub(a).Scale(da / (da - db)))
	}
	if !tri.Contains(p) {
		return math.Vec3{}, false
	}
	return p, true
}

// intersectCoplanar handles triangles lying in the same plane: a vertex of
// one inside the other, or a pair of crossing edges.
func intersectCoplanar(t1, t2 Triangle) (math.Vec3, bool) {
	for i := 0; i < 3; i++ {
		if v := t2.Vertex(i); t1.Contains(v) {
			return v, true
		}
	}
	for i := 0; i < 3; i++ {
		if v := t1.Vertex(i); t2.Contains(v) {
			return v, true
		}
	}

	n := t1.Normal()
	for i := 0; i < 3; i++ {
		a0, a1 := t1.Vertex(i), t1.Vertex((i+1)%3)
		for j := 0; j < 3; j++ {
			b0, b1 := t2.Vertex(j), t2.Vertex((j+1)%3)
			if p, ok := segmentCrossing(a0, a1, b0, b1, n); ok {
				return p, true
			}
		}
	}
	return math.Vec3{}, false
}

// segmentCrossing intersects segments a0-a1 and b0-b1 lying in a plane with
// normal n. Parallel segments never cross here; collinear overlaps are found
// by the vertex containment tests instead.
func segmentCrossing(a0, a1, b0, b1, n math.Vec3) (math.Vec3, bool) {
	r := a1.Sub(a0)
	q := b1.Sub(b0)
	denom := r.Cross(q).Dot(n)
	if denom > -parallelEps && denom < parallelEps {
		return math.Vec3{}, false
	}
	w := b0.Sub(a0)
	s := w.Cross(q).Dot(n) / denom
	u := w.Cross(r).Dot(n) / denom
	if s < 0 || s > 1 || u < 0 || u > 1 {
		return math.Vec3{}, false
	}
	return a0.Add(r.Scale(s)), true
}
