package coldet

import (
	"github.com/Faultbox/coldet/pkg/math"
)

// mollerTrumboreEpsilon rejects rays parallel to the triangle plane.
const mollerTrumboreEpsilon = float32(1e-9)

// intersectRayTriangle returns the parameter t at which origin + t*dir hits
// tri, restricted to [0, segMax]. Edges and vertices count as hits.
func intersectRayTriangle(origin, dir math.Vec3, tri Triangle, segMax float32) (float32, bool) {
	edge1 := tri.V2.Sub(tri.V1)
	edge2 := tri.V3.Sub(tri.V1)
	h := dir.Cross(edge2)
	a := edge1.Dot(h)

	if a > -mollerTrumboreEpsilon && a < mollerTrumboreEpsilon {
		return 0, false
	}

	f := 1.0 / a
	s := origin.Sub(tri.V1)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(edge1)
	v := f * dir.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := f * edge2.Dot(q)
	if t < 0 || t > segMax {
		return 0, false
	}
	return t, true
}

// intersectSphereTriangle returns the point of tri closest to center when it
// lies within radius (closed test).
func intersectSphereTriangle(center math.Vec3, radius float32, tri Triangle) (math.Vec3, bool) {
	closest := closestPointOnTriangle(center, tri)
	if closest.Sub(center).LengthSq() > radius*radius {
		return math.Vec3{}, false
	}
	return closest, true
}

// closestPointOnTriangle finds the point of tri nearest to p by Voronoi
// region classification.
func closestPointOnTriangle(p math.Vec3, tri Triangle) math.Vec3 {
	a, b, c := tri.V1, tri.V2, tri.V3
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Scale(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Scale(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Scale(w))
	}

	// Face region
	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Scale(v)).Add(ac.Scale(w))
}
