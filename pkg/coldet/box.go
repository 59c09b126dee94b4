package coldet

import (
	gomath "math"

	"github.com/Faultbox/coldet/pkg/math"
)

// satEps pads the rotation terms of the separating-axis test so that nearly
// parallel edges never produce a spurious separation.
const satEps = 1e-6

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// EmptyAABB returns an inverted box that any Extend or Union replaces.
func EmptyAABB() AABB {
	return AABB{
		Min: math.Vec3{X: gomath.MaxFloat32, Y: gomath.MaxFloat32, Z: gomath.MaxFloat32},
		Max: math.Vec3{X: -gomath.MaxFloat32, Y: -gomath.MaxFloat32, Z: -gomath.MaxFloat32},
	}
}

// Extend returns the box grown to contain p.
func (b AABB) Extend(p math.Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(o AABB) AABB {
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Center returns the box midpoint.
func (b AABB) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// HalfSize returns half the box extents.
func (b AABB) HalfSize() math.Vec3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// Volume returns the product of the box extents.
func (b AABB) Volume() float32 {
	s := b.Max.Sub(b.Min)
	return s.X * s.Y * s.Z
}

// ContainsBox reports whether o lies entirely inside b.
func (b AABB) ContainsBox(o AABB) bool {
	return o.Min.X >= b.Min.X && o.Max.X <= b.Max.X &&
		o.Min.Y >= b.Min.Y && o.Max.Y <= b.Max.Y &&
		o.Min.Z >= b.Min.Z && o.Max.Z <= b.Max.Z
}

// Overlaps reports whether two boxes in the same space intersect.
// Touching boxes overlap.
func (b AABB) Overlaps(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// OverlapsTransformed reports whether b intersects o after o is moved by the
// rigid transform rel into b's space. It runs the full separating-axis test
// for two oriented boxes (3 face axes each plus 9 edge cross products), so a
// false result is always a real separation.
func (b AABB) OverlapsTransformed(o AABB, rel math.Mat4) bool {
	a := b.HalfSize()
	ha := [3]float32{a.X, a.Y, a.Z}
	hbv := o.HalfSize()
	hb := [3]float32{hbv.X, hbv.Y, hbv.Z}

	tv := rel.TransformVec3(o.Center()).Sub(b.Center())
	t := [3]float32{tv.X, tv.Y, tv.Z}

	// r[i][j] is the i component of o's j-th axis in b's space.
	var r, absR [3][3]float32
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = rel[j*4+i]
			absR[i][j] = abs32(r[i][j]) + satEps
		}
	}

	for i := 0; i < 3; i++ {
		rb := hb[0]*absR[i][0] + hb[1]*absR[i][1] + hb[2]*absR[i][2]
		if abs32(t[i]) > ha[i]+rb {
			return false
		}
	}

	for j := 0; j < 3; j++ {
		ra := ha[0]*absR[0][j] + ha[1]*absR[1][j] + ha[2]*absR[2][j]
		d := t[0]*r[0][j] + t[1]*r[1][j] + t[2]*r[2][j]
		if abs32(d) > ra+hb[j] {
			return false
		}
	}

	for i := 0; i < 3; i++ {
		i1, i2 := (i+1)%3, (i+2)%3
		for j := 0; j < 3; j++ {
			j1, j2 := (j+1)%3, (j+2)%3
			ra := ha[i1]*absR[i2][j] + ha[i2]*absR[i1][j]
			rb := hb[j1]*absR[i][j2] + hb[j2]*absR[i][j1]
			d := t[i2]*r[i1][j] - t[i1]*r[i2][j]
			if abs32(d) > ra+rb {
				return false
			}
		}
	}

	return true
}

// IntersectRay clips the segment origin + t*dir, t in [0, segMax], against the
// box. It returns the entry parameter and whether the segment touches the box.
func (b AABB) IntersectRay(origin, dir math.Vec3, segMax float32) (float32, bool) {
	tmin := float32(0)
	tmax := segMax

	for axis := 0; axis < 3; axis++ {
		o := origin.Axis(axis)
		d := dir.Axis(axis)
		lo := b.Min.Axis(axis)
		hi := b.Max.Axis(axis)

		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}

		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, false
		}
	}

	return tmin, true
}

// IntersectSphere reports whether the sphere touches the box (closed test).
func (b AABB) IntersectSphere(center math.Vec3, radius float32) bool {
	closest := center.Max(b.Min).Min(b.Max)
	return closest.Sub(center).LengthSq() <= radius*radius
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
