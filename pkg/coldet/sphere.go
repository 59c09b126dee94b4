package coldet

import (
	gomath "math"

	"github.com/Faultbox/coldet/pkg/math"
)

// SphereVsRay returns the first point of the ray origin + t*direction, t >= 0,
// that lies on or inside the sphere. A ray starting inside returns its origin.
func SphereVsRay(center math.Vec3, radius float32, origin, direction math.Vec3) (math.Vec3, bool) {
	m := origin.Sub(center)
	c := m.LengthSq() - radius*radius
	if c <= 0 {
		return origin, true
	}

	a := direction.LengthSq()
	if a == 0 {
		return math.Vec3{}, false
	}
	b := m.Dot(direction)
	if b > 0 {
		// Outside and pointing away
		return math.Vec3{}, false
	}
	disc := b*b - a*c
	if disc < 0 {
		return math.Vec3{}, false
	}
	t := (-b - float32(gomath.Sqrt(float64(disc)))) / a
	if t < 0 {
		t = 0
	}
	return origin.Add(direction.Scale(t)), true
}

// SphereVsSphere reports whether two spheres touch and returns the contact
// point on the segment between the centers, split in proportion to the radii.
func SphereVsSphere(c1 math.Vec3, r1 float32, c2 math.Vec3, r2 float32) (math.Vec3, bool) {
	d := c2.Sub(c1)
	reach := r1 + r2
	if d.LengthSq() > reach*reach {
		return math.Vec3{}, false
	}
	if reach == 0 {
		return c1, true
	}
	return c1.Add(d.Scale(r1 / reach)), true
}
