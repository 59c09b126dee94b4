package coldet

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/coldet/pkg/math"
)

func unitBox() AABB {
	return AABB{Min: math.Vec3{X: -0.5, Y: -0.5, Z: -0.5}, Max: math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}}
}

func TestAABBBasics(t *testing.T) {
	b := EmptyAABB().Extend(math.Vec3{X: 1, Y: 2, Z: 3}).Extend(math.Vec3{X: -1, Y: 0, Z: 1})

	if b.Min != (math.Vec3{X: -1, Y: 0, Z: 1}) || b.Max != (math.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("Extend produced %+v", b)
	}
	if got := b.Volume(); got != 8 {
		t.Errorf("Volume() = %v, want 8", got)
	}
	if got := b.Center(); got != (math.Vec3{X: 0, Y: 1, Z: 2}) {
		t.Errorf("Center() = %v", got)
	}
	if got := b.HalfSize(); got != (math.Vec3{X: 1, Y: 1, Z: 1}) {
		t.Errorf("HalfSize() = %v", got)
	}

	u := b.Union(unitBox())
	if !u.ContainsBox(b) || !u.ContainsBox(unitBox()) {
		t.Errorf("Union %+v does not contain both inputs", u)
	}
}

func TestAABBOverlaps(t *testing.T) {
	tests := []struct {
		name   string
		offset math.Vec3
		want   bool
	}{
		{"same", math.Vec3{}, true},
		{"partial", math.Vec3{X: 0.5, Y: 0.5}, true},
		{"touching faces", math.Vec3{X: 1}, true},
		{"apart", math.Vec3{X: 1.01}, false},
		{"apart diagonally", math.Vec3{X: 2, Y: 2, Z: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := AABB{Min: unitBox().Min.Add(tt.offset), Max: unitBox().Max.Add(tt.offset)}
			if got := unitBox().Overlaps(o); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			rel := math.TranslateVec3(tt.offset)
			if got := unitBox().OverlapsTransformed(unitBox(), rel); got != tt.want {
				t.Errorf("OverlapsTransformed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOverlapsTransformedRotated(t *testing.T) {
	rot := math.RotateZ(float32(gomath.Pi / 4))

	tests := []struct {
		name string
		rel  math.Mat4
		want bool
	}{
		{
			// The rotated box's axis-aligned bounds reach the first box but
			// the diagonal face axis separates them.
			name: "bounds overlap but boxes are separated",
			rel:  math.Translate(1.2, 1.2, 0).Mul(rot),
			want: false,
		},
		{
			name: "corner pokes into face",
			rel:  math.Translate(1.1, 0, 0).Mul(rot),
			want: true,
		},
		{
			name: "tilted box far above",
			rel:  math.Translate(0, 0, 3).Mul(math.RotateX(0.3)).Mul(rot),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unitBox().OverlapsTransformed(unitBox(), tt.rel); got != tt.want {
				t.Errorf("OverlapsTransformed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOverlapsTransformedUsesOtherCenter(t *testing.T) {
	// A box far from its local origin, moved back onto the first box.
	far := AABB{Min: math.Vec3{X: 9.5, Y: -0.5, Z: -0.5}, Max: math.Vec3{X: 10.5, Y: 0.5, Z: 0.5}}
	if !unitBox().OverlapsTransformed(far, math.Translate(-10, 0, 0)) {
		t.Error("expected overlap after translation")
	}
	if unitBox().OverlapsTransformed(far, math.Identity()) {
		t.Error("expected no overlap without translation")
	}
}

func TestAABBIntersectRay(t *testing.T) {
	inf := float32(gomath.Inf(1))
	tests := []struct {
		name      string
		origin    math.Vec3
		dir       math.Vec3
		segMax    float32
		wantHit   bool
		wantEntry float32
	}{
		{"head on", math.Vec3{X: -2}, math.Vec3{X: 1}, inf, true, 1.5},
		{"segment too short", math.Vec3{X: -2}, math.Vec3{X: 1}, 1, false, 0},
		{"pointing away", math.Vec3{X: -2}, math.Vec3{X: -1}, inf, false, 0},
		{"starts inside", math.Vec3{}, math.Vec3{Y: 1}, inf, true, 0},
		{"parallel outside slab", math.Vec3{X: -2, Y: 1}, math.Vec3{X: 1}, inf, false, 0},
		{"grazing a face", math.Vec3{X: -2, Y: 0.5}, math.Vec3{X: 1}, inf, true, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, hit := unitBox().IntersectRay(tt.origin, tt.dir, tt.segMax)
			if hit != tt.wantHit {
				t.Fatalf("IntersectRay() hit = %v, want %v", hit, tt.wantHit)
			}
			if hit && entry != tt.wantEntry {
				t.Errorf("IntersectRay() entry = %v, want %v", entry, tt.wantEntry)
			}
		})
	}
}

func TestAABBIntersectSphere(t *testing.T) {
	tests := []struct {
		name   string
		center math.Vec3
		radius float32
		want   bool
	}{
		{"inside", math.Vec3{}, 0.1, true},
		{"touching face", math.Vec3{X: 1.5}, 1, true},
		{"short of face", math.Vec3{X: 1.5}, 0.99, false},
		{"near corner", math.Vec3{X: 1, Y: 1, Z: 1}, 0.8, false},
		{"reaching corner", math.Vec3{X: 1, Y: 1, Z: 1}, 0.9, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unitBox().IntersectSphere(tt.center, tt.radius); got != tt.want {
				t.Errorf("IntersectSphere() = %v, want %v", got, tt.want)
			}
		})
	}
}
