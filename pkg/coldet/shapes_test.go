package coldet

import (
	"testing"

	"github.com/Faultbox/coldet/pkg/math"
)

func TestBoxTrianglesFaceOutward(t *testing.T) {
	tris := BoxTriangles(math.Vec3{X: 2, Y: 4, Z: 6})
	if len(tris) != 12 {
		t.Fatalf("got %d triangles, want 12", len(tris))
	}
	for i, tri := range tris {
		if tri.Normal().Dot(tri.Centroid()) <= 0 {
			t.Errorf("triangle %d faces inward", i)
		}
		b := tri.Bounds()
		if b.Min.X < -1 || b.Max.X > 1 || b.Min.Y < -2 || b.Max.Y > 2 || b.Min.Z < -3 || b.Max.Z > 3 {
			t.Errorf("triangle %d outside the box: %+v", i, b)
		}
	}
}

func TestGridTriangles(t *testing.T) {
	tests := []struct {
		cells int
		want  int
	}{
		{0, 2},
		{1, 2},
		{3, 18},
	}
	for _, tt := range tests {
		tris := GridTriangles(tt.cells, 3)
		if len(tris) != tt.want {
			t.Errorf("GridTriangles(%d) made %d triangles, want %d", tt.cells, len(tris), tt.want)
		}
		var area float32
		for _, tri := range tris {
			if tri.Normal().Z <= 0 {
				t.Errorf("GridTriangles(%d): triangle faces -Z", tt.cells)
			}
			area += tri.Normal().Length() / 2
		}
		if area < 9-1e-4 || area > 9+1e-4 {
			t.Errorf("GridTriangles(%d) area = %v, want 9", tt.cells, area)
		}
	}
}

func TestSphereTriangles(t *testing.T) {
	tris := SphereTriangles(2, 6, 8)
	// Poles contribute one triangle per segment, inner bands two.
	if want := 2*8 + 2*(6-2)*8; len(tris) != want {
		t.Fatalf("got %d triangles, want %d", len(tris), want)
	}
	for i, tri := range tris {
		if tri.Normal().LengthSq() == 0 {
			t.Errorf("triangle %d is degenerate", i)
		}
		for j := 0; j < 3; j++ {
			if d := tri.Vertex(j).Length() - 2; d > 1e-5 || d < -1e-5 {
				t.Errorf("triangle %d vertex %d off the sphere by %v", i, j, d)
			}
		}
	}

	clamped := SphereTriangles(1, 0, 0)
	if want := 2 * 3; len(clamped) != want {
		t.Errorf("clamped sphere has %d triangles, want %d", len(clamped), want)
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindNone:   "none",
		KindModels: "models",
		KindRay:    "ray",
		KindSphere: "sphere",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
