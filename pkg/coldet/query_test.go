package coldet

import (
	"errors"
	gomath "math"
	"math/rand"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/coldet/pkg/math"
)

// tickingClock advances by step every time it is read.
type tickingClock struct {
	*clock.Mock
	step time.Duration
}

func (c tickingClock) Now() time.Time {
	c.Mock.Add(c.step)
	return c.Mock.Now()
}

func TestPairQueueGrowsAndKeepsOrder(t *testing.T) {
	q := newPairQueue()
	const n = 500
	for i := 0; i < n; i++ {
		q.push(nodePair{int32(i), int32(-i)})
		if i%3 == 0 {
			// interleave pops so the ring wraps before growing
			if _, ok := q.pop(); !ok {
				t.Fatal("pop on non-empty queue failed")
			}
		}
	}
	if q.count > len(q.buf)/2 {
		t.Errorf("queue more than half full: %d of %d", q.count, len(q.buf))
	}

	prev := int32(-1)
	for {
		p, ok := q.pop()
		if !ok {
			break
		}
		if p.a <= prev || p.b != -p.a {
			t.Fatalf("pair %+v out of order after %d", p, prev)
		}
		prev = p.a
	}
	if prev != n-1 {
		t.Errorf("last pair = %d, want %d", prev, n-1)
	}
}

func TestCollidesWithCubes(t *testing.T) {
	cube := BoxTriangles(math.Vec3{X: 1, Y: 1, Z: 1})

	tests := []struct {
		name string
		pose math.Mat4
		want bool
	}{
		{"same place", math.Identity(), true},
		{"partially overlapping", math.Translate(0.5, 0.3, 0.2), true},
		{"rotated overlapping", math.Translate(0.7, 0, 0).Mul(math.RotateY(0.4)), true},
		{"far apart", math.Translate(3, 0, 0), false},
		{"bounds overlap but separated", math.Translate(1.2, 1.2, 0).Mul(math.RotateZ(float32(gomath.Pi / 4))), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newFinalizedMesh(t, true, cube)
			b := newFinalizedMesh(t, false, cube)
			b.SetTransform(tt.pose)

			res, err := a.CollidesWith(b)
			if err != nil {
				t.Fatalf("CollidesWith() error = %v", err)
			}
			if res.Hit != tt.want {
				t.Fatalf("CollidesWith() = %v, want %v", res.Hit, tt.want)
			}
			if res.Kind != KindModels {
				t.Errorf("Kind = %v, want models", res.Kind)
			}

			back, err := b.CollidesWith(a)
			if err != nil {
				t.Fatal(err)
			}
			if back.Hit != tt.want {
				t.Errorf("reverse CollidesWith() = %v, want %v", back.Hit, tt.want)
			}

			if !tt.want {
				if res.Index1 != -1 || res.Index2 != -1 {
					t.Errorf("miss reported indices %d, %d", res.Index1, res.Index2)
				}
				return
			}
			if res.Triangle1 != a.Triangle(res.Index1) || res.Triangle2 != b.Triangle(res.Index2) {
				t.Error("result triangles do not match the reported indices")
			}
			pad := math.Vec3{X: 1e-4, Y: 1e-4, Z: 1e-4}
			b1 := res.Triangle1.Bounds()
			if !(AABB{Min: b1.Min.Sub(pad), Max: b1.Max.Add(pad)}).ContainsBox(AABB{Min: res.Point, Max: res.Point}) {
				t.Errorf("contact point %v lies outside its triangle bounds", res.Point)
			}
		})
	}
}

func TestCollidesWithSurfacesOnly(t *testing.T) {
	outer := newFinalizedMesh(t, false, BoxTriangles(math.Vec3{X: 2, Y: 2, Z: 2}))
	inner := newFinalizedMesh(t, false, BoxTriangles(math.Vec3{X: 0.2, Y: 0.2, Z: 0.2}))

	res, err := outer.CollidesWith(inner)
	if err != nil {
		t.Fatal(err)
	}
	if res.Hit {
		t.Error("a mesh fully inside another has no touching triangles")
	}
}

func TestCollidesWithZeroAreaTriangle(t *testing.T) {
	floor := newFinalizedMesh(t, false, []Triangle{{
		V1: math.Vec3{X: -1, Y: -1},
		V2: math.Vec3{X: 1, Y: -1},
		V3: math.Vec3{X: 0, Y: 1},
	}})
	sliver := newFinalizedMesh(t, false, []Triangle{{
		V1: math.Vec3{X: 0.2, Y: 0.2, Z: -1},
		V2: math.Vec3{X: 5, Y: 5, Z: 1},
		V3: math.Vec3{X: 5, Y: 5, Z: 1},
	}})

	res, err := floor.CollidesWith(sliver)
	if err != nil {
		t.Fatal(err)
	}
	if res.Hit {
		t.Errorf("sliver crossing the plane at (2.6, 2.6, 0) hit at %v", res.Point)
	}
}

func TestCollidesWithContactPoint(t *testing.T) {
	t1 := unitTriangle
	t2 := Triangle{V1: math.Vec3{X: 0.2, Y: 0.1, Z: -1}, V2: math.Vec3{X: 0.2, Y: 0.1, Z: 1}, V3: math.Vec3{X: 0.2, Y: 0.5}}
	contact := math.Vec3{X: 0.2, Y: 0.1}

	pose := math.Translate(4, -2, 7).Mul(math.RotateAxis(math.Vec3{X: 1, Y: 2, Z: 2}.Normalize(), 1.1))
	poses := []struct {
		name string
		m    math.Mat4
	}{
		{"identity", math.Identity()},
		{"shared rigid pose", pose},
	}

	for _, p := range poses {
		t.Run(p.name, func(t *testing.T) {
			a := newFinalizedMesh(t, false, []Triangle{t1})
			b := newFinalizedMesh(t, true, []Triangle{t2})
			a.SetTransform(p.m)
			b.SetTransform(p.m)

			res, err := a.CollidesWith(b)
			if err != nil {
				t.Fatal(err)
			}
			if !res.Hit {
				t.Fatal("touching triangles should collide")
			}
			if !res.Point.ApproxEqual(contact, 1e-4) {
				t.Errorf("Point = %v, want %v", res.Point, contact)
			}
			world := p.m.TransformVec3(contact)
			if !a.CollisionPoint(false).ApproxEqual(world, 1e-4) {
				t.Errorf("CollisionPoint(false) = %v, want %v", a.CollisionPoint(false), world)
			}

			// Same contact seen from the other mesh, using the explicit
			// other-transform form.
			back, err := b.CollidesWith(a, WithOtherTransform(a.Transform()))
			if err != nil {
				t.Fatal(err)
			}
			if !back.Hit {
				t.Fatal("reverse query should collide")
			}
			if !back.WorldPoint().ApproxEqual(world, 1e-4) {
				t.Errorf("reverse WorldPoint() = %v, want %v", back.WorldPoint(), world)
			}
		})
	}
}

func TestCollidesWithOtherTransform(t *testing.T) {
	m := newFinalizedMesh(t, true, BoxTriangles(math.Vec3{X: 1, Y: 1, Z: 1}))

	res, err := m.CollidesWith(m, WithOtherTransform(math.Translate(0.5, 0, 0)))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Hit {
		t.Error("mesh should collide with a copy of itself shifted by half its size")
	}
	if res.OtherTransform != math.Translate(0.5, 0, 0) {
		t.Errorf("OtherTransform = %v", res.OtherTransform)
	}

	res, err = m.CollidesWith(m, WithOtherTransform(math.Translate(5, 0, 0)))
	if err != nil {
		t.Fatal(err)
	}
	if res.Hit {
		t.Error("mesh should not collide with a distant copy of itself")
	}
}

func TestCollidesWithOrderIndependent(t *testing.T) {
	grid := GridTriangles(8, 2)
	piercer := Triangle{
		V1: math.Vec3{X: 0.13, Y: 0.07, Z: -0.5},
		V2: math.Vec3{X: 0.13, Y: 0.07, Z: 0.5},
		V3: math.Vec3{X: 0.15, Y: 0.08},
	}
	b := newFinalizedMesh(t, false, []Triangle{piercer})

	shuffled := append([]Triangle(nil), grid...)
	r := rand.New(rand.NewSource(1))
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	var results []Result
	for _, tris := range [][]Triangle{grid, shuffled} {
		a := newFinalizedMesh(t, false, tris)
		res, err := a.CollidesWith(b)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Hit {
			t.Fatal("piercing triangle should hit the grid")
		}
		results = append(results, res)
	}

	want := math.Vec3{X: 0.13, Y: 0.07}
	for i, res := range results {
		if !res.Point.ApproxEqual(want, 1e-5) {
			t.Errorf("run %d: Point = %v, want %v", i, res.Point, want)
		}
	}
	if results[0].Triangle1 != results[1].Triangle1 {
		t.Errorf("hit triangles differ: %+v vs %+v", results[0].Triangle1, results[1].Triangle1)
	}
}

func TestCollidesWithBudgetNotExceeded(t *testing.T) {
	clk := tickingClock{Mock: clock.NewMock(), step: time.Millisecond}

	// Same origin so the bounding spheres overlap; the trees are separated
	// along z and the root test prunes everything before the budget is read.
	var lifted []Triangle
	for _, tri := range GridTriangles(8, 2) {
		lift := math.Vec3{Z: 5}
		lifted = append(lifted, Triangle{V1: tri.V1.Add(lift), V2: tri.V2.Add(lift), V3: tri.V3.Add(lift)})
	}
	a := newFinalizedMesh(t, false, GridTriangles(8, 2), WithClock(clk))
	b := newFinalizedMesh(t, false, lifted)

	res, err := a.CollidesWith(b, WithMaxTime(time.Nanosecond))
	if err != nil {
		t.Fatalf("CollidesWith() error = %v", err)
	}
	if res.Hit {
		t.Error("separated grids should not collide")
	}
}

func TestCollidesWithTimeout(t *testing.T) {
	clk := tickingClock{Mock: clock.NewMock(), step: time.Millisecond}
	core, logs := observer.New(zapcore.DebugLevel)

	a := newFinalizedMesh(t, false, GridTriangles(32, 2),
		WithClock(clk), WithLogger(zap.New(core)), WithName("floor"))
	b := newFinalizedMesh(t, false, GridTriangles(32, 2))
	b.SetTransform(math.Translate(0.01, 0.013, 0.017).Mul(math.RotateX(float32(gomath.Pi / 2))))

	res, err := a.CollidesWith(b, WithMaxTime(time.Millisecond))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("CollidesWith() error = %v, want ErrTimeout", err)
	}
	if res.Hit || res.Index1 != -1 {
		t.Errorf("timed out query reported %+v", res)
	}
	if a.LastResult().Hit {
		t.Error("LastResult() should be a miss after a timeout")
	}

	warns := logs.FilterMessage("collision query timed out").FilterField(zap.String("mesh", "floor"))
	if warns.Len() != 1 {
		t.Fatalf("got %d timeout warnings, want 1", warns.Len())
	}
	if warns.All()[0].Level != zapcore.WarnLevel {
		t.Errorf("timeout logged at %v", warns.All()[0].Level)
	}

	// Without a budget the same query completes.
	res, err = a.CollidesWith(b)
	if err != nil {
		t.Fatalf("unbounded CollidesWith() error = %v", err)
	}
	if !res.Hit {
		t.Error("perpendicular grids should collide")
	}
}

func TestCollidingTriangles(t *testing.T) {
	a := newFinalizedMesh(t, false, []Triangle{unitTriangle})
	b := newFinalizedMesh(t, false, []Triangle{{
		V1: math.Vec3{X: 0.2, Y: 0.1, Z: -1},
		V2: math.Vec3{X: 0.2, Y: 0.1, Z: 1},
		V3: math.Vec3{X: 0.2, Y: 0.5},
	}})
	a.SetTransform(math.Translate(1, 2, 3))
	b.SetTransform(math.Translate(1, 2, 3))

	if _, err := a.CollidesWith(b); err != nil {
		t.Fatal(err)
	}
	i, j := a.CollidingTriangleIndices()
	if i != 0 || j != 0 {
		t.Fatalf("CollidingTriangleIndices() = %d, %d", i, j)
	}

	l1, l2 := a.CollidingTriangles(true)
	if l1 != a.Triangle(0) || l2 != b.Triangle(0) {
		t.Error("model-space triangles should be the stored ones")
	}
	w1, w2 := a.CollidingTriangles(false)
	if w1 != a.Triangle(0).Transform(a.Transform()) || w2 != b.Triangle(0).Transform(b.Transform()) {
		t.Error("world triangles should follow each mesh transform")
	}
}

func TestRayCast(t *testing.T) {
	cube := BoxTriangles(math.Vec3{X: 1, Y: 1, Z: 1})
	inf := float32(gomath.Inf(1))

	tests := []struct {
		name      string
		pose      math.Mat4
		origin    math.Vec3
		dir       math.Vec3
		opts      []RayOption
		wantHit   bool
		wantDist  float32
		wantLocal math.Vec3
	}{
		{
			name:      "closest face",
			pose:      math.Identity(),
			origin:    math.Vec3{X: -2, Y: 0.1, Z: 0.2},
			dir:       math.Vec3{X: 1},
			opts:      []RayOption{WithClosest(true)},
			wantHit:   true,
			wantDist:  1.5,
			wantLocal: math.Vec3{X: -0.5, Y: 0.1, Z: 0.2},
		},
		{
			name:      "through the face center",
			pose:      math.Identity(),
			origin:    math.Vec3{X: -2},
			dir:       math.Vec3{X: 1},
			opts:      []RayOption{WithClosest(true)},
			wantHit:   true,
			wantDist:  1.5,
			wantLocal: math.Vec3{X: -0.5},
		},
		{
			name:    "segment ends before the box",
			pose:    math.Identity(),
			origin:  math.Vec3{X: -2, Y: 0.1, Z: 0.2},
			dir:     math.Vec3{X: 1},
			opts:    []RayOption{WithSegment(0, 1)},
			wantHit: false,
		},
		{
			name:      "reversed segment",
			pose:      math.Identity(),
			origin:    math.Vec3{X: -2, Y: 0.1, Z: 0.2},
			dir:       math.Vec3{X: 1},
			opts:      []RayOption{WithSegment(2, 1)},
			wantHit:   true,
			wantDist:  0.5,
			wantLocal: math.Vec3{X: -0.5, Y: 0.1, Z: 0.2},
		},
		{
			name:      "segment starting past the entry face",
			pose:      math.Identity(),
			origin:    math.Vec3{X: -2, Y: 0.1, Z: 0.2},
			dir:       math.Vec3{X: 1},
			opts:      []RayOption{WithClosest(true), WithSegment(2, inf)},
			wantHit:   true,
			wantDist:  0.5,
			wantLocal: math.Vec3{X: 0.5, Y: 0.1, Z: 0.2},
		},
		{
			name:      "translated mesh",
			pose:      math.Translate(10, 0, 0),
			origin:    math.Vec3{X: 8, Y: 0.1, Z: 0.2},
			dir:       math.Vec3{X: 1},
			opts:      []RayOption{WithClosest(true)},
			wantHit:   true,
			wantDist:  1.5,
			wantLocal: math.Vec3{X: -0.5, Y: 0.1, Z: 0.2},
		},
		{
			name:      "rotated mesh",
			pose:      math.RotateZ(float32(gomath.Pi / 2)),
			origin:    math.Vec3{X: 0.1, Y: -3, Z: 0.2},
			dir:       math.Vec3{Y: 1},
			opts:      []RayOption{WithClosest(true)},
			wantHit:   true,
			wantDist:  2.5,
			wantLocal: math.Vec3{X: -0.5, Y: -0.1, Z: 0.2},
		},
		{
			name:    "passes beside",
			pose:    math.Identity(),
			origin:  math.Vec3{X: -2, Y: 2},
			dir:     math.Vec3{X: 1},
			wantHit: false,
		},
		{
			name:    "pointing away",
			pose:    math.Identity(),
			origin:  math.Vec3{X: -2, Y: 0.1, Z: 0.2},
			dir:     math.Vec3{X: -1},
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFinalizedMesh(t, false, cube)
			m.SetTransform(tt.pose)

			res, err := m.RayCast(tt.origin, tt.dir, tt.opts...)
			if err != nil {
				t.Fatalf("RayCast() error = %v", err)
			}
			if res.Hit != tt.wantHit {
				t.Fatalf("RayCast() hit = %v, want %v", res.Hit, tt.wantHit)
			}
			if res.Kind != KindRay || res.Index2 != -1 {
				t.Errorf("Kind = %v, Index2 = %d", res.Kind, res.Index2)
			}
			if !tt.wantHit {
				return
			}
			if d := res.Distance - tt.wantDist; d > 1e-5 || d < -1e-5 {
				t.Errorf("Distance = %v, want %v", res.Distance, tt.wantDist)
			}
			if !res.Point.ApproxEqual(tt.wantLocal, 1e-5) {
				t.Errorf("Point = %v, want %v", res.Point, tt.wantLocal)
			}
			wantWorld := tt.pose.TransformVec3(tt.wantLocal)
			if !res.WorldPoint().ApproxEqual(wantWorld, 1e-5) {
				t.Errorf("WorldPoint() = %v, want %v", res.WorldPoint(), wantWorld)
			}
			if res.Triangle1 != m.Triangle(res.Index1) {
				t.Error("Triangle1 does not match Index1")
			}
		})
	}
}

func TestRayCastFirstHitIsOnSurface(t *testing.T) {
	m := newFinalizedMesh(t, false, BoxTriangles(math.Vec3{X: 1, Y: 1, Z: 1}))

	res, err := m.RayCast(math.Vec3{X: -2, Y: 0.1, Z: 0.2}, math.Vec3{X: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Hit {
		t.Fatal("ray through the cube missed")
	}
	d := res.Distance
	if abs32(d-1.5) > 1e-5 && abs32(d-2.5) > 1e-5 {
		t.Errorf("Distance = %v, want the entry or exit face", d)
	}
}

func TestRayCastClosestOnGrid(t *testing.T) {
	// Stacked parallel grids; the closest hit must be the nearest layer no
	// matter the traversal order.
	var tris []Triangle
	for _, z := range []float32{3, -1, 2, 0, 1} {
		for _, tri := range GridTriangles(4, 2) {
			off := math.Vec3{Z: z}
			tris = append(tris, Triangle{V1: tri.V1.Add(off), V2: tri.V2.Add(off), V3: tri.V3.Add(off)})
		}
	}
	m := newFinalizedMesh(t, false, tris)

	res, err := m.RayCast(math.Vec3{X: 0.1, Y: 0.3, Z: 10}, math.Vec3{Z: -1}, WithClosest(true))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Hit || abs32(res.Point.Z-3) > 1e-5 {
		t.Errorf("closest hit = %+v, want the z=3 layer", res)
	}
}

func TestSphereCast(t *testing.T) {
	tests := []struct {
		name      string
		tris      []Triangle
		center    math.Vec3
		radius    float32
		wantHit   bool
		wantPoint math.Vec3
	}{
		{"tangent to face", []Triangle{unitTriangle}, math.Vec3{Z: 1}, 1, true, math.Vec3{}},
		{"just above face", []Triangle{unitTriangle}, math.Vec3{Z: 1.001}, 1, false, math.Vec3{}},
		{"nearest an edge", []Triangle{unitTriangle}, math.Vec3{Y: -2}, 1.5, true, math.Vec3{Y: -1}},
		{"nearest a vertex", []Triangle{unitTriangle}, math.Vec3{X: 0, Y: 2}, 1, true, math.Vec3{Y: 1}},
		{"cube in reach", BoxTriangles(math.Vec3{X: 1, Y: 1, Z: 1}), math.Vec3{X: 2}, 1.5, true, math.Vec3{X: 0.5}},
		{"cube out of reach", BoxTriangles(math.Vec3{X: 1, Y: 1, Z: 1}), math.Vec3{X: 2}, 1, false, math.Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFinalizedMesh(t, true, tt.tris)
			res, err := m.SphereCast(tt.center, tt.radius)
			if err != nil {
				t.Fatalf("SphereCast() error = %v", err)
			}
			if res.Hit != tt.wantHit {
				t.Fatalf("SphereCast() hit = %v, want %v", res.Hit, tt.wantHit)
			}
			if res.Kind != KindSphere {
				t.Errorf("Kind = %v", res.Kind)
			}
			if tt.wantHit && !res.Point.ApproxEqual(tt.wantPoint, 1e-5) {
				t.Errorf("Point = %v, want %v", res.Point, tt.wantPoint)
			}
		})
	}
}

func TestSphereCastInsideClosedMesh(t *testing.T) {
	m := newFinalizedMesh(t, false, BoxTriangles(math.Vec3{X: 4, Y: 4, Z: 4}))
	res, err := m.SphereCast(math.Vec3{}, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Hit {
		t.Error("a sphere floating inside a box touches no triangle")
	}
}
