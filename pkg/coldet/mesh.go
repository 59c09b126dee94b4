// Package coldet implements narrow-phase collision detection between triangle
// meshes using a bounding volume hierarchy.
//
// A Mesh is filled with triangles, finalized once (which builds its tree) and
// then queried any number of times against other meshes, rays and spheres.
// Transforms passed to a Mesh must be rigid: rotation and translation only.
package coldet

import (
	"fmt"
	gomath "math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/Faultbox/coldet/pkg/math"
)

// Mesh is a triangle soup with a bounding volume hierarchy and a transform.
//
// The triangles and tree are immutable after Finalize, so queries only read
// shared state. SetTransform is not synchronized: a mesh must not be moved
// while it is being queried.
type Mesh struct {
	static    bool
	finalized bool
	name      string
	leafSize  int

	triangles []BoxedTriangle
	tree      *tree
	radiusSq  float32
	radius    float32

	transform math.Mat4
	inverse   math.Mat4

	clock clock.Clock
	log   *zap.Logger

	mu   sync.Mutex
	last Result
}

// NewMesh creates an empty mesh. A static mesh caches the inverse of its
// transform on SetTransform; a dynamic one inverts it on every query.
func NewMesh(static bool, opts ...MeshOption) *Mesh {
	m := &Mesh{
		static:    static,
		leafSize:  DefaultLeafSize,
		transform: math.Identity(),
		inverse:   math.Identity(),
		clock:     clock.New(),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.last = missResult(KindNone, m.transform)
	if m.name != "" {
		m.log = m.log.With(zap.String("mesh", m.name))
	}
	return m
}

// AddTriangle appends a triangle in the mesh's local space.
func (m *Mesh) AddTriangle(v1, v2, v3 math.Vec3) error {
	if m.finalized {
		return fmt.Errorf("%w: AddTriangle after Finalize", ErrInconsistency)
	}
	m.triangles = append(m.triangles, newBoxedTriangle(Triangle{V1: v1, V2: v2, V3: v3}, len(m.triangles)))
	m.radiusSq = max(m.radiusSq, v1.LengthSq(), v2.LengthSq(), v3.LengthSq())
	return nil
}

// Finalize builds the tree. No triangles can be added afterwards.
func (m *Mesh) Finalize() error {
	if m.finalized {
		return fmt.Errorf("%w: Finalize called twice", ErrInconsistency)
	}
	if len(m.triangles) == 0 {
		return fmt.Errorf("%w: Finalize on a mesh without triangles", ErrInconsistency)
	}

	start := time.Now()
	m.tree = buildTree(m.triangles, m.leafSize)
	m.radius = float32(gomath.Sqrt(float64(m.radiusSq)))
	m.finalized = true

	if ce := m.log.Check(zap.DebugLevel, "collision tree built"); ce != nil {
		s := m.tree.stats()
		ce.Write(
			zap.Int("triangles", len(m.triangles)),
			zap.Int("nodes", s.Nodes),
			zap.Int("leaves", s.Leaves),
			zap.Int("depth", s.MaxDepth),
			zap.Int("depth_budget", s.DepthBudget),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return nil
}

// SetTransform places the mesh in the world. t must be rigid (no scaling).
func (m *Mesh) SetTransform(t math.Mat4) {
	m.transform = t
	if m.static {
		m.inverse = t.Inverse()
	}
}

// Transform returns the current transform.
func (m *Mesh) Transform() math.Mat4 {
	return m.transform
}

// inverseTransform returns the world-to-local transform, cached for static
// meshes and recomputed for dynamic ones.
func (m *Mesh) inverseTransform() math.Mat4 {
	if m.static {
		return m.inverse
	}
	return m.transform.Inverse()
}

// IsStatic reports whether the mesh caches its inverse transform.
func (m *Mesh) IsStatic() bool { return m.static }

// IsFinalized reports whether Finalize has succeeded.
func (m *Mesh) IsFinalized() bool { return m.finalized }

// Name returns the label given by WithName.
func (m *Mesh) Name() string { return m.name }

// TriangleCount returns the number of triangles added so far.
func (m *Mesh) TriangleCount() int { return len(m.triangles) }

// Triangle returns triangle i in local space.
func (m *Mesh) Triangle(i int) Triangle { return m.triangles[i].Triangle }

// Radius returns the largest vertex distance from the local origin. It is
// zero until Finalize.
func (m *Mesh) Radius() float32 { return m.radius }

// Bounds returns the local-space box of the whole mesh.
func (m *Mesh) Bounds() (AABB, error) {
	if !m.finalized {
		return AABB{}, fmt.Errorf("%w: Bounds before Finalize", ErrInconsistency)
	}
	return m.tree.nodes[0].box, nil
}

// Stats returns the tree shape.
func (m *Mesh) Stats() (TreeStats, error) {
	if !m.finalized {
		return TreeStats{}, fmt.Errorf("%w: Stats before Finalize", ErrInconsistency)
	}
	return m.tree.stats(), nil
}

func (m *Mesh) record(r Result) {
	m.mu.Lock()
	m.last = r
	m.mu.Unlock()
}

// LastResult returns the result of the most recent query.
func (m *Mesh) LastResult() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// CollidingTriangles returns the triangles of the last hit. With modelSpace
// false the first triangle is moved by the current transform and the second
// by the other mesh's transform at query time. The second triangle is only
// set by CollidesWith.
func (m *Mesh) CollidingTriangles(modelSpace bool) (Triangle, Triangle) {
	r := m.LastResult()
	if modelSpace {
		return r.Triangle1, r.Triangle2
	}
	return r.Triangle1.Transform(m.transform), r.Triangle2.Transform(r.OtherTransform)
}

// CollidingTriangleIndices returns the triangle indices of the last hit, or
// -1 where there is none.
func (m *Mesh) CollidingTriangleIndices() (int, int) {
	r := m.LastResult()
	return r.Index1, r.Index2
}

// CollisionPoint returns the contact point of the last hit, in local space or
// moved into the world by the current transform.
func (m *Mesh) CollisionPoint(modelSpace bool) math.Vec3 {
	r := m.LastResult()
	if modelSpace {
		return r.Point
	}
	return m.transform.TransformVec3(r.Point)
}
