package coldet

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/coldet/pkg/math"
)

// initialQueueSize is the starting capacity of the node-pair queue.
const initialQueueSize = 64

type nodePair struct {
	a, b int32
}

// pairQueue is a FIFO ring buffer of node pairs. It doubles its capacity
// whenever it becomes more than half full.
type pairQueue struct {
	buf   []nodePair
	head  int
	count int
}

func newPairQueue() *pairQueue {
	return &pairQueue{buf: make([]nodePair, initialQueueSize)}
}

func (q *pairQueue) push(p nodePair) {
	if q.count+1 > len(q.buf)/2 {
		q.grow()
	}
	q.buf[(q.head+q.count)%len(q.buf)] = p
	q.count++
}

func (q *pairQueue) pop() (nodePair, bool) {
	if q.count == 0 {
		return nodePair{}, false
	}
	p := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return p, true
}

func (q *pairQueue) grow() {
	nb := make([]nodePair, len(q.buf)*2)
	for i := 0; i < q.count; i++ {
		nb[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = nb
	q.head = 0
}

// CollidesWith reports whether m and other intersect. On a hit the result
// holds the first colliding triangle pair found and a contact point in m's
// local space.
//
// ErrTimeout is returned when WithMaxTime is set and the search does not
// finish in time; the result then carries no hit and the caller decides how
// to treat the unknown outcome. ErrInconsistency is returned when either mesh
// is not finalized.
func (m *Mesh) CollidesWith(other *Mesh, opts ...CollisionOption) (Result, error) {
	if !m.finalized || !other.finalized {
		return missResult(KindModels, m.transform), fmt.Errorf("%w: collision query before Finalize", ErrInconsistency)
	}

	var cfg collisionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	otherTransform := other.transform
	if cfg.otherTransform != nil {
		otherTransform = *cfg.otherTransform
	}

	res := missResult(KindModels, m.transform)
	res.OtherTransform = otherTransform

	// Bounding spheres around the mesh origins
	reach := m.radius + other.radius
	if m.transform.Translation().Sub(otherTransform.Translation()).LengthSq() > reach*reach {
		m.record(res)
		return res, nil
	}

	c := &treeCollider{
		a:       m,
		b:       other,
		rel:     m.inverseTransform().Mul(otherTransform),
		budget:  cfg.maxTime,
		start:   m.clock.Now(),
		queue:   newPairQueue(),
		results: &res,
	}
	hit, err := c.run()
	if err != nil {
		m.log.Warn("collision query timed out",
			zap.Duration("budget", cfg.maxTime),
			zap.Int("pairs_visited", c.visited),
			zap.String("other", other.name),
		)
		res = missResult(KindModels, m.transform)
		res.OtherTransform = otherTransform
		m.record(res)
		return res, err
	}
	res.Hit = hit
	m.record(res)
	return res, nil
}

// treeCollider runs the pairwise descent of two trees. rel maps b's local
// space into a's.
type treeCollider struct {
	a, b    *Mesh
	rel     math.Mat4
	budget  time.Duration
	start   time.Time
	queue   *pairQueue
	visited int
	results *Result
}

func (c *treeCollider) run() (bool, error) {
	ta, tb := c.a.tree, c.b.tree
	c.queue.push(nodePair{0, 0})

	for {
		p, ok := c.queue.pop()
		if !ok {
			return false, nil
		}
		c.visited++

		na := &ta.nodes[p.a]
		nb := &tb.nodes[p.b]
		if !na.box.OverlapsTransformed(nb.box, c.rel) {
			continue
		}
		// Pruned pairs never time out, so disjoint trees always answer false.
		if c.budget > 0 && c.a.clock.Now().Sub(c.start) > c.budget {
			return false, fmt.Errorf("%w: gave up after %d node pairs", ErrTimeout, c.visited)
		}

		switch {
		case na.leaf && nb.leaf:
			if c.collideLeaves(na, nb) {
				return true, nil
			}
		case na.leaf:
			c.queue.push(nodePair{p.a, nb.left})
			c.queue.push(nodePair{p.a, nb.right})
		case nb.leaf:
			c.queue.push(nodePair{na.left, p.b})
			c.queue.push(nodePair{na.right, p.b})
		case na.larger(nb):
			c.queue.push(nodePair{na.left, p.b})
			c.queue.push(nodePair{na.right, p.b})
		default:
			c.queue.push(nodePair{p.a, nb.left})
			c.queue.push(nodePair{p.a, nb.right})
		}
	}
}

// collideLeaves tests every triangle pair of two leaves and records the first
// intersecting one.
func (c *treeCollider) collideLeaves(na, nb *node) bool {
	trisA, trisB := c.a.triangles, c.b.triangles
	for _, j := range c.b.tree.leafTriangles(nb) {
		bt := &trisB[j]
		moved := bt.Triangle.Transform(c.rel)
		movedBox := moved.Bounds()
		if !na.box.Overlaps(movedBox) {
			continue
		}
		for _, i := range c.a.tree.leafTriangles(na) {
			at := &trisA[i]
			if !at.Box.Overlaps(movedBox) {
				continue
			}
			if p, ok := IntersectTriangles(at.Triangle, moved); ok {
				r := c.results
				r.Kind = KindModels
				r.Index1 = at.Index
				r.Index2 = bt.Index
				r.Triangle1 = at.Triangle
				r.Triangle2 = bt.Triangle
				r.Point = p
				return true
			}
		}
	}
	return false
}

// RayCast intersects the ray origin + t*direction (world space) with the
// mesh. Without WithClosest the first hit found wins; with it the hit nearest
// the segment start does. WithSegment limits t to [segMin, segMax].
func (m *Mesh) RayCast(origin, direction math.Vec3, opts ...RayOption) (Result, error) {
	if !m.finalized {
		return missResult(KindRay, m.transform), fmt.Errorf("%w: ray query before Finalize", ErrInconsistency)
	}

	cfg := defaultRayConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	inv := m.inverseTransform()
	o := inv.TransformVec3(origin)
	d := inv.RotateVector(direction)

	// Move the segment start to t=0, flipping reversed segments.
	o = o.Add(d.Scale(cfg.segMin))
	segMax := cfg.segMax - cfg.segMin
	if segMax < 0 {
		d = d.Neg()
		segMax = -segMax
	}

	res := missResult(KindRay, m.transform)
	best := segMax
	t := m.tree
	stack := make([]int32, 1, 64)

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[idx]

		if _, hit := n.box.IntersectRay(o, d, best); !hit {
			continue
		}
		if !n.leaf {
			stack = append(stack, n.right, n.left)
			continue
		}

		for _, ti := range t.leafTriangles(n) {
			bt := &m.triangles[ti]
			dist, ok := intersectRayTriangle(o, d, bt.Triangle, best)
			if !ok {
				continue
			}
			res.Hit = true
			res.Index1 = bt.Index
			res.Triangle1 = bt.Triangle
			res.Distance = dist
			res.Point = o.Add(d.Scale(dist))
			if !cfg.closest {
				m.record(res)
				return res, nil
			}
			best = dist
		}
	}

	m.record(res)
	return res, nil
}

// SphereCast reports whether a sphere (world-space center) touches the mesh.
// The first touching triangle found wins; Point is the closest point on it.
func (m *Mesh) SphereCast(center math.Vec3, radius float32) (Result, error) {
	if !m.finalized {
		return missResult(KindSphere, m.transform), fmt.Errorf("%w: sphere query before Finalize", ErrInconsistency)
	}

	c := m.inverseTransform().TransformVec3(center)
	res := missResult(KindSphere, m.transform)
	t := m.tree
	stack := make([]int32, 1, 64)

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[idx]

		if !n.box.IntersectSphere(c, radius) {
			continue
		}
		if !n.leaf {
			stack = append(stack, n.right, n.left)
			continue
		}

		for _, ti := range t.leafTriangles(n) {
			bt := &m.triangles[ti]
			if p, ok := intersectSphereTriangle(c, radius, bt.Triangle); ok {
				res.Hit = true
				res.Index1 = bt.Index
				res.Triangle1 = bt.Triangle
				res.Point = p
				m.record(res)
				return res, nil
			}
		}
	}

	m.record(res)
	return res, nil
}
