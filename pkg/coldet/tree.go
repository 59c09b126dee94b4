package coldet

import (
	"cmp"
	gomath "math"
	"slices"

	"github.com/Faultbox/coldet/pkg/math"
)

// DefaultLeafSize is the triangle count at or below which a node stays a leaf.
const DefaultLeafSize = 4

// node is one entry of the tree arena. Inner nodes reference their children
// by index; leaves reference a contiguous range of tree.order.
type node struct {
	box    AABB
	volume float32
	// diag breaks volume ties between flat boxes.
	diag float32

	leaf        bool
	left, right int32
	first       int32
	count       int32
}

// tree is a bounding volume hierarchy over a mesh's triangles, stored as a
// flat arena. nodes[0] is the root.
type tree struct {
	nodes    []node
	order    []int32
	logDepth int
	leafSize int
}

// TreeStats describes the shape of a built tree.
type TreeStats struct {
	Nodes       int
	Leaves      int
	MaxDepth    int
	MaxLeafSize int
	DepthBudget int
}

// depthBudget returns round(1.5 * log2(n)), the maximum tree depth for n
// triangles.
func depthBudget(n int) int {
	if n <= 1 {
		return 0
	}
	return int(gomath.Round(1.5 * gomath.Log2(float64(n))))
}

type treeBuilder struct {
	t         *tree
	tris      []BoxedTriangle
	centroids []math.Vec3
}

// buildTree partitions tris into a tree. tris must not be empty.
func buildTree(tris []BoxedTriangle, leafSize int) *tree {
	if leafSize < 1 {
		leafSize = DefaultLeafSize
	}
	n := len(tris)
	t := &tree{
		nodes:    make([]node, 0, 2*(n/leafSize+1)),
		order:    make([]int32, n),
		logDepth: depthBudget(n),
		leafSize: leafSize,
	}
	b := &treeBuilder{
		t:         t,
		tris:      tris,
		centroids: make([]math.Vec3, n),
	}
	for i := range tris {
		t.order[i] = int32(i)
		b.centroids[i] = tris[i].Centroid()
	}
	b.divide(0, n, 0)
	return t
}

// divide builds the node covering order[first:first+count] and returns its
// index.
func (b *treeBuilder) divide(first, count, depth int) int32 {
	t := b.t
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{})

	box := EmptyAABB()
	for _, ti := range t.order[first : first+count] {
		box = box.Union(b.tris[ti].Box)
	}
	size := box.Max.Sub(box.Min)
	n := node{
		box:    box,
		volume: box.Volume(),
		diag:   size.LengthSq(),
	}

	if depth >= t.logDepth || count <= t.leafSize {
		n.leaf = true
		n.first = int32(first)
		n.count = int32(count)
		t.nodes[idx] = n
		return idx
	}

	mid := b.split(first, count)
	n.left = b.divide(first, mid-first, depth+1)
	n.right = b.divide(mid, first+count-mid, depth+1)
	t.nodes[idx] = n
	return idx
}

// split reorders order[first:first+count] and returns the index where the
// second group starts. Both groups are non-empty for count >= 2.
func (b *treeBuilder) split(first, count int) int {
	order := b.t.order[first : first+count]

	cbox := EmptyAABB()
	var mean math.Vec3
	for _, ti := range order {
		c := b.centroids[ti]
		cbox = cbox.Extend(c)
		mean = mean.Add(c)
	}
	mean = mean.Scale(1 / float32(count))

	ext := cbox.Max.Sub(cbox.Min)
	axis := 0
	if ext.Y > ext.Axis(axis) {
		axis = 1
	}
	if ext.Z > ext.Axis(axis) {
		axis = 2
	}
	pivot := mean.Axis(axis)

	left, right := 0, len(order)-1
	for left <= right {
		if b.centroids[order[left]].Axis(axis) < pivot {
			left++
		} else {
			order[left], order[right] = order[right], order[left]
			right--
		}
	}

	if left == 0 || left == len(order) {
		// Mean split put everything on one side; fall back to the median.
		slices.SortFunc(order, func(i, j int32) int {
			return cmp.Compare(b.centroids[i].Axis(axis), b.centroids[j].Axis(axis))
		})
		left = len(order) / 2
	}
	return first + left
}

// stats walks the tree and summarizes its shape.
func (t *tree) stats() TreeStats {
	s := TreeStats{Nodes: len(t.nodes), DepthBudget: t.logDepth}
	type item struct {
		idx   int32
		depth int
	}
	stack := []item{{0, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[it.idx]
		s.MaxDepth = max(s.MaxDepth, it.depth)
		if n.leaf {
			s.Leaves++
			s.MaxLeafSize = max(s.MaxLeafSize, int(n.count))
			continue
		}
		stack = append(stack, item{n.left, it.depth + 1}, item{n.right, it.depth + 1})
	}
	return s
}

// leafTriangles returns the triangle indices held by leaf n.
func (t *tree) leafTriangles(n *node) []int32 {
	return t.order[n.first : n.first+n.count]
}

// larger reports whether a should be descended before b.
func (a *node) larger(b *node) bool {
	if a.volume != b.volume {
		return a.volume > b.volume
	}
	return a.diag >= b.diag
}
