package scene

import (
	gomath "math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/coldet/pkg/coldet"
	"github.com/Faultbox/coldet/pkg/math"
)

// World holds the finalized meshes of a scene by name.
type World struct {
	meshes  map[string]*coldet.Mesh
	specs   map[string]MeshSpec
	names   []string
	queries []QuerySpec
	clock   clock.Clock
	log     *zap.Logger
}

// Outcome is the result of one query. Point is in world space. TimedOut
// is set instead of an error when a collision query ran out of time; Hit is
// then false and the caller picks the policy.
type Outcome struct {
	Query    QuerySpec
	Hit      bool
	TimedOut bool
	Point    math.Vec3
	Index1   int
	Index2   int
	Distance float32
	Elapsed  time.Duration
}

// Names returns the mesh names in document order.
func (w *World) Names() []string {
	return w.names
}

// Mesh returns the named mesh.
func (w *World) Mesh(name string) (*coldet.Mesh, bool) {
	m, ok := w.meshes[name]
	return m, ok
}

// Spec returns the document entry the named mesh was built from.
func (w *World) Spec(name string) (MeshSpec, bool) {
	s, ok := w.specs[name]
	return s, ok
}

// Queries returns the queries of the document.
func (w *World) Queries() []QuerySpec {
	return w.queries
}

func (w *World) mesh(name string) (*coldet.Mesh, error) {
	m, ok := w.meshes[name]
	if !ok {
		return nil, errors.Errorf("unknown mesh %q", name)
	}
	return m, nil
}

// Run executes one query. maxTime applies to collision queries that do not
// set their own budget.
func (w *World) Run(q QuerySpec, maxTime time.Duration) (Outcome, error) {
	out := Outcome{Query: q, Index1: -1, Index2: -1}
	start := w.clock.Now()

	var (
		res coldet.Result
		err error
	)
	switch q.Type {
	case QueryCollision:
		var a, b *coldet.Mesh
		if a, err = w.mesh(q.A); err != nil {
			return out, err
		}
		if b, err = w.mesh(q.B); err != nil {
			return out, err
		}
		budget := maxTime
		if q.MaxTime > 0 {
			budget = q.MaxTime
		}
		res, err = a.CollidesWith(b, coldet.WithMaxTime(budget))
		if errors.Is(err, coldet.ErrTimeout) {
			out.TimedOut = true
			err = nil
		}

	case QueryRay:
		var m *coldet.Mesh
		if m, err = w.mesh(q.Mesh); err != nil {
			return out, err
		}
		opts := []coldet.RayOption{coldet.WithClosest(q.Closest)}
		if q.SegMin != nil || q.SegMax != nil {
			segMin, segMax := float32(0), float32(gomath.Inf(1))
			if q.SegMin != nil {
				segMin = *q.SegMin
			}
			if q.SegMax != nil {
				segMax = *q.SegMax
			}
			opts = append(opts, coldet.WithSegment(segMin, segMax))
		}
		res, err = m.RayCast(q.Origin.Vec3(), q.Direction.Vec3(), opts...)

	case QuerySphere:
		var m *coldet.Mesh
		if m, err = w.mesh(q.Mesh); err != nil {
			return out, err
		}
		res, err = m.SphereCast(q.Center.Vec3(), q.Radius)

	default:
		return out, errors.Errorf("unknown query type %q", q.Type)
	}

	out.Elapsed = w.clock.Since(start)
	if err != nil {
		return out, err
	}

	out.Hit = res.Hit
	out.Index1, out.Index2 = res.Index1, res.Index2
	out.Distance = res.Distance
	if res.Hit {
		out.Point = res.WorldPoint()
	}

	w.log.Debug("query finished",
		zap.Stringer("query", q),
		zap.Bool("hit", out.Hit),
		zap.Bool("timed_out", out.TimedOut),
		zap.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}

// RunAll executes every query of the document in order and stops at the
// first error.
func (w *World) RunAll(maxTime time.Duration) ([]Outcome, error) {
	outs := make([]Outcome, 0, len(w.queries))
	for i, q := range w.queries {
		out, err := w.Run(q, maxTime)
		if err != nil {
			return outs, errors.Wrapf(err, "query %d (%s)", i, q)
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// SweepResult reports the first colliding snapshot of a sweep. Step is -1
// when no snapshot collided.
type SweepResult struct {
	Step    int
	T       float32
	Steps   int
	Outcome Outcome
}

// Sweep moves mesh b from its scene pose to target in steps+1 evenly spaced
// snapshots (position lerp, rotation slerp) and tests each against mesh a.
// It only samples poses: contacts that start and end between two snapshots
// are missed. b's transform is restored before returning.
func (w *World) Sweep(a, b string, target Pose, steps int, maxTime time.Duration) (SweepResult, error) {
	if steps < 1 {
		return SweepResult{}, errors.Errorf("sweep needs at least one step, got %d", steps)
	}
	_, err := w.mesh(a)
	if err != nil {
		return SweepResult{}, err
	}
	mb, err := w.mesh(b)
	if err != nil {
		return SweepResult{}, err
	}

	from := w.specs[b].Pose
	saved := mb.Transform()
	defer mb.SetTransform(saved)

	p0, p1 := from.Position.Vec3(), target.Position.Vec3()
	q0, q1 := from.Quat(), target.Quat()
	q := QuerySpec{Type: QueryCollision, A: a, B: b, MaxTime: maxTime}

	for i := 0; i <= steps; i++ {
		t := float32(i) / float32(steps)
		mb.SetTransform(math.Pose(math.LerpVec3(p0, p1, t), q0.Slerp(q1, t)))

		out, err := w.Run(q, maxTime)
		if err != nil {
			return SweepResult{}, errors.Wrapf(err, "sweep step %d", i)
		}
		if out.Hit || out.TimedOut {
			return SweepResult{Step: i, T: t, Steps: steps, Outcome: out}, nil
		}
	}
	return SweepResult{Step: -1, Steps: steps}, nil
}
