package coldet

import (
	gomath "math"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/Faultbox/coldet/pkg/math"
)

// MeshOption configures a Mesh at construction.
type MeshOption func(*Mesh)

// WithLogger sets the logger used for tree build and timeout messages.
func WithLogger(l *zap.Logger) MeshOption {
	return func(m *Mesh) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock sets the clock used to enforce CollidesWith time budgets.
func WithClock(c clock.Clock) MeshOption {
	return func(m *Mesh) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLeafSize overrides DefaultLeafSize.
func WithLeafSize(n int) MeshOption {
	return func(m *Mesh) {
		if n > 0 {
			m.leafSize = n
		}
	}
}

// WithName labels the mesh in log output.
func WithName(name string) MeshOption {
	return func(m *Mesh) {
		m.name = name
	}
}

type collisionConfig struct {
	maxTime        time.Duration
	otherTransform *math.Mat4
}

// CollisionOption configures a CollidesWith query.
type CollisionOption func(*collisionConfig)

// WithMaxTime bounds the wall-clock time of the query. Zero or negative
// durations mean no limit.
func WithMaxTime(d time.Duration) CollisionOption {
	return func(c *collisionConfig) {
		c.maxTime = d
	}
}

// WithOtherTransform tests against the other mesh placed at m instead of its
// current transform, e.g. to test a mesh against a moved copy of itself.
func WithOtherTransform(m math.Mat4) CollisionOption {
	return func(c *collisionConfig) {
		c.otherTransform = &m
	}
}

type rayConfig struct {
	closest        bool
	segMin, segMax float32
}

func defaultRayConfig() rayConfig {
	return rayConfig{segMax: float32(gomath.Inf(1))}
}

// RayOption configures a RayCast query.
type RayOption func(*rayConfig)

// WithClosest makes RayCast report the hit nearest the segment start instead
// of the first one found.
func WithClosest(closest bool) RayOption {
	return func(c *rayConfig) {
		c.closest = closest
	}
}

// WithSegment restricts the ray to origin + t*direction for t in [segMin, segMax].
func WithSegment(segMin, segMax float32) RayOption {
	return func(c *rayConfig) {
		c.segMin = segMin
		c.segMax = segMax
	}
}
