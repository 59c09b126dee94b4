// Package scene loads YAML scene documents describing meshes, their poses and
// the queries to run against them, and builds them into coldet meshes.
package scene

import (
	"bytes"
	"fmt"
	"io"
	gomath "math"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/coldet/pkg/math"
)

// Mesh shapes.
const (
	ShapeBox       = "box"
	ShapeGrid      = "grid"
	ShapeSphere    = "sphere"
	ShapeTriangles = "triangles"
	ShapeOFF       = "off"
)

// Query types.
const (
	QueryCollision = "collision"
	QueryRay       = "ray"
	QuerySphere    = "sphere"
)

// Vec is a YAML [x, y, z] sequence.
type Vec [3]float32

// Vec3 converts v to a math vector.
func (v Vec) Vec3() math.Vec3 {
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

// Pose places a mesh: a rotation of Angle degrees about Axis, then a
// translation to Position.
type Pose struct {
	Position Vec     `yaml:"position"`
	Axis     Vec     `yaml:"axis"`
	Angle    float32 `yaml:"angle"`
}

// Quat returns the pose rotation. A zero axis means no rotation.
func (p Pose) Quat() math.Quat {
	return math.QuatFromAxisAngle(p.Axis.Vec3(), p.Angle*gomath.Pi/180)
}

// Matrix returns the rigid transform of the pose.
func (p Pose) Matrix() math.Mat4 {
	return math.Pose(p.Position.Vec3(), p.Quat())
}

// MeshSpec describes one mesh of a scene. Which fields apply depends on Shape.
type MeshSpec struct {
	Name   string `yaml:"name"`
	Static bool   `yaml:"static"`
	Shape  string `yaml:"shape"`

	Size Vec `yaml:"size,omitempty"` // box

	Cells  int     `yaml:"cells,omitempty"`  // grid
	Extent float32 `yaml:"extent,omitempty"` // grid

	Radius   float32 `yaml:"radius,omitempty"`   // sphere
	Rings    int     `yaml:"rings,omitempty"`    // sphere
	Segments int     `yaml:"segments,omitempty"` // sphere

	Triangles [][9]float32 `yaml:"triangles,omitempty"`
	File      string       `yaml:"file,omitempty"` // OFF model, relative to the scene file

	Pose Pose `yaml:"pose"`
}

// QuerySpec describes one query. A and B name the meshes of a collision
// query, Mesh the target of ray and sphere queries.
type QuerySpec struct {
	Type string `yaml:"type"`

	A       string        `yaml:"a,omitempty"`
	B       string        `yaml:"b,omitempty"`
	MaxTime time.Duration `yaml:"max_time,omitempty"`

	Mesh      string   `yaml:"mesh,omitempty"`
	Origin    Vec      `yaml:"origin,omitempty"`
	Direction Vec      `yaml:"direction,omitempty"`
	Closest   bool     `yaml:"closest,omitempty"`
	SegMin    *float32 `yaml:"seg_min,omitempty"`
	SegMax    *float32 `yaml:"seg_max,omitempty"`

	Center Vec     `yaml:"center,omitempty"`
	Radius float32 `yaml:"radius,omitempty"`
}

// String returns a short description used in reports.
func (q QuerySpec) String() string {
	switch q.Type {
	case QueryCollision:
		return fmt.Sprintf("collision %s/%s", q.A, q.B)
	case QueryRay:
		return fmt.Sprintf("ray %s", q.Mesh)
	case QuerySphere:
		return fmt.Sprintf("sphere %s", q.Mesh)
	default:
		return q.Type
	}
}

// Document is a parsed scene file.
type Document struct {
	Meshes  []MeshSpec  `yaml:"meshes"`
	Queries []QuerySpec `yaml:"queries"`

	// dir resolves relative OFF paths; empty for parsed byte slices.
	dir string
}

// Load reads and parses a scene file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scene")
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "scene %s", path)
	}
	doc.dir = filepath.Dir(path)
	return doc, nil
}

// Parse decodes a scene document. Unknown keys are errors.
func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parse scene")
	}
	return doc, nil
}

// Mesh returns the spec of the named mesh.
func (d *Document) Mesh(name string) (MeshSpec, bool) {
	for _, m := range d.Meshes {
		if m.Name == name {
			return m, true
		}
	}
	return MeshSpec{}, false
}

// Validate reports every problem in the document at once.
func (d *Document) Validate() error {
	var err error
	if len(d.Meshes) == 0 {
		err = multierr.Append(err, errors.New("scene has no meshes"))
	}

	seen := make(map[string]bool, len(d.Meshes))
	for i, m := range d.Meshes {
		if m.Name == "" {
			err = multierr.Append(err, errors.Errorf("mesh %d: missing name", i))
		} else if seen[m.Name] {
			err = multierr.Append(err, errors.Errorf("mesh %q: duplicate name", m.Name))
		}
		seen[m.Name] = true
		err = multierr.Append(err, m.validate())
	}

	for i, q := range d.Queries {
		err = multierr.Append(err, q.validate(i, seen))
	}
	return err
}

func (m MeshSpec) validate() error {
	var err error
	fail := func(format string, args ...any) {
		err = multierr.Append(err, errors.Errorf("mesh %q: "+format, append([]any{m.Name}, args...)...))
	}

	switch m.Shape {
	case ShapeBox:
		if m.Size[0] <= 0 || m.Size[1] <= 0 || m.Size[2] <= 0 {
			fail("box size must be positive, got %v", m.Size)
		}
	case ShapeGrid:
		if m.Cells < 1 {
			fail("grid needs at least one cell, got %d", m.Cells)
		}
		if m.Extent <= 0 {
			fail("grid extent must be positive, got %v", m.Extent)
		}
	case ShapeSphere:
		if m.Radius <= 0 {
			fail("sphere radius must be positive, got %v", m.Radius)
		}
	case ShapeTriangles:
		if len(m.Triangles) == 0 {
			fail("no triangles given")
		}
	case ShapeOFF:
		if m.File == "" {
			fail("off shape needs a file")
		}
	default:
		fail("unknown shape %q", m.Shape)
	}
	return err
}

func (q QuerySpec) validate(i int, meshes map[string]bool) error {
	var err error
	fail := func(format string, args ...any) {
		err = multierr.Append(err, errors.Errorf("query %d (%s): "+format, append([]any{i, q.Type}, args...)...))
	}
	ref := func(field, name string) {
		if name == "" {
			fail("missing %s", field)
		} else if !meshes[name] {
			fail("%s refers to unknown mesh %q", field, name)
		}
	}

	switch q.Type {
	case QueryCollision:
		ref("a", q.A)
		ref("b", q.B)
		if q.MaxTime < 0 {
			fail("max_time must not be negative")
		}
	case QueryRay:
		ref("mesh", q.Mesh)
		if q.Direction == (Vec{}) {
			fail("direction must not be zero")
		}
	case QuerySphere:
		ref("mesh", q.Mesh)
		if q.Radius < 0 {
			fail("radius must not be negative")
		}
	default:
		fail("unknown query type")
	}
	return err
}
