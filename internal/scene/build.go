package scene

import (
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"
	"go.uber.org/zap"

	"github.com/Faultbox/coldet/pkg/coldet"
	"github.com/Faultbox/coldet/pkg/math"
)

// BuildOptions configures the meshes created by Build.
type BuildOptions struct {
	LeafSize int
	Logger   *zap.Logger
	Clock    clock.Clock
}

// Build validates the document and creates, finalizes and places every mesh.
func (d *Document) Build(opts BuildOptions) (*World, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	w := &World{
		meshes:  make(map[string]*coldet.Mesh, len(d.Meshes)),
		specs:   make(map[string]MeshSpec, len(d.Meshes)),
		queries: d.Queries,
		clock:   opts.Clock,
		log:     opts.Logger,
	}
	for _, spec := range d.Meshes {
		tris, err := d.triangles(spec)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %q", spec.Name)
		}

		m := coldet.NewMesh(spec.Static,
			coldet.WithName(spec.Name),
			coldet.WithLeafSize(opts.LeafSize),
			coldet.WithLogger(opts.Logger),
			coldet.WithClock(opts.Clock),
		)
		if err := m.AddTriangles(tris); err != nil {
			return nil, errors.Wrapf(err, "mesh %q", spec.Name)
		}
		if err := m.Finalize(); err != nil {
			return nil, errors.Wrapf(err, "mesh %q", spec.Name)
		}
		m.SetTransform(spec.Pose.Matrix())

		w.meshes[spec.Name] = m
		w.specs[spec.Name] = spec
		w.names = append(w.names, spec.Name)
	}

	opts.Logger.Debug("scene built",
		zap.Int("meshes", len(w.names)),
		zap.Int("queries", len(w.queries)),
	)
	return w, nil
}

// triangles generates or loads the local-space triangles of a mesh.
func (d *Document) triangles(spec MeshSpec) ([]coldet.Triangle, error) {
	switch spec.Shape {
	case ShapeBox:
		return coldet.BoxTriangles(spec.Size.Vec3()), nil
	case ShapeGrid:
		return coldet.GridTriangles(spec.Cells, spec.Extent), nil
	case ShapeSphere:
		rings, segments := spec.Rings, spec.Segments
		if rings == 0 {
			rings = 8
		}
		if segments == 0 {
			segments = 12
		}
		return coldet.SphereTriangles(spec.Radius, rings, segments), nil
	case ShapeTriangles:
		tris := make([]coldet.Triangle, len(spec.Triangles))
		for i, t := range spec.Triangles {
			tris[i] = coldet.Triangle{
				V1: math.Vec3{X: t[0], Y: t[1], Z: t[2]},
				V2: math.Vec3{X: t[3], Y: t[4], Z: t[5]},
				V3: math.Vec3{X: t[6], Y: t[7], Z: t[8]},
			}
		}
		return tris, nil
	case ShapeOFF:
		path := spec.File
		if !filepath.IsAbs(path) && d.dir != "" {
			path = filepath.Join(d.dir, path)
		}
		return ReadOFF(path)
	}
	return nil, errors.Errorf("unknown shape %q", spec.Shape)
}

// ReadOFF loads the triangles of an OFF model file.
func ReadOFF(path string) ([]coldet.Triangle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open OFF model")
	}
	defer f.Close()

	raw, err := model3d.ReadOFF(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read OFF model %s", path)
	}
	if len(raw) == 0 {
		return nil, errors.Errorf("OFF model %s has no faces", path)
	}

	tris := make([]coldet.Triangle, len(raw))
	for i, t := range raw {
		tris[i] = coldet.Triangle{V1: vec3(t[0]), V2: vec3(t[1]), V3: vec3(t[2])}
	}
	return tris, nil
}

func vec3(c model3d.Coord3D) math.Vec3 {
	return math.Vec3{X: float32(c.X), Y: float32(c.Y), Z: float32(c.Z)}
}
