package main

import (
	"fmt"
	gomath "math"
	"time"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"go.uber.org/zap"

	"github.com/Faultbox/coldet/internal/config"
	"github.com/Faultbox/coldet/internal/logger"
	"github.com/Faultbox/coldet/pkg/coldet"
	"github.com/Faultbox/coldet/pkg/math"
)

// benchGrid builds a finalized grid mesh; construction of generated shapes
// cannot fail.
func benchGrid(cfg *config.Config, name string, static bool) *coldet.Mesh {
	m := coldet.NewMesh(static,
		coldet.WithName(name),
		coldet.WithLeafSize(cfg.Collision.LeafSize),
		coldet.WithLogger(logger.Named("mesh")),
	)
	essentials.Must(m.AddTriangles(coldet.GridTriangles(cfg.Bench.GridSize, 2)))
	essentials.Must(m.Finalize())
	return m
}

func cmdBench(cfg *config.Config, args []string) error {
	if len(args) > 0 {
		return errors.Errorf("bench takes no arguments, got %v", args)
	}

	n := cfg.Bench.GridSize
	build := time.Now()
	floor := benchGrid(cfg, "floor", true)
	wall := benchGrid(cfg, "wall", false)
	buildTime := time.Since(build)

	// Perpendicular grids crossing through the middle of the floor, nudged
	// off the grid lines.
	wall.SetTransform(math.Translate(0.013, 0.011, 0.017).Mul(math.RotateX(gomath.Pi / 2)))

	var (
		collideTime, rayTime, sphereTime time.Duration
		hits, timeouts                   int
	)
	for i := 0; i < cfg.Bench.Iterations; i++ {
		start := time.Now()
		res, err := floor.CollidesWith(wall, coldet.WithMaxTime(cfg.Collision.MaxTime))
		collideTime += time.Since(start)
		switch {
		case errors.Is(err, coldet.ErrTimeout):
			timeouts++
		case err != nil:
			return err
		case res.Hit:
			hits++
		}

		// Rays straight down through a spread of floor positions.
		f := float32(i%97)/97*1.8 - 0.9
		start = time.Now()
		if _, err := floor.RayCast(math.Vec3{X: f, Y: -f * 0.5, Z: 5}, math.Vec3{Z: -1}, coldet.WithClosest(true)); err != nil {
			return err
		}
		rayTime += time.Since(start)

		start = time.Now()
		if _, err := floor.SphereCast(math.Vec3{X: f, Y: f * 0.3, Z: 0.05}, 0.1); err != nil {
			return err
		}
		sphereTime += time.Since(start)
	}

	iters := cfg.Bench.Iterations
	logger.Info("bench finished",
		zap.Int("grid_size", n),
		zap.Int("triangles", floor.TriangleCount()),
		zap.Int("iterations", iters),
		zap.Duration("build", buildTime),
		zap.Duration("collide_avg", elapsedPer(collideTime, iters)),
		zap.Duration("ray_avg", elapsedPer(rayTime, iters)),
		zap.Duration("sphere_avg", elapsedPer(sphereTime, iters)),
		zap.Int("hits", hits),
		zap.Int("timeouts", timeouts),
	)

	fmt.Printf("%dx%d grids (%d triangles each), %d iterations\n\n", n, n, floor.TriangleCount(), iters)
	printRow("build (both meshes)", buildTime)
	printRow("CollidesWith", elapsedPer(collideTime, iters))
	printRow("RayCast closest", elapsedPer(rayTime, iters))
	printRow("SphereCast", elapsedPer(sphereTime, iters))
	printCounts(hits, timeouts, iters)
	return nil
}

func printRow(label string, d time.Duration) {
	fmt.Printf("  %-22s %v\n", label, d)
}

func printCounts(hits, timeouts, iters int) {
	fmt.Printf("\n  hits %d, timeouts %d of %d collision queries\n", hits, timeouts, iters)
}
