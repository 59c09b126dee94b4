// coldet is a CLI for running collision queries over YAML scenes and
// benchmarking the collision engine.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/coldet/internal/config"
	"github.com/Faultbox/coldet/internal/logger"
	"github.com/Faultbox/coldet/internal/scene"
)

func main() {
	config.ParseFlags()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}
	command := flag.Arg(0)
	args := flag.Args()[1:]

	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case "check":
		err = cmdCheck(cfg, args)
	case "info":
		err = cmdInfo(cfg, args)
	case "bench":
		err = cmdBench(cfg, args)
	case "sweep":
		err = cmdSweep(cfg, args)
	case "init":
		err = cmdInit(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		logger.Sync()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Sync()
}

func printUsage() {
	fmt.Println(`coldet - triangle mesh collision detection

Usage:
  coldet [flags] <command> [options]

Commands:
  check <scene.yaml>                 Run every query of a scene
  info <scene.yaml>                  Show meshes and tree statistics
  bench                              Time queries between two dense grids
  sweep <scene.yaml> <a> <b>         Move b towards a target pose in steps
  init [-o file] [-force]            Write the effective config to a file

Flags:
  -config <file>      Config file (default ./coldet.yaml or user config dir)
  -debug              Enable debug logging
  -max-time <dur>     Collision query time budget, e.g. 20ms
  -leaf-size <n>      Triangles per tree leaf
  -timeout-as-hit     Report timed out collision queries as hits

Examples:
  coldet check scene.yaml
  coldet -max-time 5ms check scene.yaml
  coldet sweep -steps 20 -to 0,0,-2 scene.yaml floor ball
  coldet -max-time 5ms init -o coldet.yaml`)
}

func loadWorld(cfg *config.Config, path string) (*scene.Document, *scene.World, error) {
	doc, err := scene.Load(path)
	if err != nil {
		return nil, nil, err
	}
	w, err := doc.Build(scene.BuildOptions{
		LeafSize: cfg.Collision.LeafSize,
		Logger:   logger.Named("mesh"),
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("scene loaded",
		zap.String("path", path),
		zap.Int("meshes", len(w.Names())),
		zap.Int("queries", len(w.Queries())),
	)
	return doc, w, nil
}

func cmdCheck(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: coldet check <scene.yaml>")
	}

	_, w, err := loadWorld(cfg, args[0])
	if err != nil {
		return err
	}

	outs, err := w.RunAll(cfg.Collision.MaxTime)
	if err != nil {
		return err
	}

	hits := 0
	for i, out := range outs {
		fmt.Printf("%3d  %-28s %s\n", i, out.Query, describe(out, cfg.Collision.TimeoutAsHit))
		if out.TimedOut {
			logger.Warn("query timed out",
				zap.Int("query", i),
				zap.Stringer("spec", out.Query),
				zap.Duration("budget", cfg.Collision.MaxTime),
				zap.Bool("treated_as_hit", cfg.Collision.TimeoutAsHit),
			)
		}
		if out.Hit || (out.TimedOut && cfg.Collision.TimeoutAsHit) {
			hits++
		}
	}
	fmt.Printf("\n%d of %d queries hit\n", hits, len(outs))
	return nil
}

func describe(out scene.Outcome, timeoutAsHit bool) string {
	switch {
	case out.TimedOut && timeoutAsHit:
		return fmt.Sprintf("timeout (treated as collision) after %v", out.Elapsed)
	case out.TimedOut:
		return fmt.Sprintf("timeout after %v", out.Elapsed)
	case !out.Hit:
		return fmt.Sprintf("miss (%v)", out.Elapsed)
	}

	p := out.Point
	s := fmt.Sprintf("HIT at (%.4f, %.4f, %.4f) tri %d", p.X, p.Y, p.Z, out.Index1)
	if out.Index2 >= 0 {
		s += fmt.Sprintf("/%d", out.Index2)
	}
	if out.Query.Type == scene.QueryRay {
		s += fmt.Sprintf(" dist %.4f", out.Distance)
	}
	return s + fmt.Sprintf(" (%v)", out.Elapsed)
}

func cmdInfo(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: coldet info <scene.yaml>")
	}

	doc, w, err := loadWorld(cfg, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Scene:   %s\n", args[0])
	fmt.Printf("Meshes:  %d\n", len(w.Names()))
	fmt.Printf("Queries: %d\n", len(doc.Queries))
	fmt.Println()

	for _, name := range w.Names() {
		m, _ := w.Mesh(name)
		spec, _ := w.Spec(name)
		b, err := m.Bounds()
		if err != nil {
			return err
		}
		st, err := m.Stats()
		if err != nil {
			return err
		}

		kind := "dynamic"
		if m.IsStatic() {
			kind = "static"
		}
		fmt.Printf("%s (%s, %s)\n", name, spec.Shape, kind)
		fmt.Printf("  triangles: %d\n", m.TriangleCount())
		fmt.Printf("  radius:    %.4f\n", m.Radius())
		fmt.Printf("  bounds:    (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n",
			b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
		fmt.Printf("  tree:      %d nodes, %d leaves, depth %d/%d, largest leaf %d\n",
			st.Nodes, st.Leaves, st.MaxDepth, st.DepthBudget, st.MaxLeafSize)
	}
	return nil
}

func cmdSweep(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	steps := fs.Int("steps", 10, "Number of intervals between start and target pose")
	to := fs.String("to", "0,0,0", "Target position x,y,z")
	axis := fs.String("axis", "0,0,0", "Target rotation axis x,y,z")
	angle := fs.Float64("angle", 0, "Target rotation angle in degrees")
	fs.Parse(args)

	if fs.NArg() < 3 {
		return fmt.Errorf("usage: coldet sweep [options] <scene.yaml> <a> <b>")
	}

	pos, err := parseVec(*to)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}
	ax, err := parseVec(*axis)
	if err != nil {
		return fmt.Errorf("-axis: %w", err)
	}

	_, w, err := loadWorld(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	a, b := fs.Arg(1), fs.Arg(2)
	target := scene.Pose{Position: pos, Axis: ax, Angle: float32(*angle)}
	res, err := w.Sweep(a, b, target, *steps, cfg.Collision.MaxTime)
	if err != nil {
		return err
	}

	if res.Step < 0 {
		fmt.Printf("%s stays clear of %s over %d steps\n", b, a, res.Steps)
		return nil
	}
	fmt.Printf("%s meets %s at step %d/%d (t=%.3f): %s\n",
		b, a, res.Step, res.Steps, res.T, describe(res.Outcome, cfg.Collision.TimeoutAsHit))
	return nil
}

func cmdInit(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	out := fs.String("o", "", "Output file (default: user config dir)")
	force := fs.Bool("force", false, "Overwrite an existing file")
	fs.Parse(args)

	path, err := writeConfig(cfg, *out, *force)
	if err != nil {
		return err
	}
	logger.Sugar.Infof("config written to %s", path)
	fmt.Println(path)
	return nil
}

// writeConfig saves cfg to path, or to the user config dir when path is
// empty, and returns where it went. Existing files are kept unless force.
func writeConfig(cfg *config.Config, path string, force bool) (string, error) {
	if path == "" {
		path = config.DefaultPath()
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists, use -force to overwrite", path)
		}
	}
	if err := cfg.SaveTo(path); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}

// parseVec parses "x,y,z".
func parseVec(s string) (scene.Vec, error) {
	var v scene.Vec
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("want x,y,z, got %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}

// elapsedPer returns the mean duration of n runs.
func elapsedPer(total time.Duration, n int) time.Duration {
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}
