package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Faultbox/coldet/internal/config"
	"github.com/Faultbox/coldet/internal/scene"
	"github.com/Faultbox/coldet/pkg/math"
)

func TestParseVec(t *testing.T) {
	tests := []struct {
		in      string
		want    scene.Vec
		wantErr bool
	}{
		{"1,2,3", scene.Vec{1, 2, 3}, false},
		{" 0.5, -1 , 2e1", scene.Vec{0.5, -1, 20}, false},
		{"1,2", scene.Vec{}, true},
		{"a,b,c", scene.Vec{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseVec(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseVec(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseVec(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name         string
		out          scene.Outcome
		timeoutAsHit bool
		contains     string
	}{
		{"miss", scene.Outcome{}, false, "miss"},
		{"timeout", scene.Outcome{TimedOut: true}, false, "timeout after"},
		{"timeout as hit", scene.Outcome{TimedOut: true}, true, "treated as collision"},
		{
			name: "collision hit",
			out: scene.Outcome{
				Query:  scene.QuerySpec{Type: scene.QueryCollision},
				Hit:    true,
				Point:  math.Vec3{X: 1, Y: 2, Z: 3},
				Index1: 4, Index2: 7,
			},
			contains: "tri 4/7",
		},
		{
			name: "ray hit",
			out: scene.Outcome{
				Query:    scene.QuerySpec{Type: scene.QueryRay},
				Hit:      true,
				Index1:   2,
				Index2:   -1,
				Distance: 1.5,
				Elapsed:  time.Millisecond,
			},
			contains: "dist 1.5000",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describe(tt.out, tt.timeoutAsHit); !strings.Contains(got, tt.contains) {
				t.Errorf("describe() = %q, want it to contain %q", got, tt.contains)
			}
		})
	}
}

func TestElapsedPer(t *testing.T) {
	if got := elapsedPer(10*time.Millisecond, 4); got != 2500*time.Microsecond {
		t.Errorf("elapsedPer() = %v", got)
	}
	if got := elapsedPer(time.Second, 0); got != 0 {
		t.Errorf("elapsedPer() with zero runs = %v", got)
	}
}

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "coldet.yaml")

	cfg := config.Default()
	cfg.Collision.MaxTime = 5 * time.Millisecond
	cfg.Collision.TimeoutAsHit = true

	got, err := writeConfig(cfg, path, false)
	if err != nil {
		t.Fatalf("writeConfig() error = %v", err)
	}
	if got != path {
		t.Errorf("writeConfig() path = %s, want %s", got, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"max_time: 5ms", "timeout_as_hit: true"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("written config missing %q:\n%s", want, data)
		}
	}

	if _, err := writeConfig(cfg, path, false); err == nil {
		t.Error("writeConfig() overwrote an existing file without force")
	}

	cfg.Collision.TimeoutAsHit = false
	if _, err := writeConfig(cfg, path, true); err != nil {
		t.Fatalf("writeConfig(force) error = %v", err)
	}
	if data, err = os.ReadFile(path); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "timeout_as_hit: false") {
		t.Errorf("forced write kept the old file:\n%s", data)
	}
}
