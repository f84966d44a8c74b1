package server

import (
	"testing"

	"gridvoice/server/internal/world"
)

func TestSignalErrorLevelProperties(t *testing.T) {
	if got := signalErrorLevel(0, 100); got != 0 {
		t.Fatalf("expected zero degradation at the tower, got %f", got)
	}
	prev := -1.0
	for d := 0.0; d < 100; d += 5 {
		level := signalErrorLevel(d, 100)
		if level < 0 || level > 1 {
			t.Fatalf("degradation %f out of bounds at distance %f", level, d)
		}
		if level < prev {
			t.Fatalf("degradation decreased from %f to %f at distance %f", prev, level, d)
		}
		prev = level
	}
}

func TestTowerGridNearestPicksClosestCoveringTower(t *testing.T) {
	grid := NewTowerGrid([]Tower{
		{Position: world.Vec3{X: 0}, Radius: 50},
		{Position: world.Vec3{X: 100}, Radius: 200},
	})
	distance, radius, ok := grid.Nearest(world.Vec3{X: 90})
	if !ok {
		t.Fatal("expected coverage at x=90")
	}
	if distance != 10 || radius != 200 {
		t.Fatalf("expected the x=100 tower (distance 10, radius 200), got distance %f radius %f", distance, radius)
	}
}

func TestTowerGridOutsideAllCoverage(t *testing.T) {
	grid := NewTowerGrid([]Tower{{Position: world.Vec3{}, Radius: 50}})
	if _, ok := grid.ErrorLevel(world.Vec3{X: 500}); ok {
		t.Fatal("expected no coverage far from the only tower")
	}
}

func TestTowerGridUnconfigured(t *testing.T) {
	grid := NewTowerGrid(nil)
	if grid.Configured() {
		t.Fatal("empty grid reported as configured")
	}
	if _, ok := grid.LevelForDistance(10); ok {
		t.Fatal("empty grid accepted an announced distance")
	}
}

func TestLevelForDistanceRejectsNegative(t *testing.T) {
	grid := NewTowerGrid([]Tower{{Radius: 100}})
	if _, ok := grid.LevelForDistance(-1); ok {
		t.Fatal("negative announced distance must mean no coverage")
	}
	if level, ok := grid.LevelForDistance(0); !ok || level != 0 {
		t.Fatalf("expected perfect signal at the tower, got %f ok=%v", level, ok)
	}
}
