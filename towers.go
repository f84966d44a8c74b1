package server

import (
	"math"

	"gridvoice/server/internal/world"
)

// Tower is a static radio tower with a coverage radius in meters.
type Tower struct {
	Position world.Vec3
	Radius   float64
}

// TowerGrid answers signal degradation queries against the configured tower
// set. An empty grid disables tower gating entirely: every transmission is
// treated as perfectly covered.
type TowerGrid struct {
	towers []Tower
}

// NewTowerGrid builds a grid from the deployment's tower list.
func NewTowerGrid(towers []Tower) TowerGrid {
	return TowerGrid{towers: towers}
}

// Configured reports whether any towers exist in this deployment.
func (g TowerGrid) Configured() bool {
	return len(g.towers) > 0
}

// Nearest returns the distance to and radius of the closest tower whose
// coverage includes pos. ok is false when no tower is in range.
func (g TowerGrid) Nearest(pos world.Vec3) (distance, radius float64, ok bool) {
	best := math.Inf(1)
	for _, tower := range g.towers {
		d := tower.Position.DistanceTo(pos)
		if d >= tower.Radius {
			continue
		}
		if d < best {
			best = d
			radius = tower.Radius
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return best, radius, true
}

// ErrorLevel computes the signal degradation at pos against the nearest
// in-range tower. ok is false when pos is outside all coverage, in which
// case tower-gated transmissions from there are dropped.
func (g TowerGrid) ErrorLevel(pos world.Vec3) (float64, bool) {
	distance, radius, ok := g.Nearest(pos)
	if !ok {
		return 0, false
	}
	return signalErrorLevel(distance, radius), true
}

// LevelForDistance maps an announced distance to the nearest tower into a
// degradation level against the grid's widest coverage radius, for callers
// that only know the distance. ok is false for negative distances, which
// mean the announcer saw no tower in range.
func (g TowerGrid) LevelForDistance(distance float64) (float64, bool) {
	if distance < 0 || len(g.towers) == 0 {
		return 0, false
	}
	widest := 0.0
	for _, tower := range g.towers {
		if tower.Radius > widest {
			widest = tower.Radius
		}
	}
	if distance >= widest {
		return 0, false
	}
	return signalErrorLevel(distance, widest), true
}

// signalErrorLevel maps a distance inside a tower's coverage to a
// degradation level in [0,1]. Zero at the tower, rising logarithmically
// toward the coverage edge.
func signalErrorLevel(distance, maxDistance float64) float64 {
	if maxDistance <= 0 {
		return 1
	}
	return clamp(math.Log10(1+8.5*distance/maxDistance), 0, 1)
}

func clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}
