package constrain

import (
	"math"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/stagehand/pkg/geom"
)

// DefaultMargin is how far the venue bounds are pulled in from the walls.
const DefaultMargin = 0.05

// Bounds is the axis-aligned interactive volume. Min.Y is the floor.
type Bounds struct {
	Min geom.Vec3 `json:"min"`
	Max geom.Vec3 `json:"max"`
}

// FromEnvironment derives the interactive volume from the world extent of
// the loaded environment, shrunk on X and Z by margin on every side.
func FromEnvironment(env sdf.Box3, margin float64) Bounds {
	b := Bounds{
		Min: geom.Vec3{X: env.Min.X + margin, Y: env.Min.Y, Z: env.Min.Z + margin},
		Max: geom.Vec3{X: env.Max.X - margin, Y: env.Max.Y, Z: env.Max.Z - margin},
	}
	// A margin wider than the room collapses the axis to its centre.
	if b.Min.X > b.Max.X {
		c := (env.Min.X + env.Max.X) / 2
		b.Min.X, b.Max.X = c, c
	}
	if b.Min.Z > b.Max.Z {
		c := (env.Min.Z + env.Max.Z) / 2
		b.Min.Z, b.Max.Z = c, c
	}
	return b
}

// Box returns the bounds as an sdfx box.
func (b Bounds) Box() sdf.Box3 {
	return sdf.Box3{Min: b.Min.V3(), Max: b.Max.V3()}
}

// Clamp pulls p inside the volume so that a footprint of the given radius
// stays within it. Y is only held above the floor.
func (b Bounds) Clamp(p geom.Vec3, radius float64) geom.Vec3 {
	p.X = clampAxis(p.X, b.Min.X, b.Max.X, radius)
	p.Z = clampAxis(p.Z, b.Min.Z, b.Max.Z, radius)
	if p.Y < b.Min.Y {
		p.Y = b.Min.Y
	}
	return p
}

// Contains reports whether a footprint of radius at p lies inside the volume.
func (b Bounds) Contains(p geom.Vec3, radius float64) bool {
	return b.Clamp(p, radius) == p
}

func clampAxis(v, lo, hi, radius float64) float64 {
	lo, hi = lo+radius, hi-radius
	if lo > hi {
		// Footprint wider than the room: centre it.
		return (lo + hi) / 2
	}
	return math.Min(math.Max(v, lo), hi)
}
