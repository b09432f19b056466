// Package collision decides whether a candidate position illegally overlaps
// another floor-level placement. Footprints are circles on the XZ plane.
package collision

import (
	"log/slog"

	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/placement"
)

// Resolver tests candidate positions against the other placements.
type Resolver struct {
	Footprint    *placement.FootprintResolver
	Clearance    float64
	MinThreshold float64
	FloorEpsilon float64
}

// New returns a resolver with the default tolerances.
func New(fr *placement.FootprintResolver) *Resolver {
	return &Resolver{
		Footprint:    fr,
		Clearance:    placement.DefaultClearance,
		MinThreshold: placement.DefaultMinThreshold,
		FloorEpsilon: placement.DefaultFloorEpsilon,
	}
}

// Test reports whether moving movingID to candidate, with footprint radius
// candidateRadius, is blocked by another placement.
//
// Only floor-versus-floor overlaps block. When the moving object is elevated,
// or the other object is above the floor, vertical separation is left to
// surface attachment.
func (r *Resolver) Test(candidate geom.Vec3, candidateRadius float64, movingID placement.ID, all []*placement.Placement, movingIsElevated bool) bool {
	if movingIsElevated {
		return false
	}
	for _, other := range all {
		if other.ID == movingID {
			continue
		}
		limit := placement.OverlapThreshold(candidateRadius, r.Footprint.Radius(other), r.Clearance, r.MinThreshold)
		if geom.PlanarDistance(candidate, other.Position) >= limit {
			continue
		}
		if other.Position.Y < r.FloorEpsilon && candidate.Y < r.FloorEpsilon {
			slog.Debug("Collision blocked move", "moving", movingID, "other", other.ID)
			return true
		}
	}
	return false
}

// IsElevated reports whether a placement at height y is above the floor.
func (r *Resolver) IsElevated(y float64) bool {
	return y >= r.FloorEpsilon
}
