package spatial

import (
	"github.com/chazu/stagehand/pkg/kernel"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultHeight is used for objects that declare no height.
const DefaultHeight = 0.5

// Shaper builds the world-space solid of a placement.
type Shaper struct {
	Kernel        kernel.Kernel
	Footprint     *placement.FootprintResolver
	DefaultHeight float64
}

// Solid returns the placement's shape in world space: a box when dimensions
// are declared, otherwise an upright cylinder of the footprint radius.
func (s Shaper) Solid(p *placement.Placement) kernel.Solid {
	h := p.Height(s.defaultHeight())
	var solid kernel.Solid
	if d := p.Meta.Dimensions; d != nil && d.Width > 0 && d.Depth > 0 {
		solid = s.Kernel.Box(d.Width, h, d.Depth)
	} else {
		solid = s.Kernel.Cylinder(h, s.Footprint.Radius(p))
	}
	if p.Rotation != 0 {
		solid = s.Kernel.RotateY(solid, p.Rotation)
	}
	return s.Kernel.Translate(solid, p.Position.X, p.Position.Y, p.Position.Z)
}

// Bounds returns the world bounding box of the placement.
func (s Shaper) Bounds(p *placement.Placement) sdf.Box3 {
	return toBox3(s.Solid(p))
}

func (s Shaper) defaultHeight() float64 {
	if s.DefaultHeight > 0 {
		return s.DefaultHeight
	}
	return DefaultHeight
}

func toBox3(s kernel.Solid) sdf.Box3 {
	lo, hi := s.BoundingBox()
	return sdf.Box3{
		Min: v3.Vec{X: lo[0], Y: lo[1], Z: lo[2]},
		Max: v3.Vec{X: hi[0], Y: hi[1], Z: hi[2]},
	}
}
