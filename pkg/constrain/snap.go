package constrain

import (
	"math"

	"github.com/chazu/stagehand/pkg/geom"
)

// Snap quantizes candidate X and Z to a grid. A non-positive increment
// disables snapping.
type Snap struct {
	Increment float64
}

// Enabled reports whether snapping changes positions.
func (s Snap) Enabled() bool {
	return s.Increment > 0
}

// Apply rounds p.X and p.Z to the nearest multiple of the increment.
func (s Snap) Apply(p geom.Vec3) geom.Vec3 {
	if !s.Enabled() {
		return p
	}
	p.X = snapValue(p.X, s.Increment)
	p.Z = snapValue(p.Z, s.Increment)
	return p
}

func snapValue(v, inc float64) float64 {
	// Round on a millimetre grid afterwards so 0.1 increments stay exact.
	return geom.Round(math.Round(v/inc)*inc, 6)
}
