package surface_test

import (
	"github.com/chazu/stagehand/pkg/kernel/sdfx"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/chazu/stagehand/pkg/spatial"
)

func newShaper() spatial.Shaper {
	return spatial.Shaper{Kernel: sdfx.New(0), Footprint: placement.NewFootprintResolver()}
}
