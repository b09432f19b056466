// Package tessellate produces render meshes for a scene using a geometry
// kernel. One mesh is produced per placement, in world space.
package tessellate

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/stagehand/pkg/kernel"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/chazu/stagehand/pkg/spatial"
)

// Tessellate builds one mesh per placement, in the order given. Meshing runs
// concurrently; the placements are only read.
func Tessellate(ctx context.Context, ps []*placement.Placement, sh spatial.Shaper) ([]*kernel.Mesh, error) {
	if len(ps) == 0 {
		return nil, nil
	}

	meshes := make([]*kernel.Mesh, len(ps))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, p := range ps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := Placement(p, sh)
			if err != nil {
				return err
			}
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return meshes, nil
}

// Placement builds the world-space mesh of a single placement.
func Placement(p *placement.Placement, sh spatial.Shaper) (*kernel.Mesh, error) {
	mesh, err := sh.Kernel.ToMesh(sh.Solid(p))
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for placement %s: %w", p.ID, err)
	}
	mesh.PlacementID = p.ID.String()
	return mesh, nil
}
