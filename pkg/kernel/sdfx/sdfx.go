// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/stagehand/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 64

// minExtent keeps degenerate dimensions from producing an invalid SDF.
const minExtent = 1e-3

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Box3 returns the bounding box of a solid produced by this kernel in sdfx
// form.
func Box3(s kernel.Solid) sdf.Box3 {
	return unwrap(s).BoundingBox()
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	meshCells int
}

// New returns a new SdfxKernel. cells sets the marching cubes resolution
// used by ToMesh; values <= 0 select DefaultMeshCells.
func New(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{meshCells: cells}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

func extent(v float64) float64 {
	if math.IsNaN(v) || v < minExtent {
		return minExtent
	}
	return v
}

// Box creates a box standing on the floor: centred on X and Z with its
// bottom face at y=0. sdf.Box3D centres the box at the origin, so we lift it
// by half its height.
func (k *SdfxKernel) Box(width, height, depth float64) kernel.Solid {
	width, height, depth = extent(width), extent(height), extent(depth)
	s, err := sdf.Box3D(v3.Vec{X: width, Y: height, Z: depth}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	m := sdf.Translate3d(v3.Vec{X: 0, Y: height / 2, Z: 0})
	return wrap(sdf.Transform3D(s, m))
}

// Cylinder creates an upright cylinder standing on the floor.
// sdf.Cylinder3D is centred and aligned with Z, so it is turned onto the
// Y axis and lifted by half its height.
func (k *SdfxKernel) Cylinder(height, radius float64) kernel.Solid {
	height, radius = extent(height), extent(radius)
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	m := sdf.Translate3d(v3.Vec{X: 0, Y: height / 2, Z: 0}).Mul(sdf.RotateX(math.Pi / 2))
	return wrap(sdf.Transform3D(s, m))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// RotateY turns a solid about the vertical axis. Positive angles carry +X
// towards +Z, matching geom.RotateXZ.
func (k *SdfxKernel) RotateY(s kernel.Solid, degrees float64) kernel.Solid {
	m := sdf.RotateY(-degrees * math.Pi / 180.0)
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(sdf3, renderer)
	if len(triangles) == 0 {
		return nil, fmt.Errorf("tessellation produced no triangles at %d cells", k.meshCells)
	}

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
