// Package kernel defines the abstract geometry kernel used to give placements
// and the venue a solid shape. The engine only needs world-space bounding
// boxes and, for the render snapshot, triangle meshes; the sdfx
// implementation provides both.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
// Solids are created standing on the floor (y=0) and centred on X and Z, so
// a placement's shape is obtained by RotateY followed by Translate to its
// position.
type Kernel interface {
	// Primitives
	Box(width, height, depth float64) Solid
	Cylinder(height, radius float64) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	RotateY(s Solid, degrees float64) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
