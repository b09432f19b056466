package kernel

// Mesh is a flat triangle mesh in world space, ready for the frontend: three
// floats per vertex and per normal, three indices per triangle.
type Mesh struct {
	Vertices    []float32 `json:"vertices"`
	Normals     []float32 `json:"normals"`
	Indices     []uint32  `json:"indices"`
	PlacementID string    `json:"placementId"`
}

func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Bounds returns the axis-aligned extent of the vertices. ok is false for an
// empty mesh.
func (m *Mesh) Bounds() (lo, hi [3]float32, ok bool) {
	if m.VertexCount() == 0 {
		return lo, hi, false
	}
	copy(lo[:], m.Vertices[:3])
	hi = lo
	for i := 3; i+2 < len(m.Vertices); i += 3 {
		for a := 0; a < 3; a++ {
			lo[a] = min(lo[a], m.Vertices[i+a])
			hi[a] = max(hi[a], m.Vertices[i+a])
		}
	}
	return lo, hi, true
}
