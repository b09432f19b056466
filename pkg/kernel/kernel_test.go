package kernel

import "testing"

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	if !(&Mesh{}).IsEmpty() {
		t.Error("IsEmpty() = false for empty mesh, want true")
	}
	if (&Mesh{Vertices: []float32{1, 2, 3}}).IsEmpty() {
		t.Error("IsEmpty() = true for non-empty mesh, want false")
	}
}

func TestMeshBounds(t *testing.T) {
	if _, _, ok := (&Mesh{}).Bounds(); ok {
		t.Error("Bounds() ok = true for empty mesh, want false")
	}
	m := &Mesh{Vertices: []float32{1, 0, -2, -1, 0.75, 3, 0.5, 0.25, 0}}
	lo, hi, ok := m.Bounds()
	if !ok {
		t.Fatal("Bounds() ok = false for non-empty mesh")
	}
	if lo != [3]float32{-1, 0, -2} {
		t.Errorf("lo = %v, want [-1 0 -2]", lo)
	}
	if hi != [3]float32{1, 0.75, 3} {
		t.Errorf("hi = %v, want [1 0.75 3]", hi)
	}
}

// --- Compile-time interface check with a stub kernel ---

type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

// stubKernel proves the interface is satisfiable with trivial results.
type stubKernel struct{}

func (k *stubKernel) Box(w, h, d float64) Solid {
	return &stubSolid{minBB: [3]float64{-w / 2, 0, -d / 2}, maxBB: [3]float64{w / 2, h, d / 2}}
}

func (k *stubKernel) Cylinder(h, r float64) Solid {
	return &stubSolid{minBB: [3]float64{-r, 0, -r}, maxBB: [3]float64{r, h, r}}
}

func (k *stubKernel) Translate(s Solid, x, y, z float64) Solid {
	lo, hi := s.BoundingBox()
	return &stubSolid{
		minBB: [3]float64{lo[0] + x, lo[1] + y, lo[2] + z},
		maxBB: [3]float64{hi[0] + x, hi[1] + y, hi[2] + z},
	}
}

func (k *stubKernel) RotateY(s Solid, degrees float64) Solid { return s }

func (k *stubKernel) ToMesh(s Solid) (*Mesh, error) { return &Mesh{}, nil }

var _ Kernel = (*stubKernel)(nil)

func TestStubKernelTranslate(t *testing.T) {
	k := &stubKernel{}
	lo, hi := k.Translate(k.Box(2, 1, 2), 1, 0, 0).BoundingBox()
	if lo != [3]float64{0, 0, -1} || hi != [3]float64{2, 1, 1} {
		t.Errorf("BoundingBox() = %v %v, want [0 0 -1] [2 1 1]", lo, hi)
	}
}
