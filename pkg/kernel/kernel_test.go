package kernel

import (
	"errors"
	"testing"
)

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
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

// --- Mesh bounds ---

func TestMeshBounds(t *testing.T) {
	m := &Mesh{Vertices: []float32{1, -2, 3, -1, 4, 0, 0, 0, 5}}
	min, max := m.Bounds()
	if min != [3]float32{-1, -2, 0} {
		t.Errorf("Bounds min = %v, want [-1 -2 0]", min)
	}
	if max != [3]float32{1, 4, 5} {
		t.Errorf("Bounds max = %v, want [1 4 5]", max)
	}

	empty := &Mesh{}
	if lo, hi := empty.Bounds(); lo != ([3]float32{}) || hi != ([3]float32{}) {
		t.Errorf("empty Bounds = %v %v", lo, hi)
	}
}

// --- Build with a stub kernel ---

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	kind         string
	minBB, maxBB [3]float64
	cut          *stubSolid
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

// stubKernel records what Build asked for.
type stubKernel struct{}

func (k *stubKernel) Box(x, y, z float64) (Solid, error) {
	return &stubSolid{
		kind:  "box",
		minBB: [3]float64{-x / 2, -y / 2, -z / 2},
		maxBB: [3]float64{x / 2, y / 2, z / 2},
	}, nil
}

func (k *stubKernel) Sphere(r float64) (Solid, error) {
	return &stubSolid{kind: "sphere", minBB: [3]float64{-r, -r, -r}, maxBB: [3]float64{r, r, r}}, nil
}

func (k *stubKernel) Cylinder(height, radius float64) (Solid, error) {
	return &stubSolid{
		kind:  "cylinder",
		minBB: [3]float64{-radius, -radius, -height / 2},
		maxBB: [3]float64{radius, radius, height / 2},
	}, nil
}

func (k *stubKernel) Union(a, _ Solid) Solid { return a }

func (k *stubKernel) Difference(a, b Solid) Solid {
	out := *a.(*stubSolid)
	out.cut = b.(*stubSolid)
	return &out
}

func (k *stubKernel) ToMesh(_ Solid) (*Mesh, error) {
	return &Mesh{}, nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestBuildShapes(t *testing.T) {
	k := &stubKernel{}
	tests := []struct {
		shape Shape
		kind  string
	}{
		{Shape{Kind: "box", Size: [3]float64{1, 2, 3}}, "box"},
		{Shape{Kind: "sphere", Radius: 1}, "sphere"},
		{Shape{Kind: "cylinder", Radius: 1, Height: 2}, "cylinder"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			s, err := Build(k, tt.shape)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got := s.(*stubSolid).kind; got != tt.kind {
				t.Errorf("kind = %q, want %q", got, tt.kind)
			}
		})
	}
}

func TestBuildHoleUsesDifference(t *testing.T) {
	s, err := Build(&stubKernel{}, Shape{Kind: "box", Size: [3]float64{4, 4, 2}, Hole: 0.5})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	cut := s.(*stubSolid).cut
	if cut == nil || cut.kind != "cylinder" {
		t.Fatalf("expected a cylinder cut, got %+v", cut)
	}
	// The drill must be taller than the part.
	if cut.maxBB[2] <= 1 {
		t.Errorf("drill half height = %g, want > 1", cut.maxBB[2])
	}
}

func TestBuildUnknownShape(t *testing.T) {
	_, err := Build(&stubKernel{}, Shape{Kind: "teapot"})
	if !errors.Is(err, ErrBadShape) {
		t.Errorf("Build(teapot) error = %v, want ErrBadShape", err)
	}
}
