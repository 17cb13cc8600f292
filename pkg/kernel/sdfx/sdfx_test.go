package sdfx

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/vrexport/pkg/kernel"
)

// testCells keeps marching cubes fast in tests.
const testCells = 24

func mustMesh(t *testing.T, k *SdfxKernel, s kernel.Solid, err error) *kernel.Mesh {
	t.Helper()
	if err != nil {
		t.Fatalf("primitive failed: %v", err)
	}
	mesh, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}
	return mesh
}

func TestBoxIsCentered(t *testing.T) {
	k := New(testCells)
	box, err := k.Box(2, 4, 6)
	mesh := mustMesh(t, k, box, err)

	min, max := mesh.Bounds()
	for i, half := range []float32{1, 2, 3} {
		if math.Abs(float64(min[i]+half)) > 0.3 || math.Abs(float64(max[i]-half)) > 0.3 {
			t.Errorf("axis %d bounds = [%g, %g], want about ±%g", i, min[i], max[i], half)
		}
	}
}

func TestSphere(t *testing.T) {
	k := New(testCells)
	s, err := k.Sphere(1)
	mesh := mustMesh(t, k, s, err)

	// Every vertex lies near the unit sphere.
	for i := 0; i+2 < len(mesh.Vertices); i += 3 {
		x, y, z := mesh.Vertices[i], mesh.Vertices[i+1], mesh.Vertices[i+2]
		r := math.Sqrt(float64(x*x + y*y + z*z))
		if math.Abs(r-1) > 0.15 {
			t.Fatalf("vertex %d at radius %g", i/3, r)
		}
	}
}

func TestCylinder(t *testing.T) {
	k := New(testCells)
	cyl, err := k.Cylinder(2, 0.5)
	mesh := mustMesh(t, k, cyl, err)
	t.Logf("cylinder triangle count: %d", mesh.TriangleCount())
}

func TestDifferenceAddsTriangles(t *testing.T) {
	k := New(testCells)

	box, err := k.Box(2, 2, 2)
	boxMesh := mustMesh(t, k, box, err)

	cyl, err := k.Cylinder(3, 0.4)
	if err != nil {
		t.Fatal(err)
	}
	diffMesh := mustMesh(t, k, k.Difference(box, cyl), nil)

	// A box with a hole should have more triangles than a plain box.
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
}

func TestUnionBoundingBox(t *testing.T) {
	k := New(testCells)
	a, _ := k.Sphere(1)
	b, _ := k.Box(4, 0.5, 0.5)
	min, max := k.Union(a, b).BoundingBox()
	if min[0] > -1.99 || max[0] < 1.99 {
		t.Errorf("union x extent = [%g, %g], want about ±2", min[0], max[0])
	}
}

func TestInvalidDimensions(t *testing.T) {
	k := New(0)
	if k.Cells() != DefaultMeshCells {
		t.Errorf("Cells() = %d, want default %d", k.Cells(), DefaultMeshCells)
	}
	if _, err := k.Box(0, 1, 1); !errors.Is(err, kernel.ErrBadShape) {
		t.Errorf("Box(0,1,1) error = %v", err)
	}
	if _, err := k.Sphere(-1); !errors.Is(err, kernel.ErrBadShape) {
		t.Errorf("Sphere(-1) error = %v", err)
	}
	if _, err := k.Cylinder(1, 0); !errors.Is(err, kernel.ErrBadShape) {
		t.Errorf("Cylinder(1,0) error = %v", err)
	}
}
