package tessellate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/chazu/vrexport/pkg/graph"
	"github.com/chazu/vrexport/pkg/kernel"
	"github.com/chazu/vrexport/pkg/kernel/sdfx"
	"github.com/chazu/vrexport/pkg/record"
	"github.com/chazu/vrexport/pkg/tessellate"
)

// newKernel returns a fast sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.New(16)
}

// makeMesh adds a GeomStaticMesh node with the given shape.
func makeMesh(t *testing.T, tr *graph.Tree, name, shape string) *graph.Node {
	t.Helper()
	n := tr.MustAddNode(graph.TypeGeomStaticMesh, name)
	if err := n.SetProp("shape", record.String(shape)); err != nil {
		t.Fatal(err)
	}
	return n
}

func sceneOf(trees ...*graph.Tree) *graph.Scene {
	s := graph.NewScene()
	for _, tr := range trees {
		s.AddTree(tr)
	}
	return s
}

func TestShapeOfDefaults(t *testing.T) {
	tr := graph.NewTree("T")
	n := tr.MustAddNode(graph.TypeGeomStaticMesh, "Mesh")
	sh, err := tessellate.ShapeOf(n)
	if err != nil {
		t.Fatal(err)
	}
	want := kernel.Shape{Kind: "box", Size: [3]float64{1, 1, 1}, Radius: 0.5, Height: 1}
	if sh != want {
		t.Errorf("ShapeOf = %+v, want %+v", sh, want)
	}

	if _, err := tessellate.ShapeOf(tr.MustAddNode(graph.TypeGeomPlane, "Plane")); err == nil {
		t.Error("expected error for non-mesh node")
	}
	n.Props["radius"] = record.String("big")
	if _, err := tessellate.ShapeOf(n); err == nil {
		t.Error("expected error for mistyped radius")
	}
}

func TestTessellateAllMeshes(t *testing.T) {
	tr := graph.NewTree("Main")
	box := makeMesh(t, tr, "Box", "box")
	ball := makeMesh(t, tr, "Ball", "sphere")

	table := tessellate.NewTable(newKernel())
	if err := tessellate.Tessellate(context.Background(), sceneOf(tr), table, 2, nil); err != nil {
		t.Fatal(err)
	}
	for _, n := range []*graph.Node{box, ball} {
		m, err := table.Mesh(n)
		if err != nil {
			t.Fatalf("%s: %v", n.Name, err)
		}
		if m.IsEmpty() {
			t.Errorf("%s: empty mesh", n.Name)
		}
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
}

func TestIdenticalShapesShareMesh(t *testing.T) {
	a := graph.NewTree("A")
	b := graph.NewTree("B")
	m1 := makeMesh(t, a, "Box", "box")
	m2 := makeMesh(t, b, "Box", "box")

	table := tessellate.NewTable(newKernel())
	if err := tessellate.Tessellate(context.Background(), sceneOf(a, b), table, 0, nil); err != nil {
		t.Fatal(err)
	}
	x, _ := table.Mesh(m1)
	y, _ := table.Mesh(m2)
	if x != y {
		t.Error("identical shapes were tessellated twice")
	}
	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
}

func TestGroupTreesAreVisited(t *testing.T) {
	sub := graph.NewTree("Sub")
	inner := makeMesh(t, sub, "Inner", "cylinder")
	main := graph.NewTree("Main")
	if _, err := main.AddGroup("G", sub); err != nil {
		t.Fatal(err)
	}

	nodes := tessellate.MeshNodes(sceneOf(main))
	if len(nodes) != 1 || nodes[0] != inner {
		t.Fatalf("MeshNodes = %v, want [Inner]", nodes)
	}
}

func TestFailedShapeIsReportedOnRequest(t *testing.T) {
	tr := graph.NewTree("T")
	bad := makeMesh(t, tr, "Bad", "teapot")

	table := tessellate.NewTable(newKernel())
	if err := tessellate.Tessellate(context.Background(), sceneOf(tr), table, 1, nil); err != nil {
		t.Fatalf("per-node failures must not fail the run: %v", err)
	}
	if _, err := table.Mesh(bad); !errors.Is(err, kernel.ErrBadShape) {
		t.Errorf("Mesh(bad) error = %v, want ErrBadShape", err)
	}
}

func TestLazyMesh(t *testing.T) {
	tr := graph.NewTree("T")
	n := makeMesh(t, tr, "Box", "box")
	table := tessellate.NewTable(newKernel())
	m, err := table.Mesh(n)
	if err != nil || m.IsEmpty() {
		t.Fatalf("lazy Mesh = %v, %v", m, err)
	}
}

func TestCancelledContext(t *testing.T) {
	tr := graph.NewTree("T")
	makeMesh(t, tr, "Box", "box")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tessellate.Tessellate(ctx, sceneOf(tr), tessellate.NewTable(newKernel()), 1, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestNilScene(t *testing.T) {
	if err := tessellate.Tessellate(context.Background(), nil, nil, 1, nil); err != nil {
		t.Errorf("nil scene: %v", err)
	}
}
