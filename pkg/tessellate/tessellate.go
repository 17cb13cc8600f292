// Package tessellate turns procedural mesh nodes into triangle meshes ahead
// of serialization. Tessellation is the slow part of an export, so it runs on
// a bounded worker pool and identical shapes are tessellated once.
package tessellate

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/chazu/vrexport/pkg/graph"
	"github.com/chazu/vrexport/pkg/kernel"
	"github.com/chazu/vrexport/pkg/record"
	"golang.org/x/sync/errgroup"
)

// ShapeOf reads the shape description from a GeomStaticMesh node.
func ShapeOf(n *graph.Node) (kernel.Shape, error) {
	if n.Type != graph.TypeGeomStaticMesh {
		return kernel.Shape{}, fmt.Errorf("tessellate: %s is not a mesh node", n)
	}
	var sh kernel.Shape

	kind, ok := n.Prop("shape").(record.String)
	if !ok {
		return sh, fmt.Errorf("tessellate: %s shape is %T, want string", n, n.Prop("shape"))
	}
	sh.Kind = string(kind)

	size, ok := n.Prop("size").(record.Vector)
	if !ok {
		return sh, fmt.Errorf("tessellate: %s size is %T, want vector", n, n.Prop("size"))
	}
	sh.Size = [3]float64{size.X, size.Y, size.Z}

	for name, dst := range map[string]*float64{"radius": &sh.Radius, "height": &sh.Height, "hole": &sh.Hole} {
		v, ok := n.Prop(name).(record.Float)
		if !ok {
			return sh, fmt.Errorf("tessellate: %s %s is %T, want float", n, name, n.Prop(name))
		}
		*dst = float64(v)
	}
	return sh, nil
}

// Table maps mesh nodes to their tessellated meshes. It is safe for
// concurrent use; nodes missing from a Tessellate run are tessellated on
// first request.
type Table struct {
	k kernel.Kernel

	mu     sync.Mutex
	byNode map[*graph.Node]*result
	byKey  map[kernel.Shape]*result
}

type result struct {
	shape kernel.Shape
	once  sync.Once
	mesh  *kernel.Mesh
	err   error
}

// NewTable creates an empty table backed by k.
func NewTable(k kernel.Kernel) *Table {
	return &Table{
		k:      k,
		byNode: make(map[*graph.Node]*result),
		byKey:  make(map[kernel.Shape]*result),
	}
}

// slot returns the shared result for n, keyed by its shape.
func (t *Table) slot(n *graph.Node) (*result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.byNode[n]; ok {
		return r, nil
	}
	sh, err := ShapeOf(n)
	if err != nil {
		return nil, err
	}
	r, ok := t.byKey[sh]
	if !ok {
		r = &result{shape: sh}
		t.byKey[sh] = r
	}
	t.byNode[n] = r
	return r, nil
}

// Mesh returns the mesh for n, tessellating it if needed.
func (t *Table) Mesh(n *graph.Node) (*kernel.Mesh, error) {
	r, err := t.slot(n)
	if err != nil {
		return nil, err
	}
	r.once.Do(func() {
		s, err := kernel.Build(t.k, r.shape)
		if err != nil {
			r.err = fmt.Errorf("tessellate: %s: %w", n, err)
			return
		}
		r.mesh, r.err = t.k.ToMesh(s)
		if r.err != nil {
			r.err = fmt.Errorf("tessellate: %s: %w", n, r.err)
		}
	})
	return r.mesh, r.err
}

// Len returns the number of distinct shapes in the table.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byKey)
}

// MeshNodes returns every GeomStaticMesh node reachable from s, in tree
// order.
func MeshNodes(s *graph.Scene) []*graph.Node {
	var nodes []*graph.Node
	s.Walk(func(t *graph.Tree) {
		for _, n := range t.Nodes {
			if n.Type == graph.TypeGeomStaticMesh {
				nodes = append(nodes, n)
			}
		}
	})
	return nodes
}

// Tessellate fills t with a mesh for every mesh node of s using up to
// workers goroutines (GOMAXPROCS when workers <= 0). Per-node failures are
// logged and left in the table for the compiler to report; only a cancelled
// context fails the run.
func Tessellate(ctx context.Context, s *graph.Scene, t *Table, workers int, log *slog.Logger) error {
	if s == nil {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, n := range MeshNodes(s) {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := t.Mesh(n); err != nil {
				log.Warn("tessellate: mesh failed",
					"node", n.Name,
					"tree", n.Tree().Name,
					"error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("tessellate: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("tessellate: %w", err)
	}
	log.Debug("tessellate: done", "shapes", t.Len())
	return nil
}
