// Package kernel defines the geometry kernel used to tessellate procedural
// mesh nodes. Implementations (sdfx) provide solid modeling behind this
// interface so the exporter never depends on a particular backend.
package kernel

import (
	"errors"
	"fmt"
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface. Solids are centered on
// the origin; placement is the job of the scene's Node records.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) (Solid, error)
	Sphere(radius float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// ErrBadShape is returned for unknown shapes or non-positive dimensions.
var ErrBadShape = errors.New("kernel: invalid shape")

// Shape describes a procedural mesh.
type Shape struct {
	Kind   string     // "box", "sphere" or "cylinder"
	Size   [3]float64 // box extents
	Radius float64    // sphere and cylinder radius
	Height float64    // cylinder height

	// Hole, when positive, drills a cylinder of that radius along Z.
	Hole float64
}

// Build creates the solid for sh.
func Build(k Kernel, sh Shape) (Solid, error) {
	var (
		s   Solid
		err error
	)
	switch sh.Kind {
	case "box":
		s, err = k.Box(sh.Size[0], sh.Size[1], sh.Size[2])
	case "sphere":
		s, err = k.Sphere(sh.Radius)
	case "cylinder":
		s, err = k.Cylinder(sh.Height, sh.Radius)
	default:
		return nil, fmt.Errorf("%w: unknown shape %q", ErrBadShape, sh.Kind)
	}
	if err != nil {
		return nil, err
	}
	if sh.Hole > 0 {
		lo, hi := s.BoundingBox()
		drill, err := k.Cylinder(2*(hi[2]-lo[2])+1, sh.Hole)
		if err != nil {
			return nil, err
		}
		s = k.Difference(s, drill)
	}
	return s, nil
}
