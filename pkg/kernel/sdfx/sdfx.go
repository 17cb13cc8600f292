// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"

	"github.com/chazu/vrexport/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution along the
// longest bounding box axis.
const DefaultMeshCells = 64

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

// SdfxKernel implements kernel.Kernel using sdfx. It holds no mutable state
// and is safe for concurrent use.
type SdfxKernel struct {
	cells int
}

// New returns a kernel tessellating with the given marching cubes
// resolution. Non-positive values select DefaultMeshCells.
func New(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// Cells returns the tessellation resolution.
func (k *SdfxKernel) Cells() int { return k.cells }

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box with the given extents, centered on the origin.
func (k *SdfxKernel) Box(x, y, z float64) (kernel.Solid, error) {
	if x <= 0 || y <= 0 || z <= 0 {
		return nil, fmt.Errorf("%w: box %gx%gx%g", kernel.ErrBadShape, x, y, z)
	}
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Box3D: %w", err)
	}
	return wrap(s), nil
}

// Sphere creates a sphere centered on the origin.
func (k *SdfxKernel) Sphere(radius float64) (kernel.Solid, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("%w: sphere radius %g", kernel.ErrBadShape, radius)
	}
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Sphere3D: %w", err)
	}
	return wrap(s), nil
}

// Cylinder creates a Z-aligned cylinder centered on the origin.
func (k *SdfxKernel) Cylinder(height, radius float64) (kernel.Solid, error) {
	if height <= 0 || radius <= 0 {
		return nil, fmt.Errorf("%w: cylinder h=%g r=%g", kernel.ErrBadShape, height, radius)
	}
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Cylinder3D: %w", err)
	}
	return wrap(s), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// ToMesh converts a solid to a triangle mesh using marching cubes. Each
// triangle gets its own three vertices carrying the face normal.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(unwrap(s), renderer)
	if len(triangles) == 0 {
		return nil, fmt.Errorf("%w: tessellation produced no triangles", kernel.ErrBadShape)
	}

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

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
