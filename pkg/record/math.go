package record

import "math"

// Vector is a 3-component double precision vector.
type Vector struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vector) Add(o Vector) Vector {
	return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Scale returns v * s.
func (v Vector) Scale(s float64) Vector {
	return Vector{v.X * s, v.Y * s, v.Z * s}
}

// Color is a linear RGB triple.
type Color struct {
	R, G, B float64
}

// AColor is a Color with alpha.
type AColor struct {
	Color
	A float64
}

// Matrix is a 3x3 linear transform stored as its three basis vectors, the
// same order the renderer reads Matrix(Vector(..),Vector(..),Vector(..)).
type Matrix [3]Vector

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Apply transforms v by m.
func (m Matrix) Apply(v Vector) Vector {
	return m[0].Scale(v.X).Add(m[1].Scale(v.Y)).Add(m[2].Scale(v.Z))
}

// Mul returns the matrix applying o first, then m.
func (m Matrix) Mul(o Matrix) Matrix {
	return Matrix{m.Apply(o[0]), m.Apply(o[1]), m.Apply(o[2])}
}

// Flat returns the nine entries basis vector by basis vector.
func (m Matrix) Flat() [9]float64 {
	return [9]float64{
		m[0].X, m[0].Y, m[0].Z,
		m[1].X, m[1].Y, m[1].Z,
		m[2].X, m[2].Y, m[2].Z,
	}
}

// MatrixFromFlat is the inverse of Flat.
func MatrixFromFlat(f [9]float64) Matrix {
	return Matrix{{f[0], f[1], f[2]}, {f[3], f[4], f[5]}, {f[6], f[7], f[8]}}
}

// Scale returns a diagonal scale matrix.
func Scale(v Vector) Matrix {
	return Matrix{{v.X, 0, 0}, {0, v.Y, 0}, {0, 0, v.Z}}
}

// Euler returns the rotation by deg degrees about X, then Y, then Z.
func Euler(deg Vector) Matrix {
	rx, ry, rz := deg.X*math.Pi/180, deg.Y*math.Pi/180, deg.Z*math.Pi/180
	sx, cx := math.Sincos(rx)
	sy, cy := math.Sincos(ry)
	sz, cz := math.Sincos(rz)
	x := Matrix{{1, 0, 0}, {0, cx, sx}, {0, -sx, cx}}
	y := Matrix{{cy, 0, -sy}, {0, 1, 0}, {sy, 0, cy}}
	z := Matrix{{cz, sz, 0}, {-sz, cz, 0}, {0, 0, 1}}
	return z.Mul(y).Mul(x)
}

// Transform is an affine transform: a linear part and an offset.
type Transform struct {
	M      Matrix
	Offset Vector
}

// IdentityTransform returns the identity transform.
func IdentityTransform() Transform {
	return Transform{M: Identity()}
}

// Translation returns a pure translation.
func Translation(v Vector) Transform {
	return Transform{M: Identity(), Offset: v}
}

// Mul returns the transform applying o first, then t.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		M:      t.M.Mul(o.M),
		Offset: t.M.Apply(o.Offset).Add(t.Offset),
	}
}
