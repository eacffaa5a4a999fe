package grid

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when buffers that must share a grid do not
var ErrDimensionMismatch = errors.New("grid dimension mismatch")

// Axis names a Cartesian direction
type Axis int

const (
	X Axis = iota
	Y
	Z
)

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Next and Prev give the cyclic successor/predecessor (x→y→z→x)
func (a Axis) Next() Axis { return (a + 1) % 3 }
func (a Axis) Prev() Axis { return (a + 2) % 3 }

// Dimension is the extent of a structured grid in cells
type Dimension struct {
	NX, NY, NZ int
}

// NewDimension validates that every extent is positive
func NewDimension(nx, ny, nz int) (Dimension, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return Dimension{}, fmt.Errorf("invalid grid dimension %dx%dx%d", nx, ny, nz)
	}
	return Dimension{NX: nx, NY: ny, NZ: nz}, nil
}

// Cube is shorthand for an n³ grid
func Cube(n int) Dimension { return Dimension{NX: n, NY: n, NZ: n} }

func (d Dimension) String() string {
	return fmt.Sprintf("%dx%dx%d", d.NX, d.NY, d.NZ)
}

// Cells returns the number of cells in the grid
func (d Dimension) Cells() int { return d.NX * d.NY * d.NZ }

// Extent returns the number of cells along an axis
func (d Dimension) Extent(a Axis) int {
	switch a {
	case X:
		return d.NX
	case Y:
		return d.NY
	default:
		return d.NZ
	}
}

// Array returns the extents as [nx, ny, nz]
func (d Dimension) Array() [3]int { return [3]int{d.NX, d.NY, d.NZ} }

// Stride is the flat-index step along an axis
func (d Dimension) Stride(a Axis) int {
	switch a {
	case X:
		return 1
	case Y:
		return d.NX
	default:
		return d.NX * d.NY
	}
}

// Index flattens (x,y,z) with x varying fastest
func (d Dimension) Index(x, y, z int) int {
	return x + d.NX*(y+d.NY*z)
}

// Coords is the inverse of Index
func (d Dimension) Coords(idx int) (x, y, z int) {
	x = idx % d.NX
	idx /= d.NX
	y = idx % d.NY
	z = idx / d.NY
	return
}

// Contains reports whether (x,y,z) addresses a cell of the grid
func (d Dimension) Contains(x, y, z int) bool {
	return x >= 0 && x < d.NX && y >= 0 && y < d.NY && z >= 0 && z < d.NZ
}

// OnFace reports whether cell coordinate c along axis a sits on an outer face
func (d Dimension) OnFace(a Axis, c int) bool {
	return c == 0 || c == d.Extent(a)-1
}
