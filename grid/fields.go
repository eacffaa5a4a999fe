package grid

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas32"
)

// FieldGrid is one scalar field component stored x-fastest in single precision
type FieldGrid struct {
	Dim  Dimension
	Data []float32
}

// NewFieldGrid allocates a zeroed component grid
func NewFieldGrid(dim Dimension) *FieldGrid {
	return &FieldGrid{Dim: dim, Data: make([]float32, dim.Cells())}
}

// At reads a cell; coordinates outside the grid read as zero
func (g *FieldGrid) At(x, y, z int) float32 {
	if !g.Dim.Contains(x, y, z) {
		return 0
	}
	return g.Data[g.Dim.Index(x, y, z)]
}

// Set writes a cell; writes outside the grid are dropped
func (g *FieldGrid) Set(x, y, z int, v float32) {
	if !g.Dim.Contains(x, y, z) {
		return
	}
	g.Data[g.Dim.Index(x, y, z)] = v
}

// SumSquares accumulates Σv² in double precision
func (g *FieldGrid) SumSquares() float64 {
	v := blas32.Vector{N: len(g.Data), Inc: 1, Data: g.Data}
	return blas32.DDot(v, v)
}

// Kind selects the electric or magnetic field
type Kind int

const (
	Electric Kind = iota
	Magnetic
)

func (k Kind) String() string {
	if k == Magnetic {
		return "H"
	}
	return "E"
}

// Fields holds the six Yee components on a shared dimension
type Fields struct {
	Dim                    Dimension
	Ex, Ey, Ez, Hx, Hy, Hz *FieldGrid
}

// NewFields allocates six zeroed components
func NewFields(dim Dimension) *Fields {
	return &Fields{
		Dim: dim,
		Ex:  NewFieldGrid(dim), Ey: NewFieldGrid(dim), Ez: NewFieldGrid(dim),
		Hx: NewFieldGrid(dim), Hy: NewFieldGrid(dim), Hz: NewFieldGrid(dim),
	}
}

// Validate checks that all six components share the declared dimension
func (f *Fields) Validate() error {
	for _, c := range f.All() {
		if c == nil {
			return fmt.Errorf("missing field component: %w", ErrDimensionMismatch)
		}
		if c.Dim != f.Dim || len(c.Data) != f.Dim.Cells() {
			return fmt.Errorf("component is %v with %d values, fields are %v: %w",
				c.Dim, len(c.Data), f.Dim, ErrDimensionMismatch)
		}
	}
	return nil
}

// E returns the electric component along an axis
func (f *Fields) E(a Axis) *FieldGrid {
	switch a {
	case X:
		return f.Ex
	case Y:
		return f.Ey
	default:
		return f.Ez
	}
}

// H returns the magnetic component along an axis
func (f *Fields) H(a Axis) *FieldGrid {
	switch a {
	case X:
		return f.Hx
	case Y:
		return f.Hy
	default:
		return f.Hz
	}
}

// Component returns the component of the given field kind along an axis
func (f *Fields) Component(k Kind, a Axis) *FieldGrid {
	if k == Magnetic {
		return f.H(a)
	}
	return f.E(a)
}

// All returns Ex, Ey, Ez, Hx, Hy, Hz in that order
func (f *Fields) All() []*FieldGrid {
	return []*FieldGrid{f.Ex, f.Ey, f.Ez, f.Hx, f.Hy, f.Hz}
}

// Energy is the sum of squares of all six components
func (f *Fields) Energy() float64 {
	var sum float64
	for _, c := range f.All() {
		sum += c.SumSquares()
	}
	return sum
}

// Reset zeroes every component
func (f *Fields) Reset() {
	for _, c := range f.All() {
		clear(c.Data)
	}
}

// Clone deep-copies the fields
func (f *Fields) Clone() *Fields {
	out := NewFields(f.Dim)
	src, dst := f.All(), out.All()
	for i := range src {
		copy(dst[i].Data, src[i].Data)
	}
	return out
}

// Slice samples one component on the plane normal to axis at index, scaled
// by scale. The result is row-major over the two remaining axes taken in
// cyclic order, along with its width and height. Read-only for viewers.
func (f *Fields) Slice(k Kind, component, normal Axis, index int, scale float32) (out []float32, w, h int, err error) {
	if index < 0 || index >= f.Dim.Extent(normal) {
		return nil, 0, 0, fmt.Errorf("slice index %d outside %v extent %d",
			index, normal, f.Dim.Extent(normal))
	}
	src := f.Component(k, component)
	u, v := normal.Next(), normal.Prev()
	w, h = f.Dim.Extent(u), f.Dim.Extent(v)
	out = make([]float32, w*h)
	var c [3]int
	c[normal] = index
	for j := 0; j < h; j++ {
		c[v] = j
		for i := 0; i < w; i++ {
			c[u] = i
			out[i+w*j] = scale * src.Data[f.Dim.Index(c[0], c[1], c[2])]
		}
	}
	return out, w, h, nil
}
