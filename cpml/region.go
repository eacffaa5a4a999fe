// Package cpml implements the convolutional perfectly matched layer. The
// absorbing shell around the grid is split into 6 face slabs, 12 edge strips
// and 8 corner boxes; each region carries recursive psi state for the axes it
// absorbs along and folds that state into the field after every half-step.
package cpml

import (
	"fmt"

	"github.com/notargets/FDTDKernel/grid"
)

// Kind tags a region by how many axes it absorbs along
type Kind int

const (
	Face Kind = iota + 1
	Edge
	Corner
)

func (k Kind) String() string {
	switch k {
	case Face:
		return "face"
	case Edge:
		return "edge"
	case Corner:
		return "corner"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Side places a region along one axis
type Side int

const (
	Lower  Side = -1
	Middle Side = 0
	Upper  Side = 1
)

// Region is one box of the absorbing shell. Field index = Offset + local
// index; psi grids are sized to Size, never to the full grid.
type Region struct {
	Kind   Kind
	Offset [3]int
	Size   [3]int
	Side   [3]Side
}

// Active reports whether the region absorbs along axis a
func (r Region) Active(a grid.Axis) bool { return r.Side[a] != Middle }

// Cells is the number of cells in the region
func (r Region) Cells() int { return r.Size[0] * r.Size[1] * r.Size[2] }

// Field maps a local region index to grid coordinates
func (r Region) Field(lx, ly, lz int) (x, y, z int) {
	return r.Offset[0] + lx, r.Offset[1] + ly, r.Offset[2] + lz
}

// Local flattens a local coordinate, x fastest
func (r Region) Local(lx, ly, lz int) int {
	return lx + r.Size[0]*(ly+r.Size[1]*lz)
}

func (r Region) String() string {
	return fmt.Sprintf("%v%v@%v+%v", r.Kind, r.Side, r.Offset, r.Size)
}

// Layout is the full partition of the absorbing shell
type Layout struct {
	Dim     grid.Dimension
	Layers  int
	Regions []Region
}

// NewLayout enumerates the 26 regions of a shell of the given thickness.
// Every axis must leave at least one interior cell.
func NewLayout(dim grid.Dimension, layers int) (*Layout, error) {
	if layers <= 0 {
		return nil, fmt.Errorf("absorbing layer thickness must be positive, got %d", layers)
	}
	for a := grid.X; a <= grid.Z; a++ {
		if n := dim.Extent(a); n <= 2*layers {
			return nil, fmt.Errorf("grid %v too small along %v for %d absorbing layers",
				dim, a, layers)
		}
	}

	span := func(a grid.Axis, s Side) (offset, size int) {
		n := dim.Extent(a)
		switch s {
		case Lower:
			return 0, layers
		case Upper:
			return n - layers, layers
		default:
			return layers, n - 2*layers
		}
	}

	l := &Layout{Dim: dim, Layers: layers}
	sides := []Side{Lower, Middle, Upper}
	for _, sz := range sides {
		for _, sy := range sides {
			for _, sx := range sides {
				r := Region{Side: [3]Side{sx, sy, sz}}
				active := 0
				for a := grid.X; a <= grid.Z; a++ {
					r.Offset[a], r.Size[a] = span(a, r.Side[a])
					if r.Side[a] != Middle {
						active++
					}
				}
				if active == 0 {
					continue
				}
				r.Kind = Kind(active)
				l.Regions = append(l.Regions, r)
			}
		}
	}
	return l, nil
}

// Count returns the number of regions of kind k
func (l *Layout) Count(k Kind) int {
	n := 0
	for _, r := range l.Regions {
		if r.Kind == k {
			n++
		}
	}
	return n
}

// InShell reports whether a grid cell lies in the absorbing shell
func (l *Layout) InShell(x, y, z int) bool {
	c := [3]int{x, y, z}
	for a := grid.X; a <= grid.Z; a++ {
		if c[a] < l.Layers || c[a] >= l.Dim.Extent(a)-l.Layers {
			return true
		}
	}
	return false
}
