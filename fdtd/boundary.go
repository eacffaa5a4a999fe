package fdtd

import (
	"fmt"
	"strings"

	"github.com/notargets/FDTDKernel/dispatch"
	"github.com/notargets/FDTDKernel/grid"
)

// Boundary selects the conductor enforced at the outer faces. The two modes
// are duals: PEC zeroes tangential E and normal H, PMC zeroes tangential H
// and normal E.
type Boundary int

const (
	PEC Boundary = iota
	PMC
)

func (b Boundary) String() string {
	if b == PMC {
		return "PMC"
	}
	return "PEC"
}

// ParseBoundary accepts "pec" or "pmc" in any case
func ParseBoundary(s string) (Boundary, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pec", "":
		return PEC, nil
	case "pmc":
		return PMC, nil
	default:
		return PEC, fmt.Errorf("unknown boundary %q", s)
	}
}

// zeroesTangential reports whether the half-step for kind clears the
// tangential components (true) or the normal component (false)
func (b Boundary) zeroesTangential(kind grid.Kind) bool {
	return (b == PEC) == (kind == grid.Electric)
}

// faceMask returns which of the three components of one field must be
// forced to zero at cell (x,y,z); all false for interior cells
func (b Boundary) faceMask(kind grid.Kind, d grid.Dimension, x, y, z int) (mask [3]bool, onFace bool) {
	coords := [3]int{x, y, z}
	tangential := b.zeroesTangential(kind)
	for a := grid.X; a <= grid.Z; a++ {
		if !d.OnFace(a, coords[a]) {
			continue
		}
		onFace = true
		if tangential {
			mask[a.Next()] = true
			mask[a.Prev()] = true
		} else {
			mask[a] = true
		}
	}
	return
}

// applyFace zeroes the masked components of kind at flat index i
func (b Boundary) applyFace(kind grid.Kind, f *grid.Fields, i, x, y, z int) {
	mask, onFace := b.faceMask(kind, f.Dim, x, y, z)
	if !onFace {
		return
	}
	for a := grid.X; a <= grid.Z; a++ {
		if mask[a] {
			f.Component(kind, a).Data[i] = 0
		}
	}
}

// Enforce re-applies the zeroing rule for kind to every outer-face cell.
// Stages that write the field after the stencil (the absorbing layer
// correction, sources placed on a wall) call this to restore the conductor.
func (b Boundary) Enforce(kind grid.Kind, f *grid.Fields, pool *dispatch.Pool) {
	d := f.Dim
	pool.Each(d.NZ, func(z int) {
		zFace := d.OnFace(grid.Z, z)
		for y := 0; y < d.NY; y++ {
			if zFace || d.OnFace(grid.Y, y) {
				for x := 0; x < d.NX; x++ {
					b.applyFace(kind, f, d.Index(x, y, z), x, y, z)
				}
				continue
			}
			b.applyFace(kind, f, d.Index(0, y, z), 0, y, z)
			b.applyFace(kind, f, d.Index(d.NX-1, y, z), d.NX-1, y, z)
		}
	})
}
