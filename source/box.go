package source

import (
	"github.com/notargets/FDTDKernel/grid"
)

// Box injects a uniform strength vector over an axis-aligned block of cells.
// A zero Size extent is treated as one cell, so a point source is a Box with
// Size {0,0,0}.
type Box struct {
	Position [3]int
	Size     [3]int
	Strength [3]float32
	Field    grid.Kind
}

// Point is a single-cell Box
func Point(field grid.Kind, x, y, z int, strength [3]float32) Box {
	return Box{Position: [3]int{x, y, z}, Strength: strength, Field: field}
}

// Extent returns the number of cells along each axis
func (b Box) Extent() [3]int {
	var e [3]int
	for a := range e {
		e[a] = max(b.Size[a], 1)
	}
	return e
}

// Increment is the amount a source adds to one cell:
// strength·envelope·inj·dt, rounded after every product
func Increment(strength, envelope, inj, dt float32) float32 {
	return float32(float32(float32(strength*envelope)*inj) * dt)
}

// Inject adds strength·envelope·Inj·dt to every cell of the box, where Inj is
// the cell's injection coefficient for the box's field. Cells outside the
// grid are skipped.
func (b Box) Inject(f *grid.Fields, m *grid.MaterialMap, envelope, dt float32) {
	inj := m.Electric.Inj
	if b.Field == grid.Magnetic {
		inj = m.Magnetic.Inj
	}
	d := f.Dim
	ext := b.Extent()
	for a := grid.X; a <= grid.Z; a++ {
		s := b.Strength[a]
		if s == 0 {
			continue
		}
		dst := f.Component(b.Field, a).Data
		for lz := 0; lz < ext[2]; lz++ {
			for ly := 0; ly < ext[1]; ly++ {
				for lx := 0; lx < ext[0]; lx++ {
					x, y, z := b.Position[0]+lx, b.Position[1]+ly, b.Position[2]+lz
					if !d.Contains(x, y, z) {
						continue
					}
					i := d.Index(x, y, z)
					dst[i] += Increment(s, envelope, inj[i], dt)
				}
			}
		}
	}
}
