// Package fdtd advances the six Yee field components with the leapfrog
// scheme. H uses forward differences of E and E uses backward differences of
// H; the staggering is implied by that adjacency rule. Neighbours outside the
// grid read as zero and the PEC/PMC zeroing rule is applied to the outer
// faces after each half-step.
package fdtd

import (
	"github.com/notargets/FDTDKernel/dispatch"
	"github.com/notargets/FDTDKernel/grid"
)

// Engine applies the H and E half-steps. A zero Tile selects the plain
// stencil; otherwise the tile-cached variant runs with that tile size.
type Engine struct {
	Boundary Boundary
	Tile     TileSize
	Pool     *dispatch.Pool
}

// NewEngine returns a plain engine on the default pool
func NewEngine(b Boundary) *Engine {
	return &Engine{Boundary: b, Pool: dispatch.Default}
}

// UpdateH computes H' = c1·H + c2·curl(E) over the whole grid
func (e *Engine) UpdateH(f *grid.Fields, m *grid.MaterialMap) {
	if e.Tile.Enabled() {
		e.tiledUpdate(grid.Magnetic, f, m)
		return
	}
	e.pool().Each(f.Dim.NZ, func(z int) {
		updateHPlane(f, m, e.Boundary, z)
	})
}

// UpdateE computes E' = c1·E − c2·curl(H) over the whole grid
func (e *Engine) UpdateE(f *grid.Fields, m *grid.MaterialMap) {
	if e.Tile.Enabled() {
		e.tiledUpdate(grid.Electric, f, m)
		return
	}
	e.pool().Each(f.Dim.NZ, func(z int) {
		updateEPlane(f, m, e.Boundary, z)
	})
}

func (e *Engine) pool() *dispatch.Pool {
	if e.Pool == nil {
		return dispatch.Default
	}
	return e.Pool
}

// The explicit float32 conversions round every intermediate and keep the
// compiler from fusing multiply-adds, so the plain and tiled stencils agree
// bit for bit.

// curl combines two one-sided differences: (a1−a0) − (b1−b0)
func curl(a1, a0, b1, b0 float32) float32 {
	return float32(a1-a0) - float32(b1-b0)
}

func stepH(c1, c2, h, curlE float32) float32 {
	return float32(c1*h) + float32(c2*curlE)
}

func stepE(c1, c2, e, curlH float32) float32 {
	return float32(c1*e) - float32(c2*curlH)
}

func updateHPlane(f *grid.Fields, m *grid.MaterialMap, b Boundary, z int) {
	d := f.Dim
	sy, sz := d.NX, d.NX*d.NY
	ex, ey, ez := f.Ex.Data, f.Ey.Data, f.Ez.Data
	hx, hy, hz := f.Hx.Data, f.Hy.Data, f.Hz.Data
	c1s, c2s := m.Magnetic.C1, m.Magnetic.C2
	for y := 0; y < d.NY; y++ {
		for x := 0; x < d.NX; x++ {
			i := d.Index(x, y, z)
			var eyX, ezX, exY, ezY, exZ, eyZ float32
			if x+1 < d.NX {
				eyX, ezX = ey[i+1], ez[i+1]
			}
			if y+1 < d.NY {
				exY, ezY = ex[i+sy], ez[i+sy]
			}
			if z+1 < d.NZ {
				exZ, eyZ = ex[i+sz], ey[i+sz]
			}
			c1, c2 := c1s[i], c2s[i]
			hx[i] = stepH(c1, c2, hx[i], curl(ezY, ez[i], eyZ, ey[i]))
			hy[i] = stepH(c1, c2, hy[i], curl(exZ, ex[i], ezX, ez[i]))
			hz[i] = stepH(c1, c2, hz[i], curl(eyX, ey[i], exY, ex[i]))
			b.applyFace(grid.Magnetic, f, i, x, y, z)
		}
	}
}

func updateEPlane(f *grid.Fields, m *grid.MaterialMap, b Boundary, z int) {
	d := f.Dim
	sy, sz := d.NX, d.NX*d.NY
	ex, ey, ez := f.Ex.Data, f.Ey.Data, f.Ez.Data
	hx, hy, hz := f.Hx.Data, f.Hy.Data, f.Hz.Data
	c1s, c2s := m.Electric.C1, m.Electric.C2
	for y := 0; y < d.NY; y++ {
		for x := 0; x < d.NX; x++ {
			i := d.Index(x, y, z)
			var hyX, hzX, hxY, hzY, hxZ, hyZ float32
			if x > 0 {
				hyX, hzX = hy[i-1], hz[i-1]
			}
			if y > 0 {
				hxY, hzY = hx[i-sy], hz[i-sy]
			}
			if z > 0 {
				hxZ, hyZ = hx[i-sz], hy[i-sz]
			}
			c1, c2 := c1s[i], c2s[i]
			ex[i] = stepE(c1, c2, ex[i], curl(hz[i], hzY, hy[i], hyZ))
			ey[i] = stepE(c1, c2, ey[i], curl(hx[i], hxZ, hz[i], hzX))
			ez[i] = stepE(c1, c2, ez[i], curl(hy[i], hyX, hx[i], hxY))
			b.applyFace(grid.Electric, f, i, x, y, z)
		}
	}
}
