package fdtd

import (
	"fmt"
	"sync"

	"github.com/notargets/FDTDKernel/dispatch"
	"github.com/notargets/FDTDKernel/grid"
)

// TileSize is the extent of one cooperating block of the tile-cached stencil
type TileSize struct {
	X, Y, Z int
}

// Enabled reports whether every extent is positive
func (t TileSize) Enabled() bool { return t.X > 0 && t.Y > 0 && t.Z > 0 }

func (t TileSize) String() string { return fmt.Sprintf("%dx%dx%d", t.X, t.Y, t.Z) }

func (t TileSize) volume() int { return t.X * t.Y * t.Z }

// scratch is the tile-shared copy of the conjugate field
type scratch struct {
	c [3][]float32
}

var scratchPool sync.Pool

func getScratch(n int) *scratch {
	if s, ok := scratchPool.Get().(*scratch); ok && len(s.c[0]) >= n {
		return s
	}
	s := &scratch{}
	for a := range s.c {
		s.c[a] = make([]float32, n)
	}
	return s
}

// tile is one block of the grid, clipped where it overhangs the grid edge
type tile struct {
	x0, y0, z0 int
	w, h, l    int
}

func (e *Engine) tiles(d grid.Dimension) []tile {
	t := e.Tile
	var out []tile
	for z0 := 0; z0 < d.NZ; z0 += t.Z {
		for y0 := 0; y0 < d.NY; y0 += t.Y {
			for x0 := 0; x0 < d.NX; x0 += t.X {
				out = append(out, tile{
					x0: x0, y0: y0, z0: z0,
					w: min(t.X, d.NX-x0), h: min(t.Y, d.NY-y0), l: min(t.Z, d.NZ-z0),
				})
			}
		}
	}
	return out
}

// tiledUpdate runs one half-step tile by tile. Each tile gets one lane per
// z-plane; a lane copies its plane of the conjugate field into the shared
// scratch, waits on the tile barrier, then updates its plane taking
// neighbours from scratch and only falling back to the backing grid for the
// one neighbour that lies across the tile face.
func (e *Engine) tiledUpdate(kind grid.Kind, f *grid.Fields, m *grid.MaterialMap) {
	tiles := e.tiles(f.Dim)
	e.pool().Each(len(tiles), func(i int) {
		e.runTile(kind, f, m, tiles[i])
	})
}

func (e *Engine) runTile(kind grid.Kind, f *grid.Fields, m *grid.MaterialMap, tl tile) {
	s := getScratch(e.Tile.volume())
	defer scratchPool.Put(s)

	conj := grid.Electric
	if kind == grid.Electric {
		conj = grid.Magnetic
	}
	barrier := dispatch.NewBarrier(tl.l)
	e.pool().Group(tl.l, func(lz int) {
		loadPlane(f, conj, s, tl, lz)
		barrier.Wait()
		if kind == grid.Magnetic {
			tileHPlane(f, m, e.Boundary, s, tl, lz)
		} else {
			tileEPlane(f, m, e.Boundary, s, tl, lz)
		}
	})
}

func loadPlane(f *grid.Fields, conj grid.Kind, s *scratch, tl tile, lz int) {
	d := f.Dim
	for a := grid.X; a <= grid.Z; a++ {
		src := f.Component(conj, a).Data
		dst := s.c[a]
		for ly := 0; ly < tl.h; ly++ {
			row := d.Index(tl.x0, tl.y0+ly, tl.z0+lz)
			copy(dst[tl.w*(ly+tl.h*lz):][:tl.w], src[row:row+tl.w])
		}
	}
}

// read returns component a at local (lx,ly,lz), using scratch inside the
// tile, the backing grid across a tile face, and zero outside the grid
func (s *scratch) read(f *grid.Fields, conj grid.Kind, a grid.Axis, tl tile, lx, ly, lz int) float32 {
	if lx >= 0 && lx < tl.w && ly >= 0 && ly < tl.h && lz >= 0 && lz < tl.l {
		return s.c[a][lx+tl.w*(ly+tl.h*lz)]
	}
	return f.Component(conj, a).At(tl.x0+lx, tl.y0+ly, tl.z0+lz)
}

func tileHPlane(f *grid.Fields, m *grid.MaterialMap, b Boundary, s *scratch, tl tile, lz int) {
	d := f.Dim
	hx, hy, hz := f.Hx.Data, f.Hy.Data, f.Hz.Data
	c1s, c2s := m.Magnetic.C1, m.Magnetic.C2
	e := func(a grid.Axis, lx, ly, lz int) float32 {
		return s.read(f, grid.Electric, a, tl, lx, ly, lz)
	}
	z := tl.z0 + lz
	for ly := 0; ly < tl.h; ly++ {
		y := tl.y0 + ly
		for lx := 0; lx < tl.w; lx++ {
			x := tl.x0 + lx
			i := d.Index(x, y, z)
			ex, ey, ez := e(grid.X, lx, ly, lz), e(grid.Y, lx, ly, lz), e(grid.Z, lx, ly, lz)
			eyX, ezX := e(grid.Y, lx+1, ly, lz), e(grid.Z, lx+1, ly, lz)
			exY, ezY := e(grid.X, lx, ly+1, lz), e(grid.Z, lx, ly+1, lz)
			exZ, eyZ := e(grid.X, lx, ly, lz+1), e(grid.Y, lx, ly, lz+1)
			c1, c2 := c1s[i], c2s[i]
			hx[i] = stepH(c1, c2, hx[i], curl(ezY, ez, eyZ, ey))
			hy[i] = stepH(c1, c2, hy[i], curl(exZ, ex, ezX, ez))
			hz[i] = stepH(c1, c2, hz[i], curl(eyX, ey, exY, ex))
			b.applyFace(grid.Magnetic, f, i, x, y, z)
		}
	}
}

func tileEPlane(f *grid.Fields, m *grid.MaterialMap, b Boundary, s *scratch, tl tile, lz int) {
	d := f.Dim
	ex, ey, ez := f.Ex.Data, f.Ey.Data, f.Ez.Data
	c1s, c2s := m.Electric.C1, m.Electric.C2
	h := func(a grid.Axis, lx, ly, lz int) float32 {
		return s.read(f, grid.Magnetic, a, tl, lx, ly, lz)
	}
	z := tl.z0 + lz
	for ly := 0; ly < tl.h; ly++ {
		y := tl.y0 + ly
		for lx := 0; lx < tl.w; lx++ {
			x := tl.x0 + lx
			i := d.Index(x, y, z)
			hx, hy, hz := h(grid.X, lx, ly, lz), h(grid.Y, lx, ly, lz), h(grid.Z, lx, ly, lz)
			hyX, hzX := h(grid.Y, lx-1, ly, lz), h(grid.Z, lx-1, ly, lz)
			hxY, hzY := h(grid.X, lx, ly-1, lz), h(grid.Z, lx, ly-1, lz)
			hxZ, hyZ := h(grid.X, lx, ly, lz-1), h(grid.Y, lx, ly, lz-1)
			c1, c2 := c1s[i], c2s[i]
			ex[i] = stepE(c1, c2, ex[i], curl(hz, hzY, hy, hyZ))
			ey[i] = stepE(c1, c2, ey[i], curl(hx, hxZ, hz, hzX))
			ez[i] = stepE(c1, c2, ez[i], curl(hy, hyX, hx, hxY))
			b.applyFace(grid.Electric, f, i, x, y, z)
		}
	}
}
