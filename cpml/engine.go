package cpml

import (
	"fmt"

	"github.com/notargets/FDTDKernel/dispatch"
	"github.com/notargets/FDTDKernel/grid"
)

// state is the psi storage of one region: psi[kind][component][axis] is nil
// unless axis is active and differs from component
type state struct {
	Region
	psi [2][3][3][]float32
}

// Engine owns the psi state of every region of a layout
type Engine struct {
	Layout  *Layout
	Profile *Profile
	Pool    *dispatch.Pool
	regions []*state
}

// NewEngine allocates psi grids for every region of layout
func NewEngine(layout *Layout, profile *Profile) (*Engine, error) {
	if layout == nil || profile == nil {
		return nil, fmt.Errorf("cpml engine needs a layout and a profile")
	}
	if err := profile.validate(layout.Dim); err != nil {
		return nil, err
	}
	e := &Engine{Layout: layout, Profile: profile, Pool: dispatch.Default}
	for _, r := range layout.Regions {
		s := &state{Region: r}
		for _, k := range []grid.Kind{grid.Electric, grid.Magnetic} {
			for d := grid.X; d <= grid.Z; d++ {
				if !r.Active(d) {
					continue
				}
				for _, c := range []grid.Axis{d.Next(), d.Prev()} {
					s.psi[k][c][d] = make([]float32, r.Cells())
				}
			}
		}
		e.regions = append(e.regions, s)
	}
	return e, nil
}

// New builds the layout, graded profile and engine in one call
func New(dim grid.Dimension, layers int, dt float64, g Grading) (*Engine, error) {
	layout, err := NewLayout(dim, layers)
	if err != nil {
		return nil, err
	}
	profile, err := Graded(dim, layers, dt, g)
	if err != nil {
		return nil, err
	}
	return NewEngine(layout, profile)
}

// UpdateH runs the magnetic half of the boundary update; call it after the
// H field update of the same half-step
func (e *Engine) UpdateH(f *grid.Fields, m *grid.MaterialMap) {
	e.update(grid.Magnetic, f, m)
}

// UpdateE runs the electric half; call it after the E field update
func (e *Engine) UpdateE(f *grid.Fields, m *grid.MaterialMap) {
	e.update(grid.Electric, f, m)
}

// update is two stages, each a full dispatch over every region: advance the
// psi recursion from the conjugate field, then fold psi into the field
func (e *Engine) update(kind grid.Kind, f *grid.Fields, m *grid.MaterialMap) {
	pool := e.Pool
	if pool == nil {
		pool = dispatch.Default
	}
	for _, s := range e.regions {
		pool.Box(s.Size[0], s.Size[1], s.Size[2], func(lx, ly, lz int) {
			e.advance(kind, f, s, lx, ly, lz)
		})
	}
	coeffs := m.Magnetic
	if kind == grid.Electric {
		coeffs = m.Electric
	}
	for _, s := range e.regions {
		pool.Box(s.Size[0], s.Size[1], s.Size[2], func(lx, ly, lz int) {
			correct(kind, f, coeffs.C2, s, lx, ly, lz)
		})
	}
}

// sign is the curl orientation of ∂/∂d in component c: + when d follows c
// cyclically, − when it precedes it
func sign(c, d grid.Axis) float32 {
	if d == c.Next() {
		return 1
	}
	return -1
}

// differentiated is the field component differentiated along d in the curl
// of c
func differentiated(c, d grid.Axis) grid.Axis {
	if d == c.Next() {
		return c.Prev()
	}
	return c.Next()
}

// advance updates psi' = b·psi + a·(b−1)·Δ for one cell. The H half uses the
// forward difference of E, the E half the backward difference of H, exactly
// as the field stencil does.
func (e *Engine) advance(kind grid.Kind, f *grid.Fields, s *state, lx, ly, lz int) {
	x, y, z := s.Field(lx, ly, lz)
	coords := [3]int{x, y, z}
	li := s.Local(lx, ly, lz)
	conj := grid.Electric
	step := 1
	b, c := e.Profile.BH, e.Profile.CH
	if kind == grid.Electric {
		conj = grid.Magnetic
		step = -1
		b, c = e.Profile.BE, e.Profile.CE
	}
	for d := grid.X; d <= grid.Z; d++ {
		if !s.Active(d) {
			continue
		}
		p := coords[d]
		bd, cd := b[d][p], c[d][p]
		var n [3]int
		n[d] = step
		for _, comp := range []grid.Axis{d.Next(), d.Prev()} {
			g := f.Component(conj, differentiated(comp, d))
			here := g.At(x, y, z)
			there := g.At(x+n[0], y+n[1], z+n[2])
			diff := float32(there - here)
			if step < 0 {
				diff = float32(here - there)
			}
			psi := s.psi[kind][comp][d]
			psi[li] = float32(bd*psi[li]) + float32(cd*diff)
		}
	}
}

// correct adds the signed psi terms of one cell into the field: H gains
// c2·Σ s·psi, E loses it, mirroring the sign of the curl in each update
func correct(kind grid.Kind, f *grid.Fields, c2s []float32, s *state, lx, ly, lz int) {
	x, y, z := s.Field(lx, ly, lz)
	i := f.Dim.Index(x, y, z)
	li := s.Local(lx, ly, lz)
	c2 := c2s[i]
	for comp := grid.X; comp <= grid.Z; comp++ {
		var sum float32
		for d := grid.X; d <= grid.Z; d++ {
			psi := s.psi[kind][comp][d]
			if psi == nil {
				continue
			}
			sum += sign(comp, d) * psi[li]
		}
		if sum == 0 {
			continue
		}
		field := f.Component(kind, comp).Data
		if kind == grid.Magnetic {
			field[i] += float32(c2 * sum)
		} else {
			field[i] -= float32(c2 * sum)
		}
	}
}

// Reset zeroes all psi state
func (e *Engine) Reset() {
	for _, p := range e.Psi() {
		clear(p)
	}
}

// Psi returns every psi grid in a fixed order (region, kind, component,
// axis); the slices alias engine state
func (e *Engine) Psi() [][]float32 {
	var out [][]float32
	for _, s := range e.regions {
		for k := range s.psi {
			for c := range s.psi[k] {
				for d := range s.psi[k][c] {
					if p := s.psi[k][c][d]; p != nil {
						out = append(out, p)
					}
				}
			}
		}
	}
	return out
}
