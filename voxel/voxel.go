// Package voxel assigns material to the cells enclosed by a closed triangle
// mesh. Every (x, y) column centre is crossed with the mesh along a vertical
// line; each crossing is counted at the first cell whose centre lies past it,
// and a running count over increasing z marks cells with an odd count as
// inside. Crossings below the grid count at layer 0.
package voxel

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/notargets/FDTDKernel/dispatch"
	"github.com/notargets/FDTDKernel/grid"
	"github.com/notargets/FDTDKernel/mesh"
	"github.com/notargets/FDTDKernel/utils"
)

// DefaultEpsilon is the tolerance for flagging a crossing as a layer tie
const DefaultEpsilon = 1e-6

// Crossing is where the vertical line through a column meets a triangle:
// (x, y, T) = a + U·(b−a) + V·(c−a). Tie is set when the line passes through
// an edge or vertex of the triangle's projection, whether or not the tie rule
// counted it.
type Crossing struct {
	Hit     bool
	Tie     bool
	U, V, T float64
}

// Intersect crosses the vertical line through (x, y) with triangle abc.
// The projected triangle is half-open: a point on an edge belongs to it only
// when the edge direction, taken counter-clockwise, points up or, if
// horizontal, left. A line through an edge or vertex shared by triangles of
// a closed mesh therefore hits exactly one of them. Triangles whose
// projection has no area never hit.
func Intersect(a, b, c mgl64.Vec3, x, y float64) Crossing {
	p := [3]mgl64.Vec2{a.Vec2(), b.Vec2(), c.Vec2()}
	z := [3]float64{a.Z(), b.Z(), c.Z()}
	area := cross2(p[1].Sub(p[0]), p[2].Sub(p[0]))
	if area == 0 {
		return Crossing{}
	}
	flipped := area < 0
	if flipped {
		p[1], p[2] = p[2], p[1]
		z[1], z[2] = z[2], z[1]
		area = -area
	}

	q := mgl64.Vec2{x, y}
	cr := Crossing{Hit: true}
	var w [3]float64
	for i := range w {
		from, to := p[(i+1)%3], p[(i+2)%3]
		e := to.Sub(from)
		w[i] = cross2(e, q.Sub(from))
		switch {
		case w[i] < 0:
			return Crossing{}
		case w[i] == 0:
			cr.Tie = true
			if !counted(e) {
				cr.Hit = false
			}
		}
	}
	l0, l1, l2 := w[0]/area, w[1]/area, w[2]/area
	cr.T = l0*z[0] + l1*z[1] + l2*z[2]
	cr.U, cr.V = l1, l2
	if flipped {
		cr.U, cr.V = l2, l1
	}
	return cr
}

// counted is the half-open edge rule: exactly one of e and −e is counted
func counted(e mgl64.Vec2) bool {
	return e[1] > 0 || (e[1] == 0 && e[0] < 0)
}

func cross2(a, b mgl64.Vec2) float64 { return a[0]*b[1] - a[1]*b[0] }

// Layer is the first cell index whose centre lies past a crossing at t
func Layer(t float64) int { return int(math.Floor(t + 0.5)) }

// Hit is a crossing recorded for diagnostics
type Hit struct {
	Triangle int
	X, Y     int
	Crossing Crossing
}

func (h Hit) String() string {
	return fmt.Sprintf("triangle %d column (%d,%d) u=%.3g v=%.3g t=%.6g",
		h.Triangle, h.X, h.Y, h.Crossing.U, h.Crossing.V, h.Crossing.T)
}

// Report summarizes one voxelization. Ties counts column/triangle pairs
// settled by the edge rule; Ambiguous lists counted crossings within Epsilon
// of a layer boundary.
type Report struct {
	Crossings  int
	Interior   int
	Degenerate int
	Ties       int
	Ambiguous  []Hit
}

// Voxelizer holds the tolerances and execution resources of a voxelization
type Voxelizer struct {
	Epsilon float64
	Pool    *dispatch.Pool
	Logger  utils.Logger
}

// New returns a voxelizer with the default tolerance
func New() *Voxelizer {
	return &Voxelizer{Epsilon: DefaultEpsilon, Pool: dispatch.Default}
}

// Voxelize is New().Voxelize
func Voxelize(m *mesh.Mesh, mat *grid.MaterialMap, inside grid.Material) (Report, error) {
	return New().Voxelize(m, mat, inside)
}

// Voxelize writes inside's coefficients into every cell of mat enclosed by
// m. Cells outside keep what is already there, so several meshes can be
// applied in turn over a seeded background.
func (vx *Voxelizer) Voxelize(m *mesh.Mesh, mat *grid.MaterialMap, inside grid.Material) (Report, error) {
	var rep Report
	if err := m.Validate(); err != nil {
		return rep, fmt.Errorf("voxelize: %w", err)
	}
	if err := inside.Validate(); err != nil {
		return rep, fmt.Errorf("voxelize: %w", err)
	}
	log := utils.OrNop(vx.Logger)
	d := mat.Dim
	flags := make([]int32, d.Cells())

	var (
		mu                          sync.Mutex
		crossings, degenerate, ties int64
	)
	vx.Pool.Each(m.Triangles(), func(tri int) {
		a32, b32, c32 := m.Triangle(tri)
		a, b, c := vec64(a32), vec64(b32), vec64(c32)
		if b.Sub(a).Cross(c.Sub(a)).Z() == 0 {
			// Parallel to the columns: no crossing can be counted
			atomic.AddInt64(&degenerate, 1)
			return
		}
		x0, x1 := columns(min(a[0], b[0], c[0]), max(a[0], b[0], c[0]), d.NX)
		y0, y1 := columns(min(a[1], b[1], c[1]), max(a[1], b[1], c[1]), d.NY)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				cr := Intersect(a, b, c, float64(x)+0.5, float64(y)+0.5)
				if cr.Tie {
					atomic.AddInt64(&ties, 1)
				}
				if !cr.Hit {
					continue
				}
				if vx.ambiguous(cr) {
					mu.Lock()
					rep.Ambiguous = append(rep.Ambiguous, Hit{Triangle: tri, X: x, Y: y, Crossing: cr})
					mu.Unlock()
				}
				z := max(Layer(cr.T), 0)
				if z >= d.NZ {
					continue
				}
				atomic.AddInt32(&flags[d.Index(x, y, z)], 1)
				atomic.AddInt64(&crossings, 1)
			}
		}
	})
	sort.Slice(rep.Ambiguous, func(i, j int) bool {
		a, b := rep.Ambiguous[i], rep.Ambiguous[j]
		if a.Triangle != b.Triangle {
			return a.Triangle < b.Triangle
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	rep.Crossings = int(crossings)
	rep.Degenerate = int(degenerate)
	rep.Ties = int(ties)

	e, h := mat.Triples(inside)
	plane := d.NX * d.NY
	count := make([]int32, plane)
	var interior int64
	for z := 0; z < d.NZ; z++ {
		base := z * plane
		vx.Pool.Range(plane, func(lo, hi int) {
			n := 0
			for i := lo; i < hi; i++ {
				count[i] += flags[base+i]
				if count[i]&1 == 1 {
					mat.SetCell(base+i, e, h)
					n++
				}
			}
			atomic.AddInt64(&interior, int64(n))
		})
	}
	rep.Interior = int(interior)

	for _, hit := range rep.Ambiguous {
		log.Warnf("crossing on a layer boundary: %v", hit)
	}
	log.Debugf("voxelized %d triangles: %d crossings, %d interior cells, %d degenerate, %d edge ties",
		m.Triangles(), rep.Crossings, rep.Interior, rep.Degenerate, rep.Ties)
	return rep, nil
}

// ambiguous is a crossing within Epsilon of a layer boundary, where the
// layer depends on the last bits of T
func (vx *Voxelizer) ambiguous(cr Crossing) bool {
	frac := cr.T + 0.5 - math.Floor(cr.T+0.5)
	return frac < vx.Epsilon || frac > 1-vx.Epsilon
}

// columns is the index range of column centres i+½ that may fall in [lo, hi]
func columns(lo, hi float64, n int) (first, last int) {
	first = max(int(math.Floor(lo-0.5)), 0)
	last = min(int(math.Ceil(hi-0.5)), n-1)
	return
}

func vec64(v [3]float32) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}
