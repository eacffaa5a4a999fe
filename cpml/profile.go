package cpml

import (
	"fmt"
	"math"

	"github.com/notargets/FDTDKernel/grid"
)

// Grading parameterizes the polynomial conductivity profile
//
//	σ(d) = SigmaMax·dᴼʳᵈᵉʳ,  α(d) = AlphaMax·(1−d),  κ = 1
//
// where d ∈ (0,1] is the normalized depth into the layer.
type Grading struct {
	Order    float64
	SigmaMax float64
	AlphaMax float64
}

// DefaultGrading is the cubic profile with the usual near-optimal σmax
// of 0.8(m+1)/dx in normalized units
func DefaultGrading(dx float64) Grading {
	const m = 3
	return Grading{Order: m, SigmaMax: 0.8 * (m + 1) / dx, AlphaMax: 0.05}
}

// Profile holds the decay b and psi coefficient a·(b−1) per axis, sampled at
// the E (integer) and H (half-integer) positions of every cell along the
// axis. Profiles can be filled by Graded or supplied directly.
type Profile struct {
	BE, CE [3][]float32
	BH, CH [3][]float32
}

// NewProfile allocates a profile whose cells all have b = 1, a = 0
func NewProfile(dim grid.Dimension) *Profile {
	p := &Profile{}
	for a := grid.X; a <= grid.Z; a++ {
		n := dim.Extent(a)
		p.BE[a], p.CE[a] = ones(n), make([]float32, n)
		p.BH[a], p.CH[a] = ones(n), make([]float32, n)
	}
	return p
}

func ones(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

// Coefficients evaluates b = exp(−(σ+α)·dt) and a·(b−1) with the alpha
// factor a = σ/(σ+α)
func Coefficients(sigma, alpha, dt float64) (b, c float64) {
	if sigma+alpha <= 0 {
		return 1, 0
	}
	b = math.Exp(-(sigma + alpha) * dt)
	c = sigma / (sigma + alpha) * (b - 1)
	return
}

// Depth is the normalized penetration of position p (in cells) into the
// layers of an axis of n cells; 0 outside the layers. The lower interface
// sits at layers−½ and the upper at n−layers−½ so every position with a
// non-zero depth belongs to a shell cell.
func Depth(p float64, n, layers int) float64 {
	L := float64(layers)
	lower := (L - 0.5 - p) / L
	upper := (p - (float64(n-layers) - 0.5)) / L
	d := max(lower, upper)
	return min(max(d, 0), 1)
}

// Graded samples g on every axis of dim
func Graded(dim grid.Dimension, layers int, dt float64, g Grading) (*Profile, error) {
	if g.Order < 0 || g.SigmaMax < 0 || g.AlphaMax < 0 {
		return nil, fmt.Errorf("invalid grading %+v", g)
	}
	p := NewProfile(dim)
	eval := func(depth float64) (b, c float32) {
		if depth <= 0 {
			return 1, 0
		}
		sigma := g.SigmaMax * math.Pow(depth, g.Order)
		alpha := g.AlphaMax * (1 - depth)
		bb, cc := Coefficients(sigma, alpha, dt)
		return float32(bb), float32(cc)
	}
	for a := grid.X; a <= grid.Z; a++ {
		n := dim.Extent(a)
		for i := 0; i < n; i++ {
			p.BE[a][i], p.CE[a][i] = eval(Depth(float64(i), n, layers))
			p.BH[a][i], p.CH[a][i] = eval(Depth(float64(i)+0.5, n, layers))
		}
	}
	return p, nil
}

// validate checks that the profile covers dim
func (p *Profile) validate(dim grid.Dimension) error {
	for a := grid.X; a <= grid.Z; a++ {
		n := dim.Extent(a)
		for _, s := range [][]float32{p.BE[a], p.CE[a], p.BH[a], p.CH[a]} {
			if len(s) != n {
				return fmt.Errorf("profile along %v has %d samples, grid has %d: %w",
					a, len(s), n, grid.ErrDimensionMismatch)
			}
		}
	}
	return nil
}
