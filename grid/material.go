package grid

import "fmt"

// Material holds the bulk constants of a medium in normalized units
// (ε0 = μ0 = c = 1)
type Material struct {
	Permittivity         float64
	Permeability         float64
	ElectricConductivity float64
	MagneticConductivity float64
}

// Vacuum is ε = μ = 1, lossless
func Vacuum() Material {
	return Material{Permittivity: 1, Permeability: 1}
}

// FromRefractiveIndex builds a lossless dielectric with ε = n²
func FromRefractiveIndex(n float64) Material {
	return Material{Permittivity: n * n, Permeability: 1}
}

// Validate rejects non-physical constants
func (m Material) Validate() error {
	if m.Permittivity <= 0 || m.Permeability <= 0 {
		return fmt.Errorf("permittivity and permeability must be positive, got ε=%g μ=%g",
			m.Permittivity, m.Permeability)
	}
	if m.ElectricConductivity < 0 || m.MagneticConductivity < 0 {
		return fmt.Errorf("conductivities must be non-negative, got σ=%g σm=%g",
			m.ElectricConductivity, m.MagneticConductivity)
	}
	return nil
}

// Triple is the (c1, c2, c3) update coefficient set plus the source
// injection channel Inj = −c3 = 2·dt/(2ε+σ·dt), which is dt/ε for a
// lossless cell.
type Triple struct {
	C1, C2, C3, Inj float32
}

// UpdateTriple evaluates
//
//	c1 = (2ε−σ·dt)/(2ε+σ·dt), c3 = −2·dt/(2ε+σ·dt), c2 = c3/dx
func UpdateTriple(eps, sigma, dt, dx float64) Triple {
	den := 2*eps + sigma*dt
	c3 := -2 * dt / den
	return Triple{
		C1:  float32((2*eps - sigma*dt) / den),
		C2:  float32(c3 / dx),
		C3:  float32(c3),
		Inj: float32(-c3),
	}
}

// Coefficients stores one Triple per cell as parallel arrays
type Coefficients struct {
	C1, C2, C3, Inj []float32
}

func newCoefficients(n int) Coefficients {
	return Coefficients{
		C1:  make([]float32, n),
		C2:  make([]float32, n),
		C3:  make([]float32, n),
		Inj: make([]float32, n),
	}
}

func (c Coefficients) set(i int, t Triple) {
	c.C1[i], c.C2[i], c.C3[i], c.Inj[i] = t.C1, t.C2, t.C3, t.Inj
}

// At returns the Triple of cell i
func (c Coefficients) At(i int) Triple {
	return Triple{C1: c.C1[i], C2: c.C2[i], C3: c.C3[i], Inj: c.Inj[i]}
}

// MaterialMap holds the electric and magnetic coefficients of every cell
type MaterialMap struct {
	Dim      Dimension
	Dt, Dx   float64
	Electric Coefficients
	Magnetic Coefficients
}

// NewMaterialMap allocates coefficients and seeds every cell with background
func NewMaterialMap(dim Dimension, dt, dx float64, background Material) (*MaterialMap, error) {
	if dt <= 0 || dx <= 0 {
		return nil, fmt.Errorf("time and space steps must be positive, got dt=%g dx=%g", dt, dx)
	}
	if err := background.Validate(); err != nil {
		return nil, fmt.Errorf("background material: %w", err)
	}
	n := dim.Cells()
	m := &MaterialMap{
		Dim:      dim,
		Dt:       dt,
		Dx:       dx,
		Electric: newCoefficients(n),
		Magnetic: newCoefficients(n),
	}
	m.Seed(background)
	return m, nil
}

// Triples evaluates the electric and magnetic update coefficients of mat
func (m *MaterialMap) Triples(mat Material) (electric, magnetic Triple) {
	electric = UpdateTriple(mat.Permittivity, mat.ElectricConductivity, m.Dt, m.Dx)
	magnetic = UpdateTriple(mat.Permeability, mat.MagneticConductivity, m.Dt, m.Dx)
	return
}

// Seed assigns mat to every cell
func (m *MaterialMap) Seed(mat Material) {
	e, h := m.Triples(mat)
	for i := 0; i < m.Dim.Cells(); i++ {
		m.Electric.set(i, e)
		m.Magnetic.set(i, h)
	}
}

// SetCell assigns precomputed triples to one cell
func (m *MaterialMap) SetCell(idx int, electric, magnetic Triple) {
	m.Electric.set(idx, electric)
	m.Magnetic.set(idx, magnetic)
}

// SetBox assigns mat to the cells of [lo, hi) clipped to the grid
func (m *MaterialMap) SetBox(lo, hi [3]int, mat Material) {
	e, h := m.Triples(mat)
	for z := max(lo[2], 0); z < min(hi[2], m.Dim.NZ); z++ {
		for y := max(lo[1], 0); y < min(hi[1], m.Dim.NY); y++ {
			for x := max(lo[0], 0); x < min(hi[0], m.Dim.NX); x++ {
				m.SetCell(m.Dim.Index(x, y, z), e, h)
			}
		}
	}
}

// ExtendIntoBoundary copies the material of the innermost non-boundary cell
// outward into the absorbing slabs of the given thickness, so interfaces
// that cross the boundary continue into the layer unchanged.
func (m *MaterialMap) ExtendIntoBoundary(layers int) {
	if layers <= 0 {
		return
	}
	d := m.Dim
	clamp := func(c, n int) int {
		if n <= 2*layers {
			return c
		}
		return min(max(c, layers), n-1-layers)
	}
	for z := 0; z < d.NZ; z++ {
		cz := clamp(z, d.NZ)
		for y := 0; y < d.NY; y++ {
			cy := clamp(y, d.NY)
			for x := 0; x < d.NX; x++ {
				cx := clamp(x, d.NX)
				if cx == x && cy == y && cz == z {
					continue
				}
				src, dst := d.Index(cx, cy, cz), d.Index(x, y, z)
				m.Electric.set(dst, m.Electric.At(src))
				m.Magnetic.set(dst, m.Magnetic.At(src))
			}
		}
	}
}

// CourantLimit is the largest stable dt for a uniform vacuum grid
func CourantLimit(dx float64) float64 {
	return dx / sqrt3
}

const sqrt3 = 1.7320508075688772
