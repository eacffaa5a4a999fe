package source

import (
	"fmt"

	"github.com/notargets/FDTDKernel/grid"
)

// Mode drives a complex amplitude profile on the cross-section normal to
// Normal at plane Index. The profile is Width×Height cells starting at
// Origin, laid out along (Normal.Next(), Normal.Prev()) with the first axis
// fastest. Amplitude[a] is the profile of field component a; nil components
// are not driven.
type Mode struct {
	Normal    grid.Axis
	Index     int
	Origin    [2]int
	Width     int
	Height    int
	Amplitude [3][]complex64
	Field     grid.Kind
}

// NewMode allocates an undriven profile
func NewMode(field grid.Kind, normal grid.Axis, index int, origin [2]int, w, h int) (*Mode, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("mode profile must be non-empty, got %dx%d", w, h)
	}
	return &Mode{Normal: normal, Index: index, Origin: origin, Width: w, Height: h, Field: field}, nil
}

// Plane is a mode with a uniform real amplitude on every cell, the additive
// plane source used for plane-wave launches
func Plane(field grid.Kind, normal, component grid.Axis, index int, dim grid.Dimension, strength float32) *Mode {
	w, h := dim.Extent(normal.Next()), dim.Extent(normal.Prev())
	m := &Mode{Normal: normal, Index: index, Width: w, Height: h, Field: field}
	amp := make([]complex64, w*h)
	for i := range amp {
		amp[i] = complex(strength, 0)
	}
	m.Amplitude[component] = amp
	return m
}

// Set stores the amplitude of component a at profile cell (u, v)
func (m *Mode) Set(a grid.Axis, u, v int, value complex64) {
	if u < 0 || u >= m.Width || v < 0 || v >= m.Height {
		return
	}
	if m.Amplitude[a] == nil {
		m.Amplitude[a] = make([]complex64, m.Width*m.Height)
	}
	m.Amplitude[a][u+m.Width*v] = value
}

// Inject adds Re(A·e^{iθ})·envelope·dt = (Re·cos − Im·sin)·envelope·dt to
// each driven component over the cross-section. Profile cells that fall
// outside the grid are skipped.
func (m *Mode) Inject(f *grid.Fields, cos, sin, envelope, dt float32) {
	d := f.Dim
	u, v := m.Normal.Next(), m.Normal.Prev()
	scale := float32(envelope * dt)
	var c [3]int
	c[m.Normal] = m.Index
	for a := grid.X; a <= grid.Z; a++ {
		amp := m.Amplitude[a]
		if amp == nil {
			continue
		}
		dst := f.Component(m.Field, a).Data
		for j := 0; j < m.Height; j++ {
			c[v] = m.Origin[1] + j
			for i := 0; i < m.Width; i++ {
				c[u] = m.Origin[0] + i
				if !d.Contains(c[0], c[1], c[2]) {
					continue
				}
				z := amp[i+m.Width*j]
				re := float32(real(z) * cos)
				im := float32(imag(z) * sin)
				dst[d.Index(c[0], c[1], c[2])] += float32(float32(re-im) * scale)
			}
		}
	}
}

// Fill interpolates scattered samples of component a onto the profile.
// Sample coordinates are in profile cells; cells outside the convex hull of
// the samples get zero.
func (m *Mode) Fill(a grid.Axis, samples []Sample) error {
	ip, err := NewInterpolator(samples)
	if err != nil {
		return fmt.Errorf("mode profile for %v: %w", a, err)
	}
	amp := make([]complex64, m.Width*m.Height)
	for j := 0; j < m.Height; j++ {
		for i := 0; i < m.Width; i++ {
			if z, ok := ip.At(float64(i), float64(j)); ok {
				amp[i+m.Width*j] = complex64(z)
			}
		}
	}
	m.Amplitude[a] = amp
	return nil
}
