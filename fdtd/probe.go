package fdtd

import (
	"math"

	"github.com/notargets/FDTDKernel/grid"
	"gonum.org/v1/gonum/floats"
)

// Probe records one field component at one cell after every step
type Probe struct {
	Name      string
	Kind      grid.Kind
	Component grid.Axis
	X, Y, Z   int
	Samples   []float64
}

// NewProbe creates an empty probe
func NewProbe(name string, kind grid.Kind, component grid.Axis, x, y, z int) *Probe {
	return &Probe{Name: name, Kind: kind, Component: component, X: x, Y: y, Z: z}
}

// Record appends the current value; cells outside the grid record zero
func (p *Probe) Record(f *grid.Fields) {
	p.Samples = append(p.Samples, float64(f.Component(p.Kind, p.Component).At(p.X, p.Y, p.Z)))
}

// Statistics returns the peak magnitude and RMS of the recorded samples
func (p *Probe) Statistics() (peak, rms float64) {
	n := len(p.Samples)
	if n == 0 {
		return 0, 0
	}
	peak = math.Max(math.Abs(floats.Max(p.Samples)), math.Abs(floats.Min(p.Samples)))
	rms = floats.Norm(p.Samples, 2) / math.Sqrt(float64(n))
	return
}
