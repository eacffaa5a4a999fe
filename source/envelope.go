// Package source injects excitations into the field grids: uniform point or
// box sources scaled by the material injection channel, and modal sources
// that drive a complex amplitude profile on a cross-section with a rotating
// phase.
package source

import (
	"fmt"
	"math"
	"strings"
)

// Envelope shapes a source in time
type Envelope interface {
	At(t float64) float64
}

// Gaussian is exp(−((t−Delay)/Width)²)
type Gaussian struct {
	Delay, Width float64
}

func (g Gaussian) At(t float64) float64 {
	u := (t - g.Delay) / g.Width
	return math.Exp(-u * u)
}

// DiffGaussian is the time derivative of Gaussian scaled to unit peak. It
// carries no DC component, so a current source driven by it leaves no
// static charge behind.
type DiffGaussian struct {
	Delay, Width float64
}

func (g DiffGaussian) At(t float64) float64 {
	u := (t - g.Delay) / g.Width
	// peak of 2u·exp(−u²) is √(2/e) at u = 1/√2
	return -2 * u * math.Exp(-u*u) / math.Sqrt(2/math.E)
}

// Ricker is the Mexican-hat wavelet centred on Delay
type Ricker struct {
	Delay, Frequency float64
}

func (r Ricker) At(t float64) float64 {
	a := math.Pi * r.Frequency * (t - r.Delay)
	return (1 - 2*a*a) * math.Exp(-a*a)
}

// Ramp rises from 0 to 1 over Rise with a raised-cosine profile and holds
// at 1, for continuous-wave drives
type Ramp struct {
	Rise float64
}

func (r Ramp) At(t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t >= r.Rise:
		return 1
	default:
		return 0.5 * (1 - math.Cos(math.Pi*t/r.Rise))
	}
}

// Constant is a fixed envelope
type Constant float64

func (c Constant) At(float64) float64 { return float64(c) }

// ParseEnvelope builds an envelope by name ("gaussian", "diffgaussian",
// "ricker", "ramp", "constant") from delay/width. Ricker reads width as
// the peak frequency; Ramp reads it as the rise time.
func ParseEnvelope(name string, delay, width float64) (Envelope, error) {
	switch strings.ToLower(name) {
	case "", "gaussian":
		if width <= 0 {
			return nil, fmt.Errorf("gaussian width must be positive, got %g", width)
		}
		return Gaussian{Delay: delay, Width: width}, nil
	case "diffgaussian", "differentiated_gaussian":
		if width <= 0 {
			return nil, fmt.Errorf("gaussian width must be positive, got %g", width)
		}
		return DiffGaussian{Delay: delay, Width: width}, nil
	case "ricker":
		return Ricker{Delay: delay, Frequency: width}, nil
	case "ramp":
		return Ramp{Rise: width}, nil
	case "constant":
		return Constant(1), nil
	default:
		return nil, fmt.Errorf("unknown envelope %q", name)
	}
}

// Phase returns (cos θ, sin θ) for θ = omega·step·dt
func Phase(step int, dt, omega float64) (cos, sin float32) {
	s, c := math.Sincos(omega * float64(step) * dt)
	return float32(c), float32(s)
}
