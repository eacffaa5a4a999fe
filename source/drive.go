package source

import (
	"github.com/notargets/FDTDKernel/grid"
)

// Drive binds an injector to an envelope so the stepper can excite it once
// per half-step. Exactly one of Box or Mode is set. Omega is the angular
// frequency of the modal phase rotation; zero keeps θ = 0.
type Drive struct {
	Box      *Box
	Mode     *Mode
	Envelope Envelope
	Omega    float64
}

// Field is the field the drive writes to
func (d *Drive) Field() grid.Kind {
	if d.Mode != nil {
		return d.Mode.Field
	}
	return d.Box.Field
}

// Excite injects the drive when kind matches its field. The envelope is
// sampled at t = step·dt.
func (d *Drive) Excite(kind grid.Kind, f *grid.Fields, m *grid.MaterialMap, step int) {
	if kind != d.Field() {
		return
	}
	env := float32(1)
	if d.Envelope != nil {
		env = float32(d.Envelope.At(float64(step) * m.Dt))
	}
	if env == 0 {
		return
	}
	dt := float32(m.Dt)
	if d.Mode != nil {
		cos, sin := Phase(step, m.Dt, d.Omega)
		d.Mode.Inject(f, cos, sin, env, dt)
		return
	}
	d.Box.Inject(f, m, env, dt)
}
