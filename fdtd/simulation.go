package fdtd

import (
	"context"
	"fmt"

	"github.com/notargets/FDTDKernel/dispatch"
	"github.com/notargets/FDTDKernel/grid"
	"github.com/notargets/FDTDKernel/utils"
)

// Excitation adds source terms to the fields of kind before that half-step
type Excitation interface {
	Excite(kind grid.Kind, f *grid.Fields, m *grid.MaterialMap, step int)
}

// FieldUpdater runs the two curl half-steps on another backend, such as a
// compute device. Implementations apply the same face zeroing as Engine.
type FieldUpdater interface {
	UpdateH(f *grid.Fields, m *grid.MaterialMap) error
	UpdateE(f *grid.Fields, m *grid.MaterialMap) error
}

// Absorber folds an absorbing layer into the field after each half-step
type Absorber interface {
	UpdateH(f *grid.Fields, m *grid.MaterialMap)
	UpdateE(f *grid.Fields, m *grid.MaterialMap)
}

// Simulation owns every buffer of a run and sequences the half-steps:
//
//	Excite(H) → H update → absorber(H) → Excite(E) → E update → absorber(E)
//
// Each stage finishes before the next begins.
type Simulation struct {
	Fields   *grid.Fields
	Material *grid.MaterialMap
	Engine   *Engine
	Device   FieldUpdater
	Absorber Absorber
	Sources  []Excitation
	Probes   []*Probe
	Logger   utils.Logger
	StepNum  int
}

// NewSimulation checks that fields and material share a grid
func NewSimulation(f *grid.Fields, m *grid.MaterialMap, engine *Engine) (*Simulation, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if m.Dim != f.Dim {
		return nil, fmt.Errorf("material is %v, fields are %v: %w", m.Dim, f.Dim, grid.ErrDimensionMismatch)
	}
	if engine == nil {
		engine = NewEngine(PEC)
	}
	return &Simulation{
		Fields:   f,
		Material: m,
		Engine:   engine,
		Logger:   utils.NewNopLogger(),
	}, nil
}

// AddSource registers an excitation
func (s *Simulation) AddSource(src Excitation) { s.Sources = append(s.Sources, src) }

// AddProbe registers a probe recorded after every step
func (s *Simulation) AddProbe(p *Probe) { s.Probes = append(s.Probes, p) }

// Time is the simulated time reached so far
func (s *Simulation) Time() float64 { return float64(s.StepNum) * s.Material.Dt }

// Step advances both fields by one full leapfrog step. Errors only come
// from a Device updater.
func (s *Simulation) Step() error {
	f, m := s.Fields, s.Material
	s.excite(grid.Magnetic)
	if err := s.updateH(); err != nil {
		return fmt.Errorf("H update at step %d: %w", s.StepNum, err)
	}
	if s.Absorber != nil {
		s.Absorber.UpdateH(f, m)
		s.Engine.Boundary.Enforce(grid.Magnetic, f, s.Engine.pool())
	}
	s.excite(grid.Electric)
	if err := s.updateE(); err != nil {
		return fmt.Errorf("E update at step %d: %w", s.StepNum, err)
	}
	if s.Absorber != nil {
		s.Absorber.UpdateE(f, m)
		s.Engine.Boundary.Enforce(grid.Electric, f, s.Engine.pool())
	}
	s.StepNum++
	for _, p := range s.Probes {
		p.Record(f)
	}
	return nil
}

func (s *Simulation) updateH() error {
	if s.Device != nil {
		return s.Device.UpdateH(s.Fields, s.Material)
	}
	s.Engine.UpdateH(s.Fields, s.Material)
	return nil
}

func (s *Simulation) updateE() error {
	if s.Device != nil {
		return s.Device.UpdateE(s.Fields, s.Material)
	}
	s.Engine.UpdateE(s.Fields, s.Material)
	return nil
}

func (s *Simulation) excite(kind grid.Kind) {
	for _, src := range s.Sources {
		src.Excite(kind, s.Fields, s.Material, s.StepNum)
	}
}

// Run advances n steps, stopping early when ctx is cancelled or observe
// returns an error. observe may be nil; it sees the step count after each
// step. The grids keep whatever state the last completed step left.
func (s *Simulation) Run(ctx context.Context, n int, observe func(step int) error) error {
	log := utils.OrNop(s.Logger)
	log.Debugf("running %d steps on %v (boundary %v, tile %v)", n, s.Fields.Dim, s.Engine.Boundary, s.Engine.Tile)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stopped at step %d: %w", s.StepNum, err)
		}
		if err := s.Step(); err != nil {
			return err
		}
		if observe != nil {
			if err := observe(s.StepNum); err != nil {
				return fmt.Errorf("observer at step %d: %w", s.StepNum, err)
			}
		}
	}
	return nil
}

// WithPool points the engine at a specific dispatch pool
func (s *Simulation) WithPool(p *dispatch.Pool) *Simulation {
	s.Engine.Pool = p
	return s
}
