package config

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/notargets/FDTDKernel/cpml"
	"github.com/notargets/FDTDKernel/dispatch"
	"github.com/notargets/FDTDKernel/fdtd"
	"github.com/notargets/FDTDKernel/grid"
	"github.com/notargets/FDTDKernel/mesh"
	"github.com/notargets/FDTDKernel/source"
	"github.com/notargets/FDTDKernel/utils"
	"github.com/notargets/FDTDKernel/voxel"
)

// Setup is a simulation assembled from a preset
type Setup struct {
	Simulation *fdtd.Simulation
	CPML       *cpml.Engine // nil unless the boundary is pml
	Pool       *dispatch.Pool
	Reports    []voxel.Report
}

// Build allocates the grids, voxelizes the models and wires the boundary,
// sources and probes. The device backend is left to the caller.
func (p *Preset) Build(log utils.Logger) (*Setup, error) {
	log = utils.OrNop(log)
	dim := p.GridDimension()
	dx, dt := p.Grid.SpatialStep, p.Grid.TemporalStep
	layers := p.Boundary.Layers

	mat, err := grid.NewMaterialMap(dim, dt, dx, grid.Vacuum())
	if err != nil {
		return nil, err
	}
	setup := &Setup{Pool: dispatch.NewPool(p.Run.Workers)}

	vx := voxel.New()
	vx.Pool = setup.Pool
	vx.Logger = log
	for i, m := range p.Models {
		shape := p.modelMesh(m, layers)
		rep, err := vx.Voxelize(shape, mat, grid.FromRefractiveIndex(m.RefractiveIndex))
		if err != nil {
			return nil, fmt.Errorf("model %d: %w", i, err)
		}
		log.Infof("model %d (%s, n=%g): %d interior cells", i, m.Shape, m.RefractiveIndex, rep.Interior)
		setup.Reports = append(setup.Reports, rep)
	}

	wall := fdtd.PEC
	switch p.Boundary.Kind {
	case "pmc":
		wall = fdtd.PMC
	case "pml":
		wall, _ = fdtd.ParseBoundary(p.Boundary.Wall)
		mat.ExtendIntoBoundary(layers)
	}

	engine := fdtd.NewEngine(wall)
	engine.Tile = p.Tile()
	engine.Pool = setup.Pool
	fields := grid.NewFields(dim)
	sim, err := fdtd.NewSimulation(fields, mat, engine)
	if err != nil {
		return nil, err
	}
	sim.Logger = log
	setup.Simulation = sim

	if p.Boundary.Kind == "pml" {
		g := cpml.DefaultGrading(dx)
		if p.Boundary.Order > 0 {
			g.Order = p.Boundary.Order
		}
		if p.Boundary.SigmaMax > 0 {
			g.SigmaMax = p.Boundary.SigmaMax
		}
		if p.Boundary.AlphaMax > 0 {
			g.AlphaMax = p.Boundary.AlphaMax
		}
		absorber, err := cpml.New(dim, layers, dt, g)
		if err != nil {
			return nil, fmt.Errorf("pml boundary: %w", err)
		}
		absorber.Pool = setup.Pool
		sim.Absorber = absorber
		setup.CPML = absorber
	}

	for i, s := range p.Sources {
		drive, err := p.drive(s, dim, layers)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		sim.AddSource(drive)
	}

	for i, pr := range p.Probes {
		kind, _ := ParseKind(pr.Field)
		axis, _ := ParseAxis(pr.Component)
		name := pr.Name
		if name == "" {
			name = fmt.Sprintf("probe%d", i)
		}
		pos := pr.Position
		sim.AddProbe(fdtd.NewProbe(name, kind, axis, pos[0]+layers, pos[1]+layers, pos[2]+layers))
	}

	log.Infof("grid %v (interior %v, %d boundary layers), dx=%g dt=%g, wall %v",
		dim, p.Interior(), layers, dx, dt, wall)
	return setup, nil
}

// modelMesh places a model in cell units: the physical position is divided
// by dx and offset by the boundary layers
func (p *Preset) modelMesh(m ModelSettings, layers int) *mesh.Mesh {
	var base *mesh.Mesh
	if m.Shape == "sphere" {
		base = mesh.Icosphere(m.Subdivisions)
	} else {
		base = mesh.Box(mgl32.Vec3{-0.5, -0.5, -0.5}, mgl32.Vec3{0.5, 0.5, 0.5})
	}
	dx := p.Grid.SpatialStep
	var pos, scale mgl32.Vec3
	for a := 0; a < 3; a++ {
		pos[a] = float32(m.Position[a]/dx) + float32(layers)
		scale[a] = float32(m.Scale[a] / dx)
	}
	return base.Transform(pos, scale)
}

func (p *Preset) drive(s SourceSettings, dim grid.Dimension, layers int) (*source.Drive, error) {
	kind, err := ParseKind(s.Field)
	if err != nil {
		return nil, err
	}
	env, err := source.ParseEnvelope(s.Envelope, s.Delay, s.Width)
	if err != nil {
		return nil, err
	}
	d := &source.Drive{Envelope: env, Omega: 2 * math.Pi * s.Frequency}
	if s.Kind == "plane" {
		normal, _ := ParseAxis(s.Normal)
		component, _ := ParseAxis(s.Component)
		strength := float32(1)
		if st := s.Strength[component]; st != 0 {
			strength = float32(st)
		}
		d.Mode = source.Plane(kind, normal, component, s.Index+layers, dim, strength)
		return d, nil
	}
	b := source.Box{Field: kind}
	for a := 0; a < 3; a++ {
		b.Position[a] = s.Position[a] + layers
		b.Strength[a] = float32(s.Strength[a])
		if s.Kind == "box" {
			b.Size[a] = s.Size[a]
		}
	}
	d.Box = &b
	return d, nil
}
