package runner

import (
	"fmt"

	"github.com/notargets/FDTDKernel/fdtd"
	"github.com/notargets/FDTDKernel/grid"
	"github.com/notargets/FDTDKernel/runner/builder"
	"github.com/notargets/FDTDKernel/source"
	"github.com/notargets/gocca"
)

// maxTileLanes bounds the @inner extent of the tiled kernels
const maxTileLanes = 1024

var (
	eNames = [3]string{"Ex", "Ey", "Ez"}
	hNames = [3]string{"Hx", "Hy", "Hz"}
)

// FieldSolver runs the curl half-steps of one simulation on an OCCA device.
// The six field arrays are uploaded before and downloaded after every
// kernel, so host-side stages (absorbing layer, sources, probes) can work on
// the same slices between half-steps. Coefficients are uploaded once.
type FieldSolver struct {
	*Runner
	Fields   *grid.Fields
	Material *grid.MaterialMap
	Boundary fdtd.Boundary
	Tile     fdtd.TileSize
}

// NewFieldSolver compiles the update kernels for f and m. A tile size with
// every extent positive selects the @shared tiled kernels.
func NewFieldSolver(device *gocca.OCCADevice, f *grid.Fields, m *grid.MaterialMap,
	b fdtd.Boundary, tile fdtd.TileSize) (*FieldSolver, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if m.Dim != f.Dim {
		return nil, fmt.Errorf("material is %v, fields are %v: %w", m.Dim, f.Dim, grid.ErrDimensionMismatch)
	}
	cfg := builder.Config{Dim: f.Dim}
	if tile.Enabled() {
		if lanes := tile.X * tile.Y * tile.Z; lanes > maxTileLanes {
			return nil, fmt.Errorf("tile %v has %d lanes, device limit is %d", tile, lanes, maxTileLanes)
		}
		cfg.Tile = [3]int{tile.X, tile.Y, tile.Z}
	}
	s := &FieldSolver{
		Runner:   NewRunner(device, cfg),
		Fields:   f,
		Material: m,
		Boundary: b,
		Tile:     tile,
	}
	if err := s.build(); err != nil {
		s.Free()
		return nil, err
	}
	return s, nil
}

func (s *FieldSolver) build() error {
	f, m := s.Fields, s.Material
	boundary := int32(s.Boundary)

	hParams := []*builder.ParamBuilder{
		builder.Input("Ex").Bind(f.Ex.Data).CopyTo(),
		builder.Input("Ey").Bind(f.Ey.Data).CopyTo(),
		builder.Input("Ez").Bind(f.Ez.Data).CopyTo(),
		builder.InOut("Hx").Bind(f.Hx.Data).Copy(),
		builder.InOut("Hy").Bind(f.Hy.Data).Copy(),
		builder.InOut("Hz").Bind(f.Hz.Data).Copy(),
		builder.Input("H_C1").Bind(m.Magnetic.C1),
		builder.Input("H_C2").Bind(m.Magnetic.C2),
		builder.Scalar("boundary").Bind(boundary),
	}
	eParams := []*builder.ParamBuilder{
		builder.Input("Hx").Bind(f.Hx.Data).CopyTo(),
		builder.Input("Hy").Bind(f.Hy.Data).CopyTo(),
		builder.Input("Hz").Bind(f.Hz.Data).CopyTo(),
		builder.InOut("Ex").Bind(f.Ex.Data).Copy(),
		builder.InOut("Ey").Bind(f.Ey.Data).Copy(),
		builder.InOut("Ez").Bind(f.Ez.Data).Copy(),
		builder.Input("E_C1").Bind(m.Electric.C1),
		builder.Input("E_C2").Bind(m.Electric.C2),
		builder.Scalar("boundary").Bind(boundary),
	}
	if err := s.DefineKernel("updateH", hParams...); err != nil {
		return fmt.Errorf("define updateH: %w", err)
	}
	if err := s.DefineKernel("updateE", eParams...); err != nil {
		return fmt.Errorf("define updateE: %w", err)
	}

	hSrc, eSrc := updateHSource, updateESource
	if s.Tile.Enabled() {
		hSrc = tileMacros + "@kernel void updateH(\n\t%s\n) {" + fmt.Sprintf(tileLoops, "E", tiledHBody) + "}\n"
		eSrc = tileMacros + "@kernel void updateE(\n\t%s\n) {" + fmt.Sprintf(tileLoops, "H", tiledEBody) + "}\n"
	}
	for name, src := range map[string]string{"updateH": hSrc, "updateE": eSrc} {
		sig, err := s.GetKernelSignature(name)
		if err != nil {
			return err
		}
		if _, err := s.BuildKernel(fmt.Sprintf(src, sig), name); err != nil {
			return err
		}
	}

	for _, kind := range []grid.Kind{grid.Electric, grid.Magnetic} {
		names, inj, injName := eNames, m.Electric.Inj, "E_Inj"
		if kind == grid.Magnetic {
			names, inj, injName = hNames, m.Magnetic.Inj, "H_Inj"
		}
		for a := grid.X; a <= grid.Z; a++ {
			kernel := injectKernel(kind, a)
			err := s.DefineKernel(kernel,
				builder.InOut(names[a]).Bind(f.Component(kind, a).Data).Copy(),
				builder.Input(injName).Bind(inj),
				builder.Scalar("x0").Type(builder.INT32),
				builder.Scalar("y0").Type(builder.INT32),
				builder.Scalar("z0").Type(builder.INT32),
				builder.Scalar("sx").Type(builder.INT32),
				builder.Scalar("sy").Type(builder.INT32),
				builder.Scalar("sz").Type(builder.INT32),
				builder.Scalar("amount").Type(builder.Float32),
				builder.Scalar("dt").Type(builder.Float32),
			)
			if err != nil {
				return fmt.Errorf("define %s: %w", kernel, err)
			}
			sig, _ := s.GetKernelSignature(kernel)
			src := fmt.Sprintf(injectSource, kernel, sig, names[a], injName)
			if _, err := s.BuildKernel(src, kernel); err != nil {
				return err
			}
		}
	}
	return nil
}

func injectKernel(kind grid.Kind, a grid.Axis) string {
	if kind == grid.Magnetic {
		return "inject" + hNames[a]
	}
	return "inject" + eNames[a]
}

func (s *FieldSolver) check(f *grid.Fields, m *grid.MaterialMap) error {
	if f != s.Fields || m != s.Material {
		return fmt.Errorf("field solver is bound to other buffers")
	}
	return nil
}

// UpdateH advances H by one half-step on the device
func (s *FieldSolver) UpdateH(f *grid.Fields, m *grid.MaterialMap) error {
	if err := s.check(f, m); err != nil {
		return err
	}
	return s.RunKernel("updateH")
}

// UpdateE advances E by one half-step on the device
func (s *FieldSolver) UpdateE(f *grid.Fields, m *grid.MaterialMap) error {
	if err := s.check(f, m); err != nil {
		return err
	}
	return s.RunKernel("updateE")
}

// Inject adds a box source on the device. The result matches Box.Inject up
// to the device's floating point contraction.
func (s *FieldSolver) Inject(b source.Box, envelope float32) error {
	ext := b.Extent()
	dt := float32(s.Material.Dt)
	for a := grid.X; a <= grid.Z; a++ {
		if b.Strength[a] == 0 {
			continue
		}
		amount := b.Strength[a] * envelope
		err := s.RunKernel(injectKernel(b.Field, a),
			b.Position[0], b.Position[1], b.Position[2],
			ext[0], ext[1], ext[2], amount, dt)
		if err != nil {
			return fmt.Errorf("inject %v: %w", b.Field, err)
		}
	}
	return nil
}
