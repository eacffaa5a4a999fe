package runner

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/notargets/FDTDKernel/fdtd"
	"github.com/notargets/FDTDKernel/grid"
	"github.com/notargets/FDTDKernel/runner/builder"
	"github.com/notargets/FDTDKernel/source"
	"github.com/notargets/FDTDKernel/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Section 1: Creation and code generation
// ============================================================================

func TestRunner_NilDevice(t *testing.T) {
	assert.Panics(t, func() {
		NewRunner(nil, builder.Config{Dim: grid.Cube(4)})
	})
}

func TestRunner_EmptyGrid(t *testing.T) {
	device := utils.CreateTestDevice()
	defer device.Free()

	assert.Panics(t, func() {
		NewRunner(device, builder.Config{})
	})
}

func TestBuilder_Preamble(t *testing.T) {
	kb := builder.NewBuilder(builder.Config{
		Dim:  grid.Dimension{NX: 10, NY: 7, NZ: 5},
		Tile: [3]int{4, 4, 2},
	})
	preamble := kb.GeneratePreamble()

	for _, want := range []string{
		"typedef float real_t;",
		"typedef int int_t;",
		"#define NX 10",
		"#define NY 7",
		"#define NZ 5",
		"#define NCELL 350",
		"#define TILE_X 4",
		"#define NTILE_X 3",
		"#define NTILE_Y 2",
		"#define NTILE_Z 3",
		"#define IDX(x, y, z)",
		"#define AT(F, x, y, z)",
		"#define BOUNDARY_PMC 1",
	} {
		assert.Contains(t, preamble, want)
	}
	assert.Equal(t, [3]int{3, 2, 3}, kb.TileCount())

	kb64 := builder.NewBuilder(builder.Config{Dim: grid.Cube(2), FloatType: builder.Float64, IntType: builder.INT64})
	p64 := kb64.GeneratePreamble()
	assert.Contains(t, p64, "typedef double real_t;")
	assert.Contains(t, p64, "typedef long int_t;")
	assert.Equal(t, 8, kb64.GetIntSize())
}

func TestBuilder_Signature(t *testing.T) {
	kb := builder.NewBuilder(builder.Config{Dim: grid.Cube(4)})
	data := make([]float32, 64)
	params := []builder.ParamSpec{
		builder.Input("Ex").Bind(data).Spec,
		builder.InOut("Hx").Bind(data).Copy().Spec,
		builder.Scalar("boundary").Bind(int32(1)).Spec,
		builder.Scalar("dt").Type(builder.Float32).Spec,
		builder.Input("wide").Bind(make([]float64, 3)).Spec,
	}
	sig := kb.GenerateKernelSignature(params)
	lines := strings.Split(sig, ",\n\t")
	assert.Equal(t, []string{
		"const real_t* Ex",
		"real_t* Hx",
		"const int_t boundary",
		"const real_t dt",
		"const double* wide",
	}, lines)

	decl := kb.GenerateKernelDeclaration("updateH", params)
	assert.True(t, strings.HasPrefix(decl, "@kernel void updateH("))
}

func TestParamBuilder_Validate(t *testing.T) {
	testCases := []struct {
		name  string
		param *builder.ParamBuilder
		ok    bool
	}{
		{"bound_input", builder.Input("a").Bind(make([]float32, 4)), true},
		{"unbound_input", builder.Input("a"), false},
		{"temp_sized", builder.Temp("t").Type(builder.Float32).Size(8), true},
		{"temp_bound", builder.Temp("t").Bind(make([]float32, 4)), false},
		{"scalar_typed", builder.Scalar("s").Type(builder.INT32), true},
		{"scalar_untyped", builder.Scalar("s"), false},
		{"unnamed", builder.Input("").Bind(make([]float32, 4)), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.param.Spec.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	p := builder.InOut("f").Bind(make([]int64, 5)).Copy().Spec
	assert.Equal(t, builder.INT64, p.DataType)
	assert.Equal(t, int64(5), p.Size)
	assert.True(t, p.NeedsCopyTo())
	assert.True(t, p.NeedsCopyBack())
	assert.False(t, p.IsConst())
}

// ============================================================================
// Section 2: Memory and execution
// ============================================================================

func TestRunner_ScaleKernel(t *testing.T) {
	device := utils.CreateTestDevice()
	defer device.Free()

	d := grid.Dimension{NX: 6, NY: 3, NZ: 2}
	kr := NewRunner(device, builder.Config{Dim: d})
	defer kr.Free()

	in := make([]float32, d.Cells())
	out := make([]float32, d.Cells())
	for i := range in {
		in[i] = float32(i)
	}
	require.NoError(t, kr.DefineKernel("scale",
		builder.Input("U").Bind(in),
		builder.Output("V").Bind(out).CopyBack(),
		builder.Scalar("alpha").Type(builder.Float32),
	))

	sig, err := kr.GetKernelSignature("scale")
	require.NoError(t, err)
	_, err = kr.BuildKernel(`
@kernel void scale(
	`+sig+`
) {
	for (int z = 0; z < NZ; ++z; @outer) {
		for (int y = 0; y < NY; ++y; @outer) {
			for (int x = 0; x < NX; ++x; @inner) {
				const int_t i = IDX(x, y, z);
				V[i] = alpha * U[i];
			}
		}
	}
}
`, "scale")
	require.NoError(t, err)

	require.NoError(t, kr.RunKernel("scale", 2.5))
	for i := range out {
		assert.InDelta(t, 2.5*float64(i), float64(out[i]), 1e-5)
	}

	assert.Equal(t, []string{"U", "V"}, kr.GetAllocatedArrays())
	n, err := kr.GetArrayLogicalSize("V")
	require.NoError(t, err)
	assert.Equal(t, d.Cells(), n)

	host, err := CopyArrayToHost[float32](kr, "V")
	require.NoError(t, err)
	assert.Equal(t, out, host)
	_, err = CopyArrayToHost[float64](kr, "V")
	assert.Error(t, err)

	dtype, err := kr.GetArrayType("U")
	require.NoError(t, err)
	assert.Equal(t, builder.Float32, dtype)
	_, err = kr.GetArrayType("W")
	assert.Error(t, err)

	// U is not copied per run; a new input reaches the device only when
	// uploaded explicitly
	for i := range in {
		in[i] = 1
	}
	require.NoError(t, kr.CopyToDevice("U"))
	require.NoError(t, kr.RunKernel("scale", 2.0))
	for i := range out {
		require.InDelta(t, 2.0, float64(out[i]), 1e-6)
	}

	for i := range out {
		out[i] = 0
	}
	require.NoError(t, kr.CopyFromDevice("V"))
	assert.InDelta(t, 2.0, float64(out[len(out)-1]), 1e-6)
	assert.Error(t, kr.CopyToDevice("W"))
	assert.Error(t, kr.CopyFromDevice("W"))
}

func TestRunner_Errors(t *testing.T) {
	device := utils.CreateTestDevice()
	defer device.Free()

	kr := NewRunner(device, builder.Config{Dim: grid.Cube(2)})
	defer kr.Free()

	assert.Error(t, kr.RunKernel("missing"))

	require.NoError(t, kr.DefineKernel("k", builder.Input("a").Bind(make([]float32, 8))))
	assert.Error(t, kr.RunKernel("k"), "defined but not built")

	err := kr.DefineKernel("k2", builder.Input("a").Bind(make([]float32, 9)))
	assert.Error(t, err, "size mismatch with existing allocation")
	err = kr.DefineKernel("k3", builder.Input("a").Bind(make([]float64, 8)))
	assert.Error(t, err, "type mismatch with existing allocation")
}

// ============================================================================
// Section 3: Field updates against the host engine
// ============================================================================

func testProblem(t *testing.T, d grid.Dimension) (*grid.Fields, *grid.MaterialMap) {
	t.Helper()
	m, err := grid.NewMaterialMap(d, 0.45, 1, grid.Vacuum())
	require.NoError(t, err)
	m.SetBox([3]int{2, 2, 1}, [3]int{7, 6, 5}, grid.Material{
		Permittivity: 2.5, Permeability: 1.2, ElectricConductivity: 0.3, MagneticConductivity: 0.1,
	})
	rng := rand.New(rand.NewSource(7))
	f := grid.NewFields(d)
	for _, c := range f.All() {
		for i := range c.Data {
			c.Data[i] = float32(rng.Float64()*2 - 1)
		}
	}
	return f, m
}

func assertFieldsClose(t *testing.T, want, got *grid.Fields) {
	t.Helper()
	names := []string{"Ex", "Ey", "Ez", "Hx", "Hy", "Hz"}
	w, g := want.All(), got.All()
	for c := range w {
		var worst float64
		for i := range w[c].Data {
			diff := math.Abs(float64(w[c].Data[i] - g[c].Data[i]))
			scale := math.Max(1, math.Abs(float64(w[c].Data[i])))
			worst = math.Max(worst, diff/scale)
		}
		assert.Less(t, worst, 1e-5, "%s differs from host engine", names[c])
	}
}

func TestFieldSolver_MatchesEngine(t *testing.T) {
	device := utils.CreateTestDevice()
	defer device.Free()

	d := grid.Dimension{NX: 12, NY: 9, NZ: 7}
	testCases := []struct {
		name string
		tile fdtd.TileSize
	}{
		{"plain", fdtd.TileSize{}},
		{"tiled", fdtd.TileSize{X: 4, Y: 4, Z: 4}},
		{"tiled_overhang", fdtd.TileSize{X: 5, Y: 2, Z: 3}},
	}
	for _, tc := range testCases {
		for _, b := range []fdtd.Boundary{fdtd.PEC, fdtd.PMC} {
			t.Run(tc.name+"_"+b.String(), func(t *testing.T) {
				f, m := testProblem(t, d)
				ref := f.Clone()

				solver, err := NewFieldSolver(device, f, m, b, tc.tile)
				require.NoError(t, err)
				defer solver.Free()

				engine := fdtd.NewEngine(b)
				for step := 0; step < 4; step++ {
					require.NoError(t, solver.UpdateH(f, m))
					engine.UpdateH(ref, m)
					require.NoError(t, solver.UpdateE(f, m))
					engine.UpdateE(ref, m)
				}
				assertFieldsClose(t, ref, f)
			})
		}
	}
}

func TestFieldSolver_DrivesSimulation(t *testing.T) {
	device := utils.CreateTestDevice()
	defer device.Free()

	d := grid.Cube(8)
	f, m := testProblem(t, d)
	ref := f.Clone()

	solver, err := NewFieldSolver(device, f, m, fdtd.PEC, fdtd.TileSize{})
	require.NoError(t, err)
	defer solver.Free()

	sim, err := fdtd.NewSimulation(f, m, fdtd.NewEngine(fdtd.PEC))
	require.NoError(t, err)
	sim.Device = solver
	hostSim, err := fdtd.NewSimulation(ref, m, fdtd.NewEngine(fdtd.PEC))
	require.NoError(t, err)

	for step := 0; step < 3; step++ {
		require.NoError(t, sim.Step())
		require.NoError(t, hostSim.Step())
	}
	assertFieldsClose(t, ref, f)

	other := grid.NewFields(d)
	assert.Error(t, solver.UpdateH(other, m), "solver is bound to its own buffers")
}

func TestFieldSolver_Inject(t *testing.T) {
	device := utils.CreateTestDevice()
	defer device.Free()

	d := grid.Dimension{NX: 9, NY: 6, NZ: 5}
	f, m := testProblem(t, d)
	ref := f.Clone()

	solver, err := NewFieldSolver(device, f, m, fdtd.PEC, fdtd.TileSize{})
	require.NoError(t, err)
	defer solver.Free()

	boxes := []source.Box{
		source.Point(grid.Electric, 3, 2, 1, [3]float32{1, 0, -2}),
		{Position: [3]int{6, 4, 3}, Size: [3]int{5, 3, 3}, Strength: [3]float32{0, 0.5, 0}, Field: grid.Magnetic},
	}
	for _, b := range boxes {
		require.NoError(t, solver.Inject(b, 0.75))
		b.Inject(ref, m, 0.75, float32(m.Dt))
	}
	assertFieldsClose(t, ref, f)
}

func TestFieldSolver_RejectsOversizedTile(t *testing.T) {
	device := utils.CreateTestDevice()
	defer device.Free()

	f, m := testProblem(t, grid.Cube(8))
	_, err := NewFieldSolver(device, f, m, fdtd.PEC, fdtd.TileSize{X: 16, Y: 16, Z: 8})
	assert.Error(t, err)
}
