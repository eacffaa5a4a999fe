package source

import (
	"math"
	"testing"

	"github.com/notargets/FDTDKernel/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vacuum(t *testing.T, d grid.Dimension, dt float64) *grid.MaterialMap {
	t.Helper()
	m, err := grid.NewMaterialMap(d, dt, 1, grid.Vacuum())
	require.NoError(t, err)
	return m
}

func TestBox_PointInjection(t *testing.T) {
	d := grid.Dimension{NX: 6, NY: 5, NZ: 4}
	m := vacuum(t, d, 0.01)
	f := grid.NewFields(d)

	const x0, y0, z0 = 3, 2, 1
	Point(grid.Electric, x0, y0, z0, [3]float32{1, 0, 0}).Inject(f, m, 1, 0.01)

	idx := d.Index(x0, y0, z0)
	// vacuum: Inj = dt/ε
	assert.InDelta(t, 0.01, m.Electric.Inj[idx], 1e-9)
	want := m.Electric.Inj[idx] * float32(0.01)
	require.NotZero(t, want)
	assert.Equal(t, want, f.Ex.At(x0, y0, z0))

	for ci, c := range f.All() {
		for i, v := range c.Data {
			if ci == 0 && i == idx {
				continue
			}
			require.Zero(t, v, "component %d cell %d", ci, i)
		}
	}
}

func TestBox_InjectionScalesWithMaterial(t *testing.T) {
	d := grid.Cube(4)
	m := vacuum(t, d, 0.1)
	m.SetBox([3]int{2, 0, 0}, [3]int{4, 4, 4}, grid.Material{Permittivity: 4, Permeability: 1})
	f := grid.NewFields(d)

	b := Box{Position: [3]int{1, 1, 1}, Size: [3]int{2, 1, 1}, Strength: [3]float32{0, 0, 2}, Field: grid.Electric}
	b.Inject(f, m, 0.5, 0.1)

	for _, x := range []int{1, 2} {
		i := d.Index(x, 1, 1)
		assert.Equal(t, Increment(2, 0.5, m.Electric.Inj[i], 0.1), f.Ez.At(x, 1, 1))
	}
	// Denser material takes a smaller kick
	assert.Greater(t, f.Ez.At(1, 1, 1), f.Ez.At(2, 1, 1))
}

func TestBox_ClipsToGrid(t *testing.T) {
	d := grid.Cube(4)
	m := vacuum(t, d, 0.1)
	f := grid.NewFields(d)

	b := Box{Position: [3]int{-1, 2, 3}, Size: [3]int{3, 5, 2}, Strength: [3]float32{0, 1, 0}, Field: grid.Magnetic}
	assert.Equal(t, [3]int{3, 5, 2}, b.Extent())
	assert.NotPanics(t, func() { b.Inject(f, m, 1, 0.1) })

	touched := 0
	for _, v := range f.Hy.Data {
		if v != 0 {
			touched++
		}
	}
	// x ∈ {0,1}, y ∈ {2,3}, z ∈ {3}
	assert.Equal(t, 4, touched)
	assert.Zero(t, f.Ey.At(0, 2, 3))

	assert.Equal(t, [3]int{1, 1, 1}, Point(grid.Electric, 0, 0, 0, [3]float32{}).Extent())
}

func TestMode_InjectRotatesPhase(t *testing.T) {
	d := grid.Cube(5)
	f := grid.NewFields(d)
	mode, err := NewMode(grid.Electric, grid.Z, 2, [2]int{1, 1}, 2, 2)
	require.NoError(t, err)
	mode.Set(grid.X, 0, 0, complex(1, 0))
	mode.Set(grid.X, 1, 1, complex(0, 2))
	mode.Set(grid.X, 5, 5, complex(9, 9)) // outside the profile, ignored

	cos, sin := Phase(1, 0.5, math.Pi/3) // θ = π/6
	mode.Inject(f, cos, sin, 1, 0.5)

	// Profile axes for a z-normal plane are (x, y)
	assert.InDelta(t, math.Cos(math.Pi/6)*0.5, f.Ex.At(1, 1, 2), 1e-6)
	assert.InDelta(t, -2*math.Sin(math.Pi/6)*0.5, f.Ex.At(2, 2, 2), 1e-6)
	assert.Zero(t, f.Ex.At(2, 1, 2))
	assert.Zero(t, f.Ex.At(1, 1, 1))
	assert.Nil(t, mode.Amplitude[grid.Y])

	_, err = NewMode(grid.Electric, grid.X, 0, [2]int{}, 0, 3)
	assert.Error(t, err)
}

func TestPlane_CoversCrossSection(t *testing.T) {
	d := grid.Dimension{NX: 4, NY: 3, NZ: 5}
	f := grid.NewFields(d)
	p := Plane(grid.Electric, grid.Z, grid.X, 1, d, 2)
	assert.Equal(t, 4, p.Width)
	assert.Equal(t, 3, p.Height)

	p.Inject(f, 1, 0, 0.5, 0.1)
	for z := 0; z < d.NZ; z++ {
		for y := 0; y < d.NY; y++ {
			for x := 0; x < d.NX; x++ {
				want := float32(0)
				if z == 1 {
					want = float32(2 * float32(0.5*0.1))
				}
				assert.Equal(t, want, f.Ex.At(x, y, z))
			}
		}
	}
}

func TestEnvelopes(t *testing.T) {
	g := Gaussian{Delay: 10, Width: 2}
	assert.Equal(t, 1.0, g.At(10))
	assert.InDelta(t, math.Exp(-1), g.At(12), 1e-12)
	assert.InDelta(t, g.At(8), g.At(12), 1e-12)

	dg := DiffGaussian{Delay: 10, Width: 2}
	assert.Zero(t, dg.At(10))
	assert.InDelta(t, 1.0, dg.At(10-2/math.Sqrt2), 1e-12)
	assert.InDelta(t, -dg.At(9), dg.At(11), 1e-12)

	r := Ricker{Delay: 1, Frequency: 2}
	assert.Equal(t, 1.0, r.At(1))
	assert.Less(t, r.At(1.2), 0.0)

	ramp := Ramp{Rise: 4}
	assert.Zero(t, ramp.At(-1))
	assert.InDelta(t, 0.5, ramp.At(2), 1e-12)
	assert.Equal(t, 1.0, ramp.At(100))

	assert.Equal(t, 1.0, Constant(1).At(123))

	c, s := Phase(0, 0.1, 7)
	assert.Equal(t, float32(1), c)
	assert.Equal(t, float32(0), s)
}

func TestParseEnvelope(t *testing.T) {
	testCases := []struct {
		name    string
		want    Envelope
		wantErr bool
	}{
		{"", Gaussian{Delay: 1, Width: 2}, false},
		{"Gaussian", Gaussian{Delay: 1, Width: 2}, false},
		{"diffgaussian", DiffGaussian{Delay: 1, Width: 2}, false},
		{"ricker", Ricker{Delay: 1, Frequency: 2}, false},
		{"ramp", Ramp{Rise: 2}, false},
		{"constant", Constant(1), false},
		{"square", nil, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := ParseEnvelope(tc.name, 1, 2)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, env)
		})
	}

	_, err := ParseEnvelope("gaussian", 0, 0)
	assert.Error(t, err)
}

func TestInterpolator_ReproducesLinearField(t *testing.T) {
	lin := func(u, v float64) complex128 { return complex(2*u-v+1, 0.5*v) }
	var samples []Sample
	for j := 0; j <= 2; j++ {
		for i := 0; i <= 2; i++ {
			u, v := float64(i)*2, float64(j)*2
			samples = append(samples, Sample{U: u, V: v, Value: lin(u, v)})
		}
	}
	ip, err := NewInterpolator(samples)
	require.NoError(t, err)
	assert.NotEmpty(t, ip.Triangles())

	for _, p := range [][2]float64{{0.5, 0.5}, {1, 3}, {3.7, 0.2}, {4, 4}, {2, 2}} {
		got, ok := ip.At(p[0], p[1])
		require.True(t, ok, "point %v", p)
		want := lin(p[0], p[1])
		assert.InDelta(t, real(want), real(got), 1e-9)
		assert.InDelta(t, imag(want), imag(got), 1e-9)
	}

	_, ok := ip.At(5, 1)
	assert.False(t, ok)
	_, ok = ip.At(-0.1, 2)
	assert.False(t, ok)
}

func TestInterpolator_RejectsDegenerateInput(t *testing.T) {
	_, err := NewInterpolator([]Sample{{U: 0}, {U: 1}})
	assert.Error(t, err)
	_, err = NewInterpolator([]Sample{{U: 0}, {U: 1}, {U: 2}})
	assert.Error(t, err, "collinear")
}

func TestMode_FillFromSamples(t *testing.T) {
	mode, err := NewMode(grid.Magnetic, grid.X, 0, [2]int{}, 4, 4)
	require.NoError(t, err)
	require.NoError(t, mode.Fill(grid.Y, []Sample{
		{U: 0, V: 0, Value: 1},
		{U: 2, V: 0, Value: 1},
		{U: 0, V: 2, Value: 1},
		{U: 2, V: 2, Value: 1},
	}))
	amp := mode.Amplitude[grid.Y]
	require.Len(t, amp, 16)
	assert.InDelta(t, 1, real(amp[1+4*1]), 1e-6)
	assert.Zero(t, amp[3+4*3], "outside the sample hull")
}

func TestDrive_FiltersByKind(t *testing.T) {
	d := grid.Cube(4)
	m := vacuum(t, d, 0.1)
	f := grid.NewFields(d)
	pt := Point(grid.Magnetic, 1, 1, 1, [3]float32{0, 0, 1})
	drv := &Drive{Box: &pt, Envelope: Gaussian{Delay: 0, Width: 1}}
	assert.Equal(t, grid.Magnetic, drv.Field())

	drv.Excite(grid.Electric, f, m, 0)
	assert.Zero(t, f.Energy())

	drv.Excite(grid.Magnetic, f, m, 0)
	i := d.Index(1, 1, 1)
	assert.Equal(t, Increment(1, 1, m.Magnetic.Inj[i], 0.1), f.Hz.At(1, 1, 1))

	// A vanishing envelope leaves the fields alone
	before := f.Hz.At(1, 1, 1)
	drv.Excite(grid.Magnetic, f, m, 1000)
	assert.Equal(t, before, f.Hz.At(1, 1, 1))

	plane := &Drive{Mode: Plane(grid.Electric, grid.Y, grid.Z, 2, d, 1), Omega: 0}
	assert.Equal(t, grid.Electric, plane.Field())
	plane.Excite(grid.Electric, f, m, 3)
	assert.Equal(t, float32(0.1), f.Ez.At(0, 2, 3))
}
