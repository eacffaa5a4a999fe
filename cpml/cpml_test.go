package cpml

import (
	"math"
	"testing"

	"github.com/notargets/FDTDKernel/fdtd"
	"github.com/notargets/FDTDKernel/grid"
	"github.com/notargets/FDTDKernel/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout_PartitionsShell(t *testing.T) {
	d := grid.Dimension{NX: 12, NY: 10, NZ: 9}
	l, err := NewLayout(d, 3)
	require.NoError(t, err)

	assert.Len(t, l.Regions, 26)
	assert.Equal(t, 6, l.Count(Face))
	assert.Equal(t, 12, l.Count(Edge))
	assert.Equal(t, 8, l.Count(Corner))

	owner := make([]int, d.Cells())
	for _, r := range l.Regions {
		active := 0
		for a := grid.X; a <= grid.Z; a++ {
			if r.Active(a) {
				active++
				assert.Equal(t, 3, r.Size[a], "region %v", r)
			}
		}
		assert.Equal(t, int(r.Kind), active)
		for lz := 0; lz < r.Size[2]; lz++ {
			for ly := 0; ly < r.Size[1]; ly++ {
				for lx := 0; lx < r.Size[0]; lx++ {
					x, y, z := r.Field(lx, ly, lz)
					owner[d.Index(x, y, z)]++
				}
			}
		}
	}
	for i, n := range owner {
		x, y, z := d.Coords(i)
		if l.InShell(x, y, z) {
			assert.Equal(t, 1, n, "shell cell %d,%d,%d", x, y, z)
		} else {
			assert.Equal(t, 0, n, "interior cell %d,%d,%d", x, y, z)
		}
	}

	_, err = NewLayout(d, 5)
	assert.Error(t, err, "9 cells cannot hold two 5-cell layers")
	_, err = NewLayout(d, 0)
	assert.Error(t, err)
}

func TestProfile_Graded(t *testing.T) {
	const n, layers = 20, 5
	d := grid.Dimension{NX: n, NY: n, NZ: n}
	p, err := Graded(d, layers, 0.5, DefaultGrading(1))
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		inShell := i < layers || i >= n-layers
		for _, pair := range [][2][]float32{{p.BE[grid.X], p.CE[grid.X]}, {p.BH[grid.X], p.CH[grid.X]}} {
			b, c := pair[0][i], pair[1][i]
			if !inShell {
				assert.Equal(t, float32(1), b, "interior b at %d", i)
				assert.Equal(t, float32(0), c, "interior coefficient at %d", i)
				continue
			}
			assert.Greater(t, b, float32(0))
			assert.LessOrEqual(t, b, float32(1))
			assert.LessOrEqual(t, c, float32(0))
		}
	}
	assert.Less(t, p.BE[grid.X][0], float32(1))
	assert.Less(t, p.BH[grid.X][n-1], float32(1))
	assert.Less(t, p.BE[grid.X][layers-1], float32(1))
	// The H sample of the innermost lower cell sits exactly on the interface
	assert.Equal(t, float32(1), p.BH[grid.X][layers-1])

	// Decay deepens monotonically towards the wall
	for i := 1; i < layers; i++ {
		assert.LessOrEqual(t, p.BE[grid.X][i-1], p.BE[grid.X][i])
		assert.LessOrEqual(t, p.BE[grid.X][n-i], p.BE[grid.X][n-i-1])
	}

	assert.InDelta(t, 1.0, Depth(float64(n)-0.5, n, layers), 1e-12)
	assert.InDelta(t, 0.0, Depth(float64(layers)-0.5, n, layers), 1e-12)
	assert.InDelta(t, 0.0, Depth(float64(n/2), n, layers), 1e-12)

	b, c := Coefficients(0, 0, 0.5)
	assert.Equal(t, 1.0, b)
	assert.Equal(t, 0.0, c)
	b, c = Coefficients(2, 0, 0.5)
	assert.InDelta(t, math.Exp(-1), b, 1e-12)
	assert.InDelta(t, math.Exp(-1)-1, c, 1e-12)
}

func TestEngine_PsiAllocation(t *testing.T) {
	d := grid.Cube(12)
	e, err := New(d, 3, 0.5, DefaultGrading(1))
	require.NoError(t, err)

	// Per kind: face 2, edge 4, corner 6 psi grids
	want := 2 * (6*2 + 12*4 + 8*6)
	assert.Len(t, e.Psi(), want)
	for _, s := range e.regions {
		for k := range s.psi {
			for c := grid.X; c <= grid.Z; c++ {
				for a := grid.X; a <= grid.Z; a++ {
					p := s.psi[k][c][a]
					if c == a || !s.Active(a) {
						assert.Nil(t, p)
						continue
					}
					assert.Len(t, p, s.Cells())
				}
			}
		}
	}

	_, err = NewEngine(e.Layout, NewProfile(grid.Cube(11)))
	assert.ErrorIs(t, err, grid.ErrDimensionMismatch)
}

func TestEngine_TransparentProfileIsNoOp(t *testing.T) {
	d := grid.Cube(10)
	layout, err := NewLayout(d, 2)
	require.NoError(t, err)
	e, err := NewEngine(layout, NewProfile(d))
	require.NoError(t, err)

	m, err := grid.NewMaterialMap(d, 0.5, 1, grid.Vacuum())
	require.NoError(t, err)
	f := grid.NewFields(d)
	for i := range f.Ex.Data {
		f.Ex.Data[i] = float32(i%7) - 3
		f.Hy.Data[i] = float32(i%5) - 2
	}
	before := f.Clone()
	e.UpdateH(f, m)
	e.UpdateE(f, m)
	for i, c := range f.All() {
		assert.Equal(t, before.All()[i].Data, c.Data)
	}
	for _, p := range e.Psi() {
		for _, v := range p {
			require.Zero(t, v)
		}
	}
}

func TestEngine_ResetClearsPsi(t *testing.T) {
	d := grid.Cube(10)
	e, err := New(d, 2, 0.5, DefaultGrading(1))
	require.NoError(t, err)
	m, err := grid.NewMaterialMap(d, 0.5, 1, grid.Vacuum())
	require.NoError(t, err)
	f := grid.NewFields(d)
	for i := range f.Ez.Data {
		f.Ez.Data[i] = float32(i % 3)
	}
	e.UpdateH(f, m)

	nonZero := 0
	for _, p := range e.Psi() {
		for _, v := range p {
			if v != 0 {
				nonZero++
			}
		}
	}
	require.Greater(t, nonZero, 0)
	e.Reset()
	for _, p := range e.Psi() {
		for _, v := range p {
			require.Zero(t, v)
		}
	}
}

// monitorRun drives a soft Ez dipole at the centre of an n³ grid and records
// Ez on the centre z-plane inside a window of the given half-width
func monitorRun(t *testing.T, n, layers, half, steps int) [][]float32 {
	t.Helper()
	d := grid.Cube(n)
	const dt = 0.5
	m, err := grid.NewMaterialMap(d, dt, 1, grid.Vacuum())
	require.NoError(t, err)
	f := grid.NewFields(d)
	sim, err := fdtd.NewSimulation(f, m, fdtd.NewEngine(fdtd.PEC))
	require.NoError(t, err)
	if layers > 0 {
		e, err := New(d, layers, dt, DefaultGrading(1))
		require.NoError(t, err)
		sim.Absorber = e
	}
	c := n / 2
	pt := source.Point(grid.Electric, c, c, c, [3]float32{0, 0, 1})
	sim.AddSource(&source.Drive{Box: &pt, Envelope: source.DiffGaussian{Delay: 12, Width: 3}})

	var frames [][]float32
	for s := 0; s < steps; s++ {
		require.NoError(t, sim.Step())
		frame := make([]float32, 0, 4*half*half)
		for y := c - half; y < c+half; y++ {
			for x := c - half; x < c+half; x++ {
				frame = append(frame, f.Ez.At(x, y, c))
			}
		}
		frames = append(frames, frame)
	}
	return frames
}

func reflectionRatio(test, ref [][]float32) float64 {
	var peakRef, peakDiff float64
	for s := range ref {
		var eRef, eDiff float64
		for i := range ref[s] {
			r := float64(ref[s][i])
			dv := float64(test[s][i]) - r
			eRef += r * r
			eDiff += dv * dv
		}
		peakRef = math.Max(peakRef, eRef)
		peakDiff = math.Max(peakDiff, eDiff)
	}
	return peakDiff / peakRef
}

func TestEngine_AbsorbsOutgoingPulse(t *testing.T) {
	if testing.Short() {
		t.Skip("long-running absorption comparison")
	}
	const steps = 120
	const half = 8

	// 72³ keeps the reference wall echo away from the monitor for 120 steps
	ref := monitorRun(t, 72, 0, half, steps)
	absorbed := monitorRun(t, 32, 8, half, steps)
	bare := monitorRun(t, 32, 0, half, steps)

	ratio := reflectionRatio(absorbed, ref)
	bareRatio := reflectionRatio(bare, ref)
	t.Logf("reflected/peak energy: %.3e with absorber, %.3e bare", ratio, bareRatio)
	assert.Less(t, ratio, 1e-3)

	// The PEC wall echo of the same box is orders of magnitude larger
	assert.Greater(t, bareRatio, 1e-4)
	assert.Greater(t, bareRatio, 1e3*ratio)
}
