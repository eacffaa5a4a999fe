package grid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimension_IndexRoundTrip(t *testing.T) {
	d := Dimension{NX: 5, NY: 3, NZ: 4}
	seen := make(map[int]bool)
	for z := 0; z < d.NZ; z++ {
		for y := 0; y < d.NY; y++ {
			for x := 0; x < d.NX; x++ {
				idx := d.Index(x, y, z)
				require.False(t, seen[idx], "duplicate index %d", idx)
				seen[idx] = true
				gx, gy, gz := d.Coords(idx)
				assert.Equal(t, [3]int{x, y, z}, [3]int{gx, gy, gz})
			}
		}
	}
	assert.Len(t, seen, d.Cells())
	assert.Equal(t, 1, d.Stride(X))
	assert.Equal(t, 5, d.Stride(Y))
	assert.Equal(t, 15, d.Stride(Z))

	_, err := NewDimension(4, 0, 4)
	assert.Error(t, err)
}

func TestFieldGrid_OutOfRangeReadsZero(t *testing.T) {
	g := NewFieldGrid(Cube(3))
	for i := range g.Data {
		g.Data[i] = 7
	}
	assert.Equal(t, float32(7), g.At(1, 1, 1))
	assert.Equal(t, float32(0), g.At(-1, 0, 0))
	assert.Equal(t, float32(0), g.At(0, 3, 0))
	assert.Equal(t, float32(0), g.At(0, 0, 3))

	// Out-of-range writes are dropped, not faults
	g.Set(5, 5, 5, 1)
	assert.Equal(t, float32(7), g.At(2, 2, 2))
}

func TestFields_EnergyAndValidate(t *testing.T) {
	f := NewFields(Cube(4))
	require.NoError(t, f.Validate())
	f.Ex.Set(1, 1, 1, 2)
	f.Hz.Set(0, 3, 2, -3)
	assert.InDelta(t, 13.0, f.Energy(), 1e-12)

	c := f.Clone()
	f.Reset()
	assert.Equal(t, 0.0, f.Energy())
	assert.InDelta(t, 13.0, c.Energy(), 1e-12)

	c.Hy = NewFieldGrid(Cube(5))
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestFields_Slice(t *testing.T) {
	d := Dimension{NX: 3, NY: 4, NZ: 5}
	f := NewFields(d)
	f.Ey.Set(2, 1, 3, 1.5)

	out, w, h, err := f.Slice(Electric, Y, Z, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, w)
	assert.Equal(t, 4, h)
	assert.Equal(t, float32(3), out[2+w*1])

	_, _, _, err = f.Slice(Electric, Y, Z, 5, 1)
	assert.Error(t, err)
}

func TestUpdateTriple(t *testing.T) {
	testCases := []struct {
		name            string
		eps, sigma      float64
		dt, dx          float64
		c1, c2, c3, inj float64
	}{
		{"vacuum", 1, 0, 0.5, 1, 1, -0.5, -0.5, 0.5},
		{"dielectric", 4, 0, 0.5, 0.5, 1, -0.25, -0.125, 0.125},
		{"lossy", 1, 1, 0.5, 1, 0.6, -0.4, -0.4, 0.4},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := UpdateTriple(tc.eps, tc.sigma, tc.dt, tc.dx)
			assert.InDelta(t, tc.c1, tr.C1, 1e-6)
			assert.InDelta(t, tc.c2, tr.C2, 1e-6)
			assert.InDelta(t, tc.c3, tr.C3, 1e-6)
			assert.InDelta(t, tc.inj, tr.Inj, 1e-6)
		})
	}
}

func TestMaterialMap_ExtendIntoBoundary(t *testing.T) {
	d := Cube(10)
	m, err := NewMaterialMap(d, 0.5, 1, Vacuum())
	require.NoError(t, err)

	glass := FromRefractiveIndex(2)
	// Slab touching the interior edge of the lower x layer
	m.SetBox([3]int{2, 0, 0}, [3]int{3, 10, 10}, glass)
	m.ExtendIntoBoundary(2)

	ge, _ := m.Triples(glass)
	ve, _ := m.Triples(Vacuum())
	assert.Equal(t, ge, m.Electric.At(d.Index(0, 5, 5)))
	assert.Equal(t, ge, m.Electric.At(d.Index(1, 5, 5)))
	assert.Equal(t, ve, m.Electric.At(d.Index(9, 5, 5)))
	// Corner cells take the nearest interior cell, which is glass here
	assert.Equal(t, ge, m.Electric.At(d.Index(0, 0, 0)))

	_, err = NewMaterialMap(d, 0, 1, Vacuum())
	assert.Error(t, err)
	_, err = NewMaterialMap(d, 0.5, 1, Material{Permittivity: -1, Permeability: 1})
	assert.Error(t, err)
}
