package checkpoint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/notargets/FDTDKernel/cpml"
	"github.com/notargets/FDTDKernel/fdtd"
	"github.com/notargets/FDTDKernel/grid"
	"github.com/notargets/FDTDKernel/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRun(t *testing.T, n int) (*fdtd.Simulation, *cpml.Engine) {
	t.Helper()
	return newLayeredRun(t, n, 3)
}

func newLayeredRun(t *testing.T, n, layers int) (*fdtd.Simulation, *cpml.Engine) {
	t.Helper()
	d := grid.Cube(n)
	m, err := grid.NewMaterialMap(d, 0.5, 1, grid.Vacuum())
	require.NoError(t, err)
	sim, err := fdtd.NewSimulation(grid.NewFields(d), m, nil)
	require.NoError(t, err)
	absorber, err := cpml.New(d, layers, 0.5, cpml.DefaultGrading(1))
	require.NoError(t, err)
	sim.Absorber = absorber
	box := source.Point(grid.Electric, n/2, n/2, n/2, [3]float32{0, 0, 1})
	sim.AddSource(&source.Drive{Box: &box, Envelope: source.Gaussian{Delay: 2, Width: 1}})
	return sim, absorber
}

func steps(t *testing.T, sim *fdtd.Simulation, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, sim.Step())
	}
}

func assertSameState(t *testing.T, want, got *fdtd.Simulation, wantPsi, gotPsi *cpml.Engine) {
	t.Helper()
	assert.Equal(t, want.StepNum, got.StepNum)
	w, g := want.Fields.All(), got.Fields.All()
	for i := range w {
		assert.Equal(t, w[i].Data, g[i].Data, "field component %d", i)
	}
	assert.Equal(t, wantPsi.Psi(), gotPsi.Psi())
}

func TestSaveRestore_ResumesBitIdentical(t *testing.T) {
	for _, compress := range []Compression{Snappy, Uncompressed} {
		t.Run(compress.String(), func(t *testing.T) {
			orig, origPsi := newRun(t, 12)
			steps(t, orig, 8)

			var buf bytes.Buffer
			id := uuid.New()
			require.NoError(t, SaveWith(&buf, orig, origPsi, id, compress))

			resumed, resumedPsi := newRun(t, 12)
			h, err := Restore(&buf, resumed, resumedPsi)
			require.NoError(t, err)
			assert.Equal(t, id, h.RunID)
			assert.Equal(t, int64(8), h.Step)
			assertSameState(t, orig, resumed, origPsi, resumedPsi)

			steps(t, orig, 6)
			steps(t, resumed, 6)
			assertSameState(t, orig, resumed, origPsi, resumedPsi)
		})
	}
}

func TestRestore_DetectsCorruption(t *testing.T) {
	sim, psi := newRun(t, 10)
	steps(t, sim, 5)
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, sim, psi, uuid.New()))

	data := buf.Bytes()
	data[len(data)-10] ^= 0xff
	other, otherPsi := newRun(t, 10)
	_, err := Restore(bytes.NewReader(data), other, otherPsi)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChecksum))
}

func TestRestore_RejectsOtherGrid(t *testing.T) {
	sim, psi := newRun(t, 10)
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, sim, psi, uuid.New()))

	other, otherPsi := newRun(t, 11)
	_, err := Restore(bytes.NewReader(buf.Bytes()), other, otherPsi)
	assert.True(t, errors.Is(err, ErrIncompatible))

	_, err = Restore(bytes.NewReader(buf.Bytes()), sim, nil)
	assert.True(t, errors.Is(err, ErrIncompatible), "psi grid count differs")

	_, err = Restore(bytes.NewReader([]byte("not a checkpoint")), sim, psi)
	assert.Error(t, err)
}

func TestSaveFile(t *testing.T) {
	sim, psi := newRun(t, 10)
	steps(t, sim, 3)
	path := filepath.Join(t.TempDir(), "run.ckpt")
	require.NoError(t, SaveFile(path, sim, psi, uuid.New()))

	other, otherPsi := newRun(t, 10)
	h, err := RestoreFile(path, other, otherPsi)
	require.NoError(t, err)
	assert.Equal(t, int32(10), h.NX)
	assertSameState(t, sim, other, psi, otherPsi)

	_, err = RestoreFile(filepath.Join(t.TempDir(), "missing"), other, otherPsi)
	assert.Error(t, err)
}

func TestRestore_RejectsOversizedPayloadLength(t *testing.T) {
	sim, psi := newRun(t, 10)
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, sim, psi, uuid.New()))

	data := buf.Bytes()
	// magic, header, format byte, CRC32, then the payload length
	off := len(magic) + binary.Size(Header{}) + 1 + 4
	binary.LittleEndian.PutUint64(data[off:], math.MaxUint64/2)

	other, otherPsi := newRun(t, 10)
	_, err := Restore(bytes.NewReader(data), other, otherPsi)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompatible))
}

func TestRestore_MismatchLeavesStateUntouched(t *testing.T) {
	testCases := []struct {
		name          string
		saved, target int
		compress      Compression
	}{
		{"thicker_snappy", 3, 2, Snappy},
		{"thicker_raw", 3, 2, Uncompressed},
		{"thinner_snappy", 2, 3, Snappy},
		{"thinner_raw", 2, 3, Uncompressed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sim, psi := newLayeredRun(t, 12, tc.saved)
			steps(t, sim, 6)
			var buf bytes.Buffer
			require.NoError(t, SaveWith(&buf, sim, psi, uuid.New(), tc.compress))

			other, otherPsi := newLayeredRun(t, 12, tc.target)
			_, err := Restore(&buf, other, otherPsi)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIncompatible))

			assert.Zero(t, other.StepNum)
			assert.Zero(t, other.Fields.Energy())
			for _, p := range otherPsi.Psi() {
				for _, v := range p {
					require.Zero(t, v)
				}
			}
		})
	}
}
