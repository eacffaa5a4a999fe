// Package checkpoint saves and restores the evolving state of a simulation:
// the six field components and the psi grids of the absorbing layer.
// Material, sources and probes are rebuilt from the preset.
//
// Layout: magic, fixed header, format byte, CRC32 of the stored payload,
// payload length, payload. The payload is the little-endian float32 data of
// Ex..Hz followed by every psi grid in engine order, optionally snappy
// compressed.
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/notargets/FDTDKernel/cpml"
	"github.com/notargets/FDTDKernel/fdtd"
)

var magic = [8]byte{'F', 'D', 'T', 'D', 'C', 'K', 'P', 'T'}

var (
	// ErrChecksum means the stored payload does not match its CRC32
	ErrChecksum = errors.New("checkpoint checksum mismatch")
	// ErrIncompatible means the checkpoint was written for another grid
	ErrIncompatible = errors.New("checkpoint does not match simulation")
)

// Compression of the payload
type Compression uint8

const (
	Uncompressed Compression = iota
	Snappy
)

func (c Compression) String() string {
	switch c {
	case Uncompressed:
		return "uncompressed"
	case Snappy:
		return "snappy"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// Header identifies a checkpoint
type Header struct {
	RunID      uuid.UUID
	Step       int64
	NX, NY, NZ int32
	PsiGrids   int32
	Dt         float64
}

func header(runID uuid.UUID, sim *fdtd.Simulation, psi [][]float32) Header {
	d := sim.Fields.Dim
	return Header{
		RunID:    runID,
		Step:     int64(sim.StepNum),
		NX:       int32(d.NX),
		NY:       int32(d.NY),
		NZ:       int32(d.NZ),
		PsiGrids: int32(len(psi)),
		Dt:       sim.Material.Dt,
	}
}

func psiOf(absorber *cpml.Engine) [][]float32 {
	if absorber == nil {
		return nil
	}
	return absorber.Psi()
}

// Save writes a snappy-compressed checkpoint
func Save(w io.Writer, sim *fdtd.Simulation, absorber *cpml.Engine, runID uuid.UUID) error {
	return SaveWith(w, sim, absorber, runID, Snappy)
}

// SaveWith writes a checkpoint with the given compression
func SaveWith(w io.Writer, sim *fdtd.Simulation, absorber *cpml.Engine, runID uuid.UUID, compress Compression) error {
	psi := psiOf(absorber)
	var raw bytes.Buffer
	for _, c := range sim.Fields.All() {
		if err := binary.Write(&raw, binary.LittleEndian, c.Data); err != nil {
			return err
		}
	}
	for _, p := range psi {
		if err := binary.Write(&raw, binary.LittleEndian, uint32(len(p))); err != nil {
			return err
		}
		if err := binary.Write(&raw, binary.LittleEndian, p); err != nil {
			return err
		}
	}

	var payload []byte
	switch compress {
	case Uncompressed:
		payload = raw.Bytes()
	case Snappy:
		payload = snappy.Encode(nil, raw.Bytes())
	default:
		return fmt.Errorf("illegal compression %v", compress)
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	if err := binary.Write(&buf, binary.LittleEndian, header(runID, sim, psi)); err != nil {
		return err
	}
	buf.WriteByte(byte(compress))
	if err := binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(payload)); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint64(len(payload))); err != nil {
		return err
	}
	buf.Write(payload)
	_, err := w.Write(buf.Bytes())
	return err
}

// Restore reads a checkpoint into sim and absorber, which must have been
// built for the same grid. Field slices are overwritten in place so device
// bindings stay valid.
func Restore(r io.Reader, sim *fdtd.Simulation, absorber *cpml.Engine) (Header, error) {
	var h Header
	var m [8]byte
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return h, fmt.Errorf("read magic: %w", err)
	}
	if m != magic {
		return h, fmt.Errorf("not a checkpoint (magic %q)", m[:])
	}
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	psi := psiOf(absorber)
	if want := header(h.RunID, sim, psi); h.NX != want.NX || h.NY != want.NY || h.NZ != want.NZ ||
		h.PsiGrids != want.PsiGrids || h.Dt != want.Dt {
		return h, fmt.Errorf("%w: stored %dx%dx%d with %d psi grids at dt=%g, have %dx%dx%d with %d at dt=%g",
			ErrIncompatible, h.NX, h.NY, h.NZ, h.PsiGrids, h.Dt,
			want.NX, want.NY, want.NZ, want.PsiGrids, want.Dt)
	}

	var trailer struct {
		Format uint8
		CRC    uint32
		Length uint64
	}
	if err := binary.Read(r, binary.LittleEndian, &trailer); err != nil {
		return h, fmt.Errorf("read format: %w", err)
	}
	raw := rawSize(sim, psi)
	limit := raw
	switch Compression(trailer.Format) {
	case Uncompressed:
	case Snappy:
		limit = snappy.MaxEncodedLen(raw)
	default:
		return h, fmt.Errorf("illegal compression %v", Compression(trailer.Format))
	}
	if limit < 0 || trailer.Length > uint64(limit) {
		return h, fmt.Errorf("%w: payload of %d bytes, at most %d expected", ErrIncompatible, trailer.Length, limit)
	}
	payload := make([]byte, trailer.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return h, fmt.Errorf("read payload: %w", err)
	}
	if got := crc32.ChecksumIEEE(payload); got != trailer.CRC {
		return h, fmt.Errorf("%w: stored %x got %x", ErrChecksum, trailer.CRC, got)
	}

	data := payload
	if Compression(trailer.Format) == Snappy {
		n, err := snappy.DecodedLen(payload)
		if err != nil {
			return h, fmt.Errorf("decompress: %w", err)
		}
		if n != raw {
			return h, fmt.Errorf("%w: payload decodes to %d bytes, want %d", ErrIncompatible, n, raw)
		}
		if data, err = snappy.Decode(nil, payload); err != nil {
			return h, fmt.Errorf("decompress: %w", err)
		}
	}
	if err := checkLayout(data, sim, psi); err != nil {
		return h, err
	}

	rd := bytes.NewReader(data)
	for _, c := range sim.Fields.All() {
		if err := binary.Read(rd, binary.LittleEndian, c.Data); err != nil {
			return h, fmt.Errorf("read fields: %w", err)
		}
	}
	for i, p := range psi {
		var n uint32
		if err := binary.Read(rd, binary.LittleEndian, &n); err != nil {
			return h, fmt.Errorf("read psi %d: %w", i, err)
		}
		if err := binary.Read(rd, binary.LittleEndian, p); err != nil {
			return h, fmt.Errorf("read psi %d: %w", i, err)
		}
	}
	sim.StepNum = int(h.Step)
	return h, nil
}

// rawSize is the uncompressed payload size for sim and psi
func rawSize(sim *fdtd.Simulation, psi [][]float32) int {
	n := 6 * 4 * sim.Fields.Dim.Cells()
	for _, p := range psi {
		n += 4 + 4*len(p)
	}
	return n
}

// checkLayout verifies the payload size and every psi length prefix, so a
// mismatch is reported before any state is overwritten
func checkLayout(data []byte, sim *fdtd.Simulation, psi [][]float32) error {
	if want := rawSize(sim, psi); len(data) != want {
		return fmt.Errorf("%w: payload is %d bytes, want %d", ErrIncompatible, len(data), want)
	}
	off := 6 * 4 * sim.Fields.Dim.Cells()
	for i, p := range psi {
		if n := binary.LittleEndian.Uint32(data[off:]); int(n) != len(p) {
			return fmt.Errorf("%w: psi grid %d has %d values, stored %d", ErrIncompatible, i, len(p), n)
		}
		off += 4 + 4*len(p)
	}
	return nil
}

// SaveFile writes a checkpoint next to path and renames it into place
func SaveFile(path string, sim *fdtd.Simulation, absorber *cpml.Engine, runID uuid.UUID) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := Save(tmp, sim, absorber, runID); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// RestoreFile is Restore from a file
func RestoreFile(path string, sim *fdtd.Simulation, absorber *cpml.Engine) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	return Restore(f, sim, absorber)
}
