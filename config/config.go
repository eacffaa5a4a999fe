// Package config reads simulation presets from TOML files. A preset names
// the physical domain, its boundary treatment, the meshes that carry
// material, the sources and probes, and how the run is executed.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/notargets/FDTDKernel/fdtd"
	"github.com/notargets/FDTDKernel/grid"
	"github.com/notargets/FDTDKernel/source"
)

// ErrInvalidPreset is wrapped by every validation failure
var ErrInvalidPreset = errors.New("invalid preset")

// Preset is the decoded contents of one preset file
type Preset struct {
	Grid     GridSettings     `toml:"grid"`
	Boundary BoundarySettings `toml:"boundary"`
	Models   []ModelSettings  `toml:"models"`
	Sources  []SourceSettings `toml:"sources"`
	Probes   []ProbeSettings  `toml:"probes"`
	Run      RunSettings      `toml:"run"`
}

// GridSettings gives the physical extent of the domain and the step sizes.
// The cell count along each axis is ceil(dimension/spatial_step).
type GridSettings struct {
	Dimension    [3]float64 `toml:"dimension"`
	SpatialStep  float64    `toml:"spatial_step"`
	TemporalStep float64    `toml:"temporal_step"`
}

// BoundarySettings selects pml, pec or pmc. With pml the grid grows by
// Layers cells on every side and Wall picks the conductor enforced behind
// the layer.
type BoundarySettings struct {
	Kind     string  `toml:"kind"`
	Layers   int     `toml:"layers"`
	Order    float64 `toml:"order"`
	SigmaMax float64 `toml:"sigma_max"`
	AlphaMax float64 `toml:"alpha_max"`
	Wall     string  `toml:"wall"`
}

// ModelSettings places a closed mesh. Box is the unit cube centred on the
// origin and Sphere the unit-radius icosphere; both are scaled and then
// moved to Position, in physical units of the domain.
type ModelSettings struct {
	Shape           string     `toml:"shape"`
	Position        [3]float64 `toml:"position"`
	Scale           [3]float64 `toml:"scale"`
	RefractiveIndex float64    `toml:"refractive_index"`
	Subdivisions    int        `toml:"subdivisions"`
}

// SourceSettings describes one excitation. Positions are cells of the
// physical domain; the boundary layer offset is added when building.
type SourceSettings struct {
	Kind      string     `toml:"kind"` // point, box or plane
	Field     string     `toml:"field"`
	Position  [3]int     `toml:"position"`
	Size      [3]int     `toml:"size"`
	Strength  [3]float64 `toml:"strength"`
	Normal    string     `toml:"normal"`
	Component string     `toml:"component"`
	Index     int        `toml:"index"`
	Envelope  string     `toml:"envelope"`
	Delay     float64    `toml:"delay"`
	Width     float64    `toml:"width"`
	Frequency float64    `toml:"frequency"`
}

// ProbeSettings records one component at one cell of the physical domain
type ProbeSettings struct {
	Name      string `toml:"name"`
	Field     string `toml:"field"`
	Component string `toml:"component"`
	Position  [3]int `toml:"position"`
}

// RunSettings controls execution
type RunSettings struct {
	Steps           int    `toml:"steps"`
	Tile            [3]int `toml:"tile"`
	Workers         int    `toml:"workers"`
	Device          string `toml:"device"`
	Checkpoint      string `toml:"checkpoint"`
	CheckpointEvery int    `toml:"checkpoint_every"`
	LogFile         string `toml:"log_file"`
	MaxLogSize      int    `toml:"max_log_size"`
	Debug           bool   `toml:"debug"`
}

// Load decodes and validates a preset file
func Load(filename string) (*Preset, error) {
	if filename == "" {
		return nil, fmt.Errorf("no preset file provided")
	}
	var p Preset
	if _, err := toml.DecodeFile(filename, &p); err != nil {
		return nil, fmt.Errorf("could not decode preset %s: %w", filename, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &p, nil
}

// Decode parses and validates a preset held in memory
func Decode(data string) (*Preset, error) {
	var p Preset
	if _, err := toml.Decode(data, &p); err != nil {
		return nil, fmt.Errorf("could not decode preset: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPreset, fmt.Sprintf(format, args...))
}

// Validate checks every section and fills defaults
func (p *Preset) Validate() error {
	g := p.Grid
	if g.SpatialStep <= 0 || g.TemporalStep <= 0 {
		return invalid("spatial_step and temporal_step must be positive, got %g and %g",
			g.SpatialStep, g.TemporalStep)
	}
	if limit := grid.CourantLimit(g.SpatialStep); g.TemporalStep > limit {
		return invalid("temporal_step %g exceeds the Courant limit %g", g.TemporalStep, limit)
	}
	for a, v := range g.Dimension {
		if v <= 0 {
			return invalid("dimension[%d] must be positive, got %g", a, v)
		}
	}

	b := &p.Boundary
	b.Kind = strings.ToLower(strings.TrimSpace(b.Kind))
	switch b.Kind {
	case "", "pml":
		b.Kind = "pml"
		if b.Layers <= 0 {
			return invalid("pml boundary needs layers > 0, got %d", b.Layers)
		}
		if _, err := fdtd.ParseBoundary(b.Wall); err != nil {
			return invalid("boundary wall: %v", err)
		}
	case "pec", "pmc":
		b.Layers = 0
	default:
		return invalid("unknown boundary kind %q", b.Kind)
	}

	for i := range p.Models {
		m := &p.Models[i]
		m.Shape = strings.ToLower(m.Shape)
		if m.Shape != "box" && m.Shape != "sphere" {
			return invalid("model %d: unknown shape %q", i, m.Shape)
		}
		if m.RefractiveIndex <= 0 {
			return invalid("model %d: refractive_index must be positive, got %g", i, m.RefractiveIndex)
		}
		if m.Scale == ([3]float64{}) {
			m.Scale = [3]float64{1, 1, 1}
		}
		if m.Subdivisions == 0 {
			m.Subdivisions = 3
		}
	}

	for i := range p.Sources {
		s := &p.Sources[i]
		s.Kind = strings.ToLower(s.Kind)
		if _, err := ParseKind(s.Field); err != nil {
			return invalid("source %d: %v", i, err)
		}
		switch s.Kind {
		case "point", "box":
			if s.Strength == ([3]float64{}) {
				return invalid("source %d: strength is zero", i)
			}
		case "plane":
			if _, err := ParseAxis(s.Normal); err != nil {
				return invalid("source %d normal: %v", i, err)
			}
			if _, err := ParseAxis(s.Component); err != nil {
				return invalid("source %d component: %v", i, err)
			}
		default:
			return invalid("source %d: unknown kind %q", i, s.Kind)
		}
		if _, err := source.ParseEnvelope(s.Envelope, s.Delay, s.Width); err != nil {
			return invalid("source %d: %v", i, err)
		}
	}

	for i, pr := range p.Probes {
		if _, err := ParseKind(pr.Field); err != nil {
			return invalid("probe %d: %v", i, err)
		}
		if _, err := ParseAxis(pr.Component); err != nil {
			return invalid("probe %d: %v", i, err)
		}
	}

	if p.Run.Steps < 0 {
		return invalid("run.steps must not be negative, got %d", p.Run.Steps)
	}
	if p.Run.CheckpointEvery < 0 {
		return invalid("run.checkpoint_every must not be negative")
	}
	for _, t := range p.Run.Tile {
		if t < 0 {
			return invalid("run.tile must not be negative, got %v", p.Run.Tile)
		}
	}
	return nil
}

// Interior is the cell count of the physical domain
func (p *Preset) Interior() grid.Dimension {
	var n [3]int
	for a, v := range p.Grid.Dimension {
		n[a] = int(math.Ceil(v / p.Grid.SpatialStep))
	}
	return grid.Dimension{NX: n[0], NY: n[1], NZ: n[2]}
}

// GridDimension is the interior grown by the absorbing layers on each side
func (p *Preset) GridDimension() grid.Dimension {
	d := p.Interior()
	l := 2 * p.Boundary.Layers
	return grid.Dimension{NX: d.NX + l, NY: d.NY + l, NZ: d.NZ + l}
}

// Tile is the run tile size; all zeros selects the plain update
func (p *Preset) Tile() fdtd.TileSize {
	t := p.Run.Tile
	return fdtd.TileSize{X: t[0], Y: t[1], Z: t[2]}
}

// ParseKind accepts "e"/"electric" and "h"/"magnetic"
func ParseKind(s string) (grid.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "e", "electric":
		return grid.Electric, nil
	case "h", "magnetic":
		return grid.Magnetic, nil
	default:
		return grid.Electric, fmt.Errorf("unknown field %q", s)
	}
}

// ParseAxis accepts "x", "y" or "z"
func ParseAxis(s string) (grid.Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return grid.X, nil
	case "y":
		return grid.Y, nil
	case "z":
		return grid.Z, nil
	default:
		return grid.X, fmt.Errorf("unknown axis %q", s)
	}
}
