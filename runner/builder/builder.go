package builder

import (
	"fmt"
	"strings"

	"github.com/notargets/FDTDKernel/grid"
)

// DataType represents the precision of numerical data
type DataType int

const (
	Float32 DataType = iota + 1
	Float64
	INT32
	INT64
)

func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case INT32:
		return "int32"
	case INT64:
		return "int64"
	default:
		return fmt.Sprintf("DataType(%d)", int(dt))
	}
}

// Size is the width of one value in bytes
func (dt DataType) Size() int64 {
	switch dt {
	case Float32, INT32:
		return 4
	default:
		return 8
	}
}

// ArraySpec defines a device allocation
type ArraySpec struct {
	Name     string
	Size     int64 // bytes
	DataType DataType
	IsOutput bool
}

// Builder generates the kernel preamble for one structured grid. Every
// kernel built against it sees the grid extents and tile shape as
// compile-time constants.
type Builder struct {
	Dim  grid.Dimension
	Tile [3]int

	// Type configuration
	FloatType DataType
	IntType   DataType

	// Array tracking for signature generation
	AllocatedArrays []string

	// Generated code
	KernelPreamble string
}

// Config holds configuration for creating a Builder
type Config struct {
	Dim       grid.Dimension
	Tile      [3]int
	FloatType DataType
	IntType   DataType
}

// NewBuilder creates a new Builder instance
func NewBuilder(cfg Config) *Builder {
	if cfg.Dim.Cells() <= 0 {
		panic(fmt.Sprintf("grid dimension must be non-empty, got %v", cfg.Dim))
	}
	floatType := cfg.FloatType
	if floatType == 0 {
		floatType = Float32
	}
	intType := cfg.IntType
	if intType == 0 {
		intType = INT32
	}
	tile := cfg.Tile
	for a := range tile {
		if tile[a] <= 0 {
			tile[a] = 1
		}
	}
	return &Builder{
		Dim:             cfg.Dim,
		Tile:            tile,
		FloatType:       floatType,
		IntType:         intType,
		AllocatedArrays: []string{},
	}
}

// TileCount is the number of tiles along each axis, rounding up
func (kb *Builder) TileCount() [3]int {
	ext := kb.Dim.Array()
	var n [3]int
	for a := range n {
		n[a] = (ext[a] + kb.Tile[a] - 1) / kb.Tile[a]
	}
	return n
}

// GeneratePreamble generates the kernel preamble with types, extents and
// index macros
func (kb *Builder) GeneratePreamble() string {
	var sb strings.Builder

	// 1. Type definitions
	sb.WriteString(kb.generateTypeDefinitions())

	// 2. Grid and tile constants
	sb.WriteString(kb.generateGridConstants())

	// 3. Indexing and boundary macros
	sb.WriteString(kb.generateIndexMacros())

	kb.KernelPreamble = sb.String()
	return kb.KernelPreamble
}

// generateTypeDefinitions creates type definitions based on precision settings
func (kb *Builder) generateTypeDefinitions() string {
	var sb strings.Builder

	floatTypeStr := "double"
	floatSuffix := ""
	if kb.FloatType == Float32 {
		floatTypeStr = "float"
		floatSuffix = "f"
	}

	intTypeStr := "long"
	if kb.IntType == INT32 {
		intTypeStr = "int"
	}

	sb.WriteString(fmt.Sprintf("typedef %s real_t;\n", floatTypeStr))
	sb.WriteString(fmt.Sprintf("typedef %s int_t;\n", intTypeStr))
	sb.WriteString(fmt.Sprintf("#define REAL_ZERO 0.0%s\n", floatSuffix))
	sb.WriteString(fmt.Sprintf("#define REAL_ONE 1.0%s\n", floatSuffix))
	sb.WriteString("\n")
	return sb.String()
}

func (kb *Builder) generateGridConstants() string {
	var sb strings.Builder
	d := kb.Dim
	tiles := kb.TileCount()

	sb.WriteString(fmt.Sprintf("#define NX %d\n", d.NX))
	sb.WriteString(fmt.Sprintf("#define NY %d\n", d.NY))
	sb.WriteString(fmt.Sprintf("#define NZ %d\n", d.NZ))
	sb.WriteString(fmt.Sprintf("#define NCELL %d\n", d.Cells()))
	sb.WriteString(fmt.Sprintf("#define TILE_X %d\n", kb.Tile[0]))
	sb.WriteString(fmt.Sprintf("#define TILE_Y %d\n", kb.Tile[1]))
	sb.WriteString(fmt.Sprintf("#define TILE_Z %d\n", kb.Tile[2]))
	sb.WriteString(fmt.Sprintf("#define NTILE_X %d\n", tiles[0]))
	sb.WriteString(fmt.Sprintf("#define NTILE_Y %d\n", tiles[1]))
	sb.WriteString(fmt.Sprintf("#define NTILE_Z %d\n", tiles[2]))
	sb.WriteString("\n")
	return sb.String()
}

func (kb *Builder) generateIndexMacros() string {
	var sb strings.Builder

	sb.WriteString("// x-fastest cell index\n")
	sb.WriteString("#define IDX(x, y, z) ((x) + NX * ((y) + NY * (z)))\n")
	sb.WriteString("#define INSIDE(x, y, z) ((x) >= 0 && (x) < NX && (y) >= 0 && (y) < NY && (z) >= 0 && (z) < NZ)\n")
	sb.WriteString("// out-of-range neighbours read as zero\n")
	sb.WriteString("#define AT(F, x, y, z) (INSIDE(x, y, z) ? (F)[IDX(x, y, z)] : REAL_ZERO)\n")
	sb.WriteString("#define ON_X(x) ((x) == 0 || (x) == NX - 1)\n")
	sb.WriteString("#define ON_Y(y) ((y) == 0 || (y) == NY - 1)\n")
	sb.WriteString("#define ON_Z(z) ((z) == 0 || (z) == NZ - 1)\n")
	sb.WriteString("#define BOUNDARY_PEC 0\n")
	sb.WriteString("#define BOUNDARY_PMC 1\n")
	sb.WriteString("\n")
	return sb.String()
}

// GetIntSize returns the size of the integer type in bytes
func (kb *Builder) GetIntSize() int {
	return int(kb.IntType.Size())
}
