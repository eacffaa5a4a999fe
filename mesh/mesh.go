// Package mesh holds closed triangle meshes in grid coordinates and the
// procedural primitives used to build presets.
package mesh

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is an indexed triangle list. Every three Indices form one triangle.
type Mesh struct {
	Vertices []mgl32.Vec3
	Indices  []uint32
}

// Triangles is the number of triangles
func (m *Mesh) Triangles() int { return len(m.Indices) / 3 }

// Triangle returns the corners of triangle i
func (m *Mesh) Triangle(i int) (a, b, c mgl32.Vec3) {
	return m.Vertices[m.Indices[3*i]], m.Vertices[m.Indices[3*i+1]], m.Vertices[m.Indices[3*i+2]]
}

// Validate checks the index list shape and range
func (m *Mesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return fmt.Errorf("index %d at %d out of range (%d vertices)", idx, i, len(m.Vertices))
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounding box
func (m *Mesh) Bounds() (lo, hi mgl32.Vec3) {
	if len(m.Vertices) == 0 {
		return
	}
	lo, hi = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for a := 0; a < 3; a++ {
			lo[a] = min(lo[a], v[a])
			hi[a] = max(hi[a], v[a])
		}
	}
	return
}

// Transform returns a copy scaled about the origin and then moved to
// position
func (m *Mesh) Transform(position, scale mgl32.Vec3) *Mesh {
	mat := mgl32.Translate3D(position[0], position[1], position[2]).
		Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2]))
	out := &Mesh{
		Vertices: make([]mgl32.Vec3, len(m.Vertices)),
		Indices:  append([]uint32(nil), m.Indices...),
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = mgl32.TransformCoordinate(v, mat)
	}
	return out
}

// Append adds the triangles of other, rebasing its indices
func (m *Mesh) Append(other *Mesh) {
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, other.Vertices...)
	for _, idx := range other.Indices {
		m.Indices = append(m.Indices, base+idx)
	}
}

// Box is the closed axis-aligned box [lo, hi] with outward winding
func Box(lo, hi mgl32.Vec3) *Mesh {
	v := make([]mgl32.Vec3, 8)
	for i := range v {
		for a := 0; a < 3; a++ {
			if i&(1<<a) != 0 {
				v[i][a] = hi[a]
			} else {
				v[i][a] = lo[a]
			}
		}
	}
	return &Mesh{
		Vertices: v,
		Indices: []uint32{
			0, 2, 1, 1, 2, 3, // z = lo
			4, 5, 6, 5, 7, 6, // z = hi
			0, 1, 4, 1, 5, 4, // y = lo
			2, 6, 3, 3, 6, 7, // y = hi
			0, 4, 2, 2, 4, 6, // x = lo
			1, 3, 5, 3, 7, 5, // x = hi
		},
	}
}

// Icosphere is a unit sphere built by subdividing an icosahedron; each level
// splits every triangle into four
func Icosphere(subdivisions int) *Mesh {
	t := float32((1 + math.Sqrt(5)) / 2)
	m := &Mesh{
		Vertices: []mgl32.Vec3{
			{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
			{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
			{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
		},
		Indices: []uint32{
			0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
			1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
			3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
			4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
		},
	}
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Normalize()
	}

	for s := 0; s < subdivisions; s++ {
		mid := make(map[[2]uint32]uint32)
		midpoint := func(a, b uint32) uint32 {
			key := [2]uint32{min(a, b), max(a, b)}
			if i, ok := mid[key]; ok {
				return i
			}
			p := m.Vertices[a].Add(m.Vertices[b]).Normalize()
			m.Vertices = append(m.Vertices, p)
			i := uint32(len(m.Vertices) - 1)
			mid[key] = i
			return i
		}
		next := make([]uint32, 0, 4*len(m.Indices))
		for i := 0; i < len(m.Indices); i += 3 {
			a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
			ab, bc, ca := midpoint(a, b), midpoint(b, c), midpoint(c, a)
			next = append(next,
				a, ab, ca,
				b, bc, ab,
				c, ca, bc,
				ab, bc, ca,
			)
		}
		m.Indices = next
	}
	return m
}
