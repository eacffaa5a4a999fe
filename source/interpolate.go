package source

import (
	"errors"

	"github.com/fogleman/delaunay"
	"github.com/go-gl/mathgl/mgl64"
)

// Sample is one complex amplitude at a point of the cross-section
type Sample struct {
	U, V  float64
	Value complex128
}

// Interpolator is a piecewise-linear interpolant over the Delaunay
// triangulation of scattered samples
type Interpolator struct {
	points    []mgl64.Vec2
	values    []complex128
	triangles [][3]int
	eps       float64
}

// NewInterpolator triangulates the samples. At least three non-collinear
// samples are required.
func NewInterpolator(samples []Sample) (*Interpolator, error) {
	if len(samples) < 3 {
		return nil, errors.New("interpolation needs at least three samples")
	}
	ip := &Interpolator{eps: 1e-9}
	for _, s := range samples {
		ip.points = append(ip.points, mgl64.Vec2{s.U, s.V})
		ip.values = append(ip.values, s.Value)
	}
	ip.triangles = triangulate(ip.points)
	if len(ip.triangles) == 0 {
		return nil, errors.New("samples are collinear")
	}
	return ip, nil
}

// Triangles returns the vertex indices of the triangulation
func (ip *Interpolator) Triangles() [][3]int { return ip.triangles }

// At evaluates the interpolant; ok is false outside the convex hull
func (ip *Interpolator) At(u, v float64) (value complex128, ok bool) {
	p := mgl64.Vec2{u, v}
	for _, t := range ip.triangles {
		w0, w1, w2, inside := barycentric(ip.points[t[0]], ip.points[t[1]], ip.points[t[2]], p, ip.eps)
		if !inside {
			continue
		}
		value = complex(w0, 0)*ip.values[t[0]] +
			complex(w1, 0)*ip.values[t[1]] +
			complex(w2, 0)*ip.values[t[2]]
		return value, true
	}
	return 0, false
}

func barycentric(a, b, c, p mgl64.Vec2, eps float64) (w0, w1, w2 float64, inside bool) {
	v0, v1, v2 := b.Sub(a), c.Sub(a), p.Sub(a)
	den := v0[0]*v1[1] - v1[0]*v0[1]
	if den == 0 {
		return 0, 0, 0, false
	}
	w1 = (v2[0]*v1[1] - v1[0]*v2[1]) / den
	w2 = (v0[0]*v2[1] - v2[0]*v0[1]) / den
	w0 = 1 - w1 - w2
	inside = w0 >= -eps && w1 >= -eps && w2 >= -eps
	return
}

// triangulate returns the Delaunay triangles of pts, dropping any with zero
// area. Collinear or coincident input yields none.
func triangulate(pts []mgl64.Vec2) [][3]int {
	in := make([]delaunay.Point, len(pts))
	for i, p := range pts {
		in[i] = delaunay.Point{X: p[0], Y: p[1]}
	}
	tri, err := delaunay.Triangulate(in)
	if err != nil {
		return nil
	}
	var out [][3]int
	for i := 0; i+2 < len(tri.Triangles); i += 3 {
		t := [3]int{tri.Triangles[i], tri.Triangles[i+1], tri.Triangles[i+2]}
		if area2(pts[t[0]], pts[t[1]], pts[t[2]]) == 0 {
			continue
		}
		out = append(out, t)
	}
	return out
}

func area2(a, b, c mgl64.Vec2) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (c[0]-a[0])*(b[1]-a[1])
}
