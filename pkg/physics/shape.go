// pkg/physics/shape.go
package physics

import (
	"fmt"
	"math"
)

// edgeEpsilon is the smallest squared edge length a polygon may have.
const edgeEpsilon = 1e-11

// AABB is an axis-aligned box in its body's local frame. Boxes only follow
// their body's position, never its orientation.
type AABB struct {
	Min Vector2D
	Max Vector2D
}

// Center returns the midpoint of the box
func (b AABB) Center() Vector2D {
	return b.Min.Add(b.Max).Scale(0.5)
}

// HalfExtents returns half the width and half the height
func (b AABB) HalfExtents() Vector2D {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// Translate returns the box moved by offset
func (b AABB) Translate(offset Vector2D) AABB {
	return AABB{Min: b.Min.Add(offset), Max: b.Max.Add(offset)}
}

// Circle is a circular collision shape offset from its body's origin.
type Circle struct {
	Radius float64
	Pos    Vector2D
}

// ComputeMass returns the mass of the circle treated as a solid sphere, which
// gives heavier big wheels than a flat disc would.
func (c Circle) ComputeMass(density float64) float64 {
	return 4.0 / 3.0 * math.Pi * c.Radius * c.Radius * c.Radius * density
}

// ComputeAngularMass returns the solid-sphere moment of inertia for mass.
func (c Circle) ComputeAngularMass(mass float64) float64 {
	return 2.0 / 5.0 * mass * c.Radius * c.Radius
}

// Polygon is a convex polygon in its own local frame. Vertices wind
// counter-clockwise around the local origin, which lies strictly inside;
// normal i is the outward unit normal of the edge vertex[i] -> vertex[i+1].
type Polygon struct {
	vertices []Vector2D
	normals  []Vector2D

	// Rotation and Pos place the polygon in its body's frame.
	Rotation float64
	Pos      Vector2D
	// Velocity moves Pos every step; creature limbs oscillate through it.
	Velocity Vector2D
}

// NewPolygon validates vertices and builds a polygon rotated by rotation
// radians inside its body.
func NewPolygon(vertices []Vector2D, rotation float64) (Polygon, error) {
	p := Polygon{Rotation: rotation}
	if err := p.SetVertices(vertices); err != nil {
		return Polygon{}, err
	}
	return p, nil
}

// NewBox builds a rectangle centered on its local origin.
//
//	v3 ---- n2 ---- v2
//	|               |
//	n3    (0,0)     n1
//	|               |
//	v0 ---- n0 ---- v1
func NewBox(halfWidth, halfHeight, rotation float64) Polygon {
	return Polygon{
		vertices: []Vector2D{
			{X: -halfWidth, Y: -halfHeight},
			{X: halfWidth, Y: -halfHeight},
			{X: halfWidth, Y: halfHeight},
			{X: -halfWidth, Y: halfHeight},
		},
		normals: []Vector2D{
			{X: 0, Y: -1},
			{X: 1, Y: 0},
			{X: 0, Y: 1},
			{X: -1, Y: 0},
		},
		Rotation: rotation,
	}
}

// SetVertices replaces the vertex ring and recomputes the face normals.
// The polygon is left untouched when the ring is rejected.
func (p *Polygon) SetVertices(vertices []Vector2D) error {
	if len(vertices) < 3 {
		return fmt.Errorf("%w: got %d", ErrTooFewVertices, len(vertices))
	}

	n := len(vertices)
	normals := make([]Vector2D, n)
	for i := range vertices {
		v1 := vertices[i]
		v2 := vertices[(i+1)%n]
		edge := v2.Sub(v1)
		if edge.LengthSquared() <= edgeEpsilon {
			return fmt.Errorf("%w: edge %d", ErrDegenerateEdge, i)
		}

		next := vertices[(i+2)%n].Sub(v2)
		if edge.Cross(next) < 0 {
			return fmt.Errorf("%w: turn at vertex %d", ErrNotCounterClockwise, (i+1)%n)
		}

		// Outward normal of a counter-clockwise edge.
		normals[i] = Vector2D{X: edge.Y, Y: -edge.X}.Normalize()
		if normals[i].Dot(v1) <= 0 {
			return fmt.Errorf("%w: edge %d", ErrOriginOutside, i)
		}
	}

	p.vertices = append([]Vector2D(nil), vertices...)
	p.normals = normals
	return nil
}

// VertexCount returns the number of vertices
func (p Polygon) VertexCount() int {
	return len(p.vertices)
}

// Vertex returns vertex i in polygon-local coordinates
func (p Polygon) Vertex(i int) Vector2D {
	return p.vertices[i]
}

// Normal returns the outward unit normal of edge i
func (p Polygon) Normal(i int) Vector2D {
	return p.normals[i]
}

// Vertices returns a copy of the vertex ring
func (p Polygon) Vertices() []Vector2D {
	return append([]Vector2D(nil), p.vertices...)
}

// LocalTransform places the polygon in its body's frame.
func (p Polygon) LocalTransform() Transform {
	return NewTransform(p.Pos, p.Rotation)
}

// ExtremePoint returns the support point: the vertex furthest along dir.
func (p Polygon) ExtremePoint(dir Vector2D) Vector2D {
	bestProjection := math.Inf(-1)
	var best Vector2D
	for _, v := range p.vertices {
		if projection := v.Dot(dir); projection > bestProjection {
			best = v
			bestProjection = projection
		}
	}
	return best
}

// ComputeMass triangulates the polygon against its local origin, moves the
// origin to the centroid (shifting Pos so nothing moves in the body frame)
// and returns the mass and the moment of inertia about the new origin.
func (p *Polygon) ComputeMass(density float64) (mass, inertia float64) {
	var centroid Vector2D
	area := 0.0
	originInertia := 0.0

	const over3 = 1.0 / 3.0
	n := len(p.vertices)
	for i := 0; i < n; i++ {
		p1 := p.vertices[i]
		p2 := p.vertices[(i+1)%n]

		d := p1.Cross(p2)
		triangleArea := 0.5 * d
		area += triangleArea
		centroid = centroid.Add(p1.Add(p2).Scale(triangleArea * over3))

		x2 := p1.X*p1.X + p2.X*p1.X + p2.X*p2.X
		y2 := p1.Y*p1.Y + p2.Y*p1.Y + p2.Y*p2.Y
		originInertia += 0.25 * over3 * d * (x2 + y2)
	}

	centroid = centroid.Scale(1 / area)
	for i := range p.vertices {
		p.vertices[i] = p.vertices[i].Sub(centroid)
	}
	p.Pos = p.Pos.Add(centroid.Rotate(p.Rotation))

	mass = density * area
	inertia = density*originInertia - mass*centroid.LengthSquared()
	return mass, inertia
}

// clone deep-copies the vertex ring so the copy can be recentered on its own.
func (p Polygon) clone() Polygon {
	p.vertices = append([]Vector2D(nil), p.vertices...)
	p.normals = append([]Vector2D(nil), p.normals...)
	return p
}
