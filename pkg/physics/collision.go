// pkg/physics/collision.go
package physics

import "math"

// Manifold is the result of one narrow-phase test between shapes of two
// bodies. It lives for a single step.
type Manifold struct {
	A, B *Body

	// Normal is a unit vector pointing from B toward A.
	Normal      Vector2D
	Penetration float64

	// Contacts holds ContactCount world-space contact points.
	Contacts     [2]Vector2D
	ContactCount int

	// ShapeVelocityA and ShapeVelocityB are the world-space local velocities
	// of the touching shapes (oscillating limbs), added to their body's
	// velocity by the resolver.
	ShapeVelocityA Vector2D
	ShapeVelocityB Vector2D
}

// Flip swaps the roles of A and B.
func (m Manifold) Flip() Manifold {
	m.A, m.B = m.B, m.A
	m.ShapeVelocityA, m.ShapeVelocityB = m.ShapeVelocityB, m.ShapeVelocityA
	m.Normal = m.Normal.Neg()
	return m
}

// CircleVsCircle tests circle ca of body a against circle cb of body b.
func CircleVsCircle(a *Body, ca Circle, b *Body, cb Circle) (Manifold, bool) {
	posA := a.Position.Add(ca.Pos)
	posB := b.Position.Add(cb.Pos)

	combined := ca.Radius + cb.Radius
	if posA.DistanceSquared(posB) > combined*combined {
		return Manifold{}, false
	}

	delta := posA.Sub(posB)
	distance := delta.Length()

	m := Manifold{A: a, B: b, ContactCount: 1}
	if distance == 0 {
		// Concentric circles: any direction separates them.
		m.Normal = Vector2D{X: 1, Y: 0}
	} else {
		m.Normal = delta.Scale(1 / distance)
	}
	m.Penetration = combined - distance
	// Deepest point of A toward B.
	m.Contacts[0] = posA.Sub(m.Normal.Scale(ca.Radius))
	return m, true
}

// AABBVsAABB tests two boxes, each translated by its body's position.
// The normal is along the axis of least overlap.
func AABBVsAABB(a *Body, boxA AABB, b *Body, boxB AABB) (Manifold, bool) {
	worldA := boxA.Translate(a.Position)
	worldB := boxB.Translate(b.Position)

	halfA := worldA.HalfExtents()
	halfB := worldB.HalfExtents()
	aToB := worldB.Center().Sub(worldA.Center())

	//     ----------      -----------------
	//     |        |      |               |
	//     |    .---|------|------>.       |
	//     |        |      |               |
	//     ----------      -----------------

	xOverlap := halfA.X + halfB.X - math.Abs(aToB.X)
	if xOverlap <= 0 {
		return Manifold{}, false
	}
	yOverlap := halfA.Y + halfB.Y - math.Abs(aToB.Y)
	if yOverlap <= 0 {
		return Manifold{}, false
	}

	m := Manifold{A: a, B: b, ContactCount: 1}
	if xOverlap < yOverlap {
		m.Penetration = xOverlap
		if aToB.X < 0 {
			m.Normal = Vector2D{X: 1, Y: 0}
		} else {
			m.Normal = Vector2D{X: -1, Y: 0}
		}
	} else {
		m.Penetration = yOverlap
		if aToB.Y < 0 {
			m.Normal = Vector2D{X: 0, Y: 1}
		} else {
			m.Normal = Vector2D{X: 0, Y: -1}
		}
	}

	// Center of the overlap rectangle.
	overlap := AABB{
		Min: Vector2D{X: math.Max(worldA.Min.X, worldB.Min.X), Y: math.Max(worldA.Min.Y, worldB.Min.Y)},
		Max: Vector2D{X: math.Min(worldA.Max.X, worldB.Max.X), Y: math.Min(worldA.Max.Y, worldB.Max.Y)},
	}
	m.Contacts[0] = overlap.Center()
	return m, true
}

// AABBVsCircle tests box (on body a) against circle c (on body b).
func AABBVsCircle(a *Body, box AABB, b *Body, c Circle) (Manifold, bool) {
	world := box.Translate(a.Position)
	extent := world.HalfExtents()
	center := world.Center()
	circlePos := b.Position.Add(c.Pos)

	// Work relative to the box center; clamping gives the closest point on
	// (or in) the box.
	toCircle := circlePos.Sub(center)
	closest := toCircle.Clamp(extent.Neg(), extent)

	inside := false
	if closest == toCircle {
		// The circle's center is inside the box: push the closest point out
		// to the face along the dominant axis.
		inside = true
		if math.Abs(toCircle.X) > math.Abs(toCircle.Y) {
			if closest.X > 0 {
				closest.X = extent.X
			} else {
				closest.X = -extent.X
			}
		} else {
			if closest.Y > 0 {
				closest.Y = extent.Y
			} else {
				closest.Y = -extent.Y
			}
		}
	}

	offset := toCircle.Sub(closest)
	distSq := offset.LengthSquared()
	if !inside && distSq > c.Radius*c.Radius {
		return Manifold{}, false
	}
	distance := math.Sqrt(distSq)

	m := Manifold{A: a, B: b, ContactCount: 1}
	if inside {
		// offset points from the face into the box, which is where A must
		// move relative to the circle.
		m.Normal = offset.Normalize()
	} else {
		m.Normal = offset.Neg().Normalize()
	}
	m.Penetration = c.Radius - distance
	if m.Normal == (Vector2D{}) {
		// Circle center exactly on the surface.
		m.Normal = faceNormal(closest, extent).Neg()
	}
	m.Contacts[0] = center.Add(closest)
	return m, true
}

// faceNormal returns the outward normal of the box face point p lies on.
func faceNormal(p, extent Vector2D) Vector2D {
	if extent.X-math.Abs(p.X) < extent.Y-math.Abs(p.Y) {
		return Vector2D{X: math.Copysign(1, p.X)}
	}
	return Vector2D{Y: math.Copysign(1, p.Y)}
}

// PolygonVsCircle tests polygon p (on body a) against circle c (on body b)
// using the Voronoi regions of the polygon's closest face.
func PolygonVsCircle(a *Body, p *Polygon, b *Body, c Circle) (Manifold, bool) {
	tp := a.Transform().Mul(p.LocalTransform())
	circlePos := b.Position.Add(c.Pos)
	center := tp.ApplyInverse(circlePos)

	// Face of least penetration.
	separation := math.Inf(-1)
	face := 0
	for i := 0; i < p.VertexCount(); i++ {
		s := p.Normal(i).Dot(center.Sub(p.Vertex(i)))
		if s > c.Radius {
			return Manifold{}, false
		}
		if s > separation {
			separation = s
			face = i
		}
	}

	v1 := p.Vertex(face)
	v2 := p.Vertex((face + 1) % p.VertexCount())

	// outward points from the polygon toward the circle, in polygon space.
	// A center inside the polygon always resolves through the closest face.
	outward := p.Normal(face)
	penetration := c.Radius - separation
	contact := center.Sub(outward.Scale(separation))
	if separation >= linearEpsilon {
		switch {
		case center.Sub(v1).Dot(v2.Sub(v1)) <= 0:
			if center.DistanceSquared(v1) > c.Radius*c.Radius {
				return Manifold{}, false
			}
			outward = center.Sub(v1).Normalize()
			penetration = c.Radius - center.Distance(v1)
			contact = v1
		case center.Sub(v2).Dot(v1.Sub(v2)) <= 0:
			if center.DistanceSquared(v2) > c.Radius*c.Radius {
				return Manifold{}, false
			}
			outward = center.Sub(v2).Normalize()
			penetration = c.Radius - center.Distance(v2)
			contact = v2
		}
	}

	m := Manifold{
		A:              a,
		B:              b,
		Normal:         tp.Rotate(outward).Neg(),
		Penetration:    penetration,
		ContactCount:   1,
		ShapeVelocityA: a.Transform().Rotate(p.Velocity),
	}
	m.Contacts[0] = tp.Apply(contact)
	return m, true
}

// AABBVsPolygon promotes box (on body a) to an unrotated box polygon at its
// body's position and runs the SAT test against polygon p on body b.
func (s SATPolicy) AABBVsPolygon(a *Body, box AABB, b *Body, p *Polygon) (Manifold, bool) {
	half := box.HalfExtents()
	boxPoly := NewBox(half.X, half.Y, 0)
	tBox := NewTransform(a.Position.Add(box.Center()), 0)
	return s.collide(a, tBox, &boxPoly, Vector2D{}, b, b.Transform().Mul(p.LocalTransform()), p, b.Transform().Rotate(p.Velocity))
}
