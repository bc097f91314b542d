// pkg/physics/body.go
package physics

import "math"

// massEpsilon is the magnitude below which mass or inertia counts as zero,
// making the body immovable (or non-rotating).
const massEpsilon = 1e-7

// DefaultDensity is the density creature shapes are built with.
const DefaultDensity = 1.0

// BodyDef describes a body to build with NewBody. A zero Density makes a
// static body.
type BodyDef struct {
	Position    Vector2D
	Orientation float64
	Velocity    Vector2D
	Restitution float64
	Density     float64

	Circles  []Circle
	Polygons []Polygon
	Boxes    []AABB
}

// Body is a rigid composite of circles, polygons and massless AABB
// colliders. Its Position is always its center of mass.
type Body struct {
	Circles  []Circle
	Polygons []Polygon
	// Boxes contribute no mass; they model static terrain.
	Boxes []AABB

	Position        Vector2D
	Orientation     float64 // radians
	Velocity        Vector2D
	AngularVelocity float64
	Torque          float64
	Restitution     float64
	Density         float64

	mass       float64
	massInv    float64
	inertia    float64
	inertiaInv float64
}

// NewBody builds a body and computes its mass properties.
func NewBody(def BodyDef) *Body {
	b := &Body{
		Circles:     append([]Circle(nil), def.Circles...),
		Boxes:       append([]AABB(nil), def.Boxes...),
		Position:    def.Position,
		Orientation: def.Orientation,
		Velocity:    def.Velocity,
		Restitution: def.Restitution,
		Density:     def.Density,
	}
	for _, p := range def.Polygons {
		b.Polygons = append(b.Polygons, p.clone())
	}
	b.ComputeMass()
	return b
}

// AddCircle attaches a circle and recomputes the mass properties.
func (b *Body) AddCircle(c Circle) {
	b.Circles = append(b.Circles, c)
	b.ComputeMass()
}

// AddPolygon attaches a polygon and recomputes the mass properties.
func (b *Body) AddPolygon(p Polygon) {
	b.Polygons = append(b.Polygons, p.clone())
	b.ComputeMass()
}

// AddBox attaches a massless AABB collider, shifted into the current
// center-of-mass frame.
func (b *Body) AddBox(box AABB) {
	b.Boxes = append(b.Boxes, box)
	b.ComputeMass()
}

// ComputeMass sums the shapes' mass, moves every shape so the body origin is
// the center of mass (moving Position the other way so nothing moves in the
// world) and sums the inertia about that point with the parallel axis
// theorem. Calling it again without changing shapes is a no-op.
func (b *Body) ComputeMass() {
	type part struct {
		mass, inertia float64
	}
	circleParts := make([]part, len(b.Circles))
	polygonParts := make([]part, len(b.Polygons))

	totalMass := 0.0
	var weighted Vector2D
	for i, c := range b.Circles {
		m := c.ComputeMass(b.Density)
		circleParts[i] = part{mass: m, inertia: c.ComputeAngularMass(m)}
		totalMass += m
		weighted = weighted.Add(c.Pos.Scale(m))
	}
	for i := range b.Polygons {
		m, inertia := b.Polygons[i].ComputeMass(b.Density)
		polygonParts[i] = part{mass: m, inertia: inertia}
		totalMass += m
		weighted = weighted.Add(b.Polygons[i].Pos.Scale(m))
	}

	var centroid Vector2D
	if math.Abs(totalMass) >= massEpsilon {
		centroid = weighted.Scale(1 / totalMass)
	}

	for i := range b.Circles {
		b.Circles[i].Pos = b.Circles[i].Pos.Sub(centroid)
	}
	for i := range b.Polygons {
		b.Polygons[i].Pos = b.Polygons[i].Pos.Sub(centroid)
	}
	// The origin moves by the unrotated centroid. Circles and boxes stay put;
	// polygons on a rotated body shift by centroid - R*centroid.
	for i := range b.Boxes {
		b.Boxes[i] = b.Boxes[i].Translate(centroid.Neg())
	}
	b.Position = b.Position.Add(centroid)

	inertia := 0.0
	for i, c := range b.Circles {
		inertia += circleParts[i].inertia + circleParts[i].mass*c.Pos.LengthSquared()
	}
	for i, p := range b.Polygons {
		inertia += polygonParts[i].inertia + polygonParts[i].mass*p.Pos.LengthSquared()
	}

	b.SetMass(totalMass)
	b.SetInertia(inertia)
}

// SetMass stores mass and its inverse; a near-zero mass makes the body static.
func (b *Body) SetMass(mass float64) {
	b.mass = mass
	b.massInv = safeInverse(mass)
}

// SetInertia stores the moment of inertia and its inverse; a near-zero
// inertia stops the body from rotating.
func (b *Body) SetInertia(inertia float64) {
	b.inertia = inertia
	b.inertiaInv = safeInverse(inertia)
}

// Mass returns the total mass.
func (b *Body) Mass() float64 { return b.mass }

// MassInv returns 1/mass, or 0 for static bodies.
func (b *Body) MassInv() float64 { return b.massInv }

// Inertia returns the moment of inertia about the center of mass.
func (b *Body) Inertia() float64 { return b.inertia }

// InertiaInv returns 1/inertia, or 0 for non-rotating bodies.
func (b *Body) InertiaInv() float64 { return b.inertiaInv }

// IsStatic reports whether the body has infinite mass.
func (b *Body) IsStatic() bool { return b.massInv == 0 }

// ApplyImpulse applies impulse at contact, given relative to the center of mass.
func (b *Body) ApplyImpulse(impulse, contact Vector2D) {
	b.Velocity = b.Velocity.Add(impulse.Scale(b.massInv))
	b.AngularVelocity += b.inertiaInv * contact.Cross(impulse)
}

// Step advances the body by dt with semi-implicit Euler: position and
// orientation move with the velocities from the start of the step, then
// gravity and torque update the velocities. Static bodies do not move.
func (b *Body) Step(dt float64, gravity Vector2D) {
	if b.IsStatic() {
		return
	}

	b.Position = b.Position.Add(b.Velocity.Scale(dt))
	b.Orientation += b.AngularVelocity * dt

	b.Velocity = b.Velocity.Add(gravity.Scale(dt))
	b.AngularVelocity += b.Torque * b.inertiaInv * dt

	for i := range b.Polygons {
		b.Polygons[i].Pos = b.Polygons[i].Pos.Add(b.Polygons[i].Velocity.Scale(dt))
	}
}

// Transform maps body-local points into world space.
func (b *Body) Transform() Transform {
	return NewTransform(b.Position, b.Orientation)
}

// PolygonTransform maps polygon i's local points into world space.
func (b *Body) PolygonTransform(i int) Transform {
	return b.Transform().Mul(b.Polygons[i].LocalTransform())
}

// CircleCenter returns the world position of circle i. Circle offsets do
// not turn with the body.
func (b *Body) CircleCenter(i int) Vector2D {
	return b.Position.Add(b.Circles[i].Pos)
}

// BoxBounds returns box i in world space.
func (b *Body) BoxBounds(i int) AABB {
	return b.Boxes[i].Translate(b.Position)
}

// IsFinite reports whether the kinematic state is free of NaN and Inf.
func (b *Body) IsFinite() bool {
	return b.Position.IsFinite() && b.Velocity.IsFinite() &&
		isFinite(b.Orientation) && isFinite(b.AngularVelocity)
}

// Clone returns a deep copy that shares no shape storage with b.
func (b *Body) Clone() *Body {
	c := *b
	c.Circles = append([]Circle(nil), b.Circles...)
	c.Boxes = append([]AABB(nil), b.Boxes...)
	c.Polygons = make([]Polygon, len(b.Polygons))
	for i, p := range b.Polygons {
		c.Polygons[i] = p.clone()
	}
	return &c
}

func safeInverse(v float64) float64 {
	if math.Abs(v) < massEpsilon {
		return 0
	}
	return 1 / v
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
