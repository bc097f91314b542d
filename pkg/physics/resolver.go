package physics

import "math"

const (
	// frictionEpsilon is the smallest friction impulse worth applying.
	frictionEpsilon = 1e-7
	// tangentEpsilon is the smallest squared sliding speed that has a
	// direction. Below it the tangent is rounding noise off the normal.
	tangentEpsilon = 1e-12
)

// Solver turns manifolds into impulses and positional corrections.
type Solver struct {
	StaticFriction  float64
	DynamicFriction float64

	RestingVelocitySquared float64
	Slop                   float64
	CorrectionFactor       float64
}

// DefaultSolver returns the solver of DefaultSettings.
func DefaultSolver() Solver {
	return DefaultSettings().Solver()
}

// Resolve applies restitution and Coulomb friction impulses at every contact
// of m, then nudges both bodies apart once to remove residual penetration.
// Every contact works from the velocities the bodies had on entry, and each
// contact carries 1/ContactCount of the impulse.
func (s Solver) Resolve(m *Manifold) {
	a, b := m.A, m.B
	massInvSum := a.MassInv() + b.MassInv()
	if massInvSum < massEpsilon {
		return
	}

	// The impulse formulas below want the normal pointing from A to B.
	normal := m.Normal.Neg()

	posA, posB := a.Position, b.Position
	velA := a.Velocity.Add(m.ShapeVelocityA)
	velB := b.Velocity.Add(m.ShapeVelocityB)
	angA, angB := a.AngularVelocity, b.AngularVelocity
	contacts := float64(m.ContactCount)

	for i := 0; i < m.ContactCount; i++ {
		rA := m.Contacts[i].Sub(posA)
		rB := m.Contacts[i].Sub(posB)

		relative := velB.Add(CrossScalar(angB, rB)).
			Sub(velA).Sub(CrossScalar(angA, rA))

		contactVelocity := relative.Dot(normal)
		if contactVelocity > 0 {
			// Already separating at this point.
			continue
		}

		rACrossN := rA.Cross(normal)
		rBCrossN := rB.Cross(normal)
		k := massInvSum +
			rACrossN*rACrossN*a.InertiaInv() +
			rBCrossN*rBCrossN*b.InertiaInv()

		restitution := math.Min(a.Restitution, b.Restitution)
		if relative.LengthSquared() < s.RestingVelocitySquared {
			restitution = 0
		}

		j := -(1 + restitution) * contactVelocity / k / contacts
		impulse := normal.Scale(j)
		a.ApplyImpulse(impulse.Neg(), rA)
		b.ApplyImpulse(impulse, rB)

		tangent := relative.Sub(normal.Scale(relative.Dot(normal)))
		if tangent.LengthSquared() < tangentEpsilon {
			continue
		}
		tangent = tangent.Normalize()
		jt := -relative.Dot(tangent) / k / contacts
		if math.Abs(jt) <= frictionEpsilon {
			continue
		}

		// Coulomb: stick while the tangential impulse is inside the static
		// cone, otherwise slide with dynamic friction.
		var friction Vector2D
		if math.Abs(jt) < j*s.StaticFriction {
			friction = tangent.Scale(jt)
		} else {
			friction = tangent.Scale(-j * s.DynamicFriction)
		}
		a.ApplyImpulse(friction.Neg(), rA)
		b.ApplyImpulse(friction, rB)
	}

	correction := normal.Scale(
		math.Max(m.Penetration-s.Slop, 0) / massInvSum * s.CorrectionFactor,
	)
	a.Position = a.Position.Sub(correction.Scale(a.MassInv()))
	b.Position = b.Position.Add(correction.Scale(b.MassInv()))
}
