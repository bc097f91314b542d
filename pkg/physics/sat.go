package physics

import "math"

// linearEpsilon is the geometric tolerance for "touching" tests.
const linearEpsilon = 1e-7

// SATPolicy holds the tie-break and clipping tolerances of the polygon test.
//
// The reference face is A's unless B is meaningfully less penetrating:
// A wins when penA >= penB*BiasRelative + penA*BiasAbsolute. An exact
// comparison flips the reference between nearly tied axes from frame to
// frame, which shows up as gait jitter. Clipped points further than
// ClipThreshold in front of the reference face are not contacts.
type SATPolicy struct {
	BiasRelative  float64
	BiasAbsolute  float64
	ClipThreshold float64
}

// DefaultSATPolicy returns the policy of DefaultSettings.
func DefaultSATPolicy() SATPolicy {
	return DefaultSettings().SAT()
}

// PolygonVsPolygon tests polygon pa of body a against polygon pb of body b
// with the separating axis theorem, then clips the incident face against the
// reference face for up to two contacts.
func (s SATPolicy) PolygonVsPolygon(a *Body, pa *Polygon, b *Body, pb *Polygon) (Manifold, bool) {
	return s.collide(
		a, a.Transform().Mul(pa.LocalTransform()), pa, a.Transform().Rotate(pa.Velocity),
		b, b.Transform().Mul(pb.LocalTransform()), pb, b.Transform().Rotate(pb.Velocity),
	)
}

func (s SATPolicy) collide(
	a *Body, ta Transform, pa *Polygon, velA Vector2D,
	b *Body, tb Transform, pb *Polygon, velB Vector2D,
) (Manifold, bool) {
	penetrationA, faceA := axisOfLeastPenetration(ta, pa, tb, pb)
	if penetrationA >= 0 {
		return Manifold{}, false
	}
	penetrationB, faceB := axisOfLeastPenetration(tb, pb, ta, pa)
	if penetrationB >= 0 {
		return Manifold{}, false
	}

	refT, refP, incT, incP := ta, pa, tb, pb
	refIndex := faceA
	flip := false
	if !s.biasedGreaterThan(penetrationA, penetrationB) {
		refT, refP, incT, incP = tb, pb, ta, pa
		refIndex = faceB
		flip = true
	}

	incIndex := incidentFace(refT, refP, incT, incP, refIndex)
	incident := [2]Vector2D{
		incT.Apply(incP.Vertex(incIndex)),
		incT.Apply(incP.Vertex((incIndex + 1) % incP.VertexCount())),
	}

	v1 := refT.Apply(refP.Vertex(refIndex))
	v2 := refT.Apply(refP.Vertex((refIndex + 1) % refP.VertexCount()))
	tangent := v2.Sub(v1).Normalize()
	normal := Vector2D{X: tangent.Y, Y: -tangent.X}

	// Distance of the reference face line from the world origin, and the
	// two side planes bounding the face.
	refDistance := normal.Dot(v1)
	negSide := -tangent.Dot(v1)
	posSide := tangent.Dot(v2)

	// Fewer than two points after a clip only happens through rounding.
	if clip(tangent.Neg(), negSide, &incident) < 2 {
		return Manifold{}, false
	}
	if clip(tangent, posSide, &incident) < 2 {
		return Manifold{}, false
	}

	m := Manifold{A: a, B: b, ShapeVelocityA: velA, ShapeVelocityB: velB}
	// The reference normal points out of the reference polygon.
	if flip {
		m.Normal = normal
	} else {
		m.Normal = normal.Neg()
	}

	depth := 0.0
	for _, p := range incident {
		separation := normal.Dot(p) - refDistance
		if separation <= s.ClipThreshold {
			m.Contacts[m.ContactCount] = p
			m.ContactCount++
			depth -= separation
		}
	}
	if m.ContactCount == 0 {
		return Manifold{}, false
	}
	m.Penetration = depth / float64(m.ContactCount)
	return m, true
}

func (s SATPolicy) biasedGreaterThan(a, b float64) bool {
	return a >= b*s.BiasRelative+a*s.BiasAbsolute
}

// axisOfLeastPenetration checks every face normal of a against b's support
// point in b's frame. The result is the largest signed distance and its face;
// a non-negative distance means the face separates the polygons.
func axisOfLeastPenetration(ta Transform, a *Polygon, tb Transform, b *Polygon) (float64, int) {
	bestDistance := math.Inf(-1)
	bestIndex := 0

	for i := 0; i < a.VertexCount(); i++ {
		normal := tb.RotateInverse(ta.Rotate(a.Normal(i)))
		support := b.ExtremePoint(normal.Neg())
		vertex := tb.ApplyInverse(ta.Apply(a.Vertex(i)))

		if distance := normal.Dot(support.Sub(vertex)); distance > bestDistance {
			bestDistance = distance
			bestIndex = i
		}
	}
	return bestDistance, bestIndex
}

// incidentFace returns the face of inc most anti-parallel to the reference
// face normal.
func incidentFace(refT Transform, ref *Polygon, incT Transform, inc *Polygon, refIndex int) int {
	refNormal := incT.RotateInverse(refT.Rotate(ref.Normal(refIndex)))

	face := 0
	minDot := math.Inf(1)
	for i := 0; i < inc.VertexCount(); i++ {
		if dot := refNormal.Dot(inc.Normal(i)); dot < minDot {
			minDot = dot
			face = i
		}
	}
	return face
}

// clip cuts the segment face against the plane n·x = c, keeping the part
// behind it, and returns how many points survive.
func clip(n Vector2D, c float64, face *[2]Vector2D) int {
	out := *face
	kept := 0

	d1 := n.Dot(face[0]) - c
	d2 := n.Dot(face[1]) - c

	if d1 <= 0 {
		out[kept] = face[0]
		kept++
	}
	if d2 <= 0 {
		out[kept] = face[1]
		kept++
	}

	// Strictly less than zero so -0 does not count as a crossing.
	if d1*d2 < 0 {
		alpha := d1 / (d1 - d2)
		out[kept] = face[0].Add(face[1].Sub(face[0]).Scale(alpha))
		kept++
	}

	*face = out
	return kept
}
