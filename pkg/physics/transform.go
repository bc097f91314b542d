package physics

import "github.com/go-gl/mathgl/mgl64"

// Transform is a rigid 2D transform: a rotation followed by a translation.
// Shapes hang off their body through two of these (shape-local, then body),
// and Mul collapses the chain into one.
type Transform struct {
	Position Vector2D
	rot      mgl64.Mat2
}

// NewTransform builds a transform rotating by angle radians and then
// translating by position.
func NewTransform(position Vector2D, angle float64) Transform {
	return Transform{Position: position, rot: mgl64.Rotate2D(angle)}
}

// IdentityTransform leaves every point where it is.
func IdentityTransform() Transform {
	return Transform{rot: mgl64.Ident2()}
}

// Apply maps a local point into the parent frame.
func (t Transform) Apply(p Vector2D) Vector2D {
	return t.Rotate(p).Add(t.Position)
}

// ApplyInverse maps a parent-frame point back into the local frame.
func (t Transform) ApplyInverse(p Vector2D) Vector2D {
	return t.RotateInverse(p.Sub(t.Position))
}

// Rotate maps a direction into the parent frame; directions are not translated.
func (t Transform) Rotate(d Vector2D) Vector2D {
	return fromMgl(t.rot.Mul2x1(toMgl(d)))
}

// RotateInverse maps a parent-frame direction into the local frame.
func (t Transform) RotateInverse(d Vector2D) Vector2D {
	return fromMgl(t.rot.Transpose().Mul2x1(toMgl(d)))
}

// Mul returns the transform equivalent to applying child first and then t.
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Position: t.Apply(child.Position),
		rot:      t.rot.Mul2(child.rot),
	}
}

func toMgl(v Vector2D) mgl64.Vec2 {
	return mgl64.Vec2{v.X, v.Y}
}

func fromMgl(v mgl64.Vec2) Vector2D {
	return Vector2D{X: v[0], Y: v[1]}
}
