package physics

import "fmt"

// Settings holds the simulation-wide tunables. Friction is global rather
// than per material; a per-shape material would slot in at Solver.
type Settings struct {
	Gravity Vector2D

	StaticFriction  float64
	DynamicFriction float64

	// SAT reference-face bias, see SATPolicy.
	SATBiasRelative float64
	SATBiasAbsolute float64
	// Clipped incident points whose separation from the reference face
	// exceeds this are dropped.
	ClipThreshold float64

	// Below this squared relative speed a contact is treated as resting and
	// restitution is forced to zero.
	RestingVelocitySquared float64

	// Positional correction: penetration allowed without correction, and the
	// fraction of the remaining penetration removed per step.
	Slop             float64
	CorrectionFactor float64

	// PolygonCircleContacts enables polygon-vs-circle detection. Off, such
	// pairs never collide.
	PolygonCircleContacts bool

	// Seed drives AddRandomBodies.
	Seed      uint64
	Obstacles ObstacleSettings
}

// ObstacleSettings describes where AddRandomBodies scatters its bodies.
type ObstacleSettings struct {
	MinX, MaxX       float64
	MinY, MaxY       float64
	MinSize, MaxSize float64
}

// DefaultSettings returns the tuning the walking challenge was developed with.
func DefaultSettings() Settings {
	return Settings{
		Gravity:                Vector2D{X: 0, Y: -9.8},
		StaticFriction:         0.8,
		DynamicFriction:        0.7,
		SATBiasRelative:        0.95,
		SATBiasAbsolute:        0.01,
		ClipThreshold:          0,
		RestingVelocitySquared: 0.17,
		Slop:                   0.01,
		CorrectionFactor:       0.4,
		PolygonCircleContacts:  false,
		Seed:                   1,
		Obstacles: ObstacleSettings{
			MinX:    -100,
			MaxX:    100,
			MinY:    -10,
			MaxY:    -9.5,
			MinSize: 0.1,
			MaxSize: 0.6,
		},
	}
}

// Validate reports the first tunable that is out of range.
func (s Settings) Validate() error {
	switch {
	case !s.Gravity.IsFinite():
		return fmt.Errorf("%w: gravity must be finite", ErrInvalidSettings)
	case s.StaticFriction < 0 || s.DynamicFriction < 0:
		return fmt.Errorf("%w: friction coefficients must be non-negative", ErrInvalidSettings)
	case s.DynamicFriction > s.StaticFriction:
		return fmt.Errorf("%w: dynamic friction %.3f exceeds static friction %.3f",
			ErrInvalidSettings, s.DynamicFriction, s.StaticFriction)
	case s.SATBiasRelative <= 0 || s.SATBiasRelative > 1:
		return fmt.Errorf("%w: SAT relative bias must be in (0, 1]", ErrInvalidSettings)
	case s.SATBiasAbsolute < 0:
		return fmt.Errorf("%w: SAT absolute bias must be non-negative", ErrInvalidSettings)
	case s.ClipThreshold > 0:
		return fmt.Errorf("%w: clip threshold must not be positive", ErrInvalidSettings)
	case s.RestingVelocitySquared < 0:
		return fmt.Errorf("%w: resting velocity threshold must be non-negative", ErrInvalidSettings)
	case s.Slop < 0:
		return fmt.Errorf("%w: slop must be non-negative", ErrInvalidSettings)
	case s.CorrectionFactor <= 0 || s.CorrectionFactor > 1:
		return fmt.Errorf("%w: correction factor must be in (0, 1]", ErrInvalidSettings)
	case s.Obstacles.MinX > s.Obstacles.MaxX || s.Obstacles.MinY > s.Obstacles.MaxY:
		return fmt.Errorf("%w: obstacle region is inverted", ErrInvalidSettings)
	case s.Obstacles.MinSize <= 0 || s.Obstacles.MinSize > s.Obstacles.MaxSize:
		return fmt.Errorf("%w: obstacle sizes must satisfy 0 < min <= max", ErrInvalidSettings)
	}
	return nil
}

// Solver returns the resolver configured by s.
func (s Settings) Solver() Solver {
	return Solver{
		StaticFriction:         s.StaticFriction,
		DynamicFriction:        s.DynamicFriction,
		RestingVelocitySquared: s.RestingVelocitySquared,
		Slop:                   s.Slop,
		CorrectionFactor:       s.CorrectionFactor,
	}
}

// SAT returns the polygon clipping policy configured by s.
func (s Settings) SAT() SATPolicy {
	return SATPolicy{
		BiasRelative:  s.SATBiasRelative,
		BiasAbsolute:  s.SATBiasAbsolute,
		ClipThreshold: s.ClipThreshold,
	}
}
