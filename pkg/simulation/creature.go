// pkg/simulation/creature.go
package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/opd-ai/go-walkers/pkg/physics"
)

// Creature is a body that drives its own shapes. Update runs once per step
// before the world integrates.
type Creature interface {
	Body() *physics.Body
	Update(dt float64)
}

// Rolling wheel layout.
const (
	WheelLegs        = 8
	GenesPerLeg      = 3
	WheelGenomeSize  = WheelLegs * GenesPerLeg
	legHalfLength    = 5.5
	legHalfThickness = 0.5
	legFrequency     = 0.9
	wheelStartHeight = 5
	wheelRestitution = 0.2
)

// DNA is a flat gene vector. Genes are nominally in [0, 1) but mutation may
// push them outside that range.
type DNA []float64

// RandomDNA returns size genes drawn uniformly from [0, 1).
func RandomDNA(rng *rand.Rand, size int) DNA {
	dna := make(DNA, size)
	for i := range dna {
		dna[i] = rng.Float64()
	}
	return dna
}

// Clone returns a copy that shares no storage with d.
func (d DNA) Clone() DNA {
	return append(DNA(nil), d...)
}

type leg struct {
	direction physics.Vector2D
	amplitude float64
	phase     float64
}

// RollingWheel is a star of eight box legs whose centers slide along their
// own axis with a sinusoid. Each leg reads three genes: amplitude, an unused
// frequency slot (the frequency is fixed) and phase.
type RollingWheel struct {
	body *physics.Body
	legs [WheelLegs]leg
	time float64
	dna  DNA
}

// NewRollingWheel builds a wheel from dna, which must hold WheelGenomeSize
// genes.
func NewRollingWheel(dna DNA) (*RollingWheel, error) {
	if len(dna) != WheelGenomeSize {
		return nil, fmt.Errorf("rolling wheel needs %d genes, got %d", WheelGenomeSize, len(dna))
	}

	w := &RollingWheel{dna: dna.Clone()}
	polygons := make([]physics.Polygon, WheelLegs)
	for i := range w.legs {
		angle := float64(i) * math.Pi / 4
		l := leg{
			direction: physics.FromAngle(angle, 1),
			amplitude: dna[GenesPerLeg*i],
			phase:     math.Pi * dna[GenesPerLeg*i+2],
		}
		w.legs[i] = l

		polygons[i] = physics.NewBox(legHalfLength, legHalfThickness, angle)
		polygons[i].Pos = l.direction.Scale(l.amplitude * math.Sin(l.phase))
	}

	w.body = physics.NewBody(physics.BodyDef{
		Position:    physics.Vector2D{Y: wheelStartHeight},
		Restitution: wheelRestitution,
		Density:     physics.DefaultDensity,
		Polygons:    polygons,
	})
	return w, nil
}

// Body returns the wheel's rigid body.
func (w *RollingWheel) Body() *physics.Body {
	return w.body
}

// DNA returns a copy of the genes the wheel was built from.
func (w *RollingWheel) DNA() DNA {
	return w.dna.Clone()
}

// Update sets each leg's sliding velocity for the coming step and
// recomputes the mass properties, since the legs moved during the last one.
func (w *RollingWheel) Update(dt float64) {
	w.time += dt
	for i, l := range w.legs {
		speed := l.amplitude * legFrequency * math.Cos(legFrequency*w.time+l.phase)
		w.body.Polygons[i].Velocity = l.direction.Scale(speed)
	}
	w.body.ComputeMass()
}
