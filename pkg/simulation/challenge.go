// pkg/simulation/challenge.go
package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/opd-ai/go-walkers/pkg/config"
	"github.com/opd-ai/go-walkers/pkg/physics"
)

var (
	// ErrNotFinished is returned when fitness is requested before the
	// challenge has run all its steps.
	ErrNotFinished = errors.New("challenge not finished")
	// ErrDiverged is returned when a body's state becomes NaN or infinite.
	ErrDiverged = errors.New("simulation diverged")
)

// Challenge drops a creature onto flat ground and measures how far it
// travels along +x in a fixed number of steps. Every challenge owns its
// world and ground, so challenges may run on separate goroutines.
type Challenge struct {
	world   *physics.World
	ground  *physics.Body
	subject Creature

	cfg   config.ChallengeConfig
	steps int
}

// NewChallenge builds a world from settings and places subject in it.
func NewChallenge(settings physics.Settings, cfg config.ChallengeConfig, subject Creature, opts ...physics.Option) (*Challenge, error) {
	world, err := physics.NewWorld(settings, opts...)
	if err != nil {
		return nil, err
	}

	c := &Challenge{world: world, cfg: cfg}
	c.Reset(subject)
	return c, nil
}

// NewGround builds the static terrain box described by cfg.
func NewGround(cfg config.GroundConfig) *physics.Body {
	return physics.NewBody(physics.BodyDef{
		Restitution: cfg.Restitution,
		Boxes: []physics.AABB{{
			Min: physics.Vector2D{X: cfg.MinX, Y: cfg.MinY},
			Max: physics.Vector2D{X: cfg.MaxX, Y: cfg.MaxY},
		}},
	})
}

// Reset empties the world and starts over with subject on fresh ground.
func (c *Challenge) Reset(subject Creature) {
	c.world.Reset()
	c.steps = 0
	c.subject = subject
	c.ground = NewGround(c.cfg.Ground)

	c.world.Add(c.ground)
	c.world.Add(subject.Body())
	if c.cfg.RandomBodies > 0 {
		c.world.AddRandomBodies(c.cfg.RandomBodies)
	}
}

// Step advances the subject and the world by one configured time step. It
// reports whether the challenge is done; further calls do nothing.
func (c *Challenge) Step() bool {
	if c.Done() {
		return true
	}
	dt := c.cfg.TimeStep
	c.subject.Update(dt)
	c.world.Step(dt)
	c.steps++
	return c.Done()
}

// Run steps the challenge to completion and returns its fitness. ctx is
// checked between steps.
func (c *Challenge) Run(ctx context.Context) (float64, error) {
	for !c.Step() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if !c.subject.Body().IsFinite() {
			return 0, fmt.Errorf("%w after %d steps", ErrDiverged, c.steps)
		}
	}
	return c.Fitness()
}

// Done reports whether every step has run.
func (c *Challenge) Done() bool {
	return c.steps >= c.cfg.Steps()
}

// Fitness is the subject's final x position.
func (c *Challenge) Fitness() (float64, error) {
	if !c.Done() {
		return 0, ErrNotFinished
	}
	body := c.subject.Body()
	if !body.IsFinite() {
		return 0, ErrDiverged
	}
	return body.Position.X, nil
}

// StepsTaken returns how many steps have run since the last reset.
func (c *Challenge) StepsTaken() int {
	return c.steps
}

// World returns the challenge's world.
func (c *Challenge) World() *physics.World {
	return c.world
}

// Ground returns the terrain body of the current run.
func (c *Challenge) Ground() *physics.Body {
	return c.ground
}

// Subject returns the creature being evaluated.
func (c *Challenge) Subject() Creature {
	return c.subject
}
