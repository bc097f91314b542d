// pkg/simulation/system.go
package simulation

import (
	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/go-walkers/pkg/physics"
)

// maxStepsPerUpdate bounds how far a slow frame can make the simulation
// catch up; leftover time is dropped.
const maxStepsPerUpdate = 8

type physicsEntity struct {
	basic    *ecs.BasicEntity
	handle   physics.BodyHandle
	creature Creature
}

// PhysicsSystem drives a physics.World from an ecs.World. Frame times are
// accumulated and the physics always advances in whole fixed steps.
type PhysicsSystem struct {
	world       *physics.World
	step        float64
	accumulator float64
	steps       int
	paused      bool

	entities []physicsEntity
}

// NewPhysicsSystem creates a system stepping world by step seconds.
func NewPhysicsSystem(world *physics.World, step float64) *PhysicsSystem {
	return &PhysicsSystem{world: world, step: step}
}

// Add puts body in the world under basic.
func (ps *PhysicsSystem) Add(basic *ecs.BasicEntity, body *physics.Body) {
	ps.entities = append(ps.entities, physicsEntity{
		basic:  basic,
		handle: ps.world.Add(body),
	})
}

// AddCreature adds the creature's body and updates the creature before
// every fixed step.
func (ps *PhysicsSystem) AddCreature(basic *ecs.BasicEntity, creature Creature) {
	ps.entities = append(ps.entities, physicsEntity{
		basic:    basic,
		handle:   ps.world.Add(creature.Body()),
		creature: creature,
	})
}

// Remove satisfies the ecs.System interface
func (ps *PhysicsSystem) Remove(basic ecs.BasicEntity) {
	for i, e := range ps.entities {
		if e.basic.ID() == basic.ID() {
			ps.world.Remove(e.handle)
			ps.entities = append(ps.entities[:i], ps.entities[i+1:]...)
			return
		}
	}
}

// Priority orders the system after input handling and before anything
// that reads body poses.
func (ps *PhysicsSystem) Priority() int { return 10 }

// Update runs as many fixed steps as the accumulated frame time allows.
// Paused systems drop frame time.
func (ps *PhysicsSystem) Update(dt float32) {
	if ps.paused {
		return
	}
	ps.accumulator += float64(dt)

	for n := 0; ps.accumulator >= ps.step; n++ {
		if n == maxStepsPerUpdate {
			ps.accumulator = 0
			return
		}
		ps.StepOnce()
		ps.accumulator -= ps.step
	}
}

// StepOnce advances every creature and the world by one fixed step.
func (ps *PhysicsSystem) StepOnce() {
	for _, e := range ps.entities {
		if e.creature != nil {
			e.creature.Update(ps.step)
		}
	}
	ps.world.Step(ps.step)
	ps.steps++
}

// SetPaused stops or resumes Update.
func (ps *PhysicsSystem) SetPaused(paused bool) {
	ps.paused = paused
}

// Paused reports whether Update is suspended.
func (ps *PhysicsSystem) Paused() bool {
	return ps.paused
}

// Alpha is the fraction of a step left in the accumulator, for
// interpolating between the last two physics states.
func (ps *PhysicsSystem) Alpha() float64 {
	return ps.accumulator / ps.step
}

// Steps returns the number of fixed steps taken so far.
func (ps *PhysicsSystem) Steps() int {
	return ps.steps
}

// World returns the stepped physics world.
func (ps *PhysicsSystem) World() *physics.World {
	return ps.world
}
