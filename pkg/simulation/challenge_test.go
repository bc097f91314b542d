package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-walkers/pkg/config"
	"github.com/opd-ai/go-walkers/pkg/physics"
)

func shortChallenge(seconds float64) config.ChallengeConfig {
	cfg := config.DefaultConfig().Challenge
	cfg.Seconds = seconds
	return cfg
}

func newTestChallenge(t *testing.T, cfg config.ChallengeConfig, subject Creature) *Challenge {
	t.Helper()
	c, err := NewChallenge(physics.DefaultSettings(), cfg, subject)
	require.NoError(t, err)
	return c
}

func TestNewChallenge_RejectsInvalidSettings(t *testing.T) {
	settings := physics.DefaultSettings()
	settings.Slop = -1

	_, err := NewChallenge(settings, shortChallenge(1), newBall(0, 0))
	assert.ErrorIs(t, err, physics.ErrInvalidSettings)
}

func TestChallenge_StepCountsDown(t *testing.T) {
	ball := newBall(0, 0)
	c := newTestChallenge(t, shortChallenge(1), ball)

	for i := 1; i < 60; i++ {
		require.False(t, c.Step(), "step %d", i)
	}
	assert.True(t, c.Step())
	assert.True(t, c.Step(), "done challenges stay done")

	assert.Equal(t, 60, c.StepsTaken())
	assert.Equal(t, 60, ball.updates, "creature updated once per step")
	assert.InDelta(t, 1.0/60.0, ball.dts[0], 1e-15)
}

func TestChallenge_FitnessBeforeDone(t *testing.T) {
	c := newTestChallenge(t, shortChallenge(1), newBall(0, 0))
	c.Step()

	_, err := c.Fitness()
	assert.ErrorIs(t, err, ErrNotFinished)
}

func TestChallenge_FitnessIsFinalX(t *testing.T) {
	c := newTestChallenge(t, shortChallenge(0.5), newBall(2, 4))

	fitness, err := c.Run(context.Background())
	require.NoError(t, err)
	// Airborne the whole time: x = 2 + 4 * 0.5.
	assert.InDelta(t, 4, fitness, 1e-9)
}

func TestChallenge_BallLandsOnGround(t *testing.T) {
	ball := newBall(0, 0)
	c := newTestChallenge(t, shortChallenge(5), ball)

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	// Ground top is y = -10, the ball radius 1.
	assert.InDelta(t, -9, ball.Body().Position.Y, 0.05)
	assert.Equal(t, physics.Vector2D{}, c.Ground().Position, "ground is static")
}

func TestChallenge_RunDiverges(t *testing.T) {
	c := newTestChallenge(t, shortChallenge(1), newDivergingBall())

	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrDiverged)
	assert.Less(t, c.StepsTaken(), 60)
}

func TestChallenge_RunHonorsContext(t *testing.T) {
	c := newTestChallenge(t, shortChallenge(1), newBall(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, c.StepsTaken())
}

func TestChallenge_Reset(t *testing.T) {
	cfg := shortChallenge(0.25)
	cfg.RandomBodies = 3
	c := newTestChallenge(t, cfg, newBall(0, 0))
	assert.Len(t, c.World().Objects(), 5)

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	oldGround := c.Ground()

	next := newBall(1, 0)
	c.Reset(next)
	assert.Equal(t, 0, c.StepsTaken())
	assert.Same(t, next, c.Subject())
	assert.NotSame(t, oldGround, c.Ground())

	objects := c.World().Objects()
	require.Len(t, objects, 5)
	assert.Same(t, c.Ground(), objects[0])
	assert.Same(t, next.Body(), objects[1])
}

func TestChallenge_RollingWheelStaysAboveGround(t *testing.T) {
	wheel, err := NewRollingWheel(wheelDNA(0.5, 0.25))
	require.NoError(t, err)
	c := newTestChallenge(t, shortChallenge(3), wheel)

	fitness, err := c.Run(context.Background())
	require.NoError(t, err)

	body := wheel.Body()
	assert.True(t, body.IsFinite())
	assert.Greater(t, body.Position.Y, -10.0, "hub above the ground surface")
	assert.Less(t, fitness, 100.0)
	assert.Greater(t, fitness, -100.0)
}

func TestNewGround(t *testing.T) {
	ground := NewGround(config.GroundConfig{MinX: -5, MinY: -2, MaxX: 5, MaxY: 0, Restitution: 0.3})

	assert.True(t, ground.IsStatic())
	assert.Equal(t, 0.3, ground.Restitution)
	require.Len(t, ground.Boxes, 1)
	assert.Equal(t, physics.AABB{
		Min: physics.Vector2D{X: -5, Y: -2},
		Max: physics.Vector2D{X: 5, Y: 0},
	}, ground.BoxBounds(0))
}
