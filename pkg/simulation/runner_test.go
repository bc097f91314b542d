package simulation

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-walkers/pkg/config"
	"github.com/opd-ai/go-walkers/pkg/event"
	"github.com/opd-ai/go-walkers/pkg/logging"
)

func testRunnerConfig() *config.SimulationConfig {
	cfg := config.DefaultConfig()
	cfg.Challenge.Seconds = 0.5
	cfg.Population.Size = 6
	cfg.Population.Generations = 2
	cfg.Population.Workers = 3
	return cfg
}

// eventRecorder collects events published from worker goroutines.
type eventRecorder struct {
	mu     sync.Mutex
	events map[event.Type][]event.Event
}

func recordEvents(bus *event.Bus) *eventRecorder {
	rec := &eventRecorder{events: make(map[event.Type][]event.Event)}
	for _, eventType := range []event.Type{
		event.InstanceStarted, event.InstanceFinished, event.InstanceDiverged,
		event.InstanceSkipped, event.GenerationFinished, event.BreakerStateChanged,
	} {
		bus.Subscribe(eventType, func(e event.Event) {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			rec.events[e.GetType()] = append(rec.events[e.GetType()], e)
		})
	}
	return rec
}

func (r *eventRecorder) get(eventType event.Type) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events[eventType]...)
}

func balls(n int) []Creature {
	population := make([]Creature, n)
	for i := range population {
		population[i] = newBall(0, float64(i))
	}
	return population
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg := testRunnerConfig()
	cfg.Population.Workers = 0
	_, err = NewRunner(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunner_Evaluate(t *testing.T) {
	bus := event.NewEventBus()
	rec := recordEvents(bus)
	runner, err := NewRunner(testRunnerConfig(), WithEventBus(bus))
	require.NoError(t, err)

	results, err := runner.Evaluate(context.Background(), 0, balls(6))
	require.NoError(t, err)
	require.Len(t, results, 6)

	runIDs := make(map[string]bool)
	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, i, res.Index)
		assert.Equal(t, 30, res.Steps)
		assert.InDelta(t, float64(i)*0.5, res.Fitness, 1e-9)
		assert.NotEmpty(t, res.RunID)
		runIDs[res.RunID] = true
	}
	assert.Len(t, runIDs, 6, "every instance gets its own run ID")

	assert.Len(t, rec.get(event.InstanceStarted), 6)
	assert.Len(t, rec.get(event.InstanceFinished), 6)
	assert.Empty(t, rec.get(event.InstanceDiverged))

	generations := rec.get(event.GenerationFinished)
	require.Len(t, generations, 1)
	summary := generations[0].(*event.GenerationEvent)
	assert.Equal(t, 6, summary.Evaluated)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 5, summary.BestIndex)
	assert.InDelta(t, 2.5, summary.BestFitness, 1e-9)
}

func TestRunner_EvaluateMatchesSequentialRun(t *testing.T) {
	cfg := testRunnerConfig()
	runner, err := NewRunner(cfg)
	require.NoError(t, err)

	wheels := make([]Creature, 4)
	for i := range wheels {
		w, err := NewRollingWheel(wheelDNA(0.2*float64(i), 0.3))
		require.NoError(t, err)
		wheels[i] = w
	}
	results, err := runner.Evaluate(context.Background(), 0, wheels)
	require.NoError(t, err)

	for i, res := range results {
		w, err := NewRollingWheel(wheelDNA(0.2*float64(i), 0.3))
		require.NoError(t, err)
		c := newTestChallenge(t, cfg.Challenge, w)
		fitness, err := c.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, fitness, res.Fitness, "instance %d is independent of scheduling", i)
	}
}

func TestRunner_BreakerSkipsAfterDivergence(t *testing.T) {
	cfg := testRunnerConfig()
	cfg.Population.Workers = 1
	cfg.Population.MaxConsecutiveDiverged = 2

	bus := event.NewEventBus()
	rec := recordEvents(bus)
	runner, err := NewRunner(cfg, WithEventBus(bus))
	require.NoError(t, err)

	population := []Creature{newDivergingBall(), newDivergingBall(), newBall(0, 1), newBall(0, 2)}
	results, err := runner.Evaluate(context.Background(), 3, population)
	require.NoError(t, err)

	assert.ErrorIs(t, results[0].Err, ErrDiverged)
	assert.ErrorIs(t, results[1].Err, ErrDiverged)
	for _, res := range results[2:] {
		assert.ErrorIs(t, res.Err, ErrSkipped)
		assert.ErrorIs(t, res.Err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, gobreaker.StateOpen, runner.BreakerState())

	assert.Len(t, rec.get(event.InstanceDiverged), 2)
	assert.Len(t, rec.get(event.InstanceSkipped), 2)
	assert.Len(t, rec.get(event.InstanceStarted), 2, "skipped instances never start")

	changes := rec.get(event.BreakerStateChanged)
	require.Len(t, changes, 1)
	change := changes[0].(*event.BreakerEvent)
	assert.Equal(t, BreakerName, change.Name)
	assert.Equal(t, "closed", change.From)
	assert.Equal(t, "open", change.To)

	summary := rec.get(event.GenerationFinished)[0].(*event.GenerationEvent)
	assert.Equal(t, 3, summary.Generation)
	assert.Equal(t, 4, summary.Failed)
	assert.Equal(t, -1, summary.BestIndex)
	assert.True(t, math.IsNaN(summary.BestFitness))
}

func TestRunner_CancellationDoesNotTripBreaker(t *testing.T) {
	cfg := testRunnerConfig()
	cfg.Population.MaxConsecutiveDiverged = 1
	runner, err := NewRunner(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := runner.Evaluate(ctx, 0, balls(4))
	assert.ErrorIs(t, err, context.Canceled)
	for _, res := range results {
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, runner.BreakerState())
}

func TestRunner_EvaluateEmpty(t *testing.T) {
	runner, err := NewRunner(testRunnerConfig())
	require.NoError(t, err)

	results, err := runner.Evaluate(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunner_LogsWithRunIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(&buf, slog.LevelDebug)
	runner, err := NewRunner(testRunnerConfig(), WithLogger(logger))
	require.NoError(t, err)

	_, err = runner.Evaluate(context.Background(), 0, balls(2))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "instance finished")
	assert.Contains(t, out, "correlation_id")
	assert.Contains(t, out, "generation evaluated")
}

func TestRunner_Evolve(t *testing.T) {
	cfg := testRunnerConfig()
	cfg.Challenge.Seconds = 0.25
	cfg.Population.Size = 4
	cfg.Population.Workers = 2

	bus := event.NewEventBus()
	rec := recordEvents(bus)
	runner, err := NewRunner(cfg, WithEventBus(bus))
	require.NoError(t, err)

	champion, err := runner.Evolve(context.Background())
	require.NoError(t, err)

	assert.Contains(t, []int{0, 1}, champion.Generation)
	assert.Len(t, champion.DNA, WheelGenomeSize)
	assert.NoError(t, champion.Result.Err)
	assert.Len(t, rec.get(event.GenerationFinished), 2)
	assert.Len(t, rec.get(event.InstanceFinished), 8)
}

func TestBest(t *testing.T) {
	tests := []struct {
		name      string
		results   []Result
		wantIndex int
		wantFound bool
	}{
		{"empty", nil, 0, false},
		{"all_failed", []Result{{Index: 0, Fitness: 9, Err: ErrDiverged}}, 0, false},
		{"highest_wins", []Result{{Index: 0, Fitness: 1}, {Index: 1, Fitness: 3}, {Index: 2, Fitness: 2}}, 1, true},
		{"failures_ignored", []Result{{Index: 0, Fitness: 9, Err: ErrSkipped}, {Index: 1, Fitness: -4}}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, found := Best(tt.results)
			assert.Equal(t, tt.wantFound, found)
			if found {
				assert.Equal(t, tt.wantIndex, best.Index)
			}
		})
	}
}
