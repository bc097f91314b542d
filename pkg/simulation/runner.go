// pkg/simulation/runner.go
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-walkers/pkg/config"
	"github.com/opd-ai/go-walkers/pkg/event"
	"github.com/opd-ai/go-walkers/pkg/logging"
	"github.com/opd-ai/go-walkers/pkg/physics"
)

// ErrSkipped is returned for instances the runner refused to start because
// too many instances before them diverged.
var ErrSkipped = errors.New("instance skipped")

// BreakerName names the runner's circuit breaker in logs and events.
const BreakerName = "walkers-population"

// Result is the outcome of one challenge instance.
type Result struct {
	Index   int
	RunID   string
	Fitness float64
	Steps   int
	Err     error
}

// Best returns the successful result with the highest fitness.
func Best(results []Result) (Result, bool) {
	best, found := Result{Fitness: math.Inf(-1)}, false
	for _, r := range results {
		if r.Err == nil && r.Fitness > best.Fitness {
			best, found = r, true
		}
	}
	return best, found
}

// Runner evaluates populations of creatures on a pool of workers. Each
// worker owns one Challenge and resets it between creatures, so no physics
// state is shared between goroutines. Event handlers are called from the
// worker goroutines.
type Runner struct {
	settings physics.Settings
	cfg      config.SimulationConfig

	breaker *gobreaker.CircuitBreaker
	bus     *event.Bus
	logger  *logging.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithEventBus publishes lifecycle events to bus.
func WithEventBus(bus *event.Bus) RunnerOption {
	return func(r *Runner) {
		r.bus = bus
	}
}

// WithLogger logs runs to logger.
func WithLogger(logger *logging.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner from a validated copy of cfg.
func NewRunner(cfg *config.SimulationConfig, opts ...RunnerOption) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		settings: cfg.PhysicsSettings(),
		cfg:      *cfg,
		bus:      event.NewEventBus(),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}

	maxDiverged := cfg.Population.MaxConsecutiveDiverged
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: 1,
		Timeout:     cfg.Population.BreakerTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxDiverged
		},
		// Only divergence counts against the breaker.
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, ErrDiverged)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			r.bus.Publish(event.NewBreakerEvent(r, name, from.String(), to.String()))
		},
	})
	return r, nil
}

// Bus returns the bus lifecycle events are published on.
func (r *Runner) Bus() *event.Bus {
	return r.bus
}

// BreakerState reports the state of the divergence breaker.
func (r *Runner) BreakerState() gobreaker.State {
	return r.breaker.State()
}

type job struct {
	index   int
	subject Creature
}

// Evaluate runs one challenge per creature and returns the results in
// population order. When ctx is cancelled the unfinished instances carry
// the context error and Evaluate returns it as well.
func (r *Runner) Evaluate(ctx context.Context, generation int, population []Creature) ([]Result, error) {
	results := make([]Result, len(population))
	jobs := make(chan job)

	workers := min(r.cfg.Population.Workers, len(population))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var challenge *Challenge
			for j := range jobs {
				results[j.index] = r.runInstance(ctx, generation, j, &challenge)
			}
		}()
	}

	for i, subject := range population {
		jobs <- job{index: i, subject: subject}
	}
	close(jobs)
	wg.Wait()

	r.publishGeneration(ctx, generation, results)
	return results, ctx.Err()
}

// runInstance evaluates one creature, building the worker's challenge on
// first use.
func (r *Runner) runInstance(ctx context.Context, generation int, j job, challenge **Challenge) Result {
	runID := logging.GenerateCorrelationID()
	ctx = logging.WithCorrelationID(ctx, runID)
	result := Result{Index: j.index, RunID: runID}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	var steps int
	fitness, err := r.breaker.Execute(func() (interface{}, error) {
		if *challenge == nil {
			c, err := NewChallenge(r.settings, r.cfg.Challenge, j.subject, physics.WithLogger(r.logger))
			if err != nil {
				return nil, err
			}
			*challenge = c
		} else {
			(*challenge).Reset(j.subject)
		}

		r.bus.Publish(event.NewInstanceEvent(event.InstanceStarted, r, runID, generation, j.index))
		fitness, err := (*challenge).Run(ctx)
		steps = (*challenge).StepsTaken()
		return fitness, err
	})
	result.Steps = steps

	ev := event.NewInstanceEvent(event.InstanceFinished, r, runID, generation, j.index)
	ev.Steps = result.Steps

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result.Err = fmt.Errorf("%w: %w", ErrSkipped, err)
		ev.EventType = event.InstanceSkipped
		r.logger.Debug(ctx, "instance skipped", "generation", generation, "index", j.index)
	case errors.Is(err, ErrDiverged):
		result.Err = err
		ev.EventType = event.InstanceDiverged
		r.logger.Warn(ctx, "instance diverged",
			"generation", generation,
			"index", j.index,
			"steps", result.Steps,
		)
	case err != nil:
		// Cancelled mid-run; nothing to report.
		result.Err = err
		return result
	default:
		result.Fitness = fitness.(float64)
		ev.Fitness = result.Fitness
		r.logger.Debug(ctx, "instance finished",
			"generation", generation,
			"index", j.index,
			"fitness", result.Fitness,
		)
	}
	ev.Err = result.Err
	r.bus.Publish(ev)
	return result
}

func (r *Runner) publishGeneration(ctx context.Context, generation int, results []Result) {
	ev := event.NewGenerationEvent(r, generation)
	ev.BestIndex = -1
	ev.BestFitness = math.NaN()
	for _, res := range results {
		if res.Err != nil {
			ev.Failed++
			continue
		}
		ev.Evaluated++
	}
	if best, ok := Best(results); ok {
		ev.BestIndex = best.Index
		ev.BestFitness = best.Fitness
	}

	r.logger.Info(ctx, "generation evaluated",
		"generation", generation,
		"evaluated", ev.Evaluated,
		"failed", ev.Failed,
		"best_index", ev.BestIndex,
		"best_fitness", ev.BestFitness,
	)
	r.bus.Publish(ev)
}

// Champion is the best creature found by Evolve.
type Champion struct {
	Generation int
	Result     Result
	DNA        DNA
}

// Evolve breeds rolling wheels for the configured number of generations and
// returns the fittest one seen. It stops early when ctx is cancelled.
func (r *Runner) Evolve(ctx context.Context) (Champion, error) {
	breeder := NewBreeder(r.cfg.Population.Seed, WheelGenomeSize)
	genomes := breeder.Initial(r.cfg.Population.Size)
	champion := Champion{Generation: -1, Result: Result{Fitness: math.Inf(-1)}}

	for gen := 0; gen < r.cfg.Population.Generations; gen++ {
		population := make([]Creature, len(genomes))
		for i, dna := range genomes {
			wheel, err := NewRollingWheel(dna)
			if err != nil {
				return champion, err
			}
			population[i] = wheel
		}

		results, err := r.Evaluate(ctx, gen, population)
		if best, ok := Best(results); ok && best.Fitness > champion.Result.Fitness {
			champion = Champion{Generation: gen, Result: best, DNA: genomes[best.Index].Clone()}
		}
		if err != nil {
			return champion, err
		}

		genomes = breeder.Next(genomes, results)
	}

	if champion.Generation < 0 {
		return champion, fmt.Errorf("no instance finished: %w", ErrDiverged)
	}
	return champion, nil
}
