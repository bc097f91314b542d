// cmd/walkersim/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-walkers/pkg/config"
	"github.com/opd-ai/go-walkers/pkg/event"
	"github.com/opd-ai/go-walkers/pkg/health"
	"github.com/opd-ai/go-walkers/pkg/logging"
	"github.com/opd-ai/go-walkers/pkg/simulation"
)

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	configPath := flag.String("config", "config.json", "Path to configuration file")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	envFile := flag.String("env", "", "Env file with WALKERS_* overrides (default: .env if present)")
	outPath := flag.String("out", "", "Write the champion's DNA to this file")
	flag.Parse()

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	if err := loadEnv(*envFile); err != nil {
		logger.Error(ctx, "Failed to load env file", err, "env_file", *envFile)
		os.Exit(1)
	}

	simConfig, err := loadConfig(ctx, logger, *configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err,
			"config_path", *configPath,
		)
		os.Exit(1)
	}

	if err := config.ApplyEnvironmentOverrides(simConfig); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		os.Exit(1)
	}

	bus := event.NewEventBus()
	runner, err := simulation.NewRunner(simConfig,
		simulation.WithEventBus(bus),
		simulation.WithLogger(logger),
	)
	if err != nil {
		logger.Error(ctx, "Failed to create runner", err)
		os.Exit(1)
	}

	progress := health.NewProgressTracker()
	bus.Subscribe(event.InstanceFinished, func(event.Event) { progress.Touch() })
	bus.Subscribe(event.GenerationFinished, func(e event.Event) {
		if g, ok := e.(*event.GenerationEvent); ok {
			progress.Touch()
			logger.Info(ctx, "Generation finished",
				"generation", g.Generation,
				"best_fitness", g.BestFitness,
				"failed", g.Failed,
			)
		}
	})

	healthServer := startHealthServer(ctx, logger, simConfig.Health, runner, progress)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting evolution",
		"population", simConfig.Population.Size,
		"generations", simConfig.Population.Generations,
		"workers", simConfig.Population.Workers,
		"seconds", simConfig.Challenge.Seconds,
	)
	start := time.Now()
	champion, err := runner.Evolve(runCtx)

	if healthServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "Health check server shutdown failed", err)
		}
		cancel()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "Evolution failed", err)
		os.Exit(1)
	}
	if champion.DNA == nil {
		logger.Warn(ctx, "Interrupted before any creature finished")
		os.Exit(1)
	}

	logger.Info(ctx, "Champion found",
		"generation", champion.Generation,
		"fitness", champion.Result.Fitness,
		"run_id", champion.Result.RunID,
		"dna", champion.DNA,
		"elapsed", time.Since(start),
		"interrupted", err != nil,
	)

	if *outPath != "" {
		if err := simulation.SaveChampion(champion, *outPath); err != nil {
			logger.Error(ctx, "Failed to save champion", err, "path", *outPath)
			os.Exit(1)
		}
		logger.Info(ctx, "Saved champion", "path", *outPath)
	}
}

func loadEnv(path string) error {
	if path == "" {
		return config.LoadEnvFile()
	}
	return config.LoadEnvFile(path)
}

func loadConfig(ctx context.Context, logger *logging.Logger, path string) (*config.SimulationConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", path,
		)
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}

// startHealthServer serves probes in the background. It returns nil when
// no address is configured.
func startHealthServer(ctx context.Context, logger *logging.Logger, cfg config.HealthConfig, runner *simulation.Runner, progress *health.ProgressTracker) *http.Server {
	if cfg.Address == "" {
		return nil
	}

	checker := health.NewHealthChecker()
	checker.AddCheck(health.NewBreakerHealthCheck(func() bool {
		return runner.BreakerState() == gobreaker.StateOpen
	}))
	checker.AddCheck(health.NewProgressHealthCheck(progress, cfg.MaxStall()))
	checker.AddCheck(health.NewMemoryHealthCheck(cfg.MaxMemoryMB, health.HeapMB))

	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      checker.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info(ctx, "Starting health check server", "address", cfg.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Health check server failed", err)
		}
	}()
	return server
}
