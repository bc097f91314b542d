// cmd/walkerview/main.go
package main

import (
	"context"
	"flag"
	"math/rand/v2"
	"os"

	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-walkers/pkg/config"
	"github.com/opd-ai/go-walkers/pkg/logging"
	engorender "github.com/opd-ai/go-walkers/pkg/render/engo"
	"github.com/opd-ai/go-walkers/pkg/simulation"
)

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	configPath := flag.String("config", "config.json", "Path to configuration file")
	dnaPath := flag.String("dna", "", "Champion file written by walkersim -out")
	genes := flag.String("genes", "", "Comma separated genes (overrides -dna)")
	fullscreen := flag.Bool("fullscreen", false, "Run in fullscreen mode")
	width := flag.Int("width", 1024, "Window width")
	height := flag.Int("height", 768, "Window height")
	flag.Parse()

	var simConfig *config.SimulationConfig
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", *configPath,
		)
		simConfig = config.DefaultConfig()
	} else {
		simConfig, err = config.LoadConfig(*configPath)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
	}

	if err := config.LoadEnvFile(); err != nil {
		logger.Error(ctx, "Failed to load env file", err)
		os.Exit(1)
	}
	if err := config.ApplyEnvironmentOverrides(simConfig); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		os.Exit(1)
	}

	dna, err := pickDNA(*genes, *dnaPath, simConfig.Population.Seed)
	if err != nil {
		logger.Error(ctx, "Failed to read DNA", err)
		os.Exit(1)
	}
	logger.Info(ctx, "Showing walker", "dna", dna)

	scene := engorender.NewWalkerScene(simConfig, dna, float32(*width), float32(*height), logger)

	opts := engo.RunOptions{
		Title:      "Go Walkers",
		Width:      *width,
		Height:     *height,
		Fullscreen: *fullscreen,
		VSync:      true,
	}
	engo.Run(opts, scene)
}

// pickDNA prefers explicit genes, then a champion file, then a random wheel.
func pickDNA(genes, path string, seed uint64) (simulation.DNA, error) {
	switch {
	case genes != "":
		return simulation.ParseDNA(genes)
	case path != "":
		return simulation.LoadDNA(path)
	default:
		rng := rand.New(rand.NewPCG(seed, seed))
		return simulation.RandomDNA(rng, simulation.WheelGenomeSize), nil
	}
}
