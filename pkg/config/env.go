// pkg/config/env.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnvironmentOverrides.
const (
	EnvSeed                   = "WALKERS_SEED"
	EnvGravityY               = "WALKERS_GRAVITY_Y"
	EnvPolygonCircleContacts  = "WALKERS_POLYGON_CIRCLE_CONTACTS"
	EnvTimeStep               = "WALKERS_TIME_STEP"
	EnvSeconds                = "WALKERS_SECONDS"
	EnvRandomBodies           = "WALKERS_RANDOM_BODIES"
	EnvPopulationSize         = "WALKERS_POPULATION_SIZE"
	EnvGenerations            = "WALKERS_GENERATIONS"
	EnvWorkers                = "WALKERS_WORKERS"
	EnvPopulationSeed         = "WALKERS_POPULATION_SEED"
	EnvMaxConsecutiveDiverged = "WALKERS_MAX_CONSECUTIVE_DIVERGED"
	EnvBreakerTimeout         = "WALKERS_BREAKER_TIMEOUT"
	EnvHealthAddr             = "WALKERS_HEALTH_ADDR"
	EnvHealthMaxStall         = "WALKERS_HEALTH_MAX_STALL"
	EnvHealthMaxMemoryMB      = "WALKERS_HEALTH_MAX_MEMORY_MB"
)

// LoadEnvFile loads variables from the given .env files into the process
// environment without overriding variables that are already set. With no
// paths it loads ./.env and ignores its absence.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}

	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnvironmentOverrides applies WALKERS_* environment variables on top
// of config and validates the result. Unparseable values are ignored.
func ApplyEnvironmentOverrides(config *SimulationConfig) error {
	if config == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	p := &config.Physics
	p.Seed = getEnvAsUint64OrDefault(EnvSeed, p.Seed)
	p.GravityY = getEnvAsFloatOrDefault(EnvGravityY, p.GravityY)
	p.PolygonCircleContacts = getEnvAsBoolOrDefault(EnvPolygonCircleContacts, p.PolygonCircleContacts)

	ch := &config.Challenge
	ch.TimeStep = getEnvAsFloatOrDefault(EnvTimeStep, ch.TimeStep)
	ch.Seconds = getEnvAsFloatOrDefault(EnvSeconds, ch.Seconds)
	ch.RandomBodies = getEnvAsIntOrDefault(EnvRandomBodies, ch.RandomBodies)

	pop := &config.Population
	pop.Size = getEnvAsIntOrDefault(EnvPopulationSize, pop.Size)
	pop.Generations = getEnvAsIntOrDefault(EnvGenerations, pop.Generations)
	pop.Workers = getEnvAsIntOrDefault(EnvWorkers, pop.Workers)
	pop.Seed = getEnvAsUint64OrDefault(EnvPopulationSeed, pop.Seed)
	pop.MaxConsecutiveDiverged = uint32(getEnvAsUint64OrDefault(EnvMaxConsecutiveDiverged, uint64(pop.MaxConsecutiveDiverged)))
	pop.BreakerTimeoutSeconds = getEnvAsDurationOrDefault(EnvBreakerTimeout, pop.BreakerTimeout()).Seconds()

	h := &config.Health
	h.Address = getEnvOrDefault(EnvHealthAddr, h.Address)
	h.MaxStallSeconds = getEnvAsDurationOrDefault(EnvHealthMaxStall, h.MaxStall()).Seconds()
	h.MaxMemoryMB = int64(getEnvAsIntOrDefault(EnvHealthMaxMemoryMB, int(h.MaxMemoryMB)))

	return config.Validate()
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault returns environment variable as int or default if not set/invalid
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnvOrDefault(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsUint64OrDefault(key string, defaultValue uint64) uint64 {
	if value, err := strconv.ParseUint(getEnvOrDefault(key, ""), 10, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloatOrDefault returns environment variable as float64 or default if not set/invalid
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnvOrDefault(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBoolOrDefault returns environment variable as bool or default if not set/invalid
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnvOrDefault(key, "")); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDurationOrDefault returns environment variable as duration or default if not set/invalid
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnvOrDefault(key, "")); err == nil {
		return value
	}
	return defaultValue
}
