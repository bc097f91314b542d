// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/opd-ai/go-walkers/pkg/physics"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// SimulationConfig contains configuration for a walker evaluation run
type SimulationConfig struct {
	Physics    PhysicsConfig    `json:"physics"`
	Challenge  ChallengeConfig  `json:"challenge"`
	Population PopulationConfig `json:"population"`
	Health     HealthConfig     `json:"health"`
}

// PhysicsConfig contains the physics tunables, see physics.Settings
type PhysicsConfig struct {
	GravityX               float64        `json:"gravityX"`
	GravityY               float64        `json:"gravityY"`
	StaticFriction         float64        `json:"staticFriction"`
	DynamicFriction        float64        `json:"dynamicFriction"`
	SATBiasRelative        float64        `json:"satBiasRelative"`
	SATBiasAbsolute        float64        `json:"satBiasAbsolute"`
	ClipThreshold          float64        `json:"clipThreshold"`
	RestingVelocitySquared float64        `json:"restingVelocitySquared"`
	Slop                   float64        `json:"slop"`
	CorrectionFactor       float64        `json:"correctionFactor"`
	PolygonCircleContacts  bool           `json:"polygonCircleContacts"`
	Seed                   uint64         `json:"seed"`
	Obstacles              ObstacleConfig `json:"obstacles"`
}

// ObstacleConfig describes where random obstacles are scattered
type ObstacleConfig struct {
	MinX    float64 `json:"minX"`
	MaxX    float64 `json:"maxX"`
	MinY    float64 `json:"minY"`
	MaxY    float64 `json:"maxY"`
	MinSize float64 `json:"minSize"`
	MaxSize float64 `json:"maxSize"`
}

// ChallengeConfig contains configuration for one walking challenge
type ChallengeConfig struct {
	TimeStep     float64      `json:"timeStep"`
	Seconds      float64      `json:"seconds"`
	RandomBodies int          `json:"randomBodies"`
	Ground       GroundConfig `json:"ground"`
}

// GroundConfig is the static terrain box every challenge instance builds
type GroundConfig struct {
	MinX        float64 `json:"minX"`
	MinY        float64 `json:"minY"`
	MaxX        float64 `json:"maxX"`
	MaxY        float64 `json:"maxY"`
	Restitution float64 `json:"restitution"`
}

// PopulationConfig contains configuration for population evaluation
type PopulationConfig struct {
	Size        int    `json:"size"`
	Generations int    `json:"generations"`
	Workers     int    `json:"workers"`
	Seed        uint64 `json:"seed"`

	// The runner stops evaluating after this many instances in a row
	// diverge, and retries after BreakerTimeoutSeconds.
	MaxConsecutiveDiverged uint32  `json:"maxConsecutiveDiverged"`
	BreakerTimeoutSeconds  float64 `json:"breakerTimeoutSeconds"`
}

// HealthConfig controls the optional HTTP health endpoint of long runs
type HealthConfig struct {
	// Address to serve /health and /ready on; empty disables the endpoint.
	Address         string  `json:"address"`
	MaxStallSeconds float64 `json:"maxStallSeconds"`
	MaxMemoryMB     int64   `json:"maxMemoryMB"`
}

// LoadConfig loads a configuration from a file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *SimulationConfig, path string) error {
	if config == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a default simulation configuration
func DefaultConfig() *SimulationConfig {
	settings := physics.DefaultSettings()
	return &SimulationConfig{
		Physics: PhysicsConfig{
			GravityX:               settings.Gravity.X,
			GravityY:               settings.Gravity.Y,
			StaticFriction:         settings.StaticFriction,
			DynamicFriction:        settings.DynamicFriction,
			SATBiasRelative:        settings.SATBiasRelative,
			SATBiasAbsolute:        settings.SATBiasAbsolute,
			ClipThreshold:          settings.ClipThreshold,
			RestingVelocitySquared: settings.RestingVelocitySquared,
			Slop:                   settings.Slop,
			CorrectionFactor:       settings.CorrectionFactor,
			PolygonCircleContacts:  settings.PolygonCircleContacts,
			Seed:                   settings.Seed,
			Obstacles: ObstacleConfig{
				MinX:    settings.Obstacles.MinX,
				MaxX:    settings.Obstacles.MaxX,
				MinY:    settings.Obstacles.MinY,
				MaxY:    settings.Obstacles.MaxY,
				MinSize: settings.Obstacles.MinSize,
				MaxSize: settings.Obstacles.MaxSize,
			},
		},
		Challenge: ChallengeConfig{
			TimeStep:     1.0 / 60.0,
			Seconds:      15,
			RandomBodies: 0,
			Ground: GroundConfig{
				MinX:        -100,
				MinY:        -12,
				MaxX:        100,
				MaxY:        -10,
				Restitution: 0.9,
			},
		},
		Population: PopulationConfig{
			Size:                   50,
			Generations:            5,
			Workers:                runtime.NumCPU(),
			Seed:                   1,
			MaxConsecutiveDiverged: 5,
			BreakerTimeoutSeconds:  30,
		},
		Health: HealthConfig{
			Address:         "",
			MaxStallSeconds: 300,
			MaxMemoryMB:     1024,
		},
	}
}

// Validate checks the configuration for values the simulation cannot run
// with. Physics tunables are checked by physics.Settings.Validate.
func (c *SimulationConfig) Validate() error {
	if err := c.PhysicsSettings().Validate(); err != nil {
		return fmt.Errorf("%w: physics: %w", ErrInvalidConfig, err)
	}

	ch := c.Challenge
	switch {
	case !(ch.TimeStep > 0) || math.IsInf(ch.TimeStep, 0):
		return fmt.Errorf("%w: challenge.timeStep must be positive, got %v", ErrInvalidConfig, ch.TimeStep)
	case !(ch.Seconds > 0) || math.IsInf(ch.Seconds, 0):
		return fmt.Errorf("%w: challenge.seconds must be positive, got %v", ErrInvalidConfig, ch.Seconds)
	case ch.RandomBodies < 0:
		return fmt.Errorf("%w: challenge.randomBodies must be non-negative", ErrInvalidConfig)
	case ch.Ground.MinX >= ch.Ground.MaxX || ch.Ground.MinY >= ch.Ground.MaxY:
		return fmt.Errorf("%w: challenge.ground must have positive extent", ErrInvalidConfig)
	case ch.Ground.Restitution < 0:
		return fmt.Errorf("%w: challenge.ground.restitution must be non-negative", ErrInvalidConfig)
	}

	p := c.Population
	switch {
	case p.Size < 1:
		return fmt.Errorf("%w: population.size must be at least 1", ErrInvalidConfig)
	case p.Generations < 1:
		return fmt.Errorf("%w: population.generations must be at least 1", ErrInvalidConfig)
	case p.Workers < 1:
		return fmt.Errorf("%w: population.workers must be at least 1", ErrInvalidConfig)
	case p.MaxConsecutiveDiverged < 1:
		return fmt.Errorf("%w: population.maxConsecutiveDiverged must be at least 1", ErrInvalidConfig)
	case p.BreakerTimeoutSeconds < 0:
		return fmt.Errorf("%w: population.breakerTimeoutSeconds must be non-negative", ErrInvalidConfig)
	}

	h := c.Health
	switch {
	case h.MaxStallSeconds <= 0:
		return fmt.Errorf("%w: health.maxStallSeconds must be positive", ErrInvalidConfig)
	case h.MaxMemoryMB <= 0:
		return fmt.Errorf("%w: health.maxMemoryMB must be positive", ErrInvalidConfig)
	}
	return nil
}

// PhysicsSettings converts the physics section to physics.Settings
func (c *SimulationConfig) PhysicsSettings() physics.Settings {
	p := c.Physics
	return physics.Settings{
		Gravity:                physics.Vector2D{X: p.GravityX, Y: p.GravityY},
		StaticFriction:         p.StaticFriction,
		DynamicFriction:        p.DynamicFriction,
		SATBiasRelative:        p.SATBiasRelative,
		SATBiasAbsolute:        p.SATBiasAbsolute,
		ClipThreshold:          p.ClipThreshold,
		RestingVelocitySquared: p.RestingVelocitySquared,
		Slop:                   p.Slop,
		CorrectionFactor:       p.CorrectionFactor,
		PolygonCircleContacts:  p.PolygonCircleContacts,
		Seed:                   p.Seed,
		Obstacles: physics.ObstacleSettings{
			MinX:    p.Obstacles.MinX,
			MaxX:    p.Obstacles.MaxX,
			MinY:    p.Obstacles.MinY,
			MaxY:    p.Obstacles.MaxY,
			MinSize: p.Obstacles.MinSize,
			MaxSize: p.Obstacles.MaxSize,
		},
	}
}

// Steps returns the number of fixed steps one challenge runs for.
func (c ChallengeConfig) Steps() int {
	return int(math.Round(c.Seconds / c.TimeStep))
}

// MaxStall returns how long a run may go without finishing an instance
// before it reports unhealthy.
func (h HealthConfig) MaxStall() time.Duration {
	return time.Duration(h.MaxStallSeconds * float64(time.Second))
}

// BreakerTimeout returns how long a tripped breaker stays open.
func (p PopulationConfig) BreakerTimeout() time.Duration {
	return time.Duration(p.BreakerTimeoutSeconds * float64(time.Second))
}
