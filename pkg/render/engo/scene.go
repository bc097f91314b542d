// pkg/render/engo/scene.go
package engo

import (
	"context"
	"fmt"
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-walkers/pkg/config"
	"github.com/opd-ai/go-walkers/pkg/logging"
	"github.com/opd-ai/go-walkers/pkg/physics"
	"github.com/opd-ai/go-walkers/pkg/simulation"
)

var (
	groundColor   = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	creatureColor = color.RGBA{R: 230, G: 120, B: 30, A: 200}
	obstacleColor = color.RGBA{R: 60, G: 110, B: 200, A: 255}
)

type shapeEntity struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// WalkerScene shows one rolling wheel running the walking challenge live.
type WalkerScene struct {
	cfg    *config.SimulationConfig
	dna    simulation.DNA
	width  float32
	height float32
	logger *logging.Logger

	physics  *simulation.PhysicsSystem
	camera   *CameraSystem
	sync     *BodySyncSystem
	input    *InputSystem
	wheel    *simulation.RollingWheel
	entities []*shapeEntity
}

// NewWalkerScene creates a scene for the wheel grown from dna.
func NewWalkerScene(cfg *config.SimulationConfig, dna simulation.DNA, width, height float32, logger *logging.Logger) *WalkerScene {
	if logger == nil {
		logger = logging.Discard()
	}
	return &WalkerScene{
		cfg:    cfg,
		dna:    dna.Clone(),
		width:  width,
		height: height,
		logger: logger,
	}
}

// Type returns the scene type (required by Engo)
func (scene *WalkerScene) Type() string {
	return "WalkerScene"
}

// Preload is called before the scene starts (required by Engo)
func (scene *WalkerScene) Preload() {}

// Setup is called when the scene starts (required by Engo)
func (scene *WalkerScene) Setup(u engo.Updater) {
	world, ok := u.(*ecs.World)
	if !ok {
		panic(fmt.Sprintf("walker scene needs an *ecs.World, got %T", u))
	}
	if err := scene.build(); err != nil {
		panic("Failed to build walker scene: " + err.Error())
	}

	common.SetBackground(color.White)
	RegisterControls()

	render := &common.RenderSystem{}
	world.AddSystem(render)
	world.AddSystem(scene.input)
	world.AddSystem(scene.physics)
	world.AddSystem(scene.camera)
	world.AddSystem(scene.sync)

	for _, e := range scene.entities {
		render.Add(&e.BasicEntity, &e.RenderComponent, &e.SpaceComponent)
	}

	engo.Mailbox.Listen(engo.WindowResizeMessage{}.Type(), scene.onResize)
}

// onResize keeps the camera centered in the resized window.
func (scene *WalkerScene) onResize(msg engo.Message) {
	resize, ok := msg.(engo.WindowResizeMessage)
	if !ok {
		return
	}
	scene.width, scene.height = float32(resize.NewWidth), float32(resize.NewHeight)
	scene.camera.SetViewport(scene.width, scene.height)
}

// build creates the physics world and one drawable entity per shape.
func (scene *WalkerScene) build() error {
	world, err := physics.NewWorld(scene.cfg.PhysicsSettings(), physics.WithLogger(scene.logger))
	if err != nil {
		return err
	}
	wheel, err := simulation.NewRollingWheel(scene.dna)
	if err != nil {
		return err
	}
	scene.wheel = wheel

	scene.physics = simulation.NewPhysicsSystem(world, scene.cfg.Challenge.TimeStep)
	scene.camera = NewCameraSystem(scene.width, scene.height)
	scene.camera.Follow(wheel.Body())
	scene.sync = NewBodySyncSystem(scene.camera)
	scene.input = NewInputSystem(scene.physics, scene.camera, wheel.Body())
	scene.entities = scene.entities[:0]

	ground := simulation.NewGround(scene.cfg.Challenge.Ground)
	groundEntity := ecs.NewBasic()
	scene.physics.Add(&groundEntity, ground)
	scene.addShapes(ground, groundColor)

	wheelEntity := ecs.NewBasic()
	scene.physics.AddCreature(&wheelEntity, wheel)
	scene.addShapes(wheel.Body(), creatureColor)

	for _, h := range world.AddRandomBodies(scene.cfg.Challenge.RandomBodies) {
		if body, ok := world.Body(h); ok {
			scene.addShapes(body, obstacleColor)
		}
	}

	scene.logger.Debug(context.Background(), "walker scene built",
		"entities", len(scene.entities),
		"random_bodies", scene.cfg.Challenge.RandomBodies,
	)
	return nil
}

// addShapes creates a drawable for every shape on body.
func (scene *WalkerScene) addShapes(body *physics.Body, c color.Color) {
	add := func(drawable common.Drawable, kind ShapeKind, index int) {
		e := &shapeEntity{
			BasicEntity:     ecs.NewBasic(),
			RenderComponent: common.RenderComponent{Drawable: drawable, Color: c},
		}
		scene.sync.AddShape(&e.BasicEntity, &e.SpaceComponent, body, kind, index)
		scene.entities = append(scene.entities, e)
	}

	for i := range body.Polygons {
		add(common.Rectangle{}, PolygonShape, i)
	}
	for i := range body.Circles {
		add(common.Circle{}, CircleShape, i)
	}
	for i := range body.Boxes {
		add(common.Rectangle{}, BoxShape, i)
	}
}

// Exit is called when the scene is exiting (required by Engo)
func (scene *WalkerScene) Exit() {
	if scene.wheel == nil {
		return
	}
	scene.logger.Info(context.Background(), "walker scene closed",
		"steps", scene.physics.Steps(),
		"x", scene.wheel.Body().Position.X,
	)
}
