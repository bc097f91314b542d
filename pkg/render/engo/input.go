// pkg/render/engo/input.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-walkers/pkg/physics"
	"github.com/opd-ai/go-walkers/pkg/simulation"
)

// Button names registered by RegisterControls.
const (
	ButtonPause   = "pause"
	ButtonFollow  = "follow"
	ButtonZoomIn  = "zoomIn"
	ButtonZoomOut = "zoomOut"
	ButtonStep    = "step"
)

// InputSystem turns key presses into viewer actions: pausing the physics,
// single-stepping while paused, zooming and toggling camera follow.
type InputSystem struct {
	system  *simulation.PhysicsSystem
	camera  *CameraSystem
	subject *physics.Body

	following bool
}

// NewInputSystem creates an input system driving ps and camera. Follow
// toggles the camera between subject and a fixed position.
func NewInputSystem(ps *simulation.PhysicsSystem, camera *CameraSystem, subject *physics.Body) *InputSystem {
	return &InputSystem{system: ps, camera: camera, subject: subject, following: true}
}

// RegisterControls binds the viewer keys.
func RegisterControls() {
	engo.Input.RegisterButton(ButtonPause, engo.KeySpace)
	engo.Input.RegisterButton(ButtonFollow, engo.KeyF)
	engo.Input.RegisterButton(ButtonZoomIn, engo.KeyZ)
	engo.Input.RegisterButton(ButtonZoomOut, engo.KeyX)
	engo.Input.RegisterButton(ButtonStep, engo.KeyN)
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {}

// Priority runs input before the physics step.
func (is *InputSystem) Priority() int { return 20 }

// Update reads the keyboard
func (is *InputSystem) Update(dt float32) {
	is.apply(
		func(name string) bool { return engo.Input.Button(name).JustPressed() },
		func(name string) bool { return engo.Input.Button(name).Down() },
	)
}

// apply runs the actions for the given button state.
func (is *InputSystem) apply(justPressed, down func(string) bool) {
	if justPressed(ButtonPause) {
		is.system.SetPaused(!is.system.Paused())
	}
	if justPressed(ButtonStep) && is.system.Paused() {
		is.system.StepOnce()
	}

	if justPressed(ButtonFollow) {
		is.following = !is.following
		if is.following {
			is.camera.Follow(is.subject)
		} else {
			is.camera.ClearTarget()
		}
	}

	if down(ButtonZoomIn) {
		is.camera.SetZoom(is.camera.GetZoom() * 1.02)
	}
	if down(ButtonZoomOut) {
		is.camera.SetZoom(is.camera.GetZoom() * 0.98)
	}
}
