// pkg/render/engo/camera.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/opd-ai/go-walkers/pkg/physics"
)

// DefaultPixelsPerMeter is the screen scale at zoom 1.
const DefaultPixelsPerMeter = 12

// CameraSystem maps physics space (meters, y up) to screen space (pixels,
// y down) and can follow a body.
type CameraSystem struct {
	// Target to follow
	target *physics.Body

	// Camera properties
	zoom           float32
	minZoom        float32
	maxZoom        float32
	pixelsPerMeter float32
	viewport       engo.Point

	// Smooth following
	followSpeed float32
	smoothing   bool

	// Current camera state
	currentPos physics.Vector2D
}

// NewCameraSystem creates a camera for a width x height pixel viewport
// centered on the world origin.
func NewCameraSystem(width, height float32) *CameraSystem {
	return &CameraSystem{
		zoom:           1.0,
		minZoom:        0.1,
		maxZoom:        3.0,
		pixelsPerMeter: DefaultPixelsPerMeter,
		viewport:       engo.Point{X: width, Y: height},
		followSpeed:    2.0,
		smoothing:      true,
	}
}

// Remove satisfies the ecs.System interface
func (cs *CameraSystem) Remove(basic ecs.BasicEntity) {}

// Priority moves the camera after physics and before body sync.
func (cs *CameraSystem) Priority() int { return 5 }

// Update moves the camera toward the followed body
func (cs *CameraSystem) Update(dt float32) {
	if cs.target == nil {
		return
	}

	target := cs.target.Position
	if !target.IsFinite() {
		return
	}
	if !cs.smoothing {
		cs.currentPos = target
		return
	}

	// Exponential approach, clamped so large frames never overshoot.
	blend := float64(cs.followSpeed * dt)
	if blend > 1 {
		blend = 1
	}
	cs.currentPos = cs.currentPos.Add(target.Sub(cs.currentPos).Scale(blend))
}

// Follow makes the camera track body. The first target is centered
// immediately.
func (cs *CameraSystem) Follow(body *physics.Body) {
	if cs.target == nil && body != nil {
		cs.currentPos = body.Position
	}
	cs.target = body
}

// ClearTarget stops following
func (cs *CameraSystem) ClearTarget() {
	cs.target = nil
}

// SetPosition centers the camera on pos.
func (cs *CameraSystem) SetPosition(pos physics.Vector2D) {
	cs.currentPos = pos
}

// GetCurrentPosition returns the world point at the viewport center
func (cs *CameraSystem) GetCurrentPosition() physics.Vector2D {
	return cs.currentPos
}

// SetViewport resizes the viewport.
func (cs *CameraSystem) SetViewport(width, height float32) {
	cs.viewport = engo.Point{X: width, Y: height}
}

// SetZoom sets the camera zoom level
func (cs *CameraSystem) SetZoom(zoom float32) {
	cs.zoom = cs.clampZoom(zoom)
}

// GetZoom returns the current zoom level
func (cs *CameraSystem) GetZoom() float32 {
	return cs.zoom
}

func (cs *CameraSystem) clampZoom(zoom float32) float32 {
	if zoom < cs.minZoom {
		return cs.minZoom
	}
	if zoom > cs.maxZoom {
		return cs.maxZoom
	}
	return zoom
}

// EnableSmoothing enables or disables camera smoothing
func (cs *CameraSystem) EnableSmoothing(enabled bool) {
	cs.smoothing = enabled
}

// Scale returns pixels per meter at the current zoom.
func (cs *CameraSystem) Scale() float32 {
	return cs.pixelsPerMeter * cs.zoom
}

// Projection returns the world to screen transform: center on the camera,
// scale to pixels with y flipped, then move the origin to mid-viewport.
func (cs *CameraSystem) Projection() mgl32.Mat3 {
	scale := cs.Scale()
	return mgl32.Translate2D(cs.viewport.X/2, cs.viewport.Y/2).
		Mul3(mgl32.Scale2D(scale, -scale)).
		Mul3(mgl32.Translate2D(float32(-cs.currentPos.X), float32(-cs.currentPos.Y)))
}

// WorldToScreen converts world coordinates to screen coordinates
func (cs *CameraSystem) WorldToScreen(worldPos physics.Vector2D) engo.Point {
	p := cs.Projection().Mul3x1(mgl32.Vec3{float32(worldPos.X), float32(worldPos.Y), 1})
	return engo.Point{X: p.X(), Y: p.Y()}
}

// ScreenToWorld converts screen coordinates to world coordinates
func (cs *CameraSystem) ScreenToWorld(screenPos engo.Point) physics.Vector2D {
	p := cs.Projection().Inv().Mul3x1(mgl32.Vec3{screenPos.X, screenPos.Y, 1})
	return physics.Vector2D{X: float64(p.X()), Y: float64(p.Y())}
}
