// pkg/render/engo/sync.go
package engo

import (
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-walkers/pkg/physics"
)

// ShapeKind selects which part of a body an entity draws.
type ShapeKind int

const (
	// WholeBody follows the body's center of mass and orientation and keeps
	// the entity's own size.
	WholeBody ShapeKind = iota
	PolygonShape
	CircleShape
	BoxShape
)

type syncEntity struct {
	basic *ecs.BasicEntity
	space *common.SpaceComponent
	body  *physics.Body
	kind  ShapeKind
	index int
}

// BodySyncSystem copies body poses into SpaceComponents every frame, so
// the regular engo render system draws the physics world. The physics is
// never touched.
type BodySyncSystem struct {
	camera   *CameraSystem
	entities []syncEntity
}

// NewBodySyncSystem projects bodies through camera.
func NewBodySyncSystem(camera *CameraSystem) *BodySyncSystem {
	return &BodySyncSystem{camera: camera}
}

// Add tracks a whole body.
func (bs *BodySyncSystem) Add(basic *ecs.BasicEntity, space *common.SpaceComponent, body *physics.Body) {
	bs.AddShape(basic, space, body, WholeBody, 0)
}

// AddShape tracks shape index of the given kind on body.
func (bs *BodySyncSystem) AddShape(basic *ecs.BasicEntity, space *common.SpaceComponent, body *physics.Body, kind ShapeKind, index int) {
	e := syncEntity{basic: basic, space: space, body: body, kind: kind, index: index}
	bs.entities = append(bs.entities, e)
	bs.sync(e)
}

// Remove satisfies the ecs.System interface
func (bs *BodySyncSystem) Remove(basic ecs.BasicEntity) {
	kept := bs.entities[:0]
	for _, e := range bs.entities {
		if e.basic.ID() != basic.ID() {
			kept = append(kept, e)
		}
	}
	clear(bs.entities[len(kept):])
	bs.entities = kept
}

// Update re-projects every tracked shape.
func (bs *BodySyncSystem) Update(dt float32) {
	for _, e := range bs.entities {
		bs.sync(e)
	}
}

func (bs *BodySyncSystem) sync(e syncEntity) {
	if !e.body.IsFinite() {
		return
	}

	scale := float64(bs.camera.Scale())
	var (
		center physics.Vector2D
		angle  float64
	)
	width, height := float64(e.space.Width), float64(e.space.Height)

	switch e.kind {
	case WholeBody:
		center, angle = e.body.Position, e.body.Orientation
	case PolygonShape:
		p := e.body.Polygons[e.index]
		lo := physics.Vector2D{X: p.ExtremePoint(physics.Vector2D{X: -1}).X, Y: p.ExtremePoint(physics.Vector2D{Y: -1}).Y}
		hi := physics.Vector2D{X: p.ExtremePoint(physics.Vector2D{X: 1}).X, Y: p.ExtremePoint(physics.Vector2D{Y: 1}).Y}
		center = e.body.PolygonTransform(e.index).Apply(lo.Add(hi).Scale(0.5))
		angle = e.body.Orientation + p.Rotation
		width, height = (hi.X-lo.X)*scale, (hi.Y-lo.Y)*scale
	case CircleShape:
		center, angle = e.body.CircleCenter(e.index), e.body.Orientation
		width = 2 * e.body.Circles[e.index].Radius * scale
		height = width
	case BoxShape:
		bounds := e.body.BoxBounds(e.index)
		center = bounds.Center()
		size := bounds.HalfExtents().Scale(2 * scale)
		width, height = size.X, size.Y
	}

	// engo rotates clockwise in degrees about the top-left corner.
	rotation := -angle * 180 / math.Pi
	sin, cos := math.Sincos(rotation * math.Pi / 180)
	screen := bs.camera.WorldToScreen(center)
	e.space.Width, e.space.Height = float32(width), float32(height)
	e.space.Rotation = float32(rotation)
	e.space.Position = engo.Point{
		X: screen.X - float32(width/2*cos-height/2*sin),
		Y: screen.Y - float32(width/2*sin+height/2*cos),
	}
}
