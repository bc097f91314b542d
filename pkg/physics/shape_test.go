package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolygon(t *testing.T) {
	tests := []struct {
		name     string
		vertices []Vector2D
		wantErr  error
	}{
		{
			name:     "triangle",
			vertices: []Vector2D{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 0, Y: 1}},
		},
		{
			name:     "too_few_vertices",
			vertices: []Vector2D{{X: -1, Y: -1}, {X: 1, Y: -1}},
			wantErr:  ErrTooFewVertices,
		},
		{
			name:     "duplicate_vertex",
			vertices: []Vector2D{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: -1}, {X: 0, Y: 1}},
			wantErr:  ErrDegenerateEdge,
		},
		{
			name:     "clockwise",
			vertices: []Vector2D{{X: -1, Y: -1}, {X: -1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: -1}},
			wantErr:  ErrNotCounterClockwise,
		},
		{
			name:     "origin_outside",
			vertices: []Vector2D{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 2}},
			wantErr:  ErrOriginOutside,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPolygon(tt.vertices, 0.5)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, p.VertexCount())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.vertices), p.VertexCount())
			assert.Equal(t, 0.5, p.Rotation)
			for i := 0; i < p.VertexCount(); i++ {
				assert.InDelta(t, 1, p.Normal(i).Length(), tolerance)
				assert.Greater(t, p.Normal(i).Dot(p.Vertex(i)), 0.0, "normal %d points outward", i)
			}
		})
	}
}

func TestPolygon_SetVerticesRejectKeepsOld(t *testing.T) {
	p := NewBox(1, 1, 0)
	err := p.SetVertices([]Vector2D{{X: 0, Y: 0}})
	assert.ErrorIs(t, err, ErrTooFewVertices)
	assert.Equal(t, 4, p.VertexCount())
}

func TestNewBox(t *testing.T) {
	box := NewBox(2, 1, 0)
	require.Equal(t, 4, box.VertexCount())

	assert.Equal(t, Vector2D{X: -2, Y: -1}, box.Vertex(0))
	assert.Equal(t, Vector2D{X: 2, Y: 1}, box.Vertex(2))
	assert.Equal(t, Vector2D{X: 0, Y: -1}, box.Normal(0))
	assert.Equal(t, Vector2D{X: 1, Y: 0}, box.Normal(1))

	built, err := NewPolygon(box.Vertices(), 0)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		assertVectorNear(t, box.Normal(i), built.Normal(i), tolerance)
	}
}

func TestPolygon_ExtremePoint(t *testing.T) {
	box := NewBox(2, 1, 0)
	assert.Equal(t, Vector2D{X: 2, Y: 1}, box.ExtremePoint(Vector2D{X: 1, Y: 1}))
	assert.Equal(t, Vector2D{X: -2, Y: -1}, box.ExtremePoint(Vector2D{X: -1, Y: -0.1}))
}

func TestPolygon_VerticesIsACopy(t *testing.T) {
	box := NewBox(1, 1, 0)
	vertices := box.Vertices()
	vertices[0] = Vector2D{X: 42, Y: 42}
	assert.Equal(t, Vector2D{X: -1, Y: -1}, box.Vertex(0))
}

func TestPolygon_ComputeMass(t *testing.T) {
	t.Run("centered_box", func(t *testing.T) {
		box := NewBox(1, 0.5, 0)
		mass, inertia := box.ComputeMass(1)

		// 2x1 rectangle: m = 2, I = m(w²+h²)/12.
		assert.InDelta(t, 2, mass, tolerance)
		assert.InDelta(t, 2*(4+1)/12.0, inertia, tolerance)
		assert.Equal(t, Vector2D{}, box.Pos)
	})

	t.Run("off_center_square_is_recentered", func(t *testing.T) {
		square, err := NewPolygon([]Vector2D{
			{X: -0.5, Y: -0.5}, {X: 1.5, Y: -0.5}, {X: 1.5, Y: 1.5}, {X: -0.5, Y: 1.5},
		}, 0)
		require.NoError(t, err)

		mass, inertia := square.ComputeMass(1)

		// Inertia is about the centroid, not the old origin.
		assert.InDelta(t, 4, mass, tolerance)
		assert.InDelta(t, 4*(4+4)/12.0, inertia, tolerance)
		assertVectorNear(t, Vector2D{X: 0.5, Y: 0.5}, square.Pos, tolerance)
		assertVectorNear(t, Vector2D{X: -1, Y: -1}, square.Vertex(0), tolerance)
	})

	t.Run("rotated_polygon_keeps_world_shape", func(t *testing.T) {
		square, err := NewPolygon([]Vector2D{
			{X: -0.5, Y: -0.5}, {X: 1.5, Y: -0.5}, {X: 1.5, Y: 1.5}, {X: -0.5, Y: 1.5},
		}, math.Pi/2)
		require.NoError(t, err)
		before := square.LocalTransform().Apply(square.Vertex(2))

		square.ComputeMass(1)

		assertVectorNear(t, before, square.LocalTransform().Apply(square.Vertex(2)), tolerance)
	})

	t.Run("density_scales", func(t *testing.T) {
		box := NewBox(1, 1, 0)
		mass, inertia := box.ComputeMass(3)
		assert.InDelta(t, 12, mass, tolerance)
		assert.InDelta(t, 12*(4+4)/12.0, inertia, tolerance)
	})
}

func TestCircle_ComputeMass(t *testing.T) {
	c := Circle{Radius: 2}
	mass := c.ComputeMass(1.5)

	assert.InDelta(t, 4.0/3.0*math.Pi*8*1.5, mass, tolerance)
	assert.InDelta(t, 2.0/5.0*mass*4, c.ComputeAngularMass(mass), tolerance)
}

func TestAABB(t *testing.T) {
	box := AABB{Min: Vector2D{X: -1, Y: 0}, Max: Vector2D{X: 3, Y: 2}}

	assert.Equal(t, Vector2D{X: 1, Y: 1}, box.Center())
	assert.Equal(t, Vector2D{X: 2, Y: 1}, box.HalfExtents())
	assert.Equal(t, AABB{Min: Vector2D{X: 0, Y: -1}, Max: Vector2D{X: 4, Y: 1}},
		box.Translate(Vector2D{X: 1, Y: -1}))
}
