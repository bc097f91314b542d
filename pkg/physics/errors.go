package physics

import "errors"

// Polygon construction errors. NewPolygon wraps these with the offending
// vertex or edge index.
var (
	ErrTooFewVertices      = errors.New("polygon needs at least 3 vertices")
	ErrDegenerateEdge      = errors.New("polygon edge has zero length")
	ErrNotCounterClockwise = errors.New("polygon vertices are not counter-clockwise and convex")
	ErrOriginOutside       = errors.New("polygon local origin is not strictly inside")
)

// ErrInvalidSettings is returned by NewWorld when a tunable is out of range.
var ErrInvalidSettings = errors.New("invalid physics settings")
