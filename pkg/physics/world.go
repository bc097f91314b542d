// pkg/physics/world.go
package physics

import (
	"context"
	"math/rand/v2"

	"github.com/opd-ai/go-walkers/pkg/logging"
)

// Ownership says who manages a body's lifetime.
type Ownership int

const (
	// Borrowed bodies belong to the caller; the world only steps them.
	Borrowed Ownership = iota
	// Owned bodies were created by the world and die with Reset.
	Owned
)

func (o Ownership) String() string {
	if o == Owned {
		return "owned"
	}
	return "borrowed"
}

// BodyHandle identifies a body in a World. Handles stay valid until the
// body is removed or the world is reset.
type BodyHandle struct {
	Ownership Ownership
	Index     int
}

// World steps a set of bodies with all-pairs collision detection. It is
// single-threaded: run independent worlds on separate goroutines instead of
// sharing one.
type World struct {
	settings Settings
	solver   Solver
	sat      SATPolicy
	logger   *logging.Logger
	rng      *rand.Rand

	// Removed bodies leave a nil slot so handles never shift.
	borrowed []*Body
	owned    []*Body

	manifolds []Manifold
}

// Option configures a World.
type Option func(*World)

// WithLogger logs world lifecycle events (never per step) to logger.
func WithLogger(logger *logging.Logger) Option {
	return func(w *World) {
		w.logger = logger
	}
}

// NewWorld creates an empty world.
func NewWorld(settings Settings, opts ...Option) (*World, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		settings: settings,
		solver:   settings.Solver(),
		sat:      settings.SAT(),
		logger:   logging.Discard(),
		rng:      newRand(settings.Seed),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Settings returns the tunables the world was built with.
func (w *World) Settings() Settings {
	return w.settings
}

// Add registers a caller-owned body.
func (w *World) Add(body *Body) BodyHandle {
	w.borrowed = append(w.borrowed, body)
	return BodyHandle{Ownership: Borrowed, Index: len(w.borrowed) - 1}
}

// AddRandomBodies scatters count static obstacles (small circles and boxes)
// over the configured obstacle region. The world owns them.
func (w *World) AddRandomBodies(count int) []BodyHandle {
	region := w.settings.Obstacles
	handles := make([]BodyHandle, 0, count)
	for i := 0; i < count; i++ {
		def := BodyDef{
			Position: Vector2D{
				X: uniform(w.rng, region.MinX, region.MaxX),
				Y: uniform(w.rng, region.MinY, region.MaxY),
			},
			Restitution: w.rng.Float64() * 0.5,
		}
		size := uniform(w.rng, region.MinSize, region.MaxSize)
		if w.rng.IntN(2) == 0 {
			def.Circles = []Circle{{Radius: size}}
		} else {
			def.Polygons = []Polygon{NewBox(size, size*uniform(w.rng, 0.5, 1), w.rng.Float64()*0.8)}
		}

		w.owned = append(w.owned, NewBody(def))
		handles = append(handles, BodyHandle{Ownership: Owned, Index: len(w.owned) - 1})
	}

	w.logger.Debug(context.Background(), "added random bodies",
		"count", count,
		"owned_total", len(w.owned),
	)
	return handles
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// Body resolves a handle.
func (w *World) Body(h BodyHandle) (*Body, bool) {
	set := w.borrowed
	if h.Ownership == Owned {
		set = w.owned
	}
	if h.Index < 0 || h.Index >= len(set) || set[h.Index] == nil {
		return nil, false
	}
	return set[h.Index], true
}

// Remove takes a body out of the world. It reports whether the handle
// referred to a live body.
func (w *World) Remove(h BodyHandle) bool {
	if _, ok := w.Body(h); !ok {
		return false
	}
	if h.Ownership == Owned {
		w.owned[h.Index] = nil
	} else {
		w.borrowed[h.Index] = nil
	}
	return true
}

// Reset forgets all borrowed bodies, drops the owned ones and reseeds the
// obstacle generator, leaving the world ready for a new simulation.
func (w *World) Reset() {
	w.logger.Debug(context.Background(), "resetting world",
		"borrowed", len(w.borrowed),
		"owned", len(w.owned),
	)
	clear(w.borrowed)
	w.borrowed = w.borrowed[:0]
	clear(w.owned)
	w.owned = w.owned[:0]
	w.manifolds = w.manifolds[:0]
	w.rng = newRand(w.settings.Seed)
}

// Objects lists the live bodies, borrowed first, in insertion order.
func (w *World) Objects() []*Body {
	objects := make([]*Body, 0, len(w.borrowed)+len(w.owned))
	for _, set := range [][]*Body{w.borrowed, w.owned} {
		for _, b := range set {
			if b != nil {
				objects = append(objects, b)
			}
		}
	}
	return objects
}

// Manifolds returns the collisions found by the last Step. The slice is
// reused by the next Step.
func (w *World) Manifolds() []Manifold {
	return w.manifolds
}

// Step integrates every body, detects collisions between every shape pair
// of every body pair, and resolves them in detection order.
func (w *World) Step(dt float64) {
	objects := w.Objects()
	for _, b := range objects {
		b.Step(dt, w.settings.Gravity)
	}

	w.manifolds = w.manifolds[:0]
	for i := 0; i < len(objects); i++ {
		for j := i + 1; j < len(objects); j++ {
			w.manifolds = w.collide(w.manifolds, objects[i], objects[j])
		}
	}

	for i := range w.manifolds {
		w.solver.Resolve(&w.manifolds[i])
	}
}

// collide runs every narrow-phase test between the shapes of a and b and
// appends the hits to out.
func (w *World) collide(out []Manifold, a, b *Body) []Manifold {
	add := func(m Manifold, ok bool) {
		if ok {
			out = append(out, m)
		}
	}
	flipped := func(m Manifold, ok bool) (Manifold, bool) {
		return m.Flip(), ok
	}

	for _, ca := range a.Circles {
		for _, cb := range b.Circles {
			add(CircleVsCircle(a, ca, b, cb))
		}
		for _, box := range b.Boxes {
			add(flipped(AABBVsCircle(b, box, a, ca)))
		}
		if w.settings.PolygonCircleContacts {
			for k := range b.Polygons {
				add(flipped(PolygonVsCircle(b, &b.Polygons[k], a, ca)))
			}
		}
	}

	for k := range a.Polygons {
		pa := &a.Polygons[k]
		for l := range b.Polygons {
			add(w.sat.PolygonVsPolygon(a, pa, b, &b.Polygons[l]))
		}
		for _, box := range b.Boxes {
			add(flipped(w.sat.AABBVsPolygon(b, box, a, pa)))
		}
		if w.settings.PolygonCircleContacts {
			for _, cb := range b.Circles {
				add(PolygonVsCircle(a, pa, b, cb))
			}
		}
	}

	for _, boxA := range a.Boxes {
		for _, boxB := range b.Boxes {
			add(AABBVsAABB(a, boxA, b, boxB))
		}
		for _, cb := range b.Circles {
			add(AABBVsCircle(a, boxA, b, cb))
		}
		for l := range b.Polygons {
			add(w.sat.AABBVsPolygon(a, boxA, b, &b.Polygons[l]))
		}
	}
	return out
}

