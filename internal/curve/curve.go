// Package curve provides reference trajectories that can be tracked by a
// feedback.PID through SetXDesCurve.
package curve

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/liepid/internal/lie"
)

var (
	ErrTooFewKnots    = errors.New("curve: at least one waypoint is required")
	ErrUnorderedKnots = errors.New("curve: waypoint times must be strictly increasing")
)

// Constant holds a single pose at rest.
type Constant[G lie.Group[G]] struct {
	G G
}

func NewConstant[G lie.Group[G]](g G) *Constant[G] {
	return &Constant[G]{G: g}
}

func (c *Constant[G]) Eval(t float64, vel, acc *lie.Tangent) G {
	n := lie.Dof[G]()
	*vel = lie.Zeros(n)
	*acc = lie.Zeros(n)
	return c.G
}

// Twist moves from G0 with a constant body velocity V: g(t) = G0 ⊕ t·V.
type Twist[G lie.Group[G]] struct {
	G0 G
	V  lie.Tangent
}

func NewTwist[G lie.Group[G]](g0 G, v lie.Tangent) *Twist[G] {
	return &Twist[G]{G0: g0, V: v.Clone()}
}

func (c *Twist[G]) Eval(t float64, vel, acc *lie.Tangent) G {
	*vel = c.V.Clone()
	*acc = lie.Zeros(len(c.V))
	return c.G0.Plus(c.V.Scale(t))
}

// Waypoint is a pose to pass through at time T (seconds from curve start).
type Waypoint[G any] struct {
	T float64
	G G
}

// Waypoints interpolates between consecutive waypoints with constant body
// velocity. Before the first waypoint and after the last one the curve holds
// still.
type Waypoints[G lie.Group[G]] struct {
	pts  []Waypoint[G]
	vels []lie.Tangent
}

func NewWaypoints[G lie.Group[G]](pts []Waypoint[G]) (*Waypoints[G], error) {
	if len(pts) == 0 {
		return nil, ErrTooFewKnots
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].T <= pts[i-1].T {
			return nil, fmt.Errorf("%w: t[%d]=%g, t[%d]=%g", ErrUnorderedKnots, i-1, pts[i-1].T, i, pts[i].T)
		}
	}

	w := &Waypoints[G]{
		pts:  append([]Waypoint[G](nil), pts...),
		vels: make([]lie.Tangent, len(pts)-1),
	}
	for i := range w.vels {
		dt := pts[i+1].T - pts[i].T
		w.vels[i] = pts[i+1].G.Minus(pts[i].G).Scale(1 / dt)
	}
	return w, nil
}

// Duration is the time of the last waypoint.
func (w *Waypoints[G]) Duration() float64 {
	return w.pts[len(w.pts)-1].T
}

func (w *Waypoints[G]) Eval(t float64, vel, acc *lie.Tangent) G {
	n := lie.Dof[G]()
	*acc = lie.Zeros(n)

	if t <= w.pts[0].T {
		*vel = lie.Zeros(n)
		return w.pts[0].G
	}
	last := len(w.pts) - 1
	if t >= w.pts[last].T {
		*vel = lie.Zeros(n)
		return w.pts[last].G
	}

	// first waypoint strictly after t
	i := sort.Search(len(w.pts), func(i int) bool { return w.pts[i].T > t })
	seg := i - 1
	*vel = w.vels[seg].Clone()
	return w.pts[seg].G.Plus(w.vels[seg].Scale(t - w.pts[seg].T))
}
