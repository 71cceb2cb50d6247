package sim

import (
	"github.com/san-kum/liepid/internal/feedback"
	"github.com/san-kum/liepid/internal/lie"
)

// Loop closes a PID around the plant dʳx = v, v̇ = u and advances it with
// explicit Euler steps.
type Loop[G lie.Group[G]] struct {
	ctrl  *feedback.PID[feedback.Seconds, G]
	g     G
	v     lie.Tangent
	dt    float64
	steps int
}

func NewLoop[G lie.Group[G]](ctrl *feedback.PID[feedback.Seconds, G], g0 G, v0 lie.Tangent, dt float64) *Loop[G] {
	return &Loop[G]{ctrl: ctrl, g: g0, v: v0.Clone(), dt: dt}
}

// Step evaluates the controller at the current state, then integrates the
// plant over one timestep. The returned sample describes the state before
// integration.
func (l *Loop[G]) Step() Sample {
	t := l.Time()
	u := l.ctrl.Eval(feedback.Seconds(t), l.g, l.v)

	s := Sample{
		T:        t,
		Err:      l.ctrl.Error(),
		U:        u,
		Integral: l.ctrl.Integral(),
		Coords:   lie.Coords(l.g),
		Velocity: l.v.Clone(),
	}

	l.g = l.g.Plus(l.v.Scale(l.dt))
	l.v = l.v.AddScaled(l.dt, u)
	l.steps++
	return s
}

// Gain and SetGain expose the controller gains for live tuning.
func (l *Loop[G]) Gain(name string) (lie.Tangent, error) { return l.ctrl.Gain(name) }

func (l *Loop[G]) SetGain(name string, k lie.Tangent) error { return l.ctrl.SetGain(name, k) }

func (l *Loop[G]) Time() float64         { return float64(l.steps) * l.dt }
func (l *Loop[G]) Pose() G               { return l.g }
func (l *Loop[G]) Velocity() lie.Tangent { return l.v.Clone() }

// Valid reports whether the plant state is finite.
func (l *Loop[G]) Valid() bool {
	return l.v.IsValid() && lie.Coords(l.g).IsValid()
}
