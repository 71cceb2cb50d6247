package feedback

import (
	"fmt"
	"math"

	"github.com/san-kum/liepid/internal/lie"
)

// Params configures a PID at construction.
type Params struct {
	// WindupLimit is the maximal absolute value of each integral state.
	WindupLimit float64 `yaml:"windup_limit"`
}

func DefaultParams() Params {
	return Params{WindupLimit: math.Inf(1)}
}

// Trajectory maps a time to the desired position, velocity and acceleration.
type Trajectory[T any, G any] func(t T) (G, lie.Tangent, lie.Tangent)

// Curve is a reference curve evaluated at a time in seconds. Eval writes the
// body velocity and acceleration into vel and acc and returns the position.
type Curve[G any] interface {
	Eval(t float64, vel, acc *lie.Tangent) G
}

// PID is a proportional-integral-derivative controller on the Lie group G
// with time type T.
//
// The command for state g and body velocity v at time t is
//
//	u = a_des + kp ⊙ (g_des ⊖ g) + kd ⊙ (v_des - v) + ki ⊙ ∫(g_des ⊖ g)
type PID[T Instant[T], G lie.Group[G]] struct {
	prm Params

	kp lie.Tangent
	kd lie.Tangent
	ki lie.Tangent

	integral lie.Tangent
	tLast    *T
	lastErr  lie.Tangent

	xdes Trajectory[T, G]
}

// New creates a controller with unit proportional and derivative gains and
// zero integral gains, tracking the identity at rest.
func New[T Instant[T], G lie.Group[G]](prm Params) *PID[T, G] {
	n := lie.Dof[G]()
	return &PID[T, G]{
		prm:      prm,
		kp:       lie.Ones(n),
		kd:       lie.Ones(n),
		ki:       lie.Zeros(n),
		integral: lie.Zeros(n),
		lastErr:  lie.Zeros(n),
		xdes: func(T) (G, lie.Tangent, lie.Tangent) {
			var g G
			return g.Identity(), lie.Zeros(n), lie.Zeros(n)
		},
	}
}

func (p *PID[T, G]) SetKp(kp float64) { p.kp = lie.Constant(p.dof(), kp) }
func (p *PID[T, G]) SetKd(kd float64) { p.kd = lie.Constant(p.dof(), kd) }
func (p *PID[T, G]) SetKi(ki float64) { p.ki = lie.Constant(p.dof(), ki) }

// SetKpVec sets per-component proportional gains. It panics if kp does not
// match the tangent dimension of G.
func (p *PID[T, G]) SetKpVec(kp lie.Tangent) { p.kp = p.mustGain("kp", kp) }

// SetKdVec sets per-component derivative gains. It panics if kd does not
// match the tangent dimension of G.
func (p *PID[T, G]) SetKdVec(kd lie.Tangent) { p.kd = p.mustGain("kd", kd) }

// SetKiVec sets per-component integral gains. It panics if ki does not
// match the tangent dimension of G.
func (p *PID[T, G]) SetKiVec(ki lie.Tangent) { p.ki = p.mustGain("ki", ki) }

// ResetIntegral zeroes the integral state. The last evaluation time is kept.
func (p *PID[T, G]) ResetIntegral() {
	p.integral = lie.Zeros(p.dof())
}

// SetXDes sets the desired trajectory. For a constant target return zero
// velocity and acceleration.
func (p *PID[T, G]) SetXDes(f Trajectory[T, G]) {
	p.xdes = f
}

// SetXDesCurve tracks c such that the desired position at time t is c(t - t0).
func (p *PID[T, G]) SetXDesCurve(t0 T, c Curve[G]) {
	p.xdes = func(t T) (G, lie.Tangent, lie.Tangent) {
		var vel, acc lie.Tangent
		g := c.Eval(t.Sub(t0).Seconds(), &vel, &acc)
		return g, vel, acc
	}
}

// Reference evaluates the desired trajectory at t without touching the
// controller state.
func (p *PID[T, G]) Reference(t T) (G, lie.Tangent, lie.Tangent) {
	return p.xdes(t)
}

// Eval returns the body acceleration command for state g with body velocity v
// at time t.
//
// The integral state only advances when a previous time exists and t is
// strictly after it. The last time is updated on every call, including calls
// with out-of-order timestamps.
func (p *PID[T, G]) Eval(t T, g G, v lie.Tangent) lie.Tangent {
	gDes, vDes, aDes := p.xdes(t)

	gErr := gDes.Minus(g)
	p.lastErr = gErr

	if p.tLast != nil && t.After(*p.tLast) {
		dt := t.Sub(*p.tLast).Seconds()
		lim := p.prm.WindupLimit
		p.integral = p.integral.AddScaled(dt, gErr).Clamp(-lim, lim)
	}
	tNow := t
	p.tLast = &tNow

	return aDes.
		Add(p.kp.Mul(gErr)).
		Add(p.kd.Mul(vDes.Sub(v))).
		Add(p.ki.Mul(p.integral))
}

// Error returns a copy of the group error desired ⊖ actual seen by the last
// Eval, zero before the first call.
func (p *PID[T, G]) Error() lie.Tangent { return p.lastErr.Clone() }

// Integral returns a copy of the integral state.
func (p *PID[T, G]) Integral() lie.Tangent { return p.integral.Clone() }

// LastTime returns the time of the previous Eval, if any.
func (p *PID[T, G]) LastTime() (T, bool) {
	if p.tLast == nil {
		var zero T
		return zero, false
	}
	return *p.tLast, true
}

// Gains returns copies of the proportional, derivative and integral gains.
func (p *PID[T, G]) Gains() (kp, kd, ki lie.Tangent) {
	return p.kp.Clone(), p.kd.Clone(), p.ki.Clone()
}

func (p *PID[T, G]) Params() Params { return p.prm }

// GetParams returns tunable parameters for live adjustment. Vector gains are
// reported by their first component.
func (p *PID[T, G]) GetParams() map[string]float64 {
	return map[string]float64{
		"kp": p.kp[0],
		"kd": p.kd[0],
		"ki": p.ki[0],
	}
}

// SetParam broadcasts a scalar gain by name.
func (p *PID[T, G]) SetParam(name string, value float64) error {
	switch name {
	case "kp":
		p.SetKp(value)
	case "kd":
		p.SetKd(value)
	case "ki":
		p.SetKi(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return nil
}

// Gain returns a copy of the named gain vector: kp, kd or ki.
func (p *PID[T, G]) Gain(name string) (lie.Tangent, error) {
	k, err := p.gain(name)
	if err != nil {
		return nil, err
	}
	return (*k).Clone(), nil
}

// SetGain replaces the named gain vector. Unlike SetKpVec and friends it
// reports a dimension mismatch as an error.
func (p *PID[T, G]) SetGain(name string, value lie.Tangent) error {
	k, err := p.gain(name)
	if err != nil {
		return err
	}
	if err := value.CheckDim(p.dof()); err != nil {
		return fmt.Errorf("feedback: %s: %w", name, err)
	}
	*k = value.Clone()
	return nil
}

func (p *PID[T, G]) gain(name string) (*lie.Tangent, error) {
	switch name {
	case "kp":
		return &p.kp, nil
	case "kd":
		return &p.kd, nil
	case "ki":
		return &p.ki, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownParam, name)
}

func (p *PID[T, G]) dof() int { return lie.Dof[G]() }

func (p *PID[T, G]) mustGain(name string, k lie.Tangent) lie.Tangent {
	if err := k.CheckDim(p.dof()); err != nil {
		panic(fmt.Errorf("feedback: %s: %w", name, err))
	}
	return k.Clone()
}
