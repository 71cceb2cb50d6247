package sim

import "github.com/san-kum/liepid/internal/lie"

// Sample is one control tick of a closed-loop run.
type Sample struct {
	T        float64
	Err      lie.Tangent // desired ⊖ actual
	U        lie.Tangent // commanded body acceleration
	Integral lie.Tangent
	Coords   lie.Tangent // actual ⊖ identity
	Velocity lie.Tangent
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

type Config struct {
	Dt            float64
	Duration      float64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		ValidateState: true,
	}
}

type Result struct {
	Samples    []Sample
	Metrics    map[string]float64
	StepsTaken int

	// Err is set when the run stopped early on a diverging state.
	Err error
}

// Times returns the sample times.
func (r *Result) Times() []float64 {
	ts := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		ts[i] = s.T
	}
	return ts
}

// ErrorNorms returns the tracking error magnitude at every sample.
func (r *Result) ErrorNorms() []float64 {
	es := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		es[i] = s.Err.Norm()
	}
	return es
}
