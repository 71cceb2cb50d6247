package sim

import (
	"context"
	"fmt"

	"github.com/ausocean/utils/logging"

	"github.com/san-kum/liepid/internal/feedback"
	"github.com/san-kum/liepid/internal/lie"
)

type Simulator[G lie.Group[G]] struct {
	ctrl      *feedback.PID[feedback.Seconds, G]
	log       logging.Logger
	metrics   []Metric
	observers []Observer
}

func New[G lie.Group[G]](ctrl *feedback.PID[feedback.Seconds, G], log logging.Logger) *Simulator[G] {
	return &Simulator[G]{
		ctrl:      ctrl,
		log:       log,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator[G]) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator[G]) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run simulates the closed loop from pose g0 and body velocity v0. On
// divergence the partial result is returned with a *SimulationError.
func (s *Simulator[G]) Run(ctx context.Context, g0 G, v0 lie.Tangent, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if err := v0.CheckDim(lie.Dof[G]()); err != nil {
		return nil, fmt.Errorf("initial velocity: %w", err)
	}

	steps := int(cfg.Duration/cfg.Dt + 0.5)
	result := &Result{
		Samples: make([]Sample, 0, steps),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	s.log.Debug("simulation started", "dt", cfg.Dt, "duration", cfg.Duration, "steps", steps)

	loop := NewLoop(s.ctrl, g0, v0, cfg.Dt)
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.log.Warning("simulation canceled", "step", i)
			return result, ctx.Err()
		default:
		}

		sample := loop.Step()
		for _, m := range s.metrics {
			m.Observe(sample)
		}
		for _, obs := range s.observers {
			obs.OnStep(sample)
		}
		result.Samples = append(result.Samples, sample)
		result.StepsTaken++

		if cfg.ValidateState && !loop.Valid() {
			err := &SimulationError{Step: i, Time: sample.T, Wrapped: ErrUnstable}
			s.log.Error("simulation diverged", "step", i, "time", sample.T)
			s.collect(result)
			result.Err = err
			return result, err
		}
	}

	s.collect(result)
	s.log.Info("simulation finished", "steps", result.StepsTaken)
	return result, nil
}

func (s *Simulator[G]) collect(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, cfg.Duration)
	}
	return nil
}
