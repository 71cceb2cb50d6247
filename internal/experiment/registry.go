package experiment

import (
	"context"
	"fmt"
	"sort"

	"github.com/ausocean/utils/logging"

	"github.com/san-kum/liepid/internal/config"
	"github.com/san-kum/liepid/internal/feedback"
	"github.com/san-kum/liepid/internal/lie"
	"github.com/san-kum/liepid/internal/metrics"
	"github.com/san-kum/liepid/internal/sim"
)

// Stepper advances a closed loop one tick at a time.
type Stepper interface {
	Step() sim.Sample
	Time() float64
	Valid() bool
}

// kit holds the group-specific entry points behind a config group name.
type kit struct {
	run      func(ctx context.Context, cfg *config.Config, log logging.Logger, obs []sim.Observer) (*sim.Result, error)
	stepper  func(cfg *config.Config) (Stepper, error)
	ensemble func(ctx context.Context, cfg *config.Config, log logging.Logger, starts [][]float64) ([]*sim.Result, error)
}

var registry = map[string]kit{
	"r1":  newKit[lie.R1](),
	"r2":  newKit[lie.R2](),
	"r3":  newKit[lie.R3](),
	"so2": newKit[lie.SO2](),
	"se2": newKit[lie.SE2](),
	"so3": newKit[lie.SO3](),
}

func newKit[G lie.Group[G]]() kit {
	return kit{
		run: func(ctx context.Context, cfg *config.Config, log logging.Logger, obs []sim.Observer) (*sim.Result, error) {
			pid, err := Controller[G](cfg)
			if err != nil {
				return nil, err
			}
			s := sim.New(pid, log)
			for _, m := range DefaultMetrics(cfg) {
				s.AddMetric(m)
			}
			for _, o := range obs {
				s.AddObserver(o)
			}
			g0, v0 := Initial[G](cfg)
			return s.Run(ctx, g0, v0, simConfig(cfg))
		},
		stepper: func(cfg *config.Config) (Stepper, error) {
			pid, err := Controller[G](cfg)
			if err != nil {
				return nil, err
			}
			g0, v0 := Initial[G](cfg)
			return sim.NewLoop(pid, g0, v0, cfg.Dt), nil
		},
		ensemble: func(ctx context.Context, cfg *config.Config, log logging.Logger, starts [][]float64) ([]*sim.Result, error) {
			n := lie.Dof[G]()
			gs := make([]G, len(starts))
			for i, s := range starts {
				gs[i] = lie.FromTangent[G](config.Pad(s, n))
			}
			// Surface build errors before fanning out.
			if _, err := Controller[G](cfg); err != nil {
				return nil, err
			}
			e := sim.NewEnsemble(
				func() *feedback.PID[feedback.Seconds, G] {
					pid, _ := Controller[G](cfg)
					return pid
				},
				func() []sim.Metric { return DefaultMetrics(cfg) },
				log,
			)
			_, v0 := Initial[G](cfg)
			return e.Run(ctx, gs, v0, simConfig(cfg))
		},
	}
}

func lookup(group string) (kit, error) {
	k, ok := registry[group]
	if !ok {
		return kit{}, fmt.Errorf("%w: %q", config.ErrUnknownGroup, group)
	}
	return k, nil
}

// Run validates cfg and simulates it to completion.
func Run(ctx context.Context, cfg *config.Config, log logging.Logger, obs ...sim.Observer) (*sim.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k, err := lookup(cfg.Group)
	if err != nil {
		return nil, err
	}
	return k.run(ctx, cfg, log, obs)
}

// NewStepper returns a closed loop for cfg to be advanced by the caller.
func NewStepper(cfg *config.Config) (Stepper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k, err := lookup(cfg.Group)
	if err != nil {
		return nil, err
	}
	return k.stepper(cfg)
}

// RunEnsemble simulates cfg from every start pose (tangent coordinates) in parallel.
func RunEnsemble(ctx context.Context, cfg *config.Config, log logging.Logger, starts [][]float64) ([]*sim.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k, err := lookup(cfg.Group)
	if err != nil {
		return nil, err
	}
	return k.ensemble(ctx, cfg, log, starts)
}

func ListGroups() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func DefaultMetrics(cfg *config.Config) []sim.Metric {
	return []sim.Metric{
		metrics.NewControlEffort(),
		metrics.NewTrackingRMS(cfg.Duration / 2),
		metrics.NewPeakError(),
		metrics.NewSaturation(cfg.Params.WindupLimit),
	}
}

func simConfig(cfg *config.Config) sim.Config {
	return sim.Config{
		Dt:            cfg.Dt,
		Duration:      cfg.Duration,
		ValidateState: true,
	}
}
