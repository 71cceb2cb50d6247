package automation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ausocean/utils/logging"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/liepid/internal/config"
	"github.com/san-kum/liepid/internal/experiment"
	"github.com/san-kum/liepid/internal/sim"
)

var (
	ErrEmptyScenario = errors.New("automation: scenario has no steps")
	ErrUnknownParam  = errors.New("automation: unknown sweep parameter")
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is a single run in a scenario. It starts from the named preset, or the
// default config for Group, and applies any non-zero overrides.
type Step struct {
	Name        string              `yaml:"name"`
	Group       string              `yaml:"group"`
	Preset      string              `yaml:"preset"`
	Duration    float64             `yaml:"duration"`
	Dt          float64             `yaml:"dt"`
	WindupLimit *float64            `yaml:"windup_limit"`
	Gains       *config.GainsConfig `yaml:"gains"`
}

// StepResult pairs a step with the config it resolved to and its outcome.
// Err holds a divergence; other failures abort the scenario.
type StepResult struct {
	Step   Step
	Config *config.Config
	Result *sim.Result
	Err    error
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(sc.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	return &sc, nil
}

// Resolve builds the run config for s.
func (s Step) Resolve() (*config.Config, error) {
	var cfg *config.Config
	if s.Preset != "" {
		cfg = config.GetPreset(s.Group, s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", s.Preset, config.ListPresets(s.Group))
		}
	} else {
		cfg = config.ForGroup(s.Group)
	}

	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if s.WindupLimit != nil {
		cfg.Params.WindupLimit = *s.WindupLimit
	}
	if s.Gains != nil {
		if len(s.Gains.Kp) > 0 {
			cfg.Gains.Kp = s.Gains.Kp
		}
		if len(s.Gains.Kd) > 0 {
			cfg.Gains.Kd = s.Gains.Kd
		}
		if len(s.Gains.Ki) > 0 {
			cfg.Gains.Ki = s.Gains.Ki
		}
	}
	return cfg, cfg.Validate()
}

// RunScenario executes the steps of sc in order. A diverging step is recorded
// and the scenario continues; any other error stops it and is returned with
// the results so far.
func RunScenario(ctx context.Context, sc *Scenario, log logging.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(sc.Steps))

	for i, step := range sc.Steps {
		log.Info("running scenario step", "scenario", sc.Name, "step", i+1, "of", len(sc.Steps), "name", step.Name)

		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		res, err := experiment.Run(ctx, cfg, log)
		if err != nil && !errors.Is(err, sim.ErrUnstable) {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{Step: step, Config: cfg, Result: res, Err: err})
	}

	return results, nil
}

// Sweep varies one gain of a base config over an evenly spaced range.
type Sweep struct {
	Base     *config.Config
	Param    string
	Min, Max float64
	NumSteps int
}

type SweepResult struct {
	Value   float64
	Metrics map[string]float64
	Err     error
}

// RunSweep simulates Base once per value of Param. Param is one of kp, kd or
// ki and is broadcast to every component.
func RunSweep(ctx context.Context, sw *Sweep, log logging.Logger) ([]SweepResult, error) {
	if sw.NumSteps < 1 {
		return nil, fmt.Errorf("%w: sweep needs at least one step", config.ErrBadValue)
	}
	switch sw.Param {
	case "kp", "kd", "ki":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownParam, sw.Param)
	}

	step := 0.0
	if sw.NumSteps > 1 {
		step = (sw.Max - sw.Min) / float64(sw.NumSteps-1)
	}

	results := make([]SweepResult, 0, sw.NumSteps)
	for i := 0; i < sw.NumSteps; i++ {
		v := sw.Min + float64(i)*step

		cfg := *sw.Base
		switch sw.Param {
		case "kp":
			cfg.Gains.Kp = []float64{v}
		case "kd":
			cfg.Gains.Kd = []float64{v}
		case "ki":
			cfg.Gains.Ki = []float64{v}
		}

		res, err := experiment.Run(ctx, &cfg, log)
		if err != nil && !errors.Is(err, sim.ErrUnstable) {
			return results, fmt.Errorf("%s=%g: %w", sw.Param, v, err)
		}
		sr := SweepResult{Value: v, Err: err}
		if res != nil {
			sr.Metrics = res.Metrics
		}
		results = append(results, sr)

		log.Debug("sweep point done", "param", sw.Param, "value", v, "step", i+1, "of", sw.NumSteps)
	}

	return results, nil
}
