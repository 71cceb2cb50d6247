package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/liepid/internal/feedback"
	"github.com/san-kum/liepid/internal/lie"
)

const (
	DefaultGroup    = "se2"
	DefaultDt       = 0.01
	DefaultDuration = 10.0
	DefaultKp       = 4.0
	DefaultKd       = 4.0
	DefaultKi       = 0.0
	DefaultLogLevel = "info"
	DefaultCANBase  = 0x200
	DefaultCANScale = 1000.0
)

// Trajectory kinds.
const (
	TrajConstant  = "constant"
	TrajTwist     = "twist"
	TrajWaypoints = "waypoints"
)

var (
	ErrGroupConflict     = errors.New("config: group conflicts with config file")
	ErrUnknownGroup      = errors.New("config: unknown group")
	ErrUnknownTrajectory = errors.New("config: unknown trajectory kind")
	ErrBadValue          = errors.New("config: invalid value")
)

// Groups lists the supported state spaces by config name.
var Groups = map[string]int{
	"r1":  1,
	"r2":  2,
	"r3":  3,
	"so2": 1,
	"se2": 3,
	"so3": 3,
}

type Config struct {
	Group      string           `yaml:"group"`
	Dt         float64          `yaml:"dt"`
	Duration   float64          `yaml:"duration"`
	Params     feedback.Params  `yaml:"params"`
	Gains      GainsConfig      `yaml:"gains"`
	Initial    InitialConfig    `yaml:"initial"`
	Trajectory TrajectoryConfig `yaml:"trajectory"`
	Log        LogConfig        `yaml:"log"`
	CAN        CANConfig        `yaml:"can"`
}

// GainsConfig holds gain vectors. A single value is broadcast to every
// component; an empty list keeps the controller default.
type GainsConfig struct {
	Kp []float64 `yaml:"kp,flow"`
	Kd []float64 `yaml:"kd,flow"`
	Ki []float64 `yaml:"ki,flow"`
}

// InitialConfig is the plant state at t=0, as tangent coordinates of the pose
// and a body velocity. Missing entries are zero.
type InitialConfig struct {
	Pose     []float64 `yaml:"pose,flow"`
	Velocity []float64 `yaml:"velocity,flow"`
}

type TrajectoryConfig struct {
	Kind      string           `yaml:"kind"`
	Start     float64          `yaml:"start"`
	Pose      []float64        `yaml:"pose,flow"`
	Twist     []float64        `yaml:"twist,flow"`
	Waypoints []WaypointConfig `yaml:"waypoints"`
}

type WaypointConfig struct {
	T    float64   `yaml:"t"`
	Pose []float64 `yaml:"pose,flow"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

type CANConfig struct {
	Interface string  `yaml:"interface"`
	BaseID    uint32  `yaml:"base_id"`
	Scale     float64 `yaml:"scale"`
}

func DefaultConfig() *Config {
	return &Config{
		Group:    DefaultGroup,
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Params:   feedback.DefaultParams(),
		Gains: GainsConfig{
			Kp: []float64{DefaultKp},
			Kd: []float64{DefaultKd},
			Ki: []float64{DefaultKi},
		},
		Initial: InitialConfig{
			Pose: []float64{0.5, -0.5, 0.3},
		},
		Trajectory: TrajectoryConfig{
			Kind:  TrajTwist,
			Twist: []float64{1, 0, 0.5},
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
		CAN: CANConfig{
			BaseID: DefaultCANBase,
			Scale:  DefaultCANScale,
		},
	}
}

// ForGroup returns the default config for group. The default scenario is
// planar, so any other group starts off the identity and regulates back to it.
func ForGroup(group string) *Config {
	cfg := DefaultConfig()
	if group == "" || group == cfg.Group {
		return cfg
	}
	cfg.Group = group
	cfg.Initial = InitialConfig{Pose: []float64{0.5}}
	cfg.Trajectory = TrajectoryConfig{Kind: TrajConstant}
	return cfg
}

// Load reads a YAML config. Fields missing from the file take the defaults of
// the group it names, see ForGroup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var head struct {
		Group string `yaml:"group"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg := ForGroup(head.Group)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Dof returns the tangent dimension of the configured group.
func (c *Config) Dof() (int, error) {
	n, ok := Groups[c.Group]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownGroup, c.Group)
	}
	return n, nil
}

// Validate checks the config against the dimension of its group.
func (c *Config) Validate() error {
	n, err := c.Dof()
	if err != nil {
		return err
	}
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrBadValue, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrBadValue, c.Duration)
	}
	if c.Params.WindupLimit < 0 || math.IsNaN(c.Params.WindupLimit) {
		return fmt.Errorf("%w: windup_limit must be non-negative, got %g", ErrBadValue, c.Params.WindupLimit)
	}

	for name, g := range map[string][]float64{"kp": c.Gains.Kp, "kd": c.Gains.Kd, "ki": c.Gains.Ki} {
		if len(g) > 1 && len(g) != n {
			return fmt.Errorf("gain %s: %w", name, lie.Tangent(g).CheckDim(n))
		}
	}
	if len(c.Initial.Pose) > n || len(c.Initial.Velocity) > n {
		return fmt.Errorf("%w: initial state has more than %d components", ErrBadValue, n)
	}

	switch c.Trajectory.Kind {
	case "", TrajConstant:
	case TrajTwist:
		if len(c.Trajectory.Twist) > n {
			return fmt.Errorf("%w: twist has more than %d components", ErrBadValue, n)
		}
	case TrajWaypoints:
		if len(c.Trajectory.Waypoints) == 0 {
			return fmt.Errorf("%w: waypoints trajectory without waypoints", ErrBadValue)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTrajectory, c.Trajectory.Kind)
	}
	if c.CAN.Interface != "" && c.CAN.Scale <= 0 {
		return fmt.Errorf("%w: can scale must be positive", ErrBadValue)
	}
	return nil
}

// Gain expands a configured gain list to n components. ok is false when the
// list is empty and the controller default should be kept.
func Gain(g []float64, n int) (k lie.Tangent, ok bool) {
	switch len(g) {
	case 0:
		return nil, false
	case 1:
		return lie.Constant(n, g[0]), true
	default:
		return lie.Tangent(g).Clone(), true
	}
}

// Pad returns v as an n-component tangent, filling missing entries with zero.
func Pad(v []float64, n int) lie.Tangent {
	t := lie.Zeros(n)
	copy(t, v)
	return t
}
