package config

import (
	"math"
	"sort"

	"github.com/san-kum/liepid/internal/feedback"
)

var Presets = map[string]map[string]*Config{
	"r1": {
		"step": {
			Group: "r1", Dt: 0.01, Duration: 10,
			Params:     paramsInf(),
			Gains:      GainsConfig{Kp: []float64{4}, Kd: []float64{4}},
			Trajectory: TrajectoryConfig{Kind: TrajConstant, Pose: []float64{1}},
		},
		"windup": {
			Group: "r1", Dt: 0.01, Duration: 20,
			Params:     paramsLimit(0.5),
			Gains:      GainsConfig{Kp: []float64{2}, Kd: []float64{3}, Ki: []float64{1}},
			Trajectory: TrajectoryConfig{Kind: TrajConstant, Pose: []float64{5}},
		},
	},
	"so2": {
		"wrap": {
			Group: "so2", Dt: 0.01, Duration: 10,
			Params:     paramsInf(),
			Gains:      GainsConfig{Kp: []float64{4}, Kd: []float64{4}},
			Initial:    InitialConfig{Pose: []float64{3.0}},
			Trajectory: TrajectoryConfig{Kind: TrajConstant, Pose: []float64{-3.0}},
		},
	},
	"se2": {
		"circle": {
			Group: "se2", Dt: 0.01, Duration: 20,
			Params:     paramsInf(),
			Gains:      GainsConfig{Kp: []float64{4}, Kd: []float64{4}},
			Initial:    InitialConfig{Pose: []float64{0.5, -0.5, 0.3}},
			Trajectory: TrajectoryConfig{Kind: TrajTwist, Twist: []float64{1, 0, 0.5}},
		},
		"square": {
			Group: "se2", Dt: 0.01, Duration: 20,
			Params: paramsLimit(1),
			Gains:  GainsConfig{Kp: []float64{6}, Kd: []float64{5}, Ki: []float64{0.5}},
			Trajectory: TrajectoryConfig{Kind: TrajWaypoints, Waypoints: []WaypointConfig{
				{T: 0, Pose: []float64{0, 0, 0}},
				{T: 4, Pose: []float64{2, 0, 0}},
				{T: 5, Pose: []float64{2, 0, math.Pi / 2}},
				{T: 9, Pose: []float64{2, 2, math.Pi / 2}},
				{T: 10, Pose: []float64{2, 2, math.Pi}},
				{T: 14, Pose: []float64{0, 2, math.Pi}},
			}},
		},
	},
	"so3": {
		"tumble": {
			Group: "so3", Dt: 0.005, Duration: 10,
			Params:     paramsInf(),
			Gains:      GainsConfig{Kp: []float64{9}, Kd: []float64{6}},
			Initial:    InitialConfig{Pose: []float64{1, -0.5, 0.2}, Velocity: []float64{0, 2, 0}},
			Trajectory: TrajectoryConfig{Kind: TrajConstant},
		},
	},
}

func paramsInf() feedback.Params { return feedback.DefaultParams() }

func paramsLimit(l float64) feedback.Params { return feedback.Params{WindupLimit: l} }

// GetPreset returns a copy of the named preset with default logging and CAN
// settings, or nil.
func GetPreset(group, name string) *Config {
	if presets, ok := Presets[group]; ok {
		if cfg, ok := presets[name]; ok {
			c := *cfg
			def := DefaultConfig()
			c.Log = def.Log
			c.CAN = def.CAN
			return &c
		}
	}
	return nil
}

func ListPresets(group string) []string {
	presets, ok := Presets[group]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
