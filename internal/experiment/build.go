package experiment

import (
	"fmt"

	"github.com/san-kum/liepid/internal/config"
	"github.com/san-kum/liepid/internal/curve"
	"github.com/san-kum/liepid/internal/feedback"
	"github.com/san-kum/liepid/internal/lie"
)

// Controller builds a PID on G from the gains, windup limit and trajectory in cfg.
func Controller[G lie.Group[G]](cfg *config.Config) (*feedback.PID[feedback.Seconds, G], error) {
	n := lie.Dof[G]()
	pid := feedback.New[feedback.Seconds, G](cfg.Params)

	if k, ok := config.Gain(cfg.Gains.Kp, n); ok {
		if err := k.CheckDim(n); err != nil {
			return nil, fmt.Errorf("kp: %w", err)
		}
		pid.SetKpVec(k)
	}
	if k, ok := config.Gain(cfg.Gains.Kd, n); ok {
		if err := k.CheckDim(n); err != nil {
			return nil, fmt.Errorf("kd: %w", err)
		}
		pid.SetKdVec(k)
	}
	if k, ok := config.Gain(cfg.Gains.Ki, n); ok {
		if err := k.CheckDim(n); err != nil {
			return nil, fmt.Errorf("ki: %w", err)
		}
		pid.SetKiVec(k)
	}

	c, err := Curve[G](cfg.Trajectory)
	if err != nil {
		return nil, err
	}
	pid.SetXDesCurve(feedback.Seconds(cfg.Trajectory.Start), c)
	return pid, nil
}

// Curve builds the reference curve described by tc.
func Curve[G lie.Group[G]](tc config.TrajectoryConfig) (feedback.Curve[G], error) {
	n := lie.Dof[G]()
	switch tc.Kind {
	case "", config.TrajConstant:
		return curve.NewConstant(lie.FromTangent[G](config.Pad(tc.Pose, n))), nil
	case config.TrajTwist:
		g0 := lie.FromTangent[G](config.Pad(tc.Pose, n))
		return curve.NewTwist(g0, config.Pad(tc.Twist, n)), nil
	case config.TrajWaypoints:
		pts := make([]curve.Waypoint[G], len(tc.Waypoints))
		for i, wp := range tc.Waypoints {
			pts[i] = curve.Waypoint[G]{T: wp.T, G: lie.FromTangent[G](config.Pad(wp.Pose, n))}
		}
		return curve.NewWaypoints(pts)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownTrajectory, tc.Kind)
	}
}

// Initial returns the plant state configured in cfg.
func Initial[G lie.Group[G]](cfg *config.Config) (G, lie.Tangent) {
	n := lie.Dof[G]()
	return lie.FromTangent[G](config.Pad(cfg.Initial.Pose, n)), config.Pad(cfg.Initial.Velocity, n)
}
