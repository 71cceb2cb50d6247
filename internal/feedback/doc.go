// Package feedback provides a PID controller for systems whose state lives
// on a Lie group.
//
// The controller is designed for the plant
//
//	dʳx = v
//	v̇  = u
//
// i.e. the command u is a body-frame acceleration in the tangent space.
//
// # Usage
//
//	pid := feedback.New[feedback.Seconds, lie.SE2](feedback.DefaultParams())
//	pid.SetKp(4)
//	pid.SetKd(4)
//	pid.SetXDesCurve(0, curve.NewTwist(lie.SE2{}, lie.Tangent{1, 0, 0.2}))
//	u := pid.Eval(t, g, v)
//
// # Thread Safety
//
// A PID is owned by a single control loop. Concurrent calls must be
// serialized by the caller.
package feedback
