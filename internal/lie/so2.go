package lie

import "math"

// SO2 is a planar rotation stored as its angle in radians.
type SO2 struct {
	Angle float64
}

func NewSO2(angle float64) SO2 {
	return SO2{Angle: wrapAngle(angle)}
}

func (SO2) Identity() SO2 { return SO2{} }
func (SO2) Dof() int      { return 1 }

func (r SO2) Compose(h SO2) SO2 { return NewSO2(r.Angle + h.Angle) }
func (r SO2) Inverse() SO2      { return NewSO2(-r.Angle) }

func (r SO2) Minus(h SO2) Tangent {
	return Tangent{wrapAngle(r.Angle - h.Angle)}
}

func (r SO2) Plus(a Tangent) SO2 {
	mustMatch(a, Tangent{0})
	return NewSO2(r.Angle + a[0])
}

// wrapAngle maps an angle into (-pi, pi].
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
