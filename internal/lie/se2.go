package lie

import "math"

// smallAngle is the threshold below which series expansions replace the
// closed forms of exp and log.
const smallAngle = 1e-9

// SE2 is a planar rigid-body pose. Tangent vectors are ordered [x, y, theta]
// and expressed in the body frame.
type SE2 struct {
	X, Y  float64
	Theta float64
}

func NewSE2(x, y, theta float64) SE2 {
	return SE2{X: x, Y: y, Theta: wrapAngle(theta)}
}

func (SE2) Identity() SE2 { return SE2{} }
func (SE2) Dof() int      { return 3 }

func (g SE2) Compose(h SE2) SE2 {
	s, c := math.Sincos(g.Theta)
	return NewSE2(
		g.X+c*h.X-s*h.Y,
		g.Y+s*h.X+c*h.Y,
		g.Theta+h.Theta,
	)
}

func (g SE2) Inverse() SE2 {
	s, c := math.Sincos(g.Theta)
	return NewSE2(-c*g.X-s*g.Y, s*g.X-c*g.Y, -g.Theta)
}

func (g SE2) Minus(h SE2) Tangent {
	return logSE2(h.Inverse().Compose(g))
}

func (g SE2) Plus(a Tangent) SE2 {
	mustMatch(a, Tangent{0, 0, 0})
	return g.Compose(expSE2(a))
}

// se2V returns the entries of the left Jacobian V(w) = [[a, -b], [b, a]].
func se2V(w float64) (a, b float64) {
	if math.Abs(w) < smallAngle {
		return 1 - w*w/6, w / 2
	}
	s, c := math.Sincos(w)
	return s / w, (1 - c) / w
}

func expSE2(a Tangent) SE2 {
	va, vb := se2V(a[2])
	return NewSE2(va*a[0]-vb*a[1], vb*a[0]+va*a[1], a[2])
}

func logSE2(g SE2) Tangent {
	va, vb := se2V(g.Theta)
	det := va*va + vb*vb
	return Tangent{
		(va*g.X + vb*g.Y) / det,
		(-vb*g.X + va*g.Y) / det,
		g.Theta,
	}
}
