package lie

import "math"

// SO3 is a 3D rotation stored as a unit quaternion. The zero value is read as
// the identity. Tangent vectors are body-frame rotation vectors.
type SO3 struct {
	W, X, Y, Z float64
}

// NewSO3 normalizes the quaternion (w, x, y, z).
func NewSO3(w, x, y, z float64) SO3 {
	n := math.Sqrt(w*w + x*x + y*y + z*z)
	if n == 0 {
		return SO3{W: 1}
	}
	return SO3{W: w / n, X: x / n, Y: y / n, Z: z / n}
}

func (SO3) Identity() SO3 { return SO3{W: 1} }
func (SO3) Dof() int      { return 3 }

func (r SO3) quat() SO3 {
	if r == (SO3{}) {
		return SO3{W: 1}
	}
	return r
}

func (r SO3) Compose(h SO3) SO3 {
	a, b := r.quat(), h.quat()
	return NewSO3(
		a.W*b.W-a.X*b.X-a.Y*b.Y-a.Z*b.Z,
		a.W*b.X+a.X*b.W+a.Y*b.Z-a.Z*b.Y,
		a.W*b.Y-a.X*b.Z+a.Y*b.W+a.Z*b.X,
		a.W*b.Z+a.X*b.Y-a.Y*b.X+a.Z*b.W,
	)
}

func (r SO3) Inverse() SO3 {
	q := r.quat()
	return SO3{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

func (r SO3) Minus(h SO3) Tangent {
	return logSO3(h.Inverse().Compose(r))
}

func (r SO3) Plus(a Tangent) SO3 {
	mustMatch(a, Tangent{0, 0, 0})
	return r.Compose(expSO3(a))
}

// Rotate applies the rotation to a vector.
func (r SO3) Rotate(v [3]float64) [3]float64 {
	p := SO3{X: v[0], Y: v[1], Z: v[2]}
	q := r.quat()
	a, b := q, p
	m := SO3{
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
	}
	c := q.Inverse()
	return [3]float64{
		m.W*c.X + m.X*c.W + m.Y*c.Z - m.Z*c.Y,
		m.W*c.Y - m.X*c.Z + m.Y*c.W + m.Z*c.X,
		m.W*c.Z + m.X*c.Y - m.Y*c.X + m.Z*c.W,
	}
}

func expSO3(a Tangent) SO3 {
	th := math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])
	if th < smallAngle {
		return NewSO3(1, a[0]/2, a[1]/2, a[2]/2)
	}
	s, c := math.Sincos(th / 2)
	k := s / th
	return SO3{W: c, X: k * a[0], Y: k * a[1], Z: k * a[2]}
}

func logSO3(q SO3) Tangent {
	// q and -q are the same rotation; take the short way round.
	if q.W < 0 {
		q = SO3{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
	}
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n < smallAngle {
		return Tangent{2 * q.X / q.W, 2 * q.Y / q.W, 2 * q.Z / q.W}
	}
	k := 2 * math.Atan2(n, q.W) / n
	return Tangent{k * q.X, k * q.Y, k * q.Z}
}
