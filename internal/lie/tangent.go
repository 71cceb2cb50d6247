package lie

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Tangent is a vector in the tangent space of a group. Operations return new
// vectors and never alias their receiver.
type Tangent []float64

func Zeros(n int) Tangent {
	return make(Tangent, n)
}

func Ones(n int) Tangent {
	return Constant(n, 1)
}

func Constant(n int, c float64) Tangent {
	t := make(Tangent, n)
	for i := range t {
		t[i] = c
	}
	return t
}

func (t Tangent) Dim() int { return len(t) }

func (t Tangent) Clone() Tangent {
	c := make(Tangent, len(t))
	copy(c, t)
	return c
}

func (t Tangent) Add(other Tangent) Tangent {
	mustMatch(t, other)
	r := make(Tangent, len(t))
	floats.AddTo(r, t, other)
	return r
}

func (t Tangent) Sub(other Tangent) Tangent {
	mustMatch(t, other)
	r := make(Tangent, len(t))
	floats.SubTo(r, t, other)
	return r
}

// AddScaled returns t + alpha*other.
func (t Tangent) AddScaled(alpha float64, other Tangent) Tangent {
	mustMatch(t, other)
	r := t.Clone()
	floats.AddScaled(r, alpha, other)
	return r
}

func (t Tangent) Scale(c float64) Tangent {
	r := make(Tangent, len(t))
	floats.ScaleTo(r, c, t)
	return r
}

// Mul is the componentwise (Hadamard) product.
func (t Tangent) Mul(other Tangent) Tangent {
	mustMatch(t, other)
	r := make(Tangent, len(t))
	floats.MulTo(r, t, other)
	return r
}

// Clamp limits every component to [lo, hi].
func (t Tangent) Clamp(lo, hi float64) Tangent {
	r := make(Tangent, len(t))
	for i, v := range t {
		r[i] = math.Min(math.Max(v, lo), hi)
	}
	return r
}

func (t Tangent) Norm() float64 {
	if len(t) == 0 {
		return 0
	}
	return floats.Norm(t, 2)
}

func (t Tangent) IsValid() bool {
	for _, v := range t {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Equal reports whether t and other agree componentwise within tol.
func (t Tangent) Equal(other Tangent, tol float64) bool {
	if len(t) != len(other) {
		return false
	}
	return floats.EqualApprox(t, other, tol)
}

// CheckDim returns an error wrapping ErrDimensionMismatch when t does not have
// n components.
func (t Tangent) CheckDim(n int) error {
	if len(t) != n {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(t), n)
	}
	return nil
}

func mustMatch(a, b Tangent) {
	if len(a) != len(b) {
		panic(fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b)))
	}
}
