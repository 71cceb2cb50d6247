package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// tailFraction is the share of samples averaged into the steady-state error.
const tailFraction = 0.1

// Response summarizes how a tracking error magnitude decays.
type Response struct {
	InitialError float64
	PeakError    float64
	PeakTime     float64

	// RiseTime is the time taken to fall from 90% to 10% of the initial
	// error, NaN if the error never gets there.
	RiseTime float64

	// SettlingTime is the first time after which the error stays inside the
	// band, NaN if it never settles.
	SettlingTime float64
	Settled      bool

	SteadyStateError float64
}

// StepResponse analyses the error magnitudes e sampled at times ts. band is
// the settling tolerance as a fraction of the initial error; when the initial
// error is zero the band is absolute.
func StepResponse(ts, e []float64, band float64) Response {
	r := Response{RiseTime: math.NaN(), SettlingTime: math.NaN()}
	if len(e) == 0 || len(ts) != len(e) {
		return r
	}

	r.InitialError = e[0]
	peak := floats.MaxIdx(e)
	r.PeakError = e[peak]
	r.PeakTime = ts[peak]

	tol := band * r.InitialError
	if r.InitialError == 0 {
		tol = band
	}

	// Walk backwards to the last sample outside the band.
	last := -1
	for i := len(e) - 1; i >= 0; i-- {
		if e[i] > tol {
			last = i
			break
		}
	}
	switch {
	case last == -1:
		r.Settled, r.SettlingTime = true, ts[0]
	case last < len(e)-1:
		r.Settled, r.SettlingTime = true, ts[last+1]
	}

	if r.InitialError > 0 {
		hi, lo := -1, -1
		for i, v := range e {
			if hi == -1 && v <= 0.9*r.InitialError {
				hi = i
			}
			if v <= 0.1*r.InitialError {
				lo = i
				break
			}
		}
		if hi != -1 && lo != -1 {
			r.RiseTime = ts[lo] - ts[hi]
		}
	}

	n := int(math.Ceil(tailFraction * float64(len(e))))
	r.SteadyStateError = stat.Mean(e[len(e)-n:], nil)
	return r
}

// Rate returns the finite-difference derivative of x sampled at ts. The first
// entry uses a forward difference, the rest backward differences.
func Rate(ts, x []float64) []float64 {
	d := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		if dt := ts[i] - ts[i-1]; dt > 0 {
			d[i] = (x[i] - x[i-1]) / dt
		}
	}
	if len(x) > 1 {
		d[0] = d[1]
	}
	return d
}
