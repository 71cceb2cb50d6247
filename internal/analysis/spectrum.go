package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Spectrum returns the one-sided amplitude spectrum of x, sampled every dt
// seconds, and the frequency of each bin in Hz. The mean is removed first so
// the DC bin only holds numerical noise.
func Spectrum(x []float64, dt float64) (freqs, power []float64) {
	if len(x) < 2 || dt <= 0 {
		return nil, nil
	}

	centred := make([]float64, len(x))
	copy(centred, x)
	floats.AddConst(-stat.Mean(x, nil), centred)

	fft := fourier.NewFFT(len(x))
	coeff := fft.Coefficients(nil, centred)

	freqs = make([]float64, len(coeff))
	power = make([]float64, len(coeff))
	for i, c := range coeff {
		freqs[i] = fft.Freq(i) / dt
		power[i] = cmplx.Abs(c)
	}
	return freqs, power
}

// DominantFrequency returns the frequency in Hz carrying the most power,
// ignoring the DC bin, and that power. It returns zeros when x is too short.
func DominantFrequency(x []float64, dt float64) (freq, power float64) {
	freqs, p := Spectrum(x, dt)
	if len(p) < 2 {
		return 0, 0
	}
	i := floats.MaxIdx(p[1:]) + 1
	return freqs[i], p[i]
}
