package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns the magnitudes of the non-negative frequency bins of
// data. Any length is accepted.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	coeffs := fft.FFTReal(data)
	ps := make([]float64, len(coeffs)/2+1)

	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i]) / float64(len(data))
	}

	return ps
}

// DominantFrequency returns the frequency of the strongest non-constant
// component of a signal sampled every dt, after removing its mean.
func DominantFrequency(data []float64, dt float64) float64 {
	if len(data) < 2 || !(dt > 0) {
		return 0
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	ps := PowerSpectrum(centered)
	best, peak := 0, 0.0
	for i := 1; i < len(ps); i++ {
		if ps[i] > peak {
			best, peak = i, ps[i]
		}
	}
	if best == 0 {
		return 0
	}
	return float64(best) / (float64(len(data)) * dt)
}

// Period is 1/DominantFrequency, or +Inf for a constant signal.
func Period(data []float64, dt float64) float64 {
	f := DominantFrequency(data, dt)
	if f == 0 {
		return math.Inf(1)
	}
	return 1 / f
}
