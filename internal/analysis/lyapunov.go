package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/odekit/internal/integrators"
	"github.com/san-kum/odekit/internal/ode"
)

// LyapunovExponent estimates the largest Lyapunov exponent using the
// trajectory separation method. A positive value indicates chaos.
//
// Algorithm:
// 1. Run two nearby trajectories over windows of length dt
// 2. Measure their divergence at the end of each window
// 3. Renormalise the separation back to perturbation
// 4. λ ≈ Σ ln(|δy|/δ0) / t
func LyapunovExponent(
	integ *integrators.Integrator,
	sys ode.System,
	y0 []float64,
	dt, duration float64,
	perturbation float64,
) (float64, error) {
	if len(y0) == 0 || !(dt > 0) || !(duration > 0) || !(perturbation > 0) {
		return 0, fmt.Errorf("%w: lyapunov dt=%g duration=%g perturbation=%g",
			ode.ErrInvalidConfig, dt, duration, perturbation)
	}

	perturbed := ode.Vector(y0).Clone()
	perturbed[0] += perturbation
	return separationRate(integ, sys, y0, perturbed, dt, duration, perturbation)
}

// LyapunovSpectrum computes one separation rate per state component by
// perturbing each component independently.
func LyapunovSpectrum(
	integ *integrators.Integrator,
	sys ode.System,
	y0 []float64,
	dt, duration float64,
	perturbation float64,
) ([]float64, error) {
	spectrum := make([]float64, len(y0))

	for i := range y0 {
		perturbed := ode.Vector(y0).Clone()
		perturbed[i] += perturbation

		rate, err := separationRate(integ, sys, y0, perturbed, dt, duration, perturbation)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		spectrum[i] = rate
	}

	return spectrum, nil
}

func separationRate(
	integ *integrators.Integrator,
	sys ode.System,
	y0, y0p []float64,
	dt, duration, d0 float64,
) (float64, error) {
	y := ode.Vector(y0).Clone()
	yp := ode.Vector(y0p).Clone()
	next := make([]float64, len(y))
	nextP := make([]float64, len(y))

	t := 0.0
	sumLog := 0.0

	for t < duration {
		tEnd := math.Min(t+dt, duration)
		if _, err := integ.Integrate(sys, t, y, tEnd, next); err != nil {
			return 0, err
		}
		if _, err := integ.Integrate(sys, t, yp, tEnd, nextP); err != nil {
			return 0, err
		}
		copy(y, next)
		copy(yp, nextP)
		t = tEnd

		sep := floats.Distance(yp, y, 2)
		if sep > 0 {
			sumLog += math.Log(sep / d0)

			// Renormalize to keep the perturbation in the linear regime
			scale := d0 / sep
			for i := range yp {
				yp[i] = y[i] + (yp[i]-y[i])*scale
			}
		}
	}

	return sumLog / t, nil
}
