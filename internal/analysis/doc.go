// Package analysis characterises trajectories produced by the integrators.
//
// The package includes:
//
//   - [PowerSpectrum] and [DominantFrequency]: spectra of uniformly sampled signals
//   - [LyapunovExponent]: largest Lyapunov exponent via trajectory separation
//   - [BifurcationDiagram]: parameter sweep recording local maxima
//   - [NewPhasePortrait]: 2D phase space projection of samples
//   - [GeneratePoincareSection]: section of phase space located by events
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda, err := analysis.LyapunovExponent(integ, sys, y0, 0.1, 100, 1e-8)
//	if err == nil && lambda > 0 {
//	    // System is chaotic
//	}
//
// Event based tools register handlers on the integrator they are given and
// remove them before returning.
package analysis
