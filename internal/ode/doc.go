// Package ode provides the core types shared by the integration engine.
//
// The package defines the problem side of an initial value problem
// dy/dt = f(t, y):
//
//   - [System]: the primary differential system
//   - [SecondaryEquations]: extra blocks appended to the primary state
//   - [Expandable]: a primary system plus its secondary blocks
//   - [State]: a time stamped state vector with its derivative
//   - [Tolerance]: scalar or per-component error tolerances
//   - [Counter]: the capped derivative evaluation counter
//
// # Example
//
//	sys := problems.NewDecay(1)
//	eq := ode.NewExpandable(sys)
//	y := make([]float64, eq.TotalDimension())
//	_, err := integ.IntegrateExpandable(eq, 0, []float64{1}, 1, y)
//
// # Ownership
//
// Values handed across package boundaries are copies. A [State] returned by
// an interpolator or a mapper may be modified freely by the caller.
package ode
