// Package integrators solves initial value problems for ordinary
// differential equations.
//
// A single driver, [Integrator], runs every method. The method itself is a
// [Stepper] chosen at construction time:
//
//   - embedded Runge-Kutta pairs with adaptive step size control
//     ([NewDormandPrince54], [NewEmbeddedRungeKutta])
//   - fixed step Runge-Kutta methods ([NewClassicalRK4], [NewRungeKutta])
//   - Adams-Bashforth and Adams-Moulton multistep methods in Nordsieck form
//     ([NewAdamsBashforth], [NewAdamsMoulton])
//
// The driver exposes every accepted step to the registered step handlers
// through a dense output interpolator and resolves event handlers on it,
// truncating steps at event times.
//
// # Example
//
//	integ, _ := integrators.NewDormandPrince54(1e-8, 100, 1e-10, 1e-10)
//	integ.AddStepHandler(sampling.NewStepNormalizer(0.1, printer, sampling.Increment, sampling.BoundsBoth))
//	y := make([]float64, sys.Dimension())
//	t, err := integ.Integrate(sys, 0, y0, 10, y)
//
// # Thread Safety
//
// An Integrator runs one trajectory at a time and is not safe for
// concurrent use. Use one instance per goroutine.
package integrators
