// Package problems provides reference initial value problems.
//
// Each problem implements [ode.System] and [Problem]:
//
//   - [Decay]: y' = -k y, with its exact solution
//   - [SpringMass]: damped linear oscillator, exact and Hamiltonian when undamped
//   - [Pendulum]: nonlinear pendulum
//   - [VanDerPol]: relaxation oscillator
//   - [Lorenz]: butterfly attractor
//   - [Duffing]: forced nonlinear oscillator
//   - [BouncingBall]: free fall with a reset event at the ground
//   - [Kepler]: two body orbit, exact through Kepler's equation
//
// # Energy Conservation
//
// Conservative problems implement [ode.Hamiltonian] so that energy drift can
// be monitored while integrating:
//
//	p := problems.NewKepler(0.5)
//	if h, ok := p.(ode.Hamiltonian); ok {
//	    energy := h.Energy(y)
//	}
package problems
