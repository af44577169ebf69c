package sampling

// Hermite is the cubic Hermite kernel built from the states and derivatives
// at both ends of the step. It is third order and needs no stage data.
type Hermite struct{}

func (Hermite) Compute(s *Step, t, theta, oneMinusThetaH float64, state, derivative []float64) {
	h := s.H()
	theta2 := theta * theta
	theta3 := theta2 * theta

	// basis functions and their derivatives with respect to theta
	h00 := 2*theta3 - 3*theta2 + 1
	h10 := theta3 - 2*theta2 + theta
	h01 := -2*theta3 + 3*theta2
	h11 := theta3 - theta2

	d00 := 6*theta2 - 6*theta
	d10 := 3*theta2 - 4*theta + 1
	d01 := -6*theta2 + 6*theta
	d11 := 3*theta2 - 2*theta

	for k := range state {
		y0, y1 := s.PreviousState[k], s.CurrentState[k]
		f0, f1 := s.PreviousDerivative[k], s.CurrentDerivative[k]
		state[k] = h00*y0 + h*h10*f0 + h01*y1 + h*h11*f1
		if h != 0 {
			derivative[k] = (d00*y0+d01*y1)/h + d10*f0 + d11*f1
		} else {
			derivative[k] = f0
		}
	}
}
