package problems

import "math"

const (
	DefaultMass      = 1.0
	DefaultStiffness = 10.0
	DefaultDamping   = 0.5
)

// SpringMass is a single damped mass on a spring.
// State: [x, v].
type SpringMass struct {
	Mass      float64
	Stiffness float64
	Damping   float64
}

func NewSpringMass() *SpringMass {
	return &SpringMass{
		Mass:      DefaultMass,
		Stiffness: DefaultStiffness,
		Damping:   DefaultDamping,
	}
}

func (s *SpringMass) Name() string   { return "spring" }
func (s *SpringMass) Dimension() int { return 2 }

func (s *SpringMass) ComputeDerivatives(t float64, y, yDot []float64) error {
	yDot[0] = y[1]
	yDot[1] = (-s.Stiffness*y[0] - s.Damping*y[1]) / s.Mass
	return nil
}

func (s *SpringMass) DefaultState() []float64 { return []float64{1, 0} }

func (s *SpringMass) Energy(y []float64) float64 {
	return 0.5*s.Mass*y[1]*y[1] + 0.5*s.Stiffness*y[0]*y[0]
}

// Exact is the closed form solution of the underdamped oscillator. It
// returns nil for critical and over damping.
func (s *SpringMass) Exact(t0 float64, y0 []float64, t float64) []float64 {
	w0 := math.Sqrt(s.Stiffness / s.Mass)
	zeta := s.Damping / (2 * math.Sqrt(s.Stiffness*s.Mass))
	if zeta >= 1 {
		return nil
	}
	wd := w0 * math.Sqrt(1-zeta*zeta)
	sigma := zeta * w0
	x0, v0 := y0[0], y0[1]
	a := x0
	b := (v0 + sigma*x0) / wd

	dt := t - t0
	e := math.Exp(-sigma * dt)
	c, sn := math.Cos(wd*dt), math.Sin(wd*dt)
	x := e * (a*c + b*sn)
	v := e * (-sigma*(a*c+b*sn) + wd*(-a*sn+b*c))
	return []float64{x, v}
}

func (s *SpringMass) Params() map[string]float64 {
	return map[string]float64{
		"mass":      s.Mass,
		"stiffness": s.Stiffness,
		"damping":   s.Damping,
	}
}

func (s *SpringMass) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		s.Mass = value
	case "stiffness":
		s.Stiffness = value
	case "damping":
		s.Damping = value
	default:
		return unknownParam(s.Name(), name)
	}
	return nil
}
