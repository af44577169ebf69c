package problems

import "math"

// Duffing implements a nonlinear forced oscillator. The forcing depends on
// t directly.
// State: [x, v].
type Duffing struct {
	Alpha, Beta, Delta, Gamma, Omega float64
}

func NewDuffing() *Duffing {
	return &Duffing{-1.0, 1.0, 0.3, 0.5, 1.2}
}

func (d *Duffing) Name() string            { return "duffing" }
func (d *Duffing) Dimension() int          { return 2 }
func (d *Duffing) DefaultState() []float64 { return []float64{1.0, 0.0} }

func (d *Duffing) ComputeDerivatives(t float64, y, yDot []float64) error {
	x, v := y[0], y[1]
	yDot[0] = v
	yDot[1] = -d.Delta*v - d.Alpha*x - d.Beta*x*x*x + d.Gamma*math.Cos(d.Omega*t)
	return nil
}

func (d *Duffing) Params() map[string]float64 {
	return map[string]float64{"alpha": d.Alpha, "beta": d.Beta, "delta": d.Delta, "gamma": d.Gamma, "omega": d.Omega}
}

func (d *Duffing) SetParam(n string, v float64) error {
	switch n {
	case "alpha":
		d.Alpha = v
	case "beta":
		d.Beta = v
	case "delta":
		d.Delta = v
	case "gamma":
		d.Gamma = v
	case "omega":
		d.Omega = v
	default:
		return unknownParam(d.Name(), n)
	}
	return nil
}
