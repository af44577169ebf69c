package problems

// VanDerPol implements the Van der Pol oscillator.
// State: [x, y] where y = dx/dt
// Equations:
//
//	dx/dt = y
//	dy/dt = μ(1 - x²)y - x
type VanDerPol struct {
	Mu float64 // nonlinearity, stiff for large values
}

func NewVanDerPol() *VanDerPol {
	return &VanDerPol{Mu: 1.0}
}

func (v *VanDerPol) Name() string   { return "vanderpol" }
func (v *VanDerPol) Dimension() int { return 2 }

func (v *VanDerPol) ComputeDerivatives(t float64, y, yDot []float64) error {
	x, dx := y[0], y[1]
	yDot[0] = dx
	yDot[1] = v.Mu*(1-x*x)*dx - x
	return nil
}

func (v *VanDerPol) DefaultState() []float64 { return []float64{2.0, 0.0} }

func (v *VanDerPol) Params() map[string]float64 {
	return map[string]float64{"mu": v.Mu}
}

func (v *VanDerPol) SetParam(name string, value float64) error {
	if name != "mu" {
		return unknownParam(v.Name(), name)
	}
	v.Mu = value
	return nil
}
