package problems

type Lorenz struct{ Sigma, Rho, Beta float64 }

func NewLorenz() *Lorenz                  { return &Lorenz{10.0, 28.0, 8.0 / 3.0} }
func (l *Lorenz) Name() string            { return "lorenz" }
func (l *Lorenz) Dimension() int          { return 3 }
func (l *Lorenz) DefaultState() []float64 { return []float64{1.0, 1.0, 1.0} }

func (l *Lorenz) ComputeDerivatives(t float64, s, sDot []float64) error {
	sDot[0] = l.Sigma * (s[1] - s[0])
	sDot[1] = s[0]*(l.Rho-s[2]) - s[1]
	sDot[2] = s[0]*s[1] - l.Beta*s[2]
	return nil
}

func (l *Lorenz) Params() map[string]float64 {
	return map[string]float64{"sigma": l.Sigma, "rho": l.Rho, "beta": l.Beta}
}

func (l *Lorenz) SetParam(n string, v float64) error {
	switch n {
	case "sigma":
		l.Sigma = v
	case "rho":
		l.Rho = v
	case "beta":
		l.Beta = v
	default:
		return unknownParam(l.Name(), n)
	}
	return nil
}
