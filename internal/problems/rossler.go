package problems

// Rossler is the Rössler attractor. The default parameters give the
// single-band chaotic regime.
type Rossler struct{ A, B, C float64 }

func NewRossler() *Rossler                 { return &Rossler{0.2, 0.2, 5.7} }
func (r *Rossler) Name() string            { return "rossler" }
func (r *Rossler) Dimension() int          { return 3 }
func (r *Rossler) DefaultState() []float64 { return []float64{1.0, 1.0, 1.0} }

func (r *Rossler) ComputeDerivatives(t float64, s, sDot []float64) error {
	sDot[0] = -s[1] - s[2]
	sDot[1] = s[0] + r.A*s[1]
	sDot[2] = r.B + s[2]*(s[0]-r.C)
	return nil
}

func (r *Rossler) Params() map[string]float64 {
	return map[string]float64{"a": r.A, "b": r.B, "c": r.C}
}

func (r *Rossler) SetParam(n string, v float64) error {
	switch n {
	case "a":
		r.A = v
	case "b":
		r.B = v
	case "c":
		r.C = v
	default:
		return unknownParam(r.Name(), n)
	}
	return nil
}
