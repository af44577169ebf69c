package problems

import "math"

// Decay is exponential decay y' = -Rate y in any dimension.
type Decay struct {
	Rate float64
	Dim  int
}

func NewDecay(rate float64) *Decay {
	return &Decay{Rate: rate, Dim: 1}
}

func (d *Decay) Name() string   { return "decay" }
func (d *Decay) Dimension() int { return d.Dim }

func (d *Decay) ComputeDerivatives(t float64, y, yDot []float64) error {
	if err := checkDimension(d, y); err != nil {
		return err
	}
	for i := range y {
		yDot[i] = -d.Rate * y[i]
	}
	return nil
}

func (d *Decay) DefaultState() []float64 {
	y := make([]float64, d.Dim)
	for i := range y {
		y[i] = 1
	}
	return y
}

func (d *Decay) Exact(t0 float64, y0 []float64, t float64) []float64 {
	f := math.Exp(-d.Rate * (t - t0))
	y := make([]float64, len(y0))
	for i := range y0 {
		y[i] = y0[i] * f
	}
	return y
}

func (d *Decay) Params() map[string]float64 {
	return map[string]float64{"rate": d.Rate}
}

func (d *Decay) SetParam(name string, value float64) error {
	if name != "rate" {
		return unknownParam(d.Name(), name)
	}
	d.Rate = value
	return nil
}
