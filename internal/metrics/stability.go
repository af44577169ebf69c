package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Stability is the fraction of observed states whose components all stay
// within threshold and are finite.
type Stability struct {
	observer
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	s := &Stability{
		name:      "stability",
		threshold: threshold,
	}
	s.observer = observer{observe: s.Observe}
	return s
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Init(t0 float64, y0 []float64, t float64) {
	s.Reset()
	s.observer.Init(t0, y0, t)
}

func (s *Stability) Observe(t float64, y []float64) {
	s.samples++
	if floats.HasNaN(y) || floats.Norm(y, math.Inf(1)) > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
