package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/odekit/internal/sampling"
)

// StepSizes records the magnitude of every accepted step. Event truncation
// splits a step into the parts reported to handlers.
type StepSizes struct {
	sizes []float64
}

func NewStepSizes() *StepSizes { return &StepSizes{} }

func (s *StepSizes) Name() string { return "mean_step" }

func (s *StepSizes) Init(t0 float64, y0 []float64, t float64) { s.Reset() }

func (s *StepSizes) HandleStep(interp sampling.StepInterpolator, isLast bool) error {
	s.sizes = append(s.sizes, math.Abs(interp.CurrentTime()-interp.PreviousTime()))
	return nil
}

func (s *StepSizes) Value() float64 {
	if len(s.sizes) == 0 {
		return 0
	}
	return stat.Mean(s.sizes, nil)
}

func (s *StepSizes) Count() int { return len(s.sizes) }

func (s *StepSizes) Min() float64 {
	if len(s.sizes) == 0 {
		return 0
	}
	return floats.Min(s.sizes)
}

func (s *StepSizes) Max() float64 {
	if len(s.sizes) == 0 {
		return 0
	}
	return floats.Max(s.sizes)
}

func (s *StepSizes) StdDev() float64 {
	if len(s.sizes) < 2 {
		return 0
	}
	return stat.StdDev(s.sizes, nil)
}

// Sizes returns a copy of the recorded step sizes.
func (s *StepSizes) Sizes() []float64 {
	return append([]float64(nil), s.sizes...)
}

func (s *StepSizes) Reset() { s.sizes = s.sizes[:0] }
