package problems

import (
	"fmt"

	"github.com/san-kum/odekit/internal/ode"
)

// Problem is a named system with tunable parameters.
type Problem interface {
	ode.System
	Name() string
	DefaultState() []float64
	Params() map[string]float64
	SetParam(name string, value float64) error
}

func unknownParam(problem, name string) error {
	return fmt.Errorf("unknown param for %s: %s", problem, name)
}

func checkDimension(p ode.System, y []float64) error {
	if len(y) != p.Dimension() {
		return fmt.Errorf("%w: got %d components, expected %d", ode.ErrDimensionMismatch, len(y), p.Dimension())
	}
	return nil
}
