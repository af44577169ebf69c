package ode

import (
	"fmt"
	"math"
)

// Tolerance holds absolute and relative error tolerances, either as scalars
// or per component.
type Tolerance struct {
	Absolute float64
	Relative float64

	AbsoluteVector []float64
	RelativeVector []float64
}

func ScalarTolerance(abs, rel float64) Tolerance {
	return Tolerance{Absolute: abs, Relative: rel}
}

func VectorTolerance(abs, rel []float64) Tolerance {
	return Tolerance{
		AbsoluteVector: Vector(abs).Clone(),
		RelativeVector: Vector(rel).Clone(),
	}
}

func (t Tolerance) IsVector() bool {
	return t.AbsoluteVector != nil || t.RelativeVector != nil
}

// Validate checks the tolerances against the dimension of the controlled
// block.
func (t Tolerance) Validate(dim int) error {
	if !t.IsVector() {
		if !(t.Absolute > 0) || !(t.Relative > 0) {
			return fmt.Errorf("%w: abs=%g rel=%g", ErrInvalidTolerance, t.Absolute, t.Relative)
		}
		return nil
	}
	if len(t.AbsoluteVector) != dim || len(t.RelativeVector) != dim {
		return fmt.Errorf("%w: %d/%d components for dimension %d",
			ErrInvalidTolerance, len(t.AbsoluteVector), len(t.RelativeVector), dim)
	}
	for i := range t.AbsoluteVector {
		if !(t.AbsoluteVector[i] > 0) || !(t.RelativeVector[i] > 0) {
			return fmt.Errorf("%w: component %d abs=%g rel=%g",
				ErrInvalidTolerance, i, t.AbsoluteVector[i], t.RelativeVector[i])
		}
	}
	return nil
}

// Scale returns atol[i] + rtol[i]*|y|.
func (t Tolerance) Scale(i int, y float64) float64 {
	if t.IsVector() {
		return t.AbsoluteVector[i] + t.RelativeVector[i]*math.Abs(y)
	}
	return t.Absolute + t.Relative*math.Abs(y)
}
