package ode

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Vector is a state or derivative vector.
type Vector []float64

func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (v Vector) Norm() float64 {
	return floats.Norm(v, 2)
}

// State is a point of a trajectory. YDot is nil when the derivative is not
// known.
type State struct {
	Time float64
	Y    Vector
	YDot Vector
}

func NewState(t float64, y, yDot []float64) State {
	return State{Time: t, Y: Vector(y).Clone(), YDot: Vector(yDot).Clone()}
}

func (s State) Clone() State {
	return State{Time: s.Time, Y: s.Y.Clone(), YDot: s.YDot.Clone()}
}

func (s State) Dimension() int {
	return len(s.Y)
}

// System is the primary differential system dy/dt = f(t, y).
//
// ComputeDerivatives must be a pure function of (t, y). Any error it returns
// aborts the integration and reaches the caller unchanged.
type System interface {
	Dimension() int
	ComputeDerivatives(t float64, y, yDot []float64) error
}

// SecondaryEquations extends a primary system with additional components
// that may depend on the primary state but do not feed back into it.
type SecondaryEquations interface {
	Dimension() int
	ComputeDerivatives(t float64, primary, primaryDot, secondary, secondaryDot []float64) error
}

// Hamiltonian is implemented by systems with a conserved energy.
type Hamiltonian interface {
	Energy(y []float64) float64
}

// Solution is implemented by systems with a closed form solution.
type Solution interface {
	Exact(t0 float64, y0 []float64, t float64) []float64
}

// SystemFunc adapts a plain function to the System interface.
type SystemFunc struct {
	Dim int
	F   func(t float64, y, yDot []float64) error
}

func (s SystemFunc) Dimension() int { return s.Dim }

func (s SystemFunc) ComputeDerivatives(t float64, y, yDot []float64) error {
	return s.F(t, y, yDot)
}
