package ode

import "fmt"

// EquationsMapper locates one block of equations inside the complete state
// vector.
type EquationsMapper struct {
	Start     int
	Dimension int
}

// Extract returns a copy of the block.
func (m EquationsMapper) Extract(complete []float64) []float64 {
	out := make([]float64, m.Dimension)
	copy(out, complete[m.Start:m.Start+m.Dimension])
	return out
}

// Insert copies eq into its place in complete.
func (m EquationsMapper) Insert(eq, complete []float64) error {
	if len(eq) != m.Dimension {
		return fmt.Errorf("%w: block has %d components, got %d", ErrDimensionMismatch, m.Dimension, len(eq))
	}
	if len(complete) < m.Start+m.Dimension {
		return fmt.Errorf("%w: complete vector too short (%d)", ErrDimensionMismatch, len(complete))
	}
	copy(complete[m.Start:], eq)
	return nil
}

func (m EquationsMapper) slice(v []float64) []float64 {
	return v[m.Start : m.Start+m.Dimension]
}

// Expandable is a primary system with secondary blocks appended to its state.
// Error control only looks at the primary block.
type Expandable struct {
	primary   System
	mappers   []EquationsMapper
	secondary []SecondaryEquations
}

func NewExpandable(primary System) *Expandable {
	return &Expandable{
		primary: primary,
		mappers: []EquationsMapper{{Start: 0, Dimension: primary.Dimension()}},
	}
}

// AddSecondary appends a block and returns its index for SecondaryMapper.
func (e *Expandable) AddSecondary(s SecondaryEquations) int {
	last := e.mappers[len(e.mappers)-1]
	e.mappers = append(e.mappers, EquationsMapper{Start: last.Start + last.Dimension, Dimension: s.Dimension()})
	e.secondary = append(e.secondary, s)
	return len(e.secondary) - 1
}

func (e *Expandable) Primary() System { return e.primary }

func (e *Expandable) PrimaryMapper() EquationsMapper { return e.mappers[0] }

func (e *Expandable) SecondaryMapper(i int) EquationsMapper { return e.mappers[i+1] }

func (e *Expandable) SecondaryCount() int { return len(e.secondary) }

// Dimension is the size of the primary block.
func (e *Expandable) Dimension() int { return e.mappers[0].Dimension }

func (e *Expandable) TotalDimension() int {
	last := e.mappers[len(e.mappers)-1]
	return last.Start + last.Dimension
}

// ComputeDerivatives evaluates all blocks on the complete vectors.
func (e *Expandable) ComputeDerivatives(t float64, y, yDot []float64) error {
	if len(y) != e.TotalDimension() || len(yDot) != e.TotalDimension() {
		return fmt.Errorf("%w: expected %d components, got %d", ErrDimensionMismatch, e.TotalDimension(), len(y))
	}
	pm := e.mappers[0]
	primary, primaryDot := pm.slice(y), pm.slice(yDot)
	if err := e.primary.ComputeDerivatives(t, primary, primaryDot); err != nil {
		return err
	}
	for i, s := range e.secondary {
		m := e.mappers[i+1]
		if err := s.ComputeDerivatives(t, primary, primaryDot, m.slice(y), m.slice(yDot)); err != nil {
			return err
		}
	}
	return nil
}
