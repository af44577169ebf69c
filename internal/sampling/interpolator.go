// Package sampling exposes accepted integration steps to the outside world:
// dense output interpolators, step handlers and the adapters built on them.
package sampling

import (
	"fmt"
	"math"

	"github.com/san-kum/odekit/internal/ode"
)

// softMargin widens the hard step range for event root probing.
const softMargin = 1e-2

// StepInterpolator gives access to the solution over one accepted step.
// Handlers must not keep it after HandleStep returns; use Copy instead.
type StepInterpolator interface {
	// PreviousTime and CurrentTime bound the part of the step being
	// reported. They differ from the global bounds while events truncate
	// the step.
	PreviousTime() float64
	CurrentTime() float64
	GlobalPreviousTime() float64
	GlobalCurrentTime() float64
	IsForward() bool
	Interpolate(t float64) (ode.State, error)
	Copy() StepInterpolator
}

// Step is the raw data of one accepted step.
type Step struct {
	PreviousTime       float64
	CurrentTime        float64
	PreviousState      []float64
	PreviousDerivative []float64
	CurrentState       []float64
	CurrentDerivative  []float64
}

func (s *Step) H() float64 {
	return s.CurrentTime - s.PreviousTime
}

// Kernel evaluates the method specific dense output formula. theta is the
// normalised position in the step and oneMinusThetaH is tCur-t. Kernels are
// immutable once built, so copies of an interpolator may share them.
type Kernel interface {
	Compute(s *Step, t, theta, oneMinusThetaH float64, state, derivative []float64)
}

// Interpolator is the StepInterpolator shared by all steppers.
type Interpolator struct {
	step    Step
	kernel  Kernel
	forward bool

	softPreviousTime float64
	softCurrentTime  float64

	cacheValid       bool
	cacheTime        float64
	cacheState       []float64
	cacheDerivatives []float64
}

func NewInterpolator() *Interpolator {
	return &Interpolator{}
}

// Reset installs a new step. The slices are copied.
func (i *Interpolator) Reset(kernel Kernel, forward bool, t0 float64, y0, yDot0 []float64, t1 float64, y1, yDot1 []float64) {
	i.kernel = kernel
	i.forward = forward
	i.step.PreviousTime = t0
	i.step.CurrentTime = t1
	i.step.PreviousState = copyInto(i.step.PreviousState, y0)
	i.step.PreviousDerivative = copyInto(i.step.PreviousDerivative, yDot0)
	i.step.CurrentState = copyInto(i.step.CurrentState, y1)
	i.step.CurrentDerivative = copyInto(i.step.CurrentDerivative, yDot1)
	i.softPreviousTime = t0
	i.softCurrentTime = t1
	i.cacheValid = false
}

func copyInto(dst, src []float64) []float64 {
	if cap(dst) < len(src) {
		dst = make([]float64, len(src))
	}
	dst = dst[:len(src)]
	copy(dst, src)
	return dst
}

func (i *Interpolator) PreviousTime() float64       { return i.softPreviousTime }
func (i *Interpolator) CurrentTime() float64        { return i.softCurrentTime }
func (i *Interpolator) GlobalPreviousTime() float64 { return i.step.PreviousTime }
func (i *Interpolator) GlobalCurrentTime() float64  { return i.step.CurrentTime }
func (i *Interpolator) IsForward() bool             { return i.forward }

func (i *Interpolator) SetSoftPreviousTime(t float64) { i.softPreviousTime = t }
func (i *Interpolator) SetSoftCurrentTime(t float64)  { i.softCurrentTime = t }

// CurrentState returns a copy of the accepted state at the end of the step.
func (i *Interpolator) CurrentState() ode.State {
	return ode.NewState(i.step.CurrentTime, i.step.CurrentState, i.step.CurrentDerivative)
}

func (i *Interpolator) PreviousState() ode.State {
	return ode.NewState(i.step.PreviousTime, i.step.PreviousState, i.step.PreviousDerivative)
}

func (i *Interpolator) Dimension() int {
	return len(i.step.CurrentState)
}

// Interpolate returns the state and derivative at t. The step end points
// return the accepted values exactly.
func (i *Interpolator) Interpolate(t float64) (ode.State, error) {
	s := &i.step
	switch t {
	case s.PreviousTime:
		return ode.NewState(t, s.PreviousState, s.PreviousDerivative), nil
	case s.CurrentTime:
		return ode.NewState(t, s.CurrentState, s.CurrentDerivative), nil
	}

	h := s.H()
	lo, hi := math.Min(s.PreviousTime, s.CurrentTime), math.Max(s.PreviousTime, s.CurrentTime)
	margin := softMargin * math.Abs(h)
	if !(t >= lo-margin && t <= hi+margin) {
		return ode.State{}, fmt.Errorf("%w: t=%g not in [%g, %g]", ode.ErrOutsideStep, t, lo, hi)
	}

	if !i.cacheValid || i.cacheTime != t {
		n := len(s.CurrentState)
		if len(i.cacheState) != n {
			i.cacheState = make([]float64, n)
			i.cacheDerivatives = make([]float64, n)
		}
		theta := 0.0
		if h != 0 {
			theta = (t - s.PreviousTime) / h
		}
		i.kernel.Compute(s, t, theta, s.CurrentTime-t, i.cacheState, i.cacheDerivatives)
		i.cacheTime = t
		i.cacheValid = true
	}
	return ode.NewState(t, i.cacheState, i.cacheDerivatives), nil
}

// Copy returns an independent interpolator for the same step.
func (i *Interpolator) Copy() StepInterpolator {
	return i.Clone()
}

func (i *Interpolator) Clone() *Interpolator {
	c := &Interpolator{
		kernel:           i.kernel,
		forward:          i.forward,
		softPreviousTime: i.softPreviousTime,
		softCurrentTime:  i.softCurrentTime,
	}
	c.step = Step{
		PreviousTime:       i.step.PreviousTime,
		CurrentTime:        i.step.CurrentTime,
		PreviousState:      ode.Vector(i.step.PreviousState).Clone(),
		PreviousDerivative: ode.Vector(i.step.PreviousDerivative).Clone(),
		CurrentState:       ode.Vector(i.step.CurrentState).Clone(),
		CurrentDerivative:  ode.Vector(i.step.CurrentDerivative).Clone(),
	}
	return c
}
