package sampling

import (
	"math"

	"github.com/san-kum/odekit/internal/ode"
)

// NormalizerMode selects how output times are placed.
type NormalizerMode int

const (
	// Increment places outputs at t0, t0+h, t0+2h, ...
	Increment NormalizerMode = iota
	// Multiples places outputs at integer multiples of h.
	Multiples
)

// NormalizerBounds selects whether the integration end points are reported
// when they do not fall on the grid.
type NormalizerBounds int

const (
	BoundsNeither NormalizerBounds = iota
	BoundsFirst
	BoundsLast
	BoundsBoth
)

func (b NormalizerBounds) first() bool { return b == BoundsFirst || b == BoundsBoth }
func (b NormalizerBounds) last() bool  { return b == BoundsLast || b == BoundsBoth }

// StepNormalizer turns variable integrator steps into fixed size outputs for
// a FixedStepHandler. It holds one output back so that the last one can be
// flagged.
type StepNormalizer struct {
	h       float64
	handler FixedStepHandler
	mode    NormalizerMode
	bounds  NormalizerBounds

	started   bool
	forward   bool
	index     int
	firstTime float64
	lastTime  float64
	lastState ode.State
}

func NewStepNormalizer(h float64, handler FixedStepHandler, mode NormalizerMode, bounds NormalizerBounds) *StepNormalizer {
	return &StepNormalizer{h: math.Abs(h), handler: handler, mode: mode, bounds: bounds}
}

func (n *StepNormalizer) Init(t0 float64, y0 []float64, t float64) {
	n.started = false
	n.index = 0
	n.firstTime = math.NaN()
	n.lastTime = math.NaN()
	n.lastState = ode.State{}
	n.forward = true
	n.handler.Init(t0, y0, t)
}

func (n *StepNormalizer) HandleStep(interp StepInterpolator, isLast bool) error {
	h := n.h
	if !n.started {
		n.started = true
		n.firstTime = interp.PreviousTime()
		n.forward = interp.CurrentTime() >= n.firstTime
		if err := n.store(interp, n.firstTime); err != nil {
			return err
		}
	}
	if !n.forward {
		h = -h
	}

	next := n.next(h)
	for n.inStep(next, interp) {
		if err := n.emit(false); err != nil {
			return err
		}
		if err := n.store(interp, next); err != nil {
			return err
		}
		n.index++
		next = n.next(h)
	}

	if isLast {
		addLast := n.bounds.last() && n.lastTime != interp.CurrentTime()
		if err := n.emit(!addLast); err != nil {
			return err
		}
		if addLast {
			if err := n.store(interp, interp.CurrentTime()); err != nil {
				return err
			}
			return n.emit(true)
		}
	}
	return nil
}

// next is the output time after lastTime. Increment times are computed from
// the first time so that rounding does not accumulate.
func (n *StepNormalizer) next(h float64) float64 {
	if n.mode == Multiples {
		next := (math.Floor(n.lastTime/h) + 1) * h
		if next == n.lastTime {
			next += h
		}
		return next
	}
	return n.firstTime + float64(n.index+1)*h
}

func (n *StepNormalizer) inStep(t float64, interp StepInterpolator) bool {
	if n.forward {
		return t <= interp.CurrentTime()
	}
	return t >= interp.CurrentTime()
}

func (n *StepNormalizer) store(interp StepInterpolator, t float64) error {
	s, err := interp.Interpolate(t)
	if err != nil {
		return err
	}
	n.lastTime = t
	n.lastState = s
	return nil
}

func (n *StepNormalizer) emit(isLast bool) error {
	if !n.bounds.first() && n.lastTime == n.firstTime {
		return nil
	}
	return n.handler.HandleStep(n.lastTime, n.lastState.Y, n.lastState.YDot, isLast)
}
