package integrators

import (
	"fmt"
	"math"

	"github.com/go-logr/logr"

	"github.com/san-kum/odekit/internal/events"
	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/sampling"
)

// Stepper advances the solution one accepted step at a time. Steppers keep
// their own state between calls and evaluate the system only through ctx.
type Stepper interface {
	Name() string
	Order() int
	// Init prepares a run from (t0, y0) towards tEnd.
	Init(ctx *Context, t0 float64, y0 []float64, tEnd float64) error
	// Step performs one accepted step, never passing tEnd. The returned
	// interpolator stays valid until the next call.
	Step(ctx *Context, tEnd float64) (*sampling.Interpolator, error)
	// Resume continues from (t, y, yDot) after the driver accepted a step,
	// possibly truncated by an event. restart is set when an event changed
	// the state or the derivatives.
	Resume(ctx *Context, t float64, y, yDot []float64, restart bool, tEnd float64) error
}

// Integrator drives a Stepper over an interval, feeding step handlers and
// resolving events.
type Integrator struct {
	stepper        Stepper
	stepHandlers   []sampling.StepHandler
	eventStates    []*events.State
	maxEvaluations int
	evaluations    *ode.Counter
	stats          Statistics
	logger         logr.Logger
}

func New(s Stepper) *Integrator {
	return &Integrator{
		stepper:     s,
		evaluations: ode.NewCounter(0),
		logger:      logr.Discard(),
	}
}

func (in *Integrator) Name() string { return in.stepper.Name() }

func (in *Integrator) Order() int { return in.stepper.Order() }

func (in *Integrator) Stepper() Stepper { return in.stepper }

// SetLogger installs the logger. Events and restarts log at V(1), accepted
// steps at V(2).
func (in *Integrator) SetLogger(l logr.Logger) {
	in.logger = l
}

func (in *Integrator) AddStepHandler(h sampling.StepHandler) {
	in.stepHandlers = append(in.stepHandlers, h)
}

func (in *Integrator) StepHandlers() []sampling.StepHandler {
	return append([]sampling.StepHandler(nil), in.stepHandlers...)
}

func (in *Integrator) ClearStepHandlers() {
	in.stepHandlers = nil
}

func (in *Integrator) AddEventHandler(h events.Handler, cfg events.Config) error {
	s, err := events.NewState(h, cfg)
	if err != nil {
		return err
	}
	in.eventStates = append(in.eventStates, s)
	return nil
}

func (in *Integrator) EventHandlers() []events.Handler {
	hs := make([]events.Handler, len(in.eventStates))
	for i, s := range in.eventStates {
		hs[i] = s.Handler()
	}
	return hs
}

// EventStates exposes the per handler records of the last run.
func (in *Integrator) EventStates() []*events.State {
	return append([]*events.State(nil), in.eventStates...)
}

func (in *Integrator) ClearEventHandlers() {
	in.eventStates = nil
}

// RemoveEventHandler drops every registration of h. Handlers are compared
// with ==, so h must have a comparable dynamic type.
func (in *Integrator) RemoveEventHandler(h events.Handler) {
	kept := in.eventStates[:0]
	for _, s := range in.eventStates {
		if s.Handler() != h {
			kept = append(kept, s)
		}
	}
	in.eventStates = kept
}

// SetMaxEvaluations caps the derivative evaluations of one run. A non
// positive value removes the cap.
func (in *Integrator) SetMaxEvaluations(max int) {
	in.maxEvaluations = max
}

func (in *Integrator) MaxEvaluations() int { return in.maxEvaluations }

// Evaluations is the number of derivative evaluations of the last run.
func (in *Integrator) Evaluations() int { return in.evaluations.Count() }

func (in *Integrator) Statistics() Statistics {
	s := in.stats
	s.Evaluations = in.evaluations.Count()
	return s
}

// Integrate solves sys from (t0, y0) to t and stores the final state in y.
// It returns the time actually reached, which is earlier than t when an
// event stopped the integration. y0 and y may be the same slice.
func (in *Integrator) Integrate(sys ode.System, t0 float64, y0 []float64, t float64, y []float64) (float64, error) {
	return in.IntegrateExpandable(ode.NewExpandable(sys), t0, y0, t, y)
}

// IntegrateExpandable is Integrate for a system with secondary equations.
// y0 and y hold the complete state. On error y is left untouched.
func (in *Integrator) IntegrateExpandable(eq *ode.Expandable, t0 float64, y0 []float64, t float64, y []float64) (float64, error) {
	n := eq.TotalDimension()
	if len(y0) != n {
		return math.NaN(), fmt.Errorf("%w: initial state has %d components, expected %d", ode.ErrDimensionMismatch, len(y0), n)
	}
	if len(y) != n {
		return math.NaN(), fmt.Errorf("%w: final state has %d components, expected %d", ode.ErrDimensionMismatch, len(y), n)
	}
	if sameTime(t0, t) {
		return math.NaN(), fmt.Errorf("%w: [%g, %g]", ode.ErrDegenerateInterval, t0, t)
	}

	in.evaluations.Reset(in.maxEvaluations)
	in.stats = Statistics{}
	ctx := &Context{
		equations:   eq,
		evaluations: in.evaluations,
		stats:       &in.stats,
		logger:      in.logger,
		forward:     t > t0,
	}
	in.logger.V(1).Info("integration started", "method", in.Name(), "t0", t0, "t", t, "dimension", n)

	tEnd, err := in.run(ctx, t0, y0, t, y)
	in.stats.Evaluations = in.evaluations.Count()
	if err != nil {
		in.logger.Error(err, "integration failed", "method", in.Name(), "evaluations", in.stats.Evaluations)
		return math.NaN(), err
	}
	in.logger.V(1).Info("integration finished", "t", tEnd, "steps", in.stats.Steps,
		"rejected", in.stats.Rejected, "evaluations", in.stats.Evaluations)
	return tEnd, nil
}

func sameTime(a, b float64) bool {
	return math.Abs(b-a) <= 1e-12*math.Max(math.Abs(a), math.Abs(b))
}

func (in *Integrator) run(ctx *Context, t0 float64, y0 []float64, tEnd float64, y []float64) (float64, error) {
	start := ode.Vector(y0).Clone()
	for _, h := range in.stepHandlers {
		h.Init(t0, start.Clone(), tEnd)
	}
	for _, s := range in.eventStates {
		s.Init(t0, start.Clone(), tEnd)
	}
	if err := in.stepper.Init(ctx, t0, start, tEnd); err != nil {
		return math.NaN(), err
	}

	first := true
	for {
		interp, err := in.stepper.Step(ctx, tEnd)
		if err != nil {
			return math.NaN(), err
		}
		if first {
			for _, s := range in.eventStates {
				if err := s.ReinitializeBegin(interp); err != nil {
					return math.NaN(), ode.Errorf(interp.GlobalPreviousTime(), err, "event start")
				}
			}
			first = false
		}

		res, err := in.acceptStep(ctx, interp, tEnd)
		if err != nil {
			return math.NaN(), err
		}
		if res.isLast {
			copy(y, res.y)
			return res.t, nil
		}
		if res.reset {
			ctx.stats.Restarts++
			ctx.logger.V(1).Info("restart", "t", res.t)
		}
		if err := in.stepper.Resume(ctx, res.t, res.y, res.yDot, res.reset, tEnd); err != nil {
			return math.NaN(), err
		}
	}
}

type acceptedStep struct {
	t      float64
	y      []float64
	yDot   []float64
	isLast bool
	reset  bool
}

type occurrence struct {
	index int
	state *events.State
}

// earliest picks the first pending event along the integration direction,
// the lowest handler index winning ties.
func earliest(occurring []occurrence, forward bool) int {
	best := 0
	for i := 1; i < len(occurring); i++ {
		ti, tb := occurring[i].state.EventTime(), occurring[best].state.EventTime()
		before := ti < tb
		if !forward {
			before = ti > tb
		}
		if before || (ti == tb && occurring[i].index < occurring[best].index) {
			best = i
		}
	}
	return best
}

// acceptStep resolves the events of one step in chronological order and
// reports the step to the handlers, truncated at the first event that stops
// the run or resets the state.
func (in *Integrator) acceptStep(ctx *Context, interp *sampling.Interpolator, tEnd float64) (acceptedStep, error) {
	previousT := interp.GlobalPreviousTime()
	currentT := interp.GlobalCurrentTime()
	forward := interp.IsForward()
	isLast := false

	var occurring []occurrence
	for i, s := range in.eventStates {
		found, err := s.EvaluateStep(interp)
		if err != nil {
			return acceptedStep{}, err
		}
		if found {
			occurring = append(occurring, occurrence{index: i, state: s})
		}
	}

	for len(occurring) > 0 {
		k := earliest(occurring, forward)
		current := occurring[k]
		occurring = append(occurring[:k], occurring[k+1:]...)
		if !current.state.Pending() {
			continue
		}

		eventT := current.state.EventTime()
		interp.SetSoftPreviousTime(previousT)
		interp.SetSoftCurrentTime(eventT)
		st, err := interp.Interpolate(eventT)
		if err != nil {
			return acceptedStep{}, ode.Errorf(eventT, err, "event state")
		}
		eventY := st.Y

		for _, s := range in.eventStates {
			s.StepAccepted(eventT, eventY)
			isLast = isLast || s.Stop()
			if s.Fired() {
				ctx.stats.Events++
			}
		}
		ctx.logger.V(1).Info("event", "t", eventT, "handler", current.index, "stop", isLast)

		// an event on the final time ends the run there, resets are applied
		// to the final state without restarting
		atEnd := !isLast && sameTime(currentT, tEnd) &&
			(sameTime(eventT, tEnd) || math.Abs(tEnd-eventT) <= current.state.Config().Convergence)
		if atEnd {
			isLast = true
			interp.SetSoftCurrentTime(currentT)
		}

		for _, h := range in.stepHandlers {
			if err := h.HandleStep(interp, isLast); err != nil {
				return acceptedStep{}, err
			}
		}
		if atEnd {
			end := interp.CurrentState()
			for _, s := range in.eventStates {
				s.Reset(eventT, end.Y)
			}
			ctx.logger.V(2).Info("step accepted", "t", currentT, "h", currentT-previousT, "last", true)
			return acceptedStep{t: currentT, y: end.Y, isLast: true}, nil
		}
		if isLast {
			return acceptedStep{t: eventT, y: eventY, isLast: true}, nil
		}

		needReset := false
		for _, s := range in.eventStates {
			if s.Reset(eventT, eventY) {
				needReset = true
			}
		}
		if needReset {
			yDot := make([]float64, len(eventY))
			if err := ctx.ComputeDerivatives(eventT, eventY, yDot); err != nil {
				return acceptedStep{}, err
			}
			return acceptedStep{t: eventT, y: eventY, yDot: yDot, reset: true}, nil
		}

		// the rest of the step is handled as a new step
		previousT = eventT
		interp.SetSoftPreviousTime(eventT)
		interp.SetSoftCurrentTime(currentT)

		pending := occurring[:0]
		for _, o := range occurring {
			if o.state.Pending() {
				pending = append(pending, o)
			}
		}
		occurring = pending
		for i, s := range in.eventStates {
			if !s.Fired() || s.Pending() {
				continue
			}
			found, err := s.EvaluateStep(interp)
			if err != nil {
				return acceptedStep{}, err
			}
			if found {
				occurring = append(occurring, occurrence{index: i, state: s})
			}
		}
	}

	interp.SetSoftPreviousTime(previousT)
	interp.SetSoftCurrentTime(currentT)
	end := interp.CurrentState()
	for _, s := range in.eventStates {
		s.StepAccepted(currentT, end.Y)
		isLast = isLast || s.Stop()
	}
	isLast = isLast || sameTime(currentT, tEnd)

	for _, h := range in.stepHandlers {
		if err := h.HandleStep(interp, isLast); err != nil {
			return acceptedStep{}, err
		}
	}
	ctx.logger.V(2).Info("step accepted", "t", currentT, "h", currentT-interp.GlobalPreviousTime(), "last", isLast)
	return acceptedStep{t: currentT, y: end.Y, yDot: end.YDot, isLast: isLast}, nil
}
