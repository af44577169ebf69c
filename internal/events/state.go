package events

import (
	"fmt"
	"math"

	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/sampling"
	"github.com/san-kum/odekit/internal/solvers"
)

// State tracks one handler through an integration. It remembers the sign
// of g at the last accepted time so that direction filtering stays correct
// however long the gap between events.
type State struct {
	handler Handler
	cfg     Config
	solver  solvers.BracketingSolver

	// last accepted time, g there and its memoised sign
	t0         float64
	g0         float64
	g0Positive bool

	pendingEvent      bool
	pendingEventTime  float64
	previousEventTime float64

	forward bool
	// g increases along the integration direction at the pending root
	increasing bool
	nextAction Action
	fired      bool

	count    int
	disabled bool
}

func NewState(h Handler, cfg Config) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &State{handler: h, cfg: cfg, solver: cfg.Solver}
	if s.solver == nil {
		s.solver = solvers.NewPegasus(cfg.Convergence)
	}
	s.clear()
	return s, nil
}

func (s *State) Handler() Handler { return s.handler }

func (s *State) Config() Config { return s.cfg }

// Count is the number of events fired since Init.
func (s *State) Count() int { return s.count }

func (s *State) Disabled() bool { return s.disabled }

func (s *State) Pending() bool { return s.pendingEvent }

// Fired reports whether the last StepAccepted call triggered the handler.
func (s *State) Fired() bool { return s.fired }

func (s *State) clear() {
	s.t0 = math.NaN()
	s.g0 = math.NaN()
	s.g0Positive = true
	s.pendingEvent = false
	s.pendingEventTime = math.NaN()
	s.previousEventTime = math.NaN()
	s.forward = true
	s.increasing = true
	s.nextAction = Continue
	s.fired = false
	s.count = 0
	s.disabled = false
}

// Init resets the record for a new integration and initialises the handler.
func (s *State) Init(t0 float64, y0 []float64, t float64) {
	s.clear()
	s.forward = t >= t0
	s.handler.Init(t0, y0, t)
}

// ReinitializeBegin evaluates g at the start of the first step.
func (s *State) ReinitializeBegin(interp sampling.StepInterpolator) error {
	s.forward = interp.IsForward()
	s.t0 = interp.PreviousTime()
	g0, err := s.g(interp, s.t0)
	if err != nil {
		return err
	}
	if g0 == 0 {
		// a root exactly at the start is ignored by taking the sign a
		// little further inside the step
		span := interp.CurrentTime() - s.t0
		shift := math.Min(0.5*s.cfg.Convergence, 0.5*math.Abs(span))
		if !s.forward {
			shift = -shift
		}
		if g0, err = s.g(interp, s.t0+shift); err != nil {
			return err
		}
	}
	s.g0 = g0
	s.g0Positive = g0 >= 0
	return nil
}

func (s *State) g(interp sampling.StepInterpolator, t float64) (float64, error) {
	st, err := interp.Interpolate(t)
	if err != nil {
		return math.NaN(), err
	}
	return s.handler.G(t, st.Y), nil
}

// accepts applies the direction filter to a crossing that goes up in time
// when upInTime is set.
func (s *State) accepts(upInTime bool) bool {
	switch s.cfg.Direction {
	case Increasing:
		return upInTime
	case Decreasing:
		return !upInTime
	}
	return true
}

// EvaluateStep looks for the first accepted root of g between the last
// accepted time and interp.CurrentTime().
func (s *State) EvaluateStep(interp sampling.StepInterpolator) (bool, error) {
	s.pendingEvent = false
	s.pendingEventTime = math.NaN()
	if s.disabled {
		return false, nil
	}

	s.forward = interp.IsForward()
	t1 := interp.CurrentTime()
	dt := t1 - s.t0
	if math.Abs(dt) < s.cfg.Convergence {
		// too small to hold a root distinct from the last one
		return false, nil
	}
	n := int(math.Max(1, math.Ceil(math.Abs(dt)/s.cfg.MaxCheckInterval)))
	h := dt / float64(n)

	var interpErr error
	f := func(t float64) float64 {
		g, err := s.g(interp, t)
		if err != nil && interpErr == nil {
			interpErr = err
		}
		return g
	}

	positive := s.g0Positive
	onMemoSide := func(g float64) bool { return (g >= 0) == positive }

	ta, ga := s.t0, s.g0
	for i := 0; i < n; i++ {
		tb := t1
		if i < n-1 {
			tb = s.t0 + float64(i+1)*h
		}
		gb := f(tb)
		if interpErr != nil {
			return false, interpErr
		}
		if onMemoSide(gb) {
			ta, ga = tb, gb
			continue
		}

		if !onMemoSide(ga) {
			// ga sits on the wrong side of a root just handled
			var ok bool
			if ta, ga, ok = s.skip(f, ta, tb, onMemoSide); !ok {
				positive = gb >= 0
				ta, ga = tb, gb
				continue
			}
		}

		increasing := gb >= ga
		if !s.accepts(increasing == s.forward) {
			positive = !positive
			ta, ga = tb, gb
			continue
		}

		var root float64
		var err error
		if s.forward {
			root, err = s.solver.Solve(s.cfg.MaxIterations, f, ta, tb, solvers.RightSide)
		} else {
			root, err = s.solver.Solve(s.cfg.MaxIterations, f, tb, ta, solvers.LeftSide)
		}
		if interpErr != nil {
			return false, interpErr
		}
		if err != nil {
			return false, &ode.IntegrationError{
				Time:    ta,
				Wrapped: fmt.Errorf("%w in [%g, %g]: %w", ode.ErrNoBracketing, ta, tb, err),
			}
		}

		near := func(a, b float64) bool { return math.Abs(a-b) <= s.cfg.Convergence }
		switch {
		case !math.IsNaN(s.previousEventTime) && near(root, ta) && near(root, s.previousEventTime):
			// the event just handled was found again: move past it and
			// retry the substep
			var ok bool
			if ta, ga, ok = s.skip(f, ta, tb, onMemoSide); ok {
				i--
				continue
			}
			s.setPending(root, increasing)
			return true, nil
		case math.IsNaN(s.previousEventTime) || !near(s.previousEventTime, root):
			s.setPending(root, increasing)
			return true, nil
		default:
			positive = gb >= 0
			ta, ga = tb, gb
		}
	}
	return false, nil
}

// skip advances ta by the convergence threshold until g is back on the
// memoised side. It reports false when tb is reached first.
func (s *State) skip(f solvers.Func, ta, tb float64, onMemoSide func(float64) bool) (float64, float64, bool) {
	shift := s.cfg.Convergence
	if !s.forward {
		shift = -shift
	}
	for k := 0; k < s.cfg.MaxIterations; k++ {
		ta += shift
		if (s.forward && ta >= tb) || (!s.forward && ta <= tb) {
			return tb, f(tb), false
		}
		ga := f(ta)
		if onMemoSide(ga) {
			return ta, ga, true
		}
	}
	return tb, f(tb), false
}

func (s *State) setPending(t float64, increasing bool) {
	s.pendingEvent = true
	s.pendingEventTime = t
	s.increasing = increasing
}

// EventTime is the time of the pending event, or an infinity pointing along
// the integration direction when there is none.
func (s *State) EventTime() float64 {
	if !s.pendingEvent {
		if s.forward {
			return math.Inf(1)
		}
		return math.Inf(-1)
	}
	return s.pendingEventTime
}

// StepAccepted moves the record to t, firing the handler when the pending
// event is at t.
func (s *State) StepAccepted(t float64, y []float64) {
	s.fired = false
	if s.disabled {
		s.pendingEvent = false
		s.nextAction = Continue
		return
	}

	s.t0 = t
	s.g0 = s.handler.G(t, y)

	if s.pendingEvent && math.Abs(s.pendingEventTime-t) <= s.cfg.Convergence {
		// force the sign to its value just after the event
		s.previousEventTime = t
		s.g0Positive = s.increasing
		s.nextAction = s.handler.EventOccurred(t, y, s.increasing == s.forward)
		s.fired = true
		s.count++
		if s.cfg.MaxEventCount > 0 && s.count >= s.cfg.MaxEventCount {
			s.disabled = true
		}
		return
	}
	s.g0Positive = s.g0 >= 0
	s.nextAction = Continue
}

// Stop reports whether the integration must stop at the last accepted time.
func (s *State) Stop() bool {
	return s.nextAction == Stop
}

// Reset lets the handler change y after a reset action and reports whether
// the stepper must be restarted.
func (s *State) Reset(t float64, y []float64) bool {
	if !(s.pendingEvent && math.Abs(s.pendingEventTime-t) <= s.cfg.Convergence) {
		return false
	}
	if s.nextAction == ResetState {
		s.handler.ResetState(t, y)
	}
	s.pendingEvent = false
	s.pendingEventTime = math.NaN()
	return s.nextAction == ResetState || s.nextAction == ResetDerivatives
}
