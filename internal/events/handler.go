// Package events detects and resolves zero crossings of user supplied
// switching functions during an integration.
//
// Each registered [Handler] is wrapped in a [State] that remembers the sign
// of g at the last accepted time, scans every new step for a sign change on
// a grid no coarser than the configured max check interval, and isolates the
// root with a bracketing solver run against the step interpolator.
//
// # Limitations
//
// Two roots of the same handler closer together than the max check interval
// may cancel out and go unnoticed. Keep the interval below the shortest
// expected spacing between events.
package events

import (
	"fmt"
	"math"

	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/solvers"
)

// Action tells the integrator what to do once an event has occurred.
type Action int

const (
	// Continue integrating with no change.
	Continue Action = iota
	// Stop the integration at the event time.
	Stop
	// ResetState lets the handler change the state, then restarts the stepper.
	ResetState
	// ResetDerivatives restarts the stepper because the system function changed.
	ResetDerivatives
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	case ResetState:
		return "reset_state"
	case ResetDerivatives:
		return "reset_derivatives"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseAction is the inverse of Action.String.
func ParseAction(s string) (Action, error) {
	for _, a := range []Action{Continue, Stop, ResetState, ResetDerivatives} {
		if a.String() == s {
			return a, nil
		}
	}
	return Continue, fmt.Errorf("unknown event action: %s", s)
}

// Direction filters crossings by the sign of dg/dt.
type Direction int

const (
	Both Direction = iota
	Increasing
	Decreasing
)

func (d Direction) String() string {
	switch d {
	case Both:
		return "both"
	case Increasing:
		return "increasing"
	case Decreasing:
		return "decreasing"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "both":
		return Both, nil
	case "increasing":
		return Increasing, nil
	case "decreasing":
		return Decreasing, nil
	}
	return Both, fmt.Errorf("unknown event direction: %s", s)
}

// Handler is a switching function and its reaction to zero crossings.
type Handler interface {
	Init(t0 float64, y0 []float64, t float64)
	// G must be continuous between events.
	G(t float64, y []float64) float64
	// EventOccurred is called at the root. increasing reports whether g
	// crosses zero upward in time.
	EventOccurred(t float64, y []float64, increasing bool) Action
	// ResetState may modify y in place. It is only called after
	// EventOccurred returned ResetState or ResetDerivatives.
	ResetState(t float64, y []float64)
}

// Config holds the detection settings of one handler.
type Config struct {
	// MaxCheckInterval is the largest gap between two g evaluations.
	MaxCheckInterval float64
	// Convergence is the time accuracy of event location.
	Convergence float64
	// MaxIterations bounds the g evaluations of one root search.
	MaxIterations int
	// MaxEventCount disables the handler after that many events; 0 means
	// no limit.
	MaxEventCount int
	Direction     Direction
	// Solver defaults to a Pegasus solver at Convergence accuracy.
	Solver solvers.BracketingSolver
}

func DefaultConfig() Config {
	return Config{
		MaxCheckInterval: math.Inf(1),
		Convergence:      1e-10,
		MaxIterations:    100,
	}
}

func (c Config) Validate() error {
	if !(c.MaxCheckInterval > 0) {
		return fmt.Errorf("%w: max check interval %g", ode.ErrInvalidConfig, c.MaxCheckInterval)
	}
	if !(c.Convergence > 0) {
		return fmt.Errorf("%w: convergence %g", ode.ErrInvalidConfig, c.Convergence)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations %d", ode.ErrInvalidConfig, c.MaxIterations)
	}
	if c.MaxEventCount < 0 {
		return fmt.Errorf("%w: max event count %d", ode.ErrInvalidConfig, c.MaxEventCount)
	}
	if c.Direction < Both || c.Direction > Decreasing {
		return fmt.Errorf("%w: direction %d", ode.ErrInvalidConfig, int(c.Direction))
	}
	return nil
}
