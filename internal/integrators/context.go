package integrators

import (
	"math"

	"github.com/go-logr/logr"

	"github.com/san-kum/odekit/internal/ode"
)

// Context carries the per-run state shared by the driver and its stepper.
// The driver owns it. Steppers evaluate the system only through
// ComputeDerivatives so every evaluation is counted against the budget.
type Context struct {
	equations   *ode.Expandable
	evaluations *ode.Counter
	stats       *Statistics
	logger      logr.Logger
	forward     bool
}

func (c *Context) ComputeDerivatives(t float64, y, yDot []float64) error {
	if err := c.evaluations.Increment(); err != nil {
		return &ode.IntegrationError{Time: t, Wrapped: err}
	}
	return c.equations.ComputeDerivatives(t, y, yDot)
}

// Dimension is the size of the error controlled primary block.
func (c *Context) Dimension() int { return c.equations.Dimension() }

func (c *Context) TotalDimension() int { return c.equations.TotalDimension() }

func (c *Context) Forward() bool { return c.forward }

func (c *Context) Logger() logr.Logger { return c.logger }

func (c *Context) Statistics() *Statistics { return c.stats }

// derive returns a context for a nested run sharing the evaluation budget.
func (c *Context) derive(name string, stats *Statistics) *Context {
	return &Context{
		equations:   c.equations,
		evaluations: c.evaluations,
		stats:       stats,
		logger:      c.logger.WithName(name),
		forward:     c.forward,
	}
}

// Statistics summarises one integration run.
type Statistics struct {
	Evaluations int
	Steps       int
	Rejected    int
	Restarts    int
	Events      int

	// MaxErrorRatio is the largest normalised error of an accepted step.
	MaxErrorRatio  float64
	LastErrorRatio float64
	MinStepSize    float64
	MaxStepSize    float64
	LastStepSize   float64
}

func (s *Statistics) accept(h, errRatio float64) {
	s.Steps++
	s.LastStepSize = h
	s.LastErrorRatio = errRatio
	s.MaxErrorRatio = math.Max(s.MaxErrorRatio, errRatio)
	if s.Steps == 1 {
		s.MinStepSize, s.MaxStepSize = math.Abs(h), math.Abs(h)
		return
	}
	s.MinStepSize = math.Min(s.MinStepSize, math.Abs(h))
	s.MaxStepSize = math.Max(s.MaxStepSize, math.Abs(h))
}
