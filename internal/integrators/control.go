package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/odekit/internal/ode"
)

const (
	defaultSafety       = 0.9
	defaultMinReduction = 0.2
	defaultMaxGrowth    = 10.0
)

// StepControl configures adaptive step size selection. Step bounds are
// magnitudes; the sign follows the integration direction. Zero values of
// Safety, MinReduction and MaxGrowth select the method defaults.
type StepControl struct {
	MinStep   float64
	MaxStep   float64
	Tolerance ode.Tolerance
	// InitialStep skips the starting step estimate when positive.
	InitialStep float64

	Safety       float64
	MinReduction float64
	MaxGrowth    float64
}

func DefaultStepControl(minStep, maxStep, absTol, relTol float64) StepControl {
	return StepControl{
		MinStep:   minStep,
		MaxStep:   maxStep,
		Tolerance: ode.ScalarTolerance(absTol, relTol),
	}
}

func (c StepControl) withDefaults(maxGrowth float64) StepControl {
	if c.Safety == 0 {
		c.Safety = defaultSafety
	}
	if c.MinReduction == 0 {
		c.MinReduction = defaultMinReduction
	}
	if c.MaxGrowth == 0 {
		c.MaxGrowth = maxGrowth
	}
	if c.InitialStep > 0 && (c.InitialStep < c.MinStep || c.InitialStep > c.MaxStep) {
		c.InitialStep = 0
	}
	return c
}

// Validate checks the settings that do not depend on the problem.
func (c StepControl) Validate() error {
	switch {
	case c.MinStep < 0 || math.IsNaN(c.MinStep):
		return fmt.Errorf("%w: min step %g", ode.ErrInvalidConfig, c.MinStep)
	case !(c.MaxStep > 0):
		return fmt.Errorf("%w: max step %g", ode.ErrInvalidConfig, c.MaxStep)
	case c.MinStep > c.MaxStep:
		return fmt.Errorf("%w: min step %g above max step %g", ode.ErrInvalidConfig, c.MinStep, c.MaxStep)
	case c.Safety < 0 || c.Safety > 1:
		return fmt.Errorf("%w: safety %g", ode.ErrInvalidConfig, c.Safety)
	case c.MinReduction < 0 || c.MinReduction >= 1:
		return fmt.Errorf("%w: min reduction %g", ode.ErrInvalidConfig, c.MinReduction)
	case c.MaxGrowth != 0 && c.MaxGrowth <= 1:
		return fmt.Errorf("%w: max growth %g", ode.ErrInvalidConfig, c.MaxGrowth)
	}
	return nil
}

// Factor is the step size multiplier for a normalised error.
func (c *StepControl) Factor(errRatio, exponent float64) float64 {
	switch {
	case errRatio == 0:
		return c.MaxGrowth
	case math.IsNaN(errRatio) || math.IsInf(errRatio, 0):
		return c.MinReduction
	}
	return math.Min(c.MaxGrowth, math.Max(c.MinReduction, c.Safety*math.Pow(errRatio, exponent)))
}

// FilterStep enforces the step bounds. Steps below MinStep are an error
// unless acceptSmall is set, in which case they are raised to MinStep.
func (c *StepControl) FilterStep(h float64, forward, acceptSmall bool) (float64, error) {
	if h != 0 && (h > 0) != forward {
		return 0, fmt.Errorf("%w: h=%g", ode.ErrStepDirection, h)
	}
	filtered := h
	if math.Abs(h) < c.MinStep || h == 0 {
		if !acceptSmall || c.MinStep == 0 {
			return 0, fmt.Errorf("%w: |h|=%g < %g", ode.ErrStepTooSmall, math.Abs(h), c.MinStep)
		}
		filtered = c.MinStep
		if !forward {
			filtered = -c.MinStep
		}
	}
	if filtered > c.MaxStep {
		filtered = c.MaxStep
	} else if filtered < -c.MaxStep {
		filtered = -c.MaxStep
	}
	return filtered, nil
}

// InitializeStep estimates the first step size from the derivative at
// (t0, y0) and one explicit Euler trial step. y1 and yDot1 are scratch space.
func (c *StepControl) InitializeStep(ctx *Context, order int, t0 float64, y0, yDot0, y1, yDot1 []float64) (float64, error) {
	forward := ctx.Forward()
	if c.InitialStep > 0 {
		if forward {
			return c.InitialStep, nil
		}
		return -c.InitialStep, nil
	}

	dim := ctx.Dimension()
	yOnScale2, yDotOnScale2 := 0.0, 0.0
	for j := 0; j < dim; j++ {
		scale := c.Tolerance.Scale(j, y0[j])
		ratio := y0[j] / scale
		yOnScale2 += ratio * ratio
		ratio = yDot0[j] / scale
		yDotOnScale2 += ratio * ratio
	}

	h := 1e-6
	if yOnScale2 >= 1e-10 && yDotOnScale2 >= 1e-10 {
		h = 0.01 * math.Sqrt(yOnScale2/yDotOnScale2)
	}
	if !forward {
		h = -h
	}

	for j := range y0 {
		y1[j] = y0[j] + h*yDot0[j]
	}
	if err := ctx.ComputeDerivatives(t0+h, y1, yDot1); err != nil {
		return 0, err
	}

	yDDotOnScale := 0.0
	for j := 0; j < dim; j++ {
		ratio := (yDot1[j] - yDot0[j]) / c.Tolerance.Scale(j, y0[j])
		yDDotOnScale += ratio * ratio
	}
	yDDotOnScale = math.Sqrt(yDDotOnScale) / math.Abs(h)

	// h^order * max(||y'/tol||, ||y''/tol||) = 0.01
	maxInv2 := math.Max(math.Sqrt(yDotOnScale2), yDDotOnScale)
	h1 := math.Pow(0.01/maxInv2, 1/float64(order))
	if maxInv2 < 1e-15 {
		h1 = math.Max(1e-6, 0.001*math.Abs(h))
	}
	h = math.Min(100*math.Abs(h), h1)
	// keeps t0+h distinguishable from t0
	h = math.Max(h, 1e-12*math.Abs(t0))
	h = math.Max(h, c.MinStep)
	h = math.Min(h, c.MaxStep)
	if !forward {
		h = -h
	}
	return h, nil
}

// errorNorm is the RMS of err[j]/tol over the primary block, with the
// tolerance scaled by max(|y0[j]|, |y1[j]|).
func (c *StepControl) errorNorm(dim int, err, y0, y1 []float64) float64 {
	sum := 0.0
	for j := 0; j < dim; j++ {
		ratio := err[j] / c.Tolerance.Scale(j, math.Max(math.Abs(y0[j]), math.Abs(y1[j])))
		sum += ratio * ratio
	}
	return math.Sqrt(sum / float64(dim))
}
