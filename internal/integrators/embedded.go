package integrators

import (
	"fmt"

	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/sampling"
)

// EmbeddedRungeKutta is an adaptive explicit Runge-Kutta stepper. The
// difference between the two weight rows of the tableau estimates the local
// error of each step.
type EmbeddedRungeKutta struct {
	tableau    *Tableau
	control    StepControl
	exponent   float64
	errWeights []float64

	t       float64
	h       float64
	y       []float64
	yTmp    []float64
	yDotEnd []float64
	yDotK   [][]float64

	firstStep bool
	lastH     float64
	lastError float64

	interp *sampling.Interpolator
}

func NewEmbeddedRungeKutta(tab *Tableau, control StepControl) (*Integrator, error) {
	s, err := NewEmbeddedStepper(tab, control)
	if err != nil {
		return nil, err
	}
	return New(s), nil
}

// NewDormandPrince54 returns the default adaptive integrator.
func NewDormandPrince54(minStep, maxStep, absTol, relTol float64) (*Integrator, error) {
	return NewEmbeddedRungeKutta(DormandPrince54(), DefaultStepControl(minStep, maxStep, absTol, relTol))
}

func NewEmbeddedStepper(tab *Tableau, control StepControl) (*EmbeddedRungeKutta, error) {
	if err := tab.Validate(); err != nil {
		return nil, err
	}
	if !tab.Embedded() {
		return nil, fmt.Errorf("%w: tableau %q has no embedded weights", ode.ErrInvalidConfig, tab.Name)
	}
	if err := control.Validate(); err != nil {
		return nil, err
	}
	return &EmbeddedRungeKutta{
		tableau:    tab,
		control:    control.withDefaults(defaultMaxGrowth),
		exponent:   -1 / float64(tab.EmbeddedOrder+1),
		errWeights: tab.errorWeights(),
		interp:     sampling.NewInterpolator(),
	}, nil
}

func (e *EmbeddedRungeKutta) Name() string { return e.tableau.Name }

func (e *EmbeddedRungeKutta) Order() int { return e.tableau.Order }

func (e *EmbeddedRungeKutta) Tableau() *Tableau { return e.tableau }

func (e *EmbeddedRungeKutta) Control() StepControl { return e.control }

func (e *EmbeddedRungeKutta) ensureScratch(n int) {
	if len(e.y) == n && len(e.yDotK) == e.tableau.Stages() {
		return
	}
	e.y = make([]float64, n)
	e.yTmp = make([]float64, n)
	e.yDotEnd = make([]float64, n)
	e.yDotK = newStageBuffers(e.tableau.Stages(), n)
}

func (e *EmbeddedRungeKutta) Init(ctx *Context, t0 float64, y0 []float64, tEnd float64) error {
	if err := e.control.Tolerance.Validate(ctx.Dimension()); err != nil {
		return err
	}
	e.ensureScratch(len(y0))
	copy(e.y, y0)
	e.t = t0
	e.firstStep = true
	e.lastH = 0
	e.lastError = 0
	return ctx.ComputeDerivatives(t0, e.y, e.yDotK[0])
}

func (e *EmbeddedRungeKutta) Step(ctx *Context, tEnd float64) (*sampling.Interpolator, error) {
	forward := ctx.Forward()
	if e.firstStep {
		// yTmp and the second stage are free before the first step
		h, err := e.control.InitializeStep(ctx, e.tableau.Order, e.t, e.y, e.yDotK[0], e.yTmp, e.yDotK[1])
		if err != nil {
			return nil, err
		}
		e.h = h
		e.firstStep = false
	}

	var (
		h, stepEnd, errRatio float64
	)
	for {
		h = e.h
		stepEnd = e.t + h
		if passes(stepEnd, tEnd, forward) || sameTime(stepEnd, tEnd) {
			h = tEnd - e.t
			stepEnd = tEnd
		}

		if err := e.tableau.stages(ctx, e.t, e.y, h, e.yDotK, e.yTmp); err != nil {
			return nil, err
		}
		combine(e.yTmp, e.y, h, e.tableau.B, e.yDotK)
		errRatio = e.estimateError(ctx.Dimension(), h)
		if errRatio <= 1 {
			break
		}

		ctx.stats.Rejected++
		ctx.logger.V(1).Info("step rejected", "t", e.t, "h", h, "error", errRatio)
		hNew, err := e.control.FilterStep(h*e.control.Factor(errRatio, e.exponent), forward, false)
		if err != nil {
			return nil, ode.Errorf(e.t, err, "step rejected with error ratio %g", errRatio)
		}
		e.h = hNew
	}

	if e.tableau.FSAL {
		copy(e.yDotEnd, e.yDotK[len(e.yDotK)-1])
	} else if err := ctx.ComputeDerivatives(stepEnd, e.yTmp, e.yDotEnd); err != nil {
		return nil, err
	}

	e.interp.Reset(e.tableau.newKernel(e.yDotK), forward, e.t, e.y, e.yDotK[0], stepEnd, e.yTmp, e.yDotEnd)
	ctx.stats.accept(h, errRatio)
	e.lastH = h
	e.lastError = errRatio
	return e.interp, nil
}

// estimateError is the RMS of the scaled error estimate over the primary
// block. Values up to 1 are acceptable.
func (e *EmbeddedRungeKutta) estimateError(dim int, h float64) float64 {
	errVec := e.yDotEnd
	for j := 0; j < dim; j++ {
		sum := 0.0
		for k, w := range e.errWeights {
			if w != 0 {
				sum += w * e.yDotK[k][j]
			}
		}
		errVec[j] = h * sum
	}
	return e.control.errorNorm(dim, errVec, e.y, e.yTmp)
}

func (e *EmbeddedRungeKutta) Resume(ctx *Context, t float64, y, yDot []float64, restart bool, tEnd float64) error {
	forward := ctx.Forward()
	e.t = t
	copy(e.y, y)
	copy(e.yDotK[0], yDot)

	scaled := e.lastH * e.control.Factor(e.lastError, e.exponent)
	nextIsLast := passes(t+scaled, tEnd, forward)
	hNew, err := e.control.FilterStep(scaled, forward, nextIsLast)
	if err != nil {
		return ode.Errorf(t, err, "next step")
	}
	if passes(t+hNew, tEnd, forward) {
		hNew = tEnd - t
	}
	e.h = hNew
	return nil
}

// passes reports whether t is at or beyond tEnd in the integration direction.
func passes(t, tEnd float64, forward bool) bool {
	if forward {
		return t >= tEnd
	}
	return t <= tEnd
}
