package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/sampling"
)

// RungeKutta is a fixed step explicit Runge-Kutta stepper. The last step is
// shortened to land on the final time.
type RungeKutta struct {
	tableau *Tableau
	step    float64

	t       float64
	h       float64
	y       []float64
	yTmp    []float64
	yDotEnd []float64
	yDotK   [][]float64

	interp *sampling.Interpolator
}

func NewRungeKutta(tab *Tableau, step float64) (*Integrator, error) {
	s, err := NewFixedStepper(tab, step)
	if err != nil {
		return nil, err
	}
	return New(s), nil
}

func NewEuler(step float64) (*Integrator, error) {
	return NewRungeKutta(Euler(), step)
}

func NewMidpoint(step float64) (*Integrator, error) {
	return NewRungeKutta(Midpoint(), step)
}

func NewClassicalRK4(step float64) (*Integrator, error) {
	return NewRungeKutta(ClassicalRK4(), step)
}

func NewFixedStepper(tab *Tableau, step float64) (*RungeKutta, error) {
	if err := tab.Validate(); err != nil {
		return nil, err
	}
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("%w: step %g", ode.ErrInvalidConfig, step)
	}
	return &RungeKutta{tableau: tab, step: step, interp: sampling.NewInterpolator()}, nil
}

func (r *RungeKutta) Name() string { return r.tableau.Name }

func (r *RungeKutta) Order() int { return r.tableau.Order }

func (r *RungeKutta) StepSize() float64 { return r.step }

func (r *RungeKutta) ensureScratch(n int) {
	if len(r.y) == n && len(r.yDotK) == r.tableau.Stages() {
		return
	}
	r.y = make([]float64, n)
	r.yTmp = make([]float64, n)
	r.yDotEnd = make([]float64, n)
	r.yDotK = newStageBuffers(r.tableau.Stages(), n)
}

func (r *RungeKutta) Init(ctx *Context, t0 float64, y0 []float64, tEnd float64) error {
	r.ensureScratch(len(y0))
	copy(r.y, y0)
	r.t = t0
	r.h = r.step
	if !ctx.Forward() {
		r.h = -r.step
	}
	return ctx.ComputeDerivatives(t0, r.y, r.yDotK[0])
}

func (r *RungeKutta) Step(ctx *Context, tEnd float64) (*sampling.Interpolator, error) {
	forward := ctx.Forward()
	h := r.h
	stepEnd := r.t + h
	if passes(stepEnd, tEnd, forward) || sameTime(stepEnd, tEnd) {
		h = tEnd - r.t
		stepEnd = tEnd
	}

	if err := r.tableau.stages(ctx, r.t, r.y, h, r.yDotK, r.yTmp); err != nil {
		return nil, err
	}
	combine(r.yTmp, r.y, h, r.tableau.B, r.yDotK)

	// the end derivative is reused as the first stage of the next step
	if r.tableau.FSAL {
		copy(r.yDotEnd, r.yDotK[len(r.yDotK)-1])
	} else if err := ctx.ComputeDerivatives(stepEnd, r.yTmp, r.yDotEnd); err != nil {
		return nil, err
	}

	r.interp.Reset(r.tableau.newKernel(r.yDotK), forward, r.t, r.y, r.yDotK[0], stepEnd, r.yTmp, r.yDotEnd)
	ctx.stats.accept(h, 0)
	return r.interp, nil
}

func (r *RungeKutta) Resume(ctx *Context, t float64, y, yDot []float64, restart bool, tEnd float64) error {
	r.t = t
	copy(r.y, y)
	copy(r.yDotK[0], yDot)
	return nil
}
