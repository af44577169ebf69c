package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/sampling"
)

// harmonicOscillator is y0' = y1, y1' = -y0. From (0, 1) at t=0 the
// solution is (sin t, cos t).
type harmonicOscillator struct {
	calls int
}

func (h *harmonicOscillator) Dimension() int { return 2 }

func (h *harmonicOscillator) ComputeDerivatives(t float64, y, yDot []float64) error {
	h.calls++
	yDot[0] = y[1]
	yDot[1] = -y[0]
	return nil
}

func (h *harmonicOscillator) Exact(t float64) []float64 {
	return []float64{math.Sin(t), math.Cos(t)}
}

// decay is y' = -y.
type decay struct {
	calls int
}

func (d *decay) Dimension() int { return 1 }

func (d *decay) ComputeDerivatives(t float64, y, yDot []float64) error {
	d.calls++
	yDot[0] = -y[0]
	return nil
}

// decayStepError integrates y' = -y from y(0) = 1 to tEnd and returns the
// worst error over the ends of all accepted steps.
func decayStepError(t *testing.T, integ *Integrator, tEnd float64) float64 {
	t.Helper()
	worst := 0.0
	integ.ClearStepHandlers()
	integ.AddStepHandler(sampling.StepHandlerFunc(func(interp sampling.StepInterpolator, isLast bool) error {
		tc := interp.CurrentTime()
		st, err := interp.Interpolate(tc)
		if err != nil {
			return err
		}
		worst = math.Max(worst, math.Abs(st.Y[0]-math.Exp(-tc)))
		return nil
	}))
	sys := &decay{}
	y := make([]float64, 1)
	if _, err := integ.Integrate(sys, 0, []float64{1}, tEnd, y); err != nil {
		t.Fatalf("%s: Integrate: %v", integ.Name(), err)
	}
	if integ.Evaluations() != sys.calls {
		t.Errorf("%s: evaluations %d, system called %d times", integ.Name(), integ.Evaluations(), sys.calls)
	}
	return worst
}

var convergenceTolerances = []float64{1e-3, 1e-4, 1e-5, 1e-6, 1e-7, 1e-8, 1e-9, 1e-10}

func maxError(got, want []float64) float64 {
	e := 0.0
	for i := range got {
		e = math.Max(e, math.Abs(got[i]-want[i]))
	}
	return e
}

// stepRecorder keeps a copy of every step it sees.
type stepRecorder struct {
	steps []*sampling.Interpolator
	last  int
}

func (r *stepRecorder) Init(t0 float64, y0 []float64, t float64) {
	r.steps = nil
	r.last = 0
}

func (r *stepRecorder) HandleStep(interp sampling.StepInterpolator, isLast bool) error {
	r.steps = append(r.steps, interp.Copy().(*sampling.Interpolator))
	if isLast {
		r.last++
	}
	return nil
}

func newDP54(t *testing.T, minStep, maxStep, absTol, relTol float64) *Integrator {
	t.Helper()
	integ, err := NewDormandPrince54(minStep, maxStep, absTol, relTol)
	if err != nil {
		t.Fatalf("NewDormandPrince54: %v", err)
	}
	return integ
}

func newAdamsMoulton(t *testing.T, nSteps int, control StepControl, opts ...AdamsOption) *Integrator {
	t.Helper()
	integ, err := NewAdamsMoulton(nSteps, control, opts...)
	if err != nil {
		t.Fatalf("NewAdamsMoulton: %v", err)
	}
	return integ
}

func integrateOscillator(t *testing.T, integ *Integrator, tEnd float64) ([]float64, *harmonicOscillator) {
	t.Helper()
	sys := &harmonicOscillator{}
	y := make([]float64, 2)
	reached, err := integ.Integrate(sys, 0, []float64{0, 1}, tEnd, y)
	if err != nil {
		t.Fatalf("%s: Integrate: %v", integ.Name(), err)
	}
	if reached != tEnd {
		t.Fatalf("%s: reached %v, expected %v", integ.Name(), reached, tEnd)
	}
	return y, sys
}

var _ ode.System = (*harmonicOscillator)(nil)
