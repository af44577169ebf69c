package integrators

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/sampling"
)

// degenerateShrink is the cumulative step reduction after which the
// multistep history is rebuilt with the starter.
const degenerateShrink = 1e-3

// correctorConverged ends the corrector iterations early.
const correctorConverged = 1e-3

var errInitializationCompleted = errors.New("multistep history initialized")

// Adams is a variable step Adams stepper in Nordsieck form. Bashforth
// methods keep the explicit prediction; Moulton methods correct it once per
// step (PECE) or iteratively.
type Adams struct {
	name           string
	nSteps         int
	order          int
	moulton        bool
	maxCorrections int
	control        StepControl
	exponent       float64
	transformer    *nordsieckTransformer

	t         float64
	h         float64
	y         []float64
	yDot      []float64
	scaled    []float64
	nordsieck *mat.Dense
	shrink    float64

	// last accepted step, adopted by Resume
	stepEnd         float64
	yEnd            []float64
	yDotEnd         []float64
	correctedScaled []float64
	nTmp            *mat.Dense
	lastError       float64

	nPhase1         *mat.Dense
	yPred           []float64
	yCorr           []float64
	yIter           []float64
	yDotPred        []float64
	predictedScaled []float64
	errVec          []float64

	interp *sampling.Interpolator
}

type AdamsOption func(*Adams)

// WithMaxCorrections enables up to m corrector iterations per step for
// Adams-Moulton methods. It has no effect on Adams-Bashforth.
func WithMaxCorrections(m int) AdamsOption {
	return func(a *Adams) {
		if m > 1 {
			a.maxCorrections = m
		}
	}
}

func NewAdamsBashforth(nSteps int, control StepControl) (*Integrator, error) {
	s, err := NewAdamsStepper(nSteps, false, control)
	if err != nil {
		return nil, err
	}
	return New(s), nil
}

func NewAdamsMoulton(nSteps int, control StepControl, opts ...AdamsOption) (*Integrator, error) {
	s, err := NewAdamsStepper(nSteps, true, control, opts...)
	if err != nil {
		return nil, err
	}
	return New(s), nil
}

func NewAdamsStepper(nSteps int, moulton bool, control StepControl, opts ...AdamsOption) (*Adams, error) {
	if err := control.Validate(); err != nil {
		return nil, err
	}
	transformer, err := transformerFor(nSteps)
	if err != nil {
		return nil, err
	}
	a := &Adams{
		name:           "Adams-Bashforth",
		nSteps:         nSteps,
		order:          nSteps,
		moulton:        moulton,
		maxCorrections: 1,
		transformer:    transformer,
		interp:         sampling.NewInterpolator(),
	}
	if moulton {
		a.name = "Adams-Moulton"
		a.order = nSteps + 1
	}
	a.exponent = -1 / float64(a.order)
	a.control = control.withDefaults(math.Pow(2, 1/float64(a.order)))
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Adams) Name() string { return a.name }

func (a *Adams) Order() int { return a.order }

func (a *Adams) Steps() int { return a.nSteps }

func (a *Adams) Control() StepControl { return a.control }

func (a *Adams) ensureScratch(n int) {
	if len(a.y) == n {
		return
	}
	rows := a.transformer.rows
	a.y = make([]float64, n)
	a.yDot = make([]float64, n)
	a.scaled = make([]float64, n)
	a.yEnd = make([]float64, n)
	a.yDotEnd = make([]float64, n)
	a.correctedScaled = make([]float64, n)
	a.yPred = make([]float64, n)
	a.yCorr = make([]float64, n)
	a.yIter = make([]float64, n)
	a.yDotPred = make([]float64, n)
	a.predictedScaled = make([]float64, n)
	a.errVec = make([]float64, n)
	a.nTmp = mat.NewDense(rows, n, nil)
	a.nPhase1 = mat.NewDense(rows, n, nil)
}

func (a *Adams) Init(ctx *Context, t0 float64, y0 []float64, tEnd float64) error {
	if err := a.control.Tolerance.Validate(ctx.Dimension()); err != nil {
		return err
	}
	a.ensureScratch(len(y0))
	return a.start(ctx, t0, y0, tEnd)
}

// nordsieckInitializer collects the starter points and ends the starter run
// once it has enough of them.
type nordsieckInitializer struct {
	count int
	t     []float64
	y     [][]float64
	yDot  [][]float64
}

func newNordsieckInitializer(points int) *nordsieckInitializer {
	return &nordsieckInitializer{
		t:    make([]float64, points),
		y:    make([][]float64, points),
		yDot: make([][]float64, points),
	}
}

func (ni *nordsieckInitializer) Init(t0 float64, y0 []float64, t float64) {
	ni.count = 0
}

func (ni *nordsieckInitializer) HandleStep(interp sampling.StepInterpolator, isLast bool) error {
	if ni.count == 0 {
		if err := ni.store(0, interp, interp.PreviousTime()); err != nil {
			return err
		}
	}
	ni.count++
	if err := ni.store(ni.count, interp, interp.CurrentTime()); err != nil {
		return err
	}
	if ni.count == len(ni.t)-1 {
		return errInitializationCompleted
	}
	return nil
}

func (ni *nordsieckInitializer) store(i int, interp sampling.StepInterpolator, t float64) error {
	st, err := interp.Interpolate(t)
	if err != nil {
		return err
	}
	ni.t[i], ni.y[i], ni.yDot[i] = t, st.Y, st.YDot
	return nil
}

// start rebuilds the Nordsieck history at (t0, y0) with a Dormand-Prince
// run on the shared evaluation budget.
func (a *Adams) start(ctx *Context, t0 float64, y0 []float64, tEnd float64) error {
	points := (a.nSteps + 3) / 2
	control := a.control
	control.MaxStep = math.Min(control.MaxStep, math.Abs(tEnd-t0)/float64(points))
	control.MinStep = math.Min(control.MinStep, control.MaxStep)
	control.MaxGrowth = defaultMaxGrowth
	stepper, err := NewEmbeddedStepper(DormandPrince54(), control)
	if err != nil {
		return err
	}

	initializer := newNordsieckInitializer(points)
	starter := New(stepper)
	starter.AddStepHandler(initializer)
	stats := &Statistics{}
	child := ctx.derive("starter", stats)

	_, err = starter.run(child, t0, y0, tEnd, make([]float64, len(y0)))
	switch {
	case err == nil:
		return ode.Errorf(t0, ode.ErrStarterStoppedEarly, "%d of %d points", initializer.count+1, points)
	case !errors.Is(err, errInitializationCompleted):
		return err
	}
	ctx.logger.V(1).Info("multistep history initialized", "t", t0, "points", points,
		"steps", stats.Steps, "rejected", stats.Rejected)

	last := len(initializer.t) - 1
	a.t = t0
	copy(a.y, y0)
	copy(a.yDot, initializer.yDot[0])
	a.h = (initializer.t[last] - t0) / float64(last)
	floats.ScaleTo(a.scaled, a.h, a.yDot)
	a.nordsieck, err = a.transformer.initializeHighOrderDerivatives(a.h, initializer.t, initializer.y, initializer.yDot)
	if err != nil {
		return ode.Errorf(t0, err, "multistep history")
	}
	a.shrink = 1
	return nil
}

func (a *Adams) rescale(hNew float64) {
	rescaleNordsieck(hNew/a.h, a.scaled, a.nordsieck)
	a.h = hNew
}

func (a *Adams) Step(ctx *Context, tEnd float64) (*sampling.Interpolator, error) {
	forward := ctx.Forward()
	dim := ctx.Dimension()
	restarted := false

	var (
		h, stepEnd, errRatio float64
	)
	for {
		toEnd := passes(a.t+a.h, tEnd, forward) || sameTime(a.t+a.h, tEnd)
		if toEnd {
			a.rescale(tEnd - a.t)
		}
		h = a.h
		stepEnd = a.t + h
		if toEnd {
			stepEnd = tEnd
		}

		// predict and evaluate
		taylor(a.t+h, a.t, h, a.y, a.scaled, a.nordsieck, a.yPred, nil)
		if err := ctx.ComputeDerivatives(stepEnd, a.yPred, a.yDotPred); err != nil {
			return nil, err
		}
		floats.ScaleTo(a.predictedScaled, h, a.yDotPred)
		a.transformer.updatePhase1(a.nPhase1, a.nordsieck)
		a.nTmp.Copy(a.nPhase1)
		a.transformer.updatePhase2(a.scaled, a.predictedScaled, a.nTmp)

		if a.moulton {
			a.correct(a.yCorr)
			errRatio = a.distance(dim, a.yCorr, a.yPred)
		} else {
			errRatio = a.bashforthError(dim)
		}
		if errRatio <= 1 {
			break
		}

		ctx.stats.Rejected++
		factor := a.control.Factor(errRatio, a.exponent)
		a.shrink *= factor
		ctx.logger.V(1).Info("step rejected", "t", a.t, "h", h, "error", errRatio)

		degenerate := math.IsNaN(errRatio) || math.IsInf(errRatio, 0) || !finiteDense(a.nTmp) || a.shrink < degenerateShrink
		if degenerate && !restarted {
			ctx.stats.Restarts++
			ctx.logger.V(1).Info("restart", "t", a.t, "reason", "degenerate history", "shrink", a.shrink)
			if err := a.start(ctx, a.t, a.y, tEnd); err != nil {
				return nil, err
			}
			restarted = true
			continue
		}

		hNew, err := a.control.FilterStep(h*factor, forward, false)
		if err != nil {
			return nil, ode.Errorf(a.t, err, "step rejected with error ratio %g", errRatio)
		}
		a.rescale(hNew)
	}

	if a.moulton {
		if err := a.iterateCorrector(ctx, dim, stepEnd, h); err != nil {
			return nil, err
		}
		// final evaluation
		if err := ctx.ComputeDerivatives(stepEnd, a.yCorr, a.yDotEnd); err != nil {
			return nil, err
		}
		floats.ScaleTo(a.correctedScaled, h, a.yDotEnd)
		a.transformer.updatePhase2(a.predictedScaled, a.correctedScaled, a.nTmp)
		copy(a.yEnd, a.yCorr)
	} else {
		copy(a.yEnd, a.yPred)
		copy(a.yDotEnd, a.yDotPred)
		copy(a.correctedScaled, a.predictedScaled)
	}

	a.stepEnd = stepEnd
	kernel := newNordsieckKernel(stepEnd, h, a.yEnd, a.correctedScaled, a.nTmp)
	a.interp.Reset(kernel, forward, a.t, a.y, a.yDot, stepEnd, a.yEnd, a.yDotEnd)
	ctx.stats.accept(h, errRatio)
	a.lastError = errRatio
	return a.interp, nil
}

// correct applies the Adams-Moulton corrector to the updated history.
func (a *Adams) correct(dst []float64) {
	rows, _ := a.nTmp.Dims()
	for j := range dst {
		sum := a.y[j] + a.predictedScaled[j]
		for i := 0; i < rows; i++ {
			if i%2 == 0 {
				sum -= a.nTmp.At(i, j)
			} else {
				sum += a.nTmp.At(i, j)
			}
		}
		dst[j] = sum
	}
}

// distance is the scaled RMS difference of two candidate end states.
func (a *Adams) distance(dim int, y1, y0 []float64) float64 {
	floats.SubTo(a.errVec, y1, y0)
	return a.control.errorNorm(dim, a.errVec, a.y, y1)
}

// bashforthError compares the prediction with the implicit correction
// implied by the updated history.
func (a *Adams) bashforthError(dim int) float64 {
	rows, _ := a.nTmp.Dims()
	sum := 0.0
	for j := 0; j < dim; j++ {
		variation := 0.0
		for k := rows - 1; k >= 0; k-- {
			if k%2 == 0 {
				variation += a.nTmp.At(k, j)
			} else {
				variation -= a.nTmp.At(k, j)
			}
		}
		variation -= a.predictedScaled[j]
		ratio := (a.yPred[j] - a.y[j] + variation) / a.control.Tolerance.Scale(j, a.yPred[j])
		sum += ratio * ratio
	}
	return math.Sqrt(sum / float64(dim))
}

// iterateCorrector runs the extra evaluate-correct cycles of PE(CE)^m.
func (a *Adams) iterateCorrector(ctx *Context, dim int, stepEnd, h float64) error {
	delta := math.Inf(1)
	for c := 1; c < a.maxCorrections; c++ {
		copy(a.yIter, a.yCorr)
		if err := ctx.ComputeDerivatives(stepEnd, a.yIter, a.yDotPred); err != nil {
			return err
		}
		floats.ScaleTo(a.predictedScaled, h, a.yDotPred)
		a.nTmp.Copy(a.nPhase1)
		a.transformer.updatePhase2(a.scaled, a.predictedScaled, a.nTmp)
		a.correct(a.yCorr)

		next := a.distance(dim, a.yCorr, a.yIter)
		if next > delta && next > correctorConverged {
			return ode.Errorf(a.t, ode.ErrCorrectorDivergence, "correction grew from %g to %g", delta, next)
		}
		delta = next
		if delta <= correctorConverged {
			return nil
		}
	}
	if delta > 1 && !math.IsInf(delta, 1) {
		return ode.Errorf(a.t, ode.ErrCorrectorDivergence, "correction %g after %d iterations", delta, a.maxCorrections)
	}
	return nil
}

func (a *Adams) Resume(ctx *Context, t float64, y, yDot []float64, restart bool, tEnd float64) error {
	if restart || t != a.stepEnd {
		return a.start(ctx, t, y, tEnd)
	}

	forward := ctx.Forward()
	a.t = t
	copy(a.y, y)
	copy(a.yDot, yDot)
	copy(a.scaled, a.correctedScaled)
	a.nordsieck, a.nTmp = a.nTmp, a.nordsieck

	hNew := a.h * a.control.Factor(a.lastError, a.exponent)
	hNew, err := a.control.FilterStep(hNew, forward, passes(t+hNew, tEnd, forward))
	if err != nil {
		return ode.Errorf(t, err, "next step")
	}
	a.rescale(hNew)
	a.shrink = 1
	return nil
}

func finiteDense(m *mat.Dense) bool {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for _, v := range m.RawRowView(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func (a *Adams) String() string {
	return fmt.Sprintf("%s(%d steps)", a.name, a.nSteps)
}
