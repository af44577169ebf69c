package sampling

// StepHandler is called once per accepted step, in time order. isLast is set
// on the step that reaches the final time or a stop event.
type StepHandler interface {
	Init(t0 float64, y0 []float64, t float64)
	HandleStep(interp StepInterpolator, isLast bool) error
}

// FixedStepHandler receives the solution on a regular output grid.
type FixedStepHandler interface {
	Init(t0 float64, y0 []float64, t float64)
	HandleStep(t float64, y, yDot []float64, isLast bool) error
}

// StepHandlerFunc adapts a function to StepHandler with a no-op Init.
type StepHandlerFunc func(interp StepInterpolator, isLast bool) error

func (f StepHandlerFunc) Init(t0 float64, y0 []float64, t float64) {}

func (f StepHandlerFunc) HandleStep(interp StepInterpolator, isLast bool) error {
	return f(interp, isLast)
}
