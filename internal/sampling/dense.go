package sampling

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/odekit/internal/ode"
)

// DenseOutput records every step of an integration so the solution can be
// evaluated anywhere in the integrated range afterwards.
type DenseOutput struct {
	steps     []*Interpolator
	forward   bool
	finalTime float64
}

func NewDenseOutput() *DenseOutput {
	return &DenseOutput{finalTime: math.NaN()}
}

func (d *DenseOutput) Init(t0 float64, y0 []float64, t float64) {
	d.steps = d.steps[:0]
	d.forward = t >= t0
	d.finalTime = math.NaN()
}

func (d *DenseOutput) HandleStep(interp StepInterpolator, isLast bool) error {
	var c *Interpolator
	switch it := interp.(type) {
	case *Interpolator:
		c = it.Clone()
	default:
		return fmt.Errorf("dense output: unsupported interpolator %T", interp)
	}
	if len(d.steps) == 0 {
		d.forward = c.IsForward()
	}
	d.steps = append(d.steps, c)
	if isLast {
		d.finalTime = c.CurrentTime()
	}
	return nil
}

func (d *DenseOutput) Len() int { return len(d.steps) }

func (d *DenseOutput) InitialTime() float64 {
	if len(d.steps) == 0 {
		return math.NaN()
	}
	return d.steps[0].PreviousTime()
}

func (d *DenseOutput) FinalTime() float64 {
	if len(d.steps) == 0 {
		return math.NaN()
	}
	return d.steps[len(d.steps)-1].CurrentTime()
}

// Append adds the steps of another model that starts where this one ends.
func (d *DenseOutput) Append(other *DenseOutput) error {
	if len(other.steps) == 0 {
		return nil
	}
	if len(d.steps) == 0 {
		d.steps = append(d.steps, other.steps...)
		d.forward = other.forward
		d.finalTime = other.finalTime
		return nil
	}
	if d.steps[0].Dimension() != other.steps[0].Dimension() {
		return fmt.Errorf("%w: dense output of dimension %d cannot append %d",
			ode.ErrDimensionMismatch, d.steps[0].Dimension(), other.steps[0].Dimension())
	}
	if d.forward != other.forward {
		return fmt.Errorf("dense output: propagation direction mismatch")
	}
	end, start := d.FinalTime(), other.InitialTime()
	last := d.steps[len(d.steps)-1]
	gap := math.Abs(end - start)
	if gap > 1e-3*math.Abs(last.GlobalCurrentTime()-last.GlobalPreviousTime()) {
		return fmt.Errorf("dense output: hole between %g and %g", end, start)
	}
	for _, s := range other.steps {
		d.steps = append(d.steps, s.Clone())
	}
	d.finalTime = other.finalTime
	return nil
}

// Interpolate evaluates the recorded solution at t.
func (d *DenseOutput) Interpolate(t float64) (ode.State, error) {
	if len(d.steps) == 0 {
		return ode.State{}, fmt.Errorf("dense output: no steps recorded")
	}
	// position along the integration direction
	pos := func(x float64) float64 {
		if d.forward {
			return x
		}
		return -x
	}
	if pos(t) < pos(d.InitialTime()) || pos(t) > pos(d.FinalTime()) {
		return ode.State{}, fmt.Errorf("%w: t=%g not in [%g, %g]", ode.ErrOutsideStep, t, d.InitialTime(), d.FinalTime())
	}
	i := sort.Search(len(d.steps), func(i int) bool {
		return pos(d.steps[i].CurrentTime()) >= pos(t)
	})
	if i == len(d.steps) {
		i = len(d.steps) - 1
	}
	return d.steps[i].Interpolate(t)
}
