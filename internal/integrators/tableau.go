package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/sampling"
)

// Tableau holds the Butcher coefficients of an explicit Runge-Kutta method.
// A[i-1] is the row of stage i and has i entries. BStar is the embedded
// weight row; it is nil for fixed step methods.
type Tableau struct {
	Name          string
	Order         int
	EmbeddedOrder int
	C             []float64
	A             [][]float64
	B             []float64
	BStar         []float64
	// FSAL marks methods whose last stage is evaluated at the step end with
	// the propagated solution, so it doubles as the next first stage.
	FSAL bool

	kernel func(yDotK [][]float64) sampling.Kernel
}

func (t *Tableau) Stages() int { return len(t.C) }

func (t *Tableau) Embedded() bool { return t.BStar != nil }

// newKernel builds the dense output kernel for one step from a copy of the
// stage derivatives.
func (t *Tableau) newKernel(yDotK [][]float64) sampling.Kernel {
	if t.kernel == nil {
		return sampling.Hermite{}
	}
	return t.kernel(cloneStages(yDotK))
}

const tableauTolerance = 1e-12

// Validate checks the row sum condition and the consistency of the weights.
func (t *Tableau) Validate() error {
	s := len(t.C)
	if s == 0 || len(t.A) != s-1 || len(t.B) != s {
		return fmt.Errorf("%w: tableau %q has inconsistent shape", ode.ErrInvalidConfig, t.Name)
	}
	if t.C[0] != 0 {
		return fmt.Errorf("%w: tableau %q: c[0] = %g", ode.ErrInvalidConfig, t.Name, t.C[0])
	}
	for i, row := range t.A {
		if len(row) != i+1 {
			return fmt.Errorf("%w: tableau %q: row %d has %d entries", ode.ErrInvalidConfig, t.Name, i+1, len(row))
		}
		sum := 0.0
		for _, a := range row {
			sum += a
		}
		if math.Abs(sum-t.C[i+1]) > tableauTolerance {
			return fmt.Errorf("%w: tableau %q: row %d sums to %g, c is %g", ode.ErrInvalidConfig, t.Name, i+1, sum, t.C[i+1])
		}
	}
	if err := checkWeights(t.Name, "b", t.B); err != nil {
		return err
	}
	if t.BStar != nil {
		if len(t.BStar) != s {
			return fmt.Errorf("%w: tableau %q: embedded weights have %d entries", ode.ErrInvalidConfig, t.Name, len(t.BStar))
		}
		if err := checkWeights(t.Name, "b*", t.BStar); err != nil {
			return err
		}
	}
	if t.FSAL {
		last := t.A[s-2]
		if t.C[s-1] != 1 || t.B[s-1] != 0 {
			return fmt.Errorf("%w: tableau %q is not first same as last", ode.ErrInvalidConfig, t.Name)
		}
		for j, a := range last {
			if math.Abs(a-t.B[j]) > tableauTolerance {
				return fmt.Errorf("%w: tableau %q is not first same as last", ode.ErrInvalidConfig, t.Name)
			}
		}
	}
	return nil
}

func checkWeights(name, row string, w []float64) error {
	sum := 0.0
	for _, b := range w {
		sum += b
	}
	if math.Abs(sum-1) > tableauTolerance {
		return fmt.Errorf("%w: tableau %q: %s sums to %g", ode.ErrInvalidConfig, name, row, sum)
	}
	return nil
}

// errorWeights returns B - BStar.
func (t *Tableau) errorWeights() []float64 {
	e := make([]float64, len(t.B))
	for i := range e {
		e[i] = t.B[i] - t.BStar[i]
	}
	return e
}

// stages evaluates stages 1..s-1 of a step of size h from (t0, y0). yDotK[0]
// must already hold f(t0, y0). yTmp is scratch.
func (t *Tableau) stages(ctx *Context, t0 float64, y0 []float64, h float64, yDotK [][]float64, yTmp []float64) error {
	for k := 1; k < len(t.C); k++ {
		row := t.A[k-1]
		for j := range y0 {
			sum := row[0] * yDotK[0][j]
			for l := 1; l < k; l++ {
				sum += row[l] * yDotK[l][j]
			}
			yTmp[j] = y0[j] + h*sum
		}
		if err := ctx.ComputeDerivatives(t0+t.C[k]*h, yTmp, yDotK[k]); err != nil {
			return err
		}
	}
	return nil
}

// combine writes y0 + h*sum(w[k]*yDotK[k]) into dst.
func combine(dst, y0 []float64, h float64, w []float64, yDotK [][]float64) {
	for j := range y0 {
		sum := 0.0
		for k, wk := range w {
			if wk != 0 {
				sum += wk * yDotK[k][j]
			}
		}
		dst[j] = y0[j] + h*sum
	}
}

func newStageBuffers(stages, n int) [][]float64 {
	k := make([][]float64, stages)
	for i := range k {
		k[i] = make([]float64, n)
	}
	return k
}

func cloneStages(yDotK [][]float64) [][]float64 {
	c := make([][]float64, len(yDotK))
	for i, k := range yDotK {
		c[i] = ode.Vector(k).Clone()
	}
	return c
}
