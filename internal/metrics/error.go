package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/odekit/internal/ode"
)

// GlobalError is the largest max-norm distance between the observed states
// and a closed form solution.
type GlobalError struct {
	observer
	solution ode.Solution
	dim      int
	t0       float64
	y0       []float64
	maxError float64
}

// NewGlobalError compares only the first dim components, so that secondary
// equations appended to the state are ignored.
func NewGlobalError(solution ode.Solution, dim int) *GlobalError {
	g := &GlobalError{solution: solution, dim: dim}
	g.observer = observer{observe: g.Observe}
	return g
}

func (g *GlobalError) Name() string { return "global_error" }

func (g *GlobalError) Init(t0 float64, y0 []float64, t float64) {
	g.Reset()
	g.t0 = t0
	g.y0 = ode.Vector(y0[:g.dim]).Clone()
}

func (g *GlobalError) Observe(t float64, y []float64) {
	exact := g.solution.Exact(g.t0, g.y0, t)
	if exact == nil {
		g.maxError = math.NaN()
		return
	}
	g.maxError = math.Max(g.maxError, floats.Distance(y[:g.dim], exact, math.Inf(1)))
}

func (g *GlobalError) Value() float64 { return g.maxError }

func (g *GlobalError) Reset() { g.maxError = 0 }
