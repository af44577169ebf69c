package experiment

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/san-kum/odekit/internal/config"
	"github.com/san-kum/odekit/internal/integrators"
	"github.com/san-kum/odekit/internal/metrics"
	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/problems"
)

// IntegratorFactory builds an integrator for a run spanning span time units.
type IntegratorFactory func(step config.StepConfig, span float64) (*integrators.Integrator, error)

type Registry struct {
	problems    map[string]func() problems.Problem
	integrators map[string]IntegratorFactory
}

func stepControl(step config.StepConfig, span float64) integrators.StepControl {
	maxStep := step.Max
	if maxStep == 0 {
		maxStep = math.Abs(span)
	}
	control := integrators.DefaultStepControl(step.Min, maxStep, step.AbsTol, step.RelTol)
	control.InitialStep = step.Initial
	return control
}

func embedded(tab func() *integrators.Tableau) IntegratorFactory {
	return func(step config.StepConfig, span float64) (*integrators.Integrator, error) {
		return integrators.NewEmbeddedRungeKutta(tab(), stepControl(step, span))
	}
}

func fixed(tab func() *integrators.Tableau) IntegratorFactory {
	return func(step config.StepConfig, span float64) (*integrators.Integrator, error) {
		return integrators.NewRungeKutta(tab(), step.Fixed)
	}
}

func NewRegistry() *Registry {
	r := &Registry{
		problems:    make(map[string]func() problems.Problem),
		integrators: make(map[string]IntegratorFactory),
	}

	r.problems["decay"] = func() problems.Problem { return problems.NewDecay(1) }
	r.problems["spring"] = func() problems.Problem { return problems.NewSpringMass() }
	r.problems["pendulum"] = func() problems.Problem { return problems.NewPendulum() }
	r.problems["vanderpol"] = func() problems.Problem { return problems.NewVanDerPol() }
	r.problems["lorenz"] = func() problems.Problem { return problems.NewLorenz() }
	r.problems["duffing"] = func() problems.Problem { return problems.NewDuffing() }
	r.problems["ball"] = func() problems.Problem { return problems.NewBouncingBall() }
	r.problems["kepler"] = func() problems.Problem { return problems.NewKepler(0.5) }
	r.problems["rossler"] = func() problems.Problem { return problems.NewRossler() }

	r.integrators["dp54"] = embedded(integrators.DormandPrince54)
	r.integrators["ck54"] = embedded(integrators.CashKarp54)
	r.integrators["fehlberg45"] = embedded(integrators.Fehlberg45)
	r.integrators["bs32"] = embedded(integrators.BogackiShampine32)
	r.integrators["hh54"] = embedded(integrators.HighamHall54)

	r.integrators["euler"] = fixed(integrators.Euler)
	r.integrators["midpoint"] = fixed(integrators.Midpoint)
	r.integrators["rk4"] = fixed(integrators.ClassicalRK4)
	r.integrators["3/8"] = fixed(integrators.ThreeEighths)
	r.integrators["gill"] = fixed(integrators.Gill)

	r.integrators["adams-bashforth"] = func(step config.StepConfig, span float64) (*integrators.Integrator, error) {
		return integrators.NewAdamsBashforth(step.NSteps, stepControl(step, span))
	}
	r.integrators["adams-moulton"] = func(step config.StepConfig, span float64) (*integrators.Integrator, error) {
		return integrators.NewAdamsMoulton(step.NSteps, stepControl(step, span),
			integrators.WithMaxCorrections(step.MaxCorrections))
	}

	return r
}

// RegisterProblem adds or replaces a problem constructor.
func (r *Registry) RegisterProblem(name string, fn func() problems.Problem) {
	r.problems[name] = fn
}

// RegisterIntegrator adds or replaces an integrator constructor.
func (r *Registry) RegisterIntegrator(name string, fn IntegratorFactory) {
	r.integrators[name] = fn
}

func (r *Registry) GetProblem(name string) (problems.Problem, error) {
	fn, ok := r.problems[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetIntegrator(name string, step config.StepConfig, span float64) (*integrators.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	integ, err := fn(step, span)
	if err != nil {
		return nil, fmt.Errorf("integrator %s: %w", name, err)
	}
	return integ, nil
}

func (r *Registry) ListProblems() []string { return slices.Sorted(maps.Keys(r.problems)) }

func (r *Registry) ListIntegrators() []string { return slices.Sorted(maps.Keys(r.integrators)) }

// IsAdaptive reports whether the named integrator controls its step size.
func IsAdaptive(name string) bool {
	switch name {
	case "euler", "midpoint", "rk4", "3/8", "gill":
		return false
	}
	return true
}

// DefaultMetrics picks the metrics that make sense for p. Energy drift needs
// a conserved energy and global error a closed form solution.
func (r *Registry) DefaultMetrics(p problems.Problem, stabilityThreshold float64) []metrics.Metric {
	ms := []metrics.Metric{
		metrics.NewStability(stabilityThreshold),
		metrics.NewStepSizes(),
	}
	if h, ok := p.(ode.Hamiltonian); ok && conservative(p) {
		ms = append(ms, metrics.NewEnergyDrift(h))
	}
	if s, ok := p.(ode.Solution); ok {
		ms = append(ms, metrics.NewGlobalError(s, p.Dimension()))
	}
	return ms
}

func conservative(p problems.Problem) bool {
	params := p.Params()
	if d, ok := params["damping"]; ok && d != 0 {
		return false
	}
	return true
}
