// Package experiment turns a config.Config into an integration run: it
// resolves the problem and integrator by name, wires events, sampling and
// metrics, and collects the outcome in a Result.
package experiment

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/go-logr/logr"

	"github.com/san-kum/odekit/internal/config"
	"github.com/san-kum/odekit/internal/events"
	"github.com/san-kum/odekit/internal/integrators"
	"github.com/san-kum/odekit/internal/metrics"
	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/problems"
	"github.com/san-kum/odekit/internal/sampling"
	"github.com/san-kum/odekit/internal/storage"
)

type Result struct {
	Problem    string
	Integrator string
	Params     map[string]float64
	InitState  []float64

	Times  []float64
	States [][]float64

	// TFinal is the time reached. It differs from the configured end when a
	// stop event fired or the run failed.
	TFinal  float64
	Stopped bool
	Events  []storage.EventRecord

	Statistics integrators.Statistics
	Metrics    map[string]float64
	Elapsed    time.Duration
}

type options struct {
	logger   logr.Logger
	registry *Registry
	handlers []sampling.StepHandler
}

type Option func(*options)

func WithLogger(l logr.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithStepHandler attaches an extra handler, e.g. a live view.
func WithStepHandler(h sampling.StepHandler) Option {
	return func(o *options) { o.handlers = append(o.handlers, h) }
}

// Run executes the experiment. Cancelling ctx aborts the integration at the
// next accepted step; the partial Result is returned along with ctx.Err().
func Run(ctx context.Context, cfg *config.Config, opts ...Option) (*Result, error) {
	o := options{logger: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := o.registry.GetProblem(cfg.Problem)
	if err != nil {
		return nil, err
	}
	for _, name := range slices.Sorted(maps.Keys(cfg.Params)) {
		if err := p.SetParam(name, cfg.Params[name]); err != nil {
			return nil, err
		}
	}

	y0 := cfg.InitState
	if len(y0) == 0 {
		y0 = p.DefaultState()
	}
	if len(y0) != p.Dimension() {
		return nil, fmt.Errorf("%w: %s has dimension %d, init_state has %d",
			ode.ErrDimensionMismatch, p.Name(), p.Dimension(), len(y0))
	}

	integ, err := o.registry.GetIntegrator(cfg.Integrator, cfg.Step, cfg.Span())
	if err != nil {
		return nil, err
	}
	integ.SetLogger(o.logger.WithName(cfg.Integrator))
	integ.SetMaxEvaluations(cfg.MaxEvaluations)

	res := &Result{
		Problem:    p.Name(),
		Integrator: cfg.Integrator,
		Params:     p.Params(),
		InitState:  ode.Vector(y0).Clone(),
	}

	if err := addEvents(integ, p, cfg, res); err != nil {
		return nil, err
	}

	integ.AddStepHandler(sampling.StepHandlerFunc(func(interp sampling.StepInterpolator, isLast bool) error {
		return ctx.Err()
	}))

	ms := o.registry.DefaultMetrics(p, cfg.StabilityThreshold)
	for _, m := range ms {
		integ.AddStepHandler(m)
	}

	rec := &recorder{res: res}
	if cfg.SampleStep > 0 {
		integ.AddStepHandler(sampling.NewStepNormalizer(cfg.SampleStep, rec, sampling.Increment, sampling.BoundsBoth))
	} else {
		integ.AddStepHandler(stepEnds{rec})
	}
	for _, h := range o.handlers {
		integ.AddStepHandler(h)
	}

	o.logger.V(1).Info("run started", "problem", p.Name(), "integrator", integ.Name(),
		"t0", cfg.T0, "t1", cfg.T1, "events", len(integ.EventHandlers()))

	start := time.Now()
	y := make([]float64, len(y0))
	tFinal, err := integ.Integrate(p, cfg.T0, y0, cfg.T1, y)
	res.Elapsed = time.Since(start)
	res.Statistics = integ.Statistics()
	res.Metrics = metrics.Values(ms)

	if err != nil {
		if len(res.Times) > 0 {
			res.TFinal = res.Times[len(res.Times)-1]
		} else {
			res.TFinal = cfg.T0
		}
		o.logger.Error(err, "run failed", "problem", p.Name(), "t", res.TFinal)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		return res, fmt.Errorf("%s with %s: %w", p.Name(), cfg.Integrator, err)
	}

	res.TFinal = tFinal
	res.Stopped = tFinal != cfg.T1
	o.logger.V(1).Info("run finished", "t", tFinal, "steps", res.Statistics.Steps,
		"evaluations", res.Statistics.Evaluations, "elapsed", res.Elapsed)
	return res, nil
}

func addEvents(integ *integrators.Integrator, p problems.Problem, cfg *config.Config, res *Result) error {
	if h, ok := p.(events.Handler); ok && cfg.ProblemEvents {
		settings := events.DefaultConfig()
		if c, ok := p.(interface{ EventConfig() events.Config }); ok {
			settings = c.EventConfig()
		}
		if err := integ.AddEventHandler(&recordedHandler{Handler: h, name: p.Name(), res: res}, settings); err != nil {
			return err
		}
	}

	for i, ev := range cfg.Events {
		if ev.Component >= p.Dimension() || ev.Reset.Component >= p.Dimension() {
			return fmt.Errorf("%w: event %d component out of range for %s",
				ode.ErrDimensionMismatch, i, p.Name())
		}
		name := ev.Name
		if name == "" {
			name = fmt.Sprintf("event%d", i)
		}
		settings, action := ev.Settings()
		h := &thresholdEvent{component: ev.Component, value: ev.Value, action: action, reset: ev.Reset}
		if err := integ.AddEventHandler(&recordedHandler{Handler: h, name: name, res: res}, settings); err != nil {
			return fmt.Errorf("event %s: %w", name, err)
		}
	}
	return nil
}

// Metadata describes the run for storage.
func (r *Result) Metadata(cfg *config.Config) storage.RunMetadata {
	meta := storage.RunMetadata{
		Problem:      r.Problem,
		Integrator:   r.Integrator,
		T0:           cfg.T0,
		T1:           cfg.T1,
		TFinal:       r.TFinal,
		SampleStep:   cfg.SampleStep,
		Params:       r.Params,
		InitialState: r.InitState,
		Statistics: finiteValues(map[string]float64{
			"evaluations":     float64(r.Statistics.Evaluations),
			"steps":           float64(r.Statistics.Steps),
			"rejected":        float64(r.Statistics.Rejected),
			"restarts":        float64(r.Statistics.Restarts),
			"events":          float64(r.Statistics.Events),
			"max_error_ratio": r.Statistics.MaxErrorRatio,
			"min_step":        r.Statistics.MinStepSize,
			"max_step":        r.Statistics.MaxStepSize,
			"elapsed_seconds": r.Elapsed.Seconds(),
		}),
		Metrics: finiteValues(r.Metrics),
		Events:  r.Events,
		Stopped: r.Stopped,
	}
	if IsAdaptive(cfg.Integrator) {
		meta.AbsTol = cfg.Step.AbsTol
		meta.RelTol = cfg.Step.RelTol
	} else {
		meta.Step = cfg.Step.Fixed
	}
	return meta
}

// finiteValues drops NaN and Inf entries, which JSON cannot encode.
func finiteValues(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func (r *Result) Trajectory() storage.Trajectory {
	return storage.Trajectory{Times: r.Times, States: r.States}
}

// Column returns component i of every sample.
func (r *Result) Column(i int) []float64 {
	col := make([]float64, len(r.States))
	for k, s := range r.States {
		col[k] = s[i]
	}
	return col
}
