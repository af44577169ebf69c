// Package config reads and validates experiment descriptions.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/odekit/internal/events"
	"github.com/san-kum/odekit/internal/ode"
)

const (
	DefaultT1                 = 10.0
	DefaultSampleStep         = 0.01
	DefaultAbsTol             = 1e-8
	DefaultRelTol             = 1e-8
	DefaultFixedStep          = 0.01
	DefaultSteps              = 4
	DefaultStabilityThreshold = 1e6
)

type Config struct {
	Problem    string             `yaml:"problem"`
	Integrator string             `yaml:"integrator"`
	T0         float64            `yaml:"t0"`
	T1         float64            `yaml:"t1"`
	InitState  []float64          `yaml:"init_state,omitempty"`
	Params     map[string]float64 `yaml:"params,omitempty"`
	SampleStep float64            `yaml:"sample_step"`
	Step       StepConfig         `yaml:"step"`
	Events     []EventConfig      `yaml:"events,omitempty"`
	// ProblemEvents keeps the switching functions that come with the
	// problem itself, such as the bouncing ball ground contact.
	ProblemEvents      bool    `yaml:"problem_events"`
	StabilityThreshold float64 `yaml:"stability_threshold"`
	MaxEvaluations     int     `yaml:"max_evaluations,omitempty"`
}

// StepConfig selects the step size policy. Adaptive methods use the
// tolerances and bounds, fixed step methods use Fixed, multistep methods
// also use NSteps and MaxCorrections.
type StepConfig struct {
	Min            float64 `yaml:"min"`
	Max            float64 `yaml:"max,omitempty"`
	Initial        float64 `yaml:"initial,omitempty"`
	AbsTol         float64 `yaml:"abs_tol"`
	RelTol         float64 `yaml:"rel_tol"`
	Fixed          float64 `yaml:"fixed"`
	NSteps         int     `yaml:"n_steps"`
	MaxCorrections int     `yaml:"max_corrections,omitempty"`
}

// EventConfig describes a threshold event g = y[Component] - Value.
type EventConfig struct {
	Name        string      `yaml:"name"`
	Component   int         `yaml:"component"`
	Value       float64     `yaml:"value"`
	Direction   string      `yaml:"direction,omitempty"`
	Action      string      `yaml:"action"`
	MaxCount    int         `yaml:"max_count,omitempty"`
	MaxCheck    float64     `yaml:"max_check,omitempty"`
	Convergence float64     `yaml:"convergence,omitempty"`
	Reset       ResetConfig `yaml:"reset,omitempty"`
}

// ResetConfig multiplies y[Component] by Scale when a reset_state event
// fires. A zero Scale leaves the state unchanged.
type ResetConfig struct {
	Component int     `yaml:"component"`
	Scale     float64 `yaml:"scale"`
}

func DefaultConfig() *Config {
	return &Config{
		Problem:    "spring",
		Integrator: "dp54",
		T1:         DefaultT1,
		SampleStep: DefaultSampleStep,
		Step: StepConfig{
			AbsTol: DefaultAbsTol,
			RelTol: DefaultRelTol,
			Fixed:  DefaultFixedStep,
			NSteps: DefaultSteps,
		},
		ProblemEvents:      true,
		StabilityThreshold: DefaultStabilityThreshold,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy, so presets can be customised safely.
func (c *Config) Clone() *Config {
	out := *c
	out.InitState = append([]float64(nil), c.InitState...)
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	out.Events = append([]EventConfig(nil), c.Events...)
	return &out
}

// Span is the signed integration range.
func (c *Config) Span() float64 { return c.T1 - c.T0 }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ode.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Validate checks everything that does not need the problem registry.
func (c *Config) Validate() error {
	if c.Problem == "" {
		return invalid("problem is required")
	}
	if c.Integrator == "" {
		return invalid("integrator is required")
	}
	if !finite(c.T0) || !finite(c.T1) {
		return invalid("t0=%g t1=%g", c.T0, c.T1)
	}
	if c.T0 == c.T1 {
		return invalid("empty integration range t0=t1=%g", c.T0)
	}
	if c.SampleStep < 0 || !finite(c.SampleStep) {
		return invalid("sample_step %g", c.SampleStep)
	}
	for i, v := range c.InitState {
		if !finite(v) {
			return invalid("init_state[%d]=%g", i, v)
		}
	}

	s := c.Step
	if !(s.AbsTol > 0) || !(s.RelTol > 0) {
		return invalid("tolerances abs=%g rel=%g", s.AbsTol, s.RelTol)
	}
	if s.Min < 0 || s.Max < 0 || s.Initial < 0 {
		return invalid("step bounds min=%g max=%g initial=%g", s.Min, s.Max, s.Initial)
	}
	if s.Max > 0 && s.Min > s.Max {
		return invalid("step min %g above max %g", s.Min, s.Max)
	}
	if !(s.Fixed > 0) || !finite(s.Fixed) {
		return invalid("fixed step %g", s.Fixed)
	}
	if s.NSteps < 2 {
		return invalid("n_steps %d below 2", s.NSteps)
	}
	if s.MaxCorrections < 0 {
		return invalid("max_corrections %d", s.MaxCorrections)
	}
	if c.MaxEvaluations < 0 {
		return invalid("max_evaluations %d", c.MaxEvaluations)
	}

	names := make(map[string]bool, len(c.Events))
	for i, ev := range c.Events {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if ev.Name != "" && names[ev.Name] {
			return invalid("duplicate event name %q", ev.Name)
		}
		names[ev.Name] = true
	}
	return nil
}

func (e EventConfig) Validate() error {
	if e.Component < 0 {
		return invalid("component %d", e.Component)
	}
	if !finite(e.Value) {
		return invalid("value %g", e.Value)
	}
	if _, err := events.ParseDirection(e.Direction); err != nil {
		return invalid("%v", err)
	}
	action, err := events.ParseAction(e.Action)
	if err != nil {
		return invalid("%v", err)
	}
	if e.MaxCount < 0 {
		return invalid("max_count %d", e.MaxCount)
	}
	if e.MaxCheck < 0 || e.Convergence < 0 {
		return invalid("max_check=%g convergence=%g", e.MaxCheck, e.Convergence)
	}
	if e.Reset.Component < 0 {
		return invalid("reset component %d", e.Reset.Component)
	}
	if e.Reset.Scale != 0 && action != events.ResetState {
		return invalid("reset scale needs action %s, got %s", events.ResetState, action)
	}
	return nil
}

// Settings builds the events.Config of a threshold event. The direction and
// action were checked by Validate.
func (e EventConfig) Settings() (events.Config, events.Action) {
	cfg := events.DefaultConfig()
	cfg.Direction, _ = events.ParseDirection(e.Direction)
	cfg.MaxEventCount = e.MaxCount
	if e.MaxCheck > 0 {
		cfg.MaxCheckInterval = e.MaxCheck
	}
	if e.Convergence > 0 {
		cfg.Convergence = e.Convergence
	}
	action, _ := events.ParseAction(e.Action)
	return cfg, action
}
