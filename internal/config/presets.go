package config

import "sort"

func adaptive(abs, rel float64) StepConfig {
	return StepConfig{AbsTol: abs, RelTol: rel, Fixed: DefaultFixedStep, NSteps: DefaultSteps}
}

func preset(problem, integrator string, t1 float64, init []float64, params map[string]float64, step StepConfig) *Config {
	cfg := DefaultConfig()
	cfg.Problem = problem
	cfg.Integrator = integrator
	cfg.T1 = t1
	cfg.InitState = init
	cfg.Params = params
	cfg.Step = step
	return cfg
}

var Presets = map[string]map[string]*Config{
	"spring": {
		"undamped": preset("spring", "dp54", 20, []float64{1, 0},
			map[string]float64{"damping": 0}, adaptive(1e-10, 1e-10)),
		"damped": preset("spring", "dp54", 20, []float64{2, 0},
			nil, adaptive(1e-8, 1e-8)),
		"multistep": preset("spring", "adams-moulton", 20, []float64{1, 0},
			map[string]float64{"damping": 0}, adaptive(1e-9, 1e-9)),
		"rk4": preset("spring", "rk4", 10, []float64{1, 5},
			nil, StepConfig{AbsTol: DefaultAbsTol, RelTol: DefaultRelTol, Fixed: 0.01, NSteps: DefaultSteps}),
	},
	"pendulum": {
		"small": preset("pendulum", "dp54", 20, []float64{0.2, 0}, nil, adaptive(1e-8, 1e-8)),
		"large": preset("pendulum", "dp54", 20, []float64{2.5, 0}, nil, adaptive(1e-8, 1e-8)),
		"spinning": preset("pendulum", "hh54", 30, []float64{0.1, 8}, nil, adaptive(1e-8, 1e-8)),
	},
	"vanderpol": {
		"relaxation": preset("vanderpol", "dp54", 30, []float64{2, 0},
			map[string]float64{"mu": 5}, adaptive(1e-6, 1e-6)),
		"harmonic": preset("vanderpol", "bs32", 20, []float64{2, 0},
			map[string]float64{"mu": 0.1}, adaptive(1e-6, 1e-6)),
	},
	"lorenz": {
		"chaos": preset("lorenz", "dp54", 40, []float64{1, 1, 1}, nil, adaptive(1e-9, 1e-9)),
	},
	"rossler": {
		"attractor": preset("rossler", "dp54", 200, []float64{1, 1, 1}, nil, adaptive(1e-8, 1e-8)),
		"periodic": preset("rossler", "dp54", 200, []float64{1, 1, 1},
			map[string]float64{"c": 2.5}, adaptive(1e-8, 1e-8)),
	},
	"duffing": {
		"chaotic": preset("duffing", "ck54", 100, []float64{1, 0}, nil, adaptive(1e-8, 1e-8)),
	},
	"kepler": {
		"ellipse": preset("kepler", "adams-moulton", 20, nil,
			map[string]float64{"eccentricity": 0.5}, adaptive(1e-10, 1e-10)),
		"circular": preset("kepler", "dp54", 20, nil,
			map[string]float64{"eccentricity": 0}, adaptive(1e-10, 1e-10)),
	},
	"ball": {
		"bounce": preset("ball", "dp54", 10, []float64{10, 0}, nil, adaptive(1e-10, 1e-10)),
		"restitution": func() *Config {
			cfg := preset("ball", "dp54", 10, []float64{10, 0}, nil, adaptive(1e-10, 1e-10))
			cfg.ProblemEvents = false
			cfg.Events = []EventConfig{{
				Name:        "ground",
				Component:   0,
				Direction:   "decreasing",
				Action:      "reset_state",
				MaxCount:    8,
				Convergence: 1e-12,
				Reset:       ResetConfig{Component: 1, Scale: -0.8},
			}}
			return cfg
		}(),
		"apex": func() *Config {
			cfg := preset("ball", "adams-moulton", 10, []float64{10, 0}, nil, adaptive(1e-10, 1e-10))
			cfg.Events = []EventConfig{{
				Name:      "apex",
				Component: 1,
				Direction: "decreasing",
				Action:    "continue",
				MaxCheck:  0.1,
			}}
			return cfg
		}(),
	},
	"decay": {
		"stop": func() *Config {
			cfg := preset("decay", "fehlberg45", 10, []float64{1}, nil, adaptive(1e-10, 1e-10))
			cfg.Events = []EventConfig{{Name: "half", Component: 0, Value: 0.5, Action: "stop"}}
			return cfg
		}(),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(problem, preset string) *Config {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	cfg, ok := problemPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// ListPresets returns the sorted preset names of a problem.
func ListPresets(problem string) []string {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(problemPresets))
	for name := range problemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetProblems returns the sorted problem names that have presets.
func PresetProblems() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
