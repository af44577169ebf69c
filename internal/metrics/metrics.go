// Package metrics computes run quality indicators as step handlers. Each
// metric observes the state at the start of the run and at the end of every
// accepted step.
package metrics

import (
	"sort"

	"github.com/san-kum/odekit/internal/sampling"
)

type Metric interface {
	sampling.StepHandler
	Name() string
	Value() float64
	Reset()
}

// observer turns the StepHandler callbacks into state observations.
type observer struct {
	observe func(t float64, y []float64)
}

func (o observer) Init(t0 float64, y0 []float64, t float64) {
	o.observe(t0, y0)
}

func (o observer) HandleStep(interp sampling.StepInterpolator, isLast bool) error {
	st, err := interp.Interpolate(interp.CurrentTime())
	if err != nil {
		return err
	}
	o.observe(st.Time, st.Y)
	return nil
}

// Values collects the current value of every metric by name.
func Values(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// Names returns the sorted keys of a Values map.
func Names(values map[string]float64) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
