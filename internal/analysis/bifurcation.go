package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/odekit/internal/events"
	"github.com/san-kum/odekit/internal/integrators"
	"github.com/san-kum/odekit/internal/problems"
)

// BifurcationPoint represents the attractor found for one parameter value
type BifurcationPoint struct {
	Param  float64
	Values []float64 // distinct local maxima of the recorded component
}

// maximaRecorder fires where the derivative of one component crosses zero
// downward, i.e. at the local maxima of that component.
type maximaRecorder struct {
	sys    problems.Problem
	index  int
	after  float64
	yDot   []float64
	maxima []float64
}

func (m *maximaRecorder) Init(t0 float64, y0 []float64, t float64) {
	m.maxima = m.maxima[:0]
	m.yDot = make([]float64, m.sys.Dimension())
}

func (m *maximaRecorder) G(t float64, y []float64) float64 {
	if err := m.sys.ComputeDerivatives(t, y[:m.sys.Dimension()], m.yDot); err != nil {
		return math.NaN()
	}
	return m.yDot[m.index]
}

func (m *maximaRecorder) EventOccurred(t float64, y []float64, increasing bool) events.Action {
	if t >= m.after {
		m.maxima = append(m.maxima, y[m.index])
	}
	return events.Continue
}

func (m *maximaRecorder) ResetState(t float64, y []float64) {}

// BifurcationDiagram sweeps a parameter and records the local maxima of one
// state component once the transient has died out.
// This is useful for visualizing transitions to chaos.
//
// Parameters:
// - integ: integrator to use
// - sys: problem whose parameter is swept
// - paramName: name of parameter to sweep
// - paramMin, paramMax: range to sweep
// - paramSteps: number of parameter values to test
// - stateIndex: which state variable to record
// - transient, record: timing parameters
// - maxCheck: largest gap between two maximum checks
func BifurcationDiagram(
	integ *integrators.Integrator,
	sys problems.Problem,
	paramName string,
	paramMin, paramMax float64,
	paramSteps int,
	stateIndex int,
	y0 []float64,
	transient, record, maxCheck float64,
) ([]BifurcationPoint, error) {
	if stateIndex < 0 || stateIndex >= sys.Dimension() {
		return nil, fmt.Errorf("state index %d out of range for %s", stateIndex, sys.Name())
	}
	original, ok := sys.Params()[paramName]
	if !ok {
		return nil, fmt.Errorf("unknown param for %s: %s", sys.Name(), paramName)
	}
	defer sys.SetParam(paramName, original)

	if paramSteps <= 1 {
		paramSteps = 2 // Prevent division by zero
	}
	paramStep := (paramMax - paramMin) / float64(paramSteps-1)

	recorder := &maximaRecorder{sys: sys, index: stateIndex, after: transient}
	cfg := events.DefaultConfig()
	cfg.Direction = events.Decreasing
	cfg.MaxCheckInterval = maxCheck
	if err := integ.AddEventHandler(recorder, cfg); err != nil {
		return nil, err
	}
	defer integ.RemoveEventHandler(recorder)

	results := make([]BifurcationPoint, 0, paramSteps)
	y := make([]float64, len(y0))

	for i := 0; i < paramSteps; i++ {
		param := paramMin + float64(i)*paramStep
		if err := sys.SetParam(paramName, param); err != nil {
			return nil, err
		}

		if _, err := integ.Integrate(sys, 0, y0, transient+record, y); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", paramName, param, err)
		}

		// Quantize to find distinct values
		values := make([]float64, 0, len(recorder.maxima))
		seen := make(map[int]bool)
		for _, v := range recorder.maxima {
			key := int(math.Round(v * 1000))
			if !seen[key] {
				seen[key] = true
				values = append(values, v)
			}
		}

		results = append(results, BifurcationPoint{
			Param:  param,
			Values: values,
		})
	}

	return results, nil
}

// BifurcationToASCII converts bifurcation data to ASCII art
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	// Find value range - need at least one valid value
	var minVal, maxVal float64
	foundFirst := false
	for _, p := range data {
		for _, v := range p.Values {
			if !foundFirst {
				minVal, maxVal = v, v
				foundFirst = true
			} else {
				minVal, maxVal = min(minVal, v), max(maxVal, v)
			}
		}
	}
	if !foundFirst {
		return "" // No values to plot
	}

	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for i, p := range data {
		col := i * width / len(data)
		if col >= width {
			col = width - 1
		}

		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			if row >= 0 && row < height {
				canvas[row][col] = '•'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
