package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/odekit/internal/events"
	"github.com/san-kum/odekit/internal/integrators"
	"github.com/san-kum/odekit/internal/ode"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []Point
}

// NewPhasePortrait projects sampled states onto two components.
func NewPhasePortrait(states []ode.State, xIdx, yIdx int) (*PhasePortrait2D, error) {
	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, 0, len(states)),
	}

	for _, s := range states {
		if xIdx < 0 || yIdx < 0 || xIdx >= len(s.Y) || yIdx >= len(s.Y) {
			return nil, fmt.Errorf("%w: phase indices (%d, %d) for dimension %d",
				ode.ErrDimensionMismatch, xIdx, yIdx, len(s.Y))
		}
		portrait.Points = append(portrait.Points, Point{X: s.Y[xIdx], Y: s.Y[yIdx]})
	}

	return portrait, nil
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y

	for _, p := range portrait.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Draw axes if they cross the visible area
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
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

// PoincareSection records (y[RecordX], y[RecordY]) every time y[CrossIndex]
// crosses Threshold upward. It is an events.Handler, so crossings are
// located to the event convergence instead of the step grid.
type PoincareSection struct {
	CrossIndex       int
	Threshold        float64
	RecordX, RecordY int
	Times            []float64
	Points           []Point
}

func (p *PoincareSection) Init(t0 float64, y0 []float64, t float64) {
	p.Times = p.Times[:0]
	p.Points = p.Points[:0]
}

func (p *PoincareSection) G(t float64, y []float64) float64 {
	return y[p.CrossIndex] - p.Threshold
}

func (p *PoincareSection) EventOccurred(t float64, y []float64, increasing bool) events.Action {
	p.Times = append(p.Times, t)
	p.Points = append(p.Points, Point{X: y[p.RecordX], Y: y[p.RecordY]})
	return events.Continue
}

func (p *PoincareSection) ResetState(t float64, y []float64) {}

// GeneratePoincareSection integrates sys from t0 to t0+duration and collects
// the section. maxCheck bounds the gap between two crossing checks.
func GeneratePoincareSection(
	integ *integrators.Integrator,
	sys ode.System,
	y0 []float64,
	crossIdx int,
	threshold float64,
	recordX, recordY int,
	t0, duration, maxCheck float64,
) (*PoincareSection, error) {
	n := len(y0)
	if crossIdx >= n || recordX >= n || recordY >= n || crossIdx < 0 || recordX < 0 || recordY < 0 {
		return nil, fmt.Errorf("%w: section indices for dimension %d", ode.ErrDimensionMismatch, n)
	}

	section := &PoincareSection{
		CrossIndex: crossIdx,
		Threshold:  threshold,
		RecordX:    recordX,
		RecordY:    recordY,
	}

	cfg := events.DefaultConfig()
	cfg.Direction = events.Increasing
	cfg.MaxCheckInterval = maxCheck
	if err := integ.AddEventHandler(section, cfg); err != nil {
		return nil, err
	}
	defer integ.RemoveEventHandler(section)

	y := make([]float64, n)
	if _, err := integ.Integrate(sys, t0, y0, t0+duration, y); err != nil {
		return nil, err
	}
	return section, nil
}

// PoincareSectionToASCII converts section data to ASCII plot
func PoincareSectionToASCII(section *PoincareSection, width, height int) string {
	if section == nil || len(section.Points) == 0 {
		return "No crossings detected"
	}

	portrait := &PhasePortrait2D{Points: section.Points}
	return PhasePortraitToASCII(portrait, width, height)
}
