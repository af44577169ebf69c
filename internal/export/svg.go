// Package export renders stored trajectories as SVG documents.
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/storage"
)

var palette = []string{"#00d7af", "#ffaf00", "#ff5fd7", "#5fafff", "#d7ff5f", "#ff5f5f"}

type bounds struct{ minX, maxX, minY, maxY float64 }

func (b *bounds) add(x, y float64) {
	b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
	b.minY, b.maxY = math.Min(b.minY, y), math.Max(b.maxY, y)
}

// pad widens the box by 5% and keeps it non-degenerate.
func (b *bounds) pad() {
	rx, ry := b.maxX-b.minX, b.maxY-b.minY
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	b.minX -= rx * 0.05
	b.maxX += rx * 0.05
	b.minY -= ry * 0.05
	b.maxY += ry * 0.05
}

func (b bounds) project(x, y float64, width, height int) (float64, float64) {
	px := (x - b.minX) / (b.maxX - b.minX) * float64(width)
	py := float64(height) - (y-b.minY)/(b.maxY-b.minY)*float64(height)
	return px, py
}

func newBounds() bounds {
	return bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
}

func header(w *bufio.Writer, width, height int) {
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

func path(w *bufio.Writer, xs, ys []float64, b bounds, width, height int, color string) {
	fmt.Fprintf(w, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, color)
	pen := "M"
	for i := range xs {
		if !ode.Vector([]float64{xs[i], ys[i]}).IsValid() {
			pen = "M"
			continue
		}
		x, y := b.project(xs[i], ys[i], width, height)
		fmt.Fprintf(w, "%s%.1f,%.1f ", pen, x, y)
		pen = "L"
	}
	w.WriteString("\"/>\n")
}

// TimeSeriesSVG draws every state component of traj against time, one
// colour per component.
func TimeSeriesSVG(out io.Writer, traj storage.Trajectory, width, height int) error {
	if traj.Len() < 2 {
		return fmt.Errorf("export: need at least 2 samples, got %d", traj.Len())
	}
	dim := len(traj.States[0])

	b := newBounds()
	columns := make([][]float64, dim)
	for c := range columns {
		columns[c] = make([]float64, traj.Len())
	}
	for i, s := range traj.States {
		for c := 0; c < dim; c++ {
			columns[c][i] = s[c]
			if !math.IsNaN(s[c]) && !math.IsInf(s[c], 0) {
				b.add(traj.Times[i], s[c])
			}
		}
	}
	b.pad()

	w := bufio.NewWriter(out)
	header(w, width, height)
	for c, col := range columns {
		path(w, traj.Times, col, b, width, height, palette[c%len(palette)])
	}
	w.WriteString("</svg>\n")
	return w.Flush()
}

// PhaseSVG draws component y against component x.
func PhaseSVG(out io.Writer, traj storage.Trajectory, x, y, width, height int) error {
	if traj.Len() < 2 {
		return fmt.Errorf("export: need at least 2 samples, got %d", traj.Len())
	}
	dim := len(traj.States[0])
	if x < 0 || y < 0 || x >= dim || y >= dim {
		return fmt.Errorf("%w: components %d, %d for dimension %d", ode.ErrDimensionMismatch, x, y, dim)
	}

	b := newBounds()
	xs := make([]float64, traj.Len())
	ys := make([]float64, traj.Len())
	for i, s := range traj.States {
		xs[i], ys[i] = s[x], s[y]
		if ode.Vector([]float64{xs[i], ys[i]}).IsValid() {
			b.add(xs[i], ys[i])
		}
	}
	b.pad()

	w := bufio.NewWriter(out)
	header(w, width, height)
	path(w, xs, ys, b, width, height, palette[0])
	w.WriteString("</svg>\n")
	return w.Flush()
}
