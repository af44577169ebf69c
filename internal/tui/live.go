package tui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

const (
	width       = 70
	height      = 20
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer draws the state of a running integration as ASCII frames. It
// is a sampling.FixedStepHandler; wrap it in a StepNormalizer to receive
// evenly spaced frames.
type LiveRenderer struct {
	out       io.Writer
	problem   string
	frameRate int
	lastFrame time.Time
	frames    int
	canvas    [][]rune
	trail     []struct{ x, y int }
}

// NewLiveRenderer draws at most frameRate frames per second. A non positive
// frameRate draws every sample.
func NewLiveRenderer(out io.Writer, problem string, frameRate int) *LiveRenderer {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	return &LiveRenderer{
		out:       out,
		problem:   problem,
		frameRate: frameRate,
		canvas:    canvas,
		trail:     make([]struct{ x, y int }, 0, 50),
	}
}

func (r *LiveRenderer) Frames() int { return r.frames }

func (r *LiveRenderer) Init(t0 float64, y0 []float64, t float64) {
	r.trail = r.trail[:0]
	r.frames = 0
	r.lastFrame = time.Time{}
	fmt.Fprint(r.out, hideCursor)
}

func (r *LiveRenderer) HandleStep(t float64, y, yDot []float64, isLast bool) error {
	if !isLast && r.frameRate > 0 {
		if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
			return nil
		}
	}
	r.lastFrame = time.Now()

	r.clear()

	switch r.problem {
	case "pendulum":
		r.drawPendulum(y)
	case "spring":
		r.drawSpring(y)
	case "ball":
		r.drawBall(y)
	default:
		r.drawGeneric(y)
	}

	r.frames++
	if err := r.render(y, t); err != nil {
		return err
	}
	if isLast {
		_, err := fmt.Fprint(r.out, showCursor)
		return err
	}
	return nil
}

func (r *LiveRenderer) clear() {
	for y := range r.canvas {
		for x := range r.canvas[y] {
			r.canvas[y][x] = ' '
		}
	}
}

func (r *LiveRenderer) set(x, y int, c rune) {
	if x >= 0 && x < width && y >= 0 && y < height {
		r.canvas[y][x] = c
	}
}

func (r *LiveRenderer) line(x1, y1, x2, y2 int, c rune) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		r.set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (r *LiveRenderer) drawPendulum(y []float64) {
	if len(y) < 2 {
		return
	}
	theta := y[0]
	px, py := width/2, 3
	length := 10.0
	bx := px + int(length*math.Sin(theta))
	by := py + int(length*math.Cos(theta))

	r.trail = append(r.trail, struct{ x, y int }{bx, by})
	if len(r.trail) > 40 {
		r.trail = r.trail[1:]
	}

	for i, pt := range r.trail {
		if i < len(r.trail)/2 {
			r.set(pt.x, pt.y, '.')
		} else {
			r.set(pt.x, pt.y, 'o')
		}
	}

	r.set(px, py, '+')
	r.line(px, py, bx, by, '|')
	r.set(bx, by, 'O')
}

func (r *LiveRenderer) drawSpring(y []float64) {
	if len(y) < 2 {
		return
	}
	pos := y[0]
	cy := height / 2

	for row := cy - 2; row <= cy+2; row++ {
		r.set(5, row, '#')
	}

	mx := 20 + int(pos*8)
	for i := 6; i < mx-2; i += 2 {
		r.set(i, cy, '~')
	}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			r.set(mx+dx, cy+dy, '#')
		}
	}
}

// drawBall scales heights of up to 10 units onto the canvas.
func (r *LiveRenderer) drawBall(y []float64) {
	if len(y) < 2 {
		return
	}
	ground := height - 2
	for i := 3; i < width-3; i++ {
		r.set(i, ground+1, '_')
	}

	bx := width / 2
	by := ground - int(math.Max(y[0], 0)*float64(ground-1)/10)
	r.set(bx, by, 'O')
}

func (r *LiveRenderer) drawGeneric(y []float64) {
	cy := height / 2
	for i := 5; i < width-5; i++ {
		r.set(i, cy, '-')
	}

	if len(y) == 0 {
		return
	}

	bw := (width - 15) / len(y)
	if bw < 3 {
		bw = 3
	}

	maxVal := 1.0
	for _, v := range y {
		if math.Abs(v) > maxVal {
			maxVal = math.Abs(v)
		}
	}

	for i, v := range y {
		bx := 8 + i*bw
		bh := int((v / maxVal) * float64(height/3))
		if bh > 0 {
			for row := cy - 1; row >= cy-bh && row >= 1; row-- {
				r.set(bx, row, '#')
			}
		} else {
			for row := cy + 1; row <= cy-bh && row < height-1; row++ {
				r.set(bx, row, '#')
			}
		}
	}
}

func (r *LiveRenderer) render(y []float64, t float64) error {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  t=%.2f\n", r.problem, t))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	for _, row := range r.canvas {
		b.WriteString("  ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}

	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	b.WriteString("  ")
	for i, v := range y {
		if i >= 4 {
			break
		}
		b.WriteString(fmt.Sprintf("%s=%.3f ", Label(r.problem, i), v))
	}
	b.WriteString("\n")

	_, err := io.WriteString(r.out, b.String())
	return err
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
