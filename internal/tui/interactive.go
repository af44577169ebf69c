// Package tui holds the terminal front ends: a bubbletea replay viewer for
// stored runs and a plain live renderer used while a run is in progress.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/odekit/internal/storage"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

var stateLabels = map[string][]string{
	"decay":     {"y"},
	"spring":    {"x", "v"},
	"pendulum":  {"θ", "ω"},
	"vanderpol": {"x", "ẋ"},
	"duffing":   {"x", "ẋ"},
	"lorenz":    {"x", "y", "z"},
	"rossler":   {"x", "y", "z"},
	"ball":      {"h", "v"},
	"kepler":    {"x", "y", "vx", "vy"},
}

// Label names component i of a problem's state.
func Label(problem string, i int) string {
	if labels := stateLabels[problem]; i < len(labels) {
		return labels[i]
	}
	return fmt.Sprintf("y%d", i)
}

const (
	maxSpeed  = 64
	plotWidth = 72
)

// Replay steps through the samples of a stored run.
type Replay struct {
	meta storage.RunMetadata
	traj storage.Trajectory

	index     int
	playing   bool
	speed     int
	component int

	width  int
	height int
}

func NewReplay(meta storage.RunMetadata, traj storage.Trajectory) *Replay {
	return &Replay{
		meta:    meta,
		traj:    traj,
		playing: true,
		speed:   1,
		width:   80,
		height:  24,
	}
}

// RunReplay blocks until the user quits the viewer.
func RunReplay(meta storage.RunMetadata, traj storage.Trajectory) error {
	if traj.Len() == 0 {
		return fmt.Errorf("run %s has no samples", meta.ID)
	}
	_, err := tea.NewProgram(NewReplay(meta, traj), tea.WithAltScreen()).Run()
	return err
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Replay) Init() tea.Cmd { return tick() }

func (m *Replay) Index() int { return m.index }

func (m *Replay) Playing() bool { return m.playing }

func (m *Replay) Component() int { return m.component }

func (m *Replay) Speed() int { return m.speed }

func (m *Replay) last() int { return m.traj.Len() - 1 }

func (m *Replay) seek(i int) {
	m.index = max(0, min(i, m.last()))
}

func (m *Replay) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.playing {
			m.seek(m.index + m.speed)
			if m.index == m.last() {
				m.playing = false
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m *Replay) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return tea.Quit
	case " ", "p":
		if m.index == m.last() {
			m.index = 0
		}
		m.playing = !m.playing
	case "right", "l":
		m.playing = false
		m.seek(m.index + 1)
	case "left", "h":
		m.playing = false
		m.seek(m.index - 1)
	case "home", "g":
		m.seek(0)
	case "end", "G":
		m.seek(m.last())
	case "+", "=":
		m.speed = min(m.speed*2, maxSpeed)
	case "-", "_":
		m.speed = max(m.speed/2, 1)
	case "0":
		m.speed = 1
	case "tab":
		if n := len(m.traj.States[0]); n > 0 {
			m.component = (m.component + 1) % n
		}
	}
	return nil
}

func (m *Replay) View() string {
	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("playing")
	if !m.playing {
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s %s  %s\n",
		statusIcon, cyan.Render(m.meta.Problem), dim.Render(m.meta.Integrator), statusText))

	t := m.traj.Times[m.index]
	progress := 1.0
	if m.last() > 0 {
		progress = float64(m.index) / float64(m.last())
	}
	barWidth := 36
	filled := int(progress * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	timeStr := fmt.Sprintf("t=%.3f/%.3f", t, m.traj.Times[m.last()])
	b.WriteString(fmt.Sprintf("   %s %s  %s\n\n", bar, dim.Render(timeStr), dim.Render(fmt.Sprintf("x%d", m.speed))))

	b.WriteString(m.plot())
	b.WriteString("\n\n")

	var stateStr strings.Builder
	stateStr.WriteString("   ")
	for i, v := range m.traj.States[m.index] {
		label := Label(m.meta.Problem, i) + "="
		if i == m.component {
			stateStr.WriteString(magenta.Render(label))
		} else {
			stateStr.WriteString(dim.Render(label))
		}
		stateStr.WriteString(white.Render(fmt.Sprintf("%.4g", v)))
		stateStr.WriteString("  ")
	}
	b.WriteString(stateStr.String() + "\n")

	for _, ev := range m.recentEvents(3) {
		b.WriteString(fmt.Sprintf("   %s %s %s\n",
			yellow.Render("◆"), white.Render(ev.Name), dim.Render(fmt.Sprintf("t=%.6g %s", ev.Time, ev.Action))))
	}

	b.WriteString("\n" + dim.Render("   space play  ←→ step  ±speed  tab component  g/G ends  q quit") + "\n")
	return b.String()
}

// plot draws the selected component over the samples up to the cursor.
func (m *Replay) plot() string {
	width := min(plotWidth, max(m.width-12, 20))
	height := max(m.height-14, 5)

	start := max(0, m.index+1-width)
	data := make([]float64, 0, m.index+1-start)
	for _, s := range m.traj.States[start : m.index+1] {
		data = append(data, s[m.component])
	}
	if len(data) == 1 {
		data = append(data, data[0])
	}
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return dim.Render("   non finite samples")
		}
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Offset(3),
		asciigraph.Caption(Label(m.meta.Problem, m.component)))
}

// recentEvents returns up to n events at or before the cursor time, latest
// first.
func (m *Replay) recentEvents(n int) []storage.EventRecord {
	t := m.traj.Times[m.index]
	forward := m.meta.T1 >= m.meta.T0
	var out []storage.EventRecord
	for i := len(m.meta.Events) - 1; i >= 0 && len(out) < n; i-- {
		ev := m.meta.Events[i]
		if (forward && ev.Time <= t) || (!forward && ev.Time >= t) {
			out = append(out, ev)
		}
	}
	return out
}
