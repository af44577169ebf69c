package tui

import (
	"bytes"
	"math"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/gomega"

	"github.com/san-kum/odekit/internal/storage"
)

func sampleReplay() *Replay {
	traj := storage.Trajectory{}
	for i := 0; i <= 100; i++ {
		t := float64(i) * 0.1
		traj.Times = append(traj.Times, t)
		traj.States = append(traj.States, []float64{math.Cos(t), -math.Sin(t)})
	}
	meta := storage.RunMetadata{
		ID:         "run",
		Problem:    "spring",
		Integrator: "dp54",
		T1:         10,
		Events: []storage.EventRecord{
			{Name: "cross", Time: 1.5, Action: "continue"},
			{Name: "late", Time: 9.5, Action: "stop"},
		},
	}
	return NewReplay(meta, traj)
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestReplay_Playback(t *testing.T) {
	g := NewWithT(t)
	m := sampleReplay()
	g.Expect(m.Init()).NotTo(BeNil())
	g.Expect(m.Playing()).To(BeTrue())

	m.Update(tickMsg{})
	g.Expect(m.Index()).To(Equal(1))

	m.Update(key("+"))
	m.Update(key("+"))
	g.Expect(m.Speed()).To(Equal(4))
	m.Update(tickMsg{})
	g.Expect(m.Index()).To(Equal(5))

	for i := 0; i < 40; i++ {
		m.Update(tickMsg{})
	}
	g.Expect(m.Index()).To(Equal(100))
	g.Expect(m.Playing()).To(BeFalse())

	m.Update(key(" "))
	g.Expect(m.Index()).To(Equal(0))
	g.Expect(m.Playing()).To(BeTrue())
}

func TestReplay_Keys(t *testing.T) {
	g := NewWithT(t)
	m := sampleReplay()

	m.Update(key("right"))
	g.Expect(m.Playing()).To(BeFalse())
	g.Expect(m.Index()).To(Equal(1))
	m.Update(key("left"))
	m.Update(key("left"))
	g.Expect(m.Index()).To(Equal(0))

	m.Update(key("G"))
	g.Expect(m.Index()).To(Equal(100))
	m.Update(key("g"))
	g.Expect(m.Index()).To(Equal(0))

	m.Update(key("tab"))
	g.Expect(m.Component()).To(Equal(1))
	m.Update(key("tab"))
	g.Expect(m.Component()).To(Equal(0))

	m.Update(key("-"))
	g.Expect(m.Speed()).To(Equal(1))

	_, cmd := m.Update(key("q"))
	g.Expect(cmd).NotTo(BeNil())
	g.Expect(cmd()).To(Equal(tea.Quit()))
}

func TestReplay_View(t *testing.T) {
	g := NewWithT(t)
	m := sampleReplay()
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	view := m.View()
	g.Expect(view).To(ContainSubstring("spring"))
	g.Expect(view).To(ContainSubstring("t=0.000/10.000"))
	g.Expect(view).NotTo(ContainSubstring("cross"))

	m.Update(key("G"))
	view = m.View()
	g.Expect(view).To(ContainSubstring("cross"))
	g.Expect(view).To(ContainSubstring("late"))
}

func TestLabel(t *testing.T) {
	g := NewWithT(t)
	g.Expect(Label("pendulum", 0)).To(Equal("θ"))
	g.Expect(Label("pendulum", 2)).To(Equal("y2"))
	g.Expect(Label("unknown", 1)).To(Equal("y1"))
}

func TestLiveRenderer(t *testing.T) {
	tests := []struct {
		problem string
		state   []float64
		glyph   string
	}{
		{"pendulum", []float64{0.3, 0}, "O"},
		{"spring", []float64{1, 0}, "~"},
		{"ball", []float64{5, -1}, "O"},
		{"lorenz", []float64{1, -2, 20}, "#"},
	}
	for _, tt := range tests {
		t.Run(tt.problem, func(t *testing.T) {
			g := NewWithT(t)
			var buf bytes.Buffer
			r := NewLiveRenderer(&buf, tt.problem, 0)
			r.Init(0, tt.state, 1)
			g.Expect(r.HandleStep(0.5, tt.state, nil, false)).To(Succeed())
			g.Expect(r.HandleStep(1, tt.state, nil, true)).To(Succeed())

			out := buf.String()
			g.Expect(r.Frames()).To(Equal(2))
			g.Expect(out).To(ContainSubstring("t=1.00"))
			g.Expect(out).To(ContainSubstring(tt.glyph))
			g.Expect(out).To(HaveSuffix(showCursor), "cursor restored after the last frame")
		})
	}
}

func TestLiveRenderer_Throttle(t *testing.T) {
	g := NewWithT(t)
	var buf bytes.Buffer
	r := NewLiveRenderer(&buf, "spring", 1)
	r.Init(0, []float64{1, 0}, 1)
	for i := 0; i < 10; i++ {
		g.Expect(r.HandleStep(float64(i)*0.1, []float64{1, 0}, nil, false)).To(Succeed())
	}
	g.Expect(r.Frames()).To(Equal(1))
}
