package analysis

import (
	"math"
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/odekit/internal/integrators"
	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/problems"
)

func newIntegrator(t *testing.T) *integrators.Integrator {
	t.Helper()
	integ, err := integrators.NewDormandPrince54(1e-8, 1, 1e-10, 1e-10)
	NewWithT(t).Expect(err).NotTo(HaveOccurred())
	return integ
}

func undampedOscillator() *problems.SpringMass {
	return &problems.SpringMass{Mass: 1, Stiffness: 1}
}

func TestDominantFrequency(t *testing.T) {
	tests := []struct {
		name string
		freq float64
		n    int
	}{
		{"power of two", 8, 256},
		{"odd length", 5, 201},
		{"low", 1, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			dt := 0.01
			data := make([]float64, tt.n)
			for i := range data {
				data[i] = 3 + math.Sin(2*math.Pi*tt.freq*float64(i)*dt)
			}
			got := DominantFrequency(data, dt)
			resolution := 1 / (float64(tt.n) * dt)
			g.Expect(got).To(BeNumerically("~", tt.freq, resolution))
		})
	}
}

func TestPowerSpectrum(t *testing.T) {
	g := NewWithT(t)
	g.Expect(PowerSpectrum(nil)).To(BeNil())

	ps := PowerSpectrum([]float64{1, 1, 1, 1})
	g.Expect(ps).To(HaveLen(3))
	g.Expect(ps[0]).To(BeNumerically("~", 1, 1e-12))
	g.Expect(ps[1]).To(BeNumerically("~", 0, 1e-12))

	g.Expect(DominantFrequency([]float64{2, 2, 2}, 0.1)).To(Equal(0.0))
	g.Expect(math.IsInf(Period([]float64{2, 2, 2}, 0.1), 1)).To(BeTrue())
}

func TestLyapunovExponent_Decay(t *testing.T) {
	g := NewWithT(t)
	lambda, err := LyapunovExponent(newIntegrator(t), problems.NewDecay(1), []float64{1}, 0.5, 10, 1e-6)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(lambda).To(BeNumerically("~", -1, 0.05))

	_, err = LyapunovExponent(newIntegrator(t), problems.NewDecay(1), []float64{1}, 0, 10, 1e-6)
	g.Expect(err).To(MatchError(ode.ErrInvalidConfig))
}

func TestLyapunovSpectrum(t *testing.T) {
	g := NewWithT(t)
	d := &problems.Decay{Rate: 2, Dim: 2}
	spectrum, err := LyapunovSpectrum(newIntegrator(t), d, []float64{1, 1}, 0.25, 5, 1e-6)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(spectrum).To(HaveLen(2))
	for _, l := range spectrum {
		g.Expect(l).To(BeNumerically("~", -2, 0.1))
	}
}

func TestPoincareSection(t *testing.T) {
	g := NewWithT(t)
	integ := newIntegrator(t)

	section, err := GeneratePoincareSection(integ, undampedOscillator(), []float64{1, 0}, 0, 0, 0, 1, 0, 20, 0.5)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(section.Times).To(HaveLen(3))
	for i, tc := range section.Times {
		g.Expect(tc).To(BeNumerically("~", 1.5*math.Pi+2*math.Pi*float64(i), 1e-8))
		g.Expect(section.Points[i].X).To(BeNumerically("~", 0, 1e-8))
		g.Expect(section.Points[i].Y).To(BeNumerically("~", 1, 1e-8))
	}
	g.Expect(integ.EventHandlers()).To(BeEmpty())

	_, err = GeneratePoincareSection(integ, undampedOscillator(), []float64{1, 0}, 2, 0, 0, 1, 0, 20, 0.5)
	g.Expect(err).To(MatchError(ode.ErrDimensionMismatch))

	g.Expect(PoincareSectionToASCII(&PoincareSection{}, 10, 5)).To(Equal("No crossings detected"))
}

func TestBifurcationDiagram(t *testing.T) {
	g := NewWithT(t)
	sys := undampedOscillator()

	points, err := BifurcationDiagram(newIntegrator(t), sys, "stiffness", 1, 4, 4, 0, []float64{1, 0}, 0.5, 20, 0.25)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(points).To(HaveLen(4))
	for _, p := range points {
		g.Expect(p.Values).To(HaveLen(1))
		g.Expect(p.Values[0]).To(BeNumerically("~", 1, 1e-6))
	}
	g.Expect(points[3].Param).To(Equal(4.0))
	g.Expect(sys.Stiffness).To(Equal(1.0))

	art := BifurcationToASCII(points, 20, 5)
	g.Expect(strings.Count(art, "\n")).To(Equal(5))
	g.Expect(art).To(ContainSubstring("•"))

	_, err = BifurcationDiagram(newIntegrator(t), sys, "gravity", 1, 4, 4, 0, []float64{1, 0}, 0.5, 20, 0.25)
	g.Expect(err).To(MatchError(ContainSubstring("unknown param")))
}

func TestPhasePortrait(t *testing.T) {
	g := NewWithT(t)
	states := make([]ode.State, 0, 64)
	for i := 0; i < 64; i++ {
		th := 2 * math.Pi * float64(i) / 64
		states = append(states, ode.State{Time: th, Y: ode.Vector{math.Cos(th), -math.Sin(th)}})
	}

	portrait, err := NewPhasePortrait(states, 0, 1)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(portrait.Points).To(HaveLen(64))

	art := PhasePortraitToASCII(portrait, 40, 20)
	lines := strings.Split(strings.TrimSuffix(art, "\n"), "\n")
	g.Expect(lines).To(HaveLen(20))
	g.Expect(art).To(ContainSubstring("│"))
	g.Expect(art).To(ContainSubstring("─"))

	_, err = NewPhasePortrait(states, 0, 2)
	g.Expect(err).To(MatchError(ode.ErrDimensionMismatch))
}
