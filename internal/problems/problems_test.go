package problems

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/odekit/internal/integrators"
	"github.com/san-kum/odekit/internal/ode"
)

func TestProblems_Params(t *testing.T) {
	all := []Problem{
		NewDecay(1), NewSpringMass(), NewPendulum(), NewVanDerPol(),
		NewLorenz(), NewDuffing(), NewBouncingBall(), NewKepler(0.5), NewRossler(),
	}
	for _, p := range all {
		t.Run(p.Name(), func(t *testing.T) {
			g := NewWithT(t)
			g.Expect(p.DefaultState()).To(HaveLen(p.Dimension()))
			for name, v := range p.Params() {
				g.Expect(p.SetParam(name, v)).To(Succeed())
			}
			g.Expect(p.SetParam("no-such-param", 1)).To(MatchError(ContainSubstring("unknown param")))

			yDot := make([]float64, p.Dimension())
			g.Expect(p.ComputeDerivatives(0, p.DefaultState(), yDot)).To(Succeed())
			g.Expect(ode.Vector(yDot).IsValid()).To(BeTrue())
		})
	}
}

func TestDecay_DimensionCheck(t *testing.T) {
	g := NewWithT(t)
	d := NewDecay(2)
	g.Expect(d.ComputeDerivatives(0, []float64{1, 2}, make([]float64, 2))).To(MatchError(ode.ErrDimensionMismatch))
}

// exactTest integrates p and compares with its closed form solution.
func exactTest(t *testing.T, p interface {
	Problem
	ode.Solution
}, tEnd, tol float64) {
	g := NewWithT(t)
	integ, err := integrators.NewDormandPrince54(0, 1, 1e-11, 1e-11)
	g.Expect(err).NotTo(HaveOccurred())

	y0 := p.DefaultState()
	y := make([]float64, len(y0))
	_, err = integ.Integrate(p, 0, y0, tEnd, y)
	g.Expect(err).NotTo(HaveOccurred())

	want := p.Exact(0, y0, tEnd)
	g.Expect(want).To(HaveLen(len(y)))
	for i := range y {
		g.Expect(y[i]).To(BeNumerically("~", want[i], tol), "component %d", i)
	}
}

func TestExactSolutions(t *testing.T) {
	t.Run("decay", func(t *testing.T) { exactTest(t, NewDecay(0.7), 5, 1e-9) })
	t.Run("spring", func(t *testing.T) { exactTest(t, NewSpringMass(), 5, 1e-8) })
	t.Run("kepler", func(t *testing.T) { exactTest(t, NewKepler(0.5), 7, 1e-7) })
}

func TestKepler_Exact(t *testing.T) {
	g := NewWithT(t)
	k := NewKepler(0.6)
	y0 := k.DefaultState()

	start := k.Exact(0, y0, 0)
	for i := range y0 {
		g.Expect(start[i]).To(BeNumerically("~", y0[i], 1e-12))
	}
	orbit := k.Exact(0, y0, k.Period())
	for i := range y0 {
		g.Expect(orbit[i]).To(BeNumerically("~", y0[i], 1e-10))
	}

	half := k.Exact(0, y0, k.Period()/2)
	g.Expect(half[0]).To(BeNumerically("~", -1.6, 1e-10))
	g.Expect(k.Energy(half)).To(BeNumerically("~", k.Energy(y0), 1e-12))

	// clockwise orbit
	mirrored := []float64{y0[0], 0, 0, -y0[3]}
	q := k.Exact(0, mirrored, 1)
	p := k.Exact(0, y0, 1)
	g.Expect(q[0]).To(BeNumerically("~", p[0], 1e-12))
	g.Expect(q[1]).To(BeNumerically("~", -p[1], 1e-12))

	g.Expect(k.Exact(0, []float64{1, 0, 0, 2}, 1)).To(BeNil())
}

func TestSpringMass_Overdamped(t *testing.T) {
	s := NewSpringMass()
	s.Damping = 100
	NewWithT(t).Expect(s.Exact(0, s.DefaultState(), 1)).To(BeNil())
}

func TestBouncingBall_Bounces(t *testing.T) {
	g := NewWithT(t)
	ball := NewBouncingBall()
	integ, err := integrators.NewDormandPrince54(0, 1, 1e-10, 1e-10)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(integ.AddEventHandler(ball, ball.EventConfig())).To(Succeed())

	y := make([]float64, 2)
	_, err = integ.Integrate(ball, 0, ball.DefaultState(), 10, y)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ball.Bounces).To(BeNumerically(">=", 3))
	// energy only decreases
	g.Expect(ball.Energy(y)).To(BeNumerically("<", ball.Energy(ball.DefaultState())))
}

func TestPendulum_EnergyDecays(t *testing.T) {
	g := NewWithT(t)
	p := NewPendulum()
	integ, err := integrators.NewDormandPrince54(0, 1, 1e-9, 1e-9)
	g.Expect(err).NotTo(HaveOccurred())
	y := make([]float64, 2)
	_, err = integ.Integrate(p, 0, p.DefaultState(), 10, y)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(p.Energy(y)).To(BeNumerically("<", p.Energy(p.DefaultState())))

	p.Damping = 0
	_, err = integ.Integrate(p, 0, p.DefaultState(), 10, y)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(p.Energy(y)).To(BeNumerically("~", p.Energy(p.DefaultState()), 1e-6))
	g.Expect(math.IsNaN(y[0])).To(BeFalse())
}
