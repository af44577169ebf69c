package solvers

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"
)

func allSolvers() map[string]BracketingSolver {
	return map[string]BracketingSolver{
		"pegasus":      NewPegasus(1e-12),
		"illinois":     NewIllinois(1e-12),
		"regula-falsi": NewRegulaFalsi(1e-12),
		"bisection":    NewBisection(1e-12),
		"brent":        NewBrent(1e-12),
	}
}

func TestSolveKnownRoots(t *testing.T) {
	tests := []struct {
		name     string
		f        Func
		min, max float64
		root     float64
	}{
		{"sin", math.Sin, 3, 4, math.Pi},
		{"cubic", func(x float64) float64 { return x*x*x - 2*x - 5 }, 2, 3, 2.0945514815423265},
		{"exp", func(x float64) float64 { return math.Exp(x) - 2 }, -1, 5, math.Ln2},
		{"steep", func(x float64) float64 { return math.Tanh(50 * (x - 0.3)) }, 0, 1, 0.3},
	}
	for name, s := range allSolvers() {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				g := NewWithT(t)
				x, err := s.Solve(200, tt.f, tt.min, tt.max, AnySide)
				g.Expect(err).NotTo(HaveOccurred())
				g.Expect(x).To(BeNumerically("~", tt.root, 1e-9))
			})
		}
	}
}

func TestSolveAllowedSide(t *testing.T) {
	increasing := func(x float64) float64 { return x - 1.0/3.0 }
	decreasing := func(x float64) float64 { return 1.0/3.0 - x }

	for name, s := range allSolvers() {
		t.Run(name, func(t *testing.T) {
			g := NewWithT(t)

			left, err := s.Solve(200, increasing, 0, 1, LeftSide)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(left).To(BeNumerically("<=", 1.0/3.0))
			g.Expect(left).To(BeNumerically("~", 1.0/3.0, 1e-10))

			right, err := s.Solve(200, increasing, 0, 1, RightSide)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(right).To(BeNumerically(">=", 1.0/3.0))

			below, err := s.Solve(200, decreasing, 0, 1, BelowSide)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(decreasing(below)).To(BeNumerically("<=", 0))

			above, err := s.Solve(200, decreasing, 0, 1, AboveSide)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(decreasing(above)).To(BeNumerically(">=", 0))
		})
	}
}

func TestSolveErrors(t *testing.T) {
	for name, s := range allSolvers() {
		t.Run(name, func(t *testing.T) {
			g := NewWithT(t)
			_, err := s.Solve(100, func(x float64) float64 { return x*x + 1 }, -1, 1, AnySide)
			g.Expect(err).To(MatchError(ErrNoBracketing))

			_, err = s.Solve(3, math.Sin, 3, 4, AnySide)
			g.Expect(err).To(MatchError(ErrTooManyEvaluations))

			_, err = s.Solve(100, math.Sin, 4, 3, AnySide)
			g.Expect(err).To(MatchError(ErrInvalidInterval))
		})
	}
}

func TestSolveEndpointRoot(t *testing.T) {
	g := NewWithT(t)
	x, err := NewPegasus(1e-10).Solve(10, func(x float64) float64 { return x - 2 }, 2, 5, RightSide)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(x).To(Equal(2.0))
}

func TestSafeguardLimitsEvaluations(t *testing.T) {
	// plain false position stalls on one end for this function
	f := func(x float64) float64 { return math.Pow(x, 10) - 0.5 }
	calls := 0
	counting := func(x float64) float64 {
		calls++
		return f(x)
	}
	g := NewWithT(t)
	x, err := NewRegulaFalsi(1e-12).Solve(200, counting, 0, 1.5, AnySide)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(x).To(BeNumerically("~", math.Pow(0.5, 0.1), 1e-10))
	g.Expect(calls).To(BeNumerically("<=", 120), "bisection safeguard")
}
