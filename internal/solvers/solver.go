// Package solvers implements bracketing root finders for scalar functions.
//
// Every solver starts from an interval whose ends have opposite signs and
// keeps a bracket around the root, so the caller can ask for the root on a
// specific side of the sign change.
package solvers

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoBracketing indicates f has the same sign at both ends of the interval.
	ErrNoBracketing = errors.New("solvers: function values at endpoints do not have different signs")

	// ErrTooManyEvaluations indicates the evaluation budget ran out before convergence.
	ErrTooManyEvaluations = errors.New("solvers: maximal number of evaluations exceeded")

	// ErrInvalidInterval indicates min >= max.
	ErrInvalidInterval = errors.New("solvers: invalid search interval")
)

type Func func(x float64) float64

// AllowedSolution selects which end of the final bracket is returned.
type AllowedSolution int

const (
	// AnySide returns the best approximation regardless of side.
	AnySide AllowedSolution = iota
	// LeftSide returns an x at or below the root.
	LeftSide
	// RightSide returns an x at or above the root.
	RightSide
	// BelowSide returns an x where f(x) <= 0.
	BelowSide
	// AboveSide returns an x where f(x) >= 0.
	AboveSide
)

func (a AllowedSolution) String() string {
	switch a {
	case AnySide:
		return "any"
	case LeftSide:
		return "left"
	case RightSide:
		return "right"
	case BelowSide:
		return "below"
	case AboveSide:
		return "above"
	}
	return fmt.Sprintf("AllowedSolution(%d)", int(a))
}

// BracketingSolver finds a root of f in [min, max] using at most maxEval
// function evaluations.
type BracketingSolver interface {
	Solve(maxEval int, f Func, min, max float64, allowed AllowedSolution) (float64, error)
}

// IsBracketing reports whether f changes sign between fa and fb.
func IsBracketing(fa, fb float64) bool {
	return (fa >= 0 && fb <= 0) || (fa <= 0 && fb >= 0)
}

// counted wraps f with the evaluation budget.
type counted struct {
	f     Func
	max   int
	count int
}

func (c *counted) eval(x float64) (float64, error) {
	if c.count >= c.max {
		return math.NaN(), fmt.Errorf("%w (%d)", ErrTooManyEvaluations, c.max)
	}
	c.count++
	return c.f(x), nil
}

// bracket holds an interval [a, b] with f(a) and f(b) of opposite signs.
type bracket struct {
	a, fa float64
	b, fb float64
}

// pick returns the end of the bracket matching the requested side, or x for
// AnySide.
func (br bracket) pick(x float64, allowed AllowedSolution) float64 {
	switch allowed {
	case LeftSide:
		return br.a
	case RightSide:
		return br.b
	case BelowSide:
		if br.fa <= 0 {
			return br.a
		}
		return br.b
	case AboveSide:
		if br.fa >= 0 {
			return br.a
		}
		return br.b
	}
	return x
}

func checkInterval(min, max float64) error {
	if !(min < max) {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidInterval, min, max)
	}
	return nil
}
