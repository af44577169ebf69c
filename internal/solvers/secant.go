package solvers

import "math"

// Method selects how a bracketing solver picks its next iterate.
type Method int

const (
	// Illinois halves the function value of an end retained twice.
	Illinois Method = iota
	// Pegasus scales the retained end by f1/(f1+fx).
	Pegasus
	// RegulaFalsi is the unmodified false position method.
	RegulaFalsi
	// Bisection always takes the midpoint.
	Bisection
)

const DefaultFunctionAccuracy = 1e-15

// Secant is a false position solver with a bisection safeguard: whenever two
// iterations fail to halve the bracket, the next iterate is the midpoint.
type Secant struct {
	method           Method
	absoluteAccuracy float64
	relativeAccuracy float64
	functionAccuracy float64
}

func NewSecant(method Method, absoluteAccuracy, relativeAccuracy, functionAccuracy float64) *Secant {
	return &Secant{
		method:           method,
		absoluteAccuracy: absoluteAccuracy,
		relativeAccuracy: relativeAccuracy,
		functionAccuracy: functionAccuracy,
	}
}

func NewPegasus(absoluteAccuracy float64) *Secant {
	return NewSecant(Pegasus, absoluteAccuracy, 1e-14, DefaultFunctionAccuracy)
}

func NewIllinois(absoluteAccuracy float64) *Secant {
	return NewSecant(Illinois, absoluteAccuracy, 1e-14, DefaultFunctionAccuracy)
}

func NewRegulaFalsi(absoluteAccuracy float64) *Secant {
	return NewSecant(RegulaFalsi, absoluteAccuracy, 1e-14, DefaultFunctionAccuracy)
}

func NewBisection(absoluteAccuracy float64) *Secant {
	return NewSecant(Bisection, absoluteAccuracy, 1e-14, DefaultFunctionAccuracy)
}

func (s *Secant) Method() Method { return s.method }

func (s *Secant) AbsoluteAccuracy() float64 { return s.absoluteAccuracy }

func (s *Secant) Solve(maxEval int, f Func, min, max float64, allowed AllowedSolution) (float64, error) {
	if err := checkInterval(min, max); err != nil {
		return math.NaN(), err
	}
	c := &counted{f: f, max: maxEval}

	fa, err := c.eval(min)
	if err != nil {
		return math.NaN(), err
	}
	if fa == 0 {
		return min, nil
	}
	fb, err := c.eval(max)
	if err != nil {
		return math.NaN(), err
	}
	if fb == 0 {
		return max, nil
	}
	if !IsBracketing(fa, fb) {
		return math.NaN(), ErrNoBracketing
	}

	br := bracket{a: min, fa: fa, b: max, fb: fb}
	// weighted end values used by the false position formula
	wa, wb := fa, fb
	// 1 when a was replaced last, 2 when b was
	last := 0
	widths := [2]float64{math.Inf(1), math.Inf(1)}
	iter := 0

	for {
		width := br.b - br.a
		bisect := s.method == Bisection || width > 0.5*widths[iter%2]
		widths[iter%2] = width
		iter++

		x := br.a + 0.5*width
		if !bisect {
			x = br.b - wb*(br.b-br.a)/(wb-wa)
			if !(x > br.a && x < br.b) {
				x = br.a + 0.5*width
			}
		}

		fx, err := c.eval(x)
		if err != nil {
			return math.NaN(), err
		}
		if fx == 0 {
			return x, nil
		}

		if IsBracketing(br.fa, fx) {
			// root in [a, x]: x replaces b
			prev := br.fb
			br.b, br.fb = x, fx
			if last == 2 {
				wa = s.weaken(wa, prev, fx)
			}
			wb = fx
			last = 2
		} else {
			prev := br.fa
			br.a, br.fa = x, fx
			if last == 1 {
				wb = s.weaken(wb, prev, fx)
			}
			wa = fx
			last = 1
		}

		if math.Abs(fx) <= s.functionAccuracy {
			switch allowed {
			case AnySide:
				return x, nil
			case LeftSide:
				if x == br.a {
					return x, nil
				}
			case RightSide:
				if x == br.b {
					return x, nil
				}
			case BelowSide:
				if fx <= 0 {
					return x, nil
				}
			case AboveSide:
				if fx >= 0 {
					return x, nil
				}
			}
		}

		if br.b-br.a <= math.Max(s.relativeAccuracy*math.Abs(x), s.absoluteAccuracy) {
			return br.pick(x, allowed), nil
		}
	}
}

// weaken scales the value of an end that was retained twice in a row.
func (s *Secant) weaken(w, prev, fx float64) float64 {
	switch s.method {
	case Illinois:
		return 0.5 * w
	case Pegasus:
		return w * prev / (prev + fx)
	}
	return w
}
