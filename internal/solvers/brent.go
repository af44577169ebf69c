package solvers

import "math"

// Brent is the zeroin algorithm of Forsythe, Malcolm and Moler: bisection
// combined with linear or inverse quadratic interpolation.
type Brent struct {
	absoluteAccuracy float64
}

func NewBrent(absoluteAccuracy float64) *Brent {
	return &Brent{absoluteAccuracy: absoluteAccuracy}
}

// Solve works on three abscissae: b is the best approximation, a the
// previous one, and c an earlier one such that b and c bracket the root.
func (s *Brent) Solve(maxEval int, f Func, min, max float64, allowed AllowedSolution) (float64, error) {
	if err := checkInterval(min, max); err != nil {
		return math.NaN(), err
	}
	cf := &counted{f: f, max: maxEval}

	a, b := min, max
	fa, err := cf.eval(a)
	if err != nil {
		return math.NaN(), err
	}
	if fa == 0 {
		return a, nil
	}
	fb, err := cf.eval(b)
	if err != nil {
		return math.NaN(), err
	}
	if fb == 0 {
		return b, nil
	}
	if !IsBracketing(fa, fb) {
		return math.NaN(), ErrNoBracketing
	}

	epsilon := math.Nextafter(1, 2) - 1
	c, fc := a, fa
	for {
		prevStep := b - a

		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tolAct := 2*epsilon*math.Abs(b) + s.absoluteAccuracy/2
		newStep := (c - b) / 2

		if math.Abs(newStep) <= tolAct || fb == 0 {
			return s.side(b, fb, c, fc, allowed), nil
		}

		if math.Abs(prevStep) >= tolAct && math.Abs(fa) > math.Abs(fb) {
			var p, q float64
			cb := c - b
			if a == c {
				// linear interpolation
				t1 := fb / fa
				p = cb * t1
				q = 1 - t1
			} else {
				// inverse quadratic interpolation
				q = fa / fc
				t1 := fb / fc
				t2 := fb / fa
				p = t2 * (cb*q*(q-t1) - (b-a)*(t1-1))
				q = (q - 1) * (t1 - 1) * (t2 - 1)
			}
			if p > 0 {
				q = -q
			} else {
				p = -p
			}
			if p < (0.75*cb*q-math.Abs(tolAct*q)/2) && p < math.Abs(prevStep*q/2) {
				newStep = p / q
			}
		}
		if math.Abs(newStep) < tolAct {
			if newStep > 0 {
				newStep = tolAct
			} else {
				newStep = -tolAct
			}
		}

		a, fa = b, fb
		b += newStep
		fb, err = cf.eval(b)
		if err != nil {
			return math.NaN(), err
		}
		if (fb > 0 && fc > 0) || (fb < 0 && fc < 0) {
			c, fc = a, fa
		}
	}
}

// side picks from the final bracket {b, c}.
func (s *Brent) side(b, fb, c, fc float64, allowed AllowedSolution) float64 {
	if fb == 0 {
		return b
	}
	br := bracket{a: b, fa: fb, b: c, fb: fc}
	if c < b {
		br = bracket{a: c, fa: fc, b: b, fb: fb}
	}
	return br.pick(b, allowed)
}
