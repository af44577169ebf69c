package integrators

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/sampling"
)

// nordsieckTransformer holds the matrices that advance the Nordsieck
// history [s2 ... sk] of an Adams method with nSteps steps, where
// sj = h^j/j! y^(j).
type nordsieckTransformer struct {
	rows int
	// c1 is P^-1 u with u a vector of ones
	c1 []float64
	// update is P^-1 times P shifted down by one row
	update *mat.Dense
}

var (
	transformersMu sync.Mutex
	transformers   = map[int]*nordsieckTransformer{}
)

// transformerFor returns the shared transformer for nSteps.
func transformerFor(nSteps int) (*nordsieckTransformer, error) {
	transformersMu.Lock()
	defer transformersMu.Unlock()
	if t, ok := transformers[nSteps]; ok {
		return t, nil
	}
	t, err := newNordsieckTransformer(nSteps)
	if err != nil {
		return nil, err
	}
	transformers[nSteps] = t
	return t, nil
}

func newNordsieckTransformer(nSteps int) (*nordsieckTransformer, error) {
	if nSteps < 2 {
		return nil, fmt.Errorf("%w: %d steps, at least 2 needed", ode.ErrInvalidConfig, nSteps)
	}
	rows := nSteps - 1

	// P[i-1][j-1] = (j+1) (-i)^j
	p := mat.NewDense(rows, rows, nil)
	for i := 1; i <= rows; i++ {
		factor := -float64(i)
		aj := factor
		for j := 1; j <= rows; j++ {
			p.Set(i-1, j-1, aj*float64(j+1))
			aj *= factor
		}
	}

	var lu mat.LU
	lu.Factorize(p)

	ones := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		ones.Set(i, 0, 1)
	}
	var c1 mat.Dense
	if err := lu.SolveTo(&c1, false, ones); err != nil && !isCondition(err) {
		return nil, err
	}

	shifted := mat.NewDense(rows, rows, nil)
	for i := rows - 1; i > 0; i-- {
		shifted.SetRow(i, p.RawRowView(i-1))
	}
	update := mat.NewDense(rows, rows, nil)
	if err := lu.SolveTo(update, false, shifted); err != nil && !isCondition(err) {
		return nil, err
	}

	return &nordsieckTransformer{
		rows:   rows,
		c1:     mat.Col(nil, 0, &c1),
		update: update,
	}, nil
}

func isCondition(err error) bool {
	var cond mat.Condition
	return errors.As(err, &cond)
}

// initializeHighOrderDerivatives fits the Nordsieck vector to the starter
// points (t[i], y[i], yDot[i]) in the least squares sense.
func (nt *nordsieckTransformer) initializeHighOrderDerivatives(h float64, t []float64, y, yDot [][]float64) (*mat.Dense, error) {
	size := nt.rows + 1
	n := len(y[0])
	a := mat.NewDense(size, size, nil)
	b := mat.NewDense(size, n, nil)
	y0, yDot0 := y[0], yDot[0]

	for i := 1; i < len(y); i++ {
		di := t[i] - t[0]
		ratio := di / h
		dikM1Ohk := 1 / h

		// rows for y(ti) - y(t0) - di y'(t0) and y'(ti) - y'(t0)
		row, dotRow := 2*i-2, 2*i-1
		if row >= size {
			break
		}
		for j := 0; j < size; j++ {
			dikM1Ohk *= ratio
			a.Set(row, j, di*dikM1Ohk)
			if dotRow < size {
				a.Set(dotRow, j, float64(j+2)*dikM1Ohk)
			}
		}
		for j := 0; j < n; j++ {
			b.Set(row, j, y[i][j]-y0[j]-di*yDot0[j])
			if dotRow < size {
				b.Set(dotRow, j, yDot[i][j]-yDot0[j])
			}
		}
	}

	var qr mat.QR
	qr.Factorize(a)
	var x mat.Dense
	if err := qr.SolveTo(&x, false, b); err != nil && !isCondition(err) {
		return nil, err
	}

	// keep [s2 ... sk]
	truncated := mat.NewDense(nt.rows, n, nil)
	truncated.Copy(x.Slice(0, nt.rows, 0, n))
	return truncated, nil
}

// updatePhase1 writes update x nordsieck into dst.
func (nt *nordsieckTransformer) updatePhase1(dst, nordsieck *mat.Dense) {
	dst.Mul(nt.update, nordsieck)
}

// updatePhase2 adds c1 (start - end) to every column of highOrder.
func (nt *nordsieckTransformer) updatePhase2(start, end []float64, highOrder *mat.Dense) {
	for i := 0; i < nt.rows; i++ {
		row := highOrder.RawRowView(i)
		ci := nt.c1[i]
		for j := range row {
			row[j] += ci * (start[j] - end[j])
		}
	}
}

// rescaleNordsieck adapts the scaled derivatives to a new step size.
func rescaleNordsieck(ratio float64, scaled []float64, nordsieck *mat.Dense) {
	for j := range scaled {
		scaled[j] *= ratio
	}
	rows, _ := nordsieck.Dims()
	power := ratio
	for i := 0; i < rows; i++ {
		power *= ratio
		row := nordsieck.RawRowView(i)
		for j := range row {
			row[j] *= power
		}
	}
}

// taylor evaluates the Nordsieck expansion around (tRef, yRef) at t. yDot
// may be nil.
func taylor(t, tRef, h float64, yRef, scaled []float64, nordsieck *mat.Dense, y, yDot []float64) {
	u := (t - tRef) / h
	rows, _ := nordsieck.Dims()
	for j := range y {
		variation, derivative := 0.0, 0.0
		// high order terms first
		for i := rows - 1; i >= 0; i-- {
			order := float64(i + 2)
			power := math.Pow(u, order-1)
			n := nordsieck.At(i, j)
			variation += n * power * u
			derivative += order * n * power
		}
		y[j] = yRef[j] + scaled[j]*u + variation
		if yDot != nil {
			yDot[j] = (scaled[j] + derivative) / h
		}
	}
}

// nordsieckKernel is the dense output of an Adams step, expanded around the
// step end.
type nordsieckKernel struct {
	referenceTime  float64
	h              float64
	referenceState []float64
	scaled         []float64
	nordsieck      *mat.Dense
}

func newNordsieckKernel(tRef, h float64, yRef, scaled []float64, nordsieck *mat.Dense) *nordsieckKernel {
	return &nordsieckKernel{
		referenceTime:  tRef,
		h:              h,
		referenceState: ode.Vector(yRef).Clone(),
		scaled:         ode.Vector(scaled).Clone(),
		nordsieck:      mat.DenseCopyOf(nordsieck),
	}
}

func (k *nordsieckKernel) Compute(s *sampling.Step, t, theta, oneMinusThetaH float64, state, derivative []float64) {
	taylor(t, k.referenceTime, k.h, k.referenceState, k.scaled, k.nordsieck, state, derivative)
}
