package integrators

import "github.com/san-kum/odekit/internal/sampling"

// DormandPrince54 is the 5(4) pair of Dormand and Prince (1980) with the
// continuous extension of Shampine (1986).
func DormandPrince54() *Tableau {
	return &Tableau{
		Name:          "Dormand-Prince 5(4)",
		Order:         5,
		EmbeddedOrder: 4,
		C:             []float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1, 1},
		A: [][]float64{
			{1.0 / 5.0},
			{3.0 / 40.0, 9.0 / 40.0},
			{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
			{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
			{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
			{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0},
		},
		B:     []float64{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0, 0},
		BStar: []float64{5179.0 / 57600.0, 0, 7571.0 / 16695.0, 393.0 / 640.0, -92097.0 / 339200.0, 187.0 / 2100.0, 1.0 / 40.0},
		FSAL:  true,
		kernel: func(yDotK [][]float64) sampling.Kernel {
			return newDormandPrince54Kernel(yDotK)
		},
	}
}

// dense output coefficients
var (
	dpA70 = 35.0 / 384.0
	dpA72 = 500.0 / 1113.0
	dpA73 = 125.0 / 192.0
	dpA74 = -2187.0 / 6784.0
	dpA75 = 11.0 / 84.0

	dpD0 = -12715105075.0 / 11282082432.0
	dpD2 = 87487479700.0 / 32700410799.0
	dpD3 = -10690763975.0 / 1880347072.0
	dpD4 = 701980252875.0 / 199316789632.0
	dpD5 = -1453857185.0 / 822651844.0
	dpD6 = 69997945.0 / 29380423.0
)

// dormandPrince54Kernel is the fourth order continuous extension. The four
// polynomial coefficient vectors are computed once per step.
type dormandPrince54Kernel struct {
	v1, v2, v3, v4 []float64
}

func newDormandPrince54Kernel(k [][]float64) *dormandPrince54Kernel {
	n := len(k[0])
	d := &dormandPrince54Kernel{
		v1: make([]float64, n),
		v2: make([]float64, n),
		v3: make([]float64, n),
		v4: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		v1 := dpA70*k[0][i] + dpA72*k[2][i] + dpA73*k[3][i] + dpA74*k[4][i] + dpA75*k[5][i]
		v2 := k[0][i] - v1
		d.v1[i] = v1
		d.v2[i] = v2
		d.v3[i] = v1 - v2 - k[6][i]
		d.v4[i] = dpD0*k[0][i] + dpD2*k[2][i] + dpD3*k[3][i] + dpD4*k[4][i] + dpD5*k[5][i] + dpD6*k[6][i]
	}
	return d
}

func (d *dormandPrince54Kernel) Compute(s *sampling.Step, t, theta, oneMinusThetaH float64, state, derivative []float64) {
	eta := 1 - theta
	twoTheta := 2 * theta
	dot2 := 1 - twoTheta
	dot3 := theta * (2 - 3*theta)
	dot4 := twoTheta * (1 + theta*(twoTheta-3))

	// evaluate from the nearer end of the step
	if theta <= 0.5 {
		thetaH := theta * s.H()
		for i := range state {
			state[i] = s.PreviousState[i] + thetaH*(d.v1[i]+eta*(d.v2[i]+theta*(d.v3[i]+eta*d.v4[i])))
			derivative[i] = d.v1[i] + dot2*d.v2[i] + dot3*d.v3[i] + dot4*d.v4[i]
		}
		return
	}
	for i := range state {
		state[i] = s.CurrentState[i] - oneMinusThetaH*(d.v1[i]-theta*(d.v2[i]+theta*(d.v3[i]+eta*d.v4[i])))
		derivative[i] = d.v1[i] + dot2*d.v2[i] + dot3*d.v3[i] + dot4*d.v4[i]
	}
}
