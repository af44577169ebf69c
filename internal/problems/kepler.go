package problems

import (
	"math"

	"github.com/san-kum/odekit/internal/solvers"
)

// Kepler is the planar two body problem with unit gravitational parameter.
// The default state starts at periapsis of an orbit with semi-major axis 1.
// State: [x, y, vx, vy].
type Kepler struct {
	Eccentricity float64
}

func NewKepler(e float64) *Kepler {
	return &Kepler{Eccentricity: e}
}

func (k *Kepler) Name() string   { return "kepler" }
func (k *Kepler) Dimension() int { return 4 }

func (k *Kepler) ComputeDerivatives(t float64, y, yDot []float64) error {
	r2 := y[0]*y[0] + y[1]*y[1]
	r3 := r2 * math.Sqrt(r2)
	yDot[0] = y[2]
	yDot[1] = y[3]
	yDot[2] = -y[0] / r3
	yDot[3] = -y[1] / r3
	return nil
}

func (k *Kepler) DefaultState() []float64 {
	e := k.Eccentricity
	return []float64{1 - e, 0, 0, math.Sqrt((1 + e) / (1 - e))}
}

func (k *Kepler) Energy(y []float64) float64 {
	return 0.5*(y[2]*y[2]+y[3]*y[3]) - 1/math.Hypot(y[0], y[1])
}

// Period of the orbit through the default state.
func (k *Kepler) Period() float64 { return 2 * math.Pi }

// Exact propagates an elliptic orbit by solving Kepler's equation. It
// returns nil for circular, parabolic and hyperbolic orbits.
func (k *Kepler) Exact(t0 float64, y0 []float64, t float64) []float64 {
	x, y, vx, vy := y0[0], y0[1], y0[2], y0[3]
	r := math.Hypot(x, y)
	v2 := vx*vx + vy*vy
	rv := x*vx + y*vy
	energy := 0.5*v2 - 1/r
	if energy >= 0 {
		return nil
	}
	a := -1 / (2 * energy)
	ex := (v2-1/r)*x - rv*vx
	ey := (v2-1/r)*y - rv*vy
	e := math.Hypot(ex, ey)
	if e < 1e-10 || e >= 1 {
		return nil
	}
	sense := 1.0
	if x*vy-y*vx < 0 {
		sense = -1
	}
	omega := math.Atan2(ey, ex)

	cosE0 := (1 - r/a) / e
	sinE0 := rv / (e * math.Sqrt(a))
	e0 := math.Atan2(sinE0, cosE0)
	m := e0 - e*math.Sin(e0) + (t-t0)/(a*math.Sqrt(a))

	kepler := func(ecc float64) float64 { return ecc - e*math.Sin(ecc) - m }
	anomaly, err := solvers.NewBrent(1e-15).Solve(200, kepler, m-e, m+e, solvers.AnySide)
	if err != nil {
		return nil
	}

	sinE, cosE := math.Sincos(anomaly)
	rt := a * (1 - e*cosE)
	b := math.Sqrt(1 - e*e)
	px, py := a*(cosE-e), sense*a*b*sinE
	pvx, pvy := -math.Sqrt(a)/rt*sinE, sense*math.Sqrt(a)/rt*b*cosE

	so, co := math.Sincos(omega)
	return []float64{
		co*px - so*py,
		so*px + co*py,
		co*pvx - so*pvy,
		so*pvx + co*pvy,
	}
}

func (k *Kepler) Params() map[string]float64 {
	return map[string]float64{"eccentricity": k.Eccentricity}
}

func (k *Kepler) SetParam(name string, value float64) error {
	if name != "eccentricity" {
		return unknownParam(k.Name(), name)
	}
	k.Eccentricity = value
	return nil
}
