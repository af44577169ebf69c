package problems

import (
	"math"

	"github.com/san-kum/odekit/internal/events"
)

// BouncingBall is a ball in free fall above the ground. It is also the
// events.Handler that bounces it: at y = 0 the velocity is reversed and
// scaled by Restitution. Bounces slower than MinSpeed stop the run.
// State: [height, velocity].
type BouncingBall struct {
	Gravity     float64
	Restitution float64
	MinSpeed    float64

	Bounces int
}

func NewBouncingBall() *BouncingBall {
	return &BouncingBall{Gravity: 9.81, Restitution: 0.8, MinSpeed: 1e-3}
}

func (b *BouncingBall) Name() string   { return "ball" }
func (b *BouncingBall) Dimension() int { return 2 }

func (b *BouncingBall) ComputeDerivatives(t float64, y, yDot []float64) error {
	yDot[0] = y[1]
	yDot[1] = -b.Gravity
	return nil
}

func (b *BouncingBall) DefaultState() []float64 { return []float64{10, 0} }

func (b *BouncingBall) Energy(y []float64) float64 {
	return 0.5*y[1]*y[1] + b.Gravity*y[0]
}

func (b *BouncingBall) Init(t0 float64, y0 []float64, t float64) { b.Bounces = 0 }

func (b *BouncingBall) G(t float64, y []float64) float64 { return y[0] }

func (b *BouncingBall) EventOccurred(t float64, y []float64, increasing bool) events.Action {
	if increasing {
		return events.Continue
	}
	b.Bounces++
	if b.Restitution*math.Abs(y[1]) < b.MinSpeed {
		return events.Stop
	}
	return events.ResetState
}

func (b *BouncingBall) ResetState(t float64, y []float64) {
	y[0] = 0
	y[1] = -b.Restitution * y[1]
}

// EventConfig detects ground contact from above only.
func (b *BouncingBall) EventConfig() events.Config {
	cfg := events.DefaultConfig()
	cfg.Direction = events.Decreasing
	cfg.Convergence = 1e-12
	return cfg
}

func (b *BouncingBall) Params() map[string]float64 {
	return map[string]float64{"gravity": b.Gravity, "restitution": b.Restitution, "min_speed": b.MinSpeed}
}

func (b *BouncingBall) SetParam(name string, value float64) error {
	switch name {
	case "gravity":
		b.Gravity = value
	case "restitution":
		b.Restitution = value
	case "min_speed":
		b.MinSpeed = value
	default:
		return unknownParam(b.Name(), name)
	}
	return nil
}
