package metrics

import (
	"math"

	"github.com/san-kum/odekit/internal/ode"
)

// EnergyDrift is the largest relative deviation of a conserved energy from
// its initial value.
type EnergyDrift struct {
	observer
	name          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
	h             ode.Hamiltonian
}

func NewEnergyDrift(h ode.Hamiltonian) *EnergyDrift {
	e := &EnergyDrift{
		name: "energy_drift",
		h:    h,
	}
	e.observer = observer{observe: e.Observe}
	return e
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Init(t0 float64, y0 []float64, t float64) {
	e.Reset()
	e.observer.Init(t0, y0, t)
}

func (e *EnergyDrift) Observe(t float64, y []float64) {
	energy := e.h.Energy(y)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Current() float64 { return e.currentEnergy }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
