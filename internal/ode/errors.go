package ode

import (
	"errors"
	"fmt"
)

// Integration failures. All of them abort the whole call.
var (
	// ErrDimensionMismatch indicates a state vector whose length disagrees with the system.
	ErrDimensionMismatch = errors.New("ode: dimension mismatch between state and system")

	// ErrDegenerateInterval indicates a zero length integration interval.
	ErrDegenerateInterval = errors.New("ode: integration interval is too small")

	// ErrInvalidTolerance indicates non positive tolerances or a tolerance vector of the wrong length.
	ErrInvalidTolerance = errors.New("ode: invalid tolerance settings")

	// ErrInvalidConfig indicates inconsistent integrator settings.
	ErrInvalidConfig = errors.New("ode: invalid integrator configuration")

	// ErrStepTooSmall indicates the controller could not find an acceptable step above the minimum.
	ErrStepTooSmall = errors.New("ode: step size below minimum")

	// ErrStepDirection indicates a step whose sign disagrees with the integration direction.
	ErrStepDirection = errors.New("ode: step size sign does not match integration direction")

	// ErrMaxEvaluations indicates the derivative evaluation budget was exhausted.
	ErrMaxEvaluations = errors.New("ode: maximal number of evaluations exceeded")

	// ErrNoBracketing indicates an event root could not be isolated.
	ErrNoBracketing = errors.New("ode: event root isolation failed")

	// ErrStarterStoppedEarly indicates the multistep starter reached the end before collecting its history.
	ErrStarterStoppedEarly = errors.New("ode: multistep starter stopped early")

	// ErrCorrectorDivergence indicates the implicit corrector iterations did not converge.
	ErrCorrectorDivergence = errors.New("ode: corrector iterations did not converge")

	// ErrOutsideStep indicates an interpolation request outside the current step.
	ErrOutsideStep = errors.New("ode: interpolation time outside of step range")
)

// IntegrationError attaches the time of failure to one of the errors above.
type IntegrationError struct {
	Time    float64
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("t=%g: %v", e.Time, e.Wrapped)
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}

// Errorf wraps err at time t with extra detail.
func Errorf(t float64, err error, format string, args ...any) error {
	return &IntegrationError{Time: t, Wrapped: fmt.Errorf("%w: "+format, append([]any{err}, args...)...)}
}
