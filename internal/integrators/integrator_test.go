package integrators

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-logr/logr/funcr"

	"github.com/san-kum/odekit/internal/events"
	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/sampling"
)

// crossing records the zeros of y[component].
type crossing struct {
	component int
	action    events.Action
	name      string
	log       *[]string
	times     []float64
}

func (c *crossing) Init(t0 float64, y0 []float64, t float64) { c.times = nil }

func (c *crossing) G(t float64, y []float64) float64 { return y[c.component] }

func (c *crossing) EventOccurred(t float64, y []float64, increasing bool) events.Action {
	c.times = append(c.times, t)
	if c.log != nil {
		*c.log = append(*c.log, c.name)
	}
	return c.action
}

func (c *crossing) ResetState(t float64, y []float64) {}

// sine is g(t) = sin(t), independent of the state.
type sine struct {
	times []float64
}

func (s *sine) Init(t0 float64, y0 []float64, t float64) { s.times = nil }

func (s *sine) G(t float64, y []float64) float64 { return math.Sin(t) }

func (s *sine) EventOccurred(t float64, y []float64, increasing bool) events.Action {
	s.times = append(s.times, t)
	return events.Continue
}

func (s *sine) ResetState(t float64, y []float64) {}

func eventConfig(dir events.Direction) events.Config {
	cfg := events.DefaultConfig()
	cfg.Convergence = 1e-12
	cfg.MaxCheckInterval = 0.5
	cfg.Direction = dir
	return cfg
}

func TestIntegrate_IncreasingEventsOnly(t *testing.T) {
	steppers := []struct {
		name string
		new  func(t *testing.T) *Integrator
	}{
		{"dp54", func(t *testing.T) *Integrator { return newDP54(t, 0, 1, 1e-10, 1e-10) }},
		{"adams-moulton", func(t *testing.T) *Integrator {
			return newAdamsMoulton(t, 4, DefaultStepControl(0, 1, 1e-10, 1e-10))
		}},
	}
	tests := []struct {
		name   string
		t0, t1 float64
		want   []float64
	}{
		{"from zero", 0, 5 * math.Pi, []float64{2 * math.Pi, 4 * math.Pi}},
		{"from half pi", 0.5 * math.Pi, 5.5 * math.Pi, []float64{2 * math.Pi, 4 * math.Pi}},
		{"backward", 5.5 * math.Pi, 0.5 * math.Pi, []float64{4 * math.Pi, 2 * math.Pi}},
	}

	for _, st := range steppers {
		for _, tt := range tests {
			t.Run(st.name+"/"+tt.name, func(t *testing.T) {
				integ := st.new(t)
				h := &sine{}
				if err := integ.AddEventHandler(h, eventConfig(events.Increasing)); err != nil {
					t.Fatalf("AddEventHandler: %v", err)
				}

				y0 := []float64{math.Sin(tt.t0), math.Cos(tt.t0)}
				y := make([]float64, 2)
				reached, err := integ.Integrate(&harmonicOscillator{}, tt.t0, y0, tt.t1, y)
				if err != nil {
					t.Fatalf("Integrate: %v", err)
				}
				if reached != tt.t1 {
					t.Errorf("reached %v, expected %v", reached, tt.t1)
				}
				if len(h.times) != len(tt.want) {
					t.Fatalf("got events at %v, expected %v", h.times, tt.want)
				}
				for i, w := range tt.want {
					if math.Abs(h.times[i]-w) > 1e-8 {
						t.Errorf("event %d: got %v, expected %v", i, h.times[i], w)
					}
				}
				if got := integ.Statistics().Events; got != len(tt.want) {
					t.Errorf("statistics: got %d events, expected %d", got, len(tt.want))
				}
			})
		}
	}
}

func TestIntegrate_StopEvent(t *testing.T) {
	integ := newDP54(t, 0, 1, 1e-10, 1e-10)
	h := &crossing{component: 0, action: events.Stop}
	if err := integ.AddEventHandler(h, eventConfig(events.Both)); err != nil {
		t.Fatalf("AddEventHandler: %v", err)
	}
	rec := &stepRecorder{}
	integ.AddStepHandler(rec)

	y := make([]float64, 2)
	reached, err := integ.Integrate(&harmonicOscillator{}, 0, []float64{0, 1}, 10, y)
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if math.Abs(reached-math.Pi) > 1e-9 {
		t.Errorf("reached %v, expected pi", reached)
	}
	if math.Abs(y[0]) > 1e-9 || math.Abs(y[1]+1) > 1e-9 {
		t.Errorf("got %v, expected [0 -1]", y)
	}
	if rec.last != 1 {
		t.Errorf("isLast seen %d times", rec.last)
	}
	if last := rec.steps[len(rec.steps)-1]; last.CurrentTime() != reached {
		t.Errorf("last step ends at %v, expected %v", last.CurrentTime(), reached)
	}
}

// finalReset fires at tEnd and flips the sign of y[1].
type finalReset struct {
	tEnd  float64
	fired int
}

func (f *finalReset) Init(t0 float64, y0 []float64, t float64) { f.fired = 0 }

func (f *finalReset) G(t float64, y []float64) float64 { return t - f.tEnd }

func (f *finalReset) EventOccurred(t float64, y []float64, increasing bool) events.Action {
	f.fired++
	return events.ResetState
}

func (f *finalReset) ResetState(t float64, y []float64) { y[1] = -y[1] }

func TestIntegrate_ResetAtFinalTime(t *testing.T) {
	const tEnd = 3.0
	for _, integ := range []*Integrator{
		newDP54(t, 0, 1, 1e-10, 1e-10),
		newAdamsMoulton(t, 4, DefaultStepControl(0, 1, 1e-10, 1e-10)),
	} {
		t.Run(integ.Name(), func(t *testing.T) {
			h := &finalReset{tEnd: tEnd}
			if err := integ.AddEventHandler(h, eventConfig(events.Both)); err != nil {
				t.Fatalf("AddEventHandler: %v", err)
			}
			rec := &stepRecorder{}
			integ.AddStepHandler(rec)

			y := make([]float64, 2)
			reached, err := integ.Integrate(&harmonicOscillator{}, 0, []float64{0, 1}, tEnd, y)
			if err != nil {
				t.Fatalf("Integrate: %v", err)
			}
			if reached != tEnd {
				t.Errorf("reached %v, expected %v", reached, tEnd)
			}
			if h.fired != 1 {
				t.Errorf("handler fired %d times, expected 1", h.fired)
			}
			if rec.last != 1 {
				t.Errorf("isLast seen %d times", rec.last)
			}
			last := rec.steps[len(rec.steps)-1]
			if last.CurrentTime() != tEnd || !(last.PreviousTime() < tEnd) {
				t.Errorf("last step [%v, %v], expected a step ending at %v", last.PreviousTime(), last.CurrentTime(), tEnd)
			}
			if math.Abs(y[0]-math.Sin(tEnd)) > 1e-7 || math.Abs(y[1]+math.Cos(tEnd)) > 1e-7 {
				t.Errorf("got %v, expected the reset state [sin 3, -cos 3]", y)
			}
			if r := integ.Statistics().Restarts; r != 0 {
				t.Errorf("restarts: got %d, expected 0", r)
			}
		})
	}
}

func TestIntegrate_SimultaneousEvents(t *testing.T) {
	var log []string
	integ := newDP54(t, 0, 1, 1e-10, 1e-10)
	first := &crossing{component: 0, name: "first", log: &log}
	second := &crossing{component: 0, name: "second", log: &log}
	for _, h := range []*crossing{first, second} {
		if err := integ.AddEventHandler(h, eventConfig(events.Both)); err != nil {
			t.Fatalf("AddEventHandler: %v", err)
		}
	}
	if n := len(integ.EventHandlers()); n != 2 {
		t.Fatalf("got %d handlers, expected 2", n)
	}

	integrateOscillator(t, integ, 2.5*math.Pi)

	want := []string{"first", "second", "first", "second"}
	if strings.Join(log, ",") != strings.Join(want, ",") {
		t.Errorf("got order %v, expected %v", log, want)
	}
	if len(first.times) != 2 || len(second.times) != 2 {
		t.Errorf("got %d and %d events, expected 2 each", len(first.times), len(second.times))
	}
	if got := integ.Statistics().Events; got != 4 {
		t.Errorf("statistics: got %d events, expected 4", got)
	}
}

func TestIntegrate_TruncatedStepsCoverInterval(t *testing.T) {
	integ := newDP54(t, 0, 2, 1e-8, 1e-8)
	for _, c := range []int{0, 1} {
		if err := integ.AddEventHandler(&crossing{component: c}, eventConfig(events.Both)); err != nil {
			t.Fatalf("AddEventHandler: %v", err)
		}
	}

	var bounds [][2]float64
	integ.AddStepHandler(sampling.StepHandlerFunc(func(interp sampling.StepInterpolator, isLast bool) error {
		bounds = append(bounds, [2]float64{interp.PreviousTime(), interp.CurrentTime()})
		return nil
	}))
	integrateOscillator(t, integ, 10)

	if bounds[0][0] != 0 || bounds[len(bounds)-1][1] != 10 {
		t.Errorf("parts cover [%v, %v], expected [0, 10]", bounds[0][0], bounds[len(bounds)-1][1])
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i][0] != bounds[i-1][1] {
			t.Errorf("gap before part %d: %v after %v", i, bounds[i][0], bounds[i-1][1])
		}
		if !(bounds[i][1] > bounds[i][0]) {
			t.Errorf("part %d is empty: %v", i, bounds[i])
		}
	}
}

// bouncingBall is a ball dropped from 10 m that loses 20% of its speed at
// every bounce.
type bouncingBall struct {
	bounces int
}

const gravity = 9.81

func (b *bouncingBall) Dimension() int { return 2 }

func (b *bouncingBall) ComputeDerivatives(t float64, y, yDot []float64) error {
	yDot[0] = y[1]
	yDot[1] = -gravity
	return nil
}

func (b *bouncingBall) Init(t0 float64, y0 []float64, t float64) { b.bounces = 0 }

func (b *bouncingBall) G(t float64, y []float64) float64 { return y[0] }

func (b *bouncingBall) EventOccurred(t float64, y []float64, increasing bool) events.Action {
	b.bounces++
	return events.ResetState
}

func (b *bouncingBall) ResetState(t float64, y []float64) {
	y[0] = 0
	y[1] = -0.8 * y[1]
}

func containsNear(values []float64, want, tol float64) bool {
	for _, v := range values {
		if math.Abs(v-want) <= tol {
			return true
		}
	}
	return false
}

func TestIntegrate_ResetState(t *testing.T) {
	t1 := math.Sqrt(2 * 10 / gravity)
	t2 := t1 + 2*0.8*gravity*t1/gravity

	for _, integ := range []*Integrator{
		newDP54(t, 0, 1, 1e-10, 1e-10),
		newAdamsMoulton(t, 3, DefaultStepControl(0, 1, 1e-10, 1e-10)),
	} {
		t.Run(integ.Name(), func(t *testing.T) {
			ball := &bouncingBall{}
			if err := integ.AddEventHandler(ball, eventConfig(events.Decreasing)); err != nil {
				t.Fatalf("AddEventHandler: %v", err)
			}
			var times []float64
			integ.AddStepHandler(sampling.StepHandlerFunc(func(interp sampling.StepInterpolator, isLast bool) error {
				st, err := interp.Interpolate(interp.CurrentTime())
				if err != nil {
					return err
				}
				if st.Y[0] < -1e-6 {
					t.Errorf("height %v below ground at %v", st.Y[0], interp.CurrentTime())
				}
				times = append(times, interp.CurrentTime())
				return nil
			}))

			y := make([]float64, 2)
			reached, err := integ.Integrate(ball, 0, []float64{10, 0}, 5, y)
			if err != nil {
				t.Fatalf("Integrate: %v", err)
			}
			if reached != 5 {
				t.Errorf("reached %v, expected 5", reached)
			}
			if ball.bounces != 2 {
				t.Errorf("got %d bounces, expected 2", ball.bounces)
			}
			if r := integ.Statistics().Restarts; r != 2 {
				t.Errorf("restarts: got %d, expected 2", r)
			}
			if !containsNear(times, t1, 1e-8) || !containsNear(times, t2, 1e-7) {
				t.Errorf("no step ends at the bounces %v and %v", t1, t2)
			}

			// free flight after the second bounce
			v2 := 0.8 * 0.8 * gravity * t1
			dt := 5 - t2
			if want := v2*dt - 0.5*gravity*dt*dt; math.Abs(y[0]-want) > 1e-6 {
				t.Errorf("height: got %v, expected %v", y[0], want)
			}
		})
	}
}

// switched has a slope selected by a handler through ResetDerivatives.
type switched struct {
	slope float64
}

func (s *switched) Dimension() int { return 1 }

func (s *switched) ComputeDerivatives(t float64, y, yDot []float64) error {
	yDot[0] = s.slope
	return nil
}

func (s *switched) Init(t0 float64, y0 []float64, t float64) { s.slope = 1 }

func (s *switched) G(t float64, y []float64) float64 { return y[0] - 1 }

func (s *switched) EventOccurred(t float64, y []float64, increasing bool) events.Action {
	s.slope = -1
	return events.ResetDerivatives
}

func (s *switched) ResetState(t float64, y []float64) {}

func TestIntegrate_ResetDerivatives(t *testing.T) {
	sys := &switched{}
	integ := newDP54(t, 0, 0.7, 1e-10, 1e-10)
	if err := integ.AddEventHandler(sys, eventConfig(events.Increasing)); err != nil {
		t.Fatalf("AddEventHandler: %v", err)
	}

	y := make([]float64, 1)
	if _, err := integ.Integrate(sys, 0, []float64{0}, 3, y); err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if math.Abs(y[0]+1) > 1e-9 {
		t.Errorf("got %v, expected -1", y[0])
	}
	if r := integ.Statistics().Restarts; r != 1 {
		t.Errorf("restarts: got %d, expected 1", r)
	}
}

func TestIntegrate_ForwardBackwardSymmetry(t *testing.T) {
	integ := newDP54(t, 0, 1, 1e-11, 1e-11)
	sys := &harmonicOscillator{}
	y := make([]float64, 2)
	if _, err := integ.Integrate(sys, 0, []float64{0, 1}, 5, y); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if _, err := integ.Integrate(sys, 5, y, 0, y); err != nil {
		t.Fatalf("backward: %v", err)
	}
	if math.Abs(y[0]) > 1e-8 || math.Abs(y[1]-1) > 1e-8 {
		t.Errorf("got %v, expected [0 1]", y)
	}
}

// work accumulates the integral of the first primary component.
type work struct{}

func (work) Dimension() int { return 1 }

func (work) ComputeDerivatives(t float64, primary, primaryDot, secondary, secondaryDot []float64) error {
	secondaryDot[0] = primary[0]
	return nil
}

func TestIntegrate_SecondaryEquations(t *testing.T) {
	eq := ode.NewExpandable(&harmonicOscillator{})
	index := eq.AddSecondary(work{})

	integ := newDP54(t, 0, 1, 1e-10, 1e-10)
	y0 := []float64{0, 1, 0}
	y := make([]float64, eq.TotalDimension())
	if _, err := integ.IntegrateExpandable(eq, 0, y0, math.Pi, y); err != nil {
		t.Fatalf("IntegrateExpandable: %v", err)
	}

	// integral of sin over [0, pi]
	if got := eq.SecondaryMapper(index).Extract(y)[0]; math.Abs(got-2) > 1e-7 {
		t.Errorf("secondary: got %v, expected 2", got)
	}
	if got := eq.PrimaryMapper().Extract(y)[1]; math.Abs(got+1) > 1e-8 {
		t.Errorf("primary: got %v, expected -1", got)
	}
}

func TestIntegrate_DenseOutput(t *testing.T) {
	integ := newDP54(t, 0, 1, 1e-10, 1e-10)
	dense := sampling.NewDenseOutput()
	integ.AddStepHandler(dense)
	sys := &harmonicOscillator{}
	integrateOscillator(t, integ, 8)

	if dense.InitialTime() != 0 || dense.FinalTime() != 8 {
		t.Errorf("range [%v, %v], expected [0, 8]", dense.InitialTime(), dense.FinalTime())
	}
	for _, tq := range []float64{0, 0.3, 1.7, 4, 6.25, 8} {
		st, err := dense.Interpolate(tq)
		if err != nil {
			t.Fatalf("t=%v: %v", tq, err)
		}
		if e := maxError(st.Y, sys.Exact(tq)); e > 1e-7 {
			t.Errorf("t=%v: error %e", tq, e)
		}
	}
}

type fixedSink struct {
	f func(t float64, y, yDot []float64, isLast bool)
}

func (s *fixedSink) Init(t0 float64, y0 []float64, t float64) {}

func (s *fixedSink) HandleStep(t float64, y, yDot []float64, isLast bool) error {
	s.f(t, y, yDot, isLast)
	return nil
}

func TestIntegrate_FixedStepSampling(t *testing.T) {
	integ := newAdamsMoulton(t, 3, DefaultStepControl(0, 1, 1e-10, 1e-10))
	var ts []float64
	sink := &fixedSink{f: func(tt float64, y, yDot []float64, isLast bool) {
		ts = append(ts, tt)
		if math.Abs(y[0]-math.Sin(tt)) > 1e-6 {
			t.Errorf("t=%v: got %v, expected %v", tt, y[0], math.Sin(tt))
		}
	}}
	integ.AddStepHandler(sampling.NewStepNormalizer(0.5, sink, sampling.Increment, sampling.BoundsBoth))
	integrateOscillator(t, integ, 3)

	if len(ts) != 7 || ts[6] != 3 {
		t.Errorf("got samples at %v, expected 0, 0.5, ..., 3", ts)
	}
}

func TestIntegrate_Logging(t *testing.T) {
	var lines []string
	logger := funcr.New(func(prefix, args string) {
		lines = append(lines, prefix+" "+args)
	}, funcr.Options{Verbosity: 2})

	integ := newAdamsMoulton(t, 3, DefaultStepControl(0, 1, 1e-8, 1e-8))
	integ.SetLogger(logger)
	integrateOscillator(t, integ, 1)

	all := strings.Join(lines, "\n")
	for _, msg := range []string{"step accepted", "multistep history initialized", "integration finished"} {
		if !strings.Contains(all, msg) {
			t.Errorf("log has no %q", msg)
		}
	}
}

func TestIntegrate_HandlerManagement(t *testing.T) {
	integ := newDP54(t, 0, 1, 1e-8, 1e-8)
	integ.AddStepHandler(sampling.NewDenseOutput())
	kept := &crossing{}
	if err := integ.AddEventHandler(kept, eventConfig(events.Both)); err != nil {
		t.Fatalf("AddEventHandler: %v", err)
	}
	if len(integ.StepHandlers()) != 1 || len(integ.EventHandlers()) != 1 {
		t.Errorf("got %d step and %d event handlers, expected 1 each",
			len(integ.StepHandlers()), len(integ.EventHandlers()))
	}

	bad := events.DefaultConfig()
	bad.Convergence = 0
	if err := integ.AddEventHandler(&crossing{}, bad); !errors.Is(err, ode.ErrInvalidConfig) {
		t.Errorf("got %v, expected ErrInvalidConfig", err)
	}

	integ.RemoveEventHandler(kept)
	if n := len(integ.EventHandlers()); n != 0 {
		t.Errorf("got %d event handlers after removal", n)
	}

	integ.ClearStepHandlers()
	integ.ClearEventHandlers()
	if len(integ.StepHandlers()) != 0 || len(integ.EventHandlers()) != 0 {
		t.Error("handlers left after clearing")
	}
}
