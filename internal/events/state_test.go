package events_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/odekit/internal/events"
	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/sampling"
	"github.com/san-kum/odekit/internal/solvers"
)

// circle is the exact solution y = (sin t, cos t).
type circle struct{}

func (circle) Compute(s *sampling.Step, t, theta, oneMinusThetaH float64, state, derivative []float64) {
	state[0], state[1] = math.Sin(t), math.Cos(t)
	derivative[0], derivative[1] = math.Cos(t), -math.Sin(t)
}

func exactStep(t0, t1 float64) *sampling.Interpolator {
	i := sampling.NewInterpolator()
	i.Reset(circle{}, t1 >= t0,
		t0, []float64{math.Sin(t0), math.Cos(t0)}, []float64{math.Cos(t0), -math.Sin(t0)},
		t1, []float64{math.Sin(t1), math.Cos(t1)}, []float64{math.Cos(t1), -math.Sin(t1)})
	return i
}

type sineCrossing struct {
	action     events.Action
	times      []float64
	increasing []bool
	inits      int
}

func (s *sineCrossing) Init(t0 float64, y0 []float64, t float64) { s.inits++ }

func (s *sineCrossing) G(t float64, y []float64) float64 { return y[0] }

func (s *sineCrossing) EventOccurred(t float64, y []float64, increasing bool) events.Action {
	s.times = append(s.times, t)
	s.increasing = append(s.increasing, increasing)
	return s.action
}

func (s *sineCrossing) ResetState(t float64, y []float64) {}

// drive replays the exact solution through st the way the integrator does
// and returns the time reached.
func drive(st *events.State, t0, t1, h float64) (float64, error) {
	st.Init(t0, []float64{math.Sin(t0), math.Cos(t0)}, t1)
	if t1 < t0 {
		h = -h
	}
	first := true
	for t := t0; ; {
		next, last := t+h, false
		if (h > 0 && next >= t1) || (h < 0 && next <= t1) {
			next, last = t1, true
		}
		interp := exactStep(t, next)
		if first {
			if err := st.ReinitializeBegin(interp); err != nil {
				return t, err
			}
			first = false
		}
		for {
			found, err := st.EvaluateStep(interp)
			if err != nil {
				return t, err
			}
			if !found {
				break
			}
			te := st.EventTime()
			interp.SetSoftCurrentTime(te)
			s, err := interp.Interpolate(te)
			if err != nil {
				return t, err
			}
			st.StepAccepted(te, s.Y)
			if st.Stop() {
				return te, nil
			}
			st.Reset(te, s.Y)
			interp.SetSoftPreviousTime(te)
			interp.SetSoftCurrentTime(next)
		}
		s, _ := interp.Interpolate(next)
		st.StepAccepted(next, s.Y)
		if last {
			return next, nil
		}
		t = next
	}
}

func newState(h events.Handler, mutate func(*events.Config)) *events.State {
	cfg := events.DefaultConfig()
	cfg.MaxCheckInterval = 0.25
	if mutate != nil {
		mutate(&cfg)
	}
	st, err := events.NewState(h, cfg)
	Expect(err).NotTo(HaveOccurred())
	return st
}

func expectRoots(times []float64, multiples ...float64) {
	Expect(times).To(HaveLen(len(multiples)))
	for i, m := range multiples {
		Expect(times[i]).To(BeNumerically("~", m*math.Pi, 1e-9))
	}
}

var _ = Describe("State", func() {
	const (
		start = 0.5 * math.Pi
		end   = 5.5 * math.Pi
	)

	It("reports every crossing without a filter", func() {
		h := &sineCrossing{}
		reached, err := drive(newState(h, nil), start, end, 0.3)
		Expect(err).NotTo(HaveOccurred())
		Expect(reached).To(Equal(end))
		Expect(h.inits).To(Equal(1))
		expectRoots(h.times, 1, 2, 3, 4, 5)
		Expect(h.increasing).To(Equal([]bool{false, true, false, true, false}))
	})

	It("reports only increasing crossings", func() {
		h := &sineCrossing{}
		st := newState(h, func(c *events.Config) { c.Direction = events.Increasing })
		_, err := drive(st, start, end, 0.3)
		Expect(err).NotTo(HaveOccurred())
		expectRoots(h.times, 2, 4)
		Expect(h.increasing).To(Equal([]bool{true, true}))
		Expect(st.Count()).To(Equal(2))
	})

	It("reports only decreasing crossings", func() {
		h := &sineCrossing{}
		_, err := drive(newState(h, func(c *events.Config) { c.Direction = events.Decreasing }), start, end, 0.3)
		Expect(err).NotTo(HaveOccurred())
		expectRoots(h.times, 1, 3, 5)
	})

	It("measures direction in time when integrating backward", func() {
		h := &sineCrossing{}
		_, err := drive(newState(h, func(c *events.Config) { c.Direction = events.Increasing }), end, start, 0.3)
		Expect(err).NotTo(HaveOccurred())
		expectRoots(h.times, 4, 2)
		Expect(h.increasing).To(Equal([]bool{true, true}))
	})

	It("keeps the sign history across steps much longer than the period", func() {
		h := &sineCrossing{}
		_, err := drive(newState(h, func(c *events.Config) { c.Direction = events.Increasing }), start, end, end)
		Expect(err).NotTo(HaveOccurred())
		expectRoots(h.times, 2, 4)
	})

	It("misses nothing when the check interval resolves the roots of one long step", func() {
		h := &sineCrossing{}
		_, err := drive(newState(h, nil), start, end, 100)
		Expect(err).NotTo(HaveOccurred())
		expectRoots(h.times, 1, 2, 3, 4, 5)
	})

	It("disables the handler after the maximum event count", func() {
		h := &sineCrossing{}
		st := newState(h, func(c *events.Config) { c.MaxEventCount = 2 })
		reached, err := drive(st, start, end, 0.3)
		Expect(err).NotTo(HaveOccurred())
		Expect(reached).To(Equal(end))
		expectRoots(h.times, 1, 2)
		Expect(st.Disabled()).To(BeTrue())
	})

	It("stops at the first event", func() {
		h := &sineCrossing{action: events.Stop}
		reached, err := drive(newState(h, nil), start, end, 0.3)
		Expect(err).NotTo(HaveOccurred())
		Expect(reached).To(BeNumerically("~", math.Pi, 1e-9))
		Expect(reached).To(BeNumerically(">=", math.Pi-1e-15))
	})

	It("ignores a root exactly at the start", func() {
		h := &sineCrossing{}
		_, err := drive(newState(h, nil), 0, 3.5, 0.3)
		Expect(err).NotTo(HaveOccurred())
		expectRoots(h.times, 1)
	})

	It("locates roots with any bracketing solver", func() {
		for _, s := range []solvers.BracketingSolver{solvers.NewBrent(1e-12), solvers.NewIllinois(1e-12), solvers.NewBisection(1e-12)} {
			h := &sineCrossing{}
			_, err := drive(newState(h, func(c *events.Config) { c.Solver = s }), start, end, 0.3)
			Expect(err).NotTo(HaveOccurred())
			expectRoots(h.times, 1, 2, 3, 4, 5)
		}
	})

	It("fails when the root cannot be isolated", func() {
		h := &sineCrossing{}
		_, err := drive(newState(h, func(c *events.Config) { c.MaxIterations = 2 }), start, end, 0.3)
		Expect(errors.Is(err, ode.ErrNoBracketing)).To(BeTrue())
		Expect(errors.Is(err, solvers.ErrTooManyEvaluations)).To(BeTrue())
	})

	It("asks for a restart only after reset actions", func() {
		for action, restart := range map[events.Action]bool{
			events.Continue:         false,
			events.ResetState:       true,
			events.ResetDerivatives: true,
		} {
			st := newState(&sineCrossing{action: action}, nil)
			st.Init(3, []float64{math.Sin(3), math.Cos(3)}, 4)
			interp := exactStep(3, 4)
			Expect(st.ReinitializeBegin(interp)).To(Succeed())
			found, err := st.EvaluateStep(interp)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			te := st.EventTime()
			s, _ := interp.Interpolate(te)
			st.StepAccepted(te, s.Y)
			Expect(st.Fired()).To(BeTrue())
			Expect(st.Reset(te, s.Y)).To(Equal(restart))
			Expect(st.Pending()).To(BeFalse())
		}
	})
})

var _ = Describe("Config", func() {
	DescribeTable("Validate",
		func(mutate func(*events.Config), ok bool) {
			cfg := events.DefaultConfig()
			mutate(&cfg)
			err := cfg.Validate()
			if ok {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(errors.Is(err, ode.ErrInvalidConfig)).To(BeTrue())
			}
		},
		Entry("defaults", func(c *events.Config) {}, true),
		Entry("zero check interval", func(c *events.Config) { c.MaxCheckInterval = 0 }, false),
		Entry("negative convergence", func(c *events.Config) { c.Convergence = -1 }, false),
		Entry("no iterations", func(c *events.Config) { c.MaxIterations = 0 }, false),
		Entry("negative count", func(c *events.Config) { c.MaxEventCount = -1 }, false),
	)

	It("parses actions and directions", func() {
		a, err := events.ParseAction("reset_state")
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(events.ResetState))
		_, err = events.ParseAction("explode")
		Expect(err).To(HaveOccurred())

		d, err := events.ParseDirection("decreasing")
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(events.Decreasing))
	})
})
