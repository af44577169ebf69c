package experiment

import (
	"github.com/san-kum/odekit/internal/config"
	"github.com/san-kum/odekit/internal/events"
	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/sampling"
	"github.com/san-kum/odekit/internal/storage"
)

// recorder appends every sample it receives to the result.
type recorder struct {
	res *Result
}

func (r *recorder) Init(t0 float64, y0 []float64, t float64) {
	r.res.Times = r.res.Times[:0]
	r.res.States = r.res.States[:0]
}

func (r *recorder) HandleStep(t float64, y, yDot []float64, isLast bool) error {
	r.res.Times = append(r.res.Times, t)
	r.res.States = append(r.res.States, ode.Vector(y).Clone())
	return nil
}

// stepEnds samples the start of the run and the end of every step.
type stepEnds struct {
	rec *recorder
}

func (s stepEnds) Init(t0 float64, y0 []float64, t float64) {
	s.rec.Init(t0, y0, t)
	_ = s.rec.HandleStep(t0, y0, nil, false)
}

func (s stepEnds) HandleStep(interp sampling.StepInterpolator, isLast bool) error {
	st, err := interp.Interpolate(interp.CurrentTime())
	if err != nil {
		return err
	}
	return s.rec.HandleStep(st.Time, st.Y, st.YDot, isLast)
}

// thresholdEvent fires when y[component] crosses value.
type thresholdEvent struct {
	component int
	value     float64
	action    events.Action
	reset     config.ResetConfig
}

func (e *thresholdEvent) Init(t0 float64, y0 []float64, t float64) {}

func (e *thresholdEvent) G(t float64, y []float64) float64 {
	return y[e.component] - e.value
}

func (e *thresholdEvent) EventOccurred(t float64, y []float64, increasing bool) events.Action {
	return e.action
}

func (e *thresholdEvent) ResetState(t float64, y []float64) {
	if e.reset.Scale != 0 {
		y[e.reset.Component] *= e.reset.Scale
	}
}

// recordedHandler logs every occurrence of the wrapped handler.
type recordedHandler struct {
	events.Handler
	name string
	res  *Result
}

func (h *recordedHandler) Init(t0 float64, y0 []float64, t float64) {
	h.res.Events = h.res.Events[:0]
	h.Handler.Init(t0, y0, t)
}

func (h *recordedHandler) EventOccurred(t float64, y []float64, increasing bool) events.Action {
	action := h.Handler.EventOccurred(t, y, increasing)
	h.res.Events = append(h.res.Events, storage.EventRecord{
		Name:   h.name,
		Time:   t,
		Action: action.String(),
		State:  ode.Vector(y).Clone(),
	})
	return action
}
