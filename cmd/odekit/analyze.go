package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/odekit/internal/analysis"
	"github.com/san-kum/odekit/internal/config"
	"github.com/san-kum/odekit/internal/experiment"
	"github.com/san-kum/odekit/internal/integrators"
	"github.com/san-kum/odekit/internal/ode"
	"github.com/san-kum/odekit/internal/problems"
	"github.com/san-kum/odekit/internal/storage"
	"github.com/san-kum/odekit/internal/tui"
)

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if traj.Len() < 2 {
		return fmt.Errorf("run %s has %d samples, need at least 2", meta.ID, traj.Len())
	}
	dim := len(traj.States[0])
	if component < 0 || component >= dim {
		return fmt.Errorf("component %d out of range [0, %d)", component, dim)
	}

	fmt.Printf("%s %s with %s\n\n", title.Render("analysis of"), meta.Problem, meta.Integrator)

	// The spectrum assumes uniform sampling.
	dt := (traj.Times[traj.Len()-1] - traj.Times[0]) / float64(traj.Len()-1)
	if meta.SampleStep == 0 {
		fmt.Println(warn.Render("run was recorded at step ends, spectrum uses the mean spacing"))
	}

	data := make([]float64, traj.Len())
	for i, s := range traj.States {
		data[i] = s[component]
	}

	freq := analysis.DominantFrequency(data, dt)
	fmt.Printf("dominant frequency of %s: %.6g", tui.Label(meta.Problem, component), freq)
	if freq > 0 {
		fmt.Printf(" (period %.6g)", analysis.Period(data, dt))
	}
	fmt.Println()

	spectrum := analysis.PowerSpectrum(data)
	bins := spectrumTo
	if bins <= 0 || bins > len(spectrum) {
		bins = max(len(spectrum)/4, min(len(spectrum), 2))
	}
	fmt.Println(asciigraph.Plot(spectrum[:bins],
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum, bin width %.4g", 1/(dt*float64(len(data)))))))
	fmt.Println()

	if dim > 1 && xAxis != yAxis {
		states := make([]ode.State, traj.Len())
		for i := range traj.States {
			states[i] = ode.State{Time: traj.Times[i], Y: traj.States[i]}
		}
		portrait, err := analysis.NewPhasePortrait(states, xAxis, yAxis)
		if err != nil {
			return err
		}
		fmt.Printf("phase portrait %s vs %s\n",
			tui.Label(meta.Problem, yAxis), tui.Label(meta.Problem, xAxis))
		fmt.Println(analysis.PhasePortraitToASCII(portrait, 60, 20))
		fmt.Println()
	}

	if !lyapunov && section < 0 {
		return nil
	}

	p, integ, err := rebuild(meta)
	if err != nil {
		return err
	}
	y0 := meta.InitialState
	span := meta.TFinal - meta.T0

	if lyapunov {
		duration := math.Min(math.Abs(span), 100)
		lambda, err := analysis.LyapunovExponent(integ, p, y0, 1, duration, 1e-8)
		if err != nil {
			return fmt.Errorf("lyapunov: %w", err)
		}
		verdict := "regular"
		if lambda > 0.01 {
			verdict = "chaotic"
		}
		fmt.Printf("largest lyapunov exponent: %.4g (%s)\n\n", lambda, verdict)
	}

	if section >= 0 {
		sec, err := analysis.GeneratePoincareSection(integ, p, y0, section, level,
			xAxis, yAxis, meta.T0, span, math.Abs(span)/1000)
		if err != nil {
			return fmt.Errorf("section: %w", err)
		}
		fmt.Printf("poincaré section %s = %g, %d crossings\n",
			tui.Label(meta.Problem, section), level, len(sec.Points))
		fmt.Println(analysis.PoincareSectionToASCII(sec, 60, 20))
	}

	return nil
}

// rebuild recreates the problem and integrator a stored run used.
func rebuild(meta *storage.RunMetadata) (problems.Problem, *integrators.Integrator, error) {
	r := experiment.NewRegistry()
	p, err := r.GetProblem(meta.Problem)
	if err != nil {
		return nil, nil, err
	}
	for name, v := range meta.Params {
		if err := p.SetParam(name, v); err != nil {
			return nil, nil, err
		}
	}

	step := config.DefaultConfig().Step
	if meta.Step > 0 {
		step.Fixed = meta.Step
	}
	if meta.AbsTol > 0 {
		step.AbsTol = meta.AbsTol
	}
	if meta.RelTol > 0 {
		step.RelTol = meta.RelTol
	}
	integ, err := r.GetIntegrator(meta.Integrator, step, meta.T1-meta.T0)
	if err != nil {
		return nil, nil, err
	}
	integ.SetLogger(logger.WithName(meta.Integrator))
	return p, integ, nil
}

func benchProblem(cmd *cobra.Command, args []string) error {
	problem := args[0]
	parsed, err := parseParams(params)
	if err != nil {
		return err
	}

	ctx, cancel := runContext()
	defer cancel()

	fmt.Printf("%s %s over [0, %g]\n\n", title.Render("benchmark"), problem, t1)

	var cfgs []*config.Config
	for _, method := range methods {
		settings := tolerances
		if !experiment.IsAdaptive(method) {
			settings = fixedSteps
		}
		for _, tol := range settings {
			cfg := config.DefaultConfig()
			cfg.Problem = problem
			cfg.Integrator = method
			cfg.T1 = t1
			cfg.SampleStep = 0
			cfg.Params = parsed
			cfg.Step.AbsTol = tol
			cfg.Step.RelTol = tol
			cfg.Step.Fixed = tol
			cfgs = append(cfgs, cfg)
		}
	}

	results, errs := experiment.NewBatch(workers, experiment.WithLogger(logger)).Run(ctx, cfgs)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "METHOD\tTOL/STEP\tSTEPS\tREJECTED\tEVALS\tGLOBAL ERR\tENERGY DRIFT\tTIME\t")
	for i, cfg := range cfgs {
		tol := cfg.Step.AbsTol
		if errs[i] != nil {
			fmt.Fprintf(w, "%s\t%g\t-\t-\t-\t%v\t\t\t\n", cfg.Integrator, tol, errs[i])
			continue
		}
		res := results[i]
		s := res.Statistics
		fmt.Fprintf(w, "%s\t%g\t%d\t%d\t%d\t%s\t%s\t%s\t\n",
			cfg.Integrator, tol, s.Steps, s.Rejected, s.Evaluations,
			metricCell(res.Metrics, "global_error"),
			metricCell(res.Metrics, "energy_drift"),
			res.Elapsed.Round(time.Microsecond))
	}

	return w.Flush()
}

func metricCell(m map[string]float64, name string) string {
	v, ok := m[name]
	if !ok || math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.3e", v)
}

func bifurcation(cmd *cobra.Command, args []string) error {
	r := experiment.NewRegistry()
	p, err := r.GetProblem(args[0])
	if err != nil {
		return err
	}
	step := config.DefaultConfig().Step
	step.AbsTol, step.RelTol = 1e-6, 1e-6
	integ, err := r.GetIntegrator("dp54", step, transient+record)
	if err != nil {
		return err
	}
	integ.SetLogger(logger.WithName("dp54"))

	ctx, cancel := runContext()
	defer cancel()
	done := make(chan struct{})
	var data []analysis.BifurcationPoint
	go func() {
		defer close(done)
		data, err = analysis.BifurcationDiagram(integ, p, paramName, paramFrom, paramTo, paramSteps,
			component, p.DefaultState(), transient, record, 0.05)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s %s: maxima of %s for %s in [%g, %g]\n",
		title.Render("bifurcation"), p.Name(), tui.Label(p.Name(), component), paramName, paramFrom, paramTo)
	fmt.Println(analysis.BifurcationToASCII(data, 80, 24))
	return nil
}
