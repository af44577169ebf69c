package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/san-kum/odekit/internal/config"
	"github.com/san-kum/odekit/internal/experiment"
	"github.com/san-kum/odekit/internal/export"
	"github.com/san-kum/odekit/internal/sampling"
	"github.com/san-kum/odekit/internal/storage"
	"github.com/san-kum/odekit/internal/tui"
)

var (
	dataDir   string
	verbosity int
	timeout   time.Duration
	logger    = logr.Discard()

	integrator     string
	t0             float64
	t1             float64
	sampleStep     float64
	absTol         float64
	relTol         float64
	minStep        float64
	maxStep        float64
	fixedStep      float64
	nSteps         int
	maxCorrections int
	maxEvals       int
	initState      []float64
	params         map[string]string
	configFile     string
	preset         string
	saveConfig     string
	noSave         bool
	live           bool
	frameRate      int

	// export
	format    string
	phase     bool
	svgWidth  int
	svgHeight int

	// analyze
	component  int
	xAxis      int
	yAxis      int
	lyapunov   bool
	section    int
	level      float64
	spectrumTo int

	// bench
	methods    []string
	tolerances []float64
	fixedSteps []float64
	workers    int

	// bifurcation
	paramName  string
	paramFrom  float64
	paramTo    float64
	paramSteps int
	transient  float64
	record     float64
)

var (
	title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dim   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	warn  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("odekit")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "odekit",
		Short:         "ordinary differential equation integration lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dataDir = v.GetString("data")
			verbosity = v.GetInt("verbose")
			timeout = v.GetDuration("timeout")
			logger = newLogger(verbosity)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("data", ".odekit", "data directory (ODEKIT_DATA)")
	rootCmd.PersistentFlags().IntP("verbose", "v", 0, "log verbosity, 1 for events, 2 for every step (ODEKIT_VERBOSE)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "abort integrations after this long (ODEKIT_TIMEOUT)")
	if err := v.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	runCmd := &cobra.Command{
		Use:   "run [problem]",
		Short: "integrate a problem and store the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExperiment,
	}
	runCmd.Flags().StringVarP(&integrator, "integrator", "i", "dp54", "integrator")
	runCmd.Flags().Float64Var(&t0, "t0", 0, "initial time")
	runCmd.Flags().Float64Var(&t1, "t1", config.DefaultT1, "final time")
	runCmd.Flags().Float64Var(&sampleStep, "sample", config.DefaultSampleStep, "output sampling step, 0 records every step end")
	runCmd.Flags().Float64Var(&absTol, "abs-tol", config.DefaultAbsTol, "absolute tolerance")
	runCmd.Flags().Float64Var(&relTol, "rel-tol", config.DefaultRelTol, "relative tolerance")
	runCmd.Flags().Float64Var(&minStep, "min-step", 0, "minimal step size")
	runCmd.Flags().Float64Var(&maxStep, "max-step", 0, "maximal step size, 0 for the whole range")
	runCmd.Flags().Float64Var(&fixedStep, "step", config.DefaultFixedStep, "step size of fixed step integrators")
	runCmd.Flags().IntVar(&nSteps, "n-steps", config.DefaultSteps, "history length of multistep integrators")
	runCmd.Flags().IntVar(&maxCorrections, "corrections", 0, "extra corrector iterations (adams-moulton)")
	runCmd.Flags().IntVar(&maxEvals, "max-evals", 0, "derivative evaluation budget, 0 for none")
	runCmd.Flags().Float64SliceVar(&initState, "init", nil, "initial state, defaults to the problem's")
	runCmd.Flags().StringToStringVar(&params, "param", nil, "problem parameters, e.g. --param damping=0")
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().StringVar(&saveConfig, "save-config", "", "write the resolved configuration to this path")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().BoolVar(&live, "live", false, "draw the state while integrating")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate of --live")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata, statistics and events",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json or csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, csv or svg")
	exportCmd.Flags().BoolVar(&phase, "phase", false, "svg: draw --y-axis against --x-axis instead of time series")
	exportCmd.Flags().IntVar(&xAxis, "x-axis", 0, "svg phase plot x component")
	exportCmd.Flags().IntVar(&yAxis, "y-axis", 1, "svg phase plot y component")
	exportCmd.Flags().IntVar(&svgWidth, "width", 800, "svg width")
	exportCmd.Flags().IntVar(&svgHeight, "height", 400, "svg height")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).Delete(args[0])
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "spectrum, phase portrait and chaos indicators of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVarP(&component, "component", "c", 0, "state component for the spectrum")
	analyzeCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for the phase portrait x-axis")
	analyzeCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for the phase portrait y-axis")
	analyzeCmd.Flags().BoolVar(&lyapunov, "lyapunov", false, "estimate the largest Lyapunov exponent")
	analyzeCmd.Flags().IntVar(&section, "section", -1, "component whose upward crossings of --level define a Poincaré section")
	analyzeCmd.Flags().Float64Var(&level, "level", 0, "crossing level of --section")
	analyzeCmd.Flags().IntVar(&spectrumTo, "bins", 0, "number of spectrum bins to plot, 0 for a quarter")

	benchCmd := &cobra.Command{
		Use:   "bench [problem]",
		Short: "evaluations and global error per method and tolerance",
		Args:  cobra.ExactArgs(1),
		RunE:  benchProblem,
	}
	benchCmd.Flags().StringSliceVar(&methods, "methods",
		[]string{"dp54", "ck54", "fehlberg45", "bs32", "hh54", "adams-bashforth", "adams-moulton"},
		"integrators to compare")
	benchCmd.Flags().Float64SliceVar(&tolerances, "tols", []float64{1e-4, 1e-6, 1e-8, 1e-10},
		"tolerances of adaptive integrators")
	benchCmd.Flags().Float64SliceVar(&fixedSteps, "steps", []float64{0.1, 0.05, 0.01, 0.005},
		"step sizes of fixed step integrators")
	benchCmd.Flags().IntVarP(&workers, "workers", "j", 1, "concurrent runs, timings are only comparable with 1")
	benchCmd.Flags().Float64Var(&t1, "t1", config.DefaultT1, "final time")
	benchCmd.Flags().StringToStringVar(&params, "param", nil, "problem parameters")

	bifurcationCmd := &cobra.Command{
		Use:   "bifurcation [problem]",
		Short: "local maxima of a component while sweeping a parameter",
		Args:  cobra.ExactArgs(1),
		RunE:  bifurcation,
	}
	bifurcationCmd.Flags().StringVar(&paramName, "param", "", "parameter to sweep")
	bifurcationCmd.Flags().Float64Var(&paramFrom, "from", 0, "first parameter value")
	bifurcationCmd.Flags().Float64Var(&paramTo, "to", 1, "last parameter value")
	bifurcationCmd.Flags().IntVar(&paramSteps, "steps", 40, "number of parameter values")
	bifurcationCmd.Flags().IntVarP(&component, "component", "c", 0, "recorded state component")
	bifurcationCmd.Flags().Float64Var(&transient, "transient", 50, "time discarded before recording")
	bifurcationCmd.Flags().Float64Var(&record, "record", 50, "recording time")
	_ = bifurcationCmd.MarkFlagRequired("param")

	presetsCmd := &cobra.Command{
		Use:   "presets [problem]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			problems := config.PresetProblems()
			if len(args) == 1 {
				problems = args[:1]
			}
			for _, problem := range problems {
				presets := config.ListPresets(problem)
				if len(presets) == 0 {
					fmt.Printf("no presets for problem: %s\n", problem)
					continue
				}
				fmt.Printf("presets for %s:\n", title.Render(problem))
				for _, p := range presets {
					cfg := config.GetPreset(problem, p)
					fmt.Printf("  %-12s %s\n", p, dim.Render(fmt.Sprintf("%s t=[%g, %g] events=%d",
						cfg.Integrator, cfg.T0, cfg.T1, len(cfg.Events))))
				}
			}
			return nil
		},
	}

	replayCmd := &cobra.Command{
		Use:   "replay [run_id]",
		Short: "step through a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, traj, err := loadRun(args[0])
			if err != nil {
				return err
			}
			return tui.RunReplay(*meta, traj)
		},
	}

	problemsCmd := &cobra.Command{
		Use:   "problems",
		Short: "list problems and integrators",
		Run: func(cmd *cobra.Command, args []string) {
			r := experiment.NewRegistry()
			fmt.Println(title.Render("problems"))
			for _, name := range r.ListProblems() {
				p, _ := r.GetProblem(name)
				fmt.Printf("  %-10s %s\n", name, dim.Render(formatParams(p.Params())))
			}
			fmt.Println(title.Render("integrators"))
			for _, name := range r.ListIntegrators() {
				fmt.Printf("  %s\n", name)
			}
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, showCmd, plotCmd, exportCmd, deleteCmd, analyzeCmd,
		benchCmd, bifurcationCmd, presetsCmd, replayCmd, problemsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(v int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: v, LogTimestamp: true})
}

// runContext is cancelled by Ctrl+C and by --timeout.
func runContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// resolveConfig applies preset, config file and flags, in that order.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) == 1 {
		cfg.Problem = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Problem, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Problem))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if len(args) == 1 {
			cfg.Problem = args[0]
		}
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("t0") {
		cfg.T0 = t0
	}
	if flags.Changed("t1") {
		cfg.T1 = t1
	}
	if flags.Changed("sample") {
		cfg.SampleStep = sampleStep
	}
	if flags.Changed("abs-tol") {
		cfg.Step.AbsTol = absTol
	}
	if flags.Changed("rel-tol") {
		cfg.Step.RelTol = relTol
	}
	if flags.Changed("min-step") {
		cfg.Step.Min = minStep
	}
	if flags.Changed("max-step") {
		cfg.Step.Max = maxStep
	}
	if flags.Changed("step") {
		cfg.Step.Fixed = fixedStep
	}
	if flags.Changed("n-steps") {
		cfg.Step.NSteps = nSteps
	}
	if flags.Changed("corrections") {
		cfg.Step.MaxCorrections = maxCorrections
	}
	if flags.Changed("max-evals") {
		cfg.MaxEvaluations = maxEvals
	}
	if flags.Changed("init") {
		cfg.InitState = initState
	}
	if len(params) > 0 {
		parsed, err := parseParams(params)
		if err != nil {
			return nil, err
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(parsed))
		}
		for k, v := range parsed {
			cfg.Params[k] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseParams(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for k, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if saveConfig != "" {
		if err := config.Save(saveConfig, cfg); err != nil {
			return err
		}
	}

	opts := []experiment.Option{experiment.WithLogger(logger)}
	if live {
		frameStep := cfg.SampleStep
		if frameStep == 0 {
			frameStep = cfg.Span() / 500
		}
		renderer := tui.NewLiveRenderer(os.Stdout, cfg.Problem, frameRate)
		opts = append(opts, experiment.WithStepHandler(
			sampling.NewStepNormalizer(frameStep, renderer, sampling.Increment, sampling.BoundsBoth)))
	}

	ctx, cancel := runContext()
	defer cancel()

	fmt.Printf("integrating %s with %s...\n", cfg.Problem, cfg.Integrator)
	res, runErr := experiment.Run(ctx, cfg, opts...)
	if res == nil {
		return runErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	if runErr != nil {
		fmt.Println(warn.Render(fmt.Sprintf("interrupted at t=%g: %v", res.TFinal, runErr)))
	}

	printSummary(res)

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(res.Metadata(cfg), res.Trajectory())
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", title.Render(runID))
	return nil
}

func printSummary(res *experiment.Result) {
	s := res.Statistics
	fmt.Printf("completed in %v\n", res.Elapsed)
	fmt.Printf("reached t=%g", res.TFinal)
	if res.Stopped {
		fmt.Print(warn.Render(" (stopped by event)"))
	}
	fmt.Println()
	fmt.Printf("steps: %d  rejected: %d  evaluations: %d  restarts: %d\n",
		s.Steps, s.Rejected, s.Evaluations, s.Restarts)
	fmt.Printf("samples: %d  events: %d\n", len(res.Times), len(res.Events))

	fmt.Println("\nmetrics:")
	for _, name := range metricsNames(res.Metrics) {
		fmt.Printf("  %-14s %.6g\n", name, res.Metrics[name])
	}
}

func metricsNames(m map[string]float64) []string {
	return slices.Sorted(maps.Keys(m))
}

func formatParams(p map[string]float64) string {
	parts := make([]string, 0, len(p))
	for _, k := range metricsNames(p) {
		parts = append(parts, fmt.Sprintf("%s=%g", k, p[k]))
	}
	return strings.Join(parts, " ")
}

func loadRun(runID string) (*storage.RunMetadata, storage.Trajectory, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, storage.Trajectory{}, err
	}
	traj, err := st.LoadStates(runID)
	if err != nil {
		return nil, storage.Trajectory{}, err
	}
	return meta, traj, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROBLEM\tINTEG\tTIME\tRANGE\tSTEPS\tEVENTS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t[%g, %g]\t%.0f\t%d\n",
			run.ID,
			run.Problem,
			run.Integrator,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.T0,
			run.TFinal,
			run.Statistics["steps"],
			len(run.Events),
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run:        %s\n", title.Render(meta.ID))
	fmt.Printf("problem:    %s %s\n", meta.Problem, dim.Render(formatParams(meta.Params)))
	fmt.Printf("integrator: %s\n", meta.Integrator)
	if meta.Step > 0 {
		fmt.Printf("step:       %g\n", meta.Step)
	} else {
		fmt.Printf("tolerance:  abs=%g rel=%g\n", meta.AbsTol, meta.RelTol)
	}
	fmt.Printf("range:      [%g, %g] reached %g\n", meta.T0, meta.T1, meta.TFinal)
	fmt.Printf("created:    %s\n", meta.Timestamp.Format(time.RFC3339))

	fmt.Println("\nstatistics:")
	for _, name := range metricsNames(meta.Statistics) {
		fmt.Printf("  %-16s %.6g\n", name, meta.Statistics[name])
	}
	fmt.Println("\nmetrics:")
	for _, name := range metricsNames(meta.Metrics) {
		fmt.Printf("  %-16s %.6g\n", name, meta.Metrics[name])
	}

	if len(meta.Events) > 0 {
		fmt.Println("\nevents:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tTIME\tACTION\tSTATE")
		for _, ev := range meta.Events {
			fmt.Fprintf(w, "  %s\t%.10g\t%s\t%v\n", ev.Name, ev.Time, ev.Action, ev.State)
		}
		return w.Flush()
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}

	if traj.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("problem: %s\n", meta.Problem)
	fmt.Printf("samples: %d\n\n", traj.Len())

	numVars := min(len(traj.States[0]), 6)

	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, traj.Len())
		for i := range traj.States {
			data[i] = traj.States[i][varIdx]
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s vs time", tui.Label(meta.Problem, varIdx))),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	switch format {
	case "json":
		return storage.New(dataDir).Export(os.Stdout, args[0])
	case "csv":
		_, traj, err := loadRun(args[0])
		if err != nil {
			return err
		}
		w := csv.NewWriter(os.Stdout)
		for i := range traj.States {
			row := []string{strconv.FormatFloat(traj.Times[i], 'g', -1, 64)}
			for _, v := range traj.States[i] {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	case "svg":
		_, traj, err := loadRun(args[0])
		if err != nil {
			return err
		}
		if phase {
			return export.PhaseSVG(os.Stdout, traj, xAxis, yAxis, svgWidth, svgHeight)
		}
		return export.TimeSeriesSVG(os.Stdout, traj, svgWidth, svgHeight)
	}
	return fmt.Errorf("unknown export format: %s", format)
}
