package main

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/liepid/internal/analysis"
	"github.com/san-kum/liepid/internal/automation"
	"github.com/san-kum/liepid/internal/bus"
	"github.com/san-kum/liepid/internal/config"
	"github.com/san-kum/liepid/internal/experiment"
	"github.com/san-kum/liepid/internal/sim"
	"github.com/san-kum/liepid/internal/storage"
	"github.com/san-kum/liepid/internal/viz"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := scenario(cmd, args)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx := cmd.Context()
	var observers []sim.Observer
	var emitter *bus.Emitter
	if cfg.CAN.Interface != "" {
		codec, err := bus.NewCodec(cfg.CAN.BaseID, cfg.CAN.Scale)
		if err != nil {
			return err
		}
		w, err := bus.NewSocketCANWriter(ctx, cfg.CAN.Interface)
		if err != nil {
			return err
		}
		emitter = bus.NewEmitter(ctx, codec, w, log)
		defer emitter.Close()
		observers = append(observers, emitter)
	}

	fmt.Printf("running %s simulation...\n", cfg.Group)
	start := time.Now()

	result, runErr := experiment.Run(ctx, cfg, log, observers...)
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)

	runID, err := st.Save(metadata(cfg), result)
	if err != nil {
		return err
	}

	status := viz.StatusRunning.Render("completed")
	if runErr != nil {
		status = viz.StatusFailed.Render("failed: " + runErr.Error())
	}
	fmt.Printf("%s in %v\n", status, elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	if emitter != nil {
		sent, failed := emitter.Stats()
		fmt.Printf("can: %d frames sent, %d failed\n", sent, failed)
	}
	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)

	return runErr
}

func metadata(cfg *config.Config) storage.RunMetadata {
	return storage.RunMetadata{
		Group:       cfg.Group,
		Preset:      preset,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		WindupLimit: formatLimit(cfg.Params.WindupLimit),
		Kp:          cfg.Gains.Kp,
		Kd:          cfg.Gains.Kd,
		Ki:          cfg.Gains.Ki,
		Trajectory:  cfg.Trajectory.Kind,
	}
}

func formatLimit(l float64) string {
	if math.IsInf(l, 1) {
		return "inf"
	}
	return fmt.Sprintf("%g", l)
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s\n", viz.Metric(name, fmt.Sprintf("%.6f", m[name])))
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := scenario(cmd, args)
	if err != nil {
		return err
	}
	st, err := experiment.NewStepper(cfg)
	if err != nil {
		return err
	}
	title := cfg.Group
	if preset != "" {
		title += " / " + preset
	}
	return viz.Run(viz.NewModel(title, st, cfg.Dt, cfg.Duration, frameRate))
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := scenario(cmd, args)
	if err != nil {
		return err
	}
	if runs <= 0 {
		return fmt.Errorf("%w: runs must be positive", config.ErrBadValue)
	}
	log, closer, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	n, err := cfg.Dof()
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(seed))
	base := config.Pad(cfg.Initial.Pose, n)
	starts := make([][]float64, runs)
	for i := range starts {
		p := base.Clone()
		for j := range p {
			p[j] += spread * (2*rng.Float64() - 1)
		}
		starts[i] = p
	}

	fmt.Printf("running %d %s simulations...\n", runs, cfg.Group)
	start := time.Now()
	results, err := experiment.RunEnsemble(cmd.Context(), cfg, log, starts)
	if err != nil && !errors.Is(err, sim.ErrUnstable) {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTART\tSTEPS\tRMS\tPEAK\tEFFORT")
	var rms []float64
	for i, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i, formatVec(starts[i]), r.StepsTaken, viz.StatusFailed.Render("diverged"))
			continue
		}
		rms = append(rms, r.Metrics["tracking_rms"])
		fmt.Fprintf(w, "%d\t%s\t%d\t%.4f\t%.4f\t%.4f\n",
			i,
			formatVec(starts[i]),
			r.StepsTaken,
			r.Metrics["tracking_rms"],
			r.Metrics["peak_error"],
			r.Metrics["control_effort"],
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(rms) > 1 {
		mean, std := stat.MeanStdDev(rms, nil)
		fmt.Printf("\ntracking rms: mean %.4f, std %.4f\n", mean, std)
	}
	return err
}

func formatVec(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%+.2f", x)
	}
	return "[" + strings.Join(parts, " ") + "]"
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
	fmt.Fprintln(w, "ID\tGROUP\tPRESET\tTIME\tDURATION\tDT\tWINDUP\tTRAJ")

	for _, run := range runs {
		p := run.Preset
		if p == "" {
			p = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\n",
			run.ID,
			run.Group,
			p,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.WindupLimit,
			run.Trajectory,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	trace, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}

	if len(trace.Times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("group: %s\n", meta.Group)
	fmt.Printf("samples: %d\n\n", len(trace.Times))

	plot := func(data []float64, caption string) {
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if figurePath != "" {
		if err := storage.SaveFigure(trace, meta.ID, figurePath); err != nil {
			return err
		}
		fmt.Printf("figure written to %s\n", figurePath)
		return nil
	}

	plot(trace.ErrorNorms, "|error| vs time")
	for i := range trace.Commands[0] {
		plot(column(trace.Commands, i), fmt.Sprintf("u%d vs time", i))
	}
	for i := range trace.Integrals[0] {
		plot(column(trace.Integrals, i), fmt.Sprintf("integral %d vs time", i))
	}
	return nil
}

func column(rows [][]float64, i int) []float64 {
	col := make([]float64, len(rows))
	for j, r := range rows {
		if i < len(r) {
			col[j] = r[i]
		}
	}
	return col
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	trace, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(trace.Times) < 2 {
		return fmt.Errorf("not enough data to analyze")
	}

	r := analysis.StepResponse(trace.Times, trace.ErrorNorms, settleBand)
	freq, power := analysis.DominantFrequency(trace.ErrorNorms, meta.Dt)

	fmt.Printf("run: %s\n\n", meta.ID)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "initial error\t%.6f\n", r.InitialError)
	fmt.Fprintf(w, "peak error\t%.6f at %.3fs\n", r.PeakError, r.PeakTime)
	fmt.Fprintf(w, "rise time (90-10%%)\t%s\n", formatSeconds(r.RiseTime))
	if r.Settled {
		fmt.Fprintf(w, "settling time (%.0f%%)\t%s\n", settleBand*100, formatSeconds(r.SettlingTime))
	} else {
		fmt.Fprintf(w, "settling time (%.0f%%)\t%s\n", settleBand*100, viz.StatusFailed.Render("not settled"))
	}
	fmt.Fprintf(w, "steady-state error\t%.6f\n", r.SteadyStateError)
	fmt.Fprintf(w, "dominant frequency\t%.3f Hz (amplitude %.4f)\n", freq, power)
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nphase portrait (|error| vs d|error|/dt):")
	portrait := analysis.NewPortrait(trace.ErrorNorms, analysis.Rate(trace.Times, trace.ErrorNorms))
	fmt.Print(viz.Panel.Render(portrait.ASCII(60, 16)))
	fmt.Println()
	return nil
}

func formatSeconds(s float64) string {
	if math.IsNaN(s) {
		return "-"
	}
	return fmt.Sprintf("%.3fs", s)
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	log, closer, err := newLogger(logConfig(config.DefaultConfig().Log))
	if err != nil {
		return err
	}
	defer closer.Close()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	results, runErr := automation.RunScenario(cmd.Context(), sc, log)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tGROUP\tRUN\tRMS\tPEAK\tSTATUS")
	for i, r := range results {
		meta := metadata(r.Config)
		meta.Preset = r.Step.Preset
		runID, err := st.Save(meta, r.Result)
		if err != nil {
			return err
		}
		status := "ok"
		if r.Err != nil {
			status = "diverged"
		}
		name := r.Step.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.4f\t%s\n",
			name,
			r.Config.Group,
			runID,
			r.Result.Metrics["tracking_rms"],
			r.Result.Metrics["peak_error"],
			status,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := scenario(cmd, args)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	sw := &automation.Sweep{Base: cfg, Param: sweepParam, Min: sweepMin, Max: sweepMax, NumSteps: sweepSteps}
	results, err := automation.RunSweep(cmd.Context(), sw, log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tRMS\tPEAK\tEFFORT\tSATURATION\n", strings.ToUpper(sweepParam))
	rms := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%.4f\t%s\n", r.Value, viz.StatusFailed.Render("diverged"))
			continue
		}
		rms = append(rms, r.Metrics["tracking_rms"])
		fmt.Fprintf(w, "%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			r.Value,
			r.Metrics["tracking_rms"],
			r.Metrics["peak_error"],
			r.Metrics["control_effort"],
			r.Metrics["saturation"],
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(rms) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(rms,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("tracking rms vs "+sweepParam),
		))
	}
	return nil
}
