package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/liepid/internal/config"
	"github.com/san-kum/liepid/internal/experiment"
)

var (
	dataDir    string
	configFile string
	preset     string
	logFile    string
	logLevel   string
	dt         float64
	duration   float64
	windup     float64
	kp         []float64
	kd         []float64
	ki         []float64
	canIface   string
	frameRate  int
	runs       int
	spread     float64
	seed       int64
	figurePath string
	settleBand float64
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
)

// main registers the liepid commands and executes the root command, exiting
// with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:          "liepid",
		Short:        "PID control on Lie groups",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".liepid", "data directory")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file (rotated); stderr when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warning, error")

	runCmd := &cobra.Command{
		Use:   "run [group]",
		Short: "simulate closed-loop tracking and store the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().StringVar(&canIface, "can", "", "SocketCAN interface to publish commands on")

	liveCmd := &cobra.Command{
		Use:   "live [group]",
		Short: "simulate with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [group]",
		Short: "simulate from randomly perturbed initial poses in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addScenarioFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&runs, "runs", 8, "number of runs")
	ensembleCmd.Flags().Float64Var(&spread, "spread", 0.5, "max perturbation per pose coordinate")
	ensembleCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&figurePath, "png", "", "write the plot to an image file instead of the terminal")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step response, spectrum and phase portrait of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&settleBand, "band", 0.02, "settling band as a fraction of the initial error")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of simulations from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [group]",
		Short: "sweep one gain over a range and compare run metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addScenarioFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "kp", "gain to sweep: kp, kd or ki")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 10, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")

	groupsCmd := &cobra.Command{
		Use:   "groups",
		Short: "list supported state spaces",
		Run: func(cmd *cobra.Command, args []string) {
			for _, g := range experiment.ListGroups() {
				fmt.Printf("%-4s dof=%d presets=%v\n", g, config.Groups[g], config.ListPresets(g))
			}
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [group]",
		Short: "list available presets for a group",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for group: %s\n", args[0])
				return
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [group] [preset]",
		Short: "print a configuration as YAML",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if len(args) > 0 {
				cfg = config.ForGroup(args[0])
			}
			if len(args) == 2 {
				cfg = config.GetPreset(args[0], args[1])
				if cfg == nil {
					return fmt.Errorf("unknown preset: %s (available: %v)", args[1], config.ListPresets(args[0]))
				}
			}
			return yaml.NewEncoder(os.Stdout).Encode(cfg)
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, ensembleCmd, listCmd, plotCmd, analyzeCmd, scenarioCmd, sweepCmd, groupsCmd, presetsCmd, configCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&windup, "windup", 0, "integral windup limit (default unlimited)")
	cmd.Flags().Float64SliceVar(&kp, "kp", nil, "proportional gains (one value broadcasts)")
	cmd.Flags().Float64SliceVar(&kd, "kd", nil, "derivative gains (one value broadcasts)")
	cmd.Flags().Float64SliceVar(&ki, "ki", nil, "integral gains (one value broadcasts)")
}

// scenario resolves the configuration for a command: preset or config file
// first, then any flags set explicitly on the command line.
func scenario(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	group := cfg.Group
	if len(args) > 0 {
		group = args[0]
		if configFile != "" && group != cfg.Group {
			return nil, fmt.Errorf("%w: %s sets %q, argument is %q", config.ErrGroupConflict, configFile, cfg.Group, group)
		}
	}

	if preset != "" {
		p := config.GetPreset(group, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(group))
		}
		cfg = p
	} else if group != cfg.Group {
		cfg = config.ForGroup(group)
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("windup") {
		cfg.Params.WindupLimit = windup
	}
	if flags.Changed("kp") {
		cfg.Gains.Kp = kp
	}
	if flags.Changed("kd") {
		cfg.Gains.Kd = kd
	}
	if flags.Changed("ki") {
		cfg.Gains.Ki = ki
	}
	if flags.Lookup("can") != nil && flags.Changed("can") {
		cfg.CAN.Interface = canIface
	}
	cfg.Log = logConfig(cfg.Log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logConfig applies the --log-file and --log-level flags to lc.
func logConfig(lc config.LogConfig) config.LogConfig {
	if logFile != "" {
		lc.File = logFile
	}
	if logLevel != "" {
		lc.Level = logLevel
	}
	return lc
}
