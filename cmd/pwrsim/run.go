package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/pwrsim/internal/config"
	"github.com/san-kum/pwrsim/internal/control"
	"github.com/san-kum/pwrsim/internal/logging"
	"github.com/san-kum/pwrsim/internal/neutronics"
	"github.com/san-kum/pwrsim/internal/observability"
	"github.com/san-kum/pwrsim/internal/scenario"
	"github.com/san-kum/pwrsim/internal/storage"
)

// loadConfig resolves defaults, then a preset, then a config file, then
// explicitly set flags.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Scenario = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Scenario, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Scenario))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 {
			loaded.Scenario = args[0]
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("sample-every") {
		cfg.SampleEvery = sampleEvery
	}
	cfg.Log = logging.ConfigFromEnv(cfg.Log)
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	cfg.Tracing = observability.TracingConfigFromEnv(cfg.Tracing)
	if traceSpans {
		cfg.Tracing.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger := logging.New(cfg.Log)
	ctx = logging.WithLogger(ctx, logger)

	shutdown, err := observability.InitTracing(ctx, cfg.Tracing, os.Stderr, logger)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, logger)

	eos := cfg.NewEOS(logger)
	registry := scenario.NewRegistry()
	initial, sc, err := registry.Build(cfg.Scenario, cfg.Plant, eos)
	if err != nil {
		return err
	}
	events := cfg.Events
	if len(events) == 0 {
		events = sc.Events
	}
	timeline, err := scenario.NewTimeline(events, logger)
	if err != nil {
		return err
	}

	sched, err := registry.NewScheduler(scenario.Deps{EOS: eos, Limits: cfg.Limits, Logger: logger})
	if err != nil {
		return err
	}
	if rods := cfg.RodControl(sc); rods.Enabled {
		logger.Info("automatic rod control", "setpoint", rods.Setpoint)
		sched.SetController(control.Chain(timeline, control.NewRodController(rods, logger)))
	} else {
		sched.SetController(timeline)
	}
	sched.AddProbe(scenario.DefaultProbes()...)
	for _, m := range registry.DefaultMetrics(cfg.Limits) {
		sched.AddMetric(m)
	}

	reg := prometheus.NewRegistry()
	collector, err := observability.NewSchedulerCollector(reg)
	if err != nil {
		return err
	}
	if _, err := observability.NewEOSCollector(reg, eos); err != nil {
		return err
	}
	sched.SetRecorder(collector)
	sched.AddObserver(collector)
	for _, op := range sched.Operators() {
		if n, ok := op.(*neutronics.Operator); ok {
			n.SetScramRecorder(collector)
		}
	}

	fmt.Printf("running %s for %gs (dt=%gs)...\n", cfg.Scenario, cfg.Duration, cfg.Dt)
	result, runErr := sched.Run(ctx, initial, cfg.SolverConfig())
	if result == nil {
		return runErr
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	defer st.Close()

	info := storage.RunInfo{
		Scenario: cfg.Scenario,
		Preset:   preset,
		Dt:       cfg.Dt,
		Duration: cfg.Duration,
	}
	for _, e := range events {
		info.Events = append(info.Events, e.String())
	}
	runID, err := st.Save(context.WithoutCancel(ctx), info, result)
	if err != nil {
		return errors.Join(runErr, err)
	}

	if metricsFile != "" {
		if err := observability.WriteTextfile(metricsFile, reg); err != nil {
			return errors.Join(runErr, err)
		}
	}

	final := result.Final
	fmt.Print(header("pwrsim", cfg.Scenario))
	fmt.Print(field("run id", runID))
	fmt.Print(field("steps", result.StepsTaken))
	fmt.Print(field("sim time", fmt.Sprintf("%.2f s", final.Time)))
	fmt.Print(field("elapsed", result.Elapsed))
	fmt.Print(field("power", fmt.Sprintf("%.1f MW (%.1f%%)", final.Neutronics.Power/1e6, final.Neutronics.PowerFraction()*100)))
	fmt.Print(field("reactivity", fmt.Sprintf("%.1f pcm", final.Neutronics.Reactivity*1e5)))
	fmt.Print("  " + scramStatus(final.Neutronics.Scrammed, final.Neutronics.ScramReason) + "\n\n")
	fmt.Print(dim.Render("  metrics") + "\n")
	fmt.Print(metricLines(result.Metrics))
	fmt.Print(dim.Render("  sub-steps") + "\n")
	for _, op := range sched.Operators() {
		fmt.Print(field(op.Name(), result.Subcycles[op.Name()]))
	}
	stats := eos.Stats()
	fmt.Print(dim.Render("  eos") + "\n")
	fmt.Print(field("closures", stats.Calls))
	fmt.Print(field("table hits", stats.TableHits))
	fmt.Print(field("range clamps", stats.RangeClamps))
	fmt.Print(field("bisection failure rate", fmt.Sprintf("%.4f", stats.FailureRate())))
	if metricsFile != "" {
		fmt.Print(field("metrics file", metricsFile))
	}

	if runErr != nil {
		fmt.Println()
		fmt.Println(red.Render("run stopped early: ") + runErr.Error())
	}
	return runErr
}
