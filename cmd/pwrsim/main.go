package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/pwrsim/internal/analysis"
	"github.com/san-kum/pwrsim/internal/config"
	"github.com/san-kum/pwrsim/internal/export"
	"github.com/san-kum/pwrsim/internal/logging"
	"github.com/san-kum/pwrsim/internal/plant"
	"github.com/san-kum/pwrsim/internal/scenario"
	"github.com/san-kum/pwrsim/internal/steam"
	"github.com/san-kum/pwrsim/internal/storage"
)

var (
	dataDir     string
	logLevel    string
	dt          float64
	duration    float64
	sampleEvery int
	configFile  string
	preset      string
	metricsFile string
	traceSpans  bool
	columns     []string
	column      string
	outFile     string
	temperature float64
	pressure    float64
	quality     float64
	sweepAxes   []string
	workers     int
	bestMetric  string
	maximize    bool
	svgDir      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "pwrsim",
		Short:        "pressurized water reactor transient simulator",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pwrsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "outer timestep, s")
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration, s")
	runCmd.Flags().IntVar(&sampleEvery, "sample-every", config.DefaultSampleEvery, "record every n steps")
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write prometheus metrics to this file after the run")
	runCmd.Flags().BoolVar(&traceSpans, "trace", false, "export step spans to stderr")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run traces",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&columns, "column", []string{"power_mw", "fuel_temperature", "core_temperature", "core_pressure_mpa", "pressurizer_pressure_mpa"}, "trace columns to plot")
	plotCmd.Flags().StringVar(&svgDir, "svg-dir", "", "also write each plotted column as an svg into this directory")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run with its trace as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "summary and frequency analysis of a trace column",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&column, "column", "power_mw", "trace column")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a run",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list available presets for a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for scenario: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				cfg := config.GetPreset(args[0], p)
				fmt.Printf("  %-16s dt=%gs duration=%gs\n", p, cfg.Dt, cfg.Duration)
			}
			return nil
		},
	}

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list scenarios",
		RunE:  listScenarios,
	}

	eosCmd := &cobra.Command{
		Use:   "eos",
		Short: "evaluate the water equation of state at a point",
		RunE:  probeEOS,
	}
	eosCmd.Flags().Float64Var(&temperature, "temperature", 583, "temperature, K")
	eosCmd.Flags().Float64Var(&pressure, "pressure", 15.5e6, "pressure, Pa (single phase)")
	eosCmd.Flags().Float64Var(&quality, "quality", -1, "vapor quality for a saturated mixture; negative selects single phase")

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "run a scenario over a grid of plant parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "outer timestep, s")
	sweepCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration, s")
	sweepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	sweepCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	sweepCmd.Flags().StringArrayVar(&sweepAxes, "param", nil, "swept parameter, name=v1,v2 or name=lo:hi:n (repeatable)")
	sweepCmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "concurrent runs")
	sweepCmd.Flags().StringVar(&bestMetric, "best", "peak_fuel_temperature", "metric used to pick the best point")
	sweepCmd.Flags().BoolVar(&maximize, "maximize", false, "pick the largest value of --best instead of the smallest")
	_ = sweepCmd.MarkFlagRequired("param")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, analyzeCmd, deleteCmd, presetsCmd, scenariosCmd, eosCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tSTEPS\tSCRAM")
	for _, run := range runs {
		scram := "-"
		if run.Scrammed {
			scram = run.ScramReason
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1fs\t%.4fs\t%d\t%s\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Steps,
			scram,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	tr, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(tr.Rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(tr.Rows))

	plotted := 0
	for _, name := range columns {
		data := tr.Column(name)
		if data == nil {
			fmt.Printf("no column %q (have %s)\n", name, strings.Join(tr.Columns, ", "))
			continue
		}
		graph := asciigraph.Plot(finiteOnly(data),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
		plotted++

		if svgDir != "" {
			path, err := writeSVG(svgDir, meta.ID, name, tr.Times, data)
			if err != nil {
				return err
			}
			fmt.Println(dim.Render("  wrote " + path))
		}
	}
	if plotted == 0 {
		return fmt.Errorf("nothing to plot")
	}
	return nil
}

func writeSVG(dir, runID, name string, times, data []float64) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".svg")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	opts := export.DefaultSVGOptions()
	opts.Caption = name + " / " + runID
	if err := export.TraceToSVG(f, times, data, opts); err != nil {
		f.Close()
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return path, f.Close()
}

// finiteOnly replaces non-finite samples with their predecessor.
func finiteOnly(data []float64) []float64 {
	out := make([]float64, len(data))
	last := 0.0
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = last
		}
		out[i], last = v, v
	}
	return out
}

func exportRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	if outFile == "" {
		return st.ExportJSON(os.Stdout, runID)
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := st.ExportJSON(f, runID); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", runID, outFile)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	tr, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	data := tr.Column(column)
	if len(data) < 2 {
		return fmt.Errorf("no data for column %q", column)
	}
	sampleDt := tr.Times[1] - tr.Times[0]

	s := analysis.Summarize(tr.Times, data, 0.02)
	fmt.Print(header("analysis", meta.ID))
	fmt.Print(field("scenario", meta.Scenario))
	fmt.Print(field("column", column))
	fmt.Print(field("initial", fmt.Sprintf("%.6g", s.Initial)))
	fmt.Print(field("final", fmt.Sprintf("%.6g", s.Final)))
	fmt.Print(field("min / max", fmt.Sprintf("%.6g / %.6g", s.Min, s.Max)))
	fmt.Print(field("mean ± std", fmt.Sprintf("%.6g ± %.3g", s.Mean, s.StdDev)))
	fmt.Print(field("peak at", fmt.Sprintf("%.2f s", s.PeakTime)))
	fmt.Print(field("settled (2%) from", fmt.Sprintf("%.2f s", s.SettleTime)))
	fmt.Println()

	freqs, amps := analysis.Spectrum(data, sampleDt)
	if len(amps) > 2 {
		fmt.Println(asciigraph.Plot(amps[1:],
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("amplitude spectrum (%s), 0 to %.2f Hz", column, freqs[len(freqs)-1])),
		))
		fmt.Println()
	}

	freq, amp, ok := analysis.DominantFrequency(data, sampleDt)
	if !ok {
		fmt.Println("no oscillation detected")
		return nil
	}
	fmt.Printf("dominant frequency: %.4f hz (amplitude %.4g)\n", freq, amp)
	fmt.Printf("period: %.3f s\n", 1.0/freq)
	return nil
}

func deleteRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	if err := st.Delete(cmd.Context(), runID); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", runID)
	return nil
}

func listScenarios(cmd *cobra.Command, args []string) error {
	registry := scenario.NewRegistry()
	fmt.Print(header("scenarios", ""))
	for _, name := range registry.ListScenarios() {
		s, err := registry.Get(name)
		if err != nil {
			return err
		}
		fmt.Println("  " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-16s", name)) + dim.Render(s.Description))
		for _, e := range s.Events {
			fmt.Println("      " + dimmer.Render(e.String()))
		}
		if s.RodSetpoint > 0 {
			fmt.Println("      " + dimmer.Render(fmt.Sprintf("automatic rods hold %.0f%% power", s.RodSetpoint*100)))
		}
	}
	return nil
}

func probeEOS(cmd *cobra.Command, args []string) error {
	var (
		u, rho float64
		label  string
	)
	switch {
	case quality >= 0:
		u, rho = steam.Mixture(temperature, quality)
		label = fmt.Sprintf("saturated mixture, x=%.3f", quality)
	case temperature < steam.SaturationTemperature(pressure):
		u, rho = steam.CompressedLiquid(temperature, pressure)
		label = "compressed liquid"
	default:
		u, rho = steam.SuperheatedVapor(temperature, pressure)
		label = "superheated vapor"
	}

	logCfg := logging.ConfigFromEnv(logging.Config{})
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	eos := steam.NewSolver(steam.WithLogger(logging.New(logCfg)))
	volume := 1.0
	f := eos.Close(plant.Fluid{Mass: rho * volume, InternalEnergy: u * rho * volume}, volume)

	fmt.Print(header("water eos", label))
	fmt.Print(field("input T", fmt.Sprintf("%.3f K", temperature)))
	if quality < 0 {
		fmt.Print(field("input P", fmt.Sprintf("%.4f MPa", pressure/1e6)))
	}
	fmt.Print(field("specific energy", fmt.Sprintf("%.2f kJ/kg", u/1e3)))
	fmt.Print(field("density", fmt.Sprintf("%.3f kg/m³", rho)))
	fmt.Print(field("psat(T)", fmt.Sprintf("%.4f MPa", steam.SaturationPressure(temperature)/1e6)))
	fmt.Println()
	fmt.Print(field("closed T", fmt.Sprintf("%.3f K", f.Temperature)))
	fmt.Print(field("closed P", fmt.Sprintf("%.4f MPa", f.Pressure/1e6)))
	fmt.Print(field("phase", f.Phase))
	fmt.Print(field("quality", fmt.Sprintf("%.4f", f.Quality)))

	stats := eos.Stats()
	source := "saturation solve"
	if stats.TableHits > 0 {
		source = "liquid table"
	}
	fmt.Print(field("answered by", source))
	return nil
}
