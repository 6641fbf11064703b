package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/pwrsim/internal/logging"
	"github.com/san-kum/pwrsim/internal/scenario"
	"github.com/san-kum/pwrsim/internal/sweep"
)

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	axes := make([]sweep.Axis, 0, len(sweepAxes))
	for _, s := range sweepAxes {
		a, err := sweep.ParseAxis(s)
		if err != nil {
			return fmt.Errorf("%w (parameters: %s)", err, strings.Join(sweep.Params(), ", "))
		}
		axes = append(axes, a)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger := logging.New(cfg.Log)
	ctx = logging.WithLogger(ctx, logger)
	registry := scenario.NewRegistry()
	sc, err := registry.Get(cfg.Scenario)
	if err != nil {
		return err
	}
	runner := &sweep.Runner{
		Registry: registry,
		Scenario: cfg.Scenario,
		Base:     cfg.Plant,
		Events:   cfg.Events,
		Limits:   cfg.Limits,
		Rods:     cfg.RodControl(sc),
		Config:   cfg.SolverConfig(),
		EOS:      cfg.NewEOS(logger),
		Workers:  workers,
	}

	fmt.Printf("sweeping %s over %d points (%d workers)...\n", cfg.Scenario, len(sweep.Grid(axes)), workers)
	points, err := runner.Run(ctx, axes)
	if err != nil {
		return err
	}

	fmt.Print(header("pwrsim sweep", cfg.Scenario))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	var metricNames []string
	for _, pt := range points {
		if len(pt.Metrics) > 0 {
			for name := range pt.Metrics {
				metricNames = append(metricNames, name)
			}
			break
		}
	}
	sort.Strings(metricNames)

	cols := make([]string, 0, len(axes)+len(metricNames)+1)
	for _, a := range axes {
		cols = append(cols, strings.ToUpper(a.Param))
	}
	for _, name := range metricNames {
		cols = append(cols, strings.ToUpper(name))
	}
	cols = append(cols, "STATUS")
	fmt.Fprintln(w, strings.Join(cols, "\t"))

	for _, pt := range points {
		row := make([]string, 0, len(cols))
		for _, a := range axes {
			row = append(row, fmt.Sprintf("%.6g", pt.Params[a.Param]))
		}
		for _, name := range metricNames {
			row = append(row, fmt.Sprintf("%.6g", pt.Metrics[name]))
		}
		switch {
		case pt.Err != nil:
			row = append(row, "error: "+pt.Err.Error())
		case pt.Scrammed:
			row = append(row, "scram: "+pt.ScramReason)
		default:
			row = append(row, "ok")
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best, ok := sweep.Best(points, bestMetric, maximize); ok {
		fmt.Println()
		fmt.Print(dim.Render("  best by "+bestMetric) + "\n")
		for _, a := range axes {
			fmt.Print(field(a.Param, fmt.Sprintf("%.6g", best.Params[a.Param])))
		}
		fmt.Print(field(bestMetric, fmt.Sprintf("%.6g", best.Metrics[bestMetric])))
	}
	return nil
}
