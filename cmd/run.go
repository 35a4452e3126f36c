package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/hostsim/sim"
	"github.com/inference-sim/hostsim/sim/emulation"
	"github.com/inference-sim/hostsim/sim/scenario"
	"github.com/inference-sim/hostsim/sim/trace"
)

// runCmd executes the scenario named by --config
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setLogLevel(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runScenario(ctx, cmd, cmd.OutOrStdout())
	},
}

// loadScenario reads --config and applies the flag overrides the user set.
func loadScenario(cmd *cobra.Command) (*scenario.Run, error) {
	sc, err := scenario.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("workers") {
		n := workers
		sc.Scheduler.WorkerCount = &n
	}
	if cmd.Flags().Changed("seed") {
		sc.Seed = seed
	}
	if cmd.Flags().Changed("end-time") {
		t, err := sim.ParseSimTime(endTime)
		if err != nil {
			return nil, &sim.ConfigError{Field: "--end-time", Reason: err.Error()}
		}
		sc.Scheduler.EndTime = t
	}
	if cmd.Flags().Changed("trace-level") {
		sc.Scheduler.TraceLevel = traceLevel
	}
	if traceOut != "" {
		sc.Scheduler.TraceLevel = string(trace.TraceLevelEvents)
	}
	return sc.Build()
}

func runScenario(ctx context.Context, cmd *cobra.Command, out io.Writer) error {
	run, err := loadScenario(cmd)
	if err != nil {
		return err
	}
	logrus.Infof("Starting simulation of %d hosts on %d workers, lookahead=%v, end=%v, seed=%d",
		len(run.Specs), run.Config.WorkerCount, run.Config.Lookahead, run.Config.EndTime, run.Config.Seed)

	summary, runErr := sim.NewManager(run.Config, run.Topology, run.Emulator, run.Specs).Run(ctx)
	if summary == nil {
		return runErr
	}
	summary.Print(out)
	printApplications(out, run.Emulator.Report())
	if summary.Trace.Enabled() {
		printTrace(out, trace.Summarize(summary.Trace), run.Specs)
	}

	if summaryOut != "" {
		if err := summary.SaveJSON(summaryOut); err != nil && runErr == nil {
			runErr = err
		}
	}
	if traceOut != "" {
		if err := trace.WriteFile(traceOut, summary.Trace); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr == nil {
		logrus.Info("Simulation complete.")
	}
	return runErr
}

func printApplications(w io.Writer, report []emulation.HostStats) {
	if len(report) == 0 {
		return
	}
	fmt.Fprintln(w, "=== Host Applications ===")
	for _, hs := range report {
		fmt.Fprintf(w, "  %-16s %-12s sent %6d (%s)  recv %6d (%s)",
			hs.Host, hs.App, hs.PacketsSent, units.HumanSize(float64(hs.BytesSent)),
			hs.PacketsRecv, units.HumanSize(float64(hs.BytesReceived)))
		if hs.Replies > 0 {
			fmt.Fprintf(w, "  rtt %v", hs.MeanRTT())
		}
		fmt.Fprintln(w)
	}
}

func printTrace(w io.Writer, ts *trace.TraceSummary, specs []sim.HostSpec) {
	fmt.Fprintln(w, "=== Trace Summary ===")
	fmt.Fprintf(w, "  events %d on %d hosts, %v .. %v, %d failures\n", ts.TotalEvents, ts.UniqueHosts,
		sim.SimTime(ts.FirstEventTime), sim.SimTime(ts.LastEventTime), ts.Failures)
	kinds := make([]string, 0, len(ts.KindDistribution))
	for kind := range ts.KindDistribution {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "  kind %-14s %d\n", kind, ts.KindDistribution[kind])
	}
	for id, spec := range specs {
		if n := ts.HostDistribution[uint32(id)]; n > 0 {
			fmt.Fprintf(w, "  host %-14s %d\n", spec.Name, n)
		}
	}
}
