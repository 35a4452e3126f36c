package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/hostsim/sim"
)

var (
	// CLI flags shared by run and validate
	configPath string // Scenario YAML file
	logLevel   string // Log verbosity level

	// CLI overrides of scenario fields, applied only when set
	workers    int    // Worker thread count
	seed       int64  // Master seed
	endTime    string // Simulated end time
	traceLevel string // none or events

	// Outputs
	summaryOut string // JSON summary path
	traceOut   string // JSON-lines event trace path
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "hostsim",
	Short:         "Parallel discrete-event simulator for networks of hosts",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// setLogLevel applies the --log flag.
func setLogLevel() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return &sim.ConfigError{Field: "--log", Reason: err.Error()}
	}
	logrus.SetLevel(level)
	return nil
}

// Execute runs the CLI root command. The process exit status follows
// sim.ExitCode.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(sim.ExitCode(err))
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVar(&configPath, "config", "", "Scenario YAML file")
		c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
		c.Flags().IntVar(&workers, "workers", 0, "Override scheduler.worker_count")
		c.Flags().Int64Var(&seed, "seed", 0, "Override the scenario seed")
		c.Flags().StringVar(&endTime, "end-time", "", "Override scheduler.end_time (e.g. 10s)")
		c.Flags().StringVar(&traceLevel, "trace-level", "", "Override scheduler.trace_level (none, events)")
		_ = c.MarkFlagRequired("config")
	}
	runCmd.Flags().StringVar(&summaryOut, "summary-out", "", "Write the run summary as JSON to this file")
	runCmd.Flags().StringVar(&traceOut, "trace-out", "", "Write executed events as JSON lines to this file (enables event tracing)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
