package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd checks a scenario without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a simulation scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setLogLevel(); err != nil {
			return err
		}
		run, err := loadScenario(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "scenario OK: %d hosts, %d workers, lookahead %v, end %v\n",
			len(run.Specs), run.Config.WorkerCount, run.Config.Lookahead, run.Config.EndTime)
		return nil
	},
}
