package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "explainx",
		Short: "Retry-governed cron runner for advertising reports",
		Long: `explainx requests daily advertising reports for every connected profile
and re-requests failed ones on a schedule. Every job run is retried with a fixed
delay and recorded in job_runs.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newMigrateCmd(), newJobsCmd())
	return root
}
