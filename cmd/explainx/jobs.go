package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"explainx/internal/config"
)

func newJobsCmd() *cobra.Command {
	jobs := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and run cron jobs",
	}
	jobs.AddCommand(newJobsListCmd(), newJobsRunCmd())
	return jobs
}

func newJobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered jobs with their schedule and retry policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			specs, err := jobSpecs(cfg.Cron, nil, nil)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSCHEDULE\tTIMEZONE\tATTEMPTS\tDELAY\tOVERLAP")
			for _, s := range specs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", s.Name, s.Schedule, cfg.Cron.Location(), s.Policy.MaxAttempts, s.Policy.Delay, s.Overlap)
			}
			return w.Flush()
		},
	}
}

func newJobsRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Run one job now in the foreground, with retries",
		Long: `run executes a single retry-governed run of the named job and waits for it.
The command exits non-zero when every attempt failed. SIGINT cancels pending
retry delays.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := wiredApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)

			rec, err := a.scheduler.RunNow(ctx, args[0])
			if err != nil {
				a.log.Error("job_run_failed", zap.String("job", args[0]), zap.Int("attempts", rec.Attempts), zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s after %d attempt(s) in %s\n", rec.Job, rec.Outcome, rec.Attempts, rec.Duration())
			return nil
		},
	}
}

func wiredApp(ctx context.Context) (*app, error) {
	a, err := baseApp(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.wire(ctx); err != nil {
		closeApp(a)
		return nil, err
	}
	return a, nil
}

func closeApp(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.close(ctx)
}
