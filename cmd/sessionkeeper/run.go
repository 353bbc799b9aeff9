package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/sessionkeeper/pkg/executor/steps"
	"github.com/entrhq/sessionkeeper/pkg/tools/browser"
)

var (
	runReportPath string
	runDwell      time.Duration
	runNoMonitor  bool
)

var runCmd = &cobra.Command{
	Use:   "run URL [URL...]",
	Short: "Visit URLs in order, recovering the session as needed",
	Long: `Open the first URL, then visit every URL in turn as one task step each.
Each step is guarded: if a visit leaves the session expired, the session is
repaired and the visit repeated once. The background monitor runs alongside
unless --no-monitor is given, and SIGUSR1 pauses both between steps.

Example:
  sessionkeeper run https://drive.google.com https://mail.google.com --report out/run.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runReportPath, "report", "", "Write a JSON run report to this path")
	runCmd.Flags().DurationVar(&runDwell, "dwell", 0, "Time to stay on each page after it loads")
	runCmd.Flags().BoolVar(&runNoMonitor, "no-monitor", false, "Rely on guarded steps only")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) (err error) {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	log := newLogger("run")
	defer log.Close()

	out := cmd.OutOrStdout()
	a, err := startAgent(settings, args[0], log)
	if err != nil {
		return err
	}
	defer joinClose(&err, a.close)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	handleSignals(ctx, cancel, a.monitor.Gate(), out)
	a.serveMetrics(ctx, settings.MetricsAddr)

	if !runNoMonitor {
		a.monitor.Start(ctx)
	}

	runner := steps.NewRunner(
		steps.WithGate(a.monitor.Gate()),
		steps.WithGuard(a.monitor.Guard()),
		steps.WithLogger(log),
	)
	report, runErr := runner.Run(ctx, "visit", visitSteps(a.browser, args, runDwell))

	fmt.Fprintf(out, "%s: %d/%d steps, %d recoveries\n",
		report.Status, len(report.Completed()), len(args), report.Recoveries)

	if runReportPath != "" {
		if err := report.WriteJSON(runReportPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", runReportPath)
	}
	return runErr
}

func visitSteps(s *browser.Session, urls []string, dwell time.Duration) []steps.Step {
	list := make([]steps.Step, 0, len(urls))
	for _, u := range urls {
		list = append(list, steps.Step{
			Name: "visit " + u,
			Action: func(ctx context.Context) error {
				if err := s.Navigate(u, browser.NavigateOptions{WaitUntil: "domcontentloaded"}); err != nil {
					return err
				}
				if dwell <= 0 {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(dwell):
					return nil
				}
			},
		})
	}
	return list
}
