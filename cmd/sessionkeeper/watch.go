package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entrhq/sessionkeeper/pkg/session"
)

var watchMetricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch URL",
	Short: "Open a browser on URL and keep its session alive",
	Long: `Launch Chromium, open URL and poll the page for session expiry until
interrupted. Expired sessions are repaired with the retry button or a fresh
login.

Send SIGUSR1 to pause or resume monitoring. While paused no checks run.

Example:
  sessionkeeper watch https://drive.google.com --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides SESSIONKEEPER_METRICS_ADDR)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if watchMetricsAddr != "" {
		settings.MetricsAddr = watchMetricsAddr
	}

	log := newLogger("watch")
	defer log.Close()

	out := cmd.OutOrStdout()
	a, err := startAgent(settings, args[0], log, session.WithTickHook(printTick(out)))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	handleSignals(ctx, cancel, a.monitor.Gate(), out)
	a.serveMetrics(ctx, settings.MetricsAddr)

	a.monitor.Start(ctx)
	fmt.Fprintf(out, "Watching %s every %v (Ctrl+C to stop)\n", args[0], settings.Monitor.PollInterval)

	<-ctx.Done()
	return a.close()
}
