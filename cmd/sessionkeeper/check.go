package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entrhq/sessionkeeper/pkg/config"
	"github.com/entrhq/sessionkeeper/pkg/session"
	"github.com/entrhq/sessionkeeper/pkg/tools/browser"
)

// errExpired makes check exit non-zero without printing usage.
var errExpired = errors.New("session expired")

var checkLive bool

var checkCmd = &cobra.Command{
	Use:   "check FILE|URL",
	Short: "Inspect a page once and report whether its session expired",
	Long: `Run the expiry detector once and print the verdict.

FILE is a saved HTML page. A URL is fetched over HTTP without running
scripts, or opened in Chromium when --live is given. The command exits
with status 1 when the session looks expired.

Examples:
  sessionkeeper check saved/drive.html
  sessionkeeper check https://drive.google.com --live`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkLive, "live", false, "Open the URL in a real browser")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	target := args[0]
	if checkLive && isURL(target) {
		verdict, err := checkLivePage(settings, target)
		if err != nil {
			return err
		}
		return report(cmd.OutOrStdout(), target, verdict)
	}

	verdict, err := checkSnapshot(cmd.Context(), target, settings.Rules)
	if err != nil {
		return err
	}
	return report(cmd.OutOrStdout(), target, verdict)
}

// checkLivePage opens target in Chromium and inspects it once.
func checkLivePage(settings *config.Settings, target string) (v session.Verdict, err error) {
	log := newLogger("check")
	defer log.Close()

	a, err := startAgent(settings, target, log)
	if err != nil {
		return session.Verdict{}, err
	}
	defer joinClose(&err, a.close)

	return session.NewDetector(settings.Rules).Inspect(a.browser.Probe()), nil
}

// checkSnapshot inspects a saved file or a fetched URL.
func checkSnapshot(ctx context.Context, target string, rules session.Rules) (session.Verdict, error) {
	var (
		page *browser.SnapshotPage
		err  error
	)
	if isURL(target) {
		page, err = browser.FetchSnapshot(ctx, nil, target)
	} else {
		page, err = browser.LoadSnapshot(target)
	}
	if err != nil {
		return session.Verdict{}, err
	}
	return session.NewDetector(rules).Inspect(page), nil
}

func report(out io.Writer, target string, v session.Verdict) error {
	switch {
	case v.State == session.Expired:
		fmt.Fprintf(out, "%s: expired (matched %q)\n", target, v.Match)
		return errExpired
	case v.Inconclusive():
		fmt.Fprintf(out, "%s: healthy (inconclusive: %v)\n", target, v.ProbeErr)
	default:
		fmt.Fprintf(out, "%s: healthy\n", target)
	}
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
