// Package session keeps a browser login alive while an agent works.
//
// The package watches a live page for signs that the authentication session
// has expired and tries to repair it without disturbing whatever the agent is
// doing in the same browser.
//
// # Architecture
//
// The package is built around five pieces, leaves first:
//
//  1. Page: read/act capability over one browser page (content, find, click, fill, navigate)
//  2. Detector: classifies the page as Healthy or Expired from Rules
//  3. Remediator: clicks the retry button, then falls back to a credential login
//  4. Monitor: background poll loop that runs the Detector and Remediator
//  5. Guard: wraps one caller action and retries it once after a repaired expiry
//
// The Monitor and any Guard share the page without locking. A poll may act on
// stale content or race with the caller's own click; the alternative, holding
// the page for a whole poll, would stall the agent.
//
// # Pausing
//
// Gate is a cooperative checkpoint owned by the Monitor. The Monitor waits on
// it at the start of every tick, and an executor passes Gate.Wait as its
// before-step hook so that one Pause call halts both.
//
// # Example Usage
//
//	monitor, err := session.NewMonitor(page, session.MonitorConfig{
//	    PollInterval:     2 * time.Second,
//	    MaxLoginAttempts: 3,
//	}, session.WithCredentials(&session.Credentials{Email: email, Password: password}))
//
//	monitor.Start(ctx)
//	defer monitor.Stop()
//
//	err = monitor.Guard().Run(ctx, func(ctx context.Context) error {
//	    return page.Goto("https://drive.google.com")
//	})
//	if errors.Is(err, session.ErrRemediationUnresolved) {
//	    // abort the larger task
//	}
package session
