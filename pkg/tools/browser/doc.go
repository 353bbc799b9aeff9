// Package browser connects the session package to real pages.
//
// Two session.Page implementations live here:
//
//  1. LivePage: a Playwright browser session, resolved to the first open
//     page of the browser context on every call
//  2. SnapshotPage: a read-only page over saved or fetched HTML, queried
//     with goquery (CSS plus :has-text) and htmlquery (XPath)
//
// # Session Lifecycle
//
// SessionManager owns the Playwright driver. Sessions are started by name,
// optionally loading cookies from a storage state file, and closed through
// the manager, which writes the storage state back before releasing the
// browser.
//
// # Example Usage
//
//	manager := browser.NewSessionManager()
//	if err := manager.Initialize(); err != nil {
//	    return err
//	}
//	defer manager.Shutdown()
//
//	s, err := manager.StartSession("drive", browser.SessionOptions{
//	    StorageStatePath: "state.json",
//	})
//	if err != nil {
//	    return err
//	}
//	_ = s.Navigate("https://drive.google.com", browser.NavigateOptions{
//	    WaitUntil: "domcontentloaded",
//	})
//
//	monitor, err := session.NewMonitor(s.Probe(), session.DefaultMonitorConfig())
package browser
