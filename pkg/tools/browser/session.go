package browser

import (
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	playwrightOpts := playwright.PageGotoOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := s.Page.Goto(url, playwrightOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// CurrentURL returns the URL of the active page, or "" when no page is open.
func (s *Session) CurrentURL() string {
	page, err := s.activePage()
	if err != nil {
		return ""
	}
	return page.URL()
}

// Probe returns a session.Page view of this browser session.
func (s *Session) Probe() *LivePage {
	return &LivePage{session: s}
}

// SaveStorageState writes cookies and local storage to StorageStatePath.
func (s *Session) SaveStorageState() error {
	if s.StorageStatePath == "" || s.Context == nil {
		return nil
	}
	if _, err := s.Context.StorageState(s.StorageStatePath); err != nil {
		return fmt.Errorf("failed to save storage state: %w", err)
	}
	return nil
}

// close saves the storage state and releases every Playwright resource,
// continuing past individual failures.
func (s *Session) close() error {
	var errs []error
	if err := s.SaveStorageState(); err != nil {
		errs = append(errs, err)
	}
	if s.Page != nil {
		if err := s.Page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Context != nil {
		if err := s.Context.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Browser != nil {
		if err := s.Browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
