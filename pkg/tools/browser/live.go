package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/sessionkeeper/pkg/session"
)

// LivePage adapts a Playwright browser session to session.Page. Every call
// resolves the active page again, so pages the agent opens or closes
// between polls are picked up.
type LivePage struct {
	session *Session
}

var _ session.Page = (*LivePage)(nil)

// activePage returns the first open page of the browser context, falling
// back to the page the session was started with.
func (s *Session) activePage() (playwright.Page, error) {
	if s.Context != nil {
		for _, p := range s.Context.Pages() {
			if !p.IsClosed() {
				return p, nil
			}
		}
	}
	if s.Page != nil && !s.Page.IsClosed() {
		return s.Page, nil
	}
	return nil, session.ErrPageUnavailable
}

func (l *LivePage) Content() (string, error) {
	page, err := l.session.activePage()
	if err != nil {
		return "", err
	}
	content, err := page.Content()
	if err != nil {
		return "", unavailable("content", err)
	}
	return content, nil
}

func (l *LivePage) Find(selector string) (session.Element, error) {
	page, err := l.session.activePage()
	if err != nil {
		return nil, err
	}
	handle, err := page.QuerySelector(selector)
	if err != nil {
		return nil, unavailable("query "+selector, err)
	}
	if handle == nil {
		return nil, nil
	}
	return &liveElement{handle: handle, selector: selector}, nil
}

func (l *LivePage) URL() (string, error) {
	page, err := l.session.activePage()
	if err != nil {
		return "", err
	}
	return page.URL(), nil
}

func (l *LivePage) Goto(url string) error {
	page, err := l.session.activePage()
	if err != nil {
		return err
	}
	if _, err := page.Goto(url); err != nil {
		return unavailable("goto "+url, err)
	}
	return nil
}

func (l *LivePage) GoBack() error {
	page, err := l.session.activePage()
	if err != nil {
		return err
	}
	if _, err := page.GoBack(); err != nil {
		return unavailable("go back", err)
	}
	return nil
}

type liveElement struct {
	handle   playwright.ElementHandle
	selector string
}

func (e *liveElement) Click() error {
	if err := e.handle.Click(); err != nil {
		return fmt.Errorf("click %s: %w", e.selector, err)
	}
	return nil
}

func (e *liveElement) Fill(text string) error {
	if err := e.handle.Fill(text); err != nil {
		return fmt.Errorf("fill %s: %w", e.selector, err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", session.ErrPageUnavailable, op, err)
}
