package session

// Page is the browser capability the package depends on. Implementations
// return ErrPageUnavailable (possibly wrapped) when there is no live page to
// act on, for example while a navigation is in progress.
type Page interface {
	// Content returns the full page content.
	Content() (string, error)

	// Find returns the first element matching selector, or nil and no error
	// when nothing matches.
	Find(selector string) (Element, error)

	// URL returns the current page URL.
	URL() (string, error)

	// Goto navigates to url.
	Goto(url string) error

	// GoBack navigates one entry back in history.
	GoBack() error
}

// Element is a handle to one element found on a Page.
type Element interface {
	Click() error
	Fill(text string) error
}

// FindFirst tries selectors in order and returns the first element present
// together with the selector that matched. It returns a nil element when
// none match. A lookup error stops the search.
func FindFirst(page Page, selectors []string) (Element, string, error) {
	for _, selector := range selectors {
		el, err := page.Find(selector)
		if err != nil {
			return nil, selector, err
		}
		if el != nil {
			return el, selector, nil
		}
	}
	return nil, "", nil
}
