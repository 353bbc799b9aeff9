package session

import (
	"fmt"
	"strings"
)

// State is the derived health of the session on the current page.
type State int

const (
	// Healthy means no expiry signal was found (or the probe failed).
	Healthy State = iota
	// Expired means an expiry pattern or problem selector matched.
	Expired
)

func (s State) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Verdict is the result of one inspection.
type Verdict struct {
	State State

	// Match is the pattern or selector that triggered Expired.
	Match string

	// ProbeErr is set when the page could not be read. State is Healthy in
	// that case; errors.Is(ProbeErr, ErrDetectionInconclusive) holds.
	ProbeErr error
}

// Inconclusive reports whether the verdict was forced by a probe failure.
func (v Verdict) Inconclusive() bool {
	return v.ProbeErr != nil
}

// Detector classifies a page as Healthy or Expired. It keeps no state between
// calls; every inspection reads the page afresh.
type Detector struct {
	rules Rules
}

// NewDetector creates a detector over rules.
func NewDetector(rules Rules) *Detector {
	return &Detector{rules: rules}
}

// Inspect runs the content check and then the selector check. Any probe
// failure yields Healthy with ProbeErr set: a page that cannot be read cannot
// be repaired either.
func (d *Detector) Inspect(page Page) Verdict {
	content, err := page.Content()
	if err != nil {
		return inconclusive("content", err)
	}

	for _, pattern := range d.rules.ExpiryPatterns {
		if strings.Contains(content, pattern) {
			return Verdict{State: Expired, Match: pattern}
		}
	}

	for _, selector := range d.rules.ProblemSelectors {
		el, err := page.Find(selector)
		if err != nil {
			return inconclusive(selector, err)
		}
		if el != nil {
			return Verdict{State: Expired, Match: selector}
		}
	}

	return Verdict{State: Healthy}
}

// IsExpired is Inspect reduced to a bool.
func (d *Detector) IsExpired(page Page) bool {
	return d.Inspect(page).State == Expired
}

func inconclusive(what string, err error) Verdict {
	return Verdict{
		State:    Healthy,
		ProbeErr: fmt.Errorf("%w: %s: %w", ErrDetectionInconclusive, what, err),
	}
}
