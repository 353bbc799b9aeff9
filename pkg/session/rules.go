package session

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Rules holds the ordered pattern and selector lists used to detect and
// repair an expired session. Every list is tried first-match-wins in the
// order given. Selectors use Playwright syntax, including :has-text().
type Rules struct {
	// ExpiryPatterns are case-sensitive substrings of the page content.
	ExpiryPatterns []string `yaml:"expiry_patterns" json:"expiry_patterns"`

	// ProblemSelectors mark a broken session by their mere presence
	// (retry buttons, error banners).
	ProblemSelectors []string `yaml:"problem_selectors" json:"problem_selectors"`

	RetrySelectors     []string `yaml:"retry_selectors" json:"retry_selectors"`
	LoginLinkSelectors []string `yaml:"login_link_selectors" json:"login_link_selectors"`
	EmailSelectors     []string `yaml:"email_selectors" json:"email_selectors"`
	PasswordSelectors  []string `yaml:"password_selectors" json:"password_selectors"`
	NextSelectors      []string `yaml:"next_selectors" json:"next_selectors"`

	// LoginEntries are direct login URLs used when the page offers no login
	// link. The first entry whose Match glob accepts the current URL wins.
	LoginEntries []LoginEntry `yaml:"login_entries" json:"login_entries"`
}

// LoginEntry maps a URL glob to the login page for that site.
type LoginEntry struct {
	Match string `yaml:"match" json:"match"`
	URL   string `yaml:"url" json:"url"`

	compiled glob.Glob
}

// DefaultRules returns the built-in Portuguese and English rule set.
func DefaultRules() Rules {
	retry := []string{
		"button:has-text('Tentar novamente')",
		"button:has-text('Try again')",
		"button:has-text('Retry')",
		"button:has-text('Sign in')",
		"button:has-text('Faça login')",
	}

	return Rules{
		ExpiryPatterns: []string{
			"Sua sessão expirou",
			"Your session has expired",
			"Você não está conectado",
			"You are not connected",
			"Faça login novamente",
			"Sign in again",
			"Tentar novamente",
			"Try again",
		},
		ProblemSelectors: append([]string(nil), retry...),
		RetrySelectors:   retry,
		LoginLinkSelectors: []string{
			"a:has-text('Faça login')",
			"a:has-text('Sign in')",
		},
		EmailSelectors: []string{
			"input[type='email']",
			"input[name='email']",
			"input[name='identifier']",
		},
		PasswordSelectors: []string{
			"input[type='password']",
			"input[name='password']",
			"input[name='Passwd']",
		},
		NextSelectors: []string{
			"button:has-text('Próxima')",
			"button:has-text('Next')",
			"button:has-text('Continue')",
			"button:has-text('Continuar')",
			"button[type='submit']",
		},
		LoginEntries: []LoginEntry{
			{Match: "*google.com*", URL: "https://accounts.google.com/signin"},
		},
	}
}

// Merge returns a copy of r where every non-empty list in override replaces
// the corresponding list.
func (r Rules) Merge(override Rules) Rules {
	pick := func(base, over []string) []string {
		if len(over) > 0 {
			return append([]string(nil), over...)
		}
		return append([]string(nil), base...)
	}

	merged := Rules{
		ExpiryPatterns:     pick(r.ExpiryPatterns, override.ExpiryPatterns),
		ProblemSelectors:   pick(r.ProblemSelectors, override.ProblemSelectors),
		RetrySelectors:     pick(r.RetrySelectors, override.RetrySelectors),
		LoginLinkSelectors: pick(r.LoginLinkSelectors, override.LoginLinkSelectors),
		EmailSelectors:     pick(r.EmailSelectors, override.EmailSelectors),
		PasswordSelectors:  pick(r.PasswordSelectors, override.PasswordSelectors),
		NextSelectors:      pick(r.NextSelectors, override.NextSelectors),
		LoginEntries:       append([]LoginEntry(nil), r.LoginEntries...),
	}
	if len(override.LoginEntries) > 0 {
		merged.LoginEntries = append([]LoginEntry(nil), override.LoginEntries...)
	}
	return merged
}

// Compile validates the rule set and compiles the login entry globs.
func (r *Rules) Compile() error {
	if len(r.ExpiryPatterns) == 0 && len(r.ProblemSelectors) == 0 {
		return fmt.Errorf("rules need at least one expiry pattern or problem selector")
	}
	for _, p := range r.ExpiryPatterns {
		if p == "" {
			return fmt.Errorf("empty expiry pattern")
		}
	}

	for i := range r.LoginEntries {
		entry := &r.LoginEntries[i]
		if entry.URL == "" {
			return fmt.Errorf("login entry %q has no url", entry.Match)
		}
		g, err := glob.Compile(entry.Match)
		if err != nil {
			return fmt.Errorf("invalid login entry match %q: %w", entry.Match, err)
		}
		entry.compiled = g
	}
	return nil
}

// LoginURLFor returns the login URL for the first entry matching current.
func (r *Rules) LoginURLFor(current string) (string, bool) {
	for _, entry := range r.LoginEntries {
		if entry.compiled == nil {
			continue
		}
		if entry.compiled.Match(current) {
			return entry.URL, true
		}
	}
	return "", false
}
