package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/sessionkeeper/pkg/logging"
)

// Credentials are the login used when the retry button is not enough.
type Credentials struct {
	Email    string
	Password string
}

// Complete reports whether both fields are set. A nil receiver is incomplete.
func (c *Credentials) Complete() bool {
	return c != nil && c.Email != "" && c.Password != ""
}

// Step is one stage of the recovery pipeline.
type Step int

const (
	StepClickRetryButton Step = iota
	StepNavigateToLogin
	StepFillEmail
	StepClickNext
	StepFillPassword
	StepSubmit
	StepReturnToOriginalPage
)

func (s Step) String() string {
	switch s {
	case StepClickRetryButton:
		return "click retry button"
	case StepNavigateToLogin:
		return "navigate to login"
	case StepFillEmail:
		return "fill email"
	case StepClickNext:
		return "click next"
	case StepFillPassword:
		return "fill password"
	case StepSubmit:
		return "click next (submit)"
	case StepReturnToOriginalPage:
		return "return to original page"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Timings are the fixed settle delays after UI actions.
type Timings struct {
	// RetrySettle follows a retry-button click.
	RetrySettle time.Duration `yaml:"retry_settle" json:"retry_settle"`
	// StepSettle follows login navigation and the email step.
	StepSettle time.Duration `yaml:"step_settle" json:"step_settle"`
	// SubmitSettle follows the password submit (form post plus redirect).
	SubmitSettle time.Duration `yaml:"submit_settle" json:"submit_settle"`
}

// DefaultTimings returns the built-in settle delays.
func DefaultTimings() Timings {
	return Timings{
		RetrySettle:  3 * time.Second,
		StepSettle:   2 * time.Second,
		SubmitSettle: 5 * time.Second,
	}
}

// Outcome is the result of one AttemptRecovery call.
type Outcome struct {
	Resolved bool

	// ViaRetry is true when the retry button alone fixed the session.
	ViaRetry bool

	// Attempts is the number of login iterations performed.
	Attempts int

	// Steps lists every pipeline step that ran, in order.
	Steps []Step

	// Err explains an unresolved outcome. It always wraps
	// ErrRemediationUnresolved and, when a login iteration failed on the
	// last attempt, the *LoginStepError.
	Err error
}

// Label is a short outcome name for logs and metrics.
func (o Outcome) Label() string {
	switch {
	case o.Resolved && o.ViaRetry:
		return "resolved_retry"
	case o.Resolved:
		return "resolved_login"
	case errors.Is(o.Err, ErrNoCredentials):
		return "no_credentials"
	default:
		return "unresolved"
	}
}

// Remediator runs the recovery pipeline against a live page. Every step
// mutates the page; partial form input is never rolled back.
type Remediator struct {
	rules    Rules
	detector *Detector
	timings  Timings
	clock    Clock
	log      *logging.Logger
}

// NewRemediator creates a remediator. The rules are compiled here.
func NewRemediator(rules Rules, timings Timings, clock Clock, log *logging.Logger) (*Remediator, error) {
	if err := rules.Compile(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	if clock == nil {
		clock = RealClock()
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Remediator{
		rules:    rules,
		detector: NewDetector(rules),
		timings:  timings,
		clock:    clock,
		log:      log,
	}, nil
}

// Detector returns the detector the remediator re-checks with.
func (r *Remediator) Detector() *Detector {
	return r.detector
}

// AttemptRecovery tries the retry button, then up to maxAttempts credential
// logins. The page is re-inspected after every path before success is
// declared. Cancellation is honoured only between login iterations so the
// browser is never abandoned mid-form.
func (r *Remediator) AttemptRecovery(ctx context.Context, page Page, creds *Credentials, maxAttempts int) Outcome {
	var out Outcome

	if r.quickRetry(page, &out) {
		out.Resolved = true
		out.ViaRetry = true
		return out
	}

	if !creds.Complete() {
		r.log.Warnf("Credentials not provided, cannot log in")
		out.Err = ErrNoCredentials
		return out
	}

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			out.Err = fmt.Errorf("%w: %w", ErrRemediationUnresolved, err)
			return out
		}

		r.log.Infof("Login attempt %d/%d", attempt, maxAttempts)
		out.Attempts = attempt

		err := r.login(page, creds, attempt, &out)
		if err != nil {
			lastErr = err
			r.log.Warnf("Login attempt %d failed: %v", attempt, err)
			continue
		}
		lastErr = nil

		verdict := r.detector.Inspect(page)
		if verdict.State == Healthy {
			if verdict.Inconclusive() {
				r.log.Debugf("Post-login check was inconclusive: %v", verdict.ProbeErr)
			}
			out.Resolved = true
			return out
		}
		r.log.Debugf("Still expired after attempt %d (matched %q)", attempt, verdict.Match)
	}

	if lastErr != nil {
		out.Err = fmt.Errorf("%w after %d attempts: %w", ErrRemediationUnresolved, out.Attempts, lastErr)
	} else {
		out.Err = fmt.Errorf("%w after %d attempts", ErrRemediationUnresolved, out.Attempts)
	}
	return out
}

// quickRetry clicks the first present retry button and re-checks.
func (r *Remediator) quickRetry(page Page, out *Outcome) bool {
	button, selector, err := FindFirst(page, r.rules.RetrySelectors)
	if err != nil {
		r.log.Debugf("Retry button lookup failed: %v", err)
		return false
	}
	if button == nil {
		return false
	}

	r.log.Infof("Clicking retry button: %s", selector)
	out.Steps = append(out.Steps, StepClickRetryButton)
	if err := button.Click(); err != nil {
		r.log.Warnf("Retry button click failed: %v", err)
		return false
	}
	r.clock.Sleep(r.timings.RetrySettle)

	return r.detector.Inspect(page).State == Healthy
}

// login runs one iteration of the credential pipeline.
func (r *Remediator) login(page Page, creds *Credentials, attempt int, out *Outcome) error {
	fail := func(step Step, err error) error {
		return &LoginStepError{Attempt: attempt, Step: step, Err: err}
	}
	run := func(step Step) {
		out.Steps = append(out.Steps, step)
	}

	original, err := page.URL()
	if err != nil {
		return fail(StepNavigateToLogin, err)
	}

	run(StepNavigateToLogin)
	link, _, err := FindFirst(page, r.rules.LoginLinkSelectors)
	if err != nil {
		return fail(StepNavigateToLogin, err)
	}
	if link != nil {
		if err := link.Click(); err != nil {
			return fail(StepNavigateToLogin, err)
		}
	} else if loginURL, ok := r.rules.LoginURLFor(original); ok {
		if err := page.Goto(loginURL); err != nil {
			return fail(StepNavigateToLogin, err)
		}
	}
	r.clock.Sleep(r.timings.StepSettle)

	run(StepFillEmail)
	if err := r.fillFirst(page, r.rules.EmailSelectors, creds.Email); err != nil {
		return fail(StepFillEmail, err)
	}

	run(StepClickNext)
	if err := r.clickFirst(page, r.rules.NextSelectors); err != nil {
		return fail(StepClickNext, err)
	}
	r.clock.Sleep(r.timings.StepSettle)

	run(StepFillPassword)
	if err := r.fillFirst(page, r.rules.PasswordSelectors, creds.Password); err != nil {
		return fail(StepFillPassword, err)
	}

	run(StepSubmit)
	if err := r.clickFirst(page, r.rules.NextSelectors); err != nil {
		return fail(StepSubmit, err)
	}
	r.clock.Sleep(r.timings.SubmitSettle)

	current, err := page.URL()
	if err != nil {
		return fail(StepReturnToOriginalPage, err)
	}
	if original != "" && current != original {
		run(StepReturnToOriginalPage)
		if err := page.Goto(original); err != nil {
			return fail(StepReturnToOriginalPage, err)
		}
		r.clock.Sleep(r.timings.StepSettle)
	}

	return nil
}

// fillFirst fills the first matching input. A missing input is not an
// error: the login form may already hold the value.
func (r *Remediator) fillFirst(page Page, selectors []string, value string) error {
	el, selector, err := FindFirst(page, selectors)
	if err != nil {
		return err
	}
	if el == nil {
		r.log.Debugf("No input matched %v", selectors)
		return nil
	}
	r.log.Debugf("Filling %s", selector)
	return el.Fill(value)
}

func (r *Remediator) clickFirst(page Page, selectors []string) error {
	el, selector, err := FindFirst(page, selectors)
	if err != nil {
		return err
	}
	if el == nil {
		r.log.Debugf("No button matched %v", selectors)
		return nil
	}
	r.log.Debugf("Clicking %s", selector)
	return el.Click()
}
