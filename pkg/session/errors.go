package session

import (
	"errors"
	"fmt"
)

var (
	// ErrPageUnavailable means there is no live page to probe or act on.
	ErrPageUnavailable = errors.New("session: page unavailable")

	// ErrDetectionInconclusive marks a verdict reached only because the probe
	// failed. Such verdicts are reported Healthy.
	ErrDetectionInconclusive = errors.New("session: detection inconclusive")

	// ErrRemediationUnresolved means every recovery step ran and the page
	// still looks expired.
	ErrRemediationUnresolved = errors.New("session: remediation unresolved")

	// ErrNoCredentials means the login path was needed but no complete
	// credentials were configured.
	ErrNoCredentials = fmt.Errorf("%w: no credentials", ErrRemediationUnresolved)
)

// LoginStepError records a failure inside one login iteration.
type LoginStepError struct {
	Attempt int
	Step    Step
	Err     error
}

func (e *LoginStepError) Error() string {
	return fmt.Sprintf("login attempt %d: %s: %v", e.Attempt, e.Step, e.Err)
}

func (e *LoginStepError) Unwrap() error {
	return e.Err
}

// UnresolvedError is attached to a guarded action's error when the session
// expired during the action and could not be repaired.
type UnresolvedError struct {
	Outcome Outcome
}

func (e *UnresolvedError) Error() string {
	if e.Outcome.Err != nil {
		return fmt.Sprintf("session expired and was not recovered: %v", e.Outcome.Err)
	}
	return "session expired and was not recovered"
}

func (e *UnresolvedError) Unwrap() error {
	if e.Outcome.Err != nil {
		return e.Outcome.Err
	}
	return ErrRemediationUnresolved
}
