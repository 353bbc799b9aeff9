package session

import (
	"context"
	"errors"

	"github.com/entrhq/sessionkeeper/pkg/logging"
)

// Guard runs a caller action and, if the action left the session expired,
// repairs it once and re-runs the action once.
type Guard struct {
	page        Page
	detector    *Detector
	remediator  *Remediator
	creds       *Credentials
	maxAttempts int
	log         *logging.Logger
	metrics     *Metrics
}

// NewGuard creates a standalone guard. Monitor.Guard is the usual way to get
// one that shares a monitor's configuration.
func NewGuard(page Page, remediator *Remediator, creds *Credentials, maxAttempts int, log *logging.Logger) *Guard {
	if log == nil {
		log = logging.NewNop()
	}
	return &Guard{
		page:        page,
		detector:    remediator.Detector(),
		remediator:  remediator,
		creds:       creds,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Run is Do for actions without a result.
func (g *Guard) Run(ctx context.Context, action func(context.Context) error) error {
	_, err := Do(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, action(ctx)
	})
	return err
}

// Do executes action, then inspects the page once. On expiry it runs one
// recovery. If that resolves, action runs exactly once more and its result
// is returned. If not, the first result is returned and the error carries an
// *UnresolvedError, so errors.Is(err, ErrRemediationUnresolved) holds.
// The page is inspected even when action fails, since expiry may be the
// cause of the failure.
func Do[T any](ctx context.Context, g *Guard, action func(context.Context) (T, error)) (T, error) {
	result, err := action(ctx)

	verdict := g.detector.Inspect(g.page)
	g.metrics.verdict("guard", verdict)
	if verdict.State != Expired {
		return result, err
	}

	g.log.Infof("Session problem detected after action (%q), trying to resolve", verdict.Match)
	outcome := g.remediator.AttemptRecovery(ctx, g.page, g.creds, g.maxAttempts)
	g.metrics.remediation(outcome)

	if !outcome.Resolved {
		g.log.Warnf("Could not resolve session problem: %v", outcome.Err)
		return result, errors.Join(err, &UnresolvedError{Outcome: outcome})
	}

	g.log.Infof("Session problem resolved, repeating the action")
	g.metrics.guardedRetry()
	return action(ctx)
}
