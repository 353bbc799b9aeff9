package session

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/sessionkeeper/pkg/logging"
)

func newTestGuard(t *testing.T, page Page, creds *Credentials, opts ...Option) *Guard {
	t.Helper()
	base := []Option{
		WithClock(newFakeClock()),
		WithTimings(Timings{}),
		WithLogger(logging.NewNop()),
		WithCredentials(creds),
	}
	m, err := NewMonitor(page, MonitorConfig{PollInterval: testInterval, MaxLoginAttempts: 2}, append(base, opts...)...)
	require.NoError(t, err)
	return m.Guard()
}

// retryHeals adds a retry button that restores a healthy page and
// disappears when clicked.
func retryHeals(page *fakePage) *fakeElement {
	retry := page.add(selTryAgain)
	retry.onClick = func() {
		page.setContent("Welcome back")
		page.remove(selTryAgain)
	}
	return retry
}

func TestGuard_HealthyRunsOnce(t *testing.T) {
	page := newFakePage("Welcome back")
	g := newTestGuard(t, page, nil)

	calls := 0
	got, err := Do(context.Background(), g, func(context.Context) (string, error) {
		calls++
		return "listed 5 files", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "listed 5 files", got)
	assert.Equal(t, 1, calls)
}

func TestGuard_RecoversAndRetriesOnce(t *testing.T) {
	page := newFakePage("Welcome back")
	g := newTestGuard(t, page, nil)

	calls := 0
	got, err := Do(context.Background(), g, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			page.setContent("Your session has expired")
			retryHeals(page)
		}
		return calls, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, got, "the result of the re-execution is returned")
}

func TestGuard_AtMostOneReexecution(t *testing.T) {
	page := newFakePage("Welcome back")
	retry := retryHeals(page)
	g := newTestGuard(t, page, nil)

	// Every run of the action expires the session again.
	calls := 0
	err := g.Run(context.Background(), func(context.Context) error {
		calls++
		page.setContent("Your session has expired")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, retry.clickCount(), "only one remediation per call")
}

func TestGuard_Unresolved(t *testing.T) {
	page := newFakePage("Welcome back")
	g := newTestGuard(t, page, nil)

	calls := 0
	got, err := Do(context.Background(), g, func(context.Context) (string, error) {
		calls++
		page.setContent("Sua sessão expirou")
		return "partial", nil
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, "partial", got)
	require.ErrorIs(t, err, ErrRemediationUnresolved)
	assert.ErrorIs(t, err, ErrNoCredentials)

	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.False(t, unresolved.Outcome.Resolved)
}

func TestGuard_UnresolvedKeepsActionError(t *testing.T) {
	page := newFakePage("Welcome back")
	g := newTestGuard(t, page, nil)
	actionErr := errors.New("upload failed")

	err := g.Run(context.Background(), func(context.Context) error {
		page.setContent("Sua sessão expirou")
		return actionErr
	})

	assert.ErrorIs(t, err, actionErr)
	assert.ErrorIs(t, err, ErrRemediationUnresolved)
}

func TestGuard_ActionErrorOnHealthyPage(t *testing.T) {
	page := newFakePage("Welcome back")
	g := newTestGuard(t, page, nil)
	actionErr := errors.New("element not found")

	calls := 0
	err := g.Run(context.Background(), func(context.Context) error {
		calls++
		return actionErr
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, actionErr, err)
}

func TestGuard_ActionErrorCausedByExpiry(t *testing.T) {
	page := newFakePage("Welcome back")
	g := newTestGuard(t, page, nil)

	calls := 0
	err := g.Run(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			page.setContent("Your session has expired")
			retryHeals(page)
			return errors.New("request rejected")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestNewGuard_Standalone(t *testing.T) {
	r := newTestRemediator(t)
	page := newFakePage("Welcome back")
	g := NewGuard(page, r, testCreds, 1, nil)

	err := g.Run(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestGuard_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	page := newFakePage("Welcome back")
	g := newTestGuard(t, page, nil, WithMetrics(metrics))

	calls := 0
	require.NoError(t, g.Run(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			page.setContent("Your session has expired")
			retryHeals(page)
		}
		return nil
	}))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ExpiriesDetected.WithLabelValues("guard")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Remediations.WithLabelValues("resolved_retry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GuardedRetries))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.LoginAttempts))
}
