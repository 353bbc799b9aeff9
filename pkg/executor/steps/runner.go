// Package steps runs an ordered list of browser actions the way an agent
// task executor would, cooperating with a session monitor.
//
// Before each step the runner waits on the pause gate, so a paused monitor
// holds the task between steps rather than inside one. When a Guard is
// configured every step runs through it: a step that leaves the session
// expired triggers one remediation and one re-execution of that step.
package steps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/sessionkeeper/pkg/logging"
	"github.com/entrhq/sessionkeeper/pkg/session"
)

const (
	statusSuccess     = "success"
	statusFailed      = "failed"
	statusCancelled   = "cancelled"
	statusSessionLost = "session_unresolved"
)

// Step is one named unit of work.
type Step struct {
	Name   string
	Action func(ctx context.Context) error
}

// BeforeStepFunc runs before every step. A non-nil error stops the run.
type BeforeStepFunc func(ctx context.Context, step Step) error

// Runner executes steps in order.
type Runner struct {
	gate       *session.Gate
	guard      *session.Guard
	beforeStep BeforeStepFunc
	log        *logging.Logger
	now        func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithGate makes the runner wait on g before each step.
func WithGate(g *session.Gate) Option {
	return func(r *Runner) {
		r.gate = g
	}
}

// WithGuard runs every step through g.
func WithGuard(g *session.Guard) Option {
	return func(r *Runner) {
		r.guard = g
	}
}

// WithBeforeStep adds a hook that runs after the gate and before the step.
func WithBeforeStep(fn BeforeStepFunc) Option {
	return func(r *Runner) {
		r.beforeStep = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRunner creates a runner. With no options it simply runs the steps.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		log: logging.NewNop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes steps until one fails, the session cannot be restored, or ctx
// ends. The report is always returned; the error is the reason the run
// stopped early.
func (r *Runner) Run(ctx context.Context, task string, steps []Step) (*Report, error) {
	report := &Report{
		Task:      task,
		Status:    statusSuccess,
		StartTime: r.now(),
	}
	defer func() {
		report.EndTime = r.now()
		report.Duration = report.EndTime.Sub(report.StartTime)
	}()

	r.log.Infof("Starting task %q with %d steps", task, len(steps))

	for i, step := range steps {
		if err := r.before(ctx, step); err != nil {
			return report.stop(statusFor(err), step.Name, err), err
		}

		started := r.now()
		calls, err := r.execute(ctx, step)
		result := StepResult{
			Name:     step.Name,
			Index:    i,
			Duration: r.now().Sub(started),
			Retried:  calls > 1,
		}
		if err != nil {
			result.Error = err.Error()
			report.Steps = append(report.Steps, result)
			r.log.Warnf("Step %q failed: %v", step.Name, err)
			return report.stop(statusFor(err), step.Name, err), fmt.Errorf("step %q: %w", step.Name, err)
		}

		if result.Retried {
			report.Recoveries++
			r.log.Infof("Step %q re-ran after session recovery", step.Name)
		}
		report.Steps = append(report.Steps, result)
	}

	r.log.Infof("Task %q completed", task)
	return report, nil
}

func (r *Runner) before(ctx context.Context, step Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.gate != nil {
		if r.gate.Paused() {
			r.log.Infof("Paused before step %q", step.Name)
		}
		if err := r.gate.Wait(ctx); err != nil {
			return err
		}
	}
	if r.beforeStep != nil {
		return r.beforeStep(ctx, step)
	}
	return nil
}

// execute runs the step, through the guard when one is set, and reports
// how many times the action was invoked.
func (r *Runner) execute(ctx context.Context, step Step) (int, error) {
	if step.Action == nil {
		return 0, fmt.Errorf("step %q has no action", step.Name)
	}

	calls := 0
	action := func(ctx context.Context) error {
		calls++
		return step.Action(ctx)
	}

	var err error
	if r.guard == nil {
		err = action(ctx)
	} else {
		err = r.guard.Run(ctx, action)
	}
	return calls, err
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, session.ErrRemediationUnresolved):
		return statusSessionLost
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return statusCancelled
	default:
		return statusFailed
	}
}
