package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entrhq/sessionkeeper/pkg/config"
	"github.com/entrhq/sessionkeeper/pkg/logging"
	"github.com/entrhq/sessionkeeper/pkg/session"
	"github.com/entrhq/sessionkeeper/pkg/tools/browser"
)

const agentSessionName = "agent"

// agent is a browser session with a monitor attached to its page.
type agent struct {
	manager  *browser.SessionManager
	browser  *browser.Session
	monitor  *session.Monitor
	registry *prometheus.Registry
	log      *logging.Logger
}

// startAgent launches the browser, opens startURL and builds a stopped
// monitor over the page.
func startAgent(settings *config.Settings, startURL string, log *logging.Logger, opts ...session.Option) (*agent, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := session.NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	manager := browser.NewSessionManager()
	manager.SetMaxSessions(1)
	if err := manager.Initialize(); err != nil {
		return nil, err
	}

	s, err := manager.StartSession(agentSessionName, browser.SessionOptions{
		Headless:         settings.Headless,
		StorageStatePath: settings.StorageState,
	})
	if err != nil {
		return nil, errors.Join(err, manager.Shutdown())
	}

	if err := s.Navigate(startURL, browser.NavigateOptions{WaitUntil: "domcontentloaded"}); err != nil {
		return nil, errors.Join(err, manager.Shutdown())
	}
	log.Infof("Opened %s", s.CurrentURL())

	opts = append([]session.Option{
		session.WithRules(settings.Rules),
		session.WithTimings(settings.Timings),
		session.WithCredentials(settings.Credentials),
		session.WithLogger(log),
		session.WithMetrics(metrics),
	}, opts...)

	monitor, err := session.NewMonitor(s.Probe(), settings.Monitor, opts...)
	if err != nil {
		return nil, errors.Join(err, manager.Shutdown())
	}

	if settings.Credentials == nil {
		log.Warnf("No credentials configured; only the retry button can restore the session")
	}

	return &agent{
		manager:  manager,
		browser:  s,
		monitor:  monitor,
		registry: registry,
		log:      log,
	}, nil
}

// close stops the monitor and shuts the browser down, saving its storage
// state.
func (a *agent) close() error {
	a.monitor.Stop()
	return a.manager.Shutdown()
}

// joinClose runs closeFn and folds its error into *err. Use it with a named
// result in a defer.
func joinClose(err *error, closeFn func() error) {
	*err = errors.Join(*err, closeFn())
}

// serveMetrics exposes the registry on addr until ctx is done. An empty addr
// disables the endpoint.
func (a *agent) serveMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.log.Infof("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Errorf("Metrics server failed: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// handleSignals cancels ctx on SIGINT or SIGTERM and flips the pause gate on
// SIGUSR1.
func handleSignals(ctx context.Context, cancel context.CancelFunc, gate *session.Gate, out io.Writer) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)

	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				if sig == syscall.SIGUSR1 {
					if gate.Toggle() {
						fmt.Fprintln(out, "Paused. Send SIGUSR1 again to resume.")
					} else {
						fmt.Fprintln(out, "Resumed.")
					}
					continue
				}
				fmt.Fprintln(out, "\nShutting down gracefully...")
				cancel()
				return
			}
		}
	}()
}

// printTick reports remediations on out. Healthy ticks stay quiet.
func printTick(out io.Writer) session.TickHook {
	return func(v session.Verdict, outcome *session.Outcome) {
		if outcome == nil {
			return
		}
		if outcome.Resolved {
			fmt.Fprintf(out, "%s  session expired (%s), restored: %s\n",
				time.Now().Format(time.TimeOnly), v.Match, outcome.Label())
			return
		}
		fmt.Fprintf(out, "%s  session expired (%s), not restored: %v\n",
			time.Now().Format(time.TimeOnly), v.Match, outcome.Err)
	}
}
