package session

import (
	"context"
	"sync"
)

// Gate is a shared pause signal. Engaging it makes every cooperating loop
// block at its next checkpoint until Resume is called. It is not a lock:
// nothing is interrupted mid-step.
type Gate struct {
	mu      sync.Mutex
	paused  bool
	resumed chan struct{}
	notify  func(paused bool)
}

// NewGate returns a released gate.
func NewGate() *Gate {
	return &Gate{}
}

// Pause engages the gate. Pausing an engaged gate is a no-op.
func (g *Gate) Pause() {
	g.set(func(bool) bool { return true })
}

// Resume releases the gate and wakes every waiter.
func (g *Gate) Resume() {
	g.set(func(bool) bool { return false })
}

// Toggle flips the gate and returns true if it is now paused.
func (g *Gate) Toggle() bool {
	return g.set(func(paused bool) bool { return !paused })
}

func (g *Gate) set(next func(paused bool) bool) bool {
	g.mu.Lock()
	want := next(g.paused)
	if want == g.paused {
		g.mu.Unlock()
		return want
	}

	g.paused = want
	if want {
		g.resumed = make(chan struct{})
	} else {
		close(g.resumed)
		g.resumed = nil
	}
	// notified under the lock so observers see changes in order
	if g.notify != nil {
		g.notify(want)
	}
	g.mu.Unlock()
	return want
}

// Paused reports whether the gate is engaged.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Wait returns immediately when the gate is released. Otherwise it blocks
// until Resume or until ctx is done, in which case it returns ctx.Err().
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	if !g.paused {
		g.mu.Unlock()
		return nil
	}
	resumed := g.resumed
	g.mu.Unlock()

	select {
	case <-resumed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gate) onChange(fn func(paused bool)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notify = fn
}
