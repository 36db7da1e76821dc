package messaging

import (
	"context"
	"errors"
	"sync"
)

// ConnState tracks whether the shared backend session is usable.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateReady
	StateFaulted
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFaulted:
		return "faulted"
	}
	return "unknown"
}

var errShuttingDown = errors.New("gate shut down")

// Gate is the process-wide readiness latch for the backend session.
// Dispatch operations block on AwaitReady until the handshake completes.
//
// The gate is the only component that transitions connection state; everyone
// else reads it or waits on it. Faulted is terminal: once entered, AwaitReady
// fails immediately instead of blocking, so callers never hang on a dead
// session.
type Gate struct {
	mu    sync.Mutex
	state ConnState
	fault error

	// changed is closed (and replaced) on every transition, releasing all
	// waiters at once. Waiting is a genuine blocking suspend, not a poll.
	changed chan struct{}
}

func NewGate() *Gate {
	return &Gate{changed: make(chan struct{})}
}

// State reports the current connection state.
func (g *Gate) State() ConnState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Connecting marks a login attempt in flight. No-op once Ready or Faulted.
func (g *Gate) Connecting() {
	g.transition(func() bool {
		if g.state != StateDisconnected {
			return false
		}
		g.state = StateConnecting
		return true
	})
}

// Ready marks the handshake complete and releases every waiter.
func (g *Gate) Ready() {
	g.transition(func() bool {
		if g.state == StateFaulted {
			return false
		}
		g.state = StateReady
		return true
	})
}

// Fault marks the session dead. Terminal: later Ready calls are ignored.
func (g *Gate) Fault(err error) {
	if err == nil {
		err = errors.New("connection faulted")
	}
	g.transition(func() bool {
		if g.state == StateFaulted {
			return false
		}
		g.state = StateFaulted
		g.fault = err
		return true
	})
}

// Shutdown faults the gate so in-flight AwaitReady calls fail fast during
// process teardown.
func (g *Gate) Shutdown() {
	g.Fault(errShuttingDown)
}

func (g *Gate) transition(apply func() bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !apply() {
		return
	}
	close(g.changed)
	g.changed = make(chan struct{})
}

// AwaitReady blocks until the session is Ready, the gate faults, or ctx is
// done. Returns nil exactly when the state is Ready; a fault is reported as
// KindConnectionFault.
func (g *Gate) AwaitReady(ctx context.Context) error {
	for {
		g.mu.Lock()
		switch g.state {
		case StateReady:
			g.mu.Unlock()
			return nil
		case StateFaulted:
			err := g.fault
			g.mu.Unlock()
			return newError(KindConnectionFault, err, "connection to the messaging backend is not available")
		}
		ch := g.changed
		g.mu.Unlock()

		select {
		case <-ctx.Done():
			return newError(KindConnectionFault, ctx.Err(), "gave up waiting for the messaging backend connection")
		case <-ch:
		}
	}
}
