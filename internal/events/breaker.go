package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/metrics"
)

var ErrCircuitOpen = errors.New("events: circuit open")

type circuitState int

const (
	stateClosed circuitState = iota
	stateOpen
	stateHalfOpen
)

// Guarded wraps a Publisher with a circuit breaker. After failureThreshold
// consecutive failures Publish returns ErrCircuitOpen until recoveryTime elapses.
type Guarded struct {
	next    Publisher
	backend string

	mu               sync.Mutex
	state            circuitState
	failures         int
	lastFailure      time.Time
	failureThreshold int
	recoveryTime     time.Duration
	now              func() time.Time
}

func NewGuarded(next Publisher, backend string, failureThreshold int, recoveryTime time.Duration) *Guarded {
	if failureThreshold < 1 {
		failureThreshold = 5
	}
	return &Guarded{
		next:             next,
		backend:          backend,
		failureThreshold: failureThreshold,
		recoveryTime:     recoveryTime,
		now:              time.Now,
	}
}

func (g *Guarded) allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == stateOpen {
		if g.now().Sub(g.lastFailure) > g.recoveryTime {
			g.state = stateHalfOpen
			return true
		}
		return false
	}
	return true
}

func (g *Guarded) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err == nil {
		g.failures = 0
		g.state = stateClosed
		return
	}

	g.failures++
	g.lastFailure = g.now()
	if g.state == stateHalfOpen || g.failures >= g.failureThreshold {
		g.state = stateOpen
	}
}

func (g *Guarded) State() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

func (g *Guarded) Publish(ctx context.Context, e *Event) error {
	if !g.allow() {
		metrics.RecordEventPublished(g.backend, e.Type, ErrCircuitOpen)
		return ErrCircuitOpen
	}
	err := g.next.Publish(ctx, e)
	g.record(err)
	metrics.RecordEventPublished(g.backend, e.Type, err)
	return err
}

func (g *Guarded) Close() error {
	return g.next.Close()
}
