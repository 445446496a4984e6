// Package breaker implements a circuit breaker that stops calling a failing
// dependency for a cooldown period.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/amishk599/staffsync/internal/model"
)

// State is the circuit state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Observer is notified of every state transition.
type Observer func(from, to State)

// Config controls when the breaker trips and how long it stays open.
type Config struct {
	FailureThreshold int           // consecutive failures before opening (default 5)
	ResetTimeout     time.Duration // time spent open before a trial call (default 30s)
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithObserver registers a callback fired on each transition.
func WithObserver(o Observer) Option {
	return func(b *Breaker) {
		b.observers = append(b.observers, o)
	}
}

// WithClock sets a custom clock.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		b.now = now
	}
}

// WithFailurePredicate limits which errors count toward tripping the
// circuit. Errors it rejects are returned to the caller but treated as
// successes by the breaker. By default every non-nil error counts.
func WithFailurePredicate(isFailure func(error) bool) Option {
	return func(b *Breaker) {
		b.isFailure = isFailure
	}
}

// Breaker guards calls to an unreliable dependency.
//
// CLOSED runs every call and opens after FailureThreshold consecutive
// failures. OPEN rejects calls with model.ErrCircuitOpen until ResetTimeout
// has elapsed since the last failure, then lets one trial call through in
// HALF_OPEN: success closes the circuit, failure reopens it.
type Breaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	trial       bool // a HALF_OPEN trial call is in flight

	observers []Observer
	isFailure func(error) bool
}

// New creates a closed breaker. Zero config values take the defaults.
func New(name string, cfg Config, opts ...Option) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	b := &Breaker{
		name:  name,
		cfg:   cfg,
		now:   time.Now,
		state: Closed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name identifies the guarded dependency.
func (b *Breaker) Name() string { return b.name }

// Execute runs action if the circuit allows it and records the outcome.
func (b *Breaker) Execute(ctx context.Context, action func(ctx context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := action(ctx)
	b.after(err != nil && (b.isFailure == nil || b.isFailure(err)))
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	var transitions [][2]State
	defer func() {
		b.mu.Unlock()
		b.notify(transitions)
	}()

	switch b.state {
	case Open:
		if b.now().Sub(b.lastFailure) < b.cfg.ResetTimeout {
			return model.ErrCircuitOpen
		}
		transitions = append(transitions, b.setState(HalfOpen))
		b.trial = true
		return nil
	case HalfOpen:
		// Only one trial call at a time.
		if b.trial {
			return model.ErrCircuitOpen
		}
		b.trial = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) after(failed bool) {
	b.mu.Lock()
	var transitions [][2]State
	defer func() {
		b.mu.Unlock()
		b.notify(transitions)
	}()

	switch b.state {
	case HalfOpen:
		b.trial = false
		if failed {
			b.lastFailure = b.now()
			transitions = append(transitions, b.setState(Open))
			return
		}
		b.failures = 0
		transitions = append(transitions, b.setState(Closed))
	case Closed:
		if !failed {
			b.failures = 0
			return
		}
		b.failures++
		b.lastFailure = b.now()
		if b.failures >= b.cfg.FailureThreshold {
			transitions = append(transitions, b.setState(Open))
		}
	case Open:
		// Forced open while the call was in flight; keep the override.
		if failed {
			b.lastFailure = b.now()
		}
	}
}

// setState must be called with mu held.
func (b *Breaker) setState(to State) [2]State {
	from := b.state
	b.state = to
	return [2]State{from, to}
}

func (b *Breaker) notify(transitions [][2]State) {
	for _, t := range transitions {
		if t[0] == t[1] {
			continue
		}
		for _, o := range b.observers {
			o(t[0], t[1])
		}
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// ForceOpen trips the circuit regardless of the failure count.
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	b.lastFailure = b.now()
	t := b.setState(Open)
	b.mu.Unlock()
	b.notify([][2]State{t})
}

// ForceClose closes the circuit and clears the failure count.
func (b *Breaker) ForceClose() {
	b.mu.Lock()
	b.failures = 0
	b.trial = false
	t := b.setState(Closed)
	b.mu.Unlock()
	b.notify([][2]State{t})
}

// Reset returns the breaker to its initial closed state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.failures = 0
	b.trial = false
	b.lastFailure = time.Time{}
	t := b.setState(Closed)
	b.mu.Unlock()
	b.notify([][2]State{t})
}
