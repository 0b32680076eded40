package feed

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lensworks/go-optics-backend/internal/querycache"
)

// State is the lifecycle state of a Subscription.
type State int

// Subscription states: connecting → subscribed → (error | closed).
const (
	StateConnecting State = iota
	StateSubscribed
	StateError
	StateClosed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// ReconnectPolicy bounds how a subscription recovers after losing the feed:
// exponential backoff from Base to Cap, at most Max attempts, then the
// subscription parks in the error state until Reconnect is called. An
// unbounded silent retry loop is deliberately not offered.
type ReconnectPolicy struct {
	Max  int
	Base time.Duration
	Cap  time.Duration
}

func (p ReconnectPolicy) withDefaults() ReconnectPolicy {
	if p.Max < 0 {
		p.Max = 0
	}
	if p.Base <= 0 {
		p.Base = time.Second
	}
	if p.Cap < p.Base {
		p.Cap = 30 * time.Second
	}
	return p
}

// Subscription consumes a table's change events and hands them to a
// callback. The callback only ever runs on the subscription's own
// goroutine; after Close returns it is guaranteed not to run again.
type Subscription struct {
	bus     *Bus
	table   string // "" = all tables
	handler func(Event)
	policy  ReconnectPolicy
	logger  zerolog.Logger

	mu       sync.Mutex
	state    State
	attempts int
	closing  chan struct{}
	done     chan struct{}
}

// Subscribe attaches a handler to the bus for one table ("" for all) and
// starts delivery. The subscription starts in connecting and reaches
// subscribed once attached.
func (b *Bus) Subscribe(table string, handler func(Event), policy ReconnectPolicy, logger zerolog.Logger) *Subscription {
	s := &Subscription{
		bus:     b,
		table:   table,
		handler: handler,
		policy:  policy.withDefaults(),
		logger:  logger,
		state:   StateConnecting,
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// State returns the current lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reconnect restarts delivery after the reconnect budget was exhausted.
// It is a no-op unless the subscription is in the error state.
func (s *Subscription) Reconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateError {
		return
	}
	s.state = StateConnecting
	s.attempts = 0
	s.done = make(chan struct{})
	go s.run()
}

// Close tears the subscription down synchronously: when it returns, the
// delivery goroutine has exited and the handler will not fire again.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	select {
	case <-s.closing:
	default:
		close(s.closing)
	}
	done := s.done
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
}

// run attaches to the bus and pumps events until the channel closes (feed
// lost) or Close is called. On feed loss it retries per the policy.
func (s *Subscription) run() {
	defer close(s.done)

	for {
		id, ch, err := s.bus.attach(s.table)
		if err != nil {
			if !s.backoff(err) {
				return
			}
			continue
		}

		s.mu.Lock()
		s.state = StateSubscribed
		s.attempts = 0
		s.mu.Unlock()

		lost := s.pump(id, ch)
		if !lost {
			return // Close requested
		}
		if !s.backoff(ErrBusClosed) {
			return
		}
	}
}

// pump delivers events until the channel closes (returns true) or Close is
// requested (detaches and returns false).
func (s *Subscription) pump(id int, ch <-chan Event) bool {
	for {
		select {
		case <-s.closing:
			s.bus.detach(id)
			// Drain anything already buffered so detach's close is clean;
			// events here are intentionally dropped, teardown wins.
			for range ch {
			}
			return false
		case ev, ok := <-ch:
			if !ok {
				return true
			}
			s.handler(ev)
		}
	}
}

// backoff sleeps per the reconnect schedule. It returns false when the
// budget is exhausted (subscription parks in error state) or Close was
// requested during the wait.
func (s *Subscription) backoff(cause error) bool {
	s.mu.Lock()
	attempt := s.attempts
	s.attempts++
	budget := s.policy.Max
	s.mu.Unlock()

	if attempt >= budget {
		s.mu.Lock()
		s.state = StateError
		s.mu.Unlock()
		s.logger.Error().Err(cause).
			Str("table", s.table).
			Int("attempts", attempt).
			Msg("change feed subscription gave up, manual reconnect required")
		return false
	}

	delay := querycache.Backoff(attempt, s.policy.Base, s.policy.Cap)
	s.logger.Warn().Err(cause).
		Str("table", s.table).
		Dur("retry_in", delay).
		Msg("change feed lost, reconnecting")

	select {
	case <-s.closing:
		return false
	case <-time.After(delay):
		return true
	}
}
