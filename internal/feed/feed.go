// Package feed implements the realtime reconciliation layer: a per-table
// change feed fed by GORM write callbacks, subscriptions with a bounded
// reconnect policy, and a reconciler that maps change notifications onto
// query-cache invalidations. It is the only writer allowed to invalidate
// cache entries without a corresponding local mutation.
package feed

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Action classifies a row-level change.
type Action string

// Row change actions, as reported by the store callbacks.
const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event is one row-level change notification. Events for a table are
// delivered in commit order; no ordering holds across tables or relative to
// a local mutation's own invalidation, so consumers must be idempotent.
type Event struct {
	Table  string    `json:"table"`
	Action Action    `json:"action"`
	RowID  string    `json:"row_id,omitempty"`
	At     time.Time `json:"at"`
}

// ErrBusClosed is returned when subscribing to (or publishing on) a closed bus.
var ErrBusClosed = errors.New("change feed closed")

// subscriber is one fan-out target with a bounded buffer.
type subscriber struct {
	table string // "" matches every table
	ch    chan Event
}

// Bus is the in-process change feed. Publish never blocks: a subscriber
// whose buffer is full loses the event, and the loss is logged. Consumers
// that must not miss changes rely on cache invalidation being idempotent
// and staleness-driven refetch, not on lossless delivery.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool

	buffer int
	logger zerolog.Logger
}

// NewBus constructs a Bus whose subscribers each buffer up to bufferSize
// undelivered events.
func NewBus(bufferSize int, logger zerolog.Logger) *Bus {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &Bus{
		subs:   make(map[int]*subscriber),
		buffer: bufferSize,
		logger: logger,
	}
}

// Publish delivers ev to every matching subscriber. Safe for concurrent use.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		if s.table != "" && s.table != ev.Table {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			b.logger.Warn().
				Str("table", ev.Table).
				Str("action", string(ev.Action)).
				Msg("change feed subscriber buffer full, event dropped")
		}
	}
}

// attach registers a raw subscriber channel. Used by Subscription; the
// channel is closed by detach or Close.
func (b *Bus) attach(table string) (int, <-chan Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, nil, ErrBusClosed
	}
	b.nextID++
	id := b.nextID
	s := &subscriber{table: table, ch: make(chan Event, b.buffer)}
	b.subs[id] = s
	return id, s.ch, nil
}

// detach removes a subscriber and closes its channel.
func (b *Bus) detach(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(s.ch)
	}
}

// Close shuts the bus down, closing every subscriber channel. Subscriptions
// observe the closure and transition to their reconnect path.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		delete(b.subs, id)
		close(s.ch)
	}
}
