package feed

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// txBuffer collects the events recorded by statements inside an open
// transaction until its fate is known. The bus reference is captured by the
// callback that records the first event.
type txBuffer struct {
	mu     sync.Mutex
	bus    *Bus
	events []Event
}

func (b *txBuffer) add(bus *Bus, ev Event) {
	b.mu.Lock()
	b.bus = bus
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

// flush publishes the buffered events in statement order and empties the
// buffer. Events are stamped at publish time, so At reflects the commit.
func (b *txBuffer) flush() {
	b.mu.Lock()
	bus, events := b.bus, b.events
	b.events = nil
	b.mu.Unlock()
	for _, ev := range events {
		bus.Publish(ev)
	}
}

type txBufferKey struct{}

func bufferFrom(ctx context.Context) *txBuffer {
	buf, _ := ctx.Value(txBufferKey{}).(*txBuffer)
	return buf
}

// Transact runs fn inside a database transaction and holds back the change
// events its statements would publish until the transaction commits. On
// rollback the buffered events are discarded, so subscribers never hear
// about rows that were not durably written. fn receives the buffering
// context and must thread it through every nested database call; nested
// Transact calls share the outermost buffer, and only the outermost commit
// releases the events.
func Transact(ctx context.Context, db *gorm.DB, fn func(ctx context.Context, tx *gorm.DB) error) error {
	if bufferFrom(ctx) != nil {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(ctx, tx)
		})
	}

	buf := &txBuffer{}
	bctx := context.WithValue(ctx, txBufferKey{}, buf)
	err := db.WithContext(bctx).Transaction(func(tx *gorm.DB) error {
		return fn(bctx, tx)
	})
	if err != nil {
		return err
	}
	buf.flush()
	return nil
}
