package feed

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lensworks/go-optics-backend/internal/domain"
)

func newHookDB(t *testing.T, bus *Bus) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("feed_hooks_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Frame{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := RegisterCallbacks(db, bus); err != nil {
		t.Fatalf("RegisterCallbacks: %v", err)
	}
	return db
}

func collectEvents(t *testing.T, ch <-chan Event, n int) []Event {
	t.Helper()
	out := make([]Event, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d events, wanted %d", len(out), n)
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d events, wanted %d", len(out), n)
		}
	}
	return out
}

func TestRegisterCallbacks_PublishesWriteLifecycle(t *testing.T) {
	bus := NewBus(16, zerolog.Logger{})
	defer bus.Close()
	db := newHookDB(t, bus)

	_, ch, err := bus.attach("frames")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	f := &domain.Frame{ID: uuid.NewString(), SKU: "RB-1001", Model: "Wayfarer", Stock: 3}
	if err := db.Create(f).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Model(&domain.Frame{}).Where("id = ?", f.ID).Update("stock", 2).Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := db.Delete(&domain.Frame{}, "id = ?", f.ID).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}

	evs := collectEvents(t, ch, 3)
	if evs[0].Action != ActionInsert || evs[0].Table != "frames" || evs[0].RowID != f.ID {
		t.Fatalf("unexpected insert event: %+v", evs[0])
	}
	if evs[1].Action != ActionUpdate || evs[2].Action != ActionDelete {
		t.Fatalf("unexpected event order: %+v", evs)
	}
	if evs[0].At.IsZero() {
		t.Fatal("expected event timestamp")
	}
}

func TestTransact_RollbackPublishesNothing(t *testing.T) {
	bus := NewBus(16, zerolog.Logger{})
	defer bus.Close()
	db := newHookDB(t, bus)

	_, ch, err := bus.attach("frames")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	boom := errors.New("boom")
	err = Transact(context.Background(), db, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Create(&domain.Frame{ID: uuid.NewString(), SKU: "RB-9001", Model: "Phantom"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected rollback error, got %v", err)
	}

	// A later committed write marks the point past which the rolled-back
	// insert must not have surfaced.
	marker := &domain.Frame{ID: uuid.NewString(), SKU: "RB-9002", Model: "Marker"}
	if err := db.Create(marker).Error; err != nil {
		t.Fatalf("create marker: %v", err)
	}
	ev := collectEvents(t, ch, 1)[0]
	if ev.RowID != marker.ID || ev.Action != ActionInsert {
		t.Fatalf("rolled-back write leaked onto the feed: %+v", ev)
	}
}

func TestTransact_CommitPublishesBufferedEventsInOrder(t *testing.T) {
	bus := NewBus(16, zerolog.Logger{})
	defer bus.Close()
	db := newHookDB(t, bus)

	_, ch, err := bus.attach("frames")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	a := &domain.Frame{ID: uuid.NewString(), SKU: "RB-9003", Model: "First"}
	b := &domain.Frame{ID: uuid.NewString(), SKU: "RB-9004", Model: "Second"}
	err = Transact(context.Background(), db, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		// Nested transactions share the outer buffer; their savepoint
		// release must not publish early.
		return Transact(ctx, tx, func(ctx context.Context, tx *gorm.DB) error {
			return tx.Create(b).Error
		})
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}

	evs := collectEvents(t, ch, 2)
	if evs[0].RowID != a.ID || evs[1].RowID != b.ID {
		t.Fatalf("unexpected event order: %+v", evs)
	}
}

func TestRegisterCallbacks_NoEventForNoopUpdate(t *testing.T) {
	bus := NewBus(16, zerolog.Logger{})
	defer bus.Close()
	db := newHookDB(t, bus)

	_, ch, err := bus.attach("frames")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	// Update matching no rows must stay silent.
	if err := db.Model(&domain.Frame{}).Where("id = ?", uuid.NewString()).Update("stock", 1).Error; err != nil {
		t.Fatalf("update: %v", err)
	}

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
