package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/feed"
)

func seedSaleNote(t *testing.T, db *gorm.DB, note *domain.SaleNote) *domain.SaleNote {
	t.Helper()
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	note.Total = note.ComputeTotal()
	created, err := CreateSaleNote(context.Background(), db, note)
	if err != nil {
		t.Fatalf("seed sale note: %v", err)
	}
	return created
}

func TestCreateSaleNote_DecrementsStockPerItem(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	a := seedFrame(t, db, "A-1", "Aviator", 100, 5)
	b := seedFrame(t, db, "B-1", "Wayfarer", 50, 5)

	note := seedSaleNote(t, db, &domain.SaleNote{
		Items: []domain.SaleItem{
			NewSaleItem(a.ID, 2, a.Price),
			NewSaleItem(b.ID, 1, b.Price),
		},
	})
	if note.Total != 250 {
		t.Fatalf("expected total 250, got %v", note.Total)
	}

	for _, tc := range []struct {
		id   string
		want int
	}{{a.ID, 3}, {b.ID, 4}} {
		f, err := GetFrame(ctx, db, tc.id)
		if err != nil {
			t.Fatalf("GetFrame: %v", err)
		}
		if f.Stock != tc.want {
			t.Fatalf("frame %s: expected stock %d, got %d", tc.id, tc.want, f.Stock)
		}
	}

	moves, err := ListStockMovements(ctx, db, a.ID, 0)
	if err != nil || len(moves) != 1 {
		t.Fatalf("expected 1 movement, got %+v err=%v", moves, err)
	}
	if domain.IDString(moves[0].SaleNoteID) != note.ID || moves[0].Quantity != -2 {
		t.Fatalf("movement not linked to sale: %+v", moves[0])
	}
}

func TestCreateSaleNote_InsufficientStock_RollsBackWholeTicket(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	a := seedFrame(t, db, "A-1", "Aviator", 100, 5)
	b := seedFrame(t, db, "B-1", "Wayfarer", 50, 1)

	note := &domain.SaleNote{
		ID: uuid.NewString(),
		Items: []domain.SaleItem{
			NewSaleItem(a.ID, 2, a.Price),
			NewSaleItem(b.ID, 3, b.Price), // only 1 in stock
		},
	}
	_, err := CreateSaleNote(ctx, db, note)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// First item's decrement must have been rolled back too.
	f, err := GetFrame(ctx, db, a.ID)
	if err != nil {
		t.Fatalf("GetFrame: %v", err)
	}
	if f.Stock != 5 {
		t.Fatalf("expected stock restored to 5, got %d", f.Stock)
	}
	if _, err := GetSaleNote(ctx, db, note.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no persisted note, got %v", err)
	}
}

func TestCreateSaleNote_FailedTicketLeavesFeedSilent(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	a := seedFrame(t, db, "A-1", "Aviator", 100, 2)

	bus := feed.NewBus(16, zerolog.Logger{})
	defer bus.Close()
	if err := feed.RegisterCallbacks(db, bus); err != nil {
		t.Fatalf("RegisterCallbacks: %v", err)
	}
	var mu sync.Mutex
	var seen []feed.Event
	sub := bus.Subscribe("", func(ev feed.Event) {
		mu.Lock()
		seen = append(seen, ev)
		mu.Unlock()
	}, feed.ReconnectPolicy{}, zerolog.Logger{})
	defer sub.Close()

	// Subscribe attaches on its own goroutine; wait until it is live so the
	// events published below cannot be dropped before attach.
	for attachDeadline := time.Now().Add(2 * time.Second); sub.State() != feed.StateSubscribed; {
		if time.Now().After(attachDeadline) {
			t.Fatal("timed out waiting for the subscription to attach")
		}
		time.Sleep(5 * time.Millisecond)
	}

	note := &domain.SaleNote{ID: uuid.NewString(), Items: []domain.SaleItem{NewSaleItem(a.ID, 5, 100)}}
	if _, err := CreateSaleNote(ctx, db, note); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// A committed restock marks the point past which the rolled-back
	// ticket's events must not have surfaced.
	if _, err := RestockFrame(ctx, db, a.ID, 1, "recount"); err != nil {
		t.Fatalf("RestockFrame: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		done := len(seen) > 0 && seen[len(seen)-1].Table == "stock_movements"
		mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the restock events")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, ev := range seen {
		if ev.Table == "sale_notes" || ev.Table == "sale_items" {
			t.Fatalf("rolled-back ticket leaked onto the feed: %+v", ev)
		}
	}
}

func TestDeleteSaleNote_RestocksItems(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	a := seedFrame(t, db, "A-1", "Aviator", 100, 5)
	note := seedSaleNote(t, db, &domain.SaleNote{
		Items: []domain.SaleItem{NewSaleItem(a.ID, 2, a.Price)},
	})

	if err := DeleteSaleNote(ctx, db, note.ID); err != nil {
		t.Fatalf("DeleteSaleNote: %v", err)
	}
	f, err := GetFrame(ctx, db, a.ID)
	if err != nil {
		t.Fatalf("GetFrame: %v", err)
	}
	if f.Stock != 5 {
		t.Fatalf("expected stock restored to 5, got %d", f.Stock)
	}
	if _, err := GetSaleNote(ctx, db, note.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGetSalesStats_FiltersByVendor(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	a := seedFrame(t, db, "A-1", "Aviator", 100, 10)
	v1, err := CreateUser(ctx, db, &domain.User{Name: "Ana", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	v2, err := CreateUser(ctx, db, &domain.User{Name: "Bo", Email: "bo@example.com"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	seedSaleNote(t, db, &domain.SaleNote{VendorID: domain.OptionalID(v1.ID), Items: []domain.SaleItem{NewSaleItem(a.ID, 2, 100)}})
	seedSaleNote(t, db, &domain.SaleNote{VendorID: domain.OptionalID(v1.ID), Items: []domain.SaleItem{NewSaleItem(a.ID, 1, 100)}})
	seedSaleNote(t, db, &domain.SaleNote{VendorID: domain.OptionalID(v2.ID), Items: []domain.SaleItem{NewSaleItem(a.ID, 3, 100)}})

	stats, err := GetSalesStats(ctx, db, SaleFilters{VendorID: v1.ID})
	if err != nil {
		t.Fatalf("GetSalesStats: %v", err)
	}
	if stats.Tickets != 2 || stats.Units != 3 || stats.Revenue != 300 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	all, err := GetSalesStats(ctx, db, SaleFilters{})
	if err != nil {
		t.Fatalf("GetSalesStats all: %v", err)
	}
	if all.Tickets != 3 || all.Units != 6 || all.Revenue != 600 {
		t.Fatalf("unexpected overall stats: %+v", all)
	}
}

func TestBestSellingFrames_RanksByUnits(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	a := seedFrame(t, db, "A-1", "Aviator", 100, 10)
	b := seedFrame(t, db, "B-1", "Wayfarer", 50, 10)

	seedSaleNote(t, db, &domain.SaleNote{Items: []domain.SaleItem{NewSaleItem(a.ID, 1, 100)}})
	seedSaleNote(t, db, &domain.SaleNote{Items: []domain.SaleItem{
		NewSaleItem(b.ID, 4, 50),
		NewSaleItem(a.ID, 1, 100),
	}})

	rows, err := BestSellingFrames(ctx, db, SaleFilters{}, 0)
	if err != nil {
		t.Fatalf("BestSellingFrames: %v", err)
	}
	if len(rows) != 2 || rows[0].SKU != "B-1" || rows[0].Units != 4 || rows[1].Units != 2 {
		t.Fatalf("unexpected ranking: %+v", rows)
	}
}

func TestSalesByVendor_UnassignedBucket(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	a := seedFrame(t, db, "A-1", "Aviator", 100, 10)
	seedSaleNote(t, db, &domain.SaleNote{Items: []domain.SaleItem{NewSaleItem(a.ID, 1, 100)}})

	rows, err := SalesByVendor(ctx, db, SaleFilters{})
	if err != nil {
		t.Fatalf("SalesByVendor: %v", err)
	}
	if len(rows) != 1 || rows[0].Vendor != "(unassigned)" || rows[0].Tickets != 1 {
		t.Fatalf("unexpected vendor rows: %+v", rows)
	}
}
