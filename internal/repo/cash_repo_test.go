package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestOpenCashSession_RejectsSecondOpen(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	s, err := OpenCashSession(ctx, db, "u1", 100)
	if err != nil {
		t.Fatalf("OpenCashSession: %v", err)
	}
	if !s.Open() || s.OpeningAmount != 100 {
		t.Fatalf("unexpected session: %+v", s)
	}

	if _, err := OpenCashSession(ctx, db, "u2", 50); !errors.Is(err, ErrSessionAlreadyOpen) {
		t.Fatalf("expected ErrSessionAlreadyOpen, got %v", err)
	}
}

func TestCashSession_Lifecycle(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	s, err := OpenCashSession(ctx, db, "u1", 100)
	if err != nil {
		t.Fatalf("OpenCashSession: %v", err)
	}

	if _, err := AddCashMovement(ctx, db, s.ID, "income", "sale ticket", 80); err != nil {
		t.Fatalf("AddCashMovement income: %v", err)
	}
	if _, err := AddCashMovement(ctx, db, s.ID, "expense", "courier", 30); err != nil {
		t.Fatalf("AddCashMovement expense: %v", err)
	}

	bal, err := CashSessionBalance(ctx, db, s.ID)
	if err != nil {
		t.Fatalf("CashSessionBalance: %v", err)
	}
	if bal != 150 { // 100 + 80 - 30
		t.Fatalf("expected balance 150, got %v", bal)
	}

	open, err := GetOpenCashSession(ctx, db)
	if err != nil || open.ID != s.ID {
		t.Fatalf("GetOpenCashSession: %+v err=%v", open, err)
	}
	if len(open.Movements) != 2 {
		t.Fatalf("expected 2 movements preloaded, got %d", len(open.Movements))
	}

	if err := CloseCashSession(ctx, db, s.ID, 148.5); err != nil {
		t.Fatalf("CloseCashSession: %v", err)
	}

	// Closed box: no open session, re-close rejected, new open allowed.
	if _, err := GetOpenCashSession(ctx, db); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for open session, got %v", err)
	}
	if err := CloseCashSession(ctx, db, s.ID, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound re-closing, got %v", err)
	}
	if _, err := OpenCashSession(ctx, db, "u1", 148.5); err != nil {
		t.Fatalf("expected new session after close, got %v", err)
	}

	got, err := GetCashSession(ctx, db, s.ID)
	if err != nil {
		t.Fatalf("GetCashSession: %v", err)
	}
	if got.Open() || got.ClosingAmount == nil || *got.ClosingAmount != 148.5 {
		t.Fatalf("unexpected closed session: %+v", got)
	}
}

func TestCloseCashSession_UnknownID(t *testing.T) {
	db := newRepoDB(t)
	if err := CloseCashSession(context.Background(), db, uuid.NewString(), 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListCashSessionsPage(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := OpenCashSession(ctx, db, "u1", float64(i))
		if err != nil {
			t.Fatalf("OpenCashSession: %v", err)
		}
		if err := CloseCashSession(ctx, db, s.ID, float64(i)); err != nil {
			t.Fatalf("CloseCashSession: %v", err)
		}
	}

	page, total, err := ListCashSessionsPage(ctx, db, 0, 2)
	if err != nil {
		t.Fatalf("ListCashSessionsPage: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Fatalf("expected total=3 page=2, got total=%d page=%d", total, len(page))
	}
}
