package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/repo"
)

// ----- Fake repo -----

type fakeCashRepo struct {
	open    *domain.CashSession
	openErr error

	closeID     string
	closeAmount float64
	closeErr    error

	movementSession string
	movementKind    string
	movementConcept string
	movementAmount  float64

	balance float64
}

func (r *fakeCashRepo) OpenCashSession(ctx context.Context, db *gorm.DB, userID string, openingAmount float64) (*domain.CashSession, error) {
	if r.openErr != nil {
		return nil, r.openErr
	}
	r.open = &domain.CashSession{ID: "s1", UserID: userID, OpeningAmount: openingAmount}
	return r.open, nil
}

func (r *fakeCashRepo) GetOpenCashSession(ctx context.Context, db *gorm.DB) (*domain.CashSession, error) {
	if r.open == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.open, nil
}

func (r *fakeCashRepo) GetCashSession(ctx context.Context, db *gorm.DB, id string) (*domain.CashSession, error) {
	if r.open != nil && r.open.ID == id {
		return r.open, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCashRepo) CloseCashSession(ctx context.Context, db *gorm.DB, id string, closingAmount float64) error {
	r.closeID, r.closeAmount = id, closingAmount
	return r.closeErr
}

func (r *fakeCashRepo) AddCashMovement(ctx context.Context, db *gorm.DB, sessionID, kind, concept string, amount float64) (*domain.CashMovement, error) {
	r.movementSession, r.movementKind, r.movementConcept, r.movementAmount = sessionID, kind, concept, amount
	return &domain.CashMovement{SessionID: sessionID, Kind: kind, Concept: concept, Amount: amount}, nil
}

func (r *fakeCashRepo) CashSessionBalance(ctx context.Context, db *gorm.DB, sessionID string) (float64, error) {
	return r.balance, nil
}

func (r *fakeCashRepo) ListCashSessionsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.CashSession, int64, error) {
	return nil, 0, nil
}

// ----- Tests -----

func TestCashOpen(t *testing.T) {
	r := &fakeCashRepo{}
	s := &CashService{Repo: r}

	if _, err := s.Open(context.Background(), "u1", -5); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for negative float, got %v", err)
	}

	sess, err := s.Open(context.Background(), "u1", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.OpeningAmount != 100 || sess.UserID != "u1" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	r.openErr = repo.ErrSessionAlreadyOpen
	if _, err := s.Open(context.Background(), "u2", 50); !errors.Is(err, ErrSessionAlreadyOpen) {
		t.Fatalf("expected ErrSessionAlreadyOpen, got %v", err)
	}
}

func TestCashCurrent_NoOpenSession(t *testing.T) {
	s := &CashService{Repo: &fakeCashRepo{}}

	if _, err := s.Current(context.Background()); !errors.Is(err, ErrNoOpenSession) {
		t.Fatalf("expected ErrNoOpenSession, got %v", err)
	}
}

func TestCashClose(t *testing.T) {
	r := &fakeCashRepo{open: &domain.CashSession{ID: "s1"}}
	s := &CashService{Repo: r}

	sess, err := s.Close(context.Background(), 148.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.closeID != "s1" || r.closeAmount != 148.5 {
		t.Fatalf("close not forwarded: id=%q amount=%v", r.closeID, r.closeAmount)
	}
	if sess.ID != "s1" {
		t.Fatalf("expected the closed session back, got %+v", sess)
	}
}

func TestCashClose_RaceMapsToNoSession(t *testing.T) {
	r := &fakeCashRepo{open: &domain.CashSession{ID: "s1"}, closeErr: gorm.ErrRecordNotFound}
	s := &CashService{Repo: r}

	if _, err := s.Close(context.Background(), 10); !errors.Is(err, ErrNoOpenSession) {
		t.Fatalf("expected ErrNoOpenSession on close race, got %v", err)
	}
}

func TestCashAddMovement_Validation(t *testing.T) {
	r := &fakeCashRepo{open: &domain.CashSession{ID: "s1"}}
	s := &CashService{Repo: r}

	cases := []struct {
		name    string
		kind    string
		concept string
		amount  float64
	}{
		{"bad kind", "transfer", "supplies", 10},
		{"zero amount", domain.MovementIncome, "supplies", 0},
		{"negative amount", domain.MovementExpense, "supplies", -3},
		{"blank concept", domain.MovementIncome, "   ", 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.AddMovement(context.Background(), tc.kind, tc.concept, tc.amount); !errors.Is(err, ErrInvalidMovement) {
				t.Fatalf("expected ErrInvalidMovement, got %v", err)
			}
		})
	}
	if r.movementSession != "" {
		t.Fatal("no movement should reach the repo on validation failure")
	}
}

func TestCashAddMovement_OK(t *testing.T) {
	r := &fakeCashRepo{open: &domain.CashSession{ID: "s1"}}
	s := &CashService{Repo: r}

	m, err := s.AddMovement(context.Background(), domain.MovementExpense, " window cleaning ", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.SessionID != "s1" || m.Concept != "window cleaning" || m.Amount != 30 {
		t.Fatalf("unexpected movement: %+v", m)
	}
}

func TestCashAddMovement_RequiresOpenSession(t *testing.T) {
	s := &CashService{Repo: &fakeCashRepo{}}

	_, err := s.AddMovement(context.Background(), domain.MovementIncome, "sale", 10)
	if !errors.Is(err, ErrNoOpenSession) {
		t.Fatalf("expected ErrNoOpenSession, got %v", err)
	}
}

func TestCashBalance(t *testing.T) {
	r := &fakeCashRepo{open: &domain.CashSession{ID: "s1"}, balance: 150}
	s := &CashService{Repo: r}

	b, err := s.Balance(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != 150 {
		t.Fatalf("expected balance 150, got %v", b)
	}
}
