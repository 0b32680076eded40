// Package services – CashService
//
// This file implements the CashService, which runs the cash-box lifecycle:
// opening a session with a float amount, recording income and expense
// movements, computing the expected drawer balance, and closing with the
// counted amount. At most one session is open at a time.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/repo"
)

// CashRepo defines the repository contract required by CashService.
type CashRepo interface {
	OpenCashSession(ctx context.Context, db *gorm.DB, userID string, openingAmount float64) (*domain.CashSession, error)
	GetOpenCashSession(ctx context.Context, db *gorm.DB) (*domain.CashSession, error)
	GetCashSession(ctx context.Context, db *gorm.DB, id string) (*domain.CashSession, error)
	CloseCashSession(ctx context.Context, db *gorm.DB, id string, closingAmount float64) error
	AddCashMovement(ctx context.Context, db *gorm.DB, sessionID, kind, concept string, amount float64) (*domain.CashMovement, error)
	CashSessionBalance(ctx context.Context, db *gorm.DB, sessionID string) (float64, error)
	ListCashSessionsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.CashSession, int64, error)
}

type gormCashRepo struct{}

func (gormCashRepo) OpenCashSession(ctx context.Context, db *gorm.DB, userID string, openingAmount float64) (*domain.CashSession, error) {
	return repo.OpenCashSession(ctx, db, userID, openingAmount)
}
func (gormCashRepo) GetOpenCashSession(ctx context.Context, db *gorm.DB) (*domain.CashSession, error) {
	return repo.GetOpenCashSession(ctx, db)
}
func (gormCashRepo) GetCashSession(ctx context.Context, db *gorm.DB, id string) (*domain.CashSession, error) {
	return repo.GetCashSession(ctx, db, id)
}
func (gormCashRepo) CloseCashSession(ctx context.Context, db *gorm.DB, id string, closingAmount float64) error {
	return repo.CloseCashSession(ctx, db, id, closingAmount)
}
func (gormCashRepo) AddCashMovement(ctx context.Context, db *gorm.DB, sessionID, kind, concept string, amount float64) (*domain.CashMovement, error) {
	return repo.AddCashMovement(ctx, db, sessionID, kind, concept, amount)
}
func (gormCashRepo) CashSessionBalance(ctx context.Context, db *gorm.DB, sessionID string) (float64, error) {
	return repo.CashSessionBalance(ctx, db, sessionID)
}
func (gormCashRepo) ListCashSessionsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.CashSession, int64, error) {
	return repo.ListCashSessionsPage(ctx, db, offset, limit)
}

// CashService provides cash-box session operations.
type CashService struct {
	DB   *gorm.DB
	Repo CashRepo
}

// NewCashService constructs a CashService backed by the default GORM
// repository.
func NewCashService(db *gorm.DB) *CashService {
	return &CashService{DB: db, Repo: gormCashRepo{}}
}

// Open starts a new session with the given float amount.
func (s *CashService) Open(ctx context.Context, userID string, openingAmount float64) (*domain.CashSession, error) {
	if openingAmount < 0 {
		return nil, fmt.Errorf("%w: opening amount must not be negative", ErrValidation)
	}
	sess, err := s.Repo.OpenCashSession(ctx, s.DB, userID, openingAmount)
	if err != nil {
		if errors.Is(err, repo.ErrSessionAlreadyOpen) {
			return nil, ErrSessionAlreadyOpen
		}
		return nil, err
	}
	return sess, nil
}

// Current returns the open session, or ErrNoOpenSession.
func (s *CashService) Current(ctx context.Context) (*domain.CashSession, error) {
	sess, err := s.Repo.GetOpenCashSession(ctx, s.DB)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoOpenSession
		}
		return nil, err
	}
	return sess, nil
}

// Close stamps the open session with the counted closing amount and
// returns it. Closing requires an open session.
func (s *CashService) Close(ctx context.Context, closingAmount float64) (*domain.CashSession, error) {
	sess, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CloseCashSession(ctx, s.DB, sess.ID, closingAmount); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Raced with another close.
			return nil, ErrNoOpenSession
		}
		return nil, err
	}
	return s.Repo.GetCashSession(ctx, s.DB, sess.ID)
}

// AddMovement records an income or expense in the open session.
func (s *CashService) AddMovement(ctx context.Context, kind, concept string, amount float64) (*domain.CashMovement, error) {
	if kind != domain.MovementIncome && kind != domain.MovementExpense {
		return nil, fmt.Errorf("%w: kind must be %q or %q", ErrInvalidMovement, domain.MovementIncome, domain.MovementExpense)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidMovement)
	}
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return nil, fmt.Errorf("%w: concept is required", ErrInvalidMovement)
	}
	sess, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.Repo.AddCashMovement(ctx, s.DB, sess.ID, kind, concept, amount)
}

// Balance computes the expected drawer balance of the open session.
func (s *CashService) Balance(ctx context.Context) (float64, error) {
	sess, err := s.Current(ctx)
	if err != nil {
		return 0, err
	}
	return s.Repo.CashSessionBalance(ctx, s.DB, sess.ID)
}

// History returns past sessions, most recently opened first.
func (s *CashService) History(ctx context.Context, page, pageSize int) ([]domain.CashSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return s.Repo.ListCashSessionsPage(ctx, s.DB, (page-1)*pageSize, pageSize)
}
