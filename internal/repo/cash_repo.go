// Package repo – cash-box session and movement repositories.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/feed"
)

// ErrSessionAlreadyOpen is returned when opening a cash session while
// another one is still open.
var ErrSessionAlreadyOpen = errors.New("a cash session is already open")

// OpenCashSession opens a new session with the given float amount. At most
// one session may be open at a time; the check and the insert run in one
// transaction.
func OpenCashSession(ctx context.Context, db *gorm.DB, userID string, openingAmount float64) (*domain.CashSession, error) {
	var out *domain.CashSession
	err := feed.Transact(ctx, db, func(ctx context.Context, tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.CashSession{}).Where("closed_at IS NULL").Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrSessionAlreadyOpen
		}
		s := &domain.CashSession{
			ID:            uuid.NewString(),
			UserID:        userID,
			OpeningAmount: openingAmount,
			OpenedAt:      time.Now().UTC(),
		}
		if err := tx.Create(s).Error; err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetOpenCashSession returns the currently open session with movements
// preloaded, or ErrNotFound when the box is closed.
func GetOpenCashSession(ctx context.Context, db *gorm.DB) (*domain.CashSession, error) {
	var s domain.CashSession
	err := db.WithContext(ctx).
		Preload("Movements").
		Where("closed_at IS NULL").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetCashSession fetches a session by ID with movements preloaded.
func GetCashSession(ctx context.Context, db *gorm.DB, id string) (*domain.CashSession, error) {
	var s domain.CashSession
	err := db.WithContext(ctx).Preload("Movements").First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CloseCashSession stamps the open session identified by id with the
// counted closing amount. Returns ErrNotFound if there is no such open
// session (already closed sessions are not re-closable).
func CloseCashSession(ctx context.Context, db *gorm.DB, id string, closingAmount float64) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.CashSession{}).
		Where("id = ? AND closed_at IS NULL", id).
		Updates(map[string]any{
			"closing_amount": closingAmount,
			"closed_at":      now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddCashMovement appends an income/expense entry to a session.
func AddCashMovement(ctx context.Context, db *gorm.DB, sessionID, kind, concept string, amount float64) (*domain.CashMovement, error) {
	m := &domain.CashMovement{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      kind,
		Concept:   concept,
		Amount:    amount,
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListCashMovements returns a session's movements in insertion order.
func ListCashMovements(ctx context.Context, db *gorm.DB, sessionID string) ([]domain.CashMovement, error) {
	var out []domain.CashMovement
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// CashSessionBalance computes the expected drawer balance: opening amount
// plus signed movements.
func CashSessionBalance(ctx context.Context, db *gorm.DB, sessionID string) (float64, error) {
	var s domain.CashSession
	if err := db.WithContext(ctx).First(&s, "id = ?", sessionID).Error; err != nil {
		return 0, err
	}
	row := struct{ Net float64 }{}
	err := db.WithContext(ctx).
		Model(&domain.CashMovement{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(SUM(CASE WHEN kind = 'expense' THEN -amount ELSE amount END), 0) AS net").
		Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return s.OpeningAmount + row.Net, nil
}

// ListCashSessionsPage returns past sessions, most recently opened first.
func ListCashSessionsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.CashSession, int64, error) {
	var total int64
	if err := db.WithContext(ctx).Model(&domain.CashSession{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.CashSession
	err := db.WithContext(ctx).
		Order("opened_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}
