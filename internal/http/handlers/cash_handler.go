// Cash-box HTTP handlers: session open/close, movements, balance,
// history. The current-session and balance reads are served from the query
// cache so the drawer view refreshes through the same invalidation path as
// everything else.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/querycache"
)

// OpenSessionRequest is the JSON payload for opening a cash session.
type OpenSessionRequest struct {
	UserID        string  `json:"user_id"`
	OpeningAmount float64 `json:"opening_amount"`
}

// OpenCashSession starts a new session. A second open while one is active
// returns 409.
func (h *Handlers) OpenCashSession(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	sess, err := mutate(c, h.cache, "cash-open",
		func(ctx context.Context) (*domain.CashSession, error) {
			return h.cash.Open(ctx, req.UserID, req.OpeningAmount)
		},
		querycache.FamilyCashBox)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, sess)
}

// CurrentCashSession returns the open session with its movements.
func (h *Handlers) CurrentCashSession(c *gin.Context) {
	sess, err := cached(c, h.cache, querycache.FamilyCashBox, "cash-current", nil,
		func(ctx context.Context) (*domain.CashSession, error) {
			return h.cash.Current(ctx)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}

// CloseSessionRequest is the JSON payload for closing the open session.
type CloseSessionRequest struct {
	ClosingAmount float64 `json:"closing_amount"`
}

// CloseCashSession stamps the open session with the counted amount.
// Guarded by the admin PIN middleware.
func (h *Handlers) CloseCashSession(c *gin.Context) {
	var req CloseSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	sess, err := mutate(c, h.cache, "cash-close",
		func(ctx context.Context) (*domain.CashSession, error) {
			return h.cash.Close(ctx, req.ClosingAmount)
		},
		querycache.FamilyCashBox)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}

// MovementRequest is the JSON payload for a cash movement.
type MovementRequest struct {
	Kind    string  `json:"kind" binding:"required"`
	Concept string  `json:"concept" binding:"required"`
	Amount  float64 `json:"amount" binding:"required"`
}

// AddCashMovement records an income or expense in the open session.
func (h *Handlers) AddCashMovement(c *gin.Context) {
	var req MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	m, err := mutate(c, h.cache, "cash-movement",
		func(ctx context.Context) (*domain.CashMovement, error) {
			return h.cash.AddMovement(ctx, req.Kind, req.Concept, req.Amount)
		},
		querycache.FamilyCashBox)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, m)
}

// CashBalance returns the expected drawer balance of the open session.
func (h *Handlers) CashBalance(c *gin.Context) {
	bal, err := cached(c, h.cache, querycache.FamilyCashBox, "cash-balance", nil,
		func(ctx context.Context) (float64, error) {
			return h.cash.Balance(ctx)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"balance": bal})
}

// ListCashSessionsResponse wraps a page of sessions and pagination
// information.
type ListCashSessionsResponse struct {
	Sessions   []domain.CashSession `json:"sessions"`
	Pagination Pagination           `json:"pagination"`
}

// CashHistory returns past sessions, most recently opened first.
func (h *Handlers) CashHistory(c *gin.Context) {
	page, pageSize := clampPagination(c)
	params := map[string]any{"page": page, "page_size": pageSize}
	resp, err := cached(c, h.cache, querycache.FamilyCashBox, "cash-history", params,
		func(ctx context.Context) (ListCashSessionsResponse, error) {
			items, total, err := h.cash.History(ctx, page, pageSize)
			if err != nil {
				return ListCashSessionsResponse{}, err
			}
			return ListCashSessionsResponse{Sessions: items, Pagination: paginate(page, pageSize, total)}, nil
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}
