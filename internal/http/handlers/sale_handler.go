// Sales HTTP handlers: ticket creation (with atomic stock decrement),
// listing, voiding, and the sales aggregates backing the dashboard.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/querycache"
	"github.com/lensworks/go-optics-backend/internal/repo"
	"github.com/lensworks/go-optics-backend/internal/services"
	"github.com/lensworks/go-optics-backend/internal/utils"
)

// saleFilters parses the shared sales filter query params. from/to accept
// RFC 3339 timestamps.
func saleFilters(c *gin.Context) repo.SaleFilters {
	f := repo.SaleFilters{
		CustomerID: c.Query("customer_id"),
		VendorID:   c.Query("vendor_id"),
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = &t
		}
	}
	return f
}

// CreateSale assembles and persists a ticket. A selling conflict
// (insufficient stock) returns 422 and leaves both stock and sales
// untouched.
func (h *Handlers) CreateSale(c *gin.Context) {
	var req services.SaleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	note, err := mutate(c, h.cache, "sale-create",
		func(ctx context.Context) (*domain.SaleNote, error) {
			return h.sales.Create(ctx, req)
		},
		querycache.FamilySales, querycache.FamilyInventory, querycache.FamilyReports)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, note)
}

// GetSale returns one ticket with items, customer, and vendor.
func (h *Handlers) GetSale(c *gin.Context) {
	id := c.Param("id")
	note, err := cached(c, h.cache, querycache.FamilySales, "sale", map[string]any{"id": id},
		func(ctx context.Context) (*domain.SaleNote, error) {
			return h.sales.Get(ctx, id)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, note)
}

// VoidSale soft-deletes a ticket and restocks its items. Guarded by the
// admin PIN middleware.
func (h *Handlers) VoidSale(c *gin.Context) {
	id := c.Param("id")
	_, err := mutate(c, h.cache, "sale-void",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h.sales.Void(ctx, id)
		},
		querycache.FamilySales, querycache.FamilyInventory, querycache.FamilyReports)
	if err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// ListSalesResponse wraps a page of tickets and pagination information.
type ListSalesResponse struct {
	Sales      []domain.SaleNote `json:"sales"`
	Pagination Pagination        `json:"pagination"`
}

// ListSales returns a filtered page of tickets, most recent first.
func (h *Handlers) ListSales(c *gin.Context) {
	filters := saleFilters(c)
	page, pageSize := clampPagination(c)

	params := map[string]any{"filters": filters, "page": page, "page_size": pageSize}
	resp, err := cached(c, h.cache, querycache.FamilySales, "sales-page", params,
		func(ctx context.Context) (ListSalesResponse, error) {
			items, total, err := h.sales.ListPage(ctx, filters, page, pageSize)
			if err != nil {
				return ListSalesResponse{}, err
			}
			return ListSalesResponse{Sales: items, Pagination: paginate(page, pageSize, total)}, nil
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// SalesStats returns ticket/unit/revenue totals for the filter scope.
func (h *Handlers) SalesStats(c *gin.Context) {
	filters := saleFilters(c)
	stats, err := cached(c, h.cache, querycache.FamilySales, "sales-stats",
		map[string]any{"filters": filters},
		func(ctx context.Context) (*repo.SalesStats, error) {
			return h.sales.Stats(ctx, filters)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// BestSellers ranks frames by units sold within the filter scope.
func (h *Handlers) BestSellers(c *gin.Context) {
	filters := saleFilters(c)
	limit := utils.AtoiDefault(c.Query("limit"), 10)
	rows, err := cached(c, h.cache, querycache.FamilySales, "sales-best-sellers",
		map[string]any{"filters": filters, "limit": limit},
		func(ctx context.Context) ([]repo.BestSellerRow, error) {
			return h.sales.BestSellers(ctx, filters, limit)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"best_sellers": rows})
}

// SalesByVendor groups ticket counts and revenue per vendor.
func (h *Handlers) SalesByVendor(c *gin.Context) {
	filters := saleFilters(c)
	rows, err := cached(c, h.cache, querycache.FamilySales, "sales-by-vendor",
		map[string]any{"filters": filters},
		func(ctx context.Context) ([]repo.VendorSalesRow, error) {
			return h.sales.ByVendor(ctx, filters)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"vendors": rows})
}
