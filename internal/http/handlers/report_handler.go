// Report HTTP handlers: the executive inventory summary and the full
// paginated report document. Both take the same filter set as the
// inventory listing, so a report generated with filters active reflects
// exactly the filtered subset.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lensworks/go-optics-backend/internal/querycache"
	"github.com/lensworks/go-optics-backend/internal/repo"
	"github.com/lensworks/go-optics-backend/internal/report"
)

// InventorySummaryResponse is the executive aggregate plus the derived
// in-stock percentage (truncated to two decimals).
type InventorySummaryResponse struct {
	repo.InventorySummary
	InStockPct float64 `json:"in_stock_pct"`
}

// InventorySummary returns the executive aggregate for the filter scope.
func (h *Handlers) InventorySummary(c *gin.Context) {
	filters := frameFilters(c)
	resp, err := cached(c, h.cache, querycache.FamilyReports, "inventory-summary",
		map[string]any{"filters": filters},
		func(ctx context.Context) (InventorySummaryResponse, error) {
			s, err := repo.GetInventorySummary(ctx, h.inventory.DB, filters)
			if err != nil {
				return InventorySummaryResponse{}, err
			}
			return InventorySummaryResponse{
				InventorySummary: *s,
				InStockPct:       report.StockPercentage(s.InStock, s.DistinctTypes),
			}, nil
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// GroupedInventory returns the per-dimension group-by rows for the filter
// scope. The dimension path parameter must be one of brand, group,
// sub_brand, description.
func (h *Handlers) GroupedInventory(c *gin.Context) {
	filters := frameFilters(c)
	dimension := c.Param("dimension")
	rows, err := cached(c, h.cache, querycache.FamilyReports, "inventory-grouped",
		map[string]any{"filters": filters, "dimension": dimension},
		func(ctx context.Context) ([]repo.GroupRow, error) {
			rows, err := repo.GroupFramesBy(ctx, h.inventory.DB, dimension, filters)
			if errors.Is(err, repo.ErrBadDimension) {
				return nil, querycache.NonRetryable(err)
			}
			return rows, err
		})
	if err != nil {
		if errors.Is(err, repo.ErrBadDimension) {
			fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"dimension": dimension, "rows": rows})
}

// InventoryReport builds the full paginated report document. Any failing
// aggregate fails the whole request; no partial document is returned.
func (h *Handlers) InventoryReport(c *gin.Context) {
	filters := frameFilters(c)
	doc, err := cached(c, h.cache, querycache.FamilyReports, "inventory-report",
		map[string]any{"filters": filters},
		func(ctx context.Context) (*report.Document, error) {
			return h.reports.Build(ctx, filters)
		})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, doc)
}
