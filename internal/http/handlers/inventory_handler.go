// Inventory HTTP handlers.
//
// This file exposes REST endpoints for the frame catalog:
//   - POST   /frames                    (create)
//   - GET    /frames                    (list, filtered + paginated, cached)
//   - GET    /frames/{id}               (fetch, cached)
//   - PUT    /frames/{id}               (partial update)
//   - DELETE /frames/{id}               (soft delete, admin PIN)
//   - POST   /frames/{id}/restock       (add units)
//   - GET    /frames/{id}/movements     (stock movement history)
//   - GET    /frames/out-of-stock       (zero-stock listing, cached)
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/querycache"
	"github.com/lensworks/go-optics-backend/internal/repo"
	"github.com/lensworks/go-optics-backend/internal/services"
	"github.com/lensworks/go-optics-backend/internal/utils"
)

// frameFilters parses the shared inventory filter query params.
func frameFilters(c *gin.Context) repo.FrameFilters {
	return repo.FrameFilters{
		BrandID:       c.Query("brand_id"),
		GroupID:       c.Query("group_id"),
		SubBrandID:    c.Query("sub_brand_id"),
		DescriptionID: c.Query("description_id"),
		Search:        strings.TrimSpace(c.Query("search")),
		InStockOnly:   utils.AtoiDefault(c.Query("in_stock_only"), 0) == 1 || c.Query("in_stock_only") == "true",
	}
}

func frameSort(c *gin.Context) repo.FrameSort {
	return repo.FrameSort{
		Key:  c.Query("sort"),
		Desc: c.Query("order") == "desc",
	}
}

// ListFramesResponse wraps a page of frames and pagination information.
type ListFramesResponse struct {
	Frames     []domain.Frame `json:"frames"`
	Pagination Pagination     `json:"pagination"`
}

// ListFrames returns a filtered, sorted page of frames. Results are served
// from the query cache; logically identical filter sets hit the same entry
// regardless of parameter order.
func (h *Handlers) ListFrames(c *gin.Context) {
	filters := frameFilters(c)
	sort := frameSort(c)
	page, pageSize := clampPagination(c)

	params := map[string]any{
		"filters":   filters,
		"sort":      sort,
		"page":      page,
		"page_size": pageSize,
	}
	resp, err := cached(c, h.cache, querycache.FamilyInventory, "frames-page", params,
		func(ctx context.Context) (ListFramesResponse, error) {
			items, total, err := h.inventory.ListPage(ctx, filters, sort, page, pageSize)
			if err != nil {
				return ListFramesResponse{}, err
			}
			return ListFramesResponse{Frames: items, Pagination: paginate(page, pageSize, total)}, nil
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// GetFrame returns one frame with its catalog dimensions.
func (h *Handlers) GetFrame(c *gin.Context) {
	id := c.Param("id")
	f, err := cached(c, h.cache, querycache.FamilyInventory, "frame", map[string]any{"id": id},
		func(ctx context.Context) (*domain.Frame, error) {
			return h.inventory.Get(ctx, id)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, f)
}

// CreateFrame inserts a new frame.
func (h *Handlers) CreateFrame(c *gin.Context) {
	var req services.FrameInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	f, err := mutate(c, h.cache, "frame-create",
		func(ctx context.Context) (*domain.Frame, error) {
			return h.inventory.Create(ctx, req)
		},
		querycache.FamilyInventory, querycache.FamilyReports)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, f)
}

// UpdateFrame applies a partial update to a frame.
func (h *Handlers) UpdateFrame(c *gin.Context) {
	var req services.FrameInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	id := c.Param("id")
	f, err := mutate(c, h.cache, "frame-update",
		func(ctx context.Context) (*domain.Frame, error) {
			return h.inventory.Update(ctx, id, req)
		},
		querycache.FamilyInventory, querycache.FamilyReports)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, f)
}

// DeleteFrame soft-deletes a frame. Guarded by the admin PIN middleware.
func (h *Handlers) DeleteFrame(c *gin.Context) {
	id := c.Param("id")
	_, err := mutate(c, h.cache, "frame-delete",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h.inventory.Delete(ctx, id)
		},
		querycache.FamilyInventory, querycache.FamilyReports)
	if err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// RestockRequest is the JSON payload for adding stock units.
type RestockRequest struct {
	Quantity int    `json:"quantity" binding:"required"`
	Reason   string `json:"reason"`
}

// RestockFrame adds units to a frame and records the movement.
func (h *Handlers) RestockFrame(c *gin.Context) {
	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	id := c.Param("id")
	f, err := mutate(c, h.cache, "frame-restock",
		func(ctx context.Context) (*domain.Frame, error) {
			return h.inventory.Restock(ctx, id, req.Quantity, req.Reason)
		},
		querycache.FamilyInventory, querycache.FamilyReports)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, f)
}

// ListStockMovements returns a frame's movement history.
func (h *Handlers) ListStockMovements(c *gin.Context) {
	id := c.Param("id")
	limit := utils.AtoiDefault(c.Query("limit"), 0)
	moves, err := h.inventory.Movements(c.Request.Context(), id, limit)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"movements": moves})
}

// ListOutOfStockFrames returns every filtered frame with zero stock.
func (h *Handlers) ListOutOfStockFrames(c *gin.Context) {
	filters := frameFilters(c)
	frames, err := cached(c, h.cache, querycache.FamilyInventory, "frames-out-of-stock",
		map[string]any{"filters": filters},
		func(ctx context.Context) ([]domain.Frame, error) {
			return h.inventory.OutOfStock(ctx, filters)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"frames": frames})
}
