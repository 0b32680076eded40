// Catalog dimension HTTP handlers: brands, groups, sub-brands,
// descriptions. Dimension lists change rarely and are served from the
// query cache under the catalog family.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/querycache"
)

// NameRequest is the JSON payload for creating a named dimension value.
type NameRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=160"`
	BrandID string `json:"brand_id"` // sub-brands only
}

// ListBrands returns all brands.
func (h *Handlers) ListBrands(c *gin.Context) {
	out, err := cached(c, h.cache, querycache.FamilyCatalog, "brands", nil,
		func(ctx context.Context) ([]domain.Brand, error) {
			return h.catalog.ListBrands(ctx)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"brands": out})
}

// CreateBrand inserts a brand.
func (h *Handlers) CreateBrand(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	b, err := mutate(c, h.cache, "brand-create",
		func(ctx context.Context) (*domain.Brand, error) {
			return h.catalog.CreateBrand(ctx, req.Name)
		},
		querycache.FamilyCatalog)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, b)
}

// ListGroups returns all groups.
func (h *Handlers) ListGroups(c *gin.Context) {
	out, err := cached(c, h.cache, querycache.FamilyCatalog, "groups", nil,
		func(ctx context.Context) ([]domain.Group, error) {
			return h.catalog.ListGroups(ctx)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"groups": out})
}

// CreateGroup inserts a group.
func (h *Handlers) CreateGroup(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	g, err := mutate(c, h.cache, "group-create",
		func(ctx context.Context) (*domain.Group, error) {
			return h.catalog.CreateGroup(ctx, req.Name)
		},
		querycache.FamilyCatalog)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, g)
}

// ListSubBrands returns sub-brands, optionally scoped to ?brand_id.
func (h *Handlers) ListSubBrands(c *gin.Context) {
	brandID := c.Query("brand_id")
	out, err := cached(c, h.cache, querycache.FamilyCatalog, "sub-brands",
		map[string]any{"brand_id": brandID},
		func(ctx context.Context) ([]domain.SubBrand, error) {
			return h.catalog.ListSubBrands(ctx, brandID)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"sub_brands": out})
}

// CreateSubBrand inserts a sub-brand.
func (h *Handlers) CreateSubBrand(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	sb, err := mutate(c, h.cache, "sub-brand-create",
		func(ctx context.Context) (*domain.SubBrand, error) {
			return h.catalog.CreateSubBrand(ctx, req.Name, req.BrandID)
		},
		querycache.FamilyCatalog)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, sb)
}

// ListDescriptions returns all descriptions.
func (h *Handlers) ListDescriptions(c *gin.Context) {
	out, err := cached(c, h.cache, querycache.FamilyCatalog, "descriptions", nil,
		func(ctx context.Context) ([]domain.Description, error) {
			return h.catalog.ListDescriptions(ctx)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"descriptions": out})
}

// CreateDescription inserts a description.
func (h *Handlers) CreateDescription(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	d, err := mutate(c, h.cache, "description-create",
		func(ctx context.Context) (*domain.Description, error) {
			return h.catalog.CreateDescription(ctx, req.Name)
		},
		querycache.FamilyCatalog)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, d)
}
