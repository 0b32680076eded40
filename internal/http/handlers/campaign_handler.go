// Campaign HTTP handlers: promotional window CRUD.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/querycache"
	"github.com/lensworks/go-optics-backend/internal/services"
)

// ListCampaigns returns campaigns; ?active=true narrows to windows
// covering the current time.
func (h *Handlers) ListCampaigns(c *gin.Context) {
	activeOnly := c.Query("active") == "true" || c.Query("active") == "1"
	out, err := cached(c, h.cache, querycache.FamilyCampaigns, "campaigns",
		map[string]any{"active": activeOnly},
		func(ctx context.Context) ([]domain.Campaign, error) {
			return h.campaigns.List(ctx, activeOnly)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"campaigns": out})
}

// GetCampaign returns one campaign.
func (h *Handlers) GetCampaign(c *gin.Context) {
	id := c.Param("id")
	cp, err := cached(c, h.cache, querycache.FamilyCampaigns, "campaign", map[string]any{"id": id},
		func(ctx context.Context) (*domain.Campaign, error) {
			return h.campaigns.Get(ctx, id)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, cp)
}

// CreateCampaign inserts a campaign.
func (h *Handlers) CreateCampaign(c *gin.Context) {
	var req services.CampaignInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cp, err := mutate(c, h.cache, "campaign-create",
		func(ctx context.Context) (*domain.Campaign, error) {
			return h.campaigns.Create(ctx, req)
		},
		querycache.FamilyCampaigns)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, cp)
}

// UpdateCampaign applies a partial update.
func (h *Handlers) UpdateCampaign(c *gin.Context) {
	var req services.CampaignInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	id := c.Param("id")
	cp, err := mutate(c, h.cache, "campaign-update",
		func(ctx context.Context) (*domain.Campaign, error) {
			return h.campaigns.Update(ctx, id, req)
		},
		querycache.FamilyCampaigns)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, cp)
}

// DeleteCampaign soft-deletes a campaign. Guarded by the admin PIN
// middleware.
func (h *Handlers) DeleteCampaign(c *gin.Context) {
	id := c.Param("id")
	_, err := mutate(c, h.cache, "campaign-delete",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h.campaigns.Delete(ctx, id)
		},
		querycache.FamilyCampaigns)
	if err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}
