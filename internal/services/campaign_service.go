// Package services – CampaignService
//
// Campaign window management: create, list (optionally only currently
// active), update, delete.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/repo"
)

// CampaignService manages promotional discount windows.
type CampaignService struct {
	DB *gorm.DB

	now func() time.Time
}

// NewCampaignService constructs a CampaignService.
func NewCampaignService(db *gorm.DB) *CampaignService {
	return &CampaignService{DB: db, now: time.Now}
}

// CampaignInput is the caller-supplied payload for campaign writes.
type CampaignInput struct {
	Name        string    `json:"name"`
	DiscountPct float64   `json:"discount_pct"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

func (in *CampaignInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case in.DiscountPct < 0 || in.DiscountPct > 100:
		return fmt.Errorf("%w: discount percentage must be within 0-100", ErrValidation)
	case !in.EndsAt.After(in.StartsAt):
		return fmt.Errorf("%w: campaign must end after it starts", ErrValidation)
	}
	return nil
}

// Create inserts a campaign.
func (s *CampaignService) Create(ctx context.Context, in CampaignInput) (*domain.Campaign, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return repo.CreateCampaign(ctx, s.DB, &domain.Campaign{
		Name:        in.Name,
		DiscountPct: in.DiscountPct,
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
	})
}

// Get fetches a campaign by ID.
func (s *CampaignService) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := repo.GetCampaign(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return c, nil
}

// List returns campaigns; with activeOnly, just those covering the current
// time.
func (s *CampaignService) List(ctx context.Context, activeOnly bool) ([]domain.Campaign, error) {
	if activeOnly {
		now := s.now().UTC()
		return repo.ListCampaigns(ctx, s.DB, &now)
	}
	return repo.ListCampaigns(ctx, s.DB, nil)
}

// Update applies a partial update to a campaign.
func (s *CampaignService) Update(ctx context.Context, id string, in CampaignInput) (*domain.Campaign, error) {
	fields := map[string]any{}
	if name := strings.TrimSpace(in.Name); name != "" {
		fields["name"] = name
	}
	if in.DiscountPct > 0 {
		if in.DiscountPct > 100 {
			return nil, fmt.Errorf("%w: discount percentage must be within 0-100", ErrValidation)
		}
		fields["discount_pct"] = in.DiscountPct
	}
	if !in.StartsAt.IsZero() {
		fields["starts_at"] = in.StartsAt
	}
	if !in.EndsAt.IsZero() {
		fields["ends_at"] = in.EndsAt
	}
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}
	if err := repo.UpdateCampaign(ctx, s.DB, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes a campaign.
func (s *CampaignService) Delete(ctx context.Context, id string) error {
	if err := repo.DeleteCampaign(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCampaignNotFound
		}
		return err
	}
	return nil
}
