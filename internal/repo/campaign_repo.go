// Package repo – campaign and user repositories.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
)

// CreateCampaign inserts a campaign.
func CreateCampaign(ctx context.Context, db *gorm.DB, c *domain.Campaign) (*domain.Campaign, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetCampaign fetches a campaign by ID.
func GetCampaign(ctx context.Context, db *gorm.DB, id string) (*domain.Campaign, error) {
	var c domain.Campaign
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCampaigns returns campaigns, optionally only those active at now.
func ListCampaigns(ctx context.Context, db *gorm.DB, activeAt *time.Time) ([]domain.Campaign, error) {
	q := db.WithContext(ctx).Order("starts_at DESC")
	if activeAt != nil {
		q = q.Where("starts_at <= ? AND ends_at >= ?", *activeAt, *activeAt)
	}
	var out []domain.Campaign
	err := q.Find(&out).Error
	return out, err
}

// UpdateCampaign applies a partial update. Returns ErrNotFound when no row
// was affected.
func UpdateCampaign(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Campaign{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCampaign soft-deletes a campaign.
func DeleteCampaign(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Campaign{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateUser inserts a vendor/operator record.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) (*domain.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser fetches a user by ID.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all users ordered by name.
func ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}
