// Package repo – catalog dimension repositories (brands, groups, sub-brands,
// descriptions). These are small name tables the inventory joins against.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
)

// CreateBrand inserts a brand. Name uniqueness violations surface as the
// raw DB error.
func CreateBrand(ctx context.Context, db *gorm.DB, name string) (*domain.Brand, error) {
	b := &domain.Brand{ID: uuid.NewString(), Name: name}
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

// ListBrands returns all brands ordered by name.
func ListBrands(ctx context.Context, db *gorm.DB) ([]domain.Brand, error) {
	var out []domain.Brand
	err := db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

// CreateGroup inserts a group.
func CreateGroup(ctx context.Context, db *gorm.DB, name string) (*domain.Group, error) {
	g := &domain.Group{ID: uuid.NewString(), Name: name}
	if err := db.WithContext(ctx).Create(g).Error; err != nil {
		return nil, err
	}
	return g, nil
}

// ListGroups returns all groups ordered by name.
func ListGroups(ctx context.Context, db *gorm.DB) ([]domain.Group, error) {
	var out []domain.Group
	err := db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

// CreateSubBrand inserts a sub-brand, optionally linked to a brand.
func CreateSubBrand(ctx context.Context, db *gorm.DB, name, brandID string) (*domain.SubBrand, error) {
	s := &domain.SubBrand{ID: uuid.NewString(), Name: name, BrandID: domain.OptionalID(brandID)}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// ListSubBrands returns all sub-brands ordered by name, optionally scoped
// to one brand.
func ListSubBrands(ctx context.Context, db *gorm.DB, brandID string) ([]domain.SubBrand, error) {
	q := db.WithContext(ctx).Order("name ASC")
	if brandID != "" {
		q = q.Where("brand_id = ?", brandID)
	}
	var out []domain.SubBrand
	err := q.Find(&out).Error
	return out, err
}

// CreateDescription inserts a description.
func CreateDescription(ctx context.Context, db *gorm.DB, name string) (*domain.Description, error) {
	d := &domain.Description{ID: uuid.NewString(), Name: name}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// ListDescriptions returns all descriptions ordered by name.
func ListDescriptions(ctx context.Context, db *gorm.DB) ([]domain.Description, error) {
	var out []domain.Description
	err := db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}
