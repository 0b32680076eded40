// Package services – CatalogService
//
// Thin operations over the four catalog dimensions (brands, groups,
// sub-brands, descriptions). Names are trimmed and required; duplicates
// surface as validation errors via the unique indexes.
package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/repo"
)

// CatalogService manages the catalog dimension tables.
type CatalogService struct {
	DB *gorm.DB
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	return name, nil
}

// CreateBrand inserts a brand.
func (s *CatalogService) CreateBrand(ctx context.Context, name string) (*domain.Brand, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}
	b, err := repo.CreateBrand(ctx, s.DB, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: brand %q already exists", ErrValidation, name)
		}
		return nil, err
	}
	return b, nil
}

// ListBrands returns all brands.
func (s *CatalogService) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return repo.ListBrands(ctx, s.DB)
}

// CreateGroup inserts a group.
func (s *CatalogService) CreateGroup(ctx context.Context, name string) (*domain.Group, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}
	g, err := repo.CreateGroup(ctx, s.DB, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: group %q already exists", ErrValidation, name)
		}
		return nil, err
	}
	return g, nil
}

// ListGroups returns all groups.
func (s *CatalogService) ListGroups(ctx context.Context) ([]domain.Group, error) {
	return repo.ListGroups(ctx, s.DB)
}

// CreateSubBrand inserts a sub-brand, optionally scoped to a brand.
func (s *CatalogService) CreateSubBrand(ctx context.Context, name, brandID string) (*domain.SubBrand, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}
	return repo.CreateSubBrand(ctx, s.DB, name, brandID)
}

// ListSubBrands returns sub-brands, all of them or one brand's.
func (s *CatalogService) ListSubBrands(ctx context.Context, brandID string) ([]domain.SubBrand, error) {
	return repo.ListSubBrands(ctx, s.DB, brandID)
}

// CreateDescription inserts a description.
func (s *CatalogService) CreateDescription(ctx context.Context, name string) (*domain.Description, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}
	d, err := repo.CreateDescription(ctx, s.DB, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: description %q already exists", ErrValidation, name)
		}
		return nil, err
	}
	return d, nil
}

// ListDescriptions returns all descriptions.
func (s *CatalogService) ListDescriptions(ctx context.Context) ([]domain.Description, error) {
	return repo.ListDescriptions(ctx, s.DB)
}
