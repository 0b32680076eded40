// Package services – InventoryService
//
// This file implements the InventoryService, which manages the frame
// catalog: creation with SKU uniqueness handling, partial updates,
// filtered/paginated listing, out-of-stock views, and manual restocks.
// Stock decrements for sales are coordinated by SaleService; this service
// only exposes the additive side.
//
// Service-level errors (e.g., ErrFrameNotFound, ErrDuplicateSKU) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/repo"
)

// InventoryRepo defines the repository contract required by InventoryService.
type InventoryRepo interface {
	CreateFrame(ctx context.Context, db *gorm.DB, f *domain.Frame) (*domain.Frame, error)
	GetFrame(ctx context.Context, db *gorm.DB, id string) (*domain.Frame, error)
	FrameSKUExists(ctx context.Context, db *gorm.DB, sku, excludeID string) (bool, error)
	UpdateFrame(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error
	DeleteFrame(ctx context.Context, db *gorm.DB, id string) error
	CountFrames(ctx context.Context, db *gorm.DB, filters repo.FrameFilters) (int64, error)
	ListFramesPage(ctx context.Context, db *gorm.DB, filters repo.FrameFilters, sort repo.FrameSort, offset, limit int) ([]domain.Frame, error)
	ListOutOfStockFrames(ctx context.Context, db *gorm.DB, filters repo.FrameFilters) ([]domain.Frame, error)
	RestockFrame(ctx context.Context, db *gorm.DB, frameID string, qty int, reason string) (*domain.Frame, error)
	ListStockMovements(ctx context.Context, db *gorm.DB, frameID string, limit int) ([]domain.StockMovement, error)
}

// gormInventoryRepo adapts the package-level repo functions to InventoryRepo.
type gormInventoryRepo struct{}

func (gormInventoryRepo) CreateFrame(ctx context.Context, db *gorm.DB, f *domain.Frame) (*domain.Frame, error) {
	return repo.CreateFrame(ctx, db, f)
}
func (gormInventoryRepo) GetFrame(ctx context.Context, db *gorm.DB, id string) (*domain.Frame, error) {
	return repo.GetFrame(ctx, db, id)
}
func (gormInventoryRepo) FrameSKUExists(ctx context.Context, db *gorm.DB, sku, excludeID string) (bool, error) {
	return repo.FrameSKUExists(ctx, db, sku, excludeID)
}
func (gormInventoryRepo) UpdateFrame(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	return repo.UpdateFrame(ctx, db, id, fields)
}
func (gormInventoryRepo) DeleteFrame(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteFrame(ctx, db, id)
}
func (gormInventoryRepo) CountFrames(ctx context.Context, db *gorm.DB, filters repo.FrameFilters) (int64, error) {
	return repo.CountFrames(ctx, db, filters)
}
func (gormInventoryRepo) ListFramesPage(ctx context.Context, db *gorm.DB, filters repo.FrameFilters, sort repo.FrameSort, offset, limit int) ([]domain.Frame, error) {
	return repo.ListFramesPage(ctx, db, filters, sort, offset, limit)
}
func (gormInventoryRepo) ListOutOfStockFrames(ctx context.Context, db *gorm.DB, filters repo.FrameFilters) ([]domain.Frame, error) {
	return repo.ListOutOfStockFrames(ctx, db, filters)
}
func (gormInventoryRepo) RestockFrame(ctx context.Context, db *gorm.DB, frameID string, qty int, reason string) (*domain.Frame, error) {
	return repo.RestockFrame(ctx, db, frameID, qty, reason)
}
func (gormInventoryRepo) ListStockMovements(ctx context.Context, db *gorm.DB, frameID string, limit int) ([]domain.StockMovement, error) {
	return repo.ListStockMovements(ctx, db, frameID, limit)
}

// InventoryService provides frame-catalog operations.
type InventoryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the inventory repository used by this service.
	Repo InventoryRepo
}

// NewInventoryService constructs an InventoryService backed by the default
// GORM repository.
func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{DB: db, Repo: gormInventoryRepo{}}
}

// FrameInput is the caller-supplied payload for frame creation and update.
type FrameInput struct {
	SKU           string  `json:"sku"`
	Model         string  `json:"model"`
	Color         string  `json:"color"`
	Size          string  `json:"size"`
	Price         float64 `json:"price"`
	Stock         int     `json:"stock"`
	BrandID       string  `json:"brand_id"`
	GroupID       string  `json:"group_id"`
	SubBrandID    string  `json:"sub_brand_id"`
	DescriptionID string  `json:"description_id"`
}

func (in *FrameInput) validate() error {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Model = strings.TrimSpace(in.Model)
	switch {
	case in.SKU == "":
		return fmt.Errorf("%w: sku is required", ErrValidation)
	case in.Model == "":
		return fmt.Errorf("%w: model is required", ErrValidation)
	case in.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	case in.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrValidation)
	}
	return nil
}

// Create inserts a new frame. The SKU pre-check gives a friendly
// ErrDuplicateSKU fast path; the unique index remains the authoritative
// guard, so constraint violations map to the same error.
func (s *InventoryService) Create(ctx context.Context, in FrameInput) (*domain.Frame, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	exists, err := s.Repo.FrameSKUExists(ctx, s.DB, in.SKU, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateSKU
	}
	f := &domain.Frame{
		SKU:           in.SKU,
		Model:         in.Model,
		Color:         in.Color,
		Size:          in.Size,
		Price:         in.Price,
		Stock:         in.Stock,
		BrandID:       domain.OptionalID(in.BrandID),
		GroupID:       domain.OptionalID(in.GroupID),
		SubBrandID:    domain.OptionalID(in.SubBrandID),
		DescriptionID: domain.OptionalID(in.DescriptionID),
	}
	created, err := s.Repo.CreateFrame(ctx, s.DB, f)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSKU
		}
		return nil, err
	}
	return created, nil
}

// Get fetches a frame with its catalog dimensions.
func (s *InventoryService) Get(ctx context.Context, id string) (*domain.Frame, error) {
	f, err := s.Repo.GetFrame(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFrameNotFound
		}
		return nil, err
	}
	return f, nil
}

// Update applies a partial update. Only non-zero input fields are written;
// stock is excluded here, restocks and sales are the only stock writers.
func (s *InventoryService) Update(ctx context.Context, id string, in FrameInput) (*domain.Frame, error) {
	fields := map[string]any{}
	if sku := strings.TrimSpace(in.SKU); sku != "" {
		exists, err := s.Repo.FrameSKUExists(ctx, s.DB, sku, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateSKU
		}
		fields["sku"] = sku
	}
	if m := strings.TrimSpace(in.Model); m != "" {
		fields["model"] = m
	}
	if in.Color != "" {
		fields["color"] = in.Color
	}
	if in.Size != "" {
		fields["size"] = in.Size
	}
	if in.Price > 0 {
		fields["price"] = in.Price
	}
	for col, v := range map[string]string{
		"brand_id":       in.BrandID,
		"group_id":       in.GroupID,
		"sub_brand_id":   in.SubBrandID,
		"description_id": in.DescriptionID,
	} {
		if v != "" {
			fields[col] = domain.OptionalID(v)
		}
	}
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}

	if err := s.Repo.UpdateFrame(ctx, s.DB, id, fields); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrFrameNotFound
		case isUniqueViolation(err):
			return nil, ErrDuplicateSKU
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes a frame.
func (s *InventoryService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.DeleteFrame(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFrameNotFound
		}
		return err
	}
	return nil
}

// ListPage returns a page of frames plus the total count for the filter
// scope. It applies defaults for invalid page/pageSize.
func (s *InventoryService) ListPage(ctx context.Context, filters repo.FrameFilters, sort repo.FrameSort, page, pageSize int) ([]domain.Frame, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountFrames(ctx, s.DB, filters)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Frame{}, 0, nil
	}

	items, err := s.Repo.ListFramesPage(ctx, s.DB, filters, sort, offset, pageSize)
	return items, total, err
}

// OutOfStock lists every filtered frame with zero units on hand.
func (s *InventoryService) OutOfStock(ctx context.Context, filters repo.FrameFilters) ([]domain.Frame, error) {
	return s.Repo.ListOutOfStockFrames(ctx, s.DB, filters)
}

// Restock adds qty units to a frame and records the movement.
func (s *InventoryService) Restock(ctx context.Context, id string, qty int, reason string) (*domain.Frame, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if strings.TrimSpace(reason) == "" {
		reason = "restock"
	}
	f, err := s.Repo.RestockFrame(ctx, s.DB, id, qty, reason)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFrameNotFound
		}
		return nil, err
	}
	return f, nil
}

// Movements returns a frame's stock movement history, most recent first.
func (s *InventoryService) Movements(ctx context.Context, id string, limit int) ([]domain.StockMovement, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Repo.ListStockMovements(ctx, s.DB, id, limit)
}

// isUniqueViolation reports whether err is a SQLite unique constraint
// failure. The pure-Go driver surfaces these as plain errors, so the match
// is on the canonical message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed") && strings.Contains(msg, "unique")
}
