// Package services – SaleService
//
// This file implements the SaleService, which assembles sales tickets:
// input validation, unit-price capture from the current frame catalog,
// campaign discount application, total derivation, and the delegated
// atomic stock decrement. Creation is all-or-nothing: a ticket whose items
// cannot all be served leaves stock and sales untouched.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/repo"
)

// SaleRepo defines the repository contract required by SaleService.
type SaleRepo interface {
	CreateSaleNote(ctx context.Context, db *gorm.DB, note *domain.SaleNote) (*domain.SaleNote, error)
	GetSaleNote(ctx context.Context, db *gorm.DB, id string) (*domain.SaleNote, error)
	DeleteSaleNote(ctx context.Context, db *gorm.DB, id string) error
	CountSaleNotes(ctx context.Context, db *gorm.DB, filters repo.SaleFilters) (int64, error)
	ListSaleNotesPage(ctx context.Context, db *gorm.DB, filters repo.SaleFilters, offset, limit int) ([]domain.SaleNote, error)
	GetSalesStats(ctx context.Context, db *gorm.DB, filters repo.SaleFilters) (*repo.SalesStats, error)
	BestSellingFrames(ctx context.Context, db *gorm.DB, filters repo.SaleFilters, limit int) ([]repo.BestSellerRow, error)
	SalesByVendor(ctx context.Context, db *gorm.DB, filters repo.SaleFilters) ([]repo.VendorSalesRow, error)
	GetFrame(ctx context.Context, db *gorm.DB, id string) (*domain.Frame, error)
	GetCampaign(ctx context.Context, db *gorm.DB, id string) (*domain.Campaign, error)
}

type gormSaleRepo struct{}

func (gormSaleRepo) CreateSaleNote(ctx context.Context, db *gorm.DB, note *domain.SaleNote) (*domain.SaleNote, error) {
	return repo.CreateSaleNote(ctx, db, note)
}
func (gormSaleRepo) GetSaleNote(ctx context.Context, db *gorm.DB, id string) (*domain.SaleNote, error) {
	return repo.GetSaleNote(ctx, db, id)
}
func (gormSaleRepo) DeleteSaleNote(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteSaleNote(ctx, db, id)
}
func (gormSaleRepo) CountSaleNotes(ctx context.Context, db *gorm.DB, filters repo.SaleFilters) (int64, error) {
	return repo.CountSaleNotes(ctx, db, filters)
}
func (gormSaleRepo) ListSaleNotesPage(ctx context.Context, db *gorm.DB, filters repo.SaleFilters, offset, limit int) ([]domain.SaleNote, error) {
	return repo.ListSaleNotesPage(ctx, db, filters, offset, limit)
}
func (gormSaleRepo) GetSalesStats(ctx context.Context, db *gorm.DB, filters repo.SaleFilters) (*repo.SalesStats, error) {
	return repo.GetSalesStats(ctx, db, filters)
}
func (gormSaleRepo) BestSellingFrames(ctx context.Context, db *gorm.DB, filters repo.SaleFilters, limit int) ([]repo.BestSellerRow, error) {
	return repo.BestSellingFrames(ctx, db, filters, limit)
}
func (gormSaleRepo) SalesByVendor(ctx context.Context, db *gorm.DB, filters repo.SaleFilters) ([]repo.VendorSalesRow, error) {
	return repo.SalesByVendor(ctx, db, filters)
}
func (gormSaleRepo) GetFrame(ctx context.Context, db *gorm.DB, id string) (*domain.Frame, error) {
	return repo.GetFrame(ctx, db, id)
}
func (gormSaleRepo) GetCampaign(ctx context.Context, db *gorm.DB, id string) (*domain.Campaign, error) {
	return repo.GetCampaign(ctx, db, id)
}

// SaleService provides sales ticket operations.
type SaleService struct {
	DB   *gorm.DB
	Repo SaleRepo

	// now is the clock used for campaign window checks.
	now func() time.Time
}

// NewSaleService constructs a SaleService backed by the default GORM
// repository.
func NewSaleService(db *gorm.DB) *SaleService {
	return &SaleService{DB: db, Repo: gormSaleRepo{}, now: time.Now}
}

// SaleItemInput is one requested line of a new ticket.
type SaleItemInput struct {
	FrameID  string `json:"frame_id"`
	Quantity int    `json:"quantity"`
}

// SaleInput is the caller-supplied payload for ticket creation.
type SaleInput struct {
	CustomerID     string          `json:"customer_id"`
	VendorID       string          `json:"vendor_id"`
	CampaignID     string          `json:"campaign_id"`
	DiscountPct    float64         `json:"discount_pct"`
	DiscountAmount float64         `json:"discount_amount"`
	Notes          string          `json:"notes"`
	Items          []SaleItemInput `json:"items"`
}

func (in *SaleInput) validate() error {
	if len(in.Items) == 0 {
		return ErrEmptySale
	}
	for i, it := range in.Items {
		if it.FrameID == "" {
			return fmt.Errorf("%w: item %d has no frame", ErrValidation, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be positive", ErrValidation, i)
		}
	}
	if in.DiscountPct < 0 || in.DiscountPct > 100 {
		return fmt.Errorf("%w: discount percentage must be within 0-100", ErrValidation)
	}
	if in.DiscountAmount < 0 {
		return fmt.Errorf("%w: discount amount must not be negative", ErrValidation)
	}
	return nil
}

// Create assembles and persists a sales ticket. Unit prices are captured
// from the catalog at sale time; an active campaign contributes its
// percentage discount when the caller did not set one. The stock decrement
// for every item runs atomically with the insert, so ErrInsufficientStock
// means nothing was written.
func (s *SaleService) Create(ctx context.Context, in SaleInput) (*domain.SaleNote, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	discountPct := in.DiscountPct
	if in.CampaignID != "" {
		c, err := s.Repo.GetCampaign(ctx, s.DB, in.CampaignID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCampaignNotFound
			}
			return nil, err
		}
		if !c.ActiveAt(s.now().UTC()) {
			return nil, fmt.Errorf("%w: campaign %q is not active", ErrValidation, c.Name)
		}
		if discountPct == 0 {
			discountPct = c.DiscountPct
		}
	}

	note := &domain.SaleNote{
		ID:             uuid.NewString(),
		CustomerID:     domain.OptionalID(in.CustomerID),
		VendorID:       domain.OptionalID(in.VendorID),
		CampaignID:     domain.OptionalID(in.CampaignID),
		DiscountPct:    discountPct,
		DiscountAmount: in.DiscountAmount,
		Notes:          in.Notes,
	}
	for _, it := range in.Items {
		f, err := s.Repo.GetFrame(ctx, s.DB, it.FrameID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrFrameNotFound
			}
			return nil, err
		}
		item := repo.NewSaleItem(f.ID, it.Quantity, f.Price)
		item.SaleNoteID = note.ID
		note.Items = append(note.Items, item)
	}
	note.Total = note.ComputeTotal()

	created, err := s.Repo.CreateSaleNote(ctx, s.DB, note)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrInsufficientStock):
			return nil, ErrInsufficientStock
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrFrameNotFound
		}
		return nil, err
	}
	return created, nil
}

// Get fetches a ticket with items, customer, and vendor preloaded.
func (s *SaleService) Get(ctx context.Context, id string) (*domain.SaleNote, error) {
	n, err := s.Repo.GetSaleNote(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	return n, nil
}

// Void soft-deletes a ticket and restocks its items.
func (s *SaleService) Void(ctx context.Context, id string) error {
	if err := s.Repo.DeleteSaleNote(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSaleNotFound
		}
		return err
	}
	return nil
}

// ListPage returns a page of tickets plus the total count for the filter
// scope.
func (s *SaleService) ListPage(ctx context.Context, filters repo.SaleFilters, page, pageSize int) ([]domain.SaleNote, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountSaleNotes(ctx, s.DB, filters)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.SaleNote{}, 0, nil
	}
	items, err := s.Repo.ListSaleNotesPage(ctx, s.DB, filters, offset, pageSize)
	return items, total, err
}

// Stats aggregates tickets, units, and revenue for the filter scope.
func (s *SaleService) Stats(ctx context.Context, filters repo.SaleFilters) (*repo.SalesStats, error) {
	return s.Repo.GetSalesStats(ctx, s.DB, filters)
}

// BestSellers ranks frames by units sold within the filter scope.
func (s *SaleService) BestSellers(ctx context.Context, filters repo.SaleFilters, limit int) ([]repo.BestSellerRow, error) {
	return s.Repo.BestSellingFrames(ctx, s.DB, filters, limit)
}

// ByVendor groups ticket counts and revenue per vendor.
func (s *SaleService) ByVendor(ctx context.Context, filters repo.SaleFilters) ([]repo.VendorSalesRow, error) {
	return s.Repo.SalesByVendor(ctx, s.DB, filters)
}
