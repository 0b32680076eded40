// Package repo – sales note repository: ticket creation with atomic stock
// decrements, paginated listing, and sales aggregates.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/feed"
)

// SaleFilters scopes sales listings and aggregates. Zero values mean "no
// filter"; From/To bound CreatedAt inclusively.
type SaleFilters struct {
	CustomerID string     `json:"customer_id,omitempty"`
	VendorID   string     `json:"vendor_id,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
}

func (f SaleFilters) apply(q *gorm.DB) *gorm.DB {
	if f.CustomerID != "" {
		q = q.Where("sale_notes.customer_id = ?", f.CustomerID)
	}
	if f.VendorID != "" {
		q = q.Where("sale_notes.vendor_id = ?", f.VendorID)
	}
	if f.From != nil {
		q = q.Where("sale_notes.created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("sale_notes.created_at <= ?", *f.To)
	}
	return q
}

// CreateSaleNote persists a sales note, its line items, and the stock
// decrement (plus signed movement) for every item, in a single transaction.
// Any failing decrement, including ErrInsufficientStock, rolls the whole
// ticket back, so a partially applied sale is never observable. The note's
// ID, item IDs, and cached total must be assigned by the caller (service
// layer) beforehand.
func CreateSaleNote(ctx context.Context, db *gorm.DB, note *domain.SaleNote) (*domain.SaleNote, error) {
	err := feed.Transact(ctx, db, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Create(note).Error; err != nil {
			return err
		}
		for i := range note.Items {
			item := &note.Items[i]
			if _, err := ReduceFrameStock(ctx, tx, item.FrameID, item.Quantity, "sale", note.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// GetSaleNote fetches a sales note with items, customer, and vendor
// preloaded. Returns ErrNotFound if missing.
func GetSaleNote(ctx context.Context, db *gorm.DB, id string) (*domain.SaleNote, error) {
	var n domain.SaleNote
	err := db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Frame").
		Preload("Customer").
		Preload("Vendor").
		First(&n, "sale_notes.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteSaleNote soft-deletes a sales note and writes a compensating
// restock (with movement rows) for each line item, in one transaction.
func DeleteSaleNote(ctx context.Context, db *gorm.DB, id string) error {
	return feed.Transact(ctx, db, func(ctx context.Context, tx *gorm.DB) error {
		var n domain.SaleNote
		if err := tx.Preload("Items").First(&n, "id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.SaleNote{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		for i := range n.Items {
			it := n.Items[i]
			if _, err := RestockFrame(ctx, tx, it.FrameID, it.Quantity, "sale voided"); err != nil {
				return err
			}
		}
		return nil
	})
}

// CountSaleNotes returns the number of sales notes matching the filters.
func CountSaleNotes(ctx context.Context, db *gorm.DB, filters SaleFilters) (int64, error) {
	var total int64
	err := filters.apply(db.WithContext(ctx).Model(&domain.SaleNote{})).Count(&total).Error
	return total, err
}

// ListSaleNotesPage returns one page of sales notes (most recent first)
// matching the filters, with items and customers preloaded.
func ListSaleNotesPage(ctx context.Context, db *gorm.DB, filters SaleFilters, offset, limit int) ([]domain.SaleNote, error) {
	var out []domain.SaleNote
	err := filters.apply(db.WithContext(ctx).Model(&domain.SaleNote{})).
		Preload("Items").
		Preload("Customer").
		Order("sale_notes.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SalesStats aggregates notes matching the filters: ticket count, units
// sold, and revenue (sum of cached totals).
type SalesStats struct {
	Tickets int64   `json:"tickets"`
	Units   int64   `json:"units"`
	Revenue float64 `json:"revenue"`
}

// GetSalesStats computes SalesStats for the filter scope.
func GetSalesStats(ctx context.Context, db *gorm.DB, filters SaleFilters) (*SalesStats, error) {
	var stats SalesStats

	q := filters.apply(db.WithContext(ctx).Model(&domain.SaleNote{}))
	row := struct {
		Tickets int64
		Revenue float64
	}{}
	if err := q.Select("COUNT(*) AS tickets, COALESCE(SUM(total), 0) AS revenue").Scan(&row).Error; err != nil {
		return nil, err
	}
	stats.Tickets = row.Tickets
	stats.Revenue = row.Revenue

	uq := filters.apply(db.WithContext(ctx).Model(&domain.SaleNote{})).
		Joins("JOIN sale_items ON sale_items.sale_note_id = sale_notes.id")
	urow := struct{ Units int64 }{}
	if err := uq.Select("COALESCE(SUM(sale_items.quantity), 0) AS units").Scan(&urow).Error; err != nil {
		return nil, err
	}
	stats.Units = urow.Units
	return &stats, nil
}

// BestSellerRow is one frame in the best-selling ranking.
type BestSellerRow struct {
	FrameID string  `json:"frame_id"`
	SKU     string  `json:"sku"`
	Model   string  `json:"model"`
	Units   int64   `json:"units"`
	Revenue float64 `json:"revenue"`
}

// BestSellingFrames ranks frames by units sold within the filter scope.
func BestSellingFrames(ctx context.Context, db *gorm.DB, filters SaleFilters, limit int) ([]BestSellerRow, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []BestSellerRow
	err := filters.apply(db.WithContext(ctx).Model(&domain.SaleNote{})).
		Joins("JOIN sale_items ON sale_items.sale_note_id = sale_notes.id").
		Joins("JOIN frames ON frames.id = sale_items.frame_id").
		Select("frames.id AS frame_id, frames.sku AS sku, frames.model AS model, " +
			"SUM(sale_items.quantity) AS units, " +
			"SUM(sale_items.quantity * sale_items.unit_price) AS revenue").
		Group("frames.id, frames.sku, frames.model").
		Order("units DESC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// VendorSalesRow is one vendor's slice of the sales aggregate.
type VendorSalesRow struct {
	VendorID string  `json:"vendor_id"`
	Vendor   string  `json:"vendor"`
	Tickets  int64   `json:"tickets"`
	Revenue  float64 `json:"revenue"`
}

// SalesByVendor groups notes in the filter scope by vendor.
func SalesByVendor(ctx context.Context, db *gorm.DB, filters SaleFilters) ([]VendorSalesRow, error) {
	var out []VendorSalesRow
	err := filters.apply(db.WithContext(ctx).Model(&domain.SaleNote{})).
		Joins("LEFT JOIN users ON users.id = sale_notes.vendor_id").
		Select("COALESCE(sale_notes.vendor_id, '') AS vendor_id, COALESCE(users.name, '(unassigned)') AS vendor, " +
			"COUNT(*) AS tickets, COALESCE(SUM(sale_notes.total), 0) AS revenue").
		Group("sale_notes.vendor_id, vendor").
		Order("revenue DESC").
		Scan(&out).Error
	return out, err
}

// NewSaleItem builds a line item with a fresh UUID.
func NewSaleItem(frameID string, qty int, unitPrice float64) domain.SaleItem {
	return domain.SaleItem{
		ID:        uuid.NewString(),
		FrameID:   frameID,
		Quantity:  qty,
		UnitPrice: unitPrice,
	}
}
