// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Frame
// model: inventory CRUD, filtered/paginated listing with a sort allow-list,
// and the atomic stock decrement used by sales.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/feed"
)

// FrameFilters is the closed filter parameter set for inventory queries.
// Every aggregate and report query takes the same structure, so a filtered
// report always reflects exactly the subset the paginated view shows.
// Fields are IDs of the catalog dimensions; zero values mean "no filter".
type FrameFilters struct {
	BrandID       string `json:"brand_id,omitempty"`
	GroupID       string `json:"group_id,omitempty"`
	SubBrandID    string `json:"sub_brand_id,omitempty"`
	DescriptionID string `json:"description_id,omitempty"`
	Search        string `json:"search,omitempty"`        // matches SKU or model, case-insensitive
	InStockOnly   bool   `json:"in_stock_only,omitempty"` // stock > 0
}

// apply composes the filter's WHERE clauses onto q.
func (f FrameFilters) apply(q *gorm.DB) *gorm.DB {
	if f.BrandID != "" {
		q = q.Where("frames.brand_id = ?", f.BrandID)
	}
	if f.GroupID != "" {
		q = q.Where("frames.group_id = ?", f.GroupID)
	}
	if f.SubBrandID != "" {
		q = q.Where("frames.sub_brand_id = ?", f.SubBrandID)
	}
	if f.DescriptionID != "" {
		q = q.Where("frames.description_id = ?", f.DescriptionID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(frames.sku) LIKE ? OR LOWER(frames.model) LIKE ?", like, like)
	}
	if f.InStockOnly {
		q = q.Where("frames.stock > 0")
	}
	return q
}

// FrameSort selects the ordering of inventory listings. Key must be in the
// allow-list below; anything else is rejected with ErrBadSortKey.
type FrameSort struct {
	Key  string `json:"key,omitempty"`
	Desc bool   `json:"desc,omitempty"`
}

// frameSortColumns is the allow-list mapping sort keys to columns. Caller
// input never reaches the ORDER BY clause directly.
var frameSortColumns = map[string]string{
	"":           "frames.created_at",
	"created_at": "frames.created_at",
	"sku":        "frames.sku",
	"model":      "frames.model",
	"price":      "frames.price",
	"stock":      "frames.stock",
}

// orderClause resolves the sort to a SQL ORDER BY expression.
func (s FrameSort) orderClause() (string, error) {
	col, ok := frameSortColumns[s.Key]
	if !ok {
		return "", ErrBadSortKey
	}
	if s.Desc {
		return col + " DESC", nil
	}
	return col + " ASC", nil
}

// CreateFrame inserts a new frame with a UUID primary key. The SKU
// uniqueness constraint is the authoritative duplicate guard; violations
// surface as the raw DB error for the service layer to map.
func CreateFrame(ctx context.Context, db *gorm.DB, f *domain.Frame) (*domain.Frame, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(f).Error; err != nil {
		return nil, err
	}
	return f, nil
}

// GetFrame fetches a single frame by ID with its catalog dimensions
// preloaded. Returns ErrNotFound if the record does not exist.
func GetFrame(ctx context.Context, db *gorm.DB, id string) (*domain.Frame, error) {
	var f domain.Frame
	err := db.WithContext(ctx).
		Preload("Brand").
		Preload("Group").
		Preload("SubBrand").
		Preload("Description").
		First(&f, "frames.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FrameSKUExists reports whether any frame (excluding excludeID, which may
// be empty) already carries sku. It is a best-effort fast path for the UX;
// the unique index remains the source of truth.
func FrameSKUExists(ctx context.Context, db *gorm.DB, sku, excludeID string) (bool, error) {
	q := db.WithContext(ctx).Model(&domain.Frame{}).Where("sku = ?", sku)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateFrame applies a partial update to the frame identified by id.
// Returns ErrNotFound when no row was affected.
func UpdateFrame(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Frame{}).
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

// DeleteFrame soft-deletes the frame. Returns ErrNotFound when there is no
// such row.
func DeleteFrame(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Frame{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountFrames returns the number of frames matching the filters.
func CountFrames(ctx context.Context, db *gorm.DB, filters FrameFilters) (int64, error) {
	var total int64
	err := filters.apply(db.WithContext(ctx).Model(&domain.Frame{})).Count(&total).Error
	return total, err
}

// ListFramesPage returns one page of frames matching the filters, ordered
// by the allow-listed sort. Use CountFrames for pagination metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListFramesPage(ctx context.Context, db *gorm.DB, filters FrameFilters, sort FrameSort, offset, limit int) ([]domain.Frame, error) {
	order, err := sort.orderClause()
	if err != nil {
		return nil, err
	}
	var out []domain.Frame
	err = filters.apply(db.WithContext(ctx).Model(&domain.Frame{})).
		Preload("Brand").
		Preload("Group").
		Preload("SubBrand").
		Preload("Description").
		Order(order).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListOutOfStockFrames returns every frame matching the filters whose stock
// is zero, ordered by model. The InStockOnly filter flag is ignored here by
// construction.
func ListOutOfStockFrames(ctx context.Context, db *gorm.DB, filters FrameFilters) ([]domain.Frame, error) {
	filters.InStockOnly = false
	var out []domain.Frame
	err := filters.apply(db.WithContext(ctx).Model(&domain.Frame{})).
		Where("frames.stock = 0").
		Preload("Brand").
		Order("frames.model ASC").
		Find(&out).Error
	return out, err
}

// ReduceFrameStock atomically decrements a frame's stock by qty and records
// the signed movement, in one transaction:
//
//	UPDATE frames SET stock = stock - ? WHERE id = ? AND stock >= ?
//
// Zero rows affected means either the frame is missing (ErrNotFound) or it
// does not hold enough units (ErrInsufficientStock); in both cases nothing
// is written. Callers never observe a decrement without its movement row or
// vice versa.
func ReduceFrameStock(ctx context.Context, db *gorm.DB, frameID string, qty int, reason, saleNoteID string) (*domain.Frame, error) {
	var out *domain.Frame
	err := feed.Transact(ctx, db, func(ctx context.Context, tx *gorm.DB) error {
		res := tx.Model(&domain.Frame{}).
			Where("id = ? AND stock >= ?", frameID, qty).
			Update("stock", gorm.Expr("stock - ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&domain.Frame{}).Where("id = ?", frameID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrNotFound
			}
			return ErrInsufficientStock
		}

		mv := &domain.StockMovement{
			ID:         uuid.NewString(),
			FrameID:    frameID,
			Quantity:   -qty,
			Reason:     reason,
			SaleNoteID: domain.OptionalID(saleNoteID),
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.Create(mv).Error; err != nil {
			return err
		}

		var f domain.Frame
		if err := tx.First(&f, "id = ?", frameID).Error; err != nil {
			return err
		}
		out = &f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RestockFrame increments a frame's stock by qty and records the positive
// movement, in one transaction. Returns ErrNotFound for a missing frame.
func RestockFrame(ctx context.Context, db *gorm.DB, frameID string, qty int, reason string) (*domain.Frame, error) {
	var out *domain.Frame
	err := feed.Transact(ctx, db, func(ctx context.Context, tx *gorm.DB) error {
		res := tx.Model(&domain.Frame{}).
			Where("id = ?", frameID).
			Update("stock", gorm.Expr("stock + ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		mv := &domain.StockMovement{
			ID:        uuid.NewString(),
			FrameID:   frameID,
			Quantity:  qty,
			Reason:    reason,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(mv).Error; err != nil {
			return err
		}

		var f domain.Frame
		if err := tx.First(&f, "id = ?", frameID).Error; err != nil {
			return err
		}
		out = &f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListStockMovements returns a frame's movement history, most recent first.
func ListStockMovements(ctx context.Context, db *gorm.DB, frameID string, limit int) ([]domain.StockMovement, error) {
	q := db.WithContext(ctx).
		Where("frame_id = ?", frameID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.StockMovement
	err := q.Find(&out).Error
	return out, err
}
