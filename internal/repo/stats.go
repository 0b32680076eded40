// Package repo – inventory aggregate queries. Every aggregate takes the
// same FrameFilters as the paginated listing, so a report generated while
// filters are active reflects exactly the filtered subset.
package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
)

// InventorySummary is the executive aggregate over a (possibly filtered)
// frame set.
type InventorySummary struct {
	DistinctTypes int64   `json:"distinct_types"` // frame rows
	TotalUnits    int64   `json:"total_units"`    // SUM(stock)
	TotalValue    float64 `json:"total_value"`    // SUM(price * stock)
	InStock       int64   `json:"in_stock"`       // rows with stock > 0
}

// GetInventorySummary computes the summary in one aggregate query.
func GetInventorySummary(ctx context.Context, db *gorm.DB, filters FrameFilters) (*InventorySummary, error) {
	var s InventorySummary
	err := filters.apply(db.WithContext(ctx).Model(&domain.Frame{})).
		Select("COUNT(*) AS distinct_types, " +
			"COALESCE(SUM(frames.stock), 0) AS total_units, " +
			"COALESCE(SUM(frames.price * frames.stock), 0) AS total_value, " +
			"COALESCE(SUM(CASE WHEN frames.stock > 0 THEN 1 ELSE 0 END), 0) AS in_stock").
		Scan(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GroupRow is one bucket of a per-dimension group-by: the dimension value's
// name, how many frame types fall under it, and their summed units.
type GroupRow struct {
	Name          string `json:"name"`
	DistinctTypes int64  `json:"distinct_types"`
	TotalUnits    int64  `json:"total_units"`
}

// Dimension names accepted by GroupFramesBy.
const (
	DimBrand       = "brand"
	DimGroup       = "group"
	DimSubBrand    = "sub_brand"
	DimDescription = "description"
)

// dimensionJoins maps a dimension to its join clause and name column. This
// allow-list is the only path from caller input to SQL identifiers.
var dimensionJoins = map[string]struct {
	join string
	name string
}{
	DimBrand:       {"LEFT JOIN brands d ON d.id = frames.brand_id", "d.name"},
	DimGroup:       {`LEFT JOIN "groups" d ON d.id = frames.group_id`, "d.name"},
	DimSubBrand:    {"LEFT JOIN sub_brands d ON d.id = frames.sub_brand_id", "d.name"},
	DimDescription: {"LEFT JOIN descriptions d ON d.id = frames.description_id", "d.name"},
}

// GroupFramesBy buckets the filtered frame set by one catalog dimension.
// Frames without a value in that dimension land in the "(none)" bucket.
// Unknown dimensions are rejected.
func GroupFramesBy(ctx context.Context, db *gorm.DB, dimension string, filters FrameFilters) ([]GroupRow, error) {
	dim, ok := dimensionJoins[dimension]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadDimension, dimension)
	}
	var out []GroupRow
	err := filters.apply(db.WithContext(ctx).Model(&domain.Frame{})).
		Joins(dim.join).
		Select("COALESCE(" + dim.name + ", '(none)') AS name, " +
			"COUNT(*) AS distinct_types, " +
			"COALESCE(SUM(frames.stock), 0) AS total_units").
		Group("name").
		Order("total_units DESC, name ASC").
		Scan(&out).Error
	return out, err
}
