package report

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/repo"
)

// Builder assembles inventory reports from the repository aggregates.
type Builder struct {
	db           *gorm.DB
	linesPerPage int
	now          func() time.Time
}

// NewBuilder constructs a Builder. linesPerPage <= 0 selects
// DefaultLinesPerPage.
func NewBuilder(db *gorm.DB, linesPerPage int) *Builder {
	return &Builder{db: db, linesPerPage: linesPerPage, now: time.Now}
}

// dimensions, in document order.
var dimensions = []struct {
	key   string
	title string
}{
	{repo.DimBrand, "By brand"},
	{repo.DimGroup, "By group"},
	{repo.DimDescription, "By description"},
	{repo.DimSubBrand, "By sub-brand"},
}

// Build generates the inventory report for the filter scope: executive
// summary, out-of-stock listing, and one group-by table per catalog
// dimension. Any failing aggregate fails the whole report with that error;
// no partial or zeroed document is ever produced.
func (b *Builder) Build(ctx context.Context, filters repo.FrameFilters) (*Document, error) {
	summary, err := repo.GetInventorySummary(ctx, b.db, filters)
	if err != nil {
		return nil, fmt.Errorf("inventory summary: %w", err)
	}
	outOfStock, err := repo.ListOutOfStockFrames(ctx, b.db, filters)
	if err != nil {
		return nil, fmt.Errorf("out-of-stock listing: %w", err)
	}
	groups := make(map[string][]repo.GroupRow, len(dimensions))
	for _, d := range dimensions {
		rows, err := repo.GroupFramesBy(ctx, b.db, d.key, filters)
		if err != nil {
			return nil, fmt.Errorf("group by %s: %w", d.key, err)
		}
		groups[d.key] = rows
	}

	w := &docWriter{linesPerPage: b.linesPerPage}

	w.line("INVENTORY REPORT")
	w.blank()
	w.line(fmt.Sprintf("Frame types:   %d", summary.DistinctTypes))
	w.line(fmt.Sprintf("Units on hand: %d", summary.TotalUnits))
	w.line(fmt.Sprintf("Total value:   %s", FormatCurrency(summary.TotalValue)))
	w.line(fmt.Sprintf("In stock:      %d of %d (%s)",
		summary.InStock, summary.DistinctTypes,
		FormatPercent(StockPercentage(summary.InStock, summary.DistinctTypes))))
	w.blank()

	w.line("OUT OF STOCK")
	if len(outOfStock) == 0 {
		w.line("  (none)")
	} else {
		w.line(pad("Model / SKU", colName) + pad("Color", colColor) + pad("Brand", colName))
		for i := range outOfStock {
			f := &outOfStock[i]
			w.line(pad(f.Model+" / "+f.SKU, colName) + pad(f.Color, colColor) + pad(f.Brand.Name, colName))
		}
	}
	w.blank()

	for _, d := range dimensions {
		w.line(d.title)
		w.line(pad("Name", colName) + pad("Types", colCount) + pad("Units", colCount))
		for _, row := range groups[d.key] {
			w.line(pad(row.Name, colName) +
				pad(fmt.Sprintf("%d", row.DistinctTypes), colCount) +
				pad(fmt.Sprintf("%d", row.TotalUnits), colCount))
		}
		w.blank()
	}

	return &Document{
		Title:       "Inventory report",
		GeneratedAt: b.now().UTC().Format(time.RFC3339),
		Pages:       w.pages(),
	}, nil
}
