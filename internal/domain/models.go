// Package domain defines the persistence models for the optical retail
// backend: frames and their catalog dimensions, customers with prescription
// history, sales notes, cash-box sessions, stock movements, and campaigns.
// These types are mapped with GORM and form the core data layer of the
// application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// OptionalID converts a caller-supplied ID into the nullable column form
// used by optional foreign keys: the empty string means no relation and is
// stored as NULL, so the FK constraint only fires for dangling non-empty
// references.
func OptionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// IDString dereferences an optional foreign key, mapping NULL back to "".
func IDString(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

// Brand is a catalog dimension grouping frames by manufacturer brand
// (e.g. "Ray-Ban"). Names are unique.
type Brand struct {
	ID        string         `json:"id"   gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(120);not null;uniqueIndex"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"    gorm:"index"`
}

// TableName returns the database table name for Brand.
func (Brand) TableName() string { return "brands" }

// Group is a catalog dimension classifying frames by commercial group
// (e.g. "sun", "ophthalmic", "kids").
type Group struct {
	ID        string         `json:"id"   gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(120);not null;uniqueIndex"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"    gorm:"index"`
}

// TableName returns the database table name for Group.
func (Group) TableName() string { return "groups" }

// SubBrand is a catalog dimension for a brand's sub-line (e.g. "Aviator").
type SubBrand struct {
	ID        string         `json:"id"                 gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"               gorm:"type:varchar(120);not null"`
	BrandID   *string        `json:"brand_id,omitempty" gorm:"type:char(36);index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"                  gorm:"index"`

	Brand Brand `json:"-" gorm:"foreignKey:BrandID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for SubBrand.
func (SubBrand) TableName() string { return "sub_brands" }

// Description is a catalog dimension for frame material/shape descriptions
// (e.g. "metal full-rim").
type Description struct {
	ID        string         `json:"id"   gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(160);not null;uniqueIndex"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"    gorm:"index"`
}

// TableName returns the database table name for Description.
func (Description) TableName() string { return "descriptions" }

// Frame represents a single eyewear product (frame type) in inventory.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - SKU: unique stock-keeping unit; the uniqueness constraint is the
//     authoritative guard against duplicates (pre-checks are best-effort).
//   - Stock: units on hand; never negative. Decrements go through the
//     conditional-update path in the repo layer, which also writes a
//     StockMovement row in the same transaction.
//   - Price: unit sale price. Stored as float64; display rounding happens
//     at presentation time only.
type Frame struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	SKU           string         `json:"sku"            gorm:"type:varchar(64);not null;uniqueIndex:ux_frames_sku"`
	Model         string         `json:"model"          gorm:"type:varchar(120);not null"`
	Color         string         `json:"color"          gorm:"type:varchar(64)"`
	Size          string         `json:"size"           gorm:"type:varchar(32)"`
	Price         float64        `json:"price"          gorm:"not null;default:0"`
	Stock         int            `json:"stock"          gorm:"not null;default:0;check:stock >= 0"`
	BrandID       *string        `json:"brand_id,omitempty"       gorm:"type:char(36);index"`
	GroupID       *string        `json:"group_id,omitempty"       gorm:"type:char(36);index"`
	SubBrandID    *string        `json:"sub_brand_id,omitempty"   gorm:"type:char(36);index"`
	DescriptionID *string        `json:"description_id,omitempty" gorm:"type:char(36);index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"                        gorm:"index"`

	Brand       Brand       `json:"brand,omitempty"       gorm:"foreignKey:BrandID;references:ID"`
	Group       Group       `json:"group,omitempty"       gorm:"foreignKey:GroupID;references:ID"`
	SubBrand    SubBrand    `json:"sub_brand,omitempty"   gorm:"foreignKey:SubBrandID;references:ID"`
	Description Description `json:"description,omitempty" gorm:"foreignKey:DescriptionID;references:ID"`
}

// TableName returns the database table name for Frame.
func (Frame) TableName() string { return "frames" }

// StockMovement is the signed audit trail of inventory changes. Sales write
// negative quantities, receipts positive ones. SaleNoteID links a movement
// back to the sale that caused it, when there is one.
type StockMovement struct {
	ID         string    `json:"id"                     gorm:"type:char(36);primaryKey"`
	FrameID    string    `json:"frame_id"               gorm:"type:char(36);not null;index:idx_stock_moves_frame"`
	Quantity   int       `json:"quantity"               gorm:"not null"` // signed: -N for sales, +N for receipts
	Reason     string    `json:"reason"                 gorm:"type:varchar(160)"`
	SaleNoteID *string   `json:"sale_note_id,omitempty" gorm:"type:char(36);index"`
	CreatedAt  time.Time `json:"created_at"             gorm:"index:idx_stock_moves_frame,priority:2"`

	Frame Frame `json:"-" gorm:"foreignKey:FrameID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for StockMovement.
func (StockMovement) TableName() string { return "stock_movements" }

// Company is an agreement partner (insurer or employer) that customers may
// be affiliated with for billing purposes.
type Company struct {
	ID        string         `json:"id"   gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(160);not null;uniqueIndex"`
	TaxID     string         `json:"tax_id" gorm:"type:varchar(32)"`
	Phone     string         `json:"phone"  gorm:"type:varchar(32)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Company.
func (Company) TableName() string { return "companies" }

// Customer represents a retail customer. SearchName holds the accent-folded,
// lowercased rendering of Name used for diacritic-insensitive lookups; it is
// maintained by the service layer on every write.
type Customer struct {
	ID         string         `json:"id"                   gorm:"type:char(36);primaryKey"`
	Name       string         `json:"name"                 gorm:"type:varchar(160);not null"`
	SearchName string         `json:"-"                    gorm:"type:varchar(160);not null;index"`
	Email      string         `json:"email"                gorm:"type:varchar(160)"`
	Phone      string         `json:"phone"                gorm:"type:varchar(32)"`
	Address    string         `json:"address"              gorm:"type:varchar(255)"`
	CompanyID  *string        `json:"company_id,omitempty" gorm:"type:char(36);index"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"                    gorm:"index"`

	Company Company `json:"company,omitempty" gorm:"foreignKey:CompanyID;references:ID"`
}

// TableName returns the database table name for Customer.
func (Customer) TableName() string { return "customers" }

// PrescriptionEntry is one optical prescription in a customer's history.
// Sphere/cylinder/axis/addition are recorded per eye (OD right, OS left).
type PrescriptionEntry struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	CustomerID string    `json:"customer_id" gorm:"type:char(36);not null;index:idx_rx_customer"`
	SphereOD   float64   `json:"sphere_od"`
	SphereOS   float64   `json:"sphere_os"`
	CylinderOD float64   `json:"cylinder_od"`
	CylinderOS float64   `json:"cylinder_os"`
	AxisOD     int       `json:"axis_od"`
	AxisOS     int       `json:"axis_os"`
	AddOD      float64   `json:"add_od"`
	AddOS      float64   `json:"add_os"`
	Notes      string    `json:"notes"      gorm:"type:text"`
	IssuedAt   time.Time `json:"issued_at"  gorm:"index:idx_rx_customer,priority:2"`
	CreatedAt  time.Time `json:"created_at"`

	Customer Customer `json:"-" gorm:"foreignKey:CustomerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PrescriptionEntry.
func (PrescriptionEntry) TableName() string { return "prescriptions" }

// User is a vendor/operator identity used to attribute sales and cash-box
// sessions. Authentication itself is delegated to the identity provider;
// only the vendor record lives here.
type User struct {
	ID        string         `json:"id"   gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(120);not null"`
	Email     string         `json:"email" gorm:"type:varchar(160);uniqueIndex"`
	Role      string         `json:"role" gorm:"type:varchar(32);not null;default:'vendor';check:role IN ('vendor','admin')"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// SaleNote is a sales ticket: a customer purchase of one or more frames,
// with an optional discount. Total is derived from the line items minus the
// discount; the stored value is a display cache, recomputed on write and
// never treated as an independent source of truth.
type SaleNote struct {
	ID             string         `json:"id"                    gorm:"type:char(36);primaryKey"`
	CustomerID     *string        `json:"customer_id,omitempty" gorm:"type:char(36);index"`
	VendorID       *string        `json:"vendor_id,omitempty"   gorm:"type:char(36);index"`
	CampaignID     *string        `json:"campaign_id,omitempty" gorm:"type:char(36);index"`
	DiscountPct    float64        `json:"discount_pct"    gorm:"not null;default:0"`
	DiscountAmount float64        `json:"discount_amount" gorm:"not null;default:0"`
	Total          float64        `json:"total"           gorm:"not null;default:0"`
	Notes          string         `json:"notes"           gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at"      gorm:"index"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	Customer Customer   `json:"customer,omitempty" gorm:"foreignKey:CustomerID;references:ID"`
	Vendor   User       `json:"vendor,omitempty"   gorm:"foreignKey:VendorID;references:ID"`
	Items    []SaleItem `json:"items,omitempty"    gorm:"foreignKey:SaleNoteID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SaleNote.
func (SaleNote) TableName() string { return "sale_notes" }

// Subtotal returns the pre-discount sum of the note's line items.
func (s *SaleNote) Subtotal() float64 {
	var sum float64
	for i := range s.Items {
		sum += s.Items[i].UnitPrice * float64(s.Items[i].Quantity)
	}
	return sum
}

// ComputeTotal derives the note total from its items and discount fields:
// subtotal reduced by the percentage discount first, then the flat amount,
// floored at zero.
func (s *SaleNote) ComputeTotal() float64 {
	total := s.Subtotal()
	if s.DiscountPct > 0 {
		total -= total * s.DiscountPct / 100
	}
	total -= s.DiscountAmount
	if total < 0 {
		total = 0
	}
	return total
}

// SaleItem is one line of a sales note: a frame and the quantity sold at a
// captured unit price (the frame's price at sale time).
type SaleItem struct {
	ID         string    `json:"id"           gorm:"type:char(36);primaryKey"`
	SaleNoteID string    `json:"sale_note_id" gorm:"type:char(36);not null;index"`
	FrameID    string    `json:"frame_id"     gorm:"type:char(36);not null;index"`
	Quantity   int       `json:"quantity"     gorm:"not null;check:quantity > 0"`
	UnitPrice  float64   `json:"unit_price"   gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`

	Frame Frame `json:"frame,omitempty" gorm:"foreignKey:FrameID;references:ID"`
}

// TableName returns the database table name for SaleItem.
func (SaleItem) TableName() string { return "sale_items" }

// CashSession is one cash-box shift: opened with a float amount, closed with
// a counted amount. At most one session may be open at a time; the repo
// layer enforces this.
type CashSession struct {
	ID            string     `json:"id"        gorm:"type:char(36);primaryKey"`
	UserID        string     `json:"user_id"   gorm:"type:char(36);index"`
	OpeningAmount float64    `json:"opening_amount" gorm:"not null;default:0"`
	ClosingAmount *float64   `json:"closing_amount,omitempty"`
	OpenedAt      time.Time  `json:"opened_at" gorm:"index"`
	ClosedAt      *time.Time `json:"closed_at,omitempty" gorm:"index"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Movements []CashMovement `json:"movements,omitempty" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for CashSession.
func (CashSession) TableName() string { return "cash_sessions" }

// Open reports whether the session has not been closed yet.
func (s *CashSession) Open() bool { return s.ClosedAt == nil }

// Cash movement kinds.
const (
	MovementIncome  = "income"
	MovementExpense = "expense"
)

// CashMovement is a single income or expense entry within a cash session.
// Amounts are always positive; Kind carries the sign.
type CashMovement struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string    `json:"session_id" gorm:"type:char(36);not null;index"`
	Kind      string    `json:"kind"       gorm:"type:varchar(16);not null;check:kind IN ('income','expense')"`
	Concept   string    `json:"concept"    gorm:"type:varchar(160);not null"`
	Amount    float64   `json:"amount"     gorm:"not null;check:amount > 0"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for CashMovement.
func (CashMovement) TableName() string { return "cash_movements" }

// Signed returns the movement amount with its sign applied (negative for
// expenses).
func (m *CashMovement) Signed() float64 {
	if m.Kind == MovementExpense {
		return -m.Amount
	}
	return m.Amount
}

// Campaign is a promotional discount window applied to sales.
type Campaign struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Name        string         `json:"name"         gorm:"type:varchar(160);not null"`
	DiscountPct float64        `json:"discount_pct" gorm:"not null;default:0"`
	StartsAt    time.Time      `json:"starts_at"`
	EndsAt      time.Time      `json:"ends_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Campaign.
func (Campaign) TableName() string { return "campaigns" }

// ActiveAt reports whether the campaign window covers t.
func (c *Campaign) ActiveAt(t time.Time) bool {
	return !t.Before(c.StartsAt) && !t.After(c.EndsAt)
}
