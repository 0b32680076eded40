// Package repo – customer, company, and prescription repositories.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
)

// CreateCustomer inserts a customer row. The service layer populates
// SearchName (accent-folded) before calling.
func CreateCustomer(ctx context.Context, db *gorm.DB, c *domain.Customer) (*domain.Customer, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetCustomer fetches a customer by ID with their company preloaded.
// Returns ErrNotFound if the record does not exist.
func GetCustomer(ctx context.Context, db *gorm.DB, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := db.WithContext(ctx).Preload("Company").First(&c, "customers.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCustomer applies a partial update. Returns ErrNotFound when no row
// was affected.
func UpdateCustomer(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Customer{}).
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

// DeleteCustomer soft-deletes a customer.
func DeleteCustomer(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Customer{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountCustomers returns the total number of customers, optionally
// restricted to a folded-name search term.
func CountCustomers(ctx context.Context, db *gorm.DB, search string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Customer{})
	if search != "" {
		q = q.Where("search_name LIKE ?", "%"+search+"%")
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListCustomersPage returns a page of customers ordered by name. search is
// matched against the accent-folded SearchName column; callers fold the
// term first (see services.FoldName).
func ListCustomersPage(ctx context.Context, db *gorm.DB, search string, offset, limit int) ([]domain.Customer, error) {
	q := db.WithContext(ctx).Model(&domain.Customer{}).Preload("Company")
	if search != "" {
		q = q.Where("search_name LIKE ?", "%"+search+"%")
	}
	var out []domain.Customer
	err := q.Order("name ASC").Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// CreateCompany inserts a company.
func CreateCompany(ctx context.Context, db *gorm.DB, c *domain.Company) (*domain.Company, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// ListCompanies returns all companies ordered by name.
func ListCompanies(ctx context.Context, db *gorm.DB) ([]domain.Company, error) {
	var out []domain.Company
	err := db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

// AddPrescription appends a prescription entry to a customer's history.
func AddPrescription(ctx context.Context, db *gorm.DB, p *domain.PrescriptionEntry) (*domain.PrescriptionEntry, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.IssuedAt.IsZero() {
		p.IssuedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// ListPrescriptions returns a customer's prescription history, most recent
// first. An empty history is a valid empty result, not an error.
func ListPrescriptions(ctx context.Context, db *gorm.DB, customerID string) ([]domain.PrescriptionEntry, error) {
	var out []domain.PrescriptionEntry
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("issued_at DESC").
		Find(&out).Error
	return out, err
}
