// Package services – CustomerService
//
// This file implements the CustomerService, which manages customer records,
// their company affiliations, and prescription history. Customer names are
// accent-folded into SearchName on every write so lookups are
// diacritic-insensitive ("jose" finds "José").
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

// CustomerRepo defines the repository contract required by CustomerService.
type CustomerRepo interface {
	CreateCustomer(ctx context.Context, db *gorm.DB, c *domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, db *gorm.DB, id string) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error
	DeleteCustomer(ctx context.Context, db *gorm.DB, id string) error
	CountCustomers(ctx context.Context, db *gorm.DB, search string) (int64, error)
	ListCustomersPage(ctx context.Context, db *gorm.DB, search string, offset, limit int) ([]domain.Customer, error)
	AddPrescription(ctx context.Context, db *gorm.DB, p *domain.PrescriptionEntry) (*domain.PrescriptionEntry, error)
	ListPrescriptions(ctx context.Context, db *gorm.DB, customerID string) ([]domain.PrescriptionEntry, error)
}

type gormCustomerRepo struct{}

func (gormCustomerRepo) CreateCustomer(ctx context.Context, db *gorm.DB, c *domain.Customer) (*domain.Customer, error) {
	return repo.CreateCustomer(ctx, db, c)
}
func (gormCustomerRepo) GetCustomer(ctx context.Context, db *gorm.DB, id string) (*domain.Customer, error) {
	return repo.GetCustomer(ctx, db, id)
}
func (gormCustomerRepo) UpdateCustomer(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	return repo.UpdateCustomer(ctx, db, id, fields)
}
func (gormCustomerRepo) DeleteCustomer(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteCustomer(ctx, db, id)
}
func (gormCustomerRepo) CountCustomers(ctx context.Context, db *gorm.DB, search string) (int64, error) {
	return repo.CountCustomers(ctx, db, search)
}
func (gormCustomerRepo) ListCustomersPage(ctx context.Context, db *gorm.DB, search string, offset, limit int) ([]domain.Customer, error) {
	return repo.ListCustomersPage(ctx, db, search, offset, limit)
}
func (gormCustomerRepo) AddPrescription(ctx context.Context, db *gorm.DB, p *domain.PrescriptionEntry) (*domain.PrescriptionEntry, error) {
	return repo.AddPrescription(ctx, db, p)
}
func (gormCustomerRepo) ListPrescriptions(ctx context.Context, db *gorm.DB, customerID string) ([]domain.PrescriptionEntry, error) {
	return repo.ListPrescriptions(ctx, db, customerID)
}

// CustomerService provides customer, company, and prescription operations.
type CustomerService struct {
	DB   *gorm.DB
	Repo CustomerRepo
}

// NewCustomerService constructs a CustomerService backed by the default
// GORM repository.
func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{DB: db, Repo: gormCustomerRepo{}}
}

// CustomerInput is the caller-supplied payload for customer writes.
type CustomerInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	CompanyID string `json:"company_id"`
}

// Create inserts a customer, deriving SearchName from the folded name.
func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*domain.Customer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	c := &domain.Customer{
		Name:       name,
		SearchName: FoldName(name),
		Email:      strings.TrimSpace(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		Address:    strings.TrimSpace(in.Address),
		CompanyID:  domain.OptionalID(in.CompanyID),
	}
	return s.Repo.CreateCustomer(ctx, s.DB, c)
}

// Get fetches a customer with the company preloaded.
func (s *CustomerService) Get(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := s.Repo.GetCustomer(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return c, nil
}

// Update applies a partial update; a name change re-derives SearchName in
// the same write.
func (s *CustomerService) Update(ctx context.Context, id string, in CustomerInput) (*domain.Customer, error) {
	fields := map[string]any{}
	if name := strings.TrimSpace(in.Name); name != "" {
		fields["name"] = name
		fields["search_name"] = FoldName(name)
	}
	if in.Email != "" {
		fields["email"] = strings.TrimSpace(in.Email)
	}
	if in.Phone != "" {
		fields["phone"] = strings.TrimSpace(in.Phone)
	}
	if in.Address != "" {
		fields["address"] = strings.TrimSpace(in.Address)
	}
	if in.CompanyID != "" {
		fields["company_id"] = domain.OptionalID(in.CompanyID)
	}
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}
	if err := s.Repo.UpdateCustomer(ctx, s.DB, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes a customer.
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.DeleteCustomer(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCustomerNotFound
		}
		return err
	}
	return nil
}

// ListPage returns a page of customers plus the total count. The search
// term is folded before it reaches the repository.
func (s *CustomerService) ListPage(ctx context.Context, search string, page, pageSize int) ([]domain.Customer, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	folded := FoldName(search)
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountCustomers(ctx, s.DB, folded)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Customer{}, 0, nil
	}
	items, err := s.Repo.ListCustomersPage(ctx, s.DB, folded, offset, pageSize)
	return items, total, err
}

// PrescriptionInput is the payload for a new prescription entry.
type PrescriptionInput struct {
	SphereOD   float64 `json:"sphere_od"`
	SphereOS   float64 `json:"sphere_os"`
	CylinderOD float64 `json:"cylinder_od"`
	CylinderOS float64 `json:"cylinder_os"`
	AxisOD     int     `json:"axis_od"`
	AxisOS     int     `json:"axis_os"`
	AddOD      float64 `json:"add_od"`
	AddOS      float64 `json:"add_os"`
	Notes      string  `json:"notes"`
}

// AddPrescription appends an entry to the customer's history.
func (s *CustomerService) AddPrescription(ctx context.Context, customerID string, in PrescriptionInput) (*domain.PrescriptionEntry, error) {
	if _, err := s.Get(ctx, customerID); err != nil {
		return nil, err
	}
	p := &domain.PrescriptionEntry{
		CustomerID: customerID,
		SphereOD:   in.SphereOD,
		SphereOS:   in.SphereOS,
		CylinderOD: in.CylinderOD,
		CylinderOS: in.CylinderOS,
		AxisOD:     in.AxisOD,
		AxisOS:     in.AxisOS,
		AddOD:      in.AddOD,
		AddOS:      in.AddOS,
		Notes:      strings.TrimSpace(in.Notes),
	}
	return s.Repo.AddPrescription(ctx, s.DB, p)
}

// Prescriptions returns a customer's prescription history, most recent
// first.
func (s *CustomerService) Prescriptions(ctx context.Context, customerID string) ([]domain.PrescriptionEntry, error) {
	if _, err := s.Get(ctx, customerID); err != nil {
		return nil, err
	}
	return s.Repo.ListPrescriptions(ctx, s.DB, customerID)
}

// CreateCompany inserts an agreement partner.
func (s *CustomerService) CreateCompany(ctx context.Context, name, taxID, phone string) (*domain.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	c, err := repo.CreateCompany(ctx, s.DB, &domain.Company{Name: name, TaxID: taxID, Phone: phone})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: company %q already exists", ErrValidation, name)
		}
		return nil, err
	}
	return c, nil
}

// ListCompanies returns all companies.
func (s *CustomerService) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	return repo.ListCompanies(ctx, s.DB)
}
