// Customer HTTP handlers: customer CRUD with diacritic-insensitive search,
// company affiliations, and prescription history.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lensworks/go-optics-backend/internal/domain"
	"github.com/lensworks/go-optics-backend/internal/querycache"
	"github.com/lensworks/go-optics-backend/internal/services"
)

// ListCustomersResponse wraps a page of customers and pagination
// information.
type ListCustomersResponse struct {
	Customers  []domain.Customer `json:"customers"`
	Pagination Pagination        `json:"pagination"`
}

// ListCustomers returns a page of customers, optionally filtered with
// ?search (accent-insensitive).
func (h *Handlers) ListCustomers(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	page, pageSize := clampPagination(c)

	params := map[string]any{"search": services.FoldName(search), "page": page, "page_size": pageSize}
	resp, err := cached(c, h.cache, querycache.FamilyCustomers, "customers-page", params,
		func(ctx context.Context) (ListCustomersResponse, error) {
			items, total, err := h.customers.ListPage(ctx, search, page, pageSize)
			if err != nil {
				return ListCustomersResponse{}, err
			}
			return ListCustomersResponse{Customers: items, Pagination: paginate(page, pageSize, total)}, nil
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// GetCustomer returns one customer with the company preloaded.
func (h *Handlers) GetCustomer(c *gin.Context) {
	id := c.Param("id")
	cust, err := cached(c, h.cache, querycache.FamilyCustomers, "customer", map[string]any{"id": id},
		func(ctx context.Context) (*domain.Customer, error) {
			return h.customers.Get(ctx, id)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, cust)
}

// CreateCustomer inserts a customer.
func (h *Handlers) CreateCustomer(c *gin.Context) {
	var req services.CustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cust, err := mutate(c, h.cache, "customer-create",
		func(ctx context.Context) (*domain.Customer, error) {
			return h.customers.Create(ctx, req)
		},
		querycache.FamilyCustomers)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, cust)
}

// UpdateCustomer applies a partial update.
func (h *Handlers) UpdateCustomer(c *gin.Context) {
	var req services.CustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	id := c.Param("id")
	cust, err := mutate(c, h.cache, "customer-update",
		func(ctx context.Context) (*domain.Customer, error) {
			return h.customers.Update(ctx, id, req)
		},
		querycache.FamilyCustomers)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, cust)
}

// DeleteCustomer soft-deletes a customer. Guarded by the admin PIN
// middleware.
func (h *Handlers) DeleteCustomer(c *gin.Context) {
	id := c.Param("id")
	_, err := mutate(c, h.cache, "customer-delete",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h.customers.Delete(ctx, id)
		},
		querycache.FamilyCustomers)
	if err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// AddPrescription appends a prescription entry to a customer's history.
func (h *Handlers) AddPrescription(c *gin.Context) {
	var req services.PrescriptionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	id := c.Param("id")
	p, err := mutate(c, h.cache, "prescription-add",
		func(ctx context.Context) (*domain.PrescriptionEntry, error) {
			return h.customers.AddPrescription(ctx, id, req)
		},
		querycache.FamilyCustomers)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// ListPrescriptions returns a customer's prescription history.
func (h *Handlers) ListPrescriptions(c *gin.Context) {
	id := c.Param("id")
	list, err := cached(c, h.cache, querycache.FamilyCustomers, "prescriptions", map[string]any{"customer_id": id},
		func(ctx context.Context) ([]domain.PrescriptionEntry, error) {
			return h.customers.Prescriptions(ctx, id)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"prescriptions": list})
}

// CompanyRequest is the JSON payload for creating a company.
type CompanyRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=160"`
	TaxID string `json:"tax_id"`
	Phone string `json:"phone"`
}

// CreateCompany inserts an agreement partner.
func (h *Handlers) CreateCompany(c *gin.Context) {
	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	co, err := mutate(c, h.cache, "company-create",
		func(ctx context.Context) (*domain.Company, error) {
			return h.customers.CreateCompany(ctx, req.Name, req.TaxID, req.Phone)
		},
		querycache.FamilyCustomers)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, co)
}

// ListCompanies returns all companies.
func (h *Handlers) ListCompanies(c *gin.Context) {
	out, err := cached(c, h.cache, querycache.FamilyCustomers, "companies", nil,
		func(ctx context.Context) ([]domain.Company, error) {
			return h.customers.ListCompanies(ctx)
		})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"companies": out})
}
