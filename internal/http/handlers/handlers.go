// HTTP handler wiring.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. Reads go through the
// query cache keyed by (family, operation, parameter fingerprint); writes
// run under a declared mutation whose key patterns are invalidated once the
// store confirms the write.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lensworks/go-optics-backend/internal/querycache"
	"github.com/lensworks/go-optics-backend/internal/repo"
	"github.com/lensworks/go-optics-backend/internal/report"
	"github.com/lensworks/go-optics-backend/internal/services"
	"github.com/lensworks/go-optics-backend/internal/utils"
)

// Handlers groups the HTTP endpoints for inventory, catalog, customers,
// sales, cash box, campaigns, reports, and the change-feed stream.
type Handlers struct {
	cache *querycache.Cache

	inventory *services.InventoryService
	catalog   *services.CatalogService
	customers *services.CustomerService
	sales     *services.SaleService
	cash      *services.CashService
	campaigns *services.CampaignService
	reports   ReportBuilder

	stream *StreamHub
}

// ReportBuilder is the report generation contract consumed by the report
// endpoints.
type ReportBuilder interface {
	Build(ctx context.Context, filters repo.FrameFilters) (*report.Document, error)
}

// New constructs a Handlers instance bound to the given services. stream
// may be nil when the websocket feed is disabled.
func New(
	cache *querycache.Cache,
	inventory *services.InventoryService,
	catalog *services.CatalogService,
	customers *services.CustomerService,
	sales *services.SaleService,
	cash *services.CashService,
	campaigns *services.CampaignService,
	reports ReportBuilder,
	stream *StreamHub,
) *Handlers {
	return &Handlers{
		cache:     cache,
		inventory: inventory,
		catalog:   catalog,
		customers: customers,
		sales:     sales,
		cash:      cash,
		campaigns: campaigns,
		reports:   reports,
		stream:    stream,
	}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// paginate builds the metadata block for a page of total items.
func paginate(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// cached runs fetch through the query cache under (family, op, params).
// Service sentinels inside fetch come back wrapped as non-retryable so the
// cache's retry loop does not spin on deterministic failures.
func cached[T any](c *gin.Context, qc *querycache.Cache, family querycache.Family, op string, params any, fetch func(ctx context.Context) (T, error)) (T, error) {
	key, err := querycache.NewKey(family, op, params)
	if err != nil {
		var zero T
		return zero, err
	}
	return querycache.GetAs(c.Request.Context(), qc, key, func(ctx context.Context) (T, error) {
		out, err := fetch(ctx)
		if err != nil && isSentinel(err) {
			return out, querycache.NonRetryable(err)
		}
		return out, err
	})
}

// mutate runs op as a named mutation; the listed families are invalidated
// only after the store confirms the write.
func mutate[T any](c *gin.Context, qc *querycache.Cache, name string, op func(ctx context.Context) (T, error), families ...querycache.Family) (T, error) {
	patterns := make([]querycache.Pattern, 0, len(families))
	for _, f := range families {
		patterns = append(patterns, querycache.FamilyPattern(f))
	}
	m := querycache.Mutation{Name: name, Invalidates: patterns}
	return querycache.Do(c.Request.Context(), qc, m, op)
}

// isSentinel reports whether err is one of the deterministic service or
// repository outcomes (as opposed to a transient store failure).
func isSentinel(err error) bool {
	for _, s := range []error{
		services.ErrFrameNotFound,
		services.ErrDuplicateSKU,
		services.ErrInsufficientStock,
		services.ErrCustomerNotFound,
		services.ErrSaleNotFound,
		services.ErrCampaignNotFound,
		services.ErrEmptySale,
		services.ErrSessionAlreadyOpen,
		services.ErrNoOpenSession,
		services.ErrInvalidMovement,
		services.ErrValidation,
		repo.ErrBadSortKey,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// failFromService translates a service-layer error into the HTTP error
// envelope: 404 for missing resources, 409 for state conflicts, 422 for
// stock exhaustion, 400 for validation, 500 otherwise.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrFrameNotFound),
		errors.Is(err, services.ErrCustomerNotFound),
		errors.Is(err, services.ErrSaleNotFound),
		errors.Is(err, services.ErrCampaignNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicateSKU):
		fail(c, http.StatusConflict, ErrCodeDuplicateSKU, err.Error())
	case errors.Is(err, services.ErrSessionAlreadyOpen):
		fail(c, http.StatusConflict, ErrCodeSessionOpen, err.Error())
	case errors.Is(err, services.ErrNoOpenSession):
		fail(c, http.StatusConflict, ErrCodeNoSession, err.Error())
	case errors.Is(err, services.ErrInsufficientStock):
		fail(c, http.StatusUnprocessableEntity, ErrCodeInsufficientStock, err.Error())
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrEmptySale),
		errors.Is(err, services.ErrInvalidMovement),
		errors.Is(err, repo.ErrBadSortKey):
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeInternal, "store request timed out")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
