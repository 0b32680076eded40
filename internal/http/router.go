// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, the admin PIN guard, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/lensworks/go-optics-backend/internal/config"
	"github.com/lensworks/go-optics-backend/internal/http/handlers"
	"github.com/lensworks/go-optics-backend/internal/http/middleware"
	"github.com/lensworks/go-optics-backend/internal/querycache"
	"github.com/lensworks/go-optics-backend/internal/report"
	"github.com/lensworks/go-optics-backend/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, health and metrics endpoints, and then mounts the
// versioned public API under /api/v*.
//
// hub may be nil; the websocket feed endpoint then answers 404.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and Security headers
//
// The admin PIN guard is applied per-route, only on destructive endpoints.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cache *querycache.Cache, hub *handlers.StreamHub, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// Response compression. The websocket stream is excluded: compression
	// middleware must not wrap an upgraded connection.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`.*/stream$`})))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP. Websocket upgrades hold one
	// request for the whole session, so they bypass token accounting.
	r.Use(func(c *gin.Context) {
		if strings.HasSuffix(c.Request.URL.Path, "/stream") {
			middleware.MarkRateBypass(c)
		}
		c.Next()
	})
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderAdminPIN},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderAdminPIN},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db
	h := handlers.New(
		cache,
		services.NewInventoryService(db),
		services.NewCatalogService(db),
		services.NewCustomerService(db),
		services.NewSaleService(db),
		services.NewCashService(db),
		services.NewCampaignService(db),
		report.NewBuilder(db, 0),
		hub,
	)

	// Destructive operations require the supervisor PIN.
	pin := middleware.RequireAdminPIN(cfg.AdminPIN)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Inventory
		api.GET("/frames", h.ListFrames)
		api.POST("/frames", h.CreateFrame)
		api.GET("/frames/out-of-stock", h.ListOutOfStockFrames)
		api.GET("/frames/:id", h.GetFrame)
		api.PUT("/frames/:id", h.UpdateFrame)
		api.DELETE("/frames/:id", pin, h.DeleteFrame)
		api.POST("/frames/:id/restock", h.RestockFrame)
		api.GET("/frames/:id/movements", h.ListStockMovements)

		// Catalog dimensions
		api.GET("/brands", h.ListBrands)
		api.POST("/brands", h.CreateBrand)
		api.GET("/groups", h.ListGroups)
		api.POST("/groups", h.CreateGroup)
		api.GET("/sub-brands", h.ListSubBrands)
		api.POST("/sub-brands", h.CreateSubBrand)
		api.GET("/descriptions", h.ListDescriptions)
		api.POST("/descriptions", h.CreateDescription)

		// Customers
		api.GET("/customers", h.ListCustomers)
		api.POST("/customers", h.CreateCustomer)
		api.GET("/customers/:id", h.GetCustomer)
		api.PUT("/customers/:id", h.UpdateCustomer)
		api.DELETE("/customers/:id", pin, h.DeleteCustomer)
		api.GET("/customers/:id/prescriptions", h.ListPrescriptions)
		api.POST("/customers/:id/prescriptions", h.AddPrescription)
		api.GET("/companies", h.ListCompanies)
		api.POST("/companies", h.CreateCompany)

		// Sales
		api.GET("/sales", h.ListSales)
		api.POST("/sales", h.CreateSale)
		api.GET("/sales/stats", h.SalesStats)
		api.GET("/sales/best-sellers", h.BestSellers)
		api.GET("/sales/by-vendor", h.SalesByVendor)
		api.GET("/sales/:id", h.GetSale)
		api.DELETE("/sales/:id", pin, h.VoidSale)

		// Cash box
		api.POST("/cash/open", h.OpenCashSession)
		api.POST("/cash/close", pin, h.CloseCashSession)
		api.GET("/cash/current", h.CurrentCashSession)
		api.POST("/cash/movements", h.AddCashMovement)
		api.GET("/cash/balance", h.CashBalance)
		api.GET("/cash/history", h.CashHistory)

		// Campaigns
		api.GET("/campaigns", h.ListCampaigns)
		api.POST("/campaigns", h.CreateCampaign)
		api.GET("/campaigns/:id", h.GetCampaign)
		api.PUT("/campaigns/:id", h.UpdateCampaign)
		api.DELETE("/campaigns/:id", pin, h.DeleteCampaign)

		// Reports
		api.GET("/reports/inventory/summary", h.InventorySummary)
		api.GET("/reports/inventory/grouped/:dimension", h.GroupedInventory)
		api.GET("/reports/inventory/full", h.InventoryReport)

		// Realtime change feed
		api.GET("/stream", h.Stream)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
