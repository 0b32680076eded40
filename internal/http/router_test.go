package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lensworks/go-optics-backend/internal/config"
	"github.com/lensworks/go-optics-backend/internal/http/middleware"
	"github.com/lensworks/go-optics-backend/internal/querycache"
	"github.com/lensworks/go-optics-backend/internal/repo"
	"gorm.io/gorm"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	cache := querycache.New(querycache.Options{})
	RegisterRoutes(r, db, cache, nil, cfg)
	return r
}

func baseConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     1000,
		RateBurst:   100,
		CORS:        config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:    config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newTestRouter(t, baseConfig())

	// /health works
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_FrameLifecycle(t *testing.T) {
	cfg := baseConfig()
	cfg.AdminPIN = "4711"
	r := newTestRouter(t, cfg)

	// Create
	body := bytes.NewBufferString(`{"sku":"RB-1001","model":"Wayfarer","price":120,"stock":3}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/frames", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /frames = %d body=%s", w.Code, w.Body.String())
	}
	var created struct {
		ID  string `json:"id"`
		SKU string `json:"sku"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" || created.SKU != "RB-1001" {
		t.Fatalf("unexpected create response: %s", w.Body.String())
	}

	// Duplicate SKU → 409
	body = bytes.NewBufferString(`{"sku":"RB-1001","model":"Copy"}`)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/frames", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate SKU expected 409, got %d", w.Code)
	}

	// List sees the frame
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/frames", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /frames = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("RB-1001")) {
		t.Fatalf("list missing created frame: %s", w.Body.String())
	}

	// Delete without PIN → 401
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/frames/"+created.ID, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("delete without PIN expected 401, got %d", w.Code)
	}

	// Delete with PIN → 204
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/frames/"+created.ID, nil)
	req.Header.Set(middleware.HeaderAdminPIN, "4711")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete with PIN expected 204, got %d body=%s", w.Code, w.Body.String())
	}

	// Gone afterwards
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/frames/"+created.ID, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted frame expected 404, got %d", w.Code)
	}
}

func TestRegisterRoutes_Reports(t *testing.T) {
	r := newTestRouter(t, baseConfig())

	for _, payload := range []string{
		`{"sku":"A-1","model":"Alpha","stock":4,"price":100}`,
		`{"sku":"B-2","model":"Beta","stock":1,"price":50}`,
		`{"sku":"C-3","model":"Gamma","stock":0,"price":75}`,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/frames", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("seed frame failed: %d %s", w.Code, w.Body.String())
		}
	}

	// Summary: 2 of 3 distinct types in stock, percentage truncated.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/inventory/summary", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET summary = %d body=%s", w.Code, w.Body.String())
	}
	var summary struct {
		DistinctTypes int64   `json:"distinct_types"`
		TotalUnits    int64   `json:"total_units"`
		InStock       int64   `json:"in_stock"`
		InStockPct    float64 `json:"in_stock_pct"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.DistinctTypes != 3 || summary.TotalUnits != 5 || summary.InStock != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.InStockPct != 66.66 {
		t.Fatalf("expected truncated 66.66, got %v", summary.InStockPct)
	}

	// Unknown group-by dimension → 400
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports/inventory/grouped/flavor", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown dimension expected 400, got %d", w.Code)
	}

	// Full report builds
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports/inventory/full", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET full report = %d body=%s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("INVENTORY REPORT")) {
		t.Fatalf("report header missing: %s", w.Body.String())
	}
}

func TestRegisterRoutes_StreamDisabledWithoutHub(t *testing.T) {
	r := newTestRouter(t, baseConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("stream without hub expected 404, got %d", w.Code)
	}
}
