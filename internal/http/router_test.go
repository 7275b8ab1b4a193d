package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arriendofacil/go-contract-backend/internal/config"
	"github.com/arriendofacil/go-contract-backend/internal/domain"
	"github.com/arriendofacil/go-contract-backend/internal/repo"
)

// --- tiny fakes to satisfy the renderer/storage wiring ---

type fakeBlobs struct{}

func (fakeBlobs) Store(_ context.Context, _ string, _ []byte, _ string) error { return nil }
func (fakeBlobs) Fetch(_ context.Context, _ string) ([]byte, error)           { return []byte("tpl"), nil }
func (fakeBlobs) ReadURL(_ context.Context, object string) (string, error) {
	return "https://blobs.test/" + object, nil
}

type fakeConverter struct{}

func (fakeConverter) Convert(_ context.Context, _ []byte) ([]byte, error) {
	return []byte("%PDF-1.7 fake"), nil
}

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// schema so handlers don't explode on list endpoints
	if err := db.AutoMigrate(&domain.ContractTemplate{}, &domain.Contract{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     100,
		RateBurst:   10,
		CORS:        config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:    config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
	db := newTestDB(t, "file:routerdb?mode=memory&cache=shared")

	RegisterRoutes(r, db, fakeBlobs{}, fakeConverter{}, cfg)

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
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
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

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := config.Config{
		APIBasePath: "/api/v2",
		RateRPS:     50,
		RateBurst:   5,
		CORS:        config.CORSConfig{AllowedOrigins: []string{"http://example.com"}},
		Security:    config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
	db := newTestDB(t, "file:routerdb_cors?mode=memory&cache=shared")

	RegisterRoutes(r, db, fakeBlobs{}, fakeConverter{}, cfg)

	// Any request runs through CORS middleware; header should reflect origin.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	// Hit all three
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/one", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "one" {
		t.Fatalf("GET /one got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/two", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "two" {
		t.Fatalf("GET /two got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("GET /api/ping got %d %q", rec.Code, rec.Body.String())
	}
}

// Smoke test that a request traverses the ratelimit + otel + security headers pipeline.
func TestPipeline_Smoke(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     100,
		RateBurst:   10,
		CORS:        config.CORSConfig{},                                            // allow-all branch
		Security:    config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour}, // enabled (but only set on https)
		OTEL:        config.OTELConfig{ServiceName: "svc"},
	}
	db := newTestDB(t, "file:routerdb_smoke?mode=memory&cache=shared")
	RegisterRoutes(r, db, fakeBlobs{}, fakeConverter{}, cfg)

	// Any request goes through the middleware stack
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	// simulate https so HSTS could be eligible if middleware checks scheme
	req.URL.Scheme = "https"
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	// RequestID header should be present (from RequestID middleware)
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func Test_templateRepoShim_Proxies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t, "file:routerdb_tplshim?mode=memory&cache=shared")

	shim := templateRepoShim{}
	ctx := context.Background()

	// --- CreateTemplate ---
	t1, err := shim.CreateTemplate(ctx, db, "arriendo", "desc", "1.0.0", "templates/arriendo/a", "u1")
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if t1 == nil || t1.ID == "" || !t1.Active || t1.Name != "arriendo" {
		t.Fatalf("CreateTemplate returned bad template: %+v", t1)
	}

	// --- GetActiveTemplate ---
	active, err := shim.GetActiveTemplate(ctx, db, "arriendo")
	if err != nil {
		t.Fatalf("GetActiveTemplate: %v", err)
	}
	if active.ID != t1.ID {
		t.Fatalf("GetActiveTemplate mismatch: got=%s want=%s", active.ID, t1.ID)
	}

	// A second upload becomes active; the first is deactivated.
	t2, err := shim.CreateTemplate(ctx, db, "arriendo", "desc", "2.0.0", "templates/arriendo/b", "u1")
	if err != nil {
		t.Fatalf("CreateTemplate v2: %v", err)
	}
	active, err = shim.GetActiveTemplate(ctx, db, "arriendo")
	if err != nil {
		t.Fatalf("GetActiveTemplate (after v2): %v", err)
	}
	if active.ID != t2.ID {
		t.Fatalf("expected v2 active, got %s", active.ID)
	}

	// --- GetTemplate ---
	got, err := shim.GetTemplate(ctx, db, t1.ID)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if got.ID != t1.ID || got.Active {
		t.Fatalf("expected deactivated v1, got %+v", got)
	}

	// --- ListTemplates ---
	all, err := shim.ListTemplates(ctx, db)
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListTemplates expected 2, got %d", len(all))
	}
}

func Test_contractRepoShim_Proxies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t, "file:routerdb_ctshim?mode=memory&cache=shared")

	shim := contractRepoShim{}
	ctx := context.Background()

	// --- InsertContract ---
	c1, err := shim.InsertContract(ctx, db, "t1", "1.0.0", "hash-1", "contracts/t1/hash-1.pdf", "u1")
	if err != nil {
		t.Fatalf("InsertContract: %v", err)
	}
	if c1 == nil || c1.ID == "" || c1.Status != domain.StatusIssued {
		t.Fatalf("InsertContract returned bad contract: %+v", c1)
	}

	// Duplicate insert surfaces repo.ErrDuplicate through the shim.
	if _, err := shim.InsertContract(ctx, db, "t1", "1.0.0", "hash-1", "contracts/t1/hash-1.pdf", "u1"); !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// --- FindByTemplateAndHash ---
	found, err := shim.FindByTemplateAndHash(ctx, db, "t1", "hash-1")
	if err != nil {
		t.Fatalf("FindByTemplateAndHash: %v", err)
	}
	if found.ID != c1.ID {
		t.Fatalf("FindByTemplateAndHash mismatch: got=%s want=%s", found.ID, c1.ID)
	}

	// --- GetContract / SetVoid ---
	got, err := shim.GetContract(ctx, db, c1.ID)
	if err != nil || got.ID != c1.ID {
		t.Fatalf("GetContract: err=%v got=%+v", err, got)
	}
	if err := shim.SetVoid(ctx, db, c1.ID); err != nil {
		t.Fatalf("SetVoid: %v", err)
	}
	if _, err := shim.FindByTemplateAndHash(ctx, db, "t1", "hash-1"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("void row should not be reusable, got %v", err)
	}

	// Seed a couple more rows for pagination
	if _, err := shim.InsertContract(ctx, db, "t1", "1.0.0", "hash-2", "contracts/t1/hash-2.pdf", "u1"); err != nil {
		t.Fatalf("InsertContract hash-2: %v", err)
	}
	if _, err := shim.InsertContract(ctx, db, "t2", "1.0.0", "hash-3", "contracts/t2/hash-3.pdf", "u1"); err != nil {
		t.Fatalf("InsertContract hash-3: %v", err)
	}

	// --- CountContracts ---
	n, err := shim.CountContracts(ctx, db, "t1", "")
	if err != nil {
		t.Fatalf("CountContracts: %v", err)
	}
	if n != 2 {
		t.Fatalf("CountContracts expected 2 for t1, got %d", n)
	}
	n, err = shim.CountContracts(ctx, db, "", domain.StatusVoid)
	if err != nil || n != 1 {
		t.Fatalf("CountContracts(void) = %d, %v; want 1", n, err)
	}

	// --- ListContractsPage ---
	page, err := shim.ListContractsPage(ctx, db, "", "", 0, 2)
	if err != nil {
		t.Fatalf("ListContractsPage: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("ListContractsPage expected 2, got %d", len(page))
	}
}
